package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// IdentityKey is the context key for the caller's identity uid
	IdentityKey ContextKey = "identity"

	// IdentityHeader carries the caller's identity uid
	IdentityHeader = "X-User-ID"
)

// ExtractIdentity stores the X-User-ID header in the echo context when present.
//
// Accessing in handlers:
//
//	identity := middleware.GetIdentity(c)
func ExtractIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if identity := c.Request().Header.Get(IdentityHeader); identity != "" {
				c.Set(string(IdentityKey), identity)
			}
			return next(c)
		}
	}
}

// ExtractIdentityStrict rejects requests without an X-User-ID header
func ExtractIdentityStrict() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := c.Request().Header.Get(IdentityHeader)
			if identity == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error":   "identity_required",
					"message": "X-User-ID header is required",
				})
			}

			c.Set(string(IdentityKey), identity)
			return next(c)
		}
	}
}

// GetIdentity returns the identity stored by ExtractIdentity, or ""
func GetIdentity(c echo.Context) string {
	identity, _ := c.Get(string(IdentityKey)).(string)
	return identity
}
