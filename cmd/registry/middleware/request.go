package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/qldp/registry/common/logger"
)

// RequestContext copies the request id assigned by echo's RequestID middleware
// into the request context so service logs carry it. Register it after RequestID.
func RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = c.Request().Header.Get(echo.HeaderXRequestID)
			}
			if id != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(context.WithValue(req.Context(), logger.RequestIDKey, id)))
			}
			return next(c)
		}
	}
}
