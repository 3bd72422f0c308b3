package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/qldp/registry/common/logger"
	"github.com/qldp/registry/common/ratelimit"
)

// Limiter is the subset of ratelimit.Limiter used by WriteRateLimit
type Limiter interface {
	Allow(ctx context.Context, subject string, limit int64, window time.Duration) (*ratelimit.Result, error)
}

// WriteRateLimit limits mutating requests per caller. Callers are keyed by
// identity when ExtractIdentity ran first, otherwise by client IP.
// Read requests pass through. Limiter errors are logged and fail open.
func WriteRateLimit(limiter Limiter, limit int64, window time.Duration, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			subject := "ip:" + c.RealIP()
			if identity := GetIdentity(c); identity != "" {
				subject = "user:" + identity
			}

			result, err := limiter.Allow(c.Request().Context(), subject, limit, window)
			if err != nil {
				log.WithContext(c.Request().Context()).Warn("rate limit check failed, allowing request",
					"subject", subject,
					"method", c.Request().Method,
					"path", c.Path(),
					"error", err,
				)
				return next(c)
			}

			if !result.Allowed {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "rate_limit_exceeded",
					"message": "Too many write requests. Please wait before trying again.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"window_seconds":      int64(window / time.Second),
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}
