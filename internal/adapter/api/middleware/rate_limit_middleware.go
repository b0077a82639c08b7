package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"freshkart/internal/infrastructure/ratelimit"
	"freshkart/pkg/errors"
	"freshkart/pkg/logger"
	"freshkart/pkg/response"
)

// RateLimit applies rl to action, keyed by the authenticated user or, for
// anonymous requests, the client IP.
func RateLimit(rl *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := UserID(c)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			if ok, retryAfter := rl.Allow(key, action); !ok {
				logger.Warn("RATE LIMIT: %s blocked on %s (retry in %v)", key, action, retryAfter)
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}
			return next(c)
		}
	}
}
