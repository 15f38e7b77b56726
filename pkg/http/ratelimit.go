package http

import (
	"github.com/labstack/echo/v4"
)

// RateLimit rejects requests with 429 once allow refuses the client's key.
// The key is the client IP.
func RateLimit(allow func(key string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allow(c.RealIP()) {
				c.Response().Header().Set(echo.HeaderRetryAfter, "1")
				return AppErrorResponse(c, TooManyRequestsError("too many requests, retry later").
					WithParam("key", c.RealIP()))
			}
			return next(c)
		}
	}
}
