package echoapi

import (
	"github.com/labstack/echo/v4"
)

// roleMiddleware lets through the principals holding one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := principal(ctx).Require(roles...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
