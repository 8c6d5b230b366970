package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
)

// registerGradingAPI exposes the grading scale in use, for display by clients.
func registerGradingAPI(g *echo.Group, svc *enrollment.Service) {
	g.GET("/grading/scale", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, svc.Scale())
	})
}
