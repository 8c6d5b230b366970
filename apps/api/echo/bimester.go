package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core/bimester"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

type bimesterApi struct {
	svc      *bimester.Service
	validate *validator.Validate
}

func registerBimesterAPI(g *echo.Group, api *bimesterApi) {
	admin := roleMiddleware(user.AdminRoles...)

	bg := g.Group("/bimesters")
	bg.GET("", api.query)
	bg.POST("", api.create, admin)
	bg.GET("/:id", api.retrieve)
	bg.PUT("/:id", api.update, admin)
	bg.DELETE("/:id", api.destroy, admin)
}

func (api *bimesterApi) query(ctx echo.Context) error {
	var filter bimester.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []bimester.View{})
	}
	views, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying bimesters")
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *bimesterApi) create(ctx echo.Context) error {
	var data bimester.NewBimester
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBimester")
	}
	c := ctx.Request().Context()
	if err := data.Validate(c, api.validate, api.svc); err != nil {
		return err
	}
	v, err := api.svc.Create(c, data)
	if err != nil {
		return errors.Wrap(err, "creating bimester")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *bimesterApi) retrieve(ctx echo.Context) error {
	b, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.View(b))
}

func (api *bimesterApi) update(ctx echo.Context) error {
	c := ctx.Request().Context()
	orig, err := api.svc.Get(c, ctx.Param("id"))
	if err != nil {
		return err
	}
	var data bimester.UpdateBimester
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBimester")
	}
	if err = data.Validate(c, orig, api.validate, api.svc); err != nil {
		return err
	}
	v, err := api.svc.Update(c, orig, data)
	if err != nil {
		return errors.Wrap(err, "updating bimester")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *bimesterApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting bimester")
	}
	return ctx.NoContent(http.StatusNoContent)
}
