package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type classApi struct {
	svc         *class.Service
	enrollments *enrollment.Service
	validate    *validator.Validate
	locale      bilingual.Language
}

func registerClassAPI(g *echo.Group, api *classApi) {
	admin := roleMiddleware(user.AdminRoles...)
	staff := roleMiddleware(user.RoleProfessor, user.RoleAdmin, user.RoleSuperAdmin)

	cg := g.Group("/classes", staff)
	cg.GET("", api.query)
	cg.POST("", api.create, admin)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, admin)
	cg.DELETE("/:id", api.destroy, admin)
	cg.GET("/:id/roster", api.roster)
	cg.GET("/:id/roster.xlsx", api.rosterXLSX)
}

// getClass returns the class of the :id param. Professors only ever find their own classes.
func (api *classApi) getClass(ctx echo.Context) (class.Class, error) {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return class.Class{}, err
	}
	actor := principal(ctx)
	if !actor.HasRole(user.AdminRoles...) && c.ProfessorID != actor.UserID {
		return class.Class{}, class.ErrNotFound
	}
	return c, nil
}

func (api *classApi) query(ctx echo.Context) error {
	var filter class.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []class.View{})
	}
	if actor := principal(ctx); !actor.HasRole(user.AdminRoles...) {
		filter.ProfessorID = actor.UserID
	}
	views, err := api.svc.Query(ctx.Request().Context(), filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	c := ctx.Request().Context()
	if err := data.Validate(c, api.validate, api.svc); err != nil {
		return err
	}
	v, err := api.svc.Create(c, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	c, err := api.getClass(ctx)
	if err != nil {
		return err
	}
	v, err := api.svc.View(ctx.Request().Context(), c)
	if err != nil {
		return errors.Wrap(err, "viewing class")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *classApi) update(ctx echo.Context) error {
	orig, err := api.getClass(ctx)
	if err != nil {
		return err
	}
	var data class.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	c := ctx.Request().Context()
	if err = data.Validate(c, orig, api.validate, api.svc); err != nil {
		return err
	}
	v, err := api.svc.Update(c, orig, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *classApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) buildRoster(ctx echo.Context) (enrollment.Roster, error) {
	c, err := api.getClass(ctx)
	if err != nil {
		return enrollment.Roster{}, err
	}
	return api.enrollments.Roster(ctx.Request().Context(), c.ID, bindLocale(ctx, api.locale))
}

func (api *classApi) roster(ctx echo.Context) error {
	r, err := api.buildRoster(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *classApi) rosterXLSX(ctx echo.Context) error {
	r, err := api.buildRoster(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err = enrollment.WriteRosterXLSX(&buf, r); err != nil {
		return errors.Wrap(err, "exporting roster")
	}
	filename := fmt.Sprintf("roster-%s-%s.xlsx", r.CourseCode, r.Class.GroupNumber)
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
