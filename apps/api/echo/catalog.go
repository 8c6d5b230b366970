package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/course"
	"github.com/cpmappstudio/alef-university-sub001/core/program"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

// catalogApi serves programs and their courses. Everyone authenticated may read them.
type catalogApi struct {
	programs *program.Service
	courses  *course.Service
	validate *validator.Validate
	locale   bilingual.Language // default display locale
}

func registerCatalogAPI(g *echo.Group, api *catalogApi) {
	admin := roleMiddleware(user.AdminRoles...)

	pg := g.Group("/programs")
	pg.GET("", api.queryPrograms)
	pg.POST("", api.createProgram, admin)
	pg.GET("/exists", api.programExists, admin)
	pg.GET("/:id", api.retrieveProgram)
	pg.PUT("/:id", api.updateProgram, admin)
	pg.DELETE("/:id", api.destroyProgram, admin)

	cg := g.Group("/courses")
	cg.GET("", api.queryCourses)
	cg.POST("", api.createCourse, admin)
	cg.GET("/exists", api.courseExists, admin)
	cg.GET("/:id", api.retrieveCourse)
	cg.PUT("/:id", api.updateCourse, admin)
	cg.DELETE("/:id", api.destroyCourse, admin)
}

// Programs

func (api *catalogApi) queryPrograms(ctx echo.Context) error {
	var filter program.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []program.View{})
	}
	views, err := api.programs.QueryViews(ctx.Request().Context(), bindLocale(ctx, api.locale), filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *catalogApi) createProgram(ctx echo.Context) error {
	var data program.NewProgram
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProgram")
	}
	c := ctx.Request().Context()
	if err := data.Validate(c, api.validate, api.programs); err != nil {
		return err
	}
	p, err := api.programs.Create(c, data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, program.NewView(p, bindLocale(ctx, api.locale)))
}

func (api *catalogApi) programExists(ctx echo.Context) error {
	ok, err := api.programs.CodeExists(ctx.Request().Context(), ctx.QueryParam("code"), ctx.QueryParam("exclude"))
	if err != nil {
		return errors.Wrap(err, "checking program code")
	}
	return ctx.JSON(http.StatusOK, ExistsResponse{Exists: ok})
}

func (api *catalogApi) retrieveProgram(ctx echo.Context) error {
	p, err := api.programs.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, program.NewView(p, bindLocale(ctx, api.locale)))
}

func (api *catalogApi) updateProgram(ctx echo.Context) error {
	c := ctx.Request().Context()
	orig, err := api.programs.Get(c, ctx.Param("id"))
	if err != nil {
		return err
	}
	var data program.UpdateProgram
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProgram")
	}
	if err = data.Validate(c, orig, api.validate, api.programs); err != nil {
		return err
	}
	p, err := api.programs.Update(c, orig, data)
	if err != nil {
		return errors.Wrap(err, "updating program")
	}
	return ctx.JSON(http.StatusOK, program.NewView(p, bindLocale(ctx, api.locale)))
}

func (api *catalogApi) destroyProgram(ctx echo.Context) error {
	if err := api.programs.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting program")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Courses

func (api *catalogApi) queryCourses(ctx echo.Context) error {
	var filter course.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.View{})
	}
	views, err := api.courses.QueryViews(ctx.Request().Context(), bindLocale(ctx, api.locale), filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, views)
}

func (api *catalogApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	c := ctx.Request().Context()
	if err := data.Validate(c, api.validate, api.courses); err != nil {
		return err
	}
	crs, err := api.courses.Create(c, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, course.NewView(crs, bindLocale(ctx, api.locale)))
}

func (api *catalogApi) courseExists(ctx echo.Context) error {
	ok, err := api.courses.CodeExists(ctx.Request().Context(),
		ctx.QueryParam("program_id"), ctx.QueryParam("code"), ctx.QueryParam("exclude"))
	if err != nil {
		return errors.Wrap(err, "checking course code")
	}
	return ctx.JSON(http.StatusOK, ExistsResponse{Exists: ok})
}

func (api *catalogApi) retrieveCourse(ctx echo.Context) error {
	crs, err := api.courses.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, course.NewView(crs, bindLocale(ctx, api.locale)))
}

func (api *catalogApi) updateCourse(ctx echo.Context) error {
	c := ctx.Request().Context()
	orig, err := api.courses.Get(c, ctx.Param("id"))
	if err != nil {
		return err
	}
	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(c, orig, api.validate, api.courses); err != nil {
		return err
	}
	crs, err := api.courses.Update(c, orig, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, course.NewView(crs, bindLocale(ctx, api.locale)))
}

func (api *catalogApi) destroyCourse(ctx echo.Context) error {
	if err := api.courses.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
