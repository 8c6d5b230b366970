package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core/bilingual"
	"github.com/cpmappstudio/alef-university-sub001/core/class"
	"github.com/cpmappstudio/alef-university-sub001/core/enrollment"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

type enrollmentApi struct {
	svc      *enrollment.Service
	classes  *class.Service
	validate *validator.Validate
	locale   bilingual.Language
}

func registerEnrollmentAPI(g *echo.Group, api *enrollmentApi) {
	admin := roleMiddleware(user.AdminRoles...)

	eg := g.Group("/enrollments")
	eg.GET("", api.query)
	eg.POST("", api.create, admin)
	eg.GET("/:id", api.retrieve)
	eg.DELETE("/:id", api.destroy, admin)
	eg.PUT("/:id/grade", api.grade)

	g.GET("/students/:id/transcript", api.transcript)
}

// canSee tells whether the principal may read e: admins always, students their own,
// professors those of their classes.
func (api *enrollmentApi) canSee(ctx echo.Context, e enrollment.Enrollment) (bool, error) {
	actor := principal(ctx)
	switch {
	case actor.HasRole(user.AdminRoles...):
		return true, nil
	case actor.HasRole(user.RoleStudent):
		return e.StudentID == actor.UserID, nil
	case actor.HasRole(user.RoleProfessor):
		c, err := api.classes.Get(ctx.Request().Context(), e.ClassID)
		if err != nil {
			return false, errors.Wrap(err, "getting class")
		}
		return c.ProfessorID == actor.UserID, nil
	}
	return false, nil
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	var filter enrollment.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []enrollment.Enrollment{})
	}

	c := ctx.Request().Context()
	actor := principal(ctx)
	switch {
	case actor.HasRole(user.AdminRoles...):
	case actor.HasRole(user.RoleProfessor):
		// professors list the enrollments of one of their classes
		if filter.ClassID == "" {
			return errHttpForbidden
		}
		cls, err := api.classes.Get(c, filter.ClassID)
		if err != nil {
			return err
		}
		if cls.ProfessorID != actor.UserID {
			return errHttpForbidden
		}
	default:
		filter.StudentID = actor.UserID
	}

	enrollments, err := api.svc.Query(c, filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *enrollmentApi) create(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	c := ctx.Request().Context()
	if err := data.Validate(c, api.validate, api.svc); err != nil {
		return err
	}
	e, err := api.svc.Enroll(c, data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	ok, err := api.canSee(ctx, e)
	if err != nil {
		return err
	}
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// grade sets or clears a grade. Who may grade is decided by the service.
func (api *enrollmentApi) grade(ctx echo.Context) error {
	var data enrollment.GradeInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeInput")
	}
	c := ctx.Request().Context()
	if err := data.Validate(c, api.validate); err != nil {
		return err
	}
	e, err := api.svc.SetGrade(c, principal(ctx), ctx.Param("id"), data.PercentageGrade)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *enrollmentApi) transcript(ctx echo.Context) error {
	actor := principal(ctx)
	id := ctx.Param("id")
	if id != actor.UserID && !actor.HasRole(user.AdminRoles...) {
		return errHttpNotFound
	}
	t, err := api.svc.Transcript(ctx.Request().Context(), id, bindLocale(ctx, api.locale))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}
