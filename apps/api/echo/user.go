package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core/user"
)

var errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")

type userApi struct {
	svc      *user.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, api *userApi) {
	admin := roleMiddleware(user.AdminRoles...)

	ug := g.Group("/users")
	ug.POST("", api.create, admin)
	ug.GET("", api.query, admin)
	ug.GET("/roles", api.queryRoles, admin)
	ug.GET("/exists", api.exists, admin)

	// detail endpoints
	dg := ug.Group("/:id", ctxUserOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, admin)
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	c := ctx.Request().Context()
	if err := data.Validate(c, api.validate, api.svc); err != nil {
		return err
	}
	// the principal cannot grant a role above their own
	if err := user.CheckGrant(principal(ctx), data.Role); err != nil {
		return err
	}

	usr, err := api.svc.Create(c, data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}

	users, err := api.svc.Query(ctx.Request().Context(), *filter, bindOrdering(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

// exists backs the duplicate checks of user forms: ?email=...&code=...&exclude=<id>
func (api *userApi) exists(ctx echo.Context) error {
	c := ctx.Request().Context()
	exclude := ctx.QueryParam("exclude")
	res := ExistsResponse{}

	if email := ctx.QueryParam("email"); email != "" {
		ok, err := api.svc.EmailExists(c, email, exclude)
		if err != nil {
			return errors.Wrap(err, "checking email")
		}
		res.Exists = res.Exists || ok
	}
	if code := ctx.QueryParam("code"); code != "" {
		ok, err := api.svc.CodeExists(c, code, exclude)
		if err != nil {
			return errors.Wrap(err, "checking code")
		}
		res.Exists = res.Exists || ok
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	actor := principal(ctx)
	if !actor.HasRole(user.AdminRoles...) {
		// `IsActive`, `Role`, `Email` and `Code` can only be changed by admins
		if data.IsActive != nil || data.Role != "" || data.Email != "" || data.Code != nil {
			return errHttpForbidden
		}
	}

	c := ctx.Request().Context()
	if err := data.Validate(c, usr, api.validate, api.svc); err != nil {
		return err
	}
	if data.Role != usr.Role {
		if err := user.CheckGrant(actor, data.Role); err != nil {
			return err
		}
	}

	usr, err := api.svc.Update(c, usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, ok := ctx.Get("object").(user.User)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	// Say No to Suicide! the principal cannot delete themselves
	actor := principal(ctx)
	if usr.ID == actor.UserID {
		return errHttpForbidden
	}
	// nor anyone above them
	if err := user.CheckGrant(actor, usr.Role); err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

// ctxUserOrAdminMiddleware loads the user of the :id param into the "object" context key.
// Non admins only ever find themselves.
func ctxUserOrAdminMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			actor := principal(ctx)
			if err := actor.Require(); err != nil {
				return err
			}

			if ctx.Param("id") == actor.UserID || actor.HasRole(user.AdminRoles...) {
				if usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set("object", usr)
					return next(ctx)
				} else if errors.Cause(err) != user.ErrNotFound {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}
