package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/importer"
	"github.com/cpmappstudio/alef-university-sub001/core/user"
	workersvc "github.com/cpmappstudio/alef-university-sub001/services/worker"
)

var errAsyncUnavailable = echo.NewHTTPError(http.StatusServiceUnavailable, "asynchronous imports are not available")

type importApi struct {
	importer  *importer.Service
	scheduler *workersvc.Scheduler // nil when no queue is configured
}

func registerImportAPI(g *echo.Group, api *importApi) {
	ig := g.Group("/imports", roleMiddleware(user.AdminRoles...))
	ig.POST("", api.create)
	ig.GET("/:id", api.retrieve)
}

func formBool(ctx echo.Context, name string) (bool, error) {
	v := ctx.FormValue(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, core.NewValidationError(errors.Errorf("invalid %s", name), core.FieldError{
			Field: name, Error: "must be a boolean",
		})
	}
	return b, nil
}

// create imports the multipart "file" field.
// With async=true the file is queued and 202 is returned along with the job state.
func (api *importApi) create(ctx echo.Context) error {
	dryRun, err := formBool(ctx, "dry_run")
	if err != nil {
		return err
	}
	async, err := formBool(ctx, "async")
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "the file field is required")
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	c := ctx.Request().Context()
	src := importer.Source{Name: fh.Filename, Reader: f}
	if async {
		if api.scheduler == nil {
			return errAsyncUnavailable
		}
		job, err := api.scheduler.Schedule(c, principal(ctx), src, dryRun)
		if err != nil {
			return err
		}
		state, err := api.scheduler.State(c, job.ID)
		if err != nil {
			return errors.Wrap(err, "getting import job state")
		}
		return ctx.JSON(http.StatusAccepted, state)
	}

	res, err := api.importer.Run(c, principal(ctx), src, importer.Options{DryRun: dryRun})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *importApi) retrieve(ctx echo.Context) error {
	if api.scheduler == nil {
		return errHttpNotFound
	}
	state, err := api.scheduler.State(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, state)
}
