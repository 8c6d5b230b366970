package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/cpmappstudio/alef-university-sub001/core"
	"github.com/cpmappstudio/alef-university-sub001/core/importer"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// sentinelStatus maps domain sentinel errors to their status code.
var sentinelStatus = map[error]int{
	core.ErrForbidden:        http.StatusForbidden,
	importer.ErrFileTooLarge: http.StatusRequestEntityTooLarge,
}

func fieldErrors(errs validator.ValidationErrors, translator ut.Translator) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field()] = fe.Translate(translator)
	}
	return out
}

// statusOf returns the status code and body of err. A zero code means err is unexpected.
func statusOf(err error, translator ut.Translator) (int, interface{}) {
	cause := errors.Cause(err)
	switch e := cause.(type) {
	case *echo.HTTPError:
		if e == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, e.Message
		}
		if inner, ok := e.Internal.(*echo.HTTPError); ok {
			e = inner
		}
		return e.Code, e.Message
	case validator.ValidationErrors:
		return http.StatusBadRequest, fieldErrors(e, translator)
	case *core.ValidationError:
		if e.Fields == nil {
			return http.StatusBadRequest, e.Error()
		}
		flds := make(map[string]string, len(e.Fields))
		for _, f := range e.Fields {
			flds[f.Field] = f.Error
		}
		return http.StatusBadRequest, flds
	case *core.NotFoundError:
		return http.StatusNotFound, e.Error()
	case *core.ConflictError:
		return http.StatusConflict, e.Error()
	}

	if cause == core.ErrUnauthenticated {
		return http.StatusUnauthorized, errUnauthorized.Message
	}
	if code, ok := sentinelStatus[cause]; ok {
		return code, err.Error()
	}
	if importer.IsFileError(err) {
		return http.StatusBadRequest, err.Error()
	}
	return 0, nil
}

// newAppHTTPErrorHandler renders errors as JSON. Unexpected errors are reported as 500s,
// and signalShutdown is called when one of them asks for a shutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body := statusOf(err, translator)
		if code == 0 {
			code = http.StatusInternalServerError
			text := http.StatusText(code)
			body = text
			if ctx.Echo().Debug {
				body = err.Error()
			}
			logger.Error(text, errors.Wrap(err, text), principal(ctx))
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}
		if s, ok := body.(string); ok {
			body = echo.Map{"error": s}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
