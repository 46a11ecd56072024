package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
)

var (
	errMissingIdentity = echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	errUnknownRole     = echo.NewHTTPError(http.StatusForbidden, "unknown role")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound    = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		origErr := errors.Cause(err)
		switch e := origErr.(type) {
		case *echo.HTTPError:
			if e.Internal != nil {
				if herr, ok := e.Internal.(*echo.HTTPError); ok {
					e = herr
				}
			}
			code = e.Code
			message = e.Message
		case *core.ValidationError:
			if e.Fields != nil {
				fldErrs := make(map[string]string, len(e.Fields))
				for _, fErr := range e.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = e.Error()
			}
			code = http.StatusBadRequest
		case *core.LoadError:
			// the data source failed: this is neither an empty result nor a crash
			code = http.StatusServiceUnavailable
			message = echo.Map{"error": e.Error(), "retry": true}
			if logger != nil {
				logger.Warn("load failed", err, identityOrZero(ctx))
			}
		default:
			if origErr == core.ErrNotFound {
				code = errHttpNotFound.Code
				message = errHttpNotFound.Message
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			if logger != nil {
				logger.Error(msg, errors.Wrap(err, msg), identityOrZero(ctx))
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = echo.Map{"error": err.Error()}
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
