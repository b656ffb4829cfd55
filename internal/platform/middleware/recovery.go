package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caremgr/caremgr/internal/platform/apperr"
	"github.com/caremgr/caremgr/internal/platform/auth"
)

// Recovery converts a handler panic into an internal error for ErrorHandler.
// The stack is logged, never returned to the client.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if e, ok := r.(error); ok && errors.Is(e, http.ErrAbortHandler) {
					panic(r)
				}

				reqID, _ := c.Get("request_id").(string)
				logger.Error().
					Str("request_id", reqID).
					Str("identity", auth.UserIDFromContext(c.Request().Context())).
					Str("route", c.Path()).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				err = &apperr.Error{Code: apperr.EInternal, Op: "middleware.Recovery", Msg: fmt.Sprintf("panic: %v", r)}
			}()
			return next(c)
		}
	}
}
