package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caremgr/caremgr/internal/platform/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

var statusByCode = map[string]int{
	apperr.EInvalid:         http.StatusBadRequest,
	apperr.EUnauthenticated: http.StatusUnauthorized,
	apperr.EForbidden:       http.StatusForbidden,
	apperr.ENotFound:        http.StatusNotFound,
	apperr.EConflict:        http.StatusConflict,
	apperr.EAmbiguous:       http.StatusConflict,
	apperr.EInternal:        http.StatusInternalServerError,
}

// Client-facing messages. Only validation failures echo their detail, since
// those describe the caller's own input.
var messageByCode = map[string]string{
	apperr.EUnauthenticated: "authentication required",
	apperr.EForbidden:       "you do not have access to this record",
	apperr.ENotFound:        "record not found",
	apperr.EConflict:        "the record was changed or is still in use; reload and try again",
	apperr.EAmbiguous:       "more than one record matched the request",
	apperr.EInternal:        "internal server error",
}

// StatusFor returns the HTTP status for an apperr code.
func StatusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Describe turns any error into the sanitized body sent to clients.
func Describe(err error) (int, ErrorDetail) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ErrorDetail{Code: codeForStatus(he.Code), Message: fmt.Sprint(he.Message)}
	}

	code := apperr.ErrorCode(err)
	msg := messageByCode[code]
	if code == apperr.EInvalid {
		msg = invalidMessage(err)
	}
	return StatusFor(code), ErrorDetail{Code: code, Message: msg}
}

// invalidMessage returns the message of the innermost validation error.
func invalidMessage(err error) string {
	var e *apperr.Error
	msg := "invalid request"
	for errors.As(err, &e) {
		if e.Code == apperr.EInvalid && e.Msg != "" {
			msg = e.Msg
		}
		if e.Err == nil {
			break
		}
		err = e.Err
	}
	return msg
}

func codeForStatus(status int) string {
	for code, s := range statusByCode {
		if s == status && code != apperr.EAmbiguous {
			return code
		}
	}
	if status >= 500 {
		return apperr.EInternal
	}
	return apperr.EInvalid
}

// ErrorHandler is the echo HTTPErrorHandler. Internal errors are logged in
// full and reported to the client with a generic message.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, detail := Describe(err)
		detail.RequestID, _ = c.Get("request_id").(string)

		if status >= 500 {
			logger.Error().Err(err).
				Str("request_id", detail.RequestID).
				Str("op", apperr.ErrorOp(err)).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, ErrorBody{Error: detail})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
