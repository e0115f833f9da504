package web

// errors.go turns errors into responses.
//
// The technical error is logged with the request ID. The client gets the
// user-facing message from core.MapError: JSON for API routes, plain text for
// pages.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/core"
	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/logging"
)

// errNoFile is returned when a clean request carries no file part.
var errNoFile = errors.New("no file provided")

// ErrorResponse is the JSON body of API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for a failed clean request.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, errNoFile), errors.Is(err, errUnsupportedType):
		return http.StatusBadRequest
	case core.IsFormatError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)
	if status < http.StatusInternalServerError && !core.IsUserFacing(err) {
		// Client mistakes carry their own message
		msg.Message = err.Error()
		msg.Action = ""
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}
	http.Error(w, msg.Message+" ("+msg.Code+"). "+msg.Action, status)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
