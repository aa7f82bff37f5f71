package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"resource-site-backend/internal/auth"
	"resource-site-backend/internal/service"
	"resource-site-backend/internal/upload"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// errBadRequest marks malformed input caught by the HTTP layer itself.
var errBadRequest = errors.New("bad request")

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	var verr *upload.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.As(err, &verr),
		errors.Is(err, errBadRequest),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidCaptcha):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes payload with the given status.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	render.Status(r, status)
	render.JSON(w, r, payload)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, ErrorBody{Error: ErrorDetail{
		Code:      status,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// handleError maps err to a response. Server errors are logged and their
// details are not sent to the client.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		respondError(w, r, status, http.StatusText(status))
		return
	}
	respondError(w, r, status, clientMessage(err))
}

func clientMessage(err error) string {
	if errors.Is(err, service.ErrInvalidCredentials) {
		return "invalid username or password"
	}
	if errors.Is(err, service.ErrInvalidCaptcha) {
		return service.ErrInvalidCaptcha.Error()
	}
	return err.Error()
}

// validationError turns validator output into a readable 400 error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%v: %w", err, errBadRequest)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid payload: %s: %w", strings.Join(fields, ", "), errBadRequest)
}
