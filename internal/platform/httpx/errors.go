// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/refill-ledger/ledger/internal/api"
	"github.com/refill-ledger/ledger/internal/forms"
	"github.com/refill-ledger/ledger/internal/ledger"
)

// Sentinel errors for handlers. ErrNotFound is the ledger's own so domain
// lookups answer 404.
var (
	ErrNotFound     = ledger.ErrNotFound
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps errors to RFC7807 responses. Field errors become 422
// problems; backend errors keep their message, statusCode and errors.
func RespondError(w http.ResponseWriter, err error) {
	if fields, ok := forms.AsFieldErrors(err); ok {
		WriteProblem(w, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Detail: "Please correct the highlighted fields.",
			Errors: fields,
		})
		return
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) || errors.Is(err, api.ErrSessionExpired) || errors.Is(err, api.ErrNoRefreshToken) {
		respondAPIError(w, api.HandleAPIError(err))
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		respondAPIError(w, api.HandleAPIError(err))
	}
}

// respondAPIError passes backend 4xx statuses through; transport failures
// and backend 5xx become 502.
func respondAPIError(w http.ResponseWriter, e *api.Error) {
	status := e.StatusCode
	if status < 400 || status >= 500 {
		status = http.StatusBadGateway
	}
	WriteProblem(w, ProblemDetail{
		Title:      http.StatusText(status),
		Status:     status,
		Detail:     e.Message,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Errors:     e.Errors,
	})
}
