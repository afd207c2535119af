package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/refill-ledger/ledger/internal/ledger"
)

// Sentinel errors surfaced by the client.
var (
	ErrSessionExpired = errors.New("api: session expired")
	ErrNoRefreshToken = errors.New("api: no refresh token")
)

// Error is the normalised shape of every failed backend call.
type Error struct {
	Message    string            `json:"message"`
	StatusCode int               `json:"statusCode,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
	}
	return "api: " + e.Message
}

func (e *Error) Unwrap() error { return e.err }

// HandleAPIError normalises any error returned by the client. A nil err
// yields nil.
func HandleAPIError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrNoRefreshToken):
		return &Error{Message: "Your session has expired. Please log in again.", StatusCode: http.StatusUnauthorized, err: err}
	case errors.Is(err, ErrTooManyPages):
		return &Error{Message: "Too many records for one request. Please narrow the date range.", err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Message: "The server took too long to respond.", err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Message: "The request was cancelled.", err: err}
	default:
		return &Error{Message: "Network error. Please check your connection.", err: err}
	}
}

// IsValidation reports a 400 or 422 response, or one carrying field errors.
func IsValidation(err error) bool {
	e := HandleAPIError(err)
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity || len(e.Errors) > 0
}

// IsUnauthorized reports a 401 response or an expired session.
func IsUnauthorized(err error) bool {
	e := HandleAPIError(err)
	return e != nil && e.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports a 404 response or ledger.ErrNotFound.
func IsNotFound(err error) bool {
	if errors.Is(err, ledger.ErrNotFound) {
		return true
	}
	e := HandleAPIError(err)
	return e != nil && e.StatusCode == http.StatusNotFound
}

// errorFromResponse decodes a failed response body. The backend sends
// {message, errors} with errors as a field map or a list of
// {field, message}; other bodies fall back to the status text. A 404
// unwraps to ledger.ErrNotFound.
func errorFromResponse(status int, body []byte) *Error {
	e := &Error{StatusCode: status}
	if status == http.StatusNotFound {
		e.err = ledger.ErrNotFound
	}
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
		Errors  json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Message = decodeMessage(payload.Message)
		if e.Message == "" {
			e.Message = payload.Error
		}
		e.Errors = decodeFieldErrors(payload.Errors)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func decodeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}

func decodeFieldErrors(raw json.RawMessage) map[string]string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var byField map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byField); err == nil {
		out := make(map[string]string, len(byField))
		for field, msg := range byField {
			if m := decodeMessage(msg); m != "" {
				out[field] = m
			}
		}
		return nilIfEmpty(out)
	}
	var list []struct {
		Field    string `json:"field"`
		Path     string `json:"path"`
		Property string `json:"property"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make(map[string]string, len(list))
		for _, item := range list {
			field := item.Field
			if field == "" {
				field = item.Path
			}
			if field == "" {
				field = item.Property
			}
			if field != "" && item.Message != "" {
				out[field] = item.Message
			}
		}
		return nilIfEmpty(out)
	}
	return nil
}

func nilIfEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}
