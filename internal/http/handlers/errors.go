package handlers

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/service"
)

// Error kinds carried in the "error" field of failing responses.
const (
	KindInvalidInput    = "invalid_input"
	KindUnauthorized    = "unauthorized"
	KindForbidden       = "forbidden"
	KindNotFound        = "not_found"
	KindSchemaDisabled  = "schema_disabled"
	KindConflict        = "conflict"
	KindExternalFailure = "external_failure"
	KindInternal        = "internal"
)

// APIError is the body of every failing response: {ok:false, error, detail}.
// It implements huma.StatusError so handlers return it directly and huma
// serializes it as-is.
type APIError struct {
	Status int    `json:"-"`
	OK     bool   `json:"ok"`
	Kind   string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (e *APIError) Error() string { return e.Detail }

// GetStatus returns the HTTP status code for this error.
func (e *APIError) GetStatus() int { return e.Status }

func apiError(status int, kind, detail string) *APIError {
	return &APIError{Status: status, Kind: kind, Detail: detail}
}

// serviceError maps the service sentinel an error wraps onto a response
// error. Unrecognized errors are internal and keep their message; the API
// is single-operator so leaking detail strings is acceptable.
func serviceError(err error) *APIError {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return apiError(http.StatusNotFound, KindNotFound, err.Error())
	case errors.Is(err, service.ErrSchemaDisabled):
		return apiError(http.StatusBadRequest, KindSchemaDisabled, err.Error())
	case errors.Is(err, service.ErrConflict):
		return apiError(http.StatusBadRequest, KindConflict, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		return apiError(http.StatusBadRequest, KindInvalidInput, err.Error())
	case errors.Is(err, service.ErrExternal), errors.Is(err, llm.ErrUnavailable):
		return apiError(http.StatusBadGateway, KindExternalFailure, err.Error())
	default:
		return apiError(http.StatusInternalServerError, KindInternal, err.Error())
	}
}

// kindForStatus names the kind for statuses huma raises on its own, mainly
// request validation (422) and routing.
func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindInvalidInput
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return KindExternalFailure
	default:
		return KindInternal
	}
}

// init rewires huma's error constructor so framework-raised errors (body
// validation, unknown routes, timeouts) carry the same shape as ours.
func init() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		detail := msg
		for _, e := range errs {
			if e == nil {
				continue
			}
			if detail != "" {
				detail += "; "
			}
			detail += e.Error()
		}
		return apiError(status, kindForStatus(status), detail)
	}
}
