package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dennisdiepolder/monti/console/internal/errs"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeActionError maps a console precondition failure onto an HTTP status
func writeActionError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), errs.Code(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNoRingingCall), errors.Is(err, errs.ErrNoActiveCall):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidNumber),
		errors.Is(err, errs.ErrReasonRequired),
		errors.Is(err, errs.ErrInvalidDestination),
		errors.Is(err, errs.ErrUnknownDisposition),
		errors.Is(err, errs.ErrInvalidCall):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrCallInProgress),
		errors.Is(err, errs.ErrDispositionRequired),
		errors.Is(err, errs.ErrAlreadyOnCall),
		errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrCallRinging),
		errors.Is(err, errs.ErrNotAvailable),
		errors.Is(err, errs.ErrDispositionDisabled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body: "+err.Error())
		return false
	}
	return true
}
