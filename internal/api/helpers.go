package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agendavel/agendavel-api/internal/directory"
	"github.com/agendavel/agendavel-api/internal/notify"
	redisclient "github.com/agendavel/agendavel-api/internal/redis"
	"github.com/agendavel/agendavel-api/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func encodeForCache(body any) ([]byte, error) {
	return json.Marshal(body)
}

// decodeOptionalReason parses a reason payload, tolerating an empty body.
// Returns nil after writing the error response when the body is malformed.
func decodeOptionalReason(w http.ResponseWriter, r *http.Request) *ReasonRequest {
	req := &ReasonRequest{}
	if r.Body == nil || r.ContentLength == 0 {
		return req
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return nil
	}
	return req
}

// writeDomainError translates domain errors into the HTTP taxonomy:
// 400 invalid input, 403 not permitted, 404 absent, 409 state conflict,
// 500 everything else.
func writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *scheduling.ValidationError
	var statusErr *scheduling.StatusConflictError
	var dirStatusErr *directory.StatusConflictError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_input",
			Details: validationErr.Error(),
			Fields:  validationErr.Fields,
		})
	case errors.Is(err, scheduling.ErrReasonRequired),
		errors.Is(err, directory.ErrReasonRequired):
		writeError(w, http.StatusBadRequest, "reason_required", err.Error())
	case errors.Is(err, scheduling.ErrNotYetStarted):
		writeError(w, http.StatusBadRequest, "not_yet_started", err.Error())
	case errors.Is(err, scheduling.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrProviderUnavailable),
		errors.Is(err, directory.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, directory.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, notify.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, scheduling.ErrProviderBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "provider_being_booked", "provider is currently being booked, please retry shortly")
	case errors.As(err, &statusErr):
		writeError(w, http.StatusConflict, "invalid_status_transition", statusErr.Error())
	case errors.As(err, &dirStatusErr):
		writeError(w, http.StatusConflict, "invalid_account_status", dirStatusErr.Error())
	case errors.Is(err, scheduling.ErrNotCompleted):
		writeError(w, http.StatusConflict, "appointment_not_completed", err.Error())
	case errors.Is(err, scheduling.ErrAlreadyReviewed):
		writeError(w, http.StatusConflict, "already_reviewed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
