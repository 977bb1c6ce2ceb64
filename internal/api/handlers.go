package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agendavel/agendavel-api/internal/scheduling"
)

func createAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		var startsAt time.Time
		if req.StartsAt != "" {
			startsAt, err = time.Parse(time.RFC3339, req.StartsAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_starts_at", "starts_at must be RFC 3339")
				return
			}
		}

		appt, err := svc.Create(r.Context(), p.UserID, scheduling.CreateInput{
			ProviderID:      providerID,
			StartsAt:        startsAt,
			DurationMinutes: req.DurationMinutes,
			Subject:         req.Subject,
			Modality:        scheduling.Modality(req.Modality),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func confirmAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req ConfirmAppointmentRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		appt, err := svc.Confirm(r.Context(), p.UserID, id, req.MeetingLink, req.ProviderNotes)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func refuseAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req ReasonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Refuse(r.Context(), p.UserID, id, req.Reason)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelByClientHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		appt, err := svc.CancelByClient(r.Context(), p.UserID, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelByAdminHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req ReasonRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.CancelByAdmin(r.Context(), id, req.Reason)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func markCompletedHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		appt, err := svc.MarkCompleted(r.Context(), p.UserID, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func updateNotesHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req NotesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := svc.UpdateNotes(r.Context(), p.UserID, id, req.ProviderNotes); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

func listAgendaHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		var statusFilter *scheduling.Status
		if raw := r.URL.Query().Get("status"); raw != "" {
			st := scheduling.Status(raw)
			statusFilter = &st
		}

		page, err := svc.ListAgenda(r.Context(), p.UserID, p.Role, statusFilter)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AgendaResponse{
			Upcoming: toAppointmentViewResponses(page.Upcoming),
			Past:     toAppointmentViewResponses(page.Past),
		})
	}
}

func createReviewHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := GetPrincipal(r.Context())

		var req CreateReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		rv, err := svc.SubmitReview(r.Context(), p.UserID, scheduling.ReviewInput{
			AppointmentID: appointmentID,
			Score:         req.Score,
			Comment:       req.Comment,
			Anonymous:     req.Anonymous,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]uuid.UUID{"id": rv.ID})
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
