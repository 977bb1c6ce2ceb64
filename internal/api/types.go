package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agendavel/agendavel-api/internal/auth"
	"github.com/agendavel/agendavel-api/internal/directory"
	"github.com/agendavel/agendavel-api/internal/notify"
	"github.com/agendavel/agendavel-api/internal/scheduling"
)

// SchedulingService is the slice of the scheduling core the handlers use.
type SchedulingService interface {
	Create(ctx context.Context, clientID uuid.UUID, in scheduling.CreateInput) (*scheduling.Appointment, error)
	Confirm(ctx context.Context, providerID, appointmentID uuid.UUID, meetingLink, notes *string) (*scheduling.Appointment, error)
	Refuse(ctx context.Context, providerID, appointmentID uuid.UUID, reason string) (*scheduling.Appointment, error)
	CancelByClient(ctx context.Context, clientID, appointmentID uuid.UUID) (*scheduling.Appointment, error)
	CancelByAdmin(ctx context.Context, appointmentID uuid.UUID, reason string) (*scheduling.Appointment, error)
	MarkCompleted(ctx context.Context, providerID, appointmentID uuid.UUID) (*scheduling.Appointment, error)
	UpdateNotes(ctx context.Context, providerID, appointmentID uuid.UUID, notes *string) error
	ListAgenda(ctx context.Context, userID uuid.UUID, role directory.Role, statusFilter *scheduling.Status) (*scheduling.AgendaPage, error)
	AvailableSlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]time.Time, error)
	SubmitReview(ctx context.Context, raterID uuid.UUID, in scheduling.ReviewInput) (*scheduling.Review, error)
	ProviderReviews(ctx context.Context, providerID uuid.UUID) ([]scheduling.ReviewWithRater, scheduling.ReviewStats, error)
}

// DirectoryService covers the provider catalogue and admin moderation.
type DirectoryService interface {
	ListProviders(ctx context.Context, filter directory.ListProvidersFilter) ([]directory.ProviderSummary, error)
	ApproveProvider(ctx context.Context, providerID, adminID uuid.UUID, reason string) error
	BlockProvider(ctx context.Context, providerID, adminID uuid.UUID, reason string) error
}

// NotificationStore is the read side of the notification sink.
type NotificationStore interface {
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]notify.Notification, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
}

// TokenValidator verifies bearer tokens for the auth middleware.
type TokenValidator interface {
	Validate(tokenString string) (*auth.Claims, error)
}

// SlotResponseCache serves/stores rendered availability payloads.
type SlotResponseCache interface {
	Get(ctx context.Context, providerID uuid.UUID, date string) ([]byte, bool, error)
	Set(ctx context.Context, providerID uuid.UUID, date string, payload []byte) error
}

type CreateAppointmentRequest struct {
	ProviderID      string  `json:"provider_id"`
	StartsAt        string  `json:"starts_at"`
	DurationMinutes int     `json:"duration_minutes"`
	Subject         *string `json:"subject,omitempty"`
	Modality        string  `json:"modality"`
}

type ConfirmAppointmentRequest struct {
	MeetingLink   *string `json:"meeting_link,omitempty"`
	ProviderNotes *string `json:"provider_notes,omitempty"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type NotesRequest struct {
	ProviderNotes *string `json:"provider_notes"`
}

type CreateReviewRequest struct {
	AppointmentID string  `json:"appointment_id"`
	Score         int     `json:"score"`
	Comment       *string `json:"comment,omitempty"`
	Anonymous     bool    `json:"anonymous,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	ClientID        uuid.UUID `json:"client_id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Subject         *string   `json:"subject,omitempty"`
	Modality        string    `json:"modality"`
	Status          string    `json:"status"`
	MeetingLink     *string   `json:"meeting_link,omitempty"`
	ProviderNotes   *string   `json:"provider_notes,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		ClientID:        a.ClientID,
		ProviderID:      a.ProviderID,
		StartsAt:        a.StartsAt,
		DurationMinutes: a.DurationMinutes,
		Subject:         a.Subject,
		Modality:        string(a.Modality),
		Status:          string(a.Status),
		MeetingLink:     a.MeetingLink,
		ProviderNotes:   a.ProviderNotes,
	}
}

type AppointmentViewResponse struct {
	AppointmentResponse
	ClientName   string `json:"client_name"`
	ProviderName string `json:"provider_name"`
	ProviderArea string `json:"provider_area"`
	Reviewed     bool   `json:"reviewed"`
}

func toAppointmentViewResponses(views []scheduling.AppointmentView) []AppointmentViewResponse {
	out := make([]AppointmentViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, AppointmentViewResponse{
			AppointmentResponse: toAppointmentResponse(&v.Appointment),
			ClientName:          v.ClientName,
			ProviderName:        v.ProviderName,
			ProviderArea:        v.ProviderArea,
			Reviewed:            v.Reviewed,
		})
	}
	return out
}

type AgendaResponse struct {
	Upcoming []AppointmentViewResponse `json:"upcoming"`
	Past     []AppointmentViewResponse `json:"past"`
}

type AvailabilityResponse struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Slots      []string  `json:"slots"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
