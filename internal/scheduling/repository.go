package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/agendavel/agendavel-api/internal/notify"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("requested time range is not available")
	ErrReviewNotFound      = errors.New("review not found")
	ErrDuplicateReview     = errors.New("appointment already has a review")
)

// TransitionPatch carries the optional columns a confirmation may set.
type TransitionPatch struct {
	MeetingLink   *string
	ProviderNotes *string
}

// ListQuery narrows the agenda listing. Nil pointers mean "any".
type ListQuery struct {
	ClientID   *uuid.UUID
	ProviderID *uuid.UUID
	Status     *Status
}

// Repository contains all DB interactions needed by the scheduling service.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Occupancy reads for the availability calculator and the creation guard.
	ListActiveForProviderDay(ctx context.Context, providerID uuid.UUID, dayStart, dayEnd time.Time) ([]Appointment, error)
	HasOverlap(ctx context.Context, providerID uuid.UUID, start, end time.Time) (bool, error)

	// CreateRequested inserts the appointment and the counterparty
	// notification in one transaction.
	CreateRequested(ctx context.Context, appt *Appointment, notif notify.Notification) (*Appointment, error)

	// Transition applies a conditional status change (status must still be
	// one of from) together with its notifications, atomically.
	Transition(ctx context.Context, id uuid.UUID, from []Status, to Status, patch TransitionPatch, notifs []notify.Notification) (*Appointment, error)

	UpdateProviderNotes(ctx context.Context, id uuid.UUID, notes *string) error

	ListVisible(ctx context.Context, q ListQuery) ([]AppointmentView, error)

	// Review gate
	GetReviewByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Review, error)
	CreateReview(ctx context.Context, rv *Review) (*Review, error)
	ListProviderReviews(ctx context.Context, providerID uuid.UUID) ([]ReviewWithRater, ReviewStats, error)

	// No-show worker
	FindStaleConfirmed(ctx context.Context, before time.Time) ([]Appointment, error)
}
