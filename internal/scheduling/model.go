package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Status values are persisted as-is; they keep the platform's original wire
// spelling.
type Status string

const (
	StatusRequested         Status = "SOLICITADO"
	StatusConfirmed         Status = "CONFIRMADO"
	StatusCompleted         Status = "REALIZADO"
	StatusCancelledClient   Status = "CANCELADO_CLIENTE"
	StatusCancelledProvider Status = "CANCELADO_ATENDENTE"
	StatusCancelledAdmin    Status = "CANCELADO_ADMIN"
	StatusNoShowClient      Status = "NAO_COMPARECEU_CLIENTE"
	StatusNoShowProvider    Status = "NAO_COMPARECEU_ATENDENTE"
)

// IsTerminal reports whether no further transition is defined from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted,
		StatusCancelledClient,
		StatusCancelledProvider,
		StatusCancelledAdmin,
		StatusNoShowClient,
		StatusNoShowProvider:
		return true
	}
	return false
}

type Modality string

const (
	ModalityOnline   Modality = "ONLINE"
	ModalityInPerson Modality = "PRESENCIAL"
)

func (m Modality) Valid() bool {
	return m == ModalityOnline || m == ModalityInPerson
}

type Appointment struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	ProviderID      uuid.UUID
	StartsAt        time.Time
	DurationMinutes int
	Subject         *string
	Modality        Modality
	Status          Status
	MeetingLink     *string
	ProviderNotes   *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EndsAt is the half-open end of the occupied interval.
func (a Appointment) EndsAt() time.Time {
	return a.StartsAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// AppointmentView is the listing row, hydrated with both party names the way
// the agenda screens consume it.
type AppointmentView struct {
	Appointment
	ClientName   string
	ProviderName string
	ProviderArea string
	Reviewed     bool
}

type Review struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	RaterID       uuid.UUID
	RatedID       uuid.UUID
	Score         int
	Comment       *string
	Anonymous     bool
	CreatedAt     time.Time
}

// ReviewWithRater hides the rater's name when the review is anonymous.
type ReviewWithRater struct {
	Review
	RaterName *string
}

// ReviewStats aggregates a provider's reviews over completed appointments.
type ReviewStats struct {
	Average float64
	Total   int
}
