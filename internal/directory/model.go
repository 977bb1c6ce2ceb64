package directory

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleClient   Role = "CLIENTE"
	RoleProvider Role = "ATENDENTE"
	RoleAdmin    Role = "ADMIN"
)

type AccountStatus string

const (
	StatusActive          AccountStatus = "ATIVO"
	StatusPendingApproval AccountStatus = "PENDENTE_APROVACAO"
	StatusBlocked         AccountStatus = "BLOQUEADO"
	StatusInactive        AccountStatus = "INATIVO"
)

type User struct {
	ID         uuid.UUID
	Name       string
	SocialName *string
	Email      string
	Role       Role
	Status     AccountStatus
	CreatedAt  time.Time
}

// ProviderDetails is the professional profile attached to ATENDENTE users.
type ProviderDetails struct {
	UserID             uuid.UUID
	Area               string
	Qualification      *string
	Specialties        *string
	Registration       *string
	YearsExperience    *int
	AcceptsOnline      bool
	AcceptsInPerson    bool
	DefaultDurationMin *int
}

// WorkingWindow is one bookable window of a provider's week, expressed in
// minutes from midnight, half-open [StartMinute, EndMinute).
type WorkingWindow struct {
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

// ProviderConfig is what the availability calculator consumes.
type ProviderConfig struct {
	ProviderID         uuid.UUID
	DefaultDurationMin int // 0 when the provider never set one
	Windows            []WorkingWindow
}

// ProviderSummary is the public listing row, with review aggregates over
// completed appointments only.
type ProviderSummary struct {
	User
	Area            string
	Specialties     *string
	AcceptsOnline   bool
	AcceptsInPerson bool
	AvgRating       *float64
	TotalReviews    int
}

// ListProvidersFilter narrows the public provider listing.
type ListProvidersFilter struct {
	Status AccountStatus // empty means any
	Area   string        // empty means any
	Search string        // matches name, qualification, specialties
	Limit  int
}
