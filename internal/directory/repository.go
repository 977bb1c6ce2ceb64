package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/agendavel/agendavel-api/internal/notify"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrProviderNotFound = errors.New("provider not found")
)

// Repository contains all DB interactions needed by the directory service.
type Repository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetProviderConfig(ctx context.Context, providerID uuid.UUID) (*ProviderConfig, error)
	ListProviders(ctx context.Context, filter ListProvidersFilter) ([]ProviderSummary, error)

	// UpdateProviderStatus flips the account status and, in the same
	// transaction, appends a status-log row and the notification.
	UpdateProviderStatus(ctx context.Context, providerID uuid.UUID, from, to AccountStatus, adminID uuid.UUID, reason string, notif notify.Notification) error
}
