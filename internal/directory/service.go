package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/agendavel/agendavel-api/internal/notify"
)

var ErrReasonRequired = errors.New("reason is required")

// StatusConflictError reports that a moderation action does not apply to the
// provider's current account status.
type StatusConflictError struct {
	Current AccountStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("provider account is already %s", e.Current)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// IsActiveProvider reports whether id is an ATENDENTE account in ATIVO state.
func (s *Service) IsActiveProvider(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load provider: %w", err)
	}
	return u.Role == RoleProvider && u.Status == StatusActive, nil
}

func (s *Service) ProviderConfig(ctx context.Context, providerID uuid.UUID) (*ProviderConfig, error) {
	cfg, err := s.repo.GetProviderConfig(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider config: %w", err)
	}
	return cfg, nil
}

// ListProviders serves the public catalogue. Unless the caller asks
// otherwise, only active providers show up.
func (s *Service) ListProviders(ctx context.Context, filter ListProvidersFilter) ([]ProviderSummary, error) {
	if filter.Status == "" {
		filter.Status = StatusActive
	}
	providers, err := s.repo.ListProviders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}

// ApproveProvider moves a PENDENTE_APROVACAO provider to ATIVO.
func (s *Service) ApproveProvider(ctx context.Context, providerID, adminID uuid.UUID, reason string) error {
	if reason == "" {
		reason = "Aprovado pelo administrador."
	}

	u, err := s.repo.GetUserByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrProviderNotFound
		}
		return fmt.Errorf("load provider: %w", err)
	}
	if u.Role != RoleProvider {
		return ErrProviderNotFound
	}
	if u.Status != StatusPendingApproval {
		return &StatusConflictError{Current: u.Status}
	}

	notif := notify.Notification{
		RecipientID: providerID,
		Title:       "Cadastro Aprovado!",
		Message:     "Seu cadastro como atendente foi aprovado.",
		Kind:        notify.KindProviderApproved,
	}

	err = s.repo.UpdateProviderStatus(ctx, providerID, StatusPendingApproval, StatusActive, adminID, reason, notif)
	if err != nil {
		return fmt.Errorf("approve provider: %w", err)
	}
	return nil
}

// BlockProvider blocks (or, for pending accounts, rejects) a provider.
func (s *Service) BlockProvider(ctx context.Context, providerID, adminID uuid.UUID, reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}

	u, err := s.repo.GetUserByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrProviderNotFound
		}
		return fmt.Errorf("load provider: %w", err)
	}
	if u.Role != RoleProvider {
		return ErrProviderNotFound
	}
	if u.Status == StatusBlocked {
		return &StatusConflictError{Current: u.Status}
	}

	msg := "Sua conta de atendente foi bloqueada."
	kind := notify.KindProviderRejected
	if u.Status == StatusPendingApproval {
		msg = "Seu cadastro de atendente foi reprovado."
	}

	notif := notify.Notification{
		RecipientID: providerID,
		Title:       "Aviso sobre sua Conta",
		Message:     fmt.Sprintf("%s Motivo: %s", msg, reason),
		Kind:        kind,
	}

	err = s.repo.UpdateProviderStatus(ctx, providerID, u.Status, StatusBlocked, adminID, reason, notif)
	if err != nil {
		return fmt.Errorf("block provider: %w", err)
	}
	return nil
}
