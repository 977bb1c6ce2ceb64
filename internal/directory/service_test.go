package directory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agendavel/agendavel-api/internal/directory"
	"github.com/agendavel/agendavel-api/internal/notify"
)

// MockRepository is a mock implementation of the directory Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*directory.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*directory.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetProviderConfig(ctx context.Context, providerID uuid.UUID) (*directory.ProviderConfig, error) {
	args := m.Called(ctx, providerID)
	if c := args.Get(0); c != nil {
		return c.(*directory.ProviderConfig), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ListProviders(ctx context.Context, filter directory.ListProvidersFilter) ([]directory.ProviderSummary, error) {
	args := m.Called(ctx, filter)
	if p := args.Get(0); p != nil {
		return p.([]directory.ProviderSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) UpdateProviderStatus(ctx context.Context, providerID uuid.UUID, from, to directory.AccountStatus, adminID uuid.UUID, reason string, notif notify.Notification) error {
	args := m.Called(ctx, providerID, from, to, adminID, reason, notif)
	return args.Error(0)
}

func TestIsActiveProvider(t *testing.T) {
	tests := []struct {
		name   string
		user   *directory.User
		err    error
		expect bool
	}{
		{
			name:   "active provider",
			user:   &directory.User{Role: directory.RoleProvider, Status: directory.StatusActive},
			expect: true,
		},
		{
			name:   "pending provider",
			user:   &directory.User{Role: directory.RoleProvider, Status: directory.StatusPendingApproval},
			expect: false,
		},
		{
			name:   "active client is not a provider",
			user:   &directory.User{Role: directory.RoleClient, Status: directory.StatusActive},
			expect: false,
		},
		{
			name:   "unknown user",
			err:    directory.ErrUserNotFound,
			expect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			svc := directory.NewService(mockRepo)

			id := uuid.New()
			mockRepo.On("GetUserByID", mock.Anything, id).Return(tt.user, tt.err)

			active, err := svc.IsActiveProvider(context.Background(), id)

			require.NoError(t, err)
			assert.Equal(t, tt.expect, active)
		})
	}
}

func TestListProviders_DefaultsToActive(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := directory.NewService(mockRepo)

	mockRepo.On("ListProviders", mock.Anything, directory.ListProvidersFilter{Status: directory.StatusActive}).
		Return([]directory.ProviderSummary{}, nil)

	_, err := svc.ListProviders(context.Background(), directory.ListProvidersFilter{})

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestApproveProvider_Success(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := directory.NewService(mockRepo)

	providerID := uuid.New()
	adminID := uuid.New()

	mockRepo.On("GetUserByID", mock.Anything, providerID).
		Return(&directory.User{ID: providerID, Role: directory.RoleProvider, Status: directory.StatusPendingApproval}, nil)
	mockRepo.On("UpdateProviderStatus", mock.Anything, providerID,
		directory.StatusPendingApproval, directory.StatusActive, adminID,
		"Aprovado pelo administrador.",
		mock.MatchedBy(func(n notify.Notification) bool {
			return n.RecipientID == providerID && n.Kind == notify.KindProviderApproved
		})).Return(nil)

	err := svc.ApproveProvider(context.Background(), providerID, adminID, "")

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestApproveProvider_NotPending(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := directory.NewService(mockRepo)

	providerID := uuid.New()
	mockRepo.On("GetUserByID", mock.Anything, providerID).
		Return(&directory.User{ID: providerID, Role: directory.RoleProvider, Status: directory.StatusActive}, nil)

	err := svc.ApproveProvider(context.Background(), providerID, uuid.New(), "")

	var conflict *directory.StatusConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, directory.StatusActive, conflict.Current)
}

func TestApproveProvider_ClientIsNotAProvider(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := directory.NewService(mockRepo)

	id := uuid.New()
	mockRepo.On("GetUserByID", mock.Anything, id).
		Return(&directory.User{ID: id, Role: directory.RoleClient, Status: directory.StatusActive}, nil)

	err := svc.ApproveProvider(context.Background(), id, uuid.New(), "")

	assert.ErrorIs(t, err, directory.ErrProviderNotFound)
}

func TestBlockProvider_ReasonRequired(t *testing.T) {
	svc := directory.NewService(new(MockRepository))

	err := svc.BlockProvider(context.Background(), uuid.New(), uuid.New(), "")

	assert.ErrorIs(t, err, directory.ErrReasonRequired)
}

func TestBlockProvider_PendingAccountGetsRejectionCopy(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := directory.NewService(mockRepo)

	providerID := uuid.New()
	adminID := uuid.New()

	mockRepo.On("GetUserByID", mock.Anything, providerID).
		Return(&directory.User{ID: providerID, Role: directory.RoleProvider, Status: directory.StatusPendingApproval}, nil)
	mockRepo.On("UpdateProviderStatus", mock.Anything, providerID,
		directory.StatusPendingApproval, directory.StatusBlocked, adminID, "Documentação inválida",
		mock.MatchedBy(func(n notify.Notification) bool {
			return n.Kind == notify.KindProviderRejected &&
				n.Message == "Seu cadastro de atendente foi reprovado. Motivo: Documentação inválida"
		})).Return(nil)

	err := svc.BlockProvider(context.Background(), providerID, adminID, "Documentação inválida")

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestBlockProvider_AlreadyBlocked(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := directory.NewService(mockRepo)

	providerID := uuid.New()
	mockRepo.On("GetUserByID", mock.Anything, providerID).
		Return(&directory.User{ID: providerID, Role: directory.RoleProvider, Status: directory.StatusBlocked}, nil)

	err := svc.BlockProvider(context.Background(), providerID, uuid.New(), "motivo")

	var conflict *directory.StatusConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, directory.StatusBlocked, conflict.Current)
}
