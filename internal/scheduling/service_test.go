package scheduling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agendavel/agendavel-api/internal/config"
	"github.com/agendavel/agendavel-api/internal/directory"
	"github.com/agendavel/agendavel-api/internal/notify"
	redisclient "github.com/agendavel/agendavel-api/internal/redis"
)

// MockRepository is a mock implementation of Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ListActiveForProviderDay(ctx context.Context, providerID uuid.UUID, dayStart, dayEnd time.Time) ([]Appointment, error) {
	args := m.Called(ctx, providerID, dayStart, dayEnd)
	if a := args.Get(0); a != nil {
		return a.([]Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) HasOverlap(ctx context.Context, providerID uuid.UUID, start, end time.Time) (bool, error) {
	args := m.Called(ctx, providerID, start, end)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) CreateRequested(ctx context.Context, appt *Appointment, notif notify.Notification) (*Appointment, error) {
	args := m.Called(ctx, appt, notif)
	if a := args.Get(0); a != nil {
		return a.(*Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) Transition(ctx context.Context, id uuid.UUID, from []Status, to Status, patch TransitionPatch, notifs []notify.Notification) (*Appointment, error) {
	args := m.Called(ctx, id, from, to, patch, notifs)
	if a := args.Get(0); a != nil {
		return a.(*Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) UpdateProviderNotes(ctx context.Context, id uuid.UUID, notes *string) error {
	args := m.Called(ctx, id, notes)
	return args.Error(0)
}

func (m *MockRepository) ListVisible(ctx context.Context, q ListQuery) ([]AppointmentView, error) {
	args := m.Called(ctx, q)
	if a := args.Get(0); a != nil {
		return a.([]AppointmentView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetReviewByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Review, error) {
	args := m.Called(ctx, appointmentID)
	if a := args.Get(0); a != nil {
		return a.(*Review), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) CreateReview(ctx context.Context, rv *Review) (*Review, error) {
	args := m.Called(ctx, rv)
	if a := args.Get(0); a != nil {
		return a.(*Review), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ListProviderReviews(ctx context.Context, providerID uuid.UUID) ([]ReviewWithRater, ReviewStats, error) {
	args := m.Called(ctx, providerID)
	if a := args.Get(0); a != nil {
		return a.([]ReviewWithRater), args.Get(1).(ReviewStats), args.Error(2)
	}
	return nil, args.Get(1).(ReviewStats), args.Error(2)
}

func (m *MockRepository) FindStaleConfirmed(ctx context.Context, before time.Time) ([]Appointment, error) {
	args := m.Called(ctx, before)
	if a := args.Get(0); a != nil {
		return a.([]Appointment), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockDirectory is a mock implementation of Directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) UserByID(ctx context.Context, id uuid.UUID) (*directory.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*directory.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) IsActiveProvider(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) ProviderConfig(ctx context.Context, id uuid.UUID) (*directory.ProviderConfig, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*directory.ProviderConfig), args.Error(1)
	}
	return nil, args.Error(1)
}

// passLocker runs the critical section inline.
type passLocker struct{}

func (passLocker) WithProviderLock(ctx context.Context, _ uuid.UUID, fn func(context.Context) error) error {
	return fn(ctx)
}

// busyLocker simulates a contended provider lock.
type busyLocker struct{}

func (busyLocker) WithProviderLock(context.Context, uuid.UUID, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService(repo Repository, dir Directory, locker redisclient.Locker) *Service {
	svc := NewService(repo, dir, locker, nil, config.Config{NoShowGrace: time.Hour}, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func validCreateInput(providerID uuid.UUID) CreateInput {
	return CreateInput{
		ProviderID:      providerID,
		StartsAt:        testNow.AddDate(0, 0, 1),
		DurationMinutes: 60,
		Modality:        ModalityOnline,
	}
}

func TestCreate_Success(t *testing.T) {
	mockRepo := new(MockRepository)
	mockDir := new(MockDirectory)
	svc := newTestService(mockRepo, mockDir, passLocker{})

	clientID := uuid.New()
	providerID := uuid.New()
	in := validCreateInput(providerID)

	created := &Appointment{
		ID:              uuid.New(),
		ClientID:        clientID,
		ProviderID:      providerID,
		StartsAt:        in.StartsAt,
		DurationMinutes: 60,
		Modality:        ModalityOnline,
		Status:          StatusRequested,
	}

	mockDir.On("IsActiveProvider", mock.Anything, providerID).Return(true, nil)
	mockDir.On("UserByID", mock.Anything, clientID).Return(&directory.User{ID: clientID, Name: "Maria"}, nil)
	mockRepo.On("HasOverlap", mock.Anything, providerID, in.StartsAt, in.StartsAt.Add(time.Hour)).Return(false, nil)
	mockRepo.On("CreateRequested", mock.Anything, mock.Anything, mock.MatchedBy(func(n notify.Notification) bool {
		return n.RecipientID == providerID && n.Kind == notify.KindAppointmentRequested
	})).Return(created, nil)

	got, err := svc.Create(context.Background(), clientID, in)

	require.NoError(t, err)
	assert.Equal(t, StatusRequested, got.Status)
	mockRepo.AssertExpectations(t)
	mockDir.AssertExpectations(t)
}

func TestCreate_InvalidInput(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockDirectory), passLocker{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		ProviderID: uuid.New(),
		Modality:   "HÍBRIDO",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "duration_minutes")
	assert.Contains(t, verr.Fields, "modality")
	assert.Contains(t, verr.Fields, "starts_at")
}

func TestCreate_PastStart(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockDirectory), passLocker{})

	in := validCreateInput(uuid.New())
	in.StartsAt = testNow.Add(-time.Hour)

	_, err := svc.Create(context.Background(), uuid.New(), in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "starts_at")
}

func TestCreate_InactiveProvider(t *testing.T) {
	mockDir := new(MockDirectory)
	svc := newTestService(new(MockRepository), mockDir, passLocker{})

	in := validCreateInput(uuid.New())
	mockDir.On("IsActiveProvider", mock.Anything, in.ProviderID).Return(false, nil)

	_, err := svc.Create(context.Background(), uuid.New(), in)

	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCreate_SlotTaken(t *testing.T) {
	mockRepo := new(MockRepository)
	mockDir := new(MockDirectory)
	svc := newTestService(mockRepo, mockDir, passLocker{})

	clientID := uuid.New()
	in := validCreateInput(uuid.New())

	mockDir.On("IsActiveProvider", mock.Anything, in.ProviderID).Return(true, nil)
	mockDir.On("UserByID", mock.Anything, clientID).Return(&directory.User{ID: clientID, Name: "Maria"}, nil)
	mockRepo.On("HasOverlap", mock.Anything, in.ProviderID, mock.Anything, mock.Anything).Return(true, nil)

	_, err := svc.Create(context.Background(), clientID, in)

	assert.ErrorIs(t, err, ErrSlotTaken)
	mockRepo.AssertNotCalled(t, "CreateRequested", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_ProviderLockBusy(t *testing.T) {
	mockDir := new(MockDirectory)
	svc := newTestService(new(MockRepository), mockDir, busyLocker{})

	clientID := uuid.New()
	in := validCreateInput(uuid.New())

	mockDir.On("IsActiveProvider", mock.Anything, in.ProviderID).Return(true, nil)
	mockDir.On("UserByID", mock.Anything, clientID).Return(&directory.User{ID: clientID, Name: "Maria"}, nil)

	_, err := svc.Create(context.Background(), clientID, in)

	assert.ErrorIs(t, err, ErrProviderBusy)
}

func TestConfirm_Success(t *testing.T) {
	mockRepo := new(MockRepository)
	mockDir := new(MockDirectory)
	svc := newTestService(mockRepo, mockDir, passLocker{})

	providerID := uuid.New()
	appt := &Appointment{
		ID:         uuid.New(),
		ClientID:   uuid.New(),
		ProviderID: providerID,
		StartsAt:   testNow.AddDate(0, 0, 1),
		Status:     StatusRequested,
	}
	link := "https://meet.example/abc"

	confirmed := *appt
	confirmed.Status = StatusConfirmed
	confirmed.MeetingLink = &link

	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)
	mockDir.On("UserByID", mock.Anything, providerID).Return(&directory.User{ID: providerID, Name: "Dra. Ana"}, nil)
	mockRepo.On("Transition", mock.Anything, appt.ID, []Status{StatusRequested}, StatusConfirmed,
		TransitionPatch{MeetingLink: &link}, mock.MatchedBy(func(notifs []notify.Notification) bool {
			return len(notifs) == 1 && notifs[0].RecipientID == appt.ClientID
		})).Return(&confirmed, nil)

	got, err := svc.Confirm(context.Background(), providerID, appt.ID, &link, nil)

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	mockRepo.AssertExpectations(t)
}

func TestConfirm_NotOwner(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	appt := &Appointment{ID: uuid.New(), ProviderID: uuid.New(), Status: StatusRequested}
	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)

	_, err := svc.Confirm(context.Background(), uuid.New(), appt.ID, nil, nil)

	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestConfirm_AlreadyConfirmed(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	providerID := uuid.New()
	appt := &Appointment{ID: uuid.New(), ProviderID: providerID, Status: StatusConfirmed}
	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)

	_, err := svc.Confirm(context.Background(), providerID, appt.ID, nil, nil)

	var conflict *StatusConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, StatusConfirmed, conflict.Current)
}

func TestConfirm_RaceReportsWinningStatus(t *testing.T) {
	mockRepo := new(MockRepository)
	mockDir := new(MockDirectory)
	svc := newTestService(mockRepo, mockDir, passLocker{})

	providerID := uuid.New()
	appt := &Appointment{ID: uuid.New(), ProviderID: providerID, Status: StatusRequested}
	cancelled := *appt
	cancelled.Status = StatusCancelledClient

	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil).Once()
	mockDir.On("UserByID", mock.Anything, providerID).Return(&directory.User{ID: providerID, Name: "Dra. Ana"}, nil)
	mockRepo.On("Transition", mock.Anything, appt.ID, mock.Anything, StatusConfirmed, mock.Anything, mock.Anything).
		Return(nil, ErrAppointmentNotFound)
	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(&cancelled, nil).Once()

	_, err := svc.Confirm(context.Background(), providerID, appt.ID, nil, nil)

	var conflict *StatusConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, StatusCancelledClient, conflict.Current)
}

func TestRefuse_ReasonRequired(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockDirectory), passLocker{})

	_, err := svc.Refuse(context.Background(), uuid.New(), uuid.New(), "")

	assert.ErrorIs(t, err, ErrReasonRequired)
}

func TestCancelByClient_NotifiesProvider(t *testing.T) {
	mockRepo := new(MockRepository)
	mockDir := new(MockDirectory)
	svc := newTestService(mockRepo, mockDir, passLocker{})

	clientID := uuid.New()
	appt := &Appointment{
		ID:         uuid.New(),
		ClientID:   clientID,
		ProviderID: uuid.New(),
		StartsAt:   testNow.AddDate(0, 0, 1),
		Status:     StatusConfirmed,
	}
	cancelled := *appt
	cancelled.Status = StatusCancelledClient

	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)
	mockDir.On("UserByID", mock.Anything, clientID).Return(&directory.User{ID: clientID, Name: "Maria"}, nil)
	mockRepo.On("Transition", mock.Anything, appt.ID, []Status{StatusRequested, StatusConfirmed}, StatusCancelledClient,
		TransitionPatch{}, mock.MatchedBy(func(notifs []notify.Notification) bool {
			return len(notifs) == 1 &&
				notifs[0].RecipientID == appt.ProviderID &&
				notifs[0].Kind == notify.KindAppointmentCancelled
		})).Return(&cancelled, nil)

	got, err := svc.CancelByClient(context.Background(), clientID, appt.ID)

	require.NoError(t, err)
	assert.Equal(t, StatusCancelledClient, got.Status)
	mockRepo.AssertExpectations(t)
}

func TestCancelByClient_TerminalStatus(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	clientID := uuid.New()
	appt := &Appointment{ID: uuid.New(), ClientID: clientID, Status: StatusCompleted}
	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)

	_, err := svc.CancelByClient(context.Background(), clientID, appt.ID)

	var conflict *StatusConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, StatusCompleted, conflict.Current)
}

func TestCancelByAdmin_NotifiesBothParties(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	appt := &Appointment{
		ID:         uuid.New(),
		ClientID:   uuid.New(),
		ProviderID: uuid.New(),
		StartsAt:   testNow.AddDate(0, 0, 1),
		Status:     StatusConfirmed,
	}
	cancelled := *appt
	cancelled.Status = StatusCancelledAdmin

	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)
	mockRepo.On("Transition", mock.Anything, appt.ID, []Status{StatusConfirmed}, StatusCancelledAdmin,
		TransitionPatch{}, mock.MatchedBy(func(notifs []notify.Notification) bool {
			if len(notifs) != 2 {
				return false
			}
			recipients := map[uuid.UUID]bool{notifs[0].RecipientID: true, notifs[1].RecipientID: true}
			return recipients[appt.ClientID] && recipients[appt.ProviderID]
		})).Return(&cancelled, nil)

	got, err := svc.CancelByAdmin(context.Background(), appt.ID, "Conduta inadequada")

	require.NoError(t, err)
	assert.Equal(t, StatusCancelledAdmin, got.Status)
	mockRepo.AssertExpectations(t)
}

func TestCancelByAdmin_ReasonRequired(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockDirectory), passLocker{})

	_, err := svc.CancelByAdmin(context.Background(), uuid.New(), "")

	assert.ErrorIs(t, err, ErrReasonRequired)
}

func TestCancelByAdmin_AlreadyTerminal(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	appt := &Appointment{ID: uuid.New(), Status: StatusCancelledClient}
	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)

	_, err := svc.CancelByAdmin(context.Background(), appt.ID, "qualquer motivo")

	var conflict *StatusConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, StatusCancelledClient, conflict.Current)
}

func TestMarkCompleted_BeforeStart(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	providerID := uuid.New()
	appt := &Appointment{
		ID:         uuid.New(),
		ProviderID: providerID,
		StartsAt:   testNow.Add(time.Hour),
		Status:     StatusConfirmed,
	}
	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)

	_, err := svc.MarkCompleted(context.Background(), providerID, appt.ID)

	assert.ErrorIs(t, err, ErrNotYetStarted)
}

func TestMarkCompleted_NotifiesClient(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	providerID := uuid.New()
	appt := &Appointment{
		ID:         uuid.New(),
		ClientID:   uuid.New(),
		ProviderID: providerID,
		StartsAt:   testNow.Add(-2 * time.Hour),
		Status:     StatusConfirmed,
	}
	completed := *appt
	completed.Status = StatusCompleted

	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)
	mockRepo.On("Transition", mock.Anything, appt.ID, []Status{StatusConfirmed}, StatusCompleted,
		TransitionPatch{}, mock.MatchedBy(func(notifs []notify.Notification) bool {
			return len(notifs) == 1 &&
				notifs[0].RecipientID == appt.ClientID &&
				notifs[0].Kind == notify.KindAppointmentCompleted
		})).Return(&completed, nil)

	got, err := svc.MarkCompleted(context.Background(), providerID, appt.ID)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	mockRepo.AssertExpectations(t)
}

func TestListAgenda_PartitionsByTimeAndTerminalStatus(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	clientID := uuid.New()
	futureConfirmed := AppointmentView{Appointment: Appointment{
		ID: uuid.New(), StartsAt: testNow.AddDate(0, 0, 2), Status: StatusConfirmed,
	}}
	pastCompleted := AppointmentView{Appointment: Appointment{
		ID: uuid.New(), StartsAt: testNow.AddDate(0, 0, -2), Status: StatusCompleted,
	}}
	// terminal status lands in past even with a future start
	futureAdminCancel := AppointmentView{Appointment: Appointment{
		ID: uuid.New(), StartsAt: testNow.AddDate(0, 0, 3), Status: StatusCancelledAdmin,
	}}

	mockRepo.On("ListVisible", mock.Anything, ListQuery{ClientID: &clientID}).
		Return([]AppointmentView{futureConfirmed, pastCompleted, futureAdminCancel}, nil)

	page, err := svc.ListAgenda(context.Background(), clientID, directory.RoleClient, nil)

	require.NoError(t, err)
	assert.Len(t, page.Upcoming, 1)
	assert.Len(t, page.Past, 2)
	assert.Equal(t, futureConfirmed.ID, page.Upcoming[0].ID)
}

func TestListAgenda_AdminSeesEverything(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	mockRepo.On("ListVisible", mock.Anything, ListQuery{}).Return([]AppointmentView{}, nil)

	_, err := svc.ListAgenda(context.Background(), uuid.New(), directory.RoleAdmin, nil)

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestListAgenda_UnknownRole(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockDirectory), passLocker{})

	_, err := svc.ListAgenda(context.Background(), uuid.New(), directory.Role("VISITANTE"), nil)

	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestAvailableSlots_PastDateIsEmpty(t *testing.T) {
	mockDir := new(MockDirectory)
	svc := newTestService(new(MockRepository), mockDir, passLocker{})

	slots, err := svc.AvailableSlots(context.Background(), uuid.New(), testNow.AddDate(0, 0, -1))

	require.NoError(t, err)
	assert.Empty(t, slots)
	mockDir.AssertNotCalled(t, "ProviderConfig", mock.Anything, mock.Anything)
}

func TestAvailableSlots_UnknownProvider(t *testing.T) {
	mockDir := new(MockDirectory)
	svc := newTestService(new(MockRepository), mockDir, passLocker{})

	providerID := uuid.New()
	mockDir.On("ProviderConfig", mock.Anything, providerID).Return(nil, directory.ErrProviderNotFound)

	_, err := svc.AvailableSlots(context.Background(), providerID, testNow.AddDate(0, 0, 1))

	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestAvailableSlots_ExcludesActiveAppointments(t *testing.T) {
	mockRepo := new(MockRepository)
	mockDir := new(MockDirectory)
	svc := newTestService(mockRepo, mockDir, passLocker{})

	providerID := uuid.New()
	date := testNow.AddDate(0, 0, 1)
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	mockDir.On("ProviderConfig", mock.Anything, providerID).
		Return(&directory.ProviderConfig{ProviderID: providerID}, nil)
	mockRepo.On("ListActiveForProviderDay", mock.Anything, providerID, dayStart, dayStart.AddDate(0, 0, 1)).
		Return([]Appointment{{
			ProviderID:      providerID,
			StartsAt:        dayStart.Add(9 * time.Hour),
			DurationMinutes: 60,
			Status:          StatusConfirmed,
		}}, nil)

	slots, err := svc.AvailableSlots(context.Background(), providerID, date)

	require.NoError(t, err)
	assert.Len(t, slots, 7)
	assert.NotContains(t, slots, dayStart.Add(9*time.Hour))
}

func TestSweepNoShows_FlagsStaleConfirmed(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	stale := []Appointment{
		{ID: uuid.New(), ClientID: uuid.New(), ProviderID: uuid.New(),
			StartsAt: testNow.Add(-3 * time.Hour), DurationMinutes: 60, Status: StatusConfirmed},
		{ID: uuid.New(), ClientID: uuid.New(), ProviderID: uuid.New(),
			StartsAt: testNow.Add(-4 * time.Hour), DurationMinutes: 60, Status: StatusConfirmed},
	}

	mockRepo.On("FindStaleConfirmed", mock.Anything, testNow.Add(-time.Hour)).Return(stale, nil)
	for i := range stale {
		flagged := stale[i]
		flagged.Status = StatusNoShowClient
		mockRepo.On("Transition", mock.Anything, stale[i].ID, []Status{StatusConfirmed}, StatusNoShowClient,
			TransitionPatch{}, mock.MatchedBy(func(notifs []notify.Notification) bool {
				return len(notifs) == 2
			})).Return(&flagged, nil)
	}

	swept, err := svc.SweepNoShows(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, swept)
	mockRepo.AssertExpectations(t)
}

// mutexLocker serializes critical sections the way the Redis locker does,
// without the network.
type mutexLocker struct {
	mu sync.Mutex
}

func (l *mutexLocker) WithProviderLock(ctx context.Context, _ uuid.UUID, fn func(context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

// burstRepo records bookings in memory; the check and the insert are only
// safe because the locker serializes them.
type burstRepo struct {
	booked  []interval
	creates int
}

func (r *burstRepo) GetAppointmentByID(context.Context, uuid.UUID) (*Appointment, error) {
	return nil, ErrAppointmentNotFound
}

func (r *burstRepo) ListActiveForProviderDay(context.Context, uuid.UUID, time.Time, time.Time) ([]Appointment, error) {
	return nil, nil
}

func (r *burstRepo) HasOverlap(_ context.Context, _ uuid.UUID, start, end time.Time) (bool, error) {
	for _, iv := range r.booked {
		if iv.overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *burstRepo) CreateRequested(_ context.Context, appt *Appointment, _ notify.Notification) (*Appointment, error) {
	r.booked = append(r.booked, interval{start: appt.StartsAt, end: appt.EndsAt()})
	r.creates++
	return appt, nil
}

func (r *burstRepo) Transition(context.Context, uuid.UUID, []Status, Status, TransitionPatch, []notify.Notification) (*Appointment, error) {
	return nil, ErrAppointmentNotFound
}

func (r *burstRepo) UpdateProviderNotes(context.Context, uuid.UUID, *string) error {
	return ErrAppointmentNotFound
}

func (r *burstRepo) ListVisible(context.Context, ListQuery) ([]AppointmentView, error) {
	return nil, nil
}

func (r *burstRepo) GetReviewByAppointment(context.Context, uuid.UUID) (*Review, error) {
	return nil, ErrReviewNotFound
}

func (r *burstRepo) CreateReview(context.Context, *Review) (*Review, error) {
	return nil, ErrDuplicateReview
}

func (r *burstRepo) ListProviderReviews(context.Context, uuid.UUID) ([]ReviewWithRater, ReviewStats, error) {
	return nil, ReviewStats{}, nil
}

func (r *burstRepo) FindStaleConfirmed(context.Context, time.Time) ([]Appointment, error) {
	return nil, nil
}

func TestCreate_ConcurrentBurstBooksExactlyOne(t *testing.T) {
	repo := &burstRepo{}
	mockDir := new(MockDirectory)
	svc := newTestService(repo, mockDir, &mutexLocker{})

	providerID := uuid.New()
	mockDir.On("IsActiveProvider", mock.Anything, providerID).Return(true, nil)
	mockDir.On("UserByID", mock.Anything, mock.Anything).Return(&directory.User{Name: "Maria"}, nil)

	in := validCreateInput(providerID)

	const callers = 8
	var wg sync.WaitGroup
	var booked, refused atomic.Int32

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), uuid.New(), in)
			switch {
			case err == nil:
				booked.Add(1)
			case errors.Is(err, ErrSlotTaken):
				refused.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), booked.Load())
	assert.Equal(t, int32(callers-1), refused.Load())
	assert.Equal(t, 1, repo.creates)
}

func TestAvailableSlots_PastDateAcrossZones(t *testing.T) {
	mockDir := new(MockDirectory)
	svc := newTestService(new(MockRepository), mockDir, passLocker{})

	// 20:00 on March 10 at UTC-12 is already 08:00 on March 11 in UTC, so
	// March 10 UTC lies entirely in the past.
	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 20, 0, 0, 0, time.FixedZone("UTC-12", -12*3600))
	}

	slots, err := svc.AvailableSlots(context.Background(), uuid.New(), mustTime(t, "2025-03-10T00:00:00Z"))

	require.NoError(t, err)
	assert.Empty(t, slots)
	mockDir.AssertNotCalled(t, "ProviderConfig", mock.Anything, mock.Anything)
}

func TestSweepNoShows_SkipsRowsTakenByOthers(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	stale := []Appointment{{ID: uuid.New(), ClientID: uuid.New(), ProviderID: uuid.New(),
		StartsAt: testNow.Add(-3 * time.Hour), DurationMinutes: 60, Status: StatusConfirmed}}

	mockRepo.On("FindStaleConfirmed", mock.Anything, mock.Anything).Return(stale, nil)
	mockRepo.On("Transition", mock.Anything, stale[0].ID, mock.Anything, StatusNoShowClient,
		mock.Anything, mock.Anything).Return(nil, ErrAppointmentNotFound)

	swept, err := svc.SweepNoShows(context.Background())

	require.NoError(t, err)
	assert.Zero(t, swept)
}
