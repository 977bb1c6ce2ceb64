package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSubmitReview_Success(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	clientID := uuid.New()
	providerID := uuid.New()
	appt := &Appointment{
		ID:         uuid.New(),
		ClientID:   clientID,
		ProviderID: providerID,
		Status:     StatusCompleted,
	}
	comment := "Excelente atendimento"

	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)
	mockRepo.On("GetReviewByAppointment", mock.Anything, appt.ID).Return(nil, ErrReviewNotFound)
	mockRepo.On("CreateReview", mock.Anything, mock.MatchedBy(func(rv *Review) bool {
		return rv.AppointmentID == appt.ID &&
			rv.RaterID == clientID &&
			rv.RatedID == providerID &&
			rv.Score == 5
	})).Return(&Review{ID: uuid.New(), AppointmentID: appt.ID, Score: 5, Comment: &comment}, nil)

	got, err := svc.SubmitReview(context.Background(), clientID, ReviewInput{
		AppointmentID: appt.ID,
		Score:         5,
		Comment:       &comment,
	})

	require.NoError(t, err)
	assert.Equal(t, 5, got.Score)
	mockRepo.AssertExpectations(t)
}

func TestSubmitReview_ScoreOutOfRange(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockDirectory), passLocker{})

	for _, score := range []int{0, 6, -1} {
		_, err := svc.SubmitReview(context.Background(), uuid.New(), ReviewInput{
			AppointmentID: uuid.New(),
			Score:         score,
		})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "score")
	}
}

func TestSubmitReview_OnlyTheClientMayRate(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	appt := &Appointment{ID: uuid.New(), ClientID: uuid.New(), Status: StatusCompleted}
	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)

	_, err := svc.SubmitReview(context.Background(), uuid.New(), ReviewInput{
		AppointmentID: appt.ID,
		Score:         4,
	})

	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestSubmitReview_RequiresCompletedAppointment(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	clientID := uuid.New()

	for _, status := range []Status{StatusRequested, StatusConfirmed, StatusCancelledClient} {
		appt := &Appointment{ID: uuid.New(), ClientID: clientID, Status: status}
		mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)

		_, err := svc.SubmitReview(context.Background(), clientID, ReviewInput{
			AppointmentID: appt.ID,
			Score:         4,
		})

		assert.ErrorIs(t, err, ErrNotCompleted, "status %s", status)
	}
}

func TestSubmitReview_AlreadyReviewed(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	clientID := uuid.New()
	appt := &Appointment{ID: uuid.New(), ClientID: clientID, Status: StatusCompleted}

	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)
	mockRepo.On("GetReviewByAppointment", mock.Anything, appt.ID).
		Return(&Review{ID: uuid.New(), AppointmentID: appt.ID}, nil)

	_, err := svc.SubmitReview(context.Background(), clientID, ReviewInput{
		AppointmentID: appt.ID,
		Score:         3,
	})

	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	mockRepo.AssertNotCalled(t, "CreateReview", mock.Anything, mock.Anything)
}

func TestSubmitReview_DuplicateInsertLosesRace(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	clientID := uuid.New()
	appt := &Appointment{ID: uuid.New(), ClientID: clientID, Status: StatusCompleted}

	mockRepo.On("GetAppointmentByID", mock.Anything, appt.ID).Return(appt, nil)
	mockRepo.On("GetReviewByAppointment", mock.Anything, appt.ID).Return(nil, ErrReviewNotFound)
	mockRepo.On("CreateReview", mock.Anything, mock.Anything).Return(nil, ErrDuplicateReview)

	_, err := svc.SubmitReview(context.Background(), clientID, ReviewInput{
		AppointmentID: appt.ID,
		Score:         3,
	})

	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestProviderReviews_PassesStatsThrough(t *testing.T) {
	mockRepo := new(MockRepository)
	svc := newTestService(mockRepo, new(MockDirectory), passLocker{})

	providerID := uuid.New()
	name := "Maria"
	reviews := []ReviewWithRater{
		{Review: Review{ID: uuid.New(), Score: 5}, RaterName: &name},
		{Review: Review{ID: uuid.New(), Score: 4, Anonymous: true}},
	}

	mockRepo.On("ListProviderReviews", mock.Anything, providerID).
		Return(reviews, ReviewStats{Average: 4.5, Total: 2}, nil)

	got, stats, err := svc.ProviderReviews(context.Background(), providerID)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 4.5, stats.Average)
	assert.Equal(t, 2, stats.Total)
}
