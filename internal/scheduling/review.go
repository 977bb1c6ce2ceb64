package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type ReviewInput struct {
	AppointmentID uuid.UUID
	Score         int
	Comment       *string
	Anonymous     bool
}

// SubmitReview attaches the one allowed review to a completed appointment.
// Guard order: appointment exists, rater is its client, status REALIZADO,
// not yet reviewed.
func (s *Service) SubmitReview(ctx context.Context, raterID uuid.UUID, in ReviewInput) (*Review, error) {
	if in.Score < 1 || in.Score > 5 {
		return nil, &ValidationError{Fields: map[string]string{
			"score": "must be an integer between 1 and 5",
		}}
	}

	appt, err := s.repo.GetAppointmentByID(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}
	if appt.ClientID != raterID {
		return nil, ErrNotOwner
	}
	if appt.Status != StatusCompleted {
		return nil, ErrNotCompleted
	}

	_, err = s.repo.GetReviewByAppointment(ctx, in.AppointmentID)
	if err == nil {
		return nil, ErrAlreadyReviewed
	}
	if !errors.Is(err, ErrReviewNotFound) {
		return nil, fmt.Errorf("check existing review: %w", err)
	}

	rv := &Review{
		ID:            uuid.New(),
		AppointmentID: in.AppointmentID,
		RaterID:       raterID,
		RatedID:       appt.ProviderID,
		Score:         in.Score,
		Comment:       in.Comment,
		Anonymous:     in.Anonymous,
	}

	created, err := s.repo.CreateReview(ctx, rv)
	if err != nil {
		if errors.Is(err, ErrDuplicateReview) {
			return nil, ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	return created, nil
}

// ProviderReviews lists a provider's reviews over completed appointments,
// with the aggregate average.
func (s *Service) ProviderReviews(ctx context.Context, providerID uuid.UUID) ([]ReviewWithRater, ReviewStats, error) {
	reviews, stats, err := s.repo.ListProviderReviews(ctx, providerID)
	if err != nil {
		return nil, ReviewStats{}, fmt.Errorf("list provider reviews: %w", err)
	}
	return reviews, stats, nil
}
