package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agendavel/agendavel-api/internal/config"
	"github.com/agendavel/agendavel-api/internal/directory"
	"github.com/agendavel/agendavel-api/internal/notify"
	redisclient "github.com/agendavel/agendavel-api/internal/redis"
)

// Directory is the slice of the user directory the scheduling core consumes.
type Directory interface {
	UserByID(ctx context.Context, id uuid.UUID) (*directory.User, error)
	IsActiveProvider(ctx context.Context, id uuid.UUID) (bool, error)
	ProviderConfig(ctx context.Context, id uuid.UUID) (*directory.ProviderConfig, error)
}

// SlotCache is notified whenever a mutation may change a provider's day.
type SlotCache interface {
	Invalidate(ctx context.Context, providerID uuid.UUID, date string) error
}

const cacheDateLayout = "2006-01-02"

type Service struct {
	repo   Repository
	dir    Directory
	locker redisclient.Locker
	cache  SlotCache // may be nil
	cfg    config.Config
	log    zerolog.Logger

	now func() time.Time
}

func NewService(repo Repository, dir Directory, locker redisclient.Locker, cache SlotCache, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		dir:    dir,
		locker: locker,
		cache:  cache,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

type CreateInput struct {
	ProviderID      uuid.UUID
	StartsAt        time.Time
	DurationMinutes int
	Subject         *string
	Modality        Modality
}

// Create books a new appointment request for a client. The availability
// check and the insert run under the provider's lock so two concurrent
// requests for overlapping ranges cannot both succeed; the exclusion
// constraint backs this up inside the transaction itself.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, in CreateInput) (*Appointment, error) {
	fields := map[string]string{}
	if in.DurationMinutes <= 0 {
		fields["duration_minutes"] = "must be a positive number of minutes"
	}
	if !in.Modality.Valid() {
		fields["modality"] = "must be ONLINE or PRESENCIAL"
	}
	if in.StartsAt.IsZero() {
		fields["starts_at"] = "is required"
	} else if in.StartsAt.Before(s.now()) {
		fields["starts_at"] = "must not be in the past"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	active, err := s.dir.IsActiveProvider(ctx, in.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("check provider: %w", err)
	}
	if !active {
		return nil, ErrProviderUnavailable
	}

	client, err := s.dir.UserByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}

	appt := &Appointment{
		ID:              uuid.New(),
		ClientID:        clientID,
		ProviderID:      in.ProviderID,
		StartsAt:        in.StartsAt,
		DurationMinutes: in.DurationMinutes,
		Subject:         in.Subject,
		Modality:        in.Modality,
		Status:          StatusRequested,
	}

	var created *Appointment

	err = s.locker.WithProviderLock(ctx, in.ProviderID, func(lockCtx context.Context) error {
		busy, err := s.repo.HasOverlap(lockCtx, in.ProviderID, appt.StartsAt, appt.EndsAt())
		if err != nil {
			return fmt.Errorf("check overlap: %w", err)
		}
		if busy {
			return ErrSlotTaken
		}

		created, err = s.repo.CreateRequested(lockCtx, appt, requestedNotification(appt, client.Name))
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrProviderBusy
		}
		return nil, err
	}

	s.invalidateDay(ctx, created.ProviderID, created.StartsAt)

	return created, nil
}

// Confirm moves a requested appointment to CONFIRMADO, optionally attaching
// the online meeting link and provider notes.
func (s *Service) Confirm(ctx context.Context, providerID, appointmentID uuid.UUID, meetingLink, notes *string) (*Appointment, error) {
	appt, err := s.ownedByProvider(ctx, providerID, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusRequested {
		return nil, &StatusConflictError{Current: appt.Status}
	}

	provider, err := s.dir.UserByID(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("load provider: %w", err)
	}

	patch := TransitionPatch{MeetingLink: meetingLink, ProviderNotes: notes}
	updated, err := s.transition(ctx, appt, []Status{StatusRequested}, StatusConfirmed, patch,
		singleNotification(confirmedNotification(appt, provider.Name)))
	if err != nil {
		return nil, err
	}

	s.invalidateDay(ctx, updated.ProviderID, updated.StartsAt)
	return updated, nil
}

// Refuse rejects a requested appointment; the reason is mandatory and goes
// both into the provider notes and the client's notification.
func (s *Service) Refuse(ctx context.Context, providerID, appointmentID uuid.UUID, reason string) (*Appointment, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	appt, err := s.ownedByProvider(ctx, providerID, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusRequested {
		return nil, &StatusConflictError{Current: appt.Status}
	}

	provider, err := s.dir.UserByID(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("load provider: %w", err)
	}

	notes := "Recusado: " + reason
	patch := TransitionPatch{ProviderNotes: &notes}
	updated, err := s.transition(ctx, appt, []Status{StatusRequested}, StatusCancelledProvider, patch,
		singleNotification(refusedNotification(appt, provider.Name, reason)))
	if err != nil {
		return nil, err
	}

	s.invalidateDay(ctx, updated.ProviderID, updated.StartsAt)
	return updated, nil
}

// CancelByClient cancels the client's own appointment while it is still
// requested or confirmed.
func (s *Service) CancelByClient(ctx context.Context, clientID, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.ClientID != clientID {
		return nil, ErrNotOwner
	}
	if appt.Status != StatusRequested && appt.Status != StatusConfirmed {
		return nil, &StatusConflictError{Current: appt.Status}
	}

	client, err := s.dir.UserByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}

	updated, err := s.transition(ctx, appt, []Status{StatusRequested, StatusConfirmed}, StatusCancelledClient,
		TransitionPatch{}, singleNotification(clientCancelledNotification(appt, client.Name)))
	if err != nil {
		return nil, err
	}

	s.invalidateDay(ctx, updated.ProviderID, updated.StartsAt)
	return updated, nil
}

// CancelByAdmin force-cancels any non-terminal appointment; both parties are
// notified with the reason.
func (s *Service) CancelByAdmin(ctx context.Context, appointmentID uuid.UUID, reason string) (*Appointment, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	switch appt.Status {
	case StatusCompleted, StatusCancelledClient, StatusCancelledProvider, StatusCancelledAdmin:
		return nil, &StatusConflictError{Current: appt.Status}
	}

	updated, err := s.transition(ctx, appt, []Status{appt.Status}, StatusCancelledAdmin,
		TransitionPatch{}, adminCancelledNotifications(appt, reason))
	if err != nil {
		return nil, err
	}

	s.invalidateDay(ctx, updated.ProviderID, updated.StartsAt)
	return updated, nil
}

// MarkCompleted records that a confirmed appointment actually happened. Only
// allowed once the start time has passed. The client is told the review is
// now open.
func (s *Service) MarkCompleted(ctx context.Context, providerID, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.ownedByProvider(ctx, providerID, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusConfirmed {
		return nil, &StatusConflictError{Current: appt.Status}
	}
	if appt.StartsAt.After(s.now()) {
		return nil, ErrNotYetStarted
	}

	return s.transition(ctx, appt, []Status{StatusConfirmed}, StatusCompleted, TransitionPatch{},
		singleNotification(completedNotification(appt)))
}

// UpdateNotes lets the provider keep free-form notes on their appointment.
func (s *Service) UpdateNotes(ctx context.Context, providerID, appointmentID uuid.UUID, notes *string) error {
	if _, err := s.ownedByProvider(ctx, providerID, appointmentID); err != nil {
		return err
	}
	if err := s.repo.UpdateProviderNotes(ctx, appointmentID, notes); err != nil {
		return fmt.Errorf("update notes: %w", err)
	}
	return nil
}

// AgendaPage is the listing result, split relative to now.
type AgendaPage struct {
	Upcoming []AppointmentView
	Past     []AppointmentView
}

// ListAgenda returns the caller's appointments (all of them for admins),
// newest start first, partitioned into upcoming and past. An appointment
// counts as past once its start time passed or its status is terminal.
func (s *Service) ListAgenda(ctx context.Context, userID uuid.UUID, role directory.Role, statusFilter *Status) (*AgendaPage, error) {
	q := ListQuery{Status: statusFilter}
	switch role {
	case directory.RoleClient:
		q.ClientID = &userID
	case directory.RoleProvider:
		q.ProviderID = &userID
	case directory.RoleAdmin:
		// admins see everything
	default:
		return nil, ErrNotOwner
	}

	views, err := s.repo.ListVisible(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	now := s.now()
	page := &AgendaPage{}
	for _, v := range views {
		if v.StartsAt.Before(now) || v.Status.IsTerminal() {
			page.Past = append(page.Past, v)
		} else {
			page.Upcoming = append(page.Upcoming, v)
		}
	}

	return page, nil
}

// AvailableSlots computes the bookable start times for a provider on a
// calendar date. Past dates yield an empty result without error.
func (s *Service) AvailableSlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]time.Time, error) {
	now := s.now().In(date.Location())

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, date.Location())
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	if dayStart.Before(today) {
		return nil, nil
	}

	cfg, err := s.dir.ProviderConfig(ctx, providerID)
	if err != nil {
		if errors.Is(err, directory.ErrProviderNotFound) {
			return nil, ErrProviderUnavailable
		}
		return nil, fmt.Errorf("load provider config: %w", err)
	}

	slotMinutes := cfg.DefaultDurationMin
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}

	appts, err := s.repo.ListActiveForProviderDay(ctx, providerID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load day appointments: %w", err)
	}

	occupied := make([]interval, 0, len(appts))
	for _, a := range appts {
		occupied = append(occupied, interval{start: a.StartsAt, end: a.EndsAt()})
	}

	return computeSlots(dayStart, now, slotMinutes, windowsForDay(cfg, dayStart.Weekday()), occupied), nil
}

// SweepNoShows flags confirmed appointments whose start passed more than the
// configured grace period ago and were never reconciled. Called by the
// worker.
func (s *Service) SweepNoShows(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.NoShowGrace)

	stale, err := s.repo.FindStaleConfirmed(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale confirmed appointments: %w", err)
	}

	swept := 0
	for _, appt := range stale {
		a := appt
		_, err := s.repo.Transition(ctx, a.ID, []Status{StatusConfirmed}, StatusNoShowClient,
			TransitionPatch{}, noShowNotifications(&a))
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Error().Err(err).Stringer("appointment_id", a.ID).Msg("failed to flag no-show")
			}
			continue
		}
		swept++
		s.invalidateDay(ctx, a.ProviderID, a.StartsAt)
	}

	return swept, nil
}

func (s *Service) ownedByProvider(ctx context.Context, providerID, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.ProviderID != providerID {
		return nil, ErrNotOwner
	}
	return appt, nil
}

// transition applies a guarded status change; if the row moved on between
// our read and the update, the caller gets a conflict with the status that
// won.
func (s *Service) transition(ctx context.Context, appt *Appointment, from []Status, to Status, patch TransitionPatch, notifs []notify.Notification) (*Appointment, error) {
	updated, err := s.repo.Transition(ctx, appt.ID, from, to, patch, notifs)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			if cur, gerr := s.repo.GetAppointmentByID(ctx, appt.ID); gerr == nil {
				return nil, &StatusConflictError{Current: cur.Status}
			}
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("transition appointment: %w", err)
	}
	return updated, nil
}

func (s *Service) invalidateDay(ctx context.Context, providerID uuid.UUID, startsAt time.Time) {
	if s.cache == nil {
		return
	}
	date := startsAt.Format(cacheDateLayout)
	if err := s.cache.Invalidate(ctx, providerID, date); err != nil {
		s.log.Warn().Err(err).Stringer("provider_id", providerID).Str("date", date).Msg("availability cache invalidation failed")
	}
}
