package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendavel/agendavel-api/internal/notify"
)

// exclusionViolation is the SQLSTATE raised by the appointments overlap
// constraint; it backs the Redis lock up at the transaction level.
const exclusionViolation = "23P01"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, client_id, provider_id, starts_at, duration_minutes,
	subject, modality, status, meeting_link, provider_notes,
	created_at, updated_at
`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.ProviderID,
		&a.StartsAt,
		&a.DurationMinutes,
		&a.Subject,
		&a.Modality,
		&a.Status,
		&a.MeetingLink,
		&a.ProviderNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanReview(row pgx.Row) (*Review, error) {
	var rv Review

	err := row.Scan(
		&rv.ID,
		&rv.AppointmentID,
		&rv.RaterID,
		&rv.RatedID,
		&rv.Score,
		&rv.Comment,
		&rv.Anonymous,
		&rv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}

	return &rv, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveForProviderDay(ctx context.Context, providerID uuid.UUID, dayStart, dayEnd time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND starts_at >= $2 AND starts_at < $3
		  AND status IN ('SOLICITADO', 'CONFIRMADO')
		ORDER BY starts_at
	`, providerID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) HasOverlap(ctx context.Context, providerID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE provider_id = $1
			  AND status IN ('SOLICITADO', 'CONFIRMADO')
			  AND starts_at < $3
			  AND starts_at + (duration_minutes * interval '1 minute') > $2
		)
	`, providerID, start, end).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) CreateRequested(ctx context.Context, appt *Appointment, notif notify.Notification) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (
			id, client_id, provider_id, starts_at, duration_minutes,
			subject, modality, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'SOLICITADO', now(), now())
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.ClientID, appt.ProviderID, appt.StartsAt, appt.DurationMinutes,
		appt.Subject, appt.Modality)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := insertNotifications(ctx, tx, []notify.Notification{notif}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("commit create tx: %w", err)
	}

	return created, nil
}

func (r *PgRepository) Transition(ctx context.Context, id uuid.UUID, from []Status, to Status, patch TransitionPatch, notifs []notify.Notification) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    meeting_link = COALESCE($3, meeting_link),
		    provider_notes = COALESCE($4, provider_notes),
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($5)
		RETURNING `+appointmentColumns+`
	`, id, to, patch.MeetingLink, patch.ProviderNotes, statusStrings(from))

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if err := insertNotifications(ctx, tx, notifs); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition tx: %w", err)
	}

	return updated, nil
}

func insertNotifications(ctx context.Context, tx pgx.Tx, notifs []notify.Notification) error {
	for _, n := range notifs {
		_, err := tx.Exec(ctx, `
			INSERT INTO notifications (id, recipient_id, title, message, kind, reference_link, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, uuid.New(), n.RecipientID, n.Title, n.Message, n.Kind, n.ReferenceLink)
		if err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}

func (r *PgRepository) UpdateProviderNotes(ctx context.Context, id uuid.UUID, notes *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET provider_notes = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, notes)
	if err != nil {
		return fmt.Errorf("update provider notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListVisible(ctx context.Context, q ListQuery) ([]AppointmentView, error) {
	query := `
		SELECT
			ap.id, ap.client_id, ap.provider_id, ap.starts_at, ap.duration_minutes,
			ap.subject, ap.modality, ap.status, ap.meeting_link, ap.provider_notes,
			ap.created_at, ap.updated_at,
			cli.name AS client_name,
			prov.name AS provider_name,
			pd.area AS provider_area,
			EXISTS (SELECT 1 FROM reviews rv WHERE rv.appointment_id = ap.id) AS reviewed
		FROM appointments ap
		JOIN users cli ON ap.client_id = cli.id
		JOIN users prov ON ap.provider_id = prov.id
		JOIN provider_details pd ON pd.user_id = prov.id
		WHERE 1=1
	`
	args := []any{}

	if q.ClientID != nil {
		args = append(args, *q.ClientID)
		query += fmt.Sprintf(" AND ap.client_id = $%d", len(args))
	}
	if q.ProviderID != nil {
		args = append(args, *q.ProviderID)
		query += fmt.Sprintf(" AND ap.provider_id = $%d", len(args))
	}
	if q.Status != nil {
		args = append(args, *q.Status)
		query += fmt.Sprintf(" AND ap.status = $%d", len(args))
	}

	query += " ORDER BY ap.starts_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentView
	for rows.Next() {
		var v AppointmentView
		err := rows.Scan(
			&v.ID, &v.ClientID, &v.ProviderID, &v.StartsAt, &v.DurationMinutes,
			&v.Subject, &v.Modality, &v.Status, &v.MeetingLink, &v.ProviderNotes,
			&v.CreatedAt, &v.UpdatedAt,
			&v.ClientName, &v.ProviderName, &v.ProviderArea, &v.Reviewed,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetReviewByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Review, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, appointment_id, rater_id, rated_id, score, comment, anonymous, created_at
		FROM reviews
		WHERE appointment_id = $1
	`, appointmentID)
	return scanReview(row)
}

func (r *PgRepository) CreateReview(ctx context.Context, rv *Review) (*Review, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reviews (id, appointment_id, rater_id, rated_id, score, comment, anonymous, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, appointment_id, rater_id, rated_id, score, comment, anonymous, created_at
	`, rv.ID, rv.AppointmentID, rv.RaterID, rv.RatedID, rv.Score, rv.Comment, rv.Anonymous)

	created, err := scanReview(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// unique(appointment_id): somebody got there first
			return nil, ErrDuplicateReview
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) ListProviderReviews(ctx context.Context, providerID uuid.UUID) ([]ReviewWithRater, ReviewStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			rv.id, rv.appointment_id, rv.rater_id, rv.rated_id, rv.score,
			rv.comment, rv.anonymous, rv.created_at,
			CASE WHEN rv.anonymous = FALSE THEN cli.name ELSE NULL END AS rater_name
		FROM reviews rv
		JOIN appointments ap ON rv.appointment_id = ap.id
		LEFT JOIN users cli ON rv.rater_id = cli.id
		WHERE ap.provider_id = $1 AND ap.status = 'REALIZADO'
		ORDER BY rv.created_at DESC
	`, providerID)
	if err != nil {
		return nil, ReviewStats{}, err
	}
	defer rows.Close()

	var reviews []ReviewWithRater
	for rows.Next() {
		var rv ReviewWithRater
		err := rows.Scan(
			&rv.ID, &rv.AppointmentID, &rv.RaterID, &rv.RatedID, &rv.Score,
			&rv.Comment, &rv.Anonymous, &rv.CreatedAt,
			&rv.RaterName,
		)
		if err != nil {
			return nil, ReviewStats{}, err
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, ReviewStats{}, err
	}

	var stats ReviewStats
	var avg *float64
	err = r.pool.QueryRow(ctx, `
		SELECT ROUND(AVG(rv.score), 2), COUNT(*)
		FROM reviews rv
		JOIN appointments ap ON rv.appointment_id = ap.id
		WHERE ap.provider_id = $1 AND ap.status = 'REALIZADO'
	`, providerID).Scan(&avg, &stats.Total)
	if err != nil {
		return nil, ReviewStats{}, err
	}
	if avg != nil {
		stats.Average = *avg
	}

	return reviews, stats, nil
}

func (r *PgRepository) FindStaleConfirmed(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'CONFIRMADO'
		  AND starts_at + (duration_minutes * interval '1 minute') < $1
	`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
