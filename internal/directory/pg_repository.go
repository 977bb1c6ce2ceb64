package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendavel/agendavel-api/internal/notify"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var socialName *string

	err := row.Scan(
		&u.ID,
		&u.Name,
		&socialName,
		&u.Email,
		&u.Role,
		&u.Status,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	u.SocialName = socialName
	return &u, nil
}

func (r *PgRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, social_name, email, role, status, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetProviderConfig(ctx context.Context, providerID uuid.UUID) (*ProviderConfig, error) {
	var cfg ProviderConfig
	var duration *int

	err := r.pool.QueryRow(ctx, `
		SELECT u.id, pd.default_duration_min
		FROM users u
		JOIN provider_details pd ON pd.user_id = u.id
		WHERE u.id = $1 AND u.role = 'ATENDENTE'
	`, providerID).Scan(&cfg.ProviderID, &duration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	if duration != nil {
		cfg.DefaultDurationMin = *duration
	}

	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute
		FROM working_hours
		WHERE provider_id = $1
		ORDER BY weekday, start_minute
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var w WorkingWindow
		if err := rows.Scan(&w.Weekday, &w.StartMinute, &w.EndMinute); err != nil {
			return nil, err
		}
		cfg.Windows = append(cfg.Windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (r *PgRepository) ListProviders(ctx context.Context, filter ListProvidersFilter) ([]ProviderSummary, error) {
	q := `
		SELECT
			u.id, u.name, u.social_name, u.email, u.role, u.status, u.created_at,
			pd.area, pd.specialties, pd.accepts_online, pd.accepts_in_person,
			(SELECT ROUND(AVG(rv.score), 1) FROM reviews rv
			 JOIN appointments ap ON rv.appointment_id = ap.id
			 WHERE ap.provider_id = u.id AND ap.status = 'REALIZADO') AS avg_rating,
			(SELECT COUNT(*) FROM reviews rv
			 JOIN appointments ap ON rv.appointment_id = ap.id
			 WHERE ap.provider_id = u.id AND ap.status = 'REALIZADO') AS total_reviews
		FROM users u
		JOIN provider_details pd ON pd.user_id = u.id
		WHERE u.role = 'ATENDENTE'
	`
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		q += fmt.Sprintf(" AND u.status = $%d", len(args))
	}
	if filter.Area != "" {
		args = append(args, filter.Area)
		q += fmt.Sprintf(" AND pd.area = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		q += fmt.Sprintf(" AND (u.name ILIKE $%d OR u.social_name ILIKE $%d OR pd.qualification ILIKE $%d OR pd.specialties ILIKE $%d)", n, n, n, n)
	}

	q += " ORDER BY avg_rating DESC NULLS LAST, u.name ASC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ProviderSummary
	for rows.Next() {
		var p ProviderSummary
		err := rows.Scan(
			&p.ID, &p.Name, &p.SocialName, &p.Email, &p.Role, &p.Status, &p.CreatedAt,
			&p.Area, &p.Specialties, &p.AcceptsOnline, &p.AcceptsInPerson,
			&p.AvgRating, &p.TotalReviews,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateProviderStatus(ctx context.Context, providerID uuid.UUID, from, to AccountStatus, adminID uuid.UUID, reason string, notif notify.Notification) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin provider status tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET status = $2
		WHERE id = $1 AND role = 'ATENDENTE' AND status = $3
	`, providerID, to, from)
	if err != nil {
		return fmt.Errorf("update provider status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_status_log (user_id, previous_status, new_status, admin_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, providerID, from, to, adminID, reason)
	if err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, title, message, kind, reference_link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, uuid.New(), notif.RecipientID, notif.Title, notif.Message, notif.Kind, notif.ReferenceLink)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit provider status tx: %w", err)
	}

	return nil
}
