package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrFollowUpNotFound = errors.New("follow-up not found")

type FollowUp struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	ScheduledAt time.Time
	Description string
	Completed   bool
	CompletedAt *time.Time
	CreatedAt   time.Time
}

type CreateFollowUpParams struct {
	LeadID      uuid.UUID
	ScheduledAt time.Time
	Description string
}

func (r *Repository) CreateFollowUp(ctx context.Context, params CreateFollowUpParams) (FollowUp, error) {
	var f FollowUp
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_follow_ups (lead_id, scheduled_at, description)
		VALUES ($1, $2, $3)
		RETURNING id, lead_id, scheduled_at, description, completed, completed_at, created_at
	`, params.LeadID, params.ScheduledAt, params.Description).Scan(
		&f.ID, &f.LeadID, &f.ScheduledAt, &f.Description, &f.Completed, &f.CompletedAt, &f.CreatedAt,
	)
	if err != nil {
		return FollowUp{}, err
	}
	return f, nil
}

func (r *Repository) GetFollowUpByID(ctx context.Context, id uuid.UUID) (FollowUp, error) {
	var f FollowUp
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, scheduled_at, description, completed, completed_at, created_at
		FROM lead_follow_ups
		WHERE id = $1
	`, id).Scan(
		&f.ID, &f.LeadID, &f.ScheduledAt, &f.Description, &f.Completed, &f.CompletedAt, &f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FollowUp{}, ErrFollowUpNotFound
		}
		return FollowUp{}, err
	}
	return f, nil
}

// ListPendingFollowUps returns incomplete follow-ups for a lead, soonest first.
func (r *Repository) ListPendingFollowUps(ctx context.Context, leadID uuid.UUID) ([]FollowUp, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, scheduled_at, description, completed, completed_at, created_at
		FROM lead_follow_ups
		WHERE lead_id = $1 AND completed = false
		ORDER BY scheduled_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFollowUps(rows)
}

// ListDueFollowUps returns incomplete follow-ups scheduled at or before the
// cutoff, across all leads. Used by the worker to raise owner reminders.
func (r *Repository) ListDueFollowUps(ctx context.Context, cutoff time.Time, limit int) ([]FollowUp, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, scheduled_at, description, completed, completed_at, created_at
		FROM lead_follow_ups
		WHERE completed = false AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFollowUps(rows)
}

func (r *Repository) CompleteFollowUp(ctx context.Context, id uuid.UUID) (FollowUp, error) {
	var f FollowUp
	err := r.pool.QueryRow(ctx, `
		UPDATE lead_follow_ups
		SET completed = true, completed_at = now()
		WHERE id = $1 AND completed = false
		RETURNING id, lead_id, scheduled_at, description, completed, completed_at, created_at
	`, id).Scan(
		&f.ID, &f.LeadID, &f.ScheduledAt, &f.Description, &f.Completed, &f.CompletedAt, &f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FollowUp{}, ErrFollowUpNotFound
		}
		return FollowUp{}, err
	}
	return f, nil
}

func collectFollowUps(rows pgx.Rows) ([]FollowUp, error) {
	items := make([]FollowUp, 0)
	for rows.Next() {
		var f FollowUp
		if err := rows.Scan(&f.ID, &f.LeadID, &f.ScheduledAt, &f.Description, &f.Completed, &f.CompletedAt, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
