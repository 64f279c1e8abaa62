package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ActivityDescriptionMaxLen is the canonical maximum character length for
// activity descriptions. Callers should use TruncateDescription.
const ActivityDescriptionMaxLen = 400

// TruncateDescription trims text to maxLen, appending "..." on overflow.
func TruncateDescription(text string, maxLen int) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen] + "..."
	}
	return trimmed
}

// Activity is an append-only audit record on a lead. Rows are never updated
// or deleted.
type Activity struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Kind        string
	Description string
	PerformedBy string
	CreatedAt   time.Time
}

type AppendActivityParams struct {
	LeadID      uuid.UUID
	Kind        string
	Description string
	PerformedBy string
}

func (r *Repository) AppendActivity(ctx context.Context, params AppendActivityParams) (Activity, error) {
	var a Activity
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lead_activities (lead_id, kind, description, performed_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, kind, description, performed_by, created_at
	`, params.LeadID, params.Kind, TruncateDescription(params.Description, ActivityDescriptionMaxLen), params.PerformedBy).Scan(
		&a.ID, &a.LeadID, &a.Kind, &a.Description, &a.PerformedBy, &a.CreatedAt,
	)
	if err != nil {
		return Activity{}, err
	}
	return a, nil
}

// ListActivities returns a lead's activities, newest first.
func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, kind, description, performed_by, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Kind, &a.Description, &a.PerformedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
