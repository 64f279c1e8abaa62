package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Timeline event kinds.
const (
	TimelineConversion      = "conversion"
	TimelineServiceAdded    = "service_added"
	TimelineServiceCanceled = "service_canceled"
)

// TimelineEvent is an append-only entry on the client's history.
type TimelineEvent struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	Kind        string
	Description string
	ActorName   string
	CreatedAt   time.Time
}

type AppendTimelineParams struct {
	ClientID    uuid.UUID
	Kind        string
	Description string
	ActorName   string
}

func (r *Repository) AppendTimeline(ctx context.Context, params AppendTimelineParams) (TimelineEvent, error) {
	var ev TimelineEvent
	err := r.pool.QueryRow(ctx, `
		INSERT INTO client_timeline_events (client_id, kind, description, actor_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, client_id, kind, description, actor_name, created_at`,
		params.ClientID, params.Kind, params.Description, params.ActorName,
	).Scan(&ev.ID, &ev.ClientID, &ev.Kind, &ev.Description, &ev.ActorName, &ev.CreatedAt)
	return ev, err
}

func (r *Repository) ListTimeline(ctx context.Context, clientID uuid.UUID) ([]TimelineEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, kind, description, actor_name, created_at
		FROM client_timeline_events
		WHERE client_id = $1
		ORDER BY created_at DESC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]TimelineEvent, 0)
	for rows.Next() {
		var ev TimelineEvent
		if err := rows.Scan(&ev.ID, &ev.ClientID, &ev.Kind, &ev.Description, &ev.ActorName, &ev.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, ev)
	}
	return items, rows.Err()
}
