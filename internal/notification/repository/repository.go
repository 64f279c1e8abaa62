// Package repository persists in-app notifications.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("notification not found")

// Notification kinds. Every producer references these so the stored kind
// and the frontend's rendering of it cannot drift apart.
const (
	KindNoShow      = "lead_no_show"
	KindFollowUpDue = "followup_due"
	KindConverted   = "lead_converted"
	KindLeadWon     = "lead_won"
	KindLeadLost    = "lead_lost"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Notification struct {
	ID          uuid.UUID      `json:"id"`
	RecipientID uuid.UUID      `json:"recipientId"`
	Kind        string         `json:"kind"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	DeepLink    string         `json:"deepLink,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	IsRead      bool           `json:"isRead"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type CreateParams struct {
	RecipientID uuid.UUID
	Kind        string
	Title       string
	Message     string
	DeepLink    string
	Payload     map[string]any
}

const notificationCols = `
	id, recipient_id, kind, title, message, deep_link, payload, is_read, created_at`

func scanNotification(s interface{ Scan(dest ...any) error }) (Notification, error) {
	var n Notification
	if err := s.Scan(
		&n.ID,
		&n.RecipientID,
		&n.Kind,
		&n.Title,
		&n.Message,
		&n.DeepLink,
		&n.Payload,
		&n.IsRead,
		&n.CreatedAt,
	); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Notification, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (recipient_id, kind, title, message, deep_link, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING`+notificationCols,
		params.RecipientID, params.Kind, params.Title, params.Message, params.DeepLink, params.Payload,
	)
	return scanNotification(row)
}

// ListByRecipient returns a page of the recipient's notifications, newest
// first, with the total count for pagination.
func (r *Repository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`, recipientID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+notificationCols+`
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *Repository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`, recipientID,
	).Scan(&n)
	return n, err
}

// MarkRead flips one notification to read. Scoped to the recipient so users
// cannot touch each other's notifications.
func (r *Repository) MarkRead(ctx context.Context, recipientID, id uuid.UUID) (Notification, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE notifications SET is_read = true
		WHERE id = $1 AND recipient_id = $2
		RETURNING`+notificationCols,
		id, recipientID,
	)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, err
	}
	return n, nil
}

func (r *Repository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE recipient_id = $1 AND NOT is_read`, recipientID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
