package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Commission is a standing monthly payout to a teammate, recorded as an
// amount; the percent it was derived from is kept for display.
type Commission struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	RecipientID uuid.UUID
	AmountCents int64
	Percent     float64
	Note        string
	CreatedAt   time.Time
}

func (r *Repository) ListCommissions(ctx context.Context, clientID uuid.UUID) ([]Commission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, recipient_id, amount_cents, percent, note, created_at
		FROM commissions
		WHERE client_id = $1
		ORDER BY created_at ASC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Commission, 0)
	for rows.Next() {
		var c Commission
		if err := rows.Scan(&c.ID, &c.ClientID, &c.RecipientID, &c.AmountCents, &c.Percent, &c.Note, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
