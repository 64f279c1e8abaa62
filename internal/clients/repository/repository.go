// Package repository persists clients, their contracted services, commission
// splits, and the client timeline.
package repository

import (
	"context"
	"errors"
	"time"

	"salesdesk_backend/internal/clients/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrServiceNotFound = errors.New("client service not found")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Client is a converted lead under management. LeadID is a weak lookup
// reference; the lead row never points back here.
type Client struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	Name           string
	Company        *string
	Email          *string
	Phone          *string
	BillingModel   domain.BillingModel
	BillingPercent *float64 // only for flat_fee_percent
	FeeMonthly     int64    // cents, sum of active service values
	DueDay         int
	PaymentMethod  domain.PaymentMethod
	ResponsibleID  *uuid.UUID
	StartDate      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const clientCols = `
	id, lead_id, name, company, email, phone,
	billing_model, billing_percent, fee_monthly_cents, due_day, payment_method,
	responsible_id, start_date, created_at, updated_at`

type clientRowScanner interface {
	Scan(dest ...any) error
}

func scanClient(s clientRowScanner) (Client, error) {
	var c Client
	if err := s.Scan(
		&c.ID,
		&c.LeadID,
		&c.Name,
		&c.Company,
		&c.Email,
		&c.Phone,
		&c.BillingModel,
		&c.BillingPercent,
		&c.FeeMonthly,
		&c.DueDay,
		&c.PaymentMethod,
		&c.ResponsibleID,
		&c.StartDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return Client{}, err
	}
	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+clientCols+` FROM clients WHERE id = $1`, id)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrClientNotFound
		}
		return Client{}, err
	}
	return client, nil
}

// GetByLeadID looks a client up by the lead it was converted from. The
// conversion workflow uses this as its idempotency check; clients.lead_id
// carries a unique index as the hard backstop.
func (r *Repository) GetByLeadID(ctx context.Context, leadID uuid.UUID) (Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+clientCols+` FROM clients WHERE lead_id = $1`, leadID)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, ErrClientNotFound
		}
		return Client{}, err
	}
	return client, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]Client, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+clientCols+`
		FROM clients
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, client)
	}
	return items, rows.Err()
}
