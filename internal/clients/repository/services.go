package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClientService is one contracted service line. The client's monthly fee is
// always the sum of its active service values.
type ClientService struct {
	ID            uuid.UUID
	ClientID      uuid.UUID
	Name          string
	ValueCents    int64
	ResponsibleID uuid.UUID
	Active        bool
	CanceledAt    *time.Time
	CreatedAt     time.Time
}

const serviceCols = `
	id, client_id, name, value_cents, responsible_id, active, canceled_at, created_at`

func scanService(s clientRowScanner) (ClientService, error) {
	var svc ClientService
	if err := s.Scan(
		&svc.ID,
		&svc.ClientID,
		&svc.Name,
		&svc.ValueCents,
		&svc.ResponsibleID,
		&svc.Active,
		&svc.CanceledAt,
		&svc.CreatedAt,
	); err != nil {
		return ClientService{}, err
	}
	return svc, nil
}

type AddServiceParams struct {
	ClientID      uuid.UUID
	Name          string
	ValueCents    int64
	ResponsibleID uuid.UUID
}

// AddService inserts a service line and recomputes the client's monthly fee
// in the same transaction.
func (r *Repository) AddService(ctx context.Context, params AddServiceParams) (ClientService, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ClientService{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO client_services (client_id, name, value_cents, responsible_id, active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING`+serviceCols,
		params.ClientID, params.Name, params.ValueCents, params.ResponsibleID,
	)
	svc, err := scanService(row)
	if err != nil {
		return ClientService{}, fmt.Errorf("failed to insert client service: %w", err)
	}

	if err := recomputeFeeMonthly(ctx, tx, params.ClientID); err != nil {
		return ClientService{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ClientService{}, err
	}
	return svc, nil
}

// CancelService deactivates a service line and recomputes the client's
// monthly fee in the same transaction. Already-cancelled lines are not found.
func (r *Repository) CancelService(ctx context.Context, clientID, serviceID uuid.UUID) (ClientService, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ClientService{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE client_services
		SET active = false, canceled_at = now()
		WHERE id = $1 AND client_id = $2 AND active
		RETURNING`+serviceCols,
		serviceID, clientID,
	)
	svc, err := scanService(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ClientService{}, ErrServiceNotFound
		}
		return ClientService{}, err
	}

	if err := recomputeFeeMonthly(ctx, tx, clientID); err != nil {
		return ClientService{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ClientService{}, err
	}
	return svc, nil
}

func (r *Repository) ListServices(ctx context.Context, clientID uuid.UUID) ([]ClientService, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+serviceCols+`
		FROM client_services
		WHERE client_id = $1
		ORDER BY created_at ASC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ClientService, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, svc)
	}
	return items, rows.Err()
}

// recomputeFeeMonthly rewrites fee_monthly_cents from the active service
// lines. Every write path that touches client_services must call this inside
// its transaction.
func recomputeFeeMonthly(ctx context.Context, tx pgx.Tx, clientID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE clients SET
			fee_monthly_cents = (
				SELECT COALESCE(SUM(value_cents), 0)
				FROM client_services
				WHERE client_id = $1 AND active
			),
			updated_at = now()
		WHERE id = $1
	`, clientID)
	if err != nil {
		return fmt.Errorf("failed to recompute monthly fee: %w", err)
	}
	return nil
}
