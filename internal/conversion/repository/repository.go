// Package repository commits the lead-to-client conversion. Every record the
// conversion produces is written in one transaction, so a failure at any
// step leaves no partial client behind.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	clientdomain "salesdesk_backend/internal/clients/domain"
	clientrepo "salesdesk_backend/internal/clients/repository"
	pipelinedomain "salesdesk_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAlreadyConverted means a client row for this lead already exists;
	// the unique index on clients.lead_id is the hard backstop.
	ErrAlreadyConverted = errors.New("lead is already converted")
	// ErrLeadNotConvertible means the lead row no longer satisfies the
	// conversion precondition (not won, or already carries a conversion date).
	ErrLeadNotConvertible = errors.New("lead is not in a convertible state")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type ServiceLine struct {
	Name          string
	ValueCents    int64
	ResponsibleID uuid.UUID
}

type CommissionLine struct {
	RecipientID uuid.UUID
	AmountCents int64
	Percent     float64
	Note        string
}

type CommitParams struct {
	LeadID         uuid.UUID
	Name           string
	Company        *string
	Email          *string
	Phone          *string
	BillingModel   clientdomain.BillingModel
	BillingPercent *float64
	DueDay         int
	PaymentMethod  clientdomain.PaymentMethod
	ResponsibleID  *uuid.UUID
	StartDate      time.Time
	Services       []ServiceLine
	Commissions    []CommissionLine
	ActorName      string
	ConvertedAt    time.Time
}

// Commit performs the whole conversion in one transaction: the client row
// with its fee derived from the service lines, the lines themselves, the
// commission splits, the authoritative lead flip to the converted funnel,
// and the history entries on both sides.
func (r *Repository) Commit(ctx context.Context, params CommitParams) (clientrepo.Client, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return clientrepo.Client{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var fee int64
	for _, line := range params.Services {
		fee += line.ValueCents
	}

	var client clientrepo.Client
	err = tx.QueryRow(ctx, `
		INSERT INTO clients (
			lead_id, name, company, email, phone,
			billing_model, billing_percent, fee_monthly_cents, due_day, payment_method,
			responsible_id, start_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, lead_id, name, company, email, phone,
			billing_model, billing_percent, fee_monthly_cents, due_day, payment_method,
			responsible_id, start_date, created_at, updated_at`,
		params.LeadID, params.Name, params.Company, params.Email, params.Phone,
		params.BillingModel, params.BillingPercent, fee, params.DueDay, params.PaymentMethod,
		params.ResponsibleID, params.StartDate,
	).Scan(
		&client.ID, &client.LeadID, &client.Name, &client.Company, &client.Email, &client.Phone,
		&client.BillingModel, &client.BillingPercent, &client.FeeMonthly, &client.DueDay, &client.PaymentMethod,
		&client.ResponsibleID, &client.StartDate, &client.CreatedAt, &client.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return clientrepo.Client{}, ErrAlreadyConverted
		}
		return clientrepo.Client{}, fmt.Errorf("failed to insert client: %w", err)
	}

	for _, line := range params.Services {
		if _, err := tx.Exec(ctx, `
			INSERT INTO client_services (client_id, name, value_cents, responsible_id, active)
			VALUES ($1, $2, $3, $4, true)`,
			client.ID, line.Name, line.ValueCents, line.ResponsibleID,
		); err != nil {
			return clientrepo.Client{}, fmt.Errorf("failed to insert client service: %w", err)
		}
	}

	for _, split := range params.Commissions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO commissions (client_id, recipient_id, amount_cents, percent, note)
			VALUES ($1, $2, $3, $4, $5)`,
			client.ID, split.RecipientID, split.AmountCents, split.Percent, split.Note,
		); err != nil {
			return clientrepo.Client{}, fmt.Errorf("failed to insert commission: %w", err)
		}
	}

	// The lead must still be won and unconverted at commit time; anything
	// else lost a race and rolls the whole conversion back.
	tag, err := tx.Exec(ctx, `
		UPDATE leads SET
			current_funnel = $2, conversion_date = $3, updated_at = now()
		WHERE id = $1 AND current_funnel = $4 AND closing_stage = $5 AND conversion_date IS NULL`,
		params.LeadID, pipelinedomain.FunnelConverted, params.ConvertedAt,
		pipelinedomain.FunnelClosing, pipelinedomain.StageWon,
	)
	if err != nil {
		return clientrepo.Client{}, fmt.Errorf("failed to flip lead to converted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return clientrepo.Client{}, ErrLeadNotConvertible
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO client_timeline_events (client_id, kind, description, actor_name)
		VALUES ($1, $2, $3, $4)`,
		client.ID, clientrepo.TimelineConversion, "Client created from won lead", params.ActorName,
	); err != nil {
		return clientrepo.Client{}, fmt.Errorf("failed to insert conversion timeline entry: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, kind, description, performed_by)
		VALUES ($1, $2, $3, $4)`,
		params.LeadID, "conversion", "Lead converted to client", params.ActorName,
	); err != nil {
		return clientrepo.Client{}, fmt.Errorf("failed to insert conversion activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return clientrepo.Client{}, err
	}
	return client, nil
}
