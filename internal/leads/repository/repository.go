package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"salesdesk_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                uuid.UUID
	Name              string
	Company           *string
	Email             *string
	Phone             *string
	OriginID          *uuid.UUID
	ServiceInterestID *uuid.UUID
	CurrentFunnel     domain.Funnel
	ProspectingStage  domain.Stage
	ClosingStage      domain.Stage
	ColdStage         domain.Stage
	ProspectingOwner  *uuid.UUID
	ClosingOwner      *uuid.UUID
	ProposalValue     *int64 // cents
	MeetingAt         *time.Time
	LossReasonID      *uuid.UUID
	LossDate          *time.Time
	ConversionDate    *time.Time
	Notes             string
	BoardOrder        float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// StageIn returns the lead's active stage in the given funnel. Per-funnel
// stage fields persist as history even when the funnel is not current.
func (l Lead) StageIn(f domain.Funnel) domain.Stage {
	switch f {
	case domain.FunnelProspecting:
		return l.ProspectingStage
	case domain.FunnelClosing:
		return l.ClosingStage
	case domain.FunnelCold:
		return l.ColdStage
	}
	return ""
}

const leadCols = `
	id, name, company, email, phone, origin_id, service_interest_id,
	current_funnel, prospecting_stage, closing_stage, cold_stage,
	prospecting_owner_id, closing_owner_id, proposal_value_cents, meeting_at,
	loss_reason_id, loss_date, conversion_date, notes, board_order,
	created_at, updated_at`

type leadRowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s leadRowScanner) (Lead, error) {
	var lead Lead
	if err := s.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Company,
		&lead.Email,
		&lead.Phone,
		&lead.OriginID,
		&lead.ServiceInterestID,
		&lead.CurrentFunnel,
		&lead.ProspectingStage,
		&lead.ClosingStage,
		&lead.ColdStage,
		&lead.ProspectingOwner,
		&lead.ClosingOwner,
		&lead.ProposalValue,
		&lead.MeetingAt,
		&lead.LossReasonID,
		&lead.LossDate,
		&lead.ConversionDate,
		&lead.Notes,
		&lead.BoardOrder,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

type CreateLeadParams struct {
	Name              string
	Company           *string
	Email             *string
	Phone             *string
	OriginID          *uuid.UUID
	ServiceInterestID *uuid.UUID
	ProspectingOwner  *uuid.UUID
	Notes             string
	BoardOrder        float64
}

// Create inserts a new lead at the initial prospecting stage.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			name, company, email, phone, origin_id, service_interest_id,
			current_funnel, prospecting_stage, prospecting_owner_id, notes, board_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING`+leadCols,
		params.Name, params.Company, params.Email, params.Phone,
		params.OriginID, params.ServiceInterestID,
		domain.FunnelProspecting, domain.InitialStage(domain.FunnelProspecting),
		params.ProspectingOwner, params.Notes, params.BoardOrder,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+leadCols+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	return lead, nil
}

type UpdateLeadParams struct {
	Name              *string
	Company           *string
	Email             *string
	Phone             *string
	OriginID          *uuid.UUID
	ServiceInterestID *uuid.UUID
	ProspectingOwner  *uuid.UUID
	ClosingOwner      *uuid.UUID
	Notes             *string
}

// Update patches identity/contact fields. Stage and funnel fields are owned
// by ApplyTransition and are deliberately not reachable from here.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.Company != nil {
		add("company", *params.Company)
	}
	if params.Email != nil {
		add("email", *params.Email)
	}
	if params.Phone != nil {
		add("phone", *params.Phone)
	}
	if params.OriginID != nil {
		add("origin_id", *params.OriginID)
	}
	if params.ServiceInterestID != nil {
		add("service_interest_id", *params.ServiceInterestID)
	}
	if params.ProspectingOwner != nil {
		add("prospecting_owner_id", *params.ProspectingOwner)
	}
	if params.ClosingOwner != nil {
		add("closing_owner_id", *params.ClosingOwner)
	}
	if params.Notes != nil {
		add("notes", *params.Notes)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $%d RETURNING%s`,
		strings.Join(sets, ", "), len(args), leadCols)

	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	return lead, nil
}

type ListLeadsParams struct {
	Funnel      *domain.Funnel
	Stage       *domain.Stage
	OwnerID     *uuid.UUID
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// List returns leads filtered by funnel, stage, owner, and creation range.
// The stage filter matches the stage column of the funnel filter; it is
// ignored when no funnel is given.
func (r *Repository) List(ctx context.Context, params ListLeadsParams) ([]Lead, error) {
	where := []string{"1=1"}
	args := []any{}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if params.Funnel != nil {
		add("current_funnel = $%d", *params.Funnel)
		if params.Stage != nil {
			if col := stageColumn(*params.Funnel); col != "" {
				add(col+" = $%d", *params.Stage)
			}
		}
	}
	if params.OwnerID != nil {
		args = append(args, *params.OwnerID)
		where = append(where, fmt.Sprintf("(prospecting_owner_id = $%d OR closing_owner_id = $%d)", len(args), len(args)))
	}
	if params.CreatedFrom != nil {
		add("created_at >= $%d", *params.CreatedFrom)
	}
	if params.CreatedTo != nil {
		add("created_at < $%d", *params.CreatedTo)
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT%s FROM leads
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		leadCols, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListBoard returns every lead currently in the funnel, ordered for board
// rendering (stage grouping happens in the service layer).
func (r *Repository) ListBoard(ctx context.Context, funnel domain.Funnel) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadCols+`
		FROM leads
		WHERE current_funnel = $1
		ORDER BY board_order ASC, created_at ASC
	`, funnel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLeads(rows)
}

// CountByFunnel is the count-only dashboard query; no lead rows are fetched.
func (r *Repository) CountByFunnel(ctx context.Context) (map[domain.Funnel]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT current_funnel, COUNT(*)
		FROM leads
		GROUP BY current_funnel
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Funnel]int)
	for rows.Next() {
		var funnel domain.Funnel
		var n int
		if err := rows.Scan(&funnel, &n); err != nil {
			return nil, err
		}
		counts[funnel] = n
	}
	return counts, rows.Err()
}

// MaxBoardOrder returns the highest board order within a funnel stage, for
// end-of-column drops. Returns 0 when the stage is empty.
func (r *Repository) MaxBoardOrder(ctx context.Context, funnel domain.Funnel, stage domain.Stage) (float64, error) {
	col := stageColumn(funnel)
	if col == "" {
		return 0, fmt.Errorf("funnel %s has no board", funnel)
	}
	var max *float64
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT MAX(board_order) FROM leads
		WHERE current_funnel = $1 AND %s = $2
	`, col), funnel, stage).Scan(&max)
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// RebalanceStageOrders rewrites board orders of a stage to whole steps.
// Called when fractional midpoint insertion has exhausted the gap.
func (r *Repository) RebalanceStageOrders(ctx context.Context, funnel domain.Funnel, stage domain.Stage) error {
	col := stageColumn(funnel)
	if col == "" {
		return fmt.Errorf("funnel %s has no board", funnel)
	}
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE leads SET board_order = ranked.pos * 1024
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY board_order ASC, created_at ASC) AS pos
			FROM leads
			WHERE current_funnel = $1 AND %s = $2
		) ranked
		WHERE leads.id = ranked.id
	`, col), funnel, stage)
	return err
}

func stageColumn(f domain.Funnel) string {
	switch f {
	case domain.FunnelProspecting:
		return "prospecting_stage"
	case domain.FunnelClosing:
		return "closing_stage"
	case domain.FunnelCold:
		return "cold_stage"
	}
	return ""
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
