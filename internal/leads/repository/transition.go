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
)

// ApplyTransitionParams describes the single authoritative write of a stage
// transition: the stage field of one funnel plus any stage-specific fields,
// all applied in one UPDATE so the write is atomic from the orchestrator's
// point of view.
type ApplyTransitionParams struct {
	LeadID uuid.UUID

	// Funnel selects which per-funnel stage column receives Stage.
	Funnel domain.Funnel
	Stage  domain.Stage

	// BoardOrder positions the card within the target stage column.
	BoardOrder *float64

	// SetFunnel changes current_funnel (loss revival, promotion, conversion).
	SetFunnel *domain.Funnel
	// SetColdStage resets the cold stage when a loss is revived as cold.
	SetColdStage *domain.Stage
	// SetClosingStage seeds the closing stage on prospecting handoff.
	SetClosingStage *domain.Stage

	ProposalValue *int64 // cents
	MeetingAt     *time.Time
	LossReasonID  *uuid.UUID
	LossDate      *time.Time
}

// ApplyTransition performs the transition write and returns the updated lead.
// ErrNotFound is returned when the lead does not exist.
func (r *Repository) ApplyTransition(ctx context.Context, params ApplyTransitionParams) (Lead, error) {
	stageCol := stageColumn(params.Funnel)
	if stageCol == "" {
		return Lead{}, fmt.Errorf("funnel %s has no stage column", params.Funnel)
	}

	sets := []string{"updated_at = now()"}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	add(stageCol, params.Stage)
	if params.BoardOrder != nil {
		add("board_order", *params.BoardOrder)
	}
	if params.SetFunnel != nil {
		add("current_funnel", *params.SetFunnel)
	}
	if params.SetColdStage != nil {
		add("cold_stage", *params.SetColdStage)
	}
	if params.SetClosingStage != nil {
		add("closing_stage", *params.SetClosingStage)
	}
	if params.ProposalValue != nil {
		add("proposal_value_cents", *params.ProposalValue)
	}
	if params.MeetingAt != nil {
		add("meeting_at", *params.MeetingAt)
	}
	if params.LossReasonID != nil {
		add("loss_reason_id", *params.LossReasonID)
	}
	if params.LossDate != nil {
		add("loss_date", *params.LossDate)
	}

	args = append(args, params.LeadID)
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
