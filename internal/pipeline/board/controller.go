// Package board translates pointer drops on the kanban board into stage
// transition requests and manages the optimistic move/revert cycle.
package board

import (
	"context"
	"math"
	"sync"

	"salesdesk_backend/internal/actor"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/internal/pipeline/service"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// DragThreshold is the pointer distance, in logical pixels, a pointer-down
// must travel before it counts as a drag rather than a click.
const DragThreshold = 8.0

// OrderStep is the gap between consecutive board orders after a rebalance
// and when appending to the end of a column.
const OrderStep = 1024.0

// minOrderGap is the smallest usable gap between two adjacent cards. Below
// it, repeated midpoint insertion has exhausted the float precision and the
// column is rebalanced.
const minOrderGap = 1e-6

// Transitioner is the orchestrator surface the controller drives.
type Transitioner interface {
	RequestTransition(ctx context.Context, act actor.Context, req service.TransitionRequest) (service.TransitionOutcome, error)
	ConfirmCapture(ctx context.Context, act actor.Context, leadID, token uuid.UUID, payload *domain.CapturePayload) (service.TransitionOutcome, error)
	CancelCapture(leadID, token uuid.UUID) error
}

// Store is the read surface the controller needs to place cards.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	ListBoard(ctx context.Context, funnel domain.Funnel) ([]repository.Lead, error)
	MaxBoardOrder(ctx context.Context, funnel domain.Funnel, stage domain.Stage) (float64, error)
	RebalanceStageOrders(ctx context.Context, funnel domain.Funnel, stage domain.Stage) error
}

// DropEvent is what the drag sensor reports when the pointer is released.
type DropEvent struct {
	LeadID uuid.UUID
	// TargetStage is set when the card was dropped on a column.
	TargetStage domain.Stage
	// TargetCardID is set instead when the card was dropped on another card;
	// the destination stage and position are derived from that card.
	TargetCardID *uuid.UUID
	// DeltaX and DeltaY are the total pointer travel since pointer-down.
	DeltaX float64
	DeltaY float64
}

// MoveResult reports how a drop resolved. Mirrors the orchestrator outcome,
// plus the click case where the threshold was never crossed.
type MoveResult struct {
	// Click is set when the pointer never travelled far enough to count as a
	// drag. No transition was requested.
	Click           bool
	NoOp            bool
	Committed       bool
	AwaitingCapture bool
	Token           uuid.UUID
	CaptureKind     domain.CaptureKind
	Lead            repository.Lead
}

// moveCommand is one in-flight optimistic move: the visual delta the client
// applied immediately, kept so it can be confirmed or reverted once the
// orchestrator answers.
type moveCommand struct {
	leadID    uuid.UUID
	token     uuid.UUID
	fromStage domain.Stage
	fromOrder float64
	toStage   domain.Stage
	toOrder   float64
}

// Controller turns drop events into transition requests and reconciles the
// optimistic move with the orchestrator's verdict.
type Controller struct {
	store Store
	orch  Transitioner
	log   *logger.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]*moveCommand // keyed by lead ID
}

func NewController(store Store, orch Transitioner, log *logger.Logger) *Controller {
	return &Controller{
		store:    store,
		orch:     orch,
		log:      log,
		inflight: make(map[uuid.UUID]*moveCommand),
	}
}

// HandleDrop resolves a drop event into (target stage, target position) and
// hands it to the orchestrator. The caller has already moved the card
// visually; Committed and AwaitingCapture keep the move, everything else
// means the caller must revert it.
func (c *Controller) HandleDrop(ctx context.Context, act actor.Context, drop DropEvent) (MoveResult, error) {
	if math.Hypot(drop.DeltaX, drop.DeltaY) < DragThreshold {
		return MoveResult{Click: true}, nil
	}

	lead, err := c.store.GetByID(ctx, drop.LeadID)
	if err != nil {
		return MoveResult{}, err
	}

	target, order, err := c.resolveDestination(ctx, lead, drop)
	if err != nil {
		return MoveResult{}, err
	}

	cmd := &moveCommand{
		leadID:    lead.ID,
		fromStage: lead.StageIn(lead.CurrentFunnel),
		fromOrder: lead.BoardOrder,
		toStage:   target,
		toOrder:   order,
	}
	if err := c.begin(cmd); err != nil {
		return MoveResult{}, err
	}

	out, err := c.orch.RequestTransition(ctx, act, service.TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: target,
		BoardOrder:  &order,
	})
	if err != nil {
		c.revert(lead.ID)
		return MoveResult{}, err
	}

	switch {
	case out.NoOp:
		c.confirm(lead.ID)
		return MoveResult{NoOp: true, Lead: out.Lead}, nil
	case out.Committed:
		c.confirm(lead.ID)
		return MoveResult{Committed: true, Lead: out.Lead}, nil
	default:
		// Suspended behind a capture dialog. The command stays in flight so
		// further drags on this card are blocked until confirm or cancel.
		c.attachToken(lead.ID, out.Token)
		return MoveResult{
			AwaitingCapture: true,
			Token:           out.Token,
			CaptureKind:     out.CaptureKind,
			Lead:            out.Lead,
		}, nil
	}
}

// ConfirmCapture resumes the suspended move with the dialog's payload. A
// validation failure keeps the command (and the dialog) open.
func (c *Controller) ConfirmCapture(ctx context.Context, act actor.Context, leadID, token uuid.UUID, payload *domain.CapturePayload) (MoveResult, error) {
	out, err := c.orch.ConfirmCapture(ctx, act, leadID, token, payload)
	if err != nil {
		if apperr.Is(err, apperr.KindValidation) {
			return MoveResult{}, err
		}
		c.revert(leadID)
		return MoveResult{}, err
	}
	c.confirm(leadID)
	return MoveResult{Committed: true, Lead: out.Lead}, nil
}

// CancelCapture dismisses the dialog and reverts the optimistic move.
func (c *Controller) CancelCapture(leadID, token uuid.UUID) error {
	err := c.orch.CancelCapture(leadID, token)
	c.revert(leadID)
	return err
}

// InFlight reports whether a move for the lead is still unresolved.
func (c *Controller) InFlight(leadID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[leadID]
	return ok
}

// resolveDestination maps the drop target to a stage and a board order.
// Dropping on a column appends to its end; dropping on a card takes the slot
// just above that card, midway between it and its predecessor.
func (c *Controller) resolveDestination(ctx context.Context, lead repository.Lead, drop DropEvent) (domain.Stage, float64, error) {
	funnel := lead.CurrentFunnel

	if drop.TargetCardID == nil {
		if !domain.IsKnownStage(funnel, drop.TargetStage) {
			return "", 0, apperr.BadRequest("unknown destination stage")
		}
		max, err := c.store.MaxBoardOrder(ctx, funnel, drop.TargetStage)
		if err != nil {
			return "", 0, err
		}
		return drop.TargetStage, max + OrderStep, nil
	}

	target, err := c.store.GetByID(ctx, *drop.TargetCardID)
	if err != nil {
		return "", 0, err
	}
	if target.CurrentFunnel != funnel {
		return "", 0, apperr.BadRequest("destination card is on a different board")
	}

	stage := target.StageIn(funnel)
	order, err := c.orderAbove(ctx, funnel, stage, target)
	if err != nil {
		return "", 0, err
	}
	return stage, order, nil
}

// orderAbove computes a fractional board order that slots a card directly
// above target. When the gap to the predecessor is exhausted the column is
// rebalanced first.
func (c *Controller) orderAbove(ctx context.Context, funnel domain.Funnel, stage domain.Stage, target repository.Lead) (float64, error) {
	prev, err := c.predecessorOrder(ctx, funnel, stage, target)
	if err != nil {
		return 0, err
	}

	if target.BoardOrder-prev < minOrderGap {
		if err := c.store.RebalanceStageOrders(ctx, funnel, stage); err != nil {
			return 0, err
		}
		refreshed, err := c.store.GetByID(ctx, target.ID)
		if err != nil {
			return 0, err
		}
		target = refreshed
		prev, err = c.predecessorOrder(ctx, funnel, stage, target)
		if err != nil {
			return 0, err
		}
	}

	return (prev + target.BoardOrder) / 2, nil
}

// predecessorOrder finds the board order of the card directly above target
// in its column, or 0 when target is first.
func (c *Controller) predecessorOrder(ctx context.Context, funnel domain.Funnel, stage domain.Stage, target repository.Lead) (float64, error) {
	cards, err := c.store.ListBoard(ctx, funnel)
	if err != nil {
		return 0, err
	}

	prev := 0.0
	for _, card := range cards {
		if card.StageIn(funnel) != stage || card.ID == target.ID {
			continue
		}
		if card.BoardOrder < target.BoardOrder && card.BoardOrder > prev {
			prev = card.BoardOrder
		}
	}
	return prev, nil
}

func (c *Controller) begin(cmd *moveCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[cmd.leadID]; ok {
		return apperr.TransitionRejected("a move for this lead is already in flight")
	}
	c.inflight[cmd.leadID] = cmd
	return nil
}

func (c *Controller) attachToken(leadID, token uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cmd, ok := c.inflight[leadID]; ok {
		cmd.token = token
	}
}

func (c *Controller) confirm(leadID uuid.UUID) {
	c.mu.Lock()
	delete(c.inflight, leadID)
	c.mu.Unlock()
}

func (c *Controller) revert(leadID uuid.UUID) {
	c.mu.Lock()
	cmd, ok := c.inflight[leadID]
	delete(c.inflight, leadID)
	c.mu.Unlock()

	if ok && c.log != nil {
		c.log.Debug("optimistic move reverted",
			"lead_id", leadID.String(),
			"from_stage", string(cmd.fromStage),
			"to_stage", string(cmd.toStage),
		)
	}
}
