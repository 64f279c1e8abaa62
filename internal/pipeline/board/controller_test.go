package board

import (
	"context"
	"testing"

	"salesdesk_backend/internal/actor"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/internal/pipeline/service"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeBoardStore struct {
	leads      map[uuid.UUID]repository.Lead
	rebalances int
	maxOrders  map[domain.Stage]float64
}

func (f *fakeBoardStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeBoardStore) ListBoard(_ context.Context, funnel domain.Funnel) ([]repository.Lead, error) {
	var out []repository.Lead
	for _, l := range f.leads {
		if l.CurrentFunnel == funnel {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeBoardStore) MaxBoardOrder(_ context.Context, _ domain.Funnel, stage domain.Stage) (float64, error) {
	return f.maxOrders[stage], nil
}

func (f *fakeBoardStore) RebalanceStageOrders(_ context.Context, funnel domain.Funnel, stage domain.Stage) error {
	f.rebalances++
	// Assign ROW_NUMBER * OrderStep in the current order.
	order := OrderStep
	for id, l := range f.leads {
		if l.CurrentFunnel == funnel && l.StageIn(funnel) == stage {
			l.BoardOrder = order
			f.leads[id] = l
			order += OrderStep
		}
	}
	return nil
}

type fakeTransitioner struct {
	requests []service.TransitionRequest
	outcome  service.TransitionOutcome
	err      error

	confirmErr error
	cancels    int
}

func (f *fakeTransitioner) RequestTransition(_ context.Context, _ actor.Context, req service.TransitionRequest) (service.TransitionOutcome, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return service.TransitionOutcome{}, f.err
	}
	return f.outcome, nil
}

func (f *fakeTransitioner) ConfirmCapture(_ context.Context, _ actor.Context, _, _ uuid.UUID, _ *domain.CapturePayload) (service.TransitionOutcome, error) {
	if f.confirmErr != nil {
		return service.TransitionOutcome{}, f.confirmErr
	}
	return service.TransitionOutcome{Committed: true}, nil
}

func (f *fakeTransitioner) CancelCapture(_, _ uuid.UUID) error {
	f.cancels++
	return nil
}

func boardLead(stage domain.Stage, order float64) repository.Lead {
	return repository.Lead{
		ID:            uuid.New(),
		Name:          "Acme Corp",
		CurrentFunnel: domain.FunnelClosing,
		ClosingStage:  stage,
		BoardOrder:    order,
	}
}

func newTestController(leads ...repository.Lead) (*Controller, *fakeBoardStore, *fakeTransitioner) {
	store := &fakeBoardStore{
		leads:     make(map[uuid.UUID]repository.Lead),
		maxOrders: make(map[domain.Stage]float64),
	}
	for _, l := range leads {
		store.leads[l.ID] = l
		stage := l.StageIn(l.CurrentFunnel)
		if l.BoardOrder > store.maxOrders[stage] {
			store.maxOrders[stage] = l.BoardOrder
		}
	}
	orch := &fakeTransitioner{outcome: service.TransitionOutcome{Committed: true}}
	return NewController(store, orch, logger.New("development")), store, orch
}

func TestHandleDrop_BelowThresholdIsAClick(t *testing.T) {
	lead := boardLead(domain.StageMeetingScheduled, 1024)
	c, _, orch := newTestController(lead)

	res, err := c.HandleDrop(context.Background(), actor.Context{}, DropEvent{
		LeadID:      lead.ID,
		TargetStage: domain.StageNoShow,
		DeltaX:      3,
		DeltaY:      4, // hypot = 5, below the threshold
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Click {
		t.Fatalf("expected a click, got %+v", res)
	}
	if len(orch.requests) != 0 {
		t.Fatalf("a click must not request a transition")
	}
}

func TestHandleDrop_OnColumnAppendsToEnd(t *testing.T) {
	lead := boardLead(domain.StageMeetingScheduled, 1024)
	other := boardLead(domain.StageNegotiation, 2048)
	c, _, orch := newTestController(lead, other)

	res, err := c.HandleDrop(context.Background(), actor.Context{}, DropEvent{
		LeadID:      lead.ID,
		TargetStage: domain.StageNegotiation,
		DeltaX:      120,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Committed {
		t.Fatalf("expected committed move, got %+v", res)
	}
	if len(orch.requests) != 1 {
		t.Fatalf("expected one transition request, got %d", len(orch.requests))
	}
	req := orch.requests[0]
	if req.TargetStage != domain.StageNegotiation {
		t.Fatalf("expected target negotiation, got %s", req.TargetStage)
	}
	if req.BoardOrder == nil || *req.BoardOrder != 2048+OrderStep {
		t.Fatalf("expected end-of-column order %v, got %v", 2048+OrderStep, req.BoardOrder)
	}
}

func TestHandleDrop_OnCardTakesMidpoint(t *testing.T) {
	moving := boardLead(domain.StageMeetingScheduled, 1024)
	upper := boardLead(domain.StageNegotiation, 1024)
	target := boardLead(domain.StageNegotiation, 2048)
	c, _, orch := newTestController(moving, upper, target)

	_, err := c.HandleDrop(context.Background(), actor.Context{}, DropEvent{
		LeadID:       moving.ID,
		TargetCardID: &target.ID,
		DeltaX:       80,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := orch.requests[0]
	if req.TargetStage != domain.StageNegotiation {
		t.Fatalf("expected stage derived from target card, got %s", req.TargetStage)
	}
	if req.BoardOrder == nil || *req.BoardOrder != 1536 {
		t.Fatalf("expected midpoint 1536, got %v", req.BoardOrder)
	}
}

func TestHandleDrop_OnTopCardHalvesOrder(t *testing.T) {
	moving := boardLead(domain.StageMeetingScheduled, 1024)
	target := boardLead(domain.StageNegotiation, 2048)
	c, _, orch := newTestController(moving, target)

	_, err := c.HandleDrop(context.Background(), actor.Context{}, DropEvent{
		LeadID:       moving.ID,
		TargetCardID: &target.ID,
		DeltaX:       80,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := orch.requests[0]
	if req.BoardOrder == nil || *req.BoardOrder != 1024 {
		t.Fatalf("expected half of the top card's order, got %v", req.BoardOrder)
	}
}

func TestHandleDrop_RebalancesWhenGapExhausted(t *testing.T) {
	moving := boardLead(domain.StageMeetingScheduled, 1024)
	upper := boardLead(domain.StageNegotiation, 1.0)
	target := boardLead(domain.StageNegotiation, 1.0+minOrderGap/2)
	c, store, orch := newTestController(moving, upper, target)

	_, err := c.HandleDrop(context.Background(), actor.Context{}, DropEvent{
		LeadID:       moving.ID,
		TargetCardID: &target.ID,
		DeltaX:       80,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.rebalances != 1 {
		t.Fatalf("expected one rebalance, got %d", store.rebalances)
	}
	if req := orch.requests[0]; req.BoardOrder == nil || *req.BoardOrder <= 0 {
		t.Fatalf("expected a positive rebalanced order, got %v", req.BoardOrder)
	}
}

func TestHandleDrop_RejectionRevertsCommand(t *testing.T) {
	lead := boardLead(domain.StageMeetingScheduled, 1024)
	c, _, orch := newTestController(lead)
	orch.err = apperr.TransitionRejected("stage transition not allowed")

	_, err := c.HandleDrop(context.Background(), actor.Context{}, DropEvent{
		LeadID:      lead.ID,
		TargetStage: domain.StageWon,
		DeltaX:      100,
	})
	if !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if c.InFlight(lead.ID) {
		t.Fatalf("rejected move must not stay in flight")
	}
}

func TestHandleDrop_AwaitingCaptureBlocksFurtherDrags(t *testing.T) {
	lead := boardLead(domain.StageMeetingScheduled, 1024)
	c, _, orch := newTestController(lead)
	token := uuid.New()
	orch.outcome = service.TransitionOutcome{
		AwaitingCapture: true,
		Token:           token,
		CaptureKind:     domain.CaptureMeetingOutcome,
	}

	res, err := c.HandleDrop(context.Background(), actor.Context{}, DropEvent{
		LeadID:      lead.ID,
		TargetStage: domain.StageMeetingDone,
		DeltaX:      100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.AwaitingCapture || res.Token != token {
		t.Fatalf("expected awaiting-capture result with token, got %+v", res)
	}
	if !c.InFlight(lead.ID) {
		t.Fatalf("suspended move must stay in flight")
	}

	_, err = c.HandleDrop(context.Background(), actor.Context{}, DropEvent{
		LeadID:      lead.ID,
		TargetStage: domain.StageNoShow,
		DeltaX:      100,
	})
	if !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected second drag to be rejected, got %v", err)
	}
}

func TestCancelCapture_RevertsAndNotifiesOrchestrator(t *testing.T) {
	lead := boardLead(domain.StageMeetingScheduled, 1024)
	c, _, orch := newTestController(lead)
	token := uuid.New()
	orch.outcome = service.TransitionOutcome{AwaitingCapture: true, Token: token}

	if _, err := c.HandleDrop(context.Background(), actor.Context{}, DropEvent{
		LeadID:      lead.ID,
		TargetStage: domain.StageMeetingDone,
		DeltaX:      100,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.CancelCapture(lead.ID, token); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if orch.cancels != 1 {
		t.Fatalf("expected one cancel forwarded, got %d", orch.cancels)
	}
	if c.InFlight(lead.ID) {
		t.Fatalf("cancelled move must not stay in flight")
	}
}

func TestConfirmCapture_ValidationFailureKeepsCommandOpen(t *testing.T) {
	lead := boardLead(domain.StageMeetingScheduled, 1024)
	c, _, orch := newTestController(lead)
	token := uuid.New()
	orch.outcome = service.TransitionOutcome{AwaitingCapture: true, Token: token}

	if _, err := c.HandleDrop(context.Background(), actor.Context{}, DropEvent{
		LeadID:      lead.ID,
		TargetStage: domain.StageMeetingDone,
		DeltaX:      100,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orch.confirmErr = apperr.Validation("invalid capture payload")
	if _, err := c.ConfirmCapture(context.Background(), actor.Context{}, lead.ID, token, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !c.InFlight(lead.ID) {
		t.Fatalf("validation failure must keep the move open for correction")
	}

	orch.confirmErr = nil
	if _, err := c.ConfirmCapture(context.Background(), actor.Context{}, lead.ID, token, nil); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if c.InFlight(lead.ID) {
		t.Fatalf("confirmed move must clear")
	}
}
