// Package service implements the pipeline transition orchestrator: edge
// validation, capture gating with pending-transition tokens, the single
// authoritative stage write, and post-commit side-effect dispatch.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"salesdesk_backend/internal/actor"
	"salesdesk_backend/internal/events"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/money"
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/internal/pipeline/sideeffect"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadStore is the narrow persistence surface the orchestrator needs.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	ApplyTransition(ctx context.Context, params repository.ApplyTransitionParams) (repository.Lead, error)
}

// TransitionRequest is a requested stage change for one lead, typically
// produced by the board controller from a drop event.
type TransitionRequest struct {
	LeadID      uuid.UUID
	TargetStage domain.Stage
	BoardOrder  *float64
}

// TransitionOutcome reports how a request resolved. Exactly one of NoOp,
// AwaitingCapture, or Committed is set.
type TransitionOutcome struct {
	NoOp            bool
	AwaitingCapture bool
	Committed       bool
	Token           uuid.UUID
	CaptureKind     domain.CaptureKind
	Lead            repository.Lead
}

// pendingState models the lifecycle of a suspended transition explicitly,
// so "one pending transition per lead" is structural.
type pendingState int

const (
	stateAwaitingCapture pendingState = iota + 1
	stateCommitting
)

type pendingTransition struct {
	token      uuid.UUID
	leadID     uuid.UUID
	funnel     domain.Funnel
	from       domain.Stage
	to         domain.Stage
	kind       domain.CaptureKind
	boardOrder *float64
	state      pendingState
	createdAt  time.Time
}

// Orchestrator validates requested stage changes, suspends capture-gated
// ones behind a pending token, performs the authoritative write, and only
// then dispatches side effects.
type Orchestrator struct {
	store        LeadStore
	effects      sideeffect.Dispatcher
	bus          events.Bus
	log          *logger.Logger
	clock        func() time.Time
	pendingTTL   time.Duration
	followUpDays int

	mu      sync.Mutex
	pending map[uuid.UUID]*pendingTransition // keyed by lead ID
}

// Options tunes orchestrator behavior; zero values take defaults.
type Options struct {
	// PendingTTL is how long a suspended capture may hold its token before
	// it is considered abandoned and evicted. Stuck tokens would otherwise
	// block the lead forever.
	PendingTTL time.Duration
	// FollowUpDays is the offset of the automatic proposal follow-up.
	FollowUpDays int
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

func NewOrchestrator(store LeadStore, effects sideeffect.Dispatcher, bus events.Bus, log *logger.Logger, opts Options) *Orchestrator {
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 15 * time.Minute
	}
	if opts.FollowUpDays <= 0 {
		opts.FollowUpDays = 2
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Orchestrator{
		store:        store,
		effects:      effects,
		bus:          bus,
		log:          log,
		clock:        opts.Clock,
		pendingTTL:   opts.PendingTTL,
		followUpDays: opts.FollowUpDays,
		pending:      make(map[uuid.UUID]*pendingTransition),
	}
}

// RequestTransition handles a drop or click that asks to move a lead to
// targetStage. Capture-gated targets suspend and return a pending token;
// everything else commits immediately.
func (o *Orchestrator) RequestTransition(ctx context.Context, act actor.Context, req TransitionRequest) (TransitionOutcome, error) {
	lead, err := o.store.GetByID(ctx, req.LeadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TransitionOutcome{}, apperr.NotFound("lead not found")
		}
		return TransitionOutcome{}, err
	}

	funnel := lead.CurrentFunnel
	if !funnel.HasBoard() {
		return TransitionOutcome{}, apperr.TransitionRejected("converted leads cannot be moved")
	}

	current := lead.StageIn(funnel)
	if req.TargetStage == current {
		return TransitionOutcome{NoOp: true, Lead: lead}, nil
	}

	if !domain.IsValidTransition(funnel, current, req.TargetStage) {
		return TransitionOutcome{}, apperr.TransitionRejected("stage transition not allowed")
	}

	kind := domain.CaptureKindFor(funnel, req.TargetStage)

	pending := &pendingTransition{
		token:      uuid.New(),
		leadID:     lead.ID,
		funnel:     funnel,
		from:       current,
		to:         req.TargetStage,
		kind:       kind,
		boardOrder: req.BoardOrder,
		createdAt:  o.clock(),
	}

	if requiresCapture(kind) {
		pending.state = stateAwaitingCapture
		if err := o.admit(pending); err != nil {
			return TransitionOutcome{}, err
		}
		return TransitionOutcome{
			AwaitingCapture: true,
			Token:           pending.token,
			CaptureKind:     kind,
			Lead:            lead,
		}, nil
	}

	// No capture required: hold the token only for the duration of the write
	// so a concurrent request on the same lead is still rejected.
	pending.state = stateCommitting
	if err := o.admit(pending); err != nil {
		return TransitionOutcome{}, err
	}
	return o.commit(ctx, act, lead, pending, nil)
}

// ConfirmCapture resumes a suspended transition with the user-supplied
// payload and commits it.
func (o *Orchestrator) ConfirmCapture(ctx context.Context, act actor.Context, leadID, token uuid.UUID, payload *domain.CapturePayload) (TransitionOutcome, error) {
	o.mu.Lock()
	pending, ok := o.pending[leadID]
	if !ok || o.expired(pending) {
		delete(o.pending, leadID)
		o.mu.Unlock()
		return TransitionOutcome{}, apperr.NotFound("no pending transition for lead")
	}
	if pending.token != token {
		o.mu.Unlock()
		return TransitionOutcome{}, apperr.TransitionRejected("pending transition token mismatch")
	}
	if pending.state != stateAwaitingCapture {
		o.mu.Unlock()
		return TransitionOutcome{}, apperr.TransitionRejected("transition is already committing")
	}

	// Invalid payload keeps the token alive: the form stays open and the
	// user corrects the fields.
	if fieldErrs := domain.ValidateCapture(pending.kind, payload); len(fieldErrs) > 0 {
		o.mu.Unlock()
		return TransitionOutcome{}, apperr.Validation("invalid capture payload").WithDetails(fieldErrs)
	}

	pending.state = stateCommitting
	o.mu.Unlock()

	lead, err := o.store.GetByID(ctx, leadID)
	if err != nil {
		o.release(leadID)
		if errors.Is(err, repository.ErrNotFound) {
			return TransitionOutcome{}, apperr.NotFound("lead not found")
		}
		return TransitionOutcome{}, err
	}

	return o.commit(ctx, act, lead, pending, payload)
}

// CancelCapture discards a pending transition with zero persisted effects.
// The caller reverts any optimistic visual move.
func (o *Orchestrator) CancelCapture(leadID, token uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	pending, ok := o.pending[leadID]
	if !ok || o.expired(pending) {
		delete(o.pending, leadID)
		return apperr.NotFound("no pending transition for lead")
	}
	if pending.token != token {
		return apperr.TransitionRejected("pending transition token mismatch")
	}
	if pending.state != stateAwaitingCapture {
		return apperr.TransitionRejected("transition is already committing")
	}
	delete(o.pending, leadID)
	return nil
}

// PendingFor reports the open pending token for a lead, if any. Used by the
// board to block further drags on a suspended card.
func (o *Orchestrator) PendingFor(leadID uuid.UUID) (uuid.UUID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	pending, ok := o.pending[leadID]
	if !ok || o.expired(pending) {
		delete(o.pending, leadID)
		return uuid.Nil, false
	}
	return pending.token, true
}

func requiresCapture(kind domain.CaptureKind) bool {
	switch kind {
	case domain.CaptureMeetingOutcome, domain.CaptureProposal, domain.CaptureLoss, domain.CaptureReschedule:
		return true
	}
	// CaptureWin commits the stage on drop; the conversion workflow opens
	// afterwards on explicit confirmation.
	return false
}

// admit registers the pending transition, enforcing one per lead.
func (o *Orchestrator) admit(p *pendingTransition) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.pending[p.leadID]; ok {
		if !o.expired(existing) {
			return apperr.TransitionRejected("another transition is pending for this lead")
		}
		delete(o.pending, p.leadID)
	}
	o.pending[p.leadID] = p
	return nil
}

func (o *Orchestrator) release(leadID uuid.UUID) {
	o.mu.Lock()
	delete(o.pending, leadID)
	o.mu.Unlock()
}

func (o *Orchestrator) expired(p *pendingTransition) bool {
	// Committing tokens never expire; the write is in flight.
	return p.state == stateAwaitingCapture && o.clock().Sub(p.createdAt) > o.pendingTTL
}

// commit performs the authoritative write and, only after it succeeds,
// dispatches side effects and publishes events. The pending token is
// released either way.
func (o *Orchestrator) commit(ctx context.Context, act actor.Context, lead repository.Lead, pending *pendingTransition, payload *domain.CapturePayload) (TransitionOutcome, error) {
	defer o.release(lead.ID)

	now := o.clock()
	params, plan := o.buildTransition(lead, pending, payload, now)

	updated, err := o.store.ApplyTransition(ctx, params)
	if err != nil {
		return TransitionOutcome{}, apperr.Persistence("stage write failed", err)
	}

	o.log.StageTransition(lead.ID.String(), string(pending.funnel), string(pending.from), string(pending.to), act.Name)

	plan.run(ctx, o.effects, act)
	o.publish(ctx, act, pending, payload, now)

	return TransitionOutcome{Committed: true, Lead: updated}, nil
}

// effectPlan collects the side effects of one transition so they are
// dispatched together, strictly after the write.
type effectPlan struct {
	activities []sideeffect.ActivityParams
	followUps  []sideeffect.FollowUpParams
	notices    []sideeffect.NotifyParams
}

func (p effectPlan) run(ctx context.Context, d sideeffect.Dispatcher, act actor.Context) {
	for _, a := range p.activities {
		a.Actor = act
		d.AppendActivity(ctx, a)
	}
	for _, f := range p.followUps {
		d.ScheduleFollowUp(ctx, f)
	}
	for _, n := range p.notices {
		d.Notify(ctx, n)
	}
}

// buildTransition derives the exact fields written and side effects
// triggered by the target stage, per the capture-kind policy.
func (o *Orchestrator) buildTransition(lead repository.Lead, pending *pendingTransition, payload *domain.CapturePayload, now time.Time) (repository.ApplyTransitionParams, effectPlan) {
	params := repository.ApplyTransitionParams{
		LeadID:     lead.ID,
		Funnel:     pending.funnel,
		Stage:      pending.to,
		BoardOrder: pending.boardOrder,
	}
	var plan effectPlan

	notes := ""
	if payload != nil {
		notes = payload.Notes
	}

	switch pending.kind {
	case domain.CaptureMeetingOutcome:
		desc := notes
		if desc == "" {
			desc = "Meeting outcome recorded"
		}
		plan.activities = append(plan.activities, sideeffect.ActivityParams{
			LeadID:      lead.ID,
			Kind:        sideeffect.ActivityMeetingOutcome,
			Description: desc,
		})

	case domain.CaptureProposal:
		params.ProposalValue = &payload.ValueCents
		desc := "Proposal sent for " + money.FormatCents(payload.ValueCents)
		if notes != "" {
			desc += " - " + notes
		}
		plan.activities = append(plan.activities, sideeffect.ActivityParams{
			LeadID:      lead.ID,
			Kind:        sideeffect.ActivityProposalSent,
			Description: desc,
		})
		plan.followUps = append(plan.followUps, sideeffect.FollowUpParams{
			LeadID:      lead.ID,
			OffsetDays:  o.followUpDays,
			Description: "Follow up on proposal",
		})

	case domain.CaptureLoss:
		params.LossReasonID = &payload.LossReasonID
		lossDate := now
		params.LossDate = &lossDate
		if payload.ReviveAsCold {
			cold := domain.FunnelCold
			coldStage := domain.InitialStage(domain.FunnelCold)
			params.SetFunnel = &cold
			params.SetColdStage = &coldStage
		}
		desc := "Lead marked as lost"
		if notes != "" {
			desc += " - " + notes
		}
		plan.activities = append(plan.activities, sideeffect.ActivityParams{
			LeadID:      lead.ID,
			Kind:        sideeffect.ActivityLeadLost,
			Description: desc,
		})

	case domain.CaptureReschedule:
		params.MeetingAt = &payload.MeetingAt
		if pending.funnel == domain.FunnelProspecting && pending.to == domain.StageMeetingBooked {
			// Booking the first meeting hands the lead to the closing funnel.
			closing := domain.FunnelClosing
			closingStage := domain.InitialStage(domain.FunnelClosing)
			params.SetFunnel = &closing
			params.SetClosingStage = &closingStage
		}
		desc := "Meeting set for " + payload.MeetingAt.Format("2006-01-02 15:04")
		if notes != "" {
			desc += " - " + notes
		}
		plan.activities = append(plan.activities, sideeffect.ActivityParams{
			LeadID:      lead.ID,
			Kind:        sideeffect.ActivityRescheduled,
			Description: desc,
		})

	case domain.CaptureWin:
		// Stage only. The conversion workflow appends its own records once
		// the user explicitly confirms.

	default:
		if pending.to == domain.StageNoShow {
			plan.activities = append(plan.activities, sideeffect.ActivityParams{
				LeadID:      lead.ID,
				Kind:        sideeffect.ActivityNoShow,
				Description: "Lead did not show up for the meeting",
			})
			if lead.ProspectingOwner != nil {
				plan.notices = append(plan.notices, sideeffect.NotifyParams{
					RecipientID: *lead.ProspectingOwner,
					Kind:        sideeffect.NotifyNoShow,
					Title:       "Lead no-show",
					Message:     lead.Name + " did not show up for the scheduled meeting",
					DeepLink:    "/leads/" + lead.ID.String(),
					Payload:     map[string]any{"leadId": lead.ID.String()},
				})
			}
		}
	}

	return params, plan
}

func (o *Orchestrator) publish(ctx context.Context, act actor.Context, pending *pendingTransition, payload *domain.CapturePayload, now time.Time) {
	if o.bus == nil {
		return
	}

	o.bus.Publish(ctx, events.LeadStageChanged{
		BaseEvent: events.BaseEvent{Timestamp: now},
		LeadID:    pending.leadID,
		Funnel:    pending.funnel,
		From:      pending.from,
		To:        pending.to,
		Actor:     act.UserID,
	})

	switch pending.kind {
	case domain.CaptureLoss:
		revived := payload != nil && payload.ReviveAsCold
		var reason uuid.UUID
		if payload != nil {
			reason = payload.LossReasonID
		}
		o.bus.Publish(ctx, events.LeadLost{
			BaseEvent:    events.BaseEvent{Timestamp: now},
			LeadID:       pending.leadID,
			Funnel:       pending.funnel,
			LossReasonID: reason,
			RevivedCold:  revived,
		})
	case domain.CaptureWin:
		o.bus.Publish(ctx, events.LeadWon{
			BaseEvent: events.BaseEvent{Timestamp: now},
			LeadID:    pending.leadID,
			Actor:     act.UserID,
		})
	}
}
