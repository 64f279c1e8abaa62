package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"salesdesk_backend/internal/actor"
	"salesdesk_backend/internal/leads/repository"
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/internal/pipeline/sideeffect"
	"salesdesk_backend/platform/apperr"
	"salesdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	leads      map[uuid.UUID]repository.Lead
	failWrites bool
	writes     int
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) ApplyTransition(_ context.Context, p repository.ApplyTransitionParams) (repository.Lead, error) {
	if f.failWrites {
		return repository.Lead{}, errors.New("connection reset")
	}
	lead, ok := f.leads[p.LeadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}

	switch p.Funnel {
	case domain.FunnelProspecting:
		lead.ProspectingStage = p.Stage
	case domain.FunnelClosing:
		lead.ClosingStage = p.Stage
	case domain.FunnelCold:
		lead.ColdStage = p.Stage
	}
	if p.BoardOrder != nil {
		lead.BoardOrder = *p.BoardOrder
	}
	if p.SetFunnel != nil {
		lead.CurrentFunnel = *p.SetFunnel
	}
	if p.SetColdStage != nil {
		lead.ColdStage = *p.SetColdStage
	}
	if p.SetClosingStage != nil {
		lead.ClosingStage = *p.SetClosingStage
	}
	if p.ProposalValue != nil {
		lead.ProposalValue = p.ProposalValue
	}
	if p.MeetingAt != nil {
		lead.MeetingAt = p.MeetingAt
	}
	if p.LossReasonID != nil {
		lead.LossReasonID = p.LossReasonID
	}
	if p.LossDate != nil {
		lead.LossDate = p.LossDate
	}

	f.leads[p.LeadID] = lead
	f.writes++
	return lead, nil
}

type recordingDispatcher struct {
	activities []sideeffect.ActivityParams
	followUps  []sideeffect.FollowUpParams
	notices    []sideeffect.NotifyParams
}

func (r *recordingDispatcher) AppendActivity(_ context.Context, p sideeffect.ActivityParams) {
	r.activities = append(r.activities, p)
}

func (r *recordingDispatcher) ScheduleFollowUp(_ context.Context, p sideeffect.FollowUpParams) {
	r.followUps = append(r.followUps, p)
}

func (r *recordingDispatcher) Notify(_ context.Context, p sideeffect.NotifyParams) {
	r.notices = append(r.notices, p)
}

var testNow = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

func newTestOrchestrator(leads ...repository.Lead) (*Orchestrator, *fakeStore, *recordingDispatcher) {
	store := &fakeStore{leads: make(map[uuid.UUID]repository.Lead)}
	for _, l := range leads {
		store.leads[l.ID] = l
	}
	effects := &recordingDispatcher{}
	o := NewOrchestrator(store, effects, nil, logger.New("development"), Options{
		Clock: func() time.Time { return testNow },
	})
	return o, store, effects
}

func closingLead(stage domain.Stage) repository.Lead {
	return repository.Lead{
		ID:            uuid.New(),
		Name:          "Acme Corp",
		CurrentFunnel: domain.FunnelClosing,
		ClosingStage:  stage,
	}
}

func testActor() actor.Context {
	return actor.Context{UserID: uuid.New(), Name: "Dana", Role: actor.RoleClosing}
}

func TestRequestTransition_RejectsUndeclaredEdge(t *testing.T) {
	lead := closingLead(domain.StageMeetingScheduled)
	o, store, effects := newTestOrchestrator(lead)

	_, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageWon,
	})
	if !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected transition rejection, got %v", err)
	}
	if store.writes != 0 {
		t.Fatalf("expected zero writes, got %d", store.writes)
	}
	if len(effects.activities) != 0 {
		t.Fatalf("expected zero activities, got %d", len(effects.activities))
	}
	if got := store.leads[lead.ID].ClosingStage; got != domain.StageMeetingScheduled {
		t.Fatalf("stage changed to %s on rejected transition", got)
	}
}

func TestRequestTransition_UnknownLead(t *testing.T) {
	o, _, _ := newTestOrchestrator()
	_, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      uuid.New(),
		TargetStage: domain.StageMeetingDone,
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRequestTransition_NoOpOnSameStage(t *testing.T) {
	lead := closingLead(domain.StageNegotiation)
	o, store, _ := newTestOrchestrator(lead)

	out, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageNegotiation,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.NoOp {
		t.Fatalf("expected a no-op outcome")
	}
	if store.writes != 0 {
		t.Fatalf("no-op must not write, got %d writes", store.writes)
	}
}

func TestRequestTransition_SuspendsOnCaptureGatedTarget(t *testing.T) {
	lead := closingLead(domain.StageMeetingScheduled)
	o, store, effects := newTestOrchestrator(lead)

	out, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageMeetingDone,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.AwaitingCapture || out.Token == uuid.Nil {
		t.Fatalf("expected awaiting-capture outcome with a token, got %+v", out)
	}
	if out.CaptureKind != domain.CaptureMeetingOutcome {
		t.Fatalf("expected meeting_outcome capture, got %s", out.CaptureKind)
	}
	if store.writes != 0 {
		t.Fatalf("suspension must not write, got %d writes", store.writes)
	}
	if len(effects.activities)+len(effects.followUps)+len(effects.notices) != 0 {
		t.Fatalf("suspension must not dispatch side effects")
	}
}

func TestRequestTransition_SecondRequestWhilePendingIsRejected(t *testing.T) {
	lead := closingLead(domain.StageMeetingScheduled)
	o, _, _ := newTestOrchestrator(lead)

	if _, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageMeetingDone,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageLost,
	})
	if !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected rejection of concurrent transition, got %v", err)
	}
}

func TestCancelCapture_LeavesEverythingUntouched(t *testing.T) {
	lead := closingLead(domain.StageMeetingScheduled)
	o, store, effects := newTestOrchestrator(lead)

	out, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageMeetingDone,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := o.CancelCapture(lead.ID, out.Token); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if store.writes != 0 {
		t.Fatalf("cancel must not write, got %d writes", store.writes)
	}
	if len(effects.activities)+len(effects.followUps)+len(effects.notices) != 0 {
		t.Fatalf("cancel must not dispatch side effects")
	}
	if got := store.leads[lead.ID].ClosingStage; got != domain.StageMeetingScheduled {
		t.Fatalf("stage changed to %s after cancel", got)
	}

	// The lead accepts a new transition after cancellation.
	if _, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageNoShow,
	}); err != nil {
		t.Fatalf("expected lead to accept a new transition after cancel, got %v", err)
	}
}

func TestConfirmCapture_Proposal(t *testing.T) {
	lead := closingLead(domain.StageMeetingDone)
	o, store, effects := newTestOrchestrator(lead)
	act := testActor()

	out, err := o.RequestTransition(context.Background(), act, TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageProposalSent,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	committed, err := o.ConfirmCapture(context.Background(), act, lead.ID, out.Token, &domain.CapturePayload{
		ValueCents: 150000,
	})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if !committed.Committed {
		t.Fatalf("expected committed outcome, got %+v", committed)
	}

	updated := store.leads[lead.ID]
	if updated.ClosingStage != domain.StageProposalSent {
		t.Fatalf("expected stage proposal_sent, got %s", updated.ClosingStage)
	}
	if updated.ProposalValue == nil || *updated.ProposalValue != 150000 {
		t.Fatalf("expected proposal value 150000, got %v", updated.ProposalValue)
	}

	if len(effects.activities) != 1 {
		t.Fatalf("expected exactly one activity, got %d", len(effects.activities))
	}
	if !strings.Contains(effects.activities[0].Description, "1500") {
		t.Fatalf("expected activity description to contain the value, got %q", effects.activities[0].Description)
	}
	if len(effects.followUps) != 1 {
		t.Fatalf("expected exactly one follow-up, got %d", len(effects.followUps))
	}
	if effects.followUps[0].OffsetDays != 2 {
		t.Fatalf("expected follow-up at now+2d, got offset %d", effects.followUps[0].OffsetDays)
	}
}

func TestConfirmCapture_ProposalValueValidation(t *testing.T) {
	lead := closingLead(domain.StageMeetingDone)
	o, store, _ := newTestOrchestrator(lead)
	act := testActor()

	out, err := o.RequestTransition(context.Background(), act, TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageProposalSent,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = o.ConfirmCapture(context.Background(), act, lead.ID, out.Token, &domain.CapturePayload{ValueCents: 0})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.writes != 0 {
		t.Fatalf("validation failure must not write")
	}

	// The token survives a validation failure so the form can be corrected.
	if _, err := o.ConfirmCapture(context.Background(), act, lead.ID, out.Token, &domain.CapturePayload{ValueCents: 50000}); err != nil {
		t.Fatalf("expected corrected payload to commit, got %v", err)
	}
}

func TestConfirmCapture_LossRevivedAsCold(t *testing.T) {
	lead := closingLead(domain.StageNegotiation)
	o, store, effects := newTestOrchestrator(lead)
	act := testActor()
	reason := uuid.New()

	out, err := o.RequestTransition(context.Background(), act, TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageLost,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := o.ConfirmCapture(context.Background(), act, lead.ID, out.Token, &domain.CapturePayload{
		LossReasonID: reason,
		ReviveAsCold: true,
	}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	updated := store.leads[lead.ID]
	if updated.CurrentFunnel != domain.FunnelCold {
		t.Fatalf("expected cold funnel, got %s", updated.CurrentFunnel)
	}
	if updated.ColdStage != domain.StageColdPool {
		t.Fatalf("expected cold stage reset to %s, got %s", domain.StageColdPool, updated.ColdStage)
	}
	if updated.LossDate == nil || !updated.LossDate.Equal(testNow) {
		t.Fatalf("expected loss date %v, got %v", testNow, updated.LossDate)
	}
	if updated.LossReasonID == nil || *updated.LossReasonID != reason {
		t.Fatalf("expected loss reason %s, got %v", reason, updated.LossReasonID)
	}
	if len(effects.activities) != 1 {
		t.Fatalf("expected exactly one activity, got %d", len(effects.activities))
	}
}

func TestNoShow_NotifiesProspectingOwner(t *testing.T) {
	owner := uuid.New()
	lead := closingLead(domain.StageMeetingScheduled)
	lead.ProspectingOwner = &owner
	o, _, effects := newTestOrchestrator(lead)

	out, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageNoShow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Committed {
		t.Fatalf("no-show has no capture; expected immediate commit, got %+v", out)
	}

	if len(effects.activities) != 1 {
		t.Fatalf("expected exactly one activity, got %d", len(effects.activities))
	}
	if len(effects.notices) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(effects.notices))
	}
	if effects.notices[0].RecipientID != owner {
		t.Fatalf("notification went to %s, expected prospecting owner %s", effects.notices[0].RecipientID, owner)
	}
}

func TestNoShow_WithoutOwnerStillRecordsActivity(t *testing.T) {
	lead := closingLead(domain.StageMeetingScheduled)
	o, _, effects := newTestOrchestrator(lead)

	if _, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageNoShow,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(effects.notices) != 0 {
		t.Fatalf("expected zero notifications, got %d", len(effects.notices))
	}
	if len(effects.activities) != 1 {
		t.Fatalf("expected exactly one activity, got %d", len(effects.activities))
	}
}

func TestMeetingOutcome_EndToEnd(t *testing.T) {
	lead := closingLead(domain.StageMeetingScheduled)
	o, store, effects := newTestOrchestrator(lead)
	act := testActor()

	out, err := o.RequestTransition(context.Background(), act, TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageMeetingDone,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := o.ConfirmCapture(context.Background(), act, lead.ID, out.Token, &domain.CapturePayload{
		Notes: "went well",
	}); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	updated := store.leads[lead.ID]
	if updated.ClosingStage != domain.StageMeetingDone {
		t.Fatalf("expected stage meeting_done, got %s", updated.ClosingStage)
	}
	if updated.CurrentFunnel != domain.FunnelClosing {
		t.Fatalf("funnel must remain closing, got %s", updated.CurrentFunnel)
	}
	if len(effects.activities) != 1 || effects.activities[0].Description != "went well" {
		t.Fatalf("expected one activity with the captured notes, got %+v", effects.activities)
	}
}

func TestPersistenceFailure_ProducesZeroSideEffects(t *testing.T) {
	lead := closingLead(domain.StageMeetingScheduled)
	o, store, effects := newTestOrchestrator(lead)
	store.failWrites = true

	_, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageNoShow,
	})
	if !apperr.Is(err, apperr.KindPersistence) {
		t.Fatalf("expected persistence failure, got %v", err)
	}
	if len(effects.activities)+len(effects.followUps)+len(effects.notices) != 0 {
		t.Fatalf("failed write must produce zero side effects")
	}

	// The token is released; a retry is possible.
	store.failWrites = false
	if _, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageNoShow,
	}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestPendingTokenExpiry(t *testing.T) {
	lead := closingLead(domain.StageMeetingScheduled)
	store := &fakeStore{leads: map[uuid.UUID]repository.Lead{lead.ID: lead}}
	now := testNow
	o := NewOrchestrator(store, &recordingDispatcher{}, nil, logger.New("development"), Options{
		PendingTTL: 10 * time.Minute,
		Clock:      func() time.Time { return now },
	})
	act := testActor()

	out, err := o.RequestTransition(context.Background(), act, TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageMeetingDone,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now = now.Add(11 * time.Minute)

	if _, err := o.ConfirmCapture(context.Background(), act, lead.ID, out.Token, nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected expired token to be gone, got %v", err)
	}

	// The abandoned token no longer blocks the lead.
	if _, err := o.RequestTransition(context.Background(), act, TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageLost,
	}); err != nil {
		t.Fatalf("expected new transition after expiry, got %v", err)
	}
}

func TestWin_CommitsStageWithoutActivity(t *testing.T) {
	lead := closingLead(domain.StageNegotiation)
	o, store, effects := newTestOrchestrator(lead)

	out, err := o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageWon,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Committed {
		t.Fatalf("win commits on drop; got %+v", out)
	}
	if store.leads[lead.ID].ClosingStage != domain.StageWon {
		t.Fatalf("expected stage won, got %s", store.leads[lead.ID].ClosingStage)
	}
	// The celebratory activity belongs to the conversion workflow.
	if len(effects.activities) != 0 {
		t.Fatalf("expected no activity on win drop, got %d", len(effects.activities))
	}

	// Won is terminal.
	_, err = o.RequestTransition(context.Background(), testActor(), TransitionRequest{
		LeadID:      lead.ID,
		TargetStage: domain.StageLost,
	})
	if !apperr.Is(err, apperr.KindTransitionRejected) {
		t.Fatalf("expected won to be terminal, got %v", err)
	}
}
