// Package sideeffect produces the non-authoritative records that follow a
// committed stage transition: audit activities, scheduled follow-ups, and
// cross-role notifications.
//
// All dispatch is asynchronous, best-effort, at-most-once. Failures are
// logged and never surface to the user; they never roll back the stage
// write that preceded them.
package sideeffect

import (
	"context"

	"salesdesk_backend/internal/actor"
	notifrepo "salesdesk_backend/internal/notification/repository"

	"github.com/google/uuid"
)

type ActivityParams struct {
	LeadID      uuid.UUID
	Kind        string
	Description string
	Actor       actor.Context
}

type FollowUpParams struct {
	LeadID      uuid.UUID
	OffsetDays  int
	Description string
}

type NotifyParams struct {
	RecipientID uuid.UUID
	Kind        string
	Title       string
	Message     string
	DeepLink    string
	Payload     map[string]any
}

// Dispatcher is invoked by the orchestrator strictly after the authoritative
// stage write succeeds, never before.
type Dispatcher interface {
	AppendActivity(ctx context.Context, p ActivityParams)
	ScheduleFollowUp(ctx context.Context, p FollowUpParams)
	Notify(ctx context.Context, p NotifyParams)
}

// Activity kinds recorded by pipeline transitions.
const (
	ActivityStageChange    = "stage_change"
	ActivityMeetingOutcome = "meeting_outcome"
	ActivityProposalSent   = "proposal_sent"
	ActivityLeadLost       = "lead_lost"
	ActivityNoShow         = "no_show"
	ActivityRescheduled    = "meeting_rescheduled"
	ActivityConversion     = "conversion"
)

// Notification kinds emitted by the pipeline, shared with the store so the
// scheduler and event handlers write the same kind strings.
const (
	NotifyNoShow      = notifrepo.KindNoShow
	NotifyFollowUpDue = notifrepo.KindFollowUpDue
	NotifyConverted   = notifrepo.KindConverted
)
