// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"salesdesk_backend/internal/pipeline/domain"
	"salesdesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the prospecting funnel.
type LeadCreated struct {
	BaseEvent
	LeadID   uuid.UUID  `json:"leadId"`
	Name     string     `json:"name"`
	OwnerID  *uuid.UUID `json:"ownerId,omitempty"`
	OriginID *uuid.UUID `json:"originId,omitempty"`
}

func (e LeadCreated) EventName() string { return "pipeline.lead.created" }

// LeadStageChanged is published after the authoritative write of any stage
// transition commits.
type LeadStageChanged struct {
	BaseEvent
	LeadID uuid.UUID     `json:"leadId"`
	Funnel domain.Funnel `json:"funnel"`
	From   domain.Stage  `json:"from"`
	To     domain.Stage  `json:"to"`
	Actor  uuid.UUID     `json:"actor"`
}

func (e LeadStageChanged) EventName() string { return "pipeline.lead.stage_changed" }

// LeadLost is published when a lead reaches a loss stage.
type LeadLost struct {
	BaseEvent
	LeadID       uuid.UUID     `json:"leadId"`
	Funnel       domain.Funnel `json:"funnel"`
	LossReasonID uuid.UUID     `json:"lossReasonId"`
	RevivedCold  bool          `json:"revivedCold"`
}

func (e LeadLost) EventName() string { return "pipeline.lead.lost" }

// LeadWon is published when a lead enters the win stage of the closing
// funnel. Conversion itself is a separate, explicitly confirmed workflow.
type LeadWon struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Actor  uuid.UUID `json:"actor"`
}

func (e LeadWon) EventName() string { return "pipeline.lead.won" }

// LeadConverted is published after a won lead has been materialized into a
// billable client.
type LeadConverted struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	ClientID        uuid.UUID `json:"clientId"`
	FeeMonthlyCents int64     `json:"feeMonthlyCents"`
	ServiceCount    int       `json:"serviceCount"`
}

func (e LeadConverted) EventName() string { return "pipeline.lead.converted" }

// FollowUpScheduled is published when a follow-up is created for a lead.
type FollowUpScheduled struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	FollowUpID uuid.UUID `json:"followUpId"`
}

func (e FollowUpScheduled) EventName() string { return "pipeline.followup.scheduled" }
