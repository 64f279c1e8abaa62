// Package transport defines the request and response shapes of the pipeline
// board API.
package transport

import (
	"time"

	"salesdesk_backend/internal/leads/transport"
	"salesdesk_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// MoveRequest is the drop event reported by the board's drag sensor. Either
// TargetStage (column drop) or TargetCardID (card drop) is set.
type MoveRequest struct {
	TargetStage  domain.Stage `json:"targetStage,omitempty"`
	TargetCardID *uuid.UUID   `json:"targetCardId,omitempty"`
	DeltaX       float64      `json:"deltaX"`
	DeltaY       float64      `json:"deltaY"`
}

// CaptureRequest carries the stage-specific fields collected by the capture
// dialog.
type CaptureRequest struct {
	Notes        string     `json:"notes,omitempty" validate:"max=2000"`
	ValueCents   int64      `json:"valueCents,omitempty"`
	LossReasonID *uuid.UUID `json:"lossReasonId,omitempty"`
	ReviveAsCold bool       `json:"reviveAsCold,omitempty"`
	MeetingAt    *time.Time `json:"meetingAt,omitempty"`
}

func (r CaptureRequest) ToPayload() *domain.CapturePayload {
	payload := &domain.CapturePayload{
		Notes:        r.Notes,
		ValueCents:   r.ValueCents,
		ReviveAsCold: r.ReviveAsCold,
	}
	if r.LossReasonID != nil {
		payload.LossReasonID = *r.LossReasonID
	}
	if r.MeetingAt != nil {
		payload.MeetingAt = *r.MeetingAt
	}
	return payload
}

// MoveResponse reports how the drop resolved. AwaitingCapture responses
// carry the pending token the client must confirm or cancel with.
type MoveResponse struct {
	Status      string                  `json:"status"` // click, noop, committed, awaiting_capture
	Token       *uuid.UUID              `json:"token,omitempty"`
	CaptureKind domain.CaptureKind      `json:"captureKind,omitempty"`
	Lead        *transport.LeadResponse `json:"lead,omitempty"`
}

type BoardColumnResponse struct {
	Meta  domain.StageMeta         `json:"meta"`
	Leads []transport.LeadResponse `json:"leads"`
}

type BoardResponse struct {
	Funnel  domain.Funnel         `json:"funnel"`
	Columns []BoardColumnResponse `json:"columns"`
}
