package domain

import (
	"time"

	"github.com/google/uuid"
)

// CapturePayload carries the user-supplied data for a capture-gated
// transition. Fields are interpreted according to the CaptureKind of the
// target stage; irrelevant fields are ignored.
type CapturePayload struct {
	// Notes is accepted by every capture kind.
	Notes string

	// ValueCents is the proposal value. Required (> 0) for CaptureProposal.
	ValueCents int64

	// LossReasonID identifies why the lead was lost. Required for CaptureLoss.
	LossReasonID uuid.UUID
	// ReviveAsCold moves a lost lead into the cold funnel instead of
	// terminating it.
	ReviveAsCold bool

	// MeetingAt is the new meeting date/time. Required for CaptureReschedule.
	MeetingAt time.Time
}

// FieldError describes a single invalid capture field for inline display.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateCapture checks the payload against the requirements of the capture
// kind. A nil payload is only acceptable for CaptureNone and CaptureWin.
func ValidateCapture(kind CaptureKind, p *CapturePayload) []FieldError {
	switch kind {
	case CaptureNone, CaptureWin:
		return nil
	case CaptureMeetingOutcome:
		// Notes are optional.
		return nil
	case CaptureProposal:
		if p == nil || p.ValueCents <= 0 {
			return []FieldError{{Field: "value", Message: "proposal value must be greater than zero"}}
		}
		return nil
	case CaptureLoss:
		if p == nil || p.LossReasonID == uuid.Nil {
			return []FieldError{{Field: "lossReasonId", Message: "loss reason is required"}}
		}
		return nil
	case CaptureReschedule:
		if p == nil || p.MeetingAt.IsZero() {
			return []FieldError{{Field: "meetingAt", Message: "meeting date is required"}}
		}
		return nil
	}
	return []FieldError{{Field: "captureKind", Message: "unknown capture kind"}}
}
