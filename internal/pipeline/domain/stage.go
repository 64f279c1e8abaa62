package domain

// Stage is a named step within a funnel's ordered progression.
type Stage string

// Prospecting funnel stages.
const (
	StageNewLead          Stage = "new_lead"
	StageContactAttempted Stage = "contact_attempted"
	StageContacted        Stage = "contacted"
	StageMeetingBooked    Stage = "meeting_booked"
	StageProspectLost     Stage = "prospect_lost"
)

// Closing funnel stages.
const (
	StageMeetingScheduled Stage = "meeting_scheduled"
	StageNoShow           Stage = "no_show"
	StageRescheduled      Stage = "rescheduled"
	StageMeetingDone      Stage = "meeting_done"
	StageProposalSent     Stage = "proposal_sent"
	StageNegotiation      Stage = "negotiation"
	StageWon              Stage = "won"
	StageLost             Stage = "lost"
)

// Cold funnel stages.
const (
	StageColdPool    Stage = "cold_pool"
	StageReEngaging  Stage = "re_engaging"
	StageRequalified Stage = "requalified"
)

// CaptureKind identifies the data-capture step required before a transition
// into a gated stage may commit. CaptureNone commits immediately on drop.
type CaptureKind string

const (
	CaptureNone           CaptureKind = "none"
	CaptureMeetingOutcome CaptureKind = "meeting_outcome"
	CaptureProposal       CaptureKind = "proposal"
	CaptureLoss           CaptureKind = "loss"
	CaptureReschedule     CaptureKind = "reschedule"
	CaptureWin            CaptureKind = "win"
)

// StageMeta is display metadata for a stage. It is cosmetic only and is
// never consulted for transition legality.
type StageMeta struct {
	Stage            Stage  `json:"stage"`
	Label            string `json:"label"`
	Color            string `json:"color"`
	DefaultCollapsed bool   `json:"defaultCollapsed"`
}
