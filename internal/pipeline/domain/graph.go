package domain

// funnelGraph declares, for one funnel, the ordered stage list, the legal
// edges between stages, and which target stages are capture-gated.
//
// Legality is compiled into this adjacency table; the free-form labels and
// colors in stageMeta are data for the UI and play no part in validation.
type funnelGraph struct {
	stages   []Stage
	edges    map[Stage][]Stage
	captures map[Stage]CaptureKind
}

var graphs = map[Funnel]funnelGraph{
	FunnelProspecting: {
		stages: []Stage{
			StageNewLead,
			StageContactAttempted,
			StageContacted,
			StageMeetingBooked,
			StageProspectLost,
		},
		edges: map[Stage][]Stage{
			StageNewLead:          {StageContactAttempted, StageContacted, StageProspectLost},
			StageContactAttempted: {StageNewLead, StageContacted, StageProspectLost},
			StageContacted:        {StageContactAttempted, StageMeetingBooked, StageProspectLost},
			// meeting_booked hands the lead to the closing funnel; it has no
			// outgoing prospecting edges.
			StageMeetingBooked: {},
			StageProspectLost:  {},
		},
		captures: map[Stage]CaptureKind{
			StageMeetingBooked: CaptureReschedule,
			StageProspectLost:  CaptureLoss,
		},
	},
	FunnelClosing: {
		stages: []Stage{
			StageMeetingScheduled,
			StageNoShow,
			StageRescheduled,
			StageMeetingDone,
			StageProposalSent,
			StageNegotiation,
			StageWon,
			StageLost,
		},
		edges: map[Stage][]Stage{
			StageMeetingScheduled: {StageNoShow, StageRescheduled, StageMeetingDone, StageLost},
			StageNoShow:           {StageRescheduled, StageMeetingScheduled, StageLost},
			StageRescheduled:      {StageMeetingScheduled, StageNoShow, StageMeetingDone, StageLost},
			StageMeetingDone:      {StageProposalSent, StageRescheduled, StageLost},
			StageProposalSent:     {StageNegotiation, StageMeetingDone, StageWon, StageLost},
			StageNegotiation:      {StageProposalSent, StageWon, StageLost},
			StageWon:              {},
			StageLost:             {},
		},
		captures: map[Stage]CaptureKind{
			StageMeetingDone:  CaptureMeetingOutcome,
			StageProposalSent: CaptureProposal,
			StageRescheduled:  CaptureReschedule,
			StageLost:         CaptureLoss,
			StageWon:          CaptureWin,
		},
	},
	FunnelCold: {
		stages: []Stage{
			StageColdPool,
			StageReEngaging,
			StageRequalified,
		},
		edges: map[Stage][]Stage{
			StageColdPool:    {StageReEngaging},
			StageReEngaging:  {StageColdPool, StageRequalified},
			StageRequalified: {},
		},
		captures: map[Stage]CaptureKind{},
	},
}

// Stages returns the ordered stage list of a funnel. The converted
// pseudo-funnel has none.
func Stages(f Funnel) []Stage {
	g, ok := graphs[f]
	if !ok {
		return nil
	}
	out := make([]Stage, len(g.stages))
	copy(out, g.stages)
	return out
}

// InitialStage returns the first stage of a funnel's progression.
func InitialStage(f Funnel) Stage {
	g, ok := graphs[f]
	if !ok || len(g.stages) == 0 {
		return ""
	}
	return g.stages[0]
}

// IsKnownStage reports whether stage belongs to funnel f.
func IsKnownStage(f Funnel, stage Stage) bool {
	g, ok := graphs[f]
	if !ok {
		return false
	}
	for _, s := range g.stages {
		if s == stage {
			return true
		}
	}
	return false
}

// IsValidTransition reports whether (from, to) is a declared edge of the
// funnel. Any pair not declared here is rejected with no state change.
func IsValidTransition(f Funnel, from, to Stage) bool {
	g, ok := graphs[f]
	if !ok {
		return false
	}
	for _, next := range g.edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CaptureKindFor returns the data-capture step required before committing a
// transition into the target stage, or CaptureNone.
func CaptureKindFor(f Funnel, target Stage) CaptureKind {
	g, ok := graphs[f]
	if !ok {
		return CaptureNone
	}
	if kind, ok := g.captures[target]; ok {
		return kind
	}
	return CaptureNone
}

// IsTerminalStage reports whether the stage has no outgoing edges.
func IsTerminalStage(f Funnel, stage Stage) bool {
	g, ok := graphs[f]
	if !ok {
		return true
	}
	return len(g.edges[stage]) == 0
}
