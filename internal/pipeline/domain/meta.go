package domain

// stageMeta holds default display metadata per stage. Deployments may
// override labels and colors from storage; the values here are fallbacks.
// None of this participates in transition legality.
var stageMeta = map[Stage]StageMeta{
	StageNewLead:          {Stage: StageNewLead, Label: "New lead", Color: "#3b82f6"},
	StageContactAttempted: {Stage: StageContactAttempted, Label: "Contact attempted", Color: "#6366f1"},
	StageContacted:        {Stage: StageContacted, Label: "Contacted", Color: "#8b5cf6"},
	StageMeetingBooked:    {Stage: StageMeetingBooked, Label: "Meeting booked", Color: "#0ea5e9"},
	StageProspectLost:     {Stage: StageProspectLost, Label: "Lost", Color: "#6b7280", DefaultCollapsed: true},

	StageMeetingScheduled: {Stage: StageMeetingScheduled, Label: "Meeting scheduled", Color: "#0ea5e9"},
	StageNoShow:           {Stage: StageNoShow, Label: "No-show", Color: "#f59e0b", DefaultCollapsed: true},
	StageRescheduled:      {Stage: StageRescheduled, Label: "Rescheduled", Color: "#f97316"},
	StageMeetingDone:      {Stage: StageMeetingDone, Label: "Meeting done", Color: "#8b5cf6"},
	StageProposalSent:     {Stage: StageProposalSent, Label: "Proposal sent", Color: "#ec4899"},
	StageNegotiation:      {Stage: StageNegotiation, Label: "Negotiation", Color: "#d946ef"},
	StageWon:              {Stage: StageWon, Label: "Won", Color: "#22c55e"},
	StageLost:             {Stage: StageLost, Label: "Lost", Color: "#6b7280", DefaultCollapsed: true},

	StageColdPool:    {Stage: StageColdPool, Label: "Cold pool", Color: "#94a3b8"},
	StageReEngaging:  {Stage: StageReEngaging, Label: "Re-engaging", Color: "#64748b"},
	StageRequalified: {Stage: StageRequalified, Label: "Requalified", Color: "#10b981"},
}

// MetaFor returns display metadata for a stage.
func MetaFor(stage Stage) StageMeta {
	if m, ok := stageMeta[stage]; ok {
		return m
	}
	return StageMeta{Stage: stage, Label: string(stage)}
}

// BoardMeta returns display metadata for every stage of a funnel, in order.
func BoardMeta(f Funnel) []StageMeta {
	stages := Stages(f)
	out := make([]StageMeta, 0, len(stages))
	for _, s := range stages {
		out = append(out, MetaFor(s))
	}
	return out
}
