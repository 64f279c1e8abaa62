// Package domain provides core business rules for the sales pipeline:
// funnels, stages, the compiled transition graph, and capture gating.
package domain

// Funnel is one of the pipelines a lead can occupy. A lead belongs to
// exactly one funnel at a time; per-funnel stage fields persist as history
// when the lead moves on.
type Funnel string

const (
	FunnelProspecting Funnel = "prospecting"
	FunnelClosing     Funnel = "closing"
	FunnelCold        Funnel = "cold"
	// FunnelConverted is a terminal pseudo-funnel: converted leads carry no
	// active stage and never re-enter a board.
	FunnelConverted Funnel = "converted"
)

// IsKnownFunnel reports whether f is a declared funnel value.
func IsKnownFunnel(f Funnel) bool {
	switch f {
	case FunnelProspecting, FunnelClosing, FunnelCold, FunnelConverted:
		return true
	}
	return false
}

// HasBoard reports whether the funnel has a drag-and-drop board with stages.
func (f Funnel) HasBoard() bool {
	return f == FunnelProspecting || f == FunnelClosing || f == FunnelCold
}
