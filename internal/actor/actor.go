// Package actor defines the explicit acting-user context threaded into every
// orchestrator and dispatcher call. There is no ambient "current user": the
// HTTP layer builds a Context from the authenticated identity and passes it
// down explicitly.
package actor

import "github.com/google/uuid"

// Roles understood by the pipeline core. Display names live with the
// identity provider; these are the values carried in token claims.
const (
	RoleProspecting = "prospecting"
	RoleClosing     = "closing"
	RoleManager     = "manager"
)

// Context identifies who performs an operation.
type Context struct {
	UserID uuid.UUID
	Name   string
	Role   string
}

// System is the actor recorded for writes the system performs on its own
// behalf (scheduled jobs, automatic side effects).
func System() Context {
	return Context{Name: "System", Role: "system"}
}

// IsZero reports whether the context carries no user.
func (c Context) IsZero() bool {
	return c.UserID == uuid.Nil && c.Name == ""
}
