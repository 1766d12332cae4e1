// Package models defines the records persisted by the workflow engine,
// the audit log and the holiday store.
package models

import "time"

// WorkflowEntry is one phase occupancy of a dossier. ExitedAt is nil while
// the dossier sits in the phase; at most one entry per dossier is open.
// Seq numbers the entries of a dossier from 1 in the order they were opened.
type WorkflowEntry struct {
	ID          string     `json:"id"`
	DossierID   string     `json:"dossier_id"`
	Seq         int64      `json:"seq"`
	PhaseID     int        `json:"phase_id"`
	EnteredAt   time.Time  `json:"entered_at"`
	ExitedAt    *time.Time `json:"exited_at,omitempty"`
	ActorUserID string     `json:"actor_user_id"`
	Comment     string     `json:"comment"`
}

// Open reports whether the entry is the dossier's current phase.
func (e *WorkflowEntry) Open() bool {
	return e.ExitedAt == nil
}

// DossierStatus is the lifecycle status of a dossier. It is influenced by,
// but distinct from, the workflow phase.
type DossierStatus string

const (
	StatusDraft         DossierStatus = "draft"
	StatusSubmitted     DossierStatus = "submitted"
	StatusInReview      DossierStatus = "in-review"
	StatusInRealization DossierStatus = "in-realization"
	StatusApproved      DossierStatus = "approved"
	StatusRejected      DossierStatus = "rejected"
	StatusArchived      DossierStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s DossierStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusInReview, StatusInRealization,
		StatusApproved, StatusRejected, StatusArchived:
		return true
	}
	return false
}
