package models

import "time"

// AuditEntry is a write-once record of an action on an entity.
//
// Seq numbers the entries of one (EntityType, EntityID) pair from 1. Hash
// covers the entry's content and PrevHash, which is the Hash of the entry
// with Seq-1 (empty for the first one).
type AuditEntry struct {
	ID          string    `json:"id"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	Seq         int64     `json:"seq"`
	Timestamp   time.Time `json:"timestamp"`
	ActorUserID string    `json:"actor_user_id"`
	Action      string    `json:"action"`
	OldValue    string    `json:"old_value,omitempty"`
	NewValue    string    `json:"new_value,omitempty"`
	Details     string    `json:"details,omitempty"`
	PrevHash    string    `json:"prev_hash,omitempty"`
	Hash        string    `json:"hash"`
}
