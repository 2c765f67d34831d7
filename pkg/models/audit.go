package models

import "time"

// AuditAction names a moderation event kept in the audit collection
type AuditAction string

const (
	AuditApproved     AuditAction = "blacklist_approved"
	AuditRejected     AuditAction = "blacklist_rejected"
	AuditUnblacklist  AuditAction = "blacklist_removed"
	AuditSynced       AuditAction = "blacklist_synced"
	AuditEnforced     AuditAction = "blacklist_enforced"
	AuditBackfilled   AuditAction = "blacklist_backfilled"
	AuditEscalation   AuditAction = "warn_escalated"
	AuditWarnsCleared AuditAction = "warns_cleared"
)

// AuditRecord is one moderation event (collection "audit")
type AuditRecord struct {
	ID        string      `bson:"_id" json:"id"`
	Action    AuditAction `bson:"action" json:"action"`
	TargetID  string      `bson:"targetId" json:"targetId"`
	ActorID   string      `bson:"actorId" json:"actorId"`
	GuildID   string      `bson:"guildId,omitempty" json:"guildId,omitempty"`
	Detail    string      `bson:"detail,omitempty" json:"detail,omitempty"`
	Success   int         `bson:"success,omitempty" json:"success,omitempty"`
	Failed    int         `bson:"failed,omitempty" json:"failed,omitempty"`
	CreatedAt time.Time   `bson:"createdAt" json:"createdAt"`
}
