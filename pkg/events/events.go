// Package events defines the moderation events other systems can subscribe to
// and the sinks that receive them. The mqtt package publishes them and the
// database package keeps the audit trail.
package events

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/models"
)

// Topics published on the broker
const (
	TopicBlacklistApproved = "pancy/guard/blacklist/approved"
	TopicBlacklistRemoved  = "pancy/guard/blacklist/removed"
	TopicWarnEscalated     = "pancy/guard/warn/escalated"
)

// BlacklistApproved is published once an approval finished its fan-out
type BlacklistApproved struct {
	SubmissionID string    `json:"submissionId"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Reason       string    `json:"reason"`
	ApprovedBy   string    `json:"approvedBy"`
	Hash         string    `json:"hash"`
	Success      int       `json:"success"`
	Failed       int       `json:"failed"`
	Timestamp    time.Time `json:"timestamp"`
}

// BlacklistRemoved is published after an unblacklist
type BlacklistRemoved struct {
	UserID    string    `json:"userId"`
	RemovedBy string    `json:"removedBy"`
	Success   int       `json:"success"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// WarnEscalated is published when a user reaches the warn threshold
type WarnEscalated struct {
	GuildID     string        `json:"guildId"`
	UserID      string        `json:"userId"`
	ModeratorID string        `json:"moderatorId"`
	Instance    int64         `json:"instance"`
	Timeout     time.Duration `json:"timeout"`
	CycleReset  bool          `json:"cycleReset"`
	Applied     bool          `json:"applied"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Publisher delivers an event payload to a topic. Implementations must be
// safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Auditor keeps the moderation history. It is never read for decisions.
type Auditor interface {
	RecordAudit(ctx context.Context, rec *models.AuditRecord) error
	AppendWarn(ctx context.Context, guildID, userID string, warn models.Warn) error
}

// Nop discards everything. Used when MQTT or MongoDB are not configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }

func (Nop) RecordAudit(context.Context, *models.AuditRecord) error { return nil }

func (Nop) AppendWarn(context.Context, string, string, models.Warn) error { return nil }

var (
	_ Publisher = Nop{}
	_ Auditor   = Nop{}
)
