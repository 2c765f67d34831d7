package models

// WarnThreshold is the number of warnings that triggers an escalation
const WarnThreshold = 3

// WarnRecord holds the escalation counters of a user. Both values live in the
// key-value store; a missing key reads as zero.
type WarnRecord struct {
	WarnCount     int64 `json:"warnCount"`
	InstanceCount int64 `json:"instanceCount"`
}

// IsZero reports whether the record has no warnings and no escalations
func (r WarnRecord) IsZero() bool {
	return r.WarnCount == 0 && r.InstanceCount == 0
}

// Warn representa una advertencia individual
type Warn struct {
	Reason    string `bson:"reason" json:"reason"`
	Moderator string `bson:"moderator" json:"moderator"`
	ID        string `bson:"id" json:"id"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
	Escalated bool   `bson:"escalated" json:"escalated"`
}

// WarnsDocument is the warn history of a user in a guild (collection "warns").
// It is an audit trail only; the counters above decide escalations.
type WarnsDocument struct {
	GuildID string `bson:"guildId" json:"guildId"`
	UserID  string `bson:"userId" json:"userId"`
	Warns   []Warn `bson:"warns" json:"warns"`
}
