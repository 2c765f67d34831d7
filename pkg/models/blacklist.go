package models

import "time"

// EntrySource tells how a user ended up in the blacklist
type EntrySource string

const (
	SourceApproval EntrySource = "approval"
	SourceSync     EntrySource = "sync"
)

// BlacklistEntry is a blacklisted user, keyed by user ID
type BlacklistEntry struct {
	UserID    string      `json:"userId"`
	Username  string      `json:"username"`
	Reason    string      `json:"reason"`
	ProofLink string      `json:"proofLink"`
	FolderID  string      `json:"folderId"`
	IsMsnOnly bool        `json:"isMsnOnly"`
	Aliases   []string    `json:"aliases,omitempty"`
	AddedBy   string      `json:"addedBy,omitempty"`
	Source    EntrySource `json:"source,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// SubmissionStatus is the state of a blacklist request
type SubmissionStatus string

const (
	StatusSubmitted SubmissionStatus = "submitted"
	StatusApproved  SubmissionStatus = "approved"
	StatusRejected  SubmissionStatus = "rejected"
)

// Terminal reports whether no further transition is allowed
func (s SubmissionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Submission is a blacklist request waiting for a human decision
type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	Username        string           `json:"username"`
	Reason          string           `json:"reason"`
	ProofLink       string           `json:"proofLink"`
	FolderID        string           `json:"folderId"`
	MSN             bool             `json:"msn"`
	Aliases         []string         `json:"aliases,omitempty"`
	RequestedBy     string           `json:"requestedBy"`
	Status          SubmissionStatus `json:"status"`
	ResolvedBy      string           `json:"resolvedBy,omitempty"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	ChannelID       string           `json:"channelId,omitempty"`
	MessageID       string           `json:"messageId,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	ResolvedAt      time.Time        `json:"resolvedAt,omitempty"`
}

// SyncCursor records the blacklist snapshot last propagated to a guild
type SyncCursor struct {
	GuildID  string    `json:"guildId"`
	Hash     string    `json:"hash"`
	UserID   string    `json:"userId"`
	SyncedAt time.Time `json:"syncedAt"`
	// Partial marks a backfill that left bans pending. Approvals keep it so
	// the next backfill runs again.
	Partial bool `json:"partial,omitempty"`
}
