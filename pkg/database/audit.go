package database

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/events"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// AuditLog writes the moderation history to MongoDB. Nothing in the bot
// reads it back for decisions; the key-value store stays authoritative.
type AuditLog struct {
	warns *DataManager[models.WarnsDocument]
	audit *DataManager[models.AuditRecord]
}

var _ events.Auditor = (*AuditLog)(nil)

// NewAuditLog binds the warns and audit collections of db
func NewAuditLog(db *Database) *AuditLog {
	return &AuditLog{
		warns: NewDataManager[models.WarnsDocument](WarnsCollection, db),
		audit: NewDataManager[models.AuditRecord](AuditCollection, db),
	}
}

func (a *AuditLog) RecordAudit(ctx context.Context, rec *models.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return a.audit.Insert(ctx, rec)
}

func (a *AuditLog) AppendWarn(ctx context.Context, guildID, userID string, warn models.Warn) error {
	if warn.ID == "" {
		warn.ID = uuid.NewString()
	}
	return a.warns.Push(ctx, bson.M{"guildId": guildID, "userId": userID}, bson.M{"warns": warn})
}

// WarnHistory returns the stored warns of a user in a guild, nil when none
func (a *AuditLog) WarnHistory(ctx context.Context, guildID, userID string) ([]models.Warn, error) {
	doc, err := a.warns.Get(ctx, bson.M{"guildId": guildID, "userId": userID})
	if err != nil || doc == nil {
		return nil, err
	}
	return doc.Warns, nil
}

// Recent returns the latest audit records about a user
func (a *AuditLog) Recent(ctx context.Context, targetID string, limit int64) ([]*models.AuditRecord, error) {
	return a.audit.Find(ctx, bson.M{"targetId": targetID}, "createdAt", limit)
}
