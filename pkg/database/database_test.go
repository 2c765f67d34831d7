package database

import (
	"testing"

	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCacheKeyIsDeterministic(t *testing.T) {
	dm := NewDataManager[models.WarnsDocument](WarnsCollection, NewDatabase())

	a := dm.generateCacheKey(bson.M{"guildId": "1", "userId": "2"})
	b := dm.generateCacheKey(bson.M{"userId": "2", "guildId": "1"})
	assert.Equal(t, a, b)
	assert.Equal(t, "warns:{guildId=1,userId=2}", a)
}

func TestOfflineWritesAreQueued(t *testing.T) {
	db := NewDatabase()
	log := NewAuditLog(db)
	ctx := t.Context()

	require.NoError(t, log.AppendWarn(ctx, "g1", "u1", models.Warn{Reason: "spam"}))
	rec := &models.AuditRecord{Action: models.AuditApproved, TargetID: "u1"}
	require.NoError(t, log.RecordAudit(ctx, rec))

	assert.Equal(t, 2, db.QueueLength())
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	db.queueMu.Lock()
	ops := append([]QueuedOperation(nil), db.writeQueue...)
	db.queueMu.Unlock()

	assert.Equal(t, OpPush, ops[0].Operation)
	assert.Equal(t, WarnsCollection, ops[0].CollectionName)
	assert.Equal(t, bson.M{"guildId": "g1", "userId": "u1"}, ops[0].Query)
	assert.Equal(t, OpInsert, ops[1].Operation)
	assert.Equal(t, AuditCollection, ops[1].CollectionName)
}

func TestOfflineReadsFail(t *testing.T) {
	log := NewAuditLog(NewDatabase())

	_, err := log.WarnHistory(t.Context(), "g1", "u1")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = log.Recent(t.Context(), "u1", 5)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestStatusWithoutDatabase(t *testing.T) {
	var db *Database
	status, ok := db.GetStatus(t.Context())
	assert.False(t, ok)
	assert.Contains(t, status, "Deshabilitada")
	assert.False(t, db.Connected())
}
