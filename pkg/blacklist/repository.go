// Package blacklist implements the blacklist approval workflow, the
// propagation of bans to every guild and the import of members from the
// target server.
package blacklist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/store"
	"github.com/goccy/go-json"
)

// Repository reads and writes blacklist entries and sync cursors
type Repository struct {
	store store.Store
}

func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

// Put inserts or replaces an entry
func (r *Repository) Put(ctx context.Context, entry *models.BlacklistEntry) error {
	if err := r.store.SetBlob(ctx, store.BlacklistKey(entry.UserID), entry); err != nil {
		return errors.External("guardar entrada de blacklist", err)
	}
	return nil
}

// Get returns the entry of userID or ErrNotFound
func (r *Repository) Get(ctx context.Context, userID string) (*models.BlacklistEntry, error) {
	var entry models.BlacklistEntry
	found, err := r.store.GetBlob(ctx, store.BlacklistKey(userID), &entry)
	if err != nil {
		return nil, errors.External("leer blacklist", err)
	}
	if !found {
		return nil, errors.NotFound(fmt.Sprintf("el usuario %s no está en la blacklist", userID))
	}
	if entry.UserID == "" {
		entry.UserID = userID
	}
	return &entry, nil
}

// Delete removes the entry of userID, or returns ErrNotFound
func (r *Repository) Delete(ctx context.Context, userID string) (*models.BlacklistEntry, error) {
	var removed *models.BlacklistEntry
	err := store.Update(ctx, r.store, store.BlacklistKey(userID), func(cur *models.BlacklistEntry, found bool) (*models.BlacklistEntry, error) {
		if !found {
			return nil, errors.NotFound(fmt.Sprintf("el usuario %s no está en la blacklist", userID))
		}
		removed = cur
		return nil, nil
	})
	if err != nil {
		if errors.IsKind(err) {
			return nil, err
		}
		return nil, errors.External("borrar entrada de blacklist", err)
	}
	return removed, nil
}

// All returns every entry sorted by user ID
func (r *Repository) All(ctx context.Context) ([]models.BlacklistEntry, error) {
	keys, err := r.store.ScanKeys(ctx, store.BlacklistPattern)
	if err != nil {
		return nil, errors.External("escanear blacklist", err)
	}

	entries := make([]models.BlacklistEntry, 0, len(keys))
	for _, k := range keys {
		id, ok := store.BlacklistUserID(k)
		if !ok {
			continue
		}
		var entry models.BlacklistEntry
		found, err := r.store.GetBlob(ctx, k, &entry)
		if err != nil {
			return nil, errors.External(fmt.Sprintf("leer %s", k), err)
		}
		if !found {
			// deleted between SCAN and GET
			continue
		}
		entry.UserID = id
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	return entries, nil
}

// List returns every entry sorted by username
func (r *Repository) List(ctx context.Context) ([]models.BlacklistEntry, error) {
	entries, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Username) < strings.ToLower(entries[j].Username)
	})
	return entries, nil
}

// Search matches pattern against user ID, username and reason. The pattern is
// a case-insensitive regular expression; an invalid one is matched literally.
func (r *Repository) Search(ctx context.Context, pattern string) ([]models.BlacklistEntry, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(pattern))
	}

	entries, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.BlacklistEntry
	for _, e := range entries {
		if re.MatchString(e.UserID) || re.MatchString(e.Username) || re.MatchString(e.Reason) {
			out = append(out, e)
		}
	}
	return out, nil
}

// SnapshotHash is the sha256 of the entries serialized in user ID order, so
// the result does not depend on insertion or scan order.
func SnapshotHash(entries []models.BlacklistEntry) (string, error) {
	sorted := append([]models.BlacklistEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UserID < sorted[j].UserID })

	raw, err := json.Marshal(sorted)
	if err != nil {
		return "", fmt.Errorf("serializar blacklist: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Snapshot returns the hash and size of the current blacklist
func (r *Repository) Snapshot(ctx context.Context) (string, int, error) {
	entries, err := r.All(ctx)
	if err != nil {
		return "", 0, err
	}
	hash, err := SnapshotHash(entries)
	if err != nil {
		return "", 0, err
	}
	return hash, len(entries), nil
}

// WriteCursor replaces the cursor of a guild
func (r *Repository) WriteCursor(ctx context.Context, cur models.SyncCursor) error {
	if err := r.store.SetBlob(ctx, store.SyncKey(cur.GuildID), cur); err != nil {
		return errors.External("guardar cursor de sincronización", err)
	}
	return nil
}

// AdvanceCursor records a propagated snapshot. A partial cursor is left as
// is so the guild backfill still sees the pending bans.
func (r *Repository) AdvanceCursor(ctx context.Context, guildID, hash, userID string, at time.Time) error {
	err := store.Update(ctx, r.store, store.SyncKey(guildID), func(cur *models.SyncCursor, found bool) (*models.SyncCursor, error) {
		if found && cur.Partial {
			return cur, nil
		}
		return &models.SyncCursor{GuildID: guildID, Hash: hash, UserID: userID, SyncedAt: at}, nil
	})
	if err != nil {
		return errors.External("guardar cursor de sincronización", err)
	}
	return nil
}

// Cursor returns the sync cursor of a guild
func (r *Repository) Cursor(ctx context.Context, guildID string) (*models.SyncCursor, error) {
	var cur models.SyncCursor
	found, err := r.store.GetBlob(ctx, store.SyncKey(guildID), &cur)
	if err != nil {
		return nil, errors.External("leer cursor de sincronización", err)
	}
	if !found {
		return nil, errors.NotFound(fmt.Sprintf("cursor del servidor %s", guildID))
	}
	return &cur, nil
}
