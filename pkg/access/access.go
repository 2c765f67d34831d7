// Package access implements the whitelist gate in front of every moderation
// and blacklist command.
package access

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/store"
)

// Whitelist authorizes users listed in the whitelist set or in a fixed
// override list.
type Whitelist struct {
	store     store.Store
	overrides map[string]struct{}
}

func NewWhitelist(s store.Store, overrideIDs []string) *Whitelist {
	o := make(map[string]struct{}, len(overrideIDs))
	for _, id := range overrideIDs {
		o[id] = struct{}{}
	}
	return &Whitelist{store: s, overrides: o}
}

// IsOverride reports whether userID is on the fixed override list
func (w *Whitelist) IsOverride(userID string) bool {
	_, ok := w.overrides[userID]
	return ok
}

// IsAuthorized reports whether userID may run gated operations
func (w *Whitelist) IsAuthorized(ctx context.Context, userID string) (bool, error) {
	if w.IsOverride(userID) {
		return true, nil
	}
	ok, err := w.store.IsMember(ctx, store.WhitelistKey, userID)
	if err != nil {
		return false, errors.External("consultar whitelist", err)
	}
	return ok, nil
}

// Require returns ErrUnauthorized unless userID is authorized
func (w *Whitelist) Require(ctx context.Context, userID string) error {
	ok, err := w.IsAuthorized(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Unauthorized(userID)
	}
	return nil
}

// Add whitelists targetID on behalf of actorID
func (w *Whitelist) Add(ctx context.Context, actorID, targetID string) error {
	if err := w.Require(ctx, actorID); err != nil {
		return err
	}
	if err := w.store.AddToSet(ctx, store.WhitelistKey, targetID); err != nil {
		return errors.External(fmt.Sprintf("añadir %s a la whitelist", targetID), err)
	}
	return nil
}

// Remove drops targetID from the whitelist. Override IDs cannot be removed
// since they are not stored.
func (w *Whitelist) Remove(ctx context.Context, actorID, targetID string) error {
	if err := w.Require(ctx, actorID); err != nil {
		return err
	}
	removed, err := w.store.RemoveFromSet(ctx, store.WhitelistKey, targetID)
	if err != nil {
		return errors.External(fmt.Sprintf("quitar %s de la whitelist", targetID), err)
	}
	if !removed {
		return errors.NotFound(fmt.Sprintf("el usuario %s no está en la whitelist", targetID))
	}
	return nil
}

// List returns the stored whitelist, sorted
func (w *Whitelist) List(ctx context.Context, actorID string) ([]string, error) {
	if err := w.Require(ctx, actorID); err != nil {
		return nil, err
	}
	ids, err := w.store.Members(ctx, store.WhitelistKey)
	if err != nil {
		return nil, errors.External("listar whitelist", err)
	}
	return ids, nil
}
