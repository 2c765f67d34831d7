package blacklist

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
)

// EnforceMember bans userID in g when it is blacklisted. It reports whether a
// ban was issued.
func (w *Workflow) EnforceMember(ctx context.Context, g platform.Guild, userID string) (bool, error) {
	entry, err := w.repo.Get(ctx, userID)
	if errors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ok, err := w.gateway.CanBan(ctx, g.ID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrMissingBanPermission
	}
	err = w.fanout.Call(ctx, func(ctx context.Context) error {
		return w.gateway.BanMember(ctx, g.ID, userID, "Blacklisted: "+entry.Reason)
	})
	if err != nil {
		return false, err
	}

	logger.Info(fmt.Sprintf("Usuario en blacklist %s baneado al entrar en %s (%s)", userID, g.Name, g.ID), "Blacklist")
	w.audit(ctx, &models.AuditRecord{
		Action:   models.AuditEnforced,
		TargetID: userID,
		GuildID:  g.ID,
		Detail:   entry.Reason,
		Success:  1,
	})
	return true, nil
}

// Backfill bans every blacklisted user in g unless the guild cursor already
// holds the current snapshot hash. A run with failed bans leaves a partial
// cursor, which approvals never overwrite, so the next call runs again.
func (w *Workflow) Backfill(ctx context.Context, g platform.Guild) (*Report, error) {
	entries, err := w.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	hash, err := SnapshotHash(entries)
	if err != nil {
		return nil, err
	}

	cur, err := w.repo.Cursor(ctx, g.ID)
	switch {
	case err == nil && !cur.Partial && cur.Hash == hash:
		return &Report{}, nil
	case err != nil && !errors.Is(err, errors.ErrNotFound):
		return nil, err
	}

	ok, err := w.gateway.CanBan(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMissingBanPermission
	}

	report := &Report{Total: len(entries)}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			report.AddError(fmt.Sprintf("Sincronización cancelada: %v", err))
			report.Failed += report.Total - report.Success - report.Failed
			break
		}
		err := w.fanout.Call(ctx, func(ctx context.Context) error {
			return w.gateway.BanMember(ctx, g.ID, e.UserID, "Blacklisted: "+e.Reason)
		})
		if err != nil {
			report.Failed++
			report.AddError(fmt.Sprintf("Falló con %s: %v", e.UserID, err))
			continue
		}
		report.Success++
	}

	cursor := models.SyncCursor{GuildID: g.ID, Hash: hash, SyncedAt: w.now(), Partial: report.Partial()}
	if err := w.repo.WriteCursor(ctx, cursor); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo guardar el cursor de %s: %v", g.ID, err), "Blacklist")
	}
	logger.Info(fmt.Sprintf("Blacklist aplicada en %s: %d/%d", g.Name, report.Success, report.Total), "Blacklist")
	w.audit(ctx, &models.AuditRecord{
		Action:   models.AuditBackfilled,
		TargetID: g.ID,
		GuildID:  g.ID,
		Success:  report.Success,
		Failed:   report.Failed,
	})
	return report, nil
}
