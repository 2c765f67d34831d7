package blacklist

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
)

const (
	syncEntryReason = "Member of target server"
	syncBanReason   = "Blacklisted: Target server member"
)

// MemberSource reports the members that joined the target server
type MemberSource interface {
	// NewMemberCount is a cheap check done before fetching the IDs
	NewMemberCount(ctx context.Context) (int, error)
	NewMembers(ctx context.Context) ([]string, error)
}

// SyncReport aggregates a whole import batch
type SyncReport struct {
	// Found is the number of IDs received from the source
	Found int
	// Skipped counts IDs dropped as already blacklisted or repeated
	Skipped int
	// Processed counts members written to the blacklist
	Processed int
	// Attempts is guilds times pending members
	Attempts int
	Guilds   int
	*Report
}

// Reconcile returns the IDs of newIDs missing from current, in input order
// and without duplicates.
func Reconcile(newIDs []string, current map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(newIDs))
	var pending []string
	for _, id := range newIDs {
		if id == "" {
			continue
		}
		if _, ok := current[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		pending = append(pending, id)
	}
	return pending
}

// Sync pulls new members from src and imports them
func (w *Workflow) Sync(ctx context.Context, actorID string, src MemberSource) (*SyncReport, error) {
	count, err := src.NewMemberCount(ctx)
	if err != nil {
		return nil, errors.External("consultar estadísticas del scraper", err)
	}
	if count == 0 {
		return &SyncReport{Report: &Report{}}, nil
	}

	ids, err := src.NewMembers(ctx)
	if err != nil {
		return nil, errors.External("obtener miembros nuevos", err)
	}

	report, err := w.ProcessNewMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	w.audit(ctx, &models.AuditRecord{
		Action:   models.AuditSynced,
		TargetID: fmt.Sprintf("%d miembros", report.Processed),
		ActorID:  actorID,
		Success:  report.Success,
		Failed:   report.Failed,
	})
	return report, nil
}

// ProcessNewMembers blacklists every ID not yet in the blacklist and bans it
// in every guild. A failing member does not stop the batch. The blacklist is
// read once and the snapshot hash is computed once, after every entry of the
// batch is written.
func (w *Workflow) ProcessNewMembers(ctx context.Context, ids []string) (*SyncReport, error) {
	entries, err := w.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	guilds, err := w.gateway.ListGuilds(ctx)
	if err != nil {
		return nil, errors.External("listar servidores", err)
	}

	current := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		current[e.UserID] = struct{}{}
	}
	pending := Reconcile(ids, current)
	report := &SyncReport{
		Found:    len(ids),
		Skipped:  len(ids) - len(pending),
		Attempts: len(guilds) * len(pending),
		Guilds:   len(guilds),
		Report:   &Report{},
	}
	logger.Info(fmt.Sprintf("Sincronizando %d miembros nuevos (%d ya en la blacklist)", len(pending), report.Skipped), "Sync")

	type imported struct {
		entry *models.BlacklistEntry
		user  *platform.User
	}
	var written []imported
	for _, id := range pending {
		if err := ctx.Err(); err != nil {
			report.AddError(fmt.Sprintf("Sincronización cancelada: %v", err))
			break
		}
		entry, user, err := w.importMember(ctx, id)
		if err != nil {
			logger.Warn(fmt.Sprintf("Error procesando al usuario %s: %v", id, err), "Sync")
			report.AddError(fmt.Sprintf("Error procesando %s: %v", id, err))
			continue
		}
		entries = withEntry(entries, *entry)
		written = append(written, imported{entry: entry, user: user})
	}
	if len(written) == 0 {
		return report, nil
	}

	hash, err := SnapshotHash(entries)
	if err != nil {
		return nil, err
	}
	for _, m := range written {
		notify := SyncNotificationMessage(m.entry, m.user)
		results := w.fanout.Run(ctx, guilds, w.banAction(m.entry.UserID, syncBanReason, hash, notify))
		report.Processed++
		report.Merge(NewReport(results))
	}
	return report, nil
}

// importMember creates the evidence folder and the entry of a synced member
func (w *Workflow) importMember(ctx context.Context, id string) (*models.BlacklistEntry, *platform.User, error) {
	user, err := w.gateway.FetchUser(ctx, id)
	if err != nil || user == nil {
		user = &platform.User{ID: id, Username: "user_" + id}
	}

	folderID, err := w.storage.CreateFolder(ctx, "blacklist-"+user.Username)
	if err != nil {
		return nil, nil, err
	}

	entry := &models.BlacklistEntry{
		UserID:    id,
		Username:  user.Username,
		Reason:    syncEntryReason,
		ProofLink: w.storage.FolderLink(folderID),
		FolderID:  folderID,
		Source:    models.SourceSync,
		CreatedAt: w.now(),
	}
	if err := w.repo.Put(ctx, entry); err != nil {
		return nil, nil, err
	}
	return entry, user, nil
}
