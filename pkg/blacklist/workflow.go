package blacklist

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/events"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
	"github.com/PancyStudios/PancyGuard/pkg/storage"
	"github.com/PancyStudios/PancyGuard/pkg/store"
	"github.com/google/uuid"
)

// reopenTimeout bounds the rollback of a failed approval
const reopenTimeout = 5 * time.Second

// notificationChannel matches the channels public announcements go to
var notificationChannel = regexp.MustCompile(`(?i)^.*blacklist*.`)

// IsNotificationChannel reports whether a channel receives blacklist announcements
func IsNotificationChannel(name string) bool {
	return notificationChannel.MatchString(name) || name == "blacklist" || name == "blacklists"
}

// Toggles decides per guild whether public announcements are posted
type Toggles interface {
	Enabled(guildID string) bool
}

type allEnabled struct{}

func (allEnabled) Enabled(string) bool { return true }

// SubmitRequest carries the fields of a /blacklist invocation
type SubmitRequest struct {
	UserID      string
	Username    string
	Reason      string
	ProofLink   string
	FolderID    string
	MSN         bool
	Aliases     string
	RequestedBy string
}

// ApprovalResult is the outcome of an approval
type ApprovalResult struct {
	Submission *models.Submission
	Entry      *models.BlacklistEntry
	Hash       string
	*Report
}

// Workflow drives blacklist submissions from request to propagation
type Workflow struct {
	store     store.Store
	repo      *Repository
	gateway   platform.Gateway
	storage   storage.Storage
	fanout    *Fanout
	toggles   Toggles
	auditor   events.Auditor
	publisher events.Publisher
	now       func() time.Time
}

// Option configures a Workflow
type Option func(*Workflow)

func WithToggles(t Toggles) Option {
	return func(w *Workflow) { w.toggles = t }
}

func WithAuditor(a events.Auditor) Option {
	return func(w *Workflow) { w.auditor = a }
}

func WithPublisher(p events.Publisher) Option {
	return func(w *Workflow) { w.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// NewWorkflow wires a workflow to its collaborators
func NewWorkflow(s store.Store, gw platform.Gateway, st storage.Storage, cfg FanoutConfig, opts ...Option) *Workflow {
	w := &Workflow{
		store:     s,
		repo:      NewRepository(s),
		gateway:   gw,
		storage:   st,
		fanout:    NewFanout(cfg),
		toggles:   allEnabled{},
		auditor:   events.Nop{},
		publisher: events.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Repository exposes the entry store used by the workflow
func (w *Workflow) Repository() *Repository { return w.repo }

// ParseAliases keeps the all-digit IDs of a comma separated list
func ParseAliases(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.IndexFunc(part, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
			continue
		}
		ids = append(ids, part)
	}
	return ids
}

// Submit builds a pending submission. Nothing is stored.
func (w *Workflow) Submit(req SubmitRequest) *models.Submission {
	return &models.Submission{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Username:    req.Username,
		Reason:      req.Reason,
		ProofLink:   req.ProofLink,
		FolderID:    req.FolderID,
		MSN:         req.MSN,
		Aliases:     ParseAliases(req.Aliases),
		RequestedBy: req.RequestedBy,
		Status:      models.StatusSubmitted,
		CreatedAt:   w.now(),
	}
}

// Track stores a pending submission. It runs before the approval message is
// posted so the buttons never point at a missing record.
func (w *Workflow) Track(ctx context.Context, sub *models.Submission) error {
	err := store.Update(ctx, w.store, store.SubmissionKey(sub.ID), func(cur *models.Submission, found bool) (*models.Submission, error) {
		if found {
			return nil, errors.Conflict(sub.ID, string(cur.Status))
		}
		return sub, nil
	})
	if err != nil && !errors.IsKind(err) {
		return errors.External("guardar solicitud", err)
	}
	return err
}

// AttachMessage records where the approval message of a pending submission
// was posted
func (w *Workflow) AttachMessage(ctx context.Context, id, channelID, messageID string) error {
	err := store.Update(ctx, w.store, store.SubmissionKey(id), func(cur *models.Submission, found bool) (*models.Submission, error) {
		if !found {
			return nil, errors.NotFound(fmt.Sprintf("solicitud %s", id))
		}
		cur.ChannelID = channelID
		cur.MessageID = messageID
		return cur, nil
	})
	if err != nil && !errors.IsKind(err) {
		return errors.External("actualizar solicitud", err)
	}
	return err
}

// Discard drops a pending submission whose approval message could not be
// posted. Resolved submissions are kept.
func (w *Workflow) Discard(ctx context.Context, id string) error {
	err := store.Update(ctx, w.store, store.SubmissionKey(id), func(cur *models.Submission, found bool) (*models.Submission, error) {
		if !found {
			return nil, nil
		}
		if cur.Status.Terminal() {
			return nil, errors.Conflict(id, string(cur.Status))
		}
		return nil, nil
	})
	if err != nil && !errors.IsKind(err) {
		return errors.External("descartar solicitud", err)
	}
	return err
}

// Submission returns a stored submission
func (w *Workflow) Submission(ctx context.Context, id string) (*models.Submission, error) {
	var sub models.Submission
	found, err := w.store.GetBlob(ctx, store.SubmissionKey(id), &sub)
	if err != nil {
		return nil, errors.External("leer solicitud", err)
	}
	if !found {
		return nil, errors.NotFound(fmt.Sprintf("solicitud %s", id))
	}
	return &sub, nil
}

// resolve moves a submission from submitted to status. It is the only
// transition allowed; a terminal submission yields ErrStateConflict.
func (w *Workflow) resolve(ctx context.Context, id string, status models.SubmissionStatus, actorID, rejection string) (*models.Submission, error) {
	var resolved models.Submission
	err := store.Update(ctx, w.store, store.SubmissionKey(id), func(cur *models.Submission, found bool) (*models.Submission, error) {
		if !found {
			return nil, errors.NotFound(fmt.Sprintf("solicitud %s", id))
		}
		if cur.Status.Terminal() {
			return nil, errors.Conflict(id, string(cur.Status))
		}
		cur.Status = status
		cur.ResolvedBy = actorID
		cur.ResolvedAt = w.now()
		cur.RejectionReason = rejection
		resolved = *cur
		return cur, nil
	})
	if err != nil {
		if errors.IsKind(err) {
			return nil, err
		}
		return nil, errors.External("actualizar solicitud", err)
	}
	return &resolved, nil
}

// Approve resolves a submission, stores the entry and bans the user in every
// guild. Guild failures are reported in the result, not returned. When the
// entry cannot be stored the submission goes back to submitted so the
// approval can be retried.
func (w *Workflow) Approve(ctx context.Context, id, approverID string) (*ApprovalResult, error) {
	sub, err := w.resolve(ctx, id, models.StatusApproved, approverID, "")
	if err != nil {
		return nil, err
	}

	entry := &models.BlacklistEntry{
		UserID:    sub.UserID,
		Username:  sub.Username,
		Reason:    sub.Reason,
		ProofLink: sub.ProofLink,
		FolderID:  sub.FolderID,
		IsMsnOnly: sub.MSN,
		Aliases:   sub.Aliases,
		AddedBy:   approverID,
		Source:    models.SourceApproval,
		CreatedAt: w.now(),
	}
	if entry.Username == "" {
		entry.Username = "user_" + entry.UserID
	}

	guilds, hash, err := w.storeEntry(ctx, entry)
	if err != nil {
		w.reopen(ctx, sub)
		return nil, err
	}

	var notify *platform.Message
	if !entry.IsMsnOnly {
		notify = NotificationMessage(entry)
	}

	results := w.fanout.Run(ctx, guilds, w.banAction(entry.UserID, "Blacklisted: "+entry.Reason, hash, notify))
	report := NewReport(results)

	res := &ApprovalResult{Submission: sub, Entry: entry, Hash: hash, Report: report}
	logger.Info(fmt.Sprintf("Blacklist de %s aprobada por %s: %d/%d servidores", entry.UserID, approverID, report.Success, report.Total), "Blacklist")

	w.audit(ctx, &models.AuditRecord{
		Action:   models.AuditApproved,
		TargetID: entry.UserID,
		ActorID:  approverID,
		Detail:   entry.Reason,
		Success:  report.Success,
		Failed:   report.Failed,
	})
	w.publish(ctx, events.TopicBlacklistApproved, events.BlacklistApproved{
		SubmissionID: sub.ID,
		UserID:       entry.UserID,
		Username:     entry.Username,
		Reason:       entry.Reason,
		ApprovedBy:   approverID,
		Hash:         hash,
		Success:      report.Success,
		Failed:       report.Failed,
		Timestamp:    w.now(),
	})
	return res, nil
}

// storeEntry lists the guilds, hashes the snapshot that will include entry
// and writes it. The write goes last so a failure leaves nothing behind.
func (w *Workflow) storeEntry(ctx context.Context, entry *models.BlacklistEntry) ([]platform.Guild, string, error) {
	guilds, err := w.gateway.ListGuilds(ctx)
	if err != nil {
		return nil, "", errors.External("listar servidores", err)
	}
	entries, err := w.repo.All(ctx)
	if err != nil {
		return nil, "", err
	}
	hash, err := SnapshotHash(withEntry(entries, *entry))
	if err != nil {
		return nil, "", err
	}
	if err := w.repo.Put(ctx, entry); err != nil {
		return nil, "", err
	}
	return guilds, hash, nil
}

// withEntry returns entries with e added or replacing the one of its user
func withEntry(entries []models.BlacklistEntry, e models.BlacklistEntry) []models.BlacklistEntry {
	for i := range entries {
		if entries[i].UserID == e.UserID {
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}

// reopen moves an approval that could not be stored back to submitted. It
// only touches the submission while it still holds this resolution.
func (w *Workflow) reopen(ctx context.Context, sub *models.Submission) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reopenTimeout)
	defer cancel()

	err := store.Update(ctx, w.store, store.SubmissionKey(sub.ID), func(cur *models.Submission, found bool) (*models.Submission, error) {
		if !found {
			return nil, errors.NotFound(fmt.Sprintf("solicitud %s", sub.ID))
		}
		if cur.Status != sub.Status || cur.ResolvedBy != sub.ResolvedBy || !cur.ResolvedAt.Equal(sub.ResolvedAt) {
			return cur, nil
		}
		cur.Status = models.StatusSubmitted
		cur.ResolvedBy = ""
		cur.ResolvedAt = time.Time{}
		return cur, nil
	})
	if err != nil {
		logger.Error(fmt.Sprintf("No se pudo reabrir la solicitud %s: %v", sub.ID, err), "Blacklist")
		return
	}
	logger.Warn(fmt.Sprintf("Solicitud %s reabierta tras un fallo al aprobar", sub.ID), "Blacklist")
}

// Reject resolves a submission without touching the blacklist
func (w *Workflow) Reject(ctx context.Context, id, approverID, reason string) (*models.Submission, error) {
	sub, err := w.resolve(ctx, id, models.StatusRejected, approverID, reason)
	if err != nil {
		return nil, err
	}
	w.audit(ctx, &models.AuditRecord{
		Action:   models.AuditRejected,
		TargetID: sub.UserID,
		ActorID:  approverID,
		Detail:   reason,
	})
	return sub, nil
}

// Unblacklist deletes the entry of userID and lifts its ban everywhere
func (w *Workflow) Unblacklist(ctx context.Context, actorID, userID string) (*Report, error) {
	guilds, err := w.gateway.ListGuilds(ctx)
	if err != nil {
		return nil, errors.External("listar servidores", err)
	}
	if _, err := w.repo.Delete(ctx, userID); err != nil {
		return nil, err
	}

	results := w.fanout.Run(ctx, guilds, func(ctx context.Context, g platform.Guild) error {
		err := w.fanout.Retry(ctx, func() error {
			return w.gateway.UnbanMember(ctx, g.ID, userID)
		})
		if errors.Is(err, errors.ErrNotFound) {
			// not banned there
			return nil
		}
		return err
	})
	report := NewReport(results)

	w.audit(ctx, &models.AuditRecord{
		Action:   models.AuditUnblacklist,
		TargetID: userID,
		ActorID:  actorID,
		Success:  report.Success,
		Failed:   report.Failed,
	})
	w.publish(ctx, events.TopicBlacklistRemoved, events.BlacklistRemoved{
		UserID:    userID,
		RemovedBy: actorID,
		Success:   report.Success,
		Failed:    report.Failed,
		Timestamp: w.now(),
	})
	return report, nil
}

// banAction checks the ban permission and bans userID. After a successful
// ban the guild cursor is written and, when notify is set and the guild has
// announcements enabled, a notification is posted.
func (w *Workflow) banAction(userID, reason, hash string, notify *platform.Message) GuildAction {
	return func(ctx context.Context, g platform.Guild) error {
		ok, err := w.gateway.CanBan(ctx, g.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrMissingBanPermission
		}

		err = w.fanout.Retry(ctx, func() error {
			return w.gateway.BanMember(ctx, g.ID, userID, reason)
		})
		if err != nil {
			logger.Warn(fmt.Sprintf("Ban de %s en %s (%s) falló: %v", userID, g.Name, g.ID, err), "Blacklist")
			return err
		}

		if err := w.repo.AdvanceCursor(ctx, g.ID, hash, userID, w.now()); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo guardar el cursor de %s: %v", g.ID, err), "Blacklist")
		}
		if notify != nil && w.toggles.Enabled(g.ID) {
			w.announce(ctx, g, notify)
		}
		return nil
	}
}

// announce posts msg in the first notification channel of a guild. Guilds
// without one are skipped.
func (w *Workflow) announce(ctx context.Context, g platform.Guild, msg *platform.Message) {
	channels, err := w.gateway.GuildChannels(ctx, g.ID)
	if err != nil {
		logger.Debug(fmt.Sprintf("No se pudieron leer los canales de %s: %v", g.ID, err), "Blacklist")
		return
	}
	for _, ch := range channels {
		if !IsNotificationChannel(ch.Name) {
			continue
		}
		if _, err := w.gateway.SendMessage(ctx, ch.ID, msg); err != nil {
			logger.Debug(fmt.Sprintf("No se pudo anunciar en %s/%s: %v", g.ID, ch.Name, err), "Blacklist")
		}
		return
	}
}

func (w *Workflow) audit(ctx context.Context, rec *models.AuditRecord) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = w.now()
	if err := w.auditor.RecordAudit(ctx, rec); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo registrar %s: %v", rec.Action, err), "Blacklist")
	}
}

func (w *Workflow) publish(ctx context.Context, topic string, payload interface{}) {
	if err := w.publisher.Publish(ctx, topic, payload); err != nil {
		logger.Debug(fmt.Sprintf("No se pudo publicar %s: %v", topic, err), "Blacklist")
	}
}
