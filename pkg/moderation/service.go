package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/events"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
	"github.com/PancyStudios/PancyGuard/pkg/store"
	"github.com/PancyStudios/PancyGuard/pkg/utils"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const warnEmbedColor = 0xFF0000

// WarnRequest describes a warning issued by a moderator inside a guild
type WarnRequest struct {
	GuildID         string
	GuildName       string
	UserID          string
	ModeratorID     string
	ModeratorName   string
	ModeratorAvatar string
	Reason          string
}

// WarnOutcome is what happened after a warning was stored
type WarnOutcome struct {
	// Count is the warning number reached, 1 to 3, before any reset
	Count int64
	// Record is the stored state after the warning
	Record     models.WarnRecord
	Escalation *Escalation
	// TimeoutErr is set when the escalation could not be applied. The
	// counters are kept as stored.
	TimeoutErr error
	// Notified reports whether the warning DM reached the user
	Notified bool
}

// Service applies warnings through the key-value store and the platform gateway
type Service struct {
	store     store.Store
	gateway   platform.Gateway
	auditor   events.Auditor
	publisher events.Publisher
	retry     utils.RetryOptions
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

func WithAuditor(a events.Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithRetryOptions(o utils.RetryOptions) Option {
	return func(s *Service) { s.retry = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a warning service
func NewService(s store.Store, gw platform.Gateway, opts ...Option) *Service {
	svc := &Service{
		store:     s,
		gateway:   gw,
		auditor:   events.Nop{},
		publisher: events.Nop{},
		retry:     utils.GetPlatformRetryOptions(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func counterKeys(userID string) []string {
	return []string{store.WarnKey(userID), store.InstanceKey(userID)}
}

// Warn records one warning and applies the timeout when the threshold is
// reached. Only store failures are returned as errors; the DM and the
// timeout are reported through the outcome.
func (s *Service) Warn(ctx context.Context, req WarnRequest) (*WarnOutcome, error) {
	out := &WarnOutcome{}
	var prev models.WarnRecord

	err := s.store.UpdateInts(ctx, counterKeys(req.UserID), func(cur []int64) ([]int64, error) {
		prev = models.WarnRecord{WarnCount: cur[0], InstanceCount: cur[1]}
		out.Record, out.Escalation = ApplyWarning(prev)
		return []int64{out.Record.WarnCount, out.Record.InstanceCount}, nil
	})
	if err != nil {
		return nil, errors.External("guardar advertencia", err)
	}

	out.Count = out.Record.WarnCount
	if out.Escalation != nil {
		out.Count = models.WarnThreshold
	}

	out.Notified = s.sendDM(ctx, req.UserID, s.warningEmbed(req, out.Count, prev.InstanceCount))

	if esc := out.Escalation; esc != nil {
		out.TimeoutErr = s.applyTimeout(ctx, req, esc)
		if out.TimeoutErr != nil {
			logger.Warn(fmt.Sprintf("No se pudo aislar a %s en %s: %v", req.UserID, req.GuildID, out.TimeoutErr), "Moderation")
		} else {
			s.sendDM(ctx, req.UserID, s.timeoutEmbed(req, esc))
		}
		s.reportEscalation(ctx, req, esc, out.TimeoutErr == nil)
	}

	warn := models.Warn{
		Reason:    req.Reason,
		Moderator: req.ModeratorID,
		ID:        uuid.NewString(),
		Timestamp: s.now().Unix(),
		Escalated: out.Escalation != nil,
	}
	if err := s.auditor.AppendWarn(ctx, req.GuildID, req.UserID, warn); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo guardar el historial de %s: %v", req.UserID, err), "Moderation")
	}

	return out, nil
}

func (s *Service) applyTimeout(ctx context.Context, req WarnRequest, esc *Escalation) error {
	until := s.now().Add(esc.Timeout)
	reason := fmt.Sprintf("Warned by %s: %s", req.ModeratorName, req.Reason)
	return utils.Do(ctx, func() error {
		return s.gateway.TimeoutMember(ctx, req.GuildID, req.UserID, until, reason)
	}, s.retry)
}

func (s *Service) reportEscalation(ctx context.Context, req WarnRequest, esc *Escalation, applied bool) {
	evt := events.WarnEscalated{
		GuildID:     req.GuildID,
		UserID:      req.UserID,
		ModeratorID: req.ModeratorID,
		Instance:    esc.Instance,
		Timeout:     esc.Timeout,
		CycleReset:  esc.CycleReset,
		Applied:     applied,
		Timestamp:   s.now(),
	}
	if err := s.publisher.Publish(ctx, events.TopicWarnEscalated, evt); err != nil {
		logger.Debug(fmt.Sprintf("No se pudo publicar la escalada: %v", err), "Moderation")
	}

	failed := 0
	if !applied {
		failed = 1
	}
	rec := &models.AuditRecord{
		ID:        uuid.NewString(),
		Action:    models.AuditEscalation,
		TargetID:  req.UserID,
		ActorID:   req.ModeratorID,
		GuildID:   req.GuildID,
		Detail:    fmt.Sprintf("instancia %d, %s", esc.Instance, DescribeTimeout(esc.Timeout)),
		Success:   1 - failed,
		Failed:    failed,
		CreatedAt: s.now(),
	}
	if err := s.auditor.RecordAudit(ctx, rec); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo registrar la escalada: %v", err), "Moderation")
	}
}

// Query returns the counters of a user, or the zero record
func (s *Service) Query(ctx context.Context, userID string) (models.WarnRecord, error) {
	warns, _, err := s.store.GetInt(ctx, store.WarnKey(userID))
	if err != nil {
		return models.WarnRecord{}, errors.External("leer advertencias", err)
	}
	instances, _, err := s.store.GetInt(ctx, store.InstanceKey(userID))
	if err != nil {
		return models.WarnRecord{}, errors.External("leer instancias", err)
	}
	return models.WarnRecord{WarnCount: warns, InstanceCount: instances}, nil
}

// Clear deletes both counters of a user
func (s *Service) Clear(ctx context.Context, actorID, userID string) error {
	if err := s.store.Delete(ctx, counterKeys(userID)...); err != nil {
		return errors.External("borrar advertencias", err)
	}
	rec := &models.AuditRecord{
		ID:        uuid.NewString(),
		Action:    models.AuditWarnsCleared,
		TargetID:  userID,
		ActorID:   actorID,
		CreatedAt: s.now(),
	}
	if err := s.auditor.RecordAudit(ctx, rec); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo registrar la limpieza de %s: %v", userID, err), "Moderation")
	}
	return nil
}

func (s *Service) sendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) bool {
	err := s.gateway.SendDirectMessage(ctx, userID, &platform.Message{Embeds: []*discordgo.MessageEmbed{embed}})
	if err != nil {
		logger.Debug(fmt.Sprintf("No se pudo enviar MD a %s: %v", userID, err), "Moderation")
		return false
	}
	return true
}

func (s *Service) author(req WarnRequest) *discordgo.MessageEmbedAuthor {
	return &discordgo.MessageEmbedAuthor{Name: req.ModeratorName, IconURL: req.ModeratorAvatar}
}

func (s *Service) warningEmbed(req WarnRequest, count, storedInstance int64) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Has recibido una advertencia",
		Description: fmt.Sprintf("**Razón:** %s", req.Reason),
		Color:       warnEmbedColor,
		Author:      s.author(req),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Advertencias actuales", Value: fmt.Sprintf("%d/%d", count, models.WarnThreshold), Inline: true},
		},
		Timestamp: s.now().Format(time.RFC3339),
	}

	if remaining := models.WarnThreshold - count; remaining > 0 {
		plural := "s"
		if remaining == 1 {
			plural = ""
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Tiempo hasta el aislamiento",
			Value: fmt.Sprintf("En %d advertencia%s serás aislado durante %s.",
				remaining, plural, DescribeTimeout(TimeoutFor(nextInstance(storedInstance)))),
		})
	}
	return embed
}

func (s *Service) timeoutEmbed(req WarnRequest, esc *Escalation) *discordgo.MessageEmbed {
	desc := fmt.Sprintf("Has sido aislado durante %s por acumular %d advertencias en %s.",
		DescribeTimeout(esc.Timeout), models.WarnThreshold, req.GuildName)
	if esc.CycleReset {
		desc += "\nTodas tus advertencias e instancias se han reiniciado."
	}
	return &discordgo.MessageEmbed{
		Title:       "Has sido aislado",
		Description: desc,
		Color:       warnEmbedColor,
		Author:      s.author(req),
		Timestamp:   s.now().Format(time.RFC3339),
	}
}
