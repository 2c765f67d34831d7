package guard

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) approveHandler(ctx *discord.CommandContext, id string) error {
	if err := ctx.DeferUpdate(); err != nil {
		return err
	}

	approver := ctx.User()
	res, err := h.Workflow.Approve(ctx.Context, id, approver.ID)
	if err != nil {
		return err
	}

	resolved := blacklist.ResolvedMessage(res.Submission, approver.Username)
	if err := ctx.EditMessage(resolved.Embeds, resolved.Components); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo actualizar la solicitud %s: %v", id, err), "CMD-Blacklist")
	}
	return ctx.FollowUpEphemeral("✅ ¡Blacklist aprobada!\n" + banSummary("Resultados del ban", res.Report))
}

func (h *handlers) rejectHandler(ctx *discord.CommandContext, id string) error {
	sub, err := h.Workflow.Submission(ctx.Context, id)
	if err != nil {
		return err
	}
	if sub.Status.Terminal() {
		return errors.Conflict(id, string(sub.Status))
	}

	return ctx.ShowModal(blacklist.CustomID(blacklist.RejectModalPrefix, id), "Rechazar blacklist",
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:  blacklist.RejectionReasonField,
				Label:     "Motivo del rechazo",
				Style:     discordgo.TextInputParagraph,
				Required:  true,
				MaxLength: 1000,
			},
		}},
	)
}

func (h *handlers) rejectModalHandler(ctx *discord.CommandContext, id string) error {
	if err := ctx.DeferUpdate(); err != nil {
		return err
	}

	approver := ctx.User()
	sub, err := h.Workflow.Reject(ctx.Context, id, approver.ID, ctx.ModalValue(blacklist.RejectionReasonField))
	if err != nil {
		return err
	}

	resolved := blacklist.ResolvedMessage(sub, approver.Username)
	if err := ctx.EditMessage(resolved.Embeds, resolved.Components); err != nil {
		logger.Warn(fmt.Sprintf("No se pudo actualizar la solicitud %s: %v", id, err), "CMD-Blacklist")
	}
	return ctx.FollowUpEphemeral("❌ Blacklist rechazada.")
}

// banSummary renders a fan-out report for ephemeral replies
func banSummary(title string, r *blacklist.Report) string {
	if r == nil {
		return title + ": sin servidores."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n✅ Correctos: %d/%d servidores", title, r.Success, r.Total)
	if r.Failed > 0 {
		fmt.Fprintf(&b, "\n❌ Fallidos: %d servidores", r.Failed)
	}
	if errs := r.Errors(); len(errs) > 0 {
		b.WriteString("\nErrores:\n")
		for _, e := range errs {
			b.WriteString("• " + e + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
