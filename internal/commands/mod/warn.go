package mod

import (
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/moderation"
	"github.com/bwmarrin/discordgo"
)

// createWarnCommand creates the /warn command
func createWarnCommand(deps Deps) *discord.Command {
	return discord.NewCommand(
		"warn",
		"Advierte a un usuario",
		"mod",
		func(ctx *discord.CommandContext) error { return warnHandler(ctx, deps) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Usuario a advertir",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Razón de la advertencia",
			Required:    true,
		},
	).Whitelisted().WithDefer(true)
}

func warnHandler(ctx *discord.CommandContext, deps Deps) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.EditReply("❌ Debes especificar un usuario.")
	}
	reason := ctx.GetStringOption("reason")
	if reason == "" {
		return ctx.EditReply("❌ Debes especificar una razón.")
	}

	moderator := ctx.User()
	req := moderation.WarnRequest{
		GuildID:         ctx.Interaction.GuildID,
		UserID:          user.ID,
		ModeratorID:     moderator.ID,
		ModeratorName:   moderator.Username,
		ModeratorAvatar: moderator.AvatarURL(""),
		Reason:          reason,
	}
	if g := ctx.Guild(); g != nil {
		req.GuildName = g.Name
	}

	out, err := deps.Warns.Warn(ctx.Context, req)
	if err != nil {
		return err
	}
	return ctx.EditReplyEmbed(warnResultEmbed(user, reason, out))
}

// warnResultEmbed is the confirmation shown to the moderator
func warnResultEmbed(user *discordgo.User, reason string, out *moderation.WarnOutcome) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Usuario advertido",
		Description: fmt.Sprintf("<@%s> ha sido advertido por: %s", user.ID, reason),
		Color:       0xFFA500,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Advertencias actuales", Value: fmt.Sprint(out.Count), Inline: true},
			{Name: "Instancia actual", Value: fmt.Sprint(out.Record.InstanceCount), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Con 3 advertencias el usuario será aislado."},
	}

	if esc := out.Escalation; esc != nil {
		status := fmt.Sprintf("🔇 Aislado durante %s (instancia %d).", moderation.DescribeTimeout(esc.Timeout), esc.Instance)
		if out.TimeoutErr != nil {
			status = fmt.Sprintf("⚠️ No se pudo aislar al usuario durante %s: %v", moderation.DescribeTimeout(esc.Timeout), out.TimeoutErr)
		}
		if esc.CycleReset {
			status += "\nTodas las advertencias e instancias se han reiniciado."
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Escalada", Value: status})
	}
	if !out.Notified {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Mensaje directo",
			Value: "No se pudo enviar el MD al usuario.",
		})
	}
	return embed
}
