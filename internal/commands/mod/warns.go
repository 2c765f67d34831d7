package mod

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// maxHistoryLines bounds the history shown in the embed
const maxHistoryLines = 10

// createWarnsCommand creates the /warns command
func createWarnsCommand(deps Deps) *discord.Command {
	return discord.NewCommand(
		"warns",
		"Consulta las advertencias de un usuario",
		"mod",
		func(ctx *discord.CommandContext) error { return warnsHandler(ctx, deps) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Usuario a consultar",
			Required:    true,
		},
	).Whitelisted().WithDefer(true)
}

func warnsHandler(ctx *discord.CommandContext, deps Deps) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.EditReply("❌ Debes especificar un usuario.")
	}

	rec, err := deps.Warns.Query(ctx.Context, user.ID)
	if err != nil {
		return err
	}

	var history []models.Warn
	if deps.History != nil {
		history, err = deps.History.WarnHistory(ctx.Context, ctx.Interaction.GuildID, user.ID)
		if err != nil {
			// the counters are authoritative, the history is a bonus
			logger.Warn(fmt.Sprintf("Historial de %s no disponible: %v", user.ID, err), "CMD-Warns")
			history = nil
		}
	}

	return ctx.EditReplyEmbed(warnsEmbed(user, rec, history))
}

// warnsEmbed renders the counters of a user plus the latest stored warnings
func warnsEmbed(user *discordgo.User, rec models.WarnRecord, history []models.Warn) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Advertencias de %s", user.Username),
		Color: 0x3498DB,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Advertencias actuales", Value: fmt.Sprint(rec.WarnCount), Inline: true},
			{Name: "Instancias totales", Value: fmt.Sprint(rec.InstanceCount), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "💫 - Developed by PancyStudios"},
	}
	if len(history) == 0 {
		return embed
	}

	start := 0
	if len(history) > maxHistoryLines {
		start = len(history) - maxHistoryLines
	}
	lines := make([]string, 0, len(history)-start)
	for _, w := range history[start:] {
		line := fmt.Sprintf("<t:%d:d> por <@%s>: %s", w.Timestamp, w.Moderator, w.Reason)
		if w.Escalated {
			line += " 🔇"
		}
		lines = append(lines, line)
	}
	name := "Historial"
	if start > 0 {
		name = fmt.Sprintf("Historial (últimas %d de %d)", maxHistoryLines, len(history))
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: strings.Join(lines, "\n")})
	return embed
}
