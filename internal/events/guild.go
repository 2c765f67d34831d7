package events

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
	"github.com/bwmarrin/discordgo"
)

// RegisterGuildEvents registers all guild-related event handlers
func RegisterGuildEvents(client *discord.ExtendedClient, deps Deps) {
	client.EventHandler.OnGuildCreate(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		onGuildCreate(s, g, deps)
	})
	client.EventHandler.OnGuildDelete(onGuildDelete)
}

// isNewJoin tells a fresh invite apart from the GuildCreate burst sent on connect
func isNewJoin(joinedAt, now time.Time) bool {
	return !joinedAt.Before(now.Add(-10 * time.Second))
}

// onGuildCreate is called when the bot joins a server
func onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate, deps Deps) {
	if !isNewJoin(g.JoinedAt, time.Now()) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")
	logger.Debug(fmt.Sprintf("   Miembros: %d | Canales: %d", g.MemberCount, len(g.Channels)), "Guild")

	if g.SystemChannelID != "" {
		_, err := s.ChannelMessageSendEmbed(g.SystemChannelID, welcomeEmbed())
		if err != nil {
			logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
		}
	}

	if deps.Workflow == nil {
		return
	}
	go func() {
		defer errors.RecoverMiddleware(errors.Origin{Source: "event", Name: "Backfill", GuildID: g.ID})()
		ctx, cancel := context.WithTimeout(context.Background(), enforceTimeout)
		defer cancel()

		report, err := deps.Workflow.Backfill(ctx, platform.Guild{ID: g.ID, Name: g.Name})
		if err != nil {
			logger.Warn(fmt.Sprintf("No se pudo aplicar la blacklist en %s: %v", g.ID, err), "Guild")
			return
		}
		if report.Partial() {
			logger.Warn(fmt.Sprintf("Blacklist aplicada parcialmente en %s: %d/%d", g.ID, report.Success, report.Total), "Guild")
		}
	}()
}

func welcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🛡️",
		Description: "Hola, soy **PancyGuard**. Usa `/utils help` para ver todos mis comandos.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🚫 Blacklist", Value: "Los usuarios de la blacklist se banean automáticamente", Inline: true},
			{Name: "📣 Anuncios", Value: "Crea un canal `#blacklist` para recibir los anuncios", Inline: true},
			{Name: "❓ Ayuda", Value: "Usa `/utils help` para más información", Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "💫 - Developed by PancyStudios"},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// onGuildDelete is called when the bot is removed from a server
func onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("Servidor no disponible: %s", g.ID), "Guild")
		return
	}
	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")
}
