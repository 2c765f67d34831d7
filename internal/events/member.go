package events

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
	"github.com/bwmarrin/discordgo"
)

// RegisterMemberEvents registers all member-related event handlers
func RegisterMemberEvents(client *discord.ExtendedClient, deps Deps) {
	if deps.Workflow == nil {
		return
	}
	client.EventHandler.OnGuildMemberAdd(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		onGuildMemberAdd(s, m, deps)
	})
}

// onGuildMemberAdd bans a joining member that is on the blacklist
func onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd, deps Deps) {
	if m.User == nil || m.User.Bot {
		return
	}
	defer errors.RecoverMiddleware(errors.Origin{Source: "event", Name: "GuildMemberAdd", GuildID: m.GuildID, UserID: m.User.ID})()

	ctx, cancel := context.WithTimeout(context.Background(), enforceTimeout)
	defer cancel()

	g := platform.Guild{ID: m.GuildID}
	if guild, err := s.State.Guild(m.GuildID); err == nil {
		g.Name = guild.Name
	}

	banned, err := deps.Workflow.EnforceMember(ctx, g, m.User.ID)
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo aplicar la blacklist a %s en %s: %v", m.User.ID, m.GuildID, err), "Member")
		return
	}
	if banned {
		logger.Info(fmt.Sprintf("🚫 %s (%s) estaba en la blacklist y fue baneado de %s", m.User.Username, m.User.ID, m.GuildID), "Member")
	}
}
