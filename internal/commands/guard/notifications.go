package guard

import (
	"github.com/PancyStudios/PancyGuard/pkg/discord"
)

func (h *handlers) createNotificationsCommand() *discord.Command {
	return discord.NewCommand(
		"notifications",
		"Activa o desactiva los anuncios de blacklist en este servidor",
		"guard",
		func(ctx *discord.CommandContext) error {
			if ctx.Interaction.GuildID == "" {
				return ctx.EditReply("❌ Este comando solo funciona dentro de un servidor.")
			}
			if h.Toggles.Toggle(ctx.Interaction.GuildID) {
				return ctx.EditReply("🔔 Los anuncios de blacklist están **activados** en este servidor.")
			}
			return ctx.EditReply("🔕 Los anuncios de blacklist están **desactivados** en este servidor.")
		},
	).Whitelisted().WithDefer(true)
}
