package mod

import (
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createClearWarnsCommand creates the /clearwarns command
func createClearWarnsCommand(deps Deps) *discord.Command {
	return discord.NewCommand(
		"clearwarns",
		"Borra las advertencias de un usuario",
		"mod",
		func(ctx *discord.CommandContext) error { return clearWarnsHandler(ctx, deps) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Usuario al que borrar las advertencias",
			Required:    true,
		},
	).Whitelisted().WithDefer(true)
}

func clearWarnsHandler(ctx *discord.CommandContext, deps Deps) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.EditReply("❌ Debes especificar un usuario.")
	}
	if err := deps.Warns.Clear(ctx.Context, ctx.User().ID, user.ID); err != nil {
		return err
	}
	return ctx.EditReplyEmbed(&discordgo.MessageEmbed{
		Title:       "Advertencias borradas",
		Description: fmt.Sprintf("Se han borrado todas las advertencias de <@%s>.", user.ID),
		Color:       0x2ECC71,
	})
}
