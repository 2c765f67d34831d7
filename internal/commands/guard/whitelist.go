package guard

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// whitelistChunk is the number of mentions per embed in /list-whitelist
const whitelistChunk = 20

func (h *handlers) createWhitelistCommand() *discord.Command {
	return discord.NewCommand(
		"whitelist",
		"Añade un usuario a la whitelist",
		"guard",
		func(ctx *discord.CommandContext) error {
			user := ctx.GetUserOption("user")
			if user == nil {
				return ctx.EditReply("❌ Debes especificar un usuario.")
			}
			if err := h.Whitelist.Add(ctx.Context, ctx.User().ID, user.ID); err != nil {
				return err
			}
			return ctx.EditReply(fmt.Sprintf("✅ <@%s> ha sido añadido a la whitelist.", user.ID))
		},
	).WithOptions(userOption("user", "Usuario a añadir", true)).WithDefer(true)
}

func (h *handlers) createUnwhitelistCommand() *discord.Command {
	return discord.NewCommand(
		"unwhitelist",
		"Quita un usuario de la whitelist",
		"guard",
		func(ctx *discord.CommandContext) error {
			user := ctx.GetUserOption("user")
			if user == nil {
				return ctx.EditReply("❌ Debes especificar un usuario.")
			}
			if err := h.Whitelist.Remove(ctx.Context, ctx.User().ID, user.ID); err != nil {
				return err
			}
			return ctx.EditReply(fmt.Sprintf("✅ <@%s> ha sido quitado de la whitelist.", user.ID))
		},
	).WithOptions(userOption("user", "Usuario a quitar", true)).WithDefer(true)
}

func (h *handlers) createListWhitelistCommand() *discord.Command {
	return discord.NewCommand(
		"list-whitelist",
		"Lista los usuarios de la whitelist",
		"guard",
		func(ctx *discord.CommandContext) error {
			ids, err := h.Whitelist.List(ctx.Context, ctx.User().ID)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return ctx.EditReply("No hay usuarios en la whitelist.")
			}
			return ctx.EditReplyEmbed(whitelistEmbeds(ids)...)
		},
	).WithDefer(true)
}

// whitelistEmbeds splits the mentions into embeds of whitelistChunk users.
// Discord accepts at most 10 embeds per message.
func whitelistEmbeds(ids []string) []*discordgo.MessageEmbed {
	var embeds []*discordgo.MessageEmbed
	for start := 0; start < len(ids) && len(embeds) < 10; start += whitelistChunk {
		end := min(start+whitelistChunk, len(ids))
		mentions := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			mentions = append(mentions, "<@"+id+">")
		}
		embeds = append(embeds, &discordgo.MessageEmbed{
			Title:       "Usuarios en la whitelist",
			Description: "Lista de todos los usuarios autorizados:",
			Color:       0x3498DB,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Usuarios", Value: strings.Join(mentions, "\n")},
			},
			Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Total: %d", len(ids))},
		})
	}
	return embeds
}
