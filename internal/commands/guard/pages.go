package guard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// pagePrefix routes the paginator buttons. The payload is "{session}:{index}".
const pagePrefix = "blacklist_page"

func (h *handlers) createSearchCommand() *discord.Command {
	return discord.NewCommand(
		"search",
		"Busca un usuario en la blacklist",
		"guard",
		func(ctx *discord.CommandContext) error {
			pattern := ctx.GetStringOption("pattern")
			entries, err := h.Workflow.Repository().Search(ctx.Context, pattern)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return ctx.EditReply(fmt.Sprintf("No se encontró ningún usuario con el patrón `%s`.", pattern))
			}
			return h.showPages(ctx, entries)
		},
	).WithOptions(&discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "pattern",
		Description: "Patrón a buscar (ID, nombre o razón)",
		Required:    true,
	}).Whitelisted().WithDefer(true)
}

func (h *handlers) createListCommand() *discord.Command {
	return discord.NewCommand(
		"list",
		"Lista todos los usuarios de la blacklist",
		"guard",
		func(ctx *discord.CommandContext) error {
			entries, err := h.Workflow.Repository().List(ctx.Context)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return ctx.EditReply("No hay usuarios en la blacklist.")
			}
			return h.showPages(ctx, entries)
		},
	).Whitelisted().WithDefer(true)
}

func (h *handlers) showPages(ctx *discord.CommandContext, entries []models.BlacklistEntry) error {
	session := uuid.NewString()
	h.pages.Add(session, entries)
	embeds, components := pageView(session, entries, 0)
	return ctx.EditReplyView(embeds, components)
}

func (h *handlers) pageHandler(ctx *discord.CommandContext, payload string) error {
	session, index, err := parsePagePayload(payload)
	if err != nil {
		return err
	}
	entries, ok := h.pages.Get(session)
	if !ok {
		return ctx.ReplyEphemeral("⌛ La lista ha caducado, vuelve a ejecutar el comando.")
	}
	embeds, components := pageView(session, entries, index)
	return ctx.Update(embeds, components)
}

func parsePagePayload(payload string) (string, int, error) {
	session, raw, ok := strings.Cut(payload, ":")
	if !ok || session == "" {
		return "", 0, fmt.Errorf("paginador: payload inválido %q", payload)
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return "", 0, fmt.Errorf("paginador: índice inválido %q: %w", raw, err)
	}
	return session, index, nil
}

// pageView renders entry index with previous and next buttons. The index is
// clamped to the valid range.
func pageView(session string, entries []models.BlacklistEntry, index int) ([]*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	index = max(0, min(index, len(entries)-1))
	embeds := []*discordgo.MessageEmbed{blacklist.EntryEmbed(&entries[index], index, len(entries))}
	if len(entries) == 1 {
		return embeds, []discordgo.MessageComponent{}
	}

	button := func(label string, target int, disabled bool) discordgo.Button {
		return discordgo.Button{
			Label:    label,
			Style:    discordgo.SecondaryButton,
			CustomID: fmt.Sprintf("%s:%s:%d", pagePrefix, session, target),
			Disabled: disabled,
		}
	}
	return embeds, []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			button("◀ Anterior", index-1, index == 0),
			button("Siguiente ▶", index+1, index == len(entries)-1),
		}},
	}
}
