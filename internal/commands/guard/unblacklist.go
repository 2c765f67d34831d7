package guard

import (
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/errors"
)

func (h *handlers) createUnblacklistCommand() *discord.Command {
	return discord.NewCommand(
		"unblacklist",
		"Quita un usuario de la blacklist",
		"guard",
		func(ctx *discord.CommandContext) error {
			user := ctx.GetUserOption("user")
			if user == nil {
				return ctx.EditReply("❌ Debes especificar un usuario.")
			}
			report, err := h.Workflow.Unblacklist(ctx.Context, ctx.User().ID, user.ID)
			if errors.Is(err, errors.ErrNotFound) {
				return ctx.EditReply(fmt.Sprintf("El usuario <@%s> no está en la blacklist.", user.ID))
			}
			if err != nil {
				return err
			}
			return ctx.EditReply(fmt.Sprintf("✅ <@%s> ha sido quitado de la blacklist.\n%s",
				user.ID, banSummary("Resultados del desbaneo", report)))
		},
	).WithOptions(userOption("user", "Usuario a quitar de la blacklist", true)).Whitelisted().WithDefer(true)
}
