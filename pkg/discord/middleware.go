package discord

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// WhitelistMiddleware blocks gated interactions from users outside the
// whitelist. It answers the interaction itself when access is denied.
func (c *ExtendedClient) WhitelistMiddleware(ctx *CommandContext) error {
	if c.Access == nil {
		return nil
	}
	userID := ctx.User().ID

	err := c.Access.Require(ctx.Context, userID)
	if err == nil {
		return nil
	}

	if !errors.Is(err, errors.ErrUnauthorized) {
		logger.Error(fmt.Sprintf("No se pudo verificar la whitelist para %s: %v", userID, err), "WhitelistMiddleware")
		ctx.ReplyError(err)
		return err
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🚫 Acceso Denegado",
		Description: "No estás autorizado para usar este comando.",
		Color:       0xFF0000,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if replyErr := ctx.ReplyEphemeralEmbed(embed); replyErr != nil {
		logger.Warn("No se pudo responder al usuario no autorizado: "+replyErr.Error(), "WhitelistMiddleware")
	}

	logger.Warn(fmt.Sprintf("Usuario fuera de la whitelist intentó usar un comando: %s", userID), "WhitelistMiddleware")
	return err
}
