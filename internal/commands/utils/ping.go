package utils

import (
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
)

// createPingCommand creates the /utils ping subcommand
func createPingCommand() *discord.Command {
	return discord.NewCommand(
		"ping",
		"Comprueba la latencia del bot",
		"utils",
		func(ctx *discord.CommandContext) error {
			latency := ctx.Client.Session.HeartbeatLatency().Milliseconds()
			return ctx.ReplyEphemeral(fmt.Sprintf("🏓 Pong! Latencia: %dms", latency))
		},
	)
}
