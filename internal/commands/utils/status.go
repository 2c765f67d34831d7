package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
)

// createStatusCommand creates the /utils status subcommand
func createStatusCommand(deps Deps) *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado del bot y sus servicios",
		"utils",
		func(ctx *discord.CommandContext) error {
			return ctx.EditReply(statusReport(ctx.Context, deps, ctx.Client.GuildCount()))
		},
	).WithDefer(true)
}

func statusReport(ctx context.Context, deps Deps, guilds int) string {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	redisStatus := "🔴 | Desconectado"
	if deps.Store != nil && deps.Store.Ping(pingCtx) == nil {
		redisStatus = "🟢 | Conectado"
	}
	dbStatus, _ := deps.DB.GetStatus(pingCtx)
	mqttStatus := "⚫ | Deshabilitado"
	if deps.MQTT != nil {
		mqttStatus = "🔴 | Desconectado"
		if deps.MQTT.IsConnected() {
			mqttStatus = "🟢 | Conectado"
		}
	}

	return fmt.Sprintf(
		"📊 **Estado del Bot**\n"+
			"• Bot: 🟢 Online\n"+
			"• Redis: %s\n"+
			"• Base de datos: %s\n"+
			"• MQTT: %s\n"+
			"• Servidores: %d",
		redisStatus, dbStatus, mqttStatus, guilds,
	)
}
