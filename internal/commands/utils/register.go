package utils

import (
	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/database"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/mqtt"
	"github.com/PancyStudios/PancyGuard/pkg/store"
)

// Deps are the backends reported by /utils status and /utils stats. DB and
// MQTT may be nil when disabled.
type Deps struct {
	Store     store.Store
	DB        *database.Database
	MQTT      *mqtt.MqttCommunicator
	Blacklist *blacklist.Repository
}

// RegisterUtilsCommands registers the utility commands as /utils subcommands
func RegisterUtilsCommands(client *discord.ExtendedClient, deps Deps) {
	client.CommandHandler.BuildCommandGroup(
		"utils",
		"Comandos de utilidad",
		createPingCommand(),
		createStatusCommand(deps),
		createHelpCommand(),
		createStatsCommand(deps),
	)
}
