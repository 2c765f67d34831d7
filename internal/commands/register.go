// Package commands wires every command category into the Discord client.
// Commands are organized in subdirectories by category (guard, mod, utils).
package commands

import (
	"github.com/PancyStudios/PancyGuard/internal/commands/guard"
	"github.com/PancyStudios/PancyGuard/internal/commands/mod"
	"github.com/PancyStudios/PancyGuard/internal/commands/utils"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
)

// Deps groups the dependencies of every category
type Deps struct {
	Guard guard.Deps
	Mod   mod.Deps
	Utils utils.Deps
}

// RegisterAll registers all commands and components with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	// Blacklist and whitelist (/blacklist, /list, /search, /sync, ...)
	guard.RegisterGuardCommands(client, deps.Guard)

	// Warnings (/warn, /warns, /clearwarns)
	mod.RegisterModCommands(client, deps.Mod)

	// /utils ping, status, help, stats
	utils.RegisterUtilsCommands(client, deps.Utils)
}
