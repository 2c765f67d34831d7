// Package mod provides the warning commands: /warn, /warns and /clearwarns.
// Each command is in its own file.
package mod

import (
	"context"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/moderation"
)

// History returns the warn history kept in MongoDB
type History interface {
	WarnHistory(ctx context.Context, guildID, userID string) ([]models.Warn, error)
}

// Deps are the services behind the moderation commands. History is optional.
type Deps struct {
	Warns   *moderation.Service
	History History
}

// RegisterModCommands registers the moderation commands
func RegisterModCommands(client *discord.ExtendedClient, deps Deps) {
	client.CommandHandler.RegisterCommand(createWarnCommand(deps))
	client.CommandHandler.RegisterCommand(createWarnsCommand(deps))
	client.CommandHandler.RegisterCommand(createClearWarnsCommand(deps))
}
