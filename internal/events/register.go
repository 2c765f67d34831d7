// Package events provides the gateway event handlers of the bot.
// Events are organized by category (ready, guild, member, shard).
package events

import (
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
)

// enforceTimeout bounds the blacklist work started by a single event
const enforceTimeout = 2 * time.Minute

// Deps are the services used by the event handlers. Workflow may be nil, in
// which case joins are only logged.
type Deps struct {
	Workflow *blacklist.Workflow
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	// Ready event (bot startup)
	RegisterReadyEvent(client)

	// Guild events (server join/leave, blacklist backfill)
	RegisterGuildEvents(client, deps)

	// Member events (blacklist enforcement on join)
	RegisterMemberEvents(client, deps)

	// Shard connection events
	RegisterShardEvents(client)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
