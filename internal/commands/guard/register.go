// Package guard provides the blacklist and whitelist commands together with
// the buttons and modals of the approval flow.
package guard

import (
	"net/http"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/access"
	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/cache"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
	"github.com/PancyStudios/PancyGuard/pkg/storage"
	"github.com/bwmarrin/discordgo"
)

const (
	pageCacheSize = 256
	pageCacheTTL  = 15 * time.Minute
)

// Deps are the services behind the blacklist commands
type Deps struct {
	Workflow  *blacklist.Workflow
	Whitelist *access.Whitelist
	Gateway   platform.Gateway
	Storage   storage.Storage
	// HTTP downloads the evidence attachments
	HTTP    *http.Client
	Toggles *cache.GuildToggles
	Members blacklist.MemberSource
	// Images caches folder listings for the direct image viewer
	Images *cache.TTL[string, []storage.FileMeta]

	ApprovalChannelID string
}

type handlers struct {
	Deps
	pages *cache.TTL[string, []models.BlacklistEntry]
}

// RegisterGuardCommands registers the blacklist commands and components
func RegisterGuardCommands(client *discord.ExtendedClient, deps Deps) {
	h := &handlers{
		Deps:  deps,
		pages: cache.NewTTL[string, []models.BlacklistEntry](pageCacheSize, pageCacheTTL),
	}
	if h.HTTP == nil {
		h.HTTP = http.DefaultClient
	}

	ch := client.CommandHandler
	ch.RegisterCommand(h.createWhitelistCommand())
	ch.RegisterCommand(h.createUnwhitelistCommand())
	ch.RegisterCommand(h.createListWhitelistCommand())
	ch.RegisterCommand(h.createSearchCommand())
	ch.RegisterCommand(h.createListCommand())
	ch.RegisterCommand(h.createBlacklistCommand())
	ch.RegisterCommand(h.createUnblacklistCommand())
	ch.RegisterCommand(h.createSyncCommand())
	ch.RegisterCommand(h.createNotificationsCommand())

	ch.RegisterComponent(&discord.Component{Prefix: blacklist.ApprovePrefix, Gated: true, Run: h.approveHandler})
	ch.RegisterComponent(&discord.Component{Prefix: blacklist.RejectPrefix, Gated: true, Run: h.rejectHandler})
	ch.RegisterComponent(&discord.Component{Prefix: blacklist.RejectModalPrefix, Gated: true, Run: h.rejectModalHandler})
	ch.RegisterComponent(&discord.Component{Prefix: blacklist.ViewImagesPrefix, Run: h.viewImagesHandler})
	ch.RegisterComponent(&discord.Component{Prefix: pagePrefix, Run: h.pageHandler})
}

func userOption(name, description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        name,
		Description: description,
		Required:    required,
	}
}
