// Package platform describes the chat platform operations the moderation core
// needs. The discord package implements it over discordgo; tests use fakes.
package platform

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Guild is a server the bot is a member of
type Guild struct {
	ID   string
	Name string
}

// User is a platform account
type User struct {
	ID        string
	Username  string
	AvatarURL string
	CreatedAt time.Time
}

// Member is a user inside a guild
type Member struct {
	GuildID string
	User    User
}

// Channel is a guild text channel
type Channel struct {
	ID   string
	Name string
}

// Message is an outgoing payload. Embeds and components reuse the discordgo
// types so handlers can render them without conversion.
type Message struct {
	Content    string
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

// Gateway is the set of guild-scoped actions used by moderation. Errors are
// classified with the pkg/errors taxonomy: ErrForbidden for missing
// permissions, ErrNotFound for unknown members or channels and
// ErrExternalService for everything else.
type Gateway interface {
	ListGuilds(ctx context.Context) ([]Guild, error)
	CanBan(ctx context.Context, guildID string) (bool, error)
	FetchUser(ctx context.Context, userID string) (*User, error)
	FetchMember(ctx context.Context, guildID, userID string) (*Member, error)
	BanMember(ctx context.Context, guildID, userID, reason string) error
	UnbanMember(ctx context.Context, guildID, userID string) error
	TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error
	GuildChannels(ctx context.Context, guildID string) ([]Channel, error)
	SendMessage(ctx context.Context, channelID string, msg *Message) (string, error)
	SendDirectMessage(ctx context.Context, userID string, msg *Message) error
}
