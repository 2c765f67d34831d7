package discord

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
	"github.com/bwmarrin/discordgo"
)

// Gateway implements platform.Gateway on a discordgo session. Every REST call
// carries the caller's context.
type Gateway struct {
	session *discordgo.Session
}

var _ platform.Gateway = (*Gateway)(nil)

func NewGateway(s *discordgo.Session) *Gateway {
	return &Gateway{session: s}
}

// classify maps discordgo REST failures onto the error taxonomy
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return errors.Forbidden(op, err)
		case http.StatusNotFound:
			return errors.NotFound(fmt.Sprintf("%s: %v", op, err))
		}
	}
	return errors.External(op, err)
}

func (g *Gateway) botID() string {
	if g.session.State != nil && g.session.State.User != nil {
		return g.session.State.User.ID
	}
	return ""
}

// ListGuilds prefers the gateway state and pages through the REST API when
// the state is empty.
func (g *Gateway) ListGuilds(ctx context.Context) ([]platform.Guild, error) {
	if st := g.session.State; st != nil {
		st.RLock()
		guilds := make([]platform.Guild, 0, len(st.Guilds))
		for _, guild := range st.Guilds {
			guilds = append(guilds, platform.Guild{ID: guild.ID, Name: guild.Name})
		}
		st.RUnlock()
		if len(guilds) > 0 {
			return guilds, nil
		}
	}

	var guilds []platform.Guild
	after := ""
	for {
		page, err := g.session.UserGuilds(200, "", after, false, discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify("listar servidores", err)
		}
		for _, guild := range page {
			guilds = append(guilds, platform.Guild{ID: guild.ID, Name: guild.Name})
		}
		if len(page) < 200 {
			return guilds, nil
		}
		after = page[len(page)-1].ID
	}
}

func (g *Gateway) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if st := g.session.State; st != nil {
		if guild, err := st.Guild(guildID); err == nil && len(guild.Roles) > 0 {
			return guild, nil
		}
	}
	guild, err := g.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("obtener servidor", err)
	}
	return guild, nil
}

// CanBan reports whether the bot holds BanMembers or Administrator in guildID
func (g *Gateway) CanBan(ctx context.Context, guildID string) (bool, error) {
	guild, err := g.guild(ctx, guildID)
	if err != nil {
		return false, err
	}
	botID := g.botID()
	if guild.OwnerID != "" && guild.OwnerID == botID {
		return true, nil
	}

	member, err := g.session.GuildMember(guildID, botID, discordgo.WithContext(ctx))
	if err != nil {
		return false, classify("obtener miembro del bot", err)
	}
	return hasBanPermission(guild, member.Roles), nil
}

func hasBanPermission(guild *discordgo.Guild, memberRoles []string) bool {
	held := make(map[string]struct{}, len(memberRoles)+1)
	held[guild.ID] = struct{}{} // @everyone
	for _, id := range memberRoles {
		held[id] = struct{}{}
	}

	var perms int64
	for _, role := range guild.Roles {
		if _, ok := held[role.ID]; ok {
			perms |= role.Permissions
		}
	}
	return perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionBanMembers != 0
}

func toUser(u *discordgo.User) *platform.User {
	created, _ := discordgo.SnowflakeTimestamp(u.ID)
	return &platform.User{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL(""),
		CreatedAt: created,
	}
}

func (g *Gateway) FetchUser(ctx context.Context, userID string) (*platform.User, error) {
	u, err := g.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("obtener usuario", err)
	}
	return toUser(u), nil
}

func (g *Gateway) FetchMember(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	m, err := g.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("obtener miembro", err)
	}
	return &platform.Member{GuildID: guildID, User: *toUser(m.User)}, nil
}

func (g *Gateway) BanMember(ctx context.Context, guildID, userID, reason string) error {
	err := g.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
	return classify("banear", err)
}

func (g *Gateway) UnbanMember(ctx context.Context, guildID, userID string) error {
	err := g.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
	return classify("desbanear", err)
}

func (g *Gateway) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	err := g.session.GuildMemberTimeout(guildID, userID, &until,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	return classify("aislar", err)
}

func (g *Gateway) GuildChannels(ctx context.Context, guildID string) ([]platform.Channel, error) {
	chans, err := g.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("listar canales", err)
	}
	out := make([]platform.Channel, 0, len(chans))
	for _, ch := range chans {
		if ch.Type == discordgo.ChannelTypeGuildText {
			out = append(out, platform.Channel{ID: ch.ID, Name: ch.Name})
		}
	}
	return out, nil
}

func toMessageSend(msg *platform.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     msg.Embeds,
		Components: msg.Components,
	}
}

func (g *Gateway) SendMessage(ctx context.Context, channelID string, msg *platform.Message) (string, error) {
	m, err := g.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return "", classify("enviar mensaje", err)
	}
	return m.ID, nil
}

func (g *Gateway) SendDirectMessage(ctx context.Context, userID string, msg *platform.Message) error {
	ch, err := g.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return classify("abrir DM", err)
	}
	_, err = g.session.ChannelMessageSendComplex(ch.ID, toMessageSend(msg), discordgo.WithContext(ctx))
	return classify("enviar DM", err)
}
