// Package platformtest provides an in-memory platform.Gateway for tests.
package platformtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
)

// Call is one recorded guild action
type Call struct {
	Op      string
	GuildID string
	UserID  string
	Reason  string
}

// Sent is one recorded message
type Sent struct {
	ChannelID string
	UserID    string
	Message   *platform.Message
}

// Gateway records every call. Errors and delays are configured per guild.
type Gateway struct {
	mu sync.Mutex

	Guilds   []platform.Guild
	Users    map[string]*platform.User
	Channels map[string][]platform.Channel

	// BanErr and TimeoutErr fail every call for a guild
	BanErr     map[string]error
	UnbanErr   map[string]error
	TimeoutErr map[string]error
	// NoBanPermission makes CanBan return false for a guild
	NoBanPermission map[string]bool
	// Delay blocks guild actions until it elapses or ctx is done
	Delay map[string]time.Duration
	// DMErr fails every direct message
	DMErr error
	// ListErr fails ListGuilds
	ListErr error

	calls []Call
	sent  []Sent
}

var _ platform.Gateway = (*Gateway)(nil)

// New returns a fake with the given guild IDs
func New(guildIDs ...string) *Gateway {
	g := &Gateway{
		Users:           make(map[string]*platform.User),
		Channels:        make(map[string][]platform.Channel),
		BanErr:          make(map[string]error),
		UnbanErr:        make(map[string]error),
		TimeoutErr:      make(map[string]error),
		NoBanPermission: make(map[string]bool),
		Delay:           make(map[string]time.Duration),
	}
	for _, id := range guildIDs {
		g.Guilds = append(g.Guilds, platform.Guild{ID: id, Name: "guild-" + id})
	}
	return g
}

func (g *Gateway) record(c Call) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, c)
}

func (g *Gateway) wait(ctx context.Context, guildID string) error {
	g.mu.Lock()
	d := g.Delay[guildID]
	g.mu.Unlock()
	if d == 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return errors.External("esperar respuesta", ctx.Err())
	}
}

// Calls returns the recorded actions with the given op, sorted by guild
func (g *Gateway) Calls(op string) []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Call
	for _, c := range g.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out
}

// Sent returns every recorded message
func (g *Gateway) Sent() []Sent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Sent(nil), g.sent...)
}

func (g *Gateway) ListGuilds(context.Context) ([]platform.Guild, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	return append([]platform.Guild(nil), g.Guilds...), nil
}

func (g *Gateway) CanBan(ctx context.Context, guildID string) (bool, error) {
	if err := g.wait(ctx, guildID); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.NoBanPermission[guildID], nil
}

func (g *Gateway) FetchUser(_ context.Context, userID string) (*platform.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.Users[userID]
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("usuario %s", userID))
	}
	return u, nil
}

func (g *Gateway) FetchMember(ctx context.Context, guildID, userID string) (*platform.Member, error) {
	u, err := g.FetchUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &platform.Member{GuildID: guildID, User: *u}, nil
}

func (g *Gateway) BanMember(ctx context.Context, guildID, userID, reason string) error {
	g.record(Call{Op: "ban", GuildID: guildID, UserID: userID, Reason: reason})
	if err := g.wait(ctx, guildID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.BanErr[guildID]
}

func (g *Gateway) UnbanMember(ctx context.Context, guildID, userID string) error {
	g.record(Call{Op: "unban", GuildID: guildID, UserID: userID})
	if err := g.wait(ctx, guildID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.UnbanErr[guildID]
}

func (g *Gateway) TimeoutMember(ctx context.Context, guildID, userID string, until time.Time, reason string) error {
	g.record(Call{Op: "timeout", GuildID: guildID, UserID: userID, Reason: reason})
	if err := g.wait(ctx, guildID); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.TimeoutErr[guildID]
}

func (g *Gateway) GuildChannels(_ context.Context, guildID string) ([]platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]platform.Channel(nil), g.Channels[guildID]...), nil
}

func (g *Gateway) SendMessage(_ context.Context, channelID string, msg *platform.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, Sent{ChannelID: channelID, Message: msg})
	return fmt.Sprintf("msg-%d", len(g.sent)), nil
}

func (g *Gateway) SendDirectMessage(_ context.Context, userID string, msg *platform.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.DMErr != nil {
		return g.DMErr
	}
	g.sent = append(g.sent, Sent{UserID: userID, Message: msg})
	return nil
}
