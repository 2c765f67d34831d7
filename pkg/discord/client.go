// Package discord provides the Discord bot client and related structures.
// It wraps discordgo with command, component and modal routing and exposes
// a platform.Gateway for the moderation core.
package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// DefaultInteractionTimeout bounds a single interaction, fan-outs included
const DefaultInteractionTimeout = 5 * time.Minute

func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			logger.Error(msg, "DiscordGo")
		case discordgo.LogWarning:
			logger.Warn(msg, "DiscordGo")
		default:
			logger.Debug(msg, "DiscordGo")
		}
	}
}

// Authorizer is the whitelist gate checked before gated interactions
type Authorizer interface {
	Require(ctx context.Context, userID string) error
}

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session        *discordgo.Session
	Gateway        *Gateway
	Commands       *CommandCollection
	Components     *ComponentCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	Access         Authorizer
	StartTime      time.Time
	// DevGuildID receives the commands marked for development
	DevGuildID string

	interactionTimeout time.Duration
	mu                 sync.RWMutex
	isReady            bool
}

// CommandCollection holds registered commands
type CommandCollection struct {
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewCommandCollection creates a new CommandCollection
func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]*Command),
	}
}

// Set adds or updates a command
func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.commands[name] = cmd
}

// Get retrieves a command by name
func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

// Size returns the number of commands
func (cc *CommandCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.commands)
}

// All returns all commands
func (cc *CommandCollection) All() map[string]*Command {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	result := make(map[string]*Command, len(cc.commands))
	for k, v := range cc.commands {
		result[k] = v
	}
	return result
}

var (
	client *ExtendedClient
	once   sync.Once
)

// Init initializes the global Discord client
func Init(token string) (*ExtendedClient, error) {
	var err error
	once.Do(func() {
		client, err = NewClient(token)
	})
	return client, err
}

// Get returns the global Discord client
func Get() *ExtendedClient {
	return client
}

// NewClient creates a new ExtendedClient
func NewClient(token string) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers

	session.ShardCount = 1
	session.SyncEvents = false
	session.StateEnabled = true
	session.LogLevel = discordgo.LogWarning

	c := &ExtendedClient{
		Session:            session,
		Gateway:            NewGateway(session),
		Commands:           NewCommandCollection(),
		Components:         NewComponentCollection(),
		interactionTimeout: DefaultInteractionTimeout,
	}

	c.CommandHandler = NewCommandHandler(c)
	c.EventHandler = NewEventHandler(c)

	return c, nil
}

// Start opens the gateway connection. Commands are pushed to Discord once
// the Ready event arrives.
func (c *ExtendedClient) Start() error {
	c.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		c.mu.Lock()
		c.isReady = true
		c.mu.Unlock()

		logger.Success("Bot conectado como: "+r.User.Username, "Client")

		c.CommandHandler.RegisterCommands()
	})

	c.Session.AddHandler(c.handleInteraction)

	c.StartTime = time.Now()

	return c.Session.Open()
}

// interactionOrigin labels panic reports with the interaction being handled
func interactionOrigin(i *discordgo.InteractionCreate) errors.Origin {
	o := errors.Origin{GuildID: i.GuildID}
	if i.Member != nil && i.Member.User != nil {
		o.UserID = i.Member.User.ID
	} else if i.User != nil {
		o.UserID = i.User.ID
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		o.Source, o.Name = "command", commandName(i.ApplicationCommandData())
	case discordgo.InteractionMessageComponent:
		o.Source, o.Name = "component", i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		o.Source, o.Name = "modal", i.ModalSubmitData().CustomID
	default:
		o.Source = "interaction"
	}
	return o
}

// commandName builds the registry key, including subcommand paths
func commandName(data discordgo.ApplicationCommandInteractionData) string {
	name := data.Name
	if len(data.Options) > 0 {
		opt := data.Options[0]
		if opt.Type == discordgo.ApplicationCommandOptionSubCommandGroup {
			if len(opt.Options) > 0 {
				name = data.Name + "." + opt.Name + "." + opt.Options[0].Name
			}
		} else if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			name = data.Name + "." + opt.Name
		}
	}
	return name
}

// handleInteraction routes every interaction to its own goroutine
func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	go func() {
		defer errors.RecoverMiddleware(interactionOrigin(i))()

		ctx, cancel := context.WithTimeout(context.Background(), c.interactionTimeout)
		defer cancel()

		cmdCtx := &CommandContext{
			Context:     ctx,
			Session:     s,
			Interaction: i,
			Client:      c,
		}

		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			c.runCommand(cmdCtx)
		case discordgo.InteractionMessageComponent:
			c.runComponent(cmdCtx, i.MessageComponentData().CustomID)
		case discordgo.InteractionModalSubmit:
			c.runComponent(cmdCtx, i.ModalSubmitData().CustomID)
		}
	}()
}

func (c *ExtendedClient) runCommand(ctx *CommandContext) {
	name := commandName(ctx.Interaction.ApplicationCommandData())
	cmd, ok := c.Commands.Get(name)
	if !ok {
		logger.Warn("Command not found: "+name, "Client")
		return
	}

	if cmd.Gated {
		if err := c.WhitelistMiddleware(ctx); err != nil {
			return
		}
	}

	if cmd.Deferred {
		if err := ctx.Defer(cmd.Ephemeral); err != nil {
			logger.Error("No se pudo diferir la respuesta de "+name+": "+err.Error(), "Client")
			return
		}
	}

	if err := cmd.Run(ctx); err != nil {
		logger.Error("Error executing command "+name+": "+err.Error(), "Client")
		ctx.ReplyError(err)
	}
}

func (c *ExtendedClient) runComponent(ctx *CommandContext, customID string) {
	comp, payload, ok := c.Components.Match(customID)
	if !ok {
		logger.Warn("Componente sin handler: "+customID, "Client")
		return
	}

	if comp.Gated {
		if err := c.WhitelistMiddleware(ctx); err != nil {
			return
		}
	}

	if err := comp.Run(ctx, payload); err != nil {
		logger.Error("Error en componente "+customID+": "+err.Error(), "Client")
		ctx.ReplyError(err)
	}
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.mu.Lock()
	c.isReady = false
	c.mu.Unlock()

	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GuildCount returns the number of guilds the bot is in
func (c *ExtendedClient) GuildCount() int {
	if c == nil || c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}

// Uptime returns the time since Start
func (c *ExtendedClient) Uptime() time.Duration {
	if c == nil || c.StartTime.IsZero() {
		return 0
	}
	return time.Since(c.StartTime)
}

// BotUser returns the bot account once connected
func (c *ExtendedClient) BotUser() *discordgo.User {
	if c == nil || c.Session == nil || c.Session.State == nil {
		return nil
	}
	return c.Session.State.User
}
