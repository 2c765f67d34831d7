package discord

import (
	"sync"

	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// EventHandler manages event registration
type EventHandler struct {
	client *ExtendedClient
	events []interface{}
	mu     sync.RWMutex
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(client *ExtendedClient) *EventHandler {
	return &EventHandler{
		client: client,
		events: make([]interface{}, 0),
	}
}

// RegisterEvent adds an event handler to the Discord session
func (eh *EventHandler) RegisterEvent(handler interface{}) {
	eh.client.Session.AddHandler(handler)
	eh.mu.Lock()
	eh.events = append(eh.events, handler)
	eh.mu.Unlock()
}

// Count returns the number of registered handlers
func (eh *EventHandler) Count() int {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return len(eh.events)
}

// ReadyHandler is called when the bot is ready
type ReadyHandler func(s *discordgo.Session, r *discordgo.Ready)

// GuildCreateHandler is called when the bot joins a guild
type GuildCreateHandler func(s *discordgo.Session, g *discordgo.GuildCreate)

// GuildDeleteHandler is called when the bot leaves a guild
type GuildDeleteHandler func(s *discordgo.Session, g *discordgo.GuildDelete)

// MemberAddHandler is called when a member joins a guild
type MemberAddHandler func(s *discordgo.Session, m *discordgo.GuildMemberAdd)

// discordgo dispatches on the unnamed func types, so the named handler
// types are converted back before AddHandler.

// OnReady registers a ready event handler
func (eh *EventHandler) OnReady(handler ReadyHandler) {
	eh.RegisterEvent((func(*discordgo.Session, *discordgo.Ready))(handler))
	logger.Debug("Evento 'Ready' registrado", "EventHandler")
}

// OnGuildCreate registers a guild create event handler
func (eh *EventHandler) OnGuildCreate(handler GuildCreateHandler) {
	eh.RegisterEvent((func(*discordgo.Session, *discordgo.GuildCreate))(handler))
	logger.Debug("Evento 'GuildCreate' registrado", "EventHandler")
}

// OnGuildDelete registers a guild delete event handler
func (eh *EventHandler) OnGuildDelete(handler GuildDeleteHandler) {
	eh.RegisterEvent((func(*discordgo.Session, *discordgo.GuildDelete))(handler))
	logger.Debug("Evento 'GuildDelete' registrado", "EventHandler")
}

// OnGuildMemberAdd registers a member join handler
func (eh *EventHandler) OnGuildMemberAdd(handler MemberAddHandler) {
	eh.RegisterEvent((func(*discordgo.Session, *discordgo.GuildMemberAdd))(handler))
	logger.Debug("Evento 'GuildMemberAdd' registrado", "EventHandler")
}
