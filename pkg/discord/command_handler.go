package discord

import (
	"fmt"

	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// CommandHandler keeps the slash command definitions pushed to Discord
type CommandHandler struct {
	client        *ExtendedClient
	slashCommands []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	return &CommandHandler{
		client:        client,
		slashCommands: make([]*discordgo.ApplicationCommand, 0),
	}
}

// RegisterCommand adds a command to the handler
func (ch *CommandHandler) RegisterCommand(cmd *Command) {
	ch.client.Commands.Set(cmd.Name, cmd)
	ch.slashCommands = append(ch.slashCommands, cmd.ToApplicationCommand())
	logger.Debug("Comando registrado: "+cmd.Name, "CommandHandler")
}

// RegisterComponent adds a button or modal handler
func (ch *CommandHandler) RegisterComponent(comp *Component) {
	ch.client.Components.Register(comp)
}

// BuildCommandGroup creates a command group with subcommands
func (ch *CommandHandler) BuildCommandGroup(name, description string, subcommands ...*Command) *discordgo.ApplicationCommand {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))

	for _, cmd := range subcommands {
		ch.client.Commands.Set(name+"."+cmd.Name, cmd)

		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        cmd.Name,
			Description: cmd.Description,
			Options:     cmd.Options,
		})
	}

	group := &discordgo.ApplicationCommand{
		Name:        name,
		Description: description,
		Options:     options,
	}
	ch.slashCommands = append(ch.slashCommands, group)
	return group
}

// ApplicationCommands returns the definitions that RegisterCommands pushes
func (ch *CommandHandler) ApplicationCommands() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, len(ch.slashCommands))
	copy(out, ch.slashCommands)
	return out
}

// RegisterCommands overwrites the application commands with the registered
// set. With a DevGuildID they go to that guild only.
func (ch *CommandHandler) RegisterCommands() {
	s := ch.client.Session
	guildID := ch.client.DevGuildID

	scope := "globales"
	if guildID != "" {
		scope = "del servidor " + guildID
	}
	logger.Info("🔄 Registrando comandos "+scope+"...", "CommandHandler")

	created, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, ch.slashCommands)
	if err != nil {
		logger.Error("Error registrando comandos: "+err.Error(), "CommandHandler")
		return
	}

	logger.Success(fmt.Sprintf("✅ %d comandos %s registrados.", len(created), scope), "CommandHandler")
}

// UnregisterCommands removes all global commands from Discord
func (ch *CommandHandler) UnregisterCommands() error {
	s := ch.client.Session
	commands, err := s.ApplicationCommands(s.State.User.ID, "")
	if err != nil {
		return err
	}

	for _, cmd := range commands {
		if err := s.ApplicationCommandDelete(s.State.User.ID, "", cmd.ID); err != nil {
			logger.Error("Error eliminando comando "+cmd.Name+": "+err.Error(), "CommandHandler")
		}
	}

	logger.Success("Comandos globales eliminados.", "CommandHandler")
	return nil
}
