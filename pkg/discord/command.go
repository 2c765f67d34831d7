package discord

import (
	"context"
	"sync/atomic"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// CommandContext provides context for command, component and modal execution
type CommandContext struct {
	Context     context.Context
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Client      *ExtendedClient

	responded atomic.Bool
}

// Command represents a Discord slash command
type Command struct {
	Name            string
	Description     string
	Category        string
	Options         []*discordgo.ApplicationCommandOption
	UserPermissions int64
	// Gated commands require the caller to pass the whitelist
	Gated bool
	// Deferred commands acknowledge the interaction before Run
	Deferred  bool
	Ephemeral bool
	Run       CommandRunFunc
}

// CommandRunFunc is the function type for command execution
type CommandRunFunc func(ctx *CommandContext) error

// NewCommand creates a new Command with required fields
func NewCommand(name, description, category string, run CommandRunFunc) *Command {
	return &Command{
		Name:        name,
		Description: description,
		Category:    category,
		Run:         run,
	}
}

// WithOptions sets the command options
func (c *Command) WithOptions(opts ...*discordgo.ApplicationCommandOption) *Command {
	c.Options = opts
	return c
}

// WithUserPermissions sets the default member permissions shown by Discord
func (c *Command) WithUserPermissions(perms int64) *Command {
	c.UserPermissions = perms
	return c
}

// Whitelisted marks the command as restricted to whitelisted users
func (c *Command) Whitelisted() *Command {
	c.Gated = true
	return c
}

// WithDefer acknowledges the interaction before running, optionally ephemeral
func (c *Command) WithDefer(ephemeral bool) *Command {
	c.Deferred = true
	c.Ephemeral = ephemeral
	return c
}

// ToApplicationCommand converts the command to a Discord application command
func (c *Command) ToApplicationCommand() *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        c.Name,
		Description: c.Description,
		Options:     c.Options,
	}
	if c.UserPermissions != 0 {
		perms := c.UserPermissions
		cmd.DefaultMemberPermissions = &perms
	}
	return cmd
}

func (ctx *CommandContext) respond(resp *discordgo.InteractionResponse) error {
	err := ctx.Session.InteractionRespond(ctx.Interaction.Interaction, resp, discordgo.WithContext(ctx.Context))
	if err == nil {
		ctx.responded.Store(true)
	}
	return err
}

// Reply sends a reply to the interaction
func (ctx *CommandContext) Reply(content string) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

// ReplyEmbed sends an embed reply to the interaction
func (ctx *CommandContext) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// ReplyEphemeral sends an ephemeral reply visible only to the user
func (ctx *CommandContext) ReplyEphemeral(content string) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// ReplyEphemeralEmbed sends an ephemeral embed reply visible only to the user
func (ctx *CommandContext) ReplyEphemeralEmbed(embeds ...*discordgo.MessageEmbed) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: embeds,
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

// Defer defers the interaction response
func (ctx *CommandContext) Defer(ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

// DeferUpdate acknowledges a component interaction without a new message
func (ctx *CommandContext) DeferUpdate() error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// Update replaces the message the component belongs to as the response
func (ctx *CommandContext) Update(embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     embeds,
			Components: components,
		},
	})
}

// ShowModal opens a modal dialog
func (ctx *CommandContext) ShowModal(customID, title string, components ...discordgo.MessageComponent) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: components,
		},
	})
}

// EditReply edits the original interaction response
func (ctx *CommandContext) EditReply(content string) error {
	_, err := ctx.Session.InteractionResponseEdit(ctx.Interaction.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}, discordgo.WithContext(ctx.Context))
	return err
}

// EditReplyEmbed edits the original interaction response with embeds
func (ctx *CommandContext) EditReplyEmbed(embeds ...*discordgo.MessageEmbed) error {
	_, err := ctx.Session.InteractionResponseEdit(ctx.Interaction.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	}, discordgo.WithContext(ctx.Context))
	return err
}

// EditReplyView edits the original interaction response with embeds and
// components
func (ctx *CommandContext) EditReplyView(embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	_, err := ctx.Session.InteractionResponseEdit(ctx.Interaction.Interaction, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx.Context))
	return err
}

// EditMessage replaces the message a component belongs to
func (ctx *CommandContext) EditMessage(embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	msg := ctx.Interaction.Message
	if msg == nil {
		return nil
	}
	_, err := ctx.Session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         msg.ID,
		Channel:    msg.ChannelID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx.Context))
	return err
}

// FollowUpEphemeral sends an extra ephemeral message after a deferred response
func (ctx *CommandContext) FollowUpEphemeral(content string, embeds ...*discordgo.MessageEmbed) error {
	_, err := ctx.Session.FollowupMessageCreate(ctx.Interaction.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Embeds:  embeds,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx.Context))
	return err
}

// ReplyError turns err into an ephemeral user message, editing the deferred
// response when one was already sent.
func (ctx *CommandContext) ReplyError(err error) {
	msg := errors.UserMessage(err)
	var sendErr error
	if ctx.responded.Load() {
		sendErr = ctx.FollowUpEphemeral(msg)
	} else {
		sendErr = ctx.ReplyEphemeral(msg)
	}
	if sendErr != nil {
		logger.Warn("No se pudo notificar el error al usuario: "+sendErr.Error(), "Interaction")
	}
}

// GetOption retrieves an option value by name
func (ctx *CommandContext) GetOption(name string) *discordgo.ApplicationCommandInteractionDataOption {
	options := ctx.Interaction.ApplicationCommandData().Options
	return findOption(options, name)
}

// findOption recursively finds an option by name
func findOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
		if len(opt.Options) > 0 {
			if found := findOption(opt.Options, name); found != nil {
				return found
			}
		}
	}
	return nil
}

// GetStringOption retrieves a string option value
func (ctx *CommandContext) GetStringOption(name string) string {
	opt := ctx.GetOption(name)
	if opt == nil {
		return ""
	}
	return opt.StringValue()
}

// GetIntOption retrieves an integer option value
func (ctx *CommandContext) GetIntOption(name string) int64 {
	opt := ctx.GetOption(name)
	if opt == nil {
		return 0
	}
	return opt.IntValue()
}

// GetBoolOption retrieves a boolean option value
func (ctx *CommandContext) GetBoolOption(name string) bool {
	opt := ctx.GetOption(name)
	if opt == nil {
		return false
	}
	return opt.BoolValue()
}

// GetUserOption retrieves a user option value from the resolved data
func (ctx *CommandContext) GetUserOption(name string) *discordgo.User {
	opt := ctx.GetOption(name)
	if opt == nil {
		return nil
	}
	id, _ := opt.Value.(string)
	if resolved := ctx.Interaction.ApplicationCommandData().Resolved; resolved != nil {
		if u, ok := resolved.Users[id]; ok {
			return u
		}
	}
	return opt.UserValue(ctx.Session)
}

// GetAttachmentOption retrieves an attachment option from the resolved data
func (ctx *CommandContext) GetAttachmentOption(name string) *discordgo.MessageAttachment {
	opt := ctx.GetOption(name)
	if opt == nil {
		return nil
	}
	id, _ := opt.Value.(string)
	resolved := ctx.Interaction.ApplicationCommandData().Resolved
	if resolved == nil {
		return nil
	}
	return resolved.Attachments[id]
}

// ModalValue returns the text typed in a modal field
func (ctx *CommandContext) ModalValue(fieldID string) string {
	for _, row := range ctx.Interaction.ModalSubmitData().Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if input, ok := c.(*discordgo.TextInput); ok && input.CustomID == fieldID {
				return input.Value
			}
		}
	}
	return ""
}

// Guild returns the guild where the interaction occurred
func (ctx *CommandContext) Guild() *discordgo.Guild {
	if ctx.Interaction.GuildID == "" {
		return nil
	}
	guild, _ := ctx.Session.State.Guild(ctx.Interaction.GuildID)
	return guild
}

// User returns the user who triggered the interaction
func (ctx *CommandContext) User() *discordgo.User {
	if ctx.Interaction.Member != nil {
		return ctx.Interaction.Member.User
	}
	return ctx.Interaction.User
}

// Member returns the guild member who triggered the interaction
func (ctx *CommandContext) Member() *discordgo.Member {
	return ctx.Interaction.Member
}
