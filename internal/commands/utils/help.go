package utils

import (
	"sort"
	"strings"

	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createHelpCommand creates the /utils help subcommand
func createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"Muestra información de ayuda",
		"utils",
		func(ctx *discord.CommandContext) error {
			return ctx.ReplyEphemeralEmbed(helpEmbed(ctx.Client.Commands.All()))
		},
	)
}

// helpEmbed lists the registered commands grouped by category
func helpEmbed(commands map[string]*discord.Command) *discordgo.MessageEmbed {
	byCategory := make(map[string][]string)
	for key, cmd := range commands {
		line := "`/" + strings.ReplaceAll(key, ".", " ") + "` - " + cmd.Description
		if cmd.Gated {
			line += " 🔒"
		}
		byCategory[cmd.Category] = append(byCategory[cmd.Category], line)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	embed := &discordgo.MessageEmbed{
		Title:       "📖 Ayuda de PancyGuard",
		Description: "Los comandos marcados con 🔒 requieren estar en la whitelist.",
		Color:       0x5865F2,
	}
	for _, c := range categories {
		lines := byCategory[c]
		sort.Strings(lines)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  categoryTitle(c),
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}

func categoryTitle(category string) string {
	switch category {
	case "guard":
		return "🚫 Blacklist"
	case "mod":
		return "🛡️ Moderación"
	case "utils":
		return "🔧 Utilidades"
	default:
		return category
	}
}
