package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/config"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createStatsCommand creates the /utils stats subcommand
func createStatsCommand(deps Deps) *discord.Command {
	return discord.NewCommand(
		"stats",
		"Muestra estadísticas del bot",
		"utils",
		func(ctx *discord.CommandContext) error { return statsHandler(ctx, deps) },
	).WithDefer(false)
}

func statsHandler(ctx *discord.CommandContext, deps Deps) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memberCount := 0
	ctx.Session.State.RLock()
	for _, guild := range ctx.Session.State.Guilds {
		memberCount += guild.MemberCount
	}
	ctx.Session.State.RUnlock()

	blacklisted := "?"
	if deps.Blacklist != nil {
		if _, count, err := deps.Blacklist.Snapshot(ctx.Context); err == nil {
			blacklisted = fmt.Sprint(count)
		}
	}

	embed := &discordgo.MessageEmbed{
		Title: "📊 Estadísticas del Bot",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Versión del Bot", Value: config.Version, Inline: true},
			{Name: "🐹 Versión de Go", Value: strings.TrimPrefix(runtime.Version(), "go"), Inline: true},
			{Name: "📚 Versión de DiscordGo", Value: discordgo.VERSION, Inline: true},
			{Name: "🖥 Uso de RAM", Value: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024), Inline: true},
			{Name: "⚙️ Goroutines", Value: fmt.Sprintf("%d Goroutines / %d CPUs", runtime.NumGoroutine(), runtime.NumCPU()), Inline: true},
			{Name: "⏱ Uptime", Value: formatDuration(ctx.Client.Uptime()), Inline: true},
			{Name: "🏠 Guilds", Value: fmt.Sprint(ctx.Client.GuildCount()), Inline: true},
			{Name: "👥 Miembros", Value: fmt.Sprint(memberCount), Inline: true},
			{Name: "🚫 Blacklist", Value: blacklisted, Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "💫 - Developed by PancyStudios"},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	return ctx.EditReplyEmbed(embed)
}

// formatDuration formats a time.Duration into a human-readable string
func formatDuration(dur time.Duration) string {
	days := int(dur.Hours() / 24)
	hours := int(dur.Hours()) % 24
	minutes := int(dur.Minutes()) % 60
	seconds := int(dur.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d días", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d horas", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minutos", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%d segundos", seconds))
	}

	if len(parts) == 0 {
		return "0 segundos"
	}
	return strings.Join(parts, ", ")
}
