// Package main provides a utility to sync Discord slash commands.
// It overwrites the registered commands with the ones PancyGuard defines, so
// stale commands disappear.
//
// Usage:
//
//	go run ./cmd/sync-commands [options]
//
// Options:
//
//	-list           List all registered commands (global or guild)
//	-clean          Remove all commands without registering new ones
//	-guild <id>     Target a specific guild instead of global commands
//	-sync           Overwrite the registered commands (default behavior)
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/PancyStudios/PancyGuard/internal/commands"
	"github.com/PancyStudios/PancyGuard/pkg/config"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

func main() {
	// Parse command line flags
	listCmd := flag.Bool("list", false, "List all registered commands")
	cleanCmd := flag.Bool("clean", false, "Remove all commands without registering new ones")
	guildID := flag.String("guild", "", "Target a specific guild (leave empty for global)")
	syncCmd := flag.Bool("sync", false, "Overwrite the registered commands")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System("Iniciando utilidad de sincronización de comandos...", "SyncCommands")

	client, err := discord.NewClient(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "SyncCommands")
		os.Exit(1)
	}
	client.DevGuildID = *guildID

	// Open connection to Discord
	if err := client.Session.Open(); err != nil {
		logger.Critical(fmt.Sprintf("Error connecting to Discord: %v", err), "SyncCommands")
		os.Exit(1)
	}
	defer client.Session.Close()

	logger.Success("Conectado a Discord", "SyncCommands")

	// Only the definitions are needed, handlers never run here
	commands.RegisterAll(client, commands.Deps{})

	switch {
	case *listCmd:
		listCommands(client.Session, *guildID)
	case *cleanCmd:
		cleanCommands(client.Session, *guildID)
	case *syncCmd:
		client.CommandHandler.RegisterCommands()
	default:
		client.CommandHandler.RegisterCommands()
	}

	logger.Success("Operación completada exitosamente", "SyncCommands")
}

func scopeName(guildID string) string {
	if guildID == "" {
		return "globales"
	}
	return "del servidor " + guildID
}

// listCommands lists all commands registered with Discord
func listCommands(s *discordgo.Session, guildID string) {
	logger.Info("📋 Listando comandos "+scopeName(guildID)+"...", "SyncCommands")

	cmds, err := s.ApplicationCommands(s.State.User.ID, guildID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error obteniendo comandos: %v", err), "SyncCommands")
		return
	}

	if len(cmds) == 0 {
		logger.Info("No hay comandos registrados", "SyncCommands")
		return
	}

	logger.Info(fmt.Sprintf("Comandos encontrados: %d", len(cmds)), "SyncCommands")
	for i, cmd := range cmds {
		logger.Info(fmt.Sprintf("  %d. /%s - %s (ID: %s)", i+1, cmd.Name, cmd.Description, cmd.ID), "SyncCommands")
	}
}

// cleanCommands removes all commands from Discord with an empty overwrite
func cleanCommands(s *discordgo.Session, guildID string) {
	logger.Info("🧹 Eliminando comandos "+scopeName(guildID)+"...", "SyncCommands")

	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		logger.Error(fmt.Sprintf("Error eliminando comandos: %v", err), "SyncCommands")
		return
	}

	logger.Success("✅ Todos los comandos han sido eliminados", "SyncCommands")
}
