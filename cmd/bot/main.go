// Package main is the entry point for PancyGuard.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PancyStudios/PancyGuard/internal/commands"
	"github.com/PancyStudios/PancyGuard/internal/commands/guard"
	"github.com/PancyStudios/PancyGuard/internal/commands/mod"
	"github.com/PancyStudios/PancyGuard/internal/commands/utils"
	"github.com/PancyStudios/PancyGuard/internal/events"
	"github.com/PancyStudios/PancyGuard/pkg/access"
	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/cache"
	"github.com/PancyStudios/PancyGuard/pkg/config"
	"github.com/PancyStudios/PancyGuard/pkg/database"
	"github.com/PancyStudios/PancyGuard/pkg/discord"
	"github.com/PancyStudios/PancyGuard/pkg/errors"
	guardevents "github.com/PancyStudios/PancyGuard/pkg/events"
	"github.com/PancyStudios/PancyGuard/pkg/httpx"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/PancyStudios/PancyGuard/pkg/moderation"
	"github.com/PancyStudios/PancyGuard/pkg/mqtt"
	"github.com/PancyStudios/PancyGuard/pkg/scraper"
	"github.com/PancyStudios/PancyGuard/pkg/storage"
	"github.com/PancyStudios/PancyGuard/pkg/storage/drive"
	"github.com/PancyStudios/PancyGuard/pkg/store"
	"github.com/PancyStudios/PancyGuard/pkg/web"
)

const (
	imageCacheSize  = 128
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System(fmt.Sprintf("Iniciando PancyGuard %s (%s)...", config.Version, cfg.Environment), "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	if err := cfg.Validate(); err != nil {
		logger.Critical(fmt.Sprintf("Configuración inválida: %v", err), "Main")
		os.Exit(1)
	}

	// Initialize error handler
	var discordClient *discord.ExtendedClient
	errors.Init(cfg.ErrorWebhook, func() {
		if discordClient != nil {
			if err := discordClient.Stop(); err != nil {
				logger.Error(fmt.Sprintf("Error cerrando el cliente de Discord: %v", err), "Main")
			}
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis holds every piece of state the bot decides on
	kv, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error conectando a Redis: %v", err), "Main")
		os.Exit(1)
	}
	defer kv.Close()
	logger.Success("Conectado a Redis", "Main")

	// MongoDB is optional and only keeps the audit trail
	var auditor guardevents.Auditor = guardevents.Nop{}
	var history mod.History
	var db *database.Database
	if cfg.MongoEnabled() {
		db, err = database.Init(ctx, cfg.MongoDBURL, cfg.DBName)
		if err != nil {
			// Continue without database, it will attempt to reconnect
			logger.Error(fmt.Sprintf("Error connecting to database: %v", err), "Main")
		}
		auditLog := database.NewAuditLog(db)
		auditor = auditLog
		history = auditLog
	} else {
		logger.Warn("mongodbUrl vacío, el historial de auditoría está deshabilitado", "Main")
	}

	// Initialize MQTT
	var publisher guardevents.Publisher = guardevents.Nop{}
	var mqttClient *mqtt.MqttCommunicator
	if cfg.MQTTEnabled() {
		mqttClientID := "pancyguard"
		if !cfg.IsProd() {
			mqttClientID = "pancyguard_canary"
		}
		mqttClient = mqtt.Init(cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTUser, cfg.MQTTPassword, mqttClientID)
		publisher = mqttClient
	}

	httpClient := httpx.NewClient(httpx.Options{Logger: logger.Leveled("HTTP")})
	evidence := newStorage(ctx, cfg)

	var members blacklist.MemberSource
	switch cfg.ScraperMode {
	case "mqtt":
		if mqttClient != nil {
			members = scraper.NewMQTTSource(mqttClient)
		} else {
			logger.Warn("scraperMode=mqtt sin broker configurado, /sync no estará disponible", "Main")
		}
	default:
		members = scraper.NewHTTPSource(cfg.ScraperURL, httpClient)
	}

	// Initialize Discord client
	discordClient, err = discord.Init(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}

	whitelist := access.NewWhitelist(kv, cfg.OverrideUserIDs)
	discordClient.Access = whitelist
	discordClient.DevGuildID = cfg.DevGuildID

	toggles := cache.NewGuildToggles(true)
	workflow := blacklist.NewWorkflow(kv, discordClient.Gateway, evidence, fanoutConfig(cfg),
		blacklist.WithToggles(toggles),
		blacklist.WithAuditor(auditor),
		blacklist.WithPublisher(publisher),
	)
	warns := moderation.NewService(kv, discordClient.Gateway,
		moderation.WithAuditor(auditor),
		moderation.WithPublisher(publisher),
	)

	// Register commands using the commands package
	commands.RegisterAll(discordClient, commands.Deps{
		Guard: guard.Deps{
			Workflow:          workflow,
			Whitelist:         whitelist,
			Gateway:           discordClient.Gateway,
			Storage:           evidence,
			HTTP:              httpClient,
			Toggles:           toggles,
			Members:           members,
			Images:            cache.NewTTL[string, []storage.FileMeta](imageCacheSize, cfg.ImageCacheTTL),
			ApprovalChannelID: cfg.ApprovalChannelID,
		},
		Mod: mod.Deps{Warns: warns, History: history},
		Utils: utils.Deps{
			Store:     kv,
			DB:        db,
			MQTT:      mqttClient,
			Blacklist: workflow.Repository(),
		},
	})

	// Register events using the events package
	events.RegisterAll(discordClient, events.Deps{Workflow: workflow})

	if mqttClient != nil {
		registerMQTTHandlers(mqttClient, workflow.Repository())
	}

	// Initialize web server
	webServer, err := web.NewServer(web.Options{
		WebhookURL:   cfg.LogsWebServerHook,
		AllowedHosts: cfg.AllowedHosts,
	})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creando el servidor web: %v", err), "Main")
		os.Exit(1)
	}
	web.SetupAPIRoutes(webServer, web.Deps{
		Store:     kv,
		Blacklist: workflow.Repository(),
		Bot:       discordClient,
		DB:        db,
		MQTT:      mqttClient,
	})
	webServer.StartAsync(cfg.Port)

	// Start the bot
	if err := discordClient.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}

	logger.Success("PancyGuard iniciado correctamente!", "Main")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.System("Apagando PancyGuard...", "Main")
	cancel()
	shutdown(discordClient, webServer, db, mqttClient)
}

// newStorage connects to Google Drive, falling back to in-memory storage so
// the approval flow keeps working without credentials.
func newStorage(ctx context.Context, cfg *config.Config) storage.Storage {
	if cfg.DriveCredentials == "" {
		logger.Warn("Sin credenciales de Drive, las pruebas se guardarán en memoria", "Main")
		return storage.NewMemory()
	}
	client, err := drive.New(ctx, cfg.DriveCredentials, cfg.DriveParentFolder)
	if err != nil {
		logger.Error(fmt.Sprintf("Error inicializando Google Drive, usando memoria: %v", err), "Main")
		return storage.NewMemory()
	}
	logger.Success("Google Drive inicializado", "Main")
	return client
}

func fanoutConfig(cfg *config.Config) blacklist.FanoutConfig {
	fc := blacklist.DefaultFanoutConfig()
	if cfg.FanoutConcurrency > 0 {
		fc.Concurrency = cfg.FanoutConcurrency
	}
	if cfg.FanoutTimeout > 0 {
		fc.Timeout = cfg.FanoutTimeout
	}
	return fc
}

// registerMQTTHandlers answers blacklist queries from other PancyStudios services
func registerMQTTHandlers(mc *mqtt.MqttCommunicator, repo *blacklist.Repository) {
	mc.On("guard/blacklist/stats", func(map[string]interface{}) (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hash, count, err := repo.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"count": count, "hash": hash}, nil
	})

	mc.On("guard/blacklist/check", func(payload map[string]interface{}) (interface{}, error) {
		userID, _ := payload["userId"].(string)
		if userID == "" {
			return nil, fmt.Errorf("userId requerido")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		entry, err := repo.Get(ctx, userID)
		if errors.Is(err, errors.ErrNotFound) {
			return map[string]interface{}{"blacklisted": false}, nil
		}
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"blacklisted": true, "entry": entry}, nil
	})
}

func shutdown(client *discord.ExtendedClient, server *web.Server, db *database.Database, mc *mqtt.MqttCommunicator) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
		logger.Error(fmt.Sprintf("Error cerrando el servidor web: %v", err), "Main")
	}
	if err := client.Stop(); err != nil {
		logger.Error(fmt.Sprintf("Error cerrando el cliente de Discord: %v", err), "Main")
	}
	if mc != nil {
		mc.Destroy()
	}
	if db != nil {
		if err := db.Disconnect(ctx); err != nil {
			logger.Error(fmt.Sprintf("Error cerrando MongoDB: %v", err), "Main")
		}
	}
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
