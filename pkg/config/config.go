// Package config provides configuration management for the bot.
// It loads environment variables and makes them available throughout the application.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// DefaultOverrideUserIDs always pass the whitelist gate.
var DefaultOverrideUserIDs = []string{
	"686107711829704725",
	"708812851229229208",
	"1259678639159644292",
	"1168346688969252894",
}

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string
	DevGuildID string

	// Approval flow
	ApprovalGuildID   string
	ApprovalChannelID string
	OverrideUserIDs   []string

	// Redis
	RedisURL string

	// MongoDB
	MongoDBURL string
	DBName     string

	// MQTT
	MQTTHost     string
	MQTTPort     string
	MQTTUser     string
	MQTTPassword string

	// Google Drive
	DriveCredentials  string
	DriveParentFolder string
	ImageCacheTTL     time.Duration

	// Target server scraper
	ScraperMode string
	ScraperURL  string

	// Guild fan-out
	FanoutConcurrency int
	FanoutTimeout     time.Duration

	// Web Server
	Port         string
	AllowedHosts string

	// Environment
	Environment string

	// Webhooks
	ErrorWebhook      string
	LogsWebhook       string
	LogsWebServerHook string
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

var (
	ErrMissingToken           = errors.New("config: botToken no está definido")
	ErrMissingApprovalChannel = errors.New("config: approvalChannelId no está definido")
)

// cfg holds the global configuration instance
var (
	cfg     *Config
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}

// loadConfig performs the actual configuration loading
func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	cfg = &Config{
		BotToken:   getEnv("botToken", ""),
		DevGuildID: getEnv("devGuildId", ""),

		ApprovalGuildID:   getEnv("approvalGuildId", ""),
		ApprovalChannelID: getEnv("approvalChannelId", ""),
		OverrideUserIDs:   getEnvList("overrideUserIds", DefaultOverrideUserIDs),

		RedisURL: getEnv("redisUrl", "redis://localhost:6379/0"),

		MongoDBURL: getEnv("mongodbUrl", ""),
		DBName:     getEnv("dbName", "PancyGuard"),

		MQTTHost:     getEnv("MQTT_Host", ""),
		MQTTPort:     getEnv("MQTT_Port", "1883"),
		MQTTUser:     getEnv("MQTT_User", ""),
		MQTTPassword: getEnv("MQTT_Password", ""),

		DriveCredentials:  getEnv("driveCredentials", "credentials.json"),
		DriveParentFolder: getEnv("driveParentFolder", ""),
		ImageCacheTTL:     getEnvDuration("imageCacheTTL", 10*time.Minute),

		ScraperMode: getEnv("scraperMode", "http"),
		ScraperURL:  getEnv("scraperUrl", "http://localhost:9191"),

		FanoutConcurrency: getEnvInt("fanoutConcurrency", 5),
		FanoutTimeout:     getEnvDuration("fanoutTimeout", 10*time.Second),

		Port:         getEnv("PORT", "3000"),
		AllowedHosts: getEnv("allowedHosts", `^(localhost|127\.0\.0\.1)(:\d+)?$`),

		Environment: getEnv("enviroment", "dev"),

		ErrorWebhook:      getEnv("errorWebhook", ""),
		LogsWebhook:       getEnv("logsWebhook", ""),
		LogsWebServerHook: getEnv("logsWebServerWebhook", ""),
	}
}

// Load initializes the configuration from environment variables
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	return cfg, nil
}

// Get returns the current configuration
func Get() *Config {
	cfgOnce.Do(loadConfig)
	return cfg
}

// Validate checks the values the bot cannot start without
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return ErrMissingToken
	}
	if c.ApprovalChannelID == "" {
		return ErrMissingApprovalChannel
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks
func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return append([]string(nil), defaultValue...)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// MongoEnabled reports whether the audit database is configured
func (c *Config) MongoEnabled() bool {
	return c.MongoDBURL != ""
}

// MQTTEnabled reports whether an MQTT broker is configured
func (c *Config) MQTTEnabled() bool {
	return c.MQTTHost != ""
}
