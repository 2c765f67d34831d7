package web

import (
	"context"
	"net/http"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/config"
	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
)

// Bot is the part of the Discord client the API reports on
type Bot interface {
	IsReady() bool
	GuildCount() int
	Uptime() time.Duration
	BotUser() *discordgo.User
}

// Pinger checks a backing service
type Pinger interface {
	Ping(ctx context.Context) error
}

// DBStatus reports the audit database state
type DBStatus interface {
	GetStatus(ctx context.Context) (string, bool)
}

// Broker reports the MQTT connection state
type Broker interface {
	IsConnected() bool
}

// Deps are the services behind the API routes. Any of them may be nil.
type Deps struct {
	Store     Pinger
	Blacklist *blacklist.Repository
	Bot       Bot
	DB        DBStatus
	MQTT      Broker
}

// SetupAPIRoutes sets up the API routes
func SetupAPIRoutes(s *Server, deps Deps) {
	h := &handlers{deps: deps}
	api := s.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/status", h.status)
		api.GET("/bot", h.botInfo)
		api.GET("/blacklist", h.blacklistSummary)
		api.GET("/blacklist/:userId", h.blacklistEntry)
	}
}

type handlers struct {
	deps Deps
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "PancyGuard is running",
		"version": config.Version,
	})
}

func (h *handlers) status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	redisOnline := h.deps.Store != nil && h.deps.Store.Ping(ctx) == nil

	dbStatus, dbOnline := "⚫ | Deshabilitada", false
	if h.deps.DB != nil {
		dbStatus, dbOnline = h.deps.DB.GetStatus(ctx)
	}

	mqttOnline := h.deps.MQTT != nil && h.deps.MQTT.IsConnected()
	botOnline := h.deps.Bot != nil && h.deps.Bot.IsReady()

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"redis":  gin.H{"isOnline": redisOnline},
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"mqtt": gin.H{"isOnline": mqttOnline},
		"bot":  gin.H{"isOnline": botOnline},
	})
}

func (h *handlers) botInfo(c *gin.Context) {
	if h.deps.Bot == nil || !h.deps.Bot.IsReady() || h.deps.Bot.BotUser() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Bot Offline",
			"message": "El bot no está disponible en este momento.",
		})
		return
	}

	user := h.deps.Bot.BotUser()
	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"avatar":   user.AvatarURL(""),
		"guilds":   h.deps.Bot.GuildCount(),
		"uptime":   h.deps.Bot.Uptime().Round(time.Second).String(),
		"isReady":  true,
	})
}

func (h *handlers) blacklistSummary(c *gin.Context) {
	if h.deps.Blacklist == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store Offline"})
		return
	}
	hash, count, err := h.deps.Blacklist.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errors.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": count,
		"hash":  hash,
	})
}

func (h *handlers) blacklistEntry(c *gin.Context) {
	if h.deps.Blacklist == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store Offline"})
		return
	}
	entry, err := h.deps.Blacklist.Get(c.Request.Context(), c.Param("userId"))
	switch {
	case errors.Is(err, errors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "El usuario no está en la blacklist.",
			"status":  404,
		})
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": errors.UserMessage(err)})
	default:
		c.JSON(http.StatusOK, entry)
	}
}
