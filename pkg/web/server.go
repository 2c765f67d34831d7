// Package web exposes the read-only status API of the bot over gin.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/httpx"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Options configures a Server
type Options struct {
	WebhookURL string
	// AllowedHosts is a regular expression matched against the Host header
	AllowedHosts string
	RateLimit    RateLimitConfig
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// Server represents the web server
type Server struct {
	engine           *gin.Engine
	httpServer       *http.Server
	webhookURL       string
	webhookClient    *http.Client
	allowedHostRegex *regexp.Regexp
	rateLimit        RateLimitConfig
}

// NewServer creates a new web server
func NewServer(opts Options) (*Server, error) {
	hostRegex, err := regexp.Compile(opts.AllowedHosts)
	if err != nil {
		return nil, fmt.Errorf("allowedHosts inválido: %w", err)
	}
	if opts.RateLimit.Window == 0 {
		opts.RateLimit.Window = 60 * time.Second
	}
	if opts.RateLimit.MaxRequests == 0 {
		opts.RateLimit.MaxRequests = 100
	}

	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:           engine,
		webhookURL:       opts.WebhookURL,
		webhookClient:    httpx.NewClient(httpx.Options{RetryMax: 1, Timeout: 5 * time.Second}),
		allowedHostRegex: hostRegex,
		rateLimit:        opts.RateLimit,
	}

	s.engine.Use(s.logsMiddleware())
	s.engine.Use(s.rateLimitMiddleware())

	s.setupErrorHandlers()

	return s, nil
}

// Engine returns the underlying Gin engine
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// logsMiddleware logs allowed requests and rejects unknown hosts
func (s *Server) logsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host

		if s.allowedHostRegex.MatchString(host) {
			logger.Debug(fmt.Sprintf("[LOG] Nueva solicitud: %s %s", c.Request.Method, c.Request.URL.Path), "WebServer")
			go s.sendLogToWebhook(requestSummary(c), false)
			c.Next()
			return
		}

		logger.Warn(fmt.Sprintf("[LOG] Solicitud Sospechosa: %s %s | %s", c.Request.Method, c.Request.URL.Path, c.ClientIP()), "WebServer")
		go s.sendLogToWebhook(requestSummary(c), true)
		c.AbortWithStatus(http.StatusForbidden)
	}
}

type summary struct {
	method, path, ip, query string
	headers                 http.Header
}

// requestSummary copies what the webhook needs before the context is recycled
func requestSummary(c *gin.Context) summary {
	return summary{
		method:  c.Request.Method,
		path:    c.Request.URL.Path,
		ip:      c.ClientIP(),
		query:   c.Request.URL.RawQuery,
		headers: c.Request.Header.Clone(),
	}
}

// sendLogToWebhook sends a log message to the Discord webhook
func (s *Server) sendLogToWebhook(r summary, suspicious bool) {
	if s.webhookURL == "" {
		return
	}

	title := fmt.Sprintf("💫 | Nueva solicitud al servidor web de tipo %s", r.method)
	color := 0x00AE86

	if suspicious {
		title = fmt.Sprintf("💫 | Solicitud Sospechosa Rechazada: %s %s", r.method, r.path)
		color = 0xFFA500
	}

	headers, _ := json.Marshal(r.headers)
	query := r.query
	if query == "" {
		query = "{}"
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{map[string]interface{}{
			"title": title,
			"description": fmt.Sprintf(
				"> **Ruta:** `%s`\n> **IP:** `%s`\n> **Headers:** ```%s``` \n> **Query:** ```%s```",
				r.path, r.ip, string(headers), query,
			),
			"color":     color,
			"timestamp": time.Now().Format(time.RFC3339),
		}},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return
	}

	resp, err := s.webhookClient.Post(s.webhookURL, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return
	}
	defer resp.Body.Close()
}

// rateLimitMiddleware allows MaxRequests per client IP in each window. The
// client table is an expiring LRU so idle IPs are forgotten.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	type clientInfo struct {
		count   int
		resetAt time.Time
	}
	var mu sync.Mutex
	clients := expirable.NewLRU[string, *clientInfo](10000, nil, s.rateLimit.Window)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		info, exists := clients.Get(ip)
		if !exists || now.After(info.resetAt) {
			info = &clientInfo{resetAt: now.Add(s.rateLimit.Window)}
			clients.Add(ip, info)
		}
		info.count++
		count := info.count
		mu.Unlock()

		if count > s.rateLimit.MaxRequests {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Demasiadas solicitudes, por favor intente de nuevo más tarde.",
			})
			return
		}

		c.Next()
	}
}

// setupErrorHandlers sets up error handling routes
func (s *Server) setupErrorHandlers() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "La ruta solicitada no existe.",
			"status":  404,
		})
	})

	s.engine.HandleMethodNotAllowed = true
	s.engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "Method Not Allowed",
			"message": "El método HTTP no está permitido para esta ruta.",
			"status":  405,
		})
	})
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(port string) {
	s.httpServer = &http.Server{
		Addr:              ":" + port,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info(fmt.Sprintf("🚀 Servidor escuchando en http://localhost:%s", port), "WebServer")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(fmt.Sprintf("Error starting web server: %v", err), "WebServer")
		}
	}()
}

// Shutdown stops accepting requests and waits for the active ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Group creates a new router group
func (s *Server) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return s.engine.Group(path, handlers...)
}
