// Package errors provides the error taxonomy shared by moderation operations
// and the anti-crash handler that counts recovered panics and shuts the bot
// down when they pile up.
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/httpx"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/goccy/go-json"
)

const (
	reportColor    = 0xFF0000
	maxStackLength = 900
)

// Origin tells where a panic happened: the interaction, event or guild
// action that was running
type Origin struct {
	// Source is the handler kind, e.g. "command", "component" or "event"
	Source string
	// Name is the command name, custom ID or event name
	Name    string
	GuildID string
	UserID  string
}

func (o Origin) fields() []*discordgo.MessageEmbedField {
	var out []*discordgo.MessageEmbedField
	add := func(name, value string) {
		if value != "" {
			out = append(out, &discordgo.MessageEmbedField{Name: name, Value: "`" + value + "`", Inline: true})
		}
	}
	add("Origen", o.Source)
	add("Handler", o.Name)
	add("Servidor", o.GuildID)
	add("Usuario", o.UserID)
	return out
}

// ErrorHandler counts recovered panics per window and shuts the bot down
// once maxErrors is exceeded
type ErrorHandler struct {
	errorCount   atomic.Int32
	webhookURL   string
	client       *http.Client
	shutdownFunc func()
	exit         func(code int)

	maxErrors     int32
	resetInterval time.Duration
	checkInterval time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
}

// ReportErrorOptions is one report sent to the error webhook
type ReportErrorOptions struct {
	Error   string
	Message string
	Origin  Origin
}

var (
	handler *ErrorHandler
	once    sync.Once
)

// Init initializes the global error handler
func Init(webhookURL string, shutdownFunc func()) *ErrorHandler {
	once.Do(func() {
		handler = NewErrorHandler(webhookURL, shutdownFunc)
		handler.start()
	})
	return handler
}

// Get returns the global error handler instance
func Get() *ErrorHandler {
	return handler
}

// NewErrorHandler creates a handler. The monitor only runs for the global
// handler created by Init.
func NewErrorHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	return &ErrorHandler{
		webhookURL:    webhookURL,
		client:        httpx.NewClient(httpx.Options{Timeout: 10 * time.Second, Logger: logger.Leveled("AntiCrash")}),
		shutdownFunc:  shutdownFunc,
		exit:          os.Exit,
		maxErrors:     15,
		resetInterval: 5 * time.Second,
		checkInterval: time.Second,
		stopChan:      make(chan struct{}),
	}
}

// start runs the window reset and the threshold check on one goroutine
func (h *ErrorHandler) start() {
	go func() {
		reset := time.NewTicker(h.resetInterval)
		check := time.NewTicker(h.checkInterval)
		defer reset.Stop()
		defer check.Stop()

		for {
			select {
			case <-reset.C:
				h.errorCount.Store(0)
			case <-check.C:
				if h.errorCount.Load() > h.maxErrors {
					h.crash()
					return
				}
			case <-h.stopChan:
				return
			}
		}
	}()
}

func (h *ErrorHandler) crash() {
	start := time.Now()
	logger.Critical(fmt.Sprintf("%d panics en %v, apagando...", h.errorCount.Load(), h.resetInterval), "AntiCrash")

	h.Report(ReportErrorOptions{
		Error:   "Critical Error",
		Message: "Número inusual de errores. Apagando...",
		Origin:  Origin{Source: "anticrash"},
	})
	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}

	logger.Warn(fmt.Sprintf("Finalizando proceso... Tiempo total: %v", time.Since(start)), "AntiCrash")
	h.exit(1)
}

// Stop stops the monitor goroutine
func (h *ErrorHandler) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// IncrementError counts one error in the current window
func (h *ErrorHandler) IncrementError() {
	count := h.errorCount.Add(1)
	logger.Error(fmt.Sprintf("Error count: %d", count), "AntiCrash")
}

// ErrorCount returns the errors counted in the current window
func (h *ErrorHandler) ErrorCount() int32 {
	return h.errorCount.Load()
}

// HandlePanic counts a recovered panic and reports it with its origin and
// the top of the stack
func (h *ErrorHandler) HandlePanic(recovered interface{}, origin Origin) {
	h.IncrementError()
	logger.Error(fmt.Sprintf("Panic en %s %s: %v", origin.Source, origin.Name, recovered), "AntiCrash")
	h.Report(ReportErrorOptions{
		Error:   "Panic",
		Message: fmt.Sprintf("```%v```\n```%s```", recovered, trimStack(debug.Stack())),
		Origin:  origin,
	})
}

// trimStack drops the runtime frames above the panic and bounds the length
func trimStack(stack []byte) string {
	s := string(stack)
	if i := strings.Index(s, "panic("); i >= 0 {
		if j := strings.Index(s[i:], "\n"); j >= 0 {
			s = s[i+j+1:]
		}
	}
	if len(s) > maxStackLength {
		s = s[:maxStackLength] + "\n..."
	}
	return s
}

func reportPayload(data ReportErrorOptions) *discordgo.WebhookParams {
	return &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{{
			Author:      &discordgo.MessageEmbedAuthor{Name: "Error " + data.Error},
			Description: data.Message,
			Color:       reportColor,
			Fields:      data.Origin.fields(),
			Footer:      &discordgo.MessageEmbedFooter{Text: "PancyGuard"},
			Timestamp:   time.Now().Format(time.RFC3339),
		}},
	}
}

// Report sends an error report to the Discord webhook
func (h *ErrorHandler) Report(data ReportErrorOptions) {
	if h.webhookURL == "" {
		return
	}

	jsonData, err := json.Marshal(reportPayload(data))
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo serializar el reporte de error: %v", err), "AntiCrash")
		return
	}

	resp, err := h.client.Post(h.webhookURL, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo enviar el reporte de error: %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		logger.Warn(fmt.Sprintf("El webhook de errores respondió %d", resp.StatusCode), "AntiCrash")
	}
}

// Recovered passes a value obtained from recover() to the global handler
func Recovered(r interface{}, origin Origin) {
	if handler != nil {
		handler.HandlePanic(r, origin)
		return
	}
	logger.Error(fmt.Sprintf("Panic recovered (no handler) en %s %s: %v", origin.Source, origin.Name, r), "AntiCrash")
}

// RecoverMiddleware returns a recovery function for use in deferred calls
func RecoverMiddleware(origin Origin) func() {
	return func() {
		if r := recover(); r != nil {
			Recovered(r, origin)
		}
	}
}
