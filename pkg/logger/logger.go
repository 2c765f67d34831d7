// Package logger provides the levelled logger used across the bot.
// Console output is colored, files under ./logs keep a plain copy and a Discord
// webhook mirrors every entry.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/httpx"
	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m"
	case LevelError:
		return "\033[31m"
	case LevelWarn:
		return "\033[33m"
	case LevelSuccess:
		return "\033[32m"
	case LevelInfo:
		return "\033[36m"
	case LevelDebug:
		return "\033[35m"
	case LevelSystem:
		return "\033[34m"
	default:
		return colorReset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0xFF0000
	case LevelWarn:
		return 0xFFFF00
	case LevelSuccess:
		return 0x00FF00
	case LevelInfo:
		return 0x0000FF
	case LevelDebug:
		return 0x800080
	case LevelSystem:
		return 0x808080
	default:
		return 0xFFFFFF
	}
}

// logrusLevel maps the bot levels onto the logrus ones. Critical is kept at
// error level so logrus never exits or panics on our behalf.
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical, LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

const (
	colorReset  = "\033[0m"
	fieldLevel  = "botLevel"
	fieldPrefix = "prefix"
	timeLayout  = "2006-01-02 15:04:05"
)

// lineFormatter renders "[ts] [LEVEL] [prefix]: message".
type lineFormatter struct {
	colors bool
}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	level, _ := e.Data[fieldLevel].(LogLevel)
	prefix, _ := e.Data[fieldPrefix].(string)

	name := level.String()
	if f.colors {
		name = level.Color() + name + colorReset
	}
	return []byte(fmt.Sprintf("[%s] [%s] [%s]: %s\n", e.Time.Format(timeLayout), name, prefix, e.Message)), nil
}

// fileHook appends every entry at the given levels to a file.
type fileHook struct {
	w         io.Writer
	levels    []logrus.Level
	formatter logrus.Formatter
	mu        sync.Mutex
}

func (h *fileHook) Levels() []logrus.Level { return h.levels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}

// webhookHook mirrors entries to a Discord webhook. Errors go to the error
// webhook, everything else to the logs webhook.
type webhookHook struct {
	errorURL string
	logsURL  string
	client   *http.Client
}

func (h *webhookHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *webhookHook) Fire(e *logrus.Entry) error {
	level, _ := e.Data[fieldLevel].(LogLevel)
	prefix, _ := e.Data[fieldPrefix].(string)

	url := h.logsURL
	if level <= LevelError {
		url = h.errorURL
	}
	if url == "" {
		return nil
	}
	go h.send(url, level, prefix, e.Message)
	return nil
}

func (h *webhookHook) send(url string, level LogLevel, prefix, message string) {
	payload := map[string]interface{}{
		"embeds": []interface{}{map[string]interface{}{
			"title":       fmt.Sprintf("[%s] %s", level.String(), prefix),
			"description": fmt.Sprintf("```%s```", message),
			"color":       level.DiscordColor(),
			"timestamp":   time.Now().Format(time.RFC3339),
			"footer":      map[string]string{"text": "💫 PancyStudio | PancyGuard"},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	resp, err := h.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	resp.Body.Close()
}

// Logger is the main logging structure
type Logger struct {
	logrus    *logrus.Logger
	logFile   *os.File
	errorFile *os.File
}

var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance
func Init(errorWebhook, logsWebhook string) *Logger {
	once.Do(func() {
		logger = NewLogger(errorWebhook, logsWebhook)
	})
	return logger
}

// Get returns the global logger instance
func Get() *Logger {
	once.Do(func() {
		logger = NewLogger("", "")
	})
	return logger
}

// NewLogger creates a Logger writing to stdout, ./logs and the given webhooks.
func NewLogger(errorWebhook, logsWebhook string) *Logger {
	return newLogger(filepath.Join(".", "logs"), os.Stdout, errorWebhook, logsWebhook)
}

func newLogger(logsDir string, console io.Writer, errorWebhook, logsWebhook string) *Logger {
	l := &Logger{logrus: logrus.New()}
	l.logrus.SetOutput(console)
	l.logrus.SetFormatter(&lineFormatter{colors: true})
	l.logrus.SetLevel(logrus.DebugLevel)

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Printf("Error creando el directorio de logs: %v\n", err)
	}

	var err error
	l.logFile, err = os.OpenFile(filepath.Join(logsDir, "combined.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error abriendo combined.log: %v\n", err)
	} else {
		l.logrus.AddHook(&fileHook{w: l.logFile, levels: logrus.AllLevels, formatter: &lineFormatter{}})
	}

	l.errorFile, err = os.OpenFile(filepath.Join(logsDir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Error abriendo error.log: %v\n", err)
	} else {
		l.logrus.AddHook(&fileHook{
			w:         l.errorFile,
			levels:    []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel},
			formatter: &lineFormatter{},
		})
	}

	if errorWebhook != "" || logsWebhook != "" {
		l.logrus.AddHook(&webhookHook{
			errorURL: errorWebhook,
			logsURL:  logsWebhook,
			client:   httpx.NewClient(httpx.Options{RetryMax: 2, Timeout: 5 * time.Second}),
		})
	}

	return l
}

func (l *Logger) log(level LogLevel, message, prefix string) {
	l.logrus.WithFields(logrus.Fields{
		fieldLevel:  level,
		fieldPrefix: prefix,
	}).Log(level.logrusLevel(), message)
}

// Close closes the log files
func (l *Logger) Close() {
	if l.logFile != nil {
		l.logFile.Close()
	}
	if l.errorFile != nil {
		l.errorFile.Close()
	}
}

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) { l.log(LevelCritical, message, prefix) }

// Error logs an error message
func (l *Logger) Error(message string, prefix string) { l.log(LevelError, message, prefix) }

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) { l.log(LevelWarn, message, prefix) }

// Success logs a success message
func (l *Logger) Success(message string, prefix string) { l.log(LevelSuccess, message, prefix) }

// Info logs an info message
func (l *Logger) Info(message string, prefix string) { l.log(LevelInfo, message, prefix) }

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) { l.log(LevelDebug, message, prefix) }

// System logs a system message
func (l *Logger) System(message string, prefix string) { l.log(LevelSystem, message, prefix) }

// Package-level functions for convenience

func Critical(message string, prefix string) { Get().Critical(message, prefix) }
func Error(message string, prefix string)    { Get().Error(message, prefix) }
func Warn(message string, prefix string)     { Get().Warn(message, prefix) }
func Success(message string, prefix string)  { Get().Success(message, prefix) }
func Info(message string, prefix string)     { Get().Info(message, prefix) }
func Debug(message string, prefix string)    { Get().Debug(message, prefix) }
func System(message string, prefix string)   { Get().System(message, prefix) }

// LeveledAdapter exposes the global logger through the key/value logging
// interface expected by retryablehttp.
type LeveledAdapter struct {
	Prefix string
}

// Leveled returns an adapter that logs under prefix.
func Leveled(prefix string) LeveledAdapter {
	return LeveledAdapter{Prefix: prefix}
}

func (a LeveledAdapter) Error(msg string, kv ...interface{}) { Warn(withFields(msg, kv), a.Prefix) }
func (a LeveledAdapter) Warn(msg string, kv ...interface{})  { Warn(withFields(msg, kv), a.Prefix) }
func (a LeveledAdapter) Info(msg string, kv ...interface{})  { Debug(withFields(msg, kv), a.Prefix) }
func (a LeveledAdapter) Debug(msg string, kv ...interface{}) { Debug(withFields(msg, kv), a.Prefix) }

// withFields appends key=value pairs to msg.
func withFields(msg string, kv []interface{}) string {
	if len(kv) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
