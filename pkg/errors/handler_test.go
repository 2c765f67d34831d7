package errors

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportPayloadCarriesOrigin(t *testing.T) {
	p := reportPayload(ReportErrorOptions{
		Error:   "Panic",
		Message: "boom",
		Origin:  Origin{Source: "component", Name: "bl_approve:abc", GuildID: "g1"},
	})
	require.Len(t, p.Embeds, 1)
	embed := p.Embeds[0]
	assert.Equal(t, "Error Panic", embed.Author.Name)
	assert.Equal(t, "boom", embed.Description)
	assert.Equal(t, reportColor, embed.Color)

	names := make([]string, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Origen", "Handler", "Servidor"}, names)
	assert.Equal(t, "`bl_approve:abc`", embed.Fields[1].Value)
}

func TestReportPayloadWithoutOrigin(t *testing.T) {
	p := reportPayload(ReportErrorOptions{Error: "Critical Error"})
	assert.Empty(t, p.Embeds[0].Fields)
}

func TestReportPostsToWebhook(t *testing.T) {
	var (
		mu   sync.Mutex
		body []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = b
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := NewErrorHandler(srv.URL, nil)
	h.HandlePanic("nil map", Origin{Source: "command", Name: "blacklist", UserID: "u1"})
	assert.Equal(t, int32(1), h.ErrorCount())

	mu.Lock()
	defer mu.Unlock()
	var params discordgo.WebhookParams
	require.NoError(t, json.Unmarshal(body, &params))
	require.Len(t, params.Embeds, 1)
	embed := params.Embeds[0]
	assert.Contains(t, embed.Description, "nil map")
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "`command`", embed.Fields[0].Value)
	assert.Equal(t, "`blacklist`", embed.Fields[1].Value)
	assert.Equal(t, "`u1`", embed.Fields[2].Value)
}

func TestReportWithoutWebhookIsNoop(t *testing.T) {
	h := NewErrorHandler("", nil)
	h.HandlePanic("boom", Origin{Source: "event"})
	assert.Equal(t, int32(1), h.ErrorCount())
}

func TestTrimStack(t *testing.T) {
	stack := "goroutine 1 [running]:\nruntime/debug.Stack()\npanic({0x1, 0x2})\n\t/usr/local/go/src/runtime/panic.go:770\nmain.handler()\n"
	got := trimStack([]byte(stack))
	assert.False(t, strings.Contains(got, "runtime/debug.Stack"))
	assert.True(t, strings.HasPrefix(got, "\t/usr/local/go/src/runtime/panic.go"))

	long := trimStack([]byte(strings.Repeat("x", 5000)))
	assert.Len(t, long, maxStackLength+len("\n..."))
}

func TestRecoverMiddlewareWithoutHandler(t *testing.T) {
	require.Nil(t, Get())
	assert.NotPanics(t, func() {
		defer RecoverMiddleware(Origin{Source: "event", Name: "GuildMemberAdd"})()
		panic("boom")
	})
}

func TestCrashShutsDown(t *testing.T) {
	var shutdown bool
	code := -1
	h := NewErrorHandler("", func() { shutdown = true })
	h.exit = func(c int) { code = c }

	h.crash()
	assert.True(t, shutdown)
	assert.Equal(t, 1, code)
}
