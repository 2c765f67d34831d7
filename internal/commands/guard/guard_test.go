package guard

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/PancyStudios/PancyGuard/pkg/blacklist"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
	"github.com/PancyStudios/PancyGuard/pkg/storage"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(n int) []models.BlacklistEntry {
	out := make([]models.BlacklistEntry, n)
	for i := range out {
		out[i] = models.BlacklistEntry{UserID: fmt.Sprint(100 + i), Username: fmt.Sprintf("user%d", i)}
	}
	return out
}

func buttons(t *testing.T, components []discordgo.MessageComponent) []discordgo.Button {
	t.Helper()
	require.Len(t, components, 1)
	row, ok := components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	out := make([]discordgo.Button, 0, len(row.Components))
	for _, c := range row.Components {
		b, ok := c.(discordgo.Button)
		require.True(t, ok)
		out = append(out, b)
	}
	return out
}

func TestPageViewSingleEntry(t *testing.T) {
	embeds, components := pageView("s", entries(1), 0)
	require.Len(t, embeds, 1)
	assert.Equal(t, "user0", embeds[0].Title)
	assert.Empty(t, components)
}

func TestPageViewNavigation(t *testing.T) {
	list := entries(3)

	embeds, components := pageView("s", list, 0)
	assert.Equal(t, "user0", embeds[0].Title)
	b := buttons(t, components)
	require.Len(t, b, 2)
	assert.True(t, b[0].Disabled)
	assert.False(t, b[1].Disabled)
	assert.Equal(t, pagePrefix+":s:1", b[1].CustomID)

	embeds, components = pageView("s", list, 2)
	assert.Equal(t, "user2", embeds[0].Title)
	b = buttons(t, components)
	assert.False(t, b[0].Disabled)
	assert.True(t, b[1].Disabled)
	assert.Equal(t, pagePrefix+":s:1", b[0].CustomID)
}

func TestPageViewClampsIndex(t *testing.T) {
	list := entries(2)

	embeds, _ := pageView("s", list, 9)
	assert.Equal(t, "user1", embeds[0].Title)

	embeds, _ = pageView("s", list, -4)
	assert.Equal(t, "user0", embeds[0].Title)
}

func TestParsePagePayload(t *testing.T) {
	session, index, err := parsePagePayload("abc:3")
	require.NoError(t, err)
	assert.Equal(t, "abc", session)
	assert.Equal(t, 3, index)

	for _, bad := range []string{"", "abc", ":1", "abc:x"} {
		_, _, err := parsePagePayload(bad)
		assert.Error(t, err, bad)
	}
}

func TestWhitelistEmbedsChunks(t *testing.T) {
	ids := make([]string, whitelistChunk+5)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	embeds := whitelistEmbeds(ids)
	require.Len(t, embeds, 2)
	assert.Equal(t, whitelistChunk, strings.Count(embeds[0].Fields[0].Value, "<@"))
	assert.Equal(t, 5, strings.Count(embeds[1].Fields[0].Value, "<@"))
}

func TestWhitelistEmbedsCapsAtTen(t *testing.T) {
	ids := make([]string, whitelistChunk*12)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	assert.Len(t, whitelistEmbeds(ids), 10)
}

func TestBanSummary(t *testing.T) {
	report := blacklist.NewReport([]blacklist.GuildResult{
		{Guild: platform.Guild{ID: "1", Name: "uno"}},
		{Guild: platform.Guild{ID: "2", Name: "dos"}, Err: errors.New("boom")},
		{Guild: platform.Guild{ID: "3", Name: "tres"}},
	})

	summary := banSummary("Resultados del ban", report)
	assert.Contains(t, summary, "✅ Correctos: 2/3 servidores")
	assert.Contains(t, summary, "❌ Fallidos: 1 servidores")
	assert.Contains(t, summary, "Falló en dos: boom")

	clean := banSummary("Resultados", blacklist.NewReport(nil))
	assert.Equal(t, "Resultados:\n✅ Correctos: 0/0 servidores", clean)
}

func TestSyncSummary(t *testing.T) {
	assert.Equal(t, "No se encontraron miembros nuevos para procesar.",
		syncSummary(&blacklist.SyncReport{Report: &blacklist.Report{}}))

	report := &blacklist.SyncReport{Found: 3, Skipped: 1, Processed: 2, Guilds: 2, Attempts: 4, Report: &blacklist.Report{}}
	report.AddError("Error procesando 9: fallo")
	summary := syncSummary(report)
	assert.Contains(t, summary, "Usuarios encontrados: 3")
	assert.Contains(t, summary, "Ya en la blacklist: 1")
	assert.Contains(t, summary, "Servidores: 2 (4 intentos de ban)")
	assert.Contains(t, summary, "Error procesando 9: fallo")
}

func TestSubmittedMessage(t *testing.T) {
	msg := submittedMessage(&storage.UploadResult{Uploaded: []string{"a", "b"}})
	assert.Equal(t, "✅ ¡Solicitud enviada para aprobación! (2 imágenes subidas)", msg)

	msg = submittedMessage(&storage.UploadResult{Uploaded: []string{"a"}, Skipped: []string{"x.txt"}})
	assert.Contains(t, msg, "Archivos omitidos: x.txt")
}
