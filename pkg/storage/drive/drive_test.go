package drive

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu          sync.Mutex
	created     []map[string]interface{}
	permissions []string
	queries     []string
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/permissions"):
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		f.permissions = append(f.permissions, parts[len(parts)-2])
		_, _ = io.WriteString(w, `{"id":"perm"}`)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		if name, _ := body["name"].(string); name == "denied" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"forbidden"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"folder123"}`)

	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, `{"files":[
			{"id":"a","name":"a.png","mimeType":"image/png","size":"12","modifiedTime":"2024-05-01T10:00:00Z"},
			{"id":"b","name":"b.gif","mimeType":"image/gif"}
		]}`)

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, parent string) (*Client, *fakeDrive) {
	t.Helper()
	fake := &fakeDrive{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := newClient(t.Context(), parent,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c, fake
}

func TestCreateFolderSharesIt(t *testing.T) {
	c, fake := newTestClient(t, "parent-1")

	id, err := c.CreateFolder(t.Context(), "blacklist-someone")
	require.NoError(t, err)
	assert.Equal(t, "folder123", id)

	require.Len(t, fake.created, 1)
	assert.Equal(t, "blacklist-someone", fake.created[0]["name"])
	assert.Equal(t, "application/vnd.google-apps.folder", fake.created[0]["mimeType"])
	assert.Equal(t, []interface{}{"parent-1"}, fake.created[0]["parents"])
	assert.Equal(t, []string{"folder123"}, fake.permissions)
}

func TestCreateFolderForbidden(t *testing.T) {
	c, fake := newTestClient(t, "")

	_, err := c.CreateFolder(t.Context(), "denied")
	assert.True(t, errors.Is(err, errors.ErrForbidden))
	assert.Empty(t, fake.permissions)
}

func TestListImages(t *testing.T) {
	c, fake := newTestClient(t, "")

	files, err := c.ListFiles(t.Context(), "`folder123`", true)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].ID)
	assert.Equal(t, int64(12), files[0].Size)
	assert.Equal(t, 2024, files[0].ModifiedTime.Year())
	assert.Equal(t, "image/gif", files[1].MimeType)

	require.Len(t, fake.queries, 1)
	assert.Equal(t, "'folder123' in parents and trashed = false and mimeType contains 'image/'", fake.queries[0])
}
