package storage

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectEvidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png"))
		case "/b.jpg":
			w.Header().Set("Content-Type", "image/jpeg; charset=binary")
			_, _ = w.Write([]byte("jpeg"))
		case "/notes.txt":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("hi"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	st := NewMemory()
	ctx := t.Context()
	folder, err := st.CreateFolder(ctx, "blacklist-test")
	require.NoError(t, err)

	res, err := CollectEvidence(ctx, srv.Client(), st, folder, []Attachment{
		{URL: srv.URL + "/a.png", Filename: "a.png"},
		{URL: srv.URL + "/notes.txt", Filename: "notes.txt"},
		{URL: srv.URL + "/missing.png", Filename: "missing.png"},
		{URL: srv.URL + "/b.jpg?width=100"},
	})
	require.NoError(t, err)
	assert.Len(t, res.Uploaded, 2)
	assert.Equal(t, []string{"notes.txt", "missing.png"}, res.Skipped)

	files, err := st.ListFiles(ctx, folder, true)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.png", files[0].Name)
	assert.Equal(t, "b.jpg", files[1].Name)
	assert.Equal(t, "image/jpeg", files[1].MimeType)
}

func TestCollectEvidenceUnknownFolder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write([]byte("gif"))
	}))
	defer srv.Close()

	_, err := CollectEvidence(t.Context(), srv.Client(), NewMemory(), "nope", []Attachment{{URL: srv.URL + "/x.gif"}})
	assert.Error(t, err)
}

func TestLinks(t *testing.T) {
	assert.Equal(t, "https://drive.google.com/drive/folders/abc", FolderLink("abc"))
	assert.Equal(t, "https://drive.usercontent.google.com/download?id=f1&export=view&authuser=0", DirectImageURL("f1"))
}
