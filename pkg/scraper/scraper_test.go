package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/httpx"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scraperServer(t *testing.T, stats, members string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(stats))
	})
	mux.HandleFunc("/members/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(members))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPSource(t *testing.T) {
	srv := scraperServer(t, `{"new_members": 3}`, `{"new_member_ids": ["111", 222, "333"]}`)
	src := NewHTTPSource(srv.URL+"/", srv.Client())

	count, err := src.NewMemberCount(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	ids, err := src.NewMembers(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222", "333"}, ids)
}

func TestHTTPSourceServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, httpx.NewClient(httpx.Options{RetryMax: 1, RetryWaitMin: 1, RetryWaitMax: 1}))
	_, err := src.NewMemberCount(t.Context())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExternalService)
}

func TestHTTPSourceBadPayload(t *testing.T) {
	srv := scraperServer(t, `{"new_members": 1}`, `{"new_member_ids": [true]}`)
	src := NewHTTPSource(srv.URL, srv.Client())

	_, err := src.NewMembers(t.Context())
	assert.ErrorIs(t, err, errors.ErrExternalService)
}

type fakeRequester struct {
	responses map[string]string
	topics    []string
}

func (f *fakeRequester) Request(_ context.Context, topic string, _, dst interface{}) error {
	f.topics = append(f.topics, topic)
	raw, ok := f.responses[topic]
	if !ok {
		return context.DeadlineExceeded
	}
	return json.Unmarshal([]byte(raw), dst)
}

func TestMQTTSource(t *testing.T) {
	req := &fakeRequester{responses: map[string]string{
		StatsTopic:      `{"new_members": 2}`,
		NewMembersTopic: `{"new_member_ids": [444, "555"]}`,
	}}
	src := NewMQTTSource(req)

	count, err := src.NewMemberCount(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ids, err := src.NewMembers(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"444", "555"}, ids)
	assert.Equal(t, []string{StatsTopic, NewMembersTopic}, req.topics)
}

func TestMQTTSourceTimeout(t *testing.T) {
	src := NewMQTTSource(&fakeRequester{})
	_, err := src.NewMemberCount(t.Context())
	assert.ErrorIs(t, err, errors.ErrExternalService)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
