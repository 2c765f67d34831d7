package moderation

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/events"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/platform/platformtest"
	"github.com/PancyStudios/PancyGuard/pkg/store"
	"github.com/PancyStudios/PancyGuard/pkg/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func backends(t *testing.T) map[string]store.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]store.Store{
		"redis":  store.NewRedisFromClient(client),
		"memory": store.NewMemory(),
	}
}

func fastRetry() utils.RetryOptions {
	return utils.RetryOptions{
		MaxElapsedTime:  time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxRetries:      3,
	}
}

func newService(s store.Store, gw *platformtest.Gateway, opts ...Option) *Service {
	opts = append([]Option{WithRetryOptions(fastRetry()), WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(s, gw, opts...)
}

func request(userID string) WarnRequest {
	return WarnRequest{
		GuildID:       "g1",
		GuildName:     "Guild",
		UserID:        userID,
		ModeratorID:   "mod",
		ModeratorName: "Mod",
		Reason:        "spam",
	}
}

func TestWarnEscalatesOnThird(t *testing.T) {
	gw := platformtest.New("g1")
	pub := &recordingPublisher{}
	svc := newService(store.NewMemory(), gw, WithPublisher(pub))
	ctx := t.Context()

	for i := 1; i <= 2; i++ {
		out, err := svc.Warn(ctx, request("u1"))
		require.NoError(t, err)
		assert.Equal(t, int64(i), out.Count)
		assert.Nil(t, out.Escalation)
		assert.True(t, out.Notified)
	}

	out, err := svc.Warn(ctx, request("u1"))
	require.NoError(t, err)
	require.NotNil(t, out.Escalation)
	assert.Equal(t, int64(3), out.Count)
	assert.Equal(t, int64(1), out.Escalation.Instance)
	assert.NoError(t, out.TimeoutErr)
	assert.Equal(t, models.WarnRecord{WarnCount: 0, InstanceCount: 1}, out.Record)

	calls := gw.Calls("timeout")
	require.Len(t, calls, 1)
	assert.Equal(t, "Warned by Mod: spam", calls[0].Reason)
	assert.Equal(t, []string{events.TopicWarnEscalated}, pub.topics)

	// three warning DMs plus the timeout notice
	assert.Len(t, gw.Sent(), 4)
}

func TestClearThenQueryReturnsZero(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			svc := newService(s, platformtest.New("g1"))
			ctx := t.Context()

			for i := 0; i < 4; i++ {
				_, err := svc.Warn(ctx, request("u1"))
				require.NoError(t, err)
			}
			rec, err := svc.Query(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, models.WarnRecord{WarnCount: 1, InstanceCount: 1}, rec)

			require.NoError(t, svc.Clear(ctx, "mod", "u1"))
			rec, err = svc.Query(ctx, "u1")
			require.NoError(t, err)
			assert.True(t, rec.IsZero())
		})
	}
}

func TestConcurrentWarnsDoNotLoseUpdates(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			gw := platformtest.New("g1")
			svc := newService(s, gw)
			ctx := t.Context()

			const n = 5
			outcomes := make([]*WarnOutcome, n)
			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					outcomes[i], errs[i] = svc.Warn(ctx, request("u1"))
				}(i)
			}
			wg.Wait()

			escalations := 0
			for i := range outcomes {
				require.NoError(t, errs[i])
				if outcomes[i].Escalation != nil {
					escalations++
				}
			}

			rec, err := svc.Query(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, int64(n%3), rec.WarnCount)
			assert.Equal(t, int64(1), rec.InstanceCount)
			assert.Equal(t, 1, escalations)
			assert.Len(t, gw.Calls("timeout"), 1)
		})
	}
}

func TestTimeoutFailureKeepsCounters(t *testing.T) {
	gw := platformtest.New("g1")
	gw.TimeoutErr["g1"] = errors.Forbidden("timeout", nil)
	s := store.NewMemory()
	svc := newService(s, gw)
	ctx := t.Context()

	var out *WarnOutcome
	var err error
	for i := 0; i < 3; i++ {
		out, err = svc.Warn(ctx, request("u1"))
		require.NoError(t, err)
	}

	require.NotNil(t, out.Escalation)
	assert.ErrorIs(t, out.TimeoutErr, errors.ErrForbidden)
	assert.Len(t, gw.Calls("timeout"), 1, "forbidden errors are not retried")

	rec, err := svc.Query(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.WarnRecord{WarnCount: 0, InstanceCount: 1}, rec)

	// no timeout notice after a failed timeout
	assert.Len(t, gw.Sent(), 3)
}

func TestTimeoutRetriesTransientErrors(t *testing.T) {
	gw := platformtest.New("g1")
	gw.TimeoutErr["g1"] = errors.External("timeout", stderrors.New("502"))
	svc := newService(store.NewMemory(), gw)
	ctx := t.Context()

	var out *WarnOutcome
	var err error
	for i := 0; i < 3; i++ {
		out, err = svc.Warn(ctx, request("u1"))
		require.NoError(t, err)
	}

	assert.ErrorIs(t, out.TimeoutErr, errors.ErrExternalService)
	assert.Len(t, gw.Calls("timeout"), 4)
}

func TestWarnSurvivesClosedDMs(t *testing.T) {
	gw := platformtest.New("g1")
	gw.DMErr = errors.Forbidden("dm", nil)
	svc := newService(store.NewMemory(), gw)

	out, err := svc.Warn(t.Context(), request("u1"))
	require.NoError(t, err)
	assert.False(t, out.Notified)
	assert.Equal(t, int64(1), out.Count)
}
