package blacklist

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/platform"
	"github.com/PancyStudios/PancyGuard/pkg/platform/platformtest"
	"github.com/PancyStudios/PancyGuard/pkg/storage"
	"github.com/PancyStudios/PancyGuard/pkg/store"
	"github.com/PancyStudios/PancyGuard/pkg/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig() FanoutConfig {
	return FanoutConfig{
		Concurrency: 3,
		Timeout:     time.Second,
		Retry: utils.RetryOptions{
			MaxElapsedTime:  time.Second,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			MaxRetries:      2,
		},
	}
}

type env struct {
	store    store.Store
	gateway  *platformtest.Gateway
	storage  *storage.Memory
	workflow *Workflow
}

func newEnv(t *testing.T, s store.Store, guildIDs ...string) *env {
	t.Helper()
	gw := platformtest.New(guildIDs...)
	for _, id := range guildIDs {
		gw.Channels[id] = []platform.Channel{
			{ID: id + "-general", Name: "general"},
			{ID: id + "-bl", Name: "blacklist"},
		}
	}
	st := storage.NewMemory()
	wf := NewWorkflow(s, gw, st, testConfig(), WithClock(func() time.Time { return fixedNow }))
	return &env{store: s, gateway: gw, storage: st, workflow: wf}
}

func redisStore(t *testing.T) store.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.NewRedisFromClient(client)
}

func (e *env) submit(t *testing.T, userID string, msn bool) *models.Submission {
	t.Helper()
	sub := e.workflow.Submit(SubmitRequest{
		UserID:      userID,
		Username:    "name-" + userID,
		Reason:      "raid",
		ProofLink:   storage.FolderLink("f-" + userID),
		FolderID:    "f-" + userID,
		MSN:         msn,
		Aliases:     "111, abc, 222,",
		RequestedBy: "mod",
	})
	require.NoError(t, e.workflow.Track(t.Context(), sub))
	return sub
}

func channelsNotified(gw *platformtest.Gateway) []string {
	var out []string
	for _, s := range gw.Sent() {
		if s.ChannelID != "" {
			out = append(out, s.ChannelID)
		}
	}
	return out
}

func TestReconcile(t *testing.T) {
	got := Reconcile([]string{"A", "B", "C"}, map[string]struct{}{"B": {}})
	assert.Equal(t, []string{"A", "C"}, got)

	got = Reconcile([]string{"C", "A", "C", "", "A"}, nil)
	assert.Equal(t, []string{"C", "A"}, got)
}

func TestSubmitIsPure(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1")
	sub := e.workflow.Submit(SubmitRequest{UserID: "u1", Aliases: " 12 ,x1, 34"})

	assert.Equal(t, models.StatusSubmitted, sub.Status)
	assert.Equal(t, []string{"12", "34"}, sub.Aliases)
	assert.NotEmpty(t, sub.ID)

	keys, err := e.store.ScanKeys(t.Context(), "*")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestApprovePartialFailure(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1", "g2", "g3")
	e.gateway.BanErr["g2"] = errors.Forbidden("ban", nil)
	ctx := t.Context()
	sub := e.submit(t, "u1", false)

	res, err := e.workflow.Approve(ctx, sub.ID, "approver")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 3, res.Total)
	assert.True(t, res.Partial())
	require.Len(t, res.Errors(), 1)
	assert.Contains(t, res.Errors()[0], "guild-g2")

	bans := e.gateway.Calls("ban")
	require.Len(t, bans, 3)
	for _, b := range bans {
		assert.Equal(t, "Blacklisted: raid", b.Reason)
	}
	assert.ElementsMatch(t, []string{"g1-bl", "g3-bl"}, channelsNotified(e.gateway))

	repo := e.workflow.Repository()
	for _, g := range []string{"g1", "g3"} {
		cur, err := repo.Cursor(ctx, g)
		require.NoError(t, err)
		assert.Equal(t, res.Hash, cur.Hash)
		assert.Equal(t, "u1", cur.UserID)
	}
	_, err = repo.Cursor(ctx, "g2")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	entry, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "name-u1", entry.Username)
	assert.Equal(t, []string{"111", "222"}, entry.Aliases)
	assert.Equal(t, models.SourceApproval, entry.Source)
	assert.Equal(t, "approver", entry.AddedBy)
}

func TestApproveMissingPermission(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1", "g2")
	e.gateway.NoBanPermission["g1"] = true
	sub := e.submit(t, "u1", false)

	res, err := e.workflow.Approve(t.Context(), sub.ID, "approver")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, []string{"Faltan permisos en guild-g1"}, res.Errors())
	assert.Len(t, e.gateway.Calls("ban"), 1)
}

func TestApproveMSNDoesNotAnnounce(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1", "g2")
	sub := e.submit(t, "u1", true)

	res, err := e.workflow.Approve(t.Context(), sub.ID, "approver")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
	assert.Empty(t, channelsNotified(e.gateway))
}

type disabledFor string

func (d disabledFor) Enabled(guildID string) bool { return guildID != string(d) }

func TestApproveRespectsToggles(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1", "g2")
	e.workflow.toggles = disabledFor("g1")
	sub := e.submit(t, "u1", false)

	_, err := e.workflow.Approve(t.Context(), sub.ID, "approver")
	require.NoError(t, err)
	assert.Equal(t, []string{"g2-bl"}, channelsNotified(e.gateway))
}

func TestTerminalSubmissionConflicts(t *testing.T) {
	e := newEnv(t, redisStore(t), "g1", "g2")
	ctx := t.Context()
	sub := e.submit(t, "u1", false)

	_, err := e.workflow.Approve(ctx, sub.ID, "approver")
	require.NoError(t, err)
	bans := len(e.gateway.Calls("ban"))
	before, err := e.store.ScanKeys(ctx, "*")
	require.NoError(t, err)
	stored, err := e.workflow.Submission(ctx, sub.ID)
	require.NoError(t, err)

	_, err = e.workflow.Approve(ctx, sub.ID, "someone-else")
	assert.True(t, errors.Is(err, errors.ErrStateConflict))
	_, err = e.workflow.Reject(ctx, sub.ID, "someone-else", "late")
	assert.True(t, errors.Is(err, errors.ErrStateConflict))

	assert.Len(t, e.gateway.Calls("ban"), bans)
	after, err := e.store.ScanKeys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	again, err := e.workflow.Submission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, again)
	assert.Equal(t, "approver", again.ResolvedBy)
}

func TestRejectLeavesBlacklistUntouched(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1")
	ctx := t.Context()
	sub := e.submit(t, "u1", false)

	rejected, err := e.workflow.Reject(ctx, sub.ID, "approver", "pruebas insuficientes")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "pruebas insuficientes", rejected.RejectionReason)

	_, err = e.workflow.Repository().Get(ctx, "u1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Empty(t, e.gateway.Calls("ban"))

	_, err = e.workflow.Approve(ctx, sub.ID, "approver")
	assert.True(t, errors.Is(err, errors.ErrStateConflict))
}

func TestApproveUnknownSubmission(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1")
	_, err := e.workflow.Approve(t.Context(), "missing", "approver")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestTrackTwiceConflicts(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1")
	sub := e.submit(t, "u1", false)
	err := e.workflow.Track(t.Context(), sub)
	assert.True(t, errors.Is(err, errors.ErrStateConflict))
}

func TestUnblacklist(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1", "g2", "g3")
	ctx := t.Context()

	_, err := e.workflow.Unblacklist(ctx, "mod", "u1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Empty(t, e.gateway.Calls("unban"))

	sub := e.submit(t, "u1", true)
	_, err = e.workflow.Approve(ctx, sub.ID, "approver")
	require.NoError(t, err)

	e.gateway.UnbanErr["g2"] = errors.NotFound("ban")
	e.gateway.UnbanErr["g3"] = errors.Forbidden("unban", nil)
	report, err := e.workflow.Unblacklist(ctx, "mod", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, e.gateway.Calls("unban"), 3)

	_, err = e.workflow.Repository().Get(ctx, "u1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFanoutTimeoutIsolatesGuild(t *testing.T) {
	f := NewFanout(FanoutConfig{Concurrency: 2, Timeout: 50 * time.Millisecond, Retry: testConfig().Retry})
	guilds := []platform.Guild{{ID: "g1", Name: "uno"}, {ID: "g2", Name: "dos"}, {ID: "g3", Name: "tres"}}

	start := time.Now()
	results := f.Run(t.Context(), guilds, func(ctx context.Context, g platform.Guild) error {
		if g.ID == "g2" {
			// ignores ctx on purpose
			time.Sleep(2 * time.Second)
		}
		return nil
	})

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, results, 3)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
	assert.True(t, errors.Is(results[1].Err, errors.ErrExternalService))
	assert.True(t, results[2].OK())
	assert.Equal(t, "dos", results[1].Guild.Name)

	report := NewReport(results)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 1, report.Failed)
}

func TestFanoutRecoversPanics(t *testing.T) {
	f := NewFanout(testConfig())
	results := f.Run(t.Context(), []platform.Guild{{ID: "g1"}, {ID: "g2"}}, func(ctx context.Context, g platform.Guild) error {
		if g.ID == "g1" {
			panic("boom")
		}
		return nil
	})
	assert.False(t, results[0].OK())
	assert.True(t, results[1].OK())
}

func TestErrorReportIsCapped(t *testing.T) {
	var msgs []string
	for i := 0; i < 8; i++ {
		msgs = append(msgs, fmt.Sprintf("Falló en g%d", i), fmt.Sprintf("Falló en g%d", i))
	}

	got := CapErrors(msgs, MaxReportedErrors)
	assert.Equal(t, []string{
		"Falló en g0", "Falló en g1", "Falló en g2", "Falló en g3", "Falló en g4", "+3 más",
	}, got)

	assert.Equal(t, []string{"a", "b"}, CapErrors([]string{"a", "b", "a"}, 5))
}

func TestSnapshotHashIgnoresOrder(t *testing.T) {
	a := models.BlacklistEntry{UserID: "1", Username: "a", Reason: "x", CreatedAt: fixedNow}
	b := models.BlacklistEntry{UserID: "2", Username: "b", Reason: "y", CreatedAt: fixedNow}

	h1, err := SnapshotHash([]models.BlacklistEntry{a, b})
	require.NoError(t, err)
	h2, err := SnapshotHash([]models.BlacklistEntry{b, a})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	b.Reason = "z"
	h3, err := SnapshotHash([]models.BlacklistEntry{a, b})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestSnapshotFromStoreIgnoresInsertionOrder(t *testing.T) {
	ctx := t.Context()
	entries := []*models.BlacklistEntry{
		{UserID: "3", Username: "c", CreatedAt: fixedNow},
		{UserID: "1", Username: "a", CreatedAt: fixedNow},
		{UserID: "2", Username: "b", CreatedAt: fixedNow},
	}

	r1 := NewRepository(store.NewMemory())
	r2 := NewRepository(redisStore(t))
	for i := range entries {
		require.NoError(t, r1.Put(ctx, entries[i]))
		require.NoError(t, r2.Put(ctx, entries[len(entries)-1-i]))
	}

	h1, n, err := r1.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	h2, _, err := r2.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestSearchAndList(t *testing.T) {
	ctx := t.Context()
	repo := NewRepository(store.NewMemory())
	require.NoError(t, repo.Put(ctx, &models.BlacklistEntry{UserID: "10", Username: "Zeta", Reason: "Raid en [general]"}))
	require.NoError(t, repo.Put(ctx, &models.BlacklistEntry{UserID: "20", Username: "alpha", Reason: "spam"}))
	require.NoError(t, repo.Put(ctx, &models.BlacklistEntry{UserID: "30", Username: "Beta", Reason: "scam"}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"alpha", "Beta", "Zeta"}, []string{list[0].Username, list[1].Username, list[2].Username})

	found, err := repo.Search(ctx, "^S.AM$")
	require.NoError(t, err)
	require.Len(t, found, 2)

	found, err = repo.Search(ctx, "[general")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "10", found[0].UserID)

	found, err = repo.Search(ctx, "30")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Beta", found[0].Username)
}

func TestProcessNewMembers(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1", "g2")
	e.gateway.NoBanPermission["g2"] = true
	e.gateway.Users["A"] = &platform.User{ID: "A", Username: "alice", CreatedAt: fixedNow.Add(-time.Hour)}
	ctx := t.Context()
	require.NoError(t, e.workflow.Repository().Put(ctx, &models.BlacklistEntry{UserID: "B", Username: "bob"}))

	report, err := e.workflow.ProcessNewMembers(ctx, []string{"A", "B", "C", "A"})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Found)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 4, report.Attempts)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, []string{"Faltan permisos en guild-g2"}, report.Errors())

	bans := e.gateway.Calls("ban")
	require.Len(t, bans, 2)
	for _, b := range bans {
		assert.Equal(t, "Blacklisted: Target server member", b.Reason)
		assert.Equal(t, "g1", b.GuildID)
	}

	c, err := e.workflow.Repository().Get(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, "user_C", c.Username)
	assert.Equal(t, "Member of target server", c.Reason)
	assert.Equal(t, models.SourceSync, c.Source)
	name, ok := e.storage.FolderName(c.FolderID)
	require.True(t, ok)
	assert.Equal(t, "blacklist-user_C", name)

	a, err := e.workflow.Repository().Get(ctx, "A")
	require.NoError(t, err)
	name, _ = e.storage.FolderName(a.FolderID)
	assert.Equal(t, "blacklist-alice", name)
	assert.Equal(t, storage.FolderLink(a.FolderID), a.ProofLink)

	assert.Equal(t, []string{"g1-bl", "g1-bl"}, channelsNotified(e.gateway))
}

type fakeSource struct {
	count int
	ids   []string
	calls int
}

func (f *fakeSource) NewMemberCount(context.Context) (int, error) { return f.count, nil }

func (f *fakeSource) NewMembers(context.Context) ([]string, error) {
	f.calls++
	return f.ids, nil
}

func TestSyncSkipsFetchWhenNothingNew(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1")
	src := &fakeSource{}

	report, err := e.workflow.Sync(t.Context(), "mod", src)
	require.NoError(t, err)
	assert.Zero(t, report.Found)
	assert.Zero(t, src.calls)

	src = &fakeSource{count: 1, ids: []string{"X"}}
	report, err = e.workflow.Sync(t.Context(), "mod", src)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Success)
}

func TestNotificationChannelNames(t *testing.T) {
	for _, name := range []string{"blacklist", "blacklists", "BLACKLIST-logs", "📛-blacklist"} {
		assert.True(t, IsNotificationChannel(name), name)
	}
	for _, name := range []string{"general", "blacklis", "black-list"} {
		assert.False(t, IsNotificationChannel(name), name)
	}
}

func TestCustomIDRoundTrip(t *testing.T) {
	prefix, id := ParseCustomID(CustomID(ApprovePrefix, "abc-123"))
	assert.Equal(t, ApprovePrefix, prefix)
	assert.Equal(t, "abc-123", id)

	prefix, id = ParseCustomID(ViewImagesPrefix)
	assert.Equal(t, ViewImagesPrefix, prefix)
	assert.Empty(t, id)
}
