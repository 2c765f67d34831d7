package blacklist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/models"
	"github.com/PancyStudios/PancyGuard/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails the first blacklist writes and counts keyspace scans
type flakyStore struct {
	store.Store

	mu        sync.Mutex
	blobFails int
	scans     int
}

func (f *flakyStore) SetBlob(ctx context.Context, key string, value any) error {
	f.mu.Lock()
	fail := f.blobFails > 0 && strings.HasPrefix(key, "blacklist:")
	if fail {
		f.blobFails--
	}
	f.mu.Unlock()
	if fail {
		return fmt.Errorf("redis: connection reset")
	}
	return f.Store.SetBlob(ctx, key, value)
}

func (f *flakyStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	f.scans++
	f.mu.Unlock()
	return f.Store.ScanKeys(ctx, pattern)
}

func (f *flakyStore) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

func TestApproveCanBeRetriedAfterStoreFailure(t *testing.T) {
	fs := &flakyStore{Store: store.NewMemory(), blobFails: 1}
	e := newEnv(t, fs, "g1", "g2")
	ctx := t.Context()
	sub := e.submit(t, "u1", false)

	_, err := e.workflow.Approve(ctx, sub.ID, "approver")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExternalService))
	assert.Empty(t, e.gateway.Calls("ban"))

	got, err := e.workflow.Submission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, got.Status)
	assert.Empty(t, got.ResolvedBy)
	assert.True(t, got.ResolvedAt.IsZero())

	res, err := e.workflow.Approve(ctx, sub.ID, "approver")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
	assert.Len(t, e.gateway.Calls("ban"), 2)

	entry, err := e.workflow.Repository().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "approver", entry.AddedBy)

	_, err = e.workflow.Approve(ctx, sub.ID, "approver")
	assert.True(t, errors.Is(err, errors.ErrStateConflict))
}

func TestApproveGuildListFailureReopens(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1")
	ctx := t.Context()
	sub := e.submit(t, "u1", false)
	e.gateway.ListErr = fmt.Errorf("gateway caído")

	_, err := e.workflow.Approve(ctx, sub.ID, "approver")
	require.Error(t, err)
	_, err = e.workflow.Repository().Get(ctx, "u1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	e.gateway.ListErr = nil
	res, err := e.workflow.Approve(ctx, sub.ID, "approver")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
}

func TestUnblacklistKeepsEntryWhenGuildsUnavailable(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1")
	ctx := t.Context()
	putEntries(t, e, "u1")
	e.gateway.ListErr = fmt.Errorf("gateway caído")

	_, err := e.workflow.Unblacklist(ctx, "mod", "u1")
	assert.True(t, errors.Is(err, errors.ErrExternalService))
	assert.Empty(t, e.gateway.Calls("unban"))
	_, err = e.workflow.Repository().Get(ctx, "u1")
	require.NoError(t, err)

	e.gateway.ListErr = nil
	report, err := e.workflow.Unblacklist(ctx, "mod", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)
	_, err = e.workflow.Repository().Get(ctx, "u1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestAttachMessageAndDiscard(t *testing.T) {
	e := newEnv(t, store.NewMemory(), "g1")
	ctx := t.Context()
	sub := e.submit(t, "u1", false)

	require.NoError(t, e.workflow.AttachMessage(ctx, sub.ID, "approvals", "m1"))
	got, err := e.workflow.Submission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "approvals", got.ChannelID)
	assert.Equal(t, "m1", got.MessageID)
	assert.Equal(t, models.StatusSubmitted, got.Status)

	err = e.workflow.AttachMessage(ctx, "missing", "approvals", "m2")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, e.workflow.Discard(ctx, sub.ID))
	_, err = e.workflow.Submission(ctx, sub.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	require.NoError(t, e.workflow.Discard(ctx, sub.ID))

	resolved := e.submit(t, "u2", false)
	_, err = e.workflow.Reject(ctx, resolved.ID, "approver", "sin pruebas")
	require.NoError(t, err)
	err = e.workflow.Discard(ctx, resolved.ID)
	assert.True(t, errors.Is(err, errors.ErrStateConflict))
	_, err = e.workflow.Submission(ctx, resolved.ID)
	require.NoError(t, err)
}

func TestProcessNewMembersReadsBlacklistOnce(t *testing.T) {
	fs := &flakyStore{Store: store.NewMemory()}
	e := newEnv(t, fs, "g1")
	ctx := t.Context()
	putEntries(t, e, "B")

	report, err := e.workflow.ProcessNewMembers(ctx, []string{"A", "B", "C", "D"})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 3, report.Success)
	assert.Equal(t, 1, fs.scanCount())

	cur, err := e.workflow.Repository().Cursor(ctx, "g1")
	require.NoError(t, err)
	hash, n, err := e.workflow.Repository().Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, hash, cur.Hash)
}

func TestProcessNewMembersSkipsFailedWrites(t *testing.T) {
	fs := &flakyStore{Store: store.NewMemory(), blobFails: 1}
	e := newEnv(t, fs, "g1")

	report, err := e.workflow.ProcessNewMembers(t.Context(), []string{"A", "C"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Success)
	require.Len(t, report.Errors(), 1)
	assert.Contains(t, report.Errors()[0], "Error procesando A")

	bans := e.gateway.Calls("ban")
	require.Len(t, bans, 1)
	assert.Equal(t, "C", bans[0].UserID)
}
