package access

import (
	stderrors "errors"
	"testing"

	"github.com/PancyStudios/PancyGuard/pkg/errors"
	"github.com/PancyStudios/PancyGuard/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverridesAlwaysPass(t *testing.T) {
	w := NewWhitelist(store.NewMemory(), []string{"686107711829704725"})

	ok, err := w.IsAuthorized(t.Context(), "686107711829704725")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, w.Require(t.Context(), "686107711829704725"))
}

func TestUnknownUserIsRejected(t *testing.T) {
	w := NewWhitelist(store.NewMemory(), nil)

	err := w.Require(t.Context(), "42")
	assert.True(t, stderrors.Is(err, errors.ErrUnauthorized))

	err = w.Add(t.Context(), "42", "43")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestAddRemoveList(t *testing.T) {
	ctx := t.Context()
	s := store.NewMemory()
	w := NewWhitelist(s, []string{"1"})

	require.NoError(t, w.Add(ctx, "1", "200"))
	require.NoError(t, w.Add(ctx, "200", "100"))

	ids, err := w.List(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "200"}, ids)

	require.NoError(t, w.Remove(ctx, "1", "200"))
	assert.ErrorIs(t, w.Remove(ctx, "1", "200"), errors.ErrNotFound)
	assert.ErrorIs(t, w.Require(ctx, "200"), errors.ErrUnauthorized)
}
