package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "data", "transcript.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAppendAndRecent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Append(ctx, "user", "hello"))
	require.NoError(t, st.Append(ctx, "assistant", "hi there"))
	require.NoError(t, st.Append(ctx, "user", "how are you"))

	msgs, err := st.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// Chronological order, oldest first.
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hi there", msgs[1].Content)
	assert.Equal(t, "how are you", msgs[2].Content)

	for _, m := range msgs {
		assert.NotEmpty(t, m.ID)
		assert.False(t, m.CreatedAt.IsZero())
	}
}

func TestRecentLimit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three", "four"} {
		require.NoError(t, st.Append(ctx, "user", content))
	}

	msgs, err := st.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "three", msgs[0].Content, "limit keeps the newest entries")
	assert.Equal(t, "four", msgs[1].Content)
}

func TestRecentEmpty(t *testing.T) {
	st := openTestStore(t)
	msgs, err := st.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestClear(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Append(ctx, "user", "to be deleted"))
	require.NoError(t, st.Clear(ctx))

	msgs, err := st.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deeply", "nested", "transcript.db")
	st, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	require.NoError(t, st.Append(context.Background(), "user", "x"))
}
