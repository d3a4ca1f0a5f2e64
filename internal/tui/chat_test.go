package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctotypetech/kitt/internal/chat"
	"github.com/doctotypetech/kitt/internal/hostexec"
	"github.com/doctotypetech/kitt/internal/store"
)

type stubRunner struct{}

func (stubRunner) Run(ctx context.Context, spec hostexec.CommandSpec) (hostexec.Result, error) {
	return hostexec.Result{}, nil
}

func (stubRunner) Stream(ctx context.Context, spec hostexec.CommandSpec, onChunk hostexec.ChunkFunc) (hostexec.Result, error) {
	return hostexec.Result{}, nil
}

func newTestSession() *chat.Session {
	return chat.NewSession(stubRunner{}, "kitt-ai", time.Minute, nil)
}

func TestNewChatModelPreloadsTranscript(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	st, err := store.Open(filepath.Join(t.TempDir(), "transcript.db"))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	require.NoError(t, st.Append(ctx, "user", "what is the weather"))
	require.NoError(t, st.Append(ctx, "assistant", "I cannot see outside"))

	m := NewChatModel(newTestSession(), stubRunner{}, "kitt-ai", st, nil)

	require.Len(t, m.conversation, 3)
	assert.Equal(t, "user", m.conversation[0].Role)
	assert.Equal(t, "what is the weather", m.conversation[0].Content)
	assert.Equal(t, "assistant", m.conversation[1].Role)
	assert.Equal(t, "I cannot see outside", m.conversation[1].Content)
	assert.Equal(t, "system", m.conversation[2].Role, "greeting follows the restored conversation")
}

func TestNewChatModelWithoutTranscript(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	m := NewChatModel(newTestSession(), stubRunner{}, "kitt-ai", nil, nil)

	require.Len(t, m.conversation, 1)
	assert.Equal(t, "system", m.conversation[0].Role)
}
