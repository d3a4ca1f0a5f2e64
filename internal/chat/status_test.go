package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doctotypetech/kitt/internal/hostexec"
)

// probeRunner answers the "ollama list" probe with a canned outcome.
type probeRunner struct {
	stdout string
	err    error
}

func (p *probeRunner) Run(ctx context.Context, spec hostexec.CommandSpec) (hostexec.Result, error) {
	return hostexec.Result{Stdout: p.stdout}, p.err
}

func (p *probeRunner) Stream(ctx context.Context, spec hostexec.CommandSpec, onChunk hostexec.ChunkFunc) (hostexec.Result, error) {
	return p.Run(ctx, spec)
}

func TestProbeStatus(t *testing.T) {
	tests := []struct {
		name   string
		runner *probeRunner
		want   Status
	}{
		{
			name:   "ready",
			runner: &probeRunner{stdout: "NAME\nllama3.2:3b\nkitt-ai:latest\n"},
			want:   StatusReady,
		},
		{
			name:   "profile missing",
			runner: &probeRunner{stdout: "NAME\nllama3.2:3b\n"},
			want:   StatusProfileMissing,
		},
		{
			name:   "daemon down",
			runner: &probeRunner{err: &hostexec.CommandError{Command: "ollama list", ExitCode: 1}},
			want:   StatusDaemonDown,
		},
		{
			name:   "not installed",
			runner: &probeRunner{err: fmt.Errorf("ollama list: %w", hostexec.ErrNotFound)},
			want:   StatusNotInstalled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProbeStatus(context.Background(), tt.runner, "kitt-ai")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ready", StatusReady.String())
	assert.Equal(t, "profile missing", StatusProfileMissing.String())
	assert.Equal(t, "daemon unreachable", StatusDaemonDown.String())
	assert.Equal(t, "not installed", StatusNotInstalled.String())
}
