package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/doctotypetech/kitt/internal/hostexec"
)

// Status is the readiness of the assistant stack, probed at startup.
type Status int

const (
	// StatusReady means the daemon answers and the profile exists.
	StatusReady Status = iota
	// StatusProfileMissing means the daemon answers but the profile
	// has not been created; the installer should be run.
	StatusProfileMissing
	// StatusDaemonDown means the binary exists but the daemon did not
	// answer.
	StatusDaemonDown
	// StatusNotInstalled means the daemon binary is not on PATH.
	StatusNotInstalled
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusProfileMissing:
		return "profile missing"
	case StatusDaemonDown:
		return "daemon unreachable"
	case StatusNotInstalled:
		return "not installed"
	}
	return "unknown"
}

// ProbeStatus checks whether the profile is ready to chat. It is a
// pure read of host state and safe to call repeatedly.
func ProbeStatus(ctx context.Context, r hostexec.Runner, profile string) Status {
	res, err := r.Run(ctx, hostexec.CommandSpec{Argv: []string{"ollama", "list"}})
	if err != nil {
		if errors.Is(err, hostexec.ErrNotFound) {
			return StatusNotInstalled
		}
		return StatusDaemonDown
	}
	if strings.Contains(res.Stdout, profile) {
		return StatusReady
	}
	return StatusProfileMissing
}
