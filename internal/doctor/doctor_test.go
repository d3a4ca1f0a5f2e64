package doctor

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctotypetech/kitt/internal/config"
	"github.com/doctotypetech/kitt/internal/hostexec"
)

// shellRunner decides each probe's outcome from the shell line.
type shellRunner struct {
	pass func(shell string) bool
}

func (s *shellRunner) Run(ctx context.Context, spec hostexec.CommandSpec) (hostexec.Result, error) {
	if s.pass == nil || s.pass(spec.Shell) {
		return hostexec.Result{}, nil
	}
	return hostexec.Result{ExitCode: 1}, &hostexec.CommandError{Command: spec.Display(), ExitCode: 1}
}

func (s *shellRunner) Stream(ctx context.Context, spec hostexec.CommandSpec, onChunk hostexec.ChunkFunc) (hostexec.Result, error) {
	return s.Run(ctx, spec)
}

func TestRunAllAllPassing(t *testing.T) {
	runner := &shellRunner{}
	cfg := config.Default().Install

	results := RunAll(context.Background(), runner, cfg, "/tmp/kitt-test", "linux")
	require.Len(t, results, 7)
	for _, r := range results {
		assert.True(t, r.Passed, r.Name)
		assert.Empty(t, r.FixCmd, r.Name)
	}
}

func TestRunAllMixedResults(t *testing.T) {
	runner := &shellRunner{pass: func(shell string) bool {
		// The daemon answers but the profile is missing.
		return !strings.Contains(shell, "kitt-ai")
	}}
	cfg := config.Default().Install

	results := RunAll(context.Background(), runner, cfg, "/tmp/kitt-test", "linux")

	byName := make(map[string]CheckResult, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.True(t, byName["ollama-binary"].Passed)
	assert.True(t, byName["daemon-reachable"].Passed)
	require.False(t, byName["profile-created"].Passed)
	assert.NotEmpty(t, byName["profile-created"].FixCmd)
}

func TestRunAllPackagerPerOS(t *testing.T) {
	var probed []string
	runner := &shellRunner{pass: func(shell string) bool {
		probed = append(probed, shell)
		return true
	}}
	cfg := config.Default().Install

	RunAll(context.Background(), runner, cfg, "/tmp/kitt-test", "darwin")
	joined := strings.Join(probed, "\n")
	assert.Contains(t, joined, "py2applet")
	assert.NotContains(t, joined, "pyinstaller")

	probed = nil
	RunAll(context.Background(), runner, cfg, "/tmp/kitt-test", "linux")
	joined = strings.Join(probed, "\n")
	assert.Contains(t, joined, "pyinstaller")
}

func TestPrintResultsAllPassed(t *testing.T) {
	results := []CheckResult{
		{Name: "a", Passed: true, Message: "a ok"},
		{Name: "b", Passed: true, Message: "b ok"},
	}

	var buf bytes.Buffer
	allPassed := PrintResults(results, &buf, false)
	assert.True(t, allPassed)

	out := buf.String()
	assert.Contains(t, out, "v a ok")
	assert.Contains(t, out, "2/2 passed")
	assert.NotContains(t, out, "Fix:")
}

func TestPrintResultsWithFailures(t *testing.T) {
	results := []CheckResult{
		{Name: "a", Passed: true, Message: "a ok"},
		{Name: "b", Passed: false, Message: "b broken", FixCmd: "kitt install"},
	}

	var buf bytes.Buffer
	allPassed := PrintResults(results, &buf, false)
	assert.False(t, allPassed)

	out := buf.String()
	assert.Contains(t, out, "x b broken")
	assert.Contains(t, out, "Fix: kitt install")
	assert.Contains(t, out, "1/2 passed, 1 failed")
}

func TestPrintResultsColor(t *testing.T) {
	results := []CheckResult{{Name: "a", Passed: true, Message: "a ok"}}

	var buf bytes.Buffer
	PrintResults(results, &buf, true)
	assert.Contains(t, buf.String(), "\033[32m")
}
