package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctotypetech/kitt/internal/hostexec"
)

// scriptedRunner plays back a canned streaming exchange. If block is
// set, Stream parks until the context is cancelled or release is
// closed.
type scriptedRunner struct {
	mu      sync.Mutex
	streams int

	chunks  []string
	err     error
	block   bool
	release chan struct{}
	started chan struct{} // closed once Stream is entered
}

func (s *scriptedRunner) Run(ctx context.Context, spec hostexec.CommandSpec) (hostexec.Result, error) {
	return hostexec.Result{}, nil
}

func (s *scriptedRunner) Stream(ctx context.Context, spec hostexec.CommandSpec, onChunk hostexec.ChunkFunc) (hostexec.Result, error) {
	s.mu.Lock()
	s.streams++
	s.mu.Unlock()
	if s.started != nil {
		close(s.started)
		s.started = nil
	}

	var out string
	for _, c := range s.chunks {
		out += c
		if onChunk != nil {
			onChunk(c)
		}
	}

	if s.block {
		select {
		case <-ctx.Done():
			return hostexec.Result{Stdout: out}, ctx.Err()
		case <-s.release:
		}
	}
	return hostexec.Result{Stdout: out}, s.err
}

func (s *scriptedRunner) streamCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams
}

// recordingSink captures the stream as the UI would see it.
type recordingSink struct {
	mu     sync.Mutex
	chunks []string
	ended  bool
	endErr error
}

func (r *recordingSink) StreamChunk(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, text)
}

func (r *recordingSink) StreamEnd(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = true
	r.endErr = err
}

func TestAskStreamsChunksInOrder(t *testing.T) {
	runner := &scriptedRunner{chunks: []string{"Hel", "lo ", "there"}}
	sink := &recordingSink{}
	s := NewSession(runner, "kitt-ai", time.Minute, nil)

	ans, err := s.Ask(context.Background(), "hi", sink)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo ", "there"}, sink.chunks)
	assert.Equal(t, "Hello there", ans.Output)
	assert.Equal(t, "hi", ans.Prompt)
	assert.True(t, sink.ended)
	assert.NoError(t, sink.endErr)
	assert.False(t, s.Busy())
}

func TestAskRejectsConcurrentQueries(t *testing.T) {
	runner := &scriptedRunner{
		block:   true,
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	started := runner.started
	s := NewSession(runner, "kitt-ai", 0, nil)

	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), "first", newSink())
		firstDone <- err
	}()

	<-started
	assert.True(t, s.Busy())

	_, err := s.Ask(context.Background(), "second", newSink())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, runner.streamCount(), "the rejected ask must not spawn a process")

	close(runner.release)
	require.NoError(t, <-firstDone)
	assert.False(t, s.Busy())

	// The session is reusable after the first query finishes.
	runner2 := &scriptedRunner{chunks: []string{"ok"}}
	s2 := NewSession(runner2, "kitt-ai", 0, nil)
	_, err = s2.Ask(context.Background(), "third", newSink())
	assert.NoError(t, err)
}

func newSink() *recordingSink { return &recordingSink{} }

func TestCancelPreservesPartialOutput(t *testing.T) {
	runner := &scriptedRunner{
		chunks:  []string{"partial "},
		block:   true,
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	started := runner.started
	sink := &recordingSink{}
	s := NewSession(runner, "kitt-ai", 0, nil)

	done := make(chan struct{})
	var ans Answer
	var err error
	go func() {
		ans, err = s.Ask(context.Background(), "q", sink)
		close(done)
	}()

	<-started
	s.Cancel()
	<-done

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, "partial ", ans.Output, "forwarded output is never retracted")
	assert.Equal(t, []string{"partial "}, sink.chunks)
	assert.ErrorIs(t, sink.endErr, ErrCancelled)
}

func TestCancelIdempotent(t *testing.T) {
	s := NewSession(&scriptedRunner{}, "kitt-ai", 0, nil)
	s.Cancel()
	s.Cancel() // no query in flight, no panic
	assert.False(t, s.Busy())
}

func TestAskTimeoutPropagates(t *testing.T) {
	runner := &scriptedRunner{
		chunks: []string{"some "},
		err:    hostexec.ErrTimeout,
	}
	sink := &recordingSink{}
	s := NewSession(runner, "kitt-ai", time.Millisecond, nil)

	ans, err := s.Ask(context.Background(), "q", sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, hostexec.ErrTimeout)
	assert.Equal(t, "some ", ans.Output)
	assert.ErrorIs(t, sink.endErr, hostexec.ErrTimeout)
}

func TestAskSoftFailureAfterOutput(t *testing.T) {
	runner := &scriptedRunner{
		chunks: []string{"the answer"},
		err:    &hostexec.CommandError{Command: "ollama run", ExitCode: 1, Stderr: "flaky teardown"},
	}
	sink := &recordingSink{}
	s := NewSession(runner, "kitt-ai", 0, nil)

	ans, err := s.Ask(context.Background(), "q", sink)
	require.NoError(t, err, "a dirty exit after output is logged, not raised")
	assert.Equal(t, "the answer", ans.Output)
	require.Error(t, ans.SoftErr)
	var cmdErr *hostexec.CommandError
	assert.ErrorAs(t, ans.SoftErr, &cmdErr)
	assert.True(t, sink.ended)
	assert.NoError(t, sink.endErr)
}

func TestAskHardFailureBeforeOutput(t *testing.T) {
	cause := &hostexec.CommandError{Command: "ollama run", ExitCode: 1, Stderr: "model not found"}
	runner := &scriptedRunner{err: cause}
	sink := &recordingSink{}
	s := NewSession(runner, "kitt-ai", 0, nil)

	_, err := s.Ask(context.Background(), "q", sink)
	require.Error(t, err)
	var cmdErr *hostexec.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
	var sinkErr *hostexec.CommandError
	assert.ErrorAs(t, sink.endErr, &sinkErr)
}

func TestAskCallerContextCancellation(t *testing.T) {
	runner := &scriptedRunner{
		block:   true,
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	started := runner.started
	s := NewSession(runner, "kitt-ai", 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Ask(ctx, "q", newSink())
		done <- err
	}()

	<-started
	cancel()
	err := <-done
	require.Error(t, err)
	// The caller's own cancellation is not reported as ErrCancelled.
	assert.NotErrorIs(t, err, ErrCancelled)
}
