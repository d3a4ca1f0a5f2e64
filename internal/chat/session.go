// Package chat drives a single request/response exchange against the
// model-serving daemon, surfacing output incrementally. One Session
// owns at most one conversational process at a time; the UI disables
// input while a query runs, and the Session rejects concurrent asks
// anyway.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doctotypetech/kitt/internal/hostexec"
)

var (
	// ErrBusy means an Ask was issued while another was in flight.
	ErrBusy = errors.New("chat: query already in flight")
	// ErrCancelled means the caller cancelled the query.
	ErrCancelled = errors.New("chat: query cancelled")
)

// StreamSink receives the incremental response. Chunks arrive in the
// order the process produced them; a chunk is delivered before the
// next one is read.
type StreamSink interface {
	StreamChunk(text string)
	// StreamEnd reports the final status. A nil error is a clean
	// finish; partial output already forwarded is never retracted.
	StreamEnd(err error)
}

// Answer is the final state of one query.
type Answer struct {
	ID      uuid.UUID
	Prompt  string
	Output  string // accumulated response text, including partials
	Elapsed time.Duration
	// SoftErr records a non-zero exit that happened after output had
	// already streamed. The output stands; the failure is logged, not
	// raised. Deliberate leniency, kept visible here.
	SoftErr error
}

// Session runs queries against one AI profile.
type Session struct {
	runner  hostexec.Runner
	profile string
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	busy   bool
	cancel context.CancelFunc
}

// NewSession wires a session for the given profile. timeout bounds
// each query; zero disables the bound. A nil logger discards logs.
func NewSession(runner hostexec.Runner, profile string, timeout time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		runner:  runner,
		profile: profile,
		timeout: timeout,
		logger:  logger,
	}
}

// Busy reports whether a query is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Ask runs one query, forwarding output to sink as it arrives.
//
// Failure shapes:
//   - a second Ask while one is active returns ErrBusy without
//     spawning anything;
//   - exceeding the timeout kills the process and returns
//     hostexec.ErrTimeout, keeping the partial output in Answer;
//   - Cancel during the query returns ErrCancelled, likewise keeping
//     partials;
//   - a non-zero exit before any output is a *hostexec.CommandError;
//     after output it is recorded as Answer.SoftErr and not raised.
func (s *Session) Ask(ctx context.Context, prompt string, sink StreamSink) (Answer, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return Answer{}, ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.busy = false
		s.cancel = nil
		s.mu.Unlock()
	}()

	ans := Answer{ID: uuid.New(), Prompt: prompt}
	s.logger.Debug("query starting", "query_id", ans.ID, "profile", s.profile)

	spec := hostexec.CommandSpec{
		Argv:    []string{"ollama", "run", s.profile, prompt},
		Timeout: s.timeout,
	}

	res, err := s.runner.Stream(runCtx, spec, sink.StreamChunk)
	ans.Output = res.Stdout
	ans.Elapsed = res.Elapsed

	switch {
	case err == nil:
		s.logger.Debug("query complete", "query_id", ans.ID, "elapsed", ans.Elapsed)
		sink.StreamEnd(nil)
		return ans, nil

	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		// Our cancel, not the caller's context going away.
		s.logger.Info("query cancelled", "query_id", ans.ID, "partial_bytes", len(ans.Output))
		sink.StreamEnd(ErrCancelled)
		return ans, ErrCancelled

	case errors.Is(err, hostexec.ErrTimeout):
		s.logger.Warn("query timed out", "query_id", ans.ID, "timeout", s.timeout)
		sink.StreamEnd(err)
		return ans, err

	default:
		var cmdErr *hostexec.CommandError
		if errors.As(err, &cmdErr) && ans.Output != "" {
			// The model already answered; a dirty exit afterwards is
			// noise. Keep the output, log the failure.
			s.logger.Warn("query exited non-zero after output",
				"query_id", ans.ID, "exit_code", cmdErr.ExitCode, "stderr", cmdErr.Stderr)
			ans.SoftErr = err
			sink.StreamEnd(nil)
			return ans, nil
		}
		s.logger.Error("query failed", "query_id", ans.ID, "error", err)
		sink.StreamEnd(err)
		return ans, fmt.Errorf("ask %s: %w", s.profile, err)
	}
}

// Cancel aborts the in-flight query, if any. The underlying process is
// killed and its handles released by the runner. Cancelling a finished
// or idle session is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
