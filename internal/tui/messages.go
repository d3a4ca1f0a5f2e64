package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/doctotypetech/kitt/internal/chat"
)

// Message types for the TUI

// ChunkMsg carries one piece of streamed response text.
type ChunkMsg struct {
	Text string
}

// StreamEndMsg marks the end of the streamed response. A nil Err is a
// clean finish.
type StreamEndMsg struct {
	Err error
}

// AnswerMsg carries the final answer once Ask returns.
type AnswerMsg struct {
	Answer chat.Answer
	Err    error
}

// StatusProbeMsg carries the daemon/profile status shown in the header.
type StatusProbeMsg struct {
	Status chat.Status
}

// ThinkingTickMsg drives the waiting animation.
type ThinkingTickMsg struct{}

// ThinkingCmd returns a command for the waiting animation.
func ThinkingCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*300, func(t time.Time) tea.Msg {
		return ThinkingTickMsg{}
	})
}

// Install progress messages, relayed from the orchestrator's sink.

// StepStartedMsg is sent when an install step begins executing.
type StepStartedMsg struct {
	Name        string
	Description string
}

// StepSkippedMsg is sent when an install step's check found it already
// satisfied.
type StepSkippedMsg struct {
	Name     string
	Reason   string
	Progress int
}

// StepCompletedMsg is sent when an install step finishes.
type StepCompletedMsg struct {
	Name     string
	Progress int
}

// StepFailedMsg is sent when an install step fails. The run stops here.
type StepFailedMsg struct {
	Name string
	Err  error
}

// InstallDoneMsg is sent when the orchestrator returns.
type InstallDoneMsg struct {
	Err error
}
