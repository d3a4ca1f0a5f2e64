package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/doctotypetech/kitt/internal/hostexec"
	"github.com/doctotypetech/kitt/internal/setup"
)

type stepStatus int

const (
	stepPending stepStatus = iota
	stepRunning
	stepSkipped
	stepDone
	stepFailed
)

// InstallModel is the Bubble Tea model for the install screen. It
// drives the orchestrator in the background and renders each step's
// status plus an overall progress bar.
type InstallModel struct {
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles

	plan []setup.PlannedStep
	orch *setup.Orchestrator

	statusChan chan tea.Msg
	statuses   map[string]stepStatus
	reasons    map[string]string
	stepErrs   map[string]string
	percent    int

	runCtx context.Context
	cancel context.CancelFunc

	done     bool
	aborted  bool
	finalErr error

	width  int
	height int
}

// progressRelay forwards orchestrator events into the TUI event loop.
// Sends block so events arrive in order.
type progressRelay struct {
	ch chan<- tea.Msg
}

func (r progressRelay) StepStarted(name, description string) {
	r.ch <- StepStartedMsg{Name: name, Description: description}
}

func (r progressRelay) StepSkipped(name, reason string, progress int) {
	r.ch <- StepSkippedMsg{Name: name, Reason: reason, Progress: progress}
}

func (r progressRelay) StepCompleted(name string, progress int) {
	r.ch <- StepCompletedMsg{Name: name, Progress: progress}
}

func (r progressRelay) StepFailed(name string, err error) {
	r.ch <- StepFailedMsg{Name: name, Err: err}
}

// NewInstallModel wires an install screen over the given plan.
func NewInstallModel(runner hostexec.Runner, plan []setup.PlannedStep, logger *slog.Logger) InstallModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	statusChan := make(chan tea.Msg, 16)
	orch := setup.NewOrchestrator(runner, progressRelay{ch: statusChan}, logger)

	statuses := make(map[string]stepStatus, len(plan))
	for _, step := range plan {
		statuses[step.Name] = stepPending
	}

	runCtx, cancel := context.WithCancel(context.Background())

	return InstallModel{
		runCtx:      runCtx,
		cancel:      cancel,
		spinner:     s,
		progressBar: progress.New(progress.WithDefaultGradient()),
		styles:      DefaultStyles(),
		plan:        plan,
		orch:        orch,
		statusChan:  statusChan,
		statuses:    statuses,
		reasons:     make(map[string]string),
		stepErrs:    make(map[string]string),
	}
}

// Init implements tea.Model
func (m InstallModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startInstall(),
		m.listenForStatus(),
	)
}

// startInstall runs the orchestrator in the background.
func (m InstallModel) startInstall() tea.Cmd {
	orch := m.orch
	plan := m.plan
	ctx := m.runCtx
	return func() tea.Msg {
		_, err := orch.Execute(ctx, plan)
		return InstallDoneMsg{Err: err}
	}
}

// listenForStatus waits for the next orchestrator event.
func (m InstallModel) listenForStatus() tea.Cmd {
	ch := m.statusChan
	return func() tea.Msg {
		return <-ch
	}
}

// Update implements tea.Model
func (m InstallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			if !m.done {
				m.aborted = true
			}
			return m, tea.Quit
		}
		if m.done {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progressBar.Width = m.width - 8
		if m.progressBar.Width > 60 {
			m.progressBar.Width = 60
		}

	case StepStartedMsg:
		m.statuses[msg.Name] = stepRunning
		return m, m.listenForStatus()

	case StepSkippedMsg:
		m.statuses[msg.Name] = stepSkipped
		m.reasons[msg.Name] = msg.Reason
		m.percent = msg.Progress
		return m, m.listenForStatus()

	case StepCompletedMsg:
		m.statuses[msg.Name] = stepDone
		m.percent = msg.Progress
		return m, m.listenForStatus()

	case StepFailedMsg:
		m.statuses[msg.Name] = stepFailed
		m.stepErrs[msg.Name] = msg.Err.Error()
		return m, m.listenForStatus()

	case InstallDoneMsg:
		m.done = true
		m.finalErr = msg.Err
		// Leave the summary on screen for a beat, then exit.
		return m, tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
			return tea.Quit()
		})

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m InstallModel) View() string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor).
		MarginTop(1).
		MarginBottom(1).
		PaddingLeft(2)
	b.WriteString(headerStyle.Render("Installing KITT"))
	b.WriteString("\n\n")

	listStyle := lipgloss.NewStyle().PaddingLeft(4)

	for _, step := range m.plan {
		var icon string
		var style lipgloss.Style

		switch m.statuses[step.Name] {
		case stepPending:
			icon = "o"
			style = m.styles.HelpDesc
		case stepRunning:
			icon = m.spinner.View()
			style = lipgloss.NewStyle().Foreground(primaryColor)
		case stepSkipped:
			icon = "-"
			style = m.styles.StepSkipped
		case stepDone:
			icon = "v"
			style = m.styles.StepSuccess
		case stepFailed:
			icon = "x"
			style = m.styles.StepError
		}

		line := fmt.Sprintf("%s %s", icon, step.Description)
		if reason, ok := m.reasons[step.Name]; ok {
			line += fmt.Sprintf(" (%s)", reason)
		}
		if errMsg, ok := m.stepErrs[step.Name]; ok {
			if len(errMsg) > 120 {
				errMsg = errMsg[:117] + "..."
			}
			line += fmt.Sprintf(" - %s", errMsg)
		}

		b.WriteString(listStyle.Render(style.Render(line)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listStyle.Render(m.progressBar.ViewAs(float64(m.percent) / 100)))
	b.WriteString("\n\n")

	if m.done {
		if m.finalErr != nil {
			b.WriteString(listStyle.Render(m.styles.StepError.Render(fmt.Sprintf("Install failed: %v", m.finalErr))))
		} else {
			b.WriteString(listStyle.Render(m.styles.StepSuccess.Render("Install complete. Run kitt to start chatting.")))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(listStyle.Render(m.styles.HelpDesc.Render("Press ctrl+c to abort")))
		b.WriteString("\n")
	}

	return b.String()
}

// RunInstall starts the install TUI. The returned error reflects the
// TUI itself; the install outcome is reported by Result.
func RunInstall(m InstallModel) (InstallModel, error) {
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return m, err
	}
	if fm, ok := final.(InstallModel); ok {
		return fm, nil
	}
	return m, nil
}

// Result returns the install outcome once the TUI has exited. A run
// aborted by the user reports an error even when the orchestrator
// never got to deliver its own.
func (m InstallModel) Result() error {
	if m.finalErr != nil {
		return m.finalErr
	}
	if m.aborted {
		return errors.New("install aborted")
	}
	return nil
}
