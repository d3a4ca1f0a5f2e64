package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/doctotypetech/kitt/internal/chat"
	"github.com/doctotypetech/kitt/internal/hostexec"
	"github.com/doctotypetech/kitt/internal/store"
	"github.com/doctotypetech/kitt/internal/telemetry"
)

// ConversationEntry is a single entry in the conversation view.
type ConversationEntry struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// ChatModel is the Bubble Tea model for the chat screen.
type ChatModel struct {
	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	styles   Styles

	// Wiring
	session    *chat.Session
	runner     hostexec.Runner
	profile    string
	transcript *store.Store // nil when persistence is off
	telemetry  telemetry.Service

	// State
	conversation []ConversationEntry
	thinking     bool
	thinkingDots int
	status       chat.Status
	statusKnown  bool
	quitting     bool

	// Streamed response, updated in place while a query runs
	streamChan chan tea.Msg
	live       *strings.Builder
	liveIndex  int
	streaming  bool

	// Prompt history
	historyList  []string
	historyIndex int
	historyPath  string

	// Markdown renderer
	mdRenderer *glamour.TermRenderer

	// Dimensions
	width  int
	height int
	ready  bool
}

// transcriptPreload is how many saved messages reappear on startup.
const transcriptPreload = 20

// streamRelay forwards chunks from the query goroutine into the TUI
// event loop. Sends block so chunk order is preserved.
type streamRelay struct {
	ch chan<- tea.Msg
}

func (r streamRelay) StreamChunk(text string) { r.ch <- ChunkMsg{Text: text} }
func (r streamRelay) StreamEnd(err error)     { r.ch <- StreamEndMsg{Err: err} }

// NewChatModel creates the chat screen. transcript may be nil.
func NewChatModel(session *chat.Session, runner hostexec.Runner, profile string, transcript *store.Store, tele telemetry.Service) ChatModel {
	ta := textarea.New()
	ta.Placeholder = "Ask me anything..."
	ta.Focus()
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	mdRenderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	historyPath := HistoryPath()

	m := ChatModel{
		textarea:     ta,
		spinner:      s,
		styles:       DefaultStyles(),
		session:      session,
		runner:       runner,
		profile:      profile,
		transcript:   transcript,
		telemetry:    tele,
		conversation: make([]ConversationEntry, 0),
		streamChan:   make(chan tea.Msg, 16),
		live:         &strings.Builder{},
		historyList:  LoadHistory(historyPath),
		historyPath:  historyPath,
		mdRenderer:   mdRenderer,
	}
	m.historyIndex = len(m.historyList)

	// Pick up where the last session left off.
	if transcript != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		saved, err := transcript.Recent(ctx, transcriptPreload)
		cancel()
		if err == nil {
			for _, msg := range saved {
				m.conversation = append(m.conversation, ConversationEntry{
					Role:    msg.Role,
					Content: msg.Content,
				})
			}
		}
	}

	m.conversation = append(m.conversation, ConversationEntry{
		Role:    "system",
		Content: "Hello, I am KITT. Type a question and press enter. Esc cancels a running query, ctrl+c quits.",
	})

	return m
}

// Init implements tea.Model
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.probeStatus(),
	)
}

// probeStatus checks the daemon and profile in the background.
func (m ChatModel) probeStatus() tea.Cmd {
	runner := m.runner
	profile := m.profile
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return StatusProbeMsg{Status: chat.ProbeStatus(ctx, runner, profile)}
	}
}

// listenForStream returns a command that waits for the next stream
// event from the query goroutine.
func (m ChatModel) listenForStream() tea.Cmd {
	ch := m.streamChan
	return func() tea.Msg {
		return <-ch
	}
}

// ask starts the query in the background. The final AnswerMsg arrives
// after the stream has ended.
func (m ChatModel) ask(prompt string) tea.Cmd {
	session := m.session
	ch := m.streamChan
	return func() tea.Msg {
		ans, err := session.Ask(context.Background(), prompt, streamRelay{ch: ch})
		return AnswerMsg{Answer: ans, Err: err}
	}
}

// persist appends the exchange to the transcript, best effort.
func (m ChatModel) persist(prompt, output string) tea.Cmd {
	st := m.transcript
	if st == nil || output == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = st.Append(ctx, "user", prompt)
		_ = st.Append(ctx, "assistant", output)
		return nil
	}
}

// Update implements tea.Model
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			m.session.Cancel()
			return m, tea.Quit

		case "esc":
			if m.thinking {
				m.session.Cancel()
			}
			return m, nil

		case "up":
			if !m.thinking && len(m.historyList) > 0 && m.historyIndex > 0 {
				m.historyIndex--
				m.textarea.SetValue(m.historyList[m.historyIndex])
				m.textarea.SetCursor(len(m.textarea.Value()))
				return m, nil
			}

		case "down":
			if !m.thinking && len(m.historyList) > 0 && m.historyIndex < len(m.historyList) {
				m.historyIndex++
				if m.historyIndex == len(m.historyList) {
					m.textarea.Reset()
				} else {
					m.textarea.SetValue(m.historyList[m.historyIndex])
					m.textarea.SetCursor(len(m.textarea.Value()))
				}
				return m, nil
			}

		case "enter":
			if m.thinking || m.textarea.Value() == "" {
				// Input stays disabled while a query runs.
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}

			if len(m.historyList) == 0 || m.historyList[len(m.historyList)-1] != input {
				m.historyList = append(m.historyList, input)
				AppendHistory(m.historyPath, input)
			}
			m.historyIndex = len(m.historyList)

			if input == "/clear" {
				m.conversation = make([]ConversationEntry, 0)
				m.addSystemMessage("Conversation cleared.")
				m.updateViewportContent(true)
				return m, nil
			}

			m.conversation = append(m.conversation, ConversationEntry{Role: "user", Content: input})
			m.thinking = true
			m.thinkingDots = 0
			m.streaming = false
			m.live.Reset()
			m.updateViewportContent(true)

			if m.telemetry != nil {
				m.telemetry.Track("chat_prompt_sent", map[string]any{
					"prompt_chars": len(input),
				})
			}

			return m, tea.Batch(
				m.ask(input),
				ThinkingCmd(),
				m.listenForStream(),
			)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 1
		inputHeight := m.textarea.Height() + 2
		helpHeight := 1
		conversationHeight := m.height - headerHeight - inputHeight - helpHeight - 2

		if !m.ready {
			m.viewport = viewport.New(m.width, conversationHeight)
			m.viewport.YPosition = headerHeight + 1
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = conversationHeight
		}

		m.textarea.SetWidth(m.width - 4)
		m.updateViewportContent(false)

	case ThinkingTickMsg:
		if m.thinking {
			m.thinkingDots = (m.thinkingDots + 1) % 4
			m.updateViewportContent(false)
			return m, ThinkingCmd()
		}

	case StatusProbeMsg:
		m.status = msg.Status
		m.statusKnown = true
		return m, nil

	case ChunkMsg:
		if !m.streaming {
			m.streaming = true
			m.liveIndex = len(m.conversation)
			m.conversation = append(m.conversation, ConversationEntry{Role: "assistant"})
		}
		m.live.WriteString(msg.Text)
		m.conversation[m.liveIndex].Content = m.live.String()
		m.updateViewportContent(false)
		m.viewport.GotoBottom()
		return m, m.listenForStream()

	case StreamEndMsg:
		// Final state arrives in AnswerMsg; nothing more on the channel.
		return m, nil

	case AnswerMsg:
		m.thinking = false
		prompt := msg.Answer.Prompt
		output := msg.Answer.Output

		if m.streaming && output != "" {
			// Replace the raw stream with the rendered markdown.
			rendered := output
			if m.mdRenderer != nil {
				if r, err := m.mdRenderer.Render(output); err == nil {
					rendered = r
				}
			}
			m.conversation[m.liveIndex].Content = rendered
		}
		m.streaming = false
		m.live.Reset()

		switch {
		case msg.Err == nil:
			// Done. A soft post-output failure was already logged.
		case errors.Is(msg.Err, chat.ErrCancelled):
			m.addSystemMessage("Query cancelled.")
		default:
			m.addSystemMessage(fmt.Sprintf("Error: %v", msg.Err))
		}

		m.updateViewportContent(true)
		m.textarea.Focus()
		return m, tea.Batch(m.persist(prompt, output), m.probeStatus())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
		return m, tea.Batch(cmds...)
	}

	if !m.thinking {
		var taCmd tea.Cmd
		m.textarea, taCmd = m.textarea.Update(msg)
		cmds = append(cmds, taCmd)
	}

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, vpCmd)

	return m, tea.Batch(cmds...)
}

// View implements tea.Model
func (m ChatModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder

	statusText := "probing..."
	if m.statusKnown {
		statusText = m.status.String()
	}
	statusBar := m.styles.StatusBar.Width(m.width).Render(
		fmt.Sprintf(" KITT - %s: %s", m.profile, statusText),
	)
	b.WriteString(statusBar)
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	inputBox := m.styles.Border.Width(m.width - 2).Render(
		m.styles.InputPrompt.Render("> ") + m.textarea.View(),
	)
	b.WriteString(inputBox)
	b.WriteString("\n")

	help := m.styles.Help.Render(
		m.styles.HelpKey.Render("enter") + m.styles.HelpDesc.Render(" send") + "  " +
			m.styles.HelpKey.Render("esc") + m.styles.HelpDesc.Render(" cancel") + "  " +
			m.styles.HelpKey.Render("/clear") + m.styles.HelpDesc.Render(" clear") + "  " +
			m.styles.HelpKey.Render("ctrl+c") + m.styles.HelpDesc.Render(" quit"),
	)
	b.WriteString(help)

	return b.String()
}

// Helper methods

func (m *ChatModel) addSystemMessage(content string) {
	m.conversation = append(m.conversation, ConversationEntry{
		Role:    "system",
		Content: content,
	})
}

func (m *ChatModel) updateViewportContent(forceScroll bool) {
	var b strings.Builder

	for _, entry := range m.conversation {
		switch entry.Role {
		case "user":
			userBox := m.styles.Border.Width(m.width - 6).Render(
				m.styles.InputPrompt.Render("> ") + lipgloss.NewStyle().Foreground(textColor).Render(entry.Content),
			)
			b.WriteString(lipgloss.NewStyle().PaddingLeft(2).PaddingBottom(1).Render(userBox))
			b.WriteString("\n")
		case "assistant":
			b.WriteString(m.styles.AssistantMessage.Render(entry.Content))
			b.WriteString("\n")
		case "system":
			b.WriteString(m.styles.Thinking.Render(entry.Content))
			b.WriteString("\n")
		}
	}

	if m.thinking && !m.streaming {
		dots := strings.Repeat(".", m.thinkingDots)
		b.WriteString(m.styles.Thinking.Render(m.spinner.View() + " Thinking" + dots))
		b.WriteString("\n")
	}

	wasAtBottom := m.viewport.AtBottom()
	m.viewport.SetContent(b.String())
	if forceScroll || wasAtBottom {
		m.viewport.GotoBottom()
	}
}

// RunChat starts the chat TUI.
func RunChat(m ChatModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
