package chatcmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/parleylabs/parley/pkg/client"
	"github.com/parleylabs/parley/pkg/cliui"
	"github.com/parleylabs/parley/pkg/llm"
	"github.com/parleylabs/parley/pkg/sse"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

// streamUpdateMsg carries the growing assembled text of an in-flight
// streamed response.
type streamUpdateMsg string

// streamDoneMsg carries the terminal outcome of a streamed response.
type streamDoneMsg struct {
	outcome sse.Outcome
}

// queryDoneMsg carries the result of a non-streaming query.
type queryDoneMsg struct {
	resp llm.ChatResponse
	err  error
}

type chatModel struct {
	client *client.Client
	stream bool
	record func(role, content string)

	viewport viewport.Model
	textarea textarea.Model

	transcript []string
	current    string
	busy       bool
	updates    chan bubbletea.Msg

	width  int
	height int
	ready  bool
}

func newChatModel(cl *client.Client, stream bool, record func(role, content string)) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Focus()
	ta.Prompt = "│ "
	ta.CharLimit = 4096
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	return chatModel{
		client:   cl,
		stream:   stream,
		record:   record,
		textarea: ta,
		updates:  make(chan bubbletea.Msg),
	}
}

// runTUI runs the full-screen chat UI.
func (c *chatCommander) runTUI() error {
	model := newChatModel(c.client, c.stream, c.record)

	program := bubbletea.NewProgram(model,
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func (m chatModel) Init() bubbletea.Cmd {
	return textarea.Blink
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textarea.SetWidth(msg.Width - 2)

		viewportHeight := msg.Height - m.textarea.Height() - 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = viewportHeight
		}
		m.refreshViewport()
		return m, nil

	case bubbletea.KeyMsg:
		switch msg.Type {
		case bubbletea.KeyCtrlC, bubbletea.KeyEsc:
			return m, bubbletea.Quit
		case bubbletea.KeyEnter:
			if m.busy {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			if input == "/exit" {
				return m, bubbletea.Quit
			}

			m.textarea.Reset()
			m.record(llm.RoleUser, input)
			m.transcript = append(m.transcript, userPrompt+input)
			m.busy = true
			m.current = ""
			m.refreshViewport()
			return m, m.send(input)
		}

	case streamUpdateMsg:
		m.current = string(msg)
		m.refreshViewport()
		return m, m.waitForUpdate()

	case streamDoneMsg:
		m.busy = false
		content := msg.outcome.Text
		line := assistantPrompt + content
		if msg.outcome.Err != nil {
			line += "\n" + cliui.ErrorStyle.Render(
				fmt.Sprintf("stream failed: %v (partial response kept)", msg.outcome.Err),
			)
		}
		m.transcript = append(m.transcript, line)
		m.current = ""
		if content != "" {
			m.record(llm.RoleAssistant, content)
		}
		m.refreshViewport()
		return m, nil

	case queryDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.transcript = append(m.transcript, cliui.ErrorStyle.Render(msg.err.Error()))
		} else {
			m.transcript = append(m.transcript, assistantPrompt+msg.resp.Content)
			m.record(llm.RoleAssistant, msg.resp.Content)
		}
		m.refreshViewport()
		return m, nil
	}

	var taCmd, vpCmd bubbletea.Cmd
	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, bubbletea.Batch(taCmd, vpCmd)
}

func (m chatModel) View() string {
	if !m.ready {
		return "loading..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s",
		m.viewport.View(),
		m.textarea.View(),
		cliui.DimStyle.Render("enter: send • /exit or esc: quit"),
	)
}

// send dispatches the prompt on the configured path (streaming or
// blocking) and returns the command that produces the first message.
func (m chatModel) send(prompt string) bubbletea.Cmd {
	if m.stream {
		return m.startStream(prompt)
	}
	return m.startQuery(prompt)
}

// startStream runs the streaming query in a goroutine, forwarding each
// growing-text update through the updates channel.
func (m chatModel) startStream(prompt string) bubbletea.Cmd {
	cl := m.client
	updates := m.updates
	return func() bubbletea.Msg {
		go func() {
			outcome := cl.QueryStream(context.Background(), prompt, func(text string) {
				updates <- streamUpdateMsg(text)
			})
			updates <- streamDoneMsg{outcome: outcome}
		}()
		return <-updates
	}
}

func (m chatModel) startQuery(prompt string) bubbletea.Cmd {
	cl := m.client
	return func() bubbletea.Msg {
		resp, err := cl.Query(context.Background(), prompt)
		return queryDoneMsg{resp: resp, err: err}
	}
}

// waitForUpdate yields the next message from the in-flight stream.
func (m chatModel) waitForUpdate() bubbletea.Cmd {
	updates := m.updates
	return func() bubbletea.Msg {
		return <-updates
	}
}

// refreshViewport re-renders the transcript, appending the in-progress
// response with the typing cursor. The cursor is display-only and never
// part of the recorded text.
func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}

	lines := make([]string, len(m.transcript))
	copy(lines, m.transcript)
	if m.busy {
		lines = append(lines, assistantPrompt+m.current+cliui.Cursor)
	}

	m.viewport.SetContent(strings.Join(lines, "\n\n"))
	m.viewport.GotoBottom()
}
