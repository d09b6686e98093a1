package tui

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"glob1env/internal/console"
	"glob1env/internal/model"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// MsgFrame is the redraw tick that polls the script mailbox.
type MsgFrame time.Time

func frameCmd() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg { return MsgFrame(t) })
}

// Update handles events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.WindowSize = msg
		m.resize()
		m.refreshViewer()
		return m, nil

	case MsgFrame:
		if n := m.Env.Poll(); n > 0 {
			m.Logger.Debug("Mailbox drained", zap.Int("new", n))
			if m.Viewer == ViewerScript {
				m.refreshViewer()
			}
		}
		return m, frameCmd()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.ShowHelp {
			switch msg.String() {
			case "?", "esc", "q":
				m.ShowHelp = false
			}
			return m, nil
		}
		switch m.Page {
		case console.PageSettings:
			return m.updateSettings(msg)
		case console.PageEnvironment:
			return m.updateEnvironment(msg)
		default:
			return m.updateTerminal(msg)
		}
	}

	if m.Page == console.PageTerminal {
		m.Input, cmd = m.Input.Update(msg)
	}
	return m, cmd
}

func (m AppModel) updateTerminal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		if m.Input.Value() == "" && m.ClickIdx >= 0 {
			// Follow the focused clickable line.
			page := m.Terminal.History[m.ClickIdx].Action
			m.ClickIdx = -1
			return m.goTo(page), nil
		}
		res := m.Terminal.Process(m.ctx, m.Input.Value())
		m.Input.SetValue("")
		m.ClickIdx = -1
		m.refreshTerminal()
		m.TermViewport.GotoBottom()
		switch {
		case res.Quit:
			return m, tea.Quit
		case res.Minimize:
			return m, tea.Suspend
		case res.Page != console.PageNone:
			return m.goTo(res.Page), nil
		}
		return m, nil
	case tea.KeyTab:
		m.ClickIdx = m.nextClickable()
		m.refreshTerminal()
		return m, nil
	case tea.KeyPgUp:
		m.TermViewport.HalfViewUp()
		return m, nil
	case tea.KeyPgDown:
		m.TermViewport.HalfViewDown()
		return m, nil
	}

	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m AppModel) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace", "left", "q":
		return m.goTo(console.PageTerminal), textinput.Blink
	case "?":
		m.ShowHelp = true
	}
	return m, nil
}

func (m AppModel) updateEnvironment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.goTo(console.PageTerminal), textinput.Blink
	case "?":
		m.ShowHelp = true
	case "up", "k":
		if m.SelectedIdx > 0 {
			m.SelectedIdx--
		}
	case "down", "j":
		if m.SelectedIdx < len(m.Entries)-1 {
			m.SelectedIdx++
		}
	case "enter", "right", "l":
		m.open()
	case "backspace", "left", "h":
		if !m.Env.Ascend() {
			return m.goTo(console.PageTerminal), textinput.Blink
		}
		m.closeViewer()
		m.refreshListing()
	case "tab":
		if len(m.Secrets) > 0 {
			m.SecretIdx = (m.SecretIdx + 1) % len(m.Secrets)
			m.refreshViewer()
		}
	case "shift+tab":
		if len(m.Secrets) > 0 {
			m.SecretIdx = (m.SecretIdx + len(m.Secrets) - 1) % len(m.Secrets)
			m.refreshViewer()
		}
	case "c":
		m.copySecret()
	case "pgup":
		m.DetailsViewport.HalfViewUp()
	case "pgdown":
		m.DetailsViewport.HalfViewDown()
	}
	return m, nil
}

// goTo switches page, resetting the per-page state that should not survive.
func (m AppModel) goTo(page console.Page) AppModel {
	m.Page = page
	m.Status = ""
	switch page {
	case console.PageTerminal:
		m.Input.Focus()
		m.refreshTerminal()
	case console.PageEnvironment:
		m.Input.Blur()
		m.refreshListing()
	default:
		m.Input.Blur()
	}
	return m
}

// open descends into the selected directory or shows the selected file.
func (m *AppModel) open() {
	if m.SelectedIdx < 0 || m.SelectedIdx >= len(m.Entries) {
		return
	}
	e := m.Entries[m.SelectedIdx]
	if e.IsDir() {
		m.Env.Push(e.Name)
		m.SelectedIdx = 0
		m.closeViewer()
		m.refreshListing()
		return
	}

	m.OpenPath = m.Env.PathOf(e.Name)
	m.SecretIdx = 0
	m.Status = ""
	switch model.DocumentOf(e.Name) {
	case model.DocumentScript:
		m.Viewer = ViewerScript
		if m.Env.Execute(m.ctx, m.OpenPath) {
			m.Logger.Info("Script started", zap.String("path", m.OpenPath))
		}
	case model.DocumentCredential:
		m.Viewer = ViewerCredentials
	case model.DocumentMarkdown:
		m.Viewer = ViewerMarkdown
	default:
		m.Viewer = ViewerText
	}
	m.refreshViewer()
	m.DetailsViewport.GotoTop()
}

func (m *AppModel) closeViewer() {
	m.Viewer = ViewerNone
	m.OpenPath = ""
	m.ViewerLines = nil
	m.Secrets = nil
	m.SecretIdx = 0
	m.Markdown = ""
	m.DetailsViewport.SetContent("")
}

func (m *AppModel) copySecret() {
	if len(m.Secrets) == 0 {
		m.Status = "Nothing to copy"
		return
	}
	row := m.Secrets[m.SecretIdx]
	if err := clipboardWriteAll(row.Secret); err != nil {
		m.Logger.Warn("Clipboard write failed", zap.Error(err))
		m.Status = "Clipboard unavailable"
		return
	}
	m.Status = fmt.Sprintf("Copied %s", row.Service)
}

// refreshListing reloads the entries under the cursor, clamping the selection.
func (m *AppModel) refreshListing() {
	entries, err := m.Env.List()
	m.Entries, m.ListErr = entries, err
	if m.SelectedIdx >= len(m.Entries) {
		m.SelectedIdx = len(m.Entries) - 1
	}
	if m.SelectedIdx < 0 {
		m.SelectedIdx = 0
	}
}

// nextClickable returns the index of the clickable history line after the
// focused one, wrapping around; -1 when there is none.
func (m AppModel) nextClickable() int {
	h := m.Terminal.History
	for step := 1; step <= len(h); step++ {
		i := (m.ClickIdx + step) % len(h)
		if i < 0 {
			i += len(h)
		}
		if h[i].Action != console.PageNone {
			return i
		}
	}
	return -1
}

func (m *AppModel) resize() {
	w, h := m.WindowSize.Width, m.WindowSize.Height
	m.TermViewport.Width = w - 2
	m.TermViewport.Height = max(h-4, 1) // title, input, footer
	m.Input.Width = max(w-len(m.Input.Prompt)-2, 10)

	_, rightWidth, interiorHeight := m.panelSizes()
	m.DetailsViewport.Width = rightWidth - 2
	m.DetailsViewport.Height = max(interiorHeight-2, 1) // viewer title
}
