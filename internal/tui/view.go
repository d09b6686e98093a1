package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"glob1env/internal/console"
	"glob1env/internal/mailbox"
	"glob1env/internal/model"
	"glob1env/internal/script"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	normalStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")) // Cyan

	clickableStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")) // Yellow

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")) // Orange

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("117")) // Light blue

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	borderColor = lipgloss.Color("63")
	activeColor = lipgloss.Color("205")
)

func (m AppModel) View() string {
	if m.ShowHelp {
		return m.renderHelpDialog()
	}
	switch m.Page {
	case console.PageSettings:
		return m.viewSettings()
	case console.PageEnvironment:
		return m.viewEnvironment()
	}
	return m.viewTerminal()
}

func (m AppModel) header(page string) string {
	return titleStyle.Render(fmt.Sprintf("glob1env v%s · %s", model.Version, page))
}

func (m AppModel) footer(keys string) string {
	line := keys
	if m.Status != "" {
		line = m.Status + "  ·  " + keys
	}
	return dimStyle.Render(line)
}

func (m AppModel) viewTerminal() string {
	var b strings.Builder
	b.WriteString(m.header("Terminal"))
	b.WriteString("\n")
	b.WriteString(m.TermViewport.View())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	b.WriteString("\n")
	b.WriteString(m.footer("enter run · tab focus link · pgup/pgdn scroll · ctrl+c quit"))
	return b.String()
}

// refreshTerminal re-renders the history into the terminal viewport.
func (m *AppModel) refreshTerminal() {
	lines := make([]string, 0, len(m.Terminal.History))
	for i, e := range m.Terminal.History {
		switch {
		case e.Action != console.PageNone && i == m.ClickIdx:
			lines = append(lines, selectedStyle.Render(e.Text))
		case e.Action != console.PageNone:
			lines = append(lines, clickableStyle.Render(e.Text))
		case e.IsCommand:
			lines = append(lines, commandStyle.Render(e.Text))
		default:
			lines = append(lines, normalStyle.Render(e.Text))
		}
	}
	m.TermViewport.SetContent(strings.Join(lines, "\n"))
}

func (m AppModel) viewSettings() string {
	cfg := m.Config
	rows := [][2]string{
		{"Config file", m.ConfigPath},
		{"Prompt", fmt.Sprintf("%q", cfg.Prompt())},
		{"History lines", fmt.Sprint(cfg.HistoryLines())},
		{"Mailbox capacity", fmt.Sprint(cfg.MailboxCapacity())},
		{"Script timeout", timeoutText(cfg.ScriptTimeout())},
		{"Log file", orNone(cfg.LogFile())},
		{"Log level", cfg.LogLevel()},
		{"Web address", cfg.Addr()},
		{"Updates", cfg.UpdateOwner() + "/" + cfg.UpdateRepository()},
	}

	var body strings.Builder
	body.WriteString(panelTitleStyle.Render("Settings"))
	body.WriteString("\n\n")
	for _, r := range rows {
		body.WriteString(fmt.Sprintf("%-18s %s\n", r[0]+":", normalStyle.Render(r[1])))
	}

	box := lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(strings.TrimSuffix(body.String(), "\n"))

	return m.header("Settings") + "\n" + box + "\n" + m.footer("esc back · ? help")
}

func timeoutText(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// panelSizes splits the Environment page into two bordered panels.
func (m AppModel) panelSizes() (leftWidth, rightWidth, interiorHeight int) {
	// Subtracting 6 for horizontal margin (borders x2 + buffer)
	// Subtracting 4 for vertical margin (title, cursor line, footer)
	netWidth := max(m.WindowSize.Width-6, 20)
	leftWidth = netWidth * 2 / 5
	rightWidth = netWidth - leftWidth

	boxHeight := max(m.WindowSize.Height-4, 6)
	interiorHeight = max(boxHeight-2, 2)
	return leftWidth, rightWidth, interiorHeight
}

func (m AppModel) viewEnvironment() string {
	leftWidth, rightWidth, interiorHeight := m.panelSizes()

	// LEFT PANEL: listing
	var leftView strings.Builder
	leftView.WriteString(panelTitleStyle.Render(m.Env.CurrentPath))
	leftView.WriteString("\n\n")

	if m.ListErr != nil {
		leftView.WriteString(errorStyle.Render(m.ListErr.Error()))
	} else if len(m.Entries) == 0 {
		leftView.WriteString(dimStyle.Render("(empty)"))
	}

	// Windowing: header is 2 lines
	visibleItems := max(interiorHeight-2, 1)
	startIdx, endIdx := 0, len(m.Entries)
	if len(m.Entries) > visibleItems {
		startIdx = max(m.SelectedIdx-visibleItems/2, 0)
		if startIdx+visibleItems > len(m.Entries) {
			startIdx = len(m.Entries) - visibleItems
		}
		endIdx = startIdx + visibleItems
	}

	for i := startIdx; i < endIdx; i++ {
		e := m.Entries[i]
		line := model.IconFor(e) + " " + e.Name
		if e.IsDir() {
			line += "/"
		}
		if w := leftWidth - 2; w > 3 && lipgloss.Width(line) > w {
			line = truncate(line, w-3) + "..."
		}

		style := normalStyle
		switch {
		case i == m.SelectedIdx:
			style = selectedStyle
		case e.System:
			style = systemStyle
		}
		leftView.WriteString(style.Render(line))
		leftView.WriteString("\n")
	}

	lBorder, rBorder := activeColor, borderColor
	if m.Viewer != ViewerNone {
		lBorder, rBorder = borderColor, activeColor
	}

	left := lipgloss.NewStyle().
		Width(leftWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lBorder).
		Render(strings.TrimSuffix(leftView.String(), "\n"))

	// RIGHT PANEL: viewer
	var rightView strings.Builder
	if m.Viewer == ViewerNone {
		rightView.WriteString(dimStyle.Render("Select a file to view its contents"))
	} else {
		rightView.WriteString(panelTitleStyle.Render(m.viewerTitle()))
		rightView.WriteString("\n\n")
		rightView.WriteString(m.DetailsViewport.View())
	}

	right := lipgloss.NewStyle().
		Width(rightWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(rBorder).
		Render(rightView.String())

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	keys := "↑/↓ select · enter open · ⌫ back · esc terminal · ? help"
	if len(m.Secrets) > 0 {
		keys = "tab next · c copy · " + keys
	}
	return m.header("Environment") + "\n" + body + "\n" + m.footer(keys)
}

func (m AppModel) viewerTitle() string {
	title := m.OpenPath
	if m.Viewer == ViewerScript {
		switch m.Env.ExecutionState() {
		case script.Running:
			title += " " + model.IconRunning
		case script.Completed:
			title += " " + model.IconDone
		}
	}
	return title
}

// refreshViewer rebuilds the right panel content for the open file.
func (m *AppModel) refreshViewer() {
	m.ViewerLines, m.Secrets = nil, nil

	switch m.Viewer {
	case ViewerNone:
		return
	case ViewerScript:
		m.scriptLines(m.Env.Messages())
	default:
		content, err := m.Env.Read(m.OpenPath)
		if err != nil {
			m.ViewerLines = []string{errorStyle.Render(err.Error())}
			break
		}
		switch m.Viewer {
		case ViewerCredentials:
			m.credentialLines(content)
		case ViewerMarkdown:
			m.Markdown = renderMarkdown(content, m.DetailsViewport.Width)
			m.ViewerLines = []string{m.Markdown}
		default:
			m.ViewerLines = model.SplitLines(content)
		}
	}

	if m.SecretIdx >= len(m.Secrets) {
		m.SecretIdx = 0
	}
	m.DetailsViewport.SetContent(strings.Join(m.ViewerLines, "\n"))
}

func (m *AppModel) credentialLines(content string) {
	for _, l := range model.ParseDocument(content) {
		if l.Credential == nil {
			m.ViewerLines = append(m.ViewerLines, normalStyle.Render(l.Text))
			continue
		}
		m.addSecret(l.Credential.Service, l.Credential.Secret)
	}
}

func (m *AppModel) scriptLines(msgs []mailbox.Message) {
	if len(msgs) == 0 && m.Env.ExecutionState() != script.Completed {
		m.ViewerLines = append(m.ViewerLines, dimStyle.Render("Running..."))
	}
	for _, msg := range msgs {
		switch msg.Kind {
		case mailbox.KindPassword:
			m.addSecret(msg.Service, msg.Secret)
		case mailbox.KindButton:
			m.ViewerLines = append(m.ViewerLines, buttonStyle.Render(msg.Text))
		default:
			m.ViewerLines = append(m.ViewerLines, normalStyle.Render(msg.String()))
		}
	}
}

// addSecret appends a credential row; the secret itself is never displayed.
func (m *AppModel) addSecret(service, secret string) {
	idx := len(m.Secrets)
	m.Secrets = append(m.Secrets, SecretRow{Service: service, Secret: secret})
	row := fmt.Sprintf("%s %s :  [copy]", model.IconCredential, service)
	if idx == m.SecretIdx {
		m.ViewerLines = append(m.ViewerLines, selectedStyle.Render(row))
		return
	}
	m.ViewerLines = append(m.ViewerLines, normalStyle.Render(row))
}

func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-2, 20)),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func truncate(s string, w int) string {
	var b strings.Builder
	for _, r := range s {
		if lipgloss.Width(b.String()+string(r)) > w {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

const helpContent = `glob1env keys

Terminal
  enter        run the typed command
  tab          focus the next link, enter follows it
  pgup/pgdn    scroll the history

Environment
  ↑/↓, j/k     select an entry
  enter, →     open a directory or a file
  ⌫, ←         go to the parent directory (terminal at the root)
  tab          next credential row
  c            copy the selected secret
  esc          back to the terminal

Scripts (.nwtz!) run once per session, when first opened.

Press ? or esc to close`

func (m AppModel) renderHelpDialog() string {
	w, h := m.WindowSize.Width, m.WindowSize.Height
	if w < 20 || h < 10 {
		return "Window too small"
	}

	helpWidth := min(max(w*80/100, 40), w-4)
	helpHeight := max(h-6, 5)

	lines := strings.Split(helpContent, "\n")
	if len(lines) > helpHeight-2 {
		lines = lines[:helpHeight-2]
	}

	dialog := lipgloss.NewStyle().
		Width(helpWidth).
		Height(helpHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(w, h,
		lipgloss.Center, lipgloss.Center,
		dialog,
	)
}
