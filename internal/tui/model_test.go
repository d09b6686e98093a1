package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glob1env/internal/console"
	"glob1env/internal/environment"
	"glob1env/internal/model"
	"glob1env/internal/script"
	"glob1env/internal/vfs"
)

func newModel(t *testing.T) AppModel {
	t.Helper()
	env, err := environment.New(environment.Options{})
	require.NoError(t, err)
	m := InitialModel(context.Background(), env, nil, "/tmp/config.yaml", nil)
	return send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func send(m AppModel, msg tea.Msg) AppModel {
	next, _ := m.Update(msg)
	return next.(AppModel)
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func command(m AppModel, line string) AppModel {
	m.Input.SetValue(line)
	return send(m, key(tea.KeyEnter))
}

// selectName moves the selection onto the entry called name.
func selectName(t *testing.T, m AppModel, name string) AppModel {
	t.Helper()
	for i, e := range m.Entries {
		if e.Name == name {
			m.SelectedIdx = i
			return m
		}
	}
	t.Fatalf("no entry %q in %s", name, m.Env.CurrentPath)
	return m
}

func TestTerminalCommands(t *testing.T) {
	m := newModel(t)
	assert.Equal(t, console.PageTerminal, m.Page)
	assert.Contains(t, m.View(), "Terminal")

	m = command(m, "echo hi")
	assert.Equal(t, "hi", m.Terminal.History[len(m.Terminal.History)-1].Text)
	assert.Empty(t, m.Input.Value())

	m = command(m, "params")
	assert.Equal(t, console.PageSettings, m.Page)
	assert.Contains(t, m.View(), "/tmp/config.yaml")

	m = send(m, key(tea.KeyEsc))
	assert.Equal(t, console.PageTerminal, m.Page)

	m = command(m, "env")
	assert.Equal(t, console.PageEnvironment, m.Page)
}

func TestTerminalExitQuits(t *testing.T) {
	m := newModel(t)
	m.Input.SetValue("exit")
	_, cmd := m.Update(key(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTerminalFollowsClickableLine(t *testing.T) {
	m := newModel(t)
	m = command(m, "help")

	m = send(m, key(tea.KeyTab))
	require.GreaterOrEqual(t, m.ClickIdx, 0)
	assert.Equal(t, console.PageSettings, m.Terminal.History[m.ClickIdx].Action)

	m = send(m, key(tea.KeyTab))
	assert.Equal(t, console.PageEnvironment, m.Terminal.History[m.ClickIdx].Action)

	m = send(m, key(tea.KeyEnter))
	assert.Equal(t, console.PageEnvironment, m.Page)
	assert.Equal(t, -1, m.ClickIdx)
}

func TestEnvironmentNavigation(t *testing.T) {
	m := command(newModel(t), "env")
	require.Len(t, m.Entries, 4)
	assert.Equal(t, 0, m.SelectedIdx)

	m = send(m, key(tea.KeyUp))
	assert.Equal(t, 0, m.SelectedIdx)
	for range 10 {
		m = send(m, key(tea.KeyDown))
	}
	assert.Equal(t, 3, m.SelectedIdx)

	m = selectName(t, m, "sys")
	m = send(m, key(tea.KeyEnter))
	assert.Equal(t, "/sys", m.Env.CurrentPath)
	assert.Empty(t, m.Entries)
	assert.Contains(t, m.View(), "(empty)")

	m = send(m, key(tea.KeyBackspace))
	assert.Equal(t, "/", m.Env.CurrentPath)
	assert.Equal(t, console.PageEnvironment, m.Page)

	m = send(m, key(tea.KeyBackspace))
	assert.Equal(t, console.PageTerminal, m.Page)
}

func TestDescendSelectsFirstChild(t *testing.T) {
	env, err := environment.New(environment.Options{Tree: vfs.NewTree(
		model.NewFile("a", "", false),
		model.NewFile("b", "", false),
		model.NewDirectory("d", false,
			model.NewFile("x", "", false),
			model.NewFile("y", "", false),
			model.NewFile("z", "", false),
		),
	)})
	require.NoError(t, err)
	m := InitialModel(context.Background(), env, nil, "", nil)
	m = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = command(m, "env")

	m = selectName(t, m, "d")
	require.Equal(t, 2, m.SelectedIdx)
	m = send(m, key(tea.KeyEnter))
	assert.Equal(t, "/d", m.Env.CurrentPath)
	assert.Equal(t, 0, m.SelectedIdx)
	assert.Equal(t, "x", m.Entries[m.SelectedIdx].Name)
}

func TestCredentialViewerCopies(t *testing.T) {
	var copied []string
	old := clipboardWriteAll
	clipboardWriteAll = func(s string) error {
		copied = append(copied, s)
		return nil
	}
	defer func() { clipboardWriteAll = old }()

	m := command(newModel(t), "env")
	m = selectName(t, m, "password.pwd")
	m = send(m, key(tea.KeyEnter))

	assert.Equal(t, ViewerCredentials, m.Viewer)
	assert.Equal(t, "/password.pwd", m.OpenPath)
	require.Equal(t, []SecretRow{{Service: "Google", Secret: "SuperPassword"}}, m.Secrets)
	assert.NotContains(t, m.View(), "SuperPassword")

	m = send(m, runes("c"))
	assert.Equal(t, []string{"SuperPassword"}, copied)
	assert.Equal(t, "Copied Google", m.Status)
}

func TestScriptViewerRunsOnce(t *testing.T) {
	var copied []string
	old := clipboardWriteAll
	clipboardWriteAll = func(s string) error {
		copied = append(copied, s)
		return nil
	}
	defer func() { clipboardWriteAll = old }()

	m := command(newModel(t), "env")
	m = selectName(t, m, "password.nwtz!")
	m = send(m, key(tea.KeyEnter))
	assert.Equal(t, ViewerScript, m.Viewer)
	assert.NotEqual(t, script.Idle, m.Env.ExecutionState())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, m.Env.Wait(ctx))

	m = send(m, MsgFrame(time.Now()))
	require.Len(t, m.Secrets, 2)
	assert.Equal(t, "GLOBAL", m.Secrets[0].Service)

	m = send(m, key(tea.KeyTab))
	assert.Equal(t, 1, m.SecretIdx)
	m = send(m, runes("c"))
	assert.Equal(t, []string{"Put41n2m3r63-!GOOG01?44"}, copied)

	// Reopening does not start a second run.
	m = send(m, key(tea.KeyEnter))
	m = send(m, MsgFrame(time.Now()))
	assert.Len(t, m.Secrets, 2)
	assert.Equal(t, script.Completed, m.Env.ExecutionState())
}

func TestMarkdownViewer(t *testing.T) {
	m := command(newModel(t), "env")
	m = selectName(t, m, "Welcome.md")
	m = send(m, key(tea.KeyEnter))

	assert.Equal(t, ViewerMarkdown, m.Viewer)
	assert.Contains(t, m.Markdown, "glob1env")
	assert.NotContains(t, m.Markdown, "# Welcome")
}

func TestFrameReschedules(t *testing.T) {
	m := newModel(t)
	_, cmd := m.Update(MsgFrame(time.Now()))
	assert.NotNil(t, cmd)
}

func TestHelpDialog(t *testing.T) {
	m := command(newModel(t), "env")
	m = send(m, runes("?"))
	assert.True(t, m.ShowHelp)
	assert.Contains(t, m.View(), "copy the selected secret")
	m = send(m, key(tea.KeyEsc))
	assert.False(t, m.ShowHelp)
	assert.Equal(t, console.PageEnvironment, m.Page)
}
