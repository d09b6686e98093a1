package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"glob1env/internal/config"
	"glob1env/internal/console"
	"glob1env/internal/environment"
	"glob1env/internal/model"
)

// FrameInterval is how often the mailbox is drained.
const FrameInterval = 100 * time.Millisecond

// Viewer is what the right panel of the Environment page shows.
type Viewer int

const (
	ViewerNone Viewer = iota
	ViewerText
	ViewerCredentials
	ViewerScript
	ViewerMarkdown
)

// SecretRow is a copyable credential in the viewer.
type SecretRow struct {
	Service string
	Secret  string
}

// AppModel holds the TUI state.
type AppModel struct {
	// Data
	Env        *environment.Environment
	Terminal   *console.Terminal
	Config     *config.Config
	ConfigPath string
	Logger     *zap.Logger

	// UI State
	Page       console.Page
	WindowSize tea.WindowSizeMsg
	ShowHelp   bool
	Status     string

	// Terminal page
	Input        textinput.Model
	TermViewport viewport.Model
	ClickIdx     int // index into Terminal.History of the focused clickable line, -1 when none

	// Environment page
	Entries     []model.Entry
	ListErr     error
	SelectedIdx int
	OpenPath    string
	Viewer      Viewer
	ViewerLines []string // plain, credential and script viewers
	Secrets     []SecretRow
	SecretIdx   int
	Markdown    string // rendered markdown

	// Components
	DetailsViewport viewport.Model

	ctx context.Context
}

// InitialModel returns the initial state.
func InitialModel(ctx context.Context, env *environment.Environment, cfg *config.Config, cfgPath string, logger *zap.Logger) AppModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	ti := textinput.New()
	ti.Prompt = cfg.Prompt()
	ti.Placeholder = "Type a command…"
	ti.CharLimit = 512
	ti.Focus()

	m := AppModel{
		Env: env,
		Terminal: console.New(env,
			console.WithPrompt(cfg.Prompt()),
			console.WithMaxHistory(cfg.HistoryLines()),
		),
		Config:          cfg,
		ConfigPath:      cfgPath,
		Logger:          logger,
		Page:            console.PageTerminal,
		Input:           ti,
		ClickIdx:        -1,
		TermViewport:    viewport.New(80, 20),
		DetailsViewport: viewport.New(40, 20),
		ctx:             ctx,
	}
	m.refreshListing()
	m.refreshTerminal()
	return m
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, frameCmd())
}
