// Package console implements the command terminal: a bounded history of
// command and response lines and the dispatcher that fills it.
package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"glob1env/internal/mailbox"
	"glob1env/internal/model"
)

// Page is a navigation target of a clickable line or a command.
type Page int

const (
	PageNone Page = iota
	PageTerminal
	PageSettings
	PageEnvironment
)

func (p Page) String() string {
	switch p {
	case PageTerminal:
		return "terminal"
	case PageSettings:
		return "settings"
	case PageEnvironment:
		return "environment"
	}
	return "none"
}

const (
	DefaultPrompt     = "> "
	DefaultMaxHistory = 100
	timeLayout        = "2006-01-02 15:04:05"
)

// HistoryEntry is one terminal line. A line with an Action is clickable and
// navigates to that page.
type HistoryEntry struct {
	Text      string
	IsCommand bool
	Action    Page
}

// Result tells the presentation layer what to do after a command.
type Result struct {
	Page     Page
	Quit     bool
	Minimize bool
}

// Environment is what the env commands operate on.
type Environment interface {
	ListPath(p string) ([]model.Entry, error)
	Read(p string) (string, error)
	Write(p, content string) error
	Execute(ctx context.Context, p string) bool
	Messages() []mailbox.Message
}

// Terminal holds the history and dispatches commands.
type Terminal struct {
	History []HistoryEntry

	env        Environment
	prompt     string
	maxHistory int
	version    string
	now        func() time.Time
}

type Option func(*Terminal)

func WithPrompt(p string) Option { return func(t *Terminal) { t.prompt = p } }

// WithMaxHistory caps the number of kept lines; older lines are dropped first.
func WithMaxHistory(n int) Option {
	return func(t *Terminal) {
		if n > 0 {
			t.maxHistory = n
		}
	}
}

func WithVersion(v string) Option { return func(t *Terminal) { t.version = v } }

// WithClock replaces time.Now for the time command.
func WithClock(now func() time.Time) Option { return func(t *Terminal) { t.now = now } }

// New returns a terminal showing the welcome banner.
func New(env Environment, opts ...Option) *Terminal {
	t := &Terminal{
		env:        env,
		prompt:     DefaultPrompt,
		maxHistory: DefaultMaxHistory,
		version:    model.Version,
		now:        time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	t.banner()
	return t
}

func (t *Terminal) banner() {
	t.respond(fmt.Sprintf("Welcome to glob1env v%s", t.version))
	t.respond("Type 'help' for a list of commands")
	t.respond("")
}

// Process runs one command line. Empty input is ignored.
func (t *Terminal) Process(ctx context.Context, input string) Result {
	command := strings.TrimSpace(input)
	if command == "" {
		return Result{}
	}
	t.History = append(t.History, HistoryEntry{Text: t.prompt + command, IsCommand: true})

	var res Result
	name, rest, _ := strings.Cut(command, " ")
	rest = strings.TrimSpace(rest)

	switch {
	case command == "help":
		t.help()
	case command == "clear":
		t.History = nil
	case command == "exit":
		t.respond("Goodbye!")
		res.Quit = true
	case command == "time":
		t.respond("Current time: " + t.now().Format(timeLayout))
	case command == "params":
		res.Page = PageSettings
	case command == "env":
		res.Page = PageEnvironment
	case command == "minimize":
		t.respond("Minimizing application...")
		res.Minimize = true
	case name == "open":
		if rest == "" {
			t.respond("Nothing to open")
		} else {
			t.respond(fmt.Sprintf("Nothing to open for '%s'", rest))
		}
	case name == "echo":
		t.respond(rest)
	case name == "env":
		t.envCommand(ctx, strings.Fields(rest))
	default:
		t.respond(fmt.Sprintf("Unknown command: '%s'", command))
		t.respond("Type 'help' for a list of available commands")
	}

	t.trim()
	return res
}

func (t *Terminal) help() {
	t.respond("Available commands:")
	t.respond("  help  - Display this help message")
	t.respond("  clear - Clear terminal history")
	t.respond("  exit  - Exit the application")
	t.respond("  echo <text> - Echo text back to terminal")
	t.respond("  time  - Display current date and time")
	t.respond("  minimize - Suspend to the shell")
	t.respond("  params  - Go to parameters")
	t.clickable("  "+model.IconClickable+" Open Settings", PageSettings)
	t.respond("  env  - Go to environment")
	t.envUsage()
	t.clickable("  "+model.IconClickable+" Open Environment", PageEnvironment)
}

func (t *Terminal) envUsage() {
	t.respond("    rd <path>            - Read a file")
	t.respond("    wr <path> <content>  - Write to a file")
	t.respond("    ls [path]            - List a directory")
	t.respond("    run <path>           - Run a script (once per session)")
	t.respond("    log                  - Show script output")
}

func (t *Terminal) envCommand(ctx context.Context, args []string) {
	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}
	switch {
	case sub == "rd" && len(args) == 2:
		content, err := t.env.Read(args[1])
		if err != nil {
			t.respond(err.Error())
			return
		}
		for _, line := range model.SplitLines(content) {
			t.respond(line)
		}
	case sub == "wr" && len(args) >= 3:
		p := args[1]
		if err := t.env.Write(p, strings.Join(args[2:], " ")); err != nil {
			t.respond(fmt.Sprintf("Error writing `%s`: %v", p, err))
			return
		}
		t.respond(fmt.Sprintf("Wrote to `%s`", p))
	case sub == "ls" && len(args) <= 2:
		p := "/"
		if len(args) == 2 {
			p = args[1]
		}
		entries, err := t.env.ListPath(p)
		if err != nil {
			t.respond(err.Error())
			return
		}
		if len(entries) == 0 {
			t.respond("(empty)")
		}
		for _, e := range entries {
			name := e.Name
			if e.IsDir() {
				name += "/"
			}
			t.respond(model.IconFor(e) + " " + name)
		}
	case sub == "run" && len(args) == 2:
		if model.DocumentOf(args[1]) != model.DocumentScript {
			t.respond(fmt.Sprintf("Not a script: `%s` (expected *%s)", args[1], model.ScriptSuffix))
			return
		}
		if t.env.Execute(ctx, args[1]) {
			t.respond(fmt.Sprintf("Started `%s`", args[1]))
		} else {
			t.respond("A script already ran in this session")
		}
	case sub == "log" && len(args) == 1:
		msgs := t.env.Messages()
		if len(msgs) == 0 {
			t.respond("(no output)")
		}
		for _, m := range msgs {
			t.respond(m.String())
		}
	default:
		t.respond("  env  - Go to environment")
		t.envUsage()
	}
}

func (t *Terminal) respond(text string) {
	t.History = append(t.History, HistoryEntry{Text: text})
}

func (t *Terminal) clickable(text string, page Page) {
	t.History = append(t.History, HistoryEntry{Text: text, Action: page})
}

func (t *Terminal) trim() {
	if over := len(t.History) - t.maxHistory; over > 0 {
		t.History = append([]HistoryEntry(nil), t.History[over:]...)
	}
}
