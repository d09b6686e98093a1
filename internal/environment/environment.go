// Package environment aggregates the virtual filesystem, the browsing cursor
// and the script run of one session. An Environment is owned by a single
// presentation loop and is not safe for concurrent use; the only concurrency
// is the script worker, which talks back through the mailbox.
package environment

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"glob1env/internal/mailbox"
	"glob1env/internal/model"
	"glob1env/internal/script"
	"glob1env/internal/vfs"
)

// Root is the cursor of a fresh Environment.
const Root = "/"

// Options configures New. The zero value seeds the default tree and evaluates
// scripts with yaegi.
type Options struct {
	Tree      *vfs.Tree
	Evaluator script.Factory
	Capacity  int
	Timeout   time.Duration
	Logger    *zap.Logger
}

type Environment struct {
	// CurrentPath is the browsing cursor, always absolute.
	CurrentPath string

	tree       *vfs.Tree
	bridge     *mailbox.Bridge
	buffer     *mailbox.Buffer
	controller *script.Controller
	logger     *zap.Logger
}

// New builds an Environment. Without a tree in opts it seeds the built-in one.
func New(opts Options) (*Environment, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tree := opts.Tree
	if tree == nil {
		seeded, err := vfs.Seed()
		if err != nil {
			return nil, err
		}
		tree = seeded
	}
	factory := opts.Evaluator
	if factory == nil {
		factory = script.YaegiFactory(nil)
	}

	bridge := mailbox.NewBridge(opts.Capacity)
	env := &Environment{
		CurrentPath: Root,
		tree:        tree,
		bridge:      bridge,
		buffer:      mailbox.NewBuffer(),
		logger:      logger,
		controller: script.NewController(factory, bridge,
			script.WithTimeout(opts.Timeout),
			script.WithLogger(logger.Named("script")),
		),
	}
	return env, nil
}

// List returns the entries under the cursor.
func (e *Environment) List() ([]model.Entry, error) {
	return e.tree.List(e.CurrentPath)
}

// ListPath returns the entries of the directory at p.
func (e *Environment) ListPath(p string) ([]model.Entry, error) {
	return e.tree.List(p)
}

func (e *Environment) Read(p string) (string, error) {
	return e.tree.Read(p)
}

func (e *Environment) Write(p, content string) error {
	if err := e.tree.Write(p, content); err != nil {
		return err
	}
	e.logger.Debug("File written", zap.String("path", p), zap.Int("bytes", len(content)))
	return nil
}

func (e *Environment) Insert(p string, entry model.Entry) error {
	if err := e.tree.Insert(p, entry); err != nil {
		return err
	}
	e.logger.Debug("Entry inserted", zap.String("path", p), zap.String("name", entry.Name), zap.Stringer("kind", entry.Kind))
	return nil
}

// Resolve returns a snapshot of the directory at p; see vfs.Tree.Resolve.
func (e *Environment) Resolve(p string) (*model.Entry, bool) {
	return e.tree.Resolve(p)
}

// Snapshot returns a deep copy of the whole tree.
func (e *Environment) Snapshot() *vfs.Tree {
	return e.tree.Clone()
}

// PathOf is the absolute path of name under the cursor.
func (e *Environment) PathOf(name string) string {
	return vfs.Join(e.CurrentPath, name)
}

// Push descends into segment.
func (e *Environment) Push(segment string) {
	if segment == "" {
		return
	}
	e.CurrentPath = vfs.Join(e.CurrentPath, segment)
}

// Ascend moves the cursor to its parent. It reports false, leaving the cursor
// alone, when already at the root.
func (e *Environment) Ascend() bool {
	parts := vfs.SplitPath(e.CurrentPath)
	if len(parts) == 0 {
		e.CurrentPath = Root
		return false
	}
	e.CurrentPath = Root + strings.Join(parts[:len(parts)-1], "/")
	return true
}

// Cd moves the cursor to the absolute path p. The target need not exist.
func (e *Environment) Cd(p string) error {
	if !vfs.IsAbs(p) {
		return &vfs.PathError{Op: "cd", Path: p, Err: vfs.ErrInvalidPath}
	}
	e.CurrentPath = Root + strings.Join(vfs.SplitPath(p), "/")
	return nil
}

// Execute starts the script at p on a snapshot of the tree. Only the first
// call of an Environment's lifetime starts anything; later calls report false.
func (e *Environment) Execute(ctx context.Context, p string) bool {
	if e.controller.State() != script.Idle {
		return false
	}
	return e.controller.Start(ctx, e.tree.Clone(), p)
}

// ExecutionState reports where the script run is.
func (e *Environment) ExecutionState() script.State {
	return e.controller.State()
}

// Done is closed when the script run has completed.
func (e *Environment) Done() <-chan struct{} {
	return e.controller.Done()
}

// Wait blocks until the script run completes or ctx ends.
func (e *Environment) Wait(ctx context.Context) error {
	return e.controller.Wait(ctx)
}

// Poll moves everything queued by the worker into the display buffer and
// returns how many new messages were recorded. It never blocks; call it once
// per frame.
func (e *Environment) Poll() int {
	return e.buffer.AppendAll(e.bridge.Drain())
}

// Messages returns the display buffer.
func (e *Environment) Messages() []mailbox.Message {
	return e.buffer.Messages()
}

// MessagesSince returns the buffered messages after the first n.
func (e *Environment) MessagesSince(n int) []mailbox.Message {
	return e.buffer.Since(n)
}

// MessageCount is the display buffer length.
func (e *Environment) MessageCount() int {
	return e.buffer.Len()
}
