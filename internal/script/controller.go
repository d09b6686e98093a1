package script

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"glob1env/internal/mailbox"
)

// State is the lifecycle of a Controller. It only moves forward:
// Idle → Running → Completed.
type State int32

const (
	Idle State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Reader gives the worker access to script sources.
type Reader interface {
	Read(path string) (string, error)
}

// diagnosticTimeout bounds the send of a failure message once the run context
// is over.
const diagnosticTimeout = time.Second

// Controller starts at most one script run for its whole lifetime. A completed
// or failed run is never restarted.
type Controller struct {
	newEvaluator Factory
	sender       mailbox.Sender
	logger       *zap.Logger
	timeout      time.Duration

	state atomic.Int32
	runID atomic.Value // string
	done  chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout bounds a run. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// NewController returns an Idle controller forwarding script output to sender.
func NewController(factory Factory, sender mailbox.Sender, opts ...Option) *Controller {
	c := &Controller{
		newEvaluator: factory,
		sender:       sender,
		logger:       zap.NewNop(),
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return State(c.state.Load()) }

// Done is closed once the run has completed. It never closes if no run starts.
func (c *Controller) Done() <-chan struct{} { return c.done }

// RunID identifies the run in logs; empty before Start.
func (c *Controller) RunID() string {
	id, _ := c.runID.Load().(string)
	return id
}

// Start runs the script at p in a new goroutine and returns immediately. It
// reports false, doing nothing, unless the controller is Idle. r must not be
// mutated concurrently; callers hand in a snapshot.
func (c *Controller) Start(ctx context.Context, r Reader, p string) bool {
	if !c.state.CompareAndSwap(int32(Idle), int32(Running)) {
		c.logger.Debug("Script run ignored", zap.String("path", p), zap.Stringer("state", c.State()))
		return false
	}
	id := uuid.NewString()
	c.runID.Store(id)

	logger := c.logger.With(zap.String("run", id), zap.String("path", p))
	logger.Info("Script run started")
	go c.run(ctx, r, p, logger)
	return true
}

// Wait blocks until the run completes or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) run(parent context.Context, r Reader, p string, logger *zap.Logger) {
	defer close(c.done)
	defer c.state.Store(int32(Completed))

	ctx := parent
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, c.timeout)
		defer cancel()
	}

	// Once sealed, script output is dropped: nothing may follow the final
	// diagnostic or the end of the run.
	var mu sync.Mutex
	sealed := false
	seal := func() {
		mu.Lock()
		sealed = true
		mu.Unlock()
	}
	defer seal()

	send := func(m mailbox.Message) {
		mu.Lock()
		defer mu.Unlock()
		if sealed || ctx.Err() != nil {
			logger.Debug("Late message dropped", zap.Stringer("kind", m.Kind))
			return
		}
		if err := c.sender.Send(ctx, m); err != nil {
			logger.Warn("Message dropped", zap.Stringer("kind", m.Kind), zap.Error(err))
		}
	}
	report := func(m mailbox.Message) {
		seal()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(parent), diagnosticTimeout)
		defer cancel()
		if err := c.sender.Send(dctx, m); err != nil {
			logger.Warn("Diagnostic dropped", zap.String("message", m.String()), zap.Error(err))
		}
	}

	start := time.Now()
	err := c.execute(ctx, r, p, send, report)
	if err != nil {
		logger.Warn("Script run failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	logger.Info("Script run completed", zap.Duration("elapsed", time.Since(start)))
}

func (c *Controller) execute(ctx context.Context, r Reader, p string, send, report func(mailbox.Message)) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", ErrEvaluationFailed, rec)
			report(mailbox.Log(failurePrefix + fmt.Sprintf("panic: %v", rec)))
		}
	}()

	fail := func(cause error) error {
		report(mailbox.Log(failurePrefix + cause.Error()))
		return fmt.Errorf("%w: %w", ErrEvaluationFailed, cause)
	}

	ev, err := c.newEvaluator()
	if err != nil {
		return fail(err)
	}
	if err := installBindings(ev, send); err != nil {
		return fail(err)
	}

	src, err := r.Read(p)
	if err != nil {
		report(mailbox.Log(fmt.Sprintf(loadErrorFormat, path.Base(p), err)))
		return fmt.Errorf("%w: %w", ErrScriptLoadFailed, err)
	}

	prog, err := ev.Compile(src)
	if err != nil {
		return fail(err)
	}
	if err := ev.Evaluate(ctx, prog); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && c.timeout > 0 {
			err = fmt.Errorf("timed out after %s: %w", c.timeout, err)
		}
		return fail(err)
	}
	return nil
}
