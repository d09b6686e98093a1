package script

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"glob1env/internal/mailbox"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeEvaluator runs "programs" written as Go closures over the defined
// bindings.
type fakeEvaluator struct {
	mu         sync.Mutex
	defs       map[string]any
	compileErr error
	run        func(ctx context.Context, defs map[string]any) error
}

func (f *fakeEvaluator) Define(name string, value any) error {
	v, err := validateBinding(name, value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.defs == nil {
		f.defs = make(map[string]any)
	}
	f.defs[name] = v
	return nil
}

func (f *fakeEvaluator) Compile(src string) (Program, error) {
	if f.compileErr != nil {
		return nil, f.compileErr
	}
	return src, nil
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, _ Program) error {
	if f.run == nil {
		return nil
	}
	return f.run(ctx, f.defs)
}

type mapReader map[string]string

func (r mapReader) Read(p string) (string, error) {
	s, ok := r[p]
	if !ok {
		return "", errors.New("file not found")
	}
	return s, nil
}

func factoryOf(ev *fakeEvaluator, calls *atomic.Int32) Factory {
	return func() (Evaluator, error) {
		if calls != nil {
			calls.Add(1)
		}
		return ev, nil
	}
}

func waitDone(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

func texts(msgs []mailbox.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.String())
	}
	return out
}

func TestControllerRunsOnce(t *testing.T) {
	var calls atomic.Int32
	ev := &fakeEvaluator{run: func(_ context.Context, defs map[string]any) error {
		defs[BindingLog].(Native)("hello")
		return nil
	}}
	bridge := mailbox.NewBridge(8)
	c := NewController(factoryOf(ev, &calls), bridge)
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, c.RunID())

	r := mapReader{"/a.nwtz!": "log('hello')"}
	require.True(t, c.Start(context.Background(), r, "/a.nwtz!"))
	assert.False(t, c.Start(context.Background(), r, "/a.nwtz!"))
	waitDone(t, c)

	assert.Equal(t, Completed, c.State())
	assert.NotEmpty(t, c.RunID())
	assert.False(t, c.Start(context.Background(), r, "/a.nwtz!"))
	assert.Equal(t, int32(1), calls.Load())
	assert.Len(t, ev.defs, 3)
	assert.Equal(t, []string{"hello"}, texts(bridge.Drain()))
}

func TestControllerConcurrentStart(t *testing.T) {
	var calls atomic.Int32
	ev := &fakeEvaluator{}
	c := NewController(factoryOf(ev, &calls), mailbox.NewBridge(1))
	r := mapReader{"/s": ""}

	var started atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Start(context.Background(), r, "/s") {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	waitDone(t, c)

	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, int32(1), calls.Load())
}

func TestControllerLoadFailure(t *testing.T) {
	ev := &fakeEvaluator{run: func(context.Context, map[string]any) error {
		t.Error("evaluated a script that failed to load")
		return nil
	}}
	bridge := mailbox.NewBridge(4)
	c := NewController(factoryOf(ev, nil), bridge)

	require.True(t, c.Start(context.Background(), mapReader{}, "/dir/missing.nwtz!"))
	waitDone(t, c)

	msgs := bridge.Drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, mailbox.KindLog, msgs[0].Kind)
	assert.Equal(t, "Erreur chargement missing.nwtz!: file not found", msgs[0].Text)
	assert.Equal(t, Completed, c.State())
}

func TestControllerCompileFailure(t *testing.T) {
	ev := &fakeEvaluator{compileErr: errors.New("unexpected token")}
	bridge := mailbox.NewBridge(4)
	c := NewController(factoryOf(ev, nil), bridge)

	require.True(t, c.Start(context.Background(), mapReader{"/s": "(("}, "/s"))
	waitDone(t, c)

	assert.Equal(t, []string{"Execution failed: unexpected token"}, texts(bridge.Drain()))
}

func TestControllerRuntimeFailureKeepsEarlierOutput(t *testing.T) {
	ev := &fakeEvaluator{run: func(_ context.Context, defs map[string]any) error {
		defs[BindingLog].(Native)("before")
		return errors.New("boom")
	}}
	bridge := mailbox.NewBridge(4)
	c := NewController(factoryOf(ev, nil), bridge)

	require.True(t, c.Start(context.Background(), mapReader{"/s": "x"}, "/s"))
	waitDone(t, c)

	assert.Equal(t, []string{"before", "Execution failed: boom"}, texts(bridge.Drain()))
}

func TestControllerRecoversPanic(t *testing.T) {
	ev := &fakeEvaluator{run: func(context.Context, map[string]any) error {
		panic("kaboom")
	}}
	bridge := mailbox.NewBridge(4)
	c := NewController(factoryOf(ev, nil), bridge)

	require.True(t, c.Start(context.Background(), mapReader{"/s": "x"}, "/s"))
	waitDone(t, c)

	msgs := texts(bridge.Drain())
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0], "Execution failed: "), msgs[0])
	assert.Contains(t, msgs[0], "kaboom")
	assert.Equal(t, Completed, c.State())
}

func TestControllerFactoryFailure(t *testing.T) {
	bridge := mailbox.NewBridge(4)
	c := NewController(func() (Evaluator, error) {
		return nil, errors.New("no engine")
	}, bridge)

	require.True(t, c.Start(context.Background(), mapReader{"/s": "x"}, "/s"))
	waitDone(t, c)

	assert.Equal(t, []string{"Execution failed: no engine"}, texts(bridge.Drain()))
}

func TestControllerTimeout(t *testing.T) {
	ev := &fakeEvaluator{run: func(ctx context.Context, _ map[string]any) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	bridge := mailbox.NewBridge(4)
	c := NewController(factoryOf(ev, nil), bridge, WithTimeout(20*time.Millisecond))

	require.True(t, c.Start(context.Background(), mapReader{"/s": "for {}"}, "/s"))
	waitDone(t, c)

	msgs := texts(bridge.Drain())
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Execution failed: timed out after 20ms")
}

func TestControllerTimeoutStopsScript(t *testing.T) {
	bridge := mailbox.NewBridge(64)
	c := NewController(YaegiFactory(nil), bridge, WithTimeout(50*time.Millisecond))

	src := `i := 0; for { i++; if i%1000000 == 0 { log(i) } }`
	require.True(t, c.Start(context.Background(), mapReader{"/loop.nwtz!": src}, "/loop.nwtz!"))
	waitDone(t, c)
	assert.Equal(t, Completed, c.State())

	msgs := texts(bridge.Drain())
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "Execution failed: timed out after 50ms")

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, bridge.Drain())
}

func TestControllerBindings(t *testing.T) {
	ev := &fakeEvaluator{run: func(_ context.Context, defs map[string]any) error {
		ui := defs[BindingUI].(Object)
		defs[BindingLog].(Native)("a", 1, nil)
		defs[BindingButton].(Native)("mark")
		ui[MethodButton]("Open", "ignored")
		ui[MethodButton]()
		ui[MethodPassword]("GLOBAL", " pw ")
		ui[MethodPassword]("only one")
		ui[MethodPassword]("a", "b", "c")
		return nil
	}}
	bridge := mailbox.NewBridge(16)
	c := NewController(factoryOf(ev, nil), bridge)

	require.True(t, c.Start(context.Background(), mapReader{"/s": "x"}, "/s"))
	waitDone(t, c)

	assert.Equal(t, []string{
		"a",
		"1",
		"null",
		"[b] mark",
		"[BTN] Open",
		"[PWD] GLOBAL:: pw ",
	}, texts(bridge.Drain()))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "State(7)", State(7).String())
}
