package mailbox

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_WireForm(t *testing.T) {
	assert.Equal(t, "hello", Log("hello").String())
	assert.Equal(t, "[BTN] ok", Button("ok").String())
	assert.Equal(t, "[b] go", Marker("go").String())
	assert.Equal(t, "[PWD] GLOBAL::s3cret", Password("GLOBAL", "s3cret").String())
}

func TestDecode(t *testing.T) {
	assert.Equal(t, Password("Google", "SuperPassword"), Decode("[PWD]  Google :: SuperPassword "))
	assert.Equal(t, Password("NoSep", ""), Decode("[PWD] NoSep"))
	assert.Equal(t, Button("Click"), Decode("[BTN] Click"))
	assert.Equal(t, Marker("x"), Decode("[b] x"))
	assert.Equal(t, Log("[BTN]no space"), Decode("[BTN]no space"))
	assert.Equal(t, Log("Erreur chargement a: b"), Decode("Erreur chargement a: b"))
}

func TestBridge_FIFO(t *testing.T) {
	b := NewBridge(8)
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, b.Send(ctx, Log(s)))
	}

	got := b.Drain()
	assert.Equal(t, []Message{Log("a"), Log("b"), Log("c")}, got)
	assert.Nil(t, b.Drain())
}

func TestBridge_DrainEmptyDoesNotBlock(t *testing.T) {
	b := NewBridge(1)
	done := make(chan struct{})
	go func() {
		b.Drain()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Drain blocked on an empty bridge")
	}
}

func TestBridge_SendBlocksWhenFullUntilCancelled(t *testing.T) {
	b := NewBridge(1)
	require.NoError(t, b.Send(context.Background(), Log("first")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Send(ctx, Log("second"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, b.Len())
}

func TestBridge_SendAfterCancelQueuesNothing(t *testing.T) {
	b := NewBridge(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Send(ctx, Log("late")), context.Canceled)
	assert.Equal(t, 0, b.Len())
}

func TestBridge_SendResumesAfterDrain(t *testing.T) {
	b := NewBridge(1)
	ctx := context.Background()
	require.NoError(t, b.Send(ctx, Log("1")))

	sent := make(chan error, 1)
	go func() { sent <- b.Send(ctx, Log("2")) }()

	var got []Message
	deadline := time.After(time.Second)
	for len(got) < 2 {
		got = append(got, b.Drain()...)
		select {
		case <-deadline:
			t.Fatalf("only drained %v", got)
		default:
		}
	}
	require.NoError(t, <-sent)
	assert.Equal(t, []Message{Log("1"), Log("2")}, got)
}

func TestBridge_ManyProducersKeepPerProducerOrder(t *testing.T) {
	b := NewBridge(4)
	ctx := context.Background()
	const producers, perProducer = 4, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = b.Send(ctx, Log(fmt.Sprintf("%d:%d", p, i)))
			}
		}(p)
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	var got []Message
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
		}
		got = append(got, b.Drain()...)
	}
	got = append(got, b.Drain()...)
	require.Len(t, got, producers*perProducer)

	next := make([]int, producers)
	for _, m := range got {
		var p, i int
		_, err := fmt.Sscanf(m.Text, "%d:%d", &p, &i)
		require.NoError(t, err)
		assert.Equal(t, next[p], i, "producer %d out of order", p)
		next[p]++
	}
}

func TestBuffer_Dedup(t *testing.T) {
	buf := NewBuffer()
	assert.True(t, buf.Append(Log("same")))
	assert.False(t, buf.Append(Log("same")))
	assert.True(t, buf.Append(Button("same")))
	assert.False(t, buf.Append(Decode("[BTN] same")))

	assert.Equal(t, 2, buf.Len())
	assert.Equal(t, []string{"same", "[BTN] same"}, buf.Lines())
}

func TestBuffer_AppendAllAndSince(t *testing.T) {
	buf := NewBuffer()
	n := buf.AppendAll([]Message{Log("a"), Log("b"), Log("a"), Log("c")})
	assert.Equal(t, 3, n)
	assert.Equal(t, []Message{Log("b"), Log("c")}, buf.Since(1))
	assert.Nil(t, buf.Since(3))

	msgs := buf.Messages()
	msgs[0] = Log("mutated")
	assert.Equal(t, "a", buf.Messages()[0].Text)
}
