package mailbox

import (
	"context"
)

// DefaultCapacity is the queue length used when none is configured.
const DefaultCapacity = 256

// Sender is the producing side of a Bridge.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Bridge is an ordered multi-producer, single-consumer queue of messages.
// Producers block when it is full; the consumer never blocks.
type Bridge struct {
	ch chan Message
}

// NewBridge returns a bridge that holds up to capacity undrained messages.
func NewBridge(capacity int) *Bridge {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bridge{ch: make(chan Message, capacity)}
}

// Send enqueues m, waiting for room until ctx is done. Nothing is queued once
// ctx has ended.
func (b *Bridge) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case b.ch <- m:
		return nil
	default:
	}
	select {
	case b.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain returns every message currently queued, oldest first. It returns
// immediately, with nil, when the queue is empty.
func (b *Bridge) Drain() []Message {
	var out []Message
	for {
		select {
		case m := <-b.ch:
			out = append(out, m)
		default:
			return out
		}
	}
}

// Len is the number of queued messages.
func (b *Bridge) Len() int { return len(b.ch) }
