package mailbox

// Buffer is the persistent display history. It only grows, and a message whose
// wire form was already recorded is dropped.
type Buffer struct {
	msgs []Message
	seen map[string]struct{}
}

func NewBuffer() *Buffer {
	return &Buffer{seen: make(map[string]struct{})}
}

// Append records m unless an identical message is already present.
func (b *Buffer) Append(m Message) bool {
	key := m.String()
	if _, ok := b.seen[key]; ok {
		return false
	}
	b.seen[key] = struct{}{}
	b.msgs = append(b.msgs, m)
	return true
}

// AppendAll records msgs in order and returns how many were new.
func (b *Buffer) AppendAll(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if b.Append(m) {
			n++
		}
	}
	return n
}

// Messages returns a copy of the history.
func (b *Buffer) Messages() []Message {
	out := make([]Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

// Since returns a copy of the messages recorded after the first n.
func (b *Buffer) Since(n int) []Message {
	if n < 0 {
		n = 0
	}
	if n >= len(b.msgs) {
		return nil
	}
	out := make([]Message, len(b.msgs)-n)
	copy(out, b.msgs[n:])
	return out
}

// Lines returns the wire form of every message.
func (b *Buffer) Lines() []string {
	out := make([]string, len(b.msgs))
	for i, m := range b.msgs {
		out[i] = m.String()
	}
	return out
}

func (b *Buffer) Len() int { return len(b.msgs) }
