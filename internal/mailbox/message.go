// Package mailbox carries protocol messages from a script worker to the
// single-threaded redraw loop.
//
// Messages travel as typed values. The tagged-prefix wire form
// ("[PWD] service::secret", "[BTN] text", "[b] text", plain text) is produced
// by Message.String and parsed by Decode; it is the form that is displayed,
// de-duplicated and served over the web API.
package mailbox

import (
	"strings"
)

// Kind identifies a protocol message.
type Kind int

const (
	KindLog      Kind = iota // plain log line
	KindButton               // "[BTN] text", highlighted label
	KindMarker               // "[b] text", displayed verbatim
	KindPassword             // "[PWD] service::secret", reveal/copy control
)

// Wire prefixes.
const (
	PrefixPassword = "[PWD] "
	PrefixButton   = "[BTN] "
	PrefixMarker   = "[b] "
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindButton:
		return "button"
	case KindMarker:
		return "marker"
	case KindPassword:
		return "password"
	}
	return "unknown"
}

// Message is one protocol message.
type Message struct {
	Kind    Kind
	Text    string // log, button and marker text
	Service string // password only
	Secret  string // password only
}

func Log(text string) Message    { return Message{Kind: KindLog, Text: text} }
func Button(text string) Message { return Message{Kind: KindButton, Text: text} }
func Marker(text string) Message { return Message{Kind: KindMarker, Text: text} }

func Password(service, secret string) Message {
	return Message{Kind: KindPassword, Service: service, Secret: secret}
}

// String returns the wire form.
func (m Message) String() string {
	switch m.Kind {
	case KindButton:
		return PrefixButton + m.Text
	case KindMarker:
		return PrefixMarker + m.Text
	case KindPassword:
		return PrefixPassword + m.Service + "::" + m.Secret
	}
	return m.Text
}

// Decode parses a wire string. Password fields are split on the first "::"
// and trimmed; a missing separator leaves the secret empty. Unprefixed strings
// are plain log lines.
func Decode(s string) Message {
	if rest, ok := strings.CutPrefix(s, PrefixPassword); ok {
		service, secret, _ := strings.Cut(rest, "::")
		return Password(strings.TrimSpace(service), strings.TrimSpace(secret))
	}
	if rest, ok := strings.CutPrefix(s, PrefixButton); ok {
		return Button(rest)
	}
	if rest, ok := strings.CutPrefix(s, PrefixMarker); ok {
		return Marker(rest)
	}
	return Log(s)
}
