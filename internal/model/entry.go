package model

import (
	"fmt"
	"strings"
)

// EntryKind tells a file from a directory.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	}
	return fmt.Sprintf("EntryKind(%d)", int(k))
}

// MarshalText encodes the kind as "file" or "directory" (JSON and YAML).
func (k EntryKind) MarshalText() ([]byte, error) {
	switch k {
	case KindFile, KindDirectory:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown entry kind %d", int(k))
}

// UnmarshalText accepts "file", "directory" and the short forms "f" / "dir".
func (k *EntryKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "file", "f":
		*k = KindFile
	case "directory", "dir", "d":
		*k = KindDirectory
	default:
		return fmt.Errorf("unknown entry kind %q", string(b))
	}
	return nil
}

// Entry is a node of the virtual tree: a file or a directory.
type Entry struct {
	Kind     EntryKind `json:"kind" yaml:"kind"`
	Name     string    `json:"name" yaml:"name"`
	Content  string    `json:"content,omitempty" yaml:"content,omitempty"`   // File body
	Children []Entry   `json:"children,omitempty" yaml:"children,omitempty"` // Directory content, display order
	System   bool      `json:"system,omitempty" yaml:"system,omitempty"`     // Built-in entry, display only
}

// NewFile returns a file entry.
func NewFile(name, content string, system bool) Entry {
	return Entry{Kind: KindFile, Name: name, Content: content, System: system}
}

// NewDirectory returns a directory entry holding children in the given order.
func NewDirectory(name string, system bool, children ...Entry) Entry {
	return Entry{Kind: KindDirectory, Name: name, Children: children, System: system}
}

func (e Entry) IsDir() bool  { return e.Kind == KindDirectory }
func (e Entry) IsFile() bool { return e.Kind == KindFile }

// Clone returns a deep copy of the entry. The copy shares no slice with e.
func (e Entry) Clone() Entry {
	c := e
	c.Children = CloneEntries(e.Children)
	return c
}

// CloneEntries deep-copies a sibling list, keeping nil as nil.
func CloneEntries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

// Document classifies a file by its name suffix.
type Document int

const (
	DocumentText       Document = iota
	DocumentCredential          // *.pwd
	DocumentScript              // *.nwtz!
	DocumentMarkdown            // *.md
)

const (
	CredentialSuffix = ".pwd"
	ScriptSuffix     = ".nwtz!"
	MarkdownSuffix   = ".md"
)

// DocumentOf returns how a file with this name is displayed.
func DocumentOf(name string) Document {
	switch {
	case strings.HasSuffix(name, CredentialSuffix):
		return DocumentCredential
	case strings.HasSuffix(name, ScriptSuffix):
		return DocumentScript
	case strings.HasSuffix(name, MarkdownSuffix):
		return DocumentMarkdown
	}
	return DocumentText
}
