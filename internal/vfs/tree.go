package vfs

import (
	"glob1env/internal/model"
)

// Tree is the in-memory virtual filesystem. The root directory is implicit and
// unnamed; Tree owns its children. Everything returned to callers is a clone,
// so no live reference into the tree ever escapes.
type Tree struct {
	root []model.Entry
}

// NewTree returns a tree whose root holds the given entries (cloned).
func NewTree(entries ...model.Entry) *Tree {
	return &Tree{root: model.CloneEntries(entries)}
}

// Clone deep-copies the whole tree.
func (t *Tree) Clone() *Tree {
	return &Tree{root: model.CloneEntries(t.root)}
}

// Resolve returns a snapshot of the directory at p. ok is true and the entry is
// nil when p denotes the root.
func (t *Tree) Resolve(p string) (entry *model.Entry, ok bool) {
	parts := SplitPath(p)
	if len(parts) == 0 {
		return nil, true
	}
	dir := findDirectory(t.root, parts)
	if dir == nil {
		return nil, false
	}
	c := dir.Clone()
	return &c, true
}

// List returns the children of the directory at p in insertion order.
func (t *Tree) List(p string) ([]model.Entry, error) {
	parts := SplitPath(p)
	if len(parts) == 0 {
		return cloneList(t.root), nil
	}
	dir := findDirectory(t.root, parts)
	if dir == nil {
		return nil, dirNotFound("ls", p)
	}
	return cloneList(dir.Children), nil
}

// Read returns the content of the file at p.
func (t *Tree) Read(p string) (string, error) {
	container, name, err := t.parent("read", p)
	if err != nil {
		return "", err
	}
	f := findFile(*container, name)
	if f == nil {
		return "", fileNotFound("read", p)
	}
	return f.Content, nil
}

// Write replaces the content of the file at p, or appends a new non-system
// file to its parent directory when none exists.
func (t *Tree) Write(p, content string) error {
	container, name, err := t.parent("write", p)
	if err != nil {
		return err
	}
	if f := findFile(*container, name); f != nil {
		f.Content = content
		return nil
	}
	*container = append(*container, model.NewFile(name, content, false))
	return nil
}

// Insert appends entry as the last child of the directory at p. p must be
// absolute; "/" is the root and needs no resolution.
func (t *Tree) Insert(p string, entry model.Entry) error {
	if !IsAbs(p) {
		return &PathError{Op: "insert", Path: p, Err: ErrInvalidPath}
	}
	parts := SplitPath(p)
	if len(parts) == 0 {
		t.root = append(t.root, entry.Clone())
		return nil
	}
	dir := findDirectory(t.root, parts)
	if dir == nil {
		return dirNotFound("insert", p)
	}
	dir.Children = append(dir.Children, entry.Clone())
	return nil
}

// parent splits p into its parent directory's child list and the final name.
func (t *Tree) parent(op, p string) (*[]model.Entry, string, error) {
	parts := SplitPath(p)
	if len(parts) == 0 {
		return nil, "", &PathError{Op: op, Path: p, Err: ErrEmptyPath}
	}
	dirParts, name := parts[:len(parts)-1], parts[len(parts)-1]
	if len(dirParts) == 0 {
		return &t.root, name, nil
	}
	dir := findDirectory(t.root, dirParts)
	if dir == nil {
		return nil, "", dirNotFound(op, p)
	}
	return &dir.Children, name, nil
}

// cloneList is CloneEntries that never returns nil, so an empty directory
// lists as an empty slice.
func cloneList(entries []model.Entry) []model.Entry {
	out := model.CloneEntries(entries)
	if out == nil {
		out = []model.Entry{}
	}
	return out
}
