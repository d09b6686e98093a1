package vfs

import (
	"encoding/json"
	"fmt"
	"strings"

	"glob1env/internal/model"
)

// MarshalJSON encodes the tree as the list of root entries.
func (t *Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(cloneList(t.root))
}

// Report renders the tree as an indented listing, one entry per line, with
// a summary line at the end.
func (t *Tree) Report() string {
	var b strings.Builder
	b.WriteString("/\n")
	var dirs, files int
	var walk func(entries []model.Entry, indent string)
	walk = func(entries []model.Entry, indent string) {
		for i, e := range entries {
			branch, next := "├── ", "│   "
			if i == len(entries)-1 {
				branch, next = "└── ", "    "
			}
			name := e.Name
			if e.IsDir() {
				name += "/"
				dirs++
			} else {
				files++
			}
			line := indent + branch + model.IconFor(e) + " " + name
			if e.System {
				line += " (system)"
			}
			if e.IsFile() {
				line += fmt.Sprintf(" [%d bytes]", len(e.Content))
			}
			b.WriteString(line + "\n")
			if e.IsDir() {
				walk(e.Children, indent+next)
			}
		}
	}
	walk(t.root, "")
	fmt.Fprintf(&b, "\n%d directories, %d files\n", dirs, files)
	return b.String()
}
