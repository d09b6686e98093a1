package vfs

import (
	"strings"

	"glob1env/internal/model"
)

// SplitPath normalizes a path into its name components.
// The root marker, "." and empty segments are discarded, so "/", "" and "/./"
// all yield no components (the root).
func SplitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s == "" || s == "." {
			continue
		}
		parts = append(parts, s)
	}
	return parts
}

// IsAbs reports whether p starts at the root.
func IsAbs(p string) bool {
	return strings.HasPrefix(p, "/")
}

// Join appends a segment to a directory path with a single separator.
func Join(dir, segment string) string {
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir + segment
}

// findDirectory walks parts from entries and returns the directory they name.
// At each level the first directory with a matching name is taken; files with
// the same name are skipped. No parts means the root, which has no node, so the
// result is nil like a failed lookup: callers special-case the root.
func findDirectory(entries []model.Entry, parts []string) *model.Entry {
	if len(parts) == 0 {
		return nil
	}
	for i := range entries {
		e := &entries[i]
		if !e.IsDir() || e.Name != parts[0] {
			continue
		}
		if len(parts) == 1 {
			return e
		}
		return findDirectory(e.Children, parts[1:])
	}
	return nil
}

// findFile returns the first file named name among entries.
func findFile(entries []model.Entry, name string) *model.Entry {
	for i := range entries {
		if entries[i].IsFile() && entries[i].Name == name {
			return &entries[i]
		}
	}
	return nil
}
