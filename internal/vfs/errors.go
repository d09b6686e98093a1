package vfs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPath is returned when an absolute path is required.
	ErrInvalidPath = errors.New("path must be absolute (start with '/')")
	// ErrEmptyPath is returned when a path has no components.
	ErrEmptyPath = errors.New("empty path")
	// ErrNotFound is returned when a directory or file is missing.
	ErrNotFound = errors.New("not found")
)

// PathError records a failed tree operation.
type PathError struct {
	Op   string // "ls", "read", "write", "insert", "cd"
	Path string
	What string // "directory" or "file", empty when not applicable
	Err  error
}

func (e *PathError) Error() string {
	if e.What != "" {
		return fmt.Sprintf("%s '%s': %s %s", e.Op, e.Path, e.What, e.Err)
	}
	return fmt.Sprintf("%s '%s': %s", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

func dirNotFound(op, path string) error {
	return &PathError{Op: op, Path: path, What: "directory", Err: ErrNotFound}
}

func fileNotFound(op, path string) error {
	return &PathError{Op: op, Path: path, What: "file", Err: ErrNotFound}
}
