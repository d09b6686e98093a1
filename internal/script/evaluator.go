// Package script runs a virtual file's content in a background worker, at most
// once per controller, forwarding what the script emits to a mailbox.
package script

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrScriptLoadFailed wraps a failure to read the script source.
	ErrScriptLoadFailed = errors.New("script load failed")
	// ErrEvaluationFailed wraps compile errors, runtime errors and panics.
	ErrEvaluationFailed = errors.New("evaluation failed")
)

// Native is a host function callable from scripts. Its arguments are whatever
// the script passed; return values are not surfaced to the script.
type Native func(args ...any)

// Object is a host object whose methods are natives, e.g. ui.password.
type Object map[string]Native

// Program is an evaluator-specific compiled script.
type Program any

// Evaluator is the external script-execution collaborator.
type Evaluator interface {
	// Define registers a Native or an Object under name. It must be called
	// before Compile.
	Define(name string, value any) error
	// Compile tokenizes and parses src against the defined bindings.
	Compile(src string) (Program, error)
	// Evaluate runs a compiled program. It returns ctx.Err() when ctx ends
	// first.
	Evaluate(ctx context.Context, p Program) error
}

// Factory builds a fresh, private evaluator for one run.
type Factory func() (Evaluator, error)

// validateBinding checks a Define value.
func validateBinding(name string, value any) (any, error) {
	if name == "" {
		return nil, fmt.Errorf("define: empty name")
	}
	switch v := value.(type) {
	case Native:
		if v == nil {
			return nil, fmt.Errorf("define %s: nil function", name)
		}
		return v, nil
	case func(...any):
		if v == nil {
			return nil, fmt.Errorf("define %s: nil function", name)
		}
		return Native(v), nil
	case Object:
		for m, fn := range v {
			if fn == nil {
				return nil, fmt.Errorf("define %s.%s: nil function", name, m)
			}
		}
		return v, nil
	}
	return nil, fmt.Errorf("define %s: unsupported binding type %T", name, value)
}
