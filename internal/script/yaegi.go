package script

import (
	"context"
	"fmt"
	"go/token"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
)

// hostImportPath is the package the bindings are exported under. Scripts never
// import it themselves: a generated prelude re-declares every binding under its
// own name in the script's package.
const hostImportPath = "glob1env/host"

// Yaegi evaluates scripts as Go statements with the traefik/yaegi interpreter.
// No standard library is loaded, so a script only sees the host bindings.
//
//	log("a", 1)
//	ui.password("GLOBAL", "secret")
type Yaegi struct {
	stdout   io.Writer
	natives  map[string]Native
	objects  map[string]Object
	compiled bool
}

// NewYaegi returns an evaluator. Output of the println builtins goes to
// stdout; nil discards it.
func NewYaegi(stdout io.Writer) *Yaegi {
	if stdout == nil {
		stdout = io.Discard
	}
	return &Yaegi{
		stdout:  stdout,
		natives: make(map[string]Native),
		objects: make(map[string]Object),
	}
}

// YaegiFactory builds one Yaegi evaluator per run.
func YaegiFactory(stdout io.Writer) Factory {
	return func() (Evaluator, error) {
		return NewYaegi(stdout), nil
	}
}

func (y *Yaegi) Define(name string, value any) error {
	if y.compiled {
		return fmt.Errorf("define %s: evaluator already compiled", name)
	}
	if !token.IsIdentifier(name) {
		return fmt.Errorf("define %q: not an identifier", name)
	}
	v, err := validateBinding(name, value)
	if err != nil {
		return err
	}
	switch b := v.(type) {
	case Native:
		delete(y.objects, name)
		y.natives[name] = b
	case Object:
		for m := range b {
			if !token.IsIdentifier(m) {
				return fmt.Errorf("define %s.%q: not an identifier", name, m)
			}
		}
		delete(y.natives, name)
		y.objects[name] = b
	}
	return nil
}

type yaegiProgram struct {
	interp *interp.Interpreter
	prog   *interp.Program
}

func (y *Yaegi) Compile(src string) (Program, error) {
	y.compiled = true

	i := interp.New(interp.Options{Stdout: y.stdout, Stderr: y.stdout})
	if err := i.Use(y.exports()); err != nil {
		return nil, fmt.Errorf("load host bindings: %w", err)
	}
	if prelude := y.prelude(); prelude != "" {
		if _, err := i.Eval(prelude); err != nil {
			return nil, fmt.Errorf("install host bindings: %w", err)
		}
	}

	prog, err := i.Compile(src)
	if err != nil {
		return nil, err
	}
	return &yaegiProgram{interp: i, prog: prog}, nil
}

func (y *Yaegi) Evaluate(ctx context.Context, p Program) error {
	yp, ok := p.(*yaegiProgram)
	if !ok || yp == nil {
		return fmt.Errorf("evaluate: foreign program %T", p)
	}

	// The interpreter stops its own goroutine when ctx ends; panics come back
	// as interp.Panic errors.
	_, err := yp.interp.ExecuteWithContext(ctx, yp.prog)
	return err
}

func nativeSymbol(name string) string           { return "N_" + name }
func methodSymbol(object, method string) string { return "O_" + object + "_" + method }

// exports publishes every binding as a symbol of hostImportPath.
func (y *Yaegi) exports() interp.Exports {
	syms := make(map[string]reflect.Value)
	for name, fn := range y.natives {
		syms[nativeSymbol(name)] = reflect.ValueOf((func(...any))(fn))
	}
	for name, obj := range y.objects {
		for m, fn := range obj {
			syms[methodSymbol(name, m)] = reflect.ValueOf((func(...any))(fn))
		}
	}
	return interp.Exports{
		hostImportPath + "/host": syms,
	}
}

// prelude declares the bindings in the script's package: natives become
// package variables, objects become values of a generated type whose methods
// call the exported symbols.
func (y *Yaegi) prelude() string {
	if len(y.natives) == 0 && len(y.objects) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "import host %q\n\n", hostImportPath)

	for _, name := range sortedKeys(y.natives) {
		fmt.Fprintf(&b, "var %s = host.%s\n", name, nativeSymbol(name))
	}
	for _, name := range sortedKeys(y.objects) {
		typ := "host_" + name
		fmt.Fprintf(&b, "\ntype %s struct{}\n\n", typ)
		for _, m := range sortedKeys(y.objects[name]) {
			fmt.Fprintf(&b, "func (%s) %s(args ...interface{}) { host.%s(args...) }\n", typ, m, methodSymbol(name, m))
		}
		fmt.Fprintf(&b, "\nvar %s %s\n", name, typ)
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
