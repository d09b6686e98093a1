package script

import (
	"fmt"

	"glob1env/internal/mailbox"
)

// Host binding names.
const (
	BindingLog      = "log"
	BindingButton   = "button"
	BindingUI       = "ui"
	MethodButton    = "button"
	MethodPassword  = "password"
	failurePrefix   = "Execution failed: "
	loadErrorFormat = "Erreur chargement %s: %s"
)

// textOf renders a script value the way it is displayed.
func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	}
	return fmt.Sprint(v)
}

// installBindings defines log, button and ui on ev. Every call forwards
// messages through send, in call order.
func installBindings(ev Evaluator, send func(mailbox.Message)) error {
	logFn := Native(func(args ...any) {
		for _, a := range args {
			send(mailbox.Log(textOf(a)))
		}
	})
	buttonFn := Native(func(args ...any) {
		for _, a := range args {
			send(mailbox.Marker(textOf(a)))
		}
	})
	ui := Object{
		MethodButton: func(args ...any) {
			if len(args) == 0 {
				return
			}
			send(mailbox.Button(textOf(args[0])))
		},
		MethodPassword: func(args ...any) {
			// Any other arity is ignored.
			if len(args) != 2 {
				return
			}
			send(mailbox.Password(textOf(args[0]), textOf(args[1])))
		},
	}

	if err := ev.Define(BindingLog, logFn); err != nil {
		return err
	}
	if err := ev.Define(BindingButton, buttonFn); err != nil {
		return err
	}
	return ev.Define(BindingUI, ui)
}
