package ripcurrent

import (
	"fmt"
	"sync"

	"github.com/robertkrimen/otto"
)

// Script returns a Pass<T>-shaped built-in block (LHS == RHS == {T}) whose
// handler evaluates expr per message via the otto pure-Go JavaScript
// interpreter, exposing the message's fields on a JS object named "input".
// If expr evaluates truthy, the message is emitted unchanged; otherwise it
// is dropped. Guarded by a mutex, since one otto.Otto VM is not safe for
// concurrent Eval calls.
func Script[T any](expr string) *Block {
	t := TypeOf[T]()
	set := Types(t)
	b := Define(fmt.Sprintf("Script<%s>(%s)", t, expr), set, set)

	vm := otto.New()
	var mu sync.Mutex

	b.handlers[t] = func(ctx *Context, msg interface{}) error {
		mu.Lock()
		defer mu.Unlock()

		if err := vm.Set("input", msg); err != nil {
			return fmt.Errorf("ripcurrent: Script<%s>: bind input: %w", t, err)
		}
		val, err := vm.Run(expr)
		if err != nil {
			return fmt.Errorf("ripcurrent: Script<%s>: eval %q: %w", t, expr, err)
		}
		keep, err := val.ToBoolean()
		if err != nil {
			return fmt.Errorf("ripcurrent: Script<%s>: result not convertible to bool: %w", t, err)
		}
		if !keep {
			return nil
		}
		return ctx.Emit(msg)
	}
	return b
}
