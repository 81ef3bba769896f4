package ripcurrent

import "reflect"

// Pass returns a block that echoes every input message straight to the
// output of the same type: LHS == RHS == types.
func Pass(types TypeSet) *Block {
	b := Define("Pass<"+types.describe()+">", types, types)
	for _, t := range types {
		registerPassthrough(b, t)
	}
	return b
}

// registerPassthrough wires a reflect-driven identity handler for t,
// avoiding the need for a generic type parameter at the call site (the
// caller only has a reflect.Type, not a compile-time type).
func registerPassthrough(b *Block, t reflect.Type) {
	b.handlers[t] = func(ctx *Context, msg interface{}) error {
		return ctx.Emit(msg)
	}
}

// Drop returns a block that consumes every input message of the given types
// and emits nothing: LHS == types, RHS == none.
func Drop(types TypeSet) *Block {
	b := Define("Drop<"+types.describe()+">", types, None())
	for _, t := range types {
		b.handlers[t] = func(ctx *Context, msg interface{}) error { return nil }
	}
	return b
}
