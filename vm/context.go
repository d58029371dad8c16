// ==============================================================================================
// FILE: vm/context.go
// ==============================================================================================
// PACKAGE: vm
// PURPOSE: Context is one call frame (spec.md section 2.7 / 4.3): a code pointer into a TAC
//          program, a local variable map, temporaries, an argument push-down stack, and a
//          back-pointer to the caller. The root context is the global scope and is never
//          destroyed except at machine reset.
// ==============================================================================================

package vm

import (
	"lumen/scripterr"
	"lumen/source"
	"lumen/tac"
	"lumen/value"
)

// MaxArgStack is the hard cap on pushed call arguments (spec.md section 5).
const MaxArgStack = 255

// MaxProtoDepth bounds the __isa prototype-chain walk (spec.md section 3.2/5).
const MaxProtoDepth = 1000

// Context is one call frame.
type Context struct {
	Code *tac.Program
	PC   int

	Locals map[string]value.Value
	Outer  map[string]value.Value // nil unless this context's function captured an outer scope
	Self   value.Value

	ArgStack []value.Value

	Caller     *Context
	ResultDest tac.Operand // where in Caller to store this context's return value; zero Operand => discard (root)

	Machine *Machine

	Temps   map[int]value.Value
	Partial value.Value // parked partial result for the CallIntrinsic line PC currently points to

	Params []value.Value // bound parameter values, in declaration order, for Param(i)

	ImplicitCount int
}

// newContext creates a child call frame for calling fn.
func newContext(m *Machine, code *tac.Program, caller *Context, dest tac.Operand) *Context {
	return &Context{
		Code:       code,
		Locals:     make(map[string]value.Value),
		Caller:     caller,
		ResultDest: dest,
		Machine:    m,
		Temps:      make(map[int]value.Value),
	}
}

// Param implements intrinsic.Caller.
func (c *Context) Param(i int) value.Value {
	if i < 0 || i >= len(c.Params) {
		return value.Null
	}
	return c.Params[i]
}

// RunTime implements intrinsic.Caller.
func (c *Context) RunTime() float64 {
	return c.Machine.RunTime()
}

// RequestYield implements intrinsic.Caller: an intrinsic calls this to set
// the machine's yielding flag (spec.md section 5, "Yielding flag"), forcing
// the next RunUntilDone boundary check to return to the host regardless of
// returnEarly or any time limit.
func (c *Context) RequestYield() {
	c.Machine.Yielding = true
}

// Temp returns the value in temp slot n, zero-initializing it to Null on
// first access (spec.md section 3.2: "temporary slots are per-context and
// zero-initialized on demand").
func (c *Context) Temp(n int) value.Value {
	if v, ok := c.Temps[n]; ok {
		return v
	}
	return value.Null
}

// SetTemp stores into temp slot n.
func (c *Context) SetTemp(n int, v value.Value) {
	c.Temps[n] = v
}

// ReturnValue is temp slot 0, which always exists by the end of a
// function's body (spec.md section 3.2).
func (c *Context) ReturnValue() value.Value { return c.Temp(0) }

// LocalsSnapshot renders the context's locals as an ordered Map value, for
// the reserved `locals` identifier (spec.md section 4.3).
func (c *Context) LocalsSnapshot() *value.MapValue {
	m := value.NewMap()
	for k, v := range c.Locals {
		_ = m.Set(value.NewString(k), v)
	}
	return m
}

// OuterSnapshot renders the captured outer scope as an ordered Map value,
// for the reserved `outer` identifier. Returns an empty map if there is no
// captured scope.
func (c *Context) OuterSnapshot() *value.MapValue {
	m := value.NewMap()
	for k, v := range c.Outer {
		_ = m.Set(value.NewString(k), v)
	}
	return m
}

// PushArg pushes one value onto the argument stack ahead of a call,
// enforcing the 255-argument cap from spec.md section 4.3/5.
func (c *Context) PushArg(v value.Value, loc source.Location) error {
	if len(c.ArgStack) >= MaxArgStack {
		return scripterr.TooManyArguments(loc, len(c.ArgStack)+1, MaxArgStack)
	}
	c.ArgStack = append(c.ArgStack, v)
	return nil
}

// PopArgs pops the last n pushed arguments, in the order they were pushed
// (i.e. left-to-right source order, even though the stack is LIFO).
func (c *Context) PopArgs(n int) []value.Value {
	if n > len(c.ArgStack) {
		n = len(c.ArgStack)
	}
	start := len(c.ArgStack) - n
	args := make([]value.Value, n)
	copy(args, c.ArgStack[start:])
	c.ArgStack = c.ArgStack[:start]
	return args
}

// resolveVar looks a name up in the order spec.md section 4.3 describes:
// special names, locals, captured outer scope, globals (root's locals),
// then a registered intrinsic wrapper.
func (c *Context) resolveVar(name string, loc source.Location) (value.Value, error) {
	switch name {
	case "self":
		if c.Self != nil {
			return c.Self, nil
		}
		return value.Null, nil
	case "locals":
		return c.LocalsSnapshot(), nil
	case "globals":
		return c.Machine.Root.LocalsSnapshot(), nil
	case "outer":
		return c.OuterSnapshot(), nil
	}

	if v, ok := c.Locals[name]; ok {
		return v, nil
	}
	if c.Outer != nil {
		if v, ok := c.Outer[name]; ok {
			return v, nil
		}
	}
	if c != c.Machine.Root {
		if v, ok := c.Machine.Root.Locals[name]; ok {
			return v, nil
		}
	}
	if entry, ok := c.Machine.Registry.ByName(name); ok {
		return c.Machine.wrapIntrinsic(entry), nil
	}

	return nil, scripterr.UndefinedIdentifier(loc, name)
}

// assignVar stores a value into a variable by name, honoring the
// reservation that `locals`/`globals` cannot be assigned to and that
// assigning to `self` rebinds the self slot rather than the variable map
// (spec.md section 4.2, "assignable targets").
func (c *Context) assignVar(name string, v value.Value, loc source.Location) error {
	switch name {
	case "locals", "globals":
		return scripterr.Runtime(scripterr.RuntimeNone, loc, "cannot assign to reserved name %q", name)
	case "self":
		c.Self = v
		return nil
	case "outer":
		return scripterr.Runtime(scripterr.RuntimeNone, loc, "cannot assign to reserved name %q", name)
	case "_":
		if c.Machine.StoreImplicit {
			c.Machine.Root.Locals["_"] = v
			c.ImplicitCount++
		}
		return nil
	}
	c.Locals[name] = v
	return nil
}
