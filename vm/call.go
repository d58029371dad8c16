// ==============================================================================================
// FILE: vm/call.go
// ==============================================================================================
// PACKAGE: vm
// PURPOSE: Operand resolution/storage (the lvalue/rvalue handles from spec.md section 3.1) and
//          the mechanics of calling a function or intrinsic: popping arguments, binding
//          parameters (including the `self` dot-call shift), and the bare-reference auto-invoke
//          rule (a variable bound to a zero-argument-callable function value, the `@` operand
//          flag suppresses it).
// ==============================================================================================

package vm

import (
	"lumen/intrinsic"
	"lumen/scripterr"
	"lumen/source"
	"lumen/tac"
	"lumen/value"
)

// resolve reads an operand's rvalue. A Var or SeqElem operand that resolves
// to a function value is auto-invoked with zero arguments unless NoInvoke
// (the '@' address-of form) is set - spec.md section 3.1's "bare function
// reference calls it" rule.
func (m *Machine) resolve(cur *Context, op tac.Operand, loc source.Location) (value.Value, error) {
	switch op.Kind {
	case tac.OperandValue:
		return op.Val, nil

	case tac.OperandVar:
		v, err := cur.resolveVar(op.Name, loc)
		if err != nil {
			return nil, err
		}
		return m.maybeAutoInvoke(cur, v, op.NoInvoke, loc)

	case tac.OperandTemp:
		return cur.Temp(op.Temp), nil

	case tac.OperandSeqElem:
		seq, err := m.resolve(cur, *op.Seq, loc)
		if err != nil {
			return nil, err
		}
		idx, err := m.resolve(cur, *op.Index, loc)
		if err != nil {
			return nil, err
		}
		v, err := elemLoad(seq, idx, loc)
		if err != nil {
			return nil, err
		}
		return m.maybeAutoInvoke(cur, v, op.NoInvoke, loc)

	case tac.OperandNone:
		return value.Null, nil
	}

	return nil, scripterr.Compiler(loc, "unresolvable operand")
}

func (m *Machine) maybeAutoInvoke(cur *Context, v value.Value, noInvoke bool, loc source.Location) (value.Value, error) {
	if noInvoke {
		return v, nil
	}
	fn, ok := v.(*value.FunctionValue)
	if !ok {
		return v, nil
	}
	return m.invokeSync(cur, fn, nil, false, loc)
}

// store writes an operand's lvalue.
func (m *Machine) store(cur *Context, op tac.Operand, v value.Value, loc source.Location) error {
	switch op.Kind {
	case tac.OperandVar:
		return cur.assignVar(op.Name, v, loc)

	case tac.OperandTemp:
		cur.SetTemp(op.Temp, v)
		return nil

	case tac.OperandSeqElem:
		seq, err := m.resolve(cur, *op.Seq, loc)
		if err != nil {
			return err
		}
		idx, err := m.resolve(cur, *op.Index, loc)
		if err != nil {
			return err
		}
		return elemStore(seq, idx, v, loc)

	case tac.OperandNone:
		return nil // discard, e.g. the root context's ResultDest
	}

	return scripterr.Compiler(loc, "unassignable operand")
}

// execCallFunction handles a CallFunction TAC line: pop ln.ArgCount args,
// resolve the callee, build and push a child context.
func (m *Machine) execCallFunction(cur *Context, ln tac.Line) error {
	callee, err := m.resolveCallee(cur, ln.RhsA, ln.Loc)
	if err != nil {
		return err
	}
	fn, ok := callee.(*value.FunctionValue)
	if !ok {
		return scripterr.TypeMismatch(ln.Loc, "expected function, got %s", callee.TypeName())
	}
	args := cur.PopArgs(ln.ArgCount)
	child := m.buildCall(cur, fn, args, ln.ViaDot, ln.Lhs)
	m.stack = append(m.stack, child)
	// cur.PC is NOT advanced here - it resumes (at the caller's PC++ in
	// doReturn) once the pushed child context returns.
	return nil
}

// resolveCallee resolves the callee operand without the bare-reference
// auto-invoke rule - the operand IS the call target, not a value to invoke
// and then call again.
func (m *Machine) resolveCallee(cur *Context, op tac.Operand, loc source.Location) (value.Value, error) {
	switch op.Kind {
	case tac.OperandValue:
		return op.Val, nil
	case tac.OperandVar:
		return cur.resolveVar(op.Name, loc)
	case tac.OperandTemp:
		return cur.Temp(op.Temp), nil
	case tac.OperandSeqElem:
		seq, err := m.resolve(cur, *op.Seq, loc)
		if err != nil {
			return nil, err
		}
		idx, err := m.resolve(cur, *op.Index, loc)
		if err != nil {
			return nil, err
		}
		return elemLoad(seq, idx, loc)
	}
	return nil, scripterr.Compiler(loc, "unresolvable call target")
}

// execCallIntrinsic runs at the top of a wrapper context built by
// wrapIntrinsic: the wrapper's single line is this opcode, so cur IS the
// context the native function's Param(i)/RunTime() calls read from.
//
// A not-done result is always parked (spec.md section 5, "Intrinsic
// yield"): the code pointer stays on this line and Step returns, to be
// re-invoked with the parked partial on the next Step. This is
// unconditional - it does not depend on any host-configured mode. A
// caller that wants an intrinsic call driven synchronously to completion
// (invokeSync, for the bare-reference auto-invoke rule) gets that by
// calling Step in a loop from the outside, not by this function spinning
// internally.
func (m *Machine) execCallIntrinsic(cur *Context, ln tac.Line) error {
	entry, ok := m.Registry.ByID(ln.IntrinsicID)
	if !ok {
		return scripterr.Compiler(ln.Loc, "no intrinsic registered with id %d", ln.IntrinsicID)
	}
	result := entry.Fn(cur, cur.Partial)
	if !result.Done {
		cur.Partial = result.Partial
		return nil // PC stays put; re-invoked next Step with this partial.
	}
	cur.Partial = nil
	cur.SetTemp(0, result.Value)
	cur.PC++
	return nil
}

// buildCall constructs a child call frame for invoking fn with args, popped
// in left-to-right source order, from caller. Spec.md section 4.3's
// dot-call rule: if viaDot and fn's first declared parameter is literally
// named "self", the first argument binds to self and the rest shift down
// by one against the remaining declared parameters.
func (m *Machine) buildCall(caller *Context, fn *value.FunctionValue, args []value.Value, viaDot bool, dest tac.Operand) *Context {
	child := newContext(m, fn.Code.(*tac.Program), caller, dest)
	child.Outer = fn.Outer

	params := fn.Params
	if viaDot && len(params) > 0 && params[0].Name == "self" && len(args) > 0 {
		child.Self = args[0]
		child.Locals["self"] = args[0]
		args = args[1:]
		params = params[1:]
	}

	child.Params = make([]value.Value, len(params))
	for i, p := range params {
		var v value.Value
		switch {
		case i < len(args):
			v = args[i]
		case p.Default != nil:
			v = p.Default
		default:
			v = value.Null
		}
		child.Params[i] = v
		child.Locals[p.Name] = v
	}

	return child
}

// invokeSync synchronously drives a zero-argument function call to
// completion, for the bare-reference auto-invoke rule (spec.md section
// 3.1). If fn wraps an intrinsic that parks a partial result, the loop
// below simply keeps calling Step, which re-invokes it with the parked
// partial each time - so the call still resolves to completion from this
// function's point of view, it just may take several Step calls instead
// of one.
func (m *Machine) invokeSync(caller *Context, fn *value.FunctionValue, args []value.Value, viaDot bool, loc source.Location) (value.Value, error) {
	child := m.buildCall(caller, fn, args, viaDot, tac.Operand{})
	depth := len(m.stack)
	m.stack = append(m.stack, child)
	for len(m.stack) > depth {
		if serr := m.Step(); serr != nil {
			m.stack = m.stack[:depth]
			return nil, serr
		}
	}
	return child.ReturnValue(), nil
}

// wrapIntrinsic builds a fresh FunctionValue wrapper, on every call, for a
// registered native intrinsic: a one-line code block whose only
// instruction is CallIntrinsic, with the entry's declared parameters
// bound as ordinary call-frame locals (spec.md section 6.2).
func (m *Machine) wrapIntrinsic(entry *intrinsic.Entry) *value.FunctionValue {
	prog := tac.NewProgram()
	prog.Emit(tac.Line{
		Op:          tac.CallIntrinsic,
		Lhs:         tac.TempOperand(0),
		IntrinsicID: entry.ID,
		ArgCount:    len(entry.Params),
	})
	return &value.FunctionValue{Params: entry.Params, Code: prog}
}
