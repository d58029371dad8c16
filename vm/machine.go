// ==============================================================================================
// FILE: vm/machine.go
// ==============================================================================================
// PACKAGE: vm
// PURPOSE: The virtual machine (spec.md sections 2.9, 4.4, 5). Owns the root (global) context,
//          the current call stack, the standard-output sink, the cooperative-yield flag and
//          the wall-clock run-time origin, and drives the opcode interpreter one TAC line per
//          Step call.
// ==============================================================================================

package vm

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"lumen/intrinsic"
	"lumen/scripterr"
	"lumen/source"
	"lumen/tac"
	"lumen/value"
)

// HostInfo is the name/info-url/version record a host can surface to
// script via a `version` intrinsic (spec.md section 6.3).
type HostInfo struct {
	Name    string
	InfoURL string
	Version string
}

// Machine is the VM.
type Machine struct {
	Root  *Context
	stack []*Context

	Stdout        io.Writer
	Yielding      bool
	StoreImplicit bool

	startTime time.Time

	TypeMaps map[string]*value.MapValue // "number", "string", "list", "map", "function"

	Registry *intrinsic.Registry
	Logger   logrus.FieldLogger
	HostInfo HostInfo

	// host is a logically weak back-pointer to the owning Interpreter
	// façade (spec.md section 9, "weak host reference"). Go has no
	// GC-cooperating weak pointer usable across the module's minimum
	// toolchain version (see DESIGN.md), so this is a plain reference the
	// host is responsible for clearing via Detach before it shuts down.
	host any

	done bool
}

// Option configures a Machine at construction time.
type Option func(*Machine)

func WithStdout(w io.Writer) Option               { return func(m *Machine) { m.Stdout = w } }
func WithLogger(l logrus.FieldLogger) Option      { return func(m *Machine) { m.Logger = l } }
func WithHostInfo(h HostInfo) Option              { return func(m *Machine) { m.HostInfo = h } }
func WithStoreImplicit(storeImplicit bool) Option { return func(m *Machine) { m.StoreImplicit = storeImplicit } }

// New builds a Machine rooted at the given top-level program, with the
// given intrinsic registry (shared across machines the host creates).
// Yielding is deliberately not an option here: spec.md section 5 describes
// it as state an intrinsic sets mid-run (Context.RequestYield), not a
// construction-time mode, so it always starts false.
func New(program *tac.Program, registry *intrinsic.Registry, opts ...Option) *Machine {
	m := &Machine{
		Stdout:        os.Stdout,
		startTime:     time.Now(),
		TypeMaps:      defaultTypeMaps(),
		Registry:      registry,
		Logger:        logrus.StandardLogger(),
		StoreImplicit: true,
	}
	m.Root = newContext(m, program, nil, tac.Operand{})
	m.stack = []*Context{m.Root}
	for _, o := range opts {
		o(m)
	}
	return m
}

func defaultTypeMaps() map[string]*value.MapValue {
	return map[string]*value.MapValue{
		"number":   value.NewMap(),
		"string":   value.NewMap(),
		"list":     value.NewMap(),
		"map":      value.NewMap(),
		"function": value.NewMap(),
	}
}

// Attach records the owning Interpreter façade; Detach clears it. Host is
// typed `any` here to avoid vm depending on interp (interp depends on vm).
func (m *Machine) Attach(host any) { m.host = host }
func (m *Machine) Detach()         { m.host = nil }
func (m *Machine) Host() any       { return m.host }

// RunTime reports seconds elapsed since the machine was constructed - the
// wall-clock origin spec.md section 4.4 names, consulted by time-sliced
// RunUntilDone and by any intrinsic (like a `wait` builtin) that parks on
// it.
func (m *Machine) RunTime() float64 {
	return time.Since(m.startTime).Seconds()
}

// Done reports whether the stack has only the root and the root's code
// pointer is past its program's end (spec.md section 4.4).
func (m *Machine) Done() bool {
	return m.done
}

// Current returns the context on top of the call stack.
func (m *Machine) Current() *Context {
	return m.stack[len(m.stack)-1]
}

// Reset clears the stack back to just the root, clears temps and the root's
// code pointer, but preserves globals (spec.md section 4.4).
func (m *Machine) Reset() {
	m.Root.PC = 0
	m.Root.Temps = make(map[int]value.Value)
	m.Root.ArgStack = nil
	m.stack = []*Context{m.Root}
	m.done = false
}

// Stop advances the top context's code pointer past its program's end,
// aborting the current call frame's remaining code without touching
// globals (spec.md section 5, "cancellation").
func (m *Machine) Stop() {
	cur := m.Current()
	cur.PC = cur.Code.Len()
}

// Step executes exactly one TAC line (spec.md section 4.4). It returns the
// structured error, if the line raised one - in which case the VM has
// already skipped the remainder of the offending call frame, per spec.md
// section 7.
func (m *Machine) Step() *scripterr.Error {
	if m.done {
		return nil
	}

	cur := m.Current()
	line, ok := cur.Code.At(cur.PC)
	if !ok {
		if cur == m.Root {
			m.done = true
			return nil
		}
		m.doReturn(cur)
		return nil
	}

	if err := m.execute(cur, line); err != nil {
		serr := toScriptError(err)
		serr = serr.WithLocation(line.Loc)
		m.Logger.WithFields(logrus.Fields{
			"kind":    serr.Kind,
			"context": line.Loc.Context,
			"line":    line.Loc.Line,
		}).Debug(serr.Message)
		m.skipFrame(cur)
		return serr
	}

	return nil
}

// skipFrame implements spec.md section 7's error recovery: force the
// current top context's code pointer past end, which the next Step will
// see as an implicit Return (or Done, for the root).
func (m *Machine) skipFrame(cur *Context) {
	cur.PC = cur.Code.Len()
}

func toScriptError(err error) *scripterr.Error {
	if se, ok := err.(*scripterr.Error); ok {
		return se
	}
	return scripterr.Runtime(scripterr.RuntimeNone, source.Location{}, "%s", err.Error())
}

// execute decodes and runs one line, advancing cur.PC unless the opcode
// itself manages the code pointer (jumps, calls, returns).
func (m *Machine) execute(cur *Context, ln tac.Line) error {
	switch ln.Op {
	case tac.Nop:
		cur.PC++
		return nil

	case tac.Assign:
		v, err := m.resolve(cur, ln.RhsA, ln.Loc)
		if err != nil {
			return err
		}
		if err := m.store(cur, ln.Lhs, v, ln.Loc); err != nil {
			return err
		}
		cur.PC++
		return nil

	case tac.Binary:
		a, err := m.resolve(cur, ln.RhsA, ln.Loc)
		if err != nil {
			return err
		}
		b, err := m.resolve(cur, ln.RhsB, ln.Loc)
		if err != nil {
			return err
		}
		result, err := evalBinary(ln.Bin, a, b, ln.Loc)
		if err != nil {
			return err
		}
		if err := m.store(cur, ln.Lhs, result, ln.Loc); err != nil {
			return err
		}
		cur.PC++
		return nil

	case tac.Unary:
		a, err := m.resolve(cur, ln.RhsA, ln.Loc)
		if err != nil {
			return err
		}
		result, err := evalUnary(ln.Un, a, ln.Loc)
		if err != nil {
			return err
		}
		if err := m.store(cur, ln.Lhs, result, ln.Loc); err != nil {
			return err
		}
		cur.PC++
		return nil

	case tac.ElemLoad:
		seq, err := m.resolve(cur, ln.RhsA, ln.Loc)
		if err != nil {
			return err
		}
		idx, err := m.resolve(cur, ln.RhsB, ln.Loc)
		if err != nil {
			return err
		}
		result, err := elemLoad(seq, idx, ln.Loc)
		if err != nil {
			return err
		}
		if err := m.store(cur, ln.Lhs, result, ln.Loc); err != nil {
			return err
		}
		cur.PC++
		return nil

	case tac.ElemStore:
		seq, err := m.resolve(cur, ln.RhsA, ln.Loc)
		if err != nil {
			return err
		}
		idx, err := m.resolve(cur, ln.RhsB, ln.Loc)
		if err != nil {
			return err
		}
		val, err := m.resolve(cur, ln.Lhs, ln.Loc)
		if err != nil {
			return err
		}
		if err := elemStore(seq, idx, val, ln.Loc); err != nil {
			return err
		}
		cur.PC++
		return nil

	case tac.PushParam:
		v, err := m.resolve(cur, ln.RhsA, ln.Loc)
		if err != nil {
			return err
		}
		if err := cur.PushArg(v, ln.Loc); err != nil {
			return err
		}
		cur.PC++
		return nil

	case tac.CallFunction:
		return m.execCallFunction(cur, ln)

	case tac.CallIntrinsic:
		return m.execCallIntrinsic(cur, ln)

	case tac.Goto:
		cur.PC = ln.RhsA.Line
		return nil

	case tac.GotoIfTrue:
		cond, err := m.resolve(cur, ln.RhsB, ln.Loc)
		if err != nil {
			return err
		}
		if cond.Bool() {
			cur.PC = ln.RhsA.Line
		} else {
			cur.PC++
		}
		return nil

	case tac.GotoIfFalse:
		cond, err := m.resolve(cur, ln.RhsB, ln.Loc)
		if err != nil {
			return err
		}
		if !cond.Bool() {
			cur.PC = ln.RhsA.Line
		} else {
			cur.PC++
		}
		return nil

	case tac.GotoIfTruly:
		cond, err := m.resolve(cur, ln.RhsB, ln.Loc)
		if err != nil {
			return err
		}
		if n, ok := cond.(*value.NumberValue); ok && n.V == 1 {
			cur.PC = ln.RhsA.Line
		} else {
			cur.PC++
		}
		return nil

	case tac.Return:
		m.doReturn(cur)
		return nil

	case tac.MakeList:
		args := cur.PopArgs(ln.ArgCount)
		elems := make([]value.Value, len(args))
		copy(elems, args)
		if err := m.store(cur, ln.Lhs, value.NewList(elems), ln.Loc); err != nil {
			return err
		}
		cur.PC++
		return nil

	case tac.MakeMap:
		args := cur.PopArgs(ln.ArgCount)
		out := value.NewMap()
		for i := 0; i+1 < len(args); i += 2 {
			if err := out.Set(args[i], args[i+1]); err != nil {
				return err
			}
		}
		if err := m.store(cur, ln.Lhs, out, ln.Loc); err != nil {
			return err
		}
		cur.PC++
		return nil

	case tac.MakeProto:
		proto, err := m.resolve(cur, ln.RhsA, ln.Loc)
		if err != nil {
			return err
		}
		out := value.NewMap()
		if err := out.Set(value.NewString(value.IsaKey), proto); err != nil {
			return err
		}
		if err := m.store(cur, ln.Lhs, out, ln.Loc); err != nil {
			return err
		}
		cur.PC++
		return nil

	case tac.BindAssign:
		fn := &value.FunctionValue{Outer: cur.Locals}
		if ln.RhsA.Kind == tac.OperandValue {
			if template, ok := ln.RhsA.Val.(*value.FunctionValue); ok {
				fn.Params = template.Params
				fn.Code = template.Code
			}
		}
		if err := m.store(cur, ln.Lhs, fn, ln.Loc); err != nil {
			return err
		}
		cur.PC++
		return nil
	}

	return scripterr.Compiler(ln.Loc, "unknown opcode %v", ln.Op)
}

// doReturn copies slot 0 of cur into the caller's destination slot and pops
// the context (spec.md section 4.2, "Return").
func (m *Machine) doReturn(cur *Context) {
	if cur.Caller == nil {
		// The root context "returning" just means it's done.
		m.done = true
		return
	}
	ret := cur.ReturnValue()
	caller := cur.Caller
	// Errors storing the return value can't meaningfully happen for a
	// Var/Temp/SeqElem destination built by the compiler itself; ignore.
	_ = m.store(caller, cur.ResultDest, ret, source.Location{})
	m.stack = m.stack[:len(m.stack)-1]
	caller.PC++
}
