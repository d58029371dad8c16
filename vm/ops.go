// ==============================================================================================
// FILE: vm/ops.go
// ==============================================================================================
// PACKAGE: vm
// PURPOSE: Binary/unary operator evaluation and sequence-element (ElemLoad/ElemStore) indexing
//          (spec.md sections 3.1, 4.2, 9). Kept apart from machine.go's opcode dispatch so the
//          arithmetic/indexing rules read as one place.
// ==============================================================================================

package vm

import (
	"math"

	"lumen/scripterr"
	"lumen/source"
	"lumen/tac"
	"lumen/value"
)

func evalBinary(op tac.BinOp, a, b value.Value, loc source.Location) (value.Value, error) {
	switch op {
	case tac.CmpEq:
		return value.Bool(a.Equal(b, value.DefaultRecursionLimit) >= 1), nil
	case tac.CmpNotEq:
		return value.Bool(a.Equal(b, value.DefaultRecursionLimit) < 1), nil
	case tac.CmpGt:
		return value.Bool(value.Compare(a, b) > 0), nil
	case tac.CmpGtEq:
		return value.Bool(value.Compare(a, b) >= 0), nil
	case tac.CmpLt:
		return value.Bool(value.Compare(a, b) < 0), nil
	case tac.CmpLtEq:
		return value.Bool(value.Compare(a, b) <= 0), nil
	case tac.LogAnd:
		return value.Bool(a.Bool() && b.Bool()), nil
	case tac.LogOr:
		return value.Bool(a.Bool() || b.Bool()), nil
	case tac.IsaOp:
		return evalIsa(a, b), nil
	}

	switch av := a.(type) {
	case *value.NumberValue:
		bv, ok := b.(*value.NumberValue)
		if !ok {
			return nil, scripterr.TypeMismatch(loc, "expected number, got %s", b.TypeName())
		}
		return evalNumericOp(op, av.V, bv.V, loc)

	case *value.StringValue:
		switch op {
		case tac.Add:
			if bv, ok := b.(*value.StringValue); ok {
				return value.NewString(av.V + bv.V), nil
			}
			return value.NewString(av.V + b.String()), nil
		case tac.Mul:
			if bv, ok := b.(*value.NumberValue); ok {
				return value.NewString(repeatString(av.V, int(bv.V))), nil
			}
		}
		return nil, scripterr.TypeMismatch(loc, "expected string, got %s", b.TypeName())

	case *value.ListValue:
		switch op {
		case tac.Add:
			if bv, ok := b.(*value.ListValue); ok {
				out := make([]value.Value, 0, len(av.Elems)+len(bv.Elems))
				out = append(out, av.Elems...)
				out = append(out, bv.Elems...)
				return value.NewList(out), nil
			}
		case tac.Mul:
			if bv, ok := b.(*value.NumberValue); ok {
				return value.NewList(repeatList(av.Elems, int(bv.V))), nil
			}
		}
		return nil, scripterr.TypeMismatch(loc, "expected list, got %s", b.TypeName())
	}

	return nil, scripterr.TypeMismatch(loc, "incompatible operand types %s and %s", a.TypeName(), b.TypeName())
}

func evalIsa(a, b value.Value) *value.NumberValue {
	m, ok := a.(*value.MapValue)
	if !ok {
		return value.Zero
	}
	proto, ok := b.(*value.MapValue)
	if !ok {
		return value.Zero
	}
	cur := m
	for i := 0; i < MaxProtoDepth; i++ {
		if cur == proto {
			return value.One
		}
		next, ok := cur.Get(value.NewString(value.IsaKey), 1)
		if !ok {
			return value.Zero
		}
		np, ok := next.(*value.MapValue)
		if !ok {
			return value.Zero
		}
		cur = np
	}
	return value.Zero
}

func evalNumericOp(op tac.BinOp, a, b float64, loc source.Location) (value.Value, error) {
	switch op {
	case tac.Add:
		return value.NewNumber(a + b), nil
	case tac.Sub:
		return value.NewNumber(a - b), nil
	case tac.Mul:
		return value.NewNumber(a * b), nil
	case tac.Div:
		return value.NewNumber(a / b), nil
	case tac.Mod:
		return value.NewNumber(math.Mod(a, b)), nil
	case tac.Pow:
		return value.NewNumber(math.Pow(a, b)), nil
	}
	return nil, scripterr.Compiler(loc, "unsupported numeric operator %q", op)
}

func repeatString(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func repeatList(elems []value.Value, n int) []value.Value {
	if n <= 0 {
		return nil
	}
	out := make([]value.Value, 0, len(elems)*n)
	for i := 0; i < n; i++ {
		out = append(out, elems...)
	}
	return out
}

func evalUnary(op tac.UnOp, a value.Value, loc source.Location) (value.Value, error) {
	switch op {
	case tac.Not:
		return value.Bool(!a.Bool()), nil
	case tac.Neg:
		n, ok := a.(*value.NumberValue)
		if !ok {
			return nil, scripterr.TypeMismatch(loc, "expected number, got %s", a.TypeName())
		}
		return value.NewNumber(-n.V), nil
	case tac.Len:
		switch v := a.(type) {
		case *value.StringValue:
			return value.NewNumber(float64(len(v.Runes()))), nil
		case *value.ListValue:
			return value.NewNumber(float64(len(v.Elems))), nil
		case *value.MapValue:
			return value.NewNumber(float64(len(v.Keys()))), nil
		}
		return nil, scripterr.TypeMismatch(loc, "expected list, string or map, got %s", a.TypeName())
	}
	return nil, scripterr.Compiler(loc, "unsupported unary operator %q", op)
}

// elemLoad implements spec.md section 3.1/9 indexing: negative indices wrap
// from the end, strings index to single-character strings, maps look up by
// value-equality (walking __isa), lists index directly.
func elemLoad(seq, idx value.Value, loc source.Location) (value.Value, error) {
	switch s := seq.(type) {
	case *value.StringValue:
		runes := s.Runes()
		i, err := normalizeIndex(idx, len(runes), loc)
		if err != nil {
			return nil, err
		}
		return value.NewString(string(runes[i])), nil

	case *value.ListValue:
		i, err := normalizeIndex(idx, len(s.Elems), loc)
		if err != nil {
			return nil, err
		}
		return s.Elems[i], nil

	case *value.MapValue:
		v, ok := s.Get(idx, MaxProtoDepth)
		if !ok {
			return nil, scripterr.KeyNotFound(loc, idx.String())
		}
		return v, nil
	}
	return nil, scripterr.TypeMismatch(loc, "expected list, string or map, got %s", seq.TypeName())
}

func elemStore(seq, idx, val value.Value, loc source.Location) error {
	switch s := seq.(type) {
	case *value.ListValue:
		i, err := normalizeIndex(idx, len(s.Elems), loc)
		if err != nil {
			return err
		}
		s.Elems[i] = val
		return nil

	case *value.MapValue:
		return s.Set(idx, val)
	}
	return scripterr.TypeMismatch(loc, "expected list or map, got %s", seq.TypeName())
}

func normalizeIndex(idx value.Value, length int, loc source.Location) (int, error) {
	n, ok := idx.(*value.NumberValue)
	if !ok {
		return 0, scripterr.TypeMismatch(loc, "expected number, got %s", idx.TypeName())
	}
	i := int(n.V)
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, scripterr.IndexOutOfRange(loc, int(n.V), length)
	}
	return i, nil
}
