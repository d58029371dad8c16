// ==============================================================================================
// FILE: value/value.go
// ==============================================================================================
// PACKAGE: value
// PURPOSE: The runtime value universe (spec.md section 3). A Value is a tagged variant rather
//          than a class hierarchy: Null, Number, String, List, Map, Function. The three
//          lvalue/rvalue handles (variable, temp, sequence element) are not values here; they
//          are tac.Operand kinds the compiler emits. Every variant supports string rendering,
//          code-form rendering, boolean coercion, hashing and fuzzy equality, and a three-way
//          ordering.
// ==============================================================================================

package value

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/josharian/intern"
)

// DefaultRecursionLimit bounds how deep container rendering/hashing/equality
// recurse before falling back to a cycle-safe default (spec.md section 3.1,
// section 9 "cyclic containers").
const DefaultRecursionLimit = 16

// MaxSequenceLength is the length ceiling for strings and lists (spec.md
// section 5, "resource caps" - approx 16M).
const MaxSequenceLength = 16 * 1024 * 1024

// Value is the interface every runtime value variant implements.
type Value interface {
	// TypeName is the builtin type-map name this value dispatches to
	// (spec.md section 6.2): "number", "string", "list", "map", "function";
	// Null reports "null".
	TypeName() string

	// String renders the value for user-facing output (e.g. a `print`
	// intrinsic). Strings render as themselves, with no quoting.
	String() string

	// CodeForm renders valid source that reconstructs the value, bounded by
	// depth for recursive containers.
	CodeForm(depth int) string

	// Bool coerces the value to a boolean per spec.md section 3.1.
	Bool() bool

	// Hash produces a hash consistent with Equal, bounded by depth for
	// recursive containers.
	Hash(depth int) uint64

	// Equal returns a fuzzy equality score in [0,1]; 1 means exactly equal.
	// Containers that bottom out at the recursion limit return a fuzzy
	// midpoint rather than panicking on a cycle.
	Equal(other Value, depth int) float64
}

// Equal is a convenience wrapper that starts at DefaultRecursionLimit and
// treats any score >= 1 as a definite equality (the common case for scripts
// and intrinsics that just want a boolean).
func Equal(a, b Value) bool {
	return a.Equal(b, DefaultRecursionLimit) >= 1
}

// Hash starts hashing at DefaultRecursionLimit.
func Hash(v Value) uint64 {
	return v.Hash(DefaultRecursionLimit)
}

// Compare gives the three-way ordering sort intrinsics need: -1, 0, 1.
// Values of different types compare by a fixed type rank (null, number,
// string, list, map, function); numbers/strings/lists compare by natural
// order; maps and functions compare 0 when Equal and otherwise by their
// hashes.
func Compare(a, b Value) int {
	an, bn := typeOrder(a), typeOrder(b)
	if an != bn {
		if an < bn {
			return -1
		}
		return 1
	}
	switch av := a.(type) {
	case *NumberValue:
		bv := b.(*NumberValue)
		switch {
		case av.V < bv.V:
			return -1
		case av.V > bv.V:
			return 1
		default:
			return 0
		}
	case *StringValue:
		bv := b.(*StringValue)
		return strings.Compare(av.V, bv.V)
	case *ListValue:
		bv := b.(*ListValue)
		n := len(av.Elems)
		if len(bv.Elems) < n {
			n = len(bv.Elems)
		}
		for i := 0; i < n; i++ {
			if c := Compare(av.Elems[i], bv.Elems[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(av.Elems) < len(bv.Elems):
			return -1
		case len(av.Elems) > len(bv.Elems):
			return 1
		default:
			return 0
		}
	default:
		if Equal(a, b) {
			return 0
		}
		ha, hb := a.Hash(DefaultRecursionLimit), b.Hash(DefaultRecursionLimit)
		switch {
		case ha < hb:
			return -1
		case ha > hb:
			return 1
		default:
			return 0
		}
	}
}

func typeOrder(v Value) int {
	switch v.(type) {
	case *NullValue:
		return 0
	case *NumberValue:
		return 1
	case *StringValue:
		return 2
	case *ListValue:
		return 3
	case *MapValue:
		return 4
	case *FunctionValue:
		return 5
	default:
		return 6
	}
}

// ------------------------------------------------------------------------------------------
// NULL
// ------------------------------------------------------------------------------------------

// NullValue is the single shared null value.
type NullValue struct{}

// Null is the shared singleton instance; every nil result in the VM refers
// to this same pointer so identity comparisons work for free.
var Null = &NullValue{}

func (*NullValue) TypeName() string               { return "null" }
func (*NullValue) String() string                 { return "null" }
func (*NullValue) CodeForm(int) string             { return "null" }
func (*NullValue) Bool() bool                      { return false }
func (*NullValue) Hash(int) uint64                 { return 0 }
func (*NullValue) Equal(other Value, _ int) float64 {
	if _, ok := other.(*NullValue); ok {
		return 1
	}
	return 0
}

// ------------------------------------------------------------------------------------------
// NUMBER (also the boolean type)
// ------------------------------------------------------------------------------------------

// NumberValue wraps a 64-bit float. Spec.md section 3.1: numbers double as
// booleans (0 is false, nonzero is true).
type NumberValue struct {
	V float64
}

// Shared singletons for the two booleans / common small integers.
var (
	Zero = &NumberValue{V: 0}
	One  = &NumberValue{V: 1}
)

// NewNumber allocates a NumberValue, returning the shared singleton for 0/1.
func NewNumber(v float64) *NumberValue {
	if v == 0 {
		return Zero
	}
	if v == 1 {
		return One
	}
	return &NumberValue{V: v}
}

// Bool converts a Go bool to the canonical NumberValue representation.
func Bool(b bool) *NumberValue {
	if b {
		return One
	}
	return Zero
}

func (*NumberValue) TypeName() string { return "number" }

func (n *NumberValue) String() string {
	if math.IsInf(n.V, 1) {
		return "inf"
	}
	if math.IsInf(n.V, -1) {
		return "-inf"
	}
	if math.IsNaN(n.V) {
		return "nan"
	}
	if n.V == math.Trunc(n.V) && math.Abs(n.V) < 1e15 {
		return strconv.FormatFloat(n.V, 'f', -1, 64)
	}
	return strconv.FormatFloat(n.V, 'g', -1, 64)
}

func (n *NumberValue) CodeForm(int) string { return n.String() }
func (n *NumberValue) Bool() bool          { return n.V != 0 }

func (n *NumberValue) Hash(int) uint64 {
	return math.Float64bits(n.V)
}

func (n *NumberValue) Equal(other Value, _ int) float64 {
	if o, ok := other.(*NumberValue); ok && o.V == n.V {
		return 1
	}
	return 0
}

// ------------------------------------------------------------------------------------------
// STRING
// ------------------------------------------------------------------------------------------

// StringValue holds UTF-8 text. Nonempty is truthy; indexing (done by the
// VM's ElemLoad handling, not here) returns single-character strings and
// supports negative indices.
type StringValue struct {
	V string
}

// Empty is the shared empty-string singleton.
var Empty = &StringValue{V: ""}

// NewString interns every non-empty string (identifiers recur constantly as map keys
// and variable names) via the reusable string pool described in spec.md
// section 5 / section 9, backed here by github.com/josharian/intern.
func NewString(s string) *StringValue {
	if s == "" {
		return Empty
	}
	return &StringValue{V: intern.String(s)}
}

func (*StringValue) TypeName() string { return "string" }
func (s *StringValue) String() string { return s.V }

func (s *StringValue) CodeForm(int) string {
	var out strings.Builder
	out.WriteByte('"')
	out.WriteString(strings.ReplaceAll(s.V, `"`, `""`))
	out.WriteByte('"')
	return out.String()
}

func (s *StringValue) Bool() bool { return s.V != "" }

func (s *StringValue) Hash(int) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s.V))
	return h.Sum64()
}

func (s *StringValue) Equal(other Value, _ int) float64 {
	if o, ok := other.(*StringValue); ok && o.V == s.V {
		return 1
	}
	return 0
}

// Runes exposes the string's runes (used by index/length resolution, which
// lives on the VM side since it must raise IndexOutOfRange with a location).
func (s *StringValue) Runes() []rune { return []rune(s.V) }

// ------------------------------------------------------------------------------------------
// LIST
// ------------------------------------------------------------------------------------------

// ListValue is an ordered, mutable sequence.
type ListValue struct {
	Elems []Value
}

func NewList(elems []Value) *ListValue { return &ListValue{Elems: elems} }

func (*ListValue) TypeName() string { return "list" }

func (l *ListValue) String() string {
	return l.render(func(v Value) string { return v.String() }, DefaultRecursionLimit)
}

func (l *ListValue) CodeForm(depth int) string {
	if depth <= 0 {
		return "[...]"
	}
	return l.render(func(v Value) string { return v.CodeForm(depth - 1) }, depth)
}

func (l *ListValue) render(show func(Value) string, _ int) string {
	parts := make([]string, len(l.Elems))
	for i, e := range l.Elems {
		parts[i] = show(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (l *ListValue) Bool() bool { return len(l.Elems) > 0 }

func (l *ListValue) Hash(depth int) uint64 {
	if depth <= 0 {
		return uint64(len(l.Elems))
	}
	h := fnv.New64a()
	for _, e := range l.Elems {
		b := make([]byte, 8)
		v := e.Hash(depth - 1)
		for i := 0; i < 8; i++ {
			b[i] = byte(v >> (8 * i))
		}
		_, _ = h.Write(b)
	}
	return h.Sum64()
}

func (l *ListValue) Equal(other Value, depth int) float64 {
	o, ok := other.(*ListValue)
	if !ok || len(o.Elems) != len(l.Elems) {
		return 0
	}
	if depth <= 0 {
		return 0.5
	}
	if len(l.Elems) == 0 {
		return 1
	}
	total := 0.0
	for i, e := range l.Elems {
		total += e.Equal(o.Elems[i], depth-1)
	}
	return total / float64(len(l.Elems))
}

// ------------------------------------------------------------------------------------------
// FUNCTION
// ------------------------------------------------------------------------------------------

// Param is one declared function parameter, with an optional default.
type Param struct {
	Name    string
	Default Value // nil if no default
}

// FunctionValue is a compiled code block plus an optional captured outer
// scope (established at BindAssign time, spec.md section 3.2).
type FunctionValue struct {
	Params []Param
	Code   CodeBlock
	Outer  map[string]Value // nil unless captured
}

// CodeBlock is satisfied by *tac.Program; declared as an interface here to
// avoid value depending on tac (tac depends on value for operands).
type CodeBlock interface {
	Len() int
}

func (*FunctionValue) TypeName() string  { return "function" }
func (*FunctionValue) String() string    { return "function" }
func (*FunctionValue) CodeForm(int) string {
	return "function() ... end function"
}
func (*FunctionValue) Bool() bool { return true }

func (f *FunctionValue) Hash(int) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%p", f.Code)))
	return h.Sum64()
}

// Equal is identity of the underlying code object, per spec.md section 3.1.
func (f *FunctionValue) Equal(other Value, _ int) float64 {
	if o, ok := other.(*FunctionValue); ok && sameCode(f.Code, o.Code) {
		return 1
	}
	return 0
}

func sameCode(a, b CodeBlock) bool {
	return fmt.Sprintf("%p", a) == fmt.Sprintf("%p", b)
}

// ------------------------------------------------------------------------------------------
// MAP
// ------------------------------------------------------------------------------------------

// IsaKey is the magic prototype-link key (spec.md section 3.1/3.2).
const IsaKey = "__isa"

// AssignOverride is the optional hook a host can install on a Map to
// intercept writes before any __isa walk (spec.md section 9, resolving the
// ambiguity: override consultation happens before the prototype walk).
// It returns (handled, error) - if handled is true the VM does not also
// perform the default store.
type AssignOverride func(m *MapValue, key, val Value) (handled bool, err error)

// mapEntry preserves insertion order alongside the value, since spec.md
// requires an *ordered* mapping - not Go's unordered map.
type mapEntry struct {
	key Value
	val Value
}

// MapValue is an ordered mapping with equality-comparator-aware lookup and
// an optional prototype chain via the __isa key. A plain Go map from a raw
// hash to a slot index gives O(1) average lookup while Entries preserves
// insertion order for iteration and rendering.
type MapValue struct {
	Entries  []mapEntry
	index    map[uint64][]int // hash -> candidate Entries indices
	Override AssignOverride
}

func NewMap() *MapValue {
	return &MapValue{index: make(map[uint64][]int)}
}

func (*MapValue) TypeName() string { return "map" }

func (m *MapValue) String() string {
	return m.render(func(v Value) string { return v.String() }, DefaultRecursionLimit)
}

func (m *MapValue) CodeForm(depth int) string {
	if depth <= 0 {
		return "{...}"
	}
	return m.render(func(v Value) string { return v.CodeForm(depth - 1) }, depth)
}

func (m *MapValue) render(show func(Value) string, _ int) string {
	parts := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		parts[i] = show(e.key) + ": " + show(e.val)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (m *MapValue) Bool() bool { return len(m.Entries) > 0 }

func (m *MapValue) Hash(depth int) uint64 {
	if depth <= 0 {
		return uint64(len(m.Entries))
	}
	var total uint64
	for _, e := range m.Entries {
		total += e.key.Hash(depth-1) ^ e.val.Hash(depth-1)
	}
	return total
}

func (m *MapValue) Equal(other Value, depth int) float64 {
	o, ok := other.(*MapValue)
	if !ok || len(o.Entries) != len(m.Entries) {
		return 0
	}
	if depth <= 0 {
		return 0.5
	}
	if len(m.Entries) == 0 {
		return 1
	}
	total := 0.0
	for _, e := range m.Entries {
		ov, found := o.rawGet(e.key, depth-1)
		if !found {
			continue
		}
		total += e.val.Equal(ov, depth-1)
	}
	return total / float64(len(m.Entries))
}

// rawGet looks up key using value-equality, WITHOUT walking the prototype
// chain - used internally by Equal and by Get when isaWalk is false.
func (m *MapValue) rawGet(key Value, depth int) (Value, bool) {
	h := key.Hash(depth)
	for _, idx := range m.index[h] {
		e := m.Entries[idx]
		if e.key.Equal(key, depth) >= 1 {
			return e.val, true
		}
	}
	return nil, false
}

// Set inserts or overwrites key -> val, preserving insertion order for new
// keys. The Override hook, if installed, is consulted first and can
// suppress the default store entirely (spec.md section 9 resolves the
// override-vs-prototype ordering question this way).
func (m *MapValue) Set(key, val Value) error {
	if m.Override != nil {
		handled, err := m.Override(m, key, val)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	h := key.Hash(DefaultRecursionLimit)
	for _, idx := range m.index[h] {
		if m.Entries[idx].key.Equal(key, DefaultRecursionLimit) >= 1 {
			m.Entries[idx].val = val
			return nil
		}
	}
	m.index[h] = append(m.index[h], len(m.Entries))
	m.Entries = append(m.Entries, mapEntry{key: key, val: val})
	return nil
}

// Get looks up key, walking the __isa prototype chain when not found
// locally. maxDepth bounds the chain walk (spec.md section 3.2: fixed
// maximum of 1000).
func (m *MapValue) Get(key Value, maxDepth int) (Value, bool) {
	cur := m
	for i := 0; i < maxDepth; i++ {
		if v, ok := cur.rawGet(key, DefaultRecursionLimit); ok {
			return v, true
		}
		proto, ok := cur.rawGet(NewString(IsaKey), DefaultRecursionLimit)
		if !ok {
			return nil, false
		}
		protoMap, ok := proto.(*MapValue)
		if !ok {
			return nil, false
		}
		cur = protoMap
	}
	return nil, false
}

// Keys returns the map's keys in insertion order.
func (m *MapValue) Keys() []Value {
	keys := make([]Value, len(m.Entries))
	for i, e := range m.Entries {
		keys[i] = e.key
	}
	return keys
}

// SortedStringKeys is a debug-dump helper (spec.md section 6.1
// DumpTopContext, SPEC_FULL.md supplement C.3): gives a deterministic
// ordering over a map whose keys happen to all be strings.
func SortedStringKeys(m *MapValue) []string {
	names := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		if s, ok := e.key.(*StringValue); ok {
			names = append(names, s.V)
		}
	}
	sort.Strings(names)
	return names
}
