// ==============================================================================================
// FILE: tac/tac.go
// ==============================================================================================
// PACKAGE: tac
// PURPOSE: The three-address-code intermediate representation the compiler emits and the
//          machine executes (spec.md sections 2.6, 4.3). A Program is a flat, ordered sequence
//          of Lines; there is no separate AST anywhere in this pipeline - the compiler's only
//          output is this.
// ==============================================================================================

package tac

import (
	"fmt"

	"lumen/source"
	"lumen/value"
)

// Opcode names the operation a Line performs. Binary/unary arithmetic,
// comparison and logical operators all funnel through the Binary/Unary
// opcodes tagged with an Op, matching spec.md section 4.2's opcode list.
type Opcode uint8

const (
	Nop Opcode = iota

	Binary // Lhs = RhsA <Op> RhsB
	Unary  // Lhs = <Op> RhsA

	Assign // Lhs = RhsA

	ElemLoad  // Lhs = RhsA[RhsB]
	ElemStore // RhsA[RhsB] = Lhs   (Lhs carries the value being stored)

	PushParam // push RhsA onto the current context's argument stack

	CallFunction   // Lhs = call callee (ArgCount popped args, see Line.ArgCount/ViaDot)
	CallIntrinsic  // Lhs = call intrinsic (see Line.IntrinsicID/ArgCount)

	Goto         // unconditional jump to line RhsA.Line
	GotoIfTrue   // jump to RhsA.Line if RhsB is truthy (fuzzy bool coercion)
	GotoIfFalse  // jump to RhsA.Line if RhsB is not truthy
	GotoIfTruly  // jump to RhsA.Line if RhsB is a strict boolean true (Number 1, not merely nonzero-fuzzy)

	Return // copy context's slot 0 into the caller's destination slot and pop the context

	BindAssign // Lhs = new function value capturing the current context as Outer

	MakeList  // Lhs = new list built from ArgCount popped args, in push order
	MakeMap   // Lhs = new map built from ArgCount popped args, taken as key/value pairs
	MakeProto // Lhs = new empty map whose __isa is set to RhsA
)

func (op Opcode) String() string {
	switch op {
	case Nop:
		return "NOP"
	case Binary:
		return "BINARY"
	case Unary:
		return "UNARY"
	case Assign:
		return "ASSIGN"
	case ElemLoad:
		return "ELEM_LOAD"
	case ElemStore:
		return "ELEM_STORE"
	case PushParam:
		return "PUSH_PARAM"
	case CallFunction:
		return "CALL_FUNCTION"
	case CallIntrinsic:
		return "CALL_INTRINSIC"
	case Goto:
		return "GOTO"
	case GotoIfTrue:
		return "GOTO_IF"
	case GotoIfFalse:
		return "GOTO_IF_NOT"
	case GotoIfTruly:
		return "GOTO_IF_TRULY"
	case Return:
		return "RETURN"
	case BindAssign:
		return "BIND_ASSIGN"
	case MakeList:
		return "MAKE_LIST"
	case MakeMap:
		return "MAKE_MAP"
	case MakeProto:
		return "MAKE_PROTO"
	}
	return "UNKNOWN"
}

// BinOp/UnOp name the specific arithmetic/comparison/logical operator a
// Binary/Unary line applies.
type BinOp string

const (
	Add      BinOp = "+"
	Sub      BinOp = "-"
	Mul      BinOp = "*"
	Div      BinOp = "/"
	Mod      BinOp = "%"
	Pow      BinOp = "^"
	CmpEq    BinOp = "=="
	CmpNotEq BinOp = "!="
	CmpGt    BinOp = ">"
	CmpGtEq  BinOp = ">="
	CmpLt    BinOp = "<"
	CmpLtEq  BinOp = "<="
	LogAnd   BinOp = "and"
	LogOr    BinOp = "or"
	IsaOp    BinOp = "isa"
)

type UnOp string

const (
	Neg UnOp = "-"
	Not UnOp = "not"
	Len UnOp = "len" // sequence/map length, backing the for-loop lowering
)

// OperandKind discriminates what an Operand refers to.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandValue
	OperandVar
	OperandTemp
	OperandSeqElem
	OperandLine // a raw target line number, used by jump/call opcodes
)

// Operand is a TAC line operand: either an immediate Value, or one of the
// three lvalue/rvalue handles from spec.md section 3.1 (variable, temp,
// sequence-element reference), or a literal line number for jump targets.
// Exactly one field cluster is meaningful, selected by Kind.
type Operand struct {
	Kind OperandKind

	Val Value // OperandValue

	Name     string // OperandVar: identifier
	NoInvoke bool   // OperandVar/OperandSeqElem: set by the '@' address-of form

	Temp int // OperandTemp: slot number

	Seq   *Operand // OperandSeqElem: the sequence expression
	Index *Operand // OperandSeqElem: the index expression

	Line int // OperandLine: target line number (back-patched)
}

// Value is a narrow alias so tac doesn't need to re-export value.Value in
// every signature; kept distinct from value.Value only so this file reads
// standalone. Both names refer to the exact same interface type.
type Value = value.Value

func ValueOperand(v Value) Operand            { return Operand{Kind: OperandValue, Val: v} }
func VarOperand(name string, noInvoke bool) Operand {
	return Operand{Kind: OperandVar, Name: name, NoInvoke: noInvoke}
}
func TempOperand(slot int) Operand { return Operand{Kind: OperandTemp, Temp: slot} }
func SeqElemOperand(seq, idx Operand, noInvoke bool) Operand {
	return Operand{Kind: OperandSeqElem, Seq: &seq, Index: &idx, NoInvoke: noInvoke}
}
func LineOperand(line int) Operand { return Operand{Kind: OperandLine, Line: line} }

func (o Operand) String() string {
	switch o.Kind {
	case OperandValue:
		if o.Val == nil {
			return "<nil>"
		}
		return o.Val.CodeForm(value.DefaultRecursionLimit)
	case OperandVar:
		return o.Name
	case OperandTemp:
		return fmt.Sprintf("t%d", o.Temp)
	case OperandSeqElem:
		return fmt.Sprintf("%s[%s]", o.Seq, o.Index)
	case OperandLine:
		return fmt.Sprintf("L%d", o.Line)
	default:
		return "-"
	}
}

// Line is one TAC instruction: (lhs, opcode, rhsA, rhsB, location). CallFunction
// and CallIntrinsic carry extra call-shape fields alongside Lhs/RhsA/RhsB
// rather than overload the generic operand slots.
type Line struct {
	Op   Opcode
	Bin  BinOp // meaningful when Op == Binary
	Un   UnOp  // meaningful when Op == Unary
	Lhs  Operand
	RhsA Operand
	RhsB Operand
	Loc  source.Location

	// CallFunction: RhsA is the callee operand, ArgCount args were already
	// pushed via PushParam, ViaDot marks dot-call syntax (x.m(...)).
	ArgCount int
	ViaDot   bool

	// CallIntrinsic: IntrinsicID selects the registered native function.
	IntrinsicID int
}

func (l Line) String() string {
	tag := l.Op.String()
	if l.Op == Binary {
		tag = string(l.Bin)
	} else if l.Op == Unary {
		tag = string(l.Un)
	}
	return fmt.Sprintf("%s = %s %s %s", l.Lhs, l.RhsA, tag, l.RhsB)
}

// Program is a flat block of TAC lines - the top-level code block, or a
// function's code block (every FunctionValue.Code is a *Program).
type Program struct {
	Lines []Line
}

func NewProgram() *Program { return &Program{} }

// Len satisfies value.CodeBlock so a FunctionValue can hold a *Program
// without value needing to import tac.
func (p *Program) Len() int { return len(p.Lines) }

// Emit appends a line and returns its index (used as a jump target and for
// back-patching).
func (p *Program) Emit(l Line) int {
	p.Lines = append(p.Lines, l)
	return len(p.Lines) - 1
}

// PatchTarget rewrites the target line number carried by an OperandLine
// operand already emitted at lineIdx, in the Lhs/RhsA/RhsB slot named by
// which.
func (p *Program) PatchTarget(lineIdx int, which OperandSlot, target int) {
	ln := &p.Lines[lineIdx]
	switch which {
	case SlotRhsA:
		ln.RhsA.Line = target
	case SlotRhsB:
		ln.RhsB.Line = target
	case SlotLhs:
		ln.Lhs.Line = target
	}
}

// OperandSlot names which operand of a Line PatchTarget should rewrite.
type OperandSlot uint8

const (
	SlotLhs OperandSlot = iota
	SlotRhsA
	SlotRhsB
)

// At returns the line at idx, bounds-checked for the machine's step loop.
func (p *Program) At(idx int) (Line, bool) {
	if idx < 0 || idx >= len(p.Lines) {
		return Line{}, false
	}
	return p.Lines[idx], true
}
