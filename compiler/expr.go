// ==============================================================================================
// FILE: compiler/expr.go
// ==============================================================================================
// PACKAGE: compiler
// PURPOSE: Expression grammar via Pratt parsing (spec.md section 4.2's precedence chain, lowest
//          to highest: or; and; not; comparison; + -; * / %; unary -; ^ (right-assoc); isa;
//          call/index/dot; atoms). Unlike a tree-building parser, each parselet here either
//          returns a bare tac.Operand (for atoms needing no computation - a variable reference,
//          a literal) or emits TAC lines into a fresh temp and returns that temp as the operand.
// ==============================================================================================

package compiler

import (
	"strconv"

	"lumen/source"
	"lumen/tac"
	"lumen/token"
	"lumen/value"
)

const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precCompare
	precAdd
	precMul
	precUnary
	precPow
	precIsa
	precCall
)

// infixPrecedence reports the binding power of cur (so the caller, sitting
// at some minimum precedence, knows whether to keep consuming).
func (c *Compiler) infixPrecedence() int {
	switch {
	case c.curIsKeyword("or"):
		return precOr
	case c.curIsKeyword("and"):
		return precAnd
	case c.curIsOp("=="), c.curIsOp("!="), c.curIsOp(">"), c.curIsOp(">="), c.curIsOp("<"), c.curIsOp("<="):
		return precCompare
	case c.curIsOp("+"), c.curIsOp("-"):
		return precAdd
	case c.curIsOp("*"), c.curIsOp("/"), c.curIsOp("%"):
		return precMul
	case c.curIsOp("^"):
		return precPow
	case c.curIsKeyword("isa"):
		return precIsa
	case c.curIsBracket("("), c.curIsBracket("["), c.curIsOp("."):
		return precCall
	}
	return precLowest
}

// compileExpression is the Pratt loop: parse one prefix/atom term, then
// keep folding in infix/postfix operators whose precedence exceeds minPrec.
func (c *Compiler) compileExpression(minPrec int) tac.Operand {
	left := c.compilePrefix()
	if c.failed() {
		return left
	}
	for !c.failed() && minPrec < c.infixPrecedence() {
		left = c.compileInfix(left)
	}
	return left
}

func (c *Compiler) compileAssignableExpression() (tac.Operand, bool) {
	op := c.compileExpression(precLowest)
	return op, op.Kind == tac.OperandVar || op.Kind == tac.OperandSeqElem
}

// ------------------------------------------------------------------------------------------
// Prefix / atom parselets
// ------------------------------------------------------------------------------------------

func (c *Compiler) compilePrefix() tac.Operand {
	loc := c.loc()

	switch {
	case c.cur.Kind == token.Number:
		return c.compileNumberLiteral()

	case c.cur.Kind == token.String:
		lit := c.cur.Literal
		c.advance()
		return tac.ValueOperand(value.NewString(lit))

	case c.cur.Kind == token.Identifier:
		name := c.cur.Literal
		c.advance()
		return tac.VarOperand(name, false)

	case c.curIsKeyword("true"):
		c.advance()
		return tac.ValueOperand(value.One)
	case c.curIsKeyword("false"):
		c.advance()
		return tac.ValueOperand(value.Zero)
	case c.curIsKeyword("null"):
		c.advance()
		return tac.ValueOperand(value.Null)

	case c.curIsKeyword("not"):
		c.advance()
		operand := c.compileExpression(precNot)
		return c.emitUnary(tac.Not, operand, loc)

	case c.curIsOp("-"):
		c.advance()
		operand := c.compileExpression(precUnary)
		return c.emitUnary(tac.Neg, operand, loc)

	case c.curIsOp("@"):
		c.advance()
		operand := c.compileExpression(precCall)
		operand.NoInvoke = true
		return operand

	case c.curIsKeyword("new"):
		c.advance()
		proto := c.compileExpression(precCall)
		dest := c.newTemp()
		c.emit(tac.Line{Op: tac.MakeProto, Lhs: dest, RhsA: proto, Loc: loc})
		return dest

	case c.curIsBracket("("):
		c.advance()
		inner := c.compileExpression(precLowest)
		c.expectBracket(")")
		return inner

	case c.curIsBracket("["):
		return c.compileListLiteral()

	case c.curIsBracket("{"):
		return c.compileMapLiteral()

	case c.curIsKeyword("function"):
		return c.compileFunctionLiteral()
	}

	c.fail("unexpected token %q", c.cur.Literal)
	return tac.ValueOperand(value.Null)
}

func (c *Compiler) compileNumberLiteral() tac.Operand {
	lit := c.cur.Literal
	n, err := parseNumber(lit)
	if err != nil {
		c.fail("invalid number literal %q", lit)
		c.advance()
		return tac.ValueOperand(value.Zero)
	}
	c.advance()
	return tac.ValueOperand(value.NewNumber(n))
}

func (c *Compiler) emitUnary(op tac.UnOp, operand tac.Operand, loc source.Location) tac.Operand {
	dest := c.newTemp()
	c.emit(tac.Line{Op: tac.Unary, Un: op, Lhs: dest, RhsA: operand, Loc: loc})
	return dest
}

func (c *Compiler) compileListLiteral() tac.Operand {
	loc := c.loc()
	c.advance() // '['
	count := 0
	if !c.curIsBracket("]") {
		for {
			elem := c.compileExpression(precLowest)
			if c.failed() {
				return tac.Operand{}
			}
			c.emit(tac.Line{Op: tac.PushParam, RhsA: elem, Loc: loc})
			count++
			if c.curIsOp(",") {
				c.advance()
				continue
			}
			break
		}
	}
	c.expectBracket("]")
	dest := c.newTemp()
	c.emit(tac.Line{Op: tac.MakeList, Lhs: dest, ArgCount: count, Loc: loc})
	return dest
}

func (c *Compiler) compileMapLiteral() tac.Operand {
	loc := c.loc()
	c.advance() // '{'
	count := 0
	if !c.curIsBracket("}") {
		for {
			key := c.compileExpression(precLowest)
			if c.failed() {
				return tac.Operand{}
			}
			c.expectOp(":")
			val := c.compileExpression(precLowest)
			if c.failed() {
				return tac.Operand{}
			}
			c.emit(tac.Line{Op: tac.PushParam, RhsA: key, Loc: loc})
			c.emit(tac.Line{Op: tac.PushParam, RhsA: val, Loc: loc})
			count += 2
			if c.curIsOp(",") {
				c.advance()
				continue
			}
			break
		}
	}
	c.expectBracket("}")
	dest := c.newTemp()
	c.emit(tac.Line{Op: tac.MakeMap, Lhs: dest, ArgCount: count, Loc: loc})
	return dest
}

// compileFunctionLiteral parses `function(params) ... end function` and
// emits a BindAssign whose template FunctionValue carries the compiled
// body - capturing the defining context's locals as Outer happens at
// BindAssign execution time, not here (spec.md section 3.2).
func (c *Compiler) compileFunctionLiteral() tac.Operand {
	loc := c.loc()
	c.advance() // 'function'
	if !c.expectBracket("(") {
		return tac.Operand{}
	}
	var params []value.Param
	if !c.curIsBracket(")") {
		for {
			if c.cur.Kind != token.Identifier {
				c.fail("expected parameter name")
				return tac.Operand{}
			}
			p := value.Param{Name: c.cur.Literal}
			c.advance()
			if c.curIsOp("=") {
				c.advance()
				defExpr := c.compilePrefix() // constant-only defaults
				if v, ok := operandAsConstant(defExpr); ok {
					p.Default = v
				} else {
					c.fail("parameter default must be a literal")
					return tac.Operand{}
				}
			}
			params = append(params, p)
			if c.curIsOp(",") {
				c.advance()
				continue
			}
			break
		}
	}
	if !c.expectBracket(")") {
		return tac.Operand{}
	}
	c.skipEOLs()

	sub := &Compiler{context: c.context, lex: c.lex, cur: c.cur, peek: c.peek, prog: tac.NewProgram()}
	sub.compileStatementList(func() bool { return sub.curIsKeyword("end function") })
	// Ensure every body falls through to a Null return.
	sub.emit(tac.Line{Op: tac.Assign, Lhs: tac.TempOperand(0), RhsA: tac.ValueOperand(value.Null), Loc: loc})
	sub.emit(tac.Line{Op: tac.Return, Loc: loc})

	c.cur, c.peek = sub.cur, sub.peek
	if sub.err != nil {
		c.err = sub.err
		return tac.Operand{}
	}
	if sub.needMoreInput {
		c.needMoreInput = true
		return tac.Operand{}
	}
	if !c.expectKeyword("end function") {
		return tac.Operand{}
	}

	tmpl := &value.FunctionValue{Params: params, Code: sub.prog}
	dest := c.newTemp()
	c.emit(tac.Line{Op: tac.BindAssign, Lhs: dest, RhsA: tac.ValueOperand(tmpl), Loc: loc})
	return dest
}

func parseNumber(lit string) (float64, error) {
	return strconv.ParseFloat(lit, 64)
}

func operandAsConstant(op tac.Operand) (value.Value, bool) {
	if op.Kind == tac.OperandValue {
		return op.Val, true
	}
	return nil, false
}

// ------------------------------------------------------------------------------------------
// Infix / postfix parselets
// ------------------------------------------------------------------------------------------

func (c *Compiler) compileInfix(left tac.Operand) tac.Operand {
	loc := c.loc()

	switch {
	case c.curIsKeyword("or"):
		c.advance()
		right := c.compileExpression(precOr)
		return c.emitBinary(tac.LogOr, left, right, loc)
	case c.curIsKeyword("and"):
		c.advance()
		right := c.compileExpression(precAnd)
		return c.emitBinary(tac.LogAnd, left, right, loc)
	case c.curIsKeyword("isa"):
		c.advance()
		right := c.compileExpression(precIsa)
		return c.emitBinary(tac.IsaOp, left, right, loc)

	case c.curIsOp("=="):
		c.advance()
		return c.emitBinary(tac.CmpEq, left, c.compileExpression(precCompare), loc)
	case c.curIsOp("!="):
		c.advance()
		return c.emitBinary(tac.CmpNotEq, left, c.compileExpression(precCompare), loc)
	case c.curIsOp(">"):
		c.advance()
		return c.emitBinary(tac.CmpGt, left, c.compileExpression(precCompare), loc)
	case c.curIsOp(">="):
		c.advance()
		return c.emitBinary(tac.CmpGtEq, left, c.compileExpression(precCompare), loc)
	case c.curIsOp("<"):
		c.advance()
		return c.emitBinary(tac.CmpLt, left, c.compileExpression(precCompare), loc)
	case c.curIsOp("<="):
		c.advance()
		return c.emitBinary(tac.CmpLtEq, left, c.compileExpression(precCompare), loc)

	case c.curIsOp("+"):
		c.advance()
		return c.emitBinary(tac.Add, left, c.compileExpression(precAdd), loc)
	case c.curIsOp("-"):
		c.advance()
		return c.emitBinary(tac.Sub, left, c.compileExpression(precAdd), loc)
	case c.curIsOp("*"):
		c.advance()
		return c.emitBinary(tac.Mul, left, c.compileExpression(precMul), loc)
	case c.curIsOp("/"):
		c.advance()
		return c.emitBinary(tac.Div, left, c.compileExpression(precMul), loc)
	case c.curIsOp("%"):
		c.advance()
		return c.emitBinary(tac.Mod, left, c.compileExpression(precMul), loc)

	case c.curIsOp("^"):
		c.advance()
		right := c.compileExpression(precPow - 1) // right-associative
		return c.emitBinary(tac.Pow, left, right, loc)

	case c.curIsBracket("("):
		return c.compileCall(left, false)
	case c.curIsBracket("["):
		c.advance()
		idx := c.compileExpression(precLowest)
		c.expectBracket("]")
		return tac.SeqElemOperand(left, idx, false)
	case c.curIsOp("."):
		c.advance()
		if c.cur.Kind != token.Identifier {
			c.fail("expected field name after '.'")
			return left
		}
		name := c.cur.Literal
		c.advance()
		field := tac.SeqElemOperand(left, tac.ValueOperand(value.NewString(name)), false)
		if c.curIsBracket("(") {
			return c.compileCall(field, true)
		}
		return field
	}

	c.fail("unexpected infix token %q", c.cur.Literal)
	return left
}

func (c *Compiler) emitBinary(op tac.BinOp, left, right tac.Operand, loc source.Location) tac.Operand {
	dest := c.newTemp()
	c.emit(tac.Line{Op: tac.Binary, Bin: op, Lhs: dest, RhsA: left, RhsB: right, Loc: loc})
	return dest
}

// compileCall parses a parenthesized argument list and emits the
// PushParam/CallFunction sequence. viaDot marks dot-call syntax (spec.md
// section 4.2: the receiver was already pushed as callee's own seq operand
// and is re-read as the implicit first argument here).
func (c *Compiler) compileCall(callee tac.Operand, viaDot bool) tac.Operand {
	loc := c.loc()
	c.advance() // '('
	count := 0
	if viaDot {
		c.emit(tac.Line{Op: tac.PushParam, RhsA: *callee.Seq, Loc: loc})
		count++
	}
	if !c.curIsBracket(")") {
		for {
			arg := c.compileExpression(precLowest)
			if c.failed() {
				return tac.Operand{}
			}
			c.emit(tac.Line{Op: tac.PushParam, RhsA: arg, Loc: loc})
			count++
			if c.curIsOp(",") {
				c.advance()
				continue
			}
			break
		}
	}
	c.expectBracket(")")
	dest := c.newTemp()
	c.emit(tac.Line{
		Op:       tac.CallFunction,
		Lhs:      dest,
		RhsA:     callee,
		ArgCount: count,
		ViaDot:   viaDot,
		Loc:      loc,
	})
	return dest
}
