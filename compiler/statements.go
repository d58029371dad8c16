// ==============================================================================================
// FILE: compiler/statements.go
// ==============================================================================================
// PACKAGE: compiler
// PURPOSE: Statement-level grammar (spec.md section 4.2): assignment, if/while/for, break,
//          continue, return, and bare expression statements. Forward jumps are patched here
//          once their matching "end ..." keyword (or, for break/continue, the loop's close) is
//          reached.
// ==============================================================================================

package compiler

import (
	"lumen/tac"
	"lumen/token"
	"lumen/value"
)

// compileStatementList compiles statements until stop() reports true (used
// by block bodies) or, for the top-level call where stop is nil, until
// input is exhausted. Hitting true end-of-input while stop != nil means the
// block never closed - the REPL "need more input" signal.
func (c *Compiler) compileStatementList(stop func() bool) {
	for {
		c.skipEOLs()
		if c.isEOF() {
			if stop != nil {
				c.needMoreInput = true
			}
			return
		}
		if stop != nil && stop() {
			return
		}
		before := c.errCount()
		c.compileStatement()
		if c.needMoreInput {
			return
		}
		if c.errCount() > before {
			c.resync()
		}
	}
}

func (c *Compiler) failed() bool { return c.err != nil || c.needMoreInput }

func (c *Compiler) errCount() int {
	if c.errs == nil {
		return 0
	}
	return len(c.errs.Errors)
}

// resync skips tokens up to the next statement boundary after a syntax
// error, so the rest of the chunk can still be scanned for diagnostics
// (Errors()) even though Compile() will only ever report the first one.
func (c *Compiler) resync() {
	for !c.isEOF() && !(c.cur.Kind == token.EOL && c.cur.Literal != "") {
		c.advance()
	}
}

func (c *Compiler) compileStatement() {
	switch {
	case c.curIsKeyword("if"):
		c.compileIf()
	case c.curIsKeyword("while"):
		c.compileWhile()
	case c.curIsKeyword("for"):
		c.compileFor()
	case c.curIsKeyword("break"):
		c.compileBreak()
	case c.curIsKeyword("continue"):
		c.compileContinue()
	case c.curIsKeyword("return"):
		c.compileReturn()
	default:
		c.compileSimpleStatement()
	}
}

// compileSimpleStatement handles `lvalue = expr` and bare expression
// statements (the latter's value is recorded into the reserved `_`
// identifier, spec.md section 4.4's implicit-result behavior).
func (c *Compiler) compileSimpleStatement() {
	loc := c.loc()
	lhs, assignable := c.compileAssignableExpression()
	if c.failed() {
		return
	}

	if c.curIsOp(token.OpAssign) {
		c.advance()
		rhs := c.compileExpression(precLowest)
		if c.failed() {
			return
		}
		if !assignable {
			c.fail("left-hand side of assignment is not assignable")
			return
		}
		c.emit(tac.Line{Op: tac.Assign, Lhs: lhs, RhsA: rhs, Loc: loc})
		return
	}

	// Bare expression statement: resolve its value and record it as the
	// implicit result.
	tmp := c.newTemp()
	c.emit(tac.Line{Op: tac.Assign, Lhs: tmp, RhsA: lhs, Loc: loc})
	c.emit(tac.Line{Op: tac.Assign, Lhs: tac.VarOperand("_", false), RhsA: tmp, Loc: loc})
}

func (c *Compiler) compileIf() {
	loc := c.loc()
	c.advance() // 'if'
	cond := c.compileExpression(precLowest)
	if c.failed() {
		return
	}
	if !c.expectKeyword("then") {
		return
	}

	if !(c.cur.Kind == token.EOL && c.cur.Literal != "") {
		// Single-line form: "if expr then stmt", no end-if.
		skip := c.emitCondGotoPlaceholder(tac.GotoIfFalse, cond, loc)
		c.compileStatement()
		if c.failed() {
			return
		}
		c.patch(skip, c.here())
		return
	}

	var ends []pendingPatch
	skip := c.emitCondGotoPlaceholder(tac.GotoIfFalse, cond, loc)
	c.skipEOLs()
	c.compileStatementList(c.atIfBranchEnd)
	if c.failed() {
		return
	}
	ends = append(ends, pendingPatch{line: c.emitGotoPlaceholder(loc), slot: tac.SlotRhsA})
	c.patch(skip, c.here())

	for c.curIsKeyword("else if") {
		branchLoc := c.loc()
		c.advance()
		bcond := c.compileExpression(precLowest)
		if c.failed() {
			return
		}
		if !c.expectKeyword("then") {
			return
		}
		c.skipEOLs()
		bskip := c.emitCondGotoPlaceholder(tac.GotoIfFalse, bcond, branchLoc)
		c.compileStatementList(c.atIfBranchEnd)
		if c.failed() {
			return
		}
		ends = append(ends, pendingPatch{line: c.emitGotoPlaceholder(branchLoc), slot: tac.SlotRhsA})
		c.patch(bskip, c.here())
	}

	if c.curIsKeyword("else") {
		c.advance()
		c.skipEOLs()
		c.compileStatementList(c.atIfBranchEnd)
		if c.failed() {
			return
		}
	}

	if !c.expectKeyword("end if") {
		return
	}
	end := c.here()
	for _, p := range ends {
		c.prog.PatchTarget(p.line, p.slot, end)
	}
}

func (c *Compiler) atIfBranchEnd() bool {
	return c.curIsKeyword("else if") || c.curIsKeyword("else") || c.curIsKeyword("end if")
}

func (c *Compiler) compileWhile() {
	loc := c.loc()
	c.advance() // 'while'
	checkTop := c.here()
	cond := c.compileExpression(precLowest)
	if c.failed() {
		return
	}
	skip := c.emitCondGotoPlaceholder(tac.GotoIfFalse, cond, loc)
	c.skipEOLs()

	c.loops = append(c.loops, loopFrame{})
	c.compileStatementList(func() bool { return c.curIsKeyword("end while") })
	frame := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	if c.failed() {
		return
	}

	c.emit(tac.Line{Op: tac.Goto, RhsA: tac.LineOperand(checkTop), Loc: loc})
	if !c.expectKeyword("end while") {
		return
	}
	end := c.here()
	c.patch(skip, end)
	for _, p := range frame.breaks {
		c.prog.PatchTarget(p.line, p.slot, end)
	}
	for _, p := range frame.continues {
		c.prog.PatchTarget(p.line, p.slot, checkTop)
	}
}

// compileFor implements `for ident in expr ... end for` by iterating a
// numeric index over the evaluated sequence's length (spec.md section 4.2;
// length comes from the `len` unary operator, an implementation-level
// addition documented in DESIGN.md alongside the other TAC opcodes).
func (c *Compiler) compileFor() {
	loc := c.loc()
	c.advance() // 'for'
	if c.cur.Kind != token.Identifier {
		c.fail("expected identifier after 'for'")
		return
	}
	varName := c.cur.Literal
	c.advance()
	if !c.expectKeyword("in") {
		return
	}
	seqExpr := c.compileExpression(precLowest)
	if c.failed() {
		return
	}
	c.skipEOLs()

	seqTmp := c.newTemp()
	idxTmp := c.newTemp()
	c.emit(tac.Line{Op: tac.Assign, Lhs: seqTmp, RhsA: seqExpr, Loc: loc})
	c.emit(tac.Line{Op: tac.Assign, Lhs: idxTmp, RhsA: tac.ValueOperand(value.Zero), Loc: loc})

	checkTop := c.here()
	lenTmp := c.newTemp()
	c.emit(tac.Line{Op: tac.Unary, Un: tac.Len, Lhs: lenTmp, RhsA: seqTmp, Loc: loc})
	condTmp := c.newTemp()
	c.emit(tac.Line{Op: tac.Binary, Bin: tac.CmpLt, Lhs: condTmp, RhsA: idxTmp, RhsB: lenTmp, Loc: loc})
	skip := c.emitCondGotoPlaceholder(tac.GotoIfFalse, condTmp, loc)

	elemTmp := c.newTemp()
	c.emit(tac.Line{Op: tac.ElemLoad, Lhs: elemTmp, RhsA: seqTmp, RhsB: idxTmp, Loc: loc})
	c.emit(tac.Line{Op: tac.Assign, Lhs: tac.VarOperand(varName, true), RhsA: elemTmp, Loc: loc})

	c.loops = append(c.loops, loopFrame{})
	c.compileStatementList(func() bool { return c.curIsKeyword("end for") })
	frame := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	if c.failed() {
		return
	}

	incrAddr := c.here()
	c.emit(tac.Line{Op: tac.Binary, Bin: tac.Add, Lhs: idxTmp, RhsA: idxTmp, RhsB: tac.ValueOperand(value.One), Loc: loc})
	c.emit(tac.Line{Op: tac.Goto, RhsA: tac.LineOperand(checkTop), Loc: loc})

	if !c.expectKeyword("end for") {
		return
	}
	end := c.here()
	c.patch(skip, end)
	for _, p := range frame.breaks {
		c.prog.PatchTarget(p.line, p.slot, end)
	}
	for _, p := range frame.continues {
		c.prog.PatchTarget(p.line, p.slot, incrAddr)
	}
}

func (c *Compiler) compileBreak() {
	loc := c.loc()
	c.advance()
	if len(c.loops) == 0 {
		c.fail("'break' outside a loop")
		return
	}
	line := c.emitGotoPlaceholder(loc)
	top := len(c.loops) - 1
	c.loops[top].breaks = append(c.loops[top].breaks, pendingPatch{line: line, slot: tac.SlotRhsA})
}

func (c *Compiler) compileContinue() {
	loc := c.loc()
	c.advance()
	if len(c.loops) == 0 {
		c.fail("'continue' outside a loop")
		return
	}
	line := c.emitGotoPlaceholder(loc)
	top := len(c.loops) - 1
	c.loops[top].continues = append(c.loops[top].continues, pendingPatch{line: line, slot: tac.SlotRhsA})
}

func (c *Compiler) compileReturn() {
	loc := c.loc()
	c.advance()
	var val tac.Operand
	if c.cur.Kind == token.EOL {
		val = tac.ValueOperand(value.Null)
	} else {
		val = c.compileExpression(precLowest)
		if c.failed() {
			return
		}
	}
	c.emit(tac.Line{Op: tac.Assign, Lhs: tac.TempOperand(0), RhsA: val, Loc: loc})
	c.emit(tac.Line{Op: tac.Return, Loc: loc})
}
