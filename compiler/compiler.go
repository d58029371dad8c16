// ==============================================================================================
// FILE: compiler/compiler.go
// ==============================================================================================
// PACKAGE: compiler
// PURPOSE: Single-pass recursive-descent compiler (spec.md section 4.2). Consumes the lexer's
//          token stream and emits TAC lines directly into a growing *tac.Program - there is no
//          separate AST anywhere in this pipeline. Forward jumps (if/while/for/break/continue)
//          are emitted with a placeholder target and recorded on a per-block stack, patched once
//          the matching "end ..." keyword is parsed.
// ==============================================================================================

package compiler

import (
	"github.com/hashicorp/go-multierror"

	"lumen/lexer"
	"lumen/scripterr"
	"lumen/source"
	"lumen/tac"
	"lumen/token"
	"lumen/value"
)

// Compiler compiles one source chunk into one TAC program. It is single-use:
// construct one per chunk of text to compile (spec.md section 3.3 notes
// REPL continuation is handled by re-compiling the accumulated buffer, see
// DESIGN.md).
type Compiler struct {
	context string
	lex     *lexer.Lexer

	cur  token.Token
	peek token.Token

	prog     *tac.Program
	nextTemp int

	loops []loopFrame

	needMoreInput bool
	err           *scripterr.Error

	// errs accumulates the syntax problems recorded in this chunk, not just
	// the first, though Compile() itself still reports only the first (err).
	// Once err is set, each later statement stops after its first term, so
	// only problems found in a statement's opening keyword or first term are
	// added after the first one.
	errs *multierror.Error
}

// loopFrame tracks the state a while/for loop needs to resolve its own
// "continue" (jump straight to top) and "break" (deferred until the loop's
// closing end-keyword is reached) targets.
type loopFrame struct {
	breaks    []pendingPatch
	continues []pendingPatch
}

// pendingPatch is a forward jump emitted before its target line is known.
type pendingPatch struct {
	line int
	slot tac.OperandSlot
}

// New constructs a Compiler over source text attributed to context (the
// name that will appear in error locations, e.g. "main" or a REPL tag).
func New(context, src string) *Compiler {
	c := &Compiler{
		context: context,
		lex:     lexer.New(context, src),
		prog:    tac.NewProgram(),
	}
	c.advance()
	c.advance()
	return c
}

// NeedMoreInput reports whether compilation stopped because the source
// ended while a block (if/while/for/function) was still open - the signal
// a REPL host uses to decide to prompt for another line rather than
// reporting a Compiler error.
func (c *Compiler) NeedMoreInput() bool { return c.needMoreInput }

// Compile runs the compiler to completion, returning the finished top-level
// program. If the source was incomplete, returns (nil, nil) with
// NeedMoreInput() now true; otherwise returns (nil, err) on a real error.
func (c *Compiler) Compile() (*tac.Program, *scripterr.Error) {
	c.compileStatementList(nil)
	if c.needMoreInput {
		return nil, nil
	}
	if c.err != nil {
		return nil, c.err
	}
	if err := c.lex.Err(); err != nil {
		return nil, scripterr.Lexer(c.loc(), "%s", err.Error())
	}
	return c.prog, nil
}

// ------------------------------------------------------------------------------------------
// Token plumbing
// ------------------------------------------------------------------------------------------

func (c *Compiler) advance() {
	c.cur = c.peek
	c.peek = c.lex.Dequeue()
}

func (c *Compiler) loc() source.Location {
	return source.Location{Context: c.context, Line: c.cur.Line}
}

// isEOF reports whether cur is the end-of-input EOL sentinel (an EOL token
// with no literal text - a real newline/semicolon EOL always carries one).
func (c *Compiler) isEOF() bool {
	return c.cur.Kind == token.EOL && c.cur.Literal == ""
}

func (c *Compiler) curIsKeyword(word string) bool {
	return c.cur.Kind == token.KeywordTok && c.cur.Literal == word
}

func (c *Compiler) curIsOp(lit string) bool {
	return c.cur.Kind == token.Op && c.cur.Literal == lit
}

func (c *Compiler) curIsBracket(lit string) bool {
	return c.cur.Kind == token.Bracket && c.cur.Literal == lit
}

func (c *Compiler) fail(format string, args ...any) {
	e := scripterr.Compiler(c.loc(), format, args...)
	c.errs = multierror.Append(c.errs, e)
	if c.err == nil {
		c.err = e
	}
}

// Errors returns the syntax problems collected in this chunk, oldest
// first (see errs for which later problems get recorded). Compile() itself
// only ever reports the first one (the host façade's single-error
// contract).
func (c *Compiler) Errors() *multierror.Error { return c.errs }

func (c *Compiler) expectBracket(lit string) bool {
	if c.curIsBracket(lit) {
		c.advance()
		return true
	}
	c.fail("expected %q, got %q", lit, c.cur.Literal)
	return false
}

func (c *Compiler) expectOp(lit string) bool {
	if c.curIsOp(lit) {
		c.advance()
		return true
	}
	c.fail("expected %q, got %q", lit, c.cur.Literal)
	return false
}

func (c *Compiler) expectKeyword(word string) bool {
	if c.curIsKeyword(word) {
		c.advance()
		return true
	}
	c.fail("expected %q, got %q", word, c.cur.Literal)
	return false
}

// skipEOLs consumes any run of statement-separator tokens (newline or `;`).
func (c *Compiler) skipEOLs() {
	for c.cur.Kind == token.EOL && c.cur.Literal != "" {
		c.advance()
	}
}

// ------------------------------------------------------------------------------------------
// Emission helpers
// ------------------------------------------------------------------------------------------

func (c *Compiler) newTemp() tac.Operand {
	t := c.nextTemp
	c.nextTemp++
	return tac.TempOperand(t)
}

func (c *Compiler) emit(ln tac.Line) int {
	ln.Loc = c.mergeLoc(ln.Loc)
	return c.prog.Emit(ln)
}

func (c *Compiler) mergeLoc(loc source.Location) source.Location {
	if loc.Zero() {
		return c.loc()
	}
	return loc
}

// emitGotoPlaceholder emits an unconditional jump whose target is not yet
// known, returning the line index to patch later.
func (c *Compiler) emitGotoPlaceholder(loc source.Location) int {
	return c.emit(tac.Line{Op: tac.Goto, RhsA: tac.LineOperand(-1), Loc: loc})
}

func (c *Compiler) emitCondGotoPlaceholder(op tac.Opcode, cond tac.Operand, loc source.Location) int {
	return c.emit(tac.Line{Op: op, RhsA: tac.LineOperand(-1), RhsB: cond, Loc: loc})
}

func (c *Compiler) patch(lineIdx int, target int) {
	c.prog.PatchTarget(lineIdx, tac.SlotRhsA, target)
}

func (c *Compiler) here() int {
	return len(c.prog.Lines)
}

// Value is a narrow alias kept local for readability in this package's
// signatures.
type Value = value.Value
