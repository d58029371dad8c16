// ==============================================================================================
// FILE: lexer/lexer_test.go
// ==============================================================================================
// PURPOSE: Exercises the concrete tokenization scenarios from spec.md section 8.2, plus the
//          conjoined-keyword and doubled-quote edge cases that make this lexer unusual.
// ==============================================================================================

package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lumen/token"
)

func allTokens(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New("test", src)
	var toks []token.Token
	for {
		tok := l.Dequeue()
		toks = append(toks, tok)
		if tok.Kind == token.EOL && tok.Literal == "" {
			break
		}
	}
	return toks
}

func TestTokenizeArithmetic(t *testing.T) {
	toks := allTokens(t, "42 * 3.14158")
	assert.Equal(t, token.Number, toks[0].Kind)
	assert.Equal(t, "42", toks[0].Literal)
	assert.Equal(t, token.Op, toks[1].Kind)
	assert.Equal(t, token.OpStar, toks[1].Literal)
	assert.Equal(t, token.Number, toks[2].Kind)
	assert.Equal(t, "3.14158", toks[2].Literal)
	assert.Equal(t, 1, toks[0].Line)
}

func TestConjoinedEndIf(t *testing.T) {
	toks := allTokens(t, "6*(.1-foo) end if // comment")
	var last token.Token
	for _, tk := range toks {
		if tk.Kind == token.EOL && tk.Literal == "" {
			break
		}
		last = tk
	}
	assert.Equal(t, token.KeywordTok, last.Kind)
	assert.Equal(t, "end if", last.Literal)
}

func TestDoubledQuoteString(t *testing.T) {
	toks := allTokens(t, `"isn't ""real"""`)
	assert.Equal(t, token.String, toks[0].Kind)
	assert.Equal(t, `isn't "real"`, toks[0].Literal)
}

func TestElseIfConjoining(t *testing.T) {
	toks := allTokens(t, "else if x then")
	assert.Equal(t, token.KeywordTok, toks[0].Kind)
	assert.Equal(t, "else if", toks[0].Literal)
}

func TestElseAloneNotConjoined(t *testing.T) {
	toks := allTokens(t, "else\n")
	assert.Equal(t, token.KeywordTok, toks[0].Kind)
	assert.Equal(t, "else", toks[0].Literal)
}

func TestEndWithoutKeywordFails(t *testing.T) {
	l := New("test", "end\n")
	l.Dequeue()
	assert.Error(t, l.Err())
}

func TestSemicolonIsEOLWithoutLineIncrement(t *testing.T) {
	l := New("test", "x; y")
	l.Dequeue() // x
	semi := l.Dequeue()
	assert.Equal(t, token.EOL, semi.Kind)
	assert.Equal(t, 1, l.Line())
}

func TestNewlineIncrementsLine(t *testing.T) {
	l := New("test", "x\ny")
	l.Dequeue() // x
	l.Dequeue() // EOL
	y := l.Dequeue()
	assert.Equal(t, 2, y.Line)
}

func TestTwoCharOperatorsBeforePrefix(t *testing.T) {
	toks := allTokens(t, "a >= b <= c == d != e")
	ops := []string{}
	for _, tk := range toks {
		if tk.Kind == token.Op {
			ops = append(ops, tk.Literal)
		}
	}
	assert.Equal(t, []string{token.OpGreaterEq, token.OpLessEq, token.OpEq, token.OpNotEq}, ops)
}

func TestNegativeNumberIsTwoTokens(t *testing.T) {
	// The language has no unary-minus-aware lexer token; '-' is always a
	// separate operator and the parser decides whether it's unary or binary.
	toks := allTokens(t, "-5")
	assert.Equal(t, token.Op, toks[0].Kind)
	assert.Equal(t, token.OpMinus, toks[0].Literal)
	assert.Equal(t, token.Number, toks[1].Kind)
}

func TestLeadingDotNumber(t *testing.T) {
	toks := allTokens(t, ".5")
	assert.Equal(t, token.Number, toks[0].Kind)
	assert.Equal(t, ".5", toks[0].Literal)
}

func TestIdentifierVsKeyword(t *testing.T) {
	toks := allTokens(t, "ifx if")
	assert.Equal(t, token.Identifier, toks[0].Kind)
	assert.Equal(t, token.KeywordTok, toks[1].Kind)
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New("test", "a b")
	first := l.Peek()
	second := l.Peek()
	assert.Equal(t, first, second)
	third := l.Dequeue()
	assert.Equal(t, first, third)
	fourth := l.Dequeue()
	assert.Equal(t, "b", fourth.Literal)
}

func TestCommentStartRespectsStrings(t *testing.T) {
	line := `x = "http://x" // trailing`
	want := len(`x = "http://x" `)
	assert.Equal(t, want, CommentStart(line))
	assert.Equal(t, -1, CommentStart(`s = "a // not a comment"`))
}

func TestLastToken(t *testing.T) {
	tok, ok := LastToken("test", "x = 1 +")
	assert.True(t, ok)
	assert.Equal(t, token.OpPlus, tok.Literal)
	assert.True(t, ContinuationInducing(tok))
}
