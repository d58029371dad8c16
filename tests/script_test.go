// ==============================================================================================
// FILE: tests/script_test.go
// ==============================================================================================
// PURPOSE: End-to-end tests driving the lumen/interp host façade the way an embedding host
//          would: Source in, structured errors or a final "_" value out. No test here touches
//          the compiler/vm internals directly.
// ==============================================================================================

package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/interp"
	"lumen/scripterr"
	"lumen/value"
)

// runCode compiles and runs input to completion and returns the program's
// final implicit result (the "_" global). Compile-time failures and
// unclosed blocks are test-infrastructure failures, not expected outcomes,
// so they fail the test immediately.
func runCode(t *testing.T, input string) value.Value {
	t.Helper()
	v, err := runCodeCatching(t, input)
	require.Nil(t, err, "unexpected runtime error")
	return v
}

// runCodeCatching is like runCode but returns a runtime error instead of
// failing the test, for scenarios that are expected to raise one.
func runCodeCatching(t *testing.T, input string) (value.Value, *scripterr.Error) {
	t.Helper()
	var runErr *scripterr.Error
	it := interp.New(interp.WithErrorSink(func(e *scripterr.Error) {
		if runErr == nil {
			runErr = e
		}
	}))
	it.Reset(interp.Source{Context: "test", Text: input})

	err := it.Compile()
	require.Nil(t, err, "compile error")
	require.False(t, it.NeedMoreInput(), "input left an unclosed block")

	it.RunUntilDone(interp.DefaultTimeLimit, false)
	if runErr != nil {
		return nil, runErr
	}
	v, _ := it.GetGlobalValue("_")
	return v, nil
}

func assertNumber(t *testing.T, v value.Value, expected float64) {
	t.Helper()
	n, ok := v.(*value.NumberValue)
	require.True(t, ok, "result is not a number, got %T (%+v)", v, v)
	assert.Equal(t, expected, n.V)
}

func assertString(t *testing.T, v value.Value, expected string) {
	t.Helper()
	s, ok := v.(*value.StringValue)
	require.True(t, ok, "result is not a string, got %T (%+v)", v, v)
	assert.Equal(t, expected, s.V)
}

func TestSystem_FibonacciRecursion(t *testing.T) {
	input := `
fib = function(n)
	if n < 2 then
		return n
	end if
	return fib(n - 1) + fib(n - 2)
end function
fib(12)
`
	assertNumber(t, runCode(t, input), 144)
}

func TestSystem_HigherOrderFunction(t *testing.T) {
	input := `
apply = function(f, x)
	return f(x)
end function
double = function(n)
	return n * 2
end function
apply(@double, 21)
`
	assertNumber(t, runCode(t, input), 42)
}

func TestSystem_ClosureCapturesOuterLocal(t *testing.T) {
	input := `
makeCounter = function()
	count = 0
	increment = function()
		count = count + 1
		return count
	end function
	return increment
end function
counter = makeCounter()
counter()
counter()
counter()
`
	assertNumber(t, runCode(t, input), 3)
}

func TestSystem_PrototypeChainLookup(t *testing.T) {
	input := `
animal = {"sound": "..."}
animal.speak = function(self)
	return self.sound
end function
dog = new animal
dog.sound = "Woof"
dog.speak()
`
	assertString(t, runCode(t, input), "Woof")
}

func TestSystem_ShadowingAndScope(t *testing.T) {
	input := `
x = 1
shadow = function()
	x = 2
	return x
end function
inner = shadow()
outside = x
inner * 10 + outside
`
	assertNumber(t, runCode(t, input), 21)
}

func TestSystem_ListIterationAndNegativeIndex(t *testing.T) {
	input := `
items = [10, 20, 30, 40]
total = 0
for item in items
	total = total + item
end for
total + items[-1]
`
	assertNumber(t, runCode(t, input), 140)
}

func TestSystem_StringConcatenationAcrossScopes(t *testing.T) {
	input := `
greet = function(name)
	prefix = "Hello, "
	return prefix + name + "!"
end function
greet("lumen")
`
	assertString(t, runCode(t, input), "Hello, lumen!")
}

func TestSystem_EdgeCase_UndefinedIdentifier(t *testing.T) {
	_, err := runCodeCatching(t, `missingVariable + 1`)
	require.NotNil(t, err)
	assert.Equal(t, scripterr.KindRuntime, err.Kind)
	assert.Equal(t, scripterr.RuntimeUndefinedIdentifier, err.RuntimeKind)
}

func TestSystem_EdgeCase_IndexOutOfRange(t *testing.T) {
	_, err := runCodeCatching(t, `items = [1, 2, 3]
items[10]`)
	require.NotNil(t, err)
	assert.Equal(t, scripterr.KindRuntime, err.Kind)
	assert.Equal(t, scripterr.RuntimeIndexOutOfRange, err.RuntimeKind)
}

func TestSystem_EdgeCase_KeyNotFound(t *testing.T) {
	_, err := runCodeCatching(t, `m = {"a": 1}
m.b`)
	require.NotNil(t, err)
	assert.Equal(t, scripterr.KindRuntime, err.Kind)
	assert.Equal(t, scripterr.RuntimeKeyNotFound, err.RuntimeKind)
}

func TestSystem_CompileError_UnclosedIf(t *testing.T) {
	it := interp.New()
	it.Reset(interp.Source{Context: "test", Text: "if true then\nx = 1"})
	err := it.Compile()
	require.Nil(t, err, "compile errored instead of requesting more input")
	assert.True(t, it.NeedMoreInput())
}

func TestSystem_ErrorMessageFormat(t *testing.T) {
	_, err := runCodeCatching(t, `undefinedThing`)
	require.NotNil(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "Runtime Error:")
	assert.Contains(t, msg, "line")
}

func TestSystem_CooperativeWaitIntrinsic(t *testing.T) {
	it := interp.New()
	it.Reset(interp.Source{Context: "test", Text: "wait(0.02)\ndone = 1"})

	err := it.Compile()
	require.Nil(t, err)

	done, runErr := it.RunUntilDone(interp.DefaultTimeLimit, true)
	require.Nil(t, runErr)
	assert.False(t, done, "expected RunUntilDone to return early on the first parked wait() partial")

	time.Sleep(30 * time.Millisecond)

	done, runErr = it.RunUntilDone(interp.DefaultTimeLimit, true)
	require.Nil(t, runErr)
	assert.True(t, done, "expected the program to finish once wait(0.02)'s deadline has passed")

	v, ok := it.GetGlobalValue("done")
	require.True(t, ok, "expected global 'done' to be set")
	assertNumber(t, v, 1)
}
