// ==============================================================================================
// FILE: tests/script_benchmark_test.go
// ==============================================================================================
// PURPOSE: Throughput benchmarks for the compile+run path, covering the three workloads that
//          stress the VM differently: a tight counted loop, deep call-frame recursion, and
//          string-building churn.
// ==============================================================================================

package tests

import (
	"testing"

	"lumen/interp"
)

func benchRun(b *testing.B, input string) {
	b.Helper()
	for i := 0; i < b.N; i++ {
		it := interp.New()
		it.Reset(interp.Source{Context: "bench", Text: input})
		if err := it.Compile(); err != nil {
			b.Fatalf("compile error: %s", err.Error())
		}
		if it.NeedMoreInput() {
			b.Fatalf("input left an unclosed block")
		}
		if _, err := it.RunUntilDone(interp.DefaultTimeLimit, false); err != nil {
			b.Fatalf("runtime error: %s", err.Error())
		}
	}
}

func BenchmarkSystem_HeavyLoop(b *testing.B) {
	input := `
total = 0
i = 0
while i < 50000
	total = total + i
	i = i + 1
end while
total
`
	benchRun(b, input)
}

func BenchmarkSystem_DeepRecursion(b *testing.B) {
	input := `
fib = function(n)
	if n < 2 then
		return n
	end if
	return fib(n - 1) + fib(n - 2)
end function
fib(22)
`
	benchRun(b, input)
}

func BenchmarkSystem_StringConcatenation(b *testing.B) {
	input := `
s = ""
i = 0
while i < 2000
	s = s + "x"
	i = i + 1
end while
s
`
	benchRun(b, input)
}
