// ==============================================================================================
// FILE: repl/repl.go
// ==============================================================================================
// PACKAGE: repl
// PURPOSE: The Read-Eval-Print Loop interface.
//          It connects the user input stream to the host façade (interp.Interpreter) and
//          manages the persistent session state across input chunks.
// ==============================================================================================

package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"lumen/interp"
	"lumen/scripterr"
	"lumen/value"
	"lumen/vm"
)

// ----------------------------------------------------------------------------
// UI CONSTANTS & CONFIGURATION
// ----------------------------------------------------------------------------

const (
	PROMPT = ">> "
	LOGO   = `
┏━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┓
┃ lumen - an embeddable scripting language           ┃
┗━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━┛
`
)

// ANSI Color Codes for terminal output
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
	Bold   = "\033[1m"
)

var hostInfo = vm.HostInfo{
	Name:    "lumen",
	InfoURL: "https://github.com/lumen-lang/lumen",
	Version: "0.1.0",
}

// ----------------------------------------------------------------------------
// REPL LOGIC
// ----------------------------------------------------------------------------

// Start launches the Read-Eval-Print Loop. It listens to 'in', feeds each
// line to the interpreter, and writes implicit results and errors to 'out'.
// The interpreter's globals persist across the session (spec.md section
// 8.1's "globals persistence").
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	it := newSessionInterpreter(out)

	fmt.Fprint(out, LOGO)
	printHelp(out)

	for {
		if it.NeedMoreInput() {
			fmt.Fprint(out, Gray+"... "+Reset)
		} else {
			fmt.Fprint(out, Cyan+PROMPT+Reset)
		}

		scanned := scanner.Scan()
		if !scanned {
			return
		}

		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && !it.NeedMoreInput() {
			continue
		}

		if !it.NeedMoreInput() && strings.HasPrefix(trimmed, ".") {
			switch trimmed {
			case ".exit":
				fmt.Fprintln(out, Yellow+"Goodbye!"+Reset)
				return
			case ".clear":
				it = newSessionInterpreter(out)
				fmt.Fprintln(out, Green+"Environment cleared (memory reset)."+Reset)
				continue
			case ".dump":
				it.DumpTopContext()
				continue
			case ".help":
				printHelp(out)
				continue
			default:
				fmt.Fprintf(out, Red+"Unknown command: %s. Type .help for info.\n"+Reset, trimmed)
				continue
			}
		}

		it.REPL(line, interp.DefaultTimeLimit)
	}
}

// newSessionInterpreter builds one interpreter wired to print implicit
// results and errors straight to the REPL's output stream.
func newSessionInterpreter(out io.Writer) *interp.Interpreter {
	return interp.New(
		interp.WithStdout(out),
		interp.WithHostInfo(hostInfo),
		interp.WithErrorSink(func(err *scripterr.Error) {
			fmt.Fprintf(out, Red+Bold+"%s\n"+Reset, err.Error())
		}),
		interp.WithImplicitSink(func(v value.Value) {
			printEvalResult(out, v)
		}),
	)
}

// ----------------------------------------------------------------------------
// HELPER FUNCTIONS
// ----------------------------------------------------------------------------

func printHelp(out io.Writer) {
	fmt.Fprintln(out, Gray+"Commands:")
	fmt.Fprintln(out, "  .exit   Quit the REPL")
	fmt.Fprintln(out, "  .clear  Reset memory")
	fmt.Fprintln(out, "  .dump   Show the current call frame's code and locals")
	fmt.Fprintln(out, "  .help   Show this message"+Reset)
	fmt.Fprintln(out)
}

// printEvalResult formats an implicit result based on its value type.
func printEvalResult(out io.Writer, v value.Value) {
	if v == nil {
		return
	}
	if _, ok := v.(*value.NullValue); ok {
		return
	}

	str := v.String()

	switch v.(type) {
	case *value.NumberValue:
		fmt.Fprintf(out, Yellow+"%s\n"+Reset, str)
	case *value.StringValue:
		fmt.Fprintf(out, Green+"%s\n"+Reset, str)
	case *value.ListValue:
		fmt.Fprintf(out, Blue+"%s\n"+Reset, str)
	case *value.MapValue:
		fmt.Fprintf(out, Blue+"%s\n"+Reset, str)
	case *value.FunctionValue:
		fmt.Fprint(out, Purple+"(function)\n"+Reset)
	default:
		fmt.Fprintf(out, "%s\n", str)
	}
}
