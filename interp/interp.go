// ==============================================================================================
// FILE: interp/interp.go
// ==============================================================================================
// PACKAGE: interp
// PURPOSE: The host façade (spec.md section 6.1): bundles Source -> Compiler -> Machine behind
//          one embeddable type, so a host program never touches the compiler or vm packages
//          directly. Owns the intrinsic registry (shared across recompiles of the same source)
//          and the REPL continuation buffer.
// ==============================================================================================

package interp

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"lumen/compiler"
	"lumen/intrinsic"
	"lumen/scripterr"
	"lumen/value"
	"lumen/vm"
)

// DefaultTimeLimit and DefaultReturnEarly are the host façade's suggested
// RunUntilDone arguments (spec.md section 6.1); Go has no default
// parameters, so callers that want the described default pass these
// explicitly.
const (
	DefaultTimeLimit  = 60.0
	DefaultReturnEarly = true
)

// Source names one chunk of script text (spec.md section 3.3's "source-chunk
// naming", SPEC_FULL.md section C.1).
type Source struct {
	Context string
	Text    string
}

// ErrorSink receives every structured error the façade catches at its
// step/run-until-done/REPL boundaries (spec.md section 4.5).
type ErrorSink func(*scripterr.Error)

// ImplicitSink receives a REPL chunk's implicit result (spec.md section 6.1,
// "send it through an implicit-output sink").
type ImplicitSink func(value.Value)

// Interpreter is the embeddable façade.
type Interpreter struct {
	registry *intrinsic.Registry
	stdout   io.Writer
	logger   logrus.FieldLogger
	hostInfo vm.HostInfo

	errSink       ErrorSink
	implicitSink  ImplicitSink
	storeImplicit bool

	context string
	buffer  string

	machine       *vm.Machine
	needMoreInput bool
}

// Option configures an Interpreter at construction time.
type Option func(*Interpreter)

func WithStdout(w io.Writer) Option           { return func(it *Interpreter) { it.stdout = w } }
func WithLogger(l logrus.FieldLogger) Option  { return func(it *Interpreter) { it.logger = l } }
func WithHostInfo(h vm.HostInfo) Option       { return func(it *Interpreter) { it.hostInfo = h } }
func WithErrorSink(fn ErrorSink) Option       { return func(it *Interpreter) { it.errSink = fn } }
func WithImplicitSink(fn ImplicitSink) Option { return func(it *Interpreter) { it.implicitSink = fn } }
func WithStoreImplicit(storeImplicit bool) Option {
	return func(it *Interpreter) { it.storeImplicit = storeImplicit }
}
func WithSource(src Source) Option {
	return func(it *Interpreter) {
		it.context = src.Context
		it.buffer = src.Text
	}
}

// New constructs an Interpreter with a fresh intrinsic registry carrying the
// default built-ins (spec.md section 6.3's version intrinsic plus the
// illustrative print/wait pair, SPEC_FULL.md section C.5).
func New(opts ...Option) *Interpreter {
	it := &Interpreter{
		registry:      intrinsic.NewRegistry(),
		stdout:        os.Stdout,
		logger:        logrus.StandardLogger(),
		context:       "main",
		storeImplicit: true,
	}
	registerDefaultIntrinsics(it.registry)
	for _, o := range opts {
		o(it)
	}
	return it
}

// Registry exposes the shared intrinsic registry so a host can register
// additional native functions before or after Compile (spec.md section 6.2).
func (it *Interpreter) Registry() *intrinsic.Registry { return it.registry }

// Reset discards the current parser/machine state and installs new source
// (spec.md section 6.1). src.Context defaults to "main" if empty.
func (it *Interpreter) Reset(src Source) {
	it.context = src.Context
	if it.context == "" {
		it.context = "main"
	}
	it.buffer = src.Text
	it.machine = nil
	it.needMoreInput = false
}

// Compile parses the installed source and builds a fresh machine. Compile
// errors are reported to the error sink and also returned. If the source is
// an incomplete block, NeedMoreInput becomes true and Compile returns nil
// without reporting an error (spec.md section 3.3's REPL continuation).
func (it *Interpreter) Compile() *scripterr.Error {
	comp := compiler.New(it.context, it.buffer)
	prog, err := comp.Compile()
	it.needMoreInput = comp.NeedMoreInput()
	if it.needMoreInput {
		return nil
	}
	if err != nil {
		it.report(err)
		return err
	}

	var priorGlobals map[string]value.Value
	if it.machine != nil {
		priorGlobals = it.machine.Root.Locals
	}

	it.machine = vm.New(prog, it.registry,
		vm.WithStdout(it.stdout),
		vm.WithLogger(it.logger),
		vm.WithHostInfo(it.hostInfo),
		vm.WithStoreImplicit(it.storeImplicit),
	)
	if priorGlobals != nil {
		it.machine.Root.Locals = priorGlobals
	}
	it.machine.Attach(it)
	return nil
}

// Step executes exactly one TAC line (spec.md section 6.1).
func (it *Interpreter) Step() *scripterr.Error {
	if it.machine == nil {
		return nil
	}
	err := it.machine.Step()
	if err != nil {
		it.report(err)
	}
	return err
}

// RunUntilDone drives the machine until it is done, a step raises an error,
// timeLimitSeconds elapses, or (if returnEarly) an intrinsic parks a partial
// result (spec.md section 6.1). Pass DefaultTimeLimit/DefaultReturnEarly for
// the described defaults.
func (it *Interpreter) RunUntilDone(timeLimitSeconds float64, returnEarly bool) (bool, *scripterr.Error) {
	if it.machine == nil {
		return true, nil
	}
	done, err := it.machine.RunUntilDone(timeLimitSeconds, returnEarly)
	if err != nil {
		it.report(err)
	}
	return done, err
}

// Restart resets the machine back to the top of its program without
// discarding globals (spec.md section 4.4/8.1 "globals persistence").
func (it *Interpreter) Restart() {
	if it.machine != nil {
		it.machine.Reset()
	}
}

// Stop aborts the current call frame's remaining code (spec.md section 6.1).
func (it *Interpreter) Stop() {
	if it.machine != nil {
		it.machine.Stop()
	}
}

// NeedMoreInput reports whether the last Compile stopped on an open block.
func (it *Interpreter) NeedMoreInput() bool { return it.needMoreInput }

// Running reports whether a machine exists and has not finished.
func (it *Interpreter) Running() bool {
	return it.machine != nil && !it.machine.Done()
}

// Done reports whether the machine has finished running its program.
func (it *Interpreter) Done() bool {
	return it.machine != nil && it.machine.Done()
}

// GetGlobalValue reads a global (root-context local) by name.
func (it *Interpreter) GetGlobalValue(name string) (value.Value, bool) {
	if it.machine == nil {
		return nil, false
	}
	v, ok := it.machine.Root.Locals[name]
	return v, ok
}

// SetGlobalValue writes a global (root-context local) by name.
func (it *Interpreter) SetGlobalValue(name string, v value.Value) {
	if it.machine == nil {
		return
	}
	it.machine.Root.Locals[name] = v
}

// REPL feeds one input chunk, re-compiling the whole accumulated buffer from
// scratch (spec.md section 3.3; see DESIGN.md for why this interpreter
// re-compiles rather than resuming a persistent compiler instance). If the
// buffer still needs more input, it returns immediately without running
// anything. Otherwise it runs to done/time limit and, if a new implicit
// result was produced, forwards it through the implicit sink.
func (it *Interpreter) REPL(line string, timeLimit float64) {
	if it.buffer == "" {
		it.buffer = line
	} else {
		it.buffer = it.buffer + "\n" + line
	}

	if err := it.Compile(); err != nil || it.needMoreInput {
		if !it.needMoreInput {
			it.buffer = ""
		}
		return
	}

	before := it.machine.Root.ImplicitCount
	_, _ = it.RunUntilDone(timeLimit, true)

	if it.implicitSink != nil && it.machine.Root.ImplicitCount > before {
		it.implicitSink(it.machine.Root.Locals["_"])
	}
	it.buffer = ""
}

// DumpTopContext writes a two-section debug dump of the current call
// frame's code (around the code pointer) and locals to standard output
// (spec.md section 6.1; format fixed per SPEC_FULL.md's supplemented
// features section).
func (it *Interpreter) DumpTopContext() {
	if it.machine == nil {
		fmt.Fprintln(it.stdout, "(no machine)")
		return
	}
	cur := it.machine.Current()

	fmt.Fprintln(it.stdout, "--- code ---")
	lo, hi := cur.PC-3, cur.PC+4
	if lo < 0 {
		lo = 0
	}
	if hi > cur.Code.Len() {
		hi = cur.Code.Len()
	}
	for i := lo; i < hi; i++ {
		ln, ok := cur.Code.At(i)
		if !ok {
			continue
		}
		marker := "   "
		if i == cur.PC {
			marker = "-> "
		}
		fmt.Fprintf(it.stdout, "%s%4d: %s\n", marker, i, ln.String())
	}

	fmt.Fprintln(it.stdout, "--- locals ---")
	names := maps.Keys(cur.Locals)
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(it.stdout, "  %s = %s\n", name, cur.Locals[name].String())
	}
}

func (it *Interpreter) report(err *scripterr.Error) {
	if it.errSink != nil {
		it.errSink(err)
	}
}
