// ==============================================================================================
// FILE: interp/builtins.go
// ==============================================================================================
// PACKAGE: interp
// PURPOSE: The small set of default intrinsics every Interpreter registers before a host adds
//          its own (spec.md section 6.2/6.3, SPEC_FULL.md section C.5): `version`, wiring the
//          host-info record into script; `print`, the minimal output primitive spec.md's own
//          scenarios (section 8.2) assume exists; and `wait`, demonstrating the cooperative
//          parking contract (section 8.2 scenario 6) a host-registered intrinsic can use.
// ==============================================================================================

package interp

import (
	"fmt"

	"lumen/intrinsic"
	"lumen/value"
	"lumen/vm"
)

func registerDefaultIntrinsics(registry *intrinsic.Registry) {
	registerVersion(registry)
	registerPrint(registry)
	registerWait(registry)
}

// registerVersion exposes the machine's HostInfo record as a map with
// name/info/version keys (spec.md section 6.3).
func registerVersion(registry *intrinsic.Registry) {
	registry.Register("version", nil, func(caller intrinsic.Caller, _ value.Value) intrinsic.Result {
		var info vm.HostInfo
		if ctx, ok := caller.(*vm.Context); ok {
			info = ctx.Machine.HostInfo
		}
		m := value.NewMap()
		_ = m.Set(value.NewString("name"), value.NewString(info.Name))
		_ = m.Set(value.NewString("info"), value.NewString(info.InfoURL))
		_ = m.Set(value.NewString("version"), value.NewString(info.Version))
		return intrinsic.Done(m)
	})
}

// registerPrint writes its argument's display string followed by a newline
// to the owning machine's Stdout, returning null.
func registerPrint(registry *intrinsic.Registry) {
	params := []value.Param{{Name: "value", Default: value.Null}}
	registry.Register("print", params, func(caller intrinsic.Caller, _ value.Value) intrinsic.Result {
		v := caller.Param(0)
		if ctx, ok := caller.(*vm.Context); ok {
			fmt.Fprintln(ctx.Machine.Stdout, v.String())
		}
		return intrinsic.Done(value.Null)
	})
}

// registerWait parks until the machine's run-time clock passes
// now+seconds, demonstrating the cooperative-yield contract (spec.md
// section 8.2 scenario 6): the first invocation stores the deadline as its
// partial result; every following invocation re-checks the clock against
// that same stored deadline rather than recomputing it from a fresh "now".
// Each not-done invocation also calls RequestYield, so a host driving
// RunUntilDone with returnEarly=false still gets an immediate boundary
// back rather than a busy loop spinning on the clock (spec.md section 5,
// "Yielding flag").
func registerWait(registry *intrinsic.Registry) {
	params := []value.Param{{Name: "seconds", Default: value.Zero}}
	registry.Register("wait", params, func(caller intrinsic.Caller, prior value.Value) intrinsic.Result {
		var deadline float64
		if n, ok := prior.(*value.NumberValue); ok {
			deadline = n.V
		} else {
			seconds := 0.0
			if n, ok := caller.Param(0).(*value.NumberValue); ok {
				seconds = n.V
			}
			deadline = caller.RunTime() + seconds
		}
		if caller.RunTime() >= deadline {
			return intrinsic.Done(value.Null)
		}
		caller.RequestYield()
		return intrinsic.WaitingWith(value.NewNumber(deadline))
	})
}
