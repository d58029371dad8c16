// ==============================================================================================
// FILE: vm/run.go
// ==============================================================================================
// PACKAGE: vm
// PURPOSE: Time-sliced execution (spec.md section 4.4, section 5 "cooperative scheduling"): a
//          host drives the interpreter in bounded slices rather than letting one script run to
//          completion uninterrupted, so a long-running or buggy script can't block the host.
// ==============================================================================================

package vm

import (
	"time"

	"lumen/scripterr"
)

// RunUntilDone steps the machine until it is Done, a Step raises a
// structured error, timeLimit seconds (wall clock, <= 0 meaning unbounded)
// have elapsed in this call, an intrinsic sets the machine's yielding flag
// (spec.md section 5, "Yielding flag" - an unconditional return-to-host
// boundary, independent of returnEarly and of any time limit), or (if
// returnEarly) an intrinsic has parked a partial result on the current
// context (spec.md section 5, "Intrinsic yield").
func (m *Machine) RunUntilDone(timeLimit float64, returnEarly bool) (bool, *scripterr.Error) {
	start := time.Now()
	for {
		if m.Done() {
			return true, nil
		}
		if serr := m.Step(); serr != nil {
			return false, serr
		}
		if m.Done() {
			return true, nil
		}
		if m.Yielding {
			m.Yielding = false
			return false, nil
		}
		if returnEarly && m.parkedPartial() {
			return false, nil
		}
		if timeLimit > 0 && time.Since(start).Seconds() >= timeLimit {
			return false, nil
		}
	}
}

// parkedPartial reports whether the context on top of the stack has a
// parked intrinsic partial result awaiting re-invocation on the next Step
// (spec.md section 5, "Intrinsic yield").
func (m *Machine) parkedPartial() bool {
	return m.Current().Partial != nil
}
