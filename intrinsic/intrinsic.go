// ==============================================================================================
// FILE: intrinsic/intrinsic.go
// ==============================================================================================
// PACKAGE: intrinsic
// PURPOSE: The registry external collaborators use to add host functions to the language
//          (spec.md section 6.2). The machine wraps each entry in a one-line function whose
//          CallIntrinsic line carries an integer id; this package is what turns that id, at
//          call time, into a native callable invoked with the current context and any parked
//          partial result.
// ==============================================================================================

package intrinsic

import "lumen/value"

// Result is what a native function returns from one invocation. Either it
// is Done with a final Value, or it parks a Partial value on the context
// and asks to be re-invoked on the next VM step (spec.md section 5,
// "cooperative yield").
type Result struct {
	Done    bool
	Value   value.Value
	Partial value.Value
}

// Done builds a completed Result.
func Done(v value.Value) Result { return Result{Done: true, Value: v} }

// Waiting builds a not-yet-done Result carrying no partial payload.
func Waiting() Result { return Result{Done: false} }

// WaitingWith builds a not-yet-done Result carrying a partial payload to be
// handed back on the next invocation.
func WaitingWith(partial value.Value) Result { return Result{Done: false, Partial: partial} }

// Caller is the interface a native function needs from the active call
// frame: reading its bound parameters, the machine's run-time clock, and
// requesting an immediate return-to-host. Implemented by *vm.Context;
// declared here (rather than imported from vm) so intrinsic has no
// dependency on vm, avoiding an import cycle (vm needs to invoke
// intrinsics registered here).
type Caller interface {
	// Param fetches the value bound to the i'th declared parameter.
	Param(i int) value.Value
	// RunTime reports seconds elapsed since the owning machine started.
	RunTime() float64
	// RequestYield sets the machine's yielding flag (spec.md section 5,
	// "Yielding flag"): the next RunUntilDone boundary check returns to
	// the host immediately, regardless of returnEarly or any time limit.
	// Independent of a not-done Result, which is always parked anyway.
	RequestYield()
}

// Native is the signature every intrinsic's host implementation has:
// given the call frame and the previously parked partial result (nil on
// the first invocation), produce a Result.
type Native func(caller Caller, prior value.Value) Result

// Entry is one registered intrinsic.
type Entry struct {
	ID     int
	Name   string
	Params []value.Param
	Fn     Native
}

// Registry maps intrinsic ids and names to Entries. The machine's variable
// resolution looks names up by Name to resolve an identifier that isn't a local/outer/global
// variable (spec.md section 4.3, "variable resolution"); the machine looks
// ids up by ID to invoke a CallIntrinsic line.
type Registry struct {
	byID   []*Entry
	byName map[string]*Entry
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Entry)}
}

// Register adds name as an intrinsic with the given parameters and native
// implementation, returning its freshly assigned id.
func (r *Registry) Register(name string, params []value.Param, fn Native) int {
	id := len(r.byID)
	e := &Entry{ID: id, Name: name, Params: params, Fn: fn}
	r.byID = append(r.byID, e)
	r.byName[name] = e
	return id
}

// ByID looks up a registered intrinsic by id, as the machine does at
// CallIntrinsic execution time.
func (r *Registry) ByID(id int) (*Entry, bool) {
	if id < 0 || id >= len(r.byID) {
		return nil, false
	}
	return r.byID[id], true
}

// ByName looks up a registered intrinsic by name, as the machine does
// while resolving an otherwise-unbound identifier.
func (r *Registry) ByName(name string) (*Entry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// Names returns every registered intrinsic name in registration order, for
// a catalog or `.help` style command a host may build on top of this
// registry (the catalog text itself, per spec.md section 1, is an external
// collaborator's concern).
func (r *Registry) Names() []string {
	names := make([]string, len(r.byID))
	for i, e := range r.byID {
		names[i] = e.Name
	}
	return names
}
