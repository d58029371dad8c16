// ==============================================================================================
// FILE: source/location.go
// ==============================================================================================
// PACKAGE: source
// PURPOSE: Identifies where a chunk of script text came from and where in it a given
//          token, TAC line, or error originates. Every compiled instruction and every
//          structured error carries one of these.
// ==============================================================================================

package source

import "fmt"

// Location is a (context name, line number) pair. The context name is the
// name of the source chunk being compiled ("main", a REPL line tag, an
// included file name); the line number is 1-based.
type Location struct {
	Context string
	Line    int
}

// String renders a location the way error messages embed it: "main line 12".
func (l Location) String() string {
	return fmt.Sprintf("%s line %d", l.Context, l.Line)
}

// Zero reports whether the location was never set (context name empty and
// line 0).
func (l Location) Zero() bool {
	return l.Context == "" && l.Line == 0
}
