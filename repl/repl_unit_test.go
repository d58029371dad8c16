// ==============================================================================================
// FILE: repl/repl_unit_test.go
// ==============================================================================================
// PURPOSE: Unit tests for basic REPL functionality.
//          Verifies that commands work and simple calculations produce output.
// ==============================================================================================

package repl

import (
	"bytes"
	"strings"
	"testing"
)

// Helper to simulate a REPL session
func runSession(input string) string {
	in := strings.NewReader(input)
	var out bytes.Buffer
	Start(in, &out)
	return out.String()
}

func TestREPL_Math(t *testing.T) {
	input := "10 + 20\n.exit"
	output := runSession(input)

	if !strings.Contains(output, "30") {
		t.Errorf("REPL failed simple math. Output:\n%s", output)
	}
}

func TestREPL_VariablePersistence(t *testing.T) {
	// Ensure variables defined in one line persist to the next
	input := "x = 50\nx = x + 10\nx\n.exit"
	output := runSession(input)

	if !strings.Contains(output, "60") {
		t.Errorf("REPL failed variable persistence. Output:\n%s", output)
	}
}

func TestREPL_Commands(t *testing.T) {
	input := "x = 10\n.clear\nx\n.exit"
	output := runSession(input)

	if !strings.Contains(output, "is undefined") {
		t.Error("environment was not cleared correctly")
	}
}
