// ==============================================================================================
// FILE: repl/repl_integration_test.go
// ==============================================================================================
// PURPOSE: Integration tests for the REPL.
//          Validates multi-line interactions involving functions and prototypes.
// ==============================================================================================

package repl

import (
	"strings"
	"testing"
)

func TestIntegration_ComplexSession(t *testing.T) {
	input := `
ageChecker = function(age)
	if age > 18 then
		return "Adult"
	else
		return "Minor"
	end if
end function
ageChecker(25)
.exit`

	output := runSession(input)

	if !strings.Contains(output, "Adult") {
		t.Errorf("function/if-else integration failed. Output:\n%s", output)
	}
}

func TestIntegration_PrototypeChain(t *testing.T) {
	input := `
base = {"greeting": "hello"}
child = new base
child.greeting
.exit`

	output := runSession(input)

	if !strings.Contains(output, "hello") {
		t.Errorf("prototype-chain integration failed. Output:\n%s", output)
	}
}
