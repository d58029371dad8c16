// ==============================================================================================
// FILE: wasm/wasm_main.go
// BUILD: GOOS=js GOARCH=wasm go build -o main.wasm wasm/wasm_main.go
// ==============================================================================================
package main

import (
	"fmt"
	"strings"
	"syscall/js"

	"lumen/interp"
	"lumen/scripterr"
	"lumen/vm"
)

// outputBuffer captures output from the `print` intrinsic for one runCode call.
var outputBuffer strings.Builder

var hostInfo = vm.HostInfo{
	Name:    "lumen",
	InfoURL: "https://github.com/lumen-lang/lumen",
	Version: "0.1.0",
}

func main() {
	c := make(chan struct{}, 0)

	js.Global().Set("runLumen", js.FuncOf(runCode))

	fmt.Println("lumen WASM engine loaded.")
	<-c
}

// runCode is the bridge between JS and Go.
func runCode(this js.Value, p []js.Value) interface{} {
	code := p[0].String()
	outputBuffer.Reset()

	var errs []interface{}
	it := interp.New(
		interp.WithStdout(&outputBuffer),
		interp.WithHostInfo(hostInfo),
		interp.WithErrorSink(func(err *scripterr.Error) {
			errs = append(errs, err.Error())
		}),
		interp.WithSource(interp.Source{Context: "web", Text: code}),
	)

	if err := it.Compile(); err != nil {
		return map[string]interface{}{"error": errs}
	}
	if it.NeedMoreInput() {
		return map[string]interface{}{
			"error": []interface{}{"Compiler Error: unexpected end of input (unclosed block)"},
		}
	}

	if _, err := it.RunUntilDone(interp.DefaultTimeLimit, interp.DefaultReturnEarly); err != nil {
		return map[string]interface{}{"error": errs}
	}
	if len(errs) > 0 {
		return map[string]interface{}{"error": errs}
	}

	result := ""
	if v, ok := it.GetGlobalValue("_"); ok && v != nil {
		result = v.String()
	}

	return map[string]interface{}{
		"logs":   outputBuffer.String(),
		"result": result,
	}
}
