// ==============================================================================================
// FILE: main.go
// ==============================================================================================
package main

import (
	"fmt"
	"os"
	"os/user"

	"lumen/interp"
	"lumen/repl"
	"lumen/scripterr"
	"lumen/vm"
)

var hostInfo = vm.HostInfo{
	Name:    "lumen",
	InfoURL: "https://github.com/lumen-lang/lumen",
	Version: "0.1.0",
}

func main() {
	// 1. Script Mode: go run . myfile.lum
	if len(os.Args) > 1 {
		runFile(os.Args[1])
		return
	}

	// 2. REPL Mode: go run .
	currentUser, err := user.Current()
	if err != nil {
		panic(err)
	}

	fmt.Printf("Hello %s! Welcome to the lumen programming language.\n", currentUser.Username)
	fmt.Println("Type your commands below (or 'go run . <file>' to execute a script).")

	repl.Start(os.Stdin, os.Stdout)
}

func runFile(filename string) {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %s\n", err)
		os.Exit(1)
	}

	failed := false
	it := interp.New(
		interp.WithStdout(os.Stdout),
		interp.WithHostInfo(hostInfo),
		interp.WithSource(interp.Source{Context: filename, Text: string(data)}),
		interp.WithErrorSink(func(err *scripterr.Error) {
			fmt.Fprintln(os.Stderr, err.Error())
			failed = true
		}),
	)

	if err := it.Compile(); err != nil {
		os.Exit(1)
	}
	if it.NeedMoreInput() {
		fmt.Fprintln(os.Stderr, "Compiler Error: unexpected end of input (unclosed block)")
		os.Exit(1)
	}

	if _, err := it.RunUntilDone(interp.DefaultTimeLimit, interp.DefaultReturnEarly); err != nil {
		os.Exit(1)
	}
	if failed {
		os.Exit(1)
	}
}
