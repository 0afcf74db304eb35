// Command sysyc is the compiler's entry point: a small flag.FlagSet-per-
// subcommand dispatcher in cli.go's own style, wired to the front end
// (internal/parser, internal/sema), the Lowering Engine
// (internal/lower), and the backend (internal/backend) instead of
// Zong's lexer/parser/WASM encoder.
package main

import (
	"fmt"
	"os"
)

func showUsage() {
	fmt.Fprintf(os.Stderr, `sysyc - a SysY-to-ARMv7-A compiler

Usage:
    sysyc <command> [arguments]

Commands:
    build <file>    Compile a .sy file to ARMv7-A assembly
    run <file>      Compile a .sy file and print its assembly to stdout
    check <file>    Parse and semantically check a .sy file, report only
    help            Show this help message

Examples:
    sysyc build -o prog.s prog.sy
    sysyc build -emit-ir prog.sy
    sysyc check prog.sy

Use "sysyc <command> -h" for more information about a command.
`)
}

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		buildCommand(args)
	case "run":
		runCommand(args)
	case "check":
		checkCommand(args)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		showUsage()
		os.Exit(1)
	}
}
