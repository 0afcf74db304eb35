package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/NeatLii/SysYCompiler/internal/ast"
	"github.com/NeatLii/SysYCompiler/internal/backend"
	"github.com/NeatLii/SysYCompiler/internal/diag"
	"github.com/NeatLii/SysYCompiler/internal/lower"
	"github.com/NeatLii/SysYCompiler/internal/parser"
	"github.com/NeatLii/SysYCompiler/internal/sema"
)

// runFrontEnd parses, links, and analyzes filename's source, the three
// passes every subcommand needs before it can either stop at `check` or
// go on to lower and emit.
func runFrontEnd(filename string) (*ast.Arena, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}

	arena, err := parser.Parse(filename, string(src))
	if err != nil {
		return nil, err
	}
	if err := sema.Link(arena, filename); err != nil {
		return nil, err
	}
	if err := sema.Analyze(arena, filename); err != nil {
		return nil, err
	}
	return arena, nil
}

func checkCommand(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sysyc check <file>\n")
		fmt.Fprintf(os.Stderr, "Parse and semantically check a .sy file, report only\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	if _, err := runFrontEnd(fs.Arg(0)); err != nil {
		diag.Print(err)
		os.Exit(1)
	}
	fmt.Printf("%s: OK\n", fs.Arg(0))
}

// compileToOutput runs the front end, then either dumps the Lowering
// Engine's textual IR or the backend's ARMv7-A assembly, depending on
// emitIR.
func compileToOutput(filename string, emitIR bool) (string, error) {
	arena, err := runFrontEnd(filename)
	if err != nil {
		return "", err
	}
	mod := lower.Module(arena)
	if emitIR {
		return mod.String(), nil
	}
	return backend.Emit(mod)
}

func buildCommand(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "Output file path (default: <file>.s, or .ir with -emit-ir)")
	emitIR := fs.Bool("emit-ir", false, "Emit the Lowering Engine's textual IR instead of assembly")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sysyc build [-o output] [-emit-ir] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .sy file to ARMv7-A assembly\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	filename := fs.Arg(0)
	out, err := compileToOutput(filename, *emitIR)
	if err != nil {
		diag.Print(err)
		os.Exit(1)
	}

	outputFile := *output
	if outputFile == "" {
		ext := ".s"
		if *emitIR {
			ext = ".ir"
		}
		outputFile = strings.TrimSuffix(filename, ".sy") + ext
	}
	if err := os.WriteFile(outputFile, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputFile, err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s (%d bytes)\n", outputFile, len(out))
}

// runCommand compiles and prints the result to stdout rather than
// executing it: unlike Zong's WASM target, there is no runtime in the
// example pack capable of running ARMv7-A code directly, so "run" is the
// build pipeline with stdout as its only output file.
func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	emitIR := fs.Bool("emit-ir", false, "Print the Lowering Engine's textual IR instead of assembly")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sysyc run [-emit-ir] <file>\n")
		fmt.Fprintf(os.Stderr, "Compile a .sy file and print its assembly to stdout\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: expected exactly one file argument\n")
		fs.Usage()
		os.Exit(1)
	}

	out, err := compileToOutput(fs.Arg(0), *emitIR)
	if err != nil {
		diag.Print(err)
		os.Exit(1)
	}
	fmt.Print(out)
}
