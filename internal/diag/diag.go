// Package diag builds and prints the fatal semantic/compile diagnostics
// every later pass raises. There is no recovery path anywhere in this
// compiler (spec.md §7): a diagnostic always terminates the run, so this
// package's only job is to carry enough context to print a good message,
// the way cli.go's fmt.Fprintf(os.Stderr, ...) calls do for compile
// failures, one step up the stack.
package diag

import (
	"fmt"
	"os"

	"github.com/NeatLii/SysYCompiler/internal/source"
)

// Kind is the taxonomy tag every Error carries.
type Kind int

const (
	UnresolvedIdentifier Kind = iota
	NonConstantContext
	DivisionByZero
	TypeMismatch
	MalformedInitializer
	// DuplicateDeclaration is not one of spec.md §7's five named kinds but
	// covers the scope walker's own duplicate-name-in-scope rule (§4.1),
	// which that section names as fatal without assigning it a tag.
	DuplicateDeclaration
)

func (k Kind) String() string {
	switch k {
	case UnresolvedIdentifier:
		return "unresolved identifier"
	case NonConstantContext:
		return "not a compile-time constant"
	case DivisionByZero:
		return "division by zero"
	case TypeMismatch:
		return "type mismatch"
	case MalformedInitializer:
		return "malformed initializer"
	case DuplicateDeclaration:
		return "duplicate declaration"
	default:
		return "error"
	}
}

// Error is the single error type every pass in this compiler returns.
// File/Range are printed ahead of the cause the same way a compiler's
// "file:line:col: message" convention does.
type Error struct {
	Kind  Kind
	File  string
	Range source.Range
	Cause string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%s: %s: %s", e.File, e.Range, e.Kind, e.Cause)
}

// New builds a diagnostic of the given kind, anchored at rng, with cause
// as the one-line human-readable message.
func New(kind Kind, file string, rng source.Range, cause string) *Error {
	return &Error{Kind: kind, File: file, Range: rng, Cause: cause}
}

const (
	ansiRed   = "\x1b[31m"
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// Print writes err to stderr, one line, highlighted in red/bold when
// stderr looks like a terminal — the "colorful" behavior
// source_manager.cc's Token::DumpTextRef names, reproduced with raw ANSI
// escapes since no color library appears anywhere in the example pack.
func Print(err error) {
	if !isTerminal(os.Stderr) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s%serror:%s %v\n", ansiBold, ansiRed, ansiReset, err)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
