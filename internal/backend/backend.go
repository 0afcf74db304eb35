// Package backend is the one collaborator downstream of internal/lower: a
// straightforward, unoptimizing translation from ir.Module to ARMv7-A
// assembly text. It walks the module linearly the way
// confucianzuoyuan-zcc/codegen.go walks its own IR — accumulating output
// lines in order, tracking a per-function stack frame, and picking one or
// two machine instructions per IR instruction — adapted from that x86-64,
// register-heavy style to AArch32's load/store model: every Temp and every
// Alloca'd Local gets its own word in the frame, so no instruction ever
// needs a value that isn't already sitting in memory one load away.
//
// There is no register allocator and no peephole pass; two ICmp results
// back to back still round-trip through the stack between them. That
// tradeoff is deliberate — this backend exists to give the Lowering Engine
// something to drive end to end, not to produce fast code.
package backend

import (
	"fmt"
	"strings"

	"github.com/NeatLii/SysYCompiler/internal/ir"
)

// emitter accumulates output lines the way cgOutputFile does in the
// teacher's codegen.go, just as a receiver field instead of a package
// global.
type emitter struct {
	lines []string
}

func (e *emitter) raw(line string) {
	e.lines = append(e.lines, line)
}

func (e *emitter) printf(format string, args ...any) {
	e.lines = append(e.lines, fmt.Sprintf(format, args...))
}

func (e *emitter) label(name string) {
	e.lines = append(e.lines, name+":")
}

func (e *emitter) String() string {
	return strings.Join(e.lines, "\n") + "\n"
}

// Emit renders mod as a complete ARMv7-A assembly file: a .data section
// holding every global variable, followed by .text holding one label and
// body per function definition. FuncDecls need no text of their own —
// they resolve at link time against the SysY runtime support library.
func Emit(mod *ir.Module) (string, error) {
	e := &emitter{}

	if len(mod.Vars) > 0 {
		e.raw(".data")
		for _, v := range mod.Vars {
			emitGlobalVar(e, v)
		}
	}

	e.raw(".text")
	for _, fn := range mod.FuncDefs {
		e.printf(".global %s", fn.Name)
	}
	for _, fn := range mod.FuncDefs {
		if err := emitFunction(e, fn); err != nil {
			return "", fmt.Errorf("backend: function %s: %w", fn.Name, err)
		}
	}

	return e.String(), nil
}

// emitGlobalVar lowers one GlobalVarDef to a .word/.zero data definition.
// Every SysY global is word-sized or an array of words, so there is never
// a sub-word alignment concern the way there would be for char/short data.
func emitGlobalVar(e *emitter, v *ir.GlobalVarDef) {
	e.raw(".align 2")
	e.label(v.Name)
	if v.IsZeroInit {
		e.printf("  .zero %d", sizeOf(v.Ty))
		return
	}
	parts := make([]string, len(v.Init))
	for i, imm := range v.Init {
		parts[i] = fmt.Sprintf("%d", imm.Val)
	}
	e.printf("  .word %s", strings.Join(parts, ", "))
}

// sizeOf reports a type's size in bytes. SysY's IR never puts anything but
// i32-or-array-of-i32 in a GlobalVarDef or an Alloca's Elem, so int/array
// are the only cases that matter here.
func sizeOf(ty ir.Type) int {
	switch t := ty.(type) {
	case ir.IntType:
		return 4
	case ir.ArrayType:
		n := 4
		for _, d := range t.Dims {
			n *= d
		}
		return n
	case ir.PtrType:
		return 4
	default:
		return 4
	}
}
