package backend

import (
	"fmt"

	"github.com/NeatLii/SysYCompiler/internal/ir"
)

// frame is one function's stack layout: every Temp the Lowering Engine
// produced and every Alloca'd Local gets its own word (or, for an array
// Alloca, its own contiguous block), addressed fp-relative. There is no
// reuse and no liveness analysis — a Temp's slot stays reserved for the
// whole function even though most Temps are dead within a few
// instructions, the same one-slot-per-value tradeoff spec.md's redesign
// settled on for the IR itself.
type frame struct {
	tempOff  map[int]int
	localOff map[string]int
	size     int
}

// paramSource records where one of a function's incoming arguments lives
// at entry: the AAPCS register it arrived in, or its offset above the
// frame pointer when it was passed on the caller's stack.
type paramSource struct {
	reg   string // "" when the argument came in on the stack
	stack int
}

func buildFrame(fn *ir.Function) *frame {
	fr := &frame{tempOff: map[int]int{}, localOff: map[string]int{}}
	used := 0

	reserve := func(size int) int {
		size = align4(size)
		used += size
		return used
	}

	for _, b := range fn.Blocks {
		for _, inst := range b.Insts {
			switch n := inst.(type) {
			case *ir.Alloca:
				fr.localOff[n.Result.Name] = reserve(sizeOf(n.Elem))
			case *ir.Load:
				fr.tempOff[n.Result.Num] = reserve(4)
			case *ir.BinOp:
				fr.tempOff[n.Result.Num] = reserve(4)
			case *ir.GEP:
				fr.tempOff[n.Result.Num] = reserve(4)
			case *ir.Zext:
				fr.tempOff[n.Result.Num] = reserve(4)
			case *ir.Bitcast:
				fr.tempOff[n.Result.Num] = reserve(4)
			case *ir.ICmp:
				fr.tempOff[n.Result.Num] = reserve(4)
			case *ir.Phi:
				fr.tempOff[n.Result.Num] = reserve(4)
			case *ir.Call:
				if n.HasResult {
					fr.tempOff[n.Result.Num] = reserve(4)
				}
			}
		}
	}

	fr.size = align8(used)
	return fr
}

func align4(n int) int { return (n + 3) &^ 3 }
func align8(n int) int { return (n + 7) &^ 7 }

var argRegs = []string{"r0", "r1", "r2", "r3"}

func paramSources(fn *ir.Function) map[string]paramSource {
	srcs := make(map[string]paramSource, len(fn.Params))
	for i, p := range fn.Params {
		if i < len(argRegs) {
			srcs[p.Name] = paramSource{reg: argRegs[i]}
		} else {
			srcs[p.Name] = paramSource{stack: 8 + 4*(i-len(argRegs))}
		}
	}
	return srcs
}

// funcEmit carries one function's codegen state: the emitter it writes
// to, its frame layout, and where each parameter's incoming value lives.
type funcEmit struct {
	e      *emitter
	fr     *frame
	params map[string]paramSource
}

func emitFunction(e *emitter, fn *ir.Function) error {
	fr := buildFrame(fn)
	fe := &funcEmit{e: e, fr: fr, params: paramSources(fn)}

	e.label(fn.Name)
	e.raw("  push {fp, lr}")
	e.raw("  mov fp, sp")
	if fr.size > 0 {
		e.printf("  sub sp, sp, #%d", fr.size)
	}

	for _, b := range fn.Blocks {
		e.label(b.Label.Name)
		for _, inst := range b.Insts {
			if err := fe.emitInst(inst); err != nil {
				return err
			}
		}
	}
	return nil
}

func (fe *funcEmit) epilogue() {
	fe.e.raw("  mov sp, fp")
	fe.e.raw("  pop {fp, lr}")
	fe.e.raw("  bx lr")
}

// loadToReg puts v's value into reg — a scalar, a previously computed
// address, or an incoming argument's register/stack source. It is the
// only way a Value ever reaches a register, so every other codegen
// helper in this file goes through it instead of special-casing operand
// kinds itself.
func (fe *funcEmit) loadToReg(reg string, v ir.Value) error {
	switch val := v.(type) {
	case *ir.Imm:
		fe.e.printf("  ldr %s, =%d", reg, val.Val)
	case *ir.Temp:
		off, ok := fe.fr.tempOff[val.Num]
		if !ok {
			return fmt.Errorf("backend: temp %%t%d has no frame slot", val.Num)
		}
		fe.e.printf("  ldr %s, [fp, #-%d]", reg, off)
	case *ir.Local:
		if src, ok := fe.params[val.Name]; ok {
			if src.reg != "" {
				if src.reg != reg {
					fe.e.printf("  mov %s, %s", reg, src.reg)
				}
				return nil
			}
			fe.e.printf("  ldr %s, [fp, #%d]", reg, src.stack)
			return nil
		}
		off, ok := fe.fr.localOff[val.Name]
		if !ok {
			return fmt.Errorf("backend: local %%%s has no frame slot", val.Name)
		}
		fe.e.printf("  sub %s, fp, #%d", reg, off)
	case *ir.Global:
		fe.e.printf("  ldr %s, =%s", reg, val.Name)
	default:
		return fmt.Errorf("backend: unsupported value operand %T", v)
	}
	return nil
}

// storeFromReg spills reg into t's frame slot — the counterpart to
// loadToReg on the producing side of every instruction that yields a
// Temp.
func (fe *funcEmit) storeFromReg(reg string, t *ir.Temp) error {
	off, ok := fe.fr.tempOff[t.Num]
	if !ok {
		return fmt.Errorf("backend: temp %%t%d has no frame slot", t.Num)
	}
	fe.e.printf("  str %s, [fp, #-%d]", reg, off)
	return nil
}

