package backend

import (
	"fmt"

	"github.com/NeatLii/SysYCompiler/internal/ir"
)

// emitInst translates one ir.Inst into its ARMv7-A form. Every operand
// reaches a register through loadToReg and every result leaves one
// through storeFromReg, so this switch never has to reason about where a
// value came from or where it goes next.
func (fe *funcEmit) emitInst(inst ir.Inst) error {
	switch n := inst.(type) {
	case *ir.Alloca:
		// space already reserved in the function's frame; nothing to emit

	case *ir.Load:
		if err := fe.loadToReg("r0", n.Ptr); err != nil {
			return err
		}
		fe.e.raw("  ldr r1, [r0]")
		return fe.storeFromReg("r1", n.Result)

	case *ir.Store:
		if err := fe.loadToReg("r0", n.Ptr); err != nil {
			return err
		}
		if err := fe.loadToReg("r1", n.Value); err != nil {
			return err
		}
		fe.e.raw("  str r1, [r0]")

	case *ir.BinOp:
		return fe.emitBinOp(n)

	case *ir.ICmp:
		return fe.emitICmp(n)

	case *ir.GEP:
		return fe.emitGEP(n)

	case *ir.Zext:
		if err := fe.loadToReg("r0", n.Value); err != nil {
			return err
		}
		return fe.storeFromReg("r0", n.Result)

	case *ir.Bitcast:
		if err := fe.loadToReg("r0", n.Value); err != nil {
			return err
		}
		return fe.storeFromReg("r0", n.Result)

	case *ir.Call:
		return fe.emitCall(n)

	case *ir.Br:
		fe.e.printf("  b %s", n.Target.Name)

	case *ir.CondBr:
		if err := fe.loadToReg("r0", n.Cond); err != nil {
			return err
		}
		fe.e.raw("  cmp r0, #0")
		fe.e.printf("  bne %s", n.True.Name)
		fe.e.printf("  b %s", n.False.Name)

	case *ir.Ret:
		if n.HasValue {
			if err := fe.loadToReg("r0", n.Value); err != nil {
				return err
			}
		}
		fe.epilogue()

	case *ir.Phi:
		return fmt.Errorf("backend: Phi has no codegen (internal/lower never emits one)")

	default:
		return fmt.Errorf("backend: unhandled instruction %T", n)
	}
	return nil
}

func (fe *funcEmit) emitBinOp(n *ir.BinOp) error {
	if err := fe.loadToReg("r0", n.LHS); err != nil {
		return err
	}
	if err := fe.loadToReg("r1", n.RHS); err != nil {
		return err
	}
	switch n.Op {
	case ir.Add:
		fe.e.raw("  add r0, r0, r1")
	case ir.Sub:
		fe.e.raw("  sub r0, r0, r1")
	case ir.Mul:
		fe.e.raw("  mul r0, r0, r1")
	case ir.SDiv:
		fe.e.raw("  sdiv r0, r0, r1")
	case ir.SRem:
		// ARMv7-A has no remainder instruction: r0 - (r0/r1)*r1.
		fe.e.raw("  sdiv r2, r0, r1")
		fe.e.raw("  mul r2, r2, r1")
		fe.e.raw("  sub r0, r0, r2")
	default:
		return fmt.Errorf("backend: unhandled BinOp %v", n.Op)
	}
	return fe.storeFromReg("r0", n.Result)
}

var icmpSuffix = map[ir.ICmpKind]string{
	ir.CmpEQ:  "eq",
	ir.CmpNE:  "ne",
	ir.CmpSGT: "gt",
	ir.CmpSGE: "ge",
	ir.CmpSLT: "lt",
	ir.CmpSLE: "le",
}

func (fe *funcEmit) emitICmp(n *ir.ICmp) error {
	if err := fe.loadToReg("r0", n.LHS); err != nil {
		return err
	}
	if err := fe.loadToReg("r1", n.RHS); err != nil {
		return err
	}
	suffix, ok := icmpSuffix[n.Op]
	if !ok {
		return fmt.Errorf("backend: unhandled ICmp kind %v", n.Op)
	}
	fe.e.raw("  cmp r0, r1")
	fe.e.raw("  mov r2, #0")
	fe.e.printf("  mov%s r2, #1", suffix)
	return fe.storeFromReg("r2", n.Result)
}

// emitGEP computes Ptr's offset by walking Indices against the GEP's own
// static element type — the same descent getelementptr always performs:
// the first index always selects among repetitions of the whole element
// type (a no-op for the literal-0 "select this array itself" index
// every declared-array GEP carries), and every index after it descends
// one more declared dimension into that element type, the way a
// multi-dimensional array subscript or a pointer-param's row selector
// does alike.
func (fe *funcEmit) emitGEP(n *ir.GEP) error {
	if len(n.Indices) == 0 {
		return fmt.Errorf("backend: GEP with no indices")
	}
	ptrTy, ok := n.Ptr.Type().(ir.PtrType)
	if !ok {
		return fmt.Errorf("backend: GEP base is not a pointer")
	}
	if err := fe.loadToReg("r0", n.Ptr); err != nil {
		return err
	}
	fe.e.raw("  mov r3, #0")

	cur := ptrTy.Elem
	if err := fe.accumulateGEPTerm(n.Indices[0], sizeOf(cur)); err != nil {
		return err
	}
	for _, idx := range n.Indices[1:] {
		arr, ok := cur.(ir.ArrayType)
		if !ok {
			return fmt.Errorf("backend: GEP index past a scalar element")
		}
		rest := ir.ArrayType{Dims: arr.Dims[1:]}
		if err := fe.accumulateGEPTerm(idx, sizeOf(rest)); err != nil {
			return err
		}
		if len(arr.Dims) > 1 {
			cur = rest
		} else {
			cur = ir.IntType{Width: ir.I32}
		}
	}

	fe.e.raw("  add r0, r0, r3")
	return fe.storeFromReg("r0", n.Result)
}

// accumulateGEPTerm adds idx*stride into the running r3 offset
// accumulator. A literal index — the common case for a decaying GEP's
// leading/trailing placeholder 0 — folds straight into a constant add
// (or nothing, when its contribution is zero) instead of spilling a
// register to multiply by a stride that would only ever scale a zero.
func (fe *funcEmit) accumulateGEPTerm(idx ir.Value, stride int) error {
	if imm, ok := idx.(*ir.Imm); ok {
		if term := int(imm.Val) * stride; term != 0 {
			fe.e.printf("  add r3, r3, #%d", term)
		}
		return nil
	}
	if err := fe.loadToReg("r1", idx); err != nil {
		return err
	}
	if stride != 1 {
		fe.e.printf("  ldr r2, =%d", stride)
		fe.e.raw("  mul r1, r1, r2")
	}
	fe.e.raw("  add r3, r3, r1")
	return nil
}

func (fe *funcEmit) emitCall(n *ir.Call) error {
	if len(n.Args) > len(argRegs) {
		return fmt.Errorf("backend: call to %s has %d arguments, more than the %d this backend spills to registers",
			n.Func.Name, len(n.Args), len(argRegs))
	}
	for i, arg := range n.Args {
		if err := fe.loadToReg(argRegs[i], arg); err != nil {
			return err
		}
	}
	fe.e.printf("  bl %s", n.Func.Name)
	if n.HasResult {
		return fe.storeFromReg("r0", n.Result)
	}
	return nil
}
