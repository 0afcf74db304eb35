package lower

import (
	"fmt"

	"github.com/NeatLii/SysYCompiler/internal/ast"
	"github.com/NeatLii/SysYCompiler/internal/ir"
)

// lowerExprValue lowers id into a value-producing instruction sequence in
// ctx.cur and returns the ir.Value holding the result — spec.md §4.6.5.
func (ctx *funcCtx) lowerExprValue(id ast.NodeID) ir.Value {
	a := ctx.a

	if ok, v := exprConstVal(a, id); ok {
		if _, isCall := a.Get(id).(*ast.CallExpr); !isCall {
			return &ir.Imm{Val: v}
		}
	}

	switch n := a.Get(id).(type) {
	case *ast.IntegerLiteral:
		return &ir.Imm{Val: n.Value}

	case *ast.ParenExpr:
		return ctx.lowerExprValue(n.Sub)

	case *ast.DeclRefExpr:
		return ctx.lowerDeclRef(n)

	case *ast.CallExpr:
		return ctx.lowerCall(n)

	case *ast.UnaryOp:
		sub := ctx.lowerExprValue(n.Sub)
		switch n.Op {
		case ast.OpPlus:
			return sub
		case ast.OpMinus:
			t := ctx.fn.FreshTemp(ir.IntType{Width: ir.I32})
			ctx.cur.Add(&ir.BinOp{Op: ir.Sub, Result: t, LHS: &ir.Imm{Val: 0}, RHS: sub})
			return t
		case ast.OpNot:
			eq := ctx.fn.FreshTemp(ir.IntType{Width: ir.I1})
			ctx.cur.Add(&ir.ICmp{Op: ir.CmpEQ, Result: eq, LHS: sub, RHS: &ir.Imm{Val: 0}})
			return ctx.widenToI32(eq)
		}

	case *ast.BinaryOp:
		if n.Op == ast.OpAssign {
			return ctx.lowerAssign(n)
		}
		if n.Op == ast.OpAnd || n.Op == ast.OpOr {
			return ctx.lowerShortCircuitValue(id)
		}
		if kind, ok := icmpKindFor(n.Op); ok {
			lhs := ctx.lowerExprValue(n.LHS)
			rhs := ctx.lowerExprValue(n.RHS)
			cmp := ctx.fn.FreshTemp(ir.IntType{Width: ir.I1})
			ctx.cur.Add(&ir.ICmp{Op: kind, Result: cmp, LHS: lhs, RHS: rhs})
			return ctx.widenToI32(cmp)
		}
		lhs := ctx.lowerExprValue(n.LHS)
		rhs := ctx.lowerExprValue(n.RHS)
		t := ctx.fn.FreshTemp(ir.IntType{Width: ir.I32})
		ctx.cur.Add(&ir.BinOp{Op: binOpKindFor(n.Op), Result: t, LHS: lhs, RHS: rhs})
		return t
	}
	panic(fmt.Sprintf("lower: unhandled expr node %s", a.Get(id).Kind()))
}

// widenToI32 promotes an i1 value (an ICmp result) to the i32 every
// ordinary value context expects, resolving the single-overload ambiguity
// the original's repeated ad hoc zext calls left implicit.
func (ctx *funcCtx) widenToI32(v *ir.Temp) ir.Value {
	t := ctx.fn.FreshTemp(ir.IntType{Width: ir.I32})
	ctx.cur.Add(&ir.Zext{Result: t, Value: v})
	return t
}

func binOpKindFor(op ast.BinOpKind) ir.BinOpKind {
	switch op {
	case ast.OpAdd:
		return ir.Add
	case ast.OpSub:
		return ir.Sub
	case ast.OpMul:
		return ir.Mul
	case ast.OpDiv:
		return ir.SDiv
	case ast.OpRem:
		return ir.SRem
	default:
		panic("lower: not an arithmetic BinOpKind")
	}
}

func (ctx *funcCtx) lowerShortCircuitValue(id ast.NodeID) ir.Value {
	trueLabel := ctx.freshLabel("sc.true")
	falseLabel := ctx.freshLabel("sc.false")
	endLabel := ctx.freshLabel("sc.end")

	slotTy := ir.IntType{Width: ir.I32}
	slot := &ir.Local{Name: fmt.Sprintf("sc.addr.%d", ctx.blockN), Ty: ir.PtrType{Elem: slotTy}}
	ctx.cur.Add(&ir.Alloca{Result: slot, Elem: slotTy})

	ctx.lowerCond(id, trueLabel, falseLabel)

	ctx.openBlock(trueLabel)
	ctx.cur.Add(&ir.Store{Value: &ir.Imm{Val: 1}, Ptr: slot})
	ctx.cur.Add(&ir.Br{Target: endLabel})

	ctx.openBlock(falseLabel)
	ctx.cur.Add(&ir.Store{Value: &ir.Imm{Val: 0}, Ptr: slot})
	ctx.cur.Add(&ir.Br{Target: endLabel})

	ctx.openBlock(endLabel)
	result := ctx.fn.FreshTemp(slotTy)
	ctx.cur.Add(&ir.Load{Result: result, Ptr: slot})
	return result
}

func (ctx *funcCtx) lowerAssign(n *ast.BinaryOp) ir.Value {
	ref := ctx.a.Get(n.LHS).(*ast.DeclRefExpr)
	addr := ctx.declAddr(ref)
	val := ctx.lowerExprValue(n.RHS)
	ctx.cur.Add(&ir.Store{Value: val, Ptr: addr})
	return val
}

func (ctx *funcCtx) lowerCall(n *ast.CallExpr) ir.Value {
	g := ctx.funcGlobals[n.Resolved]
	fn := ctx.a.Get(n.Resolved).(*ast.FunctionDecl)

	args := make([]ir.Value, 0, len(n.Args))
	for _, argExpr := range n.Args {
		args = append(args, ctx.lowerExprValue(argExpr))
	}
	// _sysy_starttime/_sysy_stoptime take the call site's source line as
	// their only argument, in place of whatever argument the source wrote.
	if fn.IsBuiltin && (fn.BuiltinName == "_sysy_starttime" || fn.BuiltinName == "_sysy_stoptime") {
		line := ctx.a.Src.TokenRange(n.NameTok).BeginLine
		args = []ir.Value{&ir.Imm{Val: int32(line)}}
	}

	sig := g.Ty.(ir.FuncType)
	if _, isVoid := sig.Ret.(ir.VoidType); isVoid {
		ctx.cur.Add(&ir.Call{HasResult: false, Func: g, Args: args})
		return nil
	}
	result := ctx.fn.FreshTemp(sig.Ret)
	ctx.cur.Add(&ir.Call{HasResult: true, Result: result, Func: g, Args: args})
	return result
}

// lowerDeclRef loads a reference's scalar value, or — for an array
// reference with fewer indices than the bound declaration has dimensions
// — returns the decayed sub-array address instead of loading through it.
func (ctx *funcCtx) lowerDeclRef(ref *ast.DeclRefExpr) ir.Value {
	addr := ctx.declAddr(ref)
	if !ctx.isScalarRef(ref) {
		return addr
	}
	t := ctx.fn.FreshTemp(ir.IntType{Width: ir.I32})
	ctx.cur.Add(&ir.Load{Result: t, Ptr: addr})
	return t
}

func (ctx *funcCtx) isScalarRef(ref *ast.DeclRefExpr) bool {
	switch d := ctx.a.Get(ref.Resolved).(type) {
	case *ast.VarDecl:
		return len(d.Dims) == len(ref.Indices)
	case *ast.ParamVarDecl:
		if !d.IsPointer {
			return true
		}
		return len(ref.Indices) == len(d.Dims)+1
	default:
		return true
	}
}

// declAddr computes the address denoted by ref: the decl's own storage
// for a bare scalar reference, or a GEP-computed element/sub-array
// address for an indexed array reference (spec.md §4.6.7). The GEP
// carries one index per dimension traversed rather than a single
// flattened offset, so its result's type can be derived exactly:
// gepResultType strips one declared dimension per explicit index and
// collapses to a plain Pointer(Int32) once just one dimension remains,
// matching original_source's ref_dim - index_dim branch.
func (ctx *funcCtx) declAddr(ref *ast.DeclRefExpr) ir.Value {
	declID := ref.Resolved
	dims, ptrKind := ctx.declDims(declID)

	if len(ref.Indices) == 0 {
		switch {
		case ptrKind != notPointerParam:
			// a bare pointer-param reference forwards the pointer value
			// itself, already correctly typed — not the param's own
			// spill slot — the same shortcut original's ParamVarDecl
			// ResultIsArr() branch takes for an unindexed pass-through.
			return ctx.loadParamPointer(declID)
		case len(dims) == 0:
			return ctx.addrOf(declID)
		}
		// else: a bare reference to a declared array (spec.md §8's S6,
		// an array name passed as a call argument) — falls through and
		// decays via the same per-dimension GEP as any partial
		// reference, with zero explicit indices consumed so far.
	}

	k := len(ref.Indices)
	explicit := ctx.lowerIndexList(ref.Indices)

	switch ptrKind {
	case rawPointerParam:
		// a plain int* param's pointee is already flat i32 — the one
		// explicit index needs no leading selector and nothing to strip.
		ptrVal := ctx.loadParamPointer(declID)
		t := ctx.fn.FreshTemp(ir.PtrType{Elem: ir.IntType{Width: ir.I32}})
		ctx.cur.Add(&ir.GEP{Result: t, Ptr: ptrVal, Indices: explicit})
		return t
	case arrayPointerParam:
		// the pointee is already the row shape the caller decayed to, so
		// the same per-dimension GEP applies without the leading 0 slot
		// an ordinary declared array needs (spec.md §4.6.7).
		ptrVal := ctx.loadParamPointer(declID)
		idxs := explicit
		if k < len(dims) {
			idxs = append(idxs, &ir.Imm{Val: 0})
		}
		t := ctx.fn.FreshTemp(gepResultType(dims, k))
		ctx.cur.Add(&ir.GEP{Result: t, Ptr: ptrVal, Indices: idxs})
		return t
	default:
		base := ctx.addrOf(declID)
		idxs := append([]ir.Value{&ir.Imm{Val: 0}}, explicit...)
		if k < len(dims) {
			idxs = append(idxs, &ir.Imm{Val: 0})
		}
		t := ctx.fn.FreshTemp(gepResultType(dims, k))
		ctx.cur.Add(&ir.GEP{Result: t, Ptr: base, Indices: idxs})
		return t
	}
}

// gepResultType computes a partial array reference's result type per
// spec.md §4.6.7: once just one dimension remains untraversed, the
// residual is memory-layout-interchangeable with a flat int* and
// collapses to Pointer(Int32); anything before that decays to a pointer
// to the residual's first row, dims[k+1:]. For an array-pointer param
// dims[0] is the placeholder extent declDims puts in front of the
// declared trailing dimensions, so the same slice holds for both storage
// shapes even though only a declared array's GEP carries a leading 0.
func gepResultType(dims []int, k int) ir.Type {
	if len(dims)-k <= 1 {
		return ir.PtrType{Elem: ir.IntType{Width: ir.I32}}
	}
	return ir.PtrType{Elem: ir.ArrayType{Dims: dims[k+1:]}}
}

// pointerParamKind distinguishes a raw int* param (flat i32 pointee, one
// GEP index, no residual array shape) from an array-pointer param
// (pointee is itself array-shaped, the same per-dimension GEP as an
// ordinary array variable but without its leading 0 slot).
type pointerParamKind int

const (
	notPointerParam pointerParamKind = iota
	rawPointerParam
	arrayPointerParam
)

func (ctx *funcCtx) addrOf(declID ast.NodeID) ir.Value {
	if v, ok := ctx.locals[declID]; ok {
		return v
	}
	if g, ok := ctx.globals[declID]; ok {
		return g
	}
	panic("lower: no storage for resolved declaration")
}

// declDims reports the dimension extents relevant to a GEP's stride and
// residual-type computation, plus which kind of storage declID addresses.
func (ctx *funcCtx) declDims(declID ast.NodeID) ([]int, pointerParamKind) {
	switch d := ctx.a.Get(declID).(type) {
	case *ast.VarDecl:
		return dimsOf(ctx.a, d.Dims), notPointerParam
	case *ast.ParamVarDecl:
		trailing := dimsOf(ctx.a, d.Dims)
		if d.IsArrayPtr() {
			return append([]int{0}, trailing...), arrayPointerParam
		}
		if d.IsPointer {
			return nil, rawPointerParam
		}
		return trailing, notPointerParam
	default:
		return nil, notPointerParam
	}
}

// loadParamPointer reads the pointer value stored in a pointer param's
// spill slot — the indirection every param, pointer or not, picks up
// from always being alloca'd on entry.
func (ctx *funcCtx) loadParamPointer(declID ast.NodeID) ir.Value {
	slot := ctx.locals[declID]
	t := ctx.fn.FreshTemp(slot.Type().(ir.PtrType).Elem)
	ctx.cur.Add(&ir.Load{Result: t, Ptr: slot})
	return t
}

// lowerIndexList lowers ref's explicit subscript expressions to GEP
// index values in source order, with no stride scaling of its own —
// each position's stride is a function purely of the GEP's own static
// element type, and is resolved once downstream in the backend.
func (ctx *funcCtx) lowerIndexList(indices []ast.NodeID) []ir.Value {
	out := make([]ir.Value, len(indices))
	for i, idxExpr := range indices {
		out[i] = ctx.lowerExprValue(idxExpr)
	}
	return out
}
