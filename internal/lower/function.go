package lower

import (
	"fmt"

	"github.com/NeatLii/SysYCompiler/internal/ast"
	"github.com/NeatLii/SysYCompiler/internal/ir"
)

// funcCtx carries one function's lowering state: the in-progress
// ir.Function, the block currently being appended to, the address each
// local/param decl lowers to, and the nearest enclosing loop's
// break/continue targets.
type funcCtx struct {
	a   *ast.Arena
	fn  *ir.Function
	cur *ir.BasicBlock

	locals      map[ast.NodeID]ir.Value
	globals     map[ast.NodeID]*ir.Global
	funcGlobals map[ast.NodeID]*ir.Global

	blockN int

	breakLabels []*ir.Label
	contLabels  []*ir.Label
}

func (ctx *funcCtx) freshLabel(prefix string) *ir.Label {
	ctx.blockN++
	return &ir.Label{Name: fmt.Sprintf("%s.%d", prefix, ctx.blockN)}
}

func (ctx *funcCtx) openBlock(label *ir.Label) *ir.BasicBlock {
	bb := &ir.BasicBlock{Label: label}
	ctx.fn.AddBlock(bb)
	ctx.cur = bb
	return bb
}

func lowerFunction(a *ast.Arena, fn *ast.FunctionDecl, globals, funcGlobals map[ast.NodeID]*ir.Global) *ir.Function {
	retTy := voidOrI32(fn.RetType)
	params := make([]*ir.Local, len(fn.Params))
	for i, p := range fn.Params {
		pd := a.Get(p).(*ast.ParamVarDecl)
		params[i] = &ir.Local{Name: paramName(a, pd, p), Ty: paramIRType(a, pd)}
	}
	irFn := ir.NewFunction(fn.Name(a), retTy, params)

	ctx := &funcCtx{
		a: a, fn: irFn,
		locals:      map[ast.NodeID]ir.Value{},
		globals:     globals,
		funcGlobals: funcGlobals,
	}
	ctx.openBlock(&ir.Label{Name: "entry"})

	for i, p := range fn.Params {
		slotTy := params[i].Ty
		slot := &ir.Local{Name: params[i].Name + ".addr", Ty: ir.PtrType{Elem: slotTy}}
		ctx.cur.Add(&ir.Alloca{Result: slot, Elem: slotTy})
		ctx.cur.Add(&ir.Store{Value: params[i], Ptr: slot})
		ctx.locals[p] = slot
	}

	ctx.lowerStmt(fn.Body)
	if !ctx.cur.Terminated() {
		if fn.RetType == ast.Void {
			ctx.cur.Add(&ir.Ret{HasValue: false})
		} else {
			ctx.cur.Add(&ir.Ret{HasValue: true, Value: &ir.Imm{Val: 0}})
		}
	}
	return irFn
}
