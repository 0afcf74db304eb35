package lower

import (
	"fmt"

	"github.com/NeatLii/SysYCompiler/internal/ast"
	"github.com/NeatLii/SysYCompiler/internal/ir"
)

// lowerStmt lowers one statement into ctx.cur, following ctx.cur forward
// as new blocks are opened. A call arriving after the current block
// already carries a terminator is unreachable source (e.g. code
// following a return) and is skipped, matching the original's handling
// of dead continuations.
func (ctx *funcCtx) lowerStmt(id ast.NodeID) {
	if ctx.cur.Terminated() {
		return
	}
	switch n := ctx.a.Get(id).(type) {
	case *ast.CompoundStmt:
		for _, s := range n.Stmts {
			ctx.lowerStmt(s)
			if ctx.cur.Terminated() {
				break
			}
		}
	case *ast.DeclStmt:
		for _, d := range n.Decls {
			ctx.lowerLocalVarDecl(d, ctx.a.Get(d).(*ast.VarDecl))
		}
	case *ast.NullStmt:
		// nothing to emit
	case *ast.IfStmt:
		ctx.lowerIf(n)
	case *ast.WhileStmt:
		ctx.lowerWhile(n)
	case *ast.ContinueStmt:
		ctx.cur.Add(&ir.Br{Target: ctx.contLabels[len(ctx.contLabels)-1]})
	case *ast.BreakStmt:
		ctx.cur.Add(&ir.Br{Target: ctx.breakLabels[len(ctx.breakLabels)-1]})
	case *ast.ReturnStmt:
		if n.HasExpr {
			val := ctx.lowerExprValue(n.Expr)
			ctx.cur.Add(&ir.Ret{HasValue: true, Value: val})
		} else {
			ctx.cur.Add(&ir.Ret{HasValue: false})
		}
	default:
		ctx.lowerExprValue(id)
	}
}

func (ctx *funcCtx) lowerLocalVarDecl(declID ast.NodeID, vd *ast.VarDecl) {
	ty := varIRType(ctx.a, vd)
	name := fmt.Sprintf("%s.%d", ctx.a.Src.Text(vd.NameTok), int(declID))
	slot := &ir.Local{Name: name, Ty: ir.PtrType{Elem: ty}}
	ctx.cur.Add(&ir.Alloca{Result: slot, Elem: ty})
	ctx.locals[declID] = slot

	if !vd.HasInit {
		return
	}
	if !vd.IsArray() {
		val := ctx.lowerExprValue(vd.Init)
		ctx.cur.Add(&ir.Store{Value: val, Ptr: slot})
		return
	}
	dims := dimsOf(ctx.a, vd.Dims)
	leaves := flattenInitLeaves(ctx.a, vd.Init)
	for i, leaf := range leaves {
		val := ctx.lowerExprValue(leaf)
		indices := append([]ir.Value{&ir.Imm{Val: 0}}, unflattenIndices(dims, i)...)
		addr := ctx.fn.FreshTemp(ir.PtrType{Elem: ir.IntType{Width: ir.I32}})
		ctx.cur.Add(&ir.GEP{Result: addr, Ptr: slot, Indices: indices})
		ctx.cur.Add(&ir.Store{Value: val, Ptr: addr})
	}
}

// unflattenIndices decomposes a row-major flat element position into one
// literal index per declared dimension, the last dimension varying
// fastest — the inverse of flattenInitLeaves' row-major walk, needed
// because a GEP now carries one index per dimension traversed rather
// than a single flattened offset (spec.md §4.6.7).
func unflattenIndices(dims []int, flat int) []ir.Value {
	idx := make([]ir.Value, len(dims))
	for j := len(dims) - 1; j >= 0; j-- {
		idx[j] = &ir.Imm{Val: int32(flat % dims[j])}
		flat /= dims[j]
	}
	return idx
}

// flattenInitLeaves walks a normalized InitListExpr tree in row-major
// order and returns every scalar leaf NodeID, constant or not — mirroring
// TranslateLocalVarDecl's per-element loop, which lowers each element
// with TranslateExpr only when it isn't already const.
func flattenInitLeaves(a *ast.Arena, id ast.NodeID) []ast.NodeID {
	list, ok := a.Get(id).(*ast.InitListExpr)
	if !ok {
		return []ast.NodeID{id}
	}
	var out []ast.NodeID
	for _, c := range list.Children {
		out = append(out, flattenInitLeaves(a, c)...)
	}
	return out
}

func (ctx *funcCtx) lowerIf(n *ast.IfStmt) {
	a := ctx.a
	if ok, v := exprConstVal(a, n.Cond); ok {
		if v != 0 {
			ctx.lowerStmt(n.Then)
		} else if n.HasElse {
			ctx.lowerStmt(n.Else)
		}
		return
	}

	endLabel := ctx.freshLabel("if.end")
	thenLabel := ctx.freshLabel("if.then")
	elseLabel := endLabel
	if n.HasElse {
		elseLabel = ctx.freshLabel("if.else")
	}

	ctx.lowerCond(n.Cond, thenLabel, elseLabel)

	ctx.openBlock(thenLabel)
	ctx.lowerStmt(n.Then)
	if !ctx.cur.Terminated() {
		ctx.cur.Add(&ir.Br{Target: endLabel})
	}

	if n.HasElse {
		ctx.openBlock(elseLabel)
		ctx.lowerStmt(n.Else)
		if !ctx.cur.Terminated() {
			ctx.cur.Add(&ir.Br{Target: endLabel})
		}
	}

	ctx.openBlock(endLabel)
}

func (ctx *funcCtx) lowerWhile(n *ast.WhileStmt) {
	a := ctx.a
	if ok, v := exprConstVal(a, n.Cond); ok && v == 0 {
		return // loop never runs; nothing to lower
	}

	condLabel := ctx.freshLabel("while.cond")
	bodyLabel := ctx.freshLabel("while.body")
	endLabel := ctx.freshLabel("while.end")

	ctx.cur.Add(&ir.Br{Target: condLabel})
	ctx.openBlock(condLabel)
	ctx.lowerCond(n.Cond, bodyLabel, endLabel)

	ctx.openBlock(bodyLabel)
	ctx.breakLabels = append(ctx.breakLabels, endLabel)
	ctx.contLabels = append(ctx.contLabels, condLabel)
	ctx.lowerStmt(n.Body)
	ctx.breakLabels = ctx.breakLabels[:len(ctx.breakLabels)-1]
	ctx.contLabels = ctx.contLabels[:len(ctx.contLabels)-1]
	if !ctx.cur.Terminated() {
		ctx.cur.Add(&ir.Br{Target: condLabel})
	}

	ctx.openBlock(endLabel)
}
