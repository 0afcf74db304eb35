// Package lower implements the Lowering Engine (spec.md §4.6): the
// AST-to-IR translation that turns an already-analyzed ast.Arena into an
// ir.Module, directly transliterating
// original_source/src/frontend/ast_to_ir.cc's TranslateXxx family into the
// tagged-variant idiom the rest of this module uses. Lowering returns no
// errors: it runs only on an arena sema.Analyze accepted, and panics on a
// node shape it does not handle.
package lower

import (
	"fmt"

	"github.com/NeatLii/SysYCompiler/internal/ast"
	"github.com/NeatLii/SysYCompiler/internal/ir"
)

// Module lowers an entire, already-Link'd-and-Analyze'd translation unit
// into an ir.Module. Top-level decls are walked in file order so that a
// global's ir.Global is on hand by the time a later function's body
// references it.
func Module(a *ast.Arena) *ir.Module {
	mod := ir.NewModule()
	globals := map[ast.NodeID]*ir.Global{}
	funcGlobals := map[ast.NodeID]*ir.Global{}

	unit := a.RootUnit()
	undeclaredBuiltins := map[*ir.Global]bool{}
	for name, id := range unit.Idents() {
		fn, ok := a.Get(id).(*ast.FunctionDecl)
		if !ok || !fn.IsBuiltin {
			continue
		}
		sig := builtinSig(name)
		g := &ir.Global{Name: name, Ty: sig}
		funcGlobals[id] = g
		undeclaredBuiltins[g] = true
	}

	for _, d := range unit.Decls {
		switch n := a.Get(d).(type) {
		case *ast.VarDecl:
			gv := lowerGlobalVarDecl(a, n)
			mod.AddVar(gv)
			globals[d] = &ir.Global{Name: gv.Name, Ty: ir.PtrType{Elem: gv.Ty}}
		case *ast.FunctionDecl:
			sig := functionSig(a, n)
			g := &ir.Global{Name: n.Name(a), Ty: sig}
			funcGlobals[d] = g
			if n.HasBody {
				mod.AddFuncDef(lowerFunction(a, n, globals, funcGlobals))
			} else {
				mod.AddFuncDecl(&ir.FuncDecl{Name: n.Name(a), Sig: sig})
			}
		}
	}

	// A builtin gets a FuncDecl only once some function body calls it, in
	// order of first call.
	for _, fn := range mod.FuncDefs {
		for _, b := range fn.Blocks {
			for _, inst := range b.Insts {
				if c, ok := inst.(*ir.Call); ok && undeclaredBuiltins[c.Func] {
					delete(undeclaredBuiltins, c.Func)
					mod.AddFuncDecl(&ir.FuncDecl{Name: c.Func.Name, Sig: c.Func.Ty.(ir.FuncType)})
				}
			}
		}
	}
	return mod
}

func lowerGlobalVarDecl(a *ast.Arena, vd *ast.VarDecl) *ir.GlobalVarDef {
	name := a.Src.Text(vd.NameTok)
	ty := varIRType(a, vd)
	if !vd.IsArray() {
		val := int32(0)
		if vd.HasInit {
			_, val = exprConstVal(a, vd.Init)
		}
		return &ir.GlobalVarDef{Name: name, Ty: ty, IsConst: vd.IsConst, Init: []*ir.Imm{{Val: val}}}
	}
	if !vd.HasInit {
		return &ir.GlobalVarDef{Name: name, Ty: ty, IsConst: vd.IsConst, IsZeroInit: true}
	}
	flat := flattenConstInit(a, vd.Init)
	if len(flat) == 0 {
		return &ir.GlobalVarDef{Name: name, Ty: ty, IsConst: vd.IsConst, IsZeroInit: true}
	}
	return &ir.GlobalVarDef{Name: name, Ty: ty, IsConst: vd.IsConst, Init: flat}
}

func flattenConstInit(a *ast.Arena, id ast.NodeID) []*ir.Imm {
	if list, ok := a.Get(id).(*ast.InitListExpr); ok {
		var out []*ir.Imm
		for _, c := range list.Children {
			out = append(out, flattenConstInit(a, c)...)
		}
		return out
	}
	_, v := exprConstVal(a, id)
	return []*ir.Imm{{Val: v}}
}

// exprConstVal reads an already-const-evaluated expression's value via
// the ConstInfo accessor ast.ExprBase promotes to every Expr type.
func exprConstVal(a *ast.Arena, id ast.NodeID) (bool, int32) {
	type constHolder interface{ ConstInfo() (bool, int32) }
	if ch, ok := a.Get(id).(constHolder); ok {
		return ch.ConstInfo()
	}
	return false, 0
}

func voidOrI32(t ast.ValueType) ir.Type {
	if t == ast.Void {
		return ir.VoidType{}
	}
	return ir.IntType{Width: ir.I32}
}

func varIRType(a *ast.Arena, vd *ast.VarDecl) ir.Type {
	if !vd.IsArray() {
		return ir.IntType{Width: ir.I32}
	}
	return ir.ArrayType{Dims: dimsOf(a, vd.Dims)}
}

func dimsOf(a *ast.Arena, dims []ast.NodeID) []int {
	out := make([]int, len(dims))
	for i, d := range dims {
		_, v := exprConstVal(a, d)
		out[i] = int(v)
	}
	return out
}

func paramIRType(a *ast.Arena, pd *ast.ParamVarDecl) ir.Type {
	switch {
	case pd.IsArrayPtr():
		return ir.PtrType{Elem: ir.ArrayType{Dims: dimsOf(a, pd.Dims)}}
	case pd.IsPointer:
		return ir.PtrType{Elem: ir.IntType{Width: ir.I32}}
	default:
		return ir.IntType{Width: ir.I32}
	}
}

func functionSig(a *ast.Arena, fn *ast.FunctionDecl) ir.FuncType {
	params := make([]ir.Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = paramIRType(a, a.Get(p).(*ast.ParamVarDecl))
	}
	return ir.FuncType{Ret: voidOrI32(fn.RetType), Params: params}
}

func paramName(a *ast.Arena, pd *ast.ParamVarDecl, declID ast.NodeID) string {
	return fmt.Sprintf("%s.%d", a.Src.Text(pd.NameTok), int(declID))
}
