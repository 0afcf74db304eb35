// Package sema is the semantic-analysis pass: the Scope Walker, Resolver,
// Const Evaluator, and Initializer Normalizer of spec.md §4.1–§4.4, run
// over an already-parsed ast.Arena before internal/lower ever sees it.
package sema

import (
	"fmt"

	"github.com/NeatLii/SysYCompiler/internal/ast"
	"github.com/NeatLii/SysYCompiler/internal/diag"
	"github.com/NeatLii/SysYCompiler/internal/source"
)

// builtins lists the runtime symbols injected into the translation unit's
// scope before any user declaration is processed, per spec.md §4.1/§6.
var builtins = []struct {
	name    string
	retType ast.ValueType
}{
	{"getint", ast.Int},
	{"getch", ast.Int},
	{"getarray", ast.Int},
	{"putint", ast.Void},
	{"putch", ast.Void},
	{"putarray", ast.Void},
	{"_sysy_starttime", ast.Void},
	{"_sysy_stoptime", ast.Void},
}

// Link performs the Scope Walker's single top-down traversal: it sets
// parent back-links on every node and populates each scope-bearing node's
// identifier map. File is only carried for diagnostic messages.
func Link(a *ast.Arena, file string) error {
	unit := a.RootUnit()

	for _, b := range builtins {
		decl := &ast.FunctionDecl{IsBuiltin: true, BuiltinName: b.name, RetType: b.retType}
		id := a.Add(decl)
		unit.Declare(b.name, id) // builtins never collide with each other
	}

	for _, d := range unit.Decls {
		a.Get(d).SetParent(a.Root())
		if err := declareTopLevel(a, unit, d, file); err != nil {
			return err
		}
	}
	for _, d := range unit.Decls {
		switch n := a.Get(d).(type) {
		case *ast.FunctionDecl:
			if err := linkFunctionDecl(a, d, n, file); err != nil {
				return err
			}
		case *ast.VarDecl:
			for _, dim := range n.Dims {
				linkExpr(a, dim, d)
			}
			if n.HasInit {
				linkExpr(a, n.Init, d)
			}
		}
	}
	return nil
}

func declareTopLevel(a *ast.Arena, unit *ast.TranslationUnit, id ast.NodeID, file string) error {
	switch n := a.Get(id).(type) {
	case *ast.VarDecl:
		name := a.Src.Text(n.NameTok)
		if !unit.Declare(name, id) {
			return dupErr(a, file, n.NodeRange(), name)
		}
	case *ast.FunctionDecl:
		name := n.Name(a)
		if !unit.Declare(name, id) {
			return dupErr(a, file, n.NodeRange(), name)
		}
	}
	return nil
}

func linkFunctionDecl(a *ast.Arena, fnID ast.NodeID, fn *ast.FunctionDecl, file string) error {
	for _, p := range fn.Params {
		a.Get(p).SetParent(fnID)
	}
	if !fn.HasBody {
		return nil
	}
	body := a.Get(fn.Body).(*ast.CompoundStmt)
	body.SetParent(fnID)
	return linkFunctionBody(a, fn, body, file)
}

func linkFunctionBody(a *ast.Arena, fn *ast.FunctionDecl, body *ast.CompoundStmt, file string) error {
	for _, p := range fn.Params {
		pd := a.Get(p).(*ast.ParamVarDecl)
		pd.SetParent(fn.Body)
		name := a.Src.Text(pd.NameTok)
		if !body.Declare(name, p) {
			return dupErr(a, file, pd.NodeRange(), name)
		}
		for _, dim := range pd.Dims {
			a.Get(dim).SetParent(p)
			linkExpr(a, dim, p)
		}
	}
	return linkCompound(a, body, fn.Body, file)
}

// linkCompound sets parent links for a compound statement's direct
// children and declares every VarDecl a direct-child DeclStmt introduces,
// then recurses into nested constructs. selfID is the NodeID of the
// *ast.CompoundStmt itself (known by the caller, since nodes don't carry
// their own id).
func linkCompound(a *ast.Arena, block *ast.CompoundStmt, selfID ast.NodeID, file string) error {
	for _, s := range block.Stmts {
		a.Get(s).SetParent(selfID)
		switch stmt := a.Get(s).(type) {
		case *ast.DeclStmt:
			for _, d := range stmt.Decls {
				a.Get(d).SetParent(s)
				vd := a.Get(d).(*ast.VarDecl)
				name := a.Src.Text(vd.NameTok)
				if !block.Declare(name, d) {
					return dupErr(a, file, vd.NodeRange(), name)
				}
				for _, dim := range vd.Dims {
					a.Get(dim).SetParent(d)
					linkExpr(a, dim, d)
				}
				if vd.HasInit {
					a.Get(vd.Init).SetParent(d)
					linkInit(a, vd.Init, d)
				}
			}
		case *ast.IfStmt:
			if err := linkStmtTree(a, s, file); err != nil {
				return err
			}
		case *ast.WhileStmt:
			if err := linkStmtTree(a, s, file); err != nil {
				return err
			}
		case *ast.CompoundStmt:
			if err := linkCompound(a, stmt, s, file); err != nil {
				return err
			}
		case *ast.ReturnStmt:
			if stmt.HasExpr {
				a.Get(stmt.Expr).SetParent(s)
				linkExpr(a, stmt.Expr, s)
			}
		default:
			linkExpr(a, s, selfID)
		}
	}
	return nil
}

// linkStmtTree recurses into If/While's cond/then/else/body children,
// opening a fresh scope for any that is itself a CompoundStmt.
func linkStmtTree(a *ast.Arena, id ast.NodeID, file string) error {
	switch n := a.Get(id).(type) {
	case *ast.IfStmt:
		a.Get(n.Cond).SetParent(id)
		linkExpr(a, n.Cond, id)
		if err := linkChildStmt(a, n.Then, id, file); err != nil {
			return err
		}
		if n.HasElse {
			if err := linkChildStmt(a, n.Else, id, file); err != nil {
				return err
			}
		}
	case *ast.WhileStmt:
		a.Get(n.Cond).SetParent(id)
		linkExpr(a, n.Cond, id)
		if err := linkChildStmt(a, n.Body, id, file); err != nil {
			return err
		}
	}
	return nil
}

func linkChildStmt(a *ast.Arena, child, parent ast.NodeID, file string) error {
	a.Get(child).SetParent(parent)
	switch s := a.Get(child).(type) {
	case *ast.CompoundStmt:
		return linkCompound(a, s, child, file)
	case *ast.IfStmt, *ast.WhileStmt:
		return linkStmtTree(a, child, file)
	case *ast.ReturnStmt:
		if s.HasExpr {
			a.Get(s.Expr).SetParent(child)
			linkExpr(a, s.Expr, child)
		}
	default:
		linkExpr(a, child, parent)
	}
	return nil
}

// linkExpr recurses into an expression's sub-nodes, setting parents.
func linkExpr(a *ast.Arena, id ast.NodeID, parent ast.NodeID) {
	a.Get(id).SetParent(parent)
	switch n := a.Get(id).(type) {
	case *ast.ParenExpr:
		linkExpr(a, n.Sub, id)
	case *ast.DeclRefExpr:
		for _, idx := range n.Indices {
			linkExpr(a, idx, id)
		}
	case *ast.CallExpr:
		for _, arg := range n.Args {
			linkExpr(a, arg, id)
		}
	case *ast.BinaryOp:
		linkExpr(a, n.LHS, id)
		linkExpr(a, n.RHS, id)
	case *ast.UnaryOp:
		linkExpr(a, n.Sub, id)
	case *ast.InitListExpr:
		for _, c := range n.Children {
			linkExpr(a, c, id)
		}
	}
}

func linkInit(a *ast.Arena, id ast.NodeID, parent ast.NodeID) {
	linkExpr(a, id, parent)
}

func dupErr(a *ast.Arena, file string, rng source.Range, name string) error {
	return diag.New(diag.DuplicateDeclaration, file, rng,
		fmt.Sprintf("%q is already declared in this scope", name))
}
