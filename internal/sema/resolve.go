package sema

import (
	"fmt"

	"github.com/NeatLii/SysYCompiler/internal/ast"
	"github.com/NeatLii/SysYCompiler/internal/diag"
	"github.com/NeatLii/SysYCompiler/internal/source"
)

// Analyze runs the Resolver, Const Evaluator, and Initializer Normalizer
// (spec.md §4.2–§4.4) over an already-Link'd arena. Top-level decls are
// walked in file order, interleaving VarDecl and FunctionDecl handling, so
// that a function referencing an earlier global sees it already resolved,
// const-evaluated, and normalized — the same declaration-before-use
// guarantee the Resolver enforces for ordinary references.
func Analyze(a *ast.Arena, file string) error {
	unit := a.RootUnit()
	for _, d := range unit.Decls {
		switch n := a.Get(d).(type) {
		case *ast.VarDecl:
			if err := analyzeVarDecl(a, d, n, file); err != nil {
				return err
			}
		case *ast.FunctionDecl:
			if err := analyzeFunctionDecl(a, d, n, file); err != nil {
				return err
			}
		}
	}
	return nil
}

func analyzeVarDecl(a *ast.Arena, id ast.NodeID, vd *ast.VarDecl, file string) error {
	for _, dim := range vd.Dims {
		if err := resolveExpr(a, dim, file); err != nil {
			return err
		}
	}
	shape, err := dimShape(a, vd.Dims, file)
	if err != nil {
		return err
	}
	if !vd.HasInit {
		return nil
	}
	if err := resolveInitTree(a, vd.Init, file); err != nil {
		return err
	}
	normalized, err := normalizeTop(a, vd.Init, shape, file)
	if err != nil {
		return err
	}
	a.Get(normalized).SetParent(id)
	vd.Init = normalized
	return nil
}

func analyzeFunctionDecl(a *ast.Arena, id ast.NodeID, fn *ast.FunctionDecl, file string) error {
	for _, p := range fn.Params {
		pd := a.Get(p).(*ast.ParamVarDecl)
		for _, dim := range pd.Dims {
			if err := resolveExpr(a, dim, file); err != nil {
				return err
			}
		}
	}
	if !fn.HasBody {
		return nil
	}
	body := a.Get(fn.Body).(*ast.CompoundStmt)
	return analyzeCompound(a, body, file)
}

func analyzeCompound(a *ast.Arena, block *ast.CompoundStmt, file string) error {
	for _, s := range block.Stmts {
		if err := analyzeStmt(a, s, file); err != nil {
			return err
		}
	}
	return nil
}

func analyzeStmt(a *ast.Arena, id ast.NodeID, file string) error {
	switch n := a.Get(id).(type) {
	case *ast.DeclStmt:
		for _, d := range n.Decls {
			vd := a.Get(d).(*ast.VarDecl)
			if err := analyzeVarDecl(a, d, vd, file); err != nil {
				return err
			}
		}
	case *ast.IfStmt:
		if err := resolveExpr(a, n.Cond, file); err != nil {
			return err
		}
		if err := analyzeStmt(a, n.Then, file); err != nil {
			return err
		}
		if n.HasElse {
			if err := analyzeStmt(a, n.Else, file); err != nil {
				return err
			}
		}
	case *ast.WhileStmt:
		if err := resolveExpr(a, n.Cond, file); err != nil {
			return err
		}
		if err := analyzeStmt(a, n.Body, file); err != nil {
			return err
		}
	case *ast.CompoundStmt:
		return analyzeCompound(a, n, file)
	case *ast.ReturnStmt:
		if n.HasExpr {
			return resolveExpr(a, n.Expr, file)
		}
	case *ast.NullStmt, *ast.ContinueStmt, *ast.BreakStmt:
		// no sub-expressions
	default:
		return resolveExpr(a, id, file)
	}
	return nil
}

// dimShape resolves a VarDecl's/ParamVarDecl's declared dimension exprs to
// their constant extents. Every dimension expr must be const per spec.md
// §4.1's "array dimensions are compile-time-constant" invariant.
func dimShape(a *ast.Arena, dims []ast.NodeID, file string) ([]int, error) {
	shape := make([]int, len(dims))
	for i, d := range dims {
		ok, v := exprConst(a, d)
		if !ok {
			return nil, diag.New(diag.NonConstantContext, file, a.Get(d).NodeRange(),
				"array dimension must be a compile-time constant")
		}
		shape[i] = int(v)
	}
	return shape, nil
}

// ---- Resolver + Const Evaluator (spec.md §4.2/§4.3) ----

// resolveExpr recurses into id's sub-expressions, resolves every
// DeclRefExpr/CallExpr name against the enclosing scope chain, and folds
// constant-foldable operators into ExprBase.Value/IsConst.
func resolveExpr(a *ast.Arena, id ast.NodeID, file string) error {
	switch n := a.Get(id).(type) {
	case *ast.IntegerLiteral:
		// already const from the parser

	case *ast.ParenExpr:
		if err := resolveExpr(a, n.Sub, file); err != nil {
			return err
		}
		if ok, v := exprConst(a, n.Sub); ok {
			n.SetConst(v)
		}

	case *ast.DeclRefExpr:
		declID, found := resolveName(a, id, a.Src.Text(n.NameTok), n.NameTok)
		if !found {
			return diag.New(diag.UnresolvedIdentifier, file, n.NodeRange(),
				fmt.Sprintf("%q is not declared", a.Src.Text(n.NameTok)))
		}
		n.HasResolved, n.Resolved = true, declID
		for _, idx := range n.Indices {
			if err := resolveExpr(a, idx, file); err != nil {
				return err
			}
		}
		if v, ok := constDeclRef(a, n, declID); ok {
			n.SetConst(v)
		}

	case *ast.CallExpr:
		declID, found := resolveName(a, id, a.Src.Text(n.NameTok), n.NameTok)
		if !found {
			return diag.New(diag.UnresolvedIdentifier, file, n.NodeRange(),
				fmt.Sprintf("%q is not declared", a.Src.Text(n.NameTok)))
		}
		if _, ok := a.Get(declID).(*ast.FunctionDecl); !ok {
			return diag.New(diag.TypeMismatch, file, n.NodeRange(),
				fmt.Sprintf("%q is not a function", a.Src.Text(n.NameTok)))
		}
		n.HasResolved, n.Resolved = true, declID
		for _, arg := range n.Args {
			if err := resolveExpr(a, arg, file); err != nil {
				return err
			}
		}
		// a call is never a compile-time constant

	case *ast.UnaryOp:
		if err := resolveExpr(a, n.Sub, file); err != nil {
			return err
		}
		if ok, v := exprConst(a, n.Sub); ok {
			switch n.Op {
			case ast.OpPlus:
				n.SetConst(v)
			case ast.OpMinus:
				n.SetConst(-v)
			case ast.OpNot:
				n.SetConst(boolInt(v == 0))
			}
		}

	case *ast.BinaryOp:
		if err := resolveExpr(a, n.LHS, file); err != nil {
			return err
		}
		if err := resolveExpr(a, n.RHS, file); err != nil {
			return err
		}
		if n.Op == ast.OpAssign {
			return nil // an assignment is never a compile-time constant
		}
		lok, lv := exprConst(a, n.LHS)
		rok, rv := exprConst(a, n.RHS)
		if !lok || !rok {
			return nil
		}
		switch n.Op {
		case ast.OpAdd:
			n.SetConst(lv + rv)
		case ast.OpSub:
			n.SetConst(lv - rv)
		case ast.OpMul:
			n.SetConst(lv * rv)
		case ast.OpDiv:
			if rv == 0 {
				return diag.New(diag.DivisionByZero, file, n.NodeRange(), "division by zero in constant expression")
			}
			n.SetConst(lv / rv)
		case ast.OpRem:
			if rv == 0 {
				return diag.New(diag.DivisionByZero, file, n.NodeRange(), "remainder by zero in constant expression")
			}
			n.SetConst(lv % rv)
		case ast.OpAnd:
			n.SetConst(boolInt(lv != 0 && rv != 0))
		case ast.OpOr:
			n.SetConst(boolInt(lv != 0 || rv != 0))
		case ast.OpEQ:
			n.SetConst(boolInt(lv == rv))
		case ast.OpNE:
			n.SetConst(boolInt(lv != rv))
		case ast.OpLT:
			n.SetConst(boolInt(lv < rv))
		case ast.OpLE:
			n.SetConst(boolInt(lv <= rv))
		case ast.OpGT:
			n.SetConst(boolInt(lv > rv))
		case ast.OpGE:
			n.SetConst(boolInt(lv >= rv))
		}

	case *ast.InitListExpr:
		// handled structurally by resolveInitTree/normalizeTop instead;
		// a bare InitListExpr never reaches resolveExpr on its own.
	}
	return nil
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// exprConst reads an already-resolved expression's constancy/value via the
// ConstInfo accessor ExprBase promotes to every concrete Expr type.
func exprConst(a *ast.Arena, id ast.NodeID) (bool, int32) {
	type constHolder interface{ ConstInfo() (bool, int32) }
	if ch, ok := a.Get(id).(constHolder); ok {
		return ch.ConstInfo()
	}
	return false, 0
}

// constDeclRef implements spec.md §4.3's DeclRefExpr rule: const iff every
// index is const and the bound decl is a const-qualified VarDecl (never a
// ParamVarDecl, and never a plain non-const VarDecl), with the value read
// by indexing into that decl's already-normalized initializer tree.
func constDeclRef(a *ast.Arena, ref *ast.DeclRefExpr, declID ast.NodeID) (int32, bool) {
	vd, ok := a.Get(declID).(*ast.VarDecl)
	if !ok || !vd.IsConst || !vd.HasInit {
		return 0, false
	}
	indices := make([]int32, len(ref.Indices))
	for i, idx := range ref.Indices {
		ok, v := exprConst(a, idx)
		if !ok {
			return 0, false
		}
		indices[i] = v
	}
	if len(indices) != len(vd.Dims) {
		return 0, false // partial index: a sub-array, not a scalar constant
	}
	return indexInit(a, vd.Init, indices)
}

func indexInit(a *ast.Arena, id ast.NodeID, indices []int32) (int32, bool) {
	if len(indices) == 0 {
		ok, v := exprConst(a, id)
		return v, ok
	}
	list, ok := a.Get(id).(*ast.InitListExpr)
	if !ok {
		return 0, false
	}
	i := int(indices[0])
	if i < 0 || i >= len(list.Children) {
		return 0, false
	}
	return indexInit(a, list.Children[i], indices[1:])
}

// ---- Scope-chain resolution (spec.md §4.2) ----

// resolveName walks outward from fromID's nearest enclosing Scope,
// accepting the first match whose declaring token strictly precedes
// refTok. Builtins (which carry no real declaring token) always match.
func resolveName(a *ast.Arena, fromID ast.NodeID, name string, refTok source.TokenID) (ast.NodeID, bool) {
	cur := fromID
	for {
		scopeID, ok := nearestScope(a, cur)
		if !ok {
			return 0, false
		}
		scope := a.Get(scopeID).(ast.Scope)
		if declID, found := scope.Lookup(name); found && declPrecedesRef(a, declID, refTok) {
			return declID, true
		}
		parentID, hasParent := a.Get(scopeID).Parent()
		if !hasParent {
			return 0, false
		}
		cur = parentID
	}
}

func nearestScope(a *ast.Arena, id ast.NodeID) (ast.NodeID, bool) {
	cur := id
	for {
		if _, ok := a.Get(cur).(ast.Scope); ok {
			return cur, true
		}
		p, has := a.Get(cur).Parent()
		if !has {
			return 0, false
		}
		cur = p
	}
}

func declPrecedesRef(a *ast.Arena, declID ast.NodeID, refTok source.TokenID) bool {
	switch n := a.Get(declID).(type) {
	case *ast.VarDecl:
		return n.NameTok < refTok
	case *ast.ParamVarDecl:
		return n.NameTok < refTok
	case *ast.FunctionDecl:
		if n.IsBuiltin {
			return true
		}
		return n.NameTok < refTok
	default:
		return true
	}
}

// ---- Initializer resolution/normalization (spec.md §4.3/§4.4) ----

// resolveInitTree resolves/const-evaluates every scalar leaf of a
// raw, possibly-ragged user-written initializer before normalizeTop
// reshapes it, recursing structurally through nested InitListExprs
// without ever calling resolveExpr on a list node itself.
func resolveInitTree(a *ast.Arena, id ast.NodeID, file string) error {
	list, ok := a.Get(id).(*ast.InitListExpr)
	if !ok {
		return resolveExpr(a, id, file)
	}
	for _, c := range list.Children {
		if err := resolveInitTree(a, c, file); err != nil {
			return err
		}
	}
	return nil
}

// normalizeTop is the entry point for spec.md §4.4's normalize(list,
// shape) procedure, called once per VarDecl with the declaration's full
// dimension shape.
func normalizeTop(a *ast.Arena, id ast.NodeID, shape []int, file string) (ast.NodeID, error) {
	return normalize(a, id, shape, file)
}

// normalize implements spec.md §4.4 exactly: a scalar leaf when shape is
// empty; an all-zero filler subtree when list is empty; otherwise list's
// elements are distributed across shape[0] slots, each either an existing
// nested InitListExpr consumed whole (recursing with shape[1:]) or a run
// of sub_size = product(shape[1:]) flat scalars consumed and re-grouped.
// Missing trailing slots are padded with filler subtrees.
func normalize(a *ast.Arena, id ast.NodeID, shape []int, file string) (ast.NodeID, error) {
	if len(shape) == 0 {
		return id, nil
	}
	list, ok := a.Get(id).(*ast.InitListExpr)
	if !ok {
		return 0, fmt.Errorf("sema: normalize: expected InitListExpr, got %s", a.Get(id).Kind())
	}
	outer := shape[0]
	inner := shape[1:]
	subSize := product(inner)

	children := make([]ast.NodeID, 0, outer)
	i := 0
	for slot := 0; slot < outer && i < len(list.Children); slot++ {
		c := list.Children[i]
		if _, isList := a.Get(c).(*ast.InitListExpr); isList {
			if len(inner) == 0 {
				return 0, diag.New(diag.MalformedInitializer, file, a.Get(c).NodeRange(),
					"braced initializer used for a scalar element")
			}
			norm, err := normalize(a, c, inner, file)
			if err != nil {
				return 0, err
			}
			children = append(children, norm)
			i++
			continue
		}
		if len(inner) == 0 {
			children = append(children, c)
			i++
			continue
		}
		end := i + subSize
		if end > len(list.Children) {
			end = len(list.Children)
		}
		flat := list.Children[i:end]
		i = end
		sub := fillerList(a, inner)
		norm, err := fillFlat(a, sub, flat, inner, file)
		if err != nil {
			return 0, err
		}
		children = append(children, norm)
	}
	for len(children) < outer {
		children = append(children, allZero(a, inner))
	}
	list.Children = children
	list.Shape = shape
	return id, nil
}

// fillFlat builds the normalized subtree for a run of subSize flat scalar
// initializers consumed from an enclosing list, recursing the same way
// normalize does but starting from a freshly built filler list instead of
// a user-written one.
func fillFlat(a *ast.Arena, listID ast.NodeID, flat []ast.NodeID, shape []int, file string) (ast.NodeID, error) {
	list := a.Get(listID).(*ast.InitListExpr)
	if len(shape) == 1 {
		children := make([]ast.NodeID, shape[0])
		for i := 0; i < shape[0]; i++ {
			if i < len(flat) {
				children[i] = flat[i]
			} else {
				children[i] = zeroLiteral(a)
			}
		}
		list.Children = children
		list.Shape = shape
		return listID, nil
	}
	sub := product(shape[1:])
	children := make([]ast.NodeID, shape[0])
	for i := 0; i < shape[0]; i++ {
		start := i * sub
		if start >= len(flat) {
			children[i] = allZero(a, shape[1:])
			continue
		}
		end := start + sub
		if end > len(flat) {
			end = len(flat)
		}
		nested := fillerList(a, shape[1:])
		norm, err := fillFlat(a, nested, flat[start:end], shape[1:], file)
		if err != nil {
			return 0, err
		}
		children[i] = norm
	}
	list.Children = children
	list.Shape = shape
	return listID, nil
}

// allZero builds a synthetic all-zero subtree matching shape, for padding
// out a ragged or empty initializer.
func allZero(a *ast.Arena, shape []int) ast.NodeID {
	if len(shape) == 0 {
		return zeroLiteral(a)
	}
	list := fillerList(a, shape)
	l := a.Get(list).(*ast.InitListExpr)
	children := make([]ast.NodeID, shape[0])
	for i := range children {
		children[i] = allZero(a, shape[1:])
	}
	l.Children = children
	return list
}

func fillerList(a *ast.Arena, shape []int) ast.NodeID {
	l := &ast.InitListExpr{IsFiller: true, Shape: shape}
	return a.Add(l)
}

func zeroLiteral(a *ast.Arena) ast.NodeID {
	lit := &ast.IntegerLiteral{}
	lit.IsFiller = true
	lit.SetConst(0)
	return a.Add(lit)
}

func product(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}
