// Package ast implements the AST Arena: an append-only node table indexed
// by NodeID, and the tagged-variant node set spec.md §3 describes.
//
// Each concrete node is a Go struct embedding Base; the sum-type-via-
// interface idiom (a private marker method instead of a kind field driving
// downcasts) follows confucianzuoyuan-zcc/ir/ir.go's IrValue/IrType
// pattern, itself standing in for the C++ original's virtual dispatch and
// dynamic_cast chain (spec.md §9's "tagged variants vs class hierarchies").
package ast

import "github.com/NeatLii/SysYCompiler/internal/source"

// NodeID is the index of a node in an Arena's node table.
type NodeID int

// NoNode is the NodeID -1, which Arena never assigns, reserved as
// "absent" for optional children; callers that thread an "absent"
// sentinel use the Has* boolean fields instead of comparing against
// NoNode.
const NoNode NodeID = -1

// ValueType is SysY's tiny type lattice: declarations are either void or
// 32-bit int (scalar or array-of); there is no float, struct, or pointer
// type at the source level (spec.md §1 Non-goals).
type ValueType int

const (
	Undef ValueType = iota
	Void
	Int
)

func (t ValueType) String() string {
	switch t {
	case Void:
		return "void"
	case Int:
		return "int"
	default:
		return "undef"
	}
}

// Node is implemented by every AST node. Kind() supports diagnostics and
// dumping; callers that need to act on a node's concrete shape use a type
// switch on the Go type, not Kind(), to keep the compiler honest about
// exhaustiveness.
type Node interface {
	isNode()
	Kind() string
	NodeRange() source.Range
	SetRange(source.Range)
	Parent() (NodeID, bool)
	SetParent(NodeID)
}

// Base is embedded by every concrete node and implements the common
// parent/range bookkeeping so individual node types only declare their
// own payload fields.
type Base struct {
	rng       source.Range
	hasParent bool
	parent    NodeID
}

func (b *Base) NodeRange() source.Range    { return b.rng }
func (b *Base) SetRange(r source.Range)    { b.rng = r }
func (b *Base) Parent() (NodeID, bool)     { return b.parent, b.hasParent }
func (b *Base) SetParent(p NodeID)         { b.hasParent, b.parent = true, p }

// Scope is implemented by the two scope-bearing node kinds (TranslationUnit,
// CompoundStmt): each owns an identifier map from name to declaring NodeID,
// populated by the Scope Walker (spec.md §4.1) and consulted by the
// Resolver (spec.md §4.2).
type Scope interface {
	Node
	Declare(name string, decl NodeID) bool // false on duplicate name
	Lookup(name string) (NodeID, bool)
	Idents() map[string]NodeID
}

type identMap struct {
	idents map[string]NodeID
}

func (m *identMap) Declare(name string, decl NodeID) bool {
	if m.idents == nil {
		m.idents = make(map[string]NodeID)
	}
	if _, exists := m.idents[name]; exists {
		return false
	}
	m.idents[name] = decl
	return true
}

func (m *identMap) Lookup(name string) (NodeID, bool) {
	id, ok := m.idents[name]
	return id, ok
}

func (m *identMap) Idents() map[string]NodeID { return m.idents }

// ---- TranslationUnit ----

type TranslationUnit struct {
	Base
	identMap
	Decls []NodeID
}

func (*TranslationUnit) isNode()        {}
func (*TranslationUnit) Kind() string   { return "TranslationUnit" }

// ---- Declarations ----

type VarDecl struct {
	Base
	NameTok  source.TokenID
	Dims     []NodeID // compile-time-constant, positive dimension exprs
	IsConst  bool
	HasInit  bool
	Init     NodeID // scalar Expr, or an InitListExpr once normalized
}

func (*VarDecl) isNode()      {}
func (*VarDecl) Kind() string { return "VarDecl" }
func (d *VarDecl) IsArray() bool { return len(d.Dims) > 0 }

type ParamVarDecl struct {
	Base
	NameTok   source.TokenID
	IsPointer bool
	Dims      []NodeID // trailing dims only; leading dim is implicit when IsPointer
}

func (*ParamVarDecl) isNode()      {}
func (*ParamVarDecl) Kind() string { return "ParamVarDecl" }
func (d *ParamVarDecl) IsArrayPtr() bool { return d.IsPointer && len(d.Dims) > 0 }

type FunctionDecl struct {
	Base
	NameTok     source.TokenID
	BuiltinName string // set instead of NameTok when IsBuiltin
	RetType     ValueType
	Params      []NodeID
	HasBody     bool
	Body        NodeID // CompoundStmt
	IsBuiltin   bool   // pre-populated runtime declaration, not user source
}

func (*FunctionDecl) isNode()      {}
func (*FunctionDecl) Kind() string { return "FunctionDecl" }

// Name resolves a FunctionDecl's source-visible identifier, whether it is
// a real token (user source) or a synthetic built-in name.
func (d *FunctionDecl) Name(a *Arena) string {
	if d.IsBuiltin {
		return d.BuiltinName
	}
	return a.Src.Text(d.NameTok)
}

// ---- Statements ----

type CompoundStmt struct {
	Base
	identMap
	Stmts []NodeID
}

func (*CompoundStmt) isNode()      {}
func (*CompoundStmt) Kind() string { return "CompoundStmt" }

type DeclStmt struct {
	Base
	Decls []NodeID // VarDecl ids
}

func (*DeclStmt) isNode()      {}
func (*DeclStmt) Kind() string { return "DeclStmt" }

type NullStmt struct{ Base }

func (*NullStmt) isNode()      {}
func (*NullStmt) Kind() string { return "NullStmt" }

type IfStmt struct {
	Base
	Cond    NodeID
	Then    NodeID
	HasElse bool
	Else    NodeID
}

func (*IfStmt) isNode()      {}
func (*IfStmt) Kind() string { return "IfStmt" }

type WhileStmt struct {
	Base
	Cond NodeID
	Body NodeID
}

func (*WhileStmt) isNode()      {}
func (*WhileStmt) Kind() string { return "WhileStmt" }

type ContinueStmt struct{ Base }

func (*ContinueStmt) isNode()      {}
func (*ContinueStmt) Kind() string { return "ContinueStmt" }

type BreakStmt struct{ Base }

func (*BreakStmt) isNode()      {}
func (*BreakStmt) Kind() string { return "BreakStmt" }

type ReturnStmt struct {
	Base
	HasExpr bool
	Expr    NodeID
}

func (*ReturnStmt) isNode()      {}
func (*ReturnStmt) Kind() string { return "ReturnStmt" }

// ---- Expressions ----

// ExprBase is embedded by every expression node; IsConst/Value are filled
// in by the Const Evaluator (spec.md §4.3) and start both zero-valued,
// except on an IntegerLiteral, which the parser already marks const.
type ExprBase struct {
	Base
	IsConst  bool
	Value    int32
	IsFiller bool // synthetic node introduced by the Initializer Normalizer
}

func (e *ExprBase) SetConst(v int32) { e.IsConst, e.Value = true, v }

// ConstInfo reports an expression's constancy and, if const, its value.
// Promoted to every concrete Expr type through ExprBase embedding, so
// callers can read (is_const, value) without a type switch over every
// Expr kind.
func (e *ExprBase) ConstInfo() (bool, int32) { return e.IsConst, e.Value }

type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpAnd // &&
	OpOr  // ||
	OpEQ
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpAssign
)

type UnOpKind int

const (
	OpPlus UnOpKind = iota
	OpMinus
	OpNot
)

type IntegerLiteral struct {
	ExprBase
}

func (*IntegerLiteral) isNode()      {}
func (*IntegerLiteral) Kind() string { return "IntegerLiteral" }

type ParenExpr struct {
	ExprBase
	Sub NodeID
}

func (*ParenExpr) isNode()      {}
func (*ParenExpr) Kind() string { return "ParenExpr" }

type DeclRefExpr struct {
	ExprBase
	NameTok      source.TokenID
	Indices      []NodeID // dimension-index exprs, k <= declared dims
	HasResolved  bool
	Resolved     NodeID
}

func (*DeclRefExpr) isNode()      {}
func (*DeclRefExpr) Kind() string { return "DeclRefExpr" }

type CallExpr struct {
	ExprBase
	NameTok     source.TokenID
	Args        []NodeID
	HasResolved bool
	Resolved    NodeID
}

func (*CallExpr) isNode()      {}
func (*CallExpr) Kind() string { return "CallExpr" }

type BinaryOp struct {
	ExprBase
	Op       BinOpKind
	LHS, RHS NodeID
}

func (*BinaryOp) isNode()      {}
func (*BinaryOp) Kind() string { return "BinaryOp" }

type UnaryOp struct {
	ExprBase
	Op  UnOpKind
	Sub NodeID
}

func (*UnaryOp) isNode()      {}
func (*UnaryOp) Kind() string { return "UnaryOp" }

// InitListExpr is rewritten in place by the Initializer Normalizer
// (spec.md §4.4) so that, post-normalization, Children/Shape match the
// owning VarDecl's declared dimension list exactly (invariant 4).
type InitListExpr struct {
	ExprBase
	Children []NodeID // scalar Expr or nested InitListExpr, row-major
	Shape    []int    // declared extents at this level and below
	IsFiller bool      // synthetic all-zero node with an empty SourceRange
}

func (*InitListExpr) isNode()      {}
func (*InitListExpr) Kind() string { return "InitListExpr" }
