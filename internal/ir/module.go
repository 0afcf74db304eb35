package ir

import (
	"fmt"
	"strings"
)

// BasicBlock is a straight-line run of instructions ending in exactly one
// terminator (Ret, Br, or CondBr). This package does not enforce that at
// construction, since the Lowering Engine builds a block's instruction
// list incrementally and only reaches the terminator at the end.
type BasicBlock struct {
	Label *Label
	Insts []Inst

	Preds []*BasicBlock
	Succs []*BasicBlock
}

// NewBasicBlock creates an empty block under the given label name.
func NewBasicBlock(name string) *BasicBlock {
	return &BasicBlock{Label: &Label{Name: name}}
}

// Add appends inst to the block. The caller is responsible for appending a
// terminator exactly once and never after one is already present —
// internal/lower's emitter checks this itself rather than panicking here,
// so that a half-built block can still be inspected mid-construction.
func (b *BasicBlock) Add(inst Inst) {
	b.Insts = append(b.Insts, inst)
}

// Terminated reports whether the block's instruction list already ends in
// a terminator.
func (b *BasicBlock) Terminated() bool {
	if len(b.Insts) == 0 {
		return false
	}
	return b.Insts[len(b.Insts)-1].IsTerminator()
}

func (b *BasicBlock) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.Label.Name)
	for _, inst := range b.Insts {
		fmt.Fprintf(&sb, "  %s\n", inst)
	}
	return sb.String()
}

// Function is one function definition: its signature plus the basic
// blocks the Lowering Engine built for its body.
type Function struct {
	Name    string
	RetType Type
	Params  []*Local // one per ast.ParamVarDecl, in declaration order

	Blocks []*BasicBlock

	nextTemp int
}

// NewFunction creates a function declaration/definition shell; Blocks is
// filled in by internal/lower as it walks the body.
func NewFunction(name string, retType Type, params []*Local) *Function {
	return &Function{Name: name, RetType: retType, Params: params}
}

// AddBlock appends a block to the function's body.
func (f *Function) AddBlock(b *BasicBlock) {
	f.Blocks = append(f.Blocks, b)
}

// FreshTemp allocates a new Temp of the given type with a function-unique
// number — the "temp freshness" invariant every lowering helper relies on
// instead of threading a counter by hand.
func (f *Function) FreshTemp(ty Type) *Temp {
	t := &Temp{Num: f.nextTemp, Ty: ty}
	f.nextTemp++
	return t
}

// FuncType reports the function's declared signature as a Type, for use
// as a Global operand's Type when the function is referenced as a Call
// target.
func (f *Function) FuncType() FuncType {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Ty
	}
	return FuncType{Ret: f.RetType, Params: params}
}

func (f *Function) String() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %s", p.Ty, p)
	}
	fmt.Fprintf(&sb, "define %s @%s(%s) {\n", f.RetType, f.Name, strings.Join(params, ", "))
	for _, b := range f.Blocks {
		sb.WriteString(b.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}

// GlobalVarDef is a module-level variable definition: either an explicit
// initializer list (possibly const) or an all-zero array/scalar.
type GlobalVarDef struct {
	Name       string
	Ty         Type
	IsConst    bool
	IsZeroInit bool
	Init       []*Imm // row-major; empty when IsZeroInit
}

func (g *GlobalVarDef) String() string {
	kind := "global"
	if g.IsConst {
		kind = "constant"
	}
	if g.IsZeroInit {
		return fmt.Sprintf("@%s = %s %s zeroinitializer", g.Name, kind, g.Ty)
	}
	parts := make([]string, len(g.Init))
	for i, v := range g.Init {
		parts[i] = v.String()
	}
	return fmt.Sprintf("@%s = %s %s [%s]", g.Name, kind, g.Ty, strings.Join(parts, ", "))
}

// FuncDecl is an extern declaration for a function the module calls but
// does not define — every builtin SysY runtime function (getint, putint,
// ...) the module calls shows up this way, as does a user function
// declared without a body.
type FuncDecl struct {
	Name string
	Sig  FuncType
}

func (d *FuncDecl) String() string {
	params := make([]string, len(d.Sig.Params))
	for i, p := range d.Sig.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("declare %s @%s(%s)", d.Sig.Ret, d.Name, strings.Join(params, ", "))
}

// Module is the Lowering Engine's complete output for one translation
// unit: every global variable, extern declaration, and function
// definition it produced.
type Module struct {
	Vars      []*GlobalVarDef
	FuncDecls []*FuncDecl
	FuncDefs  []*Function
}

// NewModule creates an empty module.
func NewModule() *Module { return &Module{} }

func (m *Module) AddVar(v *GlobalVarDef)       { m.Vars = append(m.Vars, v) }
func (m *Module) AddFuncDecl(d *FuncDecl)       { m.FuncDecls = append(m.FuncDecls, d) }
func (m *Module) AddFuncDef(f *Function)        { m.FuncDefs = append(m.FuncDefs, f) }

// String renders the whole module as textual IR, vars first, then extern
// declarations, then definitions — the same top-to-bottom order the
// original's Module::Dump uses.
func (m *Module) String() string {
	var sb strings.Builder
	for _, v := range m.Vars {
		sb.WriteString(v.String())
		sb.WriteString("\n")
	}
	if len(m.Vars) > 0 {
		sb.WriteString("\n")
	}
	for _, d := range m.FuncDecls {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	if len(m.FuncDecls) > 0 {
		sb.WriteString("\n")
	}
	for i, f := range m.FuncDefs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(f.String())
	}
	return sb.String()
}
