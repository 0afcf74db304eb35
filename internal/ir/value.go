package ir

import "strconv"

// Value is implemented by every operand an instruction can reference:
// an immediate, a global, a local (alloca result or parameter), or a
// temporary (an instruction's own result).
type Value interface {
	isValue()
	Type() Type
	String() string
}

// Imm is a constant i32 operand.
type Imm struct {
	Val int32
}

func (*Imm) isValue()       {}
func (*Imm) Type() Type     { return IntType{Width: I32} }
func (v *Imm) String() string { return strconv.FormatInt(int64(v.Val), 10) }

// Global names a module-level variable or function by its link name.
type Global struct {
	Name string
	Ty   Type
}

func (*Global) isValue()       {}
func (v *Global) Type() Type   { return v.Ty }
func (v *Global) String() string { return "@" + v.Name }

// Local names an alloca'd stack slot or a function parameter.
type Local struct {
	Name string
	Ty   Type
}

func (*Local) isValue()       {}
func (v *Local) Type() Type   { return v.Ty }
func (v *Local) String() string { return "%" + v.Name }

// Temp is an instruction's result, numbered by the lowering engine's
// per-function counter (spec.md's "temp freshness" invariant: every Temp
// a function produces carries a distinct, monotonically increasing Num).
type Temp struct {
	Num int
	Ty  Type
}

func (*Temp) isValue()       {}
func (v *Temp) Type() Type   { return v.Ty }
func (v *Temp) String() string { return "%t" + strconv.Itoa(v.Num) }

// Label is a basic block's own identity as a branch target.
type Label struct {
	Name string
}

func (*Label) isValue()       {}
func (*Label) Type() Type     { return LabelType{} }
func (v *Label) String() string { return "%" + v.Name }
