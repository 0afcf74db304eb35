package lower

import "github.com/NeatLii/SysYCompiler/internal/ir"

// builtinSig is the static signature table for the runtime symbols
// sema.Link pre-populates (spec.md §4.1/§6). Their ast.FunctionDecl
// carries no Params — the shapes below are the fixed SysY runtime ABI,
// not something the source program ever declares.
func builtinSig(name string) ir.FuncType {
	i32 := ir.IntType{Width: ir.I32}
	i32ptr := ir.PtrType{Elem: i32}
	switch name {
	case "getint", "getch", "getarray":
		params := []ir.Type(nil)
		if name == "getarray" {
			params = []ir.Type{i32ptr}
		}
		return ir.FuncType{Ret: i32, Params: params}
	case "putint", "putch":
		return ir.FuncType{Ret: ir.VoidType{}, Params: []ir.Type{i32}}
	case "putarray":
		return ir.FuncType{Ret: ir.VoidType{}, Params: []ir.Type{i32, i32ptr}}
	case "_sysy_starttime", "_sysy_stoptime":
		return ir.FuncType{Ret: ir.VoidType{}, Params: []ir.Type{i32}}
	default:
		return ir.FuncType{Ret: ir.VoidType{}}
	}
}
