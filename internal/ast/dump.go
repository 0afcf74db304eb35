package ast

import (
	"fmt"
	"strings"
)

// Dump renders the subtree rooted at id as an indented S-expression,
// following Zong's ToSExpr convention of a compact, diffable textual form
// used directly as the golden-test assertion format (internal/goldentest).
func Dump(a *Arena, id NodeID) string {
	var b strings.Builder
	dumpNode(&b, a, id, 0)
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func dumpNode(b *strings.Builder, a *Arena, id NodeID, depth int) {
	indent(b, depth)
	n := a.Get(id)
	switch node := n.(type) {
	case *TranslationUnit:
		b.WriteString("(TranslationUnit\n")
		for _, d := range node.Decls {
			dumpNode(b, a, d, depth+1)
			b.WriteString("\n")
		}
		indent(b, depth)
		b.WriteString(")")
	case *VarDecl:
		name := a.Src.Text(node.NameTok)
		fmt.Fprintf(b, "(VarDecl %s const=%v dims=%d", name, node.IsConst, len(node.Dims))
		if node.HasInit {
			b.WriteString("\n")
			dumpNode(b, a, node.Init, depth+1)
		}
		b.WriteString(")")
	case *ParamVarDecl:
		name := a.Src.Text(node.NameTok)
		fmt.Fprintf(b, "(ParamVarDecl %s ptr=%v dims=%d)", name, node.IsPointer, len(node.Dims))
	case *FunctionDecl:
		name := node.Name(a)
		fmt.Fprintf(b, "(FunctionDecl %s %s params=%d", name, node.RetType, len(node.Params))
		if node.HasBody {
			b.WriteString("\n")
			dumpNode(b, a, node.Body, depth+1)
		}
		b.WriteString(")")
	case *CompoundStmt:
		b.WriteString("(CompoundStmt\n")
		for _, s := range node.Stmts {
			dumpNode(b, a, s, depth+1)
			b.WriteString("\n")
		}
		indent(b, depth)
		b.WriteString(")")
	case *DeclStmt:
		b.WriteString("(DeclStmt\n")
		for _, d := range node.Decls {
			dumpNode(b, a, d, depth+1)
			b.WriteString("\n")
		}
		indent(b, depth)
		b.WriteString(")")
	case *NullStmt:
		b.WriteString("(NullStmt)")
	case *IfStmt:
		b.WriteString("(IfStmt\n")
		dumpNode(b, a, node.Cond, depth+1)
		b.WriteString("\n")
		dumpNode(b, a, node.Then, depth+1)
		if node.HasElse {
			b.WriteString("\n")
			dumpNode(b, a, node.Else, depth+1)
		}
		b.WriteString(")")
	case *WhileStmt:
		b.WriteString("(WhileStmt\n")
		dumpNode(b, a, node.Cond, depth+1)
		b.WriteString("\n")
		dumpNode(b, a, node.Body, depth+1)
		b.WriteString(")")
	case *ContinueStmt:
		b.WriteString("(ContinueStmt)")
	case *BreakStmt:
		b.WriteString("(BreakStmt)")
	case *ReturnStmt:
		if node.HasExpr {
			b.WriteString("(ReturnStmt\n")
			dumpNode(b, a, node.Expr, depth+1)
			b.WriteString(")")
		} else {
			b.WriteString("(ReturnStmt)")
		}
	case *IntegerLiteral:
		fmt.Fprintf(b, "(IntegerLiteral %d)", node.Value)
	case *ParenExpr:
		b.WriteString("(ParenExpr\n")
		dumpNode(b, a, node.Sub, depth+1)
		b.WriteString(")")
	case *DeclRefExpr:
		name := a.Src.Text(node.NameTok)
		fmt.Fprintf(b, "(DeclRefExpr %s", name)
		for _, idx := range node.Indices {
			b.WriteString("\n")
			dumpNode(b, a, idx, depth+1)
		}
		b.WriteString(")")
	case *CallExpr:
		name := a.Src.Text(node.NameTok)
		fmt.Fprintf(b, "(CallExpr %s", name)
		for _, arg := range node.Args {
			b.WriteString("\n")
			dumpNode(b, a, arg, depth+1)
		}
		b.WriteString(")")
	case *BinaryOp:
		fmt.Fprintf(b, "(BinaryOp %s\n", binOpText(node.Op))
		dumpNode(b, a, node.LHS, depth+1)
		b.WriteString("\n")
		dumpNode(b, a, node.RHS, depth+1)
		b.WriteString(")")
	case *UnaryOp:
		fmt.Fprintf(b, "(UnaryOp %s\n", unOpText(node.Op))
		dumpNode(b, a, node.Sub, depth+1)
		b.WriteString(")")
	case *InitListExpr:
		fmt.Fprintf(b, "(InitListExpr filler=%v", node.IsFiller)
		for _, c := range node.Children {
			b.WriteString("\n")
			dumpNode(b, a, c, depth+1)
		}
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "(%s)", n.Kind())
	}
}

func binOpText(op BinOpKind) string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpRem:
		return "%"
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpEQ:
		return "=="
	case OpNE:
		return "!="
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	case OpGT:
		return ">"
	case OpGE:
		return ">="
	case OpAssign:
		return "="
	default:
		return "?"
	}
}

func unOpText(op UnOpKind) string {
	switch op {
	case OpPlus:
		return "+"
	case OpMinus:
		return "-"
	case OpNot:
		return "!"
	default:
		return "?"
	}
}
