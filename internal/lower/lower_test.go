package lower

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/NeatLii/SysYCompiler/internal/ir"
	"github.com/NeatLii/SysYCompiler/internal/parser"
	"github.com/NeatLii/SysYCompiler/internal/sema"
)

func lowerSource(t *testing.T, src string) *ir.Module {
	t.Helper()
	arena, err := parser.Parse("t.sy", src)
	be.Err(t, err, nil)
	be.Err(t, sema.Link(arena, "t.sy"), nil)
	be.Err(t, sema.Analyze(arena, "t.sy"), nil)
	return Module(arena)
}

func TestModuleLowersConstGlobal(t *testing.T) {
	mod := lowerSource(t, `
		const int N = 3;
		int main() {
			return N;
		}
	`)
	be.Equal(t, len(mod.Vars), 1)
	be.Equal(t, mod.Vars[0].String(), "@N = constant i32 [3]")
}

func TestModuleLowersZeroInitArray(t *testing.T) {
	mod := lowerSource(t, `
		int arr[3];
		int main() {
			return arr[0];
		}
	`)
	be.Equal(t, len(mod.Vars), 1)
	be.Equal(t, mod.Vars[0].String(), "@arr = global [3 x i32] zeroinitializer")
}

func TestModuleLowersArrayInitList(t *testing.T) {
	mod := lowerSource(t, `
		int arr[3] = {1, 2, 3};
		int main() {
			return arr[0];
		}
	`)
	be.Equal(t, len(mod.Vars), 1)
	be.Equal(t, mod.Vars[0].String(), "@arr = global [3 x i32] [1, 2, 3]")
}

func TestModuleLowersMainFunction(t *testing.T) {
	mod := lowerSource(t, `
		int main() {
			return 42;
		}
	`)
	be.Equal(t, len(mod.FuncDefs), 1)
	fn := mod.FuncDefs[0]
	be.Equal(t, fn.Name, "main")
	be.Equal(t, len(fn.Blocks), 1)
	ret, ok := fn.Blocks[0].Insts[len(fn.Blocks[0].Insts)-1].(*ir.Ret)
	be.True(t, ok)
	be.True(t, ret.HasValue)
	imm, ok := ret.Value.(*ir.Imm)
	be.True(t, ok)
	be.Equal(t, imm.Val, int32(42))
}

// TestModuleLowersIfStatement hand-traces the exact block/label sequence
// lowerIf produces for a mutated-under-a-condition local: the condition's
// load of x is temp 0, its "icmp ne 0" is temp 1, and the merge block's
// reload of x is temp 2 — freshLabel numbers if.end before if.then because
// lowerIf allocates the end-label first.
func TestModuleLowersIfStatement(t *testing.T) {
	mod := lowerSource(t, `
		int main() {
			int x = 1;
			if (x) {
				x = 2;
			}
			return x;
		}
	`)
	be.Equal(t, len(mod.FuncDefs), 1)
	s := mod.FuncDefs[0].String()

	be.True(t, strings.Contains(s, "define i32 @main() {"))
	be.True(t, strings.Contains(s, "%t1 = icmp ne i32 %t0, 0"))
	be.True(t, strings.Contains(s, "br i1 %t1, label %if.then.2, label %if.end.1"))
	be.True(t, strings.Contains(s, "if.then.2:"))
	be.True(t, strings.Contains(s, "if.end.1:"))
	be.True(t, strings.Contains(s, "ret i32 %t2"))
}

// TestModuleLowersWhileLoop confirms a while loop lowers into the
// while.cond/while.body/while.end blocks lowerWhile allocates.
func TestModuleLowersWhileLoop(t *testing.T) {
	mod := lowerSource(t, `
		int main() {
			int i = 0;
			while (i) {
				i = 0;
			}
			return 0;
		}
	`)
	be.Equal(t, len(mod.FuncDefs), 1)
	s := mod.FuncDefs[0].String()

	be.True(t, strings.Contains(s, "while.cond."))
	be.True(t, strings.Contains(s, "while.body."))
	be.True(t, strings.Contains(s, "while.end."))
}

func TestModuleLowersBuiltinCallAsStatement(t *testing.T) {
	mod := lowerSource(t, `
		int main() {
			putint(1);
			return 0;
		}
	`)
	be.Equal(t, len(mod.FuncDecls), 1)
	be.Equal(t, mod.FuncDecls[0].Name, "putint")
	be.Equal(t, mod.FuncDecls[0].String(), "declare void @putint(i32)")

	fn := mod.FuncDefs[0]
	var call *ir.Call
	for _, inst := range fn.Blocks[0].Insts {
		if c, ok := inst.(*ir.Call); ok {
			call = c
		}
	}
	be.True(t, call != nil)
	be.Equal(t, call.Func.Name, "putint")
	be.True(t, !call.HasResult)
	be.Equal(t, len(call.Args), 1)
}

func TestModuleLowersBuiltinCallWithResult(t *testing.T) {
	mod := lowerSource(t, `
		int main() {
			return getint();
		}
	`)
	be.Equal(t, len(mod.FuncDecls), 1)
	be.Equal(t, mod.FuncDecls[0].Name, "getint")

	fn := mod.FuncDefs[0]
	var call *ir.Call
	for _, inst := range fn.Blocks[0].Insts {
		if c, ok := inst.(*ir.Call); ok {
			call = c
		}
	}
	be.True(t, call != nil)
	be.True(t, call.HasResult)
	be.Equal(t, len(call.Args), 0)
}

func TestModuleLowersUserFunctionParams(t *testing.T) {
	mod := lowerSource(t, `
		int add(int a, int b) {
			return a + b;
		}
		int main() {
			return add(1, 2);
		}
	`)
	be.Equal(t, len(mod.FuncDefs), 2)
	var add *ir.Function
	for _, fn := range mod.FuncDefs {
		if fn.Name == "add" {
			add = fn
		}
	}
	be.True(t, add != nil)
	be.Equal(t, len(add.Params), 2)
	for _, p := range add.Params {
		be.Equal(t, p.Ty.String(), "i32")
	}
}

func TestModuleLowersFunctionDeclWithoutBody(t *testing.T) {
	mod := lowerSource(t, `
		int helper(int x);
		int main() {
			return 0;
		}
	`)
	var decl *ir.FuncDecl
	for _, d := range mod.FuncDecls {
		if d.Name == "helper" {
			decl = d
		}
	}
	be.True(t, decl != nil)
	be.Equal(t, decl.Sig.Ret.String(), "i32")
	be.Equal(t, len(decl.Sig.Params), 1)
}

// TestModuleLowersShortCircuitAnd confirms a value-context && opens the
// and.rhs block lowerCond uses for its right operand, plus the
// sc.true/sc.false/sc.end blocks lowerShortCircuitValue materializes the
// result through.
func TestModuleLowersShortCircuitAnd(t *testing.T) {
	mod := lowerSource(t, `
		int main() {
			int a = 1;
			int b = 0;
			return a && b;
		}
	`)
	s := mod.FuncDefs[0].String()

	be.True(t, strings.Contains(s, "and.rhs."))
	be.True(t, strings.Contains(s, "sc.true."))
	be.True(t, strings.Contains(s, "sc.false."))
	be.True(t, strings.Contains(s, "sc.end."))
}

// TestModuleLowersWhileBreakContinue confirms break and continue inside a
// while body branch to the loop's own end/cond labels rather than some
// enclosing loop's — lowerWhile pushes a fresh pair onto ctx.breakLabels
// and ctx.contLabels for exactly the body's lowering and pops them after.
func TestModuleLowersWhileBreakContinue(t *testing.T) {
	mod := lowerSource(t, `
		int main() {
			int i = 0;
			while (i) {
				if (i) {
					break;
				}
				continue;
			}
			return 0;
		}
	`)
	fn := mod.FuncDefs[0]

	var condLabel, endLabel string
	for _, b := range fn.Blocks {
		if strings.HasPrefix(b.Label.Name, "while.cond.") {
			condLabel = b.Label.Name
		}
		if strings.HasPrefix(b.Label.Name, "while.end.") {
			endLabel = b.Label.Name
		}
	}
	be.True(t, condLabel != "")
	be.True(t, endLabel != "")

	var sawBreakBr, sawContinueBr bool
	// the entry block's own jump into the loop also targets condLabel, so
	// it is skipped to leave continue as the only source of that branch.
	for _, b := range fn.Blocks[1:] {
		for _, inst := range b.Insts {
			br, ok := inst.(*ir.Br)
			if !ok {
				continue
			}
			if br.Target.Name == endLabel {
				sawBreakBr = true
			}
			if br.Target.Name == condLabel {
				sawContinueBr = true
			}
		}
	}
	be.True(t, sawBreakBr)
	be.True(t, sawContinueBr)
}

// TestModuleLowersArrayElementAccess exercises a fully-indexed reference
// into a declared multi-dimensional array: declAddr must emit one GEP
// index per dimension (a leading selector slot plus one per explicit
// subscript), and since every dimension is traversed the result collapses
// to a plain Pointer(Int32) ready to load through.
func TestModuleLowersArrayElementAccess(t *testing.T) {
	mod := lowerSource(t, `
		int a[2][3] = {{1, 2, 3}, {4, 5, 6}};
		int main() {
			return a[1][2];
		}
	`)
	be.Equal(t, len(mod.Vars), 1)
	be.Equal(t, mod.Vars[0].String(), "@a = global [2 x [3 x i32]] [1, 2, 3, 4, 5, 6]")

	fn := mod.FuncDefs[0]
	var gep *ir.GEP
	for _, inst := range fn.Blocks[0].Insts {
		if g, ok := inst.(*ir.GEP); ok {
			gep = g
		}
	}
	be.True(t, gep != nil)
	be.Equal(t, len(gep.Indices), 3)
	want := []int32{0, 1, 2}
	for i, w := range want {
		imm, ok := gep.Indices[i].(*ir.Imm)
		be.True(t, ok)
		be.Equal(t, imm.Val, w)
	}
	be.Equal(t, gep.Result.Ty.String(), "i32*")

	var load *ir.Load
	for _, inst := range fn.Blocks[0].Insts {
		if l, ok := inst.(*ir.Load); ok {
			load = l
		}
	}
	be.True(t, load != nil)
	be.Equal(t, load.Ptr, ir.Value(gep.Result))
}

// TestModuleLowersArrayDecayedAsArgument exercises spec.md §8's S6 scenario:
// a bare declared-array name passed as a call argument decays to a pointer
// to its first-row sub-array rather than loading or copying it. Since the
// reference carries zero explicit indices against two declared dimensions,
// only one dimension is consumed and one remains, so the GEP's result keeps
// its residual array shape instead of collapsing to Pointer(Int32).
func TestModuleLowersArrayDecayedAsArgument(t *testing.T) {
	mod := lowerSource(t, `
		void f(int x[][3]);
		int a[2][3];
		int main() {
			f(a);
			return 0;
		}
	`)
	fn := mod.FuncDefs[0]

	var gep *ir.GEP
	var call *ir.Call
	for _, inst := range fn.Blocks[0].Insts {
		switch n := inst.(type) {
		case *ir.GEP:
			gep = n
		case *ir.Call:
			call = n
		}
	}
	be.True(t, gep != nil)
	be.Equal(t, len(gep.Indices), 2)
	for _, v := range gep.Indices {
		imm, ok := v.(*ir.Imm)
		be.True(t, ok)
		be.Equal(t, imm.Val, int32(0))
	}
	be.Equal(t, gep.Result.Ty.String(), "[3 x i32]*")

	be.True(t, call != nil)
	be.Equal(t, call.Func.Name, "f")
	be.Equal(t, len(call.Args), 1)
	be.Equal(t, call.Args[0], ir.Value(gep.Result))
}
