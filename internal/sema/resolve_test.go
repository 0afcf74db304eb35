package sema

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/NeatLii/SysYCompiler/internal/ast"
	"github.com/NeatLii/SysYCompiler/internal/parser"
)

func linkAndAnalyze(t *testing.T, src string) (*ast.Arena, error) {
	t.Helper()
	arena, err := parser.Parse("t.sy", src)
	be.Err(t, err, nil)
	if err := Link(arena, "t.sy"); err != nil {
		return arena, err
	}
	return arena, Analyze(arena, "t.sy")
}

func TestAnalyzeValidProgram(t *testing.T) {
	_, err := linkAndAnalyze(t, `
		const int N = 10;
		int main() {
			int x = N + 1;
			return x;
		}
	`)
	be.Err(t, err, nil)
}

func TestAnalyzeUnresolvedIdentifier(t *testing.T) {
	_, err := linkAndAnalyze(t, `
		int main() {
			return y;
		}
	`)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unresolved identifier"))
}

func TestAnalyzeCallToUndeclaredFunction(t *testing.T) {
	_, err := linkAndAnalyze(t, `
		int main() {
			return missing(1);
		}
	`)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unresolved identifier"))
}

func TestAnalyzeDuplicateTopLevelDeclaration(t *testing.T) {
	arena, err := parser.Parse("t.sy", `
		int x;
		int x;
		int main() { return 0; }
	`)
	be.Err(t, err, nil)
	linkErr := Link(arena, "t.sy")
	be.True(t, linkErr != nil)
	be.True(t, strings.Contains(linkErr.Error(), "duplicate declaration"))
}

func TestAnalyzeDivisionByZeroInConstInit(t *testing.T) {
	_, err := linkAndAnalyze(t, `
		const int N = 1 / 0;
		int main() { return N; }
	`)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "division by zero"))
}

func TestAnalyzeRemainderByZeroInConstInit(t *testing.T) {
	_, err := linkAndAnalyze(t, `
		const int N = 1 % 0;
		int main() { return N; }
	`)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "division by zero"))
}

func TestConstEvaluatorFoldsArithmetic(t *testing.T) {
	arena, err := linkAndAnalyze(t, `
		const int N = (2 + 3) * 4;
		int main() { return N; }
	`)
	be.Err(t, err, nil)

	unit := arena.RootUnit()
	vd := arena.Get(unit.Decls[0]).(*ast.VarDecl)
	ok, v := arena.Get(vd.Init).(interface{ ConstInfo() (bool, int32) }).ConstInfo()
	be.True(t, ok)
	be.Equal(t, v, int32(20))
}

func TestConstEvaluatorRejectsNonConstArrayDim(t *testing.T) {
	_, err := linkAndAnalyze(t, `
		int n;
		int arr[n];
		int main() { return arr[0]; }
	`)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "not a compile-time constant"))
}

func TestInitializerNormalizerPadsArrayInitList(t *testing.T) {
	arena, err := linkAndAnalyze(t, `
		int arr[4] = {1, 2};
		int main() { return arr[0]; }
	`)
	be.Err(t, err, nil)

	unit := arena.RootUnit()
	vd := arena.Get(unit.Decls[0]).(*ast.VarDecl)
	list := arena.Get(vd.Init).(*ast.InitListExpr)
	be.Equal(t, len(list.Children), 4)
}

func TestInitializerNormalizerRejectsBraceAroundScalar(t *testing.T) {
	_, err := linkAndAnalyze(t, `
		int arr[2] = {{1}, 2};
		int main() { return arr[0]; }
	`)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "malformed initializer"))
}

func TestAnalyzeVoidFunctionCallAsStatement(t *testing.T) {
	_, err := linkAndAnalyze(t, `
		int main() {
			putint(1);
			return 0;
		}
	`)
	be.Err(t, err, nil)
}
