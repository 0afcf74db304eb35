package goldentest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/NeatLii/SysYCompiler/internal/ast"
	"github.com/NeatLii/SysYCompiler/internal/lower"
	"github.com/NeatLii/SysYCompiler/internal/parser"
	"github.com/NeatLii/SysYCompiler/internal/sema"
)

// RunDir globs dir for *.md fixtures and runs every TestCase they contain
// as a subtest, the way Zong's TestSexyAllTests walks test/*_test.md.
func RunDir(t *testing.T, dir string) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".md")
		t.Run(name, func(t *testing.T) {
			content, err := os.ReadFile(file)
			be.Err(t, err, nil)

			cases, err := ExtractTestCases(string(content))
			be.Err(t, err, nil)

			for _, tc := range cases {
				t.Run(tc.Name, func(t *testing.T) {
					Run(t, tc)
				})
			}
		})
	}
}

// Run drives the front end (parse, link, analyze) and, when no
// compile-error assertion is present, the Lowering Engine over tc.Input,
// checking each of tc's assertions against the matching pipeline stage's
// output.
func Run(t *testing.T, tc TestCase) {
	arena, parseErr := parser.Parse(tc.Name+".sy", tc.Input)
	be.Err(t, parseErr, nil)

	var analysisErr error
	if parseErr == nil {
		if err := sema.Link(arena, tc.Name+".sy"); err != nil {
			analysisErr = err
		} else if err := sema.Analyze(arena, tc.Name+".sy"); err != nil {
			analysisErr = err
		}
	}

	for _, a := range tc.Assertions {
		switch a.Type {
		case AssertionCompileError:
			be.True(t, analysisErr != nil)
			if analysisErr != nil {
				be.True(t, strings.Contains(analysisErr.Error(), a.Content))
			}
		case AssertionAST:
			be.Err(t, analysisErr, nil)
			be.Equal(t, ast.Dump(arena, arena.Root()), a.Content)
		case AssertionIR:
			be.Err(t, analysisErr, nil)
			mod := lower.Module(arena)
			dump := mod.String()
			// Local names embed arena-assigned NodeIDs, which shift with
			// unrelated parsing/linking changes elsewhere in the file and
			// aren't a source-level fact worth pinning down. Each expected
			// line is checked as a substring of the dump instead of
			// requiring the whole module to match byte for byte.
			for _, line := range strings.Split(a.Content, "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				be.True(t, strings.Contains(dump, line))
			}
		}
	}
}
