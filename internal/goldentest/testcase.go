// Package goldentest is the Markdown-fixture test harness: testdata/*.md
// files hold one or more SysY programs plus the pipeline output expected
// from each, extracted with goldmark the way Zong's sexy/testcase.go
// extracts its own Markdown-driven "Sexy" format. Unlike Zong, the
// expectation bodies here are not a separate S-expression DSL — the AST
// dump and IR dump this project already prints are reused directly as the
// assertion format, since both are already diffable text.
package goldentest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// AssertionType names one expectation fence a test case can carry.
type AssertionType string

const (
	AssertionAST          AssertionType = "ast"
	AssertionIR           AssertionType = "ir"
	AssertionCompileError AssertionType = "compile-error"
)

func isAssertionFence(lang string) bool {
	switch AssertionType(lang) {
	case AssertionAST, AssertionIR, AssertionCompileError:
		return true
	default:
		return false
	}
}

// Assertion is one expectation fence attached to a TestCase.
type Assertion struct {
	Type    AssertionType
	Content string
}

// TestCase is one "Test: <name>" heading's input fence plus every
// assertion fence that follows it, up to the next heading.
type TestCase struct {
	Name       string
	Input      string
	Assertions []Assertion
}

// ExtractTestCases walks a Markdown document's AST (goldmark, the same
// library Zong's sexy/testcase.go parses its fixtures with) and collects
// every "Test: " heading's input/assertion fences into a TestCase.
func ExtractTestCases(markdown string) ([]TestCase, error) {
	md := goldmark.New()
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var cur *TestCase

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			text := headingText(node, source)
			if !strings.HasPrefix(text, "Test: ") {
				return ast.WalkContinue, nil
			}
			if cur != nil {
				if err := validate(cur); err != nil {
					return ast.WalkStop, err
				}
				cases = append(cases, *cur)
			}
			cur = &TestCase{Name: strings.TrimPrefix(text, "Test: ")}

		case *ast.FencedCodeBlock:
			lang := string(node.Language(source))
			content := fenceContent(node, source)
			if cur == nil {
				return ast.WalkContinue, nil
			}
			switch {
			case lang == "sysy":
				if cur.Input != "" {
					return ast.WalkStop, fmt.Errorf("test %q: multiple sysy fences", cur.Name)
				}
				cur.Input = strings.TrimRight(content, "\n")
			case isAssertionFence(lang):
				cur.Assertions = append(cur.Assertions, Assertion{
					Type:    AssertionType(lang),
					Content: strings.TrimRight(content, "\n"),
				})
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("goldentest: walking markdown: %w", err)
	}

	if cur != nil {
		if err := validate(cur); err != nil {
			return nil, err
		}
		cases = append(cases, *cur)
	}
	return cases, nil
}

func validate(tc *TestCase) error {
	if tc.Input == "" {
		return fmt.Errorf("test %q: no sysy input fence", tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test %q: no assertion fences", tc.Name)
	}
	return nil
}

func headingText(n ast.Node, source []byte) string {
	var b bytes.Buffer
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func fenceContent(block *ast.FencedCodeBlock, source []byte) string {
	var b bytes.Buffer
	for i := 0; i < block.Lines().Len(); i++ {
		line := block.Lines().At(i)
		b.Write(line.Value(source))
	}
	return b.String()
}
