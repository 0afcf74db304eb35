// Package parser is the recursive-descent parser that hands the semantic
// pass a parsed ast.Arena over a source.Manager, per the spec.md §6
// collaborator contract: a table-driven consumer of source bytes that
// performs only basic syntactic validation.
//
// It is deliberately out of CORE scope (spec.md §1) — structured the way
// strager-Zong's parser is (a hand-written descent with one function per
// grammar production, precedence expressed by call-chain rather than a
// table), retargeted at SysY's C-subset grammar instead of Zong's
// expression-oriented one.
package parser

import (
	"fmt"

	"github.com/NeatLii/SysYCompiler/internal/ast"
	"github.com/NeatLii/SysYCompiler/internal/lexer"
	"github.com/NeatLii/SysYCompiler/internal/source"
)

// Parser walks a token stream and builds an ast.Arena.
type Parser struct {
	arena *ast.Arena
	toks  []lexer.Token
	pos   int
}

// Parse lexes and parses text, returning a fully populated arena whose
// root is a *ast.TranslationUnit. Parent links and scope identifier maps
// are NOT yet set — that is the Scope Walker's job (internal/sema).
func Parse(fileName, text string) (*ast.Arena, error) {
	src := source.NewManager(fileName)
	toks, err := lexer.Tokenize(src, text)
	if err != nil {
		return nil, err
	}
	p := &Parser{arena: ast.NewArena(src), toks: toks}
	unit, err := p.parseTranslationUnit()
	if err != nil {
		return nil, err
	}
	p.arena.SetRoot(unit)
	return p.arena, nil
}

func (p *Parser) cur() lexer.Token    { return p.toks[p.pos] }
func (p *Parser) kind() lexer.Kind    { return p.toks[p.pos].Kind }
func (p *Parser) curRange() source.Range {
	return p.arena.Src.TokenRange(p.cur().ID)
}

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, error) {
	if p.kind() != k {
		return lexer.Token{}, fmt.Errorf("parser: expected %s at %s, got token kind %d",
			what, p.curRange(), p.kind())
	}
	return p.advance(), nil
}

func (p *Parser) at(k lexer.Kind) bool { return p.kind() == k }

func joinRange(a *ast.Arena, from source.Range, toTokID source.TokenID) source.Range {
	return from.Join(a.Src.TokenRange(toTokID))
}

// ---- top level ----

func (p *Parser) parseTranslationUnit() (ast.NodeID, error) {
	unit := &ast.TranslationUnit{}
	unitID := p.arena.Add(unit)
	for !p.at(lexer.EOF) {
		declIDs, err := p.parseTopLevel()
		if err != nil {
			return 0, err
		}
		unit.Decls = append(unit.Decls, declIDs...)
	}
	return unitID, nil
}

// parseTopLevel parses one top-level VarDecl/ConstDecl group, splitting a
// comma-list into separate VarDecl ids (TranslationUnit.Decls is flat, so
// there is no DeclStmt wrapper at this level), or one FunctionDecl.
func (p *Parser) parseTopLevel() ([]ast.NodeID, error) {
	isConst := false
	if p.at(lexer.KwConst) {
		isConst = true
		p.advance()
	}

	var retType ast.ValueType
	switch p.kind() {
	case lexer.KwInt:
		retType = ast.Int
	case lexer.KwVoid:
		retType = ast.Void
	default:
		return nil, fmt.Errorf("parser: expected 'int' or 'void' at %s", p.curRange())
	}
	startRange := p.curRange()
	p.advance()

	nameTok, err := p.expect(lexer.Ident, "identifier")
	if err != nil {
		return nil, err
	}

	if p.at(lexer.LParen) && !isConst {
		fn, err := p.parseFunctionDecl(retType, nameTok, startRange)
		if err != nil {
			return nil, err
		}
		return []ast.NodeID{fn}, nil
	}

	return p.parseVarDeclRest(isConst, nameTok, startRange)
}

// parseVarDeclRest parses the remainder of one VarDecl (dims, optional
// init) starting right after its name token, plus any further comma-
// separated declarators, returning every VarDecl id produced.
func (p *Parser) parseVarDeclRest(isConst bool, nameTok lexer.Token, startRange source.Range) ([]ast.NodeID, error) {
	var decls []ast.NodeID
	decl, err := p.parseOneVarDecl(isConst, nameTok, startRange)
	if err != nil {
		return nil, err
	}
	decls = append(decls, decl)
	for p.at(lexer.Comma) {
		p.advance()
		nextName, err := p.expect(lexer.Ident, "identifier")
		if err != nil {
			return nil, err
		}
		next, err := p.parseOneVarDecl(isConst, nextName, p.arena.Src.TokenRange(nextName.ID))
		if err != nil {
			return nil, err
		}
		decls = append(decls, next)
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}
	return decls, nil
}

func (p *Parser) parseDims() ([]ast.NodeID, error) {
	var dims []ast.NodeID
	for p.at(lexer.LBracket) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
			return nil, err
		}
		dims = append(dims, e)
	}
	return dims, nil
}

func (p *Parser) parseOneVarDecl(isConst bool, nameTok lexer.Token, startRange source.Range) (ast.NodeID, error) {
	dims, err := p.parseDims()
	if err != nil {
		return 0, err
	}
	decl := &ast.VarDecl{NameTok: nameTok.ID, Dims: dims, IsConst: isConst}
	if p.at(lexer.Assign) {
		p.advance()
		init, err := p.parseInitVal()
		if err != nil {
			return 0, err
		}
		decl.HasInit = true
		decl.Init = init
	}
	decl.SetRange(joinRange(p.arena, startRange, p.toks[p.pos-1].ID))
	return p.arena.Add(decl), nil
}

// parseInitVal parses an Exp or a brace-delimited (possibly ragged,
// possibly empty) initializer list; the Initializer Normalizer
// (internal/sema) reshapes this into the declared shape later.
func (p *Parser) parseInitVal() (ast.NodeID, error) {
	if !p.at(lexer.LBrace) {
		return p.parseExpr()
	}
	start := p.curRange()
	p.advance()
	list := &ast.InitListExpr{}
	if !p.at(lexer.RBrace) {
		for {
			child, err := p.parseInitVal()
			if err != nil {
				return 0, err
			}
			list.Children = append(list.Children, child)
			if p.at(lexer.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	end, err := p.expect(lexer.RBrace, "'}'")
	if err != nil {
		return 0, err
	}
	list.SetRange(start.Join(p.arena.Src.TokenRange(end.ID)))
	return p.arena.Add(list), nil
}

func (p *Parser) parseFunctionDecl(retType ast.ValueType, nameTok lexer.Token, startRange source.Range) (ast.NodeID, error) {
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return 0, err
	}
	var params []ast.NodeID
	if !p.at(lexer.RParen) {
		for {
			param, err := p.parseParam()
			if err != nil {
				return 0, err
			}
			params = append(params, param)
			if p.at(lexer.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return 0, err
	}

	decl := &ast.FunctionDecl{NameTok: nameTok.ID, RetType: retType, Params: params}
	if p.at(lexer.LBrace) {
		body, err := p.parseBlock()
		if err != nil {
			return 0, err
		}
		decl.HasBody = true
		decl.Body = body
	} else {
		if _, err := p.expect(lexer.Semi, "';'"); err != nil {
			return 0, err
		}
	}
	decl.SetRange(joinRange(p.arena, startRange, p.toks[p.pos-1].ID))
	return p.arena.Add(decl), nil
}

func (p *Parser) parseParam() (ast.NodeID, error) {
	start := p.curRange()
	if _, err := p.expect(lexer.KwInt, "'int'"); err != nil {
		return 0, err
	}
	nameTok, err := p.expect(lexer.Ident, "identifier")
	if err != nil {
		return 0, err
	}
	param := &ast.ParamVarDecl{NameTok: nameTok.ID}
	if p.at(lexer.LBracket) {
		param.IsPointer = true
		p.advance()
		if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
			return 0, err
		}
		dims, err := p.parseDims()
		if err != nil {
			return 0, err
		}
		param.Dims = dims
	}
	param.SetRange(joinRange(p.arena, start, p.toks[p.pos-1].ID))
	return p.arena.Add(param), nil
}

// ---- statements ----

func (p *Parser) parseBlock() (ast.NodeID, error) {
	start := p.curRange()
	if _, err := p.expect(lexer.LBrace, "'{'"); err != nil {
		return 0, err
	}
	block := &ast.CompoundStmt{}
	blockID := p.arena.Add(block)
	for !p.at(lexer.RBrace) {
		item, err := p.parseBlockItem()
		if err != nil {
			return 0, err
		}
		block.Stmts = append(block.Stmts, item)
	}
	end, err := p.expect(lexer.RBrace, "'}'")
	if err != nil {
		return 0, err
	}
	block.SetRange(start.Join(p.arena.Src.TokenRange(end.ID)))
	return blockID, nil
}

func (p *Parser) parseBlockItem() (ast.NodeID, error) {
	if p.at(lexer.KwConst) || p.at(lexer.KwInt) {
		return p.parseLocalDeclStmt()
	}
	return p.parseStmt()
}

func (p *Parser) parseLocalDeclStmt() (ast.NodeID, error) {
	start := p.curRange()
	isConst := false
	if p.at(lexer.KwConst) {
		isConst = true
		p.advance()
	}
	if _, err := p.expect(lexer.KwInt, "'int'"); err != nil {
		return 0, err
	}
	stmt := &ast.DeclStmt{}
	for {
		nameTok, err := p.expect(lexer.Ident, "identifier")
		if err != nil {
			return 0, err
		}
		decl, err := p.parseOneVarDecl(isConst, nameTok, p.arena.Src.TokenRange(nameTok.ID))
		if err != nil {
			return 0, err
		}
		stmt.Decls = append(stmt.Decls, decl)
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	end, err := p.expect(lexer.Semi, "';'")
	if err != nil {
		return 0, err
	}
	stmt.SetRange(start.Join(p.arena.Src.TokenRange(end.ID)))
	return p.arena.Add(stmt), nil
}

func (p *Parser) parseStmt() (ast.NodeID, error) {
	switch p.kind() {
	case lexer.LBrace:
		return p.parseBlock()
	case lexer.Semi:
		start := p.curRange()
		p.advance()
		n := &ast.NullStmt{}
		n.SetRange(start)
		return p.arena.Add(n), nil
	case lexer.KwIf:
		return p.parseIfStmt()
	case lexer.KwWhile:
		return p.parseWhileStmt()
	case lexer.KwBreak:
		start := p.curRange()
		p.advance()
		end, err := p.expect(lexer.Semi, "';'")
		if err != nil {
			return 0, err
		}
		n := &ast.BreakStmt{}
		n.SetRange(start.Join(p.arena.Src.TokenRange(end.ID)))
		return p.arena.Add(n), nil
	case lexer.KwContinue:
		start := p.curRange()
		p.advance()
		end, err := p.expect(lexer.Semi, "';'")
		if err != nil {
			return 0, err
		}
		n := &ast.ContinueStmt{}
		n.SetRange(start.Join(p.arena.Src.TokenRange(end.ID)))
		return p.arena.Add(n), nil
	case lexer.KwReturn:
		start := p.curRange()
		p.advance()
		n := &ast.ReturnStmt{}
		if !p.at(lexer.Semi) {
			e, err := p.parseExpr()
			if err != nil {
				return 0, err
			}
			n.HasExpr, n.Expr = true, e
		}
		end, err := p.expect(lexer.Semi, "';'")
		if err != nil {
			return 0, err
		}
		n.SetRange(start.Join(p.arena.Src.TokenRange(end.ID)))
		return p.arena.Add(n), nil
	default:
		return p.parseExprOrAssignStmt()
	}
}

// parseExprOrAssignStmt disambiguates `LVal '=' Exp ';'` from a bare
// expression statement by parsing a full expression first and, if the
// result is immediately followed by '=', re-rooting it as an assignment —
// SysY's LVal grammar is a strict subset of UnaryExp's DeclRefExpr case,
// so any other expression kind before '=' is rejected as a non-lvalue
// assignment target.
func (p *Parser) parseExprOrAssignStmt() (ast.NodeID, error) {
	start := p.curRange()
	e, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.at(lexer.Assign) {
		if _, ok := p.arena.Get(e).(*ast.DeclRefExpr); !ok {
			return 0, fmt.Errorf("parser: assignment target at %s is not an lvalue", start)
		}
		p.advance()
		rhs, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		assign := &ast.BinaryOp{Op: ast.OpAssign, LHS: e, RHS: rhs}
		assign.SetRange(start)
		end, err := p.expect(lexer.Semi, "';'")
		if err != nil {
			return 0, err
		}
		assign.SetRange(start.Join(p.arena.Src.TokenRange(end.ID)))
		return p.arena.Add(assign), nil
	}
	end, err := p.expect(lexer.Semi, "';'")
	if err != nil {
		return 0, err
	}
	_ = end
	return e, nil
}

func (p *Parser) parseIfStmt() (ast.NodeID, error) {
	start := p.curRange()
	p.advance()
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return 0, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return 0, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return 0, err
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	if p.at(lexer.KwElse) {
		p.advance()
		elseStmt, err := p.parseStmt()
		if err != nil {
			return 0, err
		}
		stmt.HasElse, stmt.Else = true, elseStmt
	}
	stmt.SetRange(start.Join(p.arena.Src.TokenRange(p.toks[p.pos-1].ID)))
	return p.arena.Add(stmt), nil
}

func (p *Parser) parseWhileStmt() (ast.NodeID, error) {
	start := p.curRange()
	p.advance()
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return 0, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return 0, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return 0, err
	}
	stmt := &ast.WhileStmt{Cond: cond, Body: body}
	stmt.SetRange(start.Join(p.arena.Src.TokenRange(p.toks[p.pos-1].ID)))
	return p.arena.Add(stmt), nil
}

// ---- expressions, precedence low to high:
//      LOr > LAnd > Eq > Rel > Add > Mul > Unary > Primary

func (p *Parser) parseExpr() (ast.NodeID, error) { return p.parseLOr() }

func (p *Parser) parseLOr() (ast.NodeID, error) {
	lhs, err := p.parseLAnd()
	if err != nil {
		return 0, err
	}
	for p.at(lexer.OrOr) {
		start := p.arena.Get(lhs).NodeRange()
		p.advance()
		rhs, err := p.parseLAnd()
		if err != nil {
			return 0, err
		}
		n := &ast.BinaryOp{Op: ast.OpOr, LHS: lhs, RHS: rhs}
		n.SetRange(start.Join(p.arena.Get(rhs).NodeRange()))
		lhs = p.arena.Add(n)
	}
	return lhs, nil
}

func (p *Parser) parseLAnd() (ast.NodeID, error) {
	lhs, err := p.parseEq()
	if err != nil {
		return 0, err
	}
	for p.at(lexer.AndAnd) {
		start := p.arena.Get(lhs).NodeRange()
		p.advance()
		rhs, err := p.parseEq()
		if err != nil {
			return 0, err
		}
		n := &ast.BinaryOp{Op: ast.OpAnd, LHS: lhs, RHS: rhs}
		n.SetRange(start.Join(p.arena.Get(rhs).NodeRange()))
		lhs = p.arena.Add(n)
	}
	return lhs, nil
}

func (p *Parser) parseEq() (ast.NodeID, error) {
	lhs, err := p.parseRel()
	if err != nil {
		return 0, err
	}
	for p.at(lexer.Eq) || p.at(lexer.Ne) {
		op := ast.OpEQ
		if p.at(lexer.Ne) {
			op = ast.OpNE
		}
		start := p.arena.Get(lhs).NodeRange()
		p.advance()
		rhs, err := p.parseRel()
		if err != nil {
			return 0, err
		}
		n := &ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
		n.SetRange(start.Join(p.arena.Get(rhs).NodeRange()))
		lhs = p.arena.Add(n)
	}
	return lhs, nil
}

func (p *Parser) parseRel() (ast.NodeID, error) {
	lhs, err := p.parseAdd()
	if err != nil {
		return 0, err
	}
	for p.at(lexer.Lt) || p.at(lexer.Le) || p.at(lexer.Gt) || p.at(lexer.Ge) {
		var op ast.BinOpKind
		switch p.kind() {
		case lexer.Lt:
			op = ast.OpLT
		case lexer.Le:
			op = ast.OpLE
		case lexer.Gt:
			op = ast.OpGT
		default:
			op = ast.OpGE
		}
		start := p.arena.Get(lhs).NodeRange()
		p.advance()
		rhs, err := p.parseAdd()
		if err != nil {
			return 0, err
		}
		n := &ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
		n.SetRange(start.Join(p.arena.Get(rhs).NodeRange()))
		lhs = p.arena.Add(n)
	}
	return lhs, nil
}

func (p *Parser) parseAdd() (ast.NodeID, error) {
	lhs, err := p.parseMul()
	if err != nil {
		return 0, err
	}
	for p.at(lexer.Plus) || p.at(lexer.Minus) {
		op := ast.OpAdd
		if p.at(lexer.Minus) {
			op = ast.OpSub
		}
		start := p.arena.Get(lhs).NodeRange()
		p.advance()
		rhs, err := p.parseMul()
		if err != nil {
			return 0, err
		}
		n := &ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
		n.SetRange(start.Join(p.arena.Get(rhs).NodeRange()))
		lhs = p.arena.Add(n)
	}
	return lhs, nil
}

func (p *Parser) parseMul() (ast.NodeID, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for p.at(lexer.Star) || p.at(lexer.Slash) || p.at(lexer.Percent) {
		var op ast.BinOpKind
		switch p.kind() {
		case lexer.Star:
			op = ast.OpMul
		case lexer.Slash:
			op = ast.OpDiv
		default:
			op = ast.OpRem
		}
		start := p.arena.Get(lhs).NodeRange()
		p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		n := &ast.BinaryOp{Op: op, LHS: lhs, RHS: rhs}
		n.SetRange(start.Join(p.arena.Get(rhs).NodeRange()))
		lhs = p.arena.Add(n)
	}
	return lhs, nil
}

func (p *Parser) parseUnary() (ast.NodeID, error) {
	switch p.kind() {
	case lexer.Plus, lexer.Minus, lexer.Bang:
		var op ast.UnOpKind
		switch p.kind() {
		case lexer.Plus:
			op = ast.OpPlus
		case lexer.Minus:
			op = ast.OpMinus
		default:
			op = ast.OpNot
		}
		start := p.curRange()
		p.advance()
		sub, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		n := &ast.UnaryOp{Op: op, Sub: sub}
		n.SetRange(start.Join(p.arena.Get(sub).NodeRange()))
		return p.arena.Add(n), nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (ast.NodeID, error) {
	switch p.kind() {
	case lexer.LParen:
		start := p.curRange()
		p.advance()
		sub, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		end, err := p.expect(lexer.RParen, "')'")
		if err != nil {
			return 0, err
		}
		n := &ast.ParenExpr{Sub: sub}
		n.SetRange(start.Join(p.arena.Src.TokenRange(end.ID)))
		return p.arena.Add(n), nil
	case lexer.IntLit:
		tok := p.advance()
		n := &ast.IntegerLiteral{}
		n.SetRange(p.arena.Src.TokenRange(tok.ID))
		n.SetConst(tok.IntVal)
		return p.arena.Add(n), nil
	case lexer.Ident:
		nameTok := p.advance()
		start := p.arena.Src.TokenRange(nameTok.ID)
		if p.at(lexer.LParen) {
			p.advance()
			var args []ast.NodeID
			if !p.at(lexer.RParen) {
				for {
					arg, err := p.parseExpr()
					if err != nil {
						return 0, err
					}
					args = append(args, arg)
					if p.at(lexer.Comma) {
						p.advance()
						continue
					}
					break
				}
			}
			end, err := p.expect(lexer.RParen, "')'")
			if err != nil {
				return 0, err
			}
			n := &ast.CallExpr{NameTok: nameTok.ID, Args: args}
			n.SetRange(start.Join(p.arena.Src.TokenRange(end.ID)))
			return p.arena.Add(n), nil
		}
		indices, err := p.parseIndexList()
		if err != nil {
			return 0, err
		}
		n := &ast.DeclRefExpr{NameTok: nameTok.ID, Indices: indices}
		n.SetRange(start.Join(p.arena.Src.TokenRange(p.toks[p.pos-1].ID)))
		return p.arena.Add(n), nil
	default:
		return 0, fmt.Errorf("parser: unexpected token kind %d at %s", p.kind(), p.curRange())
	}
}

func (p *Parser) parseIndexList() ([]ast.NodeID, error) {
	var indices []ast.NodeID
	for p.at(lexer.LBracket) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
			return nil, err
		}
		indices = append(indices, e)
	}
	return indices, nil
}
