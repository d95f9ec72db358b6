package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

// Parse builds the statement list for a whole program. rawSource is kept for
// error snippets. Function declarations are only accepted at the top level.
func Parse(tokens []Token, rawSource string) ([]Stmt, error) {
	p := &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
	var stmts []Stmt
	for {
		for p.peek().Type == SEMICOLON {
			p.advance()
		}
		if p.peek().Type == EOF {
			return stmts, nil
		}
		var (
			s   Stmt
			err error
		)
		if p.peek().Type == FUNCTION {
			s, err = p.parseFunction()
		} else {
			s, err = p.parseStatement()
		}
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
}

// fmtError prefixes a message with the source line and a trimmed snippet of
// the offending line.
func (p *Parser) fmtError(tok Token, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	snippet := ""
	if tok.Line-1 >= 0 && tok.Line-1 < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[tok.Line-1])
	}
	return fmt.Errorf("line %d: %s\n  |> %s", tok.Line, msg, snippet)
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s", tt, tok)
	}
	p.advance()
	return tok, nil
}

// --- Statements ---

func (p *Parser) parseStatement() (Stmt, error) {
	switch p.peek().Type {
	case LET, VAR, CONST:
		return p.parseDecl()
	case FUNCTION:
		return nil, p.fmtError(p.peek(), "functions may only be declared at the top level")
	case RETURN:
		return p.parseReturn()
	case THROW:
		return p.parseThrow()
	case BREAK:
		p.advance()
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &BreakStmt{}, nil
	case CONTINUE:
		p.advance()
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return &ContinueStmt{}, nil
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case DO:
		return p.parseDoWhile()
	case FOR:
		return p.parseFor()
	case SWITCH:
		return p.parseSwitch()
	case TRY:
		return p.parseTry()
	case LBRACE:
		return p.parseBlock()
	default:
		s, err := p.parseSimpleStatement()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
		return s, nil
	}
}

func (p *Parser) parseDecl() (Stmt, error) {
	kind := p.advance()

	if p.peek().Type == LBRACKET {
		if kind.Type == CONST {
			return nil, p.fmtError(kind, "const destructuring is not supported")
		}
		return p.parseDestructuring(kind.Type)
	}

	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	var init Expr
	if p.peek().Type == ASSIGN {
		p.advance()
		init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if kind.Type == CONST && init == nil {
		return nil, p.fmtError(nameTok, "const %q requires an initializer", nameTok.Lexeme)
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &VarDecl{Kind: kind.Type, Name: nameTok.Lexeme, Init: init}, nil
}

func (p *Parser) parseDestructuring(kind TokenType) (Stmt, error) {
	p.advance() // [
	var names []string
	for {
		nameTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		names = append(names, nameTok.Lexeme)
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	init, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &DestructuringDecl{Kind: kind, Names: names, Init: init}, nil
}

func (p *Parser) parseFunction() (Stmt, error) {
	p.advance() // function
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var params []string
	if p.peek().Type != RPAREN {
		for {
			paramTok, err := p.expect(IDENTIFIER)
			if err != nil {
				return nil, err
			}
			params = append(params, paramTok.Lexeme)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FunctionDecl{Name: nameTok.Lexeme, Params: params, Body: body.(*BlockStmt)}, nil
}

func (p *Parser) parseReturn() (Stmt, error) {
	p.advance()
	if p.peek().Type == SEMICOLON {
		p.advance()
		return &ReturnStmt{}, nil
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ReturnStmt{Expr: e}, nil
}

func (p *Parser) parseThrow() (Stmt, error) {
	p.advance()
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &ThrowStmt{Expr: e}, nil
}

func (p *Parser) parseIf() (Stmt, error) {
	p.advance()
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseControlBody()
	if err != nil {
		return nil, err
	}
	var elseNode Stmt
	if p.peek().Type == ELSE {
		p.advance()
		if p.peek().Type == IF {
			elseNode, err = p.parseIf()
		} else {
			elseNode, err = p.parseControlBody()
		}
		if err != nil {
			return nil, err
		}
	}
	return &IfStmt{Cond: cond, Body: body, Else: elseNode}, nil
}

func (p *Parser) parseWhile() (Stmt, error) {
	p.advance()
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseControlBody()
	if err != nil {
		return nil, err
	}
	return &WhileStmt{Cond: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (Stmt, error) {
	p.advance()
	body, err := p.parseControlBody()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(WHILE); err != nil {
		return nil, err
	}
	cond, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}
	return &DoWhileStmt{Body: body, Cond: cond}, nil
}

func (p *Parser) parseFor() (Stmt, error) {
	p.advance()
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	// for (x in arr) and for (let x of arr) forms
	if fe, ok, err := p.tryParseForEach(); ok || err != nil {
		return fe, err
	}

	var init Stmt
	var err error
	switch p.peek().Type {
	case SEMICOLON:
		p.advance()
	case LET, VAR, CONST:
		init, err = p.parseDecl() // consumes the semicolon
		if err != nil {
			return nil, err
		}
	default:
		init, err = p.parseSimpleStatement()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(SEMICOLON); err != nil {
			return nil, err
		}
	}

	var cond Expr
	if p.peek().Type != SEMICOLON {
		cond, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(SEMICOLON); err != nil {
		return nil, err
	}

	var update Stmt
	if p.peek().Type != RPAREN {
		update, err = p.parseSimpleStatement()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseControlBody()
	if err != nil {
		return nil, err
	}
	return &ForStmt{Init: init, Cond: cond, Update: update, Body: body}, nil
}

// tryParseForEach recognises the two for-each shapes after "for (". The
// declaration keyword is optional and carries no meaning: the loop variable
// is always a fresh register binding scoped to the loop.
func (p *Parser) tryParseForEach() (Stmt, bool, error) {
	offset := 0
	if p.peek().Type == LET || p.peek().Type == VAR {
		offset = 1
	}
	if p.peekAt(offset).Type != IDENTIFIER {
		return nil, false, nil
	}
	mode := p.peekAt(offset + 1).Type
	if mode != IN && mode != OF {
		return nil, false, nil
	}

	if offset == 1 {
		p.advance()
	}
	nameTok := p.advance()
	p.advance() // in / of
	arr, err := p.parseExpression()
	if err != nil {
		return nil, true, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, true, err
	}
	body, err := p.parseControlBody()
	if err != nil {
		return nil, true, err
	}
	return &ForEachStmt{Mode: mode, Name: nameTok.Lexeme, Array: arr, Body: body}, true, nil
}

func (p *Parser) parseSwitch() (Stmt, error) {
	p.advance()
	target, err := p.parseParenExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}

	sw := &SwitchStmt{Target: target}
	for p.peek().Type != RBRACE {
		switch p.peek().Type {
		case CASE:
			p.advance()
			v, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(COLON); err != nil {
				return nil, err
			}
			body, err := p.parseCaseBody()
			if err != nil {
				return nil, err
			}
			sw.Cases = append(sw.Cases, CaseClause{Value: v, Body: body})
		case DEFAULT:
			if sw.HasDefault {
				return nil, p.fmtError(p.peek(), "duplicate default case")
			}
			p.advance()
			if _, err := p.expect(COLON); err != nil {
				return nil, err
			}
			body, err := p.parseCaseBody()
			if err != nil {
				return nil, err
			}
			sw.HasDefault = true
			sw.Default = body
		default:
			return nil, p.fmtError(p.peek(), "expected case or default, got %s", p.peek())
		}
	}
	p.advance() // }
	return sw, nil
}

func (p *Parser) parseCaseBody() ([]Stmt, error) {
	var stmts []Stmt
	for {
		switch p.peek().Type {
		case CASE, DEFAULT, RBRACE:
			return stmts, nil
		case SEMICOLON:
			p.advance()
		case EOF:
			return nil, p.fmtError(p.peek(), "unterminated switch body")
		default:
			s, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			stmts = append(stmts, s)
		}
	}
}

func (p *Parser) parseTry() (Stmt, error) {
	tryTok := p.advance()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	ts := &TryStmt{Body: body.(*BlockStmt)}

	if p.peek().Type == CATCH {
		p.advance()
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		nameTok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		blk, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		ts.CatchName = nameTok.Lexeme
		ts.Catch = blk.(*BlockStmt)
	}
	if p.peek().Type == FINALLY {
		p.advance()
		blk, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		ts.Finally = blk.(*BlockStmt)
	}
	if ts.Catch == nil && ts.Finally == nil {
		return nil, p.fmtError(tryTok, "try requires a catch or finally block")
	}
	return ts, nil
}

func (p *Parser) parseBlock() (Stmt, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	blk := &BlockStmt{}
	for p.peek().Type != RBRACE {
		if p.peek().Type == EOF {
			return nil, p.fmtError(p.peek(), "unterminated block")
		}
		if p.peek().Type == SEMICOLON {
			p.advance()
			continue
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, s)
	}
	p.advance() // }
	return blk, nil
}

// parseControlBody parses a braced block, or a single statement which is
// wrapped in a block so every control body lowers with its own scope.
func (p *Parser) parseControlBody() (*BlockStmt, error) {
	if p.peek().Type == LBRACE {
		blk, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return blk.(*BlockStmt), nil
	}
	s, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &BlockStmt{Stmts: []Stmt{s}}, nil
}

func (p *Parser) parseParenExpr() (Expr, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return e, nil
}

var compoundOps = map[TokenType]TokenType{
	PLUS_ASSIGN:  PLUS,
	MINUS_ASSIGN: MINUS,
	AND_ASSIGN:   AND,
	PIPE_ASSIGN:  PIPE,
	CARET_ASSIGN: CARET,
}

// parseSimpleStatement parses an assignment, a compound assignment, ++/--,
// or an expression statement. Compound forms and ++/-- desugar to plain
// assignments so the lowering core sees a single statement shape.
func (p *Parser) parseSimpleStatement() (Stmt, error) {
	startTok := p.peek()
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	switch tok := p.peek(); tok.Type {
	case ASSIGN:
		if err := p.checkAssignTarget(e, startTok); err != nil {
			return nil, err
		}
		p.advance()
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &Assignment{Left: e, Value: v}, nil
	case PLUS_ASSIGN, MINUS_ASSIGN, AND_ASSIGN, PIPE_ASSIGN, CARET_ASSIGN:
		if err := p.checkAssignTarget(e, startTok); err != nil {
			return nil, err
		}
		p.advance()
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &Assignment{Left: e, Value: &BinaryExpr{Op: compoundOps[tok.Type], Left: e, Right: v}}, nil
	case INCREMENT:
		if err := p.checkAssignTarget(e, startTok); err != nil {
			return nil, err
		}
		p.advance()
		return &Assignment{Left: e, Value: &BinaryExpr{Op: PLUS, Left: e, Right: &Literal{Value: 1}}}, nil
	case DECREMENT:
		if err := p.checkAssignTarget(e, startTok); err != nil {
			return nil, err
		}
		p.advance()
		return &Assignment{Left: e, Value: &BinaryExpr{Op: MINUS, Left: e, Right: &Literal{Value: 1}}}, nil
	default:
		return &ExprStmt{Expr: e}, nil
	}
}

func (p *Parser) checkAssignTarget(e Expr, tok Token) error {
	switch e.(type) {
	case *VarRef, *IndexExpr:
		return nil
	default:
		return p.fmtError(tok, "invalid assignment target %s", e)
	}
}

// --- Expressions, lowest precedence first ---

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseLogicalOr()
}

func (p *Parser) parseLogicalOr() (Expr, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == OR_LOGICAL {
		op := p.advance().Type
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (Expr, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == AND_LOGICAL {
		op := p.advance().Type
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseBitOr() (Expr, error) {
	left, err := p.parseBitXor()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == PIPE {
		op := p.advance().Type
		right, err := p.parseBitXor()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseBitXor() (Expr, error) {
	left, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == CARET {
		op := p.advance().Type
		right, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseBitAnd() (Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == AND {
		op := p.advance().Type
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquality() (Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == EQUALS || p.peek().Type == NOT_EQ {
		op := p.advance().Type
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRelational() (Expr, error) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case LESS, LESS_EQ, GREATER, GREATER_EQ:
			op := p.advance().Type
			right, err := p.parseShift()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Op: op, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseShift() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == SHL_OP || p.peek().Type == SHR_OP {
		op := p.advance().Type
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == PLUS || p.peek().Type == MINUS {
		op := p.advance().Type
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case STAR, SLASH, PERCENT:
			op := p.advance().Type
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &BinaryExpr{Op: op, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	switch p.peek().Type {
	case MINUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := operand.(*Literal); ok {
			return &Literal{Value: -lit.Value}, nil
		}
		return &UnaryExpr{Op: MINUS, Right: operand}, nil
	case NOT:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: NOT, Right: operand}, nil
	default:
		return p.parsePostfix()
	}
}

func (p *Parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == LBRACKET {
		p.advance()
		idx, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
		e = &IndexExpr{Target: e, Index: idx}
	}
	return e, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		v, err := strconv.ParseInt(tok.Lexeme, 0, 64)
		if err != nil {
			return nil, p.fmtError(tok, "invalid integer literal %q", tok.Lexeme)
		}
		return &Literal{Value: int(v)}, nil
	case IDENTIFIER:
		if p.peekAt(1).Type == LPAREN {
			return p.parseCall()
		}
		p.advance()
		return &VarRef{Name: tok.Lexeme}, nil
	case LPAREN:
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case LBRACKET:
		return p.parseArrayLit()
	default:
		return nil, p.fmtError(tok, "unexpected token %s", tok)
	}
}

func (p *Parser) parseCall() (Expr, error) {
	nameTok := p.advance()
	p.advance() // (
	call := &FunctionCall{Name: nameTok.Lexeme}
	if p.peek().Type != RPAREN {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) parseArrayLit() (Expr, error) {
	p.advance() // [
	lit := &ArrayLit{}
	if p.peek().Type != RBRACKET {
		for {
			el, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			lit.Elems = append(lit.Elems, el)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	return lit, nil
}
