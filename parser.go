package main

// Parser walks the token stream with one token of lookahead (two for the
// assignment forms) and builds the statement list.
//
// precedence, lowest first:
//
//	and or                 left associative
//	== != < <= > >=        at most one per operand pair
//	+ -
//	* /
//	^                      left associative
//	call () index [] .name postfix
//	atom
type Parser struct {
	tokens  []Token
	pos     int
	eofLine int
}

// Parse builds the program from a token stream. EOL tokens are dropped here;
// their line numbers survive on the remaining tokens.
func Parse(tokens []Token) ([]*Node, error) {
	p := newParser(tokens)
	stmts, err := p.block()
	if err != nil {
		return nil, err
	}
	if !p.at(EOF) {
		return nil, invalidSyntax(p.cur(), "Unexpected closing bracket.")
	}
	return stmts, nil
}

// ParseSource lexes and parses in one step.
func ParseSource(source string) ([]*Node, error) {
	toks, err := Lex(source)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

func newParser(tokens []Token) *Parser {
	p := &Parser{tokens: make([]Token, 0, len(tokens)), eofLine: 1}
	for _, t := range tokens {
		if t.Type == EOL {
			p.eofLine = t.Line + 1
			continue
		}
		if t.Line > p.eofLine {
			p.eofLine = t.Line
		}
		p.tokens = append(p.tokens, t)
	}
	return p
}

//
// TOKEN CURSOR
//

func (p *Parser) peekAt(n int) Token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return Token{Type: EOF, Line: p.eofLine}
}

func (p *Parser) cur() Token {
	return p.peekAt(0)
}

func (p *Parser) at(tt TokenType) bool {
	return p.cur().Type == tt
}

func (p *Parser) atKeyword(kw string) bool {
	t := p.cur()
	return t.Type == Keyword && t.Text == kw
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if !p.at(tt) {
		return Token{}, invalidSyntax(p.cur(), "Expected "+tt.String()+".")
	}
	return p.advance(), nil
}

//
// STATEMENTS
//

// block reads statements up to a closing brace or the end of input. A
// NewLineNode is placed before the first statement of every source line.
func (p *Parser) block() ([]*Node, error) {
	var stmts []*Node
	lastLine := -1
	for !p.at(RightCBrace) && !p.at(EOF) {
		line := p.cur().Line
		if line != lastLine {
			stmts = append(stmts, &Node{Kind: NewLineNode, Line: line})
			lastLine = line
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmt.Line = line
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *Parser) braceBlock() ([]*Node, error) {
	if _, err := p.expect(LeftCBrace); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RightCBrace); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) isBind() bool {
	next := p.peekAt(1).Type
	if next == C_Assign {
		return true
	}
	return compoundOps[next] && p.peekAt(2).Type == C_Assign
}

func (p *Parser) statement() (*Node, error) {
	tok := p.cur()

	switch {
	case tok.Type == Identifier && p.isBind():
		return p.varBind()
	case tok.Type == Identifier && (p.peekAt(1).Type == LeftSBrace || p.peekAt(1).Type == SYM_DOT):
		return p.indexStatement()
	case tok.Type == Keyword:
		return p.keywordStatement()
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if expr.Kind != CallNode {
		return nil, invalidSyntax(tok, "Expected Function call.")
	}
	return expr, nil
}

// compound reads an optional compound operator before '='.
func (p *Parser) compound() (op TokenType, ok bool) {
	if compoundOps[p.cur().Type] && p.peekAt(1).Type == C_Assign {
		return p.advance().Type, true
	}
	return 0, false
}

// name = expr, or name op= expr which becomes name = name op expr.
func (p *Parser) varBind() (*Node, error) {
	id := p.advance()
	op, isCompound := p.compound()
	if _, err := p.expect(C_Assign); err != nil {
		return nil, err
	}
	val, err := p.expression()
	if err != nil {
		return nil, err
	}
	if isCompound {
		val = &Node{Kind: BinOpNode, Left: &Node{Kind: VarGetNode, Name: id.Text}, Op: op, Right: val}
	}
	return &Node{Kind: VarNode, Name: id.Text, Value: val}, nil
}

// indexStatement handles statements starting with name[ or name. which are
// either assignments into a data structure or method calls.
func (p *Parser) indexStatement() (*Node, error) {
	id := p.advance()
	path, err := p.indexPath()
	if err != nil {
		return nil, err
	}
	target := &Node{Kind: IndexNode, Left: &Node{Kind: VarGetNode, Name: id.Text}, Path: path}

	left, err := p.postfix(target)
	if err != nil {
		return nil, err
	}
	switch left.Kind {
	case CallNode:
		return left, nil
	case IndexNode:
		target = left
	default:
		return nil, invalidSyntax(id, "Invalid assignment target.")
	}

	op, isCompound := p.compound()
	if _, err := p.expect(C_Assign); err != nil {
		return nil, err
	}
	val, err := p.expression()
	if err != nil {
		return nil, err
	}
	if isCompound {
		val = &Node{Kind: BinOpNode, Left: target, Op: op, Right: val}
	}
	return &Node{Kind: DSONode, Left: target.Left, Path: target.Path, Value: val}, nil
}

func (p *Parser) keywordStatement() (*Node, error) {
	kw := p.advance()

	switch kw.Text {
	case kwReturn:
		// a bare return ends at the brace, the input or the line
		if p.at(RightCBrace) || p.at(EOF) || p.cur().Line != kw.Line {
			return &Node{Kind: ReturnNode, Value: nullNode()}, nil
		}
		val, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: ReturnNode, Value: val}, nil
	case kwIf:
		return p.ifStatement(true)
	case kwWhile:
		return p.whileLoop()
	case kwFor:
		return p.forLoop()
	case kwBreak:
		return &Node{Kind: BreakNode}, nil
	case kwImport:
		path, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: ImportNode, Value: path}, nil
	}

	return nil, invalidSyntax(kw, "Unexpected keyword.")
}

// ifStatement parses a condition and body. Else-if branches are parsed
// without their own elif list so they chain on the outer statement.
func (p *Parser) ifStatement(withElifs bool) (*Node, error) {
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.braceBlock()
	if err != nil {
		return nil, err
	}
	n := &Node{Kind: IfNode, Left: cond, Body: body}
	if !withElifs {
		return n, nil
	}

	for p.atKeyword(kwElse) {
		p.advance()
		if p.atKeyword(kwIf) {
			p.advance()
			elif, err := p.ifStatement(false)
			if err != nil {
				return nil, err
			}
			n.Elifs = append(n.Elifs, elif)
			continue
		}
		body, err := p.braceBlock()
		if err != nil {
			return nil, err
		}
		n.Else = &Node{Kind: IfNode, Left: boolNode(true), Body: body}
		break
	}

	return n, nil
}

func (p *Parser) whileLoop() (*Node, error) {
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.braceBlock()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: WhileNode, Left: cond, Body: body}, nil
}

// for id in collection { } or for id in start, end { }
func (p *Parser) forLoop() (*Node, error) {
	id, err := p.expect(Identifier)
	if err != nil {
		return nil, err
	}
	if !p.atKeyword(kwIn) {
		return nil, invalidSyntax(p.cur(), `Expected "in".`)
	}
	p.advance()

	first, err := p.expression()
	if err != nil {
		return nil, err
	}

	n := &Node{Kind: ForEachNode, Name: id.Text, Left: first}
	if p.at(C_Comma) {
		p.advance()
		second, err := p.expression()
		if err != nil {
			return nil, err
		}
		n.Kind = ForRangeNode
		n.Right = second
	}

	n.Body, err = p.braceBlock()
	if err != nil {
		return nil, err
	}
	return n, nil
}

//
// EXPRESSIONS
//

func (p *Parser) expression() (*Node, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.atKeyword(kwAnd) || p.atKeyword(kwOr) {
		op := SYM_LAND
		if p.advance().Text == kwOr {
			op = SYM_LOR
		}
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: CondNode, Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) comparison() (*Node, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	if relationalOps[p.cur().Type] {
		op := p.advance().Type
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: CondNode, Left: left, Op: op, Right: right}
	}
	return left, nil
}

// binaryOp reports whether the current token is one of ops and is not the
// start of a compound assignment.
func (p *Parser) binaryOp(ops ...TokenType) bool {
	t := p.cur().Type
	for _, op := range ops {
		if t == op {
			return p.peekAt(1).Type != C_Assign
		}
	}
	return false
}

func (p *Parser) additive() (*Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.binaryOp(C_Plus, C_Minus) {
		op := p.advance().Type
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: BinOpNode, Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) term() (*Node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.binaryOp(C_Multiply, C_Divide) {
		op := p.advance().Type
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: BinOpNode, Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) factor() (*Node, error) {
	left, err := p.postfix(nil)
	if err != nil {
		return nil, err
	}
	for p.binaryOp(C_Caret) {
		p.advance()
		right, err := p.postfix(nil)
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: BinOpNode, Left: left, Op: C_Caret, Right: right}
	}
	return left, nil
}

// postfix folds calls and index paths onto left, reading an atom first when
// left is nil.
func (p *Parser) postfix(left *Node) (*Node, error) {
	var err error
	if left == nil {
		if left, err = p.atom(); err != nil {
			return nil, err
		}
	}

	for {
		switch p.cur().Type {
		case LParen:
			args, err := p.arguments()
			if err != nil {
				return nil, err
			}
			left = &Node{Kind: CallNode, Left: left, Args: args}
		case LeftSBrace, SYM_DOT:
			path, err := p.indexPath()
			if err != nil {
				return nil, err
			}
			left = &Node{Kind: IndexNode, Left: left, Path: path}
		default:
			return left, nil
		}
	}
}

func (p *Parser) arguments() ([]*Node, error) {
	p.advance()
	var args []*Node
	for !p.at(RParen) {
		arg, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.at(RParen) {
			break
		}
		if _, err := p.expect(C_Comma); err != nil {
			return nil, err
		}
	}
	p.advance()
	return args, nil
}

// indexPath reads consecutive .name and [expr] segments.
func (p *Parser) indexPath() ([]*Node, error) {
	var path []*Node
	for p.at(LeftSBrace) || p.at(SYM_DOT) {
		if p.advance().Type == SYM_DOT {
			id, err := p.expect(Identifier)
			if err != nil {
				return nil, err
			}
			path = append(path, stringNode(id.Text))
			continue
		}
		seg, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RightSBrace); err != nil {
			return nil, err
		}
		path = append(path, seg)
	}
	return path, nil
}

func (p *Parser) atom() (*Node, error) {
	tok := p.cur()

	switch tok.Type {
	case FormatLiteral:
		return p.formatString()
	case NumericLiteral:
		p.advance()
		return numberNode(tok.Num), nil
	case StringLiteral:
		p.advance()
		return stringNode(tok.Text), nil
	case BoolLiteral:
		p.advance()
		return boolNode(tok.Bool), nil
	case NullLiteral:
		p.advance()
		return nullNode(), nil
	case C_Hash:
		p.advance()
		operand, err := p.postfix(nil)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: LengthOpNode, Left: operand}, nil
	case C_Minus, C_Pling:
		p.advance()
		operand, err := p.postfix(nil)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: UnOpNode, Op: tok.Type, Left: operand}, nil
	case LParen:
		return p.parenthesis()
	case Identifier:
		p.advance()
		return &Node{Kind: VarGetNode, Name: tok.Text}, nil
	case LeftSBrace:
		return p.dataStructure()
	case EOF:
		return nil, invalidSyntax(tok, "Expected Literal, got null.")
	}

	return nil, invalidSyntax(tok, "Expected Literal.")
}

// parenthesis resolves ( ... ) into either a grouped expression or a
// function literal. It is a function when a comma follows the first name,
// or when => follows the closing paren.
func (p *Parser) parenthesis() (*Node, error) {
	p.advance()

	var expr *Node
	var err error
	if !p.at(RParen) {
		if expr, err = p.expression(); err != nil {
			return nil, err
		}
	}

	var params []string
	isFunc := false
	if p.at(C_Comma) && expr != nil && expr.Kind == VarGetNode {
		isFunc = true
		params = append(params, expr.Name)
		for p.at(C_Comma) {
			p.advance()
			id, err := p.expect(Identifier)
			if err != nil {
				return nil, err
			}
			params = append(params, id.Text)
		}
	}

	closing, err := p.expect(RParen)
	if err != nil {
		return nil, err
	}

	if p.at(C_Assign) && p.peekAt(1).Type == SYM_GT && len(params) == 0 {
		if expr != nil {
			if expr.Kind != VarGetNode {
				return nil, invalidSyntax(closing, "Expected parameter name.")
			}
			params = append(params, expr.Name)
		}
		isFunc = true
	}

	if !isFunc {
		if expr == nil {
			return nullNode(), nil
		}
		return expr, nil
	}

	if _, err := p.expect(C_Assign); err != nil {
		return nil, err
	}
	if _, err := p.expect(SYM_GT); err != nil {
		return nil, err
	}

	fn := &Node{Kind: FunctionNode, Params: params}
	if p.at(LeftCBrace) {
		fn.Body, err = p.braceBlock()
		if err != nil {
			return nil, err
		}
		return fn, nil
	}

	line := p.cur().Line
	val, err := p.expression()
	if err != nil {
		return nil, err
	}
	fn.Body = []*Node{{Kind: ReturnNode, Value: val, Line: line}}
	return fn, nil
}

// dataStructure parses [ ... ]: an object when it opens with name =,
// otherwise an array.
func (p *Parser) dataStructure() (*Node, error) {
	p.advance()
	items := newContainer(4)

	if p.at(Identifier) && p.peekAt(1).Type == C_Assign {
		for !p.at(RightSBrace) {
			id, err := p.expect(Identifier)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(C_Assign); err != nil {
				return nil, err
			}
			val, err := p.expression()
			if err != nil {
				return nil, err
			}
			items.Set(Key{Kind: StringNode, Str: id.Text}, val)
		}
		p.advance()
		return &Node{Kind: ObjectNode, Items: items}, nil
	}

	idx := 0
	for !p.at(RightSBrace) {
		val, err := p.expression()
		if err != nil {
			return nil, err
		}
		items.Set(Key{Kind: NumberNode, Num: float64(idx)}, val)
		idx++
		if !p.at(C_Comma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RightSBrace); err != nil {
		return nil, err
	}
	return &Node{Kind: ArrayNode, Items: items}, nil
}

// formatString rewrites an interpolated string into a chain of string
// concatenations: lit0 + e1 + lit1 + e2 + lit2 ...
func (p *Parser) formatString() (*Node, error) {
	tok := p.advance()
	text := tok.Text

	var acc *Node
	for i, part := range tok.Parts {
		sub := newParser(part.Tokens)
		expr, err := sub.expression()
		if err != nil {
			return nil, err
		}
		if !sub.at(EOF) {
			return nil, invalidSyntax(sub.cur(), "Unexpected token in string interpolation.")
		}
		if acc == nil {
			acc = stringNode(text[:part.Offset])
		}
		end := len(text)
		if i+1 < len(tok.Parts) {
			end = tok.Parts[i+1].Offset
		}
		acc = &Node{Kind: BinOpNode, Left: acc, Op: C_Plus, Right: expr}
		acc = &Node{Kind: BinOpNode, Left: acc, Op: C_Plus, Right: stringNode(text[part.Offset:end])}
	}

	if acc == nil {
		return stringNode(text), nil
	}
	return acc, nil
}
