package parser

import (
	"strconv"
	"strings"

	"github.com/vara-lang/vara/ast"
	"github.com/vara-lang/vara/object"
	"github.com/vara-lang/vara/relexer"
	"github.com/vara-lang/vara/signature"
	"github.com/vara-lang/vara/token"
)

const (
	_ int = iota
	LOWEST
	OR          // or
	AND         // and
	EQUALS      // == or !=
	LESSGREATER // > or < or <= or >=
	SUM         // + or -
	PRODUCT     // * or / or %
	PREFIX      // -x or not x
	INDEX       // after [
)

var precedences = map[token.TokenType]int{
	token.OR:       OR,
	token.AND:      AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.GT:       LESSGREATER,
	token.LT_EQ:    LESSGREATER,
	token.GT_EQ:    LESSGREATER,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.LBRACK:   INDEX,
}

// ScopeNames are the four partitions of the sandbox; an identifier like
// "private.x" is a scoped reference, anything else dotted is left whole for
// the registry or the module system to interpret.
var ScopeNames = map[string]bool{"local": true, "private": true, "public": true, "system": true}

type TokenSupplier interface{ NextToken() token.Token }

type Parser struct {
	TokenizedCode TokenSupplier
	Errors        object.Errors
	curToken      token.Token
	peekToken     token.Token
}

func New() *Parser {
	return &Parser{Errors: []*object.Error{}}
}

// Parse turns a whole source text into a Program. All localizable errors
// are collected rather than the parse stopping at the first; after a bad
// statement the parser resynchronizes at the next line.
func Parse(source, input string) (*ast.Program, object.Errors) {
	p := New()
	rl := relexer.New(source, input)
	p.TokenizedCode = rl
	p.SafeNextToken()
	p.SafeNextToken()
	program := p.parseProgram()
	p.Errors = append(rl.GetErrors(), p.Errors...)
	if len(p.Errors) == 0 {
		if err := ast.Validate(program); err != nil {
			p.Throw("parse/node", program.GetToken(), err.Error())
		}
	}
	return program, p.Errors
}

// ParseLine parses a single REPL line as one statement.
func ParseLine(source, input string) (ast.Node, object.Errors) {
	program, errors := Parse(source, input)
	if len(program.Statements) == 1 {
		return program.Statements[0], errors
	}
	return program, errors
}

func (p *Parser) NextToken() {
	p.SafeNextToken()
}

func (p *Parser) SafeNextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.TokenizedCode.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType, what string) bool {
	if p.peekTokenIs(t) {
		p.NextToken()
		return true
	}
	p.Throw("parse/expect", p.peekToken, what)
	return false
}

func (p *Parser) parseProgram() *ast.Program {
	program := &ast.Program{Token: p.curToken, Statements: []ast.Node{}}
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.END) {
			p.NextToken()
			continue
		}
		errorsBefore := len(p.Errors)
		stmt := p.parseStatement()
		if len(p.Errors) > errorsBefore {
			p.resync()
			continue
		}
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		if !isBlockStatement(stmt) {
			p.endStatement()
		}
	}
	return program
}

// Block statements consume their own terminator, since their parsers have
// to look past the END for a trailing elif/else/except clause.
func isBlockStatement(stmt ast.Node) bool {
	switch stmt.(type) {
	case *ast.IfStatement, *ast.WhileStatement, *ast.ForStatement,
		*ast.FunctionDef, *ast.TryStatement:
		return true
	}
	return false
}

// resync skips to the start of the next line so that one malformed
// statement doesn't produce a cascade of spurious errors. It stops short
// of an END so that an enclosing block still sees its own terminator.
func (p *Parser) resync() {
	for !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.END) && !p.curTokenIs(token.EOF) {
		p.NextToken()
	}
	if p.curTokenIs(token.NEWLINE) {
		p.NextToken()
	}
}

// endStatement consumes the statement terminator. An END is left in place
// for parseBlock to consume.
func (p *Parser) endStatement() {
	switch p.curToken.Type {
	case token.NEWLINE:
		p.NextToken()
	case token.END, token.EOF:
		return
	default:
		p.Throw("parse/expected", p.curToken)
		p.resync()
	}
}

func (p *Parser) parseStatement() ast.Node {
	switch p.curToken.Type {
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.DEF:
		return p.parseFunctionDef()
	case token.TRY:
		return p.parseTryStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.BREAK:
		stmt := &ast.BreakStatement{Token: p.curToken}
		p.NextToken()
		return stmt
	case token.CONTINUE:
		stmt := &ast.ContinueStatement{Token: p.curToken}
		p.NextToken()
		return stmt
	case token.PASS:
		stmt := &ast.PassStatement{Token: p.curToken}
		p.NextToken()
		return stmt
	case token.RAISE:
		return p.parseRaiseStatement()
	case token.IMPORT:
		return p.parseImportStatement()
	default:
		return p.parseExpressionStatement()
	}
}

// parseExpressionStatement handles both bare expressions and assignments:
// we parse an expression first and only then find out whether an '=' makes
// it the target of an assignment.
func (p *Parser) parseExpressionStatement() ast.Node {
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	if p.peekTokenIs(token.ASSIGN) {
		p.NextToken() // onto the =
		assignTok := p.curToken
		p.NextToken() // onto the value
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		p.NextToken()
		switch target := expr.(type) {
		case *ast.Identifier:
			return &ast.Assignment{Token: assignTok, Target: target, Value: value}
		case *ast.IndexExpression:
			return &ast.IndexAssignment{Token: assignTok, Target: target, Value: value}
		default:
			p.Throw("parse/assign/target", expr.GetToken())
			return nil
		}
	}
	p.NextToken()
	return expr
}

func (p *Parser) parseIfStatement() ast.Node {
	stmt := &ast.IfStatement{Token: p.curToken}
	for {
		p.NextToken() // past the if/elif
		condition := p.parseExpression(LOWEST)
		if condition == nil {
			return nil
		}
		body := p.parseBlock()
		if body == nil {
			return nil
		}
		stmt.Clauses = append(stmt.Clauses, ast.ConditionalClause{Condition: condition, Body: body})
		if !p.curTokenIs(token.ELIF) {
			break
		}
	}
	if p.curTokenIs(token.ELSE) {
		stmt.Else = p.parseBlock()
		if stmt.Else == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Node {
	stmt := &ast.WhileStatement{Token: p.curToken}
	p.NextToken()
	stmt.Condition = p.parseExpression(LOWEST)
	if stmt.Condition == nil {
		return nil
	}
	stmt.Body = p.parseBlock()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseForStatement() ast.Node {
	stmt := &ast.ForStatement{Token: p.curToken}
	if !p.expectPeek(token.IDENT, "a loop variable") {
		return nil
	}
	stmt.Var = p.newIdentifier(p.curToken)
	if !p.expectPeek(token.IN, "'in'") {
		return nil
	}
	p.NextToken()
	stmt.Iterable = p.parseExpression(LOWEST)
	if stmt.Iterable == nil {
		return nil
	}
	stmt.Body = p.parseBlock()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseFunctionDef() ast.Node {
	stmt := &ast.FunctionDef{Token: p.curToken}
	if !p.expectPeek(token.IDENT, "a function name") {
		return nil
	}
	stmt.Name = p.curToken.Literal
	if strings.Contains(stmt.Name, ".") {
		p.Throw("parse/sig", p.curToken)
		return nil
	}
	if !p.expectPeek(token.LPAREN, "'('") {
		return nil
	}
	stmt.Sig = p.parseSignature()
	if stmt.Sig == nil {
		return nil
	}
	stmt.Body = p.parseBlock()
	if stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseSignature parses a parameter list from the token after '(' up to and
// including ')'. Each parameter is a name optionally followed by a type:
// "def f(x, y int, z string):".
func (p *Parser) parseSignature() signature.NamedSignature {
	sig := signature.NamedSignature{}
	if p.peekTokenIs(token.RPAREN) {
		p.NextToken()
		return sig
	}
	for {
		if !p.expectPeek(token.IDENT, "a parameter name") {
			return nil
		}
		pair := signature.NameTypePair{VarName: p.curToken.Literal, VarType: "any"}
		if p.peekTokenIs(token.IDENT) {
			p.NextToken()
			pair.VarType = p.curToken.Literal
		}
		sig = append(sig, pair)
		if p.peekTokenIs(token.COMMA) {
			p.NextToken()
			continue
		}
		if !p.expectPeek(token.RPAREN, "')'") {
			return nil
		}
		return sig
	}
}

func (p *Parser) parseTryStatement() ast.Node {
	stmt := &ast.TryStatement{Token: p.curToken}
	stmt.Body = p.parseBlock()
	if stmt.Body == nil {
		return nil
	}
	if !p.curTokenIs(token.EXCEPT) {
		p.Throw("parse/expect", p.curToken, "'except'")
		return nil
	}
	for p.curTokenIs(token.EXCEPT) {
		handler := ast.ExceptClause{Token: p.curToken}
		for p.peekTokenIs(token.IDENT) {
			p.NextToken()
			if !object.KnownKind(p.curToken.Literal) {
				p.Throw("parse/expect", p.curToken, "an exception kind")
				return nil
			}
			handler.Kinds = append(handler.Kinds, p.curToken.Literal)
			if p.peekTokenIs(token.COMMA) {
				p.NextToken()
				continue
			}
			break
		}
		if p.peekTokenIs(token.AS) {
			p.NextToken()
			if !p.expectPeek(token.IDENT, "a name to bind the exception to") {
				return nil
			}
			handler.Bind = p.curToken.Literal
		}
		handler.Body = p.parseBlock()
		if handler.Body == nil {
			return nil
		}
		stmt.Handlers = append(stmt.Handlers, handler)
	}
	return stmt
}

func (p *Parser) parseReturnStatement() ast.Node {
	stmt := &ast.ReturnStatement{Token: p.curToken}
	if p.peekTokenIs(token.NEWLINE) || p.peekTokenIs(token.END) || p.peekTokenIs(token.EOF) {
		p.NextToken()
		return stmt
	}
	p.NextToken()
	stmt.Value = p.parseExpression(LOWEST)
	if stmt.Value == nil {
		return nil
	}
	p.NextToken()
	return stmt
}

func (p *Parser) parseRaiseStatement() ast.Node {
	stmt := &ast.RaiseStatement{Token: p.curToken}
	if !p.peekTokenIs(token.IDENT) {
		p.Throw("parse/raise/kind", p.peekToken)
		return nil
	}
	p.NextToken()
	stmt.Kind = p.curToken.Literal
	if !object.KnownKind(stmt.Kind) {
		p.Throw("parse/raise/kind", p.curToken)
		return nil
	}
	if !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.END) && !p.peekTokenIs(token.EOF) {
		p.NextToken()
		stmt.Message = p.parseExpression(LOWEST)
		if stmt.Message == nil {
			return nil
		}
	}
	p.NextToken()
	return stmt
}

func (p *Parser) parseImportStatement() ast.Node {
	stmt := &ast.ImportStatement{Token: p.curToken}
	if !p.expectPeek(token.STRING, "a module name in quotes") {
		return nil
	}
	stmt.Name = p.curToken.Literal
	stmt.Alias = stmt.Name
	if p.peekTokenIs(token.AS) {
		p.NextToken()
		if !p.expectPeek(token.IDENT, "an alias") {
			return nil
		}
		stmt.Alias = p.curToken.Literal
	}
	p.NextToken()
	return stmt
}

// parseBlock parses ": BEGIN statements END", leaving the token after the
// END current. A block may also be a single statement on the header's own
// line: "if x: y = 1".
func (p *Parser) parseBlock() *ast.Block {
	if !p.peekTokenIs(token.COLON) {
		p.Throw("parse/colon", p.peekToken)
		return nil
	}
	p.NextToken()
	block := &ast.Block{Token: p.curToken, Statements: []ast.Node{}}
	if !p.peekTokenIs(token.BEGIN) {
		if p.peekToken.Line != p.curToken.Line {
			p.Throw("parse/indent", p.curToken)
			return nil
		}
		// Inline block.
		p.NextToken()
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		block.Statements = append(block.Statements, stmt)
		if !isBlockStatement(stmt) {
			p.endStatement()
		}
		return block
	}
	p.NextToken() // onto the BEGIN
	p.NextToken() // into the block
	for !p.curTokenIs(token.END) && !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) {
			p.NextToken()
			continue
		}
		errorsBefore := len(p.Errors)
		stmt := p.parseStatement()
		if len(p.Errors) > errorsBefore {
			p.resync()
			continue
		}
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if !isBlockStatement(stmt) {
			p.endStatement()
		}
	}
	if p.curTokenIs(token.END) {
		p.NextToken()
	}
	if len(block.Statements) == 0 {
		p.Throw("parse/indent", block.Token)
		return nil
	}
	return block
}

func (p *Parser) parseExpression(precedence int) ast.Node {
	var leftExp ast.Node

	switch p.curToken.Type {
	case token.INT:
		leftExp = p.parseIntegerLiteral()
	case token.FLOAT:
		leftExp = p.parseFloatLiteral()
	case token.STRING:
		leftExp = &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	case token.FSTRING:
		leftExp = p.parseFStringLiteral()
	case token.TRUE:
		leftExp = &ast.BooleanLiteral{Token: p.curToken, Value: true}
	case token.FALSE:
		leftExp = &ast.BooleanLiteral{Token: p.curToken, Value: false}
	case token.NIL:
		leftExp = &ast.NilLiteral{Token: p.curToken}
	case token.IDENT:
		if p.peekTokenIs(token.LPAREN) {
			leftExp = p.parseCallExpression()
		} else {
			leftExp = p.newIdentifier(p.curToken)
		}
	case token.MINUS, token.NOT:
		leftExp = p.parsePrefixExpression()
	case token.LPAREN:
		leftExp = p.parseGroupedExpression()
	case token.LBRACK:
		leftExp = p.parseListLiteral()
	case token.LBRACE:
		leftExp = p.parseBraceLiteral()
	default:
		p.Throw("parse/prefix", p.curToken)
		return nil
	}
	if leftExp == nil {
		return nil
	}

	for precedence < p.peekPrecedence() {
		switch p.peekToken.Type {
		case token.LBRACK:
			p.NextToken()
			leftExp = p.parseIndexExpression(leftExp)
		default:
			p.NextToken()
			leftExp = p.parseInfixExpression(leftExp)
		}
		if leftExp == nil {
			return nil
		}
	}
	return leftExp
}

func (p *Parser) peekPrecedence() int {
	if precedence, ok := precedences[p.peekToken.Type]; ok {
		return precedence
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if precedence, ok := precedences[p.curToken.Type]; ok {
		return precedence
	}
	return LOWEST
}

// newIdentifier splits off a scope qualifier if the name has one:
// "private.x" refers to x in the private scope, while a dotted name that
// doesn't start with a scope, like "db.version", is left whole.
func (p *Parser) newIdentifier(tok token.Token) *ast.Identifier {
	name := tok.Literal
	if i := strings.Index(name, "."); i > 0 && ScopeNames[name[:i]] {
		return &ast.Identifier{Token: tok, Scope: name[:i], Value: name[i+1:]}
	}
	return &ast.Identifier{Token: tok, Value: name}
}

func (p *Parser) parseIntegerLiteral() ast.Node {
	value, err := strconv.ParseInt(p.curToken.Literal, 0, 64)
	if err != nil {
		p.Throw("lex/num", p.curToken, p.curToken.Literal)
		return nil
	}
	return &ast.IntegerLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parseFloatLiteral() ast.Node {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.Throw("lex/num", p.curToken, p.curToken.Literal)
		return nil
	}
	return &ast.FloatLiteral{Token: p.curToken, Value: value}
}

func (p *Parser) parsePrefixExpression() ast.Node {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}
	p.NextToken()
	expression.Right = p.parseExpression(PREFIX)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Node) ast.Node {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Literal,
	}
	precedence := p.curPrecedence()
	p.NextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseGroupedExpression() ast.Node {
	p.NextToken()
	expression := p.parseExpression(LOWEST)
	if expression == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN, "')'") {
		return nil
	}
	return expression
}

func (p *Parser) parseIndexExpression(left ast.Node) ast.Node {
	expression := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.NextToken()
	expression.Index = p.parseExpression(LOWEST)
	if expression.Index == nil {
		return nil
	}
	if !p.expectPeek(token.RBRACK, "']'") {
		return nil
	}
	return expression
}

func (p *Parser) parseListLiteral() ast.Node {
	list := &ast.ListLiteral{Token: p.curToken}
	if p.peekTokenIs(token.RBRACK) {
		p.NextToken()
		return list
	}
	for {
		p.NextToken()
		element := p.parseExpression(LOWEST)
		if element == nil {
			return nil
		}
		list.Elements = append(list.Elements, element)
		if p.peekTokenIs(token.COMMA) {
			p.NextToken()
			continue
		}
		if !p.expectPeek(token.RBRACK, "']'") {
			return nil
		}
		return list
	}
}

// parseBraceLiteral disambiguates maps from sets: "{}" is an empty map,
// "{k: v}" is a map, "{a, b}" is a set.
func (p *Parser) parseBraceLiteral() ast.Node {
	braceTok := p.curToken
	if p.peekTokenIs(token.RBRACE) {
		p.NextToken()
		return &ast.MapLiteral{Token: braceTok}
	}
	p.NextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	if p.peekTokenIs(token.COLON) {
		mapLit := &ast.MapLiteral{Token: braceTok}
		for {
			p.NextToken() // onto the colon
			p.NextToken() // onto the value
			value := p.parseExpression(LOWEST)
			if value == nil {
				return nil
			}
			mapLit.Pairs = append(mapLit.Pairs, ast.MapPair{Key: first, Value: value})
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.NextToken()
			p.NextToken()
			first = p.parseExpression(LOWEST)
			if first == nil {
				return nil
			}
			if !p.peekTokenIs(token.COLON) {
				p.Throw("parse/expect", p.peekToken, "':'")
				return nil
			}
		}
		if !p.expectPeek(token.RBRACE, "'}'") {
			return nil
		}
		return mapLit
	}
	setLit := &ast.SetLiteral{Token: braceTok, Elements: []ast.Node{first}}
	for p.peekTokenIs(token.COMMA) {
		p.NextToken()
		p.NextToken()
		element := p.parseExpression(LOWEST)
		if element == nil {
			return nil
		}
		setLit.Elements = append(setLit.Elements, element)
	}
	if !p.expectPeek(token.RBRACE, "'}'") {
		return nil
	}
	return setLit
}

func (p *Parser) parseCallExpression() ast.Node {
	call := &ast.CallExpression{Token: p.curToken, Name: p.curToken.Literal}
	p.NextToken() // onto the (
	if p.peekTokenIs(token.RPAREN) {
		p.NextToken()
		return call
	}
	seenKwArg := false
	for {
		p.NextToken()
		if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN) {
			name := p.curToken.Literal
			p.NextToken()
			p.NextToken()
			value := p.parseExpression(LOWEST)
			if value == nil {
				return nil
			}
			call.KwArgs = append(call.KwArgs, ast.KwArg{Name: name, Value: value})
			seenKwArg = true
		} else {
			if seenKwArg {
				p.Throw("parse/kw/order", p.curToken)
				return nil
			}
			arg := p.parseExpression(LOWEST)
			if arg == nil {
				return nil
			}
			call.Args = append(call.Args, arg)
		}
		if p.peekTokenIs(token.COMMA) {
			p.NextToken()
			continue
		}
		if !p.expectPeek(token.RPAREN, "')'") {
			return nil
		}
		return call
	}
}

// parseFStringLiteral splits the raw text of an f-string into literal runs
// and embedded expressions, each of which is parsed in its own right.
func (p *Parser) parseFStringLiteral() ast.Node {
	fs := &ast.FStringLiteral{Token: p.curToken}
	raw := p.curToken.Literal
	runes := []rune(raw)
	text := ""
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '{':
			if i+1 < len(runes) && runes[i+1] == '{' {
				text = text + "{"
				i++
				continue
			}
			depth := 1
			j := i + 1
			for j < len(runes) && depth > 0 {
				if runes[j] == '{' {
					depth++
				}
				if runes[j] == '}' {
					depth--
				}
				j++
			}
			if depth != 0 {
				p.Throw("lex/fstring/unterm", p.curToken)
				return nil
			}
			if text != "" {
				fs.Parts = append(fs.Parts, ast.FStringPart{Text: text})
				text = ""
			}
			fragment := string(runes[i+1 : j-1])
			expr := p.parseEmbedded(fragment)
			if expr == nil {
				return nil
			}
			fs.Parts = append(fs.Parts, ast.FStringPart{Expr: expr})
			i = j - 1
		case '}':
			if i+1 < len(runes) && runes[i+1] == '}' {
				text = text + "}"
				i++
				continue
			}
			p.Throw("lex/fstring/brace", p.curToken)
			return nil
		default:
			text = text + string(runes[i])
		}
	}
	if text != "" {
		fs.Parts = append(fs.Parts, ast.FStringPart{Text: text})
	}
	return fs
}

// parseEmbedded parses one expression inside an f-string interpolation.
func (p *Parser) parseEmbedded(fragment string) ast.Node {
	sub := New()
	rl := relexer.New(p.curToken.Source, fragment)
	sub.TokenizedCode = rl
	sub.SafeNextToken()
	sub.SafeNextToken()
	expr := sub.parseExpression(LOWEST)
	sub.Errors = append(rl.GetErrors(), sub.Errors...)
	if len(sub.Errors) > 0 {
		p.Errors = append(p.Errors, sub.Errors...)
		return nil
	}
	return expr
}

func (p *Parser) Throw(errorID string, tok token.Token, args ...any) {
	p.Errors = object.Throw(errorID, p.Errors, tok, args...)
}
