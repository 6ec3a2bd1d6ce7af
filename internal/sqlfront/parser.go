package sqlfront

import "strings"

// Parser builds an AST from a token sequence by recursive descent. It never
// backtracks: each token is consumed at most once.
type Parser struct {
	tokens []Token
	pos    int // index of the next unconsumed token
}

// NewParser creates a parser over tokens. The slice is not modified.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses a complete token sequence into an Ast. The parse is all or
// nothing: the first failure is returned as a *ParseError and no partial
// Ast is produced.
func Parse(tokens []Token) (*Ast, error) {
	return NewParser(tokens).ParseAst()
}

// ParseQuery tokenizes and parses source. Failures are returned as a
// *QueryError wrapping the *LexError or *ParseError.
func ParseQuery(source string) (*Ast, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, &QueryError{Query: source, Err: err}
	}
	ast, err := Parse(tokens)
	if err != nil {
		return nil, &QueryError{Query: source, Err: err}
	}
	return ast, nil
}

// ParseAst parses statements until the tokens are exhausted.
func (p *Parser) ParseAst() (*Ast, error) {
	ast := &Ast{}
	for !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		ast.Statements = append(ast.Statements, stmt)
	}
	return ast, nil
}

// parseStatement consumes the leading token and dispatches on its type.
func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.advance()
	if tok == nil {
		return nil, newParseError(ErrUnexpectedEnd, nil)
	}

	switch tok.Type {
	case TOKEN_SELECT:
		return p.parseSelectStatement()
	default:
		return nil, newParseError(ErrUnsupportedStatement, tok)
	}
}

// === Token Helpers ===

func (p *Parser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

// peek returns the next unconsumed token, or nil at end of input.
func (p *Parser) peek() *Token {
	return p.peekN(0)
}

// peekN returns the token n positions past the next unconsumed one.
func (p *Parser) peekN(n int) *Token {
	if p.pos+n >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+n]
}

// advance returns the next unconsumed token and moves past it, or returns
// nil at end of input.
func (p *Parser) advance() *Token {
	tok := p.peek()
	if tok != nil {
		p.pos++
	}
	return tok
}

// check returns true if the next token is of the given type.
func (p *Parser) check(t TokenType) bool {
	tok := p.peek()
	return tok != nil && tok.Type == t
}

// match consumes the next token if it matches and returns true.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.pos++
		return true
	}
	return false
}

// checkSoftKeyword reports whether the token n positions ahead is an
// identifier spelling keyword (case-insensitive).
func (p *Parser) checkSoftKeyword(n int, keyword string) bool {
	tok := p.peekN(n)
	return tok != nil && tok.Type == TOKEN_IDENT && strings.EqualFold(tok.Literal, keyword)
}
