package sqlfront

import (
	"errors"
	"fmt"
)

// Expression parsing.

// parseExpression consumes exactly one token and builds the expression it
// denotes: a number literal, the * wildcard, or a column reference.
func (p *Parser) parseExpression() (Expr, error) {
	tok := p.advance()
	if tok == nil {
		return nil, newParseError(ErrUnsupportedExpression, nil)
	}

	switch tok.Type {
	case TOKEN_NUMBER:
		lit, err := ParseNumberLiteral(tok.Literal)
		if err != nil {
			if errors.Is(err, ErrNumberOutOfRange) {
				return nil, newParseError(ErrNumberOutOfRange, tok)
			}
			// The lexer only classifies digit runs as numbers.
			panic(fmt.Sprintf("sqlfront: lexer produced invalid number token: %v", err))
		}
		return lit, nil
	case TOKEN_STAR:
		return &Wildcard{}, nil
	case TOKEN_IDENT:
		return &ColumnRef{Name: tok.Literal}, nil
	default:
		return nil, newParseError(ErrUnsupportedExpression, tok)
	}
}

// parseCondition parses a WHERE condition:
//
//	operand (= | < | <= | > | >=) operand
//	operand IS [NOT] NULL
func (p *Parser) parseCondition() (Expr, error) {
	left, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	op := p.peek()
	if op == nil {
		return nil, newParseError(ErrUnexpectedEnd, nil)
	}

	switch {
	case op.Type == TOKEN_IS:
		p.advance()
		isNull := &IsNullExpr{Expr: left, Not: p.match(TOKEN_NOT)}
		next := p.advance()
		if next == nil {
			return nil, newParseError(ErrUnexpectedEnd, nil)
		}
		if next.Type != TOKEN_NULL {
			return nil, newParseError(ErrUnexpectedToken, next)
		}
		return isNull, nil

	case isComparisonOp(op.Type):
		p.advance()
		right, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ComparisonExpr{Left: left, Op: op.Type, Right: right}, nil

	default:
		return nil, newParseError(ErrUnexpectedToken, op)
	}
}
