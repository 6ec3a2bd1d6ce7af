package sqlfront

// Statement parsing: SELECT.

// parseSelectStatement parses the rest of a SELECT after the SELECT keyword
// has been consumed:
//
//	expr [, expr]* [FROM expr [WHERE condition] [ORDER BY expr [, expr]*]] [;]
func (p *Parser) parseSelectStatement() (*SelectStmt, error) {
	stmt := &SelectStmt{}

selection:
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.Selection = append(stmt.Selection, expr)

		next := p.peek()
		if next == nil {
			return nil, newParseError(ErrUnterminatedStatement, nil)
		}
		switch next.Type {
		case TOKEN_FROM, TOKEN_SEMICOLON:
			break selection
		case TOKEN_COMMA:
			p.advance()
		default:
			return nil, newParseError(ErrUnexpectedToken, next)
		}
	}

	if p.match(TOKEN_FROM) {
		from, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.From = from

		if p.match(TOKEN_WHERE) {
			where, err := p.parseCondition()
			if err != nil {
				return nil, err
			}
			stmt.Where = where
		}

		if p.checkSoftKeyword(0, "order") && p.checkSoftKeyword(1, "by") {
			p.advance() // ORDER
			p.advance() // BY
			orderBy, err := p.parseExpressionList()
			if err != nil {
				return nil, err
			}
			stmt.OrderBy = orderBy
		}
	}

	p.match(TOKEN_SEMICOLON)
	return stmt, nil
}

// parseExpressionList parses expr [, expr]*.
func (p *Parser) parseExpressionList() ([]Expr, error) {
	var exprs []Expr
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if !p.match(TOKEN_COMMA) {
			return exprs, nil
		}
	}
}
