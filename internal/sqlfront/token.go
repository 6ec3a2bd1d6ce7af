// Package sqlfront is the text front-end of the query engine: a tokenizer,
// an AST for a restricted SELECT grammar, and a recursive-descent parser
// that turns tokens into that AST.
//
// Every entry point is a pure function of its input. Tokenize and Parse
// allocate only what they return and may be called concurrently.
package sqlfront

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token.
type TokenType int

// TOKEN_EOF and friends enumerate all token types produced by the lexer.
const (
	TOKEN_EOF TokenType = iota // end of input, never part of a Tokenize result

	TOKEN_IDENT  // identifier
	TOKEN_NUMBER // digit run

	TOKEN_EQ        // =
	TOKEN_LT        // <
	TOKEN_LE        // <=
	TOKEN_GT        // >
	TOKEN_GE        // >=
	TOKEN_STAR      // *
	TOKEN_SEMICOLON // ;
	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )

	// TOKEN_SELECT and below are keywords.
	TOKEN_SELECT
	TOKEN_FROM
	TOKEN_WHERE
	TOKEN_IS
	TOKEN_NOT
	TOKEN_NULL
	TOKEN_ORDER_BY // reserved; ORDER BY lexes as two identifiers
	TOKEN_INSERT
	TOKEN_UPDATE
	TOKEN_DELETE
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// IsKeyword reports whether the token type is a keyword.
func (t TokenType) IsKeyword() bool {
	return t >= TOKEN_SELECT && t <= TOKEN_DELETE
}

var tokenNames = map[TokenType]string{
	TOKEN_EOF:    "EOF",
	TOKEN_IDENT:  "IDENT",
	TOKEN_NUMBER: "NUMBER",

	TOKEN_EQ:        "=",
	TOKEN_LT:        "<",
	TOKEN_LE:        "<=",
	TOKEN_GT:        ">",
	TOKEN_GE:        ">=",
	TOKEN_STAR:      "*",
	TOKEN_SEMICOLON: ";",
	TOKEN_DOT:       ".",
	TOKEN_COMMA:     ",",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",

	TOKEN_SELECT:   "SELECT",
	TOKEN_FROM:     "FROM",
	TOKEN_WHERE:    "WHERE",
	TOKEN_IS:       "IS",
	TOKEN_NOT:      "NOT",
	TOKEN_NULL:     "NULL",
	TOKEN_ORDER_BY: "ORDER BY",
	TOKEN_INSERT:   "INSERT",
	TOKEN_UPDATE:   "UPDATE",
	TOKEN_DELETE:   "DELETE",
}

// keywords is the case-insensitive keyword table. Lookups use the
// lowercased identifier.
var keywords = map[string]TokenType{
	"select": TOKEN_SELECT,
	"from":   TOKEN_FROM,
	"where":  TOKEN_WHERE,
	"insert": TOKEN_INSERT,
	"update": TOKEN_UPDATE,
	"delete": TOKEN_DELETE,
	"is":     TOKEN_IS,
	"not":    TOKEN_NOT,
	"null":   TOKEN_NULL,
}

func lookupKeyword(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return TOKEN_IDENT
}

// Token represents a lexical token with its exact source text.
type Token struct {
	Type    TokenType
	Literal string // original case and digits preserved
	Pos     int    // byte offset of the first character
}

// String renders the token for diagnostics, e.g. IDENT("foo").
func (t Token) String() string {
	switch t.Type {
	case TOKEN_IDENT, TOKEN_NUMBER:
		return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
	case TOKEN_EOF:
		return "end of input"
	default:
		return t.Type.String()
	}
}
