package sqlfront

import (
	"errors"
	"fmt"
)

// LexError reports a character the tokenizer does not recognize.
// For a byte that is not valid UTF-8, Char is utf8.RuneError, Invalid is
// set and Byte holds the raw byte.
type LexError struct {
	Char    rune
	Invalid bool
	Byte    byte
	Offset  int // byte offset into the source
	Line    int // 1-based
	Column  int // 1-based, in characters
}

func (e *LexError) Error() string {
	if e.Invalid {
		return fmt.Sprintf("lex error: invalid UTF-8 byte 0x%02x at offset %d (line %d, column %d)",
			e.Byte, e.Offset, e.Line, e.Column)
	}
	return fmt.Sprintf("lex error: unexpected character %q at offset %d (line %d, column %d)",
		e.Char, e.Offset, e.Line, e.Column)
}

// Parse error kinds. A *ParseError unwraps to exactly one of these, so
// callers match with errors.Is.
var (
	ErrUnexpectedEnd         = errors.New("unexpected end of input")
	ErrUnsupportedStatement  = errors.New("unsupported statement")
	ErrUnterminatedStatement = errors.New("select was not finished")
	ErrUnexpectedToken       = errors.New("unexpected token")
	ErrUnsupportedExpression = errors.New("unsupported expression")
	ErrNumberOutOfRange      = errors.New("number out of range")
)

// ParseError is a parse failure with the token it was raised at. Token is
// nil when the failure happened at end of input.
type ParseError struct {
	Err   error
	Token *Token
}

func (e *ParseError) Error() string {
	if e.Token == nil {
		return fmt.Sprintf("parse error: %v at end of input", e.Err)
	}
	return fmt.Sprintf("parse error: %v %s at offset %d", e.Err, e.Token, e.Token.Pos)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(kind error, tok *Token) *ParseError {
	if tok != nil {
		t := *tok
		tok = &t
	}
	return &ParseError{Err: kind, Token: tok}
}

// QueryError is returned by ParseQuery. It wraps either a *LexError or a
// *ParseError.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string { return e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

// IsLexical reports whether the failure happened while tokenizing.
func (e *QueryError) IsLexical() bool {
	var lexErr *LexError
	return errors.As(e.Err, &lexErr)
}
