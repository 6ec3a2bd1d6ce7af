package sqlfront

import (
	"unicode"
	"unicode/utf8"
)

// eof marks the end of input in Lexer.ch. It is not a valid scalar value, so
// it can never collide with source text.
const eof rune = -1

// Lexer tokenizes query text one token at a time.
type Lexer struct {
	input   string
	pos     int  // byte offset of ch
	readPos int  // byte offset after ch
	ch      rune // current char under examination
	line    int  // 1-based line of ch
	col     int  // 1-based column of ch, counted in characters
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.pos = l.readPos
	if l.readPos >= len(l.input) {
		l.ch = eof
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.readPos += size
	l.col++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// NextToken returns the next token from the input. At end of input it
// returns a TOKEN_EOF token; an unrecognized character yields a *LexError.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	start := l.pos
	var tok Token

	switch l.ch {
	case eof:
		return Token{Type: TOKEN_EOF, Pos: start}, nil
	case '=':
		tok = Token{Type: TOKEN_EQ, Literal: "="}
	case '*':
		tok = Token{Type: TOKEN_STAR, Literal: "*"}
	case ';':
		tok = Token{Type: TOKEN_SEMICOLON, Literal: ";"}
	case '.':
		tok = Token{Type: TOKEN_DOT, Literal: "."}
	case ',':
		tok = Token{Type: TOKEN_COMMA, Literal: ","}
	case '(':
		tok = Token{Type: TOKEN_LPAREN, Literal: "("}
	case ')':
		tok = Token{Type: TOKEN_RPAREN, Literal: ")"}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_LE, Literal: "<="}
		} else {
			tok = Token{Type: TOKEN_LT, Literal: "<"}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_GE, Literal: ">="}
		} else {
			tok = Token{Type: TOKEN_GT, Literal: ">"}
		}
	default:
		switch {
		case unicode.IsLetter(l.ch):
			literal := l.readIdentifier()
			return Token{Type: lookupKeyword(literal), Literal: literal, Pos: start}, nil
		case isDigit(l.ch):
			return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: start}, nil
		default:
			lexErr := &LexError{Char: l.ch, Offset: start, Line: l.line, Column: l.col}
			if l.ch == utf8.RuneError && l.readPos-start == 1 {
				lexErr.Invalid = true
				lexErr.Byte = l.input[start]
			}
			return Token{}, lexErr
		}
	}

	tok.Pos = start
	l.readChar()
	return tok, nil
}

// Tokenize converts the whole source into tokens. The result never contains
// TOKEN_EOF. On the first unrecognized character it returns a *LexError and
// no tokens.
func Tokenize(source string) ([]Token, error) {
	l := NewLexer(source)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TOKEN_EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch != eof && unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

// readIdentifier reads a letter followed by letters, digits and underscores.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for l.ch != eof && (unicode.IsLetter(l.ch) || unicode.IsNumber(l.ch) || l.ch == '_') {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a run of decimal digits. Fractions and exponents are not
// lexed: "1.5" is NUMBER DOT NUMBER.
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
