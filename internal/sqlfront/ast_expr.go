package sqlfront

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// === Expression Nodes ===

// NumberKind tells how a numeric literal was written.
type NumberKind int

const (
	NumberInt NumberKind = iota
	NumberDouble
)

func (k NumberKind) String() string {
	if k == NumberDouble {
		return "double"
	}
	return "int"
}

// NumberLiteral is a numeric literal. Both kinds share a float64 value;
// Kind only affects rendering.
type NumberLiteral struct {
	Kind  NumberKind
	Value float64
}

func (*NumberLiteral) node()     {}
func (*NumberLiteral) exprNode() {}

func (n *NumberLiteral) String() string { return Render(n) }

// ParseNumberLiteral builds a literal from its source text. Text containing
// a '.' is a double, anything else an integer. A value too large for
// float64 returns an error wrapping ErrNumberOutOfRange; non-numeric text
// returns a syntax error.
func ParseNumberLiteral(text string) (*NumberLiteral, error) {
	kind := NumberInt
	if strings.Contains(text, ".") {
		kind = NumberDouble
	}

	if kind == NumberInt {
		i, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return &NumberLiteral{Kind: kind, Value: float64(i)}, nil
		}
		if !errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("number literal %q: %w", text, err)
		}
		// Wider than int64: fall through to float parsing.
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return nil, fmt.Errorf("number literal %q: %w", text, ErrNumberOutOfRange)
		}
		return nil, fmt.Errorf("number literal %q: %w", text, err)
	}
	return &NumberLiteral{Kind: kind, Value: f}, nil
}

// NewNumberLiteral is ParseNumberLiteral for text already known to be
// numeric. It panics on malformed text.
func NewNumberLiteral(text string) *NumberLiteral {
	n, err := ParseNumberLiteral(text)
	if err != nil {
		panic(fmt.Sprintf("sqlfront: %v", err))
	}
	return n
}

// Wildcard is the "all columns" marker, written *.
type Wildcard struct{}

func (*Wildcard) node()     {}
func (*Wildcard) exprNode() {}

func (w *Wildcard) String() string { return Render(w) }

// ColumnRef is a reference to a column or table by name. Qualified names
// are not resolved; Name holds the identifier text as written.
type ColumnRef struct {
	Name string
}

func (*ColumnRef) node()     {}
func (*ColumnRef) exprNode() {}

func (c *ColumnRef) String() string { return Render(c) }

// ComparisonExpr is a binary comparison (left op right). Op is one of
// TOKEN_EQ, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE.
type ComparisonExpr struct {
	Left  Expr
	Op    TokenType
	Right Expr
}

func (*ComparisonExpr) node()     {}
func (*ComparisonExpr) exprNode() {}

func (c *ComparisonExpr) String() string { return Render(c) }

// IsNullExpr represents expr IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

func (*IsNullExpr) node()     {}
func (*IsNullExpr) exprNode() {}

func (e *IsNullExpr) String() string { return Render(e) }

func isComparisonOp(t TokenType) bool {
	switch t {
	case TOKEN_EQ, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE:
		return true
	}
	return false
}
