package sqlfront

import (
	"math"
	"strconv"
	"strings"
)

// Render formats a node back to query text. The output is flat, uses
// lowercase keywords and always terminates a statement with ';'. It is
// semantically equivalent to the parsed input, not byte-identical:
// whitespace and keyword case are normalized.
func Render(n Node) string {
	r := &renderer{}
	r.node(n)
	return r.buf.String()
}

// renderer is a simple query string builder.
type renderer struct {
	buf strings.Builder
}

func (r *renderer) write(s string) {
	r.buf.WriteString(s)
}

// commaSep writes items separated by ", ".
func (r *renderer) commaSep(exprs []Expr) {
	for i, e := range exprs {
		if i > 0 {
			r.write(", ")
		}
		r.expr(e)
	}
}

func (r *renderer) node(n Node) {
	switch n := n.(type) {
	case nil:
	case *Ast:
		for i, s := range n.Statements {
			if i > 0 {
				r.write(" ")
			}
			r.stmt(s)
		}
	case Stmt:
		r.stmt(n)
	case Expr:
		r.expr(n)
	}
}

func (r *renderer) stmt(s Stmt) {
	switch s := s.(type) {
	case *SelectStmt:
		r.selectStmt(s)
	}
}

func (r *renderer) selectStmt(s *SelectStmt) {
	if s == nil {
		return
	}
	r.write("select ")
	r.commaSep(s.Selection)
	if s.From != nil {
		r.write(" from ")
		r.expr(s.From)
	}
	for _, j := range s.Joins {
		r.write(" join ")
		r.expr(j)
	}
	if s.Where != nil {
		r.write(" where ")
		r.expr(s.Where)
	}
	if len(s.GroupBy) > 0 {
		r.write(" group by ")
		r.commaSep(s.GroupBy)
	}
	if len(s.OrderBy) > 0 {
		r.write(" order by ")
		r.commaSep(s.OrderBy)
	}
	r.write(";")
}

func (r *renderer) expr(e Expr) {
	switch e := e.(type) {
	case *NumberLiteral:
		r.write(formatNumber(e))
	case *Wildcard:
		r.write("*")
	case *ColumnRef:
		r.write(e.Name)
	case *ComparisonExpr:
		r.expr(e.Left)
		r.write(" " + e.Op.String() + " ")
		r.expr(e.Right)
	case *IsNullExpr:
		r.expr(e.Expr)
		if e.Not {
			r.write(" is not null")
		} else {
			r.write(" is null")
		}
	}
}

func formatNumber(n *NumberLiteral) string {
	if n.Kind == NumberInt {
		return strconv.FormatFloat(math.Trunc(n.Value), 'f', 0, 64)
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}
