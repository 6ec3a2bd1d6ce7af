package sqlfront

// === Statement Nodes ===

// SelectStmt represents a SELECT statement. Selection is non-empty for any
// parsed statement. Joins and GroupBy are representable and rendered but
// the parser never fills them.
type SelectStmt struct {
	Selection []Expr
	From      Expr // nil when there is no FROM clause
	Joins     []Expr
	Where     Expr // nil when there is no WHERE clause
	GroupBy   []Expr
	OrderBy   []Expr
}

func (*SelectStmt) node()     {}
func (*SelectStmt) stmtNode() {}

func (s *SelectStmt) String() string { return Render(s) }
