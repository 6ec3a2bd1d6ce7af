package sqlfront

// Node is the base interface for all AST nodes. The set of implementations
// is closed: consumers switch over the concrete types exhaustively.
type Node interface {
	node()
	// String renders the node as query text. See Render.
	String() string
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Ast is one parsed request: zero or more statements in source order.
type Ast struct {
	Statements []Stmt
}

func (*Ast) node() {}

func (a *Ast) String() string { return Render(a) }
