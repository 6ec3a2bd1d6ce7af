package sqlfront

// === Statement Classification ===

// StmtType represents the kind of statement.
type StmtType int

// StmtTypeSelect and friends classify statement types.
const (
	StmtTypeSelect StmtType = iota
	StmtTypeOther
)

func (t StmtType) String() string {
	if t == StmtTypeSelect {
		return "SELECT"
	}
	return "OTHER"
}

// Classify returns the statement type for a parsed statement.
func Classify(stmt Stmt) StmtType {
	switch stmt.(type) {
	case *SelectStmt:
		return StmtTypeSelect
	default:
		return StmtTypeOther
	}
}

// === Traversal ===

// Walk visits n and its descendants in pre-order. When fn returns false the
// children of that node are skipped.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range children(n) {
		Walk(c, fn)
	}
}

func children(n Node) []Node {
	var out []Node
	add := func(exprs ...Expr) {
		for _, e := range exprs {
			if e != nil {
				out = append(out, e)
			}
		}
	}

	switch n := n.(type) {
	case *Ast:
		for _, s := range n.Statements {
			out = append(out, s)
		}
	case *SelectStmt:
		add(n.Selection...)
		add(n.From)
		add(n.Joins...)
		add(n.Where)
		add(n.GroupBy...)
		add(n.OrderBy...)
	case *ComparisonExpr:
		add(n.Left, n.Right)
	case *IsNullExpr:
		add(n.Expr)
	}
	return out
}

// === Name Collection ===

// CollectTableNames returns the deduplicated names used as FROM and JOIN
// sources, in order of appearance.
func CollectTableNames(stmt Stmt) []string {
	sel, ok := stmt.(*SelectStmt)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var tables []string
	for _, src := range append([]Expr{sel.From}, sel.Joins...) {
		if ref, ok := src.(*ColumnRef); ok && !seen[ref.Name] {
			seen[ref.Name] = true
			tables = append(tables, ref.Name)
		}
	}
	return tables
}

// CollectColumnNames returns the deduplicated column references outside
// the FROM and JOIN sources, in order of appearance.
func CollectColumnNames(stmt Stmt) []string {
	sel, ok := stmt.(*SelectStmt)
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var cols []string
	visit := func(n Node) bool {
		if ref, ok := n.(*ColumnRef); ok && !seen[ref.Name] {
			seen[ref.Name] = true
			cols = append(cols, ref.Name)
		}
		return true
	}
	for _, group := range [][]Expr{sel.Selection, {sel.Where}, sel.GroupBy, sel.OrderBy} {
		for _, e := range group {
			if e != nil {
				Walk(e, visit)
			}
		}
	}
	return cols
}

// === Description ===

// NodeInfo is a serializable view of an AST node, used for JSON and YAML
// output.
type NodeInfo struct {
	Type     string     `json:"type" yaml:"type"`
	Text     string     `json:"text" yaml:"text"`
	Role     string     `json:"role,omitempty" yaml:"role,omitempty"`
	Children []NodeInfo `json:"children,omitempty" yaml:"children,omitempty"`
}

// Describe converts n into a NodeInfo tree.
func Describe(n Node) NodeInfo {
	info := NodeInfo{Text: Render(n)}

	describeAll := func(role string, exprs ...Expr) {
		for _, e := range exprs {
			if e == nil {
				continue
			}
			c := Describe(e)
			c.Role = role
			info.Children = append(info.Children, c)
		}
	}

	switch n := n.(type) {
	case *Ast:
		info.Type = "program"
		for _, s := range n.Statements {
			info.Children = append(info.Children, Describe(s))
		}
	case *SelectStmt:
		info.Type = "select"
		describeAll("selection", n.Selection...)
		describeAll("from", n.From)
		describeAll("join", n.Joins...)
		describeAll("where", n.Where)
		describeAll("group_by", n.GroupBy...)
		describeAll("order_by", n.OrderBy...)
	case *NumberLiteral:
		info.Type = "number_" + n.Kind.String()
	case *Wildcard:
		info.Type = "wildcard"
	case *ColumnRef:
		info.Type = "column_ref"
	case *ComparisonExpr:
		info.Type = "comparison"
		describeAll("left", n.Left)
		describeAll("right", n.Right)
	case *IsNullExpr:
		info.Type = "is_null"
		describeAll("operand", n.Expr)
	}
	return info
}
