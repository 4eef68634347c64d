package ast

// Visitor is called for every node a walk reaches. An implementation that
// has no special handling for a node kind calls VisitChildren to continue
// the walk structurally.
type Visitor interface {
	Visit(node Node)
}

// VisitChildren dispatches v to each direct child of node, in source order.
// A scope's body is visited before its nested scopes. Expressions are not
// part of the statement walk.
func VisitChildren(v Visitor, node Node) {
	switch n := node.(type) {
	case *Scope:
		for _, s := range n.Body {
			v.Visit(s)
		}
		for _, c := range n.Scopes {
			v.Visit(c)
		}
	case *BlockStmt:
		for _, s := range n.Stmts {
			v.Visit(s)
		}
	case *ForLoopStmt:
		v.Visit(n.Body)
	case *ConditionalStmt:
		v.Visit(n.IfTrue)
		if n.IfFalse != nil {
			v.Visit(n.IfFalse)
		}
	case *WhileLoopStmt:
		v.Visit(n.Body)
	case *ExpressionStmt, *EmptyStmt:
		// leaves
	}
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) {
	if node == nil {
		return
	}
	if f(node) {
		VisitChildren(f, node)
	}
}

// Inspect walks the tree rooted at node in depth-first order, calling f for
// each node. Children are skipped when f returns false.
func Inspect(node Node, f func(Node) bool) {
	inspector(f).Visit(node)
}
