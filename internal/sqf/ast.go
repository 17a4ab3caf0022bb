package sqf

// Node is any syntax tree node.
type Node interface {
	NodeSpan() Span
}

// Stmt is a statement.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression.
type Expr interface {
	Node
	exprNode()
}

// File is the parsed top level of a script.
type File struct {
	Stmts []Stmt
}

// AssignStmt is `name = value`, optionally prefixed by `private`.
type AssignStmt struct {
	Private  bool
	Name     string
	NameSpan Span
	Value    Expr
	Span     Span
}

// ExprStmt is a bare expression statement.
type ExprStmt struct {
	X Expr
}

// NumberLit is a numeric literal.
type NumberLit struct {
	Value float64
	Span  Span
}

// StringLit is a string literal; Value has the quotes removed.
type StringLit struct {
	Value string
	Span  Span
}

// ArrayLit is `[a, b, ...]`.
type ArrayLit struct {
	Elems []Expr
	Span  Span
}

// CodeLit is `{ ... }`.
type CodeLit struct {
	Body []Stmt
	Span Span
}

// Ident is a variable reference.
type Ident struct {
	Name string
	Span Span
}

// NullaryCmd is a builtin command taking no operands.
type NullaryCmd struct {
	Name string
	Span Span
}

// UnaryCmd is a prefix command or operator applied to Arg.
type UnaryCmd struct {
	Name   string
	OpSpan Span
	Arg    Expr
	Span   Span
}

// BinaryCmd is an infix command or operator.
type BinaryCmd struct {
	Name   string
	OpSpan Span
	Left   Expr
	Right  Expr
	Span   Span
}

// BadExpr stands in for an expression that failed to parse.
type BadExpr struct {
	Span Span
}

func (s *AssignStmt) NodeSpan() Span { return s.Span }
func (s *ExprStmt) NodeSpan() Span   { return s.X.NodeSpan() }
func (e *NumberLit) NodeSpan() Span  { return e.Span }
func (e *StringLit) NodeSpan() Span  { return e.Span }
func (e *ArrayLit) NodeSpan() Span   { return e.Span }
func (e *CodeLit) NodeSpan() Span    { return e.Span }
func (e *Ident) NodeSpan() Span      { return e.Span }
func (e *NullaryCmd) NodeSpan() Span { return e.Span }
func (e *UnaryCmd) NodeSpan() Span   { return e.Span }
func (e *BinaryCmd) NodeSpan() Span  { return e.Span }
func (e *BadExpr) NodeSpan() Span    { return e.Span }

func (*AssignStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}

func (*NumberLit) exprNode()  {}
func (*StringLit) exprNode()  {}
func (*ArrayLit) exprNode()   {}
func (*CodeLit) exprNode()    {}
func (*Ident) exprNode()      {}
func (*NullaryCmd) exprNode() {}
func (*UnaryCmd) exprNode()   {}
func (*BinaryCmd) exprNode()  {}
func (*BadExpr) exprNode()    {}
