package compiler

import (
	"fmt"
	"strings"
)

// Expr is an expression node.
type Expr interface {
	exprNode()
	String() string
}

// Stmt is a statement node.
type Stmt interface {
	stmtNode()
	String() string
}

// --- Expressions ---

type Literal struct {
	Value int
}

func (e *Literal) exprNode()      {}
func (e *Literal) String() string { return fmt.Sprintf("%d", e.Value) }

type VarRef struct {
	Name string
}

func (e *VarRef) exprNode()      {}
func (e *VarRef) String() string { return e.Name }

// ArrayLit is an array literal. It is only legal as a declaration
// initializer or a destructuring right-hand side.
type ArrayLit struct {
	Elems []Expr
}

func (e *ArrayLit) exprNode() {}
func (e *ArrayLit) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

type IndexExpr struct {
	Target Expr
	Index  Expr
}

func (e *IndexExpr) exprNode()      {}
func (e *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", e.Target, e.Index) }

type FunctionCall struct {
	Name string
	Args []Expr
}

func (e *FunctionCall) exprNode() {}
func (e *FunctionCall) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(parts, ", "))
}

type UnaryExpr struct {
	Op    TokenType
	Right Expr
}

func (e *UnaryExpr) exprNode()      {}
func (e *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", e.Op, e.Right) }

type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

func (e *BinaryExpr) exprNode()      {}
func (e *BinaryExpr) String() string { return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right) }

// --- Statements ---

// VarDecl declares one name. Kind is LET, VAR or CONST; Init may be nil for
// let/var.
type VarDecl struct {
	Kind TokenType
	Name string
	Init Expr
}

func (s *VarDecl) stmtNode() {}
func (s *VarDecl) String() string {
	if s.Init == nil {
		return fmt.Sprintf("%s %s", s.Kind, s.Name)
	}
	return fmt.Sprintf("%s %s = %s", s.Kind, s.Name, s.Init)
}

// DestructuringDecl declares several names from an array literal, e.g.
// let [a, b] = [1, 2]. Kind is LET or VAR.
type DestructuringDecl struct {
	Kind  TokenType
	Names []string
	Init  Expr
}

func (s *DestructuringDecl) stmtNode() {}
func (s *DestructuringDecl) String() string {
	return fmt.Sprintf("%s [%s] = %s", s.Kind, strings.Join(s.Names, ", "), s.Init)
}

// Assignment stores Value into Left (a VarRef or IndexExpr). Compound
// assignments and ++/-- are desugared to this form by the parser.
type Assignment struct {
	Left  Expr
	Value Expr
}

func (s *Assignment) stmtNode()      {}
func (s *Assignment) String() string { return fmt.Sprintf("%s = %s", s.Left, s.Value) }

type ExprStmt struct {
	Expr Expr
}

func (s *ExprStmt) stmtNode()      {}
func (s *ExprStmt) String() string { return s.Expr.String() }

type BlockStmt struct {
	Stmts []Stmt
}

func (s *BlockStmt) stmtNode()      {}
func (s *BlockStmt) String() string { return fmt.Sprintf("{ %d stmts }", len(s.Stmts)) }

// IfStmt: Else is nil, a *BlockStmt, or a *IfStmt for else-if chains.
type IfStmt struct {
	Cond Expr
	Body *BlockStmt
	Else Stmt
}

func (s *IfStmt) stmtNode()      {}
func (s *IfStmt) String() string { return fmt.Sprintf("if (%s) %s", s.Cond, s.Body) }

type WhileStmt struct {
	Cond Expr
	Body *BlockStmt
}

func (s *WhileStmt) stmtNode()      {}
func (s *WhileStmt) String() string { return fmt.Sprintf("while (%s) %s", s.Cond, s.Body) }

type DoWhileStmt struct {
	Body *BlockStmt
	Cond Expr
}

func (s *DoWhileStmt) stmtNode()      {}
func (s *DoWhileStmt) String() string { return fmt.Sprintf("do %s while (%s)", s.Body, s.Cond) }

// ForStmt: Init and Update may be nil; Cond nil means loop forever.
type ForStmt struct {
	Init   Stmt
	Cond   Expr
	Update Stmt
	Body   *BlockStmt
}

func (s *ForStmt) stmtNode()      {}
func (s *ForStmt) String() string { return fmt.Sprintf("for (...) %s", s.Body) }

// ForEachStmt is for-in (indices) or for-of (values) over an array. Mode is
// IN or OF.
type ForEachStmt struct {
	Mode  TokenType
	Name  string
	Array Expr
	Body  *BlockStmt
}

func (s *ForEachStmt) stmtNode() {}
func (s *ForEachStmt) String() string {
	return fmt.Sprintf("for (%s %s %s) %s", s.Name, s.Mode, s.Array, s.Body)
}

type CaseClause struct {
	Value Expr
	Body  []Stmt
}

type SwitchStmt struct {
	Target     Expr
	Cases      []CaseClause
	Default    []Stmt
	HasDefault bool
}

func (s *SwitchStmt) stmtNode()      {}
func (s *SwitchStmt) String() string { return fmt.Sprintf("switch (%s)", s.Target) }

type BreakStmt struct{}

func (s *BreakStmt) stmtNode()      {}
func (s *BreakStmt) String() string { return "break" }

type ContinueStmt struct{}

func (s *ContinueStmt) stmtNode()      {}
func (s *ContinueStmt) String() string { return "continue" }

type FunctionDecl struct {
	Name   string
	Params []string
	Body   *BlockStmt
}

func (s *FunctionDecl) stmtNode() {}
func (s *FunctionDecl) String() string {
	return fmt.Sprintf("function %s(%s) %s", s.Name, strings.Join(s.Params, ", "), s.Body)
}

// ReturnStmt: Expr is nil for a bare return.
type ReturnStmt struct {
	Expr Expr
}

func (s *ReturnStmt) stmtNode() {}
func (s *ReturnStmt) String() string {
	if s.Expr == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", s.Expr)
}

type ThrowStmt struct {
	Expr Expr
}

func (s *ThrowStmt) stmtNode()      {}
func (s *ThrowStmt) String() string { return fmt.Sprintf("throw %s", s.Expr) }

// TryStmt: Catch and Finally are each optional, but the parser guarantees at
// least one is present. CatchName binds the caught value inside Catch.
type TryStmt struct {
	Body      *BlockStmt
	CatchName string
	Catch     *BlockStmt
	Finally   *BlockStmt
}

func (s *TryStmt) stmtNode()      {}
func (s *TryStmt) String() string { return "try {...}" }
