package engine

import "github.com/josephlewis42/pipesh/core/value"

// BlockID identifies a block registered with an EngineState.
type BlockID = int

// Block is a compiled sequence of pipelines.
type Block struct {
	// Params are the parameters of a closure, empty for plain blocks.
	Params    []string
	Pipelines []*Pipeline
	Span      value.Span
}

// Pipeline is a chain of elements, each element's output is the next one's
// input.
type Pipeline struct {
	// Let is the variable the output is bound to, empty if none.
	Let      string
	Elements []Expr
	Span     value.Span
}

// Expr is a node of a compiled pipeline. The implementations are closed.
type Expr interface {
	isExpr()
	ExprSpan() value.Span
}

// Literal is a constant.
type Literal struct {
	Value value.Value
	Span  value.Span
}

// VarRef reads a variable and optionally a path of columns into it.
type VarRef struct {
	Name string
	Path []string
	Span value.Span
}

// Call invokes a registered command.
type Call struct {
	Name       string
	Positional []Expr
	// Named holds flags by long name, switches map to a nil Expr.
	Named map[string]Expr
	Head  value.Span
	Span  value.Span
}

// ExternalCall starts a program through the engine's Launcher.
type ExternalCall struct {
	Name string
	Args []Expr
	Head value.Span
	Span value.Span
}

// BlockRef evaluates to a reference to a registered block.
type BlockRef struct {
	ID   BlockID
	Span value.Span
}

// ClosureRef evaluates to a reference to a registered closure.
type ClosureRef struct {
	ID   BlockID
	Span value.Span
}

// ListExpr builds a list.
type ListExpr struct {
	Items []Expr
	Span  value.Span
}

// RecordField is a single key of a RecordExpr.
type RecordField struct {
	Key   string
	Value Expr
}

// RecordExpr builds a record.
type RecordExpr struct {
	Fields []RecordField
	Span   value.Span
}

// TableExpr builds a table from a header and rows, [[a, b]; [1, 2]].
type TableExpr struct {
	Columns []string
	Rows    [][]Expr
	Span    value.Span
}

// Subexpr evaluates a nested block and materializes its output.
type Subexpr struct {
	Block *Block
	Span  value.Span
}

func (*Literal) isExpr()      {}
func (*VarRef) isExpr()       {}
func (*Call) isExpr()         {}
func (*ExternalCall) isExpr() {}
func (*BlockRef) isExpr()     {}
func (*ClosureRef) isExpr()   {}
func (*ListExpr) isExpr()     {}
func (*RecordExpr) isExpr()   {}
func (*TableExpr) isExpr()    {}
func (*Subexpr) isExpr()      {}

func (e *Literal) ExprSpan() value.Span      { return e.Span }
func (e *VarRef) ExprSpan() value.Span       { return e.Span }
func (e *Call) ExprSpan() value.Span         { return e.Span }
func (e *ExternalCall) ExprSpan() value.Span { return e.Span }
func (e *BlockRef) ExprSpan() value.Span     { return e.Span }
func (e *ClosureRef) ExprSpan() value.Span   { return e.Span }
func (e *ListExpr) ExprSpan() value.Span     { return e.Span }
func (e *RecordExpr) ExprSpan() value.Span   { return e.Span }
func (e *TableExpr) ExprSpan() value.Span    { return e.Span }
func (e *Subexpr) ExprSpan() value.Span      { return e.Span }

// HasFlag reports whether the switch or flag was given.
func (c *Call) HasFlag(name string) bool {
	_, ok := c.Named[name]
	return ok
}

func (p *Pipeline) hasExternal() bool {
	for _, el := range p.Elements {
		if _, ok := el.(*ExternalCall); ok {
			return true
		}
	}
	return false
}
