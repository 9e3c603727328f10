package runtime

import (
	"context"
	"fmt"
)

// Expression renders itself as a SQL fragment.
type Expression interface {
	WriteSQL(w *Writer)
}

// Selectable is an expression that can appear in a select list and be scanned
// back into a Go value.
type Selectable interface {
	Expression
	// ScanTarget allocates a pointer suitable for pgx.Rows.Scan.
	ScanTarget() any
	// ScanValue dereferences a target previously returned by ScanTarget.
	ScanValue(target any) any
}

// Source is a relation that can appear in FROM, JOIN, UPDATE or DELETE clauses.
type Source interface {
	Expression
	TableName() string
}

// Table names a relation with an optional alias. Columns created from the table
// are qualified with the alias.
type Table struct {
	name  string
	alias string
}

// NewTable describes the relation name, rendered as "name AS alias".
func NewTable(name, alias string) Table {
	return Table{name: name, alias: alias}
}

// TableName implements Source.
func (t Table) TableName() string { return t.name }

// Alias returns the alias columns are qualified with.
func (t Table) Alias() string {
	if t.alias != "" {
		return t.alias
	}
	return t.name
}

// WriteSQL implements Expression.
func (t Table) WriteSQL(w *Writer) {
	w.WriteString(t.name)
	if t.alias != "" && t.alias != t.name {
		w.WriteString(" AS ")
		w.WriteString(t.alias)
	}
}

// Column returns a qualified column reference.
func (t Table) Column(name string) Expression {
	return columnNode{qualifier: t.Alias(), name: name}
}

type columnNode struct {
	qualifier string
	name      string
}

func (c columnNode) WriteSQL(w *Writer) {
	if c.qualifier != "" {
		w.WriteString(c.qualifier)
		w.WriteString(".")
	}
	w.WriteString(c.name)
}

func (c columnNode) ColumnName() string { return c.name }

type valueNode struct {
	value any
}

func (v valueNode) WriteSQL(w *Writer) { w.Bind(v.value) }

// Value wraps a Go value so it renders as a bound parameter.
func Value(v any) Expression { return valueNode{value: v} }

type rawNode string

func (r rawNode) WriteSQL(w *Writer) { w.WriteString(string(r)) }

// Raw renders sql verbatim.
func Raw(sql string) Expression { return rawNode(sql) }

type funcNode struct {
	name     string
	distinct bool
	args     []Expression
}

func (f funcNode) WriteSQL(w *Writer) {
	w.WriteString(f.name)
	w.WriteString("(")
	if f.distinct {
		w.WriteString("DISTINCT ")
	}
	w.WriteList(f.args, ", ")
	w.WriteString(")")
}

type arithmeticNode struct {
	left  Expression
	op    string
	right Expression
}

func (a arithmeticNode) WriteSQL(w *Writer) {
	w.WriteString("(")
	w.Write(a.left)
	w.WriteString(" ")
	w.WriteString(a.op)
	w.WriteString(" ")
	w.Write(a.right)
	w.WriteString(")")
}

type aliasNode struct {
	inner Expression
	alias string
}

// Aliases only surface in select lists; everywhere else the inner expression renders.
func (a aliasNode) WriteSQL(w *Writer) { w.Write(a.inner) }

func (a aliasNode) ColumnName() string { return a.alias }

// operand turns v into an expression, binding plain values as parameters.
func operand(v any) Expression {
	if expr, ok := v.(Expression); ok && expr != nil {
		return expr
	}
	return valueNode{value: v}
}

// ColumnName reports the column or alias name exposed by expr, or "" when the
// expression is computed and unaliased.
func ColumnName(expr Expression) string {
	if named, ok := expr.(interface{ ColumnName() string }); ok {
		return named.ColumnName()
	}
	return ""
}

// columnOf unwraps a plain column reference.
func columnOf(expr Expression) (columnNode, bool) {
	switch e := expr.(type) {
	case columnNode:
		return e, true
	case interface{ columnRef() (columnNode, bool) }:
		return e.columnRef()
	}
	return columnNode{}, false
}

func qualifierOf(src Source) string {
	if aliased, ok := src.(interface{ Alias() string }); ok {
		return aliased.Alias()
	}
	return src.TableName()
}

func aliasOf(expr Expression) string {
	if aliased, ok := expr.(interface{ Alias() string }); ok {
		return aliased.Alias()
	}
	return ""
}

// Expr is a typed expression whose values scan into T.
type Expr[T any] struct {
	node Expression
}

// NewExpr wraps node as an expression producing T.
func NewExpr[T any](node Expression) Expr[T] { return Expr[T]{node: node} }

// Path returns a typed column of t.
func Path[T any](t Table, column string) Expr[T] { return Expr[T]{node: t.Column(column)} }

// WriteSQL implements Expression.
func (e Expr[T]) WriteSQL(w *Writer) { w.Write(e.node) }

// ScanTarget implements Selectable.
func (e Expr[T]) ScanTarget() any { return new(T) }

// ScanValue implements Selectable.
func (e Expr[T]) ScanValue(target any) any {
	if ptr, ok := target.(*T); ok && ptr != nil {
		return *ptr
	}
	var zero T
	return zero
}

// Expressions implements Projection, selecting the expression on its own.
func (e Expr[T]) Expressions() []Selectable { return []Selectable{e} }

// Build implements Projection.
func (e Expr[T]) Build(_ context.Context, values []any) (T, error) {
	var zero T
	if len(values) != 1 {
		return zero, fmt.Errorf("runtime: expression projection expects 1 value, got %d", len(values))
	}
	if values[0] == nil {
		return zero, nil
	}
	v, ok := values[0].(T)
	if !ok {
		return zero, fmt.Errorf("runtime: cannot use %T as %T", values[0], zero)
	}
	return v, nil
}

// Get returns the value selected for e from tuple, or the zero value when e
// was not selected or is NULL. A value of another type is a programming error
// and panics.
func (e Expr[T]) Get(tuple Tuple) T {
	var zero T
	v, ok := tuple.lookup(e)
	if !ok || v == nil {
		return zero
	}
	typed, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("runtime: tuple holds %T for %s, not %T", v, renderKey(e), zero))
	}
	return typed
}

// As names the expression in the select list.
func (e Expr[T]) As(alias string) Expr[T] {
	return Expr[T]{node: aliasNode{inner: unalias(e.node), alias: alias}}
}

// Alias returns the select-list alias or "".
func (e Expr[T]) Alias() string {
	if a, ok := e.node.(aliasNode); ok {
		return a.alias
	}
	return ""
}

func (e Expr[T]) columnRef() (columnNode, bool) { return columnOf(e.node) }

// ColumnName returns the alias or underlying column name.
func (e Expr[T]) ColumnName() string { return ColumnName(e.node) }

// EqExpr compares the expression with another expression.
func (e Expr[T]) EqExpr(other Expression) Predicate { return compare(e, OpEqual, other) }

// NeExpr is the negation of EqExpr.
func (e Expr[T]) NeExpr(other Expression) Predicate { return compare(e, OpNotEqual, other) }

// IsNull tests for SQL NULL.
func (e Expr[T]) IsNull() Predicate { return postfix(e, "IS NULL") }

// IsNotNull tests for non-NULL values.
func (e Expr[T]) IsNotNull() Predicate { return postfix(e, "IS NOT NULL") }

// Asc orders ascending.
func (e Expr[T]) Asc() OrderSpecifier { return OrderSpecifier{Target: e, Direction: SortAsc} }

// Desc orders descending.
func (e Expr[T]) Desc() OrderSpecifier { return OrderSpecifier{Target: e, Direction: SortDesc} }

// Count aggregates non-NULL values.
func (e Expr[T]) Count() NumberExpr[int64] {
	return NumberExpr[int64]{Expr[int64]{node: funcNode{name: "COUNT", args: []Expression{e}}}}
}

// CountDistinct aggregates distinct non-NULL values.
func (e Expr[T]) CountDistinct() NumberExpr[int64] {
	return NumberExpr[int64]{Expr[int64]{node: funcNode{name: "COUNT", distinct: true, args: []Expression{e}}}}
}

func unalias(node Expression) Expression {
	if a, ok := node.(aliasNode); ok {
		return a.inner
	}
	return node
}

// CountAll renders COUNT(*).
func CountAll() NumberExpr[int64] {
	return NumberExpr[int64]{Expr[int64]{node: rawNode("COUNT(*)")}}
}

func writeSelectList(w *Writer, items []Selectable) {
	for i, item := range items {
		if i > 0 {
			w.WriteString(", ")
		}
		w.Write(item)
		if alias := aliasOf(item); alias != "" {
			w.WriteString(" AS ")
			w.WriteString(alias)
		}
	}
}
