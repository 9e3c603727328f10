package runtime

// Number constrains numeric expressions.
type Number interface {
	~int | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// NumberExpr is a NOT NULL numeric expression.
type NumberExpr[T Number] struct {
	Expr[T]
}

// NumberPath returns a numeric column of t.
func NumberPath[T Number](t Table, column string) NumberExpr[T] {
	return NumberExpr[T]{Path[T](t, column)}
}

func (e NumberExpr[T]) wrap(node Expression) NumberExpr[T] {
	return NumberExpr[T]{Expr[T]{node: node}}
}

// As names the expression in the select list.
func (e NumberExpr[T]) As(alias string) NumberExpr[T] {
	return NumberExpr[T]{e.Expr.As(alias)}
}

// Eq compares with a literal value.
func (e NumberExpr[T]) Eq(v T) Predicate { return compare(e, OpEqual, Value(v)) }

// Ne is the negation of Eq.
func (e NumberExpr[T]) Ne(v T) Predicate { return compare(e, OpNotEqual, Value(v)) }

// Lt is "less than".
func (e NumberExpr[T]) Lt(v T) Predicate { return compare(e, OpLessThan, Value(v)) }

// Gt is "greater than".
func (e NumberExpr[T]) Gt(v T) Predicate { return compare(e, OpGreaterThan, Value(v)) }

// Loe is "less or equal".
func (e NumberExpr[T]) Loe(v T) Predicate { return compare(e, OpLTE, Value(v)) }

// Goe is "greater or equal".
func (e NumberExpr[T]) Goe(v T) Predicate { return compare(e, OpGTE, Value(v)) }

// Between matches the inclusive range [from, to].
func (e NumberExpr[T]) Between(from, to T) Predicate { return between(e, from, to) }

// In matches any of the values.
func (e NumberExpr[T]) In(values ...T) Predicate {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return in(e, args)
}

// Add renders (e + v); v may be a value or an expression.
func (e NumberExpr[T]) Add(v any) NumberExpr[T] {
	return e.wrap(arithmeticNode{left: e.Expr, op: "+", right: operand(v)})
}

// Subtract renders (e - v).
func (e NumberExpr[T]) Subtract(v any) NumberExpr[T] {
	return e.wrap(arithmeticNode{left: e.Expr, op: "-", right: operand(v)})
}

// Multiply renders (e * v).
func (e NumberExpr[T]) Multiply(v any) NumberExpr[T] {
	return e.wrap(arithmeticNode{left: e.Expr, op: "*", right: operand(v)})
}

// Divide renders (e / v).
func (e NumberExpr[T]) Divide(v any) NumberExpr[T] {
	return e.wrap(arithmeticNode{left: e.Expr, op: "/", right: operand(v)})
}

// Sum aggregates the expression. SUM over no rows is NULL.
func (e NumberExpr[T]) Sum() NullableNumberExpr[T] { return aggregate[T](AggSum, e.Expr) }

// Min aggregates the smallest value.
func (e NumberExpr[T]) Min() NullableNumberExpr[T] { return aggregate[T](AggMin, e.Expr) }

// Max aggregates the largest value.
func (e NumberExpr[T]) Max() NullableNumberExpr[T] { return aggregate[T](AggMax, e.Expr) }

// Avg aggregates the mean value.
func (e NumberExpr[T]) Avg() NullableNumberExpr[float64] { return aggregate[float64](AggAvg, e.Expr) }

// NullableNumberExpr is a numeric expression that may be NULL; values scan into *T.
type NullableNumberExpr[T Number] struct {
	Expr[*T]
}

// NullableNumberPath returns a nullable numeric column of t.
func NullableNumberPath[T Number](t Table, column string) NullableNumberExpr[T] {
	return NullableNumberExpr[T]{Path[*T](t, column)}
}

func aggregate[T Number](fn AggregateFunc, arg Expression) NullableNumberExpr[T] {
	node := funcNode{name: string(fn), args: []Expression{arg}}
	if fn == AggAvg {
		// AVG yields numeric, which pgx cannot scan into every Go number type.
		return NullableNumberExpr[T]{Expr[*T]{node: castNode{inner: node, typ: "double precision"}}}
	}
	return NullableNumberExpr[T]{Expr[*T]{node: node}}
}

// As names the expression in the select list.
func (e NullableNumberExpr[T]) As(alias string) NullableNumberExpr[T] {
	return NullableNumberExpr[T]{e.Expr.As(alias)}
}

// Eq compares with a literal value.
func (e NullableNumberExpr[T]) Eq(v T) Predicate { return compare(e, OpEqual, Value(v)) }

// Ne is the negation of Eq.
func (e NullableNumberExpr[T]) Ne(v T) Predicate { return compare(e, OpNotEqual, Value(v)) }

// Lt is "less than".
func (e NullableNumberExpr[T]) Lt(v T) Predicate { return compare(e, OpLessThan, Value(v)) }

// Gt is "greater than".
func (e NullableNumberExpr[T]) Gt(v T) Predicate { return compare(e, OpGreaterThan, Value(v)) }

// Loe is "less or equal".
func (e NullableNumberExpr[T]) Loe(v T) Predicate { return compare(e, OpLTE, Value(v)) }

// Goe is "greater or equal".
func (e NullableNumberExpr[T]) Goe(v T) Predicate { return compare(e, OpGTE, Value(v)) }

// In matches any of the values. NULL never matches.
func (e NullableNumberExpr[T]) In(values ...T) Predicate {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return in(e, args)
}

type castNode struct {
	inner Expression
	typ   string
}

func (c castNode) WriteSQL(w *Writer) {
	w.WriteString("CAST(")
	w.Write(c.inner)
	w.WriteString(" AS ")
	w.WriteString(c.typ)
	w.WriteString(")")
}

// Nullable views the expression as nullable, for columns reached through an
// outer join.
func (e NumberExpr[T]) Nullable() NullableNumberExpr[T] {
	return NullableNumberExpr[T]{Expr[*T]{node: e.node}}
}
