package runtime

// Text constrains string expressions to NOT NULL (string) or nullable (*string) columns.
type Text interface {
	string | *string
}

// StringExpr is a textual expression.
type StringExpr[T Text] struct {
	Expr[T]
}

// StringPath returns a textual column of t.
func StringPath[T Text](t Table, column string) StringExpr[T] {
	return StringExpr[T]{Path[T](t, column)}
}

func (e StringExpr[T]) wrap(node Expression) StringExpr[T] {
	return StringExpr[T]{Expr[T]{node: node}}
}

// As names the expression in the select list.
func (e StringExpr[T]) As(alias string) StringExpr[T] {
	return StringExpr[T]{e.Expr.As(alias)}
}

// Eq compares with a literal value.
func (e StringExpr[T]) Eq(v string) Predicate { return compare(e, OpEqual, Value(v)) }

// Ne is the negation of Eq.
func (e StringExpr[T]) Ne(v string) Predicate { return compare(e, OpNotEqual, Value(v)) }

// Like matches a LIKE pattern.
func (e StringExpr[T]) Like(pattern string) Predicate { return compare(e, OpLike, Value(pattern)) }

// ILike matches a case-insensitive LIKE pattern.
func (e StringExpr[T]) ILike(pattern string) Predicate { return compare(e, OpILike, Value(pattern)) }

// Contains matches values containing s.
func (e StringExpr[T]) Contains(s string) Predicate { return e.Like("%" + s + "%") }

// StartsWith matches values beginning with s.
func (e StringExpr[T]) StartsWith(s string) Predicate { return e.Like(s + "%") }

// In matches any of the values.
func (e StringExpr[T]) In(values ...string) Predicate {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return in(e, args)
}

// Lower applies LOWER.
func (e StringExpr[T]) Lower() StringExpr[T] {
	return e.wrap(funcNode{name: "LOWER", args: []Expression{e.Expr}})
}

// Upper applies UPPER.
func (e StringExpr[T]) Upper() StringExpr[T] {
	return e.wrap(funcNode{name: "UPPER", args: []Expression{e.Expr}})
}

// Concat appends v, which may be a plain value or another expression.
func (e StringExpr[T]) Concat(v any) StringExpr[T] {
	return e.wrap(arithmeticNode{left: e.Expr, op: "||", right: operand(v)})
}

// Length applies LENGTH.
func (e StringExpr[T]) Length() NumberExpr[int] {
	return NumberExpr[int]{Expr[int]{node: funcNode{name: "LENGTH", args: []Expression{e.Expr}}}}
}

// Nullable views the expression as nullable, for columns reached through an
// outer join.
func (e StringExpr[T]) Nullable() StringExpr[*string] {
	return StringExpr[*string]{Expr[*string]{node: e.node}}
}
