package runtime

// Operator is a binary comparison operator.
type Operator string

const (
	OpEqual       Operator = "="
	OpNotEqual    Operator = "<>"
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
	OpGTE         Operator = ">="
	OpLTE         Operator = "<="
	OpLike        Operator = "LIKE"
	OpILike       Operator = "ILIKE"
)

// Predicate is a boolean SQL condition. Combining methods ignore nil operands,
// so optional conditions can be passed around as nil.
type Predicate interface {
	Expression
	And(other Predicate) Predicate
	Or(other Predicate) Predicate
	Not() Predicate
}

// BooleanExpr is the concrete Predicate returned by expression methods.
type BooleanExpr struct {
	node Expression
}

// NewPredicate wraps a boolean-valued expression.
func NewPredicate(node Expression) Predicate { return BooleanExpr{node: node} }

// WriteSQL implements Expression.
func (b BooleanExpr) WriteSQL(w *Writer) { w.Write(b.node) }

// And implements Predicate.
func (b BooleanExpr) And(other Predicate) Predicate { return And(b, other) }

// Or implements Predicate.
func (b BooleanExpr) Or(other Predicate) Predicate { return Or(b, other) }

// Not implements Predicate.
func (b BooleanExpr) Not() Predicate { return Not(b) }

type comparisonNode struct {
	left  Expression
	op    Operator
	right Expression
}

func (c comparisonNode) WriteSQL(w *Writer) {
	w.Write(c.left)
	w.WriteString(" ")
	w.WriteString(string(c.op))
	w.WriteString(" ")
	w.Write(c.right)
}

func compare(left Expression, op Operator, right Expression) Predicate {
	return BooleanExpr{node: comparisonNode{left: left, op: op, right: right}}
}

type postfixNode struct {
	inner  Expression
	suffix string
}

func (p postfixNode) WriteSQL(w *Writer) {
	w.Write(p.inner)
	w.WriteString(" ")
	w.WriteString(p.suffix)
}

func postfix(inner Expression, suffix string) Predicate {
	return BooleanExpr{node: postfixNode{inner: inner, suffix: suffix}}
}

type inNode struct {
	left   Expression
	values []any
}

func (n inNode) WriteSQL(w *Writer) {
	if len(n.values) == 0 {
		w.WriteString("FALSE")
		return
	}
	w.Write(n.left)
	w.WriteString(" IN (")
	for i, v := range n.values {
		if i > 0 {
			w.WriteString(", ")
		}
		w.Bind(v)
	}
	w.WriteString(")")
}

func in(left Expression, values []any) Predicate {
	return BooleanExpr{node: inNode{left: left, values: values}}
}

type betweenNode struct {
	inner    Expression
	from, to any
}

func (b betweenNode) WriteSQL(w *Writer) {
	w.Write(b.inner)
	w.WriteString(" BETWEEN ")
	w.Bind(b.from)
	w.WriteString(" AND ")
	w.Bind(b.to)
}

func between(inner Expression, from, to any) Predicate {
	return BooleanExpr{node: betweenNode{inner: inner, from: from, to: to}}
}

type junctionNode struct {
	op    string
	parts []Predicate
}

func (j junctionNode) WriteSQL(w *Writer) {
	for i, part := range j.parts {
		if i > 0 {
			w.WriteString(" ")
			w.WriteString(j.op)
			w.WriteString(" ")
		}
		if !atomic(part) {
			w.WriteString("(")
			w.Write(part)
			w.WriteString(")")
			continue
		}
		w.Write(part)
	}
}

type notNode struct {
	inner Predicate
}

func (n notNode) WriteSQL(w *Writer) {
	w.WriteString("NOT (")
	w.Write(n.inner)
	w.WriteString(")")
}

// atomic reports whether p renders as a single operand of AND/OR. Templates,
// nested junctions and foreign predicates are parenthesised.
func atomic(p Predicate) bool {
	b, ok := p.(BooleanExpr)
	if !ok {
		return false
	}
	switch b.node.(type) {
	case comparisonNode, postfixNode, inNode, betweenNode, notNode:
		return true
	}
	return false
}

func junctionOf(p Predicate) (junctionNode, bool) {
	b, ok := p.(BooleanExpr)
	if !ok {
		return junctionNode{}, false
	}
	j, ok := b.node.(junctionNode)
	return j, ok
}

func isEmpty(p Predicate) bool {
	if p == nil {
		return true
	}
	if b, ok := p.(BooleanExpr); ok {
		return b.node == nil
	}
	return false
}

func junction(op string, preds []Predicate) Predicate {
	parts := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if isEmpty(p) {
			continue
		}
		if j, ok := junctionOf(p); ok && j.op == op {
			parts = append(parts, j.parts...)
			continue
		}
		parts = append(parts, p)
	}
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return BooleanExpr{node: junctionNode{op: op, parts: parts}}
	}
}

// And combines the non-nil predicates with AND. It returns nil when every
// operand is nil.
func And(preds ...Predicate) Predicate { return junction("AND", preds) }

// Or combines the non-nil predicates with OR.
func Or(preds ...Predicate) Predicate { return junction("OR", preds) }

// Not negates p. Negating nil yields nil.
func Not(p Predicate) Predicate {
	if isEmpty(p) {
		return nil
	}
	return BooleanExpr{node: notNode{inner: p}}
}

// BoolBuilder accumulates predicates incrementally. An empty builder has no
// value and contributes nothing to a WHERE clause.
type BoolBuilder struct {
	pred Predicate
}

// NewBoolBuilder starts a builder, optionally seeded with initial predicates.
func NewBoolBuilder(initial ...Predicate) *BoolBuilder {
	return &BoolBuilder{pred: And(initial...)}
}

// And appends p with AND.
func (b *BoolBuilder) And(p Predicate) *BoolBuilder {
	b.pred = And(b.pred, p)
	return b
}

// Or appends p with OR.
func (b *BoolBuilder) Or(p Predicate) *BoolBuilder {
	b.pred = Or(b.pred, p)
	return b
}

// AndNot appends NOT p with AND.
func (b *BoolBuilder) AndNot(p Predicate) *BoolBuilder { return b.And(Not(p)) }

// OrNot appends NOT p with OR.
func (b *BoolBuilder) OrNot(p Predicate) *BoolBuilder { return b.Or(Not(p)) }

// Not negates the accumulated predicate.
func (b *BoolBuilder) Not() *BoolBuilder {
	b.pred = Not(b.pred)
	return b
}

// HasValue reports whether any predicate has been added.
func (b *BoolBuilder) HasValue() bool { return b != nil && !isEmpty(b.pred) }

// Value returns the accumulated predicate, or nil when empty.
func (b *BoolBuilder) Value() Predicate {
	if !b.HasValue() {
		return nil
	}
	return b.pred
}
