package runtime

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// JoinKind selects the SQL join flavour.
type JoinKind string

const (
	JoinInner JoinKind = "JOIN"
	JoinLeft  JoinKind = "LEFT JOIN"
)

// JoinSpec is a single join clause.
type JoinSpec struct {
	Kind   JoinKind
	Target Source
	On     Predicate
}

// SelectSpec is the compiled form of a select query.
type SelectSpec struct {
	Distinct   bool
	Columns    []Selectable
	From       []Source
	Joins      []JoinSpec
	Predicates []Predicate
	GroupBy    []Expression
	Having     []Predicate
	Orders     []OrderSpecifier
	Limit      int
	Offset     int
}

type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// AggregateSpec is the compiled form of a single-value aggregate query.
// A nil Aggregate counts rows.
type AggregateSpec struct {
	From       []Source
	Joins      []JoinSpec
	Predicates []Predicate
	Aggregate  Expression
}

func writeFrom(w *Writer, from []Source, joins []JoinSpec) {
	w.WriteString(" FROM ")
	for i, src := range from {
		if i > 0 {
			w.WriteString(", ")
		}
		w.Write(src)
	}
	for _, join := range joins {
		kind := join.Kind
		if kind == "" {
			kind = JoinInner
		}
		w.WriteString(" ")
		w.WriteString(string(kind))
		w.WriteString(" ")
		w.Write(join.Target)
		if !isEmpty(join.On) {
			w.WriteString(" ON ")
			w.Write(join.On)
		}
	}
}

func writeWhere(w *Writer, keyword string, preds []Predicate) {
	if cond := And(preds...); cond != nil {
		w.WriteString(keyword)
		w.Write(cond)
	}
}

// BuildSelectSQL renders spec as a parameterised SELECT statement.
func BuildSelectSQL(spec SelectSpec) (string, []any) {
	w := NewWriter()
	w.WriteString("SELECT ")
	if spec.Distinct {
		w.WriteString("DISTINCT ")
	}
	if len(spec.Columns) == 0 {
		w.WriteString("*")
	} else {
		writeSelectList(w, spec.Columns)
	}
	writeFrom(w, spec.From, spec.Joins)
	writeWhere(w, " WHERE ", spec.Predicates)

	if len(spec.GroupBy) > 0 {
		w.WriteString(" GROUP BY ")
		w.WriteList(spec.GroupBy, ", ")
	}
	writeWhere(w, " HAVING ", spec.Having)

	if len(spec.Orders) > 0 {
		w.WriteString(" ORDER BY ")
		for i, order := range spec.Orders {
			if i > 0 {
				w.WriteString(", ")
			}
			w.Write(order)
		}
	}

	if spec.Limit > 0 {
		w.WriteString(" LIMIT ")
		w.Bind(spec.Limit)
	}
	if spec.Offset > 0 {
		w.WriteString(" OFFSET ")
		w.Bind(spec.Offset)
	}
	return w.String(), w.Args()
}

// BuildAggregateSQL renders spec as a parameterised single-value SELECT.
func BuildAggregateSQL(spec AggregateSpec) (string, []any) {
	w := NewWriter()
	w.WriteString("SELECT ")
	if spec.Aggregate == nil {
		w.WriteString("COUNT(*)")
	} else {
		w.Write(spec.Aggregate)
	}
	writeFrom(w, spec.From, spec.Joins)
	writeWhere(w, " WHERE ", spec.Predicates)
	return w.String(), w.Args()
}

func (spec AggregateSpec) Validate() error {
	if len(spec.From) == 0 {
		return fmt.Errorf("runtime: aggregate requires a FROM source")
	}
	return nil
}

// Results is a page of items plus the total number of matching rows.
type Results[T any] struct {
	Total  int64
	Limit  int
	Offset int
	Items  []T
}

// Query is a typed select query. Builder methods mutate and return the query.
type Query[T any] struct {
	exec Executor
	proj Projection[T]
	spec SelectSpec
}

// Select starts a query projecting each row through proj.
func Select[T any](exec Executor, proj Projection[T]) *Query[T] {
	return &Query[T]{
		exec: exec,
		proj: proj,
		spec: SelectSpec{Columns: proj.Expressions()},
	}
}

// EntityPath is a source that projects its own rows, such as a generated Q type.
type EntityPath[T any] interface {
	Source
	Projection[T]
}

// SelectFrom selects entity rows from entity.
func SelectFrom[T any](exec Executor, entity EntityPath[T]) *Query[T] {
	return Select[T](exec, entity).From(entity)
}

// SelectTuple selects several expressions into tuples.
func SelectTuple(exec Executor, exprs ...Selectable) *Query[Tuple] {
	return Select[Tuple](exec, TupleOf(exprs...))
}

// From adds FROM sources.
func (q *Query[T]) From(sources ...Source) *Query[T] {
	q.spec.From = append(q.spec.From, sources...)
	return q
}

// Join adds an inner join.
func (q *Query[T]) Join(target Source, on ...Predicate) *Query[T] {
	q.spec.Joins = append(q.spec.Joins, JoinSpec{Kind: JoinInner, Target: target, On: And(on...)})
	return q
}

// LeftJoin adds a left outer join.
func (q *Query[T]) LeftJoin(target Source, on ...Predicate) *Query[T] {
	q.spec.Joins = append(q.spec.Joins, JoinSpec{Kind: JoinLeft, Target: target, On: And(on...)})
	return q
}

// Where adds predicates combined with AND. Nil predicates are skipped.
func (q *Query[T]) Where(preds ...Predicate) *Query[T] {
	for _, p := range preds {
		if !isEmpty(p) {
			q.spec.Predicates = append(q.spec.Predicates, p)
		}
	}
	return q
}

// GroupBy adds grouping expressions.
func (q *Query[T]) GroupBy(exprs ...Expression) *Query[T] {
	q.spec.GroupBy = append(q.spec.GroupBy, exprs...)
	return q
}

// Having adds group predicates. Nil predicates are skipped.
func (q *Query[T]) Having(preds ...Predicate) *Query[T] {
	for _, p := range preds {
		if !isEmpty(p) {
			q.spec.Having = append(q.spec.Having, p)
		}
	}
	return q
}

// OrderBy appends ORDER BY items.
func (q *Query[T]) OrderBy(orders ...OrderSpecifier) *Query[T] {
	q.spec.Orders = append(q.spec.Orders, orders...)
	return q
}

// Limit caps the number of rows. Zero removes the cap.
func (q *Query[T]) Limit(n int) *Query[T] {
	q.spec.Limit = n
	return q
}

// Offset skips n rows.
func (q *Query[T]) Offset(n int) *Query[T] {
	q.spec.Offset = n
	return q
}

// Distinct removes duplicate rows.
func (q *Query[T]) Distinct() *Query[T] {
	q.spec.Distinct = true
	return q
}

// Clone returns an independent copy of the query.
func (q *Query[T]) Clone() *Query[T] {
	c := *q
	c.spec.Columns = append([]Selectable(nil), q.spec.Columns...)
	c.spec.From = append([]Source(nil), q.spec.From...)
	c.spec.Joins = append([]JoinSpec(nil), q.spec.Joins...)
	c.spec.Predicates = append([]Predicate(nil), q.spec.Predicates...)
	c.spec.GroupBy = append([]Expression(nil), q.spec.GroupBy...)
	c.spec.Having = append([]Predicate(nil), q.spec.Having...)
	c.spec.Orders = append([]OrderSpecifier(nil), q.spec.Orders...)
	return &c
}

// Spec returns the compiled query.
func (q *Query[T]) Spec() SelectSpec { return q.spec }

// SQL renders the select statement.
func (q *Query[T]) SQL() (string, []any) { return BuildSelectSQL(q.spec) }

// CountSQL renders the statement FetchCount executes. Grouped, distinct or
// HAVING-filtered queries are counted through a subquery.
func (q *Query[T]) CountSQL() (string, []any) {
	if q.spec.Distinct || len(q.spec.GroupBy) > 0 || len(q.spec.Having) > 0 {
		inner := q.spec
		inner.Orders, inner.Limit, inner.Offset = nil, 0, 0
		sql, args := BuildSelectSQL(inner)
		return "SELECT COUNT(*) FROM (" + sql + ") AS counted", args
	}
	return BuildAggregateSQL(AggregateSpec{
		From:       q.spec.From,
		Joins:      q.spec.Joins,
		Predicates: q.spec.Predicates,
	})
}

func (q *Query[T]) table() string {
	if len(q.spec.From) == 0 {
		return ""
	}
	return q.spec.From[0].TableName()
}

func (q *Query[T]) validate() error {
	if q.exec == nil {
		return fmt.Errorf("runtime: query has no executor")
	}
	if len(q.spec.From) == 0 {
		return fmt.Errorf("runtime: query has no FROM source")
	}
	return nil
}

func (q *Query[T]) scan(ctx context.Context, rows pgx.Rows) (T, error) {
	var zero T
	targets := make([]any, len(q.spec.Columns))
	for i, col := range q.spec.Columns {
		targets[i] = col.ScanTarget()
	}
	if err := rows.Scan(targets...); err != nil {
		return zero, err
	}
	values := make([]any, len(targets))
	for i, col := range q.spec.Columns {
		values[i] = col.ScanValue(targets[i])
	}
	item, err := q.proj.Build(ctx, values)
	if err != nil {
		return zero, err
	}
	return attachEntity(ctx, q.exec, q.proj, item)
}

func (q *Query[T]) rows(ctx context.Context) (pgx.Rows, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	sql, args := q.SQL()
	return q.exec.Query(ctx, OperationSelect, q.table(), sql, args...)
}

// Fetch returns every matching row.
func (q *Query[T]) Fetch(ctx context.Context) ([]T, error) {
	rows, err := q.rows(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := q.scan(ctx, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchOne returns the single matching row. It fails with ErrNotFound when
// nothing matches and ErrNonUniqueResult when more than one row does.
func (q *Query[T]) FetchOne(ctx context.Context) (T, error) {
	var zero T
	limited := q
	if q.spec.Limit == 0 || q.spec.Limit > 2 {
		limited = q.Clone().Limit(2)
	}
	items, err := limited.Fetch(ctx)
	if err != nil {
		return zero, err
	}
	switch len(items) {
	case 0:
		return zero, ErrNotFound
	case 1:
		return items[0], nil
	default:
		return zero, ErrNonUniqueResult
	}
}

// FetchFirst returns the first matching row or ErrNotFound.
func (q *Query[T]) FetchFirst(ctx context.Context) (T, error) {
	var zero T
	items, err := q.Clone().Limit(1).Fetch(ctx)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrNotFound
	}
	return items[0], nil
}

// FetchCount counts matching rows, ignoring ordering and paging.
func (q *Query[T]) FetchCount(ctx context.Context) (int64, error) {
	if err := q.validate(); err != nil {
		return 0, err
	}
	sql, args := q.CountSQL()
	var total int64
	if err := q.exec.QueryRow(ctx, OperationAggregate, q.table(), sql, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// FetchResults returns the current page together with the total row count.
// The page query is skipped when the count is zero.
func (q *Query[T]) FetchResults(ctx context.Context) (Results[T], error) {
	res := Results[T]{Limit: q.spec.Limit, Offset: q.spec.Offset}
	total, err := q.FetchCount(ctx)
	if err != nil {
		return res, err
	}
	res.Total = total
	if total == 0 {
		return res, nil
	}
	items, err := q.Fetch(ctx)
	if err != nil {
		return res, err
	}
	res.Items = items
	return res, nil
}

// Stream iterates rows one at a time. Callers must Close the stream.
func (q *Query[T]) Stream(ctx context.Context) (*Stream[T], error) {
	rows, err := q.rows(ctx)
	if err != nil {
		return nil, err
	}
	return NewStream(rows, func(r pgx.Rows) (T, error) { return q.scan(ctx, r) }), nil
}

// String renders the query for debugging, with arguments inlined as comments.
func (q *Query[T]) String() string {
	sql, args := q.SQL()
	for i, arg := range args {
		sql += " /* $" + strconv.Itoa(i+1) + "=" + fmt.Sprint(arg) + " */"
	}
	return sql
}
