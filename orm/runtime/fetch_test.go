package runtime

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
)

type mockExecutor struct {
	conn pgxmock.PgxConnIface
}

func (m mockExecutor) Query(ctx context.Context, _ QueryOperation, _ string, sql string, args ...any) (pgx.Rows, error) {
	return m.conn.Query(ctx, sql, args...)
}

func (m mockExecutor) QueryRow(ctx context.Context, _ QueryOperation, _ string, sql string, args ...any) pgx.Row {
	return m.conn.QueryRow(ctx, sql, args...)
}

func (m mockExecutor) Exec(ctx context.Context, _ QueryOperation, _ string, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.conn.Exec(ctx, sql, args...)
}

func newMockExecutor(t *testing.T) (mockExecutor, pgxmock.PgxConnIface) {
	t.Helper()
	mock, err := pgxmock.NewConn(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	})
	return mockExecutor{conn: mock}, mock
}

func TestFetch(t *testing.T) {
	exec, mock := newMockExecutor(t)
	mock.ExpectQuery("SELECT p.name, p.age FROM people AS p WHERE p.age > $1").
		WithArgs(15).
		WillReturnRows(mock.NewRows([]string{"name", "age"}).
			AddRow(strPtr("member2"), 20).
			AddRow(nil, 30))

	tuples, err := SelectTuple(exec, peopleName, peopleAge).From(people).Where(peopleAge.Gt(15)).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(tuples) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tuples))
	}
	if name := peopleName.Get(tuples[0]); name == nil || *name != "member2" {
		t.Fatalf("unexpected first name %v", name)
	}
	if name := peopleName.Get(tuples[1]); name != nil {
		t.Fatalf("expected NULL name, got %v", *name)
	}
	if age := peopleAge.Get(tuples[1]); age != 30 {
		t.Fatalf("unexpected age %d", age)
	}
}

func TestFetchOne(t *testing.T) {
	exec, mock := newMockExecutor(t)
	query := "SELECT p.age FROM people AS p WHERE p.name = $1 LIMIT $2"

	mock.ExpectQuery(query).WithArgs("member1", 2).
		WillReturnRows(mock.NewRows([]string{"age"}).AddRow(10))
	age, err := Select[int](exec, peopleAge).From(people).Where(peopleName.Eq("member1")).FetchOne(context.Background())
	if err != nil || age != 10 {
		t.Fatalf("expected age 10, got %d err %v", age, err)
	}

	mock.ExpectQuery(query).WithArgs("nobody", 2).
		WillReturnRows(mock.NewRows([]string{"age"}))
	_, err = Select[int](exec, peopleAge).From(people).Where(peopleName.Eq("nobody")).FetchOne(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectQuery(query).WithArgs("dup", 2).
		WillReturnRows(mock.NewRows([]string{"age"}).AddRow(1).AddRow(2))
	_, err = Select[int](exec, peopleAge).From(people).Where(peopleName.Eq("dup")).FetchOne(context.Background())
	if !errors.Is(err, ErrNonUniqueResult) {
		t.Fatalf("expected ErrNonUniqueResult, got %v", err)
	}
}

func TestFetchFirst(t *testing.T) {
	exec, mock := newMockExecutor(t)
	mock.ExpectQuery("SELECT p.age FROM people AS p ORDER BY p.age ASC LIMIT $1").WithArgs(1).
		WillReturnRows(mock.NewRows([]string{"age"}).AddRow(10))

	q := Select[int](exec, peopleAge).From(people).OrderBy(peopleAge.Asc())
	age, err := q.FetchFirst(context.Background())
	if err != nil || age != 10 {
		t.Fatalf("expected first age 10, got %d err %v", age, err)
	}
	if q.Spec().Limit != 0 {
		t.Fatalf("FetchFirst must not change the original query")
	}
}

func TestFetchResultsAndCount(t *testing.T) {
	exec, mock := newMockExecutor(t)
	mock.ExpectQuery("SELECT COUNT(*) FROM people AS p").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectQuery("SELECT p.name FROM people AS p ORDER BY p.name DESC LIMIT $1 OFFSET $2").
		WithArgs(2, 1).
		WillReturnRows(mock.NewRows([]string{"name"}).AddRow(strPtr("member3")).AddRow(strPtr("member2")))

	res, err := Select[*string](exec, peopleName).From(people).OrderBy(peopleName.Desc()).Offset(1).Limit(2).FetchResults(context.Background())
	if err != nil {
		t.Fatalf("fetch results: %v", err)
	}
	if res.Total != 4 || res.Limit != 2 || res.Offset != 1 || len(res.Items) != 2 {
		t.Fatalf("unexpected results: %+v", res)
	}

	mock.ExpectQuery("SELECT COUNT(*) FROM people AS p WHERE p.age > $1").WithArgs(99).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(int64(0)))
	empty, err := Select[*string](exec, peopleName).From(people).Where(peopleAge.Gt(99)).FetchResults(context.Background())
	if err != nil || empty.Total != 0 || empty.Items != nil {
		t.Fatalf("expected empty page without a select, got %+v err %v", empty, err)
	}
}

func TestFetchRequiresFrom(t *testing.T) {
	exec, _ := newMockExecutor(t)
	if _, err := Select[int](exec, peopleAge).Fetch(context.Background()); err == nil {
		t.Fatalf("expected missing FROM error")
	}
	if _, err := Select[int](nil, peopleAge).From(people).FetchCount(context.Background()); err == nil {
		t.Fatalf("expected missing executor error")
	}
}

func TestFetchPropagatesDriverErrors(t *testing.T) {
	exec, mock := newMockExecutor(t)
	boom := fmt.Errorf("connection reset")
	mock.ExpectQuery("SELECT p.age FROM people AS p").WillReturnError(boom)

	_, err := Select[int](exec, peopleAge).From(people).Fetch(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestQueryStream(t *testing.T) {
	exec, mock := newMockExecutor(t)
	mock.ExpectQuery("SELECT p.age FROM people AS p").
		WillReturnRows(mock.NewRows([]string{"age"}).AddRow(10).AddRow(20).AddRow(30))

	stream, err := Select[int](exec, peopleAge).From(people).Stream(context.Background())
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	ages, err := stream.Collect()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(ages) != 3 || ages[2] != 30 {
		t.Fatalf("unexpected ages %v", ages)
	}
}

func TestBulkUpdateAndDelete(t *testing.T) {
	exec, mock := newMockExecutor(t)
	mock.ExpectExec("UPDATE people AS p SET name = $1 WHERE p.age < $2").
		WithArgs("guest", 28).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec("UPDATE people AS p SET age = (p.age + $1)").
		WithArgs(1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectExec("UPDATE people AS p SET age = (p.age * $1), team_id = NULL").
		WithArgs(2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))
	mock.ExpectExec("DELETE FROM people AS p WHERE p.age > $1").
		WithArgs(18).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	ctx := context.Background()
	n, err := Update(exec, people).Set(peopleName, "guest").Where(peopleAge.Lt(28)).Execute(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 rows updated, got %d err %v", n, err)
	}
	n, err = Update(exec, people).Set(peopleAge, peopleAge.Add(1)).Execute(ctx)
	if err != nil || n != 4 {
		t.Fatalf("expected 4 rows updated, got %d err %v", n, err)
	}
	n, err = Update(exec, people).Set(peopleAge, peopleAge.Multiply(2)).SetNull(peopleTeamID).Execute(ctx)
	if err != nil || n != 4 {
		t.Fatalf("expected 4 rows multiplied, got %d err %v", n, err)
	}
	n, err = Delete(exec, people).Where(peopleAge.Gt(18)).Execute(ctx)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 rows deleted, got %d err %v", n, err)
	}
}

func TestUpdateValidation(t *testing.T) {
	if _, _, err := Update(nil, people).SQL(); err == nil {
		t.Fatalf("expected error without assignments")
	}
	if _, _, err := Update(nil, people).Set(peopleAge.Add(1), 3).SQL(); err == nil {
		t.Fatalf("expected error when assigning to a computed expression")
	}
	if _, _, err := Update(nil, people).Set(squadsName, "x").SQL(); err == nil {
		t.Fatalf("expected error when assigning to another table's column")
	}
	if _, _, err := Update(nil, people).Set(peopleAge.As("years"), 1).SQL(); err == nil {
		t.Fatalf("expected error when assigning to an aliased column")
	}
	other := NewTable("people", "p2")
	if _, _, err := Update(nil, other).Set(peopleAge, 1).SQL(); err == nil {
		t.Fatalf("expected error when the column is qualified by another alias")
	}
	sql, args, err := Update(nil, other).Set(NumberPath[int](other, "age"), 1).SQL()
	if err != nil || sql != "UPDATE people AS p2 SET age = $1" || len(args) != 1 {
		t.Fatalf("unexpected SQL %q args %v err %v", sql, args, err)
	}
}

type trackingExecutor struct {
	mockExecutor
	tracked map[string]any
}

func (e *trackingExecutor) Attach(_ context.Context, key string, entity any) (any, error) {
	if existing, ok := e.tracked[key]; ok {
		return existing, nil
	}
	e.tracked[key] = entity
	return entity, nil
}

type person struct {
	ID  int64
	Age int
}

type personPath struct {
	Table
}

func (personPath) Expressions() []Selectable { return []Selectable{peopleID, peopleAge} }

func (personPath) Build(_ context.Context, values []any) (*person, error) {
	return &person{ID: values[0].(int64), Age: values[1].(int)}, nil
}

func (personPath) EntityKey(entity any) (string, bool) {
	p, ok := entity.(*person)
	if !ok || p == nil {
		return "", false
	}
	return fmt.Sprintf("person:%d", p.ID), true
}

func TestIdentityMapReturnsTrackedInstance(t *testing.T) {
	base, mock := newMockExecutor(t)
	exec := &trackingExecutor{mockExecutor: base, tracked: map[string]any{}}
	rows := func(age int) *pgxmock.Rows {
		return mock.NewRows([]string{"id", "age"}).AddRow(int64(1), age)
	}
	mock.ExpectQuery("SELECT p.id, p.age FROM people AS p").WillReturnRows(rows(10))
	mock.ExpectQuery("SELECT p.id, p.age FROM people AS p").WillReturnRows(rows(11))

	path := personPath{Table: people}
	first, err := SelectFrom[*person](exec, path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := SelectFrom[*person](exec, path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if first[0] != second[0] {
		t.Fatalf("expected the tracked instance to be reused")
	}
	if second[0].Age != 10 {
		t.Fatalf("expected tracked state to win over fresh row, got age %d", second[0].Age)
	}
}
