package orm

import (
	"testing"

	"github.com/deicod/querystudy/orm/gen"
	"github.com/deicod/querystudy/orm/runtime"
)

func BenchmarkRenderSortedPage(b *testing.B) {
	m := gen.Members
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		q := runtime.SelectFrom[*gen.Member](nil, m).
			Where(m.Age.Goe(10), m.Username.IsNotNull()).
			OrderBy(m.Age.Desc(), m.Username.Asc().NullsLast()).
			Offset(1).Limit(2)
		if sql, _ := q.SQL(); sql == "" {
			b.Fatal("empty SQL")
		}
	}
}

func BenchmarkRenderJoinedTuple(b *testing.B) {
	m, t := gen.Members, gen.Teams
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		q := runtime.SelectTuple(nil, t.Name, m.Age.Avg()).
			From(m).Join(t, m.TeamID.EqExpr(t.ID)).
			GroupBy(t.Name)
		if sql, _ := q.SQL(); sql == "" {
			b.Fatal("empty SQL")
		}
	}
}

func BenchmarkRenderTemplate(b *testing.B) {
	m := gen.Members
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		expr := runtime.StringTemplate("function('replace', {0}, {1}, {2})", m.Username, "member", "M")
		if sql, _ := runtime.Render(expr); sql == "" {
			b.Fatal("empty SQL")
		}
	}
}

func BenchmarkBuildBulkInsertSQL(b *testing.B) {
	rows := [][]any{{"member1", 10, int64(1)}, {"member2", 20, int64(1)}, {"member3", 30, int64(2)}}
	spec := runtime.BulkInsertSpec{Table: "members", Columns: []string{"username", "age", "team_id"}, Returning: []string{"id"}, Rows: rows}
	for i := 0; i < b.N; i++ {
		if _, _, err := runtime.BuildBulkInsertSQL(spec); err != nil {
			b.Fatalf("build bulk insert: %v", err)
		}
	}
}

func BenchmarkBuildBulkDeleteSQL(b *testing.B) {
	spec := runtime.BulkDeleteSpec{Table: "members", PrimaryColumn: "id", IDs: []any{int64(1), int64(2), int64(3), int64(4)}}
	for i := 0; i < b.N; i++ {
		if _, _, err := runtime.BuildBulkDeleteSQL(spec); err != nil {
			b.Fatalf("build bulk delete: %v", err)
		}
	}
}
