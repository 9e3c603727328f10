package gen

import (
	"context"
	"fmt"

	"github.com/deicod/querystudy/orm/runtime"
)

// QMember describes the members table for the query builder.
type QMember struct {
	runtime.Table
	ID       runtime.NumberExpr[int64]
	Username runtime.StringExpr[*string]
	Age      runtime.NumberExpr[int]
	TeamID   runtime.NullableNumberExpr[int64]
}

// Members is the default members path, aliased "m".
var Members = NewQMember("m")

// NewQMember returns a members path with its own alias, for self joins and
// subqueries.
func NewQMember(alias string) *QMember {
	t := runtime.NewTable("members", alias)
	return &QMember{
		Table:    t,
		ID:       runtime.NumberPath[int64](t, "id"),
		Username: runtime.StringPath[*string](t, "username"),
		Age:      runtime.NumberPath[int](t, "age"),
		TeamID:   runtime.NullableNumberPath[int64](t, "team_id"),
	}
}

func (q *QMember) Expressions() []runtime.Selectable {
	return []runtime.Selectable{q.ID, q.Username, q.Age, q.TeamID}
}

func (q *QMember) Build(_ context.Context, values []any) (*Member, error) {
	if len(values) != 4 {
		return nil, fmt.Errorf("gen: member row has %d values, want 4", len(values))
	}
	m := &Member{}
	m.ID, _ = values[0].(int64)
	m.Username, _ = values[1].(*string)
	m.Age, _ = values[2].(int)
	m.TeamID, _ = values[3].(*int64)
	return m, nil
}

func (q *QMember) EntityKey(entity any) (string, bool) {
	m, ok := entity.(*Member)
	if !ok || m == nil || m.ID == 0 {
		return "", false
	}
	return memberKey(m.ID), true
}

// QTeam describes the teams table for the query builder.
type QTeam struct {
	runtime.Table
	ID   runtime.NumberExpr[int64]
	Name runtime.StringExpr[string]
}

// Teams is the default teams path, aliased "t".
var Teams = NewQTeam("t")

// NewQTeam returns a teams path with its own alias.
func NewQTeam(alias string) *QTeam {
	t := runtime.NewTable("teams", alias)
	return &QTeam{
		Table: t,
		ID:    runtime.NumberPath[int64](t, "id"),
		Name:  runtime.StringPath[string](t, "name"),
	}
}

func (q *QTeam) Expressions() []runtime.Selectable {
	return []runtime.Selectable{q.ID, q.Name}
}

func (q *QTeam) Build(_ context.Context, values []any) (*Team, error) {
	if len(values) != 2 {
		return nil, fmt.Errorf("gen: team row has %d values, want 2", len(values))
	}
	t := &Team{}
	t.ID, _ = values[0].(int64)
	t.Name, _ = values[1].(string)
	return t, nil
}

func (q *QTeam) EntityKey(entity any) (string, bool) {
	t, ok := entity.(*Team)
	if !ok || t == nil || t.ID == 0 {
		return "", false
	}
	return teamKey(t.ID), true
}

// QMemberDto projects username and age through NewMemberDto.
func QMemberDto(username runtime.StringExpr[*string], age runtime.NumberExpr[int]) runtime.Projection[MemberDto] {
	return runtime.Constructor2[*string, int, MemberDto](username, age, NewMemberDto)
}

func memberKey(id int64) string { return fmt.Sprintf("members:%d", id) }

func teamKey(id int64) string { return fmt.Sprintf("teams:%d", id) }
