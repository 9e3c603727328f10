package testkit

import (
	"context"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/deicod/querystudy/internal/seed"
	"github.com/deicod/querystudy/orm/gen"
)

// Column lists in the order the default Members and Teams paths select them.
var (
	MemberColumns = []string{"id", "username", "age", "team_id"}
	TeamColumns   = []string{"id", "name"}
)

const (
	// MemberSelect is the column list and source rendered for gen.Members.
	MemberSelect = "SELECT m.id, m.username, m.age, m.team_id FROM members AS m"
	// TeamSelect is the column list and source rendered for gen.Teams.
	TeamSelect = "SELECT t.id, t.name FROM teams AS t"

	teamInsert   = "INSERT INTO teams (name) VALUES ($1) RETURNING id"
	memberInsert = "INSERT INTO members (username, age, team_id) VALUES ($1, $2, $3) RETURNING id"
)

// Fixture is the standard data set persisted by Seed.
type Fixture = seed.Fixture

// Str returns a pointer to s, for nullable text columns.
func Str(s string) *string { return &s }

// ID returns a pointer to id, for nullable key columns.
func ID(id int64) *int64 { return &id }

// MemberRows builds result rows for MemberSelect from members.
func (s *Sandbox) MemberRows(members ...*gen.Member) *pgxmock.Rows {
	rows := s.mock.NewRows(MemberColumns)
	for _, m := range members {
		rows.AddRow(m.ID, m.Username, m.Age, m.TeamID)
	}
	return rows
}

// FixtureMembers returns detached copies of the seeded members with their
// database ids, handy as MemberRows input.
func FixtureMembers() []*gen.Member {
	out := make([]*gen.Member, len(seed.Members))
	for i, row := range seed.Members {
		out[i] = &gen.Member{ID: int64(i + 1), Username: Str(row.Username), Age: row.Age, TeamID: ID(int64(row.Team + 1))}
	}
	return out
}

// ExpectSeed registers the inserts Seed issues. Teams get ids 1 and 2 and
// members 1 through 4.
func (s *Sandbox) ExpectSeed() {
	for i, name := range seed.Teams {
		s.mock.ExpectQuery(teamInsert).WithArgs(name).
			WillReturnRows(s.mock.NewRows([]string{"id"}).AddRow(int64(i + 1)))
	}
	for i, row := range seed.Members {
		s.mock.ExpectQuery(memberInsert).WithArgs(Str(row.Username), row.Age, ID(int64(row.Team+1))).
			WillReturnRows(s.mock.NewRows([]string{"id"}).AddRow(int64(i + 1)))
	}
}

// Seed persists the standard fixture through client and clears its identity
// map.
func Seed(ctx context.Context, client *gen.Client) (*Fixture, error) {
	return seed.Run(ctx, client)
}
