// Package seed holds the standard study data set: two teams with two members
// each.
package seed

import (
	"context"
	"fmt"

	"github.com/deicod/querystudy/orm/gen"
)

// Fixture is the persisted data set: teamA with member1 and member2, teamB
// with member3 and member4.
type Fixture struct {
	TeamA   *gen.Team
	TeamB   *gen.Team
	Members []*gen.Member
}

// Row describes one seeded member. Team is 0 for teamA and 1 for teamB.
type Row struct {
	Username string
	Age      int
	Team     int
}

// Teams lists the team names in insertion order.
var Teams = []string{"teamA", "teamB"}

// Members lists the seeded members in insertion order.
var Members = []Row{
	{"member1", 10, 0},
	{"member2", 20, 0},
	{"member3", 30, 1},
	{"member4", 40, 1},
}

// Run persists the data set through client and clears its identity map, so
// later reads hit the database.
func Run(ctx context.Context, client *gen.Client) (*Fixture, error) {
	teams := make([]*gen.Team, len(Teams))
	for i, name := range Teams {
		teams[i] = gen.NewTeam(name)
		if _, err := client.Teams().Create(ctx, teams[i]); err != nil {
			return nil, fmt.Errorf("seed %s: %w", name, err)
		}
	}
	fx := &Fixture{TeamA: teams[0], TeamB: teams[1]}
	for _, row := range Members {
		m := gen.NewMember(row.Username, row.Age, teams[row.Team])
		if _, err := client.Members().Create(ctx, m); err != nil {
			return nil, fmt.Errorf("seed %s: %w", row.Username, err)
		}
		fx.Members = append(fx.Members, m)
	}
	if err := client.Clear(ctx); err != nil {
		return nil, err
	}
	return fx, nil
}
