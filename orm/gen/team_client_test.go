package gen_test

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/deicod/querystudy/orm/gen"
	"github.com/deicod/querystudy/orm/runtime"
	testkit "github.com/deicod/querystudy/testing"
)

func TestTeamCreateSyncsPendingMembers(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	ctx := sandbox.Context()
	client := sandbox.ORM(t)
	mock := sandbox.Mock()

	team := gen.NewTeam("teamA")
	member := gen.NewMember("member1", 10, team)

	mock.ExpectQuery("INSERT INTO teams (name) VALUES ($1) RETURNING id").
		WithArgs("teamA").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(3)))
	_, err := client.Teams().Create(ctx, team)
	require.NoError(t, err)
	require.Equal(t, int64(3), *member.TeamID)

	found, err := client.Teams().ByID(ctx, 3)
	require.NoError(t, err)
	require.Same(t, team, found)

	mock.ExpectExec("DELETE FROM teams WHERE id = $1").
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, client.Teams().Delete(ctx, 3))
	sandbox.ExpectationsWereMet(t)
}

func TestLoadEdges(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	ctx := sandbox.Context()
	client := sandbox.ORM(t)
	mock := sandbox.Mock()
	fixture := testkit.FixtureMembers()

	mock.ExpectQuery(testkit.MemberSelect).
		WillReturnRows(sandbox.MemberRows(fixture...))
	members, err := client.Members().Query().Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, members, 4)

	mock.ExpectQuery(testkit.TeamSelect+" WHERE t.id IN ($1, $2)").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(mock.NewRows(testkit.TeamColumns).AddRow(int64(1), "teamA").AddRow(int64(2), "teamB"))
	require.NoError(t, client.Members().LoadTeam(ctx, members...))
	require.Equal(t, "teamA", members[0].Edges.Team.Name)
	require.Same(t, members[0].Edges.Team, members[1].Edges.Team)
	require.Equal(t, "teamB", members[3].Edges.Team.Name)

	teamA := members[0].Edges.Team
	mock.ExpectQuery(testkit.MemberSelect + " WHERE m.team_id IN ($1) ORDER BY m.id ASC").
		WithArgs(int64(1)).
		WillReturnRows(sandbox.MemberRows(fixture[:2]...))
	require.NoError(t, client.Teams().LoadMembers(ctx, teamA))
	require.Len(t, teamA.Edges.Members, 2)
	require.Same(t, members[0], teamA.Edges.Members[0], "loaded members resolve through the identity map")
	sandbox.ExpectationsWereMet(t)
}

func TestClearDetachesTrackedEntities(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	ctx := sandbox.Context()
	client := sandbox.ORM(t)
	mock := sandbox.Mock()
	fixture := testkit.FixtureMembers()

	byID := testkit.MemberSelect + " WHERE m.id = $1 LIMIT $2"
	mock.ExpectQuery(byID).WithArgs(int64(1), 2).WillReturnRows(sandbox.MemberRows(fixture[0]))
	first, err := client.Members().ByID(ctx, 1)
	require.NoError(t, err)

	again, err := client.Members().ByID(ctx, 1)
	require.NoError(t, err)
	require.Same(t, first, again)

	require.NoError(t, client.Clear(ctx))
	mock.ExpectQuery(byID).WithArgs(int64(1), 2).WillReturnRows(sandbox.MemberRows(fixture[0]))
	reloaded, err := client.Members().ByID(ctx, 1)
	require.NoError(t, err)
	require.NotSame(t, first, reloaded)
	sandbox.ExpectationsWereMet(t)
}

func TestClientInTx(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	ctx := sandbox.Context()
	client := sandbox.ORM(t)
	mock := sandbox.Mock()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO teams (name) VALUES ($1) RETURNING id").
		WithArgs("teamC").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	err := client.InTx(ctx, func(tx *gen.Client) error {
		require.NotSame(t, client, tx)
		_, err := tx.Teams().Create(ctx, gen.NewTeam("teamC"))
		return err
	})
	require.NoError(t, err)

	require.Error(t, gen.NewClient(runtimeOnly{}).InTx(ctx, func(*gen.Client) error { return nil }))
	sandbox.ExpectationsWereMet(t)
}

// runtimeOnly is an executor without transaction support.
type runtimeOnly struct{ runtime.Executor }

func TestIdentityMapSizeEvicts(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	ctx := sandbox.Context()
	client := gen.NewClient(sandbox.DB(), gen.WithIdentityMapSize(1))
	mock := sandbox.Mock()
	fixture := testkit.FixtureMembers()

	byID := testkit.MemberSelect + " WHERE m.id = $1 LIMIT $2"
	mock.ExpectQuery(byID).WithArgs(int64(1), 2).WillReturnRows(sandbox.MemberRows(fixture[0]))
	mock.ExpectQuery(byID).WithArgs(int64(2), 2).WillReturnRows(sandbox.MemberRows(fixture[1]))
	mock.ExpectQuery(byID).WithArgs(int64(1), 2).WillReturnRows(sandbox.MemberRows(fixture[0]))

	first, err := client.Members().ByID(ctx, 1)
	require.NoError(t, err)
	_, err = client.Members().ByID(ctx, 2)
	require.NoError(t, err)
	again, err := client.Members().ByID(ctx, 1)
	require.NoError(t, err)
	require.NotSame(t, first, again, "member 1 was evicted by member 2")
	sandbox.ExpectationsWereMet(t)
}

func TestIdentityMapSizeRejectsNonPositive(t *testing.T) {
	require.Panics(t, func() { gen.WithIdentityMapSize(0) })
	require.Panics(t, func() { gen.WithIdentityMapSize(-3) })
}

func TestTxClientKeepsIdentityMapBound(t *testing.T) {
	sandbox := testkit.NewPostgresSandbox(t)
	ctx := sandbox.Context()
	client := gen.NewClient(sandbox.DB(), gen.WithIdentityMapSize(1))
	mock := sandbox.Mock()
	fixture := testkit.FixtureMembers()

	byID := testkit.MemberSelect + " WHERE m.id = $1 LIMIT $2"
	mock.ExpectBegin()
	mock.ExpectQuery(byID).WithArgs(int64(1), 2).WillReturnRows(sandbox.MemberRows(fixture[0]))
	mock.ExpectQuery(byID).WithArgs(int64(2), 2).WillReturnRows(sandbox.MemberRows(fixture[1]))
	mock.ExpectQuery(byID).WithArgs(int64(1), 2).WillReturnRows(sandbox.MemberRows(fixture[0]))
	mock.ExpectCommit()

	err := client.InTx(ctx, func(tx *gen.Client) error {
		first, err := tx.Members().ByID(ctx, 1)
		if err != nil {
			return err
		}
		if _, err := tx.Members().ByID(ctx, 2); err != nil {
			return err
		}
		again, err := tx.Members().ByID(ctx, 1)
		if err != nil {
			return err
		}
		require.NotSame(t, first, again, "the transaction client evicts like its parent")
		return nil
	})
	require.NoError(t, err)
	sandbox.ExpectationsWereMet(t)
}
