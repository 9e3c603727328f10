package testkit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSandboxSmoke(t *testing.T) {
	sandbox := NewPostgresSandbox(t)
	require.NotNil(t, sandbox)
	require.NotNil(t, sandbox.ORM(t))
	require.Same(t, sandbox.ORM(t), sandbox.ORM(t))
	sandbox.ExpectationsWereMet(t)
}

func TestSeed(t *testing.T) {
	sandbox := NewPostgresSandbox(t)
	client := sandbox.ORM(t)
	sandbox.ExpectSeed()

	fx, err := Seed(sandbox.Context(), client)
	require.NoError(t, err)
	require.Equal(t, int64(1), fx.TeamA.ID)
	require.Equal(t, int64(2), fx.TeamB.ID)
	require.Len(t, fx.Members, 4)
	require.Len(t, fx.TeamA.Edges.Members, 2)
	require.Equal(t, int64(2), *fx.Members[3].TeamID)
	sandbox.ExpectationsWereMet(t)

	sandbox.Mock().ExpectQuery(MemberSelect+" WHERE m.id = $1 LIMIT $2").WithArgs(int64(1), 2).
		WillReturnRows(sandbox.MemberRows(FixtureMembers()[0]))
	found, err := client.Members().ByID(sandbox.Context(), 1)
	require.NoError(t, err)
	require.NotSame(t, fx.Members[0], found, "seed clears the identity map")
	require.Equal(t, "member1", *found.Username)

	sandbox.ExpectationsWereMet(t)
}
