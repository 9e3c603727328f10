package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deicod/querystudy/orm/migrate"
)

func TestEmbeddedMigrationsDiscoverable(t *testing.T) {
	found, err := migrate.Discover(context.Background(), FS, ".")
	require.NoError(t, err)
	require.Len(t, found, 2)
	require.Equal(t, "0001", found[0].Version)
	require.Equal(t, migrate.Up, found[0].Direction)
	require.Equal(t, migrate.Down, found[1].Direction)
}
