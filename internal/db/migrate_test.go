package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverMigrations_SortsAndChecksums(t *testing.T) {
	fsys := fstest.MapFS{
		"002_settlements.sql": {Data: []byte("CREATE TABLE b ();")},
		"001_init.sql":        {Data: []byte("CREATE TABLE a ();")},
		"README.md":           {Data: []byte("ignored")},
	}

	migrations, err := DiscoverMigrations(fsys)

	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "001_init.sql", migrations[0].Filename)
	assert.Equal(t, "CREATE TABLE a ();", migrations[0].SQL)
	assert.Len(t, migrations[0].Checksum, 64)
	assert.Equal(t, "002", migrations[1].Version)
	assert.NotEqual(t, migrations[0].Checksum, migrations[1].Checksum)
}

func TestDiscoverMigrations_RejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_init.sql":  {Data: []byte("SELECT 1;")},
		"001_again.sql": {Data: []byte("SELECT 2;")},
	}
	_, err := DiscoverMigrations(fsys)
	assert.ErrorContains(t, err, "duplicate migration version 001")
}

func TestDiscoverMigrations_RejectsBadName(t *testing.T) {
	_, err := DiscoverMigrations(fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}})
	assert.ErrorContains(t, err, "invalid migration filename")
}
