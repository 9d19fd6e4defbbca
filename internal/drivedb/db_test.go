package drivedb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/omnibase/internal/messaging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "drive_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	var name string
	err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='actuations'`,
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "actuations", name)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drive_test.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening against an already-migrated database must not fail.
	db, err = Open(path)
	require.NoError(t, err)
	db.Close()
}

func TestRecordAndQueryActuations(t *testing.T) {
	db := openTestDB(t)

	err := db.RecordActuation(
		messaging.BaseActuation{XVel: 0.1, YVel: -0.2, ThetaVel: 45},
		messaging.HealthOk,
	)
	require.NoError(t, err)
	err = db.RecordActuation(messaging.BaseActuation{}, messaging.HealthCmdStale)
	require.NoError(t, err)

	records, err := db.RecentActuations(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, r := range records {
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.RecordedAt.IsZero())
	}

	// Both rows present with their health states intact.
	healths := []messaging.Health{records[0].Health, records[1].Health}
	assert.Contains(t, healths, messaging.HealthOk)
	assert.Contains(t, healths, messaging.HealthCmdStale)
}

func TestRecentActuationsLimit(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.RecordActuation(
			messaging.BaseActuation{XVel: float32(i)}, messaging.HealthOk))
	}

	records, err := db.RecentActuations(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
