package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{
		Path:         filepath.Join(t.TempDir(), "nested", "test.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_second.sql": {Data: []byte("SELECT 2;")},
		"m/001_first.sql":  {Data: []byte("SELECT 1;")},
		"m/readme.txt":     {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestLoadMigrations_RejectsDuplicates(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1;")},
		"m/001_b.sql": {Data: []byte("SELECT 1;")},
	}

	_, err := LoadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestMigrator_RunEmbedded(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db, zap.NewNop())

	require.NoError(t, m.RunEmbedded())
	// Second run is a no-op
	require.NoError(t, m.RunEmbedded())

	var roles int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM roles").Scan(&roles))
	assert.Equal(t, 4, roles)

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM roles WHERE id = 2").Scan(&name))
	assert.Equal(t, "HR Travel Admin", name)

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestMigrator_StatusConstraint(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).RunEmbedded())

	_, err := db.Exec(`INSERT INTO users (email, password_hash, role_id) VALUES ('a@x.io', 'h', 3)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO travel_requests
		(user_id, employee_code, project_name, department_name, reason_for_travelling, type_of_booking, status)
		VALUES (1, 'EMP001', 'p', 'd', 'r', 'Flight', 'pending')`)
	assert.Error(t, err, "lowercase status must be rejected")
}

func TestConfig_DSN(t *testing.T) {
	dsn := Config{Path: "data/app.db"}.DSN()
	assert.Contains(t, dsn, "file:data/app.db?")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_foreign_keys=on")
}
