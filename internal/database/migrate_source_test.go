package database

import (
	"bytes"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestVersion(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
		want uint
	}{
		{
			name: "gaps and stray files",
			fsys: fstest.MapFS{
				"migrations/000003_a.up.sql":   {Data: []byte("SELECT 1;")},
				"migrations/000003_a.down.sql": {Data: []byte("SELECT 1;")},
				"migrations/000007_b.up.sql":   {Data: []byte("SELECT 1;")},
				"migrations/README.md":         {Data: []byte("notes")},
			},
			want: 7,
		},
		{
			name: "no migrations",
			fsys: fstest.MapFS{
				"migrations/README.md": {Data: []byte("notes")},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := iofs.New(tt.fsys, "migrations")
			require.NoError(t, err)

			got, err := latestVersion(src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLatestVersion_EmbeddedSchema(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)

	got, err := latestVersion(src)
	require.NoError(t, err)
	assert.Equal(t, uint(2), got, "identities and recognition_logs")
}

func TestMigrationStatus_Pending(t *testing.T) {
	assert.True(t, MigrationStatus{Version: 0, Latest: 2}.Pending())
	assert.True(t, MigrationStatus{Version: 1, Latest: 2}.Pending())
	assert.False(t, MigrationStatus{Version: 2, Latest: 2}.Pending())
}

func TestMigrateLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l := migrateLogger{logger: logger}
	l.Printf("Finished 2/u create_recognition_logs (read 1ms, ran 2ms)\n")

	assert.False(t, l.Verbose())
	assert.Contains(t, buf.String(), "Finished 2/u create_recognition_logs")
	assert.Contains(t, buf.String(), "component=migrate")
}
