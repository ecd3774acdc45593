package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPointTableCoversEveryKind(t *testing.T) {
	table := DefaultPointTable()
	for _, kind := range Kinds() {
		if kind == KindAdminAdjustment {
			require.Zero(t, table.PointsFor(kind))
			continue
		}
		require.NotZero(t, table.PointsFor(kind), "kind %s has no points", kind)
	}
	require.Equal(t, 25, table.PointsFor(KindProjectCompleted))
	require.Equal(t, -15, table.PointsFor(KindNegativeReviewReceived))
	require.Zero(t, table.PointsFor("project_viewed"))
}

func TestParsePointTableOverrides(t *testing.T) {
	table, err := ParsePointTable([]byte("version: 2025-02\npoints:\n  project_completed: 30\n  deadline_missed: -12\n"))
	require.NoError(t, err)
	require.Equal(t, "2025-02", table.Version)
	require.Equal(t, 30, table.PointsFor(KindProjectCompleted))
	require.Equal(t, -12, table.PointsFor(KindDeadlineMissed))
	require.Equal(t, 8, table.PointsFor(KindTaskCompleted))

	require.Equal(t, 25, DefaultPointTable().PointsFor(KindProjectCompleted), "defaults must not change")
}

func TestParsePointTableRejectsUnknownKind(t *testing.T) {
	_, err := ParsePointTable([]byte("points:\n  file_uploaded: 2\n"))
	require.Error(t, err)
}

func TestLoadPointTableFromFile(t *testing.T) {
	table, err := LoadPointTable("")
	require.NoError(t, err)
	require.Equal(t, DefaultPointTableVersion, table.Version)

	path := filepath.Join(t.TempDir(), "points.yaml")
	require.NoError(t, os.WriteFile(path, []byte("points:\n  task_completed: 9\n"), 0o600))
	table, err = LoadPointTable(path)
	require.NoError(t, err)
	require.Equal(t, 9, table.PointsFor(KindTaskCompleted))
	require.Equal(t, DefaultPointTableVersion+"+custom", table.Version)

	require.NoError(t, os.WriteFile(path, []byte("version: 2025-03\npoints: {}\n"), 0o600))
	table, err = LoadPointTable(path)
	require.NoError(t, err)
	require.Equal(t, "2025-03", table.Version)

	_, err = LoadPointTable(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
