package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asteria.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDBInitializesFreshSchema(t *testing.T) {
	db := openTestDB(t)

	var tableCount int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('clips', 'calibration_runs')`).Scan(&tableCount)
	require.NoError(t, err)
	require.Equal(t, 2, tableCount)
}

func TestInsertAndQueryClips(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.InsertClip(ClipRecord{
		ClipID: "2026-07-30T12:00:00Z", StartEpochUs: 1000, EndEpochUs: 2000,
		TriggerCount: 1, FrameCount: 7, Status: "persisted", CreatedAtUnix: 1,
	}))
	require.NoError(t, db.InsertClip(ClipRecord{
		ClipID: "2026-07-30T12:05:00Z", StartEpochUs: 3000, EndEpochUs: 4000,
		TriggerCount: 2, FrameCount: 9, Status: "persisted", CreatedAtUnix: 2,
	}))

	clips, err := db.RecentClips(10)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	require.Equal(t, "2026-07-30T12:05:00Z", clips[0].ClipID) // newest first
}

func TestInsertAndQueryCalibrationRuns(t *testing.T) {
	db := openTestDB(t)

	id, err := db.InsertCalibrationRun(CalibrationRunRecord{
		StartedAtUnix: 100, FrameCount: 40, CameraModel: "pinhole",
		Converged: true, CrossMatchCount: 12,
	})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	runs, err := db.RecentCalibrationRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.True(t, runs[0].Converged)
	require.Equal(t, "pinhole", runs[0].CameraModel)
}
