package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ClipRecord is one row of the clips index table (spec §3's Clip,
// indexed for the GUI tree view and the SQL debug console).
type ClipRecord struct {
	ClipID        string
	StartEpochUs  int64
	EndEpochUs    int64
	TriggerCount  int
	FrameCount    int
	Status        string
	CreatedAtUnix int64
}

// InsertClip records a newly persisted clip.
func (db *DB) InsertClip(c ClipRecord) error {
	if c.CreatedAtUnix == 0 {
		c.CreatedAtUnix = time.Now().Unix()
	}
	_, err := db.Exec(`
		INSERT INTO clips (clip_id, start_epoch_us, end_epoch_us, trigger_count, frame_count, status, created_at_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ClipID, c.StartEpochUs, c.EndEpochUs, c.TriggerCount, c.FrameCount, c.Status, c.CreatedAtUnix)
	if err != nil {
		return fmt.Errorf("store: insert clip %s: %w", c.ClipID, err)
	}
	return nil
}

// RecentClips returns the most recently created clips, newest first.
func (db *DB) RecentClips(limit int) ([]ClipRecord, error) {
	rows, err := db.Query(`
		SELECT clip_id, start_epoch_us, end_epoch_us, trigger_count, frame_count, status, created_at_unix
		FROM clips ORDER BY created_at_unix DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query recent clips: %w", err)
	}
	defer rows.Close()

	var out []ClipRecord
	for rows.Next() {
		var c ClipRecord
		if err := rows.Scan(&c.ClipID, &c.StartEpochUs, &c.EndEpochUs, &c.TriggerCount, &c.FrameCount, &c.Status, &c.CreatedAtUnix); err != nil {
			return nil, fmt.Errorf("store: scan clip row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CalibrationRunRecord is one row of the calibration_runs index table,
// one per CalibrationEngine.Run invocation (spec §4.5).
type CalibrationRunRecord struct {
	RunID           int64
	StartedAtUnix   int64
	FinishedAtUnix  sql.NullInt64
	FrameCount      int
	CameraModel     string
	Converged       bool
	ChiSquare       sql.NullFloat64
	ReadnoiseADU    sql.NullFloat64
	CrossMatchCount int
	Error           sql.NullString
}

// InsertCalibrationRun records the outcome of one calibration run and
// returns the assigned run_id.
func (db *DB) InsertCalibrationRun(r CalibrationRunRecord) (int64, error) {
	converged := 0
	if r.Converged {
		converged = 1
	}
	res, err := db.Exec(`
		INSERT INTO calibration_runs
			(started_at_unix, finished_at_unix, frame_count, camera_model, converged, chi_square, readnoise_adu, cross_match_count, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAtUnix, r.FinishedAtUnix, r.FrameCount, r.CameraModel, converged, r.ChiSquare, r.ReadnoiseADU, r.CrossMatchCount, r.Error)
	if err != nil {
		return 0, fmt.Errorf("store: insert calibration run: %w", err)
	}
	return res.LastInsertId()
}

// RecentCalibrationRuns returns the most recent calibration runs, newest first.
func (db *DB) RecentCalibrationRuns(limit int) ([]CalibrationRunRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, started_at_unix, finished_at_unix, frame_count, camera_model, converged, chi_square, readnoise_adu, cross_match_count, error
		FROM calibration_runs ORDER BY started_at_unix DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query recent calibration runs: %w", err)
	}
	defer rows.Close()

	var out []CalibrationRunRecord
	for rows.Next() {
		var r CalibrationRunRecord
		var converged int
		if err := rows.Scan(&r.RunID, &r.StartedAtUnix, &r.FinishedAtUnix, &r.FrameCount, &r.CameraModel,
			&converged, &r.ChiSquare, &r.ReadnoiseADU, &r.CrossMatchCount, &r.Error); err != nil {
			return nil, fmt.Errorf("store: scan calibration run row: %w", err)
		}
		r.Converged = converged != 0
		out = append(out, r)
	}
	return out, rows.Err()
}
