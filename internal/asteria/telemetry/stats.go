// Package telemetry tracks station-wide operational counters (frame rate,
// drops, clip/fit outcomes) and exposes them via a JSON /health endpoint and
// a go-echarts live dashboard, grounded on
// internal/lidar/monitor/stats.go's PacketStats/StatsSnapshot pattern.
package telemetry

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of Stats for JSON/chart consumers.
type Snapshot struct {
	FPS            float64   `json:"fps"`
	TotalFrames    int64     `json:"total_frames"`
	DroppedFrames  int64     `json:"dropped_frames"`
	CurrentUTC     time.Time `json:"current_utc"`
	ClipsPersisted int64     `json:"clips_persisted"`
	ClipsAbandoned int64     `json:"clips_abandoned"`
	FitsAttempted  int64     `json:"fits_attempted"`
	FitsFailed     int64     `json:"fits_failed"`
}

// Stats accumulates the station's operational counters, matching §10.3's
// requirement that every error category become an observable counter.
type Stats struct {
	mu             sync.Mutex
	frameCount     int64
	droppedCount   int64
	totalFrames    int64
	lastReset      time.Time
	startTime      time.Time
	clipsPersisted int64
	clipsAbandoned int64
	fitsAttempted  int64
	fitsFailed     int64
	latestSnapshot *Snapshot
}

// NewStats returns a Stats record with counters zeroed and timers started.
func NewStats() *Stats {
	now := time.Now()
	return &Stats{lastReset: now, startTime: now}
}

// AddFrame records one successfully decoded frame.
func (s *Stats) AddFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameCount++
	s.totalFrames++
}

// AddDropped records one frame-source transient error (§10.3's
// "Frame-source transient" category).
func (s *Stats) AddDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedCount++
}

// AddClipPersisted records a clip that finished persistence successfully.
func (s *Stats) AddClipPersisted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clipsPersisted++
}

// AddClipAbandoned records a clip dropped after a persistence error
// (§10.3's "Persistence error" category).
func (s *Stats) AddClipAbandoned() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clipsAbandoned++
}

// AddFitAttempted records one CalibrationEngine.Run invocation.
func (s *Stats) AddFitAttempted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitsAttempted++
}

// AddFitFailed records an LM failure (§10.3's "LM failure" category).
func (s *Stats) AddFitFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fitsFailed++
}

// GetAndResetRate returns the frame/drop counts accumulated since the last
// call and resets them, for periodic FPS computation.
func (s *Stats) GetAndResetRate() (frames, dropped int64, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	duration = now.Sub(s.lastReset)
	frames = s.frameCount
	dropped = s.droppedCount
	s.frameCount = 0
	s.droppedCount = 0
	s.lastReset = now
	return
}

// LogDiag computes the current FPS from counters accumulated since the last
// call, stores a Snapshot for the dashboard/health endpoint, and emits one
// diag log line, matching PacketStats.LogStats's cadence.
func (s *Stats) LogDiag(diagf func(string, ...interface{})) {
	frames, dropped, duration := s.GetAndResetRate()
	fps := 0.0
	if duration.Seconds() > 0 {
		fps = float64(frames) / duration.Seconds()
	}

	s.mu.Lock()
	s.latestSnapshot = &Snapshot{
		FPS:            fps,
		TotalFrames:    s.totalFrames,
		DroppedFrames:  dropped,
		CurrentUTC:     time.Now().UTC(),
		ClipsPersisted: s.clipsPersisted,
		ClipsAbandoned: s.clipsAbandoned,
		FitsAttempted:  s.fitsAttempted,
		FitsFailed:     s.fitsFailed,
	}
	snap := *s.latestSnapshot
	s.mu.Unlock()

	if diagf != nil {
		diagf("telemetry: %.2f fps, %d dropped, %d clips persisted, %d abandoned, %d fits (%d failed)",
			snap.FPS, dropped, snap.ClipsPersisted, snap.ClipsAbandoned, snap.FitsAttempted, snap.FitsFailed)
	}
}

// LatestSnapshot returns the most recently computed Snapshot, or a zero
// Snapshot timestamped now if LogDiag has never run.
func (s *Stats) LatestSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latestSnapshot == nil {
		return Snapshot{CurrentUTC: time.Now().UTC()}
	}
	return *s.latestSnapshot
}

// Uptime returns the time since the Stats record was created.
func (s *Stats) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.startTime)
}

// String renders a one-line summary, useful for quick debug prints.
func (s *Stats) String() string {
	snap := s.LatestSnapshot()
	return fmt.Sprintf("fps=%.2f total=%d dropped=%d persisted=%d abandoned=%d fits=%d/%d",
		snap.FPS, snap.TotalFrames, snap.DroppedFrames, snap.ClipsPersisted, snap.ClipsAbandoned,
		snap.FitsAttempted-snap.FitsFailed, snap.FitsAttempted)
}
