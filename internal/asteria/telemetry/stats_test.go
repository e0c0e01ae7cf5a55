package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starwatch-station/asteria/internal/testutil"
)

func TestLogDiagComputesFPSAndResetsRateCounters(t *testing.T) {
	s := NewStats()
	s.AddFrame()
	s.AddFrame()
	s.AddFrame()
	s.AddDropped()

	var logged string
	s.LogDiag(func(format string, args ...interface{}) { logged = format })
	require.NotEmpty(t, logged)

	snap := s.LatestSnapshot()
	require.Equal(t, int64(3), snap.TotalFrames)
	require.Equal(t, int64(1), snap.DroppedFrames)

	frames, dropped, _ := s.GetAndResetRate()
	require.Zero(t, frames)
	require.Zero(t, dropped)
}

func TestClipAndFitCountersAccumulate(t *testing.T) {
	s := NewStats()
	s.AddClipPersisted()
	s.AddClipPersisted()
	s.AddClipAbandoned()
	s.AddFitAttempted()
	s.AddFitAttempted()
	s.AddFitFailed()
	s.LogDiag(nil)

	snap := s.LatestSnapshot()
	require.Equal(t, int64(2), snap.ClipsPersisted)
	require.Equal(t, int64(1), snap.ClipsAbandoned)
	require.Equal(t, int64(2), snap.FitsAttempted)
	require.Equal(t, int64(1), snap.FitsFailed)
}

func TestHealthHandlerServesJSONSnapshot(t *testing.T) {
	s := NewStats()
	s.AddFrame()
	s.LogDiag(nil)

	req := testutil.NewTestRequest("GET", "/health")
	rec := testutil.NewTestRecorder()
	s.HealthHandler().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, 200)
	require.Contains(t, rec.Body.String(), "total_frames")
}

func TestHealthHandlerRejectsNonGET(t *testing.T) {
	s := NewStats()

	req := testutil.NewTestRequest("POST", "/health")
	rec := testutil.NewTestRecorder()
	s.HealthHandler().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, 405)
}

func TestDashboardHandlerRendersHTML(t *testing.T) {
	s := NewStats()
	s.LogDiag(nil)

	req := testutil.NewTestRequest("GET", "/telemetry/dashboard")
	rec := testutil.NewTestRecorder()
	s.DashboardHandler().ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, 200)
	require.Contains(t, rec.Body.String(), "Asteria Station Telemetry")
}
