package telemetry

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DashboardHandler renders a bar chart of the current Snapshot's counters,
// grounded on internal/lidar/monitor/echarts_handlers.go's
// handleTrafficChart (same chart shape, Asteria's counter set instead of
// packet/point throughput).
func (s *Stats) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.LatestSnapshot()

		x := []string{"FPS", "Dropped", "Clips persisted", "Clips abandoned", "Fits attempted", "Fits failed"}
		y := []opts.BarData{
			{Value: snap.FPS},
			{Value: snap.DroppedFrames},
			{Value: snap.ClipsPersisted},
			{Value: snap.ClipsAbandoned},
			{Value: snap.FitsAttempted},
			{Value: snap.FitsFailed},
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "600px"}),
			charts.WithTitleOpts(opts.Title{Title: "Asteria Station Telemetry", Subtitle: snap.CurrentUTC.Format(time.RFC3339)}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		)
		bar.SetXAxis(x).
			AddSeries("station", y,
				charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
			)

		var buf bytes.Buffer
		if err := bar.Render(&buf); err != nil {
			http.Error(w, fmt.Sprintf("telemetry: render dashboard: %v", err), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	}
}
