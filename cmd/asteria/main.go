// Command asteria runs one all-sky-camera station: it captures frames from
// a FrameSource, detects transient bright events, persists clips, and
// serves a live telemetry dashboard (spec §1, §4.1, §6). The review GUI
// shell (tree view, playback widget, OpenGL drawers) is explicitly out of
// scope; --gui instead enables the HTTP telemetry dashboard in place of a
// native window, --headless omits it.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/starwatch-station/asteria/internal/asteria/acquisition"
	"github.com/starwatch-station/asteria/internal/asteria/clip"
	"github.com/starwatch-station/asteria/internal/asteria/config"
	"github.com/starwatch-station/asteria/internal/asteria/frame"
	"github.com/starwatch-station/asteria/internal/asteria/grpcstream"
	"github.com/starwatch-station/asteria/internal/asteria/netcam"
	"github.com/starwatch-station/asteria/internal/asteria/site"
	"github.com/starwatch-station/asteria/internal/asteria/store"
	"github.com/starwatch-station/asteria/internal/asteria/telemetry"
	"github.com/starwatch-station/asteria/internal/timeutil"
	"github.com/starwatch-station/asteria/internal/version"
)

// supportedCameras lists the frame sources this build knows how to open,
// for -a/--cameras (spec §6).
var supportedCameras = []string{
	"udp://<bind-address>:<port>  — live netcam fixed-header UDP datagram stream",
	"file:<path>.pcap             — offline PCAP replay of a captured session",
}

var (
	help     = flag.Bool("help", false, "show usage and exit")
	helpSh   = flag.Bool("h", false, "shorthand for --help")
	cameras  = flag.Bool("cameras", false, "list supported frame sources and exit")
	camerasS = flag.Bool("a", false, "shorthand for --cameras")
	headless = flag.Bool("headless", false, "run without the telemetry dashboard; requires --camera and --config")
	gui      = flag.Bool("gui", false, "serve the HTTP telemetry dashboard in place of a native viewer")
	camera   = flag.String("camera", "", "frame source path (udp://host:port or file:path.pcap)")
	cameraS  = flag.String("b", "", "shorthand for --camera")
	cfgPath  = flag.String("config", "", "station configuration file path")
	cfgPathS = flag.String("c", "", "shorthand for --config")
	listen   = flag.String("listen", ":8090", "HTTP listen address for the telemetry dashboard and admin console")
	showVer  = flag.Bool("version", false, "print the build version and exit")
)

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func main() {
	flag.Parse()

	if *help || *helpSh {
		flag.Usage()
		os.Exit(0)
	}
	if *showVer {
		fmt.Printf("asteria %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		os.Exit(0)
	}
	if *cameras || *camerasS {
		fmt.Println("Supported frame sources:")
		for _, c := range supportedCameras {
			fmt.Println("  " + c)
		}
		os.Exit(0)
	}

	cameraPath := firstNonEmpty(*camera, *cameraS)
	configPath := firstNonEmpty(*cfgPath, *cfgPathS)

	if *headless && (cameraPath == "" || configPath == "") {
		fmt.Fprintln(os.Stderr, "asteria: --headless requires both --camera and --config")
		os.Exit(1)
	}
	if cameraPath == "" || configPath == "" {
		fmt.Fprintln(os.Stderr, "asteria: --camera and --config are required (see --help)")
		os.Exit(1)
	}

	if err := run(cameraPath, configPath, *gui, *listen); err != nil {
		fmt.Fprintf(os.Stderr, "asteria: %v\n", err)
		os.Exit(1)
	}
}

func run(cameraPath, configPath string, serveDashboard bool, listenAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	src, err := openFrameSource(cameraPath)
	if err != nil {
		return fmt.Errorf("open camera %s: %w", cameraPath, err)
	}
	defer src.Close()

	persister := clip.NewPersister(cfg.GetClipRoot(), 8)

	pipeline := acquisition.NewPipeline(src, acquisition.Params{
		DetectionHead:            cfg.GetDetectionHead(),
		DetectionTail:            cfg.GetDetectionTail(),
		PixelDifferenceThreshold: int(cfg.GetPixelDifferenceThreshold()),
		NChangedPixelsForTrigger: cfg.GetNChangedPixelsForTrigger(),
		ClipMaxLengthMinutes:     cfg.GetClipMaxLength().Minutes(),
	}, persister, 4)

	stats := telemetry.NewStats()

	db, err := store.NewDB(cfg.GetIndexDBPath())
	if err != nil {
		return fmt.Errorf("open index database: %w", err)
	}
	defer db.Close()

	mux := http.NewServeMux()
	stats.AttachRoutes(mux)
	if err := db.AttachAdminRoutes(mux); err != nil {
		return fmt.Errorf("attach admin routes: %w", err)
	}

	var httpServer *http.Server
	if serveDashboard {
		httpServer = &http.Server{Addr: listenAddr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "asteria: telemetry server: %v\n", err)
			}
		}()
	}

	publisher := grpcstream.NewPublisher(grpcstream.DefaultConfig())
	if err := publisher.Start(); err != nil {
		return fmt.Errorf("start clip-stream publisher: %w", err)
	}
	defer publisher.Stop()

	var gpsReader *site.Reader
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if path := cfg.GetGPSDevicePath(); path != "" {
		port, err := site.OpenPort(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "asteria: GPS device unavailable, continuing without a live site fix: %v\n", err)
		} else {
			gpsReader = site.NewReader(port)
			go func() {
				if err := gpsReader.Run(ctx); err != nil && ctx.Err() == nil {
					fmt.Fprintf(os.Stderr, "asteria: GPS reader stopped: %v\n", err)
				}
			}()
		}
	}

	go recordPersistedClips(ctx, db, persister, stats, publisher)
	go logTelemetryPeriodically(ctx, stats, timeutil.RealClock{})

	var shutdown atomic.Bool
	go func() {
		<-ctx.Done()
		shutdown.Store(true)
	}()

	runErr := pipeline.Run(ctx, &shutdown, 2*time.Second)

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("acquisition pipeline: %w", runErr)
	}
	return nil
}

// openFrameSource resolves a CLI camera path into a frame.Source. The
// udp:// scheme opens a live listener; file: opens a PCAP replay. In a
// build without libpcap support the build-tag stub
// (internal/asteria/netcam/pcap_stub.go) returns an error, so file: paths
// fail to open.
func openFrameSource(path string) (frame.Source, error) {
	const nominalFramePeriod = 40 * time.Millisecond

	switch {
	case len(path) > len("udp://") && path[:len("udp://")] == "udp://":
		reader, err := netcam.ListenUDP(path[len("udp://"):])
		if err != nil {
			return nil, err
		}
		return netcam.NewFrameSource(reader, nominalFramePeriod), nil
	case len(path) > len("file:") && path[:len("file:")] == "file:":
		reader, err := netcam.OpenPCAPFile(path[len("file:"):], 0)
		if err != nil {
			return nil, err
		}
		return netcam.NewFrameSource(reader, nominalFramePeriod), nil
	default:
		return nil, fmt.Errorf("unsupported camera path %q (expected udp://... or file:...)", path)
	}
}

// recordPersistedClips drains the persister's notification channel,
// indexing each finished clip in the station database and fanning its
// arrival out over the gRPC clip-stream publisher.
func recordPersistedClips(ctx context.Context, db *store.DB, persister *clip.Persister, stats *telemetry.Stats, publisher *grpcstream.Publisher) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-persister.Notifications:
			stats.AddClipPersisted()
			now := time.Now()
			if err := db.InsertClip(store.ClipRecord{
				ClipID:        p.ID,
				Status:        "persisted",
				CreatedAtUnix: now.Unix(),
			}); err != nil {
				fmt.Fprintf(os.Stderr, "asteria: index clip %s: %v\n", p.ID, err)
			}
			publisher.Publish(grpcstream.ClipEvent{
				ClipID:   p.ID,
				StartUTC: now,
				EndUTC:   now,
				DirPath:  p.Root,
			})
		}
	}
}

// logTelemetryPeriodically writes FPS/drop-rate diagnostics to standard
// output once a second, satisfying spec §7's "no silent data loss"
// observability requirement. clock is injected so tests can drive the
// ticker with a timeutil.MockClock instead of waiting on a real one.
func logTelemetryPeriodically(ctx context.Context, stats *telemetry.Stats, clock timeutil.Clock) {
	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			stats.LogDiag(func(format string, args ...interface{}) {
				fmt.Printf(format+"\n", args...)
			})
		}
	}
}
