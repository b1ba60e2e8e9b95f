package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ayusman/distressd/internal/alarm"
	"github.com/ayusman/distressd/internal/app"
	"github.com/ayusman/distressd/internal/capture"
	"github.com/ayusman/distressd/internal/config"
	"github.com/ayusman/distressd/internal/detector"
	"github.com/ayusman/distressd/internal/logging"
	"github.com/ayusman/distressd/internal/screenshot"
	"github.com/ayusman/distressd/internal/server"
	"github.com/ayusman/distressd/internal/store"
	"github.com/ayusman/distressd/internal/tray"
)

const shutdownTimeout = 10 * time.Second

// CLI flags
var (
	configFlag   string
	addrFlag     string
	cameraFlag   int
	dataDirFlag  string
	staticFlag   string
	trayFlag     bool
	logLevelFlag string
	logJSONFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "distressd",
	Short: "Webcam monitor for the distress hand signal",
	Long: `distressd watches a webcam for the distress hand signal (thumb folded
across the palm), raises an alarm, and keeps a screenshot log. A browser
dashboard shows the live feed, the alert state, and the log.

Examples:
  distressd
  distressd --addr 127.0.0.1:5000 --camera 1
  distressd --config ~/.config/distressd/config.toml --tray`,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", config.DefaultConfigPath(), "Path to the TOML config file")
	rootCmd.Flags().StringVar(&addrFlag, "addr", config.DefaultAddr, "HTTP listen address")
	rootCmd.Flags().IntVar(&cameraFlag, "camera", 0, "Camera device index")
	rootCmd.Flags().StringVar(&dataDirFlag, "data-dir", config.DefaultDataDir(), "Directory for the screenshot log and database")
	rootCmd.Flags().StringVar(&staticFlag, "static-dir", "", "Serve the dashboard from this directory instead of the embedded copy")
	rootCmd.Flags().BoolVar(&trayFlag, "tray", false, "Show a system tray indicator")
	rootCmd.Flags().StringVar(&logLevelFlag, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&logJSONFlag, "log-json", false, "Write logs as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	logging.Init(logLevelFlag, logJSONFlag)

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.Tray.Enabled {
		return run(ctx, cfg, nil)
	}

	// The tray loop must own the main goroutine.
	t := tray.New()
	t.OnQuit(stop)
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, t)
		t.Quit()
	}()
	t.Run()
	stop()
	return <-errCh
}

// resolveConfig layers defaults, the config file, and explicitly set flags.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	fc, err := config.LoadFile(configFlag)
	if err != nil {
		return cfg, err
	}
	fc.Apply(&cfg)

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = addrFlag
	}
	if flags.Changed("camera") {
		cfg.Camera.Device = cameraFlag
	}
	if flags.Changed("data-dir") {
		cfg.SetDataDir(dataDirFlag)
	}
	if flags.Changed("static-dir") {
		cfg.Server.StaticDir = staticFlag
	}
	if flags.Changed("tray") {
		cfg.Tray.Enabled = trayFlag
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// run wires the service together and blocks until ctx is cancelled or the
// HTTP server fails.
func run(ctx context.Context, cfg config.Config, t *tray.Tray) error {
	st, err := store.New(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	rec, err := screenshot.NewRecorder(cfg.Storage.ScreenshotDir, st.Screenshots())
	if err != nil {
		return fmt.Errorf("failed to initialize screenshot directory: %w", err)
	}

	var det detector.Detector
	mp, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:      cfg.Detector.MaxHands,
		MinConfidence: cfg.Detector.MinConfidence,
		Script:        cfg.Detector.Script,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Hand landmark service unavailable, distress detection is disabled")
	} else {
		det = mp
	}

	a := app.New(app.Config{
		Camera: capture.NewCamera(capture.Config{
			Device: cfg.Camera.Device,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
		}),
		Detector:    det,
		Recorder:    rec,
		Audio:       alarm.New(cfg.Alarm.Command),
		Debounce:    cfg.Alert.Debounce,
		SettleDelay: cfg.Alert.SettleDelay,
		FPS:         cfg.Camera.FPS,
	})
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer a.Stop()

	if cfg.Server.StaticDir != "" {
		log.Info().Str("dir", cfg.Server.StaticDir).Msg("Serving dashboard from directory")
	}
	srv := server.New(server.Config{
		StaticDir:  cfg.Server.StaticDir,
		Store:      st,
		Recorder:   rec,
		Alerts:     a.Machine(),
		Frames:     a.Frames(),
		CameraOpen: a.CameraOpen,
	})
	defer srv.Close()

	url := dashboardURL(cfg.Server.Addr)
	if t != nil {
		t.OnAcknowledge(func() { a.Machine().Acknowledge() })
		t.OnDashboard(func() {
			if err := tray.OpenBrowser(url); err != nil {
				log.Warn().Err(err).Msg("Failed to open dashboard")
			}
		})
		unsubscribe := a.Machine().Subscribe(t.SetAlert)
		defer unsubscribe()
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// Long-lived streams end with ctx so Shutdown does not wait on them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("url", url).Msg("Starting server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Graceful shutdown timed out")
		httpSrv.Close()
	}
	return nil
}

// dashboardURL turns a listen address into a browsable URL.
func dashboardURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}
