// Package runtime wires the endpoint model, probe adapters, scheduler,
// and timeline store together, drives the render loop, and coordinates
// graceful shutdown.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hydraping/hydraping/internal/apperr"
	"github.com/hydraping/hydraping/internal/config"
	"github.com/hydraping/hydraping/internal/debugsrv"
	"github.com/hydraping/hydraping/internal/endpoint"
	"github.com/hydraping/hydraping/internal/logging"
	"github.com/hydraping/hydraping/internal/probeadapter"
	"github.com/hydraping/hydraping/internal/render"
	"github.com/hydraping/hydraping/internal/scheduler"
	"github.com/hydraping/hydraping/internal/timeline"
)

const (
	minRenderInterval = 250 * time.Millisecond // 4 Hz cap
	fallbackTermWidth = 100
	minGraphWindow    = 8
)

// Options collects the config-file settings and CLI overrides that
// together determine one run.
type Options struct {
	ConfigPath  string
	Interval    time.Duration // zero means "use the config value"
	Timeout     time.Duration
	DisableDNS  bool
	DisableICMP bool
	DebugAddr   string // empty disables the introspection server
	Debug       bool
	Stdout      *os.File
	Endpoints   []string // positional CLI args; overrides the config file's targets entirely
}

// Run loads config, wires the endpoint, adapter, scheduler, timeline,
// and render layers, and drives the render loop until ctx is canceled
// (SIGINT) or a fatal error occurs. The returned error, if any, is
// always *apperr.ConfigErr or *apperr.TerminalErr — cmd/hydraping maps
// those to the process exit code.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	interval := cfg.Interval
	if opts.Interval > 0 {
		interval = opts.Interval
	}
	timeout := cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	if len(opts.Endpoints) > 0 {
		targets := make([]config.Target, len(opts.Endpoints))
		for i, url := range opts.Endpoints {
			targets[i] = config.Target{URL: url}
		}
		cfg.Targets = targets
	}

	endpoints, err := endpoint.Parse(cfg.RawTargets())
	if err != nil {
		return err
	}

	logDir := os.Getenv("HYDRAPING_LOG_DIR")
	if logDir == "" {
		logDir = logging.DefaultLogDir()
	}
	logger, err := logging.NewLogger(logDir, opts.Debug)
	if err != nil {
		return apperr.NewTerminalErr("cannot initialize logger", err)
	}
	var shutdownDebugServer func() error
	defer func() {
		var cleanupErr error
		if shutdownDebugServer != nil {
			cleanupErr = multierr.Append(cleanupErr, shutdownDebugServer())
		}
		cleanupErr = multierr.Append(cleanupErr, logger.Sync())
		if cleanupErr != nil {
			fmt.Fprintln(os.Stderr, "hydraping: cleanup:", cleanupErr)
		}
	}()

	adapters := probeadapter.NewAdapters(cfg.DNSServers)

	initialWidth := max(cfg.GraphWidth, terminalWidthOrFallback(opts.Stdout))
	if initialWidth < minGraphWindow {
		initialWidth = minGraphWindow
	}
	store := timeline.NewStore(initialWidth)

	var icmpNoticeFired atomic.Bool
	sched := scheduler.New(logger, endpoints, store, adapters, scheduler.Config{
		Interval:    interval,
		Timeout:     timeout,
		DisableDNS:  opts.DisableDNS,
		DisableICMP: opts.DisableICMP,
	})
	sched.OnICMPDisabled = func() { icmpNoticeFired.Store(true) }
	sched.PrimeICMPCapability()

	if opts.DebugAddr != "" {
		host, _, splitErr := net.SplitHostPort(opts.DebugAddr)
		ip := net.ParseIP(host)
		if splitErr != nil || (host != "localhost" && (ip == nil || !ip.IsLoopback())) {
			return apperr.NewConfigErr(-1, "debug-addr", fmt.Sprintf("%q is not a loopback address", opts.DebugAddr))
		}
		shutdownDebugServer = startDebugServer(logger, opts.DebugAddr, endpoints, store)
	}

	go sched.Run(ctx)

	renderInterval := interval
	if renderInterval < minRenderInterval {
		renderInterval = minRenderInterval
	}

	writer := render.NewWriter(opts.Stdout)
	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()

	draw := func() {
		width := store.Capacity()
		w := max(cfg.GraphWidth, terminalWidthOrFallback(opts.Stdout))
		if w < minGraphWindow {
			w = minGraphWindow
		}
		if w != width {
			store.Resize(w)
			width = w
		}

		var notices []string
		if icmpNoticeFired.Load() {
			notices = append(notices, "ICMP unavailable")
		}

		frame := render.BuildFrame(endpoints, store, width, notices)
		writer.Render(frame, headerLine(endpoints, interval))
	}

	for {
		select {
		case <-ctx.Done():
			draw()
			return nil
		case <-ticker.C:
			draw()
		}
	}
}

func headerLine(endpoints []endpoint.Endpoint, interval time.Duration) string {
	return fmt.Sprintf("hydraping — %d endpoints, tick %s", len(endpoints), interval)
}

// startDebugServer returns a function that shuts the server down; the
// caller combines its result with other cleanup errors via multierr
// rather than losing it to a bare `_ =`.
func startDebugServer(logger *zap.Logger, addr string, endpoints []endpoint.Endpoint, store *timeline.Store) func() error {
	srv := debugsrv.NewServer(logger, endpoints, store)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Router()}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("debugsrv_listen_error", zap.Error(err))
		}
	}()

	return func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func terminalWidthOrFallback(f *os.File) int {
	if f == nil {
		return fallbackTermWidth
	}
	return render.TerminalWidth(f.Fd(), fallbackTermWidth)
}
