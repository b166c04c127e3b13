// File: cmd/hioload-gate/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hioload-gate serializes many TCP clients onto one backend connection.
//
// Usage:
//
//	hioload-gate [-d] <backend host>

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/momentics/hioload-gate/control"
	"github.com/momentics/hioload-gate/internal/daemon"
	"github.com/momentics/hioload-gate/internal/logging"
	"github.com/momentics/hioload-gate/internal/transport"
	"github.com/momentics/hioload-gate/reactor"
	"github.com/momentics/hioload-gate/server"
	"github.com/rs/zerolog"

	_ "go.uber.org/automaxprocs"
)

// Exit codes. The daemonizing parent leaves with exitUsage as well.
const (
	exitOK    = 0
	exitUsage = 1
	exitFatal = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	detach := flag.Bool("d", false, "detach from the terminal and run in the background")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-d] <backend host>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return exitUsage
	}

	// The detached child runs from "/", so the .env path is fixed first and
	// the configuration is checked while errors still reach the terminal.
	if _, err := control.PinEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFatal
	}
	cfg, err := control.LoadConfig(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFatal
	}

	if *detach && !daemon.IsChild() {
		if _, err := daemon.Detach(); err != nil {
			fmt.Fprintf(os.Stderr, "daemonize: %v\n", err)
			return exitFatal
		}
		return exitUsage
	}
	cfg.BackendHost = flag.Arg(0)

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Daemon: daemon.IsChild(),
		Syslog: cfg.Syslog,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("syslog unavailable, logging to console only")
	}
	logger.Info().Int("gomaxprocs", runtime.GOMAXPROCS(0)).Msg("starting hioload-gate")
	cfg.LogConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reloader := control.NewReloader(func() (*control.Config, error) {
		return control.ReloadConfig(&logger)
	})
	reloader.RegisterReloadHook(func(c *control.Config) {
		if err := logging.SetLevel(c.LogLevel); err != nil {
			logger.Warn().Err(err).Msg("log level not changed")
			return
		}
		logger.Info().Str("level", c.LogLevel).Msg("log level reloaded")
	})
	watchReload(ctx, reloader, logger)

	metrics := control.NewMetrics()
	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	if cfg.MetricsAddr != "" {
		serveMetrics(ctx, cfg.MetricsAddr, metrics, probes, logger)
	}

	ln, err := transport.Listen(cfg.ListenHost, cfg.ListenPort, cfg.ListenBacklog)
	if err != nil {
		logger.Error().Err(err).Str("host", cfg.ListenHost).Int("port", cfg.ListenPort).Msg("cannot listen")
		return exitFatal
	}
	defer ln.Close()

	poller, err := reactor.New()
	if err != nil {
		logger.Error().Err(err).Msg("cannot create poller")
		return exitFatal
	}
	defer poller.Close()

	gw, err := server.New(server.ConfigFrom(cfg), ln, poller, &transport.Dialer{},
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithDebugProbes(probes),
	)
	if err != nil {
		logger.Error().Err(err).Msg("cannot build gateway")
		return exitFatal
	}
	if err := gw.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("gateway failed")
		return exitFatal
	}
	logger.Info().Msg("shutdown complete")
	return exitOK
}

// watchReload re-reads the configuration on SIGHUP. Only the log level is
// applied to a running gateway.
func watchReload(ctx context.Context, r *control.Reloader, logger zerolog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if _, err := r.Reload(); err != nil {
					logger.Error().Err(err).Msg("reload failed")
				}
			}
		}
	}()
}

// serveMetrics exposes the Prometheus registry and debug probes until ctx is
// done.
func serveMetrics(ctx context.Context, addr string, m *control.Metrics, dp *control.DebugProbes, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/debug/state", dp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics endpoint failed")
		}
	}()
	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	})
}
