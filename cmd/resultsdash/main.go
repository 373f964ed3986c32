// Command resultsdash loads the A-level results dataset once and serves the
// dashboard API until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansel1/merry"
	"github.com/powerman/structlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resultsdash/internal/adapters/dashboard"
	"resultsdash/internal/app"
	"resultsdash/internal/config"
	"resultsdash/internal/logging"
	"resultsdash/internal/observability"
	"resultsdash/internal/query"
)

const shutdownTimeout = 10 * time.Second

var (
	exitFunc = os.Exit
	// onListen is called with the bound address once the server accepts connections.
	onListen = func(string) {}
)

func main() {
	exitFunc(cli(context.Background(), os.Args[1:], os.Stderr))
}

func cli(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("resultsdash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("RESULTSDASH_CONFIG"), "path to a .yaml or .toml config file")
	addr := fs.String("addr", "", "listen address, overrides the config")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "resultsdash: %v\n", err)
		return 1
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	logging.Configure(cfg.Log, stderr)
	log := logging.New("main")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, cfg, log); err != nil {
		log.PrintErr(err, "details", merry.Details(err), structlog.KeyStack, structlog.Auto)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, log *structlog.Logger) error {
	ds, err := app.LoadDataset(ctx, cfg, logging.New("source"))
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	var metrics observability.MetricsRecorder = observability.NoopRecorder{}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		rec, err := observability.NewPrometheusRecorder(reg)
		if err != nil {
			return merry.Prepend(err, "register metrics")
		}
		metrics = rec
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	metrics.SetDatasetRows(ds.Len())

	handler := dashboard.NewHandler(query.NewEngine(ds), metrics, logging.New("http"))
	mux.Handle("/", dashboard.LogRequests(logging.New("http"), handler))

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return merry.Prependf(err, "listen %s", cfg.Addr)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info("listening", "addr", ln.Addr().String(), "rows", ds.Len())
	onListen(ln.Addr().String())

	select {
	case err := <-errCh:
		return merry.Prepend(err, "serve")
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return merry.Prepend(err, "shutdown")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return merry.Prepend(err, "serve")
	}
	return nil
}
