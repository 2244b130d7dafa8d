package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	clientdist "github.com/vango-dev/domsync/client/dist"
	"github.com/vango-dev/domsync/internal/config"
	"github.com/vango-dev/domsync/internal/errors"
	"github.com/vango-dev/domsync/pkg/middleware"
	"github.com/vango-dev/domsync/pkg/program"
	"github.com/vango-dev/domsync/pkg/remote"
)

func serveCmd() *cobra.Command {
	var (
		host      string
		port      int
		frameRate int
		sync      bool
		configDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo application over a websocket",
		Long: `Start an HTTP server running the demo application.

Every browser tab opens its own session: the application renders on the
server and the page replays the resulting host operations.

Endpoints:
  /          demo page
  /client.js browser client
  /ws        session websocket (serve.wsPath)
  /metrics   Prometheus metrics (serve.metricsPath, unless metrics.disabled)
  /healthz   liveness probe

Settings come from domsync.json when present; flags override them.`,
		Example: `  domsync serve
  domsync serve --port 8080 --frame-rate 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configDir)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Serve.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Serve.Port = port
			}
			if cmd.Flags().Changed("frame-rate") {
				cfg.Scheduler.FrameRate = frameRate
			}
			if cmd.Flags().Changed("sync") {
				cfg.Scheduler.Sync = sync
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "Host to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Port to listen on")
	cmd.Flags().IntVar(&frameRate, "frame-rate", config.DefaultFrameRate, "Render frames per second")
	cmd.Flags().BoolVar(&sync, "sync", false, "Render synchronously on every request")
	cmd.Flags().StringVar(&configDir, "config", ".", "Directory holding domsync.json")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	logger := cfg.Logger(cmd.ErrOrStderr())
	handler, sessions := newServeHandler(cfg, logger)

	ln, err := net.Listen("tcp", cfg.ServeAddress())
	if err != nil {
		return errors.New("E011").WithDetail(cfg.ServeAddress()).Wrap(err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, banner)
	success(out, "Serving on http://%s", ln.Addr())
	info(out, "websocket %s, %d fps", cfg.Serve.WSPath, cfg.Scheduler.FrameRate)
	if !cfg.Metrics.Disabled {
		info(out, "metrics   %s", cfg.Serve.MetricsPath)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.New("E011").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	info(out, "Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Sessions hold hijacked connections, which http.Server.Shutdown does
	// not wait for.
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		logger.Warn("sessions did not end in time", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	success(out, "Stopped")
	return nil
}

// newServeHandler builds the router of the serve command.
func newServeHandler(cfg *config.Config, logger *slog.Logger) (http.Handler, *remote.Server) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	programOpts := []program.Option{
		program.WithSync(cfg.Scheduler.Sync),
		program.WithSlowCycle(cfg.SlowCycleThreshold()),
	}
	var remoteMetrics *remote.Metrics
	if !cfg.Metrics.Disabled {
		programOpts = append(programOpts, program.WithMetrics(program.NewMetrics(registry, cfg.Metrics.Namespace)))
		remoteMetrics = remote.NewMetrics(registry, cfg.Metrics.Namespace)
	}

	rcfg := remote.DefaultConfig()
	rcfg.FrameInterval = cfg.FrameInterval()
	sessions := remote.NewServer(newDemoApp,
		remote.WithConfig(rcfg),
		remote.WithLogger(logger),
		remote.WithMetrics(remoteMetrics),
		remote.WithProgramOptions(programOpts...),
	)

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.Logger(logger),
		chimw.Recoverer,
		middleware.OpenTelemetry(),
	)
	if !cfg.Metrics.Disabled {
		r.Use(middleware.Prometheus(
			middleware.WithRegistry(registry),
			middleware.WithNamespace(cfg.Metrics.Namespace),
		))
		r.Handle(cfg.Serve.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Get("/", indexHandler(cfg.Serve.WSPath))
	r.Get("/client.js", serveClient)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "ok\nsessions %d\n", sessions.Sessions())
	})
	r.Handle(cfg.Serve.WSPath, sessions)

	return r, sessions
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>domsync</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 32rem; margin: 2rem auto; }
[data-closed] { opacity: .4; }
</style>
</head>
<body>
<main id="root" data-ws="{{.}}"></main>
<script src="/client.js"></script>
</body>
</html>
`))

func indexHandler(wsPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		indexTemplate.Execute(w, wsPath)
	}
}

var clientETag = func() string {
	sum := sha256.Sum256(clientdist.ClientJS)
	return fmt.Sprintf("%q", fmt.Sprintf("%x", sum[:]))
}()

func serveClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", clientETag)
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")

	if etagMatches(r.Header.Get("If-None-Match"), clientETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Write(clientdist.ClientJS)
}

func etagMatches(ifNoneMatchHeader, etag string) bool {
	if ifNoneMatchHeader == "" || etag == "" {
		return false
	}
	// Handle lists: If-None-Match: "abc", W/"def"
	for _, part := range strings.Split(ifNoneMatchHeader, ",") {
		candidate := strings.TrimSpace(part)
		if candidate == etag {
			return true
		}
		if strings.HasPrefix(candidate, "W/") && strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
