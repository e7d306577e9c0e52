package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"penguindash/internal/adapters/exports"
	"penguindash/internal/adapters/httpapi"
	"penguindash/internal/blob"
	"penguindash/internal/config"
	"penguindash/internal/dashboard"
	"penguindash/internal/logging"
	"penguindash/internal/metrics"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard HTTP API",
		Long: `Serve the dashboard over HTTP. Each client opens a session with its own
filter state; exports are rendered in the background into the configured
artifact store. Prometheus metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := config.FromContext(ctx)
			ln, err := net.Listen("tcp", cfg.HTTP.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.HTTP.Addr, err)
			}
			return serve(ctx, cfg, ln)
		},
	}

	f := cmd.Flags()
	f.String("addr", ":8080", "HTTP listen address")
	f.String("blob-driver", string(blob.DriverFilesystem), "artifact store: fs, s3, memory")
	f.Int("bins", 20, "histogram bin count")
	addDatasetFlags(cmd)
	return cmd
}

// serve runs the HTTP API on ln until ctx is done, then shuts down the
// server, the sweeper and the export worker in that order.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	logger := logging.FromContext(ctx)

	ds, err := loadDataset(ctx, cfg)
	if err != nil {
		_ = ln.Close()
		return err
	}
	store, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("open artifact store: %w", err)
	}

	rec := metrics.New()
	hub := newHub(cfg, ds, logger, rec)
	rec.TrackSessions(hub.Len)

	worker := exports.NewWorker(ds, store, exports.NewZapAuditLog(logger), exports.Options{
		Title:     cfg.Dashboard.Title,
		Bins:      cfg.Chart.Bins,
		Order:     hub.Controls().Species.Choices,
		Width:     cfg.Chart.Width,
		Height:    cfg.Chart.Height,
		QueueSize: cfg.Exports.QueueSize,
		Retention: cfg.Exports.Retention,
		Observer:  rec,
		Logger:    logger.Named("exports"),
	})
	worker.Start()

	srv := &http.Server{
		Handler: httpapi.NewHandler(hub, httpapi.Options{
			Exports:     worker,
			Metrics:     rec.Handler(),
			Requests:    rec,
			Logger:      logger.Named("http"),
			Title:       cfg.Dashboard.Title,
			ChartWidth:  cfg.Chart.Width,
			ChartHeight: cfg.Chart.Height,
		}),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dashboard.RunEvery(sweepCtx, cfg.Dashboard.SweepInterval, hub.Sweep, worker.Sweep)
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("serving",
		zap.String("addr", ln.Addr().String()),
		zap.String("blob_driver", string(store.Driver())),
	)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if serveErr == nil {
		serveErr = <-errCh
	}
	cancelSweep()
	wg.Wait()
	if err := worker.Stop(shutdownCtx); err != nil {
		logger.Warn("export worker stop", zap.Error(err))
	}
	logger.Info("stopped")

	if errors.Is(serveErr, http.ErrServerClosed) {
		return nil
	}
	return serveErr
}
