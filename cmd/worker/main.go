package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/forge3d/internal/bootstrap"
	"github.com/kirillkom/forge3d/internal/config"
	"github.com/kirillkom/forge3d/internal/core/domain"
	"github.com/kirillkom/forge3d/internal/observability/logging"
	"github.com/kirillkom/forge3d/internal/observability/metrics"
)

const serviceName = "forge3d-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, workerMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	handle := func(handlerCtx context.Context, jobID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.WorkerJobTimeout)
		defer cancel()

		started := time.Now()
		workerMetrics.StartJob()
		if job, err := app.Repo.GetByID(processCtx, jobID); err == nil {
			workerMetrics.ObserveQueueLag(started.Sub(job.CreatedAt))
		}
		err := app.ProcessUC.ProcessByID(processCtx, jobID)
		workerMetrics.FinishJob(time.Since(started), err)
		return err
	}
	g.Go(func() error {
		logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "in_flight", cfg.WorkerInFlight)
		return app.Queue.SubscribeJobQueued(gctx, handle)
	})
	// Jobs a stopped worker left in polling already hold a remote task id,
	// so resuming them here never submits twice.
	g.Go(func() error {
		ids, err := app.ProcessUC.InterruptedJobIDs(gctx)
		if err != nil {
			logger.Warn("worker_resume_scan_failed", "error", err)
			return nil
		}
		if len(ids) > 0 {
			logger.Info("worker_resuming_jobs", "count", len(ids))
		}
		var resumed errgroup.Group
		resumed.SetLimit(max(1, cfg.WorkerInFlight))
		for _, id := range ids {
			resumed.Go(func() error {
				if err := handle(gctx, id); err != nil && !domain.IsKind(err, domain.ErrInterrupted) {
					logger.Error("job_handler_failed", "job_id", id, "error", err)
				}
				return nil
			})
		}
		return resumed.Wait()
	})

	if err := g.Wait(); err != nil {
		logger.Error("worker_stopped", "error", err)
		os.Exit(1)
	}
}
