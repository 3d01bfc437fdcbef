package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/tenderpulse/tagger/internal/augment"
	"github.com/tenderpulse/tagger/internal/batch"
	"github.com/tenderpulse/tagger/internal/core/config"
	"github.com/tenderpulse/tagger/internal/health"
	redisinfra "github.com/tenderpulse/tagger/internal/infra/redis"
	"github.com/tenderpulse/tagger/internal/tagging"
)

// Worker owns the pipeline's lifecycle: the Redis connection, the rule
// snapshot source, the tagging engine, the drain loop, and the health
// server.
type Worker struct {
	cfg          config.AppConfig
	redisClient  *redisinfra.Client
	queue        *redisinfra.Queue
	orch         *batch.Orchestrator
	healthServer *health.Server
	log          *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewWorker creates a Worker with all dependencies initialized.
func NewWorker(cfg config.AppConfig) (*Worker, error) {
	log := slog.Default()

	client, err := redisinfra.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	queue := redisinfra.NewQueue(client, cfg.Queues.Consumer)
	params := redisinfra.NewParamStore(client)

	generator := augment.NewAnthropicGenerator(cfg.Model)
	augmenter := augment.NewClient(generator, log)
	engine := tagging.NewEngine(params, augmenter, log)

	orch := batch.New(queue, engine, batch.Config{
		SourceStream:   cfg.Queues.Source,
		EnrichedStream: cfg.Queues.Enriched,
		FailedStream:   cfg.Queues.Failed,
		BatchSize:      cfg.Worker.BatchSize,
		SafetyMargin:   cfg.Worker.SafetyMargin,
	}, log)

	w := &Worker{
		cfg:         cfg,
		redisClient: client,
		queue:       queue,
		orch:        orch,
		log:         log,
		stop:        make(chan struct{}),
	}
	w.healthServer = health.NewServer(w.checkHealth, cfg.Server.Port)
	return w, nil
}

// Start begins the drain loop and the health server.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.queue.EnsureGroup(ctx, w.cfg.Queues.Source); err != nil {
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()

	go func() {
		if err := w.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.log.Error("health server failed", "error", err)
		}
	}()

	w.log.Info("worker started",
		"source", w.cfg.Queues.Source,
		"enriched", w.cfg.Queues.Enriched,
		"failed", w.cfg.Queues.Failed)
	return nil
}

// loop blocks on the source stream and runs one invocation per wake.
// An in-flight invocation always runs to completion before the loop
// re-checks for shutdown.
func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		seed, err := w.queue.Wait(ctx, w.cfg.Queues.Source,
			w.cfg.Worker.BatchSize, w.cfg.Worker.PollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error("receive failed", "error", err)
			continue
		}
		if len(seed) == 0 {
			continue
		}

		invCtx, cancel := context.WithTimeout(ctx, w.cfg.Worker.InvocationBudget)
		sum, err := w.orch.Run(invCtx, seed)
		cancel()
		if err != nil {
			w.log.Error("invocation aborted", "summary", sum.String(), "error", err)
			continue
		}
	}
}

// Stop shuts the worker down, letting any in-flight invocation finish.
func (w *Worker) Stop(ctx context.Context) error {
	close(w.stop)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.log.Warn("shutdown deadline reached before loop finished")
	}

	if err := w.healthServer.Stop(ctx); err != nil {
		w.log.Warn("health server shutdown failed", "error", err)
	}
	return w.redisClient.Close()
}

func (w *Worker) checkHealth(ctx context.Context) health.Report {
	report := health.Report{Status: "healthy"}

	if err := w.redisClient.Ping(ctx); err != nil {
		report.Status = "critical"
		report.Error = err.Error()
		return report
	}
	depth, err := w.queue.Depth(ctx, w.cfg.Queues.Source)
	if err != nil {
		report.Status = "degraded"
		report.Error = err.Error()
		return report
	}
	report.SourceDepth = depth
	return report
}
