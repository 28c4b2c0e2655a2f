// Package worker runs the single fanout consumer. Exactly one Worker drains
// the queue per process: that is what guarantees at-most-one concurrent
// fanout computation and keeps reconciliation free of duplicate-insert races.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dynaerp/notify-engine/internal/domain"
	"github.com/dynaerp/notify-engine/internal/engine"
	"github.com/dynaerp/notify-engine/internal/queue"
)

// MetricHooks carries the metric callbacks injected by main.
type MetricHooks struct {
	OnProcessed func(action domain.Action, latency time.Duration)
	OnFailed    func(action domain.Action)
}

// Worker pulls jobs off the FIFO queue one at a time and runs each to
// completion — including all downstream I/O — before taking the next.
type Worker struct {
	q      *queue.Queue
	engine *engine.Engine
	logger *zap.Logger
	hooks  MetricHooks
	wg     sync.WaitGroup
}

func New(q *queue.Queue, eng *engine.Engine, logger *zap.Logger, hooks MetricHooks) *Worker {
	if hooks.OnProcessed == nil {
		hooks.OnProcessed = func(domain.Action, time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(domain.Action) {}
	}
	return &Worker{q: q, engine: eng, logger: logger, hooks: hooks}
}

// Start launches the drain goroutine. Cancel ctx to stop; the in-flight job
// finishes first.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Wait blocks until the drain goroutine has returned after ctx cancellation.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	w.logger.Info("fanout worker started")
	for {
		job, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("fanout worker stopping")
			return
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job domain.Job) {
	start := time.Now()
	log := w.logger.With(
		zap.String("table", job.Table),
		zap.String("record_id", job.RecordID),
	)

	if err := w.engine.Process(ctx, job); err != nil {
		// Abandon and continue: no retries anywhere in the pipeline.
		w.hooks.OnFailed(job.Action)
		if errors.Is(err, domain.ErrMissingRecord) {
			log.Warn("job abandoned: record vanished before processing")
			return
		}
		log.Error("job abandoned", zap.Error(err))
		return
	}

	w.hooks.OnProcessed(job.Action, time.Since(start))
}
