// Package worker implements the out-of-band persistence path: the request
// handler enqueues a batch of freshly fetched observations and returns
// immediately, while a single worker goroutine drains the queue into the
// observation store. The two sides share nothing but the job channel.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/okarpenko/weather-range-service/internal/core/ports"
	"github.com/okarpenko/weather-range-service/internal/observability"
)

// storeTimeout bounds one batch insert. Jobs are processed after the
// originating request has already been answered, so the request context
// cannot be used here.
const storeTimeout = 15 * time.Second

// PersistQueue buffers persistence jobs between the request path and the
// worker. Enqueue never blocks: when the buffer is full the job is dropped
// and counted, because losing a cache write only costs a refetch later.
type PersistQueue struct {
	jobs    chan ports.PersistJob
	store   ports.ObservationStore
	metrics *observability.PersistMetrics
	logger  *zap.Logger
	done    chan struct{}
}

// NewPersistQueue creates a queue with the given buffer size.
func NewPersistQueue(store ports.ObservationStore, bufferSize int, metrics *observability.PersistMetrics, logger *zap.Logger) *PersistQueue {
	return &PersistQueue{
		jobs:    make(chan ports.PersistJob, bufferSize),
		store:   store,
		metrics: metrics,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Enqueue hands a job to the worker without waiting. The caller gets no
// result: persistence outcomes never affect the user-visible response.
func (q *PersistQueue) Enqueue(job ports.PersistJob) {
	select {
	case q.jobs <- job:
		q.metrics.JobsEnqueued.Inc()
		q.metrics.QueueDepth.Set(float64(len(q.jobs)))
	default:
		q.metrics.JobsDropped.Inc()
		q.logger.Warn("persist queue full, dropping job",
			zap.String("job_id", job.ID),
			zap.Int("observations", len(job.Observations)))
	}
}

// Run consumes jobs until the context is cancelled, then drains whatever
// is still buffered before returning. Call it from its own goroutine and
// wait on Done during shutdown.
func (q *PersistQueue) Run(ctx context.Context) {
	defer close(q.done)

	q.logger.Info("persistence worker started", zap.Int("buffer", cap(q.jobs)))
	q.metrics.WorkerRunning.Set(1)
	defer q.metrics.WorkerRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			q.drain()
			q.logger.Info("persistence worker stopped", zap.NamedError("reason", ctx.Err()))

			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

// Done is closed once Run has returned.
func (q *PersistQueue) Done() <-chan struct{} {
	return q.done
}

func (q *PersistQueue) drain() {
	for {
		select {
		case job := <-q.jobs:
			q.process(job)
		default:
			return
		}
	}
}

func (q *PersistQueue) process(job ports.PersistJob) {
	q.metrics.QueueDepth.Set(float64(len(q.jobs)))

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := q.store.StoreObservations(ctx, job.Observations); err != nil {
		// Failed batches are dropped, not retried: the rows will be
		// refetched and re-enqueued by the next identical query.
		q.metrics.JobsFailed.Inc()
		q.logger.Error("failed to persist observation batch",
			zap.String("job_id", job.ID),
			zap.Int("observations", len(job.Observations)),
			zap.Error(err))

		return
	}

	q.metrics.JobsPersisted.Inc()
	q.logger.Debug("observation batch persisted",
		zap.String("job_id", job.ID),
		zap.Int("observations", len(job.Observations)))
}
