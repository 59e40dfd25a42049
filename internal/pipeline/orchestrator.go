package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/store"
)

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("pipeline stopped")

// Orchestrator runs quiz jobs on a fixed pool of workers. Each document is
// still processed sequentially by one worker.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	runner *Runner
	store  *store.Store
	log    *slog.Logger
	cfg    config.Config

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewOrchestrator creates the pipeline; call Start to launch workers.
func NewOrchestrator(cfg config.Config, runner *Runner, st *store.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		runner: runner,
		store:  st,
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(workerCtx)
	o.cancel = cancel
	o.group = g

	for range max(o.cfg.WorkerCount, 1) {
		g.Go(func() error {
			w := NewWorker(o.runner, o.store, o.log)
			for {
				select {
				case <-gctx.Done():
					return nil
				case job, ok := <-o.queue:
					if !ok {
						return nil
					}
					w.Process(gctx, job)
				}
			}
		})
	}

	// Start job store cleanup.
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	})
}

// Stop shuts down the pipeline. Jobs still queued when the workers exit
// are marked failed in the "shutdown" phase.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	if o.group != nil {
		o.group.Wait()
	}

	for job := range o.queue {
		o.log.Warn("job dropped at shutdown", "job_id", job.ID, "doc_id", job.DocID)
		job.AddError(ErrStopped.Error())
		job.SetStatus(StatusFailed, "shutdown")
	}
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Store returns the result store for direct use by API handlers.
func (o *Orchestrator) Store() *store.Store {
	return o.store
}
