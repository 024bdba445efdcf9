package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bank-ledger/internal/utils"
)

var (
	ErrQueueFull       = errors.New("worker queue is full")
	ErrShutdownTimeout = errors.New("worker pool shutdown timed out")
)

// Job is a unit of background work.
type Job struct {
	ID      string
	Task    func() error
	RetryOn func(error) bool // nil means never retry
	OnDone  func(error)      // called once with the final result
}

type WorkerPool struct {
	workers    int
	jobQueue   chan Job
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	stats      PoolStats
	closed     bool
	maxRetries int
}

type PoolStats struct {
	TotalJobs     int64
	CompletedJobs int64
	FailedJobs    int64
	ActiveWorkers int
	QueuedJobs    int
}

func NewWorkerPool(workers int, queueSize int, maxRetries int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &WorkerPool{
		workers:    workers,
		jobQueue:   make(chan Job, queueSize),
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: maxRetries,
		stats: PoolStats{
			ActiveWorkers: workers,
		},
	}

	utils.LogInfo("WorkerPool", "Pool configured: %d workers, queue %d, max retries %d", workers, queueSize, maxRetries)

	return pool
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	utils.LogSuccess("WorkerPool", "All workers started")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			utils.LogInfo("WorkerPool", "Worker #%d stopping", id)
			return

		case job, ok := <-p.jobQueue:
			if !ok {
				utils.LogInfo("WorkerPool", "Worker #%d: queue closed", id)
				return
			}
			p.executeJob(id, job)
		}
	}
}

// executeJob runs a job, retrying while RetryOn approves.
func (p *WorkerPool) executeJob(workerID int, job Job) {
	startTime := time.Now()
	var err error

	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			utils.LogWarning("WorkerPool", "Worker #%d: retry #%d for job %s", workerID, attempt, job.ID)
			time.Sleep(time.Millisecond * time.Duration(100*attempt))
		}

		err = job.Task()

		if err == nil {
			p.recordResult(nil)
			utils.LogDebug("WorkerPool", "Worker #%d: job %s done in %v", workerID, job.ID, time.Since(startTime))

			if job.OnDone != nil {
				job.OnDone(nil)
			}
			return
		}

		if job.RetryOn == nil || !job.RetryOn(err) {
			break
		}
	}

	p.recordResult(err)
	utils.LogError("WorkerPool", fmt.Sprintf("Worker #%d: job %s failed after %v", workerID, job.ID, time.Since(startTime)), err)

	if job.OnDone != nil {
		job.OnDone(err)
	}
}

// Submit queues a job without blocking.
func (p *WorkerPool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return context.Canceled
	}

	select {
	case p.jobQueue <- job:
		p.stats.TotalJobs++
		return nil
	default:
		utils.LogWarning("WorkerPool", "Queue full, job %s rejected", job.ID)
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for the queue to drain.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobQueue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		utils.LogSuccess("WorkerPool", "All workers drained")
		return nil

	case <-time.After(timeout):
		p.cancel()
		utils.LogWarning("WorkerPool", "Shutdown timeout exceeded, forcing workers to stop")
		return ErrShutdownTimeout
	}
}

func (p *WorkerPool) GetStats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.stats
	stats.QueuedJobs = len(p.jobQueue)
	return stats
}

func (p *WorkerPool) recordResult(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		p.stats.CompletedJobs++
	} else {
		p.stats.FailedJobs++
	}
}
