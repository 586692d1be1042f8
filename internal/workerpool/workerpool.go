package workerpool

import (
	"context"
	"sync"
)

// Job is a unit of work submitted to the Pool. A returned error is fatal for the whole pool.
type Job func(ctx context.Context) error

// Pool runs jobs using a fixed number of goroutines. The first job error cancels
// the context handed to the remaining jobs and is reported by Close.
type Pool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	workers int

	closeMu sync.RWMutex
	closed  bool

	errMu  sync.Mutex
	err    error
	cancel context.CancelFunc
	ctx    context.Context
}

// New creates a pool with the given number of workers and job queue capacity.
func New(workers, queue int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &Pool{
		jobs:    make(chan Job, queue),
		workers: workers,
	}
}

// Start launches the workers. They run until ctx is done, a job fails or Close drains the queue.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-p.ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					if err := job(p.ctx); err != nil {
						p.fail(err)
						return
					}
				}
			}
		}()
	}
}

func (p *Pool) fail(err error) {
	p.errMu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMu.Unlock()
	p.cancel()
}

// Submit enqueues a job, blocking while the queue is full.
func (p *Pool) Submit(job Job) error {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	if p.ctx == nil {
		p.jobs <- job
		return nil
	}
	select {
	case <-p.ctx.Done():
		if p.firstErr() != nil {
			return ErrPoolFailed
		}
		return p.ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// Close stops accepting jobs, waits for the workers and returns the first job error.
func (p *Pool) Close() error {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		p.wg.Wait()
		return p.firstErr()
	}
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()
	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	return p.firstErr()
}

func (p *Pool) firstErr() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

var (
	// ErrPoolClosed is returned if a Submit is attempted after Close.
	ErrPoolClosed = &PoolError{"worker pool closed"}
	// ErrPoolFailed is returned by Submit once a job has failed.
	ErrPoolFailed = &PoolError{"worker pool stopped after job failure"}
)

// PoolError provides a simple typed error for pool operations.
type PoolError struct{ msg string }

func (e *PoolError) Error() string { return e.msg }
