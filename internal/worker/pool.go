// Package worker provides the bounded fan-out pool used by the verification
// engine: one job per distinct source, N workers, barrier at Wait.
package worker

import (
	"context"
	"sync"
)

// Job is a unit of work, typically one source's batch of assertions
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a job produces
type Result interface {
	GetError() error
}

// Pool executes jobs concurrently with a fixed number of workers. Workers
// share no mutable state; results flow through a channel and are merged
// only after all workers finish.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the worker goroutines
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job for execution
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- job:
	}
}

// Wait closes the queue, blocks until all submitted jobs complete, and
// returns every result. This is the phase barrier: callers merge outcomes
// only after Wait returns.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}

	return results
}

// Shutdown cancels in-flight work and releases the workers
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

// Collector accumulates results across goroutines when channel plumbing is
// not worth it (e.g., the escalation pass, which runs per assertion).
type Collector struct {
	results []Result
	mu      sync.Mutex
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{results: make([]Result, 0)}
}

// Add appends a result (thread-safe)
func (c *Collector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns all collected results
func (c *Collector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}
