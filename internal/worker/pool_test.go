package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeResult struct {
	err error
}

func (r *fakeResult) GetError() error { return r.err }

type fakeJob struct {
	duration  time.Duration
	shouldErr bool
	executed  *int32
	running   *int32
	maxSeen   *int32
}

func (j *fakeJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.running != nil {
		cur := atomic.AddInt32(j.running, 1)
		for {
			max := atomic.LoadInt32(j.maxSeen)
			if cur <= max || atomic.CompareAndSwapInt32(j.maxSeen, max, cur) {
				break
			}
		}
		defer atomic.AddInt32(j.running, -1)
	}
	if j.duration > 0 {
		select {
		case <-time.After(j.duration):
		case <-ctx.Done():
			return &fakeResult{err: ctx.Err()}
		}
	}
	if j.shouldErr {
		return &fakeResult{err: errors.New("job error")}
	}
	return &fakeResult{}
}

func TestNewPool_ClampsWorkers(t *testing.T) {
	if p := NewPool(0); p.workers != 1 {
		t.Errorf("expected 1 worker for 0 input, got %d", p.workers)
	}
	if p := NewPool(-3); p.workers != 1 {
		t.Errorf("expected 1 worker for negative input, got %d", p.workers)
	}
	if p := NewPool(8); p.workers != 8 {
		t.Errorf("expected 8 workers, got %d", p.workers)
	}
}

func TestPool_ExecutesAllJobs(t *testing.T) {
	pool := NewPool(3)
	pool.Start()

	var executed int32
	const count = 12
	for i := 0; i < count; i++ {
		pool.Submit(&fakeJob{executed: &executed})
	}

	results := pool.Wait()

	if len(results) != count {
		t.Errorf("expected %d results, got %d", count, len(results))
	}
	if atomic.LoadInt32(&executed) != count {
		t.Errorf("expected %d executions, got %d", count, executed)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	var running, maxSeen int32
	for i := 0; i < 10; i++ {
		pool.Submit(&fakeJob{duration: 10 * time.Millisecond, running: &running, maxSeen: &maxSeen})
	}
	pool.Wait()

	if max := atomic.LoadInt32(&maxSeen); max > 2 {
		t.Errorf("expected at most 2 concurrent jobs, saw %d", max)
	}
}

func TestPool_ErrorsSurfaceInResults(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&fakeJob{shouldErr: true})
	pool.Submit(&fakeJob{})

	results := pool.Wait()
	errCount := 0
	for _, r := range results {
		if r.GetError() != nil {
			errCount++
		}
	}
	if errCount != 1 {
		t.Errorf("expected 1 error, got %d", errCount)
	}
}

func TestCollector_ThreadSafe(t *testing.T) {
	c := NewCollector()
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			c.Add(&fakeResult{})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	if len(c.Results()) != 10 {
		t.Errorf("expected 10 results, got %d", len(c.Results()))
	}
}
