// Package worker provides a reusable pool of long-lived goroutines for shard processing.
//
// A Pool is started lazily on the first submission and keeps its goroutines
// across runs. Close stops them; the next submission starts an equivalent set,
// so a pool shared through a context survives a cancelled run.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// ErrTaskPanic is returned by Do when the submitted task panics.
var ErrTaskPanic = errors.New("worker task panicked")

// Task is a unit of work. The context it receives is the one passed to Do.
type Task func(ctx context.Context) error

type job struct {
	ctx  context.Context
	task Task
	done chan error
}

// Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	jobs        chan job
	wg          *sync.WaitGroup
	size        int
	mu          sync.RWMutex
	running     bool
	generations atomic.Int64
}

// NewPool creates a pool with size goroutines. A size <= 0 uses runtime.NumCPU().
// No goroutines are started until the first task is submitted.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}

	return &Pool{size: size}
}

// Size returns the number of goroutines the pool runs.
func (p *Pool) Size() int {
	return p.size
}

// IsRunning reports whether the pool goroutines are currently started.
func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.running
}

// Generations returns how many times the pool has been started.
func (p *Pool) Generations() int64 {
	return p.generations.Load()
}

func (p *Pool) start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.jobs = make(chan job)
	p.wg = &sync.WaitGroup{}
	p.running = true
	gen := p.generations.Add(1)

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go loop(p.jobs, p.wg)
	}

	log.Debug().
		Int("workers", p.size).
		Int64("generation", gen).
		Msg("Worker pool started")
}

func loop(jobs <-chan job, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		j.done <- run(j.ctx, j.task)
	}
}

func run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()

	return task(ctx)
}

// Do submits task and blocks until it has finished, returning its error.
// If ctx is done before a goroutine picks the task up, Do returns ctx.Err()
// without running it. Once running, the task alone decides when to stop.
func (p *Pool) Do(ctx context.Context, task Task) error {
	for {
		p.mu.RLock()
		if !p.running {
			p.mu.RUnlock()
			p.start()
			continue
		}

		j := job{ctx: ctx, task: task, done: make(chan error, 1)}
		select {
		case p.jobs <- j:
			p.mu.RUnlock()
			return <-j.done
		case <-ctx.Done():
			p.mu.RUnlock()
			return ctx.Err()
		}
	}
}

// Close stops the pool goroutines after their current tasks return.
// The pool stays usable: a later Do starts a new set of goroutines.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}

	close(p.jobs)
	wg := p.wg
	p.jobs, p.wg = nil, nil
	p.running = false
	p.mu.Unlock()

	wg.Wait()

	log.Debug().Int("workers", p.size).Msg("Worker pool stopped")
}

type poolKey struct{}

// WithPool returns a copy of ctx carrying p.
func WithPool(ctx context.Context, p *Pool) context.Context {
	return context.WithValue(ctx, poolKey{}, p)
}

// FromContext returns the pool carried by ctx, if any.
func FromContext(ctx context.Context) (*Pool, bool) {
	p, ok := ctx.Value(poolKey{}).(*Pool)
	return p, ok && p != nil
}
