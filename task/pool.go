/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package task supplies the channel engine's only external
// collaborator: "launch a function on a fresh concurrent task" and
// "wait for it to finish". The synchronization engine in cspchan never
// imports this package; it is consumed by callers (and by this
// module's own tests) the same way an application would be.
package task

import (
	"context"
	"errors"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPoolExhausted is returned by Spawn when the pool was configured
// with a MaxInFlight limit and that many tasks are already queued or
// running.
var ErrPoolExhausted = errors.New("task: pool exhausted")

// Option configures a Pool.
type Option struct {
	// MaxIdleWorkers is the max idle workers kept in the pool waiting
	// for tasks. Workers beyond this count exit once they go idle;
	// workers at or below it exit only after WorkerMaxAge.
	MaxIdleWorkers int

	// WorkerMaxAge is the max age of a long-lived (<=MaxIdleWorkers)
	// worker before it exits.
	WorkerMaxAge time.Duration

	// TaskQueueDepth is the size of the task queue. If full, Spawn
	// falls back to an unpooled goroutine rather than blocking.
	TaskQueueDepth int

	// MaxInFlight, if > 0, bounds the number of tasks Spawn will
	// accept concurrently; Spawn returns ErrPoolExhausted past that
	// point instead of falling back to an unpooled goroutine. Zero
	// means unbounded, matching spec's "spawn never fails in
	// practice" baseline.
	MaxInFlight int
}

// DefaultOption returns the Pool's default configuration.
func DefaultOption() *Option {
	return &Option{
		MaxIdleWorkers: 1000,
		WorkerMaxAge:   time.Minute,
		TaskQueueDepth: 1000,
	}
}

// job is one unit of work passed through a Pool's queue. task is nil
// only for the internal noop ticks runTicker uses to wake idle
// workers; every caller-submitted job carries the Task its completion
// must signal.
type job struct {
	ctx  context.Context
	fn   func()
	task *Task
}

// Task is a handle to a function spawned on the pool. Join blocks
// until that function returns.
type Task struct {
	wg          sync.WaitGroup
	decInFlight func()
}

// Join waits for the task's function to return.
func (t *Task) Join() {
	t.wg.Wait()
}

// Pool is a bounded worker pool for background tasks, with idle
// workers reaped after WorkerMaxAge.
type Pool struct {
	name string

	workers int32
	maxIdle int32
	maxage  int64 // milliseconds

	maxInFlight int32
	inFlight    int32

	panicHandler func(ctx context.Context, r interface{})

	jobs      chan job
	unixMilli int64
}

// NewPool creates a Pool. A nil Option uses DefaultOption.
func NewPool(name string, o *Option) *Pool {
	if o == nil {
		o = DefaultOption()
	}
	return &Pool{
		name:        name,
		jobs:        make(chan job, o.TaskQueueDepth),
		maxage:      o.WorkerMaxAge.Milliseconds(),
		maxIdle:     int32(o.MaxIdleWorkers),
		maxInFlight: int32(o.MaxInFlight),
	}
}

var defaultPool = NewPool("__default__", nil)

// Go spawns fn on the default pool and returns a joinable Task.
func Go(fn func()) (*Task, error) {
	return defaultPool.Spawn(fn)
}

// CtxGo is like Go but passes ctx to the panic handler if fn panics.
func CtxGo(ctx context.Context, fn func()) (*Task, error) {
	return defaultPool.CtxSpawn(ctx, fn)
}

// Sleep blocks the calling goroutine for d.
func Sleep(d time.Duration) {
	time.Sleep(d)
}

// SetPanicHandler sets the default pool's panic handler.
func SetPanicHandler(f func(ctx context.Context, r interface{})) {
	defaultPool.SetPanicHandler(f)
}

// SetPanicHandler sets a func invoked when a spawned fn panics.
//
// The handler takes the ctx passed to CtxSpawn (or context.Background
// for Spawn) and r, the value recover() produced. By default the pool
// logs the panic and stack with log.Printf.
func (p *Pool) SetPanicHandler(f func(ctx context.Context, r interface{})) {
	p.panicHandler = f
}

// Spawn runs fn on a fresh or pooled goroutine and returns a Task that
// Join can wait on. Returns ErrPoolExhausted if the pool was
// configured with MaxInFlight and that many tasks are already
// in flight.
func (p *Pool) Spawn(fn func()) (*Task, error) {
	return p.CtxSpawn(context.Background(), fn)
}

// CtxSpawn is like Spawn but passes ctx to the panic handler.
func (p *Pool) CtxSpawn(ctx context.Context, fn func()) (*Task, error) {
	decInFlight := func() {}
	if p.maxInFlight > 0 {
		if atomic.AddInt32(&p.inFlight, 1) > p.maxInFlight {
			atomic.AddInt32(&p.inFlight, -1)
			return nil, ErrPoolExhausted
		}
		decInFlight = func() { atomic.AddInt32(&p.inFlight, -1) }
	}

	t := &Task{decInFlight: decInFlight}
	t.wg.Add(1)
	j := job{ctx: ctx, fn: fn, task: t}

	select {
	case p.jobs <- j:
	default:
		// queue full: fall back to an unpooled goroutine
		go p.runJob(j)
		return t, nil
	}
	if len(p.jobs) == 0 {
		return t, nil
	}
	// jobs are backing up: grow the pool
	go p.runWorker()
	return t, nil
}

// runJob executes one job with panic recovery, then signals the
// job's Task complete and releases its MaxInFlight slot. This is the
// one place completion bookkeeping happens, so it applies identically
// whether the job ran on a pooled worker or on the unpooled fallback
// goroutine CtxSpawn uses when the queue is full.
func (p *Pool) runJob(j job) {
	defer func() {
		if j.task == nil {
			return
		}
		j.task.decInFlight()
		j.task.wg.Done()
	}()
	defer func() {
		if r := recover(); r != nil {
			if p.panicHandler != nil {
				p.panicHandler(j.ctx, r)
			} else {
				log.Printf("task: panic in pool %s: %v: %s", p.name, r, debug.Stack())
			}
		}
	}()
	j.fn()
}

// CurrentWorkers returns the number of live pooled workers.
func (p *Pool) CurrentWorkers() int {
	return int(atomic.LoadInt32(&p.workers))
}

// runWorker pulls jobs off the queue and runs them through runJob,
// which is what actually completes each job's Task and releases its
// MaxInFlight slot; runWorker itself only tracks how long this worker
// has lived, to decide when to exit.
func (p *Pool) runWorker() {
	id := atomic.AddInt32(&p.workers, 1)
	defer atomic.AddInt32(&p.workers, -1)

	if id > p.maxIdle {
		// overflow worker: drain without blocking and exit, we only
		// exist to burn down a momentary backlog
		for {
			select {
			case j := <-p.jobs:
				p.runJob(j)
			default:
				return
			}
		}
	}

	createdAt := time.Now().UnixMilli()
	for j := range p.jobs {
		p.runJob(j)

		now := atomic.LoadInt64(&p.unixMilli)
		if now == 0 {
			now = time.Now().UnixMilli()
			if atomic.CompareAndSwapInt64(&p.unixMilli, 0, now) {
				go p.runTicker()
			}
		}
		if now-createdAt > p.maxage {
			return
		}
	}
}

// runTicker periodically wakes idle long-lived workers with a
// task-less noop job so each one re-checks its own age against
// maxage; it exits once no pooled worker remains to wake.
func (p *Pool) runTicker() {
	defer atomic.StoreInt64(&p.unixMilli, 0)

	d := time.Duration(p.maxage) * time.Millisecond / 100
	if d < time.Millisecond {
		d = time.Millisecond
	}

	t := time.NewTicker(d)
	defer t.Stop()

	for now := range t.C {
		if p.CurrentWorkers() == 0 {
			return
		}
		atomic.StoreInt64(&p.unixMilli, now.UnixMilli())
		p.jobs <- job{fn: func() {}}
	}
}
