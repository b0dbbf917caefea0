// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"sync"
	"time"

	"piiscope/internal/observability"
)

// Job is one unit of work; ID is the caller's index and is echoed in the Result
type Job[T any] struct {
	ID  int
	Run func(ctx context.Context) (T, error)
}

// Result represents processing results
type Result[T any] struct {
	JobID    int
	Value    T
	Error    error
	Duration time.Duration
}

// WorkerPool runs jobs on a fixed number of goroutines
type WorkerPool[T any] struct {
	name     string
	workers  int
	jobs     chan Job[T]
	results  chan Result[T]
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	observer *observability.StandardObserver
	once     sync.Once
}

// NewWorkerPool creates a pool bound to ctx. Cancelling ctx stops workers from picking up new jobs.
func NewWorkerPool[T any](ctx context.Context, name string, workers int, observer *observability.StandardObserver) *WorkerPool[T] {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool[T]{
		name:     name,
		workers:  workers,
		jobs:     make(chan Job[T], workers*2),
		results:  make(chan Result[T], workers*2),
		ctx:      ctx,
		cancel:   cancel,
		observer: observer,
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool[T]) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Submit adds a job to the queue. It returns false once the pool's context is done.
func (wp *WorkerPool[T]) Submit(job Job[T]) bool {
	select {
	case wp.jobs <- job:
		return true
	case <-wp.ctx.Done():
		return false
	}
}

// Close signals that no more jobs will be submitted. Results is closed once every worker exits.
func (wp *WorkerPool[T]) Close() {
	wp.once.Do(func() {
		close(wp.jobs)
		go func() {
			wp.wg.Wait()
			close(wp.results)
			wp.cancel()
		}()
	})
}

// Cancel aborts queued work
func (wp *WorkerPool[T]) Cancel() {
	wp.cancel()
}

// Results returns the results channel
func (wp *WorkerPool[T]) Results() <-chan Result[T] {
	return wp.results
}

func (wp *WorkerPool[T]) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		// Drain without running once cancelled so Close can finish
		if wp.ctx.Err() != nil {
			wp.results <- Result[T]{JobID: job.ID, Error: wp.ctx.Err()}
			continue
		}
		wp.results <- wp.processJob(job, id)
	}
}

func (wp *WorkerPool[T]) processJob(job Job[T], workerID int) Result[T] {
	start := time.Now()
	finishTiming := wp.observer.StartTiming(wp.name, "process_job", "")

	value, err := job.Run(wp.ctx)
	duration := time.Since(start)

	finishTiming(err == nil, map[string]interface{}{
		"worker_id": workerID,
		"job_id":    job.ID,
	})

	return Result[T]{
		JobID:    job.ID,
		Value:    value,
		Error:    err,
		Duration: duration,
	}
}

// Run fans jobs out over a pool of the given size and joins all of them.
// Results are returned in job order. The first failure cancels the jobs still queued
// and is returned alongside the partial results.
func Run[T any](ctx context.Context, name string, workers int, observer *observability.StandardObserver, jobs []Job[T]) ([]Result[T], error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	pool := NewWorkerPool[T](ctx, name, min(workers, len(jobs)), observer)
	pool.Start()

	go func() {
		defer pool.Close()
		for _, j := range jobs {
			if !pool.Submit(j) {
				return
			}
		}
	}()

	index := make(map[int]int, len(jobs))
	for i, j := range jobs {
		index[j.ID] = i
	}
	out := make([]Result[T], len(jobs))
	received := 0
	var firstErr error
	for r := range pool.Results() {
		i, ok := index[r.JobID]
		if !ok {
			continue
		}
		out[i] = r
		received++
		if r.Error != nil && firstErr == nil {
			firstErr = r.Error
			pool.Cancel()
		}
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	if firstErr != nil {
		return out, firstErr
	}
	if received < len(jobs) {
		return out, context.Canceled
	}
	return out, nil
}
