// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareJobs(n int) []Job[int] {
	jobs := make([]Job[int], n)
	for i := range jobs {
		i := i
		jobs[i] = Job[int]{ID: i, Run: func(ctx context.Context) (int, error) {
			return i * i, nil
		}}
	}
	return jobs
}

func TestRun_PreservesJobOrder(t *testing.T) {
	results, err := Run(context.Background(), "test", 3, nil, squareJobs(20))
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i, r.JobID)
		assert.Equal(t, i*i, r.Value)
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var inFlight, peak int32
	jobs := make([]Job[struct{}], 12)
	for i := range jobs {
		jobs[i] = Job[struct{}]{ID: i, Run: func(ctx context.Context) (struct{}, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return struct{}{}, nil
		}}
	}

	_, err := Run(context.Background(), "test", 2, nil, jobs)
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRun_FirstErrorWins(t *testing.T) {
	boom := errors.New("window 3 failed")
	jobs := squareJobs(8)
	jobs[3].Run = func(ctx context.Context) (int, error) { return 0, boom }

	_, err := Run(context.Background(), "test", 1, nil, jobs)
	assert.ErrorIs(t, err, boom)
}

func TestRun_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, "test", 2, nil, squareJobs(4))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Empty(t *testing.T) {
	results, err := Run[int](context.Background(), "test", 4, nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, results)
}

func TestWorkerPool_ManualLifecycle(t *testing.T) {
	pool := NewWorkerPool[string](context.Background(), "manual", 0, nil)
	pool.Start()
	require.True(t, pool.Submit(Job[string]{ID: 7, Run: func(ctx context.Context) (string, error) { return "done", nil }}))
	pool.Close()
	pool.Close()

	var got []Result[string]
	for r := range pool.Results() {
		got = append(got, r)
	}
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].JobID)
	assert.Equal(t, "done", got[0].Value)
}
