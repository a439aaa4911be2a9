// Copyright (C) 2025 Invisor Labs (engineering@invisor.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package attribution

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	defaultPoolSize  = 4
	defaultOpTimeout = 30 * time.Second
)

// Pool bounds concurrent attribution work. Explanations are CPU-heavy and
// unbounded fan-out under request load would starve the predict path, so
// every strategy invocation acquires a slot first and runs under a
// deadline.
type Pool struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewPool returns a pool with the given number of slots and per-operation
// timeout. Non-positive arguments fall back to defaults.
func NewPool(size int, timeout time.Duration) *Pool {
	if size <= 0 {
		size = defaultPoolSize
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(size)),
		timeout: timeout,
	}
}

// Run acquires a slot and executes fn under the pool deadline. A slot that
// cannot be acquired or a run that exceeds the deadline returns a
// TimeoutError naming op.
func (p *Pool) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return &TimeoutError{Op: op, Limit: p.timeout}
	}

	// The worker owns the slot until fn returns, even when the caller
	// gives up first. The concurrency bound holds while a timed-out fn
	// is still winding down on the cancelled ctx.
	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if ctx.Err() == context.DeadlineExceeded {
			return &TimeoutError{Op: op, Limit: p.timeout}
		}
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return &TimeoutError{Op: op, Limit: p.timeout}
		}
		return ctx.Err()
	}
}
