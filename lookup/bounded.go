// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package lookup runs slow, optional side lookups concurrently with a
// protocol dialogue and collects their results within a time budget.
package lookup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// NoBudget makes Finish wait for the lookup to complete.
const NoBudget time.Duration = -1

// Work performs the lookup for key. It must return promptly once ctx is
// done. The boolean result reports whether a value was found.
type Work[T any] func(ctx context.Context, key string) (T, bool)

// Option configures a Bounded lookup.
type Option func(*options)

type options struct {
	now     func() time.Time
	onPanic func(key string, v interface{})
}

// WithClock replaces the clock used to measure the time since Start.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPanicHandler registers fn to receive the value recovered when the
// work panics. The lookup then completes as absent.
func WithPanicHandler(fn func(key string, v interface{})) Option {
	return func(o *options) {
		o.onPanic = fn
	}
}

// Bounded is a lookup started in the background and collected later,
// waiting no longer than the remaining part of a caller supplied budget.
type Bounded[T any] struct {
	key     string
	work    Work[T]
	now     func() time.Time
	onPanic func(key string, v interface{})
	startMu sync.Mutex
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
	// written by the worker before done is closed
	value T
	found bool
	// the outcome returned by every Finish call
	finishMu sync.Mutex
	resolved atomic.Bool
	outValue T
	outFound bool
}

// New returns a lookup of key that has not been started.
func New[T any](key string, work Work[T], opts ...Option) *Bounded[T] {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	return &Bounded[T]{
		key:  key,
		work: work,
		now:     o.now,
		onPanic: o.onPanic,
	}
}

// Key returns the subject of the lookup.
func (b *Bounded[T]) Key() string { return b.key }

// StartTime returns the time Start was called, or the zero time.
func (b *Bounded[T]) StartTime() time.Time {
	b.startMu.Lock()
	defer b.startMu.Unlock()

	return b.started
}

// Start launches the lookup without blocking. Only the first call has an effect.
func (b *Bounded[T]) Start() {
	b.startMu.Lock()
	defer b.startMu.Unlock()

	if b.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.started = b.now()
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.run(ctx)
}

func (b *Bounded[T]) run(ctx context.Context) {
	defer close(b.done)
	defer b.cancel()
	// a failing lookup must not take the session down with it
	defer func() {
		if v := recover(); v != nil {
			var zero T
			b.value, b.found = zero, false
			if b.onPanic != nil {
				b.onPanic(b.key, v)
			}
		}
	}()

	b.value, b.found = b.work(ctx, b.key)
}

// Finish returns the result of the lookup. When budget is NoBudget it waits
// for the lookup to complete. Otherwise it waits at most for the part of
// budget that remains since Start and, when that expires first, cancels the
// lookup and reports that nothing was found. The outcome of the first call is
// returned by every later call.
func (b *Bounded[T]) Finish(budget time.Duration) (T, bool) {
	b.startMu.Lock()
	done, started := b.done, b.started
	b.startMu.Unlock()

	if done == nil {
		var zero T
		return zero, false
	}

	b.finishMu.Lock()
	defer b.finishMu.Unlock()

	if !b.resolved.Load() {
		b.outValue, b.outFound = b.wait(done, started, budget)
		b.resolved.Store(true)
	}
	return b.outValue, b.outFound
}

func (b *Bounded[T]) wait(done chan struct{}, started time.Time, budget time.Duration) (T, bool) {
	var zero T

	if budget < 0 {
		<-done
		return b.value, b.found
	}
	// a completed lookup is returned even when the budget is exhausted
	select {
	case <-done:
		return b.value, b.found
	default:
	}

	remaining := budget - b.now().Sub(started)
	if remaining <= 0 {
		b.cancel()
		return zero, false
	}

	t := time.NewTimer(remaining)
	defer t.Stop()

	select {
	case <-done:
		return b.value, b.found
	case <-t.C:
	}

	b.cancel()
	return zero, false
}

// Resolved reports whether Finish has produced its outcome.
func (b *Bounded[T]) Resolved() bool { return b.resolved.Load() }
