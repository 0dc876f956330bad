// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	minLimit            = 1
	maxLimit            = 15
	minUpdateSampleSize = 10
	maxInterval         = time.Second
)

type rateTrack struct {
	sync.Mutex
	limiter *rate.Limiter
	avg     time.Duration
	count   int
	first   bool
}

func newRateTrack() *rateTrack {
	limit := rate.Every(100 * time.Millisecond)

	return &rateTrack{
		limiter: rate.NewLimiter(limit, 1),
		first:   true,
	}
}

// Take blocks as long as required by the rate limiter or until ctx is done.
func (r *rateTrack) Take(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// ReportRTT accepts a round-trip-time for a DNS query request.
func (r *rateTrack) ReportRTT(rtt time.Duration) {
	r.Lock()
	defer r.Unlock()

	if rtt > maxInterval {
		rtt = maxInterval
	}

	r.count++
	count := float64(r.count)
	average := float64(r.avg.Milliseconds())
	average = ((average * (count - 1)) + float64(rtt.Milliseconds())) / count
	r.avg = time.Duration(math.Round(average)) * time.Millisecond

	if r.first {
		r.update()
		r.first = false
	} else if r.count >= minUpdateSampleSize {
		r.update()
	}
}

// update the QPS rate limiter and reset counters
func (r *rateTrack) update() {
	limit := rate.Every(r.avg)

	if limit > maxLimit {
		limit = maxLimit
	} else if limit < minLimit {
		limit = minLimit
	}

	r.limiter.SetLimit(limit)
	r.avg = 0
	r.count = 0
}

// Limit returns the current number of queries per second allowed.
func (r *rateTrack) Limit() rate.Limit {
	return r.limiter.Limit()
}
