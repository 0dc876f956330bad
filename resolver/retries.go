// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"math/rand"
	"time"

	"github.com/caffix/mtacore/types"
	"github.com/miekg/dns"
)

// DefaultAttempts is the number of times a query is sent before giving up.
const DefaultAttempts = 3

// RetryCodes are the rcodes that cause the client to try the query again.
var RetryCodes = []int{
	types.RcodeNoResponse,
	dns.RcodeRefused,
}

// RetryPolicy reports whether a query answered with msg on attempt number
// times should be sent again. SERVFAIL is retried only when servfail is set.
func RetryPolicy(times, attempts int, msg *dns.Msg, servfail bool) bool {
	if times >= attempts || msg == nil {
		return false
	}

	if servfail && msg.Rcode == dns.RcodeServerFailure {
		return true
	}

	for _, code := range RetryCodes {
		if msg.Rcode == code {
			return true
		}
	}
	return false
}

// backoff returns the pause before the attempt following attempt. The base
// delay doubles with each attempt and up to one base delay of jitter is added.
// The pause never exceeds the maximum backoff or the time left until the
// deadline of ctx.
func (c *Client) backoff(ctx context.Context, attempt int) time.Duration {
	d := c.maxBackoff

	if exp := c.delay << uint(attempt-1); attempt < 32 && exp > 0 && exp < d {
		if exp += jitter(c.delay); exp < d {
			d = exp
		}
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d < 0 {
		return 0
	}
	return d
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
