// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"context"
	"time"

	"github.com/miekg/dns"
)

// Exchange sends msg to addr over UDP and repeats the query over TCP when
// the response was truncated. The exchange is abandoned as soon as ctx is done.
func Exchange(ctx context.Context, msg *dns.Msg, addr string, timeout time.Duration) (*dns.Msg, time.Duration, error) {
	resp, rtt, err := exchange(ctx, "udp", msg, addr, timeout)
	if err != nil || !resp.Truncated {
		return resp, rtt, err
	}
	return TCPExchange(ctx, msg, addr, timeout)
}

// TCPExchange sends msg to addr over TCP.
func TCPExchange(ctx context.Context, msg *dns.Msg, addr string, timeout time.Duration) (*dns.Msg, time.Duration, error) {
	return exchange(ctx, "tcp", msg, addr, timeout)
}

func exchange(ctx context.Context, network string, msg *dns.Msg, addr string, timeout time.Duration) (*dns.Msg, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	client := dns.Client{
		Net:     network,
		Timeout: timeout,
	}

	co, err := client.Dial(addr)
	if err != nil {
		return nil, 0, err
	}
	defer co.Close()

	// Closing the connection unblocks the pending read
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			_ = co.Close()
		case <-finished:
		}
	}()

	resp, rtt, err := client.ExchangeWithConn(msg, co)
	if cerr := ctx.Err(); cerr != nil {
		return nil, rtt, cerr
	}
	return resp, rtt, err
}
