// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package resolver implements the DNS client shared by every lookup performed
// while SMTP sessions are handled.
package resolver

import (
	"context"
	"math/rand"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/caffix/mtacore/logging"
	"github.com/caffix/mtacore/types"
	"github.com/caffix/mtacore/utils"
	"github.com/caffix/stringset"
	"github.com/miekg/dns"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultBackoffDelay is the base delay between two attempts of a query.
const DefaultBackoffDelay = 50 * time.Millisecond

// DefaultMaxBackoff bounds the delay between two attempts of a query.
const DefaultMaxBackoff = time.Second

var (
	_ types.Resolver  = (*Client)(nil)
	_ types.Exchanger = (*Client)(nil)
)

// Options holds the query behavior of a Client.
type Options struct {
	Servers       []string
	Timeout       time.Duration
	QPS           int
	Attempts      int
	RetryServFail bool
	BackoffDelay  time.Duration
	MaxBackoff    time.Duration
}

// DefaultOptions returns the options used for servers when nothing else is configured.
func DefaultOptions(servers ...string) Options {
	return Options{
		Servers:       servers,
		Timeout:       types.DefaultTimeout,
		Attempts:      DefaultAttempts,
		RetryServFail: true,
		BackoffDelay:  DefaultBackoffDelay,
		MaxBackoff:    DefaultMaxBackoff,
	}
}

// Client sends DNS queries to a set of nameservers selected at random.
// A Client is safe for concurrent use.
type Client struct {
	done       chan struct{}
	stopOnce   sync.Once
	log        logrus.FieldLogger
	servers    []*nameserver
	rate       *rate.Limiter
	timeout    time.Duration
	attempts   int
	servfail   bool
	delay      time.Duration
	maxBackoff time.Duration
}

// New returns a Client for the nameservers in opts.
func New(opts Options, logger logrus.FieldLogger) (*Client, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	set := stringset.New()
	defer set.Close()

	for _, addr := range opts.Servers {
		if addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			addr = net.JoinHostPort(addr, "53")
		}
		set.Insert(addr)
	}

	addrs := set.Slice()
	sort.Strings(addrs)

	var servers []*nameserver
	for _, addr := range addrs {
		ns := newNameserver(addr)
		if ns == nil {
			return nil, errors.Errorf("invalid nameserver address: %s", addr)
		}
		servers = append(servers, ns)
	}
	if len(servers) == 0 {
		return nil, errors.New("no nameservers were provided")
	}

	limit := rate.Inf
	if opts.QPS > 0 {
		limit = rate.Limit(opts.QPS)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = types.DefaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.BackoffDelay <= 0 {
		opts.BackoffDelay = DefaultBackoffDelay
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}

	return &Client{
		done:       make(chan struct{}),
		log:        logger,
		servers:    servers,
		rate:       rate.NewLimiter(limit, 1),
		timeout:    opts.Timeout,
		attempts:   opts.Attempts,
		servfail:   opts.RetryServFail,
		delay:      opts.BackoffDelay,
		maxBackoff: opts.MaxBackoff,
	}, nil
}

// Stop will release resources used by the client.
func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Servers returns the addresses of the nameservers used by the client.
func (c *Client) Servers() []string {
	addrs := make([]string, 0, len(c.servers))
	for _, ns := range c.servers {
		addrs = append(addrs, ns.addr)
	}
	return addrs
}

// performs random selection on the pool of nameservers
func (c *Client) get() *nameserver {
	if l := len(c.servers); l == 1 {
		return c.servers[0]
	}
	return c.servers[rand.Intn(len(c.servers))]
}

// Exchange sends the DNS message and returns the response message. The query
// is sent again, possibly to another nameserver, as allowed by RetryPolicy.
func (c *Client) Exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error) {
	if msg == nil || len(msg.Question) == 0 {
		return nil, errors.Wrap(types.ErrNoResponse, "the query has no question")
	}
	name := msg.Question[0].Name

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.done:
			return nil, errors.Wrap(types.ErrNoResponse, "the client has been stopped")
		default:
		}

		ns := c.get()
		resp, err := c.send(ctx, msg, ns)
		if err != nil {
			return nil, err
		}

		if !RetryPolicy(attempt, c.attempts, resp, c.servfail) {
			if resp.Rcode == types.RcodeNoResponse {
				return nil, errors.Wrapf(types.ErrNoResponse, "%s after %d attempts", name, attempt)
			}
			return resp, nil
		}

		c.log.WithFields(logrus.Fields{
			"server":  ns.addr,
			"name":    name,
			"rcode":   rcodeString(resp.Rcode),
			"attempt": attempt,
		}).Debug("retrying the DNS query")

		t := time.NewTimer(c.backoff(ctx, attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// send performs a single exchange. Only context errors are returned, every
// other failure is reported as a response carrying RcodeNoResponse.
func (c *Client) send(ctx context.Context, msg *dns.Msg, ns *nameserver) (*dns.Msg, error) {
	if err := c.rate.Wait(ctx); err != nil {
		return nil, contextErr(ctx, err)
	}
	if err := ns.rate.Take(ctx); err != nil {
		return nil, contextErr(ctx, err)
	}

	m := msg.Copy()
	m.Id = dns.Id()

	resp, rtt, err := utils.Exchange(ctx, m, ns.addr, c.timeout)
	if err != nil || resp == nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		m.Rcode = types.RcodeNoResponse
		return m, nil
	}

	ns.rate.ReportRTT(rtt)
	return resp, nil
}

// LookupPTR implements the types.Resolver interface.
func (c *Client) LookupPTR(ctx context.Context, name string) ([]string, error) {
	resp, err := c.Exchange(ctx, utils.QueryMsg(name, dns.TypePTR))
	if err != nil {
		return nil, err
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return utils.PTRTargets(resp), nil
	case dns.RcodeNameError:
		return nil, types.ErrNotFound
	}
	return nil, errors.Wrapf(types.ErrNoResponse, "%s returned %s", name, rcodeString(resp.Rcode))
}

func contextErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	// the limiter fails early when the deadline cannot be met
	return context.DeadlineExceeded
}

func rcodeString(rcode int) string {
	if rcode == types.RcodeNoResponse {
		return "NORESPONSE"
	}
	if s, ok := dns.RcodeToString[rcode]; ok {
		return s
	}
	return "UNKNOWN"
}
