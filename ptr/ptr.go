// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package ptr looks up the PTR record of an SMTP client address while the
// client's session proceeds. When the session needs the name before the
// lookup has finished, the lookup is abandoned instead of delaying the client.
package ptr

import (
	"context"
	"net"
	"time"

	"github.com/caffix/mtacore/logging"
	"github.com/caffix/mtacore/lookup"
	"github.com/caffix/mtacore/types"
	"github.com/caffix/mtacore/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Lookup asynchronously looks up the PTR record of an IP address.
type Lookup struct {
	res     types.Resolver
	log     logrus.FieldLogger
	bounded *lookup.Bounded[string]
}

// New returns a Lookup of ip that uses res for the query. Start must be
// called to initiate the lookup.
func New(res types.Resolver, ip string, logger logrus.FieldLogger, opts ...lookup.Option) *Lookup {
	if logger == nil {
		logger = logging.Discard()
	}

	l := &Lookup{
		res: res,
		log: logger,
	}
	opts = append([]lookup.Option{lookup.WithPanicHandler(l.recovered)}, opts...)
	l.bounded = lookup.New(ip, l.run, opts...)
	return l
}

// FromPeer returns a Lookup of the remote address of conn and the remote port.
func FromPeer(res types.Resolver, conn net.Conn, logger logrus.FieldLogger) (*Lookup, int) {
	return fromAddr(res, conn.RemoteAddr(), logger)
}

// FromLocal returns a Lookup of the local address of conn and the local port.
func FromLocal(res types.Resolver, conn net.Conn, logger logrus.FieldLogger) (*Lookup, int) {
	return fromAddr(res, conn.LocalAddr(), logger)
}

func fromAddr(res types.Resolver, addr net.Addr, logger logrus.FieldLogger) (*Lookup, int) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return New(res, a.IP.String(), logger), a.Port
	case *net.UDPAddr:
		return New(res, a.IP.String(), logger), a.Port
	}

	var port int
	host, p, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	} else if pn, err := net.LookupPort(addr.Network(), p); err == nil {
		port = pn
	}
	return New(res, host, logger), port
}

// IP returns the address being looked up.
func (l *Lookup) IP() string { return l.bounded.Key() }

// Start initiates the PTR lookup.
func (l *Lookup) Start() { l.bounded.Start() }

// Finish returns the hostname found by the PTR lookup. If runtime has not yet
// passed since Start, it blocks for at most the remaining time. For example,
// when 3.5 seconds have elapsed since Start and runtime is 5 seconds, Finish
// waits at most 1.5 seconds. Use lookup.NoBudget to wait for completion.
// The boolean result is false when no hostname is available.
func (l *Lookup) Finish(runtime time.Duration) (string, bool) {
	return l.bounded.Finish(runtime)
}

func (l *Lookup) run(ctx context.Context, ip string) (string, bool) {
	name, ok := utils.ReverseName(ip)
	if !ok {
		return "", false
	}

	names, err := l.res.LookupPTR(ctx, name)
	if err != nil {
		if !ignorable(ctx, err) {
			l.log.WithError(err).WithField("query", ip).Error("the PTR lookup failed")
		}
		return "", false
	}

	if len(names) == 0 || names[0] == "" {
		return "", false
	}
	return utils.RemoveLastDot(names[0]), true
}

func (l *Lookup) recovered(ip string, v interface{}) {
	l.log.WithField("query", ip).Errorf("the PTR lookup panicked: %v", v)
}

func ignorable(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
