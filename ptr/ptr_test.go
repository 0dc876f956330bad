// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package ptr

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/caffix/mtacore/internal/dnstest"
	"github.com/caffix/mtacore/logging"
	"github.com/caffix/mtacore/lookup"
	"github.com/caffix/mtacore/resolver"
	"github.com/caffix/mtacore/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	sync.Mutex
	names   []string
	err     error
	delay   time.Duration
	queries []string
	aborted chan struct{}
}

func (f *fakeResolver) LookupPTR(ctx context.Context, name string) ([]string, error) {
	f.Lock()
	f.queries = append(f.queries, name)
	f.Unlock()

	select {
	case <-ctx.Done():
		if f.aborted != nil {
			close(f.aborted)
		}
		return nil, ctx.Err()
	case <-time.After(f.delay):
	}
	return f.names, f.err
}

func (f *fakeResolver) count() int {
	f.Lock()
	defer f.Unlock()

	return len(f.queries)
}

func TestFinish(t *testing.T) {
	res := &fakeResolver{names: []string{"mail.caffix.net."}}
	l := New(res, "192.0.2.1", nil)
	l.Start()

	name, ok := l.Finish(lookup.NoBudget)
	require.True(t, ok)
	assert.Equal(t, "mail.caffix.net", name)
	assert.Equal(t, []string{"1.2.0.192.in-addr.arpa."}, res.queries)

	// The second call returns the cached name without another query
	name, ok = l.Finish(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "mail.caffix.net", name)
	assert.Equal(t, 1, res.count())
}

func TestFinishRuntime(t *testing.T) {
	res := &fakeResolver{names: []string{"mail.caffix.net."}, delay: 20 * time.Millisecond}
	l := New(res, "192.0.2.1", nil)
	l.Start()

	name, ok := l.Finish(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "mail.caffix.net", name)
}

func TestFinishTimeout(t *testing.T) {
	res := &fakeResolver{names: []string{"slow.caffix.net."}, delay: time.Hour, aborted: make(chan struct{})}

	var buf bytes.Buffer
	l := New(res, "192.0.2.1", logging.New("debug", &buf))
	l.Start()

	name, ok := l.Finish(50 * time.Millisecond)
	assert.False(t, ok)
	assert.Equal(t, "", name)

	select {
	case <-res.aborted:
	case <-time.After(time.Second):
		t.Fatal("the PTR query was not cancelled")
	}
	// cancellation is not reported as a failure
	time.Sleep(10 * time.Millisecond)
	assert.NotContains(t, buf.String(), "PTR lookup failed")
}

func TestFinishElapsedBudget(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	res := &fakeResolver{delay: time.Hour, aborted: make(chan struct{})}
	l := New(res, "192.0.2.1", nil, lookup.WithClock(clock))
	l.Start()

	now = now.Add(10 * time.Second)
	begin := time.Now()
	_, ok := l.Finish(5 * time.Second)
	assert.False(t, ok)
	assert.Less(t, time.Since(begin), 100*time.Millisecond)
	<-res.aborted
}

func TestInvalidAddress(t *testing.T) {
	var buf bytes.Buffer
	res := &fakeResolver{names: []string{"never.caffix.net."}}
	l := New(res, "abcd", logging.New("debug", &buf))
	l.Start()

	_, ok := l.Finish(lookup.NoBudget)
	assert.False(t, ok)
	assert.Equal(t, 0, res.count())
	assert.Empty(t, buf.String())
}

func TestNotFound(t *testing.T) {
	var buf bytes.Buffer
	res := &fakeResolver{err: errors.Wrap(types.ErrNotFound, "NXDOMAIN")}
	l := New(res, "192.0.2.1", logging.New("debug", &buf))
	l.Start()

	_, ok := l.Finish(lookup.NoBudget)
	assert.False(t, ok)
	assert.Empty(t, buf.String())
}

func TestNoAnswers(t *testing.T) {
	l := New(&fakeResolver{}, "192.0.2.1", nil)
	l.Start()

	_, ok := l.Finish(lookup.NoBudget)
	assert.False(t, ok)
}

func TestQueryErrorLogged(t *testing.T) {
	var buf bytes.Buffer
	res := &fakeResolver{err: errors.Wrap(types.ErrNoResponse, "connection refused")}
	l := New(res, "192.0.2.1", logging.New("info", &buf))
	l.Start()

	_, ok := l.Finish(lookup.NoBudget)
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "query=192.0.2.1")
	assert.Contains(t, buf.String(), "level=error")
	assert.Contains(t, buf.String(), "connection refused")
}

type panicResolver struct{}

func (panicResolver) LookupPTR(ctx context.Context, name string) ([]string, error) {
	var cache map[string][]string
	cache[name] = []string{"mail.caffix.net."}
	return cache[name], nil
}

func TestResolverPanicLogged(t *testing.T) {
	var buf bytes.Buffer
	l := New(panicResolver{}, "192.0.2.1", logging.New("info", &buf))
	l.Start()

	name, ok := l.Finish(time.Second)
	assert.False(t, ok)
	assert.Empty(t, name)
	assert.Contains(t, buf.String(), "query=192.0.2.1")
	assert.Contains(t, buf.String(), "level=error")
	assert.Contains(t, buf.String(), "panicked")
}

func TestFromPeer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		if c, err := ln.Accept(); err == nil {
			_ = c.Close()
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	res := &fakeResolver{names: []string{"localhost."}}
	peer, port := FromPeer(res, conn, nil)
	assert.Equal(t, "127.0.0.1", peer.IP())
	assert.Equal(t, ln.Addr().(*net.TCPAddr).Port, port)

	local, lport := FromLocal(res, conn, nil)
	assert.Equal(t, "127.0.0.1", local.IP())
	assert.Equal(t, conn.LocalAddr().(*net.TCPAddr).Port, lport)
}

func TestWithResolverClient(t *testing.T) {
	s, addrstr, _, err := dnstest.RunLocalUDPServer("127.0.0.1:0",
		dnstest.WithHandler(dnstest.PTRHandler("Relay.Caffix.NET")))
	require.NoError(t, err)
	defer func() { _ = s.Shutdown() }()

	c, err := resolver.New(resolver.DefaultOptions(addrstr), nil)
	require.NoError(t, err)
	defer c.Stop()

	l := New(c, "2001:db8::25", nil)
	l.Start()

	name, ok := l.Finish(2 * time.Second)
	assert.True(t, ok)
	assert.Equal(t, "relay.caffix.net", name)
}

func TestWithResolverClientTimeout(t *testing.T) {
	release := make(chan struct{})
	s, addrstr, _, err := dnstest.RunLocalUDPServer("127.0.0.1:0", dnstest.WithHandler(
		dnstest.DelayedHandler(time.Hour, release, dnstest.PTRHandler("late.caffix.net"))))
	require.NoError(t, err)
	defer func() {
		close(release)
		_ = s.Shutdown()
	}()

	c, err := resolver.New(resolver.DefaultOptions(addrstr), nil)
	require.NoError(t, err)
	defer c.Stop()

	l := New(c, "192.0.2.25", nil)
	l.Start()

	begin := time.Now()
	_, ok := l.Finish(100 * time.Millisecond)
	assert.False(t, ok)
	assert.Less(t, time.Since(begin), time.Second)
}

var _ types.Resolver = (*fakeResolver)(nil)
