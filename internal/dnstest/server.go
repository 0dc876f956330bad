// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package dnstest runs in-process DNS servers for tests.
package dnstest

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
)

// RunLocalUDPServer starts a DNS server on a UDP socket bound to laddr.
func RunLocalUDPServer(laddr string, opts ...func(*dns.Server)) (*dns.Server, string, chan error, error) {
	pc, err := net.ListenPacket("udp", laddr)
	if err != nil {
		return nil, "", nil, err
	}
	return RunLocalServer(pc, nil, opts...)
}

// RunLocalTCPServer starts a DNS server on a TCP listener bound to laddr.
func RunLocalTCPServer(laddr string, opts ...func(*dns.Server)) (*dns.Server, string, chan error, error) {
	l, err := net.Listen("tcp", laddr)
	if err != nil {
		return nil, "", nil, err
	}
	return RunLocalServer(nil, l, opts...)
}

// RunLocalServer serves DNS on the packet conn or the listener provided.
func RunLocalServer(pc net.PacketConn, l net.Listener, opts ...func(*dns.Server)) (*dns.Server, string, chan error, error) {
	server := &dns.Server{
		PacketConn: pc,
		Listener:   l,

		ReadTimeout:  time.Hour,
		WriteTimeout: time.Hour,
	}

	waitLock := sync.Mutex{}
	waitLock.Lock()
	server.NotifyStartedFunc = waitLock.Unlock

	for _, opt := range opts {
		opt(server)
	}

	var (
		addr   string
		closer io.Closer
	)
	if l != nil {
		addr = l.Addr().String()
		closer = l
	} else {
		addr = pc.LocalAddr().String()
		closer = pc
	}
	// fin must be buffered so the goroutine below won't block
	// forever if fin is never read from.
	fin := make(chan error, 1)

	go func() {
		fin <- server.ActivateAndServe()
		closer.Close()
	}()

	waitLock.Lock()
	return server, addr, fin, nil
}

// WithHandler makes the server use h instead of dns.DefaultServeMux.
func WithHandler(h dns.Handler) func(*dns.Server) {
	return func(s *dns.Server) {
		s.Handler = h
	}
}

// PTRHandler answers every query with a PTR record pointing to target.
func PTRHandler(target string) dns.HandlerFunc {
	return func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)

		m.Answer = []dns.RR{&dns.PTR{
			Hdr: dns.RR_Header{
				Name:   m.Question[0].Name,
				Rrtype: dns.TypePTR,
				Class:  dns.ClassINET,
				Ttl:    0,
			},
			Ptr: dns.Fqdn(target),
		}}
		_ = w.WriteMsg(m)
	}
}

// RcodeHandler answers every query with an empty response carrying rcode.
func RcodeHandler(rcode int) dns.HandlerFunc {
	return func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(req, rcode)
		_ = w.WriteMsg(m)
	}
}

// SilentHandler never answers.
func SilentHandler(w dns.ResponseWriter, req *dns.Msg) {}

// DelayedHandler waits for delay, or until release is closed, before calling next.
func DelayedHandler(delay time.Duration, release <-chan struct{}, next dns.HandlerFunc) dns.HandlerFunc {
	return func(w dns.ResponseWriter, req *dns.Msg) {
		t := time.NewTimer(delay)
		defer t.Stop()

		select {
		case <-t.C:
		case <-release:
			return
		}
		next(w, req)
	}
}
