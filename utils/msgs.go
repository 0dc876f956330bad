// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"net"
	"strings"

	"github.com/miekg/dns"
)

// RemoveLastDot removes the '.' at the end of the provided FQDN.
func RemoveLastDot(name string) string {
	sz := len(name)
	if sz > 0 && name[sz-1] == '.' {
		return name[:sz-1]
	}
	return name
}

// QueryMsg generates a message used for a forward DNS query.
func QueryMsg(name string, qtype uint16) *dns.Msg {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true
	return m
}

// ReverseName returns the in-addr.arpa or ip6.arpa name of the IP address.
func ReverseName(addr string) (string, bool) {
	if net.ParseIP(addr) == nil {
		return "", false
	}

	r, err := dns.ReverseAddr(addr)
	if err != nil {
		return "", false
	}
	return r, true
}

// AnswersByType returns only the answers from the DNS Answer section matching the provided type.
func AnswersByType(msg *dns.Msg, qtype uint16) []dns.RR {
	var subset []dns.RR

	if len(msg.Answer) == 0 {
		return subset
	}

	for _, a := range msg.Answer {
		if a.Header().Rrtype == qtype {
			subset = append(subset, a)
		}
	}

	return subset
}

// PTRTargets returns the hostnames from the PTR records in the Answer section.
func PTRTargets(msg *dns.Msg) []string {
	var names []string

	for _, rr := range AnswersByType(msg, dns.TypePTR) {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, strings.ToLower(ptr.Ptr))
		}
	}
	return names
}
