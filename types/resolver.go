// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"context"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

// RcodeNoResponse is a special status code used to indicate no response or package error.
const RcodeNoResponse int = 50

// DefaultTimeout is the duration waited until a DNS query expires.
const DefaultTimeout = 2 * time.Second

var (
	// ErrNotFound is returned when the queried name does not exist.
	ErrNotFound = errors.New("name not found")

	// ErrNoResponse is returned when no usable response was received.
	ErrNoResponse = errors.New("no response received")
)

// Resolver is the name resolution client shared by all lookups.
// Implementations must be safe for concurrent use.
type Resolver interface {
	// LookupPTR returns the PTR targets of the reverse name, such as
	// "1.2.0.192.in-addr.arpa.". ErrNotFound is returned for NXDOMAIN.
	LookupPTR(ctx context.Context, name string) ([]string, error)
}

// Exchanger sends a DNS message and returns the response.
type Exchanger interface {
	Exchange(ctx context.Context, msg *dns.Msg) (*dns.Msg, error)
}
