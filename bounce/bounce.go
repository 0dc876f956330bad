// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package bounce builds the delivery failure report returned to the sender
// of a message that could not be delivered.
package bounce

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Reply is the failure that caused the bounce. Only the code and the
// message are read.
type Reply interface {
	Code() string
	Message() string
}

// Envelope describes the message that failed delivery.
type Envelope struct {
	Sender     string
	Recipients []string
	Receiver   string
	ClientName string
	ClientIP   string
}

// DefaultHeaderTemplate is placed before the original message data.
var DefaultHeaderTemplate = crlfLines(`From: MAILER-DAEMON
To: {sender}
Subject: Undelivered Mail Returned to Sender
Auto-Submitted: auto-replied
MIME-Version: 1.0
Content-Type: multipart/report; report-type=delivery-status;
    boundary="{boundary}"
Content-Transfer-Encoding: 7bit

This is a multi-part message in MIME format.

--{boundary}
Content-Type: text/plain

Delivery failed for:
- {recipients}

Destination host responded:
{code} {message}

--{boundary}
Content-Type: message/delivery-status

Remote-MTA: dns; {client_name} [{client_ip}]
Diagnostic-Code: smtp; {code} {message}

--{boundary}
Content-Type: {content_type}

`)

// DefaultFooterTemplate is placed after the original message data.
var DefaultFooterTemplate = crlfLines(`

--{boundary}--
`)

// RecipientJoin separates the recipients in the {recipients} key.
const RecipientJoin = "\r\n- "

// Builder renders bounce messages from its templates. The zero value uses
// the default templates.
type Builder struct {
	HeaderTemplate string
	FooterTemplate string
	// Client is recorded as the client of every bounce message.
	ClientName string
	ClientIP   string
	Now        func() time.Time
}

// Bounce is a report addressed to the sender of the failed message.
type Bounce struct {
	Sender     string
	Recipients []string
	Receiver   string
	ClientName string
	ClientIP   string
	Timestamp  time.Time
	Data       []byte
}

// Build renders the bounce of env caused by r. The original message data is
// attached, or only its header block when headersOnly is set.
func Build(env *Envelope, r Reply, original []byte, headersOnly bool) (*Bounce, error) {
	var b Builder
	return b.Build(env, r, original, headersOnly)
}

// Build renders the bounce of env caused by r using the builder templates.
func (b *Builder) Build(env *Envelope, r Reply, original []byte, headersOnly bool) (*Bounce, error) {
	if env == nil || r == nil {
		return nil, errors.New("a bounce requires an envelope and a reply")
	}
	if r.Code() == "" {
		return nil, errors.New("a bounce requires a reply code")
	}

	boundary, err := newBoundary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate the MIME boundary")
	}

	ctype := "message/rfc822"
	if headersOnly {
		ctype = "text/rfc822-headers"
		original = headerBlock(original)
	}

	sub := strings.NewReplacer(
		"{boundary}", boundary,
		"{sender}", env.Sender,
		"{recipients}", strings.Join(env.Recipients, RecipientJoin),
		"{client_name}", valueOr(env.ClientName, "unknown"),
		"{client_ip}", valueOr(env.ClientIP, "unknown"),
		"{dest_host}", "unknown",
		"{dest_port}", "unknown",
		"{protocol}", "SMTP",
		"{content_type}", ctype,
		"{code}", r.Code(),
		"{message}", r.Message(),
	)

	var data bytes.Buffer
	data.WriteString(sub.Replace(valueOr(b.HeaderTemplate, DefaultHeaderTemplate)))
	data.Write(original)
	data.WriteString(sub.Replace(valueOr(b.FooterTemplate, DefaultFooterTemplate)))

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	return &Bounce{
		Sender:     "",
		Recipients: []string{env.Sender},
		Receiver:   env.Receiver,
		ClientName: valueOr(b.ClientName, "postmaster"),
		ClientIP:   valueOr(b.ClientIP, "127.0.0.1"),
		Timestamp:  now(),
		Data:       data.Bytes(),
	}, nil
}

func newBoundary() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "boundary_=" + hex.EncodeToString(buf), nil
}

// headerBlock returns the message data up to and including the blank line
// that ends the header section.
func headerBlock(data []byte) []byte {
	for _, sep := range [][]byte{[]byte("\r\n\r\n"), []byte("\n\n")} {
		if i := bytes.Index(data, sep); i >= 0 {
			return data[:i+len(sep)]
		}
	}
	return data
}

func crlfLines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\n", "\r\n")
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
