// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package reply models a single SMTP status reply: a three-digit code, an
// optional enhanced status code and a free-text message.
package reply

import (
	"io"
)

const crlf = "\r\n"

// Reply is an SMTP reply line. A Reply is owned by the session that created it
// and is not safe for concurrent use.
type Reply struct {
	command string
	code    StatusCode
	esc     EnhancedStatusCode
	message string
	hasMsg  bool

	// LeadingBlankLine causes Send to emit an empty line before the reply.
	LeadingBlankLine bool
}

// New returns a Reply populated with the provided code and message.
// An empty string leaves the corresponding part absent.
func New(code, message string) (*Reply, error) {
	r := new(Reply)

	if err := r.SetCode(code); err != nil {
		return nil, err
	}
	if message != "" {
		r.SetMessage(message)
	}
	return r, nil
}

// MustNew is like New but panics when the code is invalid.
func MustNew(code, message string) *Reply {
	r, err := New(code, message)
	if err != nil {
		panic(err)
	}
	return r
}

// ForCommand returns an unpopulated Reply tagged with the command it answers.
func ForCommand(command string) *Reply {
	return &Reply{command: command}
}

// Command returns the command tag provided at construction.
func (r *Reply) Command() string { return r.command }

// Code returns the reply code, or the empty string when absent.
func (r *Reply) Code() string { return string(r.code) }

// Class returns the class digit of the reply code, or zero when absent.
func (r *Reply) Class() byte { return r.code.Class() }

// SetCode validates and stores code. The empty string clears the code.
// The enhanced status code and the message are left untouched.
func (r *Reply) SetCode(code string) error {
	c, err := ParseStatusCode(code)
	if err != nil {
		return err
	}

	r.code = c
	return nil
}

// EnhancedStatusCode returns the effective enhanced status code, synchronized
// with the current reply code class. The empty string is returned when the
// reply has no code or the enhanced status code is suppressed.
func (r *Reply) EnhancedStatusCode() string {
	return r.esc.effective(r.code.Class())
}

// SetEnhancedStatusCode stores an explicit enhanced status code. The class
// digit of esc is ignored, since it is always derived from the reply code.
// The empty string restores the automatic code, including after suppression.
func (r *Reply) SetEnhancedStatusCode(esc string) error {
	e, err := ParseEnhancedStatusCode(esc)
	if err != nil {
		return err
	}

	r.esc = e
	return nil
}

// SuppressEnhancedStatusCode removes the enhanced status code from the message.
func (r *Reply) SuppressEnhancedStatusCode() {
	r.esc = SuppressedEnhancedStatusCode()
}

// Message returns the displayed message, prefixed by the effective enhanced
// status code when there is one. The empty string is returned when the reply
// has no message.
func (r *Reply) Message() string {
	if !r.hasMsg {
		return ""
	}

	if esc := r.EnhancedStatusCode(); esc != "" {
		return esc + " " + r.message
	}
	return r.message
}

// HasMessage reports whether a message has been set.
func (r *Reply) HasMessage() bool { return r.hasMsg }

// SetMessage stores text as the message. A leading enhanced status code,
// such as "2.1.0 Ok", is split off and stored as an explicit enhanced status
// code. Otherwise the current enhanced status code is kept.
func (r *Reply) SetMessage(text string) {
	if esc, rest, found := splitEnhancedStatusCode(text); found {
		r.esc = esc
		text = rest
	}

	r.message = text
	r.hasMsg = true
}

// ClearMessage removes the message and restores the automatic enhanced status code.
func (r *Reply) ClearMessage() {
	r.message = ""
	r.hasMsg = false
	r.esc = AutoEnhancedStatusCode()
}

// Copy overwrites the code, enhanced status code and message with those of
// other. The command tag is not copied.
func (r *Reply) Copy(other *Reply) *Reply {
	r.code = other.code
	r.esc = other.esc
	r.message = other.message
	r.hasMsg = other.hasMsg
	return r
}

// IsError reports whether the reply code signals a transient or permanent failure.
func (r *Reply) IsError() bool {
	switch r.code.Class() {
	case ClassTransientNegative, ClassPermanentNegative:
		return true
	}
	return false
}

// String returns the reply line without the line terminator.
func (r *Reply) String() string {
	return string(r.code) + " " + r.Message()
}

// Send writes the reply line to w using a single Write call.
func (r *Reply) Send(w io.Writer) error {
	if r.code.IsZero() || !r.hasMsg {
		return ErrNotPopulated
	}

	var line string
	if r.LeadingBlankLine {
		line = crlf
	}
	line += r.String() + crlf

	_, err := io.WriteString(w, line)
	return err
}
