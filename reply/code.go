// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package reply

import (
	"regexp"

	"github.com/pkg/errors"
)

// Reply code classes (RFC 5321 §4.2.1).
const (
	ClassPositiveCompletion   byte = '2'
	ClassPositiveIntermediate byte = '3'
	ClassTransientNegative    byte = '4'
	ClassPermanentNegative    byte = '5'
)

var codeRE = regexp.MustCompile(`^[0-9]{3}$`)

// StatusCode is a three-digit reply code. The zero value is the absent code.
type StatusCode string

// ParseStatusCode validates s. The empty string yields the absent code.
func ParseStatusCode(s string) (StatusCode, error) {
	if s != "" && !codeRE.MatchString(s) {
		return "", errors.Wrapf(ErrInvalidCode, "%q", s)
	}
	return StatusCode(s), nil
}

// Class returns the first digit of the code, or zero when the code is absent.
func (c StatusCode) Class() byte {
	if c == "" {
		return 0
	}
	return c[0]
}

// IsZero reports whether the code is absent.
func (c StatusCode) IsZero() bool { return c == "" }

func (c StatusCode) String() string { return string(c) }
