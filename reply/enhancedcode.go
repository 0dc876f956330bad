// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package reply

import (
	"regexp"

	"github.com/pkg/errors"
)

type escMode int

const (
	escAuto escMode = iota
	escOverride
	escSuppressed
)

var (
	escRE       = regexp.MustCompile(`^[0-9]\.([0-9]+)\.([0-9]+)$`)
	escPrefixRE = regexp.MustCompile(`(?s)^[0-9]\.([0-9]+)\.([0-9]+)\s+(.*)$`)
)

// EnhancedStatusCode is the class.subject.detail triplet (RFC 3463) attached
// to a reply. Only the subject and detail are stored; the class is always
// taken from the reply code at the time the value is read.
// The zero value is the automatic code, "<class>.0.0".
type EnhancedStatusCode struct {
	mode    escMode
	subject string
	detail  string
}

// AutoEnhancedStatusCode returns the automatic enhanced status code.
func AutoEnhancedStatusCode() EnhancedStatusCode {
	return EnhancedStatusCode{}
}

// SuppressedEnhancedStatusCode returns an enhanced status code that is never displayed.
func SuppressedEnhancedStatusCode() EnhancedStatusCode {
	return EnhancedStatusCode{mode: escSuppressed}
}

// ParseEnhancedStatusCode parses s. The empty string yields the automatic code.
func ParseEnhancedStatusCode(s string) (EnhancedStatusCode, error) {
	if s == "" {
		return AutoEnhancedStatusCode(), nil
	}

	m := escRE.FindStringSubmatch(s)
	if m == nil {
		return EnhancedStatusCode{}, errors.Wrapf(ErrInvalidEnhancedStatusCode, "%q", s)
	}
	return EnhancedStatusCode{mode: escOverride, subject: m[1], detail: m[2]}, nil
}

// splitEnhancedStatusCode separates a leading "x.y.z " prefix from text.
func splitEnhancedStatusCode(text string) (EnhancedStatusCode, string, bool) {
	m := escPrefixRE.FindStringSubmatch(text)
	if m == nil {
		return EnhancedStatusCode{}, text, false
	}
	return EnhancedStatusCode{mode: escOverride, subject: m[1], detail: m[2]}, m[3], true
}

// effective returns the displayed code for the provided class digit, or the
// empty string when there is nothing to display.
func (e EnhancedStatusCode) effective(class byte) string {
	if class == 0 {
		return ""
	}

	switch e.mode {
	case escOverride:
		return string(class) + "." + e.subject + "." + e.detail
	case escSuppressed:
		return ""
	}
	return string(class) + ".0.0"
}
