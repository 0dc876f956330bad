// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package reply

import "github.com/pkg/errors"

var (
	// ErrInvalidCode is returned when a reply code is not exactly three decimal digits.
	ErrInvalidCode = errors.New("invalid reply code")

	// ErrInvalidEnhancedStatusCode is returned when an enhanced status code
	// does not have the form class.subject.detail.
	ErrInvalidEnhancedStatusCode = errors.New("invalid enhanced status code")

	// ErrNotPopulated is returned by Send when the reply has no code or no message.
	ErrNotPopulated = errors.New("reply is not populated")
)
