// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package auth verifies SMTP AUTH credentials against a fixed table.
package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrCredentialsInvalid is returned when the username or secret is wrong.
	ErrCredentialsInvalid = errors.New("authentication credentials invalid")

	// ErrSecretUnavailable is returned by Secret when the verifier only verifies.
	ErrSecretUnavailable = errors.New("secret retrieval is not supported")
)

// Option configures a Verifier.
type Option func(*Verifier)

// LowerCase makes usernames case-insensitive by lower-casing them before lookup.
func LowerCase() Option {
	return func(v *Verifier) { v.lower = true }
}

// OnlyVerify disables Secret, and with it mechanisms such as CRAM-MD5.
func OnlyVerify() Option {
	return func(v *Verifier) { v.onlyVerify = true }
}

// Verifier checks credentials against a username to secret table.
// It is safe for concurrent use.
type Verifier struct {
	creds      map[string]string
	lower      bool
	onlyVerify bool
}

// FromMap returns a Verifier for the provided table. The table is copied.
func FromMap(creds map[string]string, opts ...Option) *Verifier {
	v := &Verifier{creds: make(map[string]string, len(creds))}
	for _, opt := range opts {
		opt(v)
	}

	for user, secret := range creds {
		v.creds[v.username(user)] = secret
	}
	return v
}

func (v *Verifier) username(authcid string) string {
	if v.lower {
		return strings.ToLower(authcid)
	}
	return authcid
}

// Verify checks secret for authcid and returns the authenticated username.
func (v *Verifier) Verify(authcid, secret string) (string, error) {
	user := v.username(authcid)

	expected, found := v.creds[user]

	if !found || subtle.ConstantTimeCompare([]byte(expected), []byte(secret)) != 1 {
		return "", ErrCredentialsInvalid
	}
	return user, nil
}

// Secret returns the stored secret of authcid and the username it maps to.
func (v *Verifier) Secret(authcid string) (string, string, error) {
	if v.onlyVerify {
		return "", "", ErrSecretUnavailable
	}

	user := v.username(authcid)

	secret, found := v.creds[user]

	if !found {
		return "", "", ErrCredentialsInvalid
	}
	return secret, user, nil
}

// CanRetrieveSecret reports whether Secret is supported.
func (v *Verifier) CanRetrieveSecret() bool { return !v.onlyVerify }
