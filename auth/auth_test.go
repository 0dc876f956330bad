// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var table = map[string]string{"Alice": "secret1", "bob": "secret2"}

func TestVerify(t *testing.T) {
	v := FromMap(table)

	user, err := v.Verify("Alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user)

	_, err = v.Verify("alice", "secret1")
	assert.ErrorIs(t, err, ErrCredentialsInvalid)
	_, err = v.Verify("bob", "wrong")
	assert.ErrorIs(t, err, ErrCredentialsInvalid)
	_, err = v.Verify("carol", "")
	assert.ErrorIs(t, err, ErrCredentialsInvalid)
}

func TestVerifyLowerCase(t *testing.T) {
	v := FromMap(table, LowerCase())

	user, err := v.Verify("ALICE", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user)

	user, err = v.Verify("Bob", "secret2")
	require.NoError(t, err)
	assert.Equal(t, "bob", user)
}

func TestSecret(t *testing.T) {
	v := FromMap(table)
	require.True(t, v.CanRetrieveSecret())

	secret, user, err := v.Secret("bob")
	require.NoError(t, err)
	assert.Equal(t, "secret2", secret)
	assert.Equal(t, "bob", user)

	_, _, err = v.Secret("carol")
	assert.ErrorIs(t, err, ErrCredentialsInvalid)
}

func TestOnlyVerify(t *testing.T) {
	v := FromMap(table, OnlyVerify())
	assert.False(t, v.CanRetrieveSecret())

	_, _, err := v.Secret("bob")
	assert.ErrorIs(t, err, ErrSecretUnavailable)

	_, err = v.Verify("bob", "secret2")
	assert.NoError(t, err)
}

func TestTableCopied(t *testing.T) {
	creds := map[string]string{"dave": "pw"}
	v := FromMap(creds)
	creds["dave"] = "changed"

	_, err := v.Verify("dave", "pw")
	assert.NoError(t, err)
}
