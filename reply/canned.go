// Copyright © by Jeff Foley 2017-2025. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package reply

// TimedOut returns the reply used when the remote host stops responding.
func TimedOut() *Reply {
	return MustNew("451", "4.4.2 Timed out")
}

// ConnectionFailed returns the reply used when a connection cannot be established.
func ConnectionFailed() *Reply {
	return MustNew("451", "4.3.0 Connection failed")
}

// UnhandledError returns the reply used when an unexpected error aborts a
// transaction. The error text becomes part of the message.
func UnhandledError(err error) *Reply {
	r := MustNew("421", "")
	r.SetMessage("4.3.0 " + err.Error())
	return r
}
