// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package secutil provides the small set of helpers every cryptographic
// component in this module needs for handling secret material: constant-time
// comparison and secure zeroing.
package secutil

import "crypto/subtle"

// Zero overwrites b with zero bytes. It is used on every key, nonce, cache
// slot, and intermediate buffer that carries secret material once that
// material is no longer needed, so that a stale reference to the backing
// array cannot leak it.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare reports whether a and b are equal, in time
// independent of their contents. It returns false (not an error) when the
// lengths differ, mirroring crypto/subtle.ConstantTimeCompare.
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
