// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package cipherr defines the sentinel error taxonomy shared by every
// package in this module. Every surface-level operation returns an error
// that wraps one of these sentinels with fmt.Errorf("%w: ...") so that
// callers can test the category with errors.Is, regardless of which
// package or construction produced the error.
package cipherr

import "errors"

var (
	// ErrInvalidParam is returned when a construction-time argument is
	// structurally invalid (nil pointer, zero-length slice where one is
	// required, an unrecognized mode enum).
	ErrInvalidParam = errors.New("cipherr: invalid parameter")

	// ErrInvalidKey is returned when a key does not match one of a
	// component's legal key sizes.
	ErrInvalidKey = errors.New("cipherr: invalid key size")

	// ErrInvalidNonce is returned when a nonce is missing, the wrong
	// length, or reused in a way the component can detect.
	ErrInvalidNonce = errors.New("cipherr: invalid nonce")

	// ErrInvalidSize is returned when an input or output buffer has the
	// wrong length for the requested operation.
	ErrInvalidSize = errors.New("cipherr: invalid size")

	// ErrNotInitialized is returned when an operation is attempted on a
	// component that has not completed Initialize.
	ErrNotInitialized = errors.New("cipherr: not initialized")

	// ErrIllegalOperation is the category for an operation attempted in a
	// state that forbids it. No function in this module returns it: an
	// exhausted HKDS key cache reports ErrMaxExceeded, and a key cache that
	// was never generated reports ErrNotInitialized.
	ErrIllegalOperation = errors.New("cipherr: illegal operation")

	// ErrMaxExceeded is returned when a component's hard operational
	// ceiling is reached (max request size, max reseed count, max output
	// per key, key cache exhaustion).
	ErrMaxExceeded = errors.New("cipherr: maximum exceeded")

	// ErrBadRead is returned when an entropy source or transport fails to
	// return the number of bytes requested.
	ErrBadRead = errors.New("cipherr: bad read")

	// ErrNotFound is returned when a lookup (e.g. resolving a DID to a
	// mode) fails to find a matching entry.
	ErrNotFound = errors.New("cipherr: not found")

	// ErrNotSupported is returned when a requested configuration is
	// structurally valid but not supported by this build or platform.
	ErrNotSupported = errors.New("cipherr: not supported")
)
