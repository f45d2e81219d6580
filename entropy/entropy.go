// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package entropy defines the capability trait the DRBG family uses to
// reach outside entropy for instantiation and predictive-resistant
// reseeding. The OS entropy source itself (crypto/rand) is out of scope
// for this module beyond this one-line contract.
package entropy

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/sixafter/ciphersuite/cipherr"
)

// Provider is the capability trait for an entropy source.
type Provider interface {
	// GetBytes fills b entirely with fresh entropy or returns an error.
	GetBytes(b []byte) error
}

// OSProvider is a Provider backed by crypto/rand.Reader.
type OSProvider struct{}

// GetBytes fills b with bytes read from crypto/rand.Reader.
func (OSProvider) GetBytes(b []byte) error {
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return fmt.Errorf("%w: %v", cipherr.ErrBadRead, err)
	}
	return nil
}
