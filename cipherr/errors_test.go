// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package cipherr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelsAreDistinct(t *testing.T) {
	all := []error{
		ErrInvalidParam, ErrInvalidKey, ErrInvalidNonce, ErrInvalidSize,
		ErrNotInitialized, ErrIllegalOperation, ErrMaxExceeded, ErrBadRead,
		ErrNotFound, ErrNotSupported,
	}
	for i, e1 := range all {
		for j, e2 := range all {
			if i == j {
				continue
			}
			require.False(t, errors.Is(e1, e2), "%v should not be %v", e1, e2)
		}
	}
}

func TestWrappedSentinelMatchesIs(t *testing.T) {
	wrapped := fmt.Errorf("%w: extra context", ErrInvalidKey)
	require.True(t, errors.Is(wrapped, ErrInvalidKey))
	require.False(t, errors.Is(wrapped, ErrInvalidNonce))
}
