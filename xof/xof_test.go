// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package xof

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCShakeDeterministic(t *testing.T) {
	for _, mode := range []Mode{SHAKE128, SHAKE256, SHAKE512, SHAKE1024} {
		x1, err := NewCShake(mode)
		require.NoError(t, err)
		require.NoError(t, x1.Absorb([]byte("seed-material"), []byte("name"), []byte("custom")))
		out1 := make([]byte, 64)
		require.NoError(t, x1.Squeeze(out1))

		x2, err := NewCShake(mode)
		require.NoError(t, err)
		require.NoError(t, x2.Absorb([]byte("seed-material"), []byte("name"), []byte("custom")))
		out2 := make([]byte, 64)
		require.NoError(t, x2.Squeeze(out2))

		require.Equal(t, out1, out2, "mode %v must be deterministic", mode)
	}
}

func TestCShakeDifferentCustomizationDiffers(t *testing.T) {
	x1, err := NewCShake(SHAKE256)
	require.NoError(t, err)
	require.NoError(t, x1.Absorb([]byte("seed"), []byte("n1"), []byte("c1")))
	out1 := make([]byte, 32)
	require.NoError(t, x1.Squeeze(out1))

	x2, err := NewCShake(SHAKE256)
	require.NoError(t, err)
	require.NoError(t, x2.Absorb([]byte("seed"), []byte("n2"), []byte("c2")))
	out2 := make([]byte, 32)
	require.NoError(t, x2.Squeeze(out2))

	require.NotEqual(t, out1, out2)
}

func TestCShakeRejectsEmptyKey(t *testing.T) {
	x, err := NewCShake(SHAKE128)
	require.NoError(t, err)
	require.Error(t, x.Absorb(nil, nil, nil))
}

func TestModeRateAndStrength(t *testing.T) {
	require.Equal(t, 168, SHAKE128.Rate())
	require.Equal(t, 136, SHAKE256.Rate())
	require.Equal(t, 72, SHAKE512.Rate())
	require.Equal(t, 128, SHAKE128.SecurityStrength())
	require.Equal(t, 1024, SHAKE1024.SecurityStrength())
}
