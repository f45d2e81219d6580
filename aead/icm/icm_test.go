// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package icm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sixafter/ciphersuite/blockcipher"
)

func newMode(t *testing.T) *CounterMode {
	t.Helper()
	block, err := blockcipher.NewAES(bytes.Repeat([]byte{0x2b}, 32))
	require.NoError(t, err)
	mode, err := New(block)
	require.NoError(t, err)
	return mode
}

func TestTransformIsInvolution(t *testing.T) {
	mode := newMode(t)
	require.NoError(t, mode.Initialize(make([]byte, 16)))

	plaintext := bytes.Repeat([]byte{0x11}, 1000)
	ciphertext := make([]byte, len(plaintext))
	require.NoError(t, mode.Transform(ciphertext, plaintext))
	require.NotEqual(t, plaintext, ciphertext)

	mode2 := newMode(t)
	require.NoError(t, mode2.Initialize(make([]byte, 16)))
	recovered := make([]byte, len(ciphertext))
	require.NoError(t, mode2.Transform(recovered, ciphertext))
	require.Equal(t, plaintext, recovered)
}

func TestTransformRequiresInitialize(t *testing.T) {
	mode := newMode(t)
	err := mode.Transform(make([]byte, 16), make([]byte, 16))
	require.Error(t, err)
}

func TestTransformRejectsLengthMismatch(t *testing.T) {
	mode := newMode(t)
	require.NoError(t, mode.Initialize(make([]byte, 16)))
	err := mode.Transform(make([]byte, 15), make([]byte, 16))
	require.Error(t, err)
}

func TestParallelMatchesSequential(t *testing.T) {
	mode := newMode(t)
	require.NoError(t, mode.Initialize(make([]byte, 16)))
	require.NoError(t, mode.Profile().SetMaxDegree(2))

	large := bytes.Repeat([]byte{0xAB}, mode.Profile().ParallelMinimumSize()*4+7)
	parallelOut := make([]byte, len(large))
	require.NoError(t, mode.Transform(parallelOut, large))

	seqMode := newMode(t)
	require.NoError(t, seqMode.Initialize(make([]byte, 16)))
	require.NoError(t, seqMode.Profile().Calculate(false, seqMode.Profile().ParallelBlockSize(), seqMode.Profile().MaxDegree()))
	seqOut := make([]byte, len(large))
	require.NoError(t, seqMode.Transform(seqOut, large))

	require.Equal(t, seqOut, parallelOut)
}

func TestEmptyTransformIsNoop(t *testing.T) {
	mode := newMode(t)
	require.NoError(t, mode.Initialize(make([]byte, 16)))
	require.NoError(t, mode.Transform(nil, nil))
}
