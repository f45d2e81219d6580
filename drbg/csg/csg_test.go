// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package csg

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sixafter/ciphersuite/xof"
)

// TestS1CShakeKATSHAKE128 reproduces the NIST SP 800-185 cSHAKE128 sample
// #2 known-answer vector: message 00010203, customization string "Email
// Signature", empty function name, squeezed to 32 bytes.
func TestS1CShakeKATSHAKE128(t *testing.T) {
	seed, err := hex.DecodeString("00010203")
	require.NoError(t, err)
	custom := []byte("Email Signature")
	want, err := hex.DecodeString("C1C36925B6409A04F1B504FCBCA9D82B4017277CB5ED2B2065FC1D3814D5AAF5")
	require.NoError(t, err)

	g, err := New(xof.SHAKE128, nil)
	require.NoError(t, err)
	require.NoError(t, g.Initialize(seed, custom, nil))

	got := make([]byte, 32)
	require.NoError(t, g.Generate(got))
	require.Equal(t, want, got)
}

// TestS2CShakeKATSHAKE256 reproduces the NIST SP 800-185 cSHAKE256 sample
// #2 known-answer vector: a 200-byte counting-up message, the same
// customization string as S1, squeezed to 64 bytes.
func TestS2CShakeKATSHAKE256(t *testing.T) {
	seed := make([]byte, 200)
	for i := range seed {
		seed[i] = byte(i)
	}
	custom := []byte("Email Signature")
	want, err := hex.DecodeString("07DC27B11E51FBAC75BC7B3C1D983E8B4B85FB1DEFAF218912AC86430273091727F42B17ED1DF63E8EC118F04B23633C1DFB1574C8FB55CB45DA8E25AFB092BB")
	require.NoError(t, err)

	g, err := New(xof.SHAKE256, nil)
	require.NoError(t, err)
	require.NoError(t, g.Initialize(seed, custom, nil))

	got := make([]byte, 64)
	require.NoError(t, g.Generate(got))
	require.Equal(t, want, got)
}

func TestGenerateDeterministicForFixedSeed(t *testing.T) {
	seed := bytes.Repeat([]byte{0x01}, 32)

	g1, err := New(xof.SHAKE256, nil)
	require.NoError(t, err)
	require.NoError(t, g1.Initialize(seed, nil, nil))
	out1 := make([]byte, 64)
	require.NoError(t, g1.Generate(out1))

	g2, err := New(xof.SHAKE256, nil)
	require.NoError(t, err)
	require.NoError(t, g2.Initialize(seed, nil, nil))
	out2 := make([]byte, 64)
	require.NoError(t, g2.Generate(out2))

	require.Equal(t, out1, out2)
}

func TestGenerateProducesStreamingOutput(t *testing.T) {
	g, err := New(xof.SHAKE128, nil)
	require.NoError(t, err)
	require.NoError(t, g.Initialize(bytes.Repeat([]byte{0x02}, 32), nil, nil))

	a := make([]byte, 32)
	b := make([]byte, 32)
	require.NoError(t, g.Generate(a))
	require.NoError(t, g.Generate(b))
	require.NotEqual(t, a, b)
}

func TestGenerateRequiresInitialize(t *testing.T) {
	g, err := New(xof.SHAKE256, nil)
	require.NoError(t, err)
	err = g.Generate(make([]byte, 16))
	require.Error(t, err)
}

func TestInitializeRejectsEmptySeed(t *testing.T) {
	g, err := New(xof.SHAKE256, nil)
	require.NoError(t, err)
	require.Error(t, g.Initialize(nil, nil, nil))
}

func TestDistinctNonceProducesDistinctOutput(t *testing.T) {
	seed := bytes.Repeat([]byte{0x03}, 64)

	g1, err := New(xof.SHAKE256, nil)
	require.NoError(t, err)
	require.NoError(t, g1.Initialize(seed, []byte("nonce-a"), []byte("info")))
	out1 := make([]byte, 32)
	require.NoError(t, g1.Generate(out1))

	g2, err := New(xof.SHAKE256, nil)
	require.NoError(t, err)
	require.NoError(t, g2.Initialize(seed, []byte("nonce-b"), []byte("info")))
	out2 := make([]byte, 32)
	require.NoError(t, g2.Generate(out2))

	require.NotEqual(t, out1, out2)
}
