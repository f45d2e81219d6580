// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package ocb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sixafter/ciphersuite/blockcipher"
)

func newOCB(t *testing.T, nonce []byte, opts ...Option) *OCB {
	t.Helper()
	block, err := blockcipher.NewAES(bytes.Repeat([]byte{0x77}, 16))
	require.NoError(t, err)
	o, err := New(block, DefaultTagSize, opts...)
	require.NoError(t, err)
	require.NoError(t, o.Initialize(bytes.Repeat([]byte{0x77}, 16), nonce))
	return o
}

func TestSealOpenRoundTripMultiBlock(t *testing.T) {
	nonce := bytes.Repeat([]byte{0x01}, 12)
	o := newOCB(t, nonce)
	require.NoError(t, o.SetAssociatedData([]byte("associated-data")))

	plaintext := bytes.Repeat([]byte{0x42}, 63) // 3 full blocks + 15-byte tail
	sealed, err := o.Seal(nil, plaintext)
	require.NoError(t, err)

	o2 := newOCB(t, nonce)
	require.NoError(t, o2.SetAssociatedData([]byte("associated-data")))
	opened, ok, err := o2.Open(nil, sealed)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, plaintext, opened)
}

func TestSealOpenRoundTripBlockAligned(t *testing.T) {
	nonce := bytes.Repeat([]byte{0x02}, 12)
	o := newOCB(t, nonce)
	plaintext := bytes.Repeat([]byte{0x09}, 48)
	sealed, err := o.Seal(nil, plaintext)
	require.NoError(t, err)

	o2 := newOCB(t, nonce)
	opened, ok, err := o2.Open(nil, sealed)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, plaintext, opened)
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	nonce := bytes.Repeat([]byte{0x03}, 12)
	o := newOCB(t, nonce)
	sealed, err := o.Seal(nil, []byte("a short message"))
	require.NoError(t, err)
	sealed[0] ^= 0xFF

	o2 := newOCB(t, nonce)
	_, ok, err := o2.Open(nil, sealed)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenRejectsWrongAssociatedData(t *testing.T) {
	nonce := bytes.Repeat([]byte{0x04}, 12)
	o := newOCB(t, nonce)
	require.NoError(t, o.SetAssociatedData([]byte("right")))
	sealed, err := o.Seal(nil, []byte("payload"))
	require.NoError(t, err)

	o2 := newOCB(t, nonce)
	require.NoError(t, o2.SetAssociatedData([]byte("wrong")))
	_, ok, err := o2.Open(nil, sealed)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEmptyPlaintextWithAssociatedData(t *testing.T) {
	nonce := bytes.Repeat([]byte{0x05}, 12)
	o := newOCB(t, nonce)
	require.NoError(t, o.SetAssociatedData([]byte("only-ad")))
	sealed, err := o.Seal(nil, nil)
	require.NoError(t, err)
	require.Len(t, sealed, DefaultTagSize)

	o2 := newOCB(t, nonce)
	require.NoError(t, o2.SetAssociatedData([]byte("only-ad")))
	opened, ok, err := o2.Open(nil, sealed)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, opened)
}

func TestNewRejectsOutOfRangeTagSize(t *testing.T) {
	block, err := blockcipher.NewAES(bytes.Repeat([]byte{0x77}, 16))
	require.NoError(t, err)
	_, err = New(block, 8)
	require.Error(t, err)
}

func TestInitializeRejectsRepeatedNonce(t *testing.T) {
	block, err := blockcipher.NewAES(bytes.Repeat([]byte{0x77}, 16))
	require.NoError(t, err)
	o, err := New(block, DefaultTagSize)
	require.NoError(t, err)
	nonce := bytes.Repeat([]byte{0x06}, 12)
	require.NoError(t, o.Initialize(bytes.Repeat([]byte{0x77}, 16), nonce))
	require.Error(t, o.Initialize(bytes.Repeat([]byte{0x77}, 16), nonce))
}

func TestSealRequiresInitialize(t *testing.T) {
	block, err := blockcipher.NewAES(bytes.Repeat([]byte{0x77}, 16))
	require.NoError(t, err)
	o, err := New(block, DefaultTagSize)
	require.NoError(t, err)
	_, err = o.Seal(nil, []byte("x"))
	require.Error(t, err)
}

// TestWithAutoIncrementBlockCountRoll exercises spec scenario S5: running
// Seal twice on the same block-aligned plaintext with auto_increment=true
// must roll the stored nonce between calls, so the two ciphertexts differ
// in every block despite encrypting identical plaintext.
func TestWithAutoIncrementBlockCountRoll(t *testing.T) {
	nonce := bytes.Repeat([]byte{0x00}, 12)
	o := newOCB(t, nonce, WithAutoIncrement(true))

	plaintext := bytes.Repeat([]byte{0x5a}, 48) // 3 full blocks, no tail
	sealed1, err := o.Seal(nil, plaintext)
	require.NoError(t, err)
	sealed2, err := o.Seal(nil, plaintext)
	require.NoError(t, err)

	require.NotEqual(t, sealed1, sealed2)
	ct1 := sealed1[:len(sealed1)-DefaultTagSize]
	ct2 := sealed2[:len(sealed2)-DefaultTagSize]
	for i := 0; i < len(ct1); i += 16 {
		require.NotEqual(t, ct1[i:i+16], ct2[i:i+16], "every block must differ after a nonce roll")
	}

	wantNonce := append([]byte(nil), nonce...)
	incrementBE(wantNonce) // one roll per Seal, two Seals
	incrementBE(wantNonce)
	require.Equal(t, wantNonce, o.nonce)

	o2 := newOCB(t, nonce, WithAutoIncrement(true))
	opened1, ok, err := o2.Open(nil, sealed1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, plaintext, opened1)

	opened2, ok, err := o2.Open(nil, sealed2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, plaintext, opened2)
}
