// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package blockcipher

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAESRejectsBadKeySize(t *testing.T) {
	_, err := NewAES(make([]byte, 10))
	require.Error(t, err)
}

func TestNewAESRoundTrip(t *testing.T) {
	for _, ks := range []int{16, 24, 32} {
		b, err := NewAES(make([]byte, ks))
		require.NoError(t, err)
		require.Equal(t, 16, b.BlockSize())

		pt := bytes.Repeat([]byte{0x42}, 16)
		ct := make([]byte, 16)
		b.EncryptBlock(ct, pt)
		require.NotEqual(t, pt, ct)

		back := make([]byte, 16)
		b.DecryptBlock(back, ct)
		require.Equal(t, pt, back)
	}
}

func TestEncryptBlocksMatchesPerBlock(t *testing.T) {
	b, err := NewAES(make([]byte, 32))
	require.NoError(t, err)

	pt := bytes.Repeat([]byte{0x01}, 48)
	batched := make([]byte, 48)
	b.EncryptBlocks(batched, pt)

	sequential := make([]byte, 48)
	for off := 0; off < 48; off += 16 {
		b.EncryptBlock(sequential[off:off+16], pt[off:off+16])
	}
	require.Equal(t, sequential, batched)
}
