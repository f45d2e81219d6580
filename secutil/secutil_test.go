// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package secutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	Zero(b)
	for _, v := range b {
		require.Equal(t, byte(0), v)
	}
}

func TestConstantTimeCompare(t *testing.T) {
	require.True(t, ConstantTimeCompare([]byte("abc"), []byte("abc")))
	require.False(t, ConstantTimeCompare([]byte("abc"), []byte("abd")))
	require.False(t, ConstantTimeCompare([]byte("abc"), []byte("ab")))
}

func TestKeyRoundTrip(t *testing.T) {
	k := NewKey([]byte("key-material"), []byte("nonce"), []byte("info"))
	data, err := k.MarshalBinary()
	require.NoError(t, err)

	var k2 Key
	require.NoError(t, k2.UnmarshalBinary(data))
	require.Equal(t, k.Key(), k2.Key())
	require.Equal(t, k.Nonce(), k2.Nonce())
	require.Equal(t, k.Info(), k2.Info())
}

func TestKeyDestroy(t *testing.T) {
	k := NewKey([]byte("secret"), []byte("nonce"), nil)
	k.Destroy()
	require.Nil(t, k.Key())
	require.Nil(t, k.Nonce())
}

func TestKeyUnmarshalRejectsShortRecord(t *testing.T) {
	var k Key
	require.Error(t, k.UnmarshalBinary([]byte{0, 1}))
}
