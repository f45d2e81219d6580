// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package hkds

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sixafter/ciphersuite/cipherr"
	"github.com/sixafter/ciphersuite/secutil"
	"github.com/sixafter/ciphersuite/xof"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	did := bytes.Repeat([]byte{0x01}, DIDSize)
	edk := bytes.Repeat([]byte{0x02}, 32)
	c, err := NewClient(did, edk, xof.SHAKE256)
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadDIDSize(t *testing.T) {
	_, err := NewClient(make([]byte, 4), make([]byte, 32), xof.SHAKE256)
	require.Error(t, err)
}

func TestKSNLayout(t *testing.T) {
	c := newClient(t)
	ksn := c.KSN()
	require.Len(t, ksn, DIDSize+4)
	require.Equal(t, []byte{0, 0, 0, 0}, ksn[DIDSize:])
}

func TestGenerateKeyCacheDeterministic(t *testing.T) {
	c1 := newClient(t)
	c2 := newClient(t)
	token := bytes.Repeat([]byte{0x03}, 16)
	require.NoError(t, c1.GenerateKeyCache(token))
	require.NoError(t, c2.GenerateKeyCache(token))

	k1, err := c1.Encrypt(bytes.Repeat([]byte{0x09}, 16))
	require.NoError(t, err)
	k2, err := c2.Encrypt(bytes.Repeat([]byte{0x09}, 16))
	require.NoError(t, err)
	require.Equal(t, k1, k2)
}

func TestTransactionKeysAreSingleUse(t *testing.T) {
	c := newClient(t)
	require.NoError(t, c.GenerateKeyCache(bytes.Repeat([]byte{0x04}, 16)))

	msg := bytes.Repeat([]byte{0x05}, 16)
	ct1, err := c.Encrypt(msg)
	require.NoError(t, err)
	ct2, err := c.Encrypt(msg)
	require.NoError(t, err)
	require.NotEqual(t, ct1, ct2, "each Encrypt call must consume a distinct transaction key")
}

func TestEncryptDecryptRoundTripViaXOR(t *testing.T) {
	c := newClient(t)
	require.NoError(t, c.GenerateKeyCache(bytes.Repeat([]byte{0x06}, 16)))
	msg := bytes.Repeat([]byte{0x07}, 16)
	ct, err := c.Encrypt(msg)
	require.NoError(t, err)

	// A fresh client with the same seed and an un-advanced counter
	// derives the same first transaction key, so XORing the ciphertext
	// with it recovers the original message.
	c2 := newClient(t)
	require.NoError(t, c2.GenerateKeyCache(bytes.Repeat([]byte{0x06}, 16)))
	key, err := c2.generateTransactionKey()
	require.NoError(t, err)
	recovered := make([]byte, 16)
	for i := range recovered {
		recovered[i] = ct[i] ^ key[i]
	}
	require.Equal(t, msg, recovered)
}

func TestEncryptRejectsWrongMessageSize(t *testing.T) {
	c := newClient(t)
	require.NoError(t, c.GenerateKeyCache(bytes.Repeat([]byte{0x08}, 16)))
	_, err := c.Encrypt(make([]byte, 10))
	require.Error(t, err)
}

func TestEncryptWithoutCacheFails(t *testing.T) {
	c := newClient(t)
	_, err := c.Encrypt(make([]byte, 16))
	require.Error(t, err)
}

func TestKeyCacheExhaustionReturnsMaxExceeded(t *testing.T) {
	c := newClient(t)
	require.NoError(t, c.GenerateKeyCache(bytes.Repeat([]byte{0x0A}, 16)))
	msg := bytes.Repeat([]byte{0x0B}, 16)
	for i := 0; i < c.cacheSize; i++ {
		_, err := c.Encrypt(msg)
		require.NoError(t, err)
	}
	_, err := c.Encrypt(msg)
	require.ErrorIs(t, err, cipherr.ErrMaxExceeded)
}

func TestEncryptAuthenticateProducesFixedSizeOutput(t *testing.T) {
	c := newClient(t)
	require.NoError(t, c.GenerateKeyCache(bytes.Repeat([]byte{0x0C}, 16)))
	out, err := c.EncryptAuthenticate(bytes.Repeat([]byte{0x0D}, 16), []byte("associated"))
	require.NoError(t, err)
	require.Len(t, out, 16+32)
}

func TestEncryptAuthenticateRoundTripDetectsTamper(t *testing.T) {
	c1 := newClient(t)
	require.NoError(t, c1.GenerateKeyCache(bytes.Repeat([]byte{0x0C}, 16)))
	out, err := c1.EncryptAuthenticate(bytes.Repeat([]byte{0x0D}, 16), []byte("associated"))
	require.NoError(t, err)

	// A fresh client with the same seed and an un-advanced counter derives
	// the same transaction keys, so it can independently recompute the
	// authentication tag and detect tampering with the ciphertext.
	c2 := newClient(t)
	require.NoError(t, c2.GenerateKeyCache(bytes.Repeat([]byte{0x0C}, 16)))
	recompute := func(ciphertext []byte) []byte {
		_, err := c2.generateTransactionKey() // consume the encryption key, matching c1's Encrypt call
		require.NoError(t, err)
		hkey, err := c2.generateTransactionKey()
		require.NoError(t, err)
		defer secutil.Zero(hkey)

		x, err := xof.NewCShake(c2.mode)
		require.NoError(t, err)
		absorbed := append(append([]byte(nil), hkey...), []byte("associated")...)
		absorbed = append(absorbed, ciphertext...)
		require.NoError(t, x.Absorb(absorbed, []byte("KMAC"), c2.did))
		code := make([]byte, 32)
		require.NoError(t, x.Squeeze(code))
		return code
	}

	ciphertext := out[:len(out)-32]
	tag := out[len(out)-32:]
	require.Equal(t, recompute(ciphertext), tag)

	tampered := append([]byte(nil), ciphertext...)
	tampered[0] ^= 0xFF
	require.NotEqual(t, recompute(tampered), tag, "tag must change when the ciphertext is tampered with")
}

func TestDecryptTokenIsInvertible(t *testing.T) {
	c1 := newClient(t)
	c2 := newClient(t)
	plainToken := bytes.Repeat([]byte{0x0E}, 16)

	// Simulate a server encrypting the token the same way the client
	// decrypts it: XOR with the same XOF-derived mask is its own inverse.
	encrypted, err := c1.DecryptToken(plainToken)
	require.NoError(t, err)
	decrypted, err := c2.DecryptToken(encrypted)
	require.NoError(t, err)
	require.Equal(t, plainToken, decrypted)
}

func TestModeFromDID(t *testing.T) {
	did := make([]byte, DIDSize)
	did[5] = 1
	mode, err := ModeFromDID(did)
	require.NoError(t, err)
	require.Equal(t, xof.SHAKE256, mode)
}

func TestModeFromDIDRejectsBadLength(t *testing.T) {
	_, err := ModeFromDID(make([]byte, 4))
	require.Error(t, err)
}

func TestCacheSizeScalesWithRate(t *testing.T) {
	require.Equal(t, cacheMultiplier*xof.SHAKE128.Rate()/16, CacheSize(xof.SHAKE128))
}
