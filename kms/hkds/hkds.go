// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package hkds implements the HKDS (hierarchical key-derivation) client:
// a SHAKE-seeded cache of single-use 16-byte transaction keys, a 4-byte
// big-endian KSN counter, and a token-decryption protocol with strict
// ordering and single-use semantics. Grounded line-for-line on the
// reference HKDSClient: GenerateKeyCache, DecryptToken's custom-string
// assembly, and GenerateTransactionKey's slot-index/zero/increment
// sequence.
package hkds

import (
	"encoding/binary"
	"fmt"

	"github.com/sixafter/ciphersuite/cipherr"
	"github.com/sixafter/ciphersuite/secutil"
	"github.com/sixafter/ciphersuite/xof"
)

// cacheMultiplier sets the key-cache size as a multiple of cacheMultiplier
// 16-byte slots per Keccak rate byte, matching
// CalculateCacheSize = HKDS_CACHE_MULTIPLIER * rate / 16.
const cacheMultiplier = 4

// functionName is the ASCII PRF name folded into the custom-string used to
// seed both the key cache and token decryption.
const functionName = "HKDS-PRF"

// DIDSize is the fixed length, in bytes, of a device identifier.
const DIDSize = 8

// ModeFromDID extracts the ShakeMode ordinal stored in byte index 5 of a
// device identifier, per the reference ModeFromID convention. This is
// offered as a convenience; Client construction takes an explicit Mode so
// the byte-5 convention never has to be load-bearing for API correctness.
func ModeFromDID(did []byte) (xof.Mode, error) {
	if len(did) != DIDSize {
		return 0, fmt.Errorf("%w: DID must be %d bytes", cipherr.ErrInvalidSize, DIDSize)
	}
	switch did[5] {
	case 0:
		return xof.SHAKE128, nil
	case 1:
		return xof.SHAKE256, nil
	case 2:
		return xof.SHAKE512, nil
	case 3:
		return xof.SHAKE1024, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized mode byte in DID", cipherr.ErrNotFound)
	}
}

// CacheSize returns the number of 16-byte transaction-key slots a key
// cache holds for the given mode.
func CacheSize(mode xof.Mode) int {
	return cacheMultiplier * mode.Rate() / 16
}

// Client is an HKDS token-decryption client bound to one device.
//
// A Client is not safe for concurrent use: generateTransactionKey mutates
// the counter and zeroes the consumed cache slot, and two concurrent
// callers would race on both.
type Client struct {
	mode      xof.Mode
	did       []byte
	edk       []byte
	counter   uint32
	cache     [][]byte
	cacheSize int
	cacheUsed int
}

// NewClient constructs an HKDS client for device did (exactly DIDSize
// bytes) holding embedded derivation key edk, using the cSHAKE mode mode.
func NewClient(did, edk []byte, mode xof.Mode) (*Client, error) {
	if len(did) != DIDSize {
		return nil, fmt.Errorf("%w: DID must be %d bytes", cipherr.ErrInvalidSize, DIDSize)
	}
	if len(edk) == 0 {
		return nil, fmt.Errorf("%w: embedded derivation key must not be empty", cipherr.ErrInvalidKey)
	}
	return &Client{
		mode:      mode,
		did:       append([]byte(nil), did...),
		edk:       append([]byte(nil), edk...),
		cacheSize: CacheSize(mode),
	}, nil
}

// KSN returns the key-serial-number: DID concatenated with the current
// big-endian 32-bit counter.
func (c *Client) KSN() []byte {
	out := make([]byte, DIDSize+4)
	copy(out, c.did)
	binary.BigEndian.PutUint32(out[DIDSize:], c.counter)
	return out
}

// TokenCounterEpoch returns the number of full key-cache lifetimes the
// counter has advanced through: ksn_counter / cache_size.
func (c *Client) TokenCounterEpoch() uint32 {
	return c.counter / uint32(c.cacheSize)
}

// GenerateKeyCache derives a fresh cache of cacheSize transaction-key
// slots from token and the client's embedded derivation key:
// tmpk = token || edk, squeezed through the cSHAKE XOF for
// cacheSize*16 bytes and partitioned into 16-byte slots.
func (c *Client) GenerateKeyCache(token []byte) error {
	x, err := xof.NewCShake(c.mode)
	if err != nil {
		return err
	}
	tmpk := append(append([]byte(nil), token...), c.edk...)
	if err := x.Absorb(tmpk, []byte(functionName), c.did); err != nil {
		return err
	}
	secutil.Zero(tmpk)

	skey := make([]byte, c.cacheSize*16)
	if err := x.Squeeze(skey); err != nil {
		return err
	}

	c.cache = make([][]byte, c.cacheSize)
	for i := 0; i < c.cacheSize; i++ {
		c.cache[i] = append([]byte(nil), skey[i*16:i*16+16]...)
	}
	secutil.Zero(skey)
	c.cacheUsed = 0
	return nil
}

// DecryptToken decrypts an encrypted token into a new slice and returns
// it; token itself is not modified. The
// decryption key is derived from the current token-counter epoch:
// ctok = be32(counter/cacheSize) || "HKDS-PRF" || DID,
// tmpk = ctok || edk, squeezed to len(token) bytes and XORed in.
func (c *Client) DecryptToken(token []byte) ([]byte, error) {
	var epoch [4]byte
	binary.BigEndian.PutUint32(epoch[:], c.TokenCounterEpoch())

	ctok := make([]byte, 0, 4+len(functionName)+DIDSize)
	ctok = append(ctok, epoch[:]...)
	ctok = append(ctok, []byte(functionName)...)
	ctok = append(ctok, c.did...)

	x, err := xof.NewCShake(c.mode)
	if err != nil {
		return nil, err
	}
	tmpk := append(append([]byte(nil), ctok...), c.edk...)
	if err := x.Absorb(tmpk, nil, nil); err != nil {
		return nil, err
	}
	secutil.Zero(tmpk)

	mask := make([]byte, len(token))
	if err := x.Squeeze(mask); err != nil {
		return nil, err
	}
	out := make([]byte, len(token))
	for i := range token {
		out[i] = token[i] ^ mask[i]
	}
	secutil.Zero(mask)
	return out, nil
}

// generateTransactionKey consumes the next single-use transaction key:
// idx = counter % cacheSize; fails if the cache is exhausted or the
// indexed slot was already consumed; zeroes the slot and advances the
// counter after copying it out.
func (c *Client) generateTransactionKey() ([]byte, error) {
	if c.cache == nil {
		return nil, fmt.Errorf("%w: key cache not generated", cipherr.ErrNotInitialized)
	}
	idx := int(c.counter) % c.cacheSize
	if c.cacheUsed >= c.cacheSize || len(c.cache[idx]) == 0 {
		return nil, fmt.Errorf("%w: key cache exhausted", cipherr.ErrMaxExceeded)
	}
	key := append([]byte(nil), c.cache[idx]...)
	secutil.Zero(c.cache[idx])
	c.cacheUsed++
	c.counter++
	return key, nil
}

// Encrypt XORs message (exactly 16 bytes) with a freshly consumed
// transaction key.
func (c *Client) Encrypt(message []byte) ([]byte, error) {
	if len(message) != 16 {
		return nil, fmt.Errorf("%w: HKDS message must be 16 bytes", cipherr.ErrInvalidSize)
	}
	key, err := c.generateTransactionKey()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 16)
	for i := range out {
		out[i] = message[i] ^ key[i]
	}
	secutil.Zero(key)
	return out, nil
}

// EncryptAuthenticate encrypts message as Encrypt does, then consumes a
// second transaction key to authenticate additionalData and the
// ciphertext, returning ciphertext||tag. The tag is computed as a
// cSHAKE-based MAC (the hkey and the data to authenticate are both
// absorbed before the squeeze), mirroring the reference implementation's
// Keccak::MACP1600 call rather than a generic HMAC, since the
// authentication key here is itself XOF-derived, single-use material from
// the same key cache as the encryption key.
func (c *Client) EncryptAuthenticate(message, additionalData []byte) ([]byte, error) {
	ciphertext, err := c.Encrypt(message)
	if err != nil {
		return nil, err
	}
	hkey, err := c.generateTransactionKey()
	if err != nil {
		return nil, err
	}
	defer secutil.Zero(hkey)

	x, err := xof.NewCShake(c.mode)
	if err != nil {
		return nil, err
	}
	absorbed := append(append([]byte(nil), hkey...), additionalData...)
	absorbed = append(absorbed, ciphertext...)
	if err := x.Absorb(absorbed, []byte("KMAC"), c.did); err != nil {
		return nil, err
	}
	secutil.Zero(absorbed)

	code := make([]byte, 32)
	if err := x.Squeeze(code); err != nil {
		return nil, err
	}

	return append(ciphertext, code...), nil
}
