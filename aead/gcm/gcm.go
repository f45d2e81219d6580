// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package gcm implements the Galois/Counter Mode AEAD construction: CTR
// encryption plus a GHASH accumulator over the associated data and
// ciphertext, combined with an encrypted counter block (J0) into the
// authentication tag. No GHASH implementation exists in the example
// corpus, so the Galois-field multiply-and-reduce here is built directly
// over encoding/binary and plain uint64 shifts — see DESIGN.md.
package gcm

import (
	"encoding/binary"
	"fmt"

	"github.com/sixafter/ciphersuite/blockcipher"
	"github.com/sixafter/ciphersuite/cipherr"
	"github.com/sixafter/ciphersuite/secutil"
)

// DefaultTagSize is the full 16-byte GCM tag length.
const DefaultTagSize = 16

// GCM is a stateful AEAD cipher mode over a 16-byte block cipher.
type GCM struct {
	block   blockcipher.Block
	h       [2]uint64 // GHASH subkey H, big-endian 128-bit value split into two 64-bit halves
	tagSize int
	key     []byte
}

// New constructs a GCM instance over block, which must have a 16-byte
// block size.
func New(block blockcipher.Block, tagSize int) (*GCM, error) {
	if block.BlockSize() != 16 {
		return nil, fmt.Errorf("%w: GCM requires a 16-byte block cipher", cipherr.ErrInvalidParam)
	}
	if tagSize < 12 || tagSize > 16 {
		return nil, fmt.Errorf("%w: GCM tag size must be in [12,16]", cipherr.ErrInvalidParam)
	}
	return &GCM{block: block, tagSize: tagSize}, nil
}

// Initialize derives the GHASH subkey H = E_K(0^128) from the block cipher
// passed to New. key is stored but does not re-key the cipher, and its
// length is not checked: the block keeps the key it was constructed with.
func (g *GCM) Initialize(key []byte) error {
	g.key = key
	var zero, h [16]byte
	g.block.EncryptBlock(h[:], zero[:])
	g.h[0] = binary.BigEndian.Uint64(h[0:8])
	g.h[1] = binary.BigEndian.Uint64(h[8:16])
	return nil
}

// deriveJ0 computes the initial counter block J0 from a nonce, per SP
// 800-38D: a 96-bit nonce is padded with a 32-bit counter of 1; any other
// length nonce is GHASHed into a full block first.
func (g *GCM) deriveJ0(nonce []byte) [16]byte {
	var j0 [16]byte
	if len(nonce) == 12 {
		copy(j0[:12], nonce)
		j0[15] = 1
		return j0
	}
	var y [16]byte
	ghashUpdate(&y, g.h, nonce)
	ghashFinish(&y, g.h, 0, uint64(len(nonce))*8)
	return y
}

// Seal encrypts plaintext under nonce and additionalData, appending the
// ciphertext and tag to dst.
func (g *GCM) Seal(dst, nonce, plaintext, additionalData []byte) ([]byte, error) {
	j0 := g.deriveJ0(nonce)

	ciphertext := make([]byte, len(plaintext))
	ctr := j0
	incrementCounter32(&ctr)
	gctrStream(g.block, ciphertext, plaintext, &ctr)

	var y [16]byte
	ghashUpdate(&y, g.h, additionalData)
	ghashUpdate(&y, g.h, ciphertext)
	ghashFinish(&y, g.h, uint64(len(additionalData))*8, uint64(len(ciphertext))*8)

	var s [16]byte
	g.block.EncryptBlock(s[:], j0[:])
	for i := range y {
		y[i] ^= s[i]
	}

	dst = append(dst, ciphertext...)
	dst = append(dst, y[:g.tagSize]...)
	return dst, nil
}

// Open decrypts ciphertextAndTag under nonce and additionalData, returning
// the plaintext. It reports false (not an error) on tag mismatch.
func (g *GCM) Open(dst, nonce, ciphertextAndTag, additionalData []byte) ([]byte, bool, error) {
	if len(ciphertextAndTag) < g.tagSize {
		return nil, false, fmt.Errorf("%w: ciphertext shorter than tag size", cipherr.ErrInvalidSize)
	}
	ciphertext := ciphertextAndTag[:len(ciphertextAndTag)-g.tagSize]
	wantTag := ciphertextAndTag[len(ciphertextAndTag)-g.tagSize:]

	j0 := g.deriveJ0(nonce)

	var y [16]byte
	ghashUpdate(&y, g.h, additionalData)
	ghashUpdate(&y, g.h, ciphertext)
	ghashFinish(&y, g.h, uint64(len(additionalData))*8, uint64(len(ciphertext))*8)

	var s [16]byte
	g.block.EncryptBlock(s[:], j0[:])
	for i := range y {
		y[i] ^= s[i]
	}

	if !secutil.ConstantTimeCompare(y[:g.tagSize], wantTag) {
		return nil, false, nil
	}

	plaintext := make([]byte, len(ciphertext))
	ctr := j0
	incrementCounter32(&ctr)
	gctrStream(g.block, plaintext, ciphertext, &ctr)
	dst = append(dst, plaintext...)
	return dst, true, nil
}

// gctrStream XORs the CTR keystream (32-bit counter in the low word, per
// SP 800-38D GCTR) with src into dst, advancing ctr in place.
func gctrStream(block blockcipher.Block, dst, src []byte, ctr *[16]byte) {
	var ks [16]byte
	off := 0
	for ; off+16 <= len(src); off += 16 {
		block.EncryptBlock(ks[:], ctr[:])
		for i := 0; i < 16; i++ {
			dst[off+i] = src[off+i] ^ ks[i]
		}
		incrementCounter32(ctr)
	}
	if tail := len(src) - off; tail > 0 {
		block.EncryptBlock(ks[:], ctr[:])
		for i := 0; i < tail; i++ {
			dst[off+i] = src[off+i] ^ ks[i]
		}
		incrementCounter32(ctr)
	}
}

// incrementCounter32 increments only the low 32 bits of a GCM counter
// block, wrapping within that word as SP 800-38D requires.
func incrementCounter32(ctr *[16]byte) {
	c := binary.BigEndian.Uint32(ctr[12:16])
	c++
	binary.BigEndian.PutUint32(ctr[12:16], c)
}

// ghashUpdate folds each 16-byte block of data (zero-padding a final
// partial block) into the running GHASH state y.
func ghashUpdate(y *[16]byte, h [2]uint64, data []byte) {
	off := 0
	for ; off+16 <= len(data); off += 16 {
		xorBlock(y, data[off:off+16])
		gfMul(y, h)
	}
	if tail := len(data) - off; tail > 0 {
		var block [16]byte
		copy(block[:], data[off:])
		xorBlock(y, block[:])
		gfMul(y, h)
	}
}

// ghashFinish folds in the final 128-bit length block (bit lengths of the
// associated data and ciphertext, big-endian 64-bit halves) and applies
// the final multiplication.
func ghashFinish(y *[16]byte, h [2]uint64, aadBits, ctBits uint64) {
	var lenBlock [16]byte
	binary.BigEndian.PutUint64(lenBlock[0:8], aadBits)
	binary.BigEndian.PutUint64(lenBlock[8:16], ctBits)
	xorBlock(y, lenBlock[:])
	gfMul(y, h)
}

func xorBlock(y *[16]byte, b []byte) {
	for i := 0; i < 16; i++ {
		y[i] ^= b[i]
	}
}

// gfMul multiplies the 128-bit value in y by H in GF(2^128) using the
// reduction polynomial x^128 + x^7 + x^2 + x + 1, and stores the product
// back into y. This is the textbook shift-and-reduce algorithm from SP
// 800-38D appendix B, operating on two uint64 halves instead of a bit
// array for speed.
func gfMul(y *[16]byte, h [2]uint64) {
	var z0, z1 uint64
	x0 := binary.BigEndian.Uint64(y[0:8])
	x1 := binary.BigEndian.Uint64(y[8:16])
	v0, v1 := h[0], h[1]

	for i := 0; i < 128; i++ {
		var xi uint64
		if i < 64 {
			xi = (x0 >> (63 - i)) & 1
		} else {
			xi = (x1 >> (127 - i)) & 1
		}
		if xi == 1 {
			z0 ^= v0
			z1 ^= v1
		}
		lsb := v1 & 1
		v1 = (v1 >> 1) | (v0 << 63)
		v0 = v0 >> 1
		if lsb == 1 {
			v0 ^= 0xe1 << 56
		}
	}
	binary.BigEndian.PutUint64(y[0:8], z0)
	binary.BigEndian.PutUint64(y[8:16], z1)
}
