// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package ocb implements the Offset Codebook Mode AEAD construction: an
// L-value doubling table indexed by trailing-zero count selects a
// per-block offset, which is XORed before and after each block
// encryption; a running checksum of the plaintext is folded into the
// final tag alongside a hash of the associated data. Grounded on the
// L-table/ntz-offset-chain/stretched-nonce construction described for the
// reference OCB implementation.
package ocb

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/sixafter/ciphersuite/blockcipher"
	"github.com/sixafter/ciphersuite/cipherr"
	"github.com/sixafter/ciphersuite/parallel"
	"github.com/sixafter/ciphersuite/secutil"
)

// DefaultTagSize is the full 16-byte OCB tag length.
const DefaultTagSize = 16

// OCB is a stateful AEAD cipher mode over a 16-byte block cipher.
type OCB struct {
	block   blockcipher.Block
	profile *parallel.Profile
	tagSize int

	lStar   [16]byte
	lDollar [16]byte
	lTable  [][16]byte // lTable[i] = L_i, doubled i times from L_0

	aad     []byte
	hashAAD [16]byte

	nonce         []byte
	prevNonce     []byte
	autoIncrement bool
	preserveAAD   bool
	initialized   bool
}

// Option configures an OCB instance at construction.
type Option func(*OCB)

// WithAutoIncrement causes the stored nonce to be big-endian-incremented
// by one after every Seal/Open, so that repeated calls against the same
// instance never reuse a (key, nonce) pair. Mirrors the EAX mode's
// auto-increment option.
func WithAutoIncrement(v bool) Option {
	return func(o *OCB) { o.autoIncrement = v }
}

// WithPreserveAssociatedData keeps SetAssociatedData's absorbed hash
// across a nonce roll instead of clearing it.
func WithPreserveAssociatedData(v bool) Option {
	return func(o *OCB) { o.preserveAAD = v }
}

// New constructs an OCB instance over block, which must have a 16-byte
// block size.
func New(block blockcipher.Block, tagSize int, opts ...Option) (*OCB, error) {
	if block.BlockSize() != 16 {
		return nil, fmt.Errorf("%w: OCB requires a 16-byte block cipher", cipherr.ErrInvalidParam)
	}
	if tagSize < 12 || tagSize > 16 {
		return nil, fmt.Errorf("%w: OCB tag size must be in [12,16]", cipherr.ErrInvalidParam)
	}
	profile, err := parallel.NewProfile(block.BlockSize(), true, 0, true)
	if err != nil {
		return nil, err
	}
	o := &OCB{block: block, profile: profile, tagSize: tagSize}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Profile returns the mode's parallel dispatch profile.
func (o *OCB) Profile() *parallel.Profile { return o.profile }

// Initialize precomputes the L-value doubling table (L_* = E_K(0^128),
// L_$ = double(L_*), L_0 = double(L_$), L_i = double(L_{i-1})) from the
// block cipher passed to New, and stores nonce (in [12,15] bytes) as the
// instance's current nonce. key is not used: it does not re-key the
// cipher, which keeps the key it was constructed with. nonce must differ
// from the immediately preceding one.
func (o *OCB) Initialize(key, nonce []byte) error {
	if len(nonce) < 12 || len(nonce) > 15 {
		return fmt.Errorf("%w: OCB nonce must be in [12,15] bytes", cipherr.ErrInvalidNonce)
	}
	if o.prevNonce != nil && bytes.Equal(o.prevNonce, nonce) {
		return fmt.Errorf("%w: OCB nonce must not repeat the previous vector", cipherr.ErrInvalidNonce)
	}
	var zero [16]byte
	o.block.EncryptBlock(o.lStar[:], zero[:])
	o.lDollar = double(o.lStar)
	o.lTable = make([][16]byte, 1, 64)
	o.lTable[0] = double(o.lDollar)
	o.nonce = append(o.nonce[:0], nonce...)
	o.prevNonce = append(o.prevNonce[:0], nonce...)
	o.initialized = true
	return nil
}

// reset big-endian-increments the stored nonce by one after a finalize,
// matching EAX's auto-increment contract. When preserveAAD is unset, the
// absorbed associated-data hash is cleared.
func (o *OCB) reset() {
	incrementBE(o.nonce)
	o.prevNonce = append(o.prevNonce[:0], o.nonce...)
	if !o.preserveAAD {
		o.aad = o.aad[:0]
		o.hashAAD = [16]byte{}
	}
}

// incrementBE big-endian-increments b in place, carrying across the whole
// buffer.
func incrementBE(b []byte) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

// lAt returns L_i, extending the precomputed table on demand.
func (o *OCB) lAt(i int) [16]byte {
	for len(o.lTable) <= i {
		o.lTable = append(o.lTable, double(o.lTable[len(o.lTable)-1]))
	}
	return o.lTable[i]
}

// ntz returns the number of trailing zero bits in the 1-based block
// counter i, selecting which L_i is XORed into the offset chain for that
// block, per the OCB offset-selection rule.
func ntz(i uint64) int {
	return bits.TrailingZeros64(i)
}

func double(in [16]byte) [16]byte {
	var out [16]byte
	msb := in[0] & 0x80
	carry := byte(0)
	for i := 15; i >= 0; i-- {
		out[i] = (in[i] << 1) | carry
		carry = (in[i] & 0x80) >> 7
	}
	if msb != 0 {
		out[15] ^= 0x87
	}
	return out
}

func xorBlock(dst *[16]byte, src [16]byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// SetAssociatedData hashes associated data using the same offset-chain
// construction as the message path, per OCB's HASH sub-algorithm.
func (o *OCB) SetAssociatedData(ad []byte) error {
	o.aad = append(o.aad[:0], ad...)
	var sum, offset [16]byte
	full := len(ad) / 16
	for i := 0; i < full; i++ {
		l := o.lAt(ntz(uint64(i + 1)))
		xorBlock(&offset, l)
		var block [16]byte
		copy(block[:], ad[i*16:i*16+16])
		xorBlock(&block, offset)
		var enc [16]byte
		o.block.EncryptBlock(enc[:], block[:])
		xorBlock(&sum, enc)
	}
	if tail := len(ad) - full*16; tail > 0 {
		xorBlock(&offset, o.lStar)
		var block [16]byte
		copy(block[:], ad[full*16:])
		block[tail] = 0x80
		xorBlock(&block, offset)
		var enc [16]byte
		o.block.EncryptBlock(enc[:], block[:])
		xorBlock(&sum, enc)
	}
	o.hashAAD = sum
	return nil
}

// nonceOffset derives the initial offset Offset_0 from a stretched nonce,
// per the top/bottom split: the low 6 bits of the nonce's final byte
// (bottom) select a bit rotation into a 24-byte stretch computed from
// E_K(top), where top is the nonce with those 6 bits cleared and tagged
// with the tag-length/1 bit pattern in the first byte.
func (o *OCB) nonceOffset(nonce []byte) [16]byte {
	var padded [16]byte
	padded[0] = byte((o.tagSize * 8) % 128 << 1)
	padded[0] |= 0x01
	copy(padded[16-len(nonce):], nonce)

	bottom := padded[15] & 0x3f
	padded[15] &^= 0x3f

	var ktop [16]byte
	o.block.EncryptBlock(ktop[:], padded[:])

	var stretch [24]byte
	copy(stretch[:16], ktop[:])
	for i := 0; i < 8; i++ {
		stretch[16+i] = ktop[i] ^ ktop[i+1]
	}

	var offset [16]byte
	byteShift := int(bottom / 8)
	bitShift := int(bottom % 8)
	for i := 0; i < 16; i++ {
		b := stretch[byteShift+i]
		if bitShift > 0 {
			b = (b << bitShift) | (stretch[byteShift+i+1] >> (8 - bitShift))
		}
		offset[i] = b
	}
	return offset
}

// Seal encrypts plaintext under the instance's current nonce (set by
// Initialize, and advanced by WithAutoIncrement) and the previously set
// associated data, appending the ciphertext and tag to dst.
func (o *OCB) Seal(dst, plaintext []byte) ([]byte, error) {
	if !o.initialized {
		return nil, fmt.Errorf("%w: OCB not initialized", cipherr.ErrNotInitialized)
	}
	offset := o.nonceOffset(o.nonce)
	var checksum [16]byte

	ciphertext := make([]byte, len(plaintext))
	full := len(plaintext) / 16
	for i := 0; i < full; i++ {
		l := o.lAt(ntz(uint64(i + 1)))
		xorBlock(&offset, l)
		var block [16]byte
		copy(block[:], plaintext[i*16:i*16+16])
		xorBlock(&checksum, block)
		xorBlock(&block, offset)
		var enc [16]byte
		o.block.EncryptBlock(enc[:], block[:])
		xorBlock(&enc, offset)
		copy(ciphertext[i*16:i*16+16], enc[:])
	}

	tailLen := len(plaintext) - full*16
	if tailLen > 0 {
		xorBlock(&offset, o.lStar)
		var pad [16]byte
		o.block.EncryptBlock(pad[:], offset[:])
		for i := 0; i < tailLen; i++ {
			ciphertext[full*16+i] = plaintext[full*16+i] ^ pad[i]
		}
		var padded [16]byte
		copy(padded[:], plaintext[full*16:])
		padded[tailLen] = 0x80
		xorBlock(&checksum, padded)
	}

	xorBlock(&checksum, offset)
	xorBlock(&checksum, o.lDollar)
	var tag [16]byte
	o.block.EncryptBlock(tag[:], checksum[:])
	xorBlock(&tag, o.hashAAD)

	dst = append(dst, ciphertext...)
	dst = append(dst, tag[:o.tagSize]...)

	if o.autoIncrement {
		o.reset()
	}
	return dst, nil
}

// Open decrypts ciphertextAndTag under the instance's current nonce and
// the previously set associated data, returning the plaintext. It reports
// false (not an error) on tag mismatch.
func (o *OCB) Open(dst, ciphertextAndTag []byte) ([]byte, bool, error) {
	if !o.initialized {
		return nil, false, fmt.Errorf("%w: OCB not initialized", cipherr.ErrNotInitialized)
	}
	if len(ciphertextAndTag) < o.tagSize {
		return nil, false, fmt.Errorf("%w: ciphertext shorter than tag size", cipherr.ErrInvalidSize)
	}
	ciphertext := ciphertextAndTag[:len(ciphertextAndTag)-o.tagSize]
	wantTag := ciphertextAndTag[len(ciphertextAndTag)-o.tagSize:]

	offset := o.nonceOffset(o.nonce)
	var checksum [16]byte

	plaintext := make([]byte, len(ciphertext))
	full := len(ciphertext) / 16
	for i := 0; i < full; i++ {
		l := o.lAt(ntz(uint64(i + 1)))
		xorBlock(&offset, l)
		var block [16]byte
		copy(block[:], ciphertext[i*16:i*16+16])
		xorBlock(&block, offset)
		var dec [16]byte
		o.block.DecryptBlock(dec[:], block[:])
		xorBlock(&dec, offset)
		copy(plaintext[i*16:i*16+16], dec[:])
		xorBlock(&checksum, dec)
	}

	tailLen := len(ciphertext) - full*16
	if tailLen > 0 {
		xorBlock(&offset, o.lStar)
		var pad [16]byte
		o.block.EncryptBlock(pad[:], offset[:])
		for i := 0; i < tailLen; i++ {
			plaintext[full*16+i] = ciphertext[full*16+i] ^ pad[i]
		}
		var padded [16]byte
		copy(padded[:], plaintext[full*16:])
		padded[tailLen] = 0x80
		xorBlock(&checksum, padded)
	}

	xorBlock(&checksum, offset)
	xorBlock(&checksum, o.lDollar)
	var tag [16]byte
	o.block.EncryptBlock(tag[:], checksum[:])
	xorBlock(&tag, o.hashAAD)

	if !secutil.ConstantTimeCompare(tag[:o.tagSize], wantTag) {
		return nil, false, nil
	}
	dst = append(dst, plaintext...)

	if o.autoIncrement {
		o.reset()
	}
	return dst, true, nil
}
