// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package mac defines the capability trait drbg/hcg and aead/eax program
// against for keyed message authentication codes, plus two adapters: HMAC
// (from the standard library) and CMAC (hand-built over a blockcipher.Block,
// since no ecosystem CMAC implementation was available — see DESIGN.md).
package mac

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/sixafter/ciphersuite/blockcipher"
	"github.com/sixafter/ciphersuite/cipherr"
)

// MAC is the capability trait for a keyed message authentication code.
type MAC interface {
	// Init (re)keys the MAC, resetting any accumulated state.
	Init(key []byte) error

	// Update absorbs p into the running computation.
	Update(p []byte)

	// Finalize appends the MAC of everything absorbed since Init (or the
	// last Finalize) to dst and returns the extended slice.
	Finalize(dst []byte) []byte

	// Size returns the MAC's output length in bytes.
	Size() int

	// Reset clears the accumulated message without re-keying.
	Reset()
}

// HMACMode selects the underlying hash function for an HMAC instance.
type HMACMode int

const (
	HMACSHA256 HMACMode = iota
	HMACSHA512
)

type hmacMAC struct {
	mode HMACMode
	h    hash.Hash
	key  []byte
}

// NewHMAC constructs a MAC backed by crypto/hmac.
func NewHMAC(mode HMACMode) MAC {
	return &hmacMAC{mode: mode}
}

func (m *hmacMAC) newHash(key []byte) hash.Hash {
	switch m.mode {
	case HMACSHA512:
		return hmac.New(sha512.New, key)
	default:
		return hmac.New(sha256.New, key)
	}
}

func (m *hmacMAC) Init(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: HMAC key must not be empty", cipherr.ErrInvalidKey)
	}
	m.key = append(m.key[:0], key...)
	m.h = m.newHash(m.key)
	return nil
}

func (m *hmacMAC) Update(p []byte) { m.h.Write(p) }

func (m *hmacMAC) Finalize(dst []byte) []byte { return m.h.Sum(dst) }

func (m *hmacMAC) Size() int {
	if m.h == nil {
		if m.mode == HMACSHA512 {
			return sha512.Size
		}
		return sha256.Size
	}
	return m.h.Size()
}

func (m *hmacMAC) Reset() {
	if m.h != nil {
		m.h.Reset()
	}
}

// cmac implements NIST SP 800-38B CMAC over any 128-bit-block
// blockcipher.Block. No CMAC implementation exists in the Go standard
// library or in the example corpus, so this is built directly from the
// primitive, per the required DESIGN.md justification for stdlib-grounded
// code.
type cmac struct {
	block blockcipher.Block
	k1    []byte
	k2    []byte
	buf   []byte
	acc   []byte
	tmp   []byte
}

// NewCMAC constructs a CMAC over block, which must have a 16-byte block
// size (AES, as used throughout aead/eax).
func NewCMAC(block blockcipher.Block) (MAC, error) {
	if block.BlockSize() != 16 {
		return nil, fmt.Errorf("%w: CMAC requires a 16-byte block cipher", cipherr.ErrInvalidParam)
	}
	c := &cmac{
		block: block,
		buf:   make([]byte, 0, 16),
		acc:   make([]byte, 16),
		tmp:   make([]byte, 16),
	}
	return c, nil
}

func (c *cmac) Init(key []byte) error {
	// Derive subkeys K1, K2 from L = E_K(0^128) per SP 800-38B. key is
	// ignored: K is the key the block cipher was constructed with.
	var zero, l [16]byte
	c.block.EncryptBlock(l[:], zero[:])
	c.k1 = double(l[:])
	c.k2 = double(c.k1)
	c.buf = c.buf[:0]
	for i := range c.acc {
		c.acc[i] = 0
	}
	return nil
}

const rb = 0x87

// double implements the SP 800-38B left-shift-and-conditionally-XOR
// operation used to derive CMAC subkeys.
func double(in []byte) []byte {
	out := make([]byte, len(in))
	msb := in[0] & 0x80
	carry := byte(0)
	for i := len(in) - 1; i >= 0; i-- {
		out[i] = (in[i] << 1) | carry
		carry = (in[i] & 0x80) >> 7
	}
	if msb != 0 {
		out[len(out)-1] ^= rb
	}
	return out
}

func (c *cmac) Update(p []byte) {
	for len(p) > 0 {
		if len(c.buf) == 16 {
			xorBlock(c.acc, c.buf)
			c.block.EncryptBlock(c.acc, c.acc)
			c.buf = c.buf[:0]
		}
		n := 16 - len(c.buf)
		if n > len(p) {
			n = len(p)
		}
		c.buf = append(c.buf, p[:n]...)
		p = p[n:]
	}
}

func (c *cmac) Finalize(dst []byte) []byte {
	var last [16]byte
	if len(c.buf) == 16 {
		copy(last[:], c.buf)
		xorBlock(last[:], c.k1)
	} else {
		copy(last[:], c.buf)
		last[len(c.buf)] = 0x80
		xorBlock(last[:], c.k2)
	}
	xorBlock(last[:], c.acc)
	c.block.EncryptBlock(c.tmp, last[:])
	return append(dst, c.tmp...)
}

func (c *cmac) Size() int { return 16 }

func (c *cmac) Reset() {
	c.buf = c.buf[:0]
	for i := range c.acc {
		c.acc[i] = 0
	}
}

func xorBlock(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}
