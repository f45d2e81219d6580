// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package eax implements the EAX authenticated encryption mode: CMAC-then-
// CTR with a three-way tag composition over the nonce, the associated
// data, and the ciphertext. Grounded on the CalculateMac/UpdateTag/
// Encrypt128/Decrypt128 sequence of the reference EAX construction.
package eax

import (
	"bytes"
	"fmt"

	"github.com/sixafter/ciphersuite/aead/icm"
	"github.com/sixafter/ciphersuite/blockcipher"
	"github.com/sixafter/ciphersuite/cipherr"
	"github.com/sixafter/ciphersuite/mac"
	"github.com/sixafter/ciphersuite/secutil"
)

const (
	// domainNonce, domainAAD, domainCipher are the single-byte domain
	// separators prefixed to each of the three CMAC computations EAX
	// combines into its tag, per UpdateTag's 0x00/0x01/0x02 convention.
	domainNonce  = 0x00
	domainAAD    = 0x01
	domainCipher = 0x02

	// DefaultTagSize is the full 16-byte EAX tag length.
	DefaultTagSize = 16
)

// EAX is a stateful AEAD cipher mode over a 16-byte block cipher.
//
// An EAX instance is constructed once, Initialize'd with a key, and may
// then have SetAssociatedData called before each Seal/Open. It is not
// safe for concurrent use by multiple goroutines.
type EAX struct {
	mode          *icm.CounterMode
	block         blockcipher.Block
	cmacN         mac.MAC
	cmacA         mac.MAC
	cmacC         mac.MAC
	tagSize       int
	aad           []byte
	nonce         []byte
	prevNonce     []byte
	nMac          []byte
	aMac          []byte
	autoIncrement bool
	preserveAAD   bool
	initialized   bool
}

// Option configures an EAX instance at construction.
type Option func(*EAX)

// WithTagSize overrides the default 16-byte tag length. n must be in
// [12,16].
func WithTagSize(n int) Option {
	return func(e *EAX) { e.tagSize = n }
}

// WithAutoIncrement causes the stored nonce to be big-endian-incremented
// by one after every Seal/Open, matching the reference implementation's
// auto-increment nonce policy for streaming use.
func WithAutoIncrement(v bool) Option {
	return func(e *EAX) { e.autoIncrement = v }
}

// WithPreserveAssociatedData keeps SetAssociatedData's absorbed state
// across the auto-increment nonce roll instead of clearing it, matching the reference
// implementation's aadPreserve option.
func WithPreserveAssociatedData(v bool) Option {
	return func(e *EAX) { e.preserveAAD = v }
}

// New constructs an EAX instance over block, which must have a 16-byte
// block size.
func New(block blockcipher.Block, opts ...Option) (*EAX, error) {
	mode, err := icm.New(block)
	if err != nil {
		return nil, err
	}
	e := &EAX{
		mode:    mode,
		block:   block,
		tagSize: DefaultTagSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tagSize < 12 || e.tagSize > 16 {
		return nil, fmt.Errorf("%w: EAX tag size must be in [12,16]", cipherr.ErrInvalidParam)
	}
	cn, err := mac.NewCMAC(block)
	if err != nil {
		return nil, err
	}
	ca, err := mac.NewCMAC(block)
	if err != nil {
		return nil, err
	}
	cc, err := mac.NewCMAC(block)
	if err != nil {
		return nil, err
	}
	e.cmacN, e.cmacA, e.cmacC = cn, ca, cc
	return e, nil
}

// Initialize resets the three CMACs and stores nonce as the instance's
// current nonce. key is passed to each CMAC's Init, which ignores it: the
// cipher keeps the key block was constructed with, and key's length is
// not checked. nonce must differ from the immediately preceding one, per
// invariant 3 (same (key, nonce) pair must never be reused across
// distinct messages).
func (e *EAX) Initialize(key, nonce []byte) error {
	if e.prevNonce != nil && bytes.Equal(e.prevNonce, nonce) {
		return fmt.Errorf("%w: EAX nonce must not repeat the previous vector", cipherr.ErrInvalidNonce)
	}
	if err := e.cmacN.Init(key); err != nil {
		return err
	}
	if err := e.cmacA.Init(key); err != nil {
		return err
	}
	if err := e.cmacC.Init(key); err != nil {
		return err
	}
	e.nonce = append(e.nonce[:0], nonce...)
	e.prevNonce = append(e.prevNonce[:0], nonce...)
	e.initialized = true
	return nil
}

// SetAssociatedData absorbs associated data that is authenticated but not
// encrypted. It must be called, if at all, before Seal or Open for a given
// nonce.
func (e *EAX) SetAssociatedData(ad []byte) error {
	if !e.initialized {
		return fmt.Errorf("%w: EAX not initialized", cipherr.ErrNotInitialized)
	}
	e.aad = append(e.aad[:0], ad...)
	e.cmacA.Reset()
	e.updateTag(e.cmacA, domainAAD, e.aad)
	e.aMac = e.cmacA.Finalize(nil)
	return nil
}

// updateTag absorbs a domain-separated one-block prefix followed by data
// into mm, matching UpdateTag's zero-padded-buffer-with-trailing-domain-
// byte convention.
func (e *EAX) updateTag(mm mac.MAC, domain byte, data []byte) {
	var prefix [16]byte
	prefix[15] = domain
	mm.Update(prefix[:])
	mm.Update(data)
}

// Seal encrypts plaintext under the instance's current nonce (set by
// Initialize, and advanced by WithAutoIncrement) and the previously set
// associated data (if any), appending the result and the authentication
// tag to dst.
func (e *EAX) Seal(dst, plaintext []byte) ([]byte, error) {
	if !e.initialized {
		return nil, fmt.Errorf("%w: EAX not initialized", cipherr.ErrNotInitialized)
	}

	e.cmacN.Reset()
	e.updateTag(e.cmacN, domainNonce, e.nonce)
	nMac := e.cmacN.Finalize(nil)
	e.nMac = nMac

	if e.aMac == nil {
		if err := e.SetAssociatedData(nil); err != nil {
			return nil, err
		}
	}

	var ctrIV [16]byte
	copy(ctrIV[:], nMac)
	if err := e.mode.Initialize(ctrIV[:]); err != nil {
		return nil, err
	}

	ciphertext := make([]byte, len(plaintext))
	if err := e.mode.Transform(ciphertext, plaintext); err != nil {
		return nil, err
	}

	e.cmacC.Reset()
	e.updateTag(e.cmacC, domainCipher, ciphertext)
	cMac := e.cmacC.Finalize(nil)

	tag := combineTags(cMac, nMac, e.aMac)[:e.tagSize]

	dst = append(dst, ciphertext...)
	dst = append(dst, tag...)

	if e.autoIncrement {
		e.reset()
	}
	return dst, nil
}

// Open decrypts ciphertext (with its trailing tag) under the instance's
// current nonce and the previously set associated data, returning the
// plaintext. It reports false, rather than an error, when the tag fails to
// verify — per this module's error-handling design, a verification
// failure is not itself an error.
func (e *EAX) Open(dst, ciphertextAndTag []byte) ([]byte, bool, error) {
	if !e.initialized {
		return nil, false, fmt.Errorf("%w: EAX not initialized", cipherr.ErrNotInitialized)
	}
	if len(ciphertextAndTag) < e.tagSize {
		return nil, false, fmt.Errorf("%w: ciphertext shorter than tag size", cipherr.ErrInvalidSize)
	}
	ciphertext := ciphertextAndTag[:len(ciphertextAndTag)-e.tagSize]
	wantTag := ciphertextAndTag[len(ciphertextAndTag)-e.tagSize:]

	e.cmacN.Reset()
	e.updateTag(e.cmacN, domainNonce, e.nonce)
	nMac := e.cmacN.Finalize(nil)
	e.nMac = nMac

	if e.aMac == nil {
		if err := e.SetAssociatedData(nil); err != nil {
			return nil, false, err
		}
	}

	e.cmacC.Reset()
	e.updateTag(e.cmacC, domainCipher, ciphertext)
	cMac := e.cmacC.Finalize(nil)

	gotTag := combineTags(cMac, nMac, e.aMac)[:e.tagSize]
	if !secutil.ConstantTimeCompare(gotTag, wantTag) {
		return nil, false, nil
	}

	var ctrIV [16]byte
	copy(ctrIV[:], nMac)
	if err := e.mode.Initialize(ctrIV[:]); err != nil {
		return nil, false, err
	}
	plaintext := make([]byte, len(ciphertext))
	if err := e.mode.Transform(plaintext, ciphertext); err != nil {
		return nil, false, err
	}
	dst = append(dst, plaintext...)

	if e.autoIncrement {
		e.reset()
	}
	return dst, true, nil
}

// combineTags XORs the three CMAC outputs together, implementing
// CalculateMac's T = CMAC(ciphertext) ^ N_mac ^ H_mac composition.
func combineTags(cMac, nMac, aMac []byte) []byte {
	out := make([]byte, 16)
	for i := 0; i < 16; i++ {
		out[i] = cMac[i] ^ nMac[i] ^ aMac[i]
	}
	return out
}

// reset big-endian-increments the stored nonce by one and re-initializes
// the nonce CMAC with the same key, per the auto-increment contract: "on
// finalize with auto_increment, big-endian-increment the stored nonce and
// re-initialize with the same key". When preserveAAD is set, the AD
// domain-separator is re-absorbed so the next SetAssociatedData call is
// legal against the rolled state; otherwise the absorbed AD is cleared.
func (e *EAX) reset() {
	incrementBE(e.nonce)
	e.prevNonce = append(e.prevNonce[:0], e.nonce...)
	e.nMac = nil
	if e.preserveAAD {
		e.cmacA.Reset()
		e.updateTag(e.cmacA, domainAAD, e.aad)
		e.aMac = e.cmacA.Finalize(nil)
	} else {
		e.aad = e.aad[:0]
		e.aMac = nil
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

// TagSize returns the configured tag length in bytes.
func (e *EAX) TagSize() int { return e.tagSize }
