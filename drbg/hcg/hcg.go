// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package hcg implements DRBG.HCG: an HMAC-based generator. Grounded on
// the reference HCG construction's Extract (key-strengthening reseed),
// Fill (generate loop), and Increase (big-endian counter add) sequence.
package hcg

import (
	"fmt"

	"github.com/sixafter/ciphersuite/cipherr"
	"github.com/sixafter/ciphersuite/entropy"
	"github.com/sixafter/ciphersuite/mac"
)

const (
	reseedMultiplier = 1000
	maxReseedCount   = 1 << 20
	maxRequestSize   = 1 << 16
)

// HCG is an HMAC-based DRBG.
type HCG struct {
	mode     mac.HMACMode
	m        mac.MAC
	provider entropy.Provider

	tagSize int

	stateCtr  []byte
	hmacState []byte
	distCode  []byte

	reseedThreshold int
	reseedCounter   int
	reseedRequests  int

	predictiveResistant bool
	initialized         bool
}

// New constructs an HCG using the given HMAC mode (HMAC-SHA256 or
// HMAC-SHA512). If provider is non-nil, the generator is
// predictive-resistant.
func New(mode mac.HMACMode, provider entropy.Provider) *HCG {
	tagSize := 32
	if mode == mac.HMACSHA512 {
		tagSize = 64
	}
	return &HCG{
		mode:                mode,
		m:                   mac.NewHMAC(mode),
		provider:            provider,
		tagSize:             tagSize,
		reseedThreshold:     tagSize * reseedMultiplier,
		predictiveResistant: provider != nil,
		stateCtr:            make([]byte, 4),
		hmacState:           make([]byte, tagSize),
	}
}

// Initialize seeds the generator. nonce seeds the running state counter
// (left-padded/truncated to 4 bytes); info becomes the distribution code
// absorbed into every Fill round, capped at DistributionCodeMax.
func (h *HCG) Initialize(seed, nonce, info []byte) error {
	if len(seed) == 0 {
		return fmt.Errorf("%w: HCG seed must not be empty", cipherr.ErrInvalidKey)
	}
	for i := range h.stateCtr {
		h.stateCtr[i] = 0
	}
	if len(nonce) > 0 {
		n := len(nonce)
		if n > 4 {
			n = 4
		}
		copy(h.stateCtr[4-n:], nonce[len(nonce)-n:])
	}
	max := h.DistributionCodeMax()
	if len(info) > max {
		info = info[:max]
	}
	h.distCode = append([]byte(nil), info...)

	if err := h.extract(seed); err != nil {
		return err
	}
	h.initialized = true
	h.reseedCounter = 0
	return nil
}

// DistributionCodeMax mirrors Scope()'s distCodeMax = blockSize +
// (blockSize - (stateCtrSize + hmacStateSize)), using the MAC's block
// size as a stand-in for the underlying compression function's block size.
func (h *HCG) DistributionCodeMax() int {
	blockSize := 64
	if h.mode == mac.HMACSHA512 {
		blockSize = 128
	}
	v := blockSize + (blockSize - (len(h.stateCtr) + h.tagSize))
	if v < 0 {
		return 0
	}
	return v
}

// extract performs HCG's key-strengthening reseed: it grows a key of
// tagSize bytes by repeatedly hashing an incrementing counter and the
// seed, pads to the next HMAC block boundary with fresh entropy when a
// Provider is attached, rekeys the HMAC with the result, and re-samples
// hmacState from the Provider (or resets it to the 0x01 fill the
// reference implementation uses when unattended).
func (h *HCG) extract(seed []byte) error {
	tmpKey := make([]byte, 0, h.tagSize)
	var seedCtr [4]byte
	digest := mac.NewHMAC(h.mode)
	if err := digest.Init(seed); err != nil {
		return err
	}
	for len(tmpKey) < h.tagSize {
		increase(seedCtr[:], 1)
		digest.Reset()
		digest.Update(seedCtr[:])
		digest.Update(seed)
		if h.provider != nil {
			if err := h.randomPad(digest); err != nil {
				return err
			}
		}
		tmpKey = digest.Finalize(tmpKey)
	}
	tmpKey = tmpKey[:h.tagSize]

	if err := h.m.Init(tmpKey); err != nil {
		return err
	}

	if h.provider != nil {
		if err := h.provider.GetBytes(h.hmacState); err != nil {
			return err
		}
	} else {
		for i := range h.hmacState {
			h.hmacState[i] = 0x01
		}
	}
	return nil
}

// randomPad absorbs fresh Provider entropy, padded to the next HMAC block
// boundary (at least tagSize bytes), into digest without finalizing it.
func (h *HCG) randomPad(digest mac.MAC) error {
	blockSize := 64
	if h.mode == mac.HMACSHA512 {
		blockSize = 128
	}
	n := blockSize
	if n < h.tagSize {
		n = h.tagSize
	}
	pad := make([]byte, n)
	if err := h.provider.GetBytes(pad); err != nil {
		return err
	}
	digest.Update(pad)
	return nil
}

// increase adds value to a big-endian counter, carrying from the
// rightmost byte backward, matching HCG's Increase.
func increase(counter []byte, value uint32) {
	carry := value
	for i := len(counter) - 1; i >= 0 && carry != 0; i-- {
		sum := uint32(counter[i]) + carry
		counter[i] = byte(sum)
		carry = sum >> 8
	}
}

// fill produces one HMAC-sized block of output per round, folding in the
// advancing state counter, the running hmacState, and the distribution
// code, per HCG's Fill.
func (h *HCG) fill(output []byte) {
	off := 0
	for off < len(output) {
		increase(h.stateCtr, 1)
		h.m.Reset()
		h.m.Update(h.stateCtr)
		h.m.Update(h.hmacState)
		if len(h.distCode) > 0 {
			h.m.Update(h.distCode)
		}
		h.hmacState = h.m.Finalize(h.hmacState[:0])
		n := copy(output[off:], h.hmacState)
		off += n
	}
}

// Generate fills output with HCG keystream, transparently reseeding when
// predictive-resistant and the reseed threshold is reached.
func (h *HCG) Generate(output []byte) error {
	if !h.initialized {
		return fmt.Errorf("%w: HCG not initialized", cipherr.ErrNotInitialized)
	}
	if len(output) > maxRequestSize {
		return fmt.Errorf("%w: request exceeds maximum request size", cipherr.ErrMaxExceeded)
	}
	if len(output) == 0 {
		return nil
	}
	h.fill(output)

	if h.predictiveResistant {
		h.reseedCounter += len(output)
		if h.reseedCounter >= h.reseedThreshold {
			h.reseedRequests++
			if h.reseedRequests > maxReseedCount {
				return fmt.Errorf("%w: maximum reseed requests exceeded, re-initialize the generator", cipherr.ErrMaxExceeded)
			}
			h.reseedCounter = 0
			state := make([]byte, h.tagSize)
			if err := h.provider.GetBytes(state); err != nil {
				return err
			}
			if err := h.extract(state); err != nil {
				return err
			}
		}
	}
	return nil
}
