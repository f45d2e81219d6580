// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package csg implements DRBG.CSG: a cSHAKE-based generator. Grounded
// line-for-line on the reference CSG construction: Initialize wires
// (seed, nonce, info) into the XOF's custom-domain absorb step, Update
// reseeds by re-absorbing, and Generate squeezes output and checks the
// reseed counter against a mode-dependent threshold.
package csg

import (
	"fmt"

	"github.com/sixafter/ciphersuite/cipherr"
	"github.com/sixafter/ciphersuite/entropy"
	"github.com/sixafter/ciphersuite/xof"
)

const (
	reseedMultiplier = 10000
	maxReseedCount   = 1 << 20
	maxRequestSize   = 1 << 16
)

// CSG is a cSHAKE-based DRBG.
type CSG struct {
	mode     xof.Mode
	x        xof.XOF
	provider entropy.Provider

	nonce []byte
	info  []byte

	reseedThreshold int
	reseedCounter   int
	reseedRequests  int

	predictiveResistant bool
	initialized         bool
}

// New constructs a CSG for the given mode. If provider is non-nil, the
// generator is predictive-resistant: Generate transparently reseeds from
// provider once the reseed threshold (blockSize * 10000 output bytes) is
// reached.
func New(mode xof.Mode, provider entropy.Provider) (*CSG, error) {
	x, err := xof.NewCShake(mode)
	if err != nil {
		return nil, err
	}
	return &CSG{
		mode:                mode,
		x:                   x,
		provider:            provider,
		reseedThreshold:     mode.Rate() * reseedMultiplier,
		predictiveResistant: provider != nil,
	}, nil
}

// legalSeedSize mirrors CSG's Scope(): a 32-byte minimum seed with no
// nonce/info, a 64-byte recommended seed with half-rate nonce/info, or a
// full-rate seed with half-rate nonce/info.
func (c *CSG) legalSeedSize(seedLen int) bool {
	switch seedLen {
	case 32, 64, c.mode.Rate():
		return true
	default:
		return false
	}
}

// Initialize seeds the generator. nonce and info are optional; when
// provided they are absorbed as cSHAKE's customization pair (N, S) before
// the seed itself, per CustomDomain.
func (c *CSG) Initialize(seed, nonce, info []byte) error {
	if len(seed) == 0 {
		return fmt.Errorf("%w: CSG seed must not be empty", cipherr.ErrInvalidKey)
	}
	c.nonce = append([]byte(nil), nonce...)
	c.info = append([]byte(nil), info...)
	if err := c.x.Absorb(seed, c.info, c.nonce); err != nil {
		return err
	}
	c.initialized = true
	c.reseedCounter = 0
	return nil
}

// Update reseeds with a fresh seed, preserving the previously set nonce
// and info, per CSG's Update/Derive dispatch.
func (c *CSG) Update(seed []byte) error {
	if !c.legalSeedSize(len(seed)) {
		return fmt.Errorf("%w: seed size %d is not a legal CSG key size", cipherr.ErrInvalidKey, len(seed))
	}
	return c.Initialize(seed, c.nonce, c.info)
}

// Generate squeezes len(output) bytes, transparently reseeding from the
// configured Provider when predictive-resistant and the reseed threshold
// is exceeded.
func (c *CSG) Generate(output []byte) error {
	if !c.initialized {
		return fmt.Errorf("%w: CSG not initialized", cipherr.ErrNotInitialized)
	}
	if len(output) > maxRequestSize {
		return fmt.Errorf("%w: request exceeds maximum request size", cipherr.ErrMaxExceeded)
	}
	if err := c.x.Squeeze(output); err != nil {
		return err
	}

	if c.predictiveResistant {
		c.reseedCounter += len(output)
		if c.reseedCounter >= c.reseedThreshold {
			c.reseedRequests++
			if c.reseedRequests > maxReseedCount {
				return fmt.Errorf("%w: maximum reseed requests exceeded, re-initialize the generator", cipherr.ErrMaxExceeded)
			}
			c.reseedCounter = 0
			seed := make([]byte, 64)
			if err := c.provider.GetBytes(seed); err != nil {
				return err
			}
			if err := c.Update(seed); err != nil {
				return err
			}
		}
	}
	return nil
}

// SecurityStrength returns the mode's claimed security strength in bits.
func (c *CSG) SecurityStrength() int { return c.mode.SecurityStrength() }

// DistributionCodeMax returns the maximum combined nonce+info length the
// underlying XOF rate can absorb as customization material.
func (c *CSG) DistributionCodeMax() int { return c.mode.Rate() }
