// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package parallel implements ParallelProfile: the shared sizing and
// fan-out policy every AEAD cipher mode in this module consults before
// dispatching work across goroutines.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/sixafter/ciphersuite/cipherr"
)

// SIMDTier names the widest vector instruction set this process detected
// at startup. It is informational only — this module's goroutine fan-out
// does not change shape based on SIMD width, since the block cipher core
// (crypto/aes) already picks its own code path — but it is surfaced
// because callers sizing their own buffers may want to know it.
type SIMDTier int

const (
	SIMDNone SIMDTier = iota
	SIMDAVX
	SIMDAVX2
	SIMDAVX512
)

var (
	simdOnce sync.Once
	simdTier SIMDTier
)

func detectSIMDTier() SIMDTier {
	simdOnce.Do(func() {
		switch {
		case cpu.X86.HasAVX512F:
			simdTier = SIMDAVX512
		case cpu.X86.HasAVX2:
			simdTier = SIMDAVX2
		case cpu.X86.HasAVX:
			simdTier = SIMDAVX
		default:
			simdTier = SIMDNone
		}
	})
	return simdTier
}

// Profile describes how a cipher mode should split its input across
// goroutines. It is owned by the cipher mode instance that creates it via
// NewProfile and is not safe for concurrent mutation (SetMaxDegree,
// Calculate) while Transform calls are in flight, matching the ownership
// model of every other component in this module.
type Profile struct {
	blockSize           int
	isParallel          bool
	parallelBlockSize   int
	parallelMinimumSize int
	parallelMaximumSize int
	maxDegree           int
	simdMultiply        bool
}

const (
	// defaultParallelMultiplier sets the nominal per-lane chunk size as a
	// multiple of the cipher's native block size.
	defaultParallelMultiplier = 1024
)

// NewProfile constructs a Profile for a cipher mode whose native block
// size is blockSize bytes. isParallel is the mode's requested default;
// stateCacheSize is the footprint (bytes) of one lane's working state,
// used to keep the minimum parallel size from costing more in setup than
// it saves in throughput; simdMultiply indicates the mode benefits from
// wide SIMD block multiplication (OCB's offset doubling, GCM's GHASH).
func NewProfile(blockSize int, isParallel bool, stateCacheSize int, simdMultiply bool) (*Profile, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size must be positive", cipherr.ErrInvalidParam)
	}
	degree := runtime.NumCPU()
	if degree < 1 {
		degree = 1
	}
	if degree%2 != 0 && degree > 1 {
		degree--
	}
	p := &Profile{
		blockSize:           blockSize,
		isParallel:          isParallel,
		parallelBlockSize:   blockSize * defaultParallelMultiplier,
		parallelMinimumSize: blockSize * degree,
		maxDegree:           degree,
		simdMultiply:        simdMultiply,
	}
	if stateCacheSize > p.parallelMinimumSize {
		p.parallelMinimumSize = stateCacheSize
	}
	p.parallelMaximumSize = p.parallelBlockSize * p.maxDegree
	detectSIMDTier()
	return p, nil
}

// SetMaxDegree sets the maximum number of goroutines Transform may use. It
// must be even (so input can be split into equal halves per NUMA-style
// lane pairing) and must not exceed runtime.NumCPU(), matching spec.md's
// invariant that MaxDegree is even and bounded by processor count.
func (p *Profile) SetMaxDegree(degree int) error {
	if degree < 1 || degree%2 != 0 || degree > runtime.NumCPU() {
		return fmt.Errorf("%w: max degree must be even and <= %d processors", cipherr.ErrNotSupported, runtime.NumCPU())
	}
	p.maxDegree = degree
	p.parallelMaximumSize = p.parallelBlockSize * p.maxDegree
	return nil
}

// Calculate sets IsParallel, ParallelBlockSize, and MaxDegree from its
// arguments and recomputes ParallelMaximumSize. ParallelMinimumSize is
// left unchanged.
func (p *Profile) Calculate(isParallel bool, parallelBlockSize, maxDegree int) error {
	if parallelBlockSize <= 0 || parallelBlockSize%p.blockSize != 0 {
		return fmt.Errorf("%w: parallel block size must be a positive multiple of the cipher block size", cipherr.ErrInvalidParam)
	}
	if maxDegree < 1 || maxDegree%2 != 0 {
		return fmt.Errorf("%w: max degree must be even", cipherr.ErrInvalidParam)
	}
	p.isParallel = isParallel
	p.parallelBlockSize = parallelBlockSize
	p.maxDegree = maxDegree
	p.parallelMaximumSize = parallelBlockSize * maxDegree
	return nil
}

func (p *Profile) BlockSize() int            { return p.blockSize }
func (p *Profile) ParallelBlockSize() int    { return p.parallelBlockSize }
func (p *Profile) ParallelMinimumSize() int  { return p.parallelMinimumSize }
func (p *Profile) ParallelMaximumSize() int  { return p.parallelMaximumSize }
func (p *Profile) MaxDegree() int            { return p.maxDegree }
func (p *Profile) IsParallel() bool          { return p.isParallel }
func (p *Profile) SIMDMultiply() bool        { return p.simdMultiply }
func (p *Profile) SIMDTier() SIMDTier        { return detectSIMDTier() }

// Degree returns the number of lanes Transform should use for an input of
// the given length: 1 if parallel dispatch is disabled or the input is
// smaller than ParallelMinimumSize, otherwise MaxDegree (capped so each
// lane still gets at least one block).
func (p *Profile) Degree(length int) int {
	if !p.isParallel || length < p.parallelMinimumSize {
		return 1
	}
	d := p.maxDegree
	maxByBlocks := length / p.blockSize
	if maxByBlocks < d {
		d = maxByBlocks
		if d < 1 {
			d = 1
		}
	}
	return d
}
