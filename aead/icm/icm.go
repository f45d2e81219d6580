// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package icm implements CounterMode: plain integer-counter mode (ICM)
// over a blockcipher.Block, with optional parallel keystream generation
// via parallel.Profile. ICM itself provides no authentication; it is the
// building block aead/eax stages its own framing on top of.
package icm

import (
	"sync"

	"github.com/sixafter/ciphersuite/blockcipher"
	"github.com/sixafter/ciphersuite/cipherr"
	"github.com/sixafter/ciphersuite/parallel"

	"fmt"
)

// CounterMode transforms a block cipher into a stream cipher by
// encrypting a big-endian 128-bit counter and XORing the result with the
// input. It is not an AEAD on its own — see aead/eax for the
// authenticated construction built over it.
type CounterMode struct {
	block   blockcipher.Block
	profile *parallel.Profile
	counter [16]byte
	init    bool
}

// New constructs a CounterMode over block.
func New(block blockcipher.Block) (*CounterMode, error) {
	if block == nil {
		return nil, fmt.Errorf("%w: block cipher must not be nil", cipherr.ErrInvalidParam)
	}
	if block.BlockSize() != 16 {
		return nil, fmt.Errorf("%w: CounterMode requires a 16-byte block cipher", cipherr.ErrInvalidParam)
	}
	profile, err := parallel.NewProfile(block.BlockSize(), true, 0, false)
	if err != nil {
		return nil, err
	}
	return &CounterMode{block: block, profile: profile}, nil
}

// Profile returns the mode's parallel dispatch profile.
func (c *CounterMode) Profile() *parallel.Profile { return c.profile }

// Initialize sets the initial counter value (the nonce, left-padded or
// truncated to 16 bytes by the caller) and marks the mode ready for
// Transform.
func (c *CounterMode) Initialize(nonce []byte) error {
	if len(nonce) != 16 {
		return fmt.Errorf("%w: ICM nonce/counter must be 16 bytes, got %d", cipherr.ErrInvalidNonce, len(nonce))
	}
	copy(c.counter[:], nonce)
	c.init = true
	return nil
}

// Transform XORs the ICM keystream with input, writing the result to
// output. len(output) must equal len(input). Encryption and decryption are
// the same operation in counter mode.
func (c *CounterMode) Transform(output, input []byte) error {
	if !c.init {
		return fmt.Errorf("%w: CounterMode not initialized", cipherr.ErrNotInitialized)
	}
	if len(output) != len(input) {
		return fmt.Errorf("%w: output and input length must match", cipherr.ErrInvalidSize)
	}
	if len(input) == 0 {
		return nil
	}

	degree := c.profile.Degree(len(input))
	if degree <= 1 {
		ctr := c.counter
		transformRange(c.block, output, input, &ctr)
		c.counter = ctr
		return nil
	}

	// Parallel dispatch: stage per-lane counters by striding the starting
	// counter forward by the number of blocks each earlier lane will
	// consume, then fan out. The final counter value is the starting
	// counter advanced by the total number of blocks in the whole input.
	blockSize := c.block.BlockSize()
	totalBlocks := (len(input) + blockSize - 1) / blockSize
	blocksPerLane := totalBlocks / degree
	remBlocks := totalBlocks % degree

	var wg sync.WaitGroup
	offset := 0
	ctr := c.counter
	for lane := 0; lane < degree; lane++ {
		laneBlocks := blocksPerLane
		if lane < remBlocks {
			laneBlocks++
		}
		laneBytes := laneBlocks * blockSize
		if offset+laneBytes > len(input) {
			laneBytes = len(input) - offset
		}
		laneCtr := ctr
		start, end := offset, offset+laneBytes
		wg.Add(1)
		go func(start, end int, laneCtr [16]byte) {
			defer wg.Done()
			transformRange(c.block, output[start:end], input[start:end], &laneCtr)
		}(start, end, laneCtr)
		advance(&ctr, laneBlocks)
		offset += laneBytes
	}
	wg.Wait()
	c.counter = ctr
	return nil
}

// transformRange advances ctr by one for every block (or partial tail
// block) it consumes from src, writing the XORed keystream to dst.
func transformRange(block blockcipher.Block, dst, src []byte, ctr *[16]byte) {
	blockSize := block.BlockSize()
	var ks [16]byte
	off := 0
	for ; off+blockSize <= len(src); off += blockSize {
		incrementBE(ctr)
		block.EncryptBlock(ks[:], ctr[:])
		xorInto(dst[off:off+blockSize], src[off:off+blockSize], ks[:])
	}
	if tail := len(src) - off; tail > 0 {
		incrementBE(ctr)
		block.EncryptBlock(ks[:], ctr[:])
		xorInto(dst[off:], src[off:], ks[:tail])
	}
}

func xorInto(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

// incrementBE advances a 16-byte big-endian counter by one, wrapping on
// overflow. Matches the counter-advance convention used throughout this
// module's DRBG family (drbg/bcr's incV).
func incrementBE(v *[16]byte) {
	for i := 15; i >= 0; i-- {
		v[i]++
		if v[i] != 0 {
			break
		}
	}
}

// advance moves ctr forward by n block increments.
func advance(ctr *[16]byte, n int) {
	for i := 0; i < n; i++ {
		incrementBE(ctr)
	}
}
