// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package blockcipher defines the capability trait that every cipher mode
// and block-cipher-backed DRBG in this module programs against. The block
// cipher core itself (the AES round function) is out of scope for this
// module; this package only frames how callers reach it.
package blockcipher

import (
	"crypto/aes"
	"fmt"

	"github.com/sixafter/ciphersuite/cipherr"
)

// Block is the capability trait for a keyed block cipher primitive. Modes
// in aead/icm, aead/eax, aead/gcm, aead/ocb, and drbg/bcr are written
// against this interface, never against a concrete cipher, so any FIPS
// block cipher with a 16-byte block size can be substituted.
type Block interface {
	// BlockSize returns the cipher's block size in bytes.
	BlockSize() int

	// LegalKeySizes returns the accepted key lengths, in bytes, smallest
	// first.
	LegalKeySizes() []int

	// EncryptBlock encrypts exactly one block from src into dst. dst and
	// src may overlap exactly or not at all.
	EncryptBlock(dst, src []byte)

	// DecryptBlock decrypts exactly one block from src into dst.
	DecryptBlock(dst, src []byte)

	// EncryptBlocks encrypts len(src)/BlockSize() consecutive blocks from
	// src into dst. len(src) must be a non-zero multiple of BlockSize().
	EncryptBlocks(dst, src []byte)

	// DecryptBlocks decrypts len(src)/BlockSize() consecutive blocks from
	// src into dst.
	DecryptBlocks(dst, src []byte)
}

// aesBlock adapts crypto/aes.NewCipher to the Block trait.
type aesBlock struct {
	c cipherBlock
}

// cipherBlock is the subset of cipher.Block this package needs; declared
// locally so this file does not need to import crypto/cipher just for one
// interface reference.
type cipherBlock interface {
	BlockSize() int
	Encrypt(dst, src []byte)
	Decrypt(dst, src []byte)
}

// NewAES constructs a Block backed by the Go standard library's AES
// implementation (AES-NI accelerated on supported platforms). key must be
// 16, 24, or 32 bytes (AES-128/192/256).
func NewAES(key []byte) (Block, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: AES key must be 16, 24, or 32 bytes, got %d", cipherr.ErrInvalidKey, len(key))
	}
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cipherr.ErrInvalidKey, err)
	}
	return &aesBlock{c: c}, nil
}

func (a *aesBlock) BlockSize() int          { return a.c.BlockSize() }
func (a *aesBlock) LegalKeySizes() []int    { return []int{16, 24, 32} }
func (a *aesBlock) EncryptBlock(dst, src []byte) { a.c.Encrypt(dst, src) }
func (a *aesBlock) DecryptBlock(dst, src []byte) { a.c.Decrypt(dst, src) }

func (a *aesBlock) EncryptBlocks(dst, src []byte) {
	bs := a.c.BlockSize()
	for off := 0; off+bs <= len(src); off += bs {
		a.c.Encrypt(dst[off:off+bs], src[off:off+bs])
	}
}

func (a *aesBlock) DecryptBlocks(dst, src []byte) {
	bs := a.c.BlockSize()
	for off := 0; off+bs <= len(src); off += bs {
		a.c.Decrypt(dst[off:off+bs], src[off:off+bs])
	}
}
