// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

// Package bcr implements DRBG.BCR: a NIST SP 800-90A-style block-cipher
// counter DRBG. The atomic-state-swap-on-rekey architecture, the
// mutex-guarded evolving counter, and the background exponential-backoff
// rekey goroutine support a reseed-threshold, max-request, and max-output
// contract driven by a pluggable entropy.Provider.
package bcr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/sixafter/ciphersuite/cipherr"
	"github.com/sixafter/ciphersuite/entropy"
)

// hkdfHash selects SHA-512 for AES-256 keys (matching security strength)
// and SHA-256 otherwise.
func hkdfHash(keySize int) func() hash.Hash {
	if keySize == KeySize256 {
		return sha512.New
	}
	return sha256.New
}

// state is the immutable cryptographic state swapped atomically on
// rekey: the AES cipher and the working key.
type state struct {
	block cipher.Block
	key   []byte
}

// BCR is a block-cipher counter DRBG. An instance is safe for concurrent
// Generate calls (the evolving counter is mutex-guarded, the cryptographic
// state is swapped via atomic.Pointer) but Initialize/Reset must not race
// with Generate.
type BCR struct {
	cfg      Config
	provider entropy.Provider

	state atomic.Pointer[state]
	zero  []byte

	vMu sync.Mutex
	v   [16]byte

	usage          uint64
	reseedCounter  uint64
	reseedRequests uint64
	totalOutput    uint64
	rekeying       uint32

	initialized bool
}

// New constructs a BCR using entropy.OSProvider{} unless overridden by a
// later SetProvider call.
func New(opts ...Option) (*BCR, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	switch cfg.KeySize {
	case KeySize128, KeySize192, KeySize256:
	default:
		return nil, fmt.Errorf("%w: invalid key size %d bytes; must be 16, 24, or 32", cipherr.ErrInvalidKey, cfg.KeySize)
	}
	return &BCR{cfg: cfg, provider: entropy.OSProvider{}}, nil
}

// Initialize seeds the generator from seed (plus optional nonce, used as
// the HKDF salt, and info, folded into HKDF's info parameter after
// Config.Info), and
// derives the initial key and 128-bit counter via HKDF-HMAC (SHA-256 for
// 16/24-byte keys, SHA-512 for 32-byte keys), per this module's DOMAIN
// STACK seed-strengthening step.
func (d *BCR) Initialize(seed, nonce, info []byte) error {
	if len(seed) == 0 {
		return fmt.Errorf("%w: BCR seed must not be empty", cipherr.ErrInvalidKey)
	}
	key, v, err := derive(d.cfg.KeySize, seed, nonce, combineInfo(d.cfg.Info, info))
	if err != nil {
		return err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("%w: %v", cipherr.ErrInvalidKey, err)
	}
	d.state.Store(&state{block: block, key: key})
	d.v = v
	if d.cfg.UseZeroBuffer {
		d.zero = make([]byte, 4096)
	}
	d.initialized = true
	return nil
}

// SetProvider overrides the entropy source used by Reset and the background
// rekey. Initialize does not use the provider; it takes its seed from the
// caller.
func (d *BCR) SetProvider(p entropy.Provider) { d.provider = p }

func combineInfo(cfgInfo, callInfo []byte) []byte {
	if len(cfgInfo) == 0 {
		return callInfo
	}
	if len(callInfo) == 0 {
		return cfgInfo
	}
	out := make([]byte, 0, len(cfgInfo)+len(callInfo))
	out = append(out, cfgInfo...)
	out = append(out, callInfo...)
	return out
}

// derive runs HKDF (extract then expand) with seed as the secret, nonce as
// the salt, and info to produce a keySize-byte key and a 16-byte initial
// counter.
func derive(keySize int, seed, nonce, info []byte) ([]byte, [16]byte, error) {
	var v [16]byte
	hashNew := hkdfHash(keySize)
	r := hkdf.New(hashNew, seed, nonce, info)
	out := make([]byte, keySize+16)
	if _, err := readFull(r, out); err != nil {
		return nil, v, fmt.Errorf("%w: HKDF derive failed: %v", cipherr.ErrBadRead, err)
	}
	key := append([]byte(nil), out[:keySize]...)
	copy(v[:], out[keySize:])
	return key, v, nil
}

func readFull(r interface{ Read([]byte) (int, error) }, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("short read")
		}
	}
	return total, nil
}

// Generate fills b with keystream output, refusing with
// cipherr.ErrMaxExceeded a request larger than MaxRequestSize or one that
// would pass MaxOutputSize, returning it once MaxReseedCount is exceeded,
// and triggering an asynchronous background rekey once MaxBytesPerKey has
// been produced under the current key (mirroring ctrdrbg's EnableKeyRotation
// path).
func (d *BCR) Generate(b []byte) error {
	if !d.initialized {
		return fmt.Errorf("%w: BCR not initialized", cipherr.ErrNotInitialized)
	}
	if len(b) == 0 {
		return nil
	}
	if len(b) > d.cfg.MaxRequestSize {
		return fmt.Errorf("%w: request of %d bytes exceeds MaxRequestSize %d", cipherr.ErrMaxExceeded, len(b), d.cfg.MaxRequestSize)
	}
	if d.cfg.MaxOutputSize > 0 && atomic.LoadUint64(&d.totalOutput)+uint64(len(b)) > d.cfg.MaxOutputSize {
		return fmt.Errorf("%w: generator output budget exhausted", cipherr.ErrMaxExceeded)
	}

	st := d.state.Load()

	d.vMu.Lock()
	defer d.vMu.Unlock()
	var v [16]byte
	copy(v[:], d.v[:])
	fillBlocks(b, st.block, &v, d)
	copy(d.v[:], v[:])

	atomic.AddUint64(&d.totalOutput, uint64(len(b)))

	d.reseedCounter += uint64(len(b))
	if d.reseedCounter >= d.cfg.MaxBytesPerKey {
		d.reseedRequests++
		if d.reseedRequests > d.cfg.MaxReseedCount {
			return fmt.Errorf("%w: maximum reseed requests exceeded, re-initialize the generator", cipherr.ErrMaxExceeded)
		}
		d.reseedCounter = 0
		if d.cfg.EnableKeyRotation {
			if atomic.CompareAndSwapUint32(&d.rekeying, 0, 1) {
				go d.asyncRekey()
			}
		}
	}

	return nil
}

// Reset synchronously re-seeds the generator from fresh provider entropy,
// for callers that want a hard predictive-resistance boundary instead of
// the lazy background rekey path.
func (d *BCR) Reset() error {
	seed := make([]byte, d.cfg.KeySize+16)
	if err := d.provider.GetBytes(seed); err != nil {
		return err
	}
	return d.Initialize(seed[:d.cfg.KeySize], seed[d.cfg.KeySize:], nil)
}

func fillBlocks(b []byte, block cipher.Block, v *[16]byte, d *BCR) {
	n := len(b)
	offset := 0
	if d.cfg.UseZeroBuffer {
		if cap(d.zero) < n {
			d.zero = make([]byte, n)
		}
		d.zero = d.zero[:n]
		for remaining := n; remaining > 0; {
			blockSize := 16
			if remaining < 16 {
				blockSize = remaining
			}
			incV(v)
			block.Encrypt(d.zero[offset:offset+blockSize], v[:])
			copy(b[offset:offset+blockSize], d.zero[offset:offset+blockSize])
			offset += blockSize
			remaining -= blockSize
		}
		return
	}
	for ; offset+16 <= n; offset += 16 {
		incV(v)
		block.Encrypt(b[offset:offset+16], v[:])
	}
	if tail := n - offset; tail > 0 {
		var tmp [16]byte
		incV(v)
		block.Encrypt(tmp[:], v[:])
		copy(b[offset:], tmp[:tail])
	}
}

// asyncRekey mirrors ctrdrbg's asyncRekey: draws fresh entropy from the
// configured Provider, derives a new key/counter, and atomically installs
// the new state, retrying with exponential backoff on failure.
func (d *BCR) asyncRekey() {
	defer atomic.StoreUint32(&d.rekeying, 0)

	base := d.cfg.RekeyBackoff
	if base == 0 {
		base = defaultRekeyBackoff
	}
	maxBackoff := d.cfg.MaxRekeyBackoff
	if maxBackoff == 0 {
		maxBackoff = defaultMaxBackoff
	}

	for i := 0; i < d.cfg.MaxRekeyAttempts; i++ {
		seed := make([]byte, d.cfg.KeySize+16)
		if err := d.provider.GetBytes(seed); err == nil {
			key, v, err := derive(d.cfg.KeySize, seed[:d.cfg.KeySize], seed[d.cfg.KeySize:], d.cfg.Info)
			if err == nil {
				if block, err := aes.NewCipher(key); err == nil {
					d.state.Store(&state{block: block, key: key})
					d.vMu.Lock()
					d.v = v
					d.vMu.Unlock()
					return
				}
			}
		}
		time.Sleep(base)
		base *= 2
		if base > maxBackoff {
			base = maxBackoff
		}
	}
}

// incV increments a 128-bit big-endian counter by one.
func incV(v *[16]byte) {
	for i := 15; i >= 0; i-- {
		v[i]++
		if v[i] != 0 {
			break
		}
	}
}
