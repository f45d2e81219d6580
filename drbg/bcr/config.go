// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package bcr

import "time"

const (
	KeySize128 = 16
	KeySize192 = 24
	KeySize256 = 32

	defaultKeySize        = KeySize256
	defaultMaxBytesPerKey = 1 << 30
	defaultMaxRequest     = 1 << 16
	defaultMaxOutput      = 1 << 34
	defaultMaxReseed      = 1 << 20
	defaultInitRetries    = 3
	defaultRekeyRetries   = 5
	defaultMaxBackoff     = 2 * time.Second
	defaultRekeyBackoff   = 100 * time.Millisecond
)

// Config tunes a BCR instance. It is validated once at construction and
// never mutated afterward, mirroring ctrdrbg.Config's functional-options
// pattern.
type Config struct {
	// KeySize selects AES-128/192/256 (16/24/32 bytes).
	KeySize int

	// MaxBytesPerKey is the reseed threshold: once this many output bytes
	// have been produced under one key, EnableKeyRotation triggers an
	// asynchronous reseed.
	MaxBytesPerKey uint64

	// MaxRequestSize caps the number of bytes a single Generate call may
	// request.
	MaxRequestSize int

	// MaxOutputSize caps the lifetime output of one instance before
	// Generate refuses further requests with cipherr.ErrMaxExceeded.
	MaxOutputSize uint64

	// MaxReseedCount caps the number of predictive-resistant reseeds
	// Generate may trigger before refusing further requests.
	MaxReseedCount uint64

	// EnableKeyRotation turns on the asynchronous background rekey path.
	EnableKeyRotation bool

	// Info is domain-separation material folded into the seed at
	// instantiation and at every reseed (the DRBG.BCR "info_bytes").
	Info []byte

	MaxInitRetries   int
	MaxRekeyAttempts int
	RekeyBackoff     time.Duration
	MaxRekeyBackoff  time.Duration

	// UseZeroBuffer stages keystream output in a reusable buffer before
	// copying it out, trading a little latency for fewer allocations
	// under heavy reuse.
	UseZeroBuffer bool
}

// DefaultConfig returns a Config with AES-256, a 1 GiB rekey threshold,
// and key rotation enabled.
func DefaultConfig() Config {
	return Config{
		KeySize:           defaultKeySize,
		MaxBytesPerKey:    defaultMaxBytesPerKey,
		MaxRequestSize:    defaultMaxRequest,
		MaxOutputSize:     defaultMaxOutput,
		MaxReseedCount:    defaultMaxReseed,
		EnableKeyRotation: true,
		MaxInitRetries:    defaultInitRetries,
		MaxRekeyAttempts:  defaultRekeyRetries,
		RekeyBackoff:      defaultRekeyBackoff,
		MaxRekeyBackoff:   defaultMaxBackoff,
	}
}

// Option mutates a Config at construction time.
type Option func(*Config)

func WithKeySize(n int) Option            { return func(c *Config) { c.KeySize = n } }
func WithMaxBytesPerKey(n uint64) Option  { return func(c *Config) { c.MaxBytesPerKey = n } }
func WithMaxRequestSize(n int) Option     { return func(c *Config) { c.MaxRequestSize = n } }
func WithMaxOutputSize(n uint64) Option   { return func(c *Config) { c.MaxOutputSize = n } }
func WithMaxReseedCount(n uint64) Option  { return func(c *Config) { c.MaxReseedCount = n } }
func WithEnableKeyRotation(v bool) Option { return func(c *Config) { c.EnableKeyRotation = v } }
func WithInfo(info []byte) Option         { return func(c *Config) { c.Info = info } }
func WithUseZeroBuffer(v bool) Option     { return func(c *Config) { c.UseZeroBuffer = v } }
func WithMaxInitRetries(n int) Option     { return func(c *Config) { c.MaxInitRetries = n } }
func WithMaxRekeyAttempts(n int) Option   { return func(c *Config) { c.MaxRekeyAttempts = n } }
func WithRekeyBackoff(d time.Duration) Option    { return func(c *Config) { c.RekeyBackoff = d } }
func WithMaxRekeyBackoff(d time.Duration) Option { return func(c *Config) { c.MaxRekeyBackoff = d } }
