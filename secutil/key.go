// Copyright (c) 2024-2025 Six After, Inc
//
// This source code is licensed under the Apache 2.0 License found in the
// LICENSE file in the root directory of this source tree.

package secutil

import (
	"encoding/binary"
	"fmt"
)

// Key is a zeroizing carrier for a (key, nonce, info) triple with a
// length-prefixed wire encoding. The AEAD and DRBG constructions in this
// module take these as separate slices and do not accept a *Key; a caller
// holding a Key passes Key(), Nonce() and Info() to them.
type Key struct {
	key   []byte
	nonce []byte
	info  []byte
}

// NewKey copies key, nonce, and info into a new Key. Any of the three may
// be nil or empty.
func NewKey(key, nonce, info []byte) *Key {
	k := &Key{
		key:   append([]byte(nil), key...),
		nonce: append([]byte(nil), nonce...),
		info:  append([]byte(nil), info...),
	}
	return k
}

// Key returns the key material. The returned slice aliases Key's internal
// storage; callers must not retain it past a call to Destroy.
func (k *Key) Key() []byte { return k.key }

// Nonce returns the nonce material, or nil if none was set.
func (k *Key) Nonce() []byte { return k.nonce }

// Info returns the info/personalization material, or nil if none was set.
func (k *Key) Info() []byte { return k.info }

// Destroy zeroes all three fields. A Key must not be used after Destroy.
func (k *Key) Destroy() {
	Zero(k.key)
	Zero(k.nonce)
	Zero(k.info)
	k.key, k.nonce, k.info = nil, nil, nil
}

// MarshalBinary encodes the Key as a length-prefixed record:
//
//	u16(len(key)) || u16(len(nonce)) || u16(len(info)) || key || nonce || info
//
// All integers are big-endian, matching the network-byte-order convention
// used throughout this module's wire formats.
func (k *Key) MarshalBinary() ([]byte, error) {
	if len(k.key) > 0xFFFF || len(k.nonce) > 0xFFFF || len(k.info) > 0xFFFF {
		return nil, fmt.Errorf("secutil: field too large to encode")
	}
	out := make([]byte, 6+len(k.key)+len(k.nonce)+len(k.info))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(k.key)))
	binary.BigEndian.PutUint16(out[2:4], uint16(len(k.nonce)))
	binary.BigEndian.PutUint16(out[4:6], uint16(len(k.info)))
	off := 6
	off += copy(out[off:], k.key)
	off += copy(out[off:], k.nonce)
	copy(out[off:], k.info)
	return out, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (k *Key) UnmarshalBinary(data []byte) error {
	if len(data) < 6 {
		return fmt.Errorf("secutil: record too short")
	}
	kl := int(binary.BigEndian.Uint16(data[0:2]))
	nl := int(binary.BigEndian.Uint16(data[2:4]))
	il := int(binary.BigEndian.Uint16(data[4:6]))
	rest := data[6:]
	if len(rest) != kl+nl+il {
		return fmt.Errorf("secutil: record length mismatch")
	}
	k.key = append([]byte(nil), rest[:kl]...)
	k.nonce = append([]byte(nil), rest[kl:kl+nl]...)
	k.info = append([]byte(nil), rest[kl+nl:kl+nl+il]...)
	return nil
}
