// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// canonical 32-byte hashes used as block and transaction identifiers
//
// stored and compared as raw big-endian bytes so that lexicographic
// byte order matches repository key order (spec §3, Ordering)
package digest

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"
)

// Length is the number of bytes in a Hash
const Length = 32

// Hash is a canonical block or transaction identifier
type Hash [Length]byte

// Zero is the reserved all-zero hash; it never legitimately identifies
// a block or transaction
var Zero Hash

// New computes the canonical SHA3-256 digest of record
func New(record []byte) Hash {
	return sha3.Sum256(record)
}

// FromBytes copies a 32-byte slice into a Hash
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Length {
		return h, fmt.Errorf("digest: invalid length: expected %d actual %d", Length, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Bytes returns a defensive copy of the hash bytes
func (h Hash) Bytes() []byte {
	b := make([]byte, Length)
	copy(b, h[:])
	return b
}

// IsZero reports whether h is the reserved zero hash
func (h Hash) IsZero() bool {
	return h == Zero
}

// Compare returns -1, 0 or +1 comparing h and other lexicographically
// over raw bytes, per spec §3's ordering requirement
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// Less reports whether h sorts before other under raw byte order
func (h Hash) Less(other Hash) bool {
	return h.Compare(other) < 0
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) GoString() string {
	return "<Hash:" + hex.EncodeToString(h[:]) + ">"
}

// MarshalText implements encoding.TextMarshaler
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	decoded, err := FromBytes(b)
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}

// SortHashes sorts hashes ascending by raw byte order in place,
// matching spec §3's bulk-insert ordering requirement
func SortHashes(hashes []Hash) {
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].Less(hashes[j])
	})
}
