// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reti

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Bytes32 is a 32-byte array, typically a hash or a storage slot position.
type Bytes32 [32]byte

// BytesToBytes32 converts a byte slice to a Bytes32, left-padding or
// truncating from the left to fit.
func BytesToBytes32(b []byte) Bytes32 {
	var b32 Bytes32
	if len(b) > len(b32) {
		b = b[len(b)-len(b32):]
	}
	copy(b32[len(b32)-len(b):], b)
	return b32
}

// Bytes returns the value as a byte slice.
func (b Bytes32) Bytes() []byte {
	return b[:]
}

// IsZero returns true if the value is all zero.
func (b Bytes32) IsZero() bool {
	return b == Bytes32{}
}

func (b Bytes32) String() string {
	return hex.EncodeToString(b[:])
}

// Blake2b computes the blake2b-256 digest of the concatenation of the
// given byte slices.
func Blake2b(data ...[]byte) Bytes32 {
	h, _ := blake2b.New256(nil)
	for _, d := range data {
		h.Write(d)
	}
	var b32 Bytes32
	copy(b32[:], h.Sum(nil))
	return b32
}
