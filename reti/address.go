// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reti

import (
	"encoding/binary"
	"encoding/hex"
)

// Address is a 32-byte account address.
type Address [32]byte

// BytesToAddress converts a byte slice to an Address, left-padding or
// truncating from the left to fit.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > len(a) {
		b = b[len(b)-len(a):]
	}
	copy(a[len(a)-len(b):], b)
	return a
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero returns true if the address is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// AppAddress derives the account address of an application instance from
// its id.
func AppAddress(appID uint64) Address {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], appID)
	return Address(Blake2b([]byte("appID"), idBytes[:]))
}
