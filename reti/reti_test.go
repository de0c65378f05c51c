// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reti

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressConversion(t *testing.T) {
	addr := BytesToAddress([]byte("abc"))
	assert.Equal(t, byte('a'), addr[29])
	assert.Equal(t, byte('c'), addr[31])
	assert.False(t, addr.IsZero())
	assert.True(t, Address{}.IsZero())

	// oversized input keeps the rightmost bytes
	long := make([]byte, 40)
	long[39] = 0x7f
	assert.Equal(t, byte(0x7f), BytesToAddress(long)[31])
}

func TestBlake2bDeterministic(t *testing.T) {
	h1 := Blake2b([]byte("a"), []byte("b"))
	h2 := Blake2b([]byte("a"), []byte("b"))
	h3 := Blake2b([]byte("ab"))
	assert.Equal(t, h1, h2)
	// concatenation order is part of the digest
	assert.Equal(t, h1, h3)
	assert.NotEqual(t, h1, Blake2b([]byte("b"), []byte("a")))
}

func TestAppAddressDistinct(t *testing.T) {
	assert.NotEqual(t, AppAddress(1), AppAddress(2))
	assert.Equal(t, AppAddress(7), AppAddress(7))
}

func TestEntryTimeDelay(t *testing.T) {
	// 320 blocks at 2.8s
	assert.Equal(t, uint64(896), uint64(EntryTimeDelaySecs))
}

func TestBoxMBR(t *testing.T) {
	assert.Equal(t, uint64(2500+400*10), BoxMBR(4, 6))
}
