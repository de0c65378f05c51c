// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(v, p, app uint64) PoolKey {
	return PoolKey{ValidatorID: v, PoolID: p, PoolAppID: app}
}

func TestStakerPoolSetInsert(t *testing.T) {
	var set StakerPoolSet

	require.NoError(t, set.insert(key(1, 1, 100)))
	require.NoError(t, set.insert(key(2, 1, 200)))
	assert.Equal(t, key(1, 1, 100), set[0])
	assert.Equal(t, key(2, 1, 200), set[1])

	// duplicate insert is a no-op
	require.NoError(t, set.insert(key(1, 1, 100)))
	assert.Equal(t, 2, len(set.Keys()))
}

func TestStakerPoolSetSlotStability(t *testing.T) {
	var set StakerPoolSet
	require.NoError(t, set.insert(key(1, 1, 100)))
	require.NoError(t, set.insert(key(2, 1, 200)))
	require.NoError(t, set.insert(key(3, 1, 300)))

	// removal frees the slot in place
	set.remove(key(2, 1, 200))
	assert.True(t, set[1].IsZero())
	assert.Equal(t, key(3, 1, 300), set[2])

	// the freed slot is reused first
	require.NoError(t, set.insert(key(4, 1, 400)))
	assert.Equal(t, key(4, 1, 400), set[1])
}

func TestStakerPoolSetFull(t *testing.T) {
	var set StakerPoolSet
	for i := uint64(0); i < MaxPoolsPerStaker; i++ {
		require.NoError(t, set.insert(key(i+1, 1, 100+i)))
	}
	err := set.insert(key(9, 1, 900))
	require.Error(t, err)
	assert.ErrorContains(t, err, "pool set is full")
	assert.False(t, set.IsEmpty())
}
