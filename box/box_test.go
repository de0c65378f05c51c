// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package box

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retipool/retipool/lvldb"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/state"
)

type record struct {
	Owner reti.Address
	Count uint64
}

func newContext(t *testing.T) *Context {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewContext(reti.BytesToAddress([]byte("app")), state.New(db), nil)
}

func TestRawRoundTrip(t *testing.T) {
	ctx := newContext(t)
	cell := NewRaw[uint64](ctx, reti.BytesToBytes32([]byte("counter")))

	v, err := cell.Get()
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, cell.Set(42))
	v, err = cell.Get()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)
}

func TestRawString(t *testing.T) {
	ctx := newContext(t)
	cell := NewRaw[string](ctx, reti.BytesToBytes32([]byte("ver")))

	require.NoError(t, cell.Set("3.25.0"))
	v, err := cell.Get()
	require.NoError(t, err)
	assert.Equal(t, "3.25.0", v)
}

func TestMappingRoundTrip(t *testing.T) {
	ctx := newContext(t)
	m := NewMapping[Uint64Key, *record](ctx, reti.BytesToBytes32([]byte("records")))

	// a missing key yields a fresh, usable pointer
	missing, err := m.Get(Uint64Key(1))
	require.NoError(t, err)
	require.NotNil(t, missing)
	assert.Zero(t, missing.Count)

	has, err := m.Has(Uint64Key(1))
	require.NoError(t, err)
	assert.False(t, has)

	want := &record{Owner: reti.BytesToAddress([]byte("o")), Count: 9}
	require.NoError(t, m.Set(Uint64Key(1), want))
	got, err := m.Get(Uint64Key(1))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	has, err = m.Has(Uint64Key(1))
	require.NoError(t, err)
	assert.True(t, has)

	// distinct keys hash to distinct boxes
	other, err := m.Get(Uint64Key(2))
	require.NoError(t, err)
	assert.Zero(t, other.Count)
}
