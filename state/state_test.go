// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retipool/retipool/lvldb"
	"github.com/retipool/retipool/reti"
)

func newState(t *testing.T) (*State, *lvldb.LevelDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), db
}

func TestBalances(t *testing.T) {
	st, _ := newState(t)
	acc := reti.BytesToAddress([]byte("acc"))

	balance, err := st.GetBalance(acc)
	require.NoError(t, err)
	assert.Zero(t, balance)

	st.SetBalance(acc, 100)
	require.NoError(t, st.AddBalance(acc, 50))
	require.NoError(t, st.SubBalance(acc, 30))
	balance, err = st.GetBalance(acc)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), balance)

	err = st.SubBalance(acc, 200)
	assert.ErrorContains(t, err, "insufficient balance")
}

func TestTokenHoldings(t *testing.T) {
	st, _ := newState(t)
	acc := reti.BytesToAddress([]byte("acc"))

	// crediting an asset the account has not opted into fails
	err := st.AddTokenBalance(acc, 7, 10)
	assert.ErrorContains(t, err, "not opted in")

	st.OptInToken(acc, 7)
	require.NoError(t, st.AddTokenBalance(acc, 7, 10))
	require.NoError(t, st.SubTokenBalance(acc, 7, 4))
	balance, err := st.GetTokenBalance(acc, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), balance)
}

func TestStorageRoundTrip(t *testing.T) {
	st, _ := newState(t)
	app := reti.BytesToAddress([]byte("app"))
	slot := reti.BytesToBytes32([]byte("slot"))

	st.SetRawStorage(app, slot, []byte("payload"))
	raw, err := st.GetRawStorage(app, slot)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), raw)

	// zero word deletes
	st.SetStorage(app, slot, reti.Bytes32{})
	raw, err = st.GetRawStorage(app, slot)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestCheckpointRevert(t *testing.T) {
	st, _ := newState(t)
	acc := reti.BytesToAddress([]byte("acc"))
	st.SetBalance(acc, 100)

	cp := st.NewCheckpoint()
	st.SetBalance(acc, 999)
	balance, _ := st.GetBalance(acc)
	assert.Equal(t, uint64(999), balance)

	st.RevertTo(cp)
	balance, err := st.GetBalance(acc)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)

	// state stays writable after a revert
	st.SetBalance(acc, 42)
	balance, _ = st.GetBalance(acc)
	assert.Equal(t, uint64(42), balance)
}

func TestStagePersists(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	acc := reti.BytesToAddress([]byte("acc"))
	slot := reti.BytesToBytes32([]byte("slot"))

	st := New(db)
	st.SetBalance(acc, 777)
	st.SetRawStorage(acc, slot, []byte("kept"))
	require.NoError(t, st.Stage())

	// a fresh state over the same store sees the flushed values
	st2 := New(db)
	balance, err := st2.GetBalance(acc)
	require.NoError(t, err)
	assert.Equal(t, uint64(777), balance)
	raw, err := st2.GetRawStorage(acc, slot)
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), raw)
}
