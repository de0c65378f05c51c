// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/retipool/retipool/kv"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/stackedmap"
)

// Buckets partitioning the backing key/value store.
const (
	bucketBalance    = kv.Bucket("b")
	bucketMinBalance = kv.Bucket("m")
	bucketToken      = kv.Bucket("t")
	bucketOptIn      = kv.Bucket("o")
	bucketStorage    = kv.Bucket("s")
)

type (
	balanceKey    reti.Address
	minBalanceKey reti.Address
	tokenKey      struct {
		addr    reti.Address
		assetID uint64
	}
	optInKey struct {
		addr    reti.Address
		assetID uint64
	}
	storageKey struct {
		addr reti.Address
		key  reti.Bytes32
	}
)

// State is the facade for account and app-storage state. All changes are
// journaled; NewCheckpoint/RevertTo give the all-or-nothing semantics of
// the transactional substrate. Stage flushes the journal to the backing
// store.
type State struct {
	store kv.Store
	sm    *stackedmap.StackedMap
}

// New creates a state backed by the given store.
func New(store kv.Store) *State {
	st := &State{store: store}
	st.sm = stackedmap.New(func(key any) (any, bool, error) {
		return st.cacheGetter(key)
	})
	// the bottom layer holds direct writes before the first checkpoint
	st.sm.Push()
	return st
}

func (s *State) cacheGetter(key any) (any, bool, error) {
	switch k := key.(type) {
	case balanceKey:
		v, err := s.loadUint64(bucketBalance, reti.Address(k).Bytes())
		return v, true, err
	case minBalanceKey:
		v, err := s.loadUint64(bucketMinBalance, reti.Address(k).Bytes())
		return v, true, err
	case tokenKey:
		v, err := s.loadUint64(bucketToken, tokenStoreKey(k.addr, k.assetID))
		return v, true, err
	case optInKey:
		v, err := s.loadUint64(bucketOptIn, tokenStoreKey(k.addr, k.assetID))
		return v != 0, true, err
	case storageKey:
		raw, err := s.loadRaw(bucketStorage, append(k.addr.Bytes(), k.key.Bytes()...))
		return raw, true, err
	}
	return nil, false, errors.New("unexpected state key type")
}

func tokenStoreKey(addr reti.Address, assetID uint64) []byte {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], assetID)
	return append(addr.Bytes(), idBytes[:]...)
}

func (s *State) loadRaw(bucket kv.Bucket, key []byte) ([]byte, error) {
	raw, err := bucket.NewGetter(s.store).Get(key)
	if err != nil {
		if s.store.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to load state entry")
	}
	return raw, nil
}

func (s *State) loadUint64(bucket kv.Bucket, key []byte) (uint64, error) {
	raw, err := s.loadRaw(bucket, key)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

//
// Balances
//

// GetBalance returns the account's balance.
func (s *State) GetBalance(addr reti.Address) (uint64, error) {
	v, _, err := s.sm.Get(balanceKey(addr))
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

// SetBalance sets the account's balance.
func (s *State) SetBalance(addr reti.Address, balance uint64) {
	s.sm.Put(balanceKey(addr), balance)
}

// AddBalance credits the account.
func (s *State) AddBalance(addr reti.Address, amount uint64) error {
	balance, err := s.GetBalance(addr)
	if err != nil {
		return err
	}
	newBalance := balance + amount
	if newBalance < balance {
		return errors.New("balance overflow")
	}
	s.SetBalance(addr, newBalance)
	return nil
}

// SubBalance debits the account, failing on insufficient funds.
func (s *State) SubBalance(addr reti.Address, amount uint64) error {
	balance, err := s.GetBalance(addr)
	if err != nil {
		return err
	}
	if balance < amount {
		return errors.New("insufficient balance")
	}
	s.SetBalance(addr, balance-amount)
	return nil
}

// GetMinBalance returns the account's minimum balance requirement.
func (s *State) GetMinBalance(addr reti.Address) (uint64, error) {
	v, _, err := s.sm.Get(minBalanceKey(addr))
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

// AddMinBalance raises the account's minimum balance requirement.
func (s *State) AddMinBalance(addr reti.Address, amount uint64) error {
	mb, err := s.GetMinBalance(addr)
	if err != nil {
		return err
	}
	s.sm.Put(minBalanceKey(addr), mb+amount)
	return nil
}

//
// Token holdings
//

// IsOptedIn reports whether the account holds the asset.
func (s *State) IsOptedIn(addr reti.Address, assetID uint64) (bool, error) {
	v, _, err := s.sm.Get(optInKey{addr, assetID})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// OptInToken opts the account into the asset.
func (s *State) OptInToken(addr reti.Address, assetID uint64) {
	s.sm.Put(optInKey{addr, assetID}, true)
}

// GetTokenBalance returns the account's balance of the asset.
func (s *State) GetTokenBalance(addr reti.Address, assetID uint64) (uint64, error) {
	v, _, err := s.sm.Get(tokenKey{addr, assetID})
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

// AddTokenBalance credits the account with the asset.
func (s *State) AddTokenBalance(addr reti.Address, assetID, amount uint64) error {
	optedIn, err := s.IsOptedIn(addr, assetID)
	if err != nil {
		return err
	}
	if !optedIn {
		return errors.New("account not opted into asset")
	}
	balance, err := s.GetTokenBalance(addr, assetID)
	if err != nil {
		return err
	}
	s.sm.Put(tokenKey{addr, assetID}, balance+amount)
	return nil
}

// SubTokenBalance debits the account of the asset.
func (s *State) SubTokenBalance(addr reti.Address, assetID, amount uint64) error {
	balance, err := s.GetTokenBalance(addr, assetID)
	if err != nil {
		return err
	}
	if balance < amount {
		return errors.New("insufficient token balance")
	}
	s.sm.Put(tokenKey{addr, assetID}, balance-amount)
	return nil
}

//
// App storage
//

// GetRawStorage returns the raw storage value of the given key.
func (s *State) GetRawStorage(addr reti.Address, key reti.Bytes32) ([]byte, error) {
	v, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.([]byte), nil
}

// SetRawStorage sets the raw storage value of the given key. A nil value
// deletes the entry.
func (s *State) SetRawStorage(addr reti.Address, key reti.Bytes32, raw []byte) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// GetStorage returns the storage value interpreted as a single word.
func (s *State) GetStorage(addr reti.Address, key reti.Bytes32) (reti.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return reti.Bytes32{}, err
	}
	return reti.BytesToBytes32(raw), nil
}

// SetStorage sets the storage value as a single word.
func (s *State) SetStorage(addr reti.Address, key, value reti.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	s.SetRawStorage(addr, key, value.Bytes())
}

// EncodeStorage encodes and stores the value produced by the callback.
func (s *State) EncodeStorage(addr reti.Address, key reti.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return errors.Wrap(err, "failed to encode storage")
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage loads the raw value of the key and passes it to the
// callback to decode. Missing entries yield an empty slice.
func (s *State) DecodeStorage(addr reti.Address, key reti.Bytes32, dec func(raw []byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return errors.Wrap(err, "failed to decode storage")
	}
	return nil
}

//
// Checkpoints
//

// NewCheckpoint pushes a checkpoint and returns it.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts all changes after the checkpoint.
func (s *State) RevertTo(checkpoint int) {
	s.sm.PopTo(checkpoint - 1)
	if s.sm.Depth() < checkpoint {
		s.sm.Push()
	}
}

// Stage flushes all journaled changes to the backing store.
func (s *State) Stage() error {
	var flushErr error
	s.sm.Journal(func(key, value any) bool {
		flushErr = s.flush(key, value)
		return flushErr == nil
	})
	return flushErr
}

func (s *State) flush(key, value any) error {
	putUint64 := func(bucket kv.Bucket, k []byte, v uint64) error {
		var raw [8]byte
		binary.BigEndian.PutUint64(raw[:], v)
		return bucket.NewPutter(s.store).Put(k, raw[:])
	}
	switch k := key.(type) {
	case balanceKey:
		return putUint64(bucketBalance, reti.Address(k).Bytes(), value.(uint64))
	case minBalanceKey:
		return putUint64(bucketMinBalance, reti.Address(k).Bytes(), value.(uint64))
	case tokenKey:
		return putUint64(bucketToken, tokenStoreKey(k.addr, k.assetID), value.(uint64))
	case optInKey:
		var v uint64
		if value.(bool) {
			v = 1
		}
		return putUint64(bucketOptIn, tokenStoreKey(k.addr, k.assetID), v)
	case storageKey:
		storeKey := append(k.addr.Bytes(), k.key.Bytes()...)
		if value == nil || len(value.([]byte)) == 0 {
			return bucketStorage.NewPutter(s.store).Delete(storeKey)
		}
		return bucketStorage.NewPutter(s.store).Put(storeKey, value.([]byte))
	}
	return errors.New("unexpected journal entry type")
}
