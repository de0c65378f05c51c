// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/retipool/retipool/reverts"
)

// contains returns the slot index holding the key, or -1.
func (s *StakerPoolSet) contains(key PoolKey) int {
	for i := range s {
		if s[i] == key {
			return i
		}
	}
	return -1
}

// insert places the key into the first empty slot. Inserting a key already
// present is a no-op; slot indices of existing entries never move.
func (s *StakerPoolSet) insert(key PoolKey) error {
	if s.contains(key) >= 0 {
		return nil
	}
	for i := range s {
		if s[i].IsZero() {
			s[i] = key
			return nil
		}
	}
	return reverts.New(reverts.CodeCapacity, "staker pool set is full")
}

// remove overwrites the key's slot with the zero sentinel, preserving the
// indices of the remaining entries.
func (s *StakerPoolSet) remove(key PoolKey) {
	if i := s.contains(key); i >= 0 {
		s[i] = PoolKey{}
	}
}

// IsEmpty returns whether no slot is occupied.
func (s *StakerPoolSet) IsEmpty() bool {
	for i := range s {
		if !s[i].IsZero() {
			return false
		}
	}
	return true
}

// Keys returns the occupied entries in slot order.
func (s *StakerPoolSet) Keys() []PoolKey {
	keys := make([]PoolKey, 0, len(s))
	for i := range s {
		if !s[i].IsZero() {
			keys = append(keys, s[i])
		}
	}
	return keys
}
