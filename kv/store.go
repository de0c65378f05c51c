// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Getter defines methods to read values.
type Getter interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// Putter defines methods to write values.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// Store defines the full interface of a key/value store.
type Store interface {
	Getter
	Putter

	IsNotFound(err error) bool
}
