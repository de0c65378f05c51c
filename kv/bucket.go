// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket provides logical bucketing of keys by prefix.
type Bucket string

// NewGetter creates a getter which operates on the bucket.
func (b Bucket) NewGetter(src Getter) Getter {
	return &struct {
		getFunc
		hasFunc
	}{
		func(key []byte) ([]byte, error) {
			return src.Get(b.makeKey(key))
		},
		func(key []byte) (bool, error) {
			return src.Has(b.makeKey(key))
		},
	}
}

// NewPutter creates a putter which operates on the bucket.
func (b Bucket) NewPutter(src Putter) Putter {
	return &struct {
		putFunc
		deleteFunc
	}{
		func(key, val []byte) error {
			return src.Put(b.makeKey(key), val)
		},
		func(key []byte) error {
			return src.Delete(b.makeKey(key))
		},
	}
}

func (b Bucket) makeKey(key []byte) []byte {
	newKey := make([]byte, 0, len(b)+len(key))
	return append(append(newKey, b...), key...)
}

type (
	getFunc    func(key []byte) ([]byte, error)
	hasFunc    func(key []byte) (bool, error)
	putFunc    func(key, val []byte) error
	deleteFunc func(key []byte) error
)

func (f getFunc) Get(key []byte) ([]byte, error) { return f(key) }
func (f hasFunc) Has(key []byte) (bool, error)   { return f(key) }
func (f putFunc) Put(key, val []byte) error      { return f(key, val) }
func (f deleteFunc) Delete(key []byte) error     { return f(key) }
