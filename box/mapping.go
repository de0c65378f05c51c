// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package box

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/retipool/retipool/reti"
)

// Key is a mapping key that can render itself as bytes.
type Key interface {
	Bytes() []byte
}

// Uint64Key is a mapping key for numeric ids, big-endian encoded.
type Uint64Key uint64

func (k Uint64Key) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

// Mapping is a key/value storage abstraction over per-app boxes. The box
// position is derived from the key bytes and the base position, so boxes
// of different mappings never collide.
type Mapping[K Key, V any] struct {
	context *Context
	basePos reti.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos reti.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	position := reti.Blake2b(key.Bytes(), m.basePos.Bytes())

	err = m.context.State.DecodeStorage(m.context.Address, position, func(raw []byte) error {
		if len(raw) == 0 {
			// on missing-key, allocate a fresh pointer if V is a pointer type
			typ := reflect.TypeOf(&value).Elem()
			if typ.Kind() == reflect.Ptr {
				value = reflect.New(typ.Elem()).Interface().(V)
			}
			return nil
		}

		m.context.UseBudget(toWordSize(len(raw)) * reti.BoxReadCost)
		return decodeValue(raw, &value)
	})
	return
}

// Has returns whether the key holds a value.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	position := reti.Blake2b(key.Bytes(), m.basePos.Bytes())
	raw, err := m.context.State.GetRawStorage(m.context.Address, position)
	if err != nil {
		return false, err
	}
	m.context.UseBudget(reti.BoxReadCost)
	return len(raw) > 0, nil
}

func (m *Mapping[K, V]) Set(key K, value V) error {
	position := reti.Blake2b(key.Bytes(), m.basePos.Bytes())

	return m.context.State.EncodeStorage(m.context.Address, position, func() ([]byte, error) {
		buf, err := encodeValue(value)
		if err != nil {
			return nil, err
		}
		m.context.UseBudget(toWordSize(len(buf)) * reti.BoxWriteCost)
		return buf, nil
	})
}

// ---------- RLP pooling helpers ----------

var encodeBufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// encodeValue reuses a bytes.Buffer from the pool and copies out the result.
func encodeValue(v any) ([]byte, error) {
	buf := encodeBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer encodeBufPool.Put(buf)

	if err := rlp.Encode(buf, v); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

var readerPool = sync.Pool{
	New: func() any { return new(bytes.Reader) },
}

// decodeValue reuses a bytes.Reader from the pool.
func decodeValue(raw []byte, out any) error {
	rdr := readerPool.Get().(*bytes.Reader)
	rdr.Reset(raw)
	defer readerPool.Put(rdr)

	return rlp.NewStream(rdr, 0).Decode(out)
}
