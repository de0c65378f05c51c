// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package box

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/retipool/retipool/reti"
)

// Raw is a simple wrapper for a single storage slot holding one value.
type Raw[V any] struct {
	context *Context
	pos     reti.Bytes32
}

// NewRaw creates a Raw cell at the given storage position.
func NewRaw[V any](context *Context, pos reti.Bytes32) *Raw[V] {
	return &Raw[V]{context: context, pos: pos}
}

// Get retrieves the stored value. A missing entry yields the zero value.
func (r *Raw[V]) Get() (V, error) {
	var value V
	err := r.context.State.DecodeStorage(r.context.Address, r.pos, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		r.context.UseBudget(toWordSize(len(raw)) * reti.BoxReadCost)
		return rlp.DecodeBytes(raw, &value)
	})
	return value, err
}

// Set stores the value.
func (r *Raw[V]) Set(value V) error {
	return r.context.State.EncodeStorage(r.context.Address, r.pos, func() ([]byte, error) {
		buf, err := rlp.EncodeToBytes(value)
		if err != nil {
			return nil, err
		}
		r.context.UseBudget(toWordSize(len(buf)) * reti.BoxWriteCost)
		return buf, nil
	})
}
