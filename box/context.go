// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package box

import (
	"github.com/retipool/retipool/budget"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/state"
)

// Context binds storage cells to an app account, the state they live in
// and the charger accounting their access cost.
type Context struct {
	Address reti.Address
	State   *state.State
	Charger *budget.Charger
}

func NewContext(addr reti.Address, st *state.State, charger *budget.Charger) *Context {
	return &Context{Address: addr, State: st, Charger: charger}
}

func (c *Context) UseBudget(cost uint64) {
	if c.Charger != nil {
		c.Charger.Charge(cost)
	}
}

// toWordSize converts a byte length to 32-byte words.
func toWordSize(length int) uint64 {
	return (uint64(length) + 31) / 32
}
