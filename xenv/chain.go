// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/state"
)

// Chain is the deterministic transactional substrate contracts execute on:
// state, the app table, block time and the chain-level quantities payout
// logic reads. There is no in-chain concurrency; callers are serialized by
// block production.
type Chain struct {
	state       *state.State
	apps        map[uint64]any
	nextAppID   uint64
	now         uint64
	feeSink     reti.Address
	onlineStake uint64
}

// NewChain creates a chain over the given state.
func NewChain(st *state.State) *Chain {
	return &Chain{
		state:     st,
		apps:      make(map[uint64]any),
		nextAppID: 1000,
		feeSink:   reti.BytesToAddress([]byte("fee-sink")),
	}
}

func (c *Chain) State() *state.State {
	return c.state
}

// Now returns the current block timestamp, in unix seconds.
func (c *Chain) Now() uint64 {
	return c.now
}

// At advances the block timestamp. Time never moves backwards.
func (c *Chain) At(timestamp uint64) *Chain {
	if timestamp > c.now {
		c.now = timestamp
	}
	return c
}

// FeeSink returns the protocol fee sink account.
func (c *Chain) FeeSink() reti.Address {
	return c.feeSink
}

// OnlineStake returns the total online stake of the network.
func (c *Chain) OnlineStake() uint64 {
	return c.onlineStake
}

// SetOnlineStake sets the total online stake, normally tracked by
// consensus.
func (c *Chain) SetOnlineStake(total uint64) {
	c.onlineStake = total
}

// CreateApp registers a new application instance and returns its id. The
// app's account carries the platform minimum balance requirement from
// creation.
func (c *Chain) CreateApp(instance any) (uint64, error) {
	id := c.nextAppID
	c.nextAppID++
	c.apps[id] = instance
	if err := c.state.AddMinBalance(reti.AppAddress(id), reti.MinBalance); err != nil {
		return 0, err
	}
	return id, nil
}

// App returns the application instance registered under the id.
func (c *Chain) App(id uint64) (any, bool) {
	app, ok := c.apps[id]
	return app, ok
}
