// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package budget

import (
	"fmt"

	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/xenv"
)

// Charger tracks the opcode budget an app call consumes, broken down by
// storage operation class. Every storage cell access charges through it.
type Charger struct {
	env       *xenv.Environment
	readOps   uint64
	writeOps  uint64
	customOps uint64
	total     uint64
}

func New(env *xenv.Environment) *Charger {
	return &Charger{env: env}
}

func (c *Charger) Charge(cost uint64) {
	c.total += cost

	switch {
	case cost%reti.BoxWriteCost == 0 && cost > 0:
		c.writeOps += cost / reti.BoxWriteCost
	case cost%reti.BoxReadCost == 0 && cost > 0:
		c.readOps += cost / reti.BoxReadCost
	default:
		c.customOps += cost
	}

	if c.env != nil {
		c.env.UseBudget(cost)
	}
}

func (c *Charger) Total() uint64 {
	return c.total
}

func (c *Charger) Breakdown() string {
	return fmt.Sprintf(
		"READ: %d ops | WRITE: %d ops | CUSTOM: %d | TOTAL: %d",
		c.readOps, c.writeOps, c.customOps, c.total,
	)
}
