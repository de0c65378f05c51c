// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/retipool/retipool/reti"
)

// StakedInfo is one slot of the pool's staker ledger. A slot's index is
// stable for the whole occupied lifetime of the entry.
type StakedInfo struct {
	Account reti.Address
	Balance uint64
	// Cumulative algo rewards ever credited to this entry.
	TotalRewarded uint64
	// Unclaimed secondary-token rewards, custodied by pool #1.
	RewardTokenBalance uint64
	// Timestamp the stake takes effect for reward purposes.
	EntryTime uint64
}

// IsEmpty returns whether the slot is unoccupied.
func (s *StakedInfo) IsEmpty() bool {
	return s.Account.IsZero()
}

// Ledger is the fixed-capacity staker array, stored as one box.
type Ledger [reti.MaxStakersPerPool]StakedInfo
