// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/retipool/retipool/reti"
)

// MaxPoolsPerStaker caps how many pools a single account may stake across.
const MaxPoolsPerStaker = 4

// GatingType discriminates the optional entry-gating configuration. The
// gating logic itself lives outside the registry core; the registry only
// carries and shape-checks the variant.
type GatingType uint8

const (
	GatingNone GatingType = iota
	GatingCreatorNFD
	GatingNFDAppID
	GatingAssets
	GatingAllowList
)

// GatingSpec is the entry-gating variant carried in a validator's config.
type GatingSpec struct {
	Type           GatingType
	CreatorAddress reti.Address
	NFDAppID       uint64
	AssetIDs       []uint64
	MinBalance     uint64
	AllowList      []reti.Address
}

// ValidatorConfig is immutable after creation except for the commission
// address, which the owner may change.
type ValidatorConfig struct {
	// Payout interval, in minutes.
	PayoutEveryXMins uint16
	// Validator commission, four-decimal fixed point (50000 = 5%).
	PctToValidator uint32
	// Account commission payments go to.
	ValidatorCommissionAddress reti.Address
	// Minimum stake to enter a pool of this validator.
	MinEntryStake uint64
	// Per-pool stake ceiling.
	MaxAlgoPerPool uint64
	// Pool topology limits.
	PoolsPerNode uint8
	MaxNodes     uint8
	// Optional secondary reward token, custodied by pool #1.
	RewardTokenID   uint64
	RewardPerPayout uint64
	// Optional entry gating, opaque to the core.
	EntryGating GatingSpec
}

// ValidatorState holds the aggregate, mutable counters of a validator.
type ValidatorState struct {
	NumPools            uint64
	TotalStakers        uint64
	TotalAlgoStaked     uint64
	RewardTokenHeldBack uint64
}

// PoolInfo is the registry-side summary row of one pool.
type PoolInfo struct {
	NodeID          uint64
	PoolAppID       uint64
	TotalStakers    uint64
	TotalAlgoStaked uint64
}

// ValidatorInfo is the full validator record, stored as one box.
type ValidatorInfo struct {
	ID       uint64
	Owner    reti.Address
	Manager  reti.Address
	NFDAppID uint64
	Config   ValidatorConfig
	State    ValidatorState
	// Pools are appended, never removed; index i is pool id i+1.
	Pools []PoolInfo
}

// IsEmpty returns whether the record can be treated as missing.
func (v *ValidatorInfo) IsEmpty() bool {
	return v.ID == 0
}

// MaxPools returns the pool cap implied by the validator's topology.
func (v *ValidatorInfo) MaxPools() uint64 {
	return uint64(v.Config.MaxNodes) * uint64(v.Config.PoolsPerNode)
}

// PoolKey is the composite identity of a pool, used to authenticate
// cross-contract calls.
type PoolKey struct {
	ValidatorID uint64
	PoolID      uint64 // 1-based
	PoolAppID   uint64
}

// IsZero reports the "no pool" sentinel.
func (k PoolKey) IsZero() bool {
	return k.PoolID == 0
}

// StakerPoolSet is the fixed-capacity, reusable-slot array of pool keys a
// staker participates in. Empty slots carry the zero key.
type StakerPoolSet [MaxPoolsPerStaker]PoolKey

// PoolTokenPayoutRatio is the per-payout snapshot of each pool's share of
// the validator's total stake, in parts per million.
type PoolTokenPayoutRatio struct {
	PoolPctOfWhole []uint64
	// Pool #1's lastPayout at snapshot time; a new snapshot is taken only
	// once pool #1 has begun a new epoch.
	UpdatedOnPayout uint64
}
