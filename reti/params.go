// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reti

// Protocol constants. Amounts are in microalgos unless stated otherwise.
const (
	// Stake changes only become visible to consensus after this many
	// blocks; entry times are pushed forward accordingly.
	StakeVisibilityDelayBlocks = 320
	// Average block time, in tenths of a second.
	AvgBlockTimeTenths = 28

	MaxNodes        = 12
	MaxPoolsPerNode = 4
	MaxPools        = MaxNodes * MaxPoolsPerNode

	MaxStakersPerPool = 80

	// Payout interval bounds, in minutes.
	MinPayoutMins = 1
	MaxPayoutMins = 10080 // one week

	// Validator commission bounds, four-decimal fixed point (10000 = 1%).
	MinPctToValidatorWFourDecimals = 10000
	MaxPctToValidatorWFourDecimals = 1000000

	// Commission denominator: pct values are parts per million.
	CommissionDenominator = 1_000_000
	// Time-in-epoch denominator: tenths of a percent.
	TimePercentDenominator = 1000

	// Protocol floor for a validator's minimum entry stake.
	MinAlgoStakePerPool = 1_000_000
	// Protocol ceiling for a single pool's stake.
	MaxAlgoPerPool = 70_000_000_000_000

	// A validator whose total stake exceeds this fraction of all online
	// stake (tenths of a percent) has its rewards redirected to the fee
	// sink.
	MaxValidatorPctOfOnline1Decimal = 100 // 10%

	// An epoch payout with no token reward must carry more than one whole
	// unit of algo reward.
	MinEpochPayout = 1_000_000
)

// Platform minimum-balance (MBR) constants.
const (
	MinBalance           = 100_000
	BoxFlatMinBalance    = 2500
	BoxByteMinBalance    = 400
	AssetOptInMinBalance = 100_000
	AppPageMinBalance    = 100_000
)

// Opcode budget accounting.
const (
	// Cost charged per 32-byte word of storage read/written.
	BoxReadCost  = 8
	BoxWriteCost = 16
	// When remaining budget drops below the threshold, contracts request
	// another grant.
	OpcodeBudgetThreshold = 160
	OpcodeBudgetGrant     = 700
)

// EntryTimeDelaySecs is the number of seconds a new stake's entry time is
// offset into the future, derived from the stake visibility delay.
const EntryTimeDelaySecs = StakeVisibilityDelayBlocks * AvgBlockTimeTenths / 10

// BoxMBR returns the minimum balance a box of the given key and value
// sizes adds to its holder.
func BoxMBR(keyLen, valueLen uint64) uint64 {
	return BoxFlatMinBalance + BoxByteMinBalance*(keyLen+valueLen)
}
