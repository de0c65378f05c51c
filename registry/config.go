// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/reverts"
)

// validateConfig gates every bound of a validator configuration. A single
// violation rejects the whole config.
func validateConfig(config *ValidatorConfig) error {
	if config.PayoutEveryXMins < reti.MinPayoutMins || config.PayoutEveryXMins > reti.MaxPayoutMins {
		return reverts.New(reverts.CodeConfiguration, "payout interval is out of boundaries")
	}
	if config.PctToValidator < reti.MinPctToValidatorWFourDecimals ||
		config.PctToValidator > reti.MaxPctToValidatorWFourDecimals {
		return reverts.New(reverts.CodeConfiguration, "commission percentage is out of boundaries")
	}
	if config.ValidatorCommissionAddress.IsZero() {
		return reverts.New(reverts.CodeConfiguration, "commission address cannot be zero")
	}
	if config.MinEntryStake < reti.MinAlgoStakePerPool {
		return reverts.New(reverts.CodeConfiguration, "min entry stake is below protocol minimum")
	}
	if config.MaxAlgoPerPool == 0 || config.MaxAlgoPerPool > reti.MaxAlgoPerPool {
		return reverts.New(reverts.CodeConfiguration, "per-pool cap is out of boundaries")
	}
	if config.PoolsPerNode < 1 || config.PoolsPerNode > reti.MaxPoolsPerNode {
		return reverts.New(reverts.CodeConfiguration, "pools per node is out of boundaries")
	}
	if config.MaxNodes < 1 || config.MaxNodes > reti.MaxNodes {
		return reverts.New(reverts.CodeConfiguration, "max nodes is out of boundaries")
	}
	if config.RewardPerPayout > 0 && config.RewardTokenID == 0 {
		return reverts.New(reverts.CodeConfiguration, "reward per payout set without a reward token")
	}
	return validateGating(&config.EntryGating)
}

func validateGating(gating *GatingSpec) error {
	switch gating.Type {
	case GatingNone:
	case GatingCreatorNFD:
		if gating.CreatorAddress.IsZero() {
			return reverts.New(reverts.CodeConfiguration, "gating creator address cannot be zero")
		}
	case GatingNFDAppID:
		if gating.NFDAppID == 0 {
			return reverts.New(reverts.CodeConfiguration, "gating nfd app id cannot be zero")
		}
	case GatingAssets:
		if len(gating.AssetIDs) == 0 || gating.MinBalance == 0 {
			return reverts.New(reverts.CodeConfiguration, "asset gating requires assets and a minimum balance")
		}
	case GatingAllowList:
		if len(gating.AllowList) == 0 {
			return reverts.New(reverts.CodeConfiguration, "allow list gating requires entries")
		}
	default:
		return reverts.New(reverts.CodeConfiguration, "unknown gating type")
	}
	return nil
}
