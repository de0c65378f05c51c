// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"github.com/retipool/retipool/metrics"
	"github.com/retipool/retipool/registry"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/reverts"
	"github.com/retipool/retipool/xenv"
)

var (
	metricPayouts         = metrics.Counter("epoch_payouts_count")
	metricRewardsCredited = metrics.Counter("rewards_credited_microalgo")
	metricFeeSinkRedirect = metrics.Counter("fee_sink_redirects_count")
)

// EpochBalanceUpdate distributes the pool's accrued rewards for the epoch.
// Anyone may call it; correctness depends only on state and block time.
//
// Rewards accrued since the last payout are the pool balance in excess of
// tracked stake and the account's balance floor. A validator over the
// protocol stake cap forfeits the epoch's rewards to the fee sink. The
// remainder pays the validator commission and is then allocated to stakers
// in two passes: partial-epoch stakers first, time-weighted, each credit
// taken out of what remains of the pot, then full-epoch stakers splitting
// the residual by stake.
//
// A failed update discards every partial write, mirroring the atomic
// transaction-group semantics of the platform.
func (p *StakingPool) EpochBalanceUpdate(env *xenv.Environment) error {
	checkpoint := env.State().NewCheckpoint()
	if err := p.epochBalanceUpdate(env); err != nil {
		env.State().RevertTo(checkpoint)
		return err
	}
	return nil
}

func (p *StakingPool) epochBalanceUpdate(env *xenv.Environment) error {
	sto := p.storageFor(env)
	vid, pid, creator, err := p.identity(sto)
	if err != nil {
		return err
	}
	if vid == 0 {
		return reverts.New(reverts.CodeAuthorization, "template pool cannot pay out")
	}
	reg, err := p.registryApp(creator)
	if err != nil {
		return err
	}
	config, err := reg.GetConfig(env, vid)
	if err != nil {
		return err
	}

	// epoch gate
	now := env.Now()
	epochSecs := uint64(config.PayoutEveryXMins) * 60
	lastPayout, err := sto.lastPayout.Get()
	if err != nil {
		return err
	}
	if lastPayout != 0 && now-lastPayout < epochSecs {
		return reverts.New(reverts.CodeTiming, "epoch has not elapsed")
	}
	if err := sto.lastPayout.Set(now); err != nil {
		return err
	}

	penv := env.WithApp(p.appID)

	// token-ratio snapshot, shared across the validator's pools for this
	// payout cycle
	var ratio *registry.PoolTokenPayoutRatio
	if config.RewardTokenID != 0 {
		if pid == 1 {
			ratio, err = reg.SetTokenPayoutRatio(penv.InnerCall(creator), vid)
		} else {
			ratio, err = p.fetchRatioViaPrimary(penv, reg, vid, pid)
		}
		if err != nil {
			return err
		}
	}

	// reward pools
	balance, err := env.State().GetBalance(p.address)
	if err != nil {
		return err
	}
	minBalance, err := env.State().GetMinBalance(p.address)
	if err != nil {
		return err
	}
	staked, err := sto.staked.Get()
	if err != nil {
		return err
	}
	if balance < staked+minBalance {
		return reverts.New(reverts.CodeInvariant, "pool balance below tracked stake")
	}
	algoReward := balance - staked - minBalance

	vstate, err := reg.GetState(env, vid)
	if err != nil {
		return err
	}

	redirected := false
	onlineStake := env.Chain().OnlineStake()
	if onlineStake > 0 {
		maxAllowed := mulDiv(onlineStake, reti.MaxValidatorPctOfOnline1Decimal, reti.TimePercentDenominator)
		if vstate.TotalAlgoStaked > maxAllowed {
			// over the protocol cap: the whole epoch's reward is forfeit
			redirected = true
			if algoReward > 0 {
				if err := penv.PayOut(env.Chain().FeeSink(), algoReward); err != nil {
					return err
				}
			}
			metricFeeSinkRedirect.AddWithLabel(1, map[string]string{})
			logger.Warn("validator over protocol cap, rewards redirected",
				"validator", vid, "pool", pid, "amount", algoReward)
			algoReward = 0
		}
	}

	var validatorPay uint64
	if !redirected && algoReward > 0 {
		validatorPay = mulDiv(algoReward, uint64(config.PctToValidator), reti.CommissionDenominator)
		if validatorPay > 0 {
			if err := penv.PayOut(config.ValidatorCommissionAddress, validatorPay); err != nil {
				return err
			}
		}
		algoReward -= validatorPay
	}

	var tokenReward uint64
	if config.RewardTokenID != 0 {
		pool1Addr := p.address
		if pid != 1 {
			pool1AppID, err := reg.GetPoolAppID(env, vid, 1)
			if err != nil {
				return err
			}
			pool1Addr = reti.AppAddress(pool1AppID)
		}
		pool1TokenBalance, err := env.State().GetTokenBalance(pool1Addr, config.RewardTokenID)
		if err != nil {
			return err
		}
		tokenAvail, underflow := math.SafeSub(pool1TokenBalance, vstate.RewardTokenHeldBack)
		if underflow {
			return reverts.New(reverts.CodeInvariant, "held-back tokens exceed custody balance")
		}
		// a pool added mid-cycle is absent from the cached snapshot and
		// earns no token share until the next cycle
		if tokenAvail >= config.RewardPerPayout && int(pid) <= len(ratio.PoolPctOfWhole) {
			tokenReward = mulDiv(config.RewardPerPayout, ratio.PoolPctOfWhole[pid-1], reti.CommissionDenominator)
		}
	}

	// a payout with nothing to hand out is pointless and only burns fees
	if !redirected && tokenReward == 0 && algoReward <= reti.MinEpochPayout {
		return reverts.New(reverts.CodeTiming, "reward too small")
	}

	ledger, err := sto.Ledger()
	if err != nil {
		return err
	}

	var increasedStake, tokenPaidOut uint64
	if algoReward > 0 || tokenReward > 0 {
		// pass 1: partial-epoch stakers take a time-weighted cut of the
		// pot; crediting them first keeps full-epoch stakers from being
		// diluted by weight the partials did not earn
		var partialTotal uint64
		for i := range ledger {
			env.UseBudget(ledgerScanBudget)
			slot := &ledger[i]
			if slot.IsEmpty() {
				continue
			}
			var timeInPool uint64
			if slot.EntryTime < now {
				timeInPool = now - slot.EntryTime
			}
			if timeInPool >= epochSecs {
				continue
			}
			timePercent := timeInPool * reti.TimePercentDenominator / epochSecs
			partialTotal += slot.Balance
			origBalance := slot.Balance
			if algoReward > 0 {
				credit := mulMulDiv(algoReward, origBalance, timePercent, staked, reti.TimePercentDenominator)
				slot.Balance += credit
				slot.TotalRewarded += credit
				increasedStake += credit
				algoReward -= credit
			}
			if tokenReward > 0 {
				credit := mulMulDiv(tokenReward, origBalance, timePercent, staked, reti.TimePercentDenominator)
				slot.RewardTokenBalance += credit
				tokenPaidOut += credit
				tokenReward -= credit
			}
		}

		// pass 2: full-epoch stakers split the residual by stake weight
		effectiveStake := staked - partialTotal
		if effectiveStake > 0 {
			residualAlgo := algoReward
			residualToken := tokenReward
			for i := range ledger {
				env.UseBudget(ledgerScanBudget)
				slot := &ledger[i]
				if slot.IsEmpty() || slot.EntryTime >= now {
					continue
				}
				if now-slot.EntryTime < epochSecs {
					continue
				}
				origBalance := slot.Balance
				if residualAlgo > 0 {
					credit := mulDiv(residualAlgo, origBalance, effectiveStake)
					slot.Balance += credit
					slot.TotalRewarded += credit
					increasedStake += credit
				}
				if residualToken > 0 {
					credit := mulDiv(residualToken, origBalance, effectiveStake)
					slot.RewardTokenBalance += credit
					tokenPaidOut += credit
				}
			}
		}
		// anything unallocated (rounding dust, or an all-partial epoch)
		// stays in the balance and rolls into the next epoch

		if err := sto.SetLedger(ledger); err != nil {
			return err
		}
	}

	if err := sto.staked.Set(staked + increasedStake); err != nil {
		return err
	}

	if increasedStake > 0 || tokenPaidOut > 0 {
		key := registry.PoolKey{ValidatorID: vid, PoolID: pid, PoolAppID: p.appID}
		if err := reg.StakeUpdatedViaRewards(penv.InnerCall(creator), key, increasedStake, tokenPaidOut); err != nil {
			return err
		}
	}

	metricPayouts.AddWithLabel(1, map[string]string{})
	metricRewardsCredited.AddWithLabel(int64(increasedStake), map[string]string{})
	logger.Info("epoch payout",
		"validator", vid,
		"pool", pid,
		"validatorPay", validatorPay,
		"stakersCredited", increasedStake,
		"tokenPaidOut", tokenPaidOut,
		"redirected", redirected,
	)
	return nil
}

func (p *StakingPool) fetchRatioViaPrimary(penv *xenv.Environment, reg RegistryApp, vid, pid uint64) (*registry.PoolTokenPayoutRatio, error) {
	pool1AppID, err := reg.GetPoolAppID(penv, vid, 1)
	if err != nil {
		return nil, err
	}
	app, ok := p.chain.App(pool1AppID)
	if !ok {
		return nil, reverts.New(reverts.CodeInvariant, "primary pool is not deployed")
	}
	primary, ok := app.(PrimaryPool)
	if !ok {
		return nil, reverts.New(reverts.CodeInvariant, "primary app is not a pool")
	}
	key := registry.PoolKey{ValidatorID: vid, PoolID: pid, PoolAppID: p.appID}
	return primary.ProxiedSetTokenPayoutRatio(penv.InnerCall(pool1AppID), key)
}

// mulDiv computes a*b/den, flooring, with a wide intermediate so realistic
// balances cannot overflow.
func mulDiv(a, b, den uint64) uint64 {
	z := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	z.Div(z, uint256.NewInt(den))
	return z.Uint64()
}

// mulMulDiv computes a*b*c/(d*e), flooring, with a wide intermediate.
func mulMulDiv(a, b, c, d, e uint64) uint64 {
	num := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	num.Mul(num, uint256.NewInt(c))
	den := new(uint256.Int).Mul(uint256.NewInt(d), uint256.NewInt(e))
	num.Div(num, den)
	return num.Uint64()
}
