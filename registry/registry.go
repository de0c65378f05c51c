// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// NOTE: As a general rule to the registry package:
// All complex structs should be passed by pointer.
// It is considered reti.Address and PoolKey non-complex structs.

package registry

import (
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"github.com/retipool/retipool/log"
	"github.com/retipool/retipool/metrics"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/reverts"
	"github.com/retipool/retipool/xenv"
)

var (
	logger = log.WithContext("pkg", "registry")

	metricValidatorsAdded = metrics.Counter("validators_added_count")
	metricPoolsAdded      = metrics.Counter("pools_added_count")
	metricStakeAdded      = metrics.Counter("stake_added_microalgo")
	metricStakeRemoved    = metrics.Counter("stake_removed_microalgo")
)

// Pool is the handle the registry dispatches inner calls through. The
// staking pool implementation satisfies it.
type Pool interface {
	AddStake(env *xenv.Environment, payment xenv.Payment, staker reti.Address) (uint64, error)
	PayTokenReward(env *xenv.Environment, staker reti.Address, rewardTokenID, amount uint64) error
	GoOffline(env *xenv.Environment) error
	ValidatorID(env *xenv.Environment) (uint64, error)
	PoolID(env *xenv.Environment) (uint64, error)
	NumStakers(env *xenv.Environment) (uint64, error)
	TotalStaked(env *xenv.Environment) (uint64, error)
	LastPayout(env *xenv.Environment) (uint64, error)
}

// PoolTemplate is the stored template new pool instances are cloned from.
type PoolTemplate interface {
	Clone(env *xenv.Environment, registryAppID, validatorID, poolID, minEntryStake, maxStake uint64) (uint64, error)
}

// Registry is the root of trust: the validator list, aggregate stake
// state, per-pool summary rows and the per-staker pool membership index.
type Registry struct {
	appID   uint64
	address reti.Address
	chain   *xenv.Chain
}

// New deploys a registry app on the chain.
func New(chain *xenv.Chain) (*Registry, error) {
	r := &Registry{chain: chain}
	id, err := chain.CreateApp(r)
	if err != nil {
		return nil, err
	}
	r.appID = id
	r.address = reti.AppAddress(id)
	return r, nil
}

func (r *Registry) AppID() uint64 {
	return r.appID
}

func (r *Registry) Address() reti.Address {
	return r.address
}

// SetPoolTemplate stores the pool template every AddPool clones. One-shot.
func (r *Registry) SetPoolTemplate(env *xenv.Environment, templateAppID uint64) error {
	sto := r.storageFor(env)
	current, err := sto.TemplateAppID()
	if err != nil {
		return err
	}
	if current != 0 {
		return reverts.New(reverts.CodeAuthorization, "pool template already set")
	}
	return sto.SetTemplateAppID(templateAppID)
}

//
// Setters - state change
//

// AddValidator appends a new validator record and returns its id.
func (r *Registry) AddValidator(
	env *xenv.Environment,
	mbrPayment xenv.Payment,
	owner reti.Address,
	manager reti.Address,
	nfdAppID uint64,
	config *ValidatorConfig,
) (uint64, error) {
	logger.Debug("adding validator", "owner", owner, "manager", manager)

	if owner.IsZero() || manager.IsZero() {
		return 0, reverts.New(reverts.CodeConfiguration, "owner and manager cannot be zero")
	}
	if err := validateConfig(config); err != nil {
		return 0, err
	}
	if err := r.requireExactPayment(mbrPayment, env.Sender(), AddValidatorMbr); err != nil {
		return 0, err
	}

	sto := r.storageFor(env)
	numV, err := sto.NumValidators()
	if err != nil {
		return 0, err
	}
	id := numV + 1

	entry := &ValidatorInfo{
		ID:       id,
		Owner:    owner,
		Manager:  manager,
		NFDAppID: nfdAppID,
		Config:   *config,
	}
	if err := sto.SetValidator(id, entry); err != nil {
		return 0, err
	}
	if err := sto.SetNumValidators(id); err != nil {
		return 0, err
	}
	// the record box is carried by the registry account
	if err := env.State().AddMinBalance(r.address, AddValidatorMbr); err != nil {
		return 0, err
	}

	metricValidatorsAdded.AddWithLabel(1, map[string]string{})
	logger.Info("added validator", "validator", id, "owner", owner)
	return id, nil
}

// AddPool clones the pool template into a new pool instance of the
// validator and returns its key.
func (r *Registry) AddPool(env *xenv.Environment, mbrPayment xenv.Payment, validatorID uint64) (PoolKey, error) {
	logger.Debug("adding pool", "validator", validatorID)

	sto := r.storageFor(env)
	entry, err := r.getValidatorOrRevert(sto, validatorID)
	if err != nil {
		return PoolKey{}, err
	}
	if env.Sender() != entry.Owner && env.Sender() != entry.Manager {
		return PoolKey{}, reverts.New(reverts.CodeAuthorization, "caller must be owner or manager")
	}
	if err := r.requireExactPayment(mbrPayment, env.Sender(), AddPoolMbr); err != nil {
		return PoolKey{}, err
	}
	if entry.State.NumPools >= entry.MaxPools() {
		return PoolKey{}, reverts.New(reverts.CodeCapacity, "pool cap exceeded")
	}

	templateID, err := sto.TemplateAppID()
	if err != nil {
		return PoolKey{}, err
	}
	app, ok := r.chain.App(templateID)
	if !ok {
		return PoolKey{}, reverts.New(reverts.CodeInvariant, "pool template is not deployed")
	}
	template, ok := app.(PoolTemplate)
	if !ok {
		return PoolKey{}, reverts.New(reverts.CodeInvariant, "stored template is not a pool")
	}

	poolID := entry.State.NumPools + 1
	renv := env.WithApp(r.appID)
	poolAppID, err := template.Clone(
		renv,
		r.appID,
		validatorID,
		poolID,
		entry.Config.MinEntryStake,
		entry.Config.MaxAlgoPerPool,
	)
	if err != nil {
		logger.Info("pool clone failed", "validator", validatorID, "error", err)
		return PoolKey{}, err
	}
	if err := env.State().AddMinBalance(r.address, AddPoolMbr); err != nil {
		return PoolKey{}, err
	}

	entry.Pools = append(entry.Pools, PoolInfo{
		NodeID:    entry.State.NumPools/uint64(entry.Config.PoolsPerNode) + 1,
		PoolAppID: poolAppID,
	})
	entry.State.NumPools = poolID
	if err := sto.SetValidator(validatorID, entry); err != nil {
		return PoolKey{}, err
	}

	metricPoolsAdded.AddWithLabel(1, map[string]string{})
	logger.Info("added pool", "validator", validatorID, "pool", poolID, "app", poolAppID)
	return PoolKey{ValidatorID: validatorID, PoolID: poolID, PoolAppID: poolAppID}, nil
}

// AddStake places the payment's stake with one of the validator's pools,
// selected by FindPoolForStaker, and returns the chosen pool's key. The
// whole operation commits or unwinds as one, including the inner pool
// call.
func (r *Registry) AddStake(env *xenv.Environment, stakedAmountPayment xenv.Payment, validatorID uint64) (PoolKey, error) {
	checkpoint := env.State().NewCheckpoint()
	key, err := r.addStake(env, stakedAmountPayment, validatorID)
	if err != nil {
		env.State().RevertTo(checkpoint)
	}
	return key, err
}

func (r *Registry) addStake(env *xenv.Environment, stakedAmountPayment xenv.Payment, validatorID uint64) (PoolKey, error) {
	staker := env.Sender()
	logger.Debug("adding stake", "validator", validatorID, "staker", staker, "amount", stakedAmountPayment.Amount)

	sto := r.storageFor(env)
	entry, err := r.getValidatorOrRevert(sto, validatorID)
	if err != nil {
		return PoolKey{}, err
	}
	if stakedAmountPayment.Sender != staker {
		return PoolKey{}, reverts.New(reverts.CodePayment, "payment sender mismatch")
	}
	if stakedAmountPayment.Receiver != r.address {
		return PoolKey{}, reverts.New(reverts.CodePayment, "payment must be made to the registry")
	}
	if stakedAmountPayment.Amount == 0 {
		return PoolKey{}, reverts.New(reverts.CodePayment, "stake amount cannot be zero")
	}

	// first stake with the registry pays the pool-set storage deposit
	var deposit uint64
	hasSet, err := sto.HasPoolSet(staker)
	if err != nil {
		return PoolKey{}, err
	}
	if !hasSet {
		deposit = AddStakerMbr
		if stakedAmountPayment.Amount <= deposit {
			return PoolKey{}, reverts.New(reverts.CodeStake, "stake does not cover storage deposit")
		}
	}

	poolKey, err := r.findPoolForStaker(sto, entry, staker, stakedAmountPayment.Amount-deposit)
	if err != nil {
		return PoolKey{}, err
	}
	if poolKey.IsZero() {
		return PoolKey{}, reverts.New(reverts.CodeCapacity, "no pool available")
	}
	set, err := sto.GetPoolSet(staker)
	if err != nil {
		return PoolKey{}, err
	}
	if err := set.insert(poolKey); err != nil {
		return PoolKey{}, err
	}
	if err := sto.SetPoolSet(staker, set); err != nil {
		return PoolKey{}, err
	}
	if deposit > 0 {
		if err := env.State().AddMinBalance(r.address, deposit); err != nil {
			return PoolKey{}, err
		}
	}

	forwarded := stakedAmountPayment.Amount - deposit
	renv := env.WithApp(r.appID)
	innerPayment, err := renv.InnerPay(reti.AppAddress(poolKey.PoolAppID), forwarded)
	if err != nil {
		return PoolKey{}, err
	}

	pool, err := r.poolApp(poolKey.PoolAppID)
	if err != nil {
		return PoolKey{}, err
	}
	penv := renv.InnerCall(poolKey.PoolAppID)
	if _, err := pool.AddStake(penv, innerPayment, staker); err != nil {
		logger.Info("pool add stake failed", "validator", validatorID, "pool", poolKey.PoolID, "error", err)
		return PoolKey{}, err
	}

	// snapshot the pool's post-state into the summary row
	numStakers, err := pool.NumStakers(env)
	if err != nil {
		return PoolKey{}, err
	}
	totalStaked, err := pool.TotalStaked(env)
	if err != nil {
		return PoolKey{}, err
	}
	info := &entry.Pools[poolKey.PoolID-1]
	stakerDelta := numStakers - info.TotalStakers
	info.TotalStakers = numStakers
	info.TotalAlgoStaked = totalStaked
	entry.State.TotalStakers += stakerDelta
	entry.State.TotalAlgoStaked, err = safeAdd(entry.State.TotalAlgoStaked, forwarded)
	if err != nil {
		return PoolKey{}, err
	}
	if err := sto.SetValidator(validatorID, entry); err != nil {
		return PoolKey{}, err
	}

	metricStakeAdded.AddWithLabel(int64(forwarded), map[string]string{})
	logger.Info("added stake", "validator", validatorID, "pool", poolKey.PoolID, "staker", staker, "amount", forwarded)
	return poolKey, nil
}

// StakeUpdatedViaRewards is called by a pool after a successful epoch
// payout. algoAdded is the stake credited to stakers; tokenPaidOut is the
// token amount newly owed to stakers, still in pool #1's custody.
func (r *Registry) StakeUpdatedViaRewards(env *xenv.Environment, key PoolKey, algoAdded, tokenPaidOut uint64) error {
	sto := r.storageFor(env)
	entry, _, err := r.verifyPoolCaller(env, sto, key)
	if err != nil {
		return err
	}

	info := &entry.Pools[key.PoolID-1]
	if info.TotalAlgoStaked, err = safeAdd(info.TotalAlgoStaked, algoAdded); err != nil {
		return err
	}
	if entry.State.TotalAlgoStaked, err = safeAdd(entry.State.TotalAlgoStaked, algoAdded); err != nil {
		return err
	}
	if entry.State.RewardTokenHeldBack, err = safeAdd(entry.State.RewardTokenHeldBack, tokenPaidOut); err != nil {
		return err
	}
	if err := sto.SetValidator(key.ValidatorID, entry); err != nil {
		return err
	}

	logger.Info("stake updated via rewards",
		"validator", key.ValidatorID,
		"pool", key.PoolID,
		"algoAdded", algoAdded,
		"tokenPaidOut", tokenPaidOut,
	)
	return nil
}

// StakeRemoved is called by a pool on unstake or token claim. If the
// staker fully exited the pool, their membership entry is cleared. When a
// pool other than #1 reports removed tokens, that owed token, held by
// pool #1, is routed to the staker.
func (r *Registry) StakeRemoved(
	env *xenv.Environment,
	key PoolKey,
	staker reti.Address,
	amountRemoved uint64,
	tokenRemoved uint64,
	stakerRemoved bool,
) error {
	sto := r.storageFor(env)
	entry, _, err := r.verifyPoolCaller(env, sto, key)
	if err != nil {
		return err
	}

	info := &entry.Pools[key.PoolID-1]
	if info.TotalAlgoStaked, err = safeSub(info.TotalAlgoStaked, amountRemoved); err != nil {
		return err
	}
	if entry.State.TotalAlgoStaked, err = safeSub(entry.State.TotalAlgoStaked, amountRemoved); err != nil {
		return err
	}
	if entry.State.RewardTokenHeldBack, err = safeSub(entry.State.RewardTokenHeldBack, tokenRemoved); err != nil {
		return err
	}

	if stakerRemoved {
		if info.TotalStakers, err = safeSub(info.TotalStakers, 1); err != nil {
			return err
		}
		if entry.State.TotalStakers, err = safeSub(entry.State.TotalStakers, 1); err != nil {
			return err
		}
		set, err := sto.GetPoolSet(staker)
		if err != nil {
			return err
		}
		set.remove(key)
		if err := sto.SetPoolSet(staker, set); err != nil {
			return err
		}
	}
	if err := sto.SetValidator(key.ValidatorID, entry); err != nil {
		return err
	}

	// the owed tokens sit in pool #1's custody; route them from there
	if key.PoolID != 1 && tokenRemoved > 0 {
		pool1AppID := entry.Pools[0].PoolAppID
		pool1, err := r.poolApp(pool1AppID)
		if err != nil {
			return err
		}
		penv := env.WithApp(r.appID).InnerCall(pool1AppID)
		if err := pool1.PayTokenReward(penv, staker, entry.Config.RewardTokenID, tokenRemoved); err != nil {
			return err
		}
	}

	metricStakeRemoved.AddWithLabel(int64(amountRemoved), map[string]string{})
	logger.Info("stake removed",
		"validator", key.ValidatorID,
		"pool", key.PoolID,
		"staker", staker,
		"amount", amountRemoved,
		"token", tokenRemoved,
		"stakerRemoved", stakerRemoved,
	)
	return nil
}

// SetTokenPayoutRatio snapshots each pool's share of the validator's total
// stake. The snapshot is cached for the payout cycle: it is refreshed only
// once pool #1 has begun a new epoch.
func (r *Registry) SetTokenPayoutRatio(env *xenv.Environment, validatorID uint64) (*PoolTokenPayoutRatio, error) {
	sto := r.storageFor(env)
	entry, err := r.getValidatorOrRevert(sto, validatorID)
	if err != nil {
		return nil, err
	}
	if !r.isPoolOfValidator(env.Sender(), entry) {
		return nil, reverts.New(reverts.CodeAuthorization, "caller is not a pool of this validator")
	}
	if entry.State.NumPools == 0 {
		return nil, reverts.New(reverts.CodeInvariant, "validator has no pools")
	}

	pool1, err := r.poolApp(entry.Pools[0].PoolAppID)
	if err != nil {
		return nil, err
	}
	pool1LastPayout, err := pool1.LastPayout(env)
	if err != nil {
		return nil, err
	}

	cached, err := sto.GetPayoutRatio(validatorID)
	if err != nil {
		return nil, err
	}
	if len(cached.PoolPctOfWhole) > 0 && cached.UpdatedOnPayout == pool1LastPayout {
		return cached, nil
	}

	ratio := &PoolTokenPayoutRatio{
		PoolPctOfWhole:  make([]uint64, entry.State.NumPools),
		UpdatedOnPayout: pool1LastPayout,
	}
	if entry.State.TotalAlgoStaked > 0 {
		for i := range entry.Pools {
			ratio.PoolPctOfWhole[i] = mulDiv(entry.Pools[i].TotalAlgoStaked, reti.CommissionDenominator, entry.State.TotalAlgoStaked)
		}
	}
	if err := sto.SetPayoutRatio(validatorID, ratio); err != nil {
		return nil, err
	}
	return ratio, nil
}

// ChangeValidatorManager updates the manager account. Owner only.
func (r *Registry) ChangeValidatorManager(env *xenv.Environment, validatorID uint64, manager reti.Address) error {
	sto := r.storageFor(env)
	entry, err := r.getValidatorOrRevert(sto, validatorID)
	if err != nil {
		return err
	}
	if env.Sender() != entry.Owner {
		return reverts.New(reverts.CodeAuthorization, "caller must be owner")
	}
	if manager.IsZero() {
		return reverts.New(reverts.CodeConfiguration, "manager cannot be zero")
	}
	entry.Manager = manager
	return sto.SetValidator(validatorID, entry)
}

// ChangeValidatorCommissionAddress updates the commission account. Owner
// only; the only config field editable after creation.
func (r *Registry) ChangeValidatorCommissionAddress(env *xenv.Environment, validatorID uint64, addr reti.Address) error {
	sto := r.storageFor(env)
	entry, err := r.getValidatorOrRevert(sto, validatorID)
	if err != nil {
		return err
	}
	if env.Sender() != entry.Owner {
		return reverts.New(reverts.CodeAuthorization, "caller must be owner")
	}
	if addr.IsZero() {
		return reverts.New(reverts.CodeConfiguration, "commission address cannot be zero")
	}
	entry.Config.ValidatorCommissionAddress = addr
	return sto.SetValidator(validatorID, entry)
}

//
// Getters - no state change
//

// GetNumValidators returns the number of registered validators.
func (r *Registry) GetNumValidators(env *xenv.Environment) (uint64, error) {
	return r.storageFor(env).NumValidators()
}

// GetConfig returns the validator's configuration.
func (r *Registry) GetConfig(env *xenv.Environment, validatorID uint64) (*ValidatorConfig, error) {
	entry, err := r.getValidatorOrRevert(r.storageFor(env), validatorID)
	if err != nil {
		return nil, err
	}
	config := entry.Config
	return &config, nil
}

// GetState returns the validator's aggregate state.
func (r *Registry) GetState(env *xenv.Environment, validatorID uint64) (*ValidatorState, error) {
	entry, err := r.getValidatorOrRevert(r.storageFor(env), validatorID)
	if err != nil {
		return nil, err
	}
	state := entry.State
	return &state, nil
}

// GetPools returns the validator's pool summary rows.
func (r *Registry) GetPools(env *xenv.Environment, validatorID uint64) ([]PoolInfo, error) {
	entry, err := r.getValidatorOrRevert(r.storageFor(env), validatorID)
	if err != nil {
		return nil, err
	}
	return append([]PoolInfo(nil), entry.Pools...), nil
}

// GetPoolInfo returns one pool's summary row.
func (r *Registry) GetPoolInfo(env *xenv.Environment, key PoolKey) (*PoolInfo, error) {
	entry, err := r.getValidatorOrRevert(r.storageFor(env), key.ValidatorID)
	if err != nil {
		return nil, err
	}
	if key.PoolID == 0 || key.PoolID > entry.State.NumPools {
		return nil, reverts.New(reverts.CodeAuthorization, "pool id out of range")
	}
	info := entry.Pools[key.PoolID-1]
	return &info, nil
}

// GetPoolAppID resolves a pool id to its app id.
func (r *Registry) GetPoolAppID(env *xenv.Environment, validatorID, poolID uint64) (uint64, error) {
	entry, err := r.getValidatorOrRevert(r.storageFor(env), validatorID)
	if err != nil {
		return 0, err
	}
	if poolID == 0 || poolID > entry.State.NumPools {
		return 0, reverts.New(reverts.CodeAuthorization, "pool id out of range")
	}
	return entry.Pools[poolID-1].PoolAppID, nil
}

// OwnerAndManager returns the validator's control accounts.
func (r *Registry) OwnerAndManager(env *xenv.Environment, validatorID uint64) (reti.Address, reti.Address, error) {
	entry, err := r.getValidatorOrRevert(r.storageFor(env), validatorID)
	if err != nil {
		return reti.Address{}, reti.Address{}, err
	}
	return entry.Owner, entry.Manager, nil
}

// GetStakedPoolsForAccount returns the pools the account stakes in.
func (r *Registry) GetStakedPoolsForAccount(env *xenv.Environment, staker reti.Address) ([]PoolKey, error) {
	set, err := r.storageFor(env).GetPoolSet(staker)
	if err != nil {
		return nil, err
	}
	return set.Keys(), nil
}

// FindPoolForStaker runs the deterministic pool-selection algorithm
// without mutating state. A zero key means no pool can take the stake.
func (r *Registry) FindPoolForStaker(env *xenv.Environment, validatorID uint64, staker reti.Address, amount uint64) (PoolKey, error) {
	sto := r.storageFor(env)
	entry, err := r.getValidatorOrRevert(sto, validatorID)
	if err != nil {
		return PoolKey{}, err
	}
	return r.findPoolForStaker(sto, entry, staker, amount)
}

//
// internals
//

func (r *Registry) findPoolForStaker(sto *storage, entry *ValidatorInfo, staker reti.Address, amount uint64) (PoolKey, error) {
	// prefer a pool the staker is already in
	set, err := sto.GetPoolSet(staker)
	if err != nil {
		return PoolKey{}, err
	}
	for i := range set {
		if set[i].IsZero() || set[i].ValidatorID != entry.ID {
			continue
		}
		info := entry.Pools[set[i].PoolID-1]
		if info.TotalAlgoStaked+amount <= entry.Config.MaxAlgoPerPool {
			return set[i], nil
		}
	}

	// entering a pool fresh requires the validator's minimum stake
	if amount < entry.Config.MinEntryStake {
		return PoolKey{}, reverts.New(reverts.CodeStake, "stake is below the validator minimum")
	}
	for i := uint64(0); i < entry.State.NumPools; i++ {
		if entry.Pools[i].TotalAlgoStaked+amount <= entry.Config.MaxAlgoPerPool {
			return PoolKey{ValidatorID: entry.ID, PoolID: i + 1, PoolAppID: entry.Pools[i].PoolAppID}, nil
		}
	}
	return PoolKey{ValidatorID: entry.ID}, nil
}

func (r *Registry) getValidatorOrRevert(sto *storage, validatorID uint64) (*ValidatorInfo, error) {
	entry, err := sto.GetValidator(validatorID)
	if err != nil {
		return nil, err
	}
	if entry.IsEmpty() {
		return nil, reverts.New(reverts.CodeAuthorization, "validator does not exist")
	}
	return entry, nil
}

func (r *Registry) poolApp(appID uint64) (Pool, error) {
	app, ok := r.chain.App(appID)
	if !ok {
		return nil, reverts.New(reverts.CodeInvariant, "pool app is not deployed")
	}
	pool, ok := app.(Pool)
	if !ok {
		return nil, reverts.New(reverts.CodeInvariant, "app is not a pool")
	}
	return pool, nil
}

// verifyPoolCaller authenticates a privileged call claiming to come from
// one of the validator's pools. All four checks are required: a claim
// alone, or a sender alone, can each be forged by a lookalike app; bound
// together they prove claim, code and registry-approved identity match.
func (r *Registry) verifyPoolCaller(env *xenv.Environment, sto *storage, key PoolKey) (*ValidatorInfo, Pool, error) {
	entry, err := r.getValidatorOrRevert(sto, key.ValidatorID)
	if err != nil {
		return nil, nil, err
	}
	if key.PoolID == 0 || key.PoolID > entry.State.NumPools {
		return nil, nil, reverts.New(reverts.CodeAuthorization, "pool id out of range")
	}
	if entry.Pools[key.PoolID-1].PoolAppID != key.PoolAppID {
		return nil, nil, reverts.New(reverts.CodeAuthorization, "pool app id does not match registry record")
	}
	if env.Sender() != reti.AppAddress(key.PoolAppID) {
		return nil, nil, reverts.New(reverts.CodeAuthorization, "sender is not the claimed pool app")
	}
	pool, err := r.poolApp(key.PoolAppID)
	if err != nil {
		return nil, nil, err
	}
	selfValidatorID, err := pool.ValidatorID(env)
	if err != nil {
		return nil, nil, err
	}
	selfPoolID, err := pool.PoolID(env)
	if err != nil {
		return nil, nil, err
	}
	if selfValidatorID != key.ValidatorID || selfPoolID != key.PoolID {
		return nil, nil, reverts.New(reverts.CodeAuthorization, "pool self-report does not match claim")
	}
	return entry, pool, nil
}

func (r *Registry) isPoolOfValidator(sender reti.Address, entry *ValidatorInfo) bool {
	for i := range entry.Pools {
		if sender == reti.AppAddress(entry.Pools[i].PoolAppID) {
			return true
		}
	}
	return false
}

func safeAdd(a, b uint64) (uint64, error) {
	sum, overflow := math.SafeAdd(a, b)
	if overflow {
		return 0, reverts.New(reverts.CodeInvariant, "counter overflow")
	}
	return sum, nil
}

func safeSub(a, b uint64) (uint64, error) {
	diff, underflow := math.SafeSub(a, b)
	if underflow {
		return 0, reverts.New(reverts.CodeInvariant, "counter underflow")
	}
	return diff, nil
}

// mulDiv computes a*b/den with a wide intermediate, flooring.
func mulDiv(a, b, den uint64) uint64 {
	z := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	z.Div(z, uint256.NewInt(den))
	return z.Uint64()
}
