// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/retipool/retipool/log"
	"github.com/retipool/retipool/registry"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/reverts"
	"github.com/retipool/retipool/xenv"
)

var logger = log.WithContext("pkg", "pool")

// RegistryApp is the pool's view of the validator registry. The concrete
// registry satisfies it.
type RegistryApp interface {
	StakeUpdatedViaRewards(env *xenv.Environment, key registry.PoolKey, algoAdded, tokenPaidOut uint64) error
	StakeRemoved(env *xenv.Environment, key registry.PoolKey, staker reti.Address, amountRemoved, tokenRemoved uint64, stakerRemoved bool) error
	SetTokenPayoutRatio(env *xenv.Environment, validatorID uint64) (*registry.PoolTokenPayoutRatio, error)
	GetConfig(env *xenv.Environment, validatorID uint64) (*registry.ValidatorConfig, error)
	GetState(env *xenv.Environment, validatorID uint64) (*registry.ValidatorState, error)
	GetPoolAppID(env *xenv.Environment, validatorID, poolID uint64) (uint64, error)
	OwnerAndManager(env *xenv.Environment, validatorID uint64) (reti.Address, reti.Address, error)
	AppID() uint64
}

// PrimaryPool is the handle sibling pools use to fetch the token payout
// ratio through pool #1.
type PrimaryPool interface {
	ProxiedSetTokenPayoutRatio(env *xenv.Environment, key registry.PoolKey) (*registry.PoolTokenPayoutRatio, error)
}

// StakingPool holds the authoritative per-staker ledger of one pool and
// executes the epoch payout. Pool #1 of a validator additionally custodies
// the configured reward token.
type StakingPool struct {
	appID   uint64
	address reti.Address
	chain   *xenv.Chain
}

// NewTemplate deploys the pool template app all pools are cloned from. A
// template has every identity field zero and never holds stake.
func NewTemplate(chain *xenv.Chain) (*StakingPool, error) {
	p := &StakingPool{chain: chain}
	id, err := chain.CreateApp(p)
	if err != nil {
		return nil, err
	}
	p.appID = id
	p.address = reti.AppAddress(id)
	return p, nil
}

// Clone instantiates a new pool from the template with the given identity.
// Either all five fields are zero (the template itself) or all are set
// consistently; Clone enforces the latter.
func (p *StakingPool) Clone(
	env *xenv.Environment,
	registryAppID, validatorID, poolID, minEntryStake, maxStake uint64,
) (uint64, error) {
	if registryAppID == 0 || validatorID == 0 || poolID == 0 || minEntryStake == 0 || maxStake == 0 {
		return 0, reverts.New(reverts.CodeConfiguration, "pool identity fields must all be set")
	}
	sto := p.storageFor(env)
	creator, err := sto.creatorApp.Get()
	if err != nil {
		return 0, err
	}
	if creator != 0 {
		return 0, reverts.New(reverts.CodeAuthorization, "only the template can be cloned")
	}

	clone := &StakingPool{chain: p.chain}
	id, err := p.chain.CreateApp(clone)
	if err != nil {
		return 0, err
	}
	clone.appID = id
	clone.address = reti.AppAddress(id)

	csto := clone.storageFor(env)
	if err := csto.creatorApp.Set(registryAppID); err != nil {
		return 0, err
	}
	if err := csto.validatorID.Set(validatorID); err != nil {
		return 0, err
	}
	if err := csto.poolID.Set(poolID); err != nil {
		return 0, err
	}
	if err := csto.minEntryStake.Set(minEntryStake); err != nil {
		return 0, err
	}
	if err := csto.maxStake.Set(maxStake); err != nil {
		return 0, err
	}
	if err := csto.lastPayout.Set(env.Now()); err != nil {
		return 0, err
	}

	logger.Info("cloned pool", "app", id, "validator", validatorID, "pool", poolID)
	return id, nil
}

func (p *StakingPool) AppID() uint64 {
	return p.appID
}

func (p *StakingPool) Address() reti.Address {
	return p.address
}

// InitStorage allocates the staker ledger. Callable once; the payment must
// cover the account balance floor, the ledger box and, for a token-holding
// primary pool, the asset holding.
func (p *StakingPool) InitStorage(env *xenv.Environment, mbrPayment xenv.Payment) error {
	sto := p.storageFor(env)
	allocated, err := sto.HasLedger()
	if err != nil {
		return err
	}
	if allocated {
		return reverts.New(reverts.CodeAuthorization, "storage already initialized")
	}

	vid, err := sto.validatorID.Get()
	if err != nil {
		return err
	}
	pid, err := sto.poolID.Get()
	if err != nil {
		return err
	}
	if vid == 0 {
		return reverts.New(reverts.CodeAuthorization, "template storage cannot be initialized")
	}

	config, _, err := p.registryConfig(env, sto, vid)
	if err != nil {
		return err
	}
	ledgerCost := reti.BoxMBR(uint64(len("stakers")), ledgerBoxBytes)
	required := uint64(reti.MinBalance) + ledgerCost
	holdsToken := pid == 1 && config.RewardTokenID != 0
	if holdsToken {
		required += reti.AssetOptInMinBalance
	}

	if mbrPayment.Receiver != p.address {
		return reverts.New(reverts.CodePayment, "payment must be made to the pool")
	}
	if mbrPayment.Amount < required {
		return reverts.New(reverts.CodePayment, "payment does not cover storage cost")
	}

	if err := sto.SetLedger(&Ledger{}); err != nil {
		return err
	}
	if err := env.State().AddMinBalance(p.address, ledgerCost); err != nil {
		return err
	}
	if holdsToken {
		env.State().OptInToken(p.address, config.RewardTokenID)
		if err := env.State().AddMinBalance(p.address, reti.AssetOptInMinBalance); err != nil {
			return err
		}
	}

	logger.Info("initialized pool storage", "app", p.appID, "validator", vid, "pool", pid)
	return nil
}

// AddStake records forwarded stake for the staker and returns the entry
// time. Only the registry may call it; stake always arrives through the
// registry so the summary rows stay consistent.
func (p *StakingPool) AddStake(env *xenv.Environment, payment xenv.Payment, staker reti.Address) (uint64, error) {
	sto := p.storageFor(env)
	creator, err := sto.creatorApp.Get()
	if err != nil {
		return 0, err
	}
	registryAddr := reti.AppAddress(creator)
	if env.Sender() != registryAddr {
		return 0, reverts.New(reverts.CodeAuthorization, "only the registry may add stake")
	}
	if staker.IsZero() {
		return 0, reverts.New(reverts.CodeStake, "staker cannot be zero")
	}
	if payment.Sender != registryAddr || payment.Receiver != p.address {
		return 0, reverts.New(reverts.CodePayment, "stake payment route mismatch")
	}
	allocated, err := sto.HasLedger()
	if err != nil {
		return 0, err
	}
	if !allocated {
		return 0, reverts.New(reverts.CodeInvariant, "pool storage is not initialized")
	}

	staked, err := sto.staked.Get()
	if err != nil {
		return 0, err
	}
	maxStake, err := sto.maxStake.Get()
	if err != nil {
		return 0, err
	}
	if payment.Amount+staked > maxStake {
		return 0, reverts.New(reverts.CodeStake, "stake exceeds pool maximum")
	}

	entryTime := env.Now() + reti.EntryTimeDelaySecs

	ledger, err := sto.Ledger()
	if err != nil {
		return 0, err
	}
	firstEmpty := -1
	for i := range ledger {
		env.UseBudget(ledgerScanBudget)
		slot := &ledger[i]
		if slot.Account == staker {
			slot.Balance += payment.Amount
			slot.EntryTime = entryTime
			if err := sto.SetLedger(ledger); err != nil {
				return 0, err
			}
			if err := sto.staked.Set(staked + payment.Amount); err != nil {
				return 0, err
			}
			logger.Info("added stake", "pool", p.appID, "staker", staker, "amount", payment.Amount)
			return entryTime, nil
		}
		if slot.IsEmpty() && firstEmpty < 0 {
			firstEmpty = i
		}
	}

	// new staker
	minEntry, err := sto.minEntryStake.Get()
	if err != nil {
		return 0, err
	}
	if payment.Amount < minEntry {
		return 0, reverts.New(reverts.CodeStake, "stake is below the pool minimum")
	}
	if firstEmpty < 0 {
		return 0, reverts.New(reverts.CodeCapacity, "pool is full")
	}
	ledger[firstEmpty] = StakedInfo{
		Account:   staker,
		Balance:   payment.Amount,
		EntryTime: entryTime,
	}
	if err := sto.SetLedger(ledger); err != nil {
		return 0, err
	}
	numStakers, err := sto.numStakers.Get()
	if err != nil {
		return 0, err
	}
	if err := sto.numStakers.Set(numStakers + 1); err != nil {
		return 0, err
	}
	if err := sto.staked.Set(staked + payment.Amount); err != nil {
		return 0, err
	}
	logger.Info("added staker", "pool", p.appID, "staker", staker, "amount", payment.Amount, "slot", firstEmpty)
	return entryTime, nil
}

// RemoveStake unstakes the caller. A zero amount unstakes everything. The
// residual balance must be zero or at least the pool minimum; a full exit
// frees the ledger slot.
func (p *StakingPool) RemoveStake(env *xenv.Environment, amountToUnstake uint64) error {
	return p.removeStakeOrClaim(env, amountToUnstake, false)
}

// ClaimTokens pays out the caller's unclaimed token rewards, leaving their
// stake untouched.
func (p *StakingPool) ClaimTokens(env *xenv.Environment) error {
	return p.removeStakeOrClaim(env, 0, true)
}

func (p *StakingPool) removeStakeOrClaim(env *xenv.Environment, amountToUnstake uint64, claimOnly bool) error {
	checkpoint := env.State().NewCheckpoint()
	if err := p.removeStakeOrClaimInner(env, amountToUnstake, claimOnly); err != nil {
		env.State().RevertTo(checkpoint)
		return err
	}
	return nil
}

func (p *StakingPool) removeStakeOrClaimInner(env *xenv.Environment, amountToUnstake uint64, claimOnly bool) error {
	staker := env.Sender()
	sto := p.storageFor(env)
	vid, pid, creator, err := p.identity(sto)
	if err != nil {
		return err
	}

	ledger, err := sto.Ledger()
	if err != nil {
		return err
	}
	slotIdx := -1
	for i := range ledger {
		env.UseBudget(ledgerScanBudget)
		if ledger[i].Account == staker {
			slotIdx = i
			break
		}
	}
	if slotIdx < 0 {
		return reverts.New(reverts.CodeStake, "account not found")
	}
	slot := &ledger[slotIdx]

	var amountRemoved uint64
	var stakerRemoved bool
	if !claimOnly {
		amountRemoved = amountToUnstake
		if amountRemoved == 0 {
			amountRemoved = slot.Balance
		}
		if slot.Balance < amountRemoved {
			return reverts.New(reverts.CodeStake, "insufficient balance")
		}
		minEntry, err := sto.minEntryStake.Get()
		if err != nil {
			return err
		}
		residual := slot.Balance - amountRemoved
		if residual > 0 && residual < minEntry {
			return reverts.New(reverts.CodeStake, "residual balance below pool minimum requires full exit")
		}
		slot.Balance = residual
	}

	tokenRemoved := slot.RewardTokenBalance
	if claimOnly && tokenRemoved == 0 {
		return reverts.New(reverts.CodeStake, "no tokens to claim")
	}
	penv := env.WithApp(p.appID)
	if tokenRemoved > 0 {
		config, _, err := p.registryConfig(env, sto, vid)
		if err != nil {
			return err
		}
		if pid == 1 {
			// primary pool custodies the token; pay directly
			if err := penv.TransferToken(staker, config.RewardTokenID, tokenRemoved); err != nil {
				return err
			}
		}
		// other pools zero the field and let the registry route the
		// transfer out of pool #1's custody
		slot.RewardTokenBalance = 0
	}

	if !claimOnly && slot.Balance == 0 {
		*slot = StakedInfo{}
		stakerRemoved = true
		numStakers, err := sto.numStakers.Get()
		if err != nil {
			return err
		}
		if err := sto.numStakers.Set(numStakers - 1); err != nil {
			return err
		}
	}
	if err := sto.SetLedger(ledger); err != nil {
		return err
	}
	if amountRemoved > 0 {
		staked, err := sto.staked.Get()
		if err != nil {
			return err
		}
		if staked < amountRemoved {
			return reverts.New(reverts.CodeInvariant, "pool total below removed amount")
		}
		if err := sto.staked.Set(staked - amountRemoved); err != nil {
			return err
		}
		if err := penv.PayOut(staker, amountRemoved); err != nil {
			return err
		}
	}

	reg, err := p.registryApp(creator)
	if err != nil {
		return err
	}
	key := registry.PoolKey{ValidatorID: vid, PoolID: pid, PoolAppID: p.appID}
	renv := penv.InnerCall(creator)
	if err := reg.StakeRemoved(renv, key, staker, amountRemoved, tokenRemoved, stakerRemoved); err != nil {
		return err
	}

	logger.Info("removed stake", "pool", p.appID, "staker", staker,
		"amount", amountRemoved, "token", tokenRemoved, "exited", stakerRemoved)
	return nil
}

// PayTokenReward transfers owed tokens out of the primary pool's custody.
// Registry only, pool #1 only.
func (p *StakingPool) PayTokenReward(env *xenv.Environment, staker reti.Address, rewardTokenID, amount uint64) error {
	sto := p.storageFor(env)
	_, pid, creator, err := p.identity(sto)
	if err != nil {
		return err
	}
	if env.Sender() != reti.AppAddress(creator) {
		return reverts.New(reverts.CodeAuthorization, "only the registry may pay token rewards")
	}
	if pid != 1 {
		return reverts.New(reverts.CodeAuthorization, "only the primary pool custodies the token")
	}
	return env.TransferToken(staker, rewardTokenID, amount)
}

// ProxiedSetTokenPayoutRatio lets a sibling pool fetch the payout-ratio
// snapshot through the primary pool during its own epoch update.
func (p *StakingPool) ProxiedSetTokenPayoutRatio(env *xenv.Environment, key registry.PoolKey) (*registry.PoolTokenPayoutRatio, error) {
	sto := p.storageFor(env)
	vid, pid, creator, err := p.identity(sto)
	if err != nil {
		return nil, err
	}
	if pid != 1 {
		return nil, reverts.New(reverts.CodeAuthorization, "ratio proxy lives on the primary pool")
	}
	if key.ValidatorID != vid {
		return nil, reverts.New(reverts.CodeAuthorization, "caller pool belongs to another validator")
	}
	if key.PoolID == 1 {
		return nil, reverts.New(reverts.CodeAuthorization, "primary pool must not proxy to itself")
	}
	if env.Sender() != reti.AppAddress(key.PoolAppID) {
		return nil, reverts.New(reverts.CodeAuthorization, "sender is not the claimed pool app")
	}
	reg, err := p.registryApp(creator)
	if err != nil {
		return nil, err
	}
	recordedAppID, err := reg.GetPoolAppID(env, key.ValidatorID, key.PoolID)
	if err != nil {
		return nil, err
	}
	if recordedAppID != key.PoolAppID {
		return nil, reverts.New(reverts.CodeAuthorization, "pool app id does not match registry record")
	}
	return reg.SetTokenPayoutRatio(env.WithApp(p.appID).InnerCall(creator), vid)
}

// GoOnline registers the pool's participation keys. Owner or manager only.
// The key material is opaque to the pool.
func (p *StakingPool) GoOnline(
	env *xenv.Environment,
	votePK, selectionPK, stateProofPK []byte,
	voteFirst, voteLast, voteKeyDilution uint64,
) error {
	if len(votePK) != 32 || len(selectionPK) != 32 {
		return reverts.New(reverts.CodeConfiguration, "malformed participation keys")
	}
	if voteLast <= voteFirst || voteKeyDilution == 0 {
		return reverts.New(reverts.CodeConfiguration, "malformed vote key rounds")
	}
	if err := p.requireOwnerOrManager(env, false); err != nil {
		return err
	}
	env.WithApp(p.appID).EmitKeyReg("online")
	logger.Info("pool going online", "pool", p.appID)
	return nil
}

// GoOffline deregisters participation keys. Owner, manager, or the
// registry (for pool migration).
func (p *StakingPool) GoOffline(env *xenv.Environment) error {
	if err := p.requireOwnerOrManager(env, true); err != nil {
		return err
	}
	env.WithApp(p.appID).EmitKeyReg("offline")
	logger.Info("pool going offline", "pool", p.appID)
	return nil
}

// UpdateAlgodVer records the node daemon version the pool runs on.
func (p *StakingPool) UpdateAlgodVer(env *xenv.Environment, version string) error {
	if err := p.requireOwnerOrManager(env, false); err != nil {
		return err
	}
	return p.storageFor(env).algodVer.Set(version)
}

// LinkToNFD attaches a naming-service app id to the pool. The naming
// service call itself is opaque to the core.
func (p *StakingPool) LinkToNFD(env *xenv.Environment, nfdAppID uint64, _ string) error {
	if err := p.requireOwnerOrManager(env, false); err != nil {
		return err
	}
	return p.storageFor(env).nfdAppID.Set(nfdAppID)
}

//
// Getters - no state change
//

func (p *StakingPool) ValidatorID(env *xenv.Environment) (uint64, error) {
	return p.storageFor(env).validatorID.Get()
}

func (p *StakingPool) PoolID(env *xenv.Environment) (uint64, error) {
	return p.storageFor(env).poolID.Get()
}

func (p *StakingPool) NumStakers(env *xenv.Environment) (uint64, error) {
	return p.storageFor(env).numStakers.Get()
}

func (p *StakingPool) TotalStaked(env *xenv.Environment) (uint64, error) {
	return p.storageFor(env).staked.Get()
}

func (p *StakingPool) LastPayout(env *xenv.Environment) (uint64, error) {
	return p.storageFor(env).lastPayout.Get()
}

// GetStakerInfo returns the ledger entry of the account.
func (p *StakingPool) GetStakerInfo(env *xenv.Environment, staker reti.Address) (*StakedInfo, error) {
	ledger, err := p.storageFor(env).Ledger()
	if err != nil {
		return nil, err
	}
	for i := range ledger {
		if ledger[i].Account == staker {
			info := ledger[i]
			return &info, nil
		}
	}
	return nil, reverts.New(reverts.CodeStake, "account not found")
}

//
// internals
//

// ledgerScanBudget is the opcode cost charged per ledger slot visited;
// long scans top the budget up through the environment.
const ledgerScanBudget = 35

func (p *StakingPool) identity(sto *storage) (vid, pid, creator uint64, err error) {
	if vid, err = sto.validatorID.Get(); err != nil {
		return
	}
	if pid, err = sto.poolID.Get(); err != nil {
		return
	}
	creator, err = sto.creatorApp.Get()
	return
}

func (p *StakingPool) registryApp(creator uint64) (RegistryApp, error) {
	app, ok := p.chain.App(creator)
	if !ok {
		return nil, reverts.New(reverts.CodeInvariant, "registry app is not deployed")
	}
	reg, ok := app.(RegistryApp)
	if !ok {
		return nil, reverts.New(reverts.CodeInvariant, "creator app is not a registry")
	}
	return reg, nil
}

func (p *StakingPool) registryConfig(env *xenv.Environment, sto *storage, vid uint64) (*registry.ValidatorConfig, RegistryApp, error) {
	creator, err := sto.creatorApp.Get()
	if err != nil {
		return nil, nil, err
	}
	reg, err := p.registryApp(creator)
	if err != nil {
		return nil, nil, err
	}
	config, err := reg.GetConfig(env, vid)
	if err != nil {
		return nil, nil, err
	}
	return config, reg, nil
}

func (p *StakingPool) requireOwnerOrManager(env *xenv.Environment, allowRegistry bool) error {
	sto := p.storageFor(env)
	vid, _, creator, err := p.identity(sto)
	if err != nil {
		return err
	}
	if allowRegistry && env.Sender() == reti.AppAddress(creator) {
		return nil
	}
	reg, err := p.registryApp(creator)
	if err != nil {
		return err
	}
	owner, manager, err := reg.OwnerAndManager(env, vid)
	if err != nil {
		return err
	}
	if env.Sender() != owner && env.Sender() != manager {
		return reverts.New(reverts.CodeAuthorization, "caller must be owner or manager")
	}
	return nil
}
