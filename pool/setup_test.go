// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/retipool/retipool/log"
	"github.com/retipool/retipool/lvldb"
	"github.com/retipool/retipool/registry"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/state"
	"github.com/retipool/retipool/xenv"
)

func init() {
	log.SetDefault(log.NewLogger(log.DiscardHandler()))
}

func M(a ...any) []any {
	return a
}

const (
	algo      = uint64(1_000_000)
	startTime = uint64(1_700_000_000)
)

type testSystem struct {
	t     *testing.T
	chain *xenv.Chain
	reg   *registry.Registry
}

func newTestSystem(t *testing.T) *testSystem {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	chain := xenv.NewChain(state.New(db))
	chain.At(startTime)
	// large enough that test validators stay under the protocol cap
	chain.SetOnlineStake(100_000_000 * algo)

	reg, err := registry.New(chain)
	require.NoError(t, err)
	template, err := NewTemplate(chain)
	require.NoError(t, err)
	require.NoError(t, reg.SetPoolTemplate(xenv.New(chain, reg.Address()), template.AppID()))

	return &testSystem{t: t, chain: chain, reg: reg}
}

func (ts *testSystem) env(sender reti.Address) *xenv.Environment {
	return xenv.New(ts.chain, sender)
}

func (ts *testSystem) fund(addr reti.Address, amount uint64) {
	ts.chain.State().SetBalance(addr, amount)
}

func defaultConfig(commission reti.Address) *registry.ValidatorConfig {
	return &registry.ValidatorConfig{
		PayoutEveryXMins:           60,
		PctToValidator:             50000, // 5%
		ValidatorCommissionAddress: commission,
		MinEntryStake:              reti.MinAlgoStakePerPool,
		MaxAlgoPerPool:             70_000_000 * algo,
		PoolsPerNode:               2,
		MaxNodes:                   4,
	}
}

func (ts *testSystem) addValidator(owner reti.Address, config *registry.ValidatorConfig) uint64 {
	ts.t.Helper()
	ts.fund(owner, 1_000_000*algo)
	env := ts.env(owner)
	payment, err := env.AttachPayment(ts.reg.Address(), registry.AddValidatorMbr)
	require.NoError(ts.t, err)
	id, err := ts.reg.AddValidator(env, payment, owner, owner, 0, config)
	require.NoError(ts.t, err)
	return id
}

// addPool clones and initializes a pool, returning its handle and key.
func (ts *testSystem) addPool(owner reti.Address, validatorID uint64) (*StakingPool, registry.PoolKey) {
	ts.t.Helper()
	env := ts.env(owner)
	payment, err := env.AttachPayment(ts.reg.Address(), registry.AddPoolMbr)
	require.NoError(ts.t, err)
	key, err := ts.reg.AddPool(env, payment, validatorID)
	require.NoError(ts.t, err)

	app, ok := ts.chain.App(key.PoolAppID)
	require.True(ts.t, ok)
	sp := app.(*StakingPool)

	// pay the storage cost exactly so the pool starts with zero excess
	// balance (no phantom reward in the first epoch)
	config, err := ts.reg.GetConfig(env, validatorID)
	require.NoError(ts.t, err)
	required := uint64(reti.MinBalance) + reti.BoxMBR(uint64(len("stakers")), ledgerBoxBytes)
	if key.PoolID == 1 && config.RewardTokenID != 0 {
		required += reti.AssetOptInMinBalance
	}
	initPayment, err := env.AttachPayment(sp.Address(), required)
	require.NoError(ts.t, err)
	require.NoError(ts.t, sp.InitStorage(env, initPayment))
	return sp, key
}

func (ts *testSystem) addStake(staker reti.Address, validatorID, amount uint64) (registry.PoolKey, error) {
	ts.t.Helper()
	env := ts.env(staker)
	payment, err := env.AttachPayment(ts.reg.Address(), amount)
	require.NoError(ts.t, err)
	return ts.reg.AddStake(env, payment, validatorID)
}

// accrueReward simulates block rewards landing on the pool account.
func (ts *testSystem) accrueReward(sp *StakingPool, amount uint64) {
	require.NoError(ts.t, ts.chain.State().AddBalance(sp.Address(), amount))
}

// assertInvariants re-checks stake conservation (P1/P2/P7) for the
// validator across the registry and every pool ledger.
func (ts *testSystem) assertInvariants(validatorID uint64) {
	ts.t.Helper()
	env := ts.env(reti.Address{})
	vstate, err := ts.reg.GetState(env, validatorID)
	require.NoError(ts.t, err)
	pools, err := ts.reg.GetPools(env, validatorID)
	require.NoError(ts.t, err)

	var sumStaked, sumStakers, sumLedger, sumLedgerStakers, sumTokenOwed uint64
	for i := range pools {
		sumStaked += pools[i].TotalAlgoStaked
		sumStakers += pools[i].TotalStakers

		app, ok := ts.chain.App(pools[i].PoolAppID)
		require.True(ts.t, ok)
		sp := app.(*StakingPool)
		ledger, err := sp.storageFor(env).Ledger()
		require.NoError(ts.t, err)
		for j := range ledger {
			if ledger[j].IsEmpty() {
				continue
			}
			sumLedger += ledger[j].Balance
			sumLedgerStakers++
			sumTokenOwed += ledger[j].RewardTokenBalance

			// membership: every occupied slot is indexed in the staker's
			// pool set
			keys, err := ts.reg.GetStakedPoolsForAccount(env, ledger[j].Account)
			require.NoError(ts.t, err)
			found := false
			for _, k := range keys {
				if k.ValidatorID == validatorID && k.PoolID == uint64(i+1) {
					found = true
				}
			}
			require.True(ts.t, found, "occupied ledger slot missing from staker pool set")
		}
	}
	require.Equal(ts.t, vstate.TotalAlgoStaked, sumStaked, "registry total vs pool rows")
	require.Equal(ts.t, vstate.TotalAlgoStaked, sumLedger, "registry total vs ledger sum")
	require.Equal(ts.t, vstate.TotalStakers, sumStakers, "registry stakers vs pool rows")
	require.Equal(ts.t, vstate.TotalStakers, sumLedgerStakers, "registry stakers vs ledger")
	require.Equal(ts.t, vstate.RewardTokenHeldBack, sumTokenOwed, "held-back tokens vs ledger")
}

func addr(name string) reti.Address {
	return reti.BytesToAddress([]byte(name))
}
