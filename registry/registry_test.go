// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retipool/retipool/log"
	"github.com/retipool/retipool/lvldb"
	"github.com/retipool/retipool/pool"
	"github.com/retipool/retipool/registry"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/reverts"
	"github.com/retipool/retipool/state"
	"github.com/retipool/retipool/xenv"
)

func init() {
	log.SetDefault(log.NewLogger(log.DiscardHandler()))
}

const algo = uint64(1_000_000)

func addr(name string) reti.Address {
	return reti.BytesToAddress([]byte(name))
}

func newRegistry(t *testing.T) (*xenv.Chain, *registry.Registry) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	chain := xenv.NewChain(state.New(db))
	chain.At(1_700_000_000)
	chain.SetOnlineStake(100_000_000 * algo)

	reg, err := registry.New(chain)
	require.NoError(t, err)
	template, err := pool.NewTemplate(chain)
	require.NoError(t, err)
	require.NoError(t, reg.SetPoolTemplate(xenv.New(chain, reg.Address()), template.AppID()))
	return chain, reg
}

func validConfig() *registry.ValidatorConfig {
	return &registry.ValidatorConfig{
		PayoutEveryXMins:           60,
		PctToValidator:             50000,
		ValidatorCommissionAddress: addr("commission"),
		MinEntryStake:              reti.MinAlgoStakePerPool,
		MaxAlgoPerPool:             70_000_000 * algo,
		PoolsPerNode:               2,
		MaxNodes:                   2,
	}
}

func addValidator(t *testing.T, chain *xenv.Chain, reg *registry.Registry, owner reti.Address, config *registry.ValidatorConfig) uint64 {
	t.Helper()
	chain.State().SetBalance(owner, 1_000_000*algo)
	env := xenv.New(chain, owner)
	payment, err := env.AttachPayment(reg.Address(), registry.AddValidatorMbr)
	require.NoError(t, err)
	id, err := reg.AddValidator(env, payment, owner, owner, 0, config)
	require.NoError(t, err)
	return id
}

func TestAddValidatorAssignsSequentialIDs(t *testing.T) {
	chain, reg := newRegistry(t)

	id1 := addValidator(t, chain, reg, addr("owner1"), validConfig())
	id2 := addValidator(t, chain, reg, addr("owner2"), validConfig())
	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)

	numV, err := reg.GetNumValidators(xenv.New(chain, addr("owner1")))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), numV)

	owner, manager, err := reg.OwnerAndManager(xenv.New(chain, addr("owner1")), id1)
	require.NoError(t, err)
	assert.Equal(t, addr("owner1"), owner)
	assert.Equal(t, addr("owner1"), manager)
}

func TestAddValidatorConfigBounds(t *testing.T) {
	chain, reg := newRegistry(t)
	owner := addr("owner")
	chain.State().SetBalance(owner, 1_000_000*algo)

	tests := []struct {
		name   string
		tweak  func(*registry.ValidatorConfig)
		errMsg string
	}{
		{"payout too low", func(c *registry.ValidatorConfig) { c.PayoutEveryXMins = 0 }, "payout interval"},
		{"commission too low", func(c *registry.ValidatorConfig) { c.PctToValidator = 9999 }, "commission percentage"},
		{"zero commission address", func(c *registry.ValidatorConfig) { c.ValidatorCommissionAddress = reti.Address{} }, "commission address"},
		{"min entry below protocol", func(c *registry.ValidatorConfig) { c.MinEntryStake = reti.MinAlgoStakePerPool - 1 }, "min entry stake"},
		{"pool cap zero", func(c *registry.ValidatorConfig) { c.MaxAlgoPerPool = 0 }, "per-pool cap"},
		{"pool cap over protocol", func(c *registry.ValidatorConfig) { c.MaxAlgoPerPool = reti.MaxAlgoPerPool + 1 }, "per-pool cap"},
		{"pools per node", func(c *registry.ValidatorConfig) { c.PoolsPerNode = reti.MaxPoolsPerNode + 1 }, "pools per node"},
		{"max nodes", func(c *registry.ValidatorConfig) { c.MaxNodes = reti.MaxNodes + 1 }, "max nodes"},
		{"reward without token", func(c *registry.ValidatorConfig) { c.RewardPerPayout = 5 }, "reward per payout"},
		{"asset gating empty", func(c *registry.ValidatorConfig) {
			c.EntryGating = registry.GatingSpec{Type: registry.GatingAssets}
		}, "asset gating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.tweak(config)
			env := xenv.New(chain, owner)
			payment, err := env.AttachPayment(reg.Address(), registry.AddValidatorMbr)
			require.NoError(t, err)
			_, err = reg.AddValidator(env, payment, owner, owner, 0, config)
			require.Error(t, err)
			assert.True(t, reverts.Is(err, reverts.CodeConfiguration))
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestAddValidatorPaymentChecks(t *testing.T) {
	chain, reg := newRegistry(t)
	owner := addr("owner")
	chain.State().SetBalance(owner, 1_000_000*algo)

	env := xenv.New(chain, owner)
	short, err := env.AttachPayment(reg.Address(), registry.AddValidatorMbr-1)
	require.NoError(t, err)
	_, err = reg.AddValidator(env, short, owner, owner, 0, validConfig())
	require.Error(t, err)
	assert.True(t, reverts.Is(err, reverts.CodePayment))

	// payment to the wrong receiver
	misdirected, err := env.AttachPayment(addr("elsewhere"), registry.AddValidatorMbr)
	require.NoError(t, err)
	_, err = reg.AddValidator(env, misdirected, owner, owner, 0, validConfig())
	require.Error(t, err)
	assert.True(t, reverts.Is(err, reverts.CodePayment))
}

func addPool(t *testing.T, chain *xenv.Chain, reg *registry.Registry, sender reti.Address, id uint64) (registry.PoolKey, error) {
	t.Helper()
	env := xenv.New(chain, sender)
	payment, err := env.AttachPayment(reg.Address(), registry.AddPoolMbr)
	require.NoError(t, err)
	return reg.AddPool(env, payment, id)
}

func TestAddPoolAuthAndCap(t *testing.T) {
	chain, reg := newRegistry(t)
	owner := addr("owner")
	config := validConfig()
	config.PoolsPerNode = 1
	config.MaxNodes = 2
	id := addValidator(t, chain, reg, owner, config)

	chain.State().SetBalance(addr("rando"), 1_000_000*algo)
	_, err := addPool(t, chain, reg, addr("rando"), id)
	require.Error(t, err)
	assert.True(t, reverts.Is(err, reverts.CodeAuthorization))

	key1, err := addPool(t, chain, reg, owner, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), key1.PoolID)
	key2, err := addPool(t, chain, reg, owner, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), key2.PoolID)

	info, err := reg.GetPoolInfo(xenv.New(chain, owner), key2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.NodeID, "one pool per node puts pool 2 on node 2")

	// two nodes with one pool each is the cap
	_, err = addPool(t, chain, reg, owner, id)
	require.Error(t, err)
	assert.True(t, reverts.Is(err, reverts.CodeCapacity))
	assert.ErrorContains(t, err, "pool cap")
}

func TestStakeUpdatedViaRewardsAuthentication(t *testing.T) {
	chain, reg := newRegistry(t)
	owner := addr("owner")
	id := addValidator(t, chain, reg, owner, validConfig())
	key, err := addPool(t, chain, reg, owner, id)
	require.NoError(t, err)

	// a plain account presenting a valid key is rejected: the sender is
	// not the pool app's account
	err = reg.StakeUpdatedViaRewards(xenv.New(chain, addr("rando")), key, 5, 0)
	require.Error(t, err)
	assert.True(t, reverts.Is(err, reverts.CodeAuthorization))

	// a forged key over a real sender is rejected by the registry record
	forged := key
	forged.PoolAppID = key.PoolAppID + 1
	err = reg.StakeUpdatedViaRewards(xenv.New(chain, reti.AppAddress(forged.PoolAppID)), forged, 5, 0)
	require.Error(t, err)
	assert.True(t, reverts.Is(err, reverts.CodeAuthorization))

	// out-of-range pool ids never pass
	forged = key
	forged.PoolID = 7
	err = reg.StakeUpdatedViaRewards(xenv.New(chain, reti.AppAddress(key.PoolAppID)), forged, 5, 0)
	require.Error(t, err)
	assert.True(t, reverts.Is(err, reverts.CodeAuthorization))
}

func TestChangeManagerAndCommissionAddress(t *testing.T) {
	chain, reg := newRegistry(t)
	owner := addr("owner")
	id := addValidator(t, chain, reg, owner, validConfig())

	err := reg.ChangeValidatorManager(xenv.New(chain, addr("rando")), id, addr("m2"))
	require.Error(t, err)
	assert.True(t, reverts.Is(err, reverts.CodeAuthorization))

	require.NoError(t, reg.ChangeValidatorManager(xenv.New(chain, owner), id, addr("m2")))
	_, manager, err := reg.OwnerAndManager(xenv.New(chain, owner), id)
	require.NoError(t, err)
	assert.Equal(t, addr("m2"), manager)

	require.NoError(t, reg.ChangeValidatorCommissionAddress(xenv.New(chain, owner), id, addr("c2")))
	config, err := reg.GetConfig(xenv.New(chain, owner), id)
	require.NoError(t, err)
	assert.Equal(t, addr("c2"), config.ValidatorCommissionAddress)
}

func TestFindPoolPrefersExistingMembership(t *testing.T) {
	chain, reg := newRegistry(t)
	owner := addr("owner")
	config := validConfig()
	config.MaxAlgoPerPool = 100 * algo
	id := addValidator(t, chain, reg, owner, config)

	key1, err := addPool(t, chain, reg, owner, id)
	require.NoError(t, err)
	key2, err := addPool(t, chain, reg, owner, id)
	require.NoError(t, err)
	initPools(t, chain, reg, owner, key1, key2)

	staker := addr("staker")
	chain.State().SetBalance(staker, 10_000*algo)
	env := xenv.New(chain, staker)
	payment, err := env.AttachPayment(reg.Address(), 40*algo+registry.AddStakerMbr)
	require.NoError(t, err)
	chosen, err := reg.AddStake(env, payment, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), chosen.PoolID)

	// a top-up that still fits goes to the existing membership first
	found, err := reg.FindPoolForStaker(env, id, staker, 50*algo)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), found.PoolID)

	// one that would overflow pool 1 spills to the next pool
	found, err = reg.FindPoolForStaker(env, id, staker, 70*algo)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), found.PoolID)

	// below the validator minimum with no fitting membership
	_, err = reg.FindPoolForStaker(env, id, addr("fresh"), reti.MinAlgoStakePerPool-1)
	require.Error(t, err)
	assert.True(t, reverts.Is(err, reverts.CodeStake))
}

func initPools(t *testing.T, chain *xenv.Chain, reg *registry.Registry, payer reti.Address, keys ...registry.PoolKey) {
	t.Helper()
	for _, k := range keys {
		app, ok := chain.App(k.PoolAppID)
		require.True(t, ok)
		sp := app.(*pool.StakingPool)
		env := xenv.New(chain, payer)
		payment, err := env.AttachPayment(sp.Address(), 10*algo)
		require.NoError(t, err)
		require.NoError(t, sp.InitStorage(env, payment))
	}
}
