// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"encoding/hex"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/retipool/retipool/pool"
	"github.com/retipool/retipool/registry"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/xenv"
)

type genesisValidator struct {
	Owner             string `yaml:"owner"`
	Manager           string `yaml:"manager"`
	PayoutMins        uint16 `yaml:"payoutMins"`
	PctToValidator    uint32 `yaml:"pctToValidator"`
	CommissionAddress string `yaml:"commissionAddress"`
	MinEntryStake     uint64 `yaml:"minEntryStake"`
	MaxAlgoPerPool    uint64 `yaml:"maxAlgoPerPool"`
	PoolsPerNode      uint8  `yaml:"poolsPerNode"`
	MaxNodes          uint8  `yaml:"maxNodes"`
	Pools             int    `yaml:"pools"`
}

type genesis struct {
	OnlineStake uint64             `yaml:"onlineStake"`
	Validators  []genesisValidator `yaml:"validators"`
}

func loadGenesis(path string) (*genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read genesis file")
	}
	var gen genesis
	if err := yaml.Unmarshal(raw, &gen); err != nil {
		return nil, errors.Wrap(err, "failed to parse genesis file")
	}
	return &gen, nil
}

func parseAddress(s string) (reti.Address, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return reti.Address{}, errors.Errorf("malformed address %q", s)
	}
	return reti.BytesToAddress(raw), nil
}

// applyGenesis seeds validators and pools. Accounts are faucet-funded so
// the MBR payments and storage deposits clear.
func applyGenesis(chain *xenv.Chain, reg *registry.Registry, gen *genesis) error {
	chain.SetOnlineStake(gen.OnlineStake)

	for i := range gen.Validators {
		v := &gen.Validators[i]
		owner, err := parseAddress(v.Owner)
		if err != nil {
			return err
		}
		manager, err := parseAddress(v.Manager)
		if err != nil {
			return err
		}
		commission, err := parseAddress(v.CommissionAddress)
		if err != nil {
			return err
		}

		env := xenv.New(chain, owner)
		chain.State().SetBalance(owner, 1_000_000_000)

		mbrPayment, err := env.AttachPayment(reg.Address(), registry.AddValidatorMbr)
		if err != nil {
			return err
		}
		id, err := reg.AddValidator(env, mbrPayment, owner, manager, 0, &registry.ValidatorConfig{
			PayoutEveryXMins:           v.PayoutMins,
			PctToValidator:             v.PctToValidator,
			ValidatorCommissionAddress: commission,
			MinEntryStake:              v.MinEntryStake,
			MaxAlgoPerPool:             v.MaxAlgoPerPool,
			PoolsPerNode:               v.PoolsPerNode,
			MaxNodes:                   v.MaxNodes,
		})
		if err != nil {
			return errors.Wrap(err, "failed to add genesis validator")
		}

		for range v.Pools {
			mbrPayment, err := env.AttachPayment(reg.Address(), registry.AddPoolMbr)
			if err != nil {
				return err
			}
			key, err := reg.AddPool(env, mbrPayment, id)
			if err != nil {
				return errors.Wrap(err, "failed to add genesis pool")
			}
			app, _ := chain.App(key.PoolAppID)
			sp := app.(*pool.StakingPool)
			// generously covers the account floor plus the ledger box
			initPayment, err := env.AttachPayment(sp.Address(), 3_000_000)
			if err != nil {
				return err
			}
			if err := sp.InitStorage(env, initPayment); err != nil {
				return errors.Wrap(err, "failed to init genesis pool storage")
			}
		}
	}
	return nil
}
