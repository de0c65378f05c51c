// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/pkg/errors"

	"github.com/retipool/retipool/box"
	"github.com/retipool/retipool/budget"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/state"
	"github.com/retipool/retipool/xenv"
)

var (
	slotNumValidators  = nameToSlot("numV")
	slotTemplateAppID  = nameToSlot("poolTemplateAppID")
	slotValidators     = nameToSlot("v")
	slotStakerPoolSets = nameToSlot("sps")
	slotPayoutRatios   = nameToSlot("tokenPayoutRatio")
)

func nameToSlot(name string) reti.Bytes32 {
	return reti.BytesToBytes32([]byte(name))
}

type addressKey reti.Address

func (k addressKey) Bytes() []byte {
	return reti.Address(k).Bytes()
}

// storage is the root storage of the registry app.
type storage struct {
	numValidators *box.Raw[uint64]
	templateAppID *box.Raw[uint64]
	validators    *box.Mapping[box.Uint64Key, *ValidatorInfo]
	poolSets      *box.Mapping[addressKey, *StakerPoolSet]
	payoutRatios  *box.Mapping[box.Uint64Key, *PoolTokenPayoutRatio]
}

func newStorage(addr reti.Address, st *state.State, charger *budget.Charger) *storage {
	sctx := box.NewContext(addr, st, charger)
	return &storage{
		numValidators: box.NewRaw[uint64](sctx, slotNumValidators),
		templateAppID: box.NewRaw[uint64](sctx, slotTemplateAppID),
		validators:    box.NewMapping[box.Uint64Key, *ValidatorInfo](sctx, slotValidators),
		poolSets:      box.NewMapping[addressKey, *StakerPoolSet](sctx, slotStakerPoolSets),
		payoutRatios:  box.NewMapping[box.Uint64Key, *PoolTokenPayoutRatio](sctx, slotPayoutRatios),
	}
}

func (s *storage) NumValidators() (uint64, error) {
	n, err := s.numValidators.Get()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get validator count")
	}
	return n, nil
}

func (s *storage) SetNumValidators(n uint64) error {
	if err := s.numValidators.Set(n); err != nil {
		return errors.Wrap(err, "failed to set validator count")
	}
	return nil
}

func (s *storage) TemplateAppID() (uint64, error) {
	id, err := s.templateAppID.Get()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get pool template")
	}
	return id, nil
}

func (s *storage) SetTemplateAppID(id uint64) error {
	if err := s.templateAppID.Set(id); err != nil {
		return errors.Wrap(err, "failed to set pool template")
	}
	return nil
}

func (s *storage) GetValidator(id uint64) (*ValidatorInfo, error) {
	v, err := s.validators.Get(box.Uint64Key(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get validator")
	}
	return v, nil
}

func (s *storage) SetValidator(id uint64, entry *ValidatorInfo) error {
	if err := s.validators.Set(box.Uint64Key(id), entry); err != nil {
		return errors.Wrap(err, "failed to set validator")
	}
	return nil
}

func (s *storage) HasPoolSet(staker reti.Address) (bool, error) {
	ok, err := s.poolSets.Has(addressKey(staker))
	if err != nil {
		return false, errors.Wrap(err, "failed to probe staker pool set")
	}
	return ok, nil
}

func (s *storage) GetPoolSet(staker reti.Address) (*StakerPoolSet, error) {
	ps, err := s.poolSets.Get(addressKey(staker))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get staker pool set")
	}
	return ps, nil
}

func (s *storage) SetPoolSet(staker reti.Address, set *StakerPoolSet) error {
	if err := s.poolSets.Set(addressKey(staker), set); err != nil {
		return errors.Wrap(err, "failed to set staker pool set")
	}
	return nil
}

func (s *storage) GetPayoutRatio(validatorID uint64) (*PoolTokenPayoutRatio, error) {
	r, err := s.payoutRatios.Get(box.Uint64Key(validatorID))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get payout ratio")
	}
	return r, nil
}

func (s *storage) SetPayoutRatio(validatorID uint64, ratio *PoolTokenPayoutRatio) error {
	if err := s.payoutRatios.Set(box.Uint64Key(validatorID), ratio); err != nil {
		return errors.Wrap(err, "failed to set payout ratio")
	}
	return nil
}

// storageFor binds the registry's cells to the call's budget charger.
func (r *Registry) storageFor(env *xenv.Environment) *storage {
	return newStorage(r.address, env.State(), budget.New(env))
}
