// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"github.com/pkg/errors"

	"github.com/retipool/retipool/box"
	"github.com/retipool/retipool/budget"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/state"
	"github.com/retipool/retipool/xenv"
)

var (
	slotCreatorApp    = nameToSlot("creatorApp")
	slotValidatorID   = nameToSlot("validatorID")
	slotPoolID        = nameToSlot("poolID")
	slotNumStakers    = nameToSlot("numStakers")
	slotStaked        = nameToSlot("staked")
	slotMinEntryStake = nameToSlot("minEntryStake")
	slotMaxStake      = nameToSlot("maxStake")
	slotLastPayout    = nameToSlot("lastPayout")
	slotAlgodVer      = nameToSlot("algodVer")
	slotNFDAppID      = nameToSlot("nfd")
	slotStakers       = nameToSlot("stakers")
)

func nameToSlot(name string) reti.Bytes32 {
	return reti.BytesToBytes32([]byte(name))
}

type storage struct {
	address reti.Address
	state   *state.State

	creatorApp    *box.Raw[uint64]
	validatorID   *box.Raw[uint64]
	poolID        *box.Raw[uint64]
	numStakers    *box.Raw[uint64]
	staked        *box.Raw[uint64]
	minEntryStake *box.Raw[uint64]
	maxStake      *box.Raw[uint64]
	lastPayout    *box.Raw[uint64]
	algodVer      *box.Raw[string]
	nfdAppID      *box.Raw[uint64]
	stakers       *box.Raw[Ledger]
}

func newStorage(addr reti.Address, st *state.State, charger *budget.Charger) *storage {
	sctx := box.NewContext(addr, st, charger)
	return &storage{
		address:       addr,
		state:         st,
		creatorApp:    box.NewRaw[uint64](sctx, slotCreatorApp),
		validatorID:   box.NewRaw[uint64](sctx, slotValidatorID),
		poolID:        box.NewRaw[uint64](sctx, slotPoolID),
		numStakers:    box.NewRaw[uint64](sctx, slotNumStakers),
		staked:        box.NewRaw[uint64](sctx, slotStaked),
		minEntryStake: box.NewRaw[uint64](sctx, slotMinEntryStake),
		maxStake:      box.NewRaw[uint64](sctx, slotMaxStake),
		lastPayout:    box.NewRaw[uint64](sctx, slotLastPayout),
		algodVer:      box.NewRaw[string](sctx, slotAlgodVer),
		nfdAppID:      box.NewRaw[uint64](sctx, slotNFDAppID),
		stakers:       box.NewRaw[Ledger](sctx, slotStakers),
	}
}

// HasLedger reports whether the staker ledger box has been allocated.
func (s *storage) HasLedger() (bool, error) {
	raw, err := s.state.GetRawStorage(s.address, slotStakers)
	if err != nil {
		return false, errors.Wrap(err, "failed to probe staker ledger")
	}
	return len(raw) > 0, nil
}

func (s *storage) Ledger() (*Ledger, error) {
	ledger, err := s.stakers.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get staker ledger")
	}
	return &ledger, nil
}

func (s *storage) SetLedger(ledger *Ledger) error {
	if err := s.stakers.Set(*ledger); err != nil {
		return errors.Wrap(err, "failed to set staker ledger")
	}
	return nil
}

// ledgerBoxBytes is the packed size of the staker ledger box, used for
// its storage deposit.
const ledgerBoxBytes = reti.MaxStakersPerPool * (32 + 4*8)

func (p *StakingPool) storageFor(env *xenv.Environment) *storage {
	return newStorage(p.address, env.State(), budget.New(env))
}
