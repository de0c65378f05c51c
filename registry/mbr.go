// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/reverts"
	"github.com/retipool/retipool/xenv"
)

// Fixed storage widths used for MBR math. These are the worst-case packed
// sizes of the boxed records, not the RLP wire sizes.
const (
	poolKeyBytes    = 3 * 8
	poolInfoBytes   = 4 * 8
	gatingSpecBytes = 1 + 32 + 8 + 4*8 + 8
	configBytes     = 2 + 4 + 32 + 8 + 8 + 1 + 1 + 8 + 8 + gatingSpecBytes
	stateBytes      = 4 * 8
	validatorBytes  = 8 + 32 + 32 + 8 + configBytes + stateBytes + reti.MaxPools*poolInfoBytes

	validatorBoxKeyBytes = 1 + 8  // "v" + id
	poolSetBoxKeyBytes   = 3 + 32 // "sps" + pubkey
)

// MBR amounts the registry charges for the storage its operations
// allocate.
var (
	// AddValidatorMbr covers one validator record box.
	AddValidatorMbr = reti.BoxMBR(validatorBoxKeyBytes, validatorBytes)
	// AddPoolMbr covers the registry-side cost of a new pool app
	// instance; the pool's own account floor and ledger box are paid at
	// InitStorage.
	AddPoolMbr = uint64(reti.AppPageMinBalance)
	// AddStakerMbr covers one staker pool-set box.
	AddStakerMbr = reti.BoxMBR(poolSetBoxKeyBytes, MaxPoolsPerStaker*poolKeyBytes)
)

// requireExactPayment validates an accompanying payment: right sender,
// paid to the registry, exact amount.
func (r *Registry) requireExactPayment(payment xenv.Payment, sender reti.Address, amount uint64) error {
	if payment.Sender != sender {
		return reverts.New(reverts.CodePayment, "payment sender mismatch")
	}
	if payment.Receiver != r.address {
		return reverts.New(reverts.CodePayment, "payment must be made to the registry")
	}
	if payment.Amount != amount {
		return reverts.New(reverts.CodePayment, "payment amount mismatch")
	}
	return nil
}
