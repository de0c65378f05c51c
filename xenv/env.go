// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"github.com/pkg/errors"

	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/state"
)

// Payment is a payment transaction grouped with an app call.
type Payment struct {
	Sender   reti.Address
	Receiver reti.Address
	Amount   uint64
}

// Effect kinds emitted by contract execution.
const (
	EffectPay           = "pay"
	EffectTokenTransfer = "axfer"
	EffectKeyReg        = "keyreg"
)

// Effect records an inner transaction emitted during execution. Tests and
// the solo runner consume these; on the real platform they are the inner
// transactions of the group.
type Effect struct {
	Kind    string
	From    reti.Address
	To      reti.Address
	Amount  uint64
	AssetID uint64
	Note    string
}

// Environment carries the execution context of a single app call: the
// sender, the executing app, the opcode budget and the effect log. Inner
// calls derive child environments via InnerCall and share the effect log
// and budget with the root, matching atomic group semantics.
type Environment struct {
	chain   *Chain
	sender  reti.Address
	thisApp uint64

	effects *[]Effect
	budget  *budgetState
}

type budgetState struct {
	remaining uint64
	grants    uint64
}

// New creates a root environment for an externally sent app call.
func New(chain *Chain, sender reti.Address) *Environment {
	effects := make([]Effect, 0)
	return &Environment{
		chain:   chain,
		sender:  sender,
		effects: &effects,
		budget:  &budgetState{remaining: reti.OpcodeBudgetGrant},
	}
}

// WithApp returns a copy of the environment executing as the given app.
func (e *Environment) WithApp(appID uint64) *Environment {
	dup := *e
	dup.thisApp = appID
	return &dup
}

// InnerCall derives the environment an inner app call executes under: the
// sender becomes the calling app's account.
func (e *Environment) InnerCall(calleeApp uint64) *Environment {
	dup := *e
	dup.sender = reti.AppAddress(e.thisApp)
	dup.thisApp = calleeApp
	return &dup
}

func (e *Environment) Chain() *Chain {
	return e.chain
}

func (e *Environment) State() *state.State {
	return e.chain.State()
}

// Sender returns the account the current call originates from.
func (e *Environment) Sender() reti.Address {
	return e.sender
}

// ThisApp returns the id of the executing app.
func (e *Environment) ThisApp() uint64 {
	return e.thisApp
}

// Now returns the block timestamp.
func (e *Environment) Now() uint64 {
	return e.chain.Now()
}

// Effects returns the inner transactions emitted so far.
func (e *Environment) Effects() []Effect {
	return *e.effects
}

// AttachPayment moves funds from the sender and returns the payment record
// an app call validates against.
func (e *Environment) AttachPayment(receiver reti.Address, amount uint64) (Payment, error) {
	return e.makePayment(e.sender, receiver, amount)
}

// Pay emits an inner payment from the executing app's account.
func (e *Environment) Pay(receiver reti.Address, amount uint64) error {
	_, err := e.makePayment(reti.AppAddress(e.thisApp), receiver, amount)
	return err
}

// InnerPay is Pay returning the payment record, for grouping with an
// inner app call.
func (e *Environment) InnerPay(receiver reti.Address, amount uint64) (Payment, error) {
	return e.makePayment(reti.AppAddress(e.thisApp), receiver, amount)
}

// PayOut is like Pay but enforces that the executing app's account keeps
// its minimum balance.
func (e *Environment) PayOut(receiver reti.Address, amount uint64) error {
	from := reti.AppAddress(e.thisApp)
	balance, err := e.State().GetBalance(from)
	if err != nil {
		return err
	}
	minBalance, err := e.State().GetMinBalance(from)
	if err != nil {
		return err
	}
	if balance < amount || balance-amount < minBalance {
		return errors.New("payment would breach minimum balance")
	}
	return e.Pay(receiver, amount)
}

func (e *Environment) makePayment(sender, receiver reti.Address, amount uint64) (Payment, error) {
	if amount > 0 {
		if err := e.State().SubBalance(sender, amount); err != nil {
			return Payment{}, errors.Wrap(err, "payment failed")
		}
		if err := e.State().AddBalance(receiver, amount); err != nil {
			return Payment{}, err
		}
	}
	*e.effects = append(*e.effects, Effect{Kind: EffectPay, From: sender, To: receiver, Amount: amount})
	return Payment{Sender: sender, Receiver: receiver, Amount: amount}, nil
}

// TransferToken emits an inner asset transfer from the executing app's
// account.
func (e *Environment) TransferToken(receiver reti.Address, assetID, amount uint64) error {
	from := reti.AppAddress(e.thisApp)
	if err := e.State().SubTokenBalance(from, assetID, amount); err != nil {
		return errors.Wrap(err, "token transfer failed")
	}
	if err := e.State().AddTokenBalance(receiver, assetID, amount); err != nil {
		return errors.Wrap(err, "token transfer failed")
	}
	*e.effects = append(*e.effects, Effect{Kind: EffectTokenTransfer, From: from, To: receiver, Amount: amount, AssetID: assetID})
	return nil
}

// EmitKeyReg records a participation-key registration effect. The key
// material itself is opaque to the contracts.
func (e *Environment) EmitKeyReg(note string) {
	*e.effects = append(*e.effects, Effect{Kind: EffectKeyReg, From: reti.AppAddress(e.thisApp), Note: note})
}

// UseBudget consumes opcode budget, topping up when the remaining budget
// drops below the threshold. Purely accounting; execution never blocks.
func (e *Environment) UseBudget(cost uint64) {
	for cost >= e.budget.remaining || e.budget.remaining-cost < reti.OpcodeBudgetThreshold {
		e.budget.remaining += reti.OpcodeBudgetGrant
		e.budget.grants++
	}
	e.budget.remaining -= cost
}

// BudgetGrants returns how many budget top-ups execution has requested.
func (e *Environment) BudgetGrants() uint64 {
	return e.budget.grants
}
