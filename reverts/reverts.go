// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

// Code classifies why a call reverted.
type Code uint8

const (
	CodeUnknown Code = iota
	CodeConfiguration
	CodeAuthorization
	CodeCapacity
	CodeStake
	CodePayment
	CodeTiming
	CodeInvariant
)

func (c Code) String() string {
	switch c {
	case CodeConfiguration:
		return "configuration"
	case CodeAuthorization:
		return "authorization"
	case CodeCapacity:
		return "capacity"
	case CodeStake:
		return "stake"
	case CodePayment:
		return "payment"
	case CodeTiming:
		return "timing"
	case CodeInvariant:
		return "invariant"
	}
	return "unknown"
}

// ErrRevert aborts the enclosing transaction group. The platform unwinds
// all partial effects; there is no local recovery.
type ErrRevert struct {
	code    Code
	message string
}

func New(code Code, message string) *ErrRevert {
	return &ErrRevert{code: code, message: message}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Code() Code {
	return e.code
}

// IsRevertErr returns whether the error is (or wraps) a revert.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// Is returns whether the error is a revert with the given code.
func Is(err error, code Code) bool {
	var ve *ErrRevert
	if !errors.As(err, &ve) {
		return false
	}
	return ve.code == code
}
