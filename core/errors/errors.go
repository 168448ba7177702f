package errors

import stderrors "errors"

// Category sentinels. Every failure surfaced by the ledger wraps exactly one
// of these so callers can classify outcomes with errors.Is.
var (
	ErrValidation = stderrors.New("validation error")
	ErrCompliance = stderrors.New("compliance error")
	ErrBalance    = stderrors.New("balance error")
	ErrState      = stderrors.New("state error")
	ErrBounds     = stderrors.New("bounds error")
)

// Validation failures: malformed caller input.
var (
	ErrZeroAddress  = wrap(ErrValidation, "zero address")
	ErrZeroAmount   = wrap(ErrValidation, "amount must be positive")
	ErrSelfTransfer = wrap(ErrValidation, "sender and recipient identical")
)

// Compliance failures: the external registry rejected a participant.
var (
	ErrSenderNotApproved    = wrap(ErrCompliance, "sender not approved")
	ErrRecipientNotApproved = wrap(ErrCompliance, "recipient not approved")
	ErrSpenderNotApproved   = wrap(ErrCompliance, "spender not approved")
)

// Balance failures: expected steady-state outcomes the caller must handle.
var (
	ErrInsufficientBalance   = wrap(ErrBalance, "insufficient balance")
	ErrInsufficientSpendable = wrap(ErrBalance, "insufficient spendable balance")
	ErrInsufficientPrefund   = wrap(ErrBalance, "insufficient prefunded fee balance")
	ErrInsufficientAllowance = wrap(ErrBalance, "insufficient allowance")
	ErrRecipientBalanceLow   = wrap(ErrBalance, "recipient balance below reversal amount")
)

// State failures: the targeted record is not in a state that permits the
// transition.
var (
	ErrNoActiveWindow   = wrap(ErrState, "no active window")
	ErrAlreadyReversed  = wrap(ErrState, "already reversed")
	ErrAlreadyFinalized = wrap(ErrState, "already finalized")
	ErrWindowNotExpired = wrap(ErrState, "window not yet expired")
	ErrWindowExpired    = wrap(ErrState, "window already expired")
	ErrSenderMismatch   = wrap(ErrState, "sender mismatch")
	ErrReentrantCall    = wrap(ErrState, "reentrant call")
	ErrUnauthorizedRole = wrap(ErrState, "caller lacks required role")
	ErrModulePaused     = wrap(ErrState, "module paused")
)

// Bounds failures: admin parameters outside the permitted range.
var (
	ErrParamOutOfRange = wrap(ErrBounds, "parameter outside permitted range")
)

type wrapped struct {
	category error
	msg      string
}

func (w *wrapped) Error() string { return w.msg }

func (w *wrapped) Unwrap() error { return w.category }

func wrap(category error, msg string) error {
	return &wrapped{category: category, msg: msg}
}
