package halflife

import (
	"errors"
	"math/big"
	"time"

	"halochain/core/events"
	coreerrors "halochain/core/errors"
	"halochain/core/types"
	"halochain/native/fees"
)

var errNilState = errors.New("halflife engine: state not configured")

// LedgerState is the slice of ledger state both half-life machines operate
// on: wallet accounts, the per-recipient receipt and window slots, and the
// incentive-credit aggregate used for loyalty refunds.
type LedgerState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	PendingReceipt(recipient [20]byte) (*PendingReceipt, bool, error)
	PutPendingReceipt(recipient [20]byte, r *PendingReceipt) error
	DeletePendingReceipt(recipient [20]byte) error
	SettlementWindow(recipient [20]byte) (*SettlementWindow, bool, error)
	PutSettlementWindow(recipient [20]byte, w *SettlementWindow) error
	DeleteSettlementWindow(recipient [20]byte) error
	IncentiveCredits(addr [20]byte) (*big.Int, error)
	SetIncentiveCredits(addr [20]byte, amount *big.Int, now int64) error
}

// RiskMarker records reversal evidence against wallet risk profiles.
type RiskMarker interface {
	MarkReversal(addr [20]byte, now int64) error
}

// ReversalHook runs after tokens have moved back on either reversal path.
// The ledger uses it to clear interbank liabilities.
type ReversalHook func(originator, recipient [20]byte, amount *big.Int) error

// Engine drives the pending-receipt machine (recipient-authorized) and the
// settlement-window machine (sender-authorized). The two protocols overlap
// deliberately and refund loyalty credits independently.
type Engine struct {
	state   LedgerState
	emitter events.Emitter
	risk    RiskMarker
	onRev   ReversalHook
	nowFn   func() int64
}

// NewEngine creates a half-life engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state LedgerState) { e.state = state }

// SetRiskMarker configures the profile sink stamped on reversals.
func (e *Engine) SetRiskMarker(m RiskMarker) { e.risk = m }

// SetReversalHook configures the callback invoked after a reversal settles.
func (e *Engine) SetReversalHook(hook ReversalHook) { e.onRev = hook }

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(halfLifeEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// RecordPending installs the delayed-receipt slot and the parallel settlement
// window after a transfer completed into recipient. An expired, still-live
// receipt in the slot is finalized first (paying its loyalty refund); an
// unexpired one is unconditionally overwritten, latest-only.
func (e *Engine) RecordPending(sender, recipient [20]byte, netAmount, feeAssessed *big.Int, delay int64, pairCount uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	now := e.now()
	existing, ok, err := e.state.PendingReceipt(recipient)
	if err != nil {
		return err
	}
	if ok && !existing.Reversed && !existing.Finalized && now >= existing.ExpiryTime {
		if err := e.finalizeReceipt(recipient, existing, now); err != nil {
			return err
		}
	}

	receipt := &PendingReceipt{
		Sender:      sender,
		Amount:      cloneBigInt(netAmount),
		FeeAssessed: cloneBigInt(feeAssessed),
		ExpiryTime:  now + delay,
	}
	if err := e.state.PutPendingReceipt(recipient, receipt); err != nil {
		return err
	}

	window := &SettlementWindow{
		Originator:       sender,
		CommitWindowEnd:  now + delay,
		HalfLifeDuration: delay,
		TransferCount:    pairCount,
		TotalFeeAssessed: cloneBigInt(feeAssessed),
	}
	if err := e.state.PutSettlementWindow(recipient, window); err != nil {
		return err
	}

	e.emit(newPendingEvent(sender, recipient, receipt))
	return nil
}

// ReverseRecipient lets the recipient hand a still-pending receipt back to
// the original sender before expiry. The assessed fee stays with the
// treasury; no loyalty refund is paid. The slot is retained, marked reversed,
// so repeat calls fail deterministically.
func (e *Engine) ReverseRecipient(recipient [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	receipt, ok, err := e.state.PendingReceipt(recipient)
	if err != nil {
		return err
	}
	if !ok {
		return coreerrors.ErrNoActiveWindow
	}
	if receipt.Reversed {
		return coreerrors.ErrAlreadyReversed
	}
	if receipt.Finalized {
		return coreerrors.ErrAlreadyFinalized
	}
	now := e.now()
	if now >= receipt.ExpiryTime {
		return coreerrors.ErrWindowExpired
	}
	if err := e.moveTokens(recipient, receipt.Sender, receipt.Amount); err != nil {
		return err
	}
	receipt.Reversed = true
	if err := e.state.PutPendingReceipt(recipient, receipt); err != nil {
		return err
	}
	if err := e.markReversal(receipt.Sender, recipient, now); err != nil {
		return err
	}
	if e.onRev != nil {
		if err := e.onRev(receipt.Sender, recipient, receipt.Amount); err != nil {
			return err
		}
	}
	e.emit(newReceiptReversedEvent(recipient, receipt))
	return nil
}

// FinalizeRecipient completes an expired pending receipt. Anyone may trigger
// it. The loyalty refund of feeAssessed/8 is split evenly between the
// original sender and the recipient as incentive credits, then the slot is
// cleared.
func (e *Engine) FinalizeRecipient(recipient [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	receipt, ok, err := e.state.PendingReceipt(recipient)
	if err != nil {
		return err
	}
	if !ok {
		return coreerrors.ErrNoActiveWindow
	}
	if receipt.Reversed {
		return coreerrors.ErrAlreadyReversed
	}
	if receipt.Finalized {
		return coreerrors.ErrAlreadyFinalized
	}
	now := e.now()
	if now < receipt.ExpiryTime {
		return coreerrors.ErrWindowNotExpired
	}
	return e.finalizeReceipt(recipient, receipt, now)
}

func (e *Engine) finalizeReceipt(recipient [20]byte, receipt *PendingReceipt, now int64) error {
	if err := e.grantLoyaltyRefund(receipt.Sender, recipient, receipt.FeeAssessed, now); err != nil {
		return err
	}
	if err := e.state.DeletePendingReceipt(recipient); err != nil {
		return err
	}
	e.emit(newReceiptFinalizedEvent(recipient, receipt))
	return nil
}

// ReverseSender lets the recorded originator pull back amount from the
// recipient while the commit window is open. The recipient's full balance
// must cover the reversal.
func (e *Engine) ReverseSender(caller, recipient [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return coreerrors.ErrZeroAmount
	}
	window, ok, err := e.state.SettlementWindow(recipient)
	if err != nil {
		return err
	}
	if !ok {
		return coreerrors.ErrNoActiveWindow
	}
	if window.Reversed {
		return coreerrors.ErrAlreadyReversed
	}
	if caller != window.Originator {
		return coreerrors.ErrSenderMismatch
	}
	now := e.now()
	if now >= window.CommitWindowEnd {
		return coreerrors.ErrWindowExpired
	}
	recipientAcc, err := e.state.GetAccount(recipient)
	if err != nil {
		return err
	}
	if types.EnsureAccount(recipientAcc).Balance.Cmp(amount) < 0 {
		return coreerrors.ErrRecipientBalanceLow
	}
	if err := e.moveTokens(recipient, caller, amount); err != nil {
		return err
	}
	window.Reversed = true
	if err := e.state.PutSettlementWindow(recipient, window); err != nil {
		return err
	}
	if err := e.markReversal(caller, recipient, now); err != nil {
		return err
	}
	if e.onRev != nil {
		if err := e.onRev(caller, recipient, amount); err != nil {
			return err
		}
	}
	e.emit(newWindowReversedEvent(recipient, window, amount))
	return nil
}

// CheckWindowExpiry processes an elapsed settlement window for wallet. Anyone
// may trigger it. Live windows pay the loyalty refund before the record is
// deleted; reversed windows are just swept.
func (e *Engine) CheckWindowExpiry(wallet [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	window, ok, err := e.state.SettlementWindow(wallet)
	if err != nil {
		return err
	}
	if !ok {
		return coreerrors.ErrNoActiveWindow
	}
	now := e.now()
	if now < window.CommitWindowEnd {
		return coreerrors.ErrWindowNotExpired
	}
	if !window.Reversed {
		if err := e.grantLoyaltyRefund(window.Originator, wallet, window.TotalFeeAssessed, now); err != nil {
			return err
		}
	}
	if err := e.state.DeleteSettlementWindow(wallet); err != nil {
		return err
	}
	e.emit(newWindowExpiredEvent(wallet, window))
	return nil
}

// SpendableBalance returns the wallet balance minus any amount locked by an
// unexpired, still-live pending receipt.
func (e *Engine) SpendableBalance(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	account, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	balance := cloneBigInt(types.EnsureAccount(account).Balance)
	locked, err := e.LockedAmount(addr)
	if err != nil {
		return nil, err
	}
	spendable := new(big.Int).Sub(balance, locked)
	if spendable.Sign() < 0 {
		spendable = big.NewInt(0)
	}
	return spendable, nil
}

// LockedAmount returns the amount restricted by the wallet's pending receipt,
// zero when none is live.
func (e *Engine) LockedAmount(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	receipt, ok, err := e.state.PendingReceipt(addr)
	if err != nil {
		return nil, err
	}
	if !ok || receipt.Reversed || receipt.Finalized || e.now() >= receipt.ExpiryTime {
		return big.NewInt(0), nil
	}
	return cloneBigInt(receipt.Amount), nil
}

func (e *Engine) grantLoyaltyRefund(sender, recipient [20]byte, feeAssessed *big.Int, now int64) error {
	if feeAssessed == nil || feeAssessed.Sign() <= 0 {
		return nil
	}
	refund := new(big.Int).Div(feeAssessed, big.NewInt(fees.LoyaltyRefundDiv))
	if refund.Sign() <= 0 {
		return nil
	}
	half := new(big.Int).Div(refund, big.NewInt(2))
	if err := e.grantCredit(sender, half, now); err != nil {
		return err
	}
	if err := e.grantCredit(recipient, half, now); err != nil {
		return err
	}
	e.emit(newLoyaltyRefundEvent(sender, recipient, half))
	return nil
}

func (e *Engine) grantCredit(addr [20]byte, amount *big.Int, now int64) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	current, err := e.state.IncentiveCredits(addr)
	if err != nil {
		return err
	}
	return e.state.SetIncentiveCredits(addr, new(big.Int).Add(current, amount), now)
}

func (e *Engine) markReversal(a, b [20]byte, now int64) error {
	if e.risk == nil {
		return nil
	}
	if err := e.risk.MarkReversal(a, now); err != nil {
		return err
	}
	return e.risk.MarkReversal(b, now)
}

func (e *Engine) moveTokens(from, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return coreerrors.ErrZeroAmount
	}
	fromAcc, err := e.state.GetAccount(from)
	if err != nil {
		return err
	}
	fromAcc = types.EnsureAccount(fromAcc)
	if fromAcc.Balance.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	toAcc = types.EnsureAccount(toAcc)
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}
