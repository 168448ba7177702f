package core

import (
	"math/big"
	"time"

	"halochain/core/events"
	coreerrors "halochain/core/errors"
	"halochain/core/state"
	"halochain/core/types"
	"halochain/native/common"
	"halochain/native/compliance"
	"halochain/native/fees"
	"halochain/native/halflife"
	"halochain/native/risk"
	"halochain/storage"
)

// Role names checked by the capability predicate before mutating operations.
const (
	RoleAdmin  = "ROLE_ADMIN"
	RoleMinter = "ROLE_MINTER"
	RoleBurner = "ROLE_BURNER"
	RolePauser = "ROLE_PAUSER"
)

// Pausable module names.
const (
	ModuleTransfer = "transfer"
	ModuleIssuance = "issuance"
	ModuleHalfLife = "halflife"
)

// Ledger is the transfer and settlement orchestrator. Every exported
// mutating method is one serialized transition: it either commits in full or
// rolls back without partial effects.
type Ledger struct {
	guard    common.ReentrancyGuard
	state    *state.Manager
	risk     *risk.Engine
	fees     *fees.Engine
	halflife *halflife.Engine

	registry  compliance.Registry
	liability compliance.LiabilityLedger
	emitter   events.Emitter
	nowFn     func() int64
}

// NewLedger wires the engines over the provided database and external
// collaborators. The registry and liability ledger may be nil in tests that
// exercise only intra-custodian flows.
func NewLedger(db storage.Database, registry compliance.Registry, liability compliance.LiabilityLedger) *Ledger {
	manager := state.NewManager(db)
	l := &Ledger{
		state:     manager,
		risk:      risk.NewEngine(manager),
		fees:      fees.NewEngine(),
		halflife:  halflife.NewEngine(),
		registry:  registry,
		liability: liability,
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
	}
	l.fees.SetState(manager)
	l.halflife.SetState(manager)
	l.halflife.SetRiskMarker(l.risk)
	l.halflife.SetReversalHook(l.clearLiability)
	return l
}

// State exposes the state manager for read-only callers (RPC, registry
// wiring). Mutation outside a ledger transition is the caller's own risk.
func (l *Ledger) State() *state.Manager { return l.state }

// SetCompliance replaces the registry and liability ledger. Both should be
// backed by this ledger's state manager so their writes join the transition
// overlay.
func (l *Ledger) SetCompliance(registry compliance.Registry, liability compliance.LiabilityLedger) {
	l.registry = registry
	l.liability = liability
}

// SetEmitter configures the event emitter for the ledger and its engines.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	l.emitter = emitter
	l.fees.SetEmitter(emitter)
	l.halflife.SetEmitter(emitter)
	if netting, ok := l.liability.(*compliance.NettingLedger); ok {
		netting.SetEmitter(emitter)
	}
}

// SetNowFunc overrides the trusted clock for the ledger and its engines.
func (l *Ledger) SetNowFunc(now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	l.nowFn = now
	l.halflife.SetNowFunc(now)
}

func (l *Ledger) now() int64 { return l.nowFn() }

func (l *Ledger) emit(evt *types.Event) {
	if evt == nil {
		return
	}
	l.emitter.Emit(ledgerEvent{evt: evt})
}

// transition runs fn as one atomic state transition guarded against
// reentrancy: writes buffer in the state overlay and flush only on success.
func (l *Ledger) transition(fn func() error) error {
	if err := l.guard.Enter(); err != nil {
		return err
	}
	defer l.guard.Exit()
	l.state.Begin()
	if err := fn(); err != nil {
		l.state.Revert()
		return err
	}
	return l.state.Commit()
}

func (l *Ledger) requireRole(role string, addr [20]byte) error {
	held, err := l.state.HasRole(role, addr)
	if err != nil {
		return err
	}
	if !held {
		return coreerrors.ErrUnauthorizedRole
	}
	return nil
}

func (l *Ledger) requireApproved(addr [20]byte, failure error) error {
	if l.registry == nil {
		return nil
	}
	if !l.registry.IsApproved(addr) {
		return failure
	}
	return nil
}

// Bootstrap grants the full role set to the genesis admin. It is a no-op if
// the address already holds the admin role.
func (l *Ledger) Bootstrap(admin [20]byte) error {
	if admin == ([20]byte{}) {
		return coreerrors.ErrZeroAddress
	}
	return l.transition(func() error {
		held, err := l.state.HasRole(RoleAdmin, admin)
		if err != nil || held {
			return err
		}
		for _, role := range []string{RoleAdmin, RoleMinter, RoleBurner, RolePauser} {
			if err := l.state.SetRole(role, admin, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// --- transfers ---

// Transfer moves amount from caller to recipient, assessing the
// risk-adjusted fee, settling it through the waterfall and opening the
// half-life window on the recipient.
func (l *Ledger) Transfer(caller, recipient [20]byte, amount *big.Int) error {
	return l.transition(func() error {
		return l.executeTransfer(caller, recipient, amount)
	})
}

// TransferFrom moves amount from `from` to `to` on behalf of caller,
// consuming allowance. The fee is assessed against `from`.
func (l *Ledger) TransferFrom(caller, from, to [20]byte, amount *big.Int) error {
	return l.transition(func() error {
		if err := validateAmount(amount); err != nil {
			return err
		}
		if err := l.requireApproved(caller, coreerrors.ErrSpenderNotApproved); err != nil {
			return err
		}
		allowance, err := l.state.Allowance(from, caller)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return coreerrors.ErrInsufficientAllowance
		}
		if err := l.executeTransfer(from, to, amount); err != nil {
			return err
		}
		return l.state.SetAllowance(from, caller, new(big.Int).Sub(allowance, amount))
	})
}

// Approve sets the allowance caller grants to spender.
func (l *Ledger) Approve(caller, spender [20]byte, amount *big.Int) error {
	return l.transition(func() error {
		if spender == ([20]byte{}) {
			return coreerrors.ErrZeroAddress
		}
		if amount == nil || amount.Sign() < 0 {
			return coreerrors.ErrZeroAmount
		}
		return l.state.SetAllowance(caller, spender, amount)
	})
}

func (l *Ledger) executeTransfer(sender, recipient [20]byte, amount *big.Int) error {
	if err := common.Guard(l.state, ModuleTransfer); err != nil {
		return err
	}
	if sender == ([20]byte{}) || recipient == ([20]byte{}) {
		return coreerrors.ErrZeroAddress
	}
	if sender == recipient {
		return coreerrors.ErrSelfTransfer
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := l.requireApproved(sender, coreerrors.ErrSenderNotApproved); err != nil {
		return err
	}
	if err := l.requireApproved(recipient, coreerrors.ErrRecipientNotApproved); err != nil {
		return err
	}

	now := l.now()
	params, err := l.state.Params()
	if err != nil {
		return err
	}
	l.fees.SetTreasury(params.Treasury)

	// Touching the originator creates its profile lazily; the recipient is
	// only scored.
	senderProfile, err := l.risk.Touch(sender, now)
	if err != nil {
		return err
	}
	senderScore := risk.Score(senderProfile, now)
	recipientScore, err := l.risk.ScoreOf(recipient, now)
	if err != nil {
		return err
	}

	quote := fees.ComputeQuote(amount, senderScore, recipientScore)
	spendable, err := l.halflife.SpendableBalance(sender)
	if err != nil {
		return err
	}
	settlement, err := l.fees.Settle(sender, recipient, amount, quote, spendable, now)
	if err != nil {
		return err
	}

	pairCount, err := l.state.IncrementPairTransactionCount(sender, recipient)
	if err != nil {
		return err
	}

	average, hasAverage, err := l.state.RollingAverage(sender)
	if err != nil {
		return err
	}
	// The delay is sized against the pre-transfer average; a stale average
	// counts as empty, matching the inactivity reset below.
	var effective *halflife.RollingAverage
	if hasAverage && now-average.LastUpdated <= params.InactivityPeriod {
		effective = average
	}
	delay := halflife.ComputeDelay(params.HalfLifeDuration, params.HalfLifeMin, params.HalfLifeMax,
		pairCount, amount, effective.Average())
	updated := halflife.UpdateRollingAverage(average, amount, now, params.InactivityPeriod)
	if err := l.state.PutRollingAverage(sender, updated); err != nil {
		return err
	}

	if err := l.halflife.RecordPending(sender, recipient, amount, quote.TotalFee, delay, pairCount); err != nil {
		return err
	}

	if err := l.recordLiability(sender, recipient, amount); err != nil {
		return err
	}

	senderAcc, err := l.state.GetAccount(sender)
	if err != nil {
		return err
	}
	senderAcc.Nonce++
	if err := l.state.PutAccount(sender, senderAcc); err != nil {
		return err
	}

	l.emit(newTransferEvent(sender, recipient, amount, settlement, delay))
	return nil
}

func (l *Ledger) recordLiability(sender, recipient [20]byte, amount *big.Int) error {
	if l.registry == nil || l.liability == nil {
		return nil
	}
	senderCustodian, okSender := l.registry.Custodian(sender)
	recipientCustodian, okRecipient := l.registry.Custodian(recipient)
	if !okSender || !okRecipient || senderCustodian == recipientCustodian {
		return nil
	}
	return l.liability.Record(senderCustodian, recipientCustodian, amount)
}

func (l *Ledger) clearLiability(originator, recipient [20]byte, amount *big.Int) error {
	if l.registry == nil || l.liability == nil {
		return nil
	}
	senderCustodian, okSender := l.registry.Custodian(originator)
	recipientCustodian, okRecipient := l.registry.Custodian(recipient)
	if !okSender || !okRecipient || senderCustodian == recipientCustodian {
		return nil
	}
	return l.liability.Clear(senderCustodian, recipientCustodian, amount)
}

// --- issuance ---

// Mint issues amount to recipient. Caller must hold the minter role.
func (l *Ledger) Mint(caller, recipient [20]byte, amount *big.Int) error {
	return l.transition(func() error {
		if err := common.Guard(l.state, ModuleIssuance); err != nil {
			return err
		}
		if recipient == ([20]byte{}) {
			return coreerrors.ErrZeroAddress
		}
		if err := validateAmount(amount); err != nil {
			return err
		}
		if err := l.requireRole(RoleMinter, caller); err != nil {
			return err
		}
		if err := l.requireApproved(recipient, coreerrors.ErrRecipientNotApproved); err != nil {
			return err
		}
		if _, err := l.risk.Touch(recipient, l.now()); err != nil {
			return err
		}
		account, err := l.state.GetAccount(recipient)
		if err != nil {
			return err
		}
		account.Balance = new(big.Int).Add(account.Balance, amount)
		if err := l.state.PutAccount(recipient, account); err != nil {
			return err
		}
		supply, err := l.state.TotalSupply()
		if err != nil {
			return err
		}
		if err := l.state.SetTotalSupply(new(big.Int).Add(supply, amount)); err != nil {
			return err
		}
		l.emit(newMintEvent(recipient, amount))
		return nil
	})
}

// Burn destroys amount from the caller's spendable balance.
func (l *Ledger) Burn(caller [20]byte, amount *big.Int) error {
	return l.transition(func() error {
		return l.executeBurn(caller, caller, amount)
	})
}

// BurnFrom destroys amount from account. Caller needs the burner role or a
// sufficient allowance.
func (l *Ledger) BurnFrom(caller, account [20]byte, amount *big.Int) error {
	return l.transition(func() error {
		if err := validateAmount(amount); err != nil {
			return err
		}
		held, err := l.state.HasRole(RoleBurner, caller)
		if err != nil {
			return err
		}
		if !held {
			allowance, err := l.state.Allowance(account, caller)
			if err != nil {
				return err
			}
			if allowance.Cmp(amount) < 0 {
				return coreerrors.ErrInsufficientAllowance
			}
			if err := l.state.SetAllowance(account, caller, new(big.Int).Sub(allowance, amount)); err != nil {
				return err
			}
		}
		return l.executeBurn(caller, account, amount)
	})
}

func (l *Ledger) executeBurn(caller, account [20]byte, amount *big.Int) error {
	if err := common.Guard(l.state, ModuleIssuance); err != nil {
		return err
	}
	if account == ([20]byte{}) {
		return coreerrors.ErrZeroAddress
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if err := l.requireApproved(caller, coreerrors.ErrSenderNotApproved); err != nil {
		return err
	}
	spendable, err := l.halflife.SpendableBalance(account)
	if err != nil {
		return err
	}
	if spendable.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientSpendable
	}
	acc, err := l.state.GetAccount(account)
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	if err := l.state.PutAccount(account, acc); err != nil {
		return err
	}
	supply, err := l.state.TotalSupply()
	if err != nil {
		return err
	}
	if err := l.state.SetTotalSupply(new(big.Int).Sub(supply, amount)); err != nil {
		return err
	}
	l.emit(newBurnEvent(account, amount))
	return nil
}

// --- fee prefunding ---

// PrefundFees moves amount of the caller's tokens to the treasury to cover
// future fee obligations.
func (l *Ledger) PrefundFees(caller [20]byte, amount *big.Int) error {
	return l.transition(func() error {
		if err := validateAmount(amount); err != nil {
			return err
		}
		if err := l.requireApproved(caller, coreerrors.ErrSenderNotApproved); err != nil {
			return err
		}
		params, err := l.state.Params()
		if err != nil {
			return err
		}
		spendable, err := l.halflife.SpendableBalance(caller)
		if err != nil {
			return err
		}
		if spendable.Cmp(amount) < 0 {
			return coreerrors.ErrInsufficientSpendable
		}
		if err := l.moveTokens(caller, params.Treasury, amount); err != nil {
			return err
		}
		balance, err := l.state.PrefundedFees(caller)
		if err != nil {
			return err
		}
		if err := l.state.SetPrefundedFees(caller, new(big.Int).Add(balance, amount)); err != nil {
			return err
		}
		l.emit(newPrefundEvent(caller, amount, true))
		return nil
	})
}

// WithdrawPrefundedFees returns amount of prefunded tokens from the treasury
// to the caller.
func (l *Ledger) WithdrawPrefundedFees(caller [20]byte, amount *big.Int) error {
	return l.transition(func() error {
		if err := validateAmount(amount); err != nil {
			return err
		}
		params, err := l.state.Params()
		if err != nil {
			return err
		}
		balance, err := l.state.PrefundedFees(caller)
		if err != nil {
			return err
		}
		if balance.Cmp(amount) < 0 {
			return coreerrors.ErrInsufficientPrefund
		}
		if err := l.moveTokens(params.Treasury, caller, amount); err != nil {
			return err
		}
		if err := l.state.SetPrefundedFees(caller, new(big.Int).Sub(balance, amount)); err != nil {
			return err
		}
		l.emit(newPrefundEvent(caller, amount, false))
		return nil
	})
}

// --- half-life entry points ---

// ReverseRecipientTransfer hands the caller's pending receipt back to its
// original sender before expiry.
func (l *Ledger) ReverseRecipientTransfer(caller [20]byte) error {
	return l.transition(func() error {
		if err := common.Guard(l.state, ModuleHalfLife); err != nil {
			return err
		}
		return l.halflife.ReverseRecipient(caller)
	})
}

// FinalizeRecipientTransfer finalizes recipient's expired pending receipt.
// Anyone may call.
func (l *Ledger) FinalizeRecipientTransfer(caller, recipient [20]byte) error {
	_ = caller // finalization is permissionless
	return l.transition(func() error {
		if err := common.Guard(l.state, ModuleHalfLife); err != nil {
			return err
		}
		return l.halflife.FinalizeRecipient(recipient)
	})
}

// ReverseSenderTransfer lets the original sender reverse amount out of
// recipient's open settlement window.
func (l *Ledger) ReverseSenderTransfer(caller, recipient [20]byte, amount *big.Int) error {
	return l.transition(func() error {
		if err := common.Guard(l.state, ModuleHalfLife); err != nil {
			return err
		}
		return l.halflife.ReverseSender(caller, recipient, amount)
	})
}

// CheckSenderHalfLifeExpiry processes wallet's elapsed settlement window.
// Anyone may call.
func (l *Ledger) CheckSenderHalfLifeExpiry(caller, wallet [20]byte) error {
	_ = caller
	return l.transition(func() error {
		if err := common.Guard(l.state, ModuleHalfLife); err != nil {
			return err
		}
		return l.halflife.CheckWindowExpiry(wallet)
	})
}

// --- reads ---

// FeeEstimate projects the fee a transfer would assess, including the
// waterfall split, without mutating any state.
type FeeEstimate struct {
	Quote       *fees.Quote
	FromPrefund *big.Int
	FromCredits *big.Int
	FromBalance *big.Int
}

// EstimateTransferFeeDetails returns the exact numbers a transfer of amount
// between sender and recipient would assess right now, including which bound
// clipped the fee.
func (l *Ledger) EstimateTransferFeeDetails(sender, recipient [20]byte, amount *big.Int) (*FeeEstimate, error) {
	now := l.now()
	// Score the sender as the transfer itself will: a transfer touches the
	// originator, so a never-seen sender is quoted as a new wallet.
	senderScore, err := l.risk.ProjectedScoreOf(sender, now)
	if err != nil {
		return nil, err
	}
	recipientScore, err := l.risk.ScoreOf(recipient, now)
	if err != nil {
		return nil, err
	}
	quote := fees.ComputeQuote(amount, senderScore, recipientScore)

	remaining := new(big.Int).Set(quote.TotalFee)
	prefund, err := l.state.PrefundedFees(sender)
	if err != nil {
		return nil, err
	}
	fromPrefund := bigMin(prefund, remaining)
	remaining = new(big.Int).Sub(remaining, fromPrefund)
	credits, err := l.state.IncentiveCredits(sender)
	if err != nil {
		return nil, err
	}
	fromCredits := bigMin(credits, remaining)
	remaining = new(big.Int).Sub(remaining, fromCredits)

	return &FeeEstimate{
		Quote:       quote,
		FromPrefund: fromPrefund,
		FromCredits: fromCredits,
		FromBalance: remaining,
	}, nil
}

// BalanceOf returns the wallet's total balance.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	account, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.Balance, nil
}

// SpendableBalanceOf returns the wallet's balance net of pending locks.
func (l *Ledger) SpendableBalanceOf(addr [20]byte) (*big.Int, error) {
	return l.halflife.SpendableBalance(addr)
}

// TotalSupply returns the current token supply.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	return l.state.TotalSupply()
}

// RiskScoreOf returns the wallet's current risk score in basis points.
func (l *Ledger) RiskScoreOf(addr [20]byte) (uint64, error) {
	return l.risk.ScoreOf(addr, l.now())
}

// IncentiveCreditsOf returns the wallet's credit balance.
func (l *Ledger) IncentiveCreditsOf(addr [20]byte) (*big.Int, error) {
	return l.state.IncentiveCredits(addr)
}

// PrefundedFeesOf returns the wallet's prefunded fee balance.
func (l *Ledger) PrefundedFeesOf(addr [20]byte) (*big.Int, error) {
	return l.state.PrefundedFees(addr)
}

// PendingReceiptOf returns the wallet's pending receipt, if any.
func (l *Ledger) PendingReceiptOf(addr [20]byte) (*halflife.PendingReceipt, bool, error) {
	return l.state.PendingReceipt(addr)
}

// SettlementWindowOf returns the wallet's settlement window, if any.
func (l *Ledger) SettlementWindowOf(addr [20]byte) (*halflife.SettlementWindow, bool, error) {
	return l.state.SettlementWindow(addr)
}

// --- administration ---

// SetTreasury points fee revenue at a new treasury address.
func (l *Ledger) SetTreasury(caller, treasury [20]byte) error {
	return l.transition(func() error {
		if err := l.requireRole(RoleAdmin, caller); err != nil {
			return err
		}
		if treasury == ([20]byte{}) {
			return coreerrors.ErrZeroAddress
		}
		params, err := l.state.Params()
		if err != nil {
			return err
		}
		params.Treasury = treasury
		return l.state.SetParams(params)
	})
}

// SetHalfLifeBounds updates the permitted [min, max] half-life range.
func (l *Ledger) SetHalfLifeBounds(caller [20]byte, min, max int64) error {
	return l.updateParams(caller, func(p *state.Params) {
		p.HalfLifeMin = min
		p.HalfLifeMax = max
	})
}

// SetHalfLifeDuration updates the configured base half-life.
func (l *Ledger) SetHalfLifeDuration(caller [20]byte, duration int64) error {
	return l.updateParams(caller, func(p *state.Params) {
		p.HalfLifeDuration = duration
	})
}

// SetInactivityPeriod updates the rolling-average reset threshold.
func (l *Ledger) SetInactivityPeriod(caller [20]byte, period int64) error {
	return l.updateParams(caller, func(p *state.Params) {
		p.InactivityPeriod = period
	})
}

func (l *Ledger) updateParams(caller [20]byte, mutate func(*state.Params)) error {
	return l.transition(func() error {
		if err := l.requireRole(RoleAdmin, caller); err != nil {
			return err
		}
		params, err := l.state.Params()
		if err != nil {
			return err
		}
		mutate(&params)
		return l.state.SetParams(params)
	})
}

// FlagAbnormalTransaction marks a wallet's profile with one abnormal
// transaction. Admin only.
func (l *Ledger) FlagAbnormalTransaction(caller, wallet [20]byte) error {
	return l.transition(func() error {
		if err := l.requireRole(RoleAdmin, caller); err != nil {
			return err
		}
		if wallet == ([20]byte{}) {
			return coreerrors.ErrZeroAddress
		}
		return l.risk.FlagAbnormal(wallet, l.now())
	})
}

// GrantRole assigns role to addr. Admin only.
func (l *Ledger) GrantRole(caller [20]byte, role string, addr [20]byte) error {
	return l.transition(func() error {
		if err := l.requireRole(RoleAdmin, caller); err != nil {
			return err
		}
		return l.state.SetRole(role, addr, true)
	})
}

// RevokeRole removes role from addr. Admin only.
func (l *Ledger) RevokeRole(caller [20]byte, role string, addr [20]byte) error {
	return l.transition(func() error {
		if err := l.requireRole(RoleAdmin, caller); err != nil {
			return err
		}
		return l.state.SetRole(role, addr, false)
	})
}

// SetPaused toggles the named module's pause switch. Pauser only.
func (l *Ledger) SetPaused(caller [20]byte, module string, paused bool) error {
	return l.transition(func() error {
		if err := l.requireRole(RolePauser, caller); err != nil {
			return err
		}
		return l.state.SetPaused(module, paused)
	})
}

// --- helpers ---

func (l *Ledger) moveTokens(from, to [20]byte, amount *big.Int) error {
	fromAcc, err := l.state.GetAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientBalance
	}
	if from == to {
		return nil
	}
	toAcc, err := l.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return l.state.PutAccount(to, toAcc)
}

func validateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return coreerrors.ErrZeroAmount
	}
	return nil
}

func bigMin(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
