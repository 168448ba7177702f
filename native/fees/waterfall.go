package fees

import (
	"errors"
	"math/big"

	"halochain/core/events"
	coreerrors "halochain/core/errors"
	"halochain/core/types"
)

var (
	errNilState    = errors.New("fees engine: state not configured")
	errNilTreasury = errors.New("fees engine: treasury not configured")
)

// SettlementState is the slice of ledger state the waterfall needs: wallet
// accounts plus the two fee-offset aggregates.
type SettlementState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	IncentiveCredits(addr [20]byte) (*big.Int, error)
	SetIncentiveCredits(addr [20]byte, amount *big.Int, now int64) error
	PrefundedFees(addr [20]byte) (*big.Int, error)
	SetPrefundedFees(addr [20]byte, amount *big.Int) error
}

// Settlement reports how an assessed fee was drained and which incentive
// credits the transfer produced. FromPrefund tokens already sit with the
// treasury; FromCredits is pure internal accounting; only FromBalance moves
// tokens at settlement time.
type Settlement struct {
	TotalFee        *big.Int
	FromPrefund     *big.Int
	FromCredits     *big.Int
	FromBalance     *big.Int
	SenderCredit    *big.Int
	RecipientCredit *big.Int
}

// Engine applies the fee settlement waterfall against ledger state.
type Engine struct {
	state    SettlementState
	emitter  events.Emitter
	treasury [20]byte
}

// NewEngine creates a waterfall engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state SettlementState) { e.state = state }

// SetTreasury configures the address receiving fee revenue.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

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
	e.emitter.Emit(feeEvent{evt: evt})
}

// Settle drains the quoted fee from the sender's prefunded balance, then
// incentive credits, then spendable wallet balance, moves the gross amount to
// the recipient and the balance-funded fee portion to the treasury, and
// grants the 25%/25% incentive-credit shares. The caller supplies the
// sender's spendable balance, which must cover amount plus the balance-funded
// fee portion; otherwise nothing is applied.
func (e *Engine) Settle(sender, recipient [20]byte, amount *big.Int, quote *Quote, spendable *big.Int, now int64) (*Settlement, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.treasury == ([20]byte{}) {
		return nil, errNilTreasury
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, coreerrors.ErrZeroAmount
	}
	totalFee := big.NewInt(0)
	if quote != nil && quote.TotalFee != nil {
		totalFee = new(big.Int).Set(quote.TotalFee)
	}

	remaining := new(big.Int).Set(totalFee)
	settlement := &Settlement{
		TotalFee:        new(big.Int).Set(totalFee),
		FromPrefund:     big.NewInt(0),
		FromCredits:     big.NewInt(0),
		FromBalance:     big.NewInt(0),
		SenderCredit:    big.NewInt(0),
		RecipientCredit: big.NewInt(0),
	}

	prefund, err := e.state.PrefundedFees(sender)
	if err != nil {
		return nil, err
	}
	if prefund.Sign() > 0 && remaining.Sign() > 0 {
		use := bigMin(prefund, remaining)
		settlement.FromPrefund = use
		remaining.Sub(remaining, use)
		if err := e.state.SetPrefundedFees(sender, new(big.Int).Sub(prefund, use)); err != nil {
			return nil, err
		}
		e.emit(newPrefundUsedEvent(sender, use))
	}

	credits, err := e.state.IncentiveCredits(sender)
	if err != nil {
		return nil, err
	}
	if credits.Sign() > 0 && remaining.Sign() > 0 {
		use := bigMin(credits, remaining)
		settlement.FromCredits = use
		remaining.Sub(remaining, use)
		if err := e.state.SetIncentiveCredits(sender, new(big.Int).Sub(credits, use), now); err != nil {
			return nil, err
		}
		e.emit(newCreditUsedEvent(sender, use))
	}

	settlement.FromBalance = new(big.Int).Set(remaining)
	required := new(big.Int).Add(amount, settlement.FromBalance)
	if spendable == nil || spendable.Cmp(required) < 0 {
		return nil, coreerrors.ErrInsufficientSpendable
	}

	if settlement.FromBalance.Sign() > 0 {
		if err := e.moveTokens(sender, e.treasury, settlement.FromBalance); err != nil {
			return nil, err
		}
	}
	if err := e.moveTokens(sender, recipient, amount); err != nil {
		return nil, err
	}

	if totalFee.Sign() > 0 {
		share := new(big.Int).Mul(totalFee, big.NewInt(CreditShareBps))
		share.Div(share, big.NewInt(BasisPoints))
		if share.Sign() > 0 {
			settlement.SenderCredit = new(big.Int).Set(share)
			settlement.RecipientCredit = new(big.Int).Set(share)
			if err := e.grantCredit(sender, share, now); err != nil {
				return nil, err
			}
			if err := e.grantCredit(recipient, share, now); err != nil {
				return nil, err
			}
		}
	}

	e.emit(newFeeAppliedEvent(sender, recipient, amount, settlement))
	return settlement, nil
}

func (e *Engine) grantCredit(addr [20]byte, amount *big.Int, now int64) error {
	current, err := e.state.IncentiveCredits(addr)
	if err != nil {
		return err
	}
	return e.state.SetIncentiveCredits(addr, new(big.Int).Add(current, amount), now)
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
	if from == to {
		if types.EnsureAccount(fromAcc).Balance.Cmp(amount) < 0 {
			return coreerrors.ErrInsufficientBalance
		}
		return nil
	}
	toAcc, err := e.state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = types.EnsureAccount(fromAcc)
	toAcc = types.EnsureAccount(toAcc)
	if fromAcc.Balance.Cmp(amount) < 0 {
		return coreerrors.ErrInsufficientBalance
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

func bigMin(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
