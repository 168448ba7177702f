package compliance

import (
	"encoding/hex"
	"errors"
	"math/big"

	"halochain/core/events"
	"halochain/core/types"
)

const (
	EventTypeLiabilityRecorded = "compliance.liability_recorded"
	EventTypeLiabilityCleared  = "compliance.liability_cleared"
)

var errNilLiabilityState = errors.New("liability ledger: state not configured")

// LiabilityState persists the net liability per ordered custodian pair.
type LiabilityState interface {
	NetLiability(debtor, creditor [20]byte) (*big.Int, error)
	SetNetLiability(debtor, creditor [20]byte, amount *big.Int) error
}

// NettingLedger is a state-backed LiabilityLedger that keeps liabilities
// netted: recording a liability first offsets any opposite-direction balance
// between the same pair.
type NettingLedger struct {
	state   LiabilityState
	emitter events.Emitter
}

// NewNettingLedger constructs the ledger over the provided state backend.
func NewNettingLedger(state LiabilityState) *NettingLedger {
	return &NettingLedger{state: state, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (l *NettingLedger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

type liabilityEvent struct {
	evt *types.Event
}

func (e liabilityEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e liabilityEvent) Event() *types.Event { return e.evt }

func (l *NettingLedger) emit(eventType string, debtor, creditor [20]byte, amount *big.Int) {
	if l == nil || l.emitter == nil {
		return
	}
	l.emitter.Emit(liabilityEvent{evt: &types.Event{Type: eventType, Attributes: map[string]string{
		"debtor":   hex.EncodeToString(debtor[:]),
		"creditor": hex.EncodeToString(creditor[:]),
		"amount":   amount.String(),
	}}})
}

// Record books amount owed by debtor to creditor, netting against any
// opposite balance first.
func (l *NettingLedger) Record(debtor, creditor [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilLiabilityState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	remaining := new(big.Int).Set(amount)
	opposite, err := l.state.NetLiability(creditor, debtor)
	if err != nil {
		return err
	}
	if opposite.Sign() > 0 {
		offset := remaining
		if opposite.Cmp(remaining) < 0 {
			offset = opposite
		}
		offset = new(big.Int).Set(offset)
		if err := l.state.SetNetLiability(creditor, debtor, new(big.Int).Sub(opposite, offset)); err != nil {
			return err
		}
		remaining.Sub(remaining, offset)
	}
	if remaining.Sign() > 0 {
		current, err := l.state.NetLiability(debtor, creditor)
		if err != nil {
			return err
		}
		if err := l.state.SetNetLiability(debtor, creditor, new(big.Int).Add(current, remaining)); err != nil {
			return err
		}
	}
	l.emit(EventTypeLiabilityRecorded, debtor, creditor, amount)
	return nil
}

// Clear unwinds amount of a previously recorded liability. Any excess beyond
// the outstanding balance flips direction, mirroring Record's netting.
func (l *NettingLedger) Clear(debtor, creditor [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilLiabilityState
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	remaining := new(big.Int).Set(amount)
	current, err := l.state.NetLiability(debtor, creditor)
	if err != nil {
		return err
	}
	if current.Sign() > 0 {
		offset := remaining
		if current.Cmp(remaining) < 0 {
			offset = current
		}
		offset = new(big.Int).Set(offset)
		if err := l.state.SetNetLiability(debtor, creditor, new(big.Int).Sub(current, offset)); err != nil {
			return err
		}
		remaining.Sub(remaining, offset)
	}
	if remaining.Sign() > 0 {
		opposite, err := l.state.NetLiability(creditor, debtor)
		if err != nil {
			return err
		}
		if err := l.state.SetNetLiability(creditor, debtor, new(big.Int).Add(opposite, remaining)); err != nil {
			return err
		}
	}
	l.emit(EventTypeLiabilityCleared, debtor, creditor, amount)
	return nil
}

// Net returns the outstanding net liability owed by debtor to creditor.
func (l *NettingLedger) Net(debtor, creditor [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilLiabilityState
	}
	return l.state.NetLiability(debtor, creditor)
}
