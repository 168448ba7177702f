package halflife

import "math/big"

// PendingReceipt is the single delayed-receipt slot a recipient holds. It is
// created or overwritten whenever a transfer completes into the recipient and
// locks the net amount until expiry. The assessed fee rides along so
// finalization can compute the loyalty refund without consulting the parallel
// settlement window.
type PendingReceipt struct {
	Sender      [20]byte
	Amount      *big.Int
	FeeAssessed *big.Int
	ExpiryTime  int64
	Reversed    bool
	Finalized   bool
}

// Clone returns a deep copy of the receipt.
func (r *PendingReceipt) Clone() *PendingReceipt {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Amount = cloneBigInt(r.Amount)
	clone.FeeAssessed = cloneBigInt(r.FeeAssessed)
	return &clone
}

// SettlementWindow is the sender-authorized commit window recorded per
// recipient-of-record. It is overwritten on every inbound transfer to that
// recipient.
type SettlementWindow struct {
	Originator       [20]byte
	CommitWindowEnd  int64
	HalfLifeDuration int64
	TransferCount    uint64
	TotalFeeAssessed *big.Int
	Reversed         bool
}

// Clone returns a deep copy of the window.
func (w *SettlementWindow) Clone() *SettlementWindow {
	if w == nil {
		return nil
	}
	clone := *w
	clone.TotalFeeAssessed = cloneBigInt(w.TotalFeeAssessed)
	return &clone
}

// RollingAverage tracks a sender's outgoing transfer volume. It resets to
// empty once the gap since LastUpdated exceeds the configured inactivity
// period.
type RollingAverage struct {
	TotalAmount *big.Int
	Count       uint64
	LastUpdated int64
}

// Clone returns a deep copy of the rolling average.
func (a *RollingAverage) Clone() *RollingAverage {
	if a == nil {
		return nil
	}
	clone := *a
	clone.TotalAmount = cloneBigInt(a.TotalAmount)
	return &clone
}

// Average returns the mean transfer amount, zero when no history exists.
func (a *RollingAverage) Average() *big.Int {
	if a == nil || a.Count == 0 || a.TotalAmount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Div(a.TotalAmount, new(big.Int).SetUint64(a.Count))
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
