package fees

import "math/big"

// Bound identifies which limit, if any, clipped the computed fee.
type Bound string

const (
	BoundNone Bound = "none"
	BoundMax  Bound = "max"
	BoundMin  Bound = "min"
)

// Quote is the full projection of a transfer fee: the tiered base fee, the
// risk-adjusted figure, and the final bounded total, together with the inputs
// that shaped it. EstimateTransferFeeDetails returns exactly this structure,
// and an actual transfer assesses exactly Quote.TotalFee.
type Quote struct {
	Amount    *big.Int
	BaseFee   *big.Int
	TotalFee  *big.Int
	RiskBps   uint64
	ScalerBps uint64
	Bound     Bound
}

// Clone returns a deep copy of the quote.
func (q *Quote) Clone() *Quote {
	if q == nil {
		return nil
	}
	clone := *q
	clone.Amount = cloneBigInt(q.Amount)
	clone.BaseFee = cloneBigInt(q.BaseFee)
	clone.TotalFee = cloneBigInt(q.TotalFee)
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// ComputeQuote derives the total fee for a transfer of amount between two
// wallets whose risk scores are already known. The higher of the two scores
// drives the adjustment; scores at or below the baseline leave the tiered fee
// untouched. The result is capped at amount*MaxFeePercentBps/BasisPoints and
// floored at MinimumFee only when the floor fits under both the cap and the
// amount itself.
func ComputeQuote(amount *big.Int, senderRiskBps, recipientRiskBps uint64) *Quote {
	quote := &Quote{
		Amount:    cloneBigInt(amount),
		BaseFee:   big.NewInt(0),
		TotalFee:  big.NewInt(0),
		RiskBps:   maxUint64(senderRiskBps, recipientRiskBps),
		ScalerBps: AmountRiskScaler(amount),
		Bound:     BoundNone,
	}
	if amount == nil || amount.Sign() <= 0 {
		return quote
	}

	quote.BaseFee = BaseFee(amount)
	fee := new(big.Int).Set(quote.BaseFee)

	if quote.RiskBps > RiskBaselineBps {
		deviation := quote.RiskBps - RiskBaselineBps
		adjusted := RiskBaselineBps + deviation*quote.ScalerBps/RiskBaselineBps
		fee.Mul(fee, new(big.Int).SetUint64(adjusted))
		fee.Div(fee, big.NewInt(RiskBaselineBps))
	}

	cap := new(big.Int).Mul(amount, big.NewInt(MaxFeePercentBps))
	cap.Div(cap, big.NewInt(BasisPoints))
	if fee.Cmp(cap) > 0 {
		fee.Set(cap)
		quote.Bound = BoundMax
	}
	if MinimumFee.Cmp(cap) <= 0 && MinimumFee.Cmp(amount) <= 0 && fee.Cmp(MinimumFee) < 0 {
		fee.Set(MinimumFee)
		quote.Bound = BoundMin
	}

	quote.TotalFee = fee
	return quote
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
