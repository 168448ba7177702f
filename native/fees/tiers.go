package fees

import "math/big"

// Basis-point denominators and bounds applied to every assessed fee.
const (
	BasisPoints       = 10_000
	MaxFeePercentBps  = 1_000 // 10% hard ceiling on any assessed fee
	ScalerStartBps    = 1     // 0.01%
	ScalerCapBps      = 10_000
	ScalerMultiplier  = 10
	RiskBaselineBps   = 10_000
	CreditShareBps    = 2_500 // 25% of the fee back to each party as credits
	LoyaltyRefundDiv  = 8     // finalization refunds totalFee/8 split evenly
	LoyaltyRefundHalf = 16
)

// TokenDecimals fixes HALO at 18 decimals; OneToken is 10^18 base units.
const TokenDecimals = 18

var (
	// OneToken is the number of base units in a whole HALO.
	OneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)
	// MinimumFee is the absolute fee floor (0.0001 HALO). It only applies
	// when it does not exceed the max-fee cap or the amount itself.
	MinimumFee = new(big.Int).Exp(big.NewInt(10), big.NewInt(14), nil)

	ten = big.NewInt(10)
)

// tier prices the slice of an amount falling inside (lower, upper] at a flat
// basis-point rate. A nil upper bound marks the open-ended final band.
type tier struct {
	upper *big.Int
	bps   int64
}

// feeTiers is the fixed tier table. Bands are by whole-token magnitude with
// outer (small) bands priced richer per unit than inner (large) bands:
//
//	0       – 0.01 HALO   100 bps
//	0.01    – 0.1  HALO    80 bps
//	0.1     – 1    HALO    60 bps
//	1       – 10   HALO    40 bps
//	10      – 100  HALO    25 bps
//	100     – 1k   HALO    15 bps
//	1k      – 10k  HALO    10 bps
//	10k     – ∞    HALO     5 bps
var feeTiers = []tier{
	{upper: tokenFraction(16), bps: 100},
	{upper: tokenFraction(17), bps: 80},
	{upper: tokenFraction(18), bps: 60},
	{upper: tokenFraction(19), bps: 40},
	{upper: tokenFraction(20), bps: 25},
	{upper: tokenFraction(21), bps: 15},
	{upper: tokenFraction(22), bps: 10},
	{upper: nil, bps: 5},
}

func tokenFraction(exp int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
}

// BaseFee partitions the amount across the tier table and sums the per-band
// charges. A nil or non-positive amount yields zero.
func BaseFee(amount *big.Int) *big.Int {
	fee := big.NewInt(0)
	if amount == nil || amount.Sign() <= 0 {
		return fee
	}
	lower := big.NewInt(0)
	for _, t := range feeTiers {
		var slice *big.Int
		if t.upper == nil || amount.Cmp(t.upper) <= 0 {
			slice = new(big.Int).Sub(amount, lower)
		} else {
			slice = new(big.Int).Sub(t.upper, lower)
		}
		if slice.Sign() > 0 {
			charge := new(big.Int).Mul(slice, big.NewInt(t.bps))
			charge.Div(charge, big.NewInt(BasisPoints))
			fee.Add(fee, charge)
		}
		if t.upper == nil || amount.Cmp(t.upper) <= 0 {
			break
		}
		lower = t.upper
	}
	return fee
}

// AmountRiskScaler grows the risk sensitivity with the decimal magnitude of
// the amount relative to one whole token: starting at 1 bps with a one-token
// ceiling, both are multiplied by ten while the amount exceeds the ceiling,
// saturating the scaler at 100%.
func AmountRiskScaler(amount *big.Int) uint64 {
	scaler := uint64(ScalerStartBps)
	if amount == nil || amount.Sign() <= 0 {
		return scaler
	}
	ceiling := new(big.Int).Set(OneToken)
	for amount.Cmp(ceiling) > 0 && scaler < ScalerCapBps {
		ceiling.Mul(ceiling, ten)
		scaler *= ScalerMultiplier
		if scaler > ScalerCapBps {
			scaler = ScalerCapBps
		}
	}
	return scaler
}
