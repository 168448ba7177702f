package fees

import (
	"math/big"
	"testing"
)

func TestComputeQuoteBaselineRiskKeepsBaseFee(t *testing.T) {
	amount := halo(5)
	quote := ComputeQuote(amount, RiskBaselineBps, RiskBaselineBps)
	if quote.TotalFee.Cmp(quote.BaseFee) != 0 {
		t.Fatalf("expected fee %s at baseline risk, got %s", quote.BaseFee, quote.TotalFee)
	}
	if quote.Bound != BoundNone {
		t.Fatalf("expected no bound, got %q", quote.Bound)
	}
}

func TestComputeQuoteElevatedRiskRaisesFee(t *testing.T) {
	amount := halo(5)
	baseline := ComputeQuote(amount, RiskBaselineBps, RiskBaselineBps)
	elevated := ComputeQuote(amount, RiskBaselineBps+10_000, RiskBaselineBps)
	if elevated.TotalFee.Cmp(baseline.TotalFee) <= 0 {
		t.Fatalf("expected elevated risk to raise fee: %s <= %s", elevated.TotalFee, baseline.TotalFee)
	}
	// scaler for 5 HALO is 10 bps, deviation 10000 -> adjusted 10010 bps
	want := new(big.Int).Mul(baseline.TotalFee, big.NewInt(10_010))
	want.Div(want, big.NewInt(RiskBaselineBps))
	if elevated.TotalFee.Cmp(want) != 0 {
		t.Fatalf("expected fee %s, got %s", want, elevated.TotalFee)
	}
}

func TestComputeQuoteHigherScoreWins(t *testing.T) {
	amount := halo(5)
	a := ComputeQuote(amount, RiskBaselineBps+20_000, RiskBaselineBps)
	b := ComputeQuote(amount, RiskBaselineBps, RiskBaselineBps+20_000)
	if a.TotalFee.Cmp(b.TotalFee) != 0 {
		t.Fatalf("expected symmetric risk handling: %s vs %s", a.TotalFee, b.TotalFee)
	}
	if a.RiskBps != RiskBaselineBps+20_000 {
		t.Fatalf("expected max score recorded, got %d", a.RiskBps)
	}
}

func TestComputeQuoteMaxCap(t *testing.T) {
	// A large amount carries the saturated 100% scaler, so an extreme score
	// drives the adjusted fee past the 10% ceiling.
	amount := halo(100_000)
	quote := ComputeQuote(amount, 3_000_000, RiskBaselineBps)
	cap := new(big.Int).Div(new(big.Int).Mul(amount, big.NewInt(MaxFeePercentBps)), big.NewInt(BasisPoints))
	if quote.TotalFee.Cmp(cap) != 0 {
		t.Fatalf("expected fee capped at %s, got %s", cap, quote.TotalFee)
	}
	if quote.Bound != BoundMax {
		t.Fatalf("expected max bound, got %q", quote.Bound)
	}
	// The fee never exceeds the transferred amount.
	if quote.TotalFee.Cmp(amount) > 0 {
		t.Fatalf("fee %s exceeds amount %s", quote.TotalFee, amount)
	}
}

func TestComputeQuoteMinimumFloor(t *testing.T) {
	// 0.005 HALO: tiered fee is 5e13, under the 1e14 floor, and the floor
	// fits beneath both the cap (5e14) and the amount.
	amount := new(big.Int).Mul(tokenFraction(15), big.NewInt(5))
	quote := ComputeQuote(amount, RiskBaselineBps, RiskBaselineBps)
	if quote.TotalFee.Cmp(MinimumFee) != 0 {
		t.Fatalf("expected floor %s, got %s", MinimumFee, quote.TotalFee)
	}
	if quote.Bound != BoundMin {
		t.Fatalf("expected min bound, got %q", quote.Bound)
	}
}

func TestComputeQuoteFloorSkippedForDust(t *testing.T) {
	// For amounts below the floor the minimum cannot apply, otherwise the
	// fee would exceed the transfer itself.
	amount := big.NewInt(1_000) // far below MinimumFee
	quote := ComputeQuote(amount, RiskBaselineBps, RiskBaselineBps)
	if quote.TotalFee.Cmp(amount) > 0 {
		t.Fatalf("fee %s exceeds dust amount %s", quote.TotalFee, amount)
	}
	if quote.Bound == BoundMin {
		t.Fatalf("floor must not apply to dust transfers")
	}
}

func TestComputeQuoteZeroAmount(t *testing.T) {
	quote := ComputeQuote(nil, 50_000, 50_000)
	if quote.TotalFee.Sign() != 0 || quote.BaseFee.Sign() != 0 {
		t.Fatalf("expected zero fees for nil amount")
	}
}
