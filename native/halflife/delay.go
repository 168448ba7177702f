package halflife

import "math/big"

const (
	// ReductionPerPairPct shortens the window by 10% per recorded transfer
	// between the same ordered pair, up to MaxReductionPct.
	ReductionPerPairPct = 10
	MaxReductionPct     = 90
	// OutlierMultiple doubles the window when the amount exceeds ten times
	// the sender's rolling average.
	OutlierMultiple = 10
)

// ComputeDelay sizes the half-life window for one transfer. The configured
// base duration is reduced for repeat counterparties, doubled when the amount
// is an outlier against the sender's rolling average, and clamped into
// [min, max]. The doubling saturates instead of overflowing.
func ComputeDelay(base, min, max int64, pairCount uint64, amount, rollingAvg *big.Int) int64 {
	delay := clampDuration(base, min, max)

	reduction := pairCount * ReductionPerPairPct
	if reduction > MaxReductionPct {
		reduction = MaxReductionPct
	}
	delay -= delay * int64(reduction) / 100

	if isOutlier(amount, rollingAvg) {
		if delay > max/2 {
			delay = max
		} else {
			delay *= 2
		}
	}
	return clampDuration(delay, min, max)
}

// isOutlier reports whether amount exceeds OutlierMultiple times the rolling
// average. An empty average makes any positive amount an outlier, so fresh or
// long-inactive senders settle slowly until history accumulates.
func isOutlier(amount, rollingAvg *big.Int) bool {
	if amount == nil || amount.Sign() <= 0 {
		return false
	}
	avg := rollingAvg
	if avg == nil {
		avg = big.NewInt(0)
	}
	threshold := new(big.Int).Mul(avg, big.NewInt(OutlierMultiple))
	return amount.Cmp(threshold) > 0
}

// UpdateRollingAverage folds a new outgoing amount into the sender's rolling
// average, resetting first when the sender has been inactive longer than the
// inactivity period.
func UpdateRollingAverage(avg *RollingAverage, amount *big.Int, now, inactivityPeriod int64) *RollingAverage {
	updated := avg.Clone()
	if updated == nil || (inactivityPeriod > 0 && now-updated.LastUpdated > inactivityPeriod) {
		updated = &RollingAverage{TotalAmount: big.NewInt(0)}
	}
	if updated.TotalAmount == nil {
		updated.TotalAmount = big.NewInt(0)
	}
	if amount != nil && amount.Sign() > 0 {
		updated.TotalAmount = new(big.Int).Add(updated.TotalAmount, amount)
		updated.Count++
	}
	updated.LastUpdated = now
	return updated
}

func clampDuration(d, min, max int64) int64 {
	if min > 0 && d < min {
		return min
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
