package risk

import "errors"

// Scoring constants, all in basis points against the 10000 baseline. Risk is
// monotonically non-decreasing under reversal and flagging events and decays
// only through the age-based terms falling out of their windows.
const (
	BaselineBps          = 10_000
	NewWalletBonusBps    = 5_000
	NewWalletWindow      = 7 * 24 * 60 * 60 // seconds
	RecentReversalBps    = 10_000
	RecentReversalWindow = 30 * 24 * 60 * 60
	ReversalPenaltyBps   = 1_000
	ReversalPenaltyCap   = 50_000
	AbnormalPenaltyBps   = 500
	AbnormalPenaltyCap   = 25_000
)

var errNilState = errors.New("risk engine: state not configured")

// Score computes the wallet risk factor in basis points. A nil profile (a
// wallet the ledger has never written) scores exactly the baseline.
func Score(p *Profile, now int64) uint64 {
	score := uint64(BaselineBps)
	if p == nil {
		return score
	}
	if p.CreatedAt > 0 && now-p.CreatedAt < NewWalletWindow {
		score += NewWalletBonusBps
	}
	if p.LastReversalAt > 0 && now-p.LastReversalAt < RecentReversalWindow {
		score += RecentReversalBps
	}
	score += capped(p.ReversalCount*ReversalPenaltyBps, ReversalPenaltyCap)
	score += capped(p.AbnormalTxCount*AbnormalPenaltyBps, AbnormalPenaltyCap)
	return score
}

func capped(v, limit uint64) uint64 {
	if v > limit {
		return limit
	}
	return v
}

// ProfileState is the persistence surface the engine needs.
type ProfileState interface {
	RiskProfile(addr [20]byte) (*Profile, bool, error)
	PutRiskProfile(addr [20]byte, p *Profile) error
}

// Engine provides profile lifecycle operations over ledger state.
type Engine struct {
	state ProfileState
}

// NewEngine constructs a risk engine backed by the provided state.
func NewEngine(state ProfileState) *Engine {
	return &Engine{state: state}
}

// Touch fetches the wallet profile, creating it with the supplied timestamp
// on first contact. The stored (or existing) profile is returned.
func (e *Engine) Touch(addr [20]byte, now int64) (*Profile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	profile, ok, err := e.state.RiskProfile(addr)
	if err != nil {
		return nil, err
	}
	if ok {
		return profile, nil
	}
	profile = &Profile{CreatedAt: now}
	if err := e.state.PutRiskProfile(addr, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ScoreOf computes the current score for a wallet without creating a profile.
func (e *Engine) ScoreOf(addr [20]byte, now int64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	profile, ok, err := e.state.RiskProfile(addr)
	if err != nil {
		return 0, err
	}
	if !ok {
		return BaselineBps, nil
	}
	return Score(profile, now), nil
}

// ProjectedScoreOf scores the wallet the way a transfer will. A transfer
// touches the originator first, so a wallet with no profile yet is scored as
// if one were created now, which carries the new-wallet bonus. Nothing is
// persisted.
func (e *Engine) ProjectedScoreOf(addr [20]byte, now int64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	profile, ok, err := e.state.RiskProfile(addr)
	if err != nil {
		return 0, err
	}
	if !ok {
		profile = &Profile{CreatedAt: now}
	}
	return Score(profile, now), nil
}

// MarkReversal stamps a reversal against the wallet: the counter increments
// and the last-reversal timestamp moves to now.
func (e *Engine) MarkReversal(addr [20]byte, now int64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	profile, err := e.Touch(addr, now)
	if err != nil {
		return err
	}
	profile.ReversalCount++
	profile.LastReversalAt = now
	return e.state.PutRiskProfile(addr, profile)
}

// FlagAbnormal increments the abnormal-transaction counter for the wallet.
func (e *Engine) FlagAbnormal(addr [20]byte, now int64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	profile, err := e.Touch(addr, now)
	if err != nil {
		return err
	}
	profile.AbnormalTxCount++
	return e.state.PutRiskProfile(addr, profile)
}
