package state

import (
	"fmt"

	coreerrors "halochain/core/errors"
)

// MaxHalfLifeBound caps the admin-configurable window at one year, keeping
// the delay arithmetic far from the int64 range.
const MaxHalfLifeBound = 365 * 24 * 3600

// Params are the admin-tunable ledger parameters. Durations are seconds.
type Params struct {
	HalfLifeDuration int64
	HalfLifeMin      int64
	HalfLifeMax      int64
	InactivityPeriod int64
	Treasury         [20]byte
}

type storedParams struct {
	HalfLifeDuration uint64
	HalfLifeMin      uint64
	HalfLifeMax      uint64
	InactivityPeriod uint64
	Treasury         [20]byte
}

// DefaultParams returns the genesis parameter set: a one-hour half-life
// bounded to [1 minute, 7 days], a 30-day inactivity reset, and the derived
// module treasury.
func DefaultParams() Params {
	return Params{
		HalfLifeDuration: 3600,
		HalfLifeMin:      60,
		HalfLifeMax:      7 * 24 * 3600,
		InactivityPeriod: 30 * 24 * 3600,
		Treasury:         ModuleAddress("treasury"),
	}
}

// Validate enforces the admin bounds: every duration positive and the
// configured half-life inside [min, max].
func (p Params) Validate() error {
	if p.HalfLifeMin <= 0 || p.HalfLifeMax <= 0 || p.HalfLifeDuration <= 0 || p.InactivityPeriod <= 0 {
		return fmt.Errorf("params: durations must be positive: %w", coreerrors.ErrParamOutOfRange)
	}
	if p.HalfLifeMin > p.HalfLifeMax {
		return fmt.Errorf("params: half-life min exceeds max: %w", coreerrors.ErrParamOutOfRange)
	}
	if p.HalfLifeMax > MaxHalfLifeBound {
		return fmt.Errorf("params: half-life max exceeds %d seconds: %w", MaxHalfLifeBound, coreerrors.ErrParamOutOfRange)
	}
	if p.HalfLifeDuration < p.HalfLifeMin || p.HalfLifeDuration > p.HalfLifeMax {
		return fmt.Errorf("params: half-life outside [min, max]: %w", coreerrors.ErrParamOutOfRange)
	}
	if p.Treasury == ([20]byte{}) {
		return fmt.Errorf("params: treasury required: %w", coreerrors.ErrParamOutOfRange)
	}
	return nil
}

// Params loads the parameter set, falling back to defaults when unset.
func (m *Manager) Params() (Params, error) {
	var stored storedParams
	ok, err := m.KVGet([]byte(paramsKey), &stored)
	if err != nil {
		return Params{}, err
	}
	if !ok {
		return DefaultParams(), nil
	}
	return Params{
		HalfLifeDuration: int64(stored.HalfLifeDuration),
		HalfLifeMin:      int64(stored.HalfLifeMin),
		HalfLifeMax:      int64(stored.HalfLifeMax),
		InactivityPeriod: int64(stored.InactivityPeriod),
		Treasury:         stored.Treasury,
	}, nil
}

// SetParams validates and persists the parameter set.
func (m *Manager) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return m.KVPut([]byte(paramsKey), &storedParams{
		HalfLifeDuration: uint64(p.HalfLifeDuration),
		HalfLifeMin:      uint64(p.HalfLifeMin),
		HalfLifeMax:      uint64(p.HalfLifeMax),
		InactivityPeriod: uint64(p.InactivityPeriod),
		Treasury:         p.Treasury,
	})
}
