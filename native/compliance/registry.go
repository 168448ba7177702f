package compliance

import (
	"errors"
	"fmt"
	"time"
)

var (
	errNilRegistryState = errors.New("compliance registry: state not configured")
)

// KYCRecord is a custodian's attestation for a wallet it manages.
type KYCRecord struct {
	Custodian  [20]byte
	VerifiedAt int64
	ExpiresAt  int64
}

// Validate rejects malformed attestation windows.
func (r *KYCRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("compliance: nil kyc record")
	}
	if r.Custodian == ([20]byte{}) {
		return fmt.Errorf("compliance: custodian required")
	}
	if r.VerifiedAt <= 0 {
		return fmt.Errorf("compliance: verifiedAt must be positive")
	}
	if r.ExpiresAt <= r.VerifiedAt {
		return fmt.Errorf("compliance: malformed kyc window")
	}
	return nil
}

// RegistryState is the persistence surface backing the reference registry.
type RegistryState interface {
	KYCRecord(addr [20]byte) (*KYCRecord, bool, error)
	PutKYCRecord(addr [20]byte, rec *KYCRecord) error
	IsCustodian(addr [20]byte) (bool, error)
	SetCustodian(addr [20]byte, enabled bool) error
}

// StateRegistry is a state-backed Registry implementation suitable for
// single-operator deployments. The ledger itself only depends on the Registry
// interface, so tests substitute fakes freely.
type StateRegistry struct {
	state RegistryState
	nowFn func() int64
}

// NewStateRegistry constructs a registry over the provided state backend.
func NewStateRegistry(state RegistryState) *StateRegistry {
	return &StateRegistry{
		state: state,
		nowFn: func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (r *StateRegistry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

// Attest stores a custodian's KYC attestation for a wallet.
func (r *StateRegistry) Attest(addr [20]byte, rec *KYCRecord) error {
	if r == nil || r.state == nil {
		return errNilRegistryState
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	clone := *rec
	return r.state.PutKYCRecord(addr, &clone)
}

// RegisterCustodian marks an address as a custodian institution.
func (r *StateRegistry) RegisterCustodian(addr [20]byte) error {
	if r == nil || r.state == nil {
		return errNilRegistryState
	}
	return r.state.SetCustodian(addr, true)
}

// IsApproved implements Registry: valid, unexpired KYC or custodian status.
func (r *StateRegistry) IsApproved(addr [20]byte) bool {
	if r == nil || r.state == nil {
		return false
	}
	if custodian, err := r.state.IsCustodian(addr); err == nil && custodian {
		return true
	}
	rec, ok, err := r.state.KYCRecord(addr)
	if err != nil || !ok {
		return false
	}
	now := r.nowFn()
	return rec.VerifiedAt <= now && now < rec.ExpiresAt
}

// Custodian implements Registry: resolves the wallet's managing custodian. A
// custodian resolves to itself.
func (r *StateRegistry) Custodian(addr [20]byte) ([20]byte, bool) {
	if r == nil || r.state == nil {
		return [20]byte{}, false
	}
	if custodian, err := r.state.IsCustodian(addr); err == nil && custodian {
		return addr, true
	}
	rec, ok, err := r.state.KYCRecord(addr)
	if err != nil || !ok {
		return [20]byte{}, false
	}
	return rec.Custodian, true
}
