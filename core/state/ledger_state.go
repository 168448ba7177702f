package state

import (
	"math/big"

	"halochain/native/compliance"
	"halochain/native/halflife"
	"halochain/native/risk"
)

// Stored mirrors of the native types. RLP has no signed integers, so
// timestamps are persisted as uint64 seconds.

type storedRiskProfile struct {
	CreatedAt       uint64
	LastReversalAt  uint64
	ReversalCount   uint64
	AbnormalTxCount uint64
}

type storedRollingAverage struct {
	TotalAmount *big.Int
	Count       uint64
	LastUpdated uint64
}

type storedCredits struct {
	Amount      *big.Int
	LastUpdated uint64
}

type storedReceipt struct {
	Sender      [20]byte
	Amount      *big.Int
	FeeAssessed *big.Int
	ExpiryTime  uint64
	Reversed    bool
	Finalized   bool
}

type storedWindow struct {
	Originator       [20]byte
	CommitWindowEnd  uint64
	HalfLifeDuration uint64
	TransferCount    uint64
	TotalFeeAssessed *big.Int
	Reversed         bool
}

type storedKYCRecord struct {
	Custodian  [20]byte
	VerifiedAt uint64
	ExpiresAt  uint64
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// --- risk profiles ---

// RiskProfile loads the wallet's risk profile.
func (m *Manager) RiskProfile(addr [20]byte) (*risk.Profile, bool, error) {
	var stored storedRiskProfile
	ok, err := m.KVGet(addrKey(riskPrefix, addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &risk.Profile{
		CreatedAt:       int64(stored.CreatedAt),
		LastReversalAt:  int64(stored.LastReversalAt),
		ReversalCount:   stored.ReversalCount,
		AbnormalTxCount: stored.AbnormalTxCount,
	}, true, nil
}

// PutRiskProfile persists the wallet's risk profile. Profiles are never
// deleted.
func (m *Manager) PutRiskProfile(addr [20]byte, p *risk.Profile) error {
	return m.KVPut(addrKey(riskPrefix, addr), &storedRiskProfile{
		CreatedAt:       uint64(p.CreatedAt),
		LastReversalAt:  uint64(p.LastReversalAt),
		ReversalCount:   p.ReversalCount,
		AbnormalTxCount: p.AbnormalTxCount,
	})
}

// --- rolling averages ---

// RollingAverage loads the sender's outgoing-volume tracker.
func (m *Manager) RollingAverage(addr [20]byte) (*halflife.RollingAverage, bool, error) {
	var stored storedRollingAverage
	ok, err := m.KVGet(addrKey(rollingPrefix, addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &halflife.RollingAverage{
		TotalAmount: nonNil(stored.TotalAmount),
		Count:       stored.Count,
		LastUpdated: int64(stored.LastUpdated),
	}, true, nil
}

// PutRollingAverage persists the sender's outgoing-volume tracker.
func (m *Manager) PutRollingAverage(addr [20]byte, avg *halflife.RollingAverage) error {
	return m.KVPut(addrKey(rollingPrefix, addr), &storedRollingAverage{
		TotalAmount: nonNil(avg.TotalAmount),
		Count:       avg.Count,
		LastUpdated: uint64(avg.LastUpdated),
	})
}

// --- incentive credits ---

// IncentiveCredits returns the wallet's non-transferable credit balance.
func (m *Manager) IncentiveCredits(addr [20]byte) (*big.Int, error) {
	var stored storedCredits
	ok, err := m.KVGet(addrKey(creditsPrefix, addr), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return nonNil(stored.Amount), nil
}

// SetIncentiveCredits persists the wallet's credit balance.
func (m *Manager) SetIncentiveCredits(addr [20]byte, amount *big.Int, now int64) error {
	return m.KVPut(addrKey(creditsPrefix, addr), &storedCredits{
		Amount:      nonNil(amount),
		LastUpdated: uint64(now),
	})
}

// --- prefunded fees ---

// PrefundedFees returns the wallet's prefunded fee balance.
func (m *Manager) PrefundedFees(addr [20]byte) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := m.KVGet(addrKey(prefundPrefix, addr), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

// SetPrefundedFees persists the wallet's prefunded fee balance.
func (m *Manager) SetPrefundedFees(addr [20]byte, amount *big.Int) error {
	return m.KVPut(addrKey(prefundPrefix, addr), nonNil(amount))
}

// --- pending receipts ---

// PendingReceipt loads the recipient's delayed-receipt slot.
func (m *Manager) PendingReceipt(recipient [20]byte) (*halflife.PendingReceipt, bool, error) {
	var stored storedReceipt
	ok, err := m.KVGet(addrKey(receiptPrefix, recipient), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &halflife.PendingReceipt{
		Sender:      stored.Sender,
		Amount:      nonNil(stored.Amount),
		FeeAssessed: nonNil(stored.FeeAssessed),
		ExpiryTime:  int64(stored.ExpiryTime),
		Reversed:    stored.Reversed,
		Finalized:   stored.Finalized,
	}, true, nil
}

// PutPendingReceipt persists the recipient's delayed-receipt slot.
func (m *Manager) PutPendingReceipt(recipient [20]byte, r *halflife.PendingReceipt) error {
	return m.KVPut(addrKey(receiptPrefix, recipient), &storedReceipt{
		Sender:      r.Sender,
		Amount:      nonNil(r.Amount),
		FeeAssessed: nonNil(r.FeeAssessed),
		ExpiryTime:  uint64(r.ExpiryTime),
		Reversed:    r.Reversed,
		Finalized:   r.Finalized,
	})
}

// DeletePendingReceipt clears the recipient's slot.
func (m *Manager) DeletePendingReceipt(recipient [20]byte) error {
	return m.KVDelete(addrKey(receiptPrefix, recipient))
}

// --- settlement windows ---

// SettlementWindow loads the recipient-of-record's commit window.
func (m *Manager) SettlementWindow(recipient [20]byte) (*halflife.SettlementWindow, bool, error) {
	var stored storedWindow
	ok, err := m.KVGet(addrKey(windowPrefix, recipient), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &halflife.SettlementWindow{
		Originator:       stored.Originator,
		CommitWindowEnd:  int64(stored.CommitWindowEnd),
		HalfLifeDuration: int64(stored.HalfLifeDuration),
		TransferCount:    stored.TransferCount,
		TotalFeeAssessed: nonNil(stored.TotalFeeAssessed),
		Reversed:         stored.Reversed,
	}, true, nil
}

// PutSettlementWindow persists the commit window.
func (m *Manager) PutSettlementWindow(recipient [20]byte, w *halflife.SettlementWindow) error {
	return m.KVPut(addrKey(windowPrefix, recipient), &storedWindow{
		Originator:       w.Originator,
		CommitWindowEnd:  uint64(w.CommitWindowEnd),
		HalfLifeDuration: uint64(w.HalfLifeDuration),
		TransferCount:    w.TransferCount,
		TotalFeeAssessed: nonNil(w.TotalFeeAssessed),
		Reversed:         w.Reversed,
	})
}

// DeleteSettlementWindow clears the commit window record.
func (m *Manager) DeleteSettlementWindow(recipient [20]byte) error {
	return m.KVDelete(addrKey(windowPrefix, recipient))
}

// --- pair transaction counters ---

// PairTransactionCount returns the monotone counter for the ordered
// (sender, recipient) pair.
func (m *Manager) PairTransactionCount(sender, recipient [20]byte) (uint64, error) {
	var count uint64
	_, err := m.KVGet(pairKey(pairPrefix, sender, recipient), &count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementPairTransactionCount bumps the pair counter and returns the new
// value. The counter is never reset.
func (m *Manager) IncrementPairTransactionCount(sender, recipient [20]byte) (uint64, error) {
	count, err := m.PairTransactionCount(sender, recipient)
	if err != nil {
		return 0, err
	}
	count++
	if err := m.KVPut(pairKey(pairPrefix, sender, recipient), count); err != nil {
		return 0, err
	}
	return count, nil
}

// --- compliance registry backing ---

// KYCRecord loads the wallet's custodian attestation.
func (m *Manager) KYCRecord(addr [20]byte) (*compliance.KYCRecord, bool, error) {
	var stored storedKYCRecord
	ok, err := m.KVGet(addrKey(kycPrefix, addr), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &compliance.KYCRecord{
		Custodian:  stored.Custodian,
		VerifiedAt: int64(stored.VerifiedAt),
		ExpiresAt:  int64(stored.ExpiresAt),
	}, true, nil
}

// PutKYCRecord persists the wallet's custodian attestation.
func (m *Manager) PutKYCRecord(addr [20]byte, rec *compliance.KYCRecord) error {
	return m.KVPut(addrKey(kycPrefix, addr), &storedKYCRecord{
		Custodian:  rec.Custodian,
		VerifiedAt: uint64(rec.VerifiedAt),
		ExpiresAt:  uint64(rec.ExpiresAt),
	})
}

// IsCustodian reports whether addr is a registered custodian institution.
func (m *Manager) IsCustodian(addr [20]byte) (bool, error) {
	var enabled bool
	ok, err := m.KVGet(addrKey(custodianPrefix, addr), &enabled)
	if err != nil {
		return false, err
	}
	return ok && enabled, nil
}

// SetCustodian registers or deregisters a custodian institution.
func (m *Manager) SetCustodian(addr [20]byte, enabled bool) error {
	key := addrKey(custodianPrefix, addr)
	if !enabled {
		return m.KVDelete(key)
	}
	return m.KVPut(key, enabled)
}

// NetLiability returns the net amount debtor owes creditor.
func (m *Manager) NetLiability(debtor, creditor [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(pairKey(liabilityPrefix, debtor, creditor), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SetNetLiability persists the net amount debtor owes creditor.
func (m *Manager) SetNetLiability(debtor, creditor [20]byte, amount *big.Int) error {
	return m.KVPut(pairKey(liabilityPrefix, debtor, creditor), nonNil(amount))
}
