package compliance

import "math/big"

// Registry is the external KYC/custodian oracle the ledger consults before
// moving value. A wallet is approved when it holds a valid KYC attestation or
// is itself a custodian.
type Registry interface {
	IsApproved(addr [20]byte) bool
	Custodian(addr [20]byte) ([20]byte, bool)
}

// LiabilityLedger tracks net interbank liabilities between custodians. The
// ledger records a liability whenever sender and recipient resolve to
// different custodians and clears it when the transfer is reversed.
type LiabilityLedger interface {
	Record(debtor, creditor [20]byte, amount *big.Int) error
	Clear(debtor, creditor [20]byte, amount *big.Int) error
}
