package state

import "encoding/hex"

// Key schema. Every aggregate lives under its own prefix; addresses are
// hex-encoded so keys stay printable in debugging tools.
const (
	accountPrefix   = "acct/"
	riskPrefix      = "risk/"
	rollingPrefix   = "avg/"
	creditsPrefix   = "credits/"
	prefundPrefix   = "prefund/"
	receiptPrefix   = "receipt/"
	windowPrefix    = "window/"
	pairPrefix      = "pair/"
	allowancePrefix = "allow/"
	rolePrefix      = "role/"
	pausePrefix     = "pause/"
	kycPrefix       = "kyc/"
	custodianPrefix = "custodian/"
	liabilityPrefix = "liability/"
	supplyKey       = "supply"
	paramsKey       = "params"
)

func addrKey(prefix string, addr [20]byte) []byte {
	return []byte(prefix + hex.EncodeToString(addr[:]))
}

func pairKey(prefix string, a, b [20]byte) []byte {
	return []byte(prefix + hex.EncodeToString(a[:]) + "/" + hex.EncodeToString(b[:]))
}

func stringKey(prefix, suffix string) []byte {
	return []byte(prefix + suffix)
}
