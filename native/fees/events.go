package fees

import (
	"encoding/hex"
	"math/big"

	"halochain/core/types"
)

const (
	EventTypeFeeApplied  = "fees.applied"
	EventTypeCreditUsed  = "fees.credit_used"
	EventTypePrefundUsed = "fees.prefund_used"
)

type feeEvent struct {
	evt *types.Event
}

func (e feeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e feeEvent) Event() *types.Event { return e.evt }

func newFeeAppliedEvent(sender, recipient [20]byte, amount *big.Int, s *Settlement) *types.Event {
	attrs := map[string]string{
		"sender":    hex.EncodeToString(sender[:]),
		"recipient": hex.EncodeToString(recipient[:]),
		"gross":     bigString(amount),
	}
	if s != nil {
		attrs["totalFee"] = bigString(s.TotalFee)
		attrs["fromPrefund"] = bigString(s.FromPrefund)
		attrs["fromCredits"] = bigString(s.FromCredits)
		attrs["fromBalance"] = bigString(s.FromBalance)
		attrs["senderCredit"] = bigString(s.SenderCredit)
		attrs["recipientCredit"] = bigString(s.RecipientCredit)
	}
	return &types.Event{Type: EventTypeFeeApplied, Attributes: attrs}
}

func newCreditUsedEvent(wallet [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeCreditUsed, Attributes: map[string]string{
		"wallet": hex.EncodeToString(wallet[:]),
		"amount": bigString(amount),
	}}
}

func newPrefundUsedEvent(wallet [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypePrefundUsed, Attributes: map[string]string{
		"wallet": hex.EncodeToString(wallet[:]),
		"amount": bigString(amount),
	}}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
