package halflife

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"halochain/core/types"
)

const (
	EventTypePendingRecorded  = "halflife.pending_recorded"
	EventTypeReceiptReversed  = "halflife.receipt_reversed"
	EventTypeReceiptFinalized = "halflife.receipt_finalized"
	EventTypeWindowReversed   = "halflife.window_reversed"
	EventTypeWindowExpired    = "halflife.window_expired"
	EventTypeLoyaltyRefund    = "halflife.loyalty_refund"
)

type halfLifeEvent struct {
	evt *types.Event
}

func (e halfLifeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e halfLifeEvent) Event() *types.Event { return e.evt }

func newPendingEvent(sender, recipient [20]byte, r *PendingReceipt) *types.Event {
	attrs := map[string]string{
		"sender":    hex.EncodeToString(sender[:]),
		"recipient": hex.EncodeToString(recipient[:]),
	}
	if r != nil {
		attrs["amount"] = bigString(r.Amount)
		attrs["feeAssessed"] = bigString(r.FeeAssessed)
		attrs["expiryTime"] = strconv.FormatInt(r.ExpiryTime, 10)
	}
	return &types.Event{Type: EventTypePendingRecorded, Attributes: attrs}
}

func newReceiptReversedEvent(recipient [20]byte, r *PendingReceipt) *types.Event {
	attrs := map[string]string{
		"recipient": hex.EncodeToString(recipient[:]),
	}
	if r != nil {
		attrs["sender"] = hex.EncodeToString(r.Sender[:])
		attrs["amount"] = bigString(r.Amount)
	}
	return &types.Event{Type: EventTypeReceiptReversed, Attributes: attrs}
}

func newReceiptFinalizedEvent(recipient [20]byte, r *PendingReceipt) *types.Event {
	attrs := map[string]string{
		"recipient": hex.EncodeToString(recipient[:]),
	}
	if r != nil {
		attrs["sender"] = hex.EncodeToString(r.Sender[:])
		attrs["amount"] = bigString(r.Amount)
		attrs["feeAssessed"] = bigString(r.FeeAssessed)
	}
	return &types.Event{Type: EventTypeReceiptFinalized, Attributes: attrs}
}

func newWindowReversedEvent(recipient [20]byte, w *SettlementWindow, amount *big.Int) *types.Event {
	attrs := map[string]string{
		"recipient": hex.EncodeToString(recipient[:]),
		"amount":    bigString(amount),
	}
	if w != nil {
		attrs["originator"] = hex.EncodeToString(w.Originator[:])
		attrs["commitWindowEnd"] = strconv.FormatInt(w.CommitWindowEnd, 10)
	}
	return &types.Event{Type: EventTypeWindowReversed, Attributes: attrs}
}

func newWindowExpiredEvent(wallet [20]byte, w *SettlementWindow) *types.Event {
	attrs := map[string]string{
		"wallet": hex.EncodeToString(wallet[:]),
	}
	if w != nil {
		attrs["originator"] = hex.EncodeToString(w.Originator[:])
		attrs["feeAssessed"] = bigString(w.TotalFeeAssessed)
		attrs["reversed"] = strconv.FormatBool(w.Reversed)
	}
	return &types.Event{Type: EventTypeWindowExpired, Attributes: attrs}
}

func newLoyaltyRefundEvent(sender, recipient [20]byte, share *big.Int) *types.Event {
	return &types.Event{Type: EventTypeLoyaltyRefund, Attributes: map[string]string{
		"sender":    hex.EncodeToString(sender[:]),
		"recipient": hex.EncodeToString(recipient[:]),
		"share":     bigString(share),
	}}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
