package core

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"halochain/core/types"
	"halochain/native/fees"
)

const (
	EventTypeTransfer        = "token.transfer"
	EventTypeMint            = "token.mint"
	EventTypeBurn            = "token.burn"
	EventTypePrefundDeposit  = "token.prefund_deposited"
	EventTypePrefundWithdraw = "token.prefund_withdrawn"
)

type ledgerEvent struct {
	evt *types.Event
}

func (e ledgerEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e ledgerEvent) Event() *types.Event { return e.evt }

func newTransferEvent(sender, recipient [20]byte, amount *big.Int, s *fees.Settlement, delay int64) *types.Event {
	attrs := map[string]string{
		"sender":    hex.EncodeToString(sender[:]),
		"recipient": hex.EncodeToString(recipient[:]),
		"gross":     bigAttr(amount),
		"halfLife":  strconv.FormatInt(delay, 10),
	}
	if s != nil {
		attrs["totalFee"] = bigAttr(s.TotalFee)
		attrs["feeFromPrefund"] = bigAttr(s.FromPrefund)
		attrs["feeFromCredits"] = bigAttr(s.FromCredits)
		attrs["feeFromBalance"] = bigAttr(s.FromBalance)
	}
	return &types.Event{Type: EventTypeTransfer, Attributes: attrs}
}

func newMintEvent(recipient [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeMint, Attributes: map[string]string{
		"recipient": hex.EncodeToString(recipient[:]),
		"amount":    bigAttr(amount),
	}}
}

func newBurnEvent(account [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeBurn, Attributes: map[string]string{
		"account": hex.EncodeToString(account[:]),
		"amount":  bigAttr(amount),
	}}
}

func newPrefundEvent(wallet [20]byte, amount *big.Int, deposit bool) *types.Event {
	eventType := EventTypePrefundWithdraw
	if deposit {
		eventType = EventTypePrefundDeposit
	}
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"wallet": hex.EncodeToString(wallet[:]),
		"amount": bigAttr(amount),
	}}
}

func bigAttr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
