package relay

import (
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
)

// TrampolinePaymentRelayed is published once, on a successful relay,
// carrying enough detail for reconciliation and accounting without
// exposing internal instance state.
type TrampolinePaymentRelayed struct {
	PaymentHash      PaymentHash
	IncomingParts    []lnwire.MilliSatoshi
	OutgoingParts    []lnwire.MilliSatoshi
	RecipientNodeID  route.Vertex
	RecipientAmount  lnwire.MilliSatoshi
}

func (*TrampolinePaymentRelayed) isInstanceEvent() {}

// WaitingToRelayPayment is published on entering WaitingForAsyncTrigger,
// so a subscriber can track held payments without reaching into instance
// internals.
type WaitingToRelayPayment struct {
	OutgoingNodeID route.Vertex
	PaymentHash    PaymentHash
}

func (*WaitingToRelayPayment) isInstanceEvent() {}
