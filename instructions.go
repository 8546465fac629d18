package relay

import (
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
)

// RelayInstructions is the decrypted content of the trampoline onion
// payload addressed to this hop, as handed in by the onion layer. Exactly
// one of the two variants below is valid per instance.
type RelayInstructions interface {
	// isRelayInstructions is a marker method restricting implementers to
	// this package.
	isRelayInstructions()

	// amountToForward is the amount, exclusive of this node's fee, the
	// sender instructed be forwarded onward.
	amountToForward() lnwire.MilliSatoshi

	// outgoingCltv is the absolute block height the outgoing HTLC's
	// timelock must expire at.
	outgoingCltv() uint32
}

// RoutingInfoHint is one routing hint extracted from invoice_routing_info,
// used to extend the router's view of the final node's channels when
// forwarding to a non-trampoline recipient.
type RoutingInfoHint struct {
	NextNode route.Vertex
	ChanID   ChannelID
	FeeBase  lnwire.MilliSatoshi
	FeeRate  uint32
	CltvDelta uint16
}

// ToTrampoline instructs the relay to forward the payment further along
// the trampoline chain, or — when InvoiceFeatures is set — to hand it off
// to a non-trampoline final recipient that this hop routes to directly.
type ToTrampoline struct {
	// OutgoingNodeID is the node this hop must forward to: the next
	// trampoline hop when NextOnion is set, or the final recipient when
	// InvoiceFeatures is set.
	OutgoingNodeID route.Vertex

	// AmountOut is the amount to forward onward, exclusive of this
	// node's fee.
	AmountOut lnwire.MilliSatoshi

	// OutgoingCltv is the absolute block height the outgoing HTLC's
	// timelock must expire at.
	OutgoingCltv uint32

	// NextOnion is the opaque onion blob to hand to the next trampoline
	// hop, present only for trampoline-to-trampoline forwarding.
	NextOnion []byte

	// InvoiceFeatures, when non-nil, declares the final recipient's
	// feature bits and marks this as a hand-off to a non-trampoline
	// recipient rather than another trampoline hop.
	InvoiceFeatures *lnwire.FeatureVector

	// InvoiceRoutingInfo supplies extra routing hints toward the final
	// recipient; only meaningful alongside InvoiceFeatures.
	InvoiceRoutingInfo []RoutingInfoHint

	// PaymentSecret is the sender-chosen secret for the final leg.
	// Required whenever InvoiceFeatures is set.
	PaymentSecret *PaymentSecret

	// PaymentMetadata is opaque recipient-defined data to carry on the
	// final leg unmodified.
	PaymentMetadata []byte

	// IsAsyncPayment requests that this hop hold the payment until the
	// async-payment triggerer signals the recipient is ready, provided
	// this node also advertises the async-payment feature.
	IsAsyncPayment bool
}

func (*ToTrampoline) isRelayInstructions()               {}
func (t *ToTrampoline) amountToForward() lnwire.MilliSatoshi { return t.AmountOut }
func (t *ToTrampoline) outgoingCltv() uint32                 { return t.OutgoingCltv }

// IsTrampolineHop reports whether this instruction forwards to another
// trampoline hop (true) or hands off to a non-trampoline recipient
// (false, when InvoiceFeatures is set).
func (t *ToTrampoline) IsTrampolineHop() bool {
	return t.InvoiceFeatures == nil
}

// ToBlindedPaths instructs the relay to forward to the final recipient by
// way of one or more blinded paths. The relay must resolve each blinded
// route's decoded hop list through the external BlindedPathResolver
// before dispatch, since the path's real nodes are not visible in the
// onion.
type ToBlindedPaths struct {
	// AmountOut is the total amount to deliver to the recipient across
	// all blinded paths combined.
	AmountOut lnwire.MilliSatoshi

	// OutgoingCltv is the absolute block height the outgoing HTLC set's
	// timelocks must expire at.
	OutgoingCltv uint32

	// InvoiceFeatures declares the final recipient's feature bits,
	// used to decide whether to split the outgoing payment across the
	// resolved paths with basic MPP.
	InvoiceFeatures *lnwire.FeatureVector

	// Paths are the undecoded blinded path descriptors taken verbatim
	// from the onion payload, one per candidate route to the recipient.
	Paths []BlindedPathDescriptor
}

func (*ToBlindedPaths) isRelayInstructions()               {}
func (b *ToBlindedPaths) amountToForward() lnwire.MilliSatoshi { return b.AmountOut }
func (b *ToBlindedPaths) outgoingCltv() uint32                 { return b.OutgoingCltv }

// BlindedPathDescriptor is the opaque, still-encoded representation of one
// candidate blinded route, as lifted out of the trampoline onion payload.
// Only the BlindedPathResolver collaborator knows how to turn this into a
// dispatchable route.
type BlindedPathDescriptor struct {
	// IntroductionNode is the first, unblinded hop of the path.
	IntroductionNode route.Vertex

	// EncryptedData is the opaque blob the introduction node and every
	// downstream blinded hop need to process the payment.
	EncryptedData []byte
}
