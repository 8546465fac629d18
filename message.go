package relay

import (
	"github.com/lightningnetwork/lnd/actor"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/relay/bolt4"
	"github.com/lightningnetwork/lnd/routing/route"
)

// Message is the envelope type accepted by a RelayInstance's mailbox.
type Message = actor.Message

// Response is the envelope type a RelayInstance may return from Receive.
// Most messages are handled as fire-and-forget Tells and return nil.
type Response any

// relayMessage is embedded by every concrete message type so each one
// satisfies actor.Message without repeating the boilerplate.
type relayMessage struct {
	actor.BaseMessage
}

// Relay carries one inbound HTLC belonging to this payment's MPP set. The
// parent dispatcher sends one Relay per arriving HTLC; the instance hands
// each to its Aggregator and waits for the aggregator's own completion
// event before acting.
type Relay struct {
	relayMessage

	Htlc          IncomingHtlcRecord
	PaymentSecret PaymentSecret
	Instructions  RelayInstructions
}

// MessageType implements actor.Message.
func (*Relay) MessageType() string { return "relay.Relay" }

// Stop asks the instance to tear itself down immediately, bypassing the
// normal Stopping-state drain. Used by the parent on shutdown; it is not
// part of the payment-level protocol.
type Stop struct {
	relayMessage
}

// MessageType implements actor.Message.
func (*Stop) MessageType() string { return "relay.Stop" }

// htlcSetExtraPart notifies the instance that the Aggregator observed an
// additional HTLC arrive for a set the instance had already declared
// complete (or failed/succeeded). This is the "stray HTLC" case: the
// instance must fail it back immediately without re-entering validation.
type htlcSetExtraPart struct {
	relayMessage

	Htlc IncomingHtlcRecord
}

// MessageType implements actor.Message.
func (*htlcSetExtraPart) MessageType() string { return "relay.htlcSetExtraPart" }

// htlcSetComplete notifies the instance that the Aggregator has observed
// enough HTLCs to satisfy the declared total (from the MPP record) and
// that validation and dispatch may proceed.
type htlcSetComplete struct {
	relayMessage
}

// MessageType implements actor.Message.
func (*htlcSetComplete) MessageType() string { return "relay.htlcSetComplete" }

// htlcSetFailed notifies the instance that the Aggregator gave up on the
// inbound set (timeout, over-payment, or a pay-to-open policy violation)
// before it ever became complete. Reason is the BOLT-4 message the
// aggregator determined and that must be applied, unchanged, to every
// accumulated HTLC; a nil Reason is replaced by defaultFailureReason.
type htlcSetFailed struct {
	relayMessage

	Reason bolt4.FailureMessage
}

// MessageType implements actor.Message.
func (*htlcSetFailed) MessageType() string { return "relay.htlcSetFailed" }

// asyncTriggerFired notifies the instance that the external Triggerer has
// observed the release condition for a held async payment.
type asyncTriggerFired struct {
	relayMessage
}

// MessageType implements actor.Message.
func (*asyncTriggerFired) MessageType() string { return "relay.asyncTriggerFired" }

// asyncTriggerTimedOut notifies the instance that the async-payment hold
// bound elapsed with no trigger observed.
type asyncTriggerTimedOut struct {
	relayMessage
}

// MessageType implements actor.Message.
func (*asyncTriggerTimedOut) MessageType() string { return "relay.asyncTriggerTimedOut" }

// asyncTriggerCanceled notifies the instance that the Triggerer itself
// determined the held payment must be abandoned (e.g. the recipient
// explicitly declined), independent of the local hold-bound timer.
type asyncTriggerCanceled struct {
	relayMessage
}

// MessageType implements actor.Message.
func (*asyncTriggerCanceled) MessageType() string { return "relay.asyncTriggerCanceled" }

// blindedPathsResolved notifies the instance that the BlindedPathResolver
// has finished turning the onion-carried blinded path descriptors into
// dispatchable routes.
type blindedPathsResolved struct {
	relayMessage

	Routes []ResolvedBlindedRoute
	Err    error
}

// MessageType implements actor.Message.
func (*blindedPathsResolved) MessageType() string { return "relay.blindedPathsResolved" }

// ResolvedBlindedRoute is one dispatchable route produced by resolving a
// BlindedPathDescriptor.
type ResolvedBlindedRoute struct {
	// IntroductionNode is the first, unblinded hop of the path.
	IntroductionNode route.Vertex

	// LastHopNode is the node id of the last blinded hop. For a blinded
	// dispatch, the first resolved route's LastHopNode becomes the
	// DispatchPlan's Recipient; it is not used as the logged display
	// identity, which is a random key.
	LastHopNode route.Vertex
}

// outboundPreimageReceived notifies the instance that the downstream
// payment executor obtained the preimage for a successfully completed
// outgoing payment.
type outboundPreimageReceived struct {
	relayMessage

	Preimage lntypes.Preimage
}

// MessageType implements actor.Message.
func (*outboundPreimageReceived) MessageType() string {
	return "relay.outboundPreimageReceived"
}

// outboundPaymentSent notifies the instance that the downstream payment
// executor completed the outgoing payment successfully. Parts describes
// the settled outgoing HTLCs for the TrampolinePaymentRelayed event.
type outboundPaymentSent struct {
	relayMessage

	Preimage         lntypes.Preimage
	Parts            []lnwire.MilliSatoshi
	RecipientNodeID  route.Vertex
	RecipientAmount  lnwire.MilliSatoshi
}

// MessageType implements actor.Message.
func (*outboundPaymentSent) MessageType() string { return "relay.outboundPaymentSent" }

// outboundPaymentFailed notifies the instance that the downstream payment
// executor exhausted its attempts without success. Failures is the list
// of per-attempt failure details (a local reason, a decrypted remote
// failure, or both) collected along the way; it is never empty on a
// well-formed event.
type outboundPaymentFailed struct {
	relayMessage

	Failures []attemptFailure
}

// MessageType implements actor.Message.
func (*outboundPaymentFailed) MessageType() string { return "relay.outboundPaymentFailed" }
