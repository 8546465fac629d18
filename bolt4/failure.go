// Package bolt4 defines the small set of upstream-visible failure
// messages the relay core can attribute to an outgoing payment attempt or
// to its own validation. It is deliberately independent of lnd's onion
// codec: callers receive these as typed values and are responsible for
// encoding them onto the wire.
package bolt4

import "fmt"

// FailureMessage is a BOLT-4 style failure the relay reports upstream,
// either as the direct cause of a validation rejection or as the
// translated form of a downstream payment failure.
type FailureMessage interface {
	// FailureCode returns the numeric BOLT-4 failure code.
	FailureCode() uint16

	// Error implements the error interface for logging.
	Error() string
}

const (
	codeTrampolineFeeInsufficient    uint16 = 0x2033
	codeTrampolineExpiryTooSoon      uint16 = 0x2034
	codeInvalidOnionPayload          uint16 = 0x4016
	codeIncorrectOrUnknownPayDetails uint16 = 0x400f
	codeTemporaryNodeFailure         uint16 = 0x2002
	codeUnknownNextPeer              uint16 = 0x400a
)

// TrampolineFeeInsufficient indicates the sender's declared forwarding fee
// fell below what this hop requires.
type TrampolineFeeInsufficient struct{}

// FailureCode implements FailureMessage.
func (TrampolineFeeInsufficient) FailureCode() uint16 { return codeTrampolineFeeInsufficient }

// Error implements FailureMessage.
func (TrampolineFeeInsufficient) Error() string { return "trampoline_fee_insufficient" }

// TrampolineExpiryTooSoon indicates the sender's declared CLTV delta
// between the incoming and outgoing HTLC fell below what this hop
// requires.
type TrampolineExpiryTooSoon struct{}

// FailureCode implements FailureMessage.
func (TrampolineExpiryTooSoon) FailureCode() uint16 { return codeTrampolineExpiryTooSoon }

// Error implements FailureMessage.
func (TrampolineExpiryTooSoon) Error() string { return "trampoline_expiry_too_soon" }

// InvalidOnionPayload indicates a specific TLV field inside the decoded
// trampoline payload was malformed or missing. Tag and Offset identify
// the offending record the way BOLT-4 requires for this failure.
type InvalidOnionPayload struct {
	Tag    uint64
	Offset uint16
}

// FailureCode implements FailureMessage.
func (InvalidOnionPayload) FailureCode() uint16 { return codeInvalidOnionPayload }

// Error implements FailureMessage.
func (f InvalidOnionPayload) Error() string {
	return fmt.Sprintf("invalid_onion_payload: tag=%d offset=%d", f.Tag, f.Offset)
}

// IncorrectOrUnknownPaymentDetails indicates the outer payment_secret or
// the total-amount/expiry recorded with the MPP set did not match what
// this hop expected.
type IncorrectOrUnknownPaymentDetails struct {
	HtlcMsat uint64
	Height   uint32
}

// FailureCode implements FailureMessage.
func (IncorrectOrUnknownPaymentDetails) FailureCode() uint16 {
	return codeIncorrectOrUnknownPayDetails
}

// Error implements FailureMessage.
func (f IncorrectOrUnknownPaymentDetails) Error() string {
	return fmt.Sprintf(
		"incorrect_or_unknown_payment_details: htlc_msat=%d height=%d",
		f.HtlcMsat, f.Height,
	)
}

// TemporaryNodeFailure indicates a transient failure attributable to this
// node rather than to the sender's instructions: an exhausted retry
// budget, an async-payment hold that timed out or was canceled, or any
// other condition the relay cannot attribute to a specific downstream
// node.
type TemporaryNodeFailure struct{}

// FailureCode implements FailureMessage.
func (TemporaryNodeFailure) FailureCode() uint16 { return codeTemporaryNodeFailure }

// Error implements FailureMessage.
func (TemporaryNodeFailure) Error() string { return "temporary_node_failure" }

// UnknownNextPeer indicates the relay could not reach, or does not
// recognize, the node it was instructed to forward to.
type UnknownNextPeer struct{}

// FailureCode implements FailureMessage.
func (UnknownNextPeer) FailureCode() uint16 { return codeUnknownNextPeer }

// Error implements FailureMessage.
func (UnknownNextPeer) Error() string { return "unknown_next_peer" }

// NewTemporaryNodeFailure returns the canonical TemporaryNodeFailure value
// used for the async-payment timeout/cancel path, kept behind a single
// named constructor so a future BOLT update touches one call site.
func NewTemporaryNodeFailure() FailureMessage {
	return TemporaryNodeFailure{}
}
