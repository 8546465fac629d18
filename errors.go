package relay

import "errors"

var (
	// ErrPaymentSecretMismatch is a programming invariant violation: the
	// parent dispatcher routed a Relay message carrying an outer
	// payment_secret that differs from the one carried by the first Relay
	// the instance received. Every inbound HTLC belonging to this MPP set must carry the
	// identical payment secret.
	ErrPaymentSecretMismatch = errors.New(
		"relay: payment secret mismatch on inbound HTLC",
	)

	// ErrUnexpectedMessage is a programming invariant violation: a Relay
	// message arrived in a state that does not accept new parts (other
	// than the documented extra-HTLC handling) or a message type arrived
	// that is not valid for the current state.
	ErrUnexpectedMessage = errors.New(
		"relay: message not valid for current state",
	)

	// ErrNoFailuresReported is logged when a downstream PaymentFailed
	// event carries an empty failure list. This should not occur; it is
	// handled defensively rather than assumed away.
	ErrNoFailuresReported = errors.New(
		"relay: downstream reported failure with no failure detail",
	)

	// ErrEmptyBlindedResolution indicates a ToBlindedPaths relay whose
	// resolver returned zero paths.
	ErrEmptyBlindedResolution = errors.New(
		"relay: blinded path resolution returned no paths",
	)

	// ErrMissingPaymentSecret indicates a ToTrampoline hand-off to a
	// non-trampoline recipient that carries no payment secret.
	ErrMissingPaymentSecret = errors.New(
		"relay: non-trampoline hand-off without payment secret",
	)
)

// invariantViolation wraps a detected programming-invariant breach. The
// instance logs it at Critical and stops itself; the breach itself is not
// surfaced upstream, and any accumulated HTLCs are failed with
// TemporaryNodeFailure.
type invariantViolation struct {
	cause error
}

func (e *invariantViolation) Error() string {
	return "relay: invariant violation: " + e.cause.Error()
}

func (e *invariantViolation) Unwrap() error {
	return e.cause
}

func newInvariantViolation(cause error) *invariantViolation {
	return &invariantViolation{cause: cause}
}
