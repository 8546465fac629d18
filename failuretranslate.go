package relay

import (
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/relay/bolt4"
	"github.com/lightningnetwork/lnd/routing/route"
)

// localFailureKind enumerates the local (non-attributable) failure
// reasons the downstream executor may report alongside or instead of a
// decrypted remote failure.
type localFailureKind int

const (
	// localFailureNone indicates no local failure reason was reported
	// for a given attempt.
	localFailureNone localFailureKind = iota

	// localFailureBalanceTooLow indicates the executor could not find
	// enough local outbound liquidity on any channel to the declared
	// next node.
	localFailureBalanceTooLow

	// localFailureRouteNotFound indicates path-finding produced no
	// viable route under the configured constraints.
	localFailureRouteNotFound
)

// attemptFailure is one attempt's worth of failure detail as reported in
// an outboundPaymentFailed event: at most one local failure reason, and
// optionally a decrypted remote failure.
type attemptFailure struct {
	Local   localFailureKind
	Remote  *DecryptedFailure
}

// translateFailure implements §4.4: given the attempts that make up one
// PaymentFailed event, the fee the sender offered, and the minimum fee
// this node required, synthesize the BOLT-4 message to return upstream.
// declaredOutgoingNode and isBlindedForwarding gate the remote-failure
// preference so that a blinded relay never leaks the final node's
// failure.
func translateFailure(
	failures []attemptFailure,
	offeredFee lnwire.MilliSatoshi,
	minRequiredFee lnwire.MilliSatoshi,
	declaredOutgoingNode route.Vertex,
	isBlindedForwarding bool,
) bolt4.FailureMessage {

	if len(failures) == 0 {
		log.Warnf("%v", ErrNoFailuresReported)
		return bolt4.TemporaryNodeFailure{}
	}

	if len(failures) == 1 && failures[0].Local == localFailureBalanceTooLow &&
		failures[0].Remote == nil {

		if minRequiredFee > 0 && offeredFee >= 5*minRequiredFee {
			return bolt4.TemporaryNodeFailure{}
		}

		return bolt4.TrampolineFeeInsufficient{}
	}

	for _, f := range failures {
		if f.Local == localFailureRouteNotFound {
			return bolt4.TrampolineFeeInsufficient{}
		}
	}

	if !isBlindedForwarding {
		for _, f := range failures {
			if f.Remote == nil {
				continue
			}
			source, ok := f.Remote.Source.UnwrapOr(route.Vertex{}), f.Remote.Source.IsSome()
			if ok && source == declaredOutgoingNode {
				return f.Remote.Message
			}
		}
	}

	if !isBlindedForwarding {
		for _, f := range failures {
			if f.Remote != nil {
				return f.Remote.Message
			}
		}
	}

	return bolt4.TemporaryNodeFailure{}
}
