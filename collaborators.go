package relay

import (
	"context"

	"github.com/lightningnetwork/lnd/actor"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/relay/bolt4"
	"github.com/lightningnetwork/lnd/routing/route"
)

// Aggregator owns MPP-set bookkeeping across the channel links an inbound
// HTLC may arrive on. The instance delegates every arriving HTLC to it and
// is notified, via its own mailbox, once the set is judged complete (or an
// extra part lands on an already-settled set). The relay core never
// re-derives completeness itself.
type Aggregator interface {
	// AddHtlc registers a newly arrived HTLC against the set identified
	// by key, returning the current size of the set.
	AddHtlc(ctx context.Context, key InstanceKey, htlc IncomingHtlcRecord) (int, error)

	// Set returns the accumulated UpstreamSet for key.
	Set(ctx context.Context, key InstanceKey) (*UpstreamSet, error)
}

// Register is the channel-register collaborator: it resolves this node's
// identity and exposes whatever per-channel policy (fee, CLTV delta) the
// relay needs to validate an inbound request against.
type Register interface {
	// SelfNode returns this node's public key, used to label each
	// instance's log lines.
	SelfNode() route.Vertex

	// ChannelExpiryDelta returns the minimum CLTV delta this node
	// requires between the inbound set's expiry and the outgoing CLTV
	// before it is willing to forward.
	ChannelExpiryDelta() uint32
}

// PendingCommandsStore durably records the settlement decision (fulfill or
// fail) for each upstream HTLC before the corresponding wire message is
// sent, so that a crash between decision and send cannot lose the
// decision. It is independent of relay-instance state; that state is
// intentionally not durably checkpointed.
type PendingCommandsStore interface {
	// RecordFulfill persists the decision to fulfill htlc with preimage.
	RecordFulfill(ctx context.Context, htlc IncomingHtlcRecord, preimage lntypes.Preimage) error

	// RecordFail persists the decision to fail htlc with failure.
	RecordFail(ctx context.Context, htlc IncomingHtlcRecord, failure DecryptedFailure) error
}

// OutboundExecutor drives one outgoing payment attempt (potentially
// several route attempts across retries) to completion and reports the
// result back to the owning RelayInstance's mailbox.
type OutboundExecutor interface {
	// Dispatch starts the outgoing payment described by plan. The
	// executor is responsible for retries, amp/mpp splitting on the
	// outgoing side, and for delivering exactly one of
	// outboundPaymentSent or outboundPaymentFailed to replyTo, optionally
	// preceded by outboundPreimageReceived.
	Dispatch(ctx context.Context, plan DispatchPlan, replyTo actor.TellOnlyRef[Message]) error
}

// OutboundExecutorFactory constructs an OutboundExecutor for one relay
// instance. Kept separate from OutboundExecutor so test doubles can hand
// out per-instance recorders without sharing state.
type OutboundExecutorFactory interface {
	New(key InstanceKey) OutboundExecutor
}

// Triggerer observes whatever external condition releases a held async
// payment (e.g. the recipient coming online) and reports it back to the
// owning instance's mailbox. Instances register interest for the
// lifetime of the WaitingForAsyncTrigger state and must deregister on
// leaving it.
type Triggerer interface {
	// Register starts watching for the trigger condition associated
	// with key, delivering at most one asyncTriggerFired or
	// asyncTriggerCanceled to replyTo.
	Register(ctx context.Context, key InstanceKey, replyTo actor.TellOnlyRef[Message]) error

	// Deregister stops watching; safe to call even if no registration
	// is outstanding.
	Deregister(ctx context.Context, key InstanceKey)
}

// BlindedPathResolver turns the still-encoded BlindedPathDescriptors taken
// from a ToBlindedPaths instruction into dispatchable routes.
type BlindedPathResolver interface {
	// Resolve decodes paths and reports the result back to replyTo as a
	// single blindedPathsResolved message.
	Resolve(ctx context.Context, paths []BlindedPathDescriptor, replyTo actor.TellOnlyRef[Message]) error
}

// RelayComplete is the message a RelayInstance sends its parent exactly
// once, on entering Stopping, so the parent can drop its
// (payment_hash, payment_secret) → instance mapping and send Stop.
type RelayComplete struct {
	Key InstanceKey
}

// ParentNotifier is the narrow interface a RelayInstance uses to report
// completion to whatever owns its lifecycle; the parent supervisor itself
// is out of scope for this package.
type ParentNotifier interface {
	NotifyComplete(RelayComplete)
}

// EventBus publishes narrow, typed lifecycle events for observability and
// for any downstream subscriber (e.g. a reconciliation job). The relay
// core never blocks on publication.
type EventBus interface {
	Publish(event InstanceEvent)
}

// InstanceEvent is the sealed set of externally-observable lifecycle
// events a RelayInstance emits over its life.
type InstanceEvent interface {
	isInstanceEvent()
}

// MetricsRecorder is the narrow metrics-sink contract the instance and its
// collaborators report through; metrics.go supplies the prometheus-backed
// implementation.
type MetricsRecorder interface {
	ObserveRelayOutcome(relayType string, success bool, durationSeconds float64)
	IncFailure(class string)
}

// DecryptedFailure is the instance's internal view of a failure reported
// by the downstream OutboundExecutor for one outgoing attempt: the
// attributed source of the failure and the BOLT-4 failure message it
// carried, already decrypted by the executor's onion layer.
type DecryptedFailure struct {
	// Source is the node that originated the failure, if attributable.
	// A zero-value Option indicates the failure could not be attributed
	// to a specific node (e.g. a local route-construction error).
	Source fn.Option[route.Vertex]

	// Message is the decrypted BOLT-4 failure payload.
	Message bolt4.FailureMessage

	// AmountTried is the amount that was attempted on this failed
	// route. The relay core carries it but does not read it.
	AmountTried lnwire.MilliSatoshi
}
