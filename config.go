package relay

import (
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// Config carries the node-level policy and collaborator set a
// RelayInstance needs for its entire life. It is immutable and shared,
// by reference, across every concurrently running instance.
type Config struct {
	// MinTrampolineFee computes the minimum fee this node requires for
	// a given forward amount.
	MinTrampolineFee MinTrampolineFeeFunc

	// MaxPaymentAttempts bounds the number of route attempts the
	// outbound executor may make.
	MaxPaymentAttempts int

	// AsyncPaymentHoldTimeout bounds how long WaitingForAsyncTrigger
	// may wait for a trigger before giving up, independent of the
	// upstream expiry bound.
	AsyncPaymentHoldTimeout time.Duration

	// AsyncPaymentCancelSafetyDelta is the number of blocks before the
	// upstream set's earliest expiry at which an outstanding async hold
	// must be canceled regardless of AsyncPaymentHoldTimeout.
	AsyncPaymentCancelSafetyDelta uint32

	// SupportsAsyncPayments reports whether this node advertises the
	// async-payment feature; a ToTrampoline instruction requesting an
	// async hold is honored only when this is true.
	SupportsAsyncPayments bool

	// RouterExperiment carries the randomized path-finding parameters
	// the router's experiment configuration supplies, forwarded
	// verbatim into every DispatchPlan's RouteParams.
	RouterExperiment RouterExperimentConfig

	// Clock is the injectable time source used for the async-payment
	// hold bound.
	Clock clock.Clock

	// Aggregator is the incoming MPP aggregator collaborator.
	Aggregator Aggregator

	// Register is the channel register collaborator.
	Register Register

	// PendingCommands is the persistent settlement-command store.
	PendingCommands PendingCommandsStore

	// Executors constructs outbound executors per instance.
	Executors OutboundExecutorFactory

	// Triggerer observes async-payment release conditions.
	Triggerer Triggerer

	// BlindedResolver resolves blinded path descriptors into
	// dispatchable routes.
	BlindedResolver BlindedPathResolver

	// Events publishes lifecycle events.
	Events EventBus

	// Metrics records relay-failure and relay-duration observations.
	Metrics MetricsRecorder

	// Parent receives the one-time RelayComplete notification each
	// instance sends on entering Stopping.
	Parent ParentNotifier

	// CurrentBlockHeight returns the node's current view of the chain
	// tip, used for the "outgoing CLTV not in the past" check and for
	// the default IncorrectOrUnknownPaymentDetails failure reason.
	CurrentBlockHeight func() uint32
}
