package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btclog/v2"
	"github.com/lightningnetwork/lnd/actor"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/relay/bolt4"
	"github.com/lightningnetwork/lnd/routing/route"
)

// instanceState is the current node of the §4.1 state machine.
type instanceState int

const (
	stateReceiving instanceState = iota
	stateWaitingForAsyncTrigger
	stateResolvingBlindedPaths
	stateSending
	stateStopping
)

func (s instanceState) String() string {
	switch s {
	case stateReceiving:
		return "Receiving"
	case stateWaitingForAsyncTrigger:
		return "WaitingForAsyncTrigger"
	case stateResolvingBlindedPaths:
		return "ResolvingBlindedPaths"
	case stateSending:
		return "Sending"
	case stateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// Behavior is a type alias for actor.ActorBehavior over relay messages,
// matching the shape the parent dispatcher's actor system expects.
type Behavior = actor.ActorBehavior[Message, Response]

// RelayInstance is the per-payment trampoline relay state machine. It is
// created by a parent dispatcher on the first inbound HTLC of a new
// payment and runs as a single actor with a private mailbox; nothing
// inside it is safe for concurrent access from outside its Receive loop.
type RelayInstance struct {
	cfg *Config
	key InstanceKey
	log btclog.Logger

	state instanceState

	set          *UpstreamSet
	instructions RelayInstructions
	firstSecret  PaymentSecret

	startedAt         time.Time
	fulfilledUpstream bool

	selfRef fn.Option[actor.ActorRef[Message, Response]]

	completeNotified bool

	stopOnce sync.Once
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewRelayInstance constructs a fresh instance for key, in the initial
// Receiving state.
func NewRelayInstance(cfg *Config, key InstanceKey) *RelayInstance {
	return &RelayInstance{
		cfg: cfg,
		key: key,
		log: log.WithPrefix(fmt.Sprintf(
			"self=%v payment_hash=%v", cfg.Register.SelfNode(), key.PaymentHash,
		)),
		state: stateReceiving,
		set:   NewUpstreamSet(),
		quit:  make(chan struct{}),
	}
}

// setActorRef records the actor runtime's reference to this instance,
// used to hand TellOnlyRef copies of itself to collaborators that report
// back asynchronously.
func (r *RelayInstance) setActorRef(ref actor.ActorRef[Message, Response]) {
	r.selfRef = fn.Some(ref)
}

// Receive implements actor.ActorBehavior. Every message is handled
// synchronously with respect to every other message this instance
// receives; there is no concurrent access to instance state.
func (r *RelayInstance) Receive(ctx context.Context, msg Message) fn.Result[Response] {
	switch m := msg.(type) {
	case *Relay:
		return r.handleRelay(ctx, m)

	case *Stop:
		return r.handleStop(ctx, m)

	case *htlcSetExtraPart:
		return r.handleExtraPart(ctx, m)

	case *htlcSetComplete:
		return r.handleSetComplete(ctx, m)

	case *htlcSetFailed:
		return r.handleSetFailed(ctx, m)

	case *asyncTriggerFired:
		return r.handleTriggerFired(ctx, m)

	case *asyncTriggerTimedOut:
		return r.handleTriggerTimedOut(ctx, m)

	case *asyncTriggerCanceled:
		return r.handleTriggerCanceled(ctx, m)

	case *blindedPathsResolved:
		return r.handleBlindedResolved(ctx, m)

	case *outboundPreimageReceived:
		return r.handlePreimageReceived(ctx, m)

	case *outboundPaymentSent:
		return r.handlePaymentSent(ctx, m)

	case *outboundPaymentFailed:
		return r.handlePaymentFailed(ctx, m)

	default:
		r.abortOnInvariantViolation(ctx, newInvariantViolation(
			fmt.Errorf("%w: %T", ErrUnexpectedMessage, msg),
		))
		return fn.Ok[Response](nil)
	}
}

// handleRelay processes one inbound HTLC belonging to this payment.
func (r *RelayInstance) handleRelay(ctx context.Context, msg *Relay) fn.Result[Response] {
	if r.instructions == nil {
		r.firstSecret = msg.PaymentSecret
		r.instructions = msg.Instructions
	} else if msg.PaymentSecret != r.firstSecret {
		r.abortOnInvariantViolation(
			ctx, newInvariantViolation(ErrPaymentSecretMismatch),
		)
		return fn.Ok[Response](nil)
	}

	if r.state != stateReceiving {
		r.rejectStray(ctx, msg.Htlc)
		return fn.Ok[Response](nil)
	}

	r.set.Add(msg.Htlc)

	if _, err := r.cfg.Aggregator.AddHtlc(ctx, r.key, msg.Htlc); err != nil {
		r.log.Errorf("aggregator add htlc: %v", err)
	}

	return fn.Ok[Response](nil)
}

// handleStop tears the instance down immediately, bypassing any drain.
func (r *RelayInstance) handleStop(ctx context.Context, _ *Stop) fn.Result[Response] {
	r.stopOnce.Do(func() {
		close(r.quit)
	})

	return fn.Ok[Response](nil)
}

// handleExtraPart rejects a single late HTLC the aggregator observed
// after the set was already closed, without otherwise touching instance
// state.
func (r *RelayInstance) handleExtraPart(ctx context.Context, msg *htlcSetExtraPart) fn.Result[Response] {
	r.rejectStray(ctx, msg.Htlc)
	return fn.Ok[Response](nil)
}

// rejectStray fails a single HTLC with IncorrectOrUnknownPaymentDetails
// without affecting the rest of the relay.
func (r *RelayInstance) rejectStray(ctx context.Context, htlc IncomingHtlcRecord) {
	err := failStrayHtlc(
		ctx, r.cfg.PendingCommands, htlc,
		uint64(r.set.AmountIn()), r.cfg.CurrentBlockHeight(),
	)
	if err != nil {
		r.log.Errorf("fail stray htlc %d: %v", htlc.HtlcID, err)
	}

	r.cfg.Metrics.IncFailure("stray_htlc")
}

// handleSetComplete runs validation and, on success, dispatches the
// payment along whichever path the instructions describe.
func (r *RelayInstance) handleSetComplete(ctx context.Context, _ *htlcSetComplete) fn.Result[Response] {
	if r.state != stateReceiving {
		r.abortOnInvariantViolation(ctx, newInvariantViolation(ErrUnexpectedMessage))
		return fn.Ok[Response](nil)
	}

	failure := validate(validationInput{
		AmountIn:           r.set.AmountIn(),
		ExpiryIn:           r.set.ExpiryIn(),
		CurrentBlockHeight: r.cfg.CurrentBlockHeight(),
		ChannelExpiryDelta: r.cfg.Register.ChannelExpiryDelta(),
		MinTrampolineFee:   r.cfg.MinTrampolineFee,
		Instructions:       r.instructions,
	})
	if failure != nil {
		r.cfg.Metrics.IncFailure(failureClass(failure))
		r.failAllUpstream(ctx, failure)
		r.enterStopping(ctx, false)
		return fn.Ok[Response](nil)
	}

	switch instr := r.instructions.(type) {
	case *ToTrampoline:
		if instr.IsAsyncPayment && r.cfg.SupportsAsyncPayments {
			r.enterWaitingForAsyncTrigger(ctx, instr)
			return fn.Ok[Response](nil)
		}

		r.dispatch(ctx, nil)

	case *ToBlindedPaths:
		r.enterResolvingBlindedPaths(ctx, instr)

	default:
		r.abortOnInvariantViolation(ctx, newInvariantViolation(
			fmt.Errorf("unknown instructions type %T", instr),
		))
	}

	return fn.Ok[Response](nil)
}

// handleSetFailed fails every accumulated HTLC with the aggregator's
// reported reason and stops the instance.
func (r *RelayInstance) handleSetFailed(ctx context.Context, msg *htlcSetFailed) fn.Result[Response] {
	if r.state != stateReceiving {
		r.abortOnInvariantViolation(ctx, newInvariantViolation(ErrUnexpectedMessage))
		return fn.Ok[Response](nil)
	}

	reason := msg.Reason
	if reason == nil {
		reason = defaultFailureReason(
			uint64(r.set.AmountIn()), r.cfg.CurrentBlockHeight(),
		)
	}

	r.cfg.Metrics.IncFailure(failureClass(reason))
	r.failAllUpstream(ctx, reason)
	r.enterStopping(ctx, false)

	return fn.Ok[Response](nil)
}

// enterWaitingForAsyncTrigger registers interest with the Triggerer and
// publishes the WaitingToRelayPayment event.
func (r *RelayInstance) enterWaitingForAsyncTrigger(ctx context.Context, instr *ToTrampoline) {
	r.state = stateWaitingForAsyncTrigger

	r.cfg.Events.Publish(&WaitingToRelayPayment{
		OutgoingNodeID: instr.OutgoingNodeID,
		PaymentHash:    r.key.PaymentHash,
	})

	if !r.selfRef.IsSome() {
		r.abortOnInvariantViolation(ctx, newInvariantViolation(
			fmt.Errorf("no actor ref registered for async wait"),
		))
		return
	}

	tellRef := r.selfRef.UnsafeFromSome()

	if err := r.cfg.Triggerer.Register(ctx, r.key, tellRef); err != nil {
		r.log.Errorf("register async trigger: %v", err)
	}

	bound := asyncHoldBound(
		r.cfg.AsyncPaymentHoldTimeout,
		r.cfg.CurrentBlockHeight(),
		r.set.ExpiryIn(),
		r.cfg.AsyncPaymentCancelSafetyDelta,
	)

	tick := armAsyncHoldTimer(r.cfg.Clock, bound)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		select {
		case <-tick:
			if r.selfRef.IsSome() {
				r.selfRef.UnsafeFromSome().Tell(ctx, &asyncTriggerTimedOut{})
			}
		case <-r.quit:
		}
	}()
}

// handleTriggerFired releases a held async payment into dispatch.
func (r *RelayInstance) handleTriggerFired(ctx context.Context, _ *asyncTriggerFired) fn.Result[Response] {
	if r.state != stateWaitingForAsyncTrigger {
		r.abortOnInvariantViolation(ctx, newInvariantViolation(ErrUnexpectedMessage))
		return fn.Ok[Response](nil)
	}

	r.cfg.Triggerer.Deregister(ctx, r.key)
	r.dispatch(ctx, nil)

	return fn.Ok[Response](nil)
}

// handleTriggerTimedOut cancels a held async payment that never fired,
// per §5's hold-bound race against upstream expiry.
func (r *RelayInstance) handleTriggerTimedOut(ctx context.Context, _ *asyncTriggerTimedOut) fn.Result[Response] {
	r.abandonAsyncHold(ctx)
	return fn.Ok[Response](nil)
}

// handleTriggerCanceled abandons a held async payment the Triggerer itself
// decided to give up on, ahead of any local hold-bound timeout.
func (r *RelayInstance) handleTriggerCanceled(ctx context.Context, _ *asyncTriggerCanceled) fn.Result[Response] {
	r.abandonAsyncHold(ctx)
	return fn.Ok[Response](nil)
}

// abandonAsyncHold fails the held payment with TemporaryNodeFailure and
// stops the instance without ever spawning an outbound executor. A no-op
// outside WaitingForAsyncTrigger, since a timeout and a cancel racing each
// other both resolve to the same outcome.
func (r *RelayInstance) abandonAsyncHold(ctx context.Context) {
	if r.state != stateWaitingForAsyncTrigger {
		return
	}

	r.cfg.Triggerer.Deregister(ctx, r.key)

	failure := bolt4.NewTemporaryNodeFailure()
	r.cfg.Metrics.IncFailure(failureClass(failure))
	r.failAllUpstream(ctx, failure)
	r.enterStopping(ctx, false)
}

// enterResolvingBlindedPaths kicks off path resolution for a ToBlindedPaths
// instruction.
func (r *RelayInstance) enterResolvingBlindedPaths(ctx context.Context, instr *ToBlindedPaths) {
	r.state = stateResolvingBlindedPaths

	if !r.selfRef.IsSome() {
		r.abortOnInvariantViolation(ctx, newInvariantViolation(
			fmt.Errorf("no actor ref registered for blinded resolution"),
		))
		return
	}

	tellRef := r.selfRef.UnsafeFromSome()

	if err := r.cfg.BlindedResolver.Resolve(ctx, instr.Paths, tellRef); err != nil {
		r.log.Errorf("resolve blinded paths: %v", err)
	}
}

// handleBlindedResolved dispatches once paths are resolved, or fails
// upstream with UnknownNextPeer when resolution came back empty.
func (r *RelayInstance) handleBlindedResolved(ctx context.Context, msg *blindedPathsResolved) fn.Result[Response] {
	if r.state != stateResolvingBlindedPaths {
		r.abortOnInvariantViolation(ctx, newInvariantViolation(ErrUnexpectedMessage))
		return fn.Ok[Response](nil)
	}

	if msg.Err != nil || len(msg.Routes) == 0 {
		failure := bolt4.UnknownNextPeer{}
		r.cfg.Metrics.IncFailure(failureClass(failure))
		r.failAllUpstream(ctx, failure)
		r.enterStopping(ctx, false)

		return fn.Ok[Response](nil)
	}

	r.dispatch(ctx, msg.Routes)

	return fn.Ok[Response](nil)
}

// dispatch computes the DispatchPlan and spawns the outbound executor,
// entering Sending.
func (r *RelayInstance) dispatch(ctx context.Context, blindedRoutes []ResolvedBlindedRoute) {
	plan, err := buildDispatchPlan(dispatchPlanInput{
		AmountIn:           r.set.AmountIn(),
		ExpiryIn:           r.set.ExpiryIn(),
		Instructions:       r.instructions,
		BlindedRoutes:      blindedRoutes,
		MaxPaymentAttempts: r.cfg.MaxPaymentAttempts,
		RouterExperiment:   r.cfg.RouterExperiment,
	})
	if err != nil {
		failure := bolt4.UnknownNextPeer{}
		r.cfg.Metrics.IncFailure(failureClass(failure))
		r.failAllUpstream(ctx, failure)
		r.enterStopping(ctx, false)

		return
	}

	r.state = stateSending
	r.startedAt = time.Now()

	if !r.selfRef.IsSome() {
		r.abortOnInvariantViolation(ctx, newInvariantViolation(
			fmt.Errorf("no actor ref registered for dispatch"),
		))
		return
	}

	tellRef := r.selfRef.UnsafeFromSome()

	executor := r.cfg.Executors.New(r.key)
	if err := executor.Dispatch(ctx, plan, tellRef); err != nil {
		r.log.Errorf("dispatch outbound payment: %v", err)

		failure := bolt4.NewTemporaryNodeFailure()
		r.cfg.Metrics.IncFailure(failureClass(failure))
		r.failAllUpstream(ctx, failure)
		r.enterStopping(ctx, false)
	}
}

// handlePreimageReceived fulfills upstream exactly once.
func (r *RelayInstance) handlePreimageReceived(ctx context.Context, msg *outboundPreimageReceived) fn.Result[Response] {
	if r.state != stateSending {
		r.abortOnInvariantViolation(ctx, newInvariantViolation(ErrUnexpectedMessage))
		return fn.Ok[Response](nil)
	}

	r.fulfillOnce(ctx, msg.Preimage)

	return fn.Ok[Response](nil)
}

// handlePaymentSent fulfills upstream if not already done, emits the
// success event, and stops the instance.
func (r *RelayInstance) handlePaymentSent(ctx context.Context, msg *outboundPaymentSent) fn.Result[Response] {
	if r.state != stateSending {
		r.abortOnInvariantViolation(ctx, newInvariantViolation(ErrUnexpectedMessage))
		return fn.Ok[Response](nil)
	}

	r.fulfillOnce(ctx, msg.Preimage)

	incoming := make([]lnwire.MilliSatoshi, 0, r.set.Len())
	for _, htlc := range r.set.Htlcs() {
		incoming = append(incoming, htlc.Amount)
	}

	r.cfg.Events.Publish(&TrampolinePaymentRelayed{
		PaymentHash:     r.key.PaymentHash,
		IncomingParts:   incoming,
		OutgoingParts:   msg.Parts,
		RecipientNodeID: msg.RecipientNodeID,
		RecipientAmount: msg.RecipientAmount,
	})

	r.enterStopping(ctx, true)

	return fn.Ok[Response](nil)
}

// handlePaymentFailed translates the downstream failure and fails
// upstream, unless a preimage was already observed, per the
// never-fail-after-fulfill invariant.
func (r *RelayInstance) handlePaymentFailed(ctx context.Context, msg *outboundPaymentFailed) fn.Result[Response] {
	if r.state != stateSending {
		r.abortOnInvariantViolation(ctx, newInvariantViolation(ErrUnexpectedMessage))
		return fn.Ok[Response](nil)
	}

	if !r.fulfilledUpstream {
		tramp, isTrampoline := r.instructions.(*ToTrampoline)
		isBlinded := !isTrampoline

		var declaredNode route.Vertex
		if isTrampoline {
			declaredNode = tramp.OutgoingNodeID
		}

		offeredFee := r.set.AmountIn() - r.instructions.amountToForward()
		minRequired := r.cfg.MinTrampolineFee(r.instructions.amountToForward())

		failure := translateFailure(
			msg.Failures, offeredFee, minRequired,
			declaredNode, isBlinded,
		)

		r.cfg.Metrics.IncFailure(failureClass(failure))
		r.failAllUpstream(ctx, failure)
	}

	r.enterStopping(ctx, r.fulfilledUpstream)

	return fn.Ok[Response](nil)
}

// fulfillOnce fulfills every accumulated HTLC with preimage the first
// time it is called; subsequent calls (e.g. a PreimageReceived that races
// with PaymentSent) are no-ops, satisfying the idempotent-fulfill
// invariant.
func (r *RelayInstance) fulfillOnce(ctx context.Context, preimage lntypes.Preimage) {
	if r.fulfilledUpstream {
		return
	}

	r.fulfilledUpstream = true

	if err := fulfillUpstream(ctx, r.cfg.PendingCommands, r.set.Htlcs(), preimage); err != nil {
		r.log.Errorf("fulfill upstream: %v", err)
	}
}

// failAllUpstream applies reason to every accumulated HTLC. It must never
// be called once fulfilledUpstream is true.
func (r *RelayInstance) failAllUpstream(ctx context.Context, reason bolt4.FailureMessage) {
	if r.fulfilledUpstream {
		r.log.Criticalf("attempted upstream fail after fulfill: %v", reason)
		return
	}

	if err := failUpstream(ctx, r.cfg.PendingCommands, r.set.Htlcs(), reason); err != nil {
		r.log.Errorf("fail upstream: %v", err)
	}
}

// enterStopping transitions to the terminal state, records the relay
// duration if Sending was ever entered, and notifies the parent exactly
// once.
func (r *RelayInstance) enterStopping(ctx context.Context, success bool) {
	r.state = stateStopping

	if !r.startedAt.IsZero() {
		r.cfg.Metrics.ObserveRelayOutcome(
			"trampoline", success, time.Since(r.startedAt).Seconds(),
		)
	}

	r.notifyParentOnce()
}

// notifyParentOnce emits RelayComplete exactly once, even if enterStopping
// is reached more than once along different error paths.
func (r *RelayInstance) notifyParentOnce() {
	if r.completeNotified {
		return
	}

	r.completeNotified = true

	if r.cfg.Parent != nil {
		r.cfg.Parent.NotifyComplete(RelayComplete{Key: r.key})
	}
}

// abortOnInvariantViolation logs a fatal programming-invariant breach at
// Critical and stops the instance. The breach itself is not surfaced
// upstream; if the instance was not already Stopping, every accumulated
// HTLC is failed with TemporaryNodeFailure.
func (r *RelayInstance) abortOnInvariantViolation(ctx context.Context, err *invariantViolation) {
	r.log.Criticalf("%v", err)

	if r.state != stateStopping {
		r.failAllUpstream(ctx, bolt4.NewTemporaryNodeFailure())
		r.enterStopping(ctx, false)
	}

	r.stopOnce.Do(func() {
		close(r.quit)
	})
}

// failureClass returns the metrics label for a BOLT-4 failure message.
func failureClass(msg bolt4.FailureMessage) string {
	return fmt.Sprintf("%T", msg)
}
