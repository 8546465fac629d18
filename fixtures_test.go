package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/lightningnetwork/lnd/actor"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/routing/route"
)

// fakeAggregator is a minimal in-memory Aggregator used by instance tests.
// Completion is driven explicitly by the test via the Triggerer-style
// direct Tell of htlcSetComplete/htlcSetFailed, since the real MPP-total
// policy lives outside this package.
type fakeAggregator struct {
	mu   sync.Mutex
	sets map[InstanceKey]*UpstreamSet
}

func newFakeAggregator() *fakeAggregator {
	return &fakeAggregator{sets: make(map[InstanceKey]*UpstreamSet)}
}

func (a *fakeAggregator) AddHtlc(_ context.Context, key InstanceKey,
	htlc IncomingHtlcRecord) (int, error) {

	a.mu.Lock()
	defer a.mu.Unlock()

	set, ok := a.sets[key]
	if !ok {
		set = NewUpstreamSet()
		a.sets[key] = set
	}
	set.Add(htlc)

	return set.Len(), nil
}

func (a *fakeAggregator) Set(_ context.Context,
	key InstanceKey) (*UpstreamSet, error) {

	a.mu.Lock()
	defer a.mu.Unlock()

	set, ok := a.sets[key]
	if !ok {
		return NewUpstreamSet(), nil
	}

	return set, nil
}

// fakeRegister is a fixed-policy Register.
type fakeRegister struct {
	self               route.Vertex
	channelExpiryDelta uint32
}

func (r *fakeRegister) SelfNode() route.Vertex { return r.self }

func (r *fakeRegister) ChannelExpiryDelta() uint32 { return r.channelExpiryDelta }

// fakeCommandsStore records every fulfill/fail decision handed to it.
// failFulfillFor optionally injects a persistence error for specific HTLC
// IDs, to exercise the "attempt every HTLC, report the first error" path.
type fakeCommandsStore struct {
	mu             sync.Mutex
	fulfilled      []fakeFulfill
	failed         []fakeFail
	failFulfillFor map[uint64]bool
}

type fakeFulfill struct {
	Htlc     IncomingHtlcRecord
	Preimage lntypes.Preimage
}

type fakeFail struct {
	Htlc    IncomingHtlcRecord
	Failure DecryptedFailure
}

func newFakeCommandsStore() *fakeCommandsStore {
	return &fakeCommandsStore{}
}

func (s *fakeCommandsStore) RecordFulfill(_ context.Context,
	htlc IncomingHtlcRecord, preimage lntypes.Preimage) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failFulfillFor[htlc.HtlcID] {
		return fmt.Errorf("fakeCommandsStore: injected failure for htlc %d", htlc.HtlcID)
	}

	s.fulfilled = append(s.fulfilled, fakeFulfill{htlc, preimage})

	return nil
}

func (s *fakeCommandsStore) RecordFail(_ context.Context,
	htlc IncomingHtlcRecord, failure DecryptedFailure) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.failed = append(s.failed, fakeFail{htlc, failure})

	return nil
}

func (s *fakeCommandsStore) snapshot() ([]fakeFulfill, []fakeFail) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fulfilled := make([]fakeFulfill, len(s.fulfilled))
	copy(fulfilled, s.fulfilled)

	failed := make([]fakeFail, len(s.failed))
	copy(failed, s.failed)

	return fulfilled, failed
}

// fakeExecutor is a scripted OutboundExecutor: Dispatch hands the plan to a
// test-supplied callback on its own goroutine, so the reply travels back
// through the real actor mailbox rather than a direct call.
type fakeExecutor struct {
	onDispatch func(ctx context.Context, plan DispatchPlan,
		replyTo actor.TellOnlyRef[Message])
}

func (e *fakeExecutor) Dispatch(ctx context.Context, plan DispatchPlan,
	replyTo actor.TellOnlyRef[Message]) error {

	go e.onDispatch(ctx, plan, replyTo)

	return nil
}

// fakeExecutorFactory hands out a single shared fakeExecutor regardless of
// key, recording the keys it was asked to build for.
type fakeExecutorFactory struct {
	mu       sync.Mutex
	executor OutboundExecutor
	keys     []InstanceKey
}

func (f *fakeExecutorFactory) New(key InstanceKey) OutboundExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.keys = append(f.keys, key)

	return f.executor
}

// fakeTriggerer lets a test fire or withhold the async trigger for a
// registered instance on demand.
type fakeTriggerer struct {
	mu           sync.Mutex
	registered   map[InstanceKey]actor.TellOnlyRef[Message]
	deregistered map[InstanceKey]bool
}

func newFakeTriggerer() *fakeTriggerer {
	return &fakeTriggerer{
		registered:   make(map[InstanceKey]actor.TellOnlyRef[Message]),
		deregistered: make(map[InstanceKey]bool),
	}
}

func (t *fakeTriggerer) Register(_ context.Context, key InstanceKey,
	replyTo actor.TellOnlyRef[Message]) error {

	t.mu.Lock()
	defer t.mu.Unlock()

	t.registered[key] = replyTo

	return nil
}

func (t *fakeTriggerer) Deregister(_ context.Context, key InstanceKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.deregistered[key] = true
}

func (t *fakeTriggerer) fire(ctx context.Context, key InstanceKey) bool {
	t.mu.Lock()
	ref, ok := t.registered[key]
	t.mu.Unlock()

	if !ok {
		return false
	}

	ref.Tell(ctx, &asyncTriggerFired{})

	return true
}

func (t *fakeTriggerer) cancel(ctx context.Context, key InstanceKey) bool {
	t.mu.Lock()
	ref, ok := t.registered[key]
	t.mu.Unlock()

	if !ok {
		return false
	}

	ref.Tell(ctx, &asyncTriggerCanceled{})

	return true
}

// fakeBlindedResolver replies with a scripted result on every Resolve call.
type fakeBlindedResolver struct {
	routes []ResolvedBlindedRoute
	err    error
}

func (r *fakeBlindedResolver) Resolve(ctx context.Context,
	_ []BlindedPathDescriptor, replyTo actor.TellOnlyRef[Message]) error {

	go replyTo.Tell(ctx, &blindedPathsResolved{
		Routes: r.routes,
		Err:    r.err,
	})

	return nil
}

// fakeEventBus records every published InstanceEvent.
type fakeEventBus struct {
	mu     sync.Mutex
	events []InstanceEvent
}

func newFakeEventBus() *fakeEventBus {
	return &fakeEventBus{}
}

func (b *fakeEventBus) Publish(event InstanceEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)
}

func (b *fakeEventBus) snapshot() []InstanceEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]InstanceEvent, len(b.events))
	copy(out, b.events)

	return out
}

// fakeParentNotifier records RelayComplete notifications.
type fakeParentNotifier struct {
	mu      sync.Mutex
	notices []RelayComplete
}

func newFakeParentNotifier() *fakeParentNotifier {
	return &fakeParentNotifier{}
}

func (p *fakeParentNotifier) NotifyComplete(msg RelayComplete) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.notices = append(p.notices, msg)
}

func (p *fakeParentNotifier) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.notices)
}
