package relay

import (
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// blockInterval is the assumed average time between blocks, used to turn
// a block-height bound into a wall-clock duration for the injectable
// clock. It does not need to be exact: the hold is re-derived from chain
// height by the triggerer in a real deployment; this bound only protects
// against the triggerer never reporting back.
const blockInterval = 10 * time.Minute

// asyncHoldBound computes the wall-clock duration this instance may wait
// in WaitingForAsyncTrigger before giving up, per §5: the minimum of the
// node's configured hold timeout and the time remaining until
// cancelSafetyDelta blocks before the upstream set's earliest expiry.
func asyncHoldBound(
	holdTimeout time.Duration,
	currentBlockHeight uint32,
	upstreamExpiry uint32,
	cancelSafetyDelta uint32,
) time.Duration {

	deadlineHeight := upstreamExpiry - cancelSafetyDelta
	if deadlineHeight <= currentBlockHeight {
		return 0
	}

	remainingBlocks := deadlineHeight - currentBlockHeight
	remaining := time.Duration(remainingBlocks) * blockInterval

	if remaining < holdTimeout {
		return remaining
	}

	return holdTimeout
}

// armAsyncHoldTimer starts a one-shot timer bounding the
// WaitingForAsyncTrigger state, built on the injectable clock so tests can
// control it deterministically instead of sleeping in real time. The
// returned channel receives exactly one tick once d elapses on clk.
func armAsyncHoldTimer(clk clock.Clock, d time.Duration) <-chan time.Time {
	return clk.TickAfter(d)
}
