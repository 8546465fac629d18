package relay

import (
	"context"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/relay/bolt4"
)

// defaultFailureReason returns the BOLT-4 message used whenever the
// caller has no more specific reason on hand, e.g. on an MPP-aggregation
// timeout.
func defaultFailureReason(amountIn uint64, currentHeight uint32) bolt4.FailureMessage {
	return bolt4.IncorrectOrUnknownPaymentDetails{
		HtlcMsat: amountIn,
		Height:   currentHeight,
	}
}

// fulfillUpstream implements the fulfill half of §4.5: the fulfill
// decision for every HTLC of the set is handed to the pending-commands
// store via RecordFulfill; this function makes no call to the Register.
// It returns the first persistence error encountered, if any, but still
// attempts every HTLC.
func fulfillUpstream(
	ctx context.Context,
	store PendingCommandsStore,
	htlcs []IncomingHtlcRecord,
	preimage lntypes.Preimage,
) error {

	var firstErr error
	for _, htlc := range htlcs {
		if err := store.RecordFulfill(ctx, htlc, preimage); err != nil {
			log.Errorf("persist fulfill for htlc %d on channel %d: %v",
				htlc.HtlcID, htlc.ChannelID, err)

			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// failUpstream implements the fail half of §4.5: the fail decision,
// carrying reason, for every HTLC of the set is handed to the
// pending-commands store via RecordFail; this function makes no call to
// the Register.
func failUpstream(
	ctx context.Context,
	store PendingCommandsStore,
	htlcs []IncomingHtlcRecord,
	reason bolt4.FailureMessage,
) error {

	var firstErr error
	for _, htlc := range htlcs {
		failure := DecryptedFailure{Message: reason}
		if err := store.RecordFail(ctx, htlc, failure); err != nil {
			log.Errorf("persist fail for htlc %d on channel %d: %v",
				htlc.HtlcID, htlc.ChannelID, err)

			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// failStrayHtlc implements the "extra HTLC" case of §4.5: a late arrival
// after the set was already closed is failed on its own, without
// affecting any other HTLC of the relay.
func failStrayHtlc(
	ctx context.Context,
	store PendingCommandsStore,
	htlc IncomingHtlcRecord,
	amountIn uint64,
	currentHeight uint32,
) error {

	failure := DecryptedFailure{Message: defaultFailureReason(amountIn, currentHeight)}
	return store.RecordFail(ctx, htlc, failure)
}
