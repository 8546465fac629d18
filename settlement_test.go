package relay

import (
	"context"
	"testing"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/relay/bolt4"
	"github.com/stretchr/testify/require"
)

func TestDefaultFailureReason(t *testing.T) {
	reason := defaultFailureReason(1_000_000, 800_080)

	failure, ok := reason.(bolt4.IncorrectOrUnknownPaymentDetails)
	require.True(t, ok)
	require.Equal(t, uint64(1_000_000), failure.HtlcMsat)
	require.Equal(t, uint32(800_080), failure.Height)
}

func TestFulfillUpstreamPersistsEveryHtlc(t *testing.T) {
	store := newFakeCommandsStore()
	htlcs := []IncomingHtlcRecord{
		{HtlcID: 1, ChannelID: 100},
		{HtlcID: 2, ChannelID: 101},
	}
	preimage := lntypes.Preimage{0x01}

	err := fulfillUpstream(context.Background(), store, htlcs, preimage)
	require.NoError(t, err)

	fulfilled, _ := store.snapshot()
	require.Len(t, fulfilled, 2)
	require.Equal(t, preimage, fulfilled[0].Preimage)
	require.Equal(t, preimage, fulfilled[1].Preimage)
}

func TestFulfillUpstreamReportsFirstErrorButAttemptsAll(t *testing.T) {
	store := newFakeCommandsStore()
	store.failFulfillFor = map[uint64]bool{1: true}
	htlcs := []IncomingHtlcRecord{
		{HtlcID: 1, ChannelID: 100},
		{HtlcID: 2, ChannelID: 101},
	}

	err := fulfillUpstream(context.Background(), store, htlcs, lntypes.Preimage{})
	require.Error(t, err)

	fulfilled, _ := store.snapshot()
	require.Len(t, fulfilled, 1)
	require.Equal(t, uint64(2), fulfilled[0].Htlc.HtlcID)
}

func TestFailUpstreamPersistsEveryHtlcWithReason(t *testing.T) {
	store := newFakeCommandsStore()
	htlcs := []IncomingHtlcRecord{
		{HtlcID: 5, ChannelID: 200},
		{HtlcID: 6, ChannelID: 201},
	}
	reason := bolt4.TrampolineFeeInsufficient{}

	err := failUpstream(context.Background(), store, htlcs, reason)
	require.NoError(t, err)

	_, failed := store.snapshot()
	require.Len(t, failed, 2)
	require.Equal(t, reason, failed[0].Failure.Message)
	require.Equal(t, reason, failed[1].Failure.Message)
}

func TestFailStrayHtlcUsesDefaultFailureReason(t *testing.T) {
	store := newFakeCommandsStore()
	htlc := IncomingHtlcRecord{HtlcID: 99, ChannelID: 300}

	err := failStrayHtlc(context.Background(), store, htlc, 500_000, 800_100)
	require.NoError(t, err)

	_, failed := store.snapshot()
	require.Len(t, failed, 1)

	failure, ok := failed[0].Failure.Message.(bolt4.IncorrectOrUnknownPaymentDetails)
	require.True(t, ok)
	require.Equal(t, uint64(500_000), failure.HtlcMsat)
	require.Equal(t, uint32(800_100), failure.Height)
}
