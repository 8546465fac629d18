package relay

import (
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/relay/bolt4"
	"github.com/lightningnetwork/lnd/routing/route"
	"github.com/stretchr/testify/require"
)

func TestTranslateFailureNoAttempts(t *testing.T) {
	result := translateFailure(nil, 10_000, 1_000, route.Vertex{0x01}, false)
	require.IsType(t, bolt4.TemporaryNodeFailure{}, result)
}

func TestTranslateFailureBalanceTooLowHighFeeBudget(t *testing.T) {
	failures := []attemptFailure{{Local: localFailureBalanceTooLow}}

	result := translateFailure(failures, 10_000, 1_000, route.Vertex{0x01}, false)
	require.IsType(t, bolt4.TemporaryNodeFailure{}, result)
}

func TestTranslateFailureBalanceTooLowLowFeeBudget(t *testing.T) {
	failures := []attemptFailure{{Local: localFailureBalanceTooLow}}

	result := translateFailure(failures, 1_500, 1_000, route.Vertex{0x01}, false)
	require.IsType(t, bolt4.TrampolineFeeInsufficient{}, result)
}

func TestTranslateFailureRouteNotFound(t *testing.T) {
	failures := []attemptFailure{
		{Local: localFailureRouteNotFound},
		{Local: localFailureBalanceTooLow},
	}

	result := translateFailure(failures, 10_000, 1_000, route.Vertex{0x01}, false)
	require.IsType(t, bolt4.TrampolineFeeInsufficient{}, result)
}

func TestTranslateFailureRemoteAttributableToDeclaredNode(t *testing.T) {
	declared := route.Vertex{0x02}
	remoteMsg := bolt4.UnknownNextPeer{}

	failures := []attemptFailure{
		{Remote: &DecryptedFailure{
			Source:  fn.Some(declared),
			Message: remoteMsg,
		}},
	}

	result := translateFailure(failures, 10_000, 1_000, declared, false)
	require.Equal(t, remoteMsg, result)
}

func TestTranslateFailureRemoteNotAttributableFallsThroughToRemote(t *testing.T) {
	declared := route.Vertex{0x02}
	beyondNode := route.Vertex{0x03}
	remoteMsg := bolt4.IncorrectOrUnknownPaymentDetails{HtlcMsat: 100}

	failures := []attemptFailure{
		{Remote: &DecryptedFailure{
			Source:  fn.Some(beyondNode),
			Message: remoteMsg,
		}},
	}

	result := translateFailure(failures, 10_000, 1_000, declared, false)
	require.Equal(t, remoteMsg, result)
}

func TestTranslateFailureBlindedNeverLeaksRemoteMessage(t *testing.T) {
	declared := route.Vertex{0x02}
	beyondNode := route.Vertex{0x03}
	remoteMsg := bolt4.IncorrectOrUnknownPaymentDetails{HtlcMsat: 100}

	failures := []attemptFailure{
		{Remote: &DecryptedFailure{
			Source:  fn.Some(beyondNode),
			Message: remoteMsg,
		}},
	}

	result := translateFailure(failures, 10_000, 1_000, declared, true)
	require.IsType(t, bolt4.TemporaryNodeFailure{}, result)
}

func TestTranslateFailureNoRemoteNoLocalFallsBackToTemporary(t *testing.T) {
	failures := []attemptFailure{{Local: localFailureNone}}

	result := translateFailure(failures, 10_000, 1_000, route.Vertex{0x01}, false)
	require.IsType(t, bolt4.TemporaryNodeFailure{}, result)
}
