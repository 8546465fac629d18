package relay

import (
	"testing"

	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
	"github.com/stretchr/testify/require"
)

func TestBuildDispatchPlanTrampolineHop(t *testing.T) {
	nextHop := route.Vertex{0x01}

	plan, err := buildDispatchPlan(dispatchPlanInput{
		AmountIn: 1_000_000,
		ExpiryIn: 800_080,
		Instructions: &ToTrampoline{
			OutgoingNodeID: nextHop,
			AmountOut:      990_000,
			OutgoingCltv:   800_040,
			NextOnion:      []byte{0xde, 0xad},
		},
		MaxPaymentAttempts: 5,
	})
	require.NoError(t, err)

	require.Equal(t, nextHop, plan.Recipient)
	require.True(t, plan.UseMultiPart)
	require.Equal(t, []byte{0xde, 0xad}, plan.TrampolineOnion)
	require.Equal(t, lnwire.MilliSatoshi(10_000), plan.RouteParams.MaxFlatFee)
	require.Equal(t, uint32(40), plan.RouteParams.MaxCltv)
	require.Equal(t, nextHop, plan.SendConfig.DisplayNodeID)
	require.Equal(t, 5, plan.SendConfig.MaxPaymentAttempts)

	// Probing protection: the outgoing secret is freshly generated, not
	// left at the zero value.
	require.NotEqual(t, PaymentSecret{}, plan.PaymentSecret)
}

func TestBuildDispatchPlanNonTrampolineHandoff(t *testing.T) {
	recipient := route.Vertex{0x02}
	secret := PaymentSecret{0xAA}

	plan, err := buildDispatchPlan(dispatchPlanInput{
		AmountIn: 1_000_000,
		ExpiryIn: 800_080,
		Instructions: &ToTrampoline{
			OutgoingNodeID:     recipient,
			AmountOut:          990_000,
			OutgoingCltv:       800_040,
			InvoiceFeatures:    lnwire.NewFeatureVector(nil, nil),
			InvoiceRoutingInfo: []RoutingInfoHint{{NextNode: recipient}},
			PaymentSecret:      &secret,
			PaymentMetadata:    []byte("meta"),
		},
		MaxPaymentAttempts: 5,
	})
	require.NoError(t, err)

	require.Equal(t, recipient, plan.Recipient)
	require.False(t, plan.UseMultiPart)
	require.Equal(t, secret, plan.PaymentSecret)
	require.Equal(t, []byte("meta"), plan.PaymentMetadata)
	require.Len(t, plan.RoutingHints, 1)
}

func TestBuildDispatchPlanNonTrampolineHandoffRequiresPaymentSecret(t *testing.T) {
	_, err := buildDispatchPlan(dispatchPlanInput{
		AmountIn: 1_000_000,
		ExpiryIn: 800_080,
		Instructions: &ToTrampoline{
			OutgoingNodeID:  route.Vertex{0x03},
			AmountOut:       990_000,
			OutgoingCltv:    800_040,
			InvoiceFeatures: lnwire.NewFeatureVector(nil, nil),
		},
		MaxPaymentAttempts: 5,
	})
	require.ErrorIs(t, err, ErrMissingPaymentSecret)
}

func TestBuildDispatchPlanBlindedPaths(t *testing.T) {
	introNode := route.Vertex{0x04}
	lastHopNode := route.Vertex{0x05}

	routes := []ResolvedBlindedRoute{
		{IntroductionNode: introNode, LastHopNode: lastHopNode},
	}

	plan, err := buildDispatchPlan(dispatchPlanInput{
		AmountIn: 1_000_000,
		ExpiryIn: 800_080,
		Instructions: &ToBlindedPaths{
			AmountOut:    990_000,
			OutgoingCltv: 800_040,
			Paths: []BlindedPathDescriptor{
				{IntroductionNode: introNode},
			},
		},
		BlindedRoutes:      routes,
		MaxPaymentAttempts: 5,
	})
	require.NoError(t, err)

	require.Equal(t, routes, plan.BlindedRoutes)
	require.Equal(t, lastHopNode, plan.Recipient)

	// Display identity must never be the real next hop, the
	// introduction node, or the zero value.
	require.NotEqual(t, lastHopNode, plan.SendConfig.DisplayNodeID)
	require.NotEqual(t, introNode, plan.SendConfig.DisplayNodeID)
	require.NotEqual(t, route.Vertex{}, plan.SendConfig.DisplayNodeID)
}

func TestBuildDispatchPlanBlindedPathsEmptyResolution(t *testing.T) {
	_, err := buildDispatchPlan(dispatchPlanInput{
		AmountIn: 1_000_000,
		ExpiryIn: 800_080,
		Instructions: &ToBlindedPaths{
			AmountOut:    990_000,
			OutgoingCltv: 800_040,
		},
		BlindedRoutes:      nil,
		MaxPaymentAttempts: 5,
	})
	require.ErrorIs(t, err, ErrEmptyBlindedResolution)
}

func TestRandomPaymentSecretDrawsDiffer(t *testing.T) {
	a, err := randomPaymentSecret()
	require.NoError(t, err)

	b, err := randomPaymentSecret()
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}
