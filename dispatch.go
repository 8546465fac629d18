package relay

import (
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/routing/route"
)

// RouteParams bounds the outbound route search, mirroring the fields
// routing.LightningPayment exposes to the router.
type RouteParams struct {
	MaxFlatFee              lnwire.MilliSatoshi
	MaxProportionalFee      float64
	MaxCltv                 uint32
	IncludeLocalChannelCost bool
}

// SendPaymentConfig carries the outbound-executor knobs the relay must set
// on every dispatch regardless of recipient kind.
type SendPaymentConfig struct {
	StoreInDB                bool
	PublishEvent              bool
	RecordPathFindingMetrics bool
	DisplayNodeID            route.Vertex
	MaxPaymentAttempts       int
}

// DispatchPlan is the fully-resolved, side-effect-free description of one
// outbound payment attempt, computed by buildDispatchPlan and handed to
// an OutboundExecutor unchanged.
type DispatchPlan struct {
	Recipient       route.Vertex
	UseMultiPart    bool
	RouteParams     RouteParams
	SendConfig      SendPaymentConfig
	PaymentSecret   PaymentSecret
	PaymentMetadata []byte
	TrampolineOnion []byte
	RoutingHints    []RoutingInfoHint
	BlindedRoutes   []ResolvedBlindedRoute
}

// RouterExperimentConfig carries the randomized path-finding parameters
// the router's experiment configuration supplies; the relay only forwards
// them into RouteParams, it never interprets them.
type RouterExperimentConfig struct {
	MaxProportionalFee float64
}

// dispatchPlanInput bundles everything buildDispatchPlan needs: the
// characterized inbound set, the validated instructions, node policy
// (max payment attempts), and, for ToBlindedPaths, the resolver's output.
type dispatchPlanInput struct {
	AmountIn            lnwire.MilliSatoshi
	ExpiryIn            uint32
	Instructions        RelayInstructions
	BlindedRoutes       []ResolvedBlindedRoute
	MaxPaymentAttempts  int
	RouterExperiment    RouterExperimentConfig
}

// buildDispatchPlan is the pure function at the heart of §4.3: given
// validated instructions and (for blinded forwarding) resolved routes, it
// derives the route parameters and recipient/multi-part selection with no
// side effects, so it can be unit tested without any collaborator.
func buildDispatchPlan(in dispatchPlanInput) (DispatchPlan, error) {
	amountOut := in.Instructions.amountToForward()
	outgoingCltv := in.Instructions.outgoingCltv()

	routeParams := RouteParams{
		MaxFlatFee:              in.AmountIn - amountOut,
		MaxProportionalFee:      0,
		MaxCltv:                 in.ExpiryIn - outgoingCltv,
		IncludeLocalChannelCost: true,
	}
	routeParams.MaxProportionalFee = in.RouterExperiment.MaxProportionalFee

	switch instr := in.Instructions.(type) {
	case *ToTrampoline:
		return buildTrampolinePlan(instr, routeParams, in.MaxPaymentAttempts)

	case *ToBlindedPaths:
		return buildBlindedPlan(instr, in.BlindedRoutes, routeParams, in.MaxPaymentAttempts)

	default:
		return DispatchPlan{}, fmt.Errorf("relay: unknown instructions type %T", instr)
	}
}

func buildTrampolinePlan(
	instr *ToTrampoline,
	routeParams RouteParams,
	maxAttempts int,
) (DispatchPlan, error) {

	if instr.IsTrampolineHop() {
		// Clear recipient is the next trampoline node; generate a
		// fresh random payment secret for probing protection and
		// carry the sender's next onion unmodified.
		secret, err := randomPaymentSecret()
		if err != nil {
			return DispatchPlan{}, err
		}

		return DispatchPlan{
			Recipient:       instr.OutgoingNodeID,
			UseMultiPart:    true,
			RouteParams:     routeParams,
			PaymentSecret:   secret,
			TrampolineOnion: instr.NextOnion,
			SendConfig: SendPaymentConfig{
				RecordPathFindingMetrics: true,
				DisplayNodeID:            instr.OutgoingNodeID,
				MaxPaymentAttempts:       maxAttempts,
			},
		}, nil
	}

	// Hand-off to a non-trampoline final recipient: use the sender's
	// own payment secret and metadata, extended with the routing hints
	// carried in the onion payload.
	if instr.PaymentSecret == nil {
		return DispatchPlan{}, ErrMissingPaymentSecret
	}

	return DispatchPlan{
		Recipient:       instr.OutgoingNodeID,
		UseMultiPart:    instr.InvoiceFeatures.HasFeature(lnwire.MPPOptional),
		RouteParams:     routeParams,
		PaymentSecret:   *instr.PaymentSecret,
		PaymentMetadata: instr.PaymentMetadata,
		RoutingHints:    instr.InvoiceRoutingInfo,
		SendConfig: SendPaymentConfig{
			RecordPathFindingMetrics: true,
			DisplayNodeID:            instr.OutgoingNodeID,
			MaxPaymentAttempts:       maxAttempts,
		},
	}, nil
}

func buildBlindedPlan(
	instr *ToBlindedPaths,
	routes []ResolvedBlindedRoute,
	routeParams RouteParams,
	maxAttempts int,
) (DispatchPlan, error) {

	if len(routes) == 0 {
		return DispatchPlan{}, ErrEmptyBlindedResolution
	}

	displayNode, err := randomDisplayNode()
	if err != nil {
		return DispatchPlan{}, err
	}

	useMultiPart := false
	if instr.InvoiceFeatures != nil {
		useMultiPart = instr.InvoiceFeatures.HasFeature(lnwire.MPPOptional)
	}

	return DispatchPlan{
		// Recipient is the first resolved path's last blinded node;
		// routing itself goes through BlindedRoutes, and the logged
		// display identity is the random DisplayNodeID below.
		Recipient:     routes[0].LastHopNode,
		UseMultiPart:  useMultiPart,
		RouteParams:   routeParams,
		BlindedRoutes: routes,
		SendConfig: SendPaymentConfig{
			RecordPathFindingMetrics: true,
			DisplayNodeID:            displayNode,
			MaxPaymentAttempts:       maxAttempts,
		},
	}, nil
}

// randomPaymentSecret returns a uniformly random 32-byte payment secret,
// used for the trampoline-to-trampoline probing-protection leg.
func randomPaymentSecret() (PaymentSecret, error) {
	var secret PaymentSecret
	if _, err := rand.Read(secret[:]); err != nil {
		return PaymentSecret{}, fmt.Errorf("generate payment secret: %w", err)
	}

	return secret, nil
}

// randomDisplayNode returns a freshly generated public key to use as the
// logged recipient identity for a blinded-path dispatch, so the true next
// hop never leaks into logs or metrics.
func randomDisplayNode() (route.Vertex, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return route.Vertex{}, fmt.Errorf("generate display node key: %w", err)
	}

	return route.NewVertexFromBytes(priv.PubKey().SerializeCompressed())
}
