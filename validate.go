package relay

import (
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/relay/bolt4"
)

// MinTrampolineFeeFunc computes the minimum fee, in millisatoshis, this
// node requires to forward amountToForward onward. Node configuration
// supplies the concrete policy (flat + proportional, or a fee schedule
// keyed by outgoing channel); the validator only needs the result.
type MinTrampolineFeeFunc func(amountToForward lnwire.MilliSatoshi) lnwire.MilliSatoshi

// validationInput bundles everything the validation chain needs to reach
// a verdict: the characterized inbound set, the decoded instructions, and
// the node policy values that bound acceptable fee/expiry.
type validationInput struct {
	AmountIn           lnwire.MilliSatoshi
	ExpiryIn           uint32
	CurrentBlockHeight uint32
	ChannelExpiryDelta uint32
	MinTrampolineFee   MinTrampolineFeeFunc
	Instructions       RelayInstructions
}

// validate runs the §4.2 validation chain in order and returns the first
// failing BOLT-4 message, or nil if every check passes.
func validate(in validationInput) bolt4.FailureMessage {
	amountOut := in.Instructions.amountToForward()
	outgoingCltv := in.Instructions.outgoingCltv()

	// 1. Fee sufficiency.
	if in.AmountIn < amountOut {
		return bolt4.TrampolineFeeInsufficient{}
	}
	fee := in.AmountIn - amountOut
	if fee < in.MinTrampolineFee(amountOut) {
		return bolt4.TrampolineFeeInsufficient{}
	}

	// 2. Expiry delta sufficiency.
	if in.ExpiryIn < outgoingCltv {
		return bolt4.TrampolineExpiryTooSoon{}
	}
	if in.ExpiryIn-outgoingCltv < in.ChannelExpiryDelta {
		return bolt4.TrampolineExpiryTooSoon{}
	}

	// 3. Outgoing CLTV not in the past.
	if outgoingCltv <= in.CurrentBlockHeight {
		return bolt4.TrampolineExpiryTooSoon{}
	}

	// 4. Positive forward amount.
	if amountOut == 0 {
		return bolt4.InvalidOnionPayload{Tag: 2, Offset: 0}
	}

	// 5. Payment-secret presence for non-trampoline forwarding.
	if tramp, ok := in.Instructions.(*ToTrampoline); ok {
		if tramp.InvoiceFeatures != nil && tramp.PaymentSecret == nil {
			return bolt4.InvalidOnionPayload{Tag: 8, Offset: 0}
		}
	}

	return nil
}
