package relay

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
)

// PaymentHash is the 32-byte identifier of the payment; the primary key
// under which the parent dispatcher finds the relay.
type PaymentHash = lntypes.Hash

// PaymentSecret is the 32-byte value carried in the outer onion of every
// inbound HTLC belonging to this MPP set.
type PaymentSecret [32]byte

// String returns the PaymentSecret as a hex string.
func (s PaymentSecret) String() string {
	return hex.EncodeToString(s[:])
}

// RelayId is an opaque unique identifier for the whole relay; it is reused
// as the outgoing payment identifier.
type RelayId [32]byte

// String returns the RelayId as a hex string.
func (r RelayId) String() string {
	return hex.EncodeToString(r[:])
}

// NewRelayId generates a fresh, uniformly random RelayId.
func NewRelayId() (RelayId, error) {
	var id RelayId
	if _, err := rand.Read(id[:]); err != nil {
		return RelayId{}, fmt.Errorf("generate relay id: %w", err)
	}

	return id, nil
}

// InstanceKey is the (payment_hash, payment_secret) pair the parent
// dispatcher must key its relay-instance map by: exactly one live instance
// exists per key over its lifetime. It is pure data so that a dispatcher
// (out of scope for this package) can use it as a map key without
// reaching into relay internals.
type InstanceKey struct {
	PaymentHash   PaymentHash
	PaymentSecret PaymentSecret
}

// ChannelID identifies the channel an HTLC arrived or will depart on. The
// concrete encoding (short channel ID vs. channel point) is owned by the
// channel register collaborator; the relay core only needs an opaque,
// comparable value to address settlement commands.
type ChannelID uint64

// IncomingHtlcRecord describes a single inbound HTLC that is part of this
// payment's upstream set.
type IncomingHtlcRecord struct {
	// HtlcID is the per-channel identifier of the HTLC.
	HtlcID uint64

	// ChannelID is the channel the HTLC arrived on.
	ChannelID ChannelID

	// Amount is the amount of this individual HTLC.
	Amount lnwire.MilliSatoshi

	// CltvExpiry is the absolute block height at which this HTLC's
	// timelock expires.
	CltvExpiry uint32

	// ReceivedAtMs is the wall-clock time (in milliseconds since epoch)
	// the HTLC arrived, used only for observability.
	ReceivedAtMs int64
}

// UpstreamSet accumulates the IncomingHtlcRecords belonging to one MPP set
// in arrival order. Once the aggregator reports completion, AmountIn and
// ExpiryIn characterize the set for validation.
type UpstreamSet struct {
	htlcs []IncomingHtlcRecord
}

// NewUpstreamSet returns an empty UpstreamSet.
func NewUpstreamSet() *UpstreamSet {
	return &UpstreamSet{}
}

// Add appends a newly arrived HTLC to the set in arrival order.
func (s *UpstreamSet) Add(htlc IncomingHtlcRecord) {
	s.htlcs = append(s.htlcs, htlc)
}

// Htlcs returns the accumulated records in arrival order. The returned
// slice must not be mutated by the caller.
func (s *UpstreamSet) Htlcs() []IncomingHtlcRecord {
	return s.htlcs
}

// Len returns the number of HTLCs accumulated so far.
func (s *UpstreamSet) Len() int {
	return len(s.htlcs)
}

// AmountIn returns the sum of all accumulated HTLC amounts.
func (s *UpstreamSet) AmountIn() lnwire.MilliSatoshi {
	var total lnwire.MilliSatoshi
	for _, htlc := range s.htlcs {
		total += htlc.Amount
	}

	return total
}

// ExpiryIn returns the minimum CltvExpiry across all accumulated HTLCs. It
// panics if the set is empty; callers must only invoke it once the
// aggregator has reported a non-empty, complete set.
func (s *UpstreamSet) ExpiryIn() uint32 {
	if len(s.htlcs) == 0 {
		panic("relay: ExpiryIn called on empty UpstreamSet")
	}

	min := s.htlcs[0].CltvExpiry
	for _, htlc := range s.htlcs[1:] {
		if htlc.CltvExpiry < min {
			min = htlc.CltvExpiry
		}
	}

	return min
}
