// Package relay implements the trampoline node-relay core: the per-payment
// state machine that receives an inbound multi-part HTLC set addressed to
// this node as a trampoline hop, validates the embedded relay instructions,
// and dispatches an outbound payment that carries the funds one hop further
// along the trampoline chain, to a non-trampoline recipient, or to a set of
// blinded paths.
//
// A RelayInstance is created by a parent dispatcher (out of scope for this
// package) for every new (payment_hash, payment_secret) pair, runs as an
// actor.Actor with a private mailbox, and is torn down once the parent has
// been notified of completion. Routing, onion parsing, channel-register
// access, persistence, event publication, metrics sinks, the async-payment
// triggerer, and the blinded-path resolver are all external collaborators
// reached through the narrow interfaces in collaborators.go.
package relay
