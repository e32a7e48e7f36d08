// Package router classifies inbound frames against the packet catalog and
// updates the shared state store.
package router

import (
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"eco-dashboard/internal/can"
	"eco-dashboard/internal/catalog"
	"eco-dashboard/internal/codec"
	"eco-dashboard/internal/store"
	"eco-dashboard/internal/telemetry"
)

// OutcomeKind classifies what routing one frame did.
type OutcomeKind int

const (
	// Updated: the frame decoded cleanly and its slot now holds the value.
	Updated OutcomeKind = iota
	// Rejected: the frame matched a descriptor but failed decoding or
	// enumerated-value validation; the slot keeps its last good value.
	Rejected
	// Unmatched: no catalog entry for the identifier. Expected and frequent
	// on a shared bus; not an error.
	Unmatched
)

func (k OutcomeKind) String() string {
	switch k {
	case Updated:
		return "updated"
	case Rejected:
		return "rejected"
	case Unmatched:
		return "unmatched"
	}
	return "unknown"
}

// Outcome reports the result of routing a single frame.
type Outcome struct {
	Kind OutcomeKind
	ID   uint32
	Name string // descriptor name, empty for Unmatched
	Err  error  // decode/validation fault for Rejected
}

// Counters are running totals per outcome class.
type Counters struct {
	Updated   uint64 `json:"updated"`
	Rejected  uint64 `json:"rejected"`
	Unmatched uint64 `json:"unmatched"`
}

// Router maps frames to catalog entries and writes decoded records into the
// store. Safe for concurrent use; the catalog is read-only and slot locking
// happens inside the store.
type Router struct {
	cat   *catalog.Catalog
	store *store.Store
	log   zerolog.Logger

	updated   atomic.Uint64
	rejected  atomic.Uint64
	unmatched atomic.Uint64
}

// New creates a router over the given catalog and store.
func New(cat *catalog.Catalog, st *store.Store, log zerolog.Logger) *Router {
	return &Router{
		cat:   cat,
		store: st,
		log:   log.With().Str("component", "router").Logger(),
	}
}

// Route classifies one frame. Faults are absorbed here: a malformed frame
// never propagates an error to the caller's receive loop.
func (r *Router) Route(f can.Frame) Outcome {
	d, ok := r.cat.Lookup(f.ID)
	if !ok {
		r.unmatched.Add(1)
		r.log.Debug().Uint32("id", f.ID).Msg("unmatched identifier")
		return Outcome{Kind: Unmatched, ID: f.ID}
	}

	rec := d.New()
	if err := codec.Decode(f.Payload(), rec); err != nil {
		r.rejected.Add(1)
		r.log.Warn().Err(err).Str("packet", d.Name).Uint32("id", f.ID).
			Uint8("len", f.Length).Msg("frame rejected")
		return Outcome{Kind: Rejected, ID: f.ID, Name: d.Name, Err: err}
	}

	// Byte-coded state fields must match an enumerated pattern before the
	// slot is touched. An invalid pattern means an upstream board is out of
	// contract, so it logs louder than a plain decode fault.
	if v, ok := rec.(telemetry.Validator); ok {
		if err := v.Validate(); err != nil {
			r.rejected.Add(1)
			r.log.Error().Err(err).Str("packet", d.Name).Uint32("id", f.ID).
				Msg("out-of-contract state value")
			return Outcome{Kind: Rejected, ID: f.ID, Name: d.Name, Err: err}
		}
	}

	r.store.Write(d.ID, rec)
	r.updated.Add(1)
	return Outcome{Kind: Updated, ID: f.ID, Name: d.Name}
}

// Counters returns a snapshot of the outcome totals.
func (r *Router) Counters() Counters {
	return Counters{
		Updated:   r.updated.Load(),
		Rejected:  r.rejected.Load(),
		Unmatched: r.unmatched.Load(),
	}
}

// IsInvalidState reports whether a Rejected outcome was caused by an
// out-of-contract enumerated value rather than a malformed payload.
func IsInvalidState(o Outcome) bool {
	return o.Kind == Rejected && errors.Is(o.Err, telemetry.ErrInvalidState)
}
