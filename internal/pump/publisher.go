package pump

import (
	"fmt"

	"eco-dashboard/internal/can"
	"eco-dashboard/internal/catalog"
	"eco-dashboard/internal/codec"
	"eco-dashboard/internal/store"
)

// Publisher turns a store slot's current value into an outbound frame. The
// cadence is the caller's choice; each publish is bounded by one slot lock,
// one encode and one byte copy.
type Publisher struct {
	cat   *catalog.Catalog
	store *store.Store
}

// NewPublisher creates a publisher over the given catalog and store.
func NewPublisher(cat *catalog.Catalog, st *store.Store) *Publisher {
	return &Publisher{cat: cat, store: st}
}

// Encode writes the slot's current value into dst as the descriptor's
// declared number of big-endian bytes and returns that count. The slot lock
// is released before encoding; the snapshot is private to this call.
func (p *Publisher) Encode(id uint32, dst []byte) (int, error) {
	d, ok := p.cat.Lookup(id)
	if !ok {
		return 0, fmt.Errorf("publish: no descriptor for identifier 0x%03X", id)
	}
	rec, ok := p.store.Read(id)
	if !ok {
		return 0, fmt.Errorf("publish: no slot for identifier 0x%03X", id)
	}
	return codec.Encode(rec, d.Length, dst)
}

// Frame builds a complete outbound frame for the identifier.
func (p *Publisher) Frame(id uint32) (can.Frame, error) {
	d, ok := p.cat.Lookup(id)
	if !ok {
		return can.Frame{}, fmt.Errorf("publish: no descriptor for identifier 0x%03X", id)
	}
	f := can.Frame{ID: id, Extended: id > can.MaxStandardID, Length: d.Length}
	if _, err := p.Encode(id, f.Data[:]); err != nil {
		return can.Frame{}, err
	}
	return f, nil
}
