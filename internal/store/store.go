// Package store holds the most recently decoded record for every catalog
// entry. Each slot is independently lock-protected so writers to different
// slots never block each other, and a critical section only ever covers a
// copy or replace, never I/O.
package store

import (
	"reflect"
	"sync"
	"time"

	"eco-dashboard/internal/catalog"
)

// slot pairs one descriptor's current value with its mutex. The value is a
// pointer to a record struct; it is replaced wholesale on write and cloned
// on read, so callers never share a live reference.
type slot struct {
	mu      sync.Mutex
	value   any
	updated time.Time
}

// Store is the shared telemetry state. Create it once at startup and inject
// it into every task that reads or writes telemetry.
type Store struct {
	slots map[uint32]*slot
}

// New creates a store with one zero-valued slot per catalog descriptor.
func New(c *catalog.Catalog) *Store {
	s := &Store{slots: make(map[uint32]*slot, c.Len())}
	for _, d := range c.Descriptors() {
		s.slots[d.ID] = &slot{value: d.New()}
	}
	return s
}

// Read returns a snapshot copy of the slot's current record, never a live
// reference. The second result is false for identifiers without a slot.
func (s *Store) Read(id uint32) (any, bool) {
	sl, ok := s.slots[id]
	if !ok {
		return nil, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return cloneRecord(sl.value), true
}

// Write atomically replaces the slot's record. The store takes ownership of
// rec; callers must not retain it. Returns false for identifiers without a
// slot.
func (s *Store) Write(id uint32, rec any) bool {
	sl, ok := s.slots[id]
	if !ok {
		return false
	}
	sl.mu.Lock()
	sl.value = rec
	sl.updated = time.Now()
	sl.mu.Unlock()
	return true
}

// LastUpdate returns when the slot was last written. The zero time means
// the slot still holds its default value. The core attaches no staleness
// policy to this; consumers may.
func (s *Store) LastUpdate(id uint32) (time.Time, bool) {
	sl, ok := s.slots[id]
	if !ok {
		return time.Time{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.updated, true
}

// Snapshot reads a slot as its concrete record type. It returns the zero
// record when the identifier has no slot or holds a different type.
func Snapshot[T any](s *Store, id uint32) (T, bool) {
	var zero T
	rec, ok := s.Read(id)
	if !ok {
		return zero, false
	}
	p, ok := rec.(*T)
	if !ok {
		return zero, false
	}
	return *p, true
}

// cloneRecord copies the record struct behind the stored pointer.
func cloneRecord(rec any) any {
	rv := reflect.ValueOf(rec)
	cp := reflect.New(rv.Type().Elem())
	cp.Elem().Set(rv.Elem())
	return cp.Interface()
}
