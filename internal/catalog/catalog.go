// Package catalog holds the static table of CAN packet descriptors: which
// identifier carries which record, and how many bytes it occupies on the
// wire. Adding a message type is a table entry, not a new code path.
package catalog

import (
	"encoding/binary"
	"fmt"
	"sort"

	"eco-dashboard/internal/can"
	"eco-dashboard/internal/telemetry"
)

// Identifier bands. 0x000-0x00F are highest priority and received by every
// board; 0x010-0x01F are this vehicle's board status range; 0x020 and up is
// per-subsystem telemetry.
const (
	BandBroadcastEnd = 0x00F
	BandBoardEnd     = 0x01F
)

// Descriptor describes one packet type: its identifier, the declared wire
// length and a constructor for its record. The declared length may exceed
// the record's current field layout; trailing bytes are reserved.
type Descriptor struct {
	ID     uint32
	Name   string
	Length uint8
	New    func() any
}

// Size returns the number of payload bytes the record's fields occupy.
func (d Descriptor) Size() int {
	return binary.Size(d.New())
}

// Catalog is an immutable identifier-to-descriptor table, safe for
// unsynchronized concurrent lookup.
type Catalog struct {
	byID    map[uint32]Descriptor
	ordered []Descriptor
}

// New validates and builds a catalog. Duplicate identifiers, identifiers
// out of CAN range, illegal CAN-FD lengths and records that do not fit
// their declared length are construction-time faults.
func New(descs ...Descriptor) (*Catalog, error) {
	c := &Catalog{byID: make(map[uint32]Descriptor, len(descs))}
	for _, d := range descs {
		if d.New == nil {
			return nil, fmt.Errorf("catalog: %s (0x%03X) has no record constructor", d.Name, d.ID)
		}
		if d.ID > can.MaxExtendedID {
			return nil, fmt.Errorf("catalog: identifier 0x%X out of CAN range", d.ID)
		}
		if !can.ValidFDLength(d.Length) {
			return nil, fmt.Errorf("catalog: %s (0x%03X) length %d is not a CAN-FD payload size", d.Name, d.ID, d.Length)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate identifier 0x%03X", d.ID)
		}
		size := d.Size()
		if size < 0 {
			return nil, fmt.Errorf("catalog: %s (0x%03X) record is not fixed-width", d.Name, d.ID)
		}
		if size > int(d.Length) {
			return nil, fmt.Errorf("catalog: %s (0x%03X) record needs %d bytes, declared length is %d", d.Name, d.ID, size, d.Length)
		}
		c.byID[d.ID] = d
		c.ordered = append(c.ordered, d)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].ID < c.ordered[j].ID })
	return c, nil
}

// MustNew builds a catalog and panics on a construction fault. Descriptor
// tables are static data; an invalid one is a build bug.
func MustNew(descs ...Descriptor) *Catalog {
	c, err := New(descs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the descriptor for an identifier.
func (c *Catalog) Lookup(id uint32) (Descriptor, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Descriptors returns all descriptors in identifier order.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.ordered) }

// Default returns the vehicle's packet catalog.
func Default() *Catalog {
	return MustNew(
		Descriptor{ID: 0x001, Name: "h2_alarm", Length: 1, New: func() any { return new(telemetry.H2AlarmPack) }},
		Descriptor{ID: 0x00F, Name: "sync_led", Length: 1, New: func() any { return new(telemetry.SyncLEDPack) }},
		Descriptor{ID: 0x010, Name: "fet", Length: 24, New: func() any { return new(telemetry.FetPack) }},
		Descriptor{ID: 0x013, Name: "rel_charge", Length: 8, New: func() any { return new(telemetry.RelChargePack) }},
		Descriptor{ID: 0x014, Name: "rel_energy", Length: 8, New: func() any { return new(telemetry.RelEnergyPack) }},
		Descriptor{ID: 0x015, Name: "rel_motor", Length: 8, New: func() any { return new(telemetry.RelMotorPack) }},
		Descriptor{ID: 0x016, Name: "rel_cap", Length: 8, New: func() any { return new(telemetry.RelCapPack) }},
		Descriptor{ID: 0x017, Name: "rel_fuelcell", Length: 8, New: func() any { return new(telemetry.RelFuelCellPack) }},
		Descriptor{ID: 0x018, Name: "rel_state", Length: 1, New: func() any { return new(telemetry.RelStatePack) }},
		Descriptor{ID: 0x020, Name: "fcc_core", Length: 8, New: func() any { return new(telemetry.FccCorePack) }},
		Descriptor{ID: 0x021, Name: "fcc_fans", Length: 8, New: func() any { return new(telemetry.FccFanPack) }},
		Descriptor{ID: 0x022, Name: "fcc_ambient", Length: 8, New: func() any { return new(telemetry.FccAmbientPack) }},
		Descriptor{ID: 0x030, Name: "h2_sense", Length: 8, New: func() any { return new(telemetry.H2SensePack) }},
		Descriptor{ID: 0x031, Name: "h2_monitor", Length: 8, New: func() any { return new(telemetry.H2MonitorPack) }},
		Descriptor{ID: 0x032, Name: "h2_alarm_arm", Length: 1, New: func() any { return new(telemetry.H2AlarmArmPack) }},
		Descriptor{ID: 0x040, Name: "boost_input", Length: 8, New: func() any { return new(telemetry.BoostInputPack) }},
		Descriptor{ID: 0x041, Name: "boost_output", Length: 8, New: func() any { return new(telemetry.BoostOutputPack) }},
		Descriptor{ID: 0x042, Name: "boost_energy", Length: 8, New: func() any { return new(telemetry.BoostEnergyPack) }},
		Descriptor{ID: 0x050, Name: "batt_output", Length: 4, New: func() any { return new(telemetry.BattOutputPack) }},
	)
}
