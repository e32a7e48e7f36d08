package telemetry

import (
	"errors"
	"fmt"
)

// ErrInvalidState marks a byte-coded state field that matches no enumerated
// pattern. The router reports it at higher severity than a plain decode
// fault: it means an upstream board is transmitting out-of-contract data.
var ErrInvalidState = errors.New("telemetry: invalid enumerated state value")

// Relay board bit flags. The relay state byte is an OR-combination of these.
const (
	RelayAllOff    uint8 = 0x00
	RelayCap       uint8 = 0x01 // capacitor relay
	RelayRes       uint8 = 0x02 // precharge resistor relay
	RelayDischarge uint8 = 0x04 // discharge relay
	RelayMotor     uint8 = 0x08 // motor relay
)

// RelayState is the relay board's operating mode, mirrored from the bus.
// The dashboard never drives a transition; it only reflects the last-seen
// value.
type RelayState uint8

const (
	RelayStandby RelayState = RelayState(RelayAllOff)
	RelayCharge  RelayState = RelayState(RelayRes)
	RelayStartup RelayState = RelayState(RelayRes | RelayDischarge)
	RelayRun     RelayState = RelayState(RelayCap | RelayDischarge | RelayMotor)
)

// Valid reports whether s is one of the enumerated operating modes.
func (s RelayState) Valid() bool {
	switch s {
	case RelayStandby, RelayCharge, RelayStartup, RelayRun:
		return true
	}
	return false
}

func (s RelayState) String() string {
	switch s {
	case RelayStandby:
		return "standby"
	case RelayCharge:
		return "charge"
	case RelayStartup:
		return "startup"
	case RelayRun:
		return "run"
	}
	return fmt.Sprintf("invalid(0x%02X)", uint8(s))
}

// FET board bit flags, used inside FetPack.FetConfig.
const (
	FetAllOff   uint8 = 0x00
	FetFuelCell uint8 = 0x01
	FetCap      uint8 = 0x02
	FetRes      uint8 = 0x04
	FetOut      uint8 = 0x08
)

// FetState is the FET board's operating mode.
type FetState uint8

const (
	FetStandby FetState = FetState(FetAllOff)
	FetCharge  FetState = FetState(FetFuelCell | FetCap | FetRes)
	FetRun     FetState = FetState(FetFuelCell | FetCap | FetRes | FetOut)
)

func (s FetState) String() string {
	switch s {
	case FetStandby:
		return "standby"
	case FetCharge:
		return "charge"
	case FetRun:
		return "run"
	}
	return fmt.Sprintf("invalid(0x%02X)", uint8(s))
}

// RelStatePack (0x018): the relay board's current operating state byte.
// Only the enumerated RelayState patterns are accepted.
type RelStatePack struct {
	State uint8 `json:"state"`
}

// Validate rejects any byte outside the enumerated relay patterns.
func (p RelStatePack) Validate() error {
	if !RelayState(p.State).Valid() {
		return fmt.Errorf("%w: relay state 0x%02X", ErrInvalidState, p.State)
	}
	return nil
}

// Mode returns the decoded operating mode.
func (p RelStatePack) Mode() RelayState { return RelayState(p.State) }
