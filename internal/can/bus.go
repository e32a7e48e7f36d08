package can

// Bus is the driver boundary between the telemetry layer and a physical or
// simulated CAN bus.
//
// Frames delivers received frames on a buffered channel; the channel's
// capacity is the receive buffer depth and bounds how far the ingress pump
// will drain in one wake. Errors carries driver-level faults (short reads,
// dropped frames); they are reported, never fatal to the receive path.
type Bus interface {
	// Frames returns the channel on which received frames are delivered.
	Frames() <-chan Frame

	// Errors returns the channel for driver-level receive faults.
	Errors() <-chan error

	// Send transmits a single frame on the bus.
	Send(Frame) error

	// Close shuts the driver down and releases the underlying transport.
	Close() error
}
