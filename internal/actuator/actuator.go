package actuator

// Actuator is the output device the monitor drives.
type Actuator interface {
	// SetLevel applies an output level in percent, 0..100.
	// Idempotent, immediate effect, no acknowledgement.
	SetLevel(percent uint8) error

	// Close drives the output to a safe state and releases the device.
	Close() error
}

// Nop is an Actuator that discards levels. It stands in for the PWM
// device on machines without sysfs PWM hardware.
type Nop struct{}

// SetLevel does nothing.
func (Nop) SetLevel(uint8) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
