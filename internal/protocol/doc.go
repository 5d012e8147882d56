// Package protocol defines the payload formats of the actuator command
// channel: the protection checksum, the command frame fields, the fault
// flag byte and the heartbeat payload.
//
// Everything here is a pure function over bytes. The package knows nothing
// about CAN identifiers or transports; callers filter frames before
// decoding their payloads.
package protocol
