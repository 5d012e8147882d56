// Package monitor implements the safety-monitoring control loop: it
// validates inbound actuator command frames, drives the PWM output with
// the clamped level, latches checksum and range faults, forces the
// fail-safe level on reception timeout and broadcasts a periodic
// heartbeat carrying an alive counter and the fault byte.
//
// Run wires the supervisor, the heartbeat emitter and the bus/actuator
// collaborators together and blocks until the context is canceled.
package monitor
