// Package canbus provides the CAN transport of the monitor: the classical
// CAN frame type with its Linux can_frame wire layout, the Bus interface
// over which frames are sent and received, a SocketCAN implementation for
// Linux, an in-memory loopback bus for tests, and a logging decorator.
//
// Bus implementations are safe for concurrent use. Receive blocks until a
// frame arrives or the bus is closed, in which case it returns ErrClosed;
// closing the bus is the way to interrupt a pending Receive.
package canbus
