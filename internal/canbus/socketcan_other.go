//go:build !linux

package canbus

import "errors"

// DialSocketCAN is unavailable outside Linux: SocketCAN is a Linux
// kernel facility. Use a LoopbackBus for development on other systems.
func DialSocketCAN(iface string) (Bus, error) {
	return nil, errors.New("canbus: SocketCAN requires Linux")
}
