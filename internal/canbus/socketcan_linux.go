//go:build linux

package canbus

import (
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// socketCAN implements Bus over a Linux raw CAN socket.
type socketCAN struct {
	iface string
	file  *os.File
}

// DialSocketCAN opens a raw CAN socket bound to the given interface name,
// e.g. "can0". The descriptor is handed to the runtime poller in
// non-blocking mode, so Close interrupts a pending Receive.
func DialSocketCAN(iface string) (Bus, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("canbus: open raw CAN socket: %w", err)
	}

	netIf, err := net.InterfaceByName(iface)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("canbus: resolve interface %q: %w", iface, err)
	}

	if err = unix.Bind(fd, &unix.SockaddrCAN{Ifindex: netIf.Index}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("canbus: bind to %q: %w", iface, err)
	}

	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("canbus: set non-blocking: %w", err)
	}

	return &socketCAN{
		iface: iface,
		file:  os.NewFile(uintptr(fd), iface),
	}, nil
}

// Send writes one frame in the Linux can_frame binary layout.
func (s *socketCAN) Send(frame Frame) error {
	buf, err := frame.MarshalBinary()
	if err != nil {
		return err
	}

	n, err := s.file.Write(buf)
	if err != nil {
		if errors.Is(err, os.ErrClosed) {
			return ErrClosed
		}

		return fmt.Errorf("canbus: send on %s: %w", s.iface, err)
	}

	if n != len(buf) {
		return fmt.Errorf("canbus: short write on %s: %d of %d bytes", s.iface, n, len(buf))
	}

	return nil
}

// Receive blocks until one frame is read from the socket.
func (s *socketCAN) Receive() (Frame, error) {
	buf := make([]byte, frameWireSize)

	n, err := s.file.Read(buf)
	if err != nil {
		if errors.Is(err, os.ErrClosed) {
			return Frame{}, ErrClosed
		}

		return Frame{}, fmt.Errorf("canbus: receive on %s: %w", s.iface, err)
	}

	if n != frameWireSize {
		return Frame{}, fmt.Errorf("canbus: short read on %s: %d bytes", s.iface, n)
	}

	var f Frame
	if err = f.UnmarshalBinary(buf); err != nil {
		return Frame{}, err
	}

	return f, nil
}

// Close shuts the socket down and unblocks pending reads.
func (s *socketCAN) Close() error {
	if err := s.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("canbus: close %s: %w", s.iface, err)
	}

	return nil
}
