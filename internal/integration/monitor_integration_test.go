package integration

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/can-sentry/internal/canbus"
	"github.com/oshokin/can-sentry/internal/config"
	"github.com/oshokin/can-sentry/internal/framelog"
	"github.com/oshokin/can-sentry/internal/protocol"
	"github.com/oshokin/can-sentry/internal/service/monitor"
)

// Timing shortened from the defaults so a full fault round trip fits in a
// couple of seconds.
const (
	commandID       = uint32(0x180)
	heartbeatID     = uint32(0x280)
	heartbeatPeriod = 40 * time.Millisecond
	receiveTimeout  = 500 * time.Millisecond
	faultHold       = 100 * time.Millisecond
)

// fakeActuator stands in for the PWM device and records commanded levels.
type fakeActuator struct {
	// mu protects the recorded state.
	mu sync.Mutex
	// levels collects every commanded level in order.
	levels []uint8
	// closed reports whether Close was called.
	closed bool
}

// SetLevel records the commanded level.
func (f *fakeActuator) SetLevel(percent uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.levels = append(f.levels, percent)

	return nil
}

// Close marks the device closed.
func (f *fakeActuator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

// last returns the most recent commanded level.
func (f *fakeActuator) last() (uint8, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.levels) == 0 {
		return 0, false
	}

	return f.levels[len(f.levels)-1], true
}

// writes returns how many levels were commanded.
func (f *fakeActuator) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.levels)
}

// isClosed reports whether the device was shut down.
func (f *fakeActuator) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// heartbeatStream collects heartbeat frames from a bus endpoint in the
// background: a live feed for waiting plus the full observed sequence.
type heartbeatStream struct {
	frames chan protocol.Heartbeat

	mu   sync.Mutex
	seen []protocol.Heartbeat
}

// collectHeartbeats drains the endpoint until it closes, parsing frames
// with the given identifier.
func collectHeartbeats(bus canbus.Bus, id uint32) *heartbeatStream {
	s := &heartbeatStream{frames: make(chan protocol.Heartbeat, 512)}

	go func() {
		defer close(s.frames)

		for {
			frame, err := bus.Receive()
			if err != nil {
				return
			}

			if frame.ID != id {
				continue
			}

			hb, ok := protocol.ParseHeartbeat(frame.Data[:frame.Len])
			if !ok {
				continue
			}

			s.mu.Lock()
			s.seen = append(s.seen, hb)
			s.mu.Unlock()

			s.frames <- hb
		}
	}()

	return s
}

// count returns how many heartbeats were observed so far.
func (s *heartbeatStream) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.seen)
}

// all returns the observed heartbeats in emission order.
func (s *heartbeatStream) all() []protocol.Heartbeat {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]protocol.Heartbeat(nil), s.seen...)
}

// awaitHeartbeat drains live heartbeats until one matches the predicate
// or the timeout expires.
func awaitHeartbeat(t *testing.T, s *heartbeatStream, timeout time.Duration, match func(protocol.Heartbeat) bool) protocol.Heartbeat {
	t.Helper()

	timer := time.After(timeout)

	for {
		select {
		case hb, ok := <-s.frames:
			if !ok {
				t.Fatal("heartbeat stream closed before the expected frame")
			}

			if match(hb) {
				return hb
			}
		case <-timer:
			t.Fatal("timed out waiting for a heartbeat")
		}
	}
}

// commandFrame builds a valid actuator command frame.
func commandFrame(level, counter uint8) canbus.Frame {
	payload := protocol.EncodeCommand(level, counter)
	frame := canbus.Frame{ID: commandID, Len: uint8(len(payload))}
	copy(frame.Data[:], payload)

	return frame
}

// corruptedFrame builds a command frame with a broken checksum.
func corruptedFrame(level, counter uint8) canbus.Frame {
	frame := commandFrame(level, counter)
	frame.Data[2] ^= 0x5A

	return frame
}

// writeSettings saves a monitor configuration into dir and returns its path.
func writeSettings(t *testing.T, dir, tracePath string) string {
	t.Helper()

	path := filepath.Join(dir, "can-sentry.yaml")
	err := config.Save(path, &config.Config{
		Interface:       "loopback",
		CommandID:       commandID,
		HeartbeatID:     heartbeatID,
		HeartbeatPeriod: heartbeatPeriod,
		ReceiveTimeout:  receiveTimeout,
		FaultHold:       faultHold,
		TickPeriod:      time.Millisecond,
		PWMFrequencyHz:  500,
		TraceFile:       tracePath,
		LogLevel:        "error",
	})
	require.NoError(t, err)

	return path
}

// TestMonitor_SupervisesActuatorOverLoopback drives a full monitor run over
// an in-memory bus: boot fail-safe, valid commands, checksum corruption,
// range clamping, reception timeout, recovery, shutdown and the recorded
// trace.
func TestMonitor_SupervisesActuatorOverLoopback(t *testing.T) {
	t.Parallel()

	tracePath := filepath.Join(t.TempDir(), "trace.cbor")
	cfgPath := writeSettings(t, t.TempDir(), tracePath)

	// The monitor gets one endpoint of the loopback bus, the test drives
	// the other like a controller node would.
	bus := canbus.NewLoopbackBus()
	defer func() {
		_ = bus.Close()
	}()

	monitorEnd := bus.Open()
	peer := bus.Open()
	fa := &fakeActuator{}

	beats := collectHeartbeats(peer, heartbeatID)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- monitor.Run(runCtx, &monitor.Options{
			ConfigPath: cfgPath,
			Bus:        monitorEnd,
			Actuator:   fa,
		})
	}()

	sent := 0
	send := func(frame canbus.Frame) {
		require.NoError(t, peer.Send(frame))
		sent++
	}

	counter := uint8(0)
	next := func() uint8 {
		c := counter
		counter = (counter + 1) & protocol.CounterMask

		return c
	}

	// Boot: no command was ever received, so heartbeats report the
	// reception timeout and the actuator stays at its fail-safe level.
	awaitHeartbeat(t, beats, 3*time.Second, func(hb protocol.Heartbeat) bool {
		return hb.Faults.Has(protocol.FaultTimeout)
	})
	require.Zero(t, fa.writes(), "fail-safe level needs no write at boot")

	// Valid commands: the level reaches the actuator and all faults clear.
	send(commandFrame(70, next()))
	send(commandFrame(70, next()))
	send(commandFrame(70, next()))

	awaitHeartbeat(t, beats, 3*time.Second, func(hb protocol.Heartbeat) bool {
		lvl, ok := fa.last()
		return hb.Faults == 0 && ok && lvl == 70
	})

	// Corruption: broken checksums latch their fault without moving the
	// actuator, then a valid frame and the hold expiry clear it.
	writesBefore := fa.writes()

	for i := 0; i < 5; i++ {
		send(corruptedFrame(90, next()))
	}

	awaitHeartbeat(t, beats, 3*time.Second, func(hb protocol.Heartbeat) bool {
		return hb.Faults.Has(protocol.FaultChecksumFail)
	})
	require.Equal(t, writesBefore, fa.writes(), "corrupted frames must not reach the actuator")

	send(commandFrame(70, next()))

	awaitHeartbeat(t, beats, 3*time.Second, func(hb protocol.Heartbeat) bool {
		lvl, ok := fa.last()
		return hb.Faults == 0 && ok && lvl == 70
	})

	// Range: an out-of-range level is clamped, applied and reported.
	send(commandFrame(130, next()))

	awaitHeartbeat(t, beats, 3*time.Second, func(hb protocol.Heartbeat) bool {
		lvl, ok := fa.last()
		return hb.Faults.Has(protocol.FaultRange) && ok && lvl == 100
	})

	send(commandFrame(80, next()))

	awaitHeartbeat(t, beats, 3*time.Second, func(hb protocol.Heartbeat) bool {
		lvl, ok := fa.last()
		return hb.Faults == 0 && ok && lvl == 80
	})

	// Silence: without fresh commands the monitor times out and forces
	// the actuator to the fail-safe level.
	awaitHeartbeat(t, beats, 3*time.Second, func(hb protocol.Heartbeat) bool {
		lvl, ok := fa.last()
		return hb.Faults.Has(protocol.FaultTimeout) && ok && lvl == 0
	})

	// Recovery: the next valid frame clears the timeout immediately.
	send(commandFrame(55, next()))

	awaitHeartbeat(t, beats, 3*time.Second, func(hb protocol.Heartbeat) bool {
		lvl, ok := fa.last()
		return hb.Faults == 0 && ok && lvl == 55
	})

	// Shutdown: a canceled context stops the run cleanly and nothing is
	// transmitted afterwards.
	cancel()
	require.NoError(t, <-done)

	time.Sleep(2 * heartbeatPeriod)

	observed := beats.count()

	time.Sleep(5 * heartbeatPeriod)
	require.Equal(t, observed, beats.count(), "no heartbeats after shutdown")
	require.True(t, fa.isClosed(), "actuator is disabled on shutdown")

	// Alive counter: every observed heartbeat increments it by one.
	sequence := beats.all()
	require.GreaterOrEqual(t, len(sequence), 10)

	for i := 1; i < len(sequence); i++ {
		require.Equal(t, sequence[i-1].Alive+1, sequence[i].Alive, "alive counter at heartbeat %d", i)
	}

	// Trace: the run recorded every received command and every sent
	// heartbeat under a single run identifier.
	reader, err := framelog.NewReader(tracePath)
	require.NoError(t, err)

	var (
		rxCount, txCount int
		runID            string
	)

	for {
		event, readErr := reader.Next()
		if errors.Is(readErr, io.EOF) {
			break
		}

		require.NoError(t, readErr)
		require.False(t, event.Time.IsZero())
		require.NotEmpty(t, event.RunID)

		if runID == "" {
			runID = event.RunID
		}

		require.Equal(t, runID, event.RunID, "one run, one identifier")

		switch event.Direction {
		case framelog.DirectionRx:
			require.Equal(t, commandID, event.ID)
			require.Len(t, event.Data, 3)

			rxCount++
		case framelog.DirectionTx:
			require.Equal(t, heartbeatID, event.ID)
			require.Len(t, event.Data, protocol.HeartbeatLen)

			txCount++
		}
	}

	require.NoError(t, reader.Close())
	require.Equal(t, sent, rxCount, "every command frame was traced")
	require.Equal(t, len(sequence), txCount, "every heartbeat was traced")

	// The direction filter selects exactly the transmitted events.
	tx := framelog.DirectionTx

	filtered, err := framelog.NewFilteredReader(tracePath, framelog.Filter{Direction: &tx})
	require.NoError(t, err)

	var filteredCount int

	for {
		_, readErr := filtered.Next()
		if errors.Is(readErr, io.EOF) {
			break
		}

		require.NoError(t, readErr)

		filteredCount++
	}

	require.NoError(t, filtered.Close())
	require.Equal(t, txCount, filteredCount)

	// Releasing the bus lets the collector goroutine drain and exit.
	require.NoError(t, peer.Close())

	for range beats.frames { // drained until the collector closes the channel
	}
}

// TestMonitor_RunsWithoutSettingsFile boots the monitor with a missing
// configuration file and expects the defaults to carry it.
func TestMonitor_RunsWithoutSettingsFile(t *testing.T) {
	t.Parallel()

	bus := canbus.NewLoopbackBus()
	defer func() {
		_ = bus.Close()
	}()

	monitorEnd := bus.Open()
	peer := bus.Open()
	fa := &fakeActuator{}

	beats := collectHeartbeats(peer, config.DefaultHeartbeatID)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- monitor.Run(runCtx, &monitor.Options{
			ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"),
			Bus:        monitorEnd,
			Actuator:   fa,
		})
	}()

	// The defaults still enforce the fail-safe posture from boot.
	awaitHeartbeat(t, beats, 3*time.Second, func(hb protocol.Heartbeat) bool {
		return hb.Faults.Has(protocol.FaultTimeout)
	})

	cancel()
	require.NoError(t, <-done)
}
