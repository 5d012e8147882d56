package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/can-sentry/internal/actuator"
	"github.com/oshokin/can-sentry/internal/canbus"
	"github.com/oshokin/can-sentry/internal/logger"
	"github.com/oshokin/can-sentry/internal/protocol"
)

// failSafeLevel is what the actuator is driven to when command input
// cannot be trusted.
const failSafeLevel = 0

// latch is a hold-to-clear fault: asserted from its triggering event
// until a fixed instant, clear again by pure passage of time.
type latch struct {
	// holdUntil is the expiry instant. The zero value means never tripped.
	holdUntil time.Time
}

// trip asserts the latch for hold past now. The expiry only moves forward;
// an earlier event never shortens a running hold.
func (l *latch) trip(now time.Time, hold time.Duration) {
	until := now.Add(hold)
	if until.After(l.holdUntil) {
		l.holdUntil = until
	}
}

// active reports whether the latch is asserted at now.
func (l *latch) active(now time.Time) bool {
	return now.Before(l.holdUntil)
}

// Supervisor owns the authoritative fault and command state.
//
// One mutex serializes the receive path (OnFrame) and the periodic tick,
// covering each full read-modify-write including the actuator write, so a
// command-level write can never interleave with the fail-safe write for
// the same instant.
type Supervisor struct {
	commandID uint32
	timeout   time.Duration
	hold      time.Duration
	out       actuator.Actuator

	mu             sync.Mutex
	lastValidRx    time.Time
	hasCounter     bool
	lastCounter    uint8
	checksumFault  latch
	rangeFault     latch
	commandedLevel uint8
}

// NewSupervisor creates a supervisor for command frames with the given
// identifier. lastValidRx starts at the zero time, so the reception
// timeout is asserted from boot until the first valid frame: the monitor
// comes up fail-safe.
func NewSupervisor(commandID uint32, timeout, hold time.Duration, out actuator.Actuator) *Supervisor {
	return &Supervisor{
		commandID: commandID,
		timeout:   timeout,
		hold:      hold,
		out:       out,
	}
}

// OnFrame feeds one received frame into the supervisor at time now.
//
// Frames with a foreign identifier or an undecodable payload are ignored.
// A checksum mismatch trips its latch and gates everything else: neither
// the commanded level nor the valid-reception time may move on corrupted
// data. A valid frame has its level clamped (tripping the range latch if
// it was out of range), applied to the actuator and recorded.
func (s *Supervisor) OnFrame(ctx context.Context, frame canbus.Frame, now time.Time) {
	if frame.ID != s.commandID {
		return
	}

	payload := frame.Data[:min(int(frame.Len), len(frame.Data))]

	cmd, ok := protocol.ParseCommand(payload)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !cmd.Valid() {
		s.checksumFault.trip(now, s.hold)
		logger.WarnKV(ctx, "Command checksum mismatch", "frame", frame.String())

		return
	}

	applied := protocol.ClampLevel(cmd.Level)
	if applied != cmd.Level {
		s.rangeFault.trip(now, s.hold)
		logger.WarnKV(ctx, "Command level out of range", "raw", cmd.Level, "applied", applied)
	}

	// Discontinuities are log-only. The stored counter still advances, so
	// one lost frame does not cascade into warnings on every successor.
	if s.hasCounter {
		if delta := protocol.CounterDelta(s.lastCounter, cmd.Counter); delta > 1 {
			logger.Warnf(ctx, "Rolling counter jump: %d -> %d", s.lastCounter, cmd.Counter)
		}
	}

	s.hasCounter = true
	s.lastCounter = cmd.Counter

	if err := s.out.SetLevel(applied); err != nil {
		// The level never reached the actuator, so the frame does not
		// count as a valid reception.
		logger.ErrorKV(ctx, "Actuator write failed", "level", applied, "error", err)

		return
	}

	s.commandedLevel = applied
	s.lastValidRx = now
}

// Tick re-derives the fault byte at time now and enforces the fail-safe
// level while the reception timeout is asserted. The returned byte is
// what the next heartbeat transmits.
func (s *Supervisor) Tick(ctx context.Context, now time.Time) protocol.FaultBits {
	s.mu.Lock()
	defer s.mu.Unlock()

	var faults protocol.FaultBits

	if now.Sub(s.lastValidRx) > s.timeout {
		faults |= protocol.FaultTimeout

		// The actuator must not keep acting on a stale command. The write
		// is retried every tick until it lands.
		if s.commandedLevel != failSafeLevel {
			if err := s.out.SetLevel(failSafeLevel); err != nil {
				logger.ErrorKV(ctx, "Fail-safe actuator write failed", "error", err)
			} else {
				s.commandedLevel = failSafeLevel
				logger.Warn(ctx, "Command reception timed out, actuator forced to fail-safe")
			}
		}
	}

	if s.checksumFault.active(now) {
		faults |= protocol.FaultChecksumFail
	}

	if s.rangeFault.active(now) {
		faults |= protocol.FaultRange
	}

	return faults
}

// Level returns the currently commanded actuator level.
func (s *Supervisor) Level() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commandedLevel
}
