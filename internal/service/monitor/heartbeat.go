package monitor

import (
	"time"

	"github.com/oshokin/can-sentry/internal/canbus"
	"github.com/oshokin/can-sentry/internal/protocol"
)

// HeartbeatEmitter owns the alive counter and the emission cadence of the
// monitor's health broadcast. It is driven from the periodic loop only
// and therefore needs no lock.
type HeartbeatEmitter struct {
	id       uint32
	period   time.Duration
	alive    uint8
	lastSent time.Time
}

// NewHeartbeatEmitter creates an emitter for the given CAN identifier and
// period. lastSent starts at the zero time, so the first Tick emits
// immediately.
func NewHeartbeatEmitter(id uint32, period time.Duration) *HeartbeatEmitter {
	return &HeartbeatEmitter{
		id:     id,
		period: period,
	}
}

// Tick returns the heartbeat frame due at time now, if any. Calling it
// more often than the period is safe and a no-op between emissions.
//
// The alive counter advances when the frame is built: a frame lost on the
// way to the bus shows up as a gap to downstream observers rather than
// stalling the counter.
func (e *HeartbeatEmitter) Tick(now time.Time, faults protocol.FaultBits) (canbus.Frame, bool) {
	if now.Sub(e.lastSent) < e.period {
		return canbus.Frame{}, false
	}

	frame := canbus.Frame{
		ID:       e.id,
		Extended: e.id > canbus.MaxStandardID,
		Len:      protocol.HeartbeatLen,
		Data:     protocol.EncodeHeartbeat(e.alive, faults),
	}

	e.alive++
	e.lastSent = now

	return frame, true
}
