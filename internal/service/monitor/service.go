package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/oshokin/can-sentry/internal/actuator"
	"github.com/oshokin/can-sentry/internal/canbus"
	"github.com/oshokin/can-sentry/internal/framelog"
	"github.com/oshokin/can-sentry/internal/logger"
)

// service wires the supervisor and the heartbeat emitter to the bus and
// actuator collaborators for one monitor run.
type service struct {
	// bus carries command frames in and heartbeat frames out.
	bus canbus.Bus
	// out is the actuator under supervision.
	out actuator.Actuator
	// supervisor owns the fault and command state.
	supervisor *Supervisor
	// emitter owns the heartbeat cadence and alive counter.
	emitter *HeartbeatEmitter
	// rec records bus traffic when tracing is enabled.
	rec framelog.Recorder
	// tick is the cadence of the supervisory loop.
	tick time.Duration
	// commandID selects which received frames are worth recording.
	commandID uint32
	// runID stamps recorded events with this monitor run.
	runID string
}

// pumpFrames receives frames until the bus closes and feeds them to the
// supervisor. A receive failure other than closure is logged and ends the
// pump; the supervisor then runs into its reception timeout and holds the
// actuator at the fail-safe level while heartbeats keep reporting.
func (s *service) pumpFrames(ctx context.Context) {
	for {
		frame, err := s.bus.Receive()
		if err != nil {
			if !errors.Is(err, canbus.ErrClosed) {
				logger.ErrorKV(ctx, "Bus receive failed", "error", err)
			}

			return
		}

		s.handleFrame(ctx, frame)
	}
}

// handleFrame processes one received frame, isolated so that a panic in
// frame handling drops that frame's effects without stopping reception.
func (s *service) handleFrame(ctx context.Context, frame canbus.Frame) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Frame processing panicked", "frame", frame.String(), "panic", r)
		}
	}()

	if frame.ID == s.commandID {
		s.rec.Record(framelog.Event{
			Time:      time.Now(),
			RunID:     s.runID,
			Direction: framelog.DirectionRx,
			ID:        frame.ID,
			Data:      append([]byte(nil), frame.Data[:frame.Len]...),
		})
	}

	s.supervisor.OnFrame(ctx, frame, time.Now())
}

// run drives the supervisory tick and the heartbeat until the context is
// canceled. Cancellation is observed within one tick, after which no
// further sends happen.
func (s *service) run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			faults := s.supervisor.Tick(ctx, now)

			frame, due := s.emitter.Tick(now, faults)
			if !due {
				continue
			}

			if err := s.bus.Send(frame); err != nil {
				logger.ErrorKV(ctx, "Heartbeat send failed", "error", err)
				continue
			}

			s.rec.Record(framelog.Event{
				Time:      now,
				RunID:     s.runID,
				Direction: framelog.DirectionTx,
				ID:        frame.ID,
				Data:      append([]byte(nil), frame.Data[:]...),
			})
		}
	}
}
