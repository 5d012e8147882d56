package monitor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/oshokin/can-sentry/internal/actuator"
	"github.com/oshokin/can-sentry/internal/canbus"
	"github.com/oshokin/can-sentry/internal/config"
	"github.com/oshokin/can-sentry/internal/framelog"
	"github.com/oshokin/can-sentry/internal/logger"
	"github.com/oshokin/can-sentry/internal/version"
)

// Options controls the monitor process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Interface provides an optional CAN interface override.
	Interface string
	// TraceFile provides an optional trace file override.
	TraceFile string
	// WithoutActuator replaces the PWM device with a no-op output for
	// bench runs without hardware.
	WithoutActuator bool
	// Debug forces debug-level logging regardless of configuration.
	Debug bool
	// Bus provides the transport directly instead of opening SocketCAN.
	// Tests drive the monitor over a loopback bus through it.
	Bus canbus.Bus
	// Actuator provides the output device directly instead of opening the
	// sysfs PWM channel.
	Actuator actuator.Actuator
}

// Run starts the safety monitor and blocks until the context is canceled.
// Collaborators not supplied through opts are opened from the
// configuration; everything the monitor opened or was handed is closed on
// the way out, transport before actuator.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "can-sentry")

	// Load configuration first to get bus and timing settings.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Command line overrides.
	if opts.Interface != "" {
		cfg.Interface = opts.Interface
	}

	if opts.TraceFile != "" {
		cfg.TraceFile = opts.TraceFile
	}

	applyLogLevel(cfg.LogLevel, opts.Debug)

	// Each run is stamped into the startup log and the trace events.
	runID := uuid.NewString()

	// Open the transport unless one was injected.
	bus := opts.Bus
	if bus == nil {
		if bus, err = canbus.DialSocketCAN(cfg.Interface); err != nil {
			return fmt.Errorf("open CAN interface: %w", err)
		}
	}

	// Frame tracing at debug level rides on top of whatever bus is used.
	bus = canbus.NewLogged(ctx, bus)

	// Open the actuator unless one was injected.
	out := opts.Actuator
	if out == nil {
		if opts.WithoutActuator {
			out = actuator.Nop{}
		} else if out, err = actuator.OpenSysfsPWM(cfg.PWMChip, cfg.PWMChannel, cfg.PWMFrequencyHz); err != nil {
			_ = bus.Close()
			return fmt.Errorf("open PWM actuator: %w", err)
		}
	}

	// Tracing is off unless a trace file is configured.
	var rec framelog.Recorder = framelog.Nop{}

	if cfg.TraceFile != "" {
		fileRec, recErr := framelog.NewFileRecorder(cfg.TraceFile)
		if recErr != nil {
			_ = bus.Close()
			_ = out.Close()

			return fmt.Errorf("open trace file: %w", recErr)
		}

		rec = fileRec
	}

	svc := &service{
		bus:        bus,
		out:        out,
		supervisor: NewSupervisor(cfg.CommandID, cfg.ReceiveTimeout, cfg.FaultHold, out),
		emitter:    NewHeartbeatEmitter(cfg.HeartbeatID, cfg.HeartbeatPeriod),
		rec:        rec,
		tick:       cfg.TickPeriod,
		commandID:  cfg.CommandID,
		runID:      runID,
	}

	logger.InfoKV(ctx, "Safety monitor starting",
		"version", version.Short(),
		"run_id", runID,
		"interface", cfg.Interface,
		"command_id", fmt.Sprintf("%#x", cfg.CommandID),
		"heartbeat_id", fmt.Sprintf("%#x", cfg.HeartbeatID),
		"heartbeat_period", cfg.HeartbeatPeriod.String(),
		"receive_timeout", cfg.ReceiveTimeout.String(),
		"fault_hold", cfg.FaultHold.String(),
		"pwm_chip", cfg.PWMChip,
		"pwm_channel", cfg.PWMChannel,
		"pwm_frequency_hz", cfg.PWMFrequencyHz,
	)

	// Reception pump; it exits once the bus is closed.
	pumpDone := make(chan struct{})

	go func() {
		defer close(pumpDone)
		svc.pumpFrames(ctx)
	}()

	// The periodic loop blocks here until the context is canceled.
	svc.run(ctx)

	// Shutdown order: the heartbeat cadence stopped when run returned,
	// then the transport goes down, last the actuator is disabled. The
	// only sender has exited, so nothing transmits past this point.
	logger.Info(ctx, "Shutting down")

	if err = bus.Close(); err != nil {
		logger.ErrorKV(ctx, "Bus close failed", "error", err)
	}

	<-pumpDone

	if err = out.Close(); err != nil {
		logger.ErrorKV(ctx, "Actuator close failed", "error", err)
	}

	if err = rec.Close(); err != nil {
		logger.ErrorKV(ctx, "Trace close failed", "error", err)
	}

	logger.Info(ctx, "Safety monitor stopped")

	return nil
}

// applyLogLevel switches the global logger to the configured level, or to
// debug when the flag demands it.
func applyLogLevel(configured string, debug bool) {
	if debug {
		configured = "debug"
	}

	if lvl, ok := logger.ParseLogLevel(configured); ok {
		logger.SetLevel(lvl)
	}
}
