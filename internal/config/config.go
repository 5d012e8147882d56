package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/can-sentry/internal/canbus"
	"github.com/oshokin/can-sentry/internal/logger"
)

// Config holds the runtime parameters of the safety monitor.
type Config struct {
	// Interface is the name of the CAN network interface to bind, e.g. "can0".
	Interface string `yaml:"interface"`
	// CommandID is the CAN identifier of inbound actuator command frames.
	CommandID uint32 `yaml:"command_id"`
	// HeartbeatID is the CAN identifier of outbound heartbeat frames.
	HeartbeatID uint32 `yaml:"heartbeat_id"`
	// HeartbeatPeriod is the interval between heartbeat emissions.
	HeartbeatPeriod time.Duration `yaml:"heartbeat_period"`
	// ReceiveTimeout is how long the monitor tolerates the absence of valid
	// command frames before forcing the actuator to the fail-safe level.
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`
	// FaultHold is how long checksum and range faults stay asserted after
	// their triggering frame.
	FaultHold time.Duration `yaml:"fault_hold"`
	// TickPeriod is the cadence of the supervisory loop.
	TickPeriod time.Duration `yaml:"tick_period"`
	// PWMChip is the sysfs PWM chip number driving the actuator.
	PWMChip int `yaml:"pwm_chip"`
	// PWMChannel is the sysfs PWM channel number on the chip.
	PWMChannel int `yaml:"pwm_channel"`
	// PWMFrequencyHz is the PWM carrier frequency in hertz.
	PWMFrequencyHz int `yaml:"pwm_frequency_hz"`
	// TraceFile is an optional path for the CBOR bus-traffic trace.
	// An empty value disables tracing.
	TraceFile string `yaml:"trace_file"`
	// LogLevel is the minimum level for log output (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for monitor settings.
	DefaultConfigFilename = "can-sentry.yaml"

	// DefaultInterface is the CAN interface bound when none is configured.
	DefaultInterface = "can0"

	// DefaultCommandID is the CAN identifier of command frames.
	DefaultCommandID uint32 = 0x180

	// DefaultHeartbeatID is the CAN identifier of heartbeat frames.
	DefaultHeartbeatID uint32 = 0x280

	// DefaultHeartbeatPeriod is the interval between heartbeat emissions.
	DefaultHeartbeatPeriod = 200 * time.Millisecond

	// DefaultReceiveTimeout is the valid-frame staleness window.
	DefaultReceiveTimeout = 500 * time.Millisecond

	// DefaultFaultHold is the hold duration of checksum and range latches.
	DefaultFaultHold = 500 * time.Millisecond

	// DefaultTickPeriod is the supervisory loop cadence.
	DefaultTickPeriod = time.Millisecond

	// DefaultPWMFrequencyHz is the PWM carrier frequency.
	DefaultPWMFrequencyHz = 500

	// DefaultLogLevel is the log level used when none is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errSameIdentifiers is returned when command and heartbeat frames
	// would share a CAN identifier.
	errSameIdentifiers = errors.New("command and heartbeat identifiers must differ")
)

// Default returns a configuration populated with the default values.
func Default() *Config {
	return &Config{
		Interface:       DefaultInterface,
		CommandID:       DefaultCommandID,
		HeartbeatID:     DefaultHeartbeatID,
		HeartbeatPeriod: DefaultHeartbeatPeriod,
		ReceiveTimeout:  DefaultReceiveTimeout,
		FaultHold:       DefaultFaultHold,
		TickPeriod:      DefaultTickPeriod,
		PWMChip:         0,
		PWMChannel:      0,
		PWMFrequencyHz:  DefaultPWMFrequencyHz,
		TraceFile:       "",
		LogLevel:        DefaultLogLevel,
	}
}

// Load reads configuration from the provided path and validates it.
// A missing file is not an error: the defaults are returned instead,
// so the monitor can run without a settings file at all.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided configuration and fills in defaults for
// unset fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Interface == "" {
		cfg.Interface = DefaultInterface
	}

	if cfg.CommandID == 0 {
		cfg.CommandID = DefaultCommandID
	}

	if cfg.HeartbeatID == 0 {
		cfg.HeartbeatID = DefaultHeartbeatID
	}

	if cfg.CommandID > canbus.MaxExtendedID {
		return fmt.Errorf("command identifier %#x exceeds 29 bits", cfg.CommandID)
	}

	if cfg.HeartbeatID > canbus.MaxExtendedID {
		return fmt.Errorf("heartbeat identifier %#x exceeds 29 bits", cfg.HeartbeatID)
	}

	if cfg.CommandID == cfg.HeartbeatID {
		return errSameIdentifiers
	}

	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = DefaultHeartbeatPeriod
	}

	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = DefaultReceiveTimeout
	}

	if cfg.FaultHold <= 0 {
		cfg.FaultHold = DefaultFaultHold
	}

	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = DefaultTickPeriod
	}

	if cfg.PWMChip < 0 || cfg.PWMChannel < 0 {
		return fmt.Errorf("pwm chip %d / channel %d must not be negative", cfg.PWMChip, cfg.PWMChannel)
	}

	if cfg.PWMFrequencyHz <= 0 {
		cfg.PWMFrequencyHz = DefaultPWMFrequencyHz
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	return nil
}
