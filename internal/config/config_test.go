package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks identifier and level validations plus defaulting.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty configuration validates to the defaults.
	cfg := new(Config)

	require.NoError(t, Validate(cfg))
	require.Equal(t, Default(), cfg)

	// Command and heartbeat identifiers must differ.
	cfg = &Config{
		CommandID:   0x180,
		HeartbeatID: 0x180,
	}

	require.Error(t, Validate(cfg))

	// Identifiers are capped at 29 bits.
	cfg = &Config{
		CommandID: 0x20000000,
	}

	require.Error(t, Validate(cfg))

	// Unknown log level is rejected.
	cfg = &Config{
		LogLevel: "loud",
	}

	require.Error(t, Validate(cfg))

	// Negative PWM coordinates are rejected.
	cfg = &Config{
		PWMChannel: -1,
	}

	require.Error(t, Validate(cfg))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		Interface:       "vcan0",
		CommandID:       0x181,
		HeartbeatID:     0x281,
		HeartbeatPeriod: 50 * time.Millisecond,
		ReceiveTimeout:  120 * time.Millisecond,
		FaultHold:       120 * time.Millisecond,
		TickPeriod:      time.Millisecond,
		PWMFrequencyHz:  1000,
		LogLevel:        "debug",
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Interface, loaded.Interface)
	require.Equal(t, cfg.CommandID, loaded.CommandID)
	require.Equal(t, cfg.HeartbeatID, loaded.HeartbeatID)
	require.Equal(t, cfg.HeartbeatPeriod, loaded.HeartbeatPeriod)
	require.Equal(t, cfg.PWMFrequencyHz, loaded.PWMFrequencyHz)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_MissingFileYieldsDefaults ensures the monitor runs without a settings file.
func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
