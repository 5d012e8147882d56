package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/can-sentry/internal/config"
	"github.com/oshokin/can-sentry/internal/service/monitor"
	"github.com/oshokin/can-sentry/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// interfaceName overrides the CAN interface from the configuration.
	interfaceName string
	// traceFile overrides the bus-traffic trace path from the configuration.
	traceFile string
	// noActuator replaces the PWM device with a no-op output.
	noActuator bool
	// debug forces debug-level logging.
	debug bool

	// rootCmd represents the base command for running the safety monitor.
	rootCmd = &cobra.Command{
		Use:   "can-sentry",
		Short: "Run the actuator safety monitor on a CAN bus.",
		Long: `Starts the safety monitor that supervises actuator command frames on a CAN bus.

The monitor validates every command frame (checksum, level range, message
counter), drives the actuator over a sysfs PWM channel and broadcasts a
heartbeat frame with an alive counter and the active fault bits. When valid
commands stop arriving, the actuator is forced to its fail-safe level until
the flow resumes. Settings come from a YAML file; every value has a default,
so the monitor runs without one.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &monitor.Options{
				ConfigPath:      configPath,
				Interface:       interfaceName,
				TraceFile:       traceFile,
				WithoutActuator: noActuator,
				Debug:           debug,
			}

			return monitor.Run(ctx, options)
		},
	}
)

// Execute runs the can-sentry CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&interfaceName, "interface", "i", "", "CAN interface to bind, overrides configuration")
	rootCmd.Flags().StringVar(&traceFile, "trace-file", "", "path to record bus traffic, overrides configuration")
	rootCmd.Flags().BoolVar(&noActuator, "no-actuator", false, "run without PWM hardware, useful on a bench")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
}
