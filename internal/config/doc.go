// Package config defines the monitor settings and provides helpers to
// load, validate and save them in YAML format.
//
// The Config type holds the CAN interface and identifiers, the timing of
// the supervisory loop and heartbeat, the fault windows and the PWM
// actuator parameters. Every field has a default, so a missing settings
// file yields a runnable configuration.
package config
