// Package actuator abstracts the output device driven by the monitor.
//
// The production implementation programs a Linux sysfs PWM channel; the
// commanded level in percent maps linearly onto the duty cycle. A no-op
// implementation stands in on machines without PWM hardware.
package actuator
