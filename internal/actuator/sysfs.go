package actuator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// sysfsPWMRoot is where the kernel exposes PWM chips.
	sysfsPWMRoot = "/sys/class/pwm"

	// attrFileMode is passed to WriteFile; sysfs attributes already exist,
	// so it only matters for the simulated tree used in tests.
	attrFileMode = 0o644

	// exportWait bounds how long to wait for the kernel to create the
	// channel directory after an export.
	exportWait = time.Second
)

// errInvalidFrequency is returned for non-positive PWM frequencies.
var errInvalidFrequency = errors.New("actuator: pwm frequency must be positive")

// SysfsPWM drives one channel of a Linux sysfs PWM chip.
type SysfsPWM struct {
	chipDir  string
	dir      string
	channel  int
	periodNS int64
}

// OpenSysfsPWM exports the channel, programs the carrier frequency and
// enables the output at zero duty.
func OpenSysfsPWM(chip, channel, frequencyHz int) (*SysfsPWM, error) {
	return openSysfsPWM(sysfsPWMRoot, chip, channel, frequencyHz)
}

// openSysfsPWM is the root-parameterized constructor behind OpenSysfsPWM,
// so tests can run against a simulated sysfs tree.
func openSysfsPWM(root string, chip, channel, frequencyHz int) (*SysfsPWM, error) {
	if frequencyHz <= 0 {
		return nil, errInvalidFrequency
	}

	p := &SysfsPWM{
		chipDir:  filepath.Join(root, fmt.Sprintf("pwmchip%d", chip)),
		channel:  channel,
		periodNS: int64(time.Second) / int64(frequencyHz),
	}
	p.dir = filepath.Join(p.chipDir, fmt.Sprintf("pwm%d", channel))

	if err := p.export(); err != nil {
		return nil, err
	}

	// The period of an enabled channel cannot be reprogrammed.
	if err := p.writeAttr("enable", "0"); err != nil {
		return nil, err
	}

	if err := p.writeAttr("period", strconv.FormatInt(p.periodNS, 10)); err != nil {
		return nil, err
	}

	if err := p.writeAttr("duty_cycle", "0"); err != nil {
		return nil, err
	}

	if err := p.writeAttr("enable", "1"); err != nil {
		return nil, err
	}

	return p, nil
}

// SetLevel maps the percentage onto the duty cycle and applies it.
func (p *SysfsPWM) SetLevel(percent uint8) error {
	if percent > 100 {
		percent = 100
	}

	duty := p.periodNS * int64(percent) / 100

	return p.writeAttr("duty_cycle", strconv.FormatInt(duty, 10))
}

// Close disables the output and unexports the channel.
func (p *SysfsPWM) Close() error {
	err := p.writeAttr("enable", "0")

	// Unexport even after a failed disable; the kernel drops the channel
	// state either way.
	unexport := filepath.Join(p.chipDir, "unexport")
	if uerr := os.WriteFile(unexport, []byte(strconv.Itoa(p.channel)), attrFileMode); uerr != nil && err == nil {
		err = fmt.Errorf("actuator: unexport channel %d: %w", p.channel, uerr)
	}

	return err
}

// export asks the chip to expose the channel unless it already is.
// The kernel creates the channel directory asynchronously.
func (p *SysfsPWM) export() error {
	if _, err := os.Stat(p.dir); err == nil {
		return nil
	}

	export := filepath.Join(p.chipDir, "export")
	if err := os.WriteFile(export, []byte(strconv.Itoa(p.channel)), attrFileMode); err != nil {
		return fmt.Errorf("actuator: export channel %d: %w", p.channel, err)
	}

	deadline := time.Now().Add(exportWait)

	for {
		if _, err := os.Stat(p.dir); err == nil {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("actuator: pwm channel %s did not appear", p.dir)
		}

		time.Sleep(10 * time.Millisecond)
	}
}

// writeAttr writes one sysfs attribute of the channel.
func (p *SysfsPWM) writeAttr(name, value string) error {
	path := filepath.Join(p.dir, name)
	if err := os.WriteFile(path, []byte(value), attrFileMode); err != nil {
		return fmt.Errorf("actuator: write %s: %w", path, err)
	}

	return nil
}
