package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultPWMPeriod is 25kHz, inaudible and fine for heater supplies.
const DefaultPWMPeriod = 40000 // nanoseconds

// PWMActuator drives a heater supply through a sysfs PWM channel. Levels
// are 0..255 and map linearly onto the duty cycle.
type PWMActuator struct {
	dir    string
	period int
}

// NewPWMActuator exports and enables the given channel of a PWM chip
// (e.g. "/sys/class/pwm/pwmchip0", channel 0).
func NewPWMActuator(chipPath string, channel, periodNs int) (*PWMActuator, error) {
	if periodNs <= 0 {
		periodNs = DefaultPWMPeriod
	}
	dir := filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := writeSysfs(filepath.Join(chipPath, "export"), channel); err != nil {
			return nil, fmt.Errorf("export pwm channel %d: %w", channel, err)
		}
	}
	a := &PWMActuator{dir: dir, period: periodNs}
	if err := writeSysfs(filepath.Join(dir, "period"), periodNs); err != nil {
		return nil, fmt.Errorf("set pwm period: %w", err)
	}
	if err := a.SetLevel(0); err != nil {
		return nil, err
	}
	if err := writeSysfs(filepath.Join(dir, "enable"), 1); err != nil {
		return nil, fmt.Errorf("enable pwm: %w", err)
	}
	return a, nil
}

// SetLevel drives the duty level 0..255; out-of-range levels are clamped.
func (a *PWMActuator) SetLevel(level int) error {
	if level < 0 {
		level = 0
	}
	if level > 255 {
		level = 255
	}
	duty := a.period * level / 255
	if err := writeSysfs(filepath.Join(a.dir, "duty_cycle"), duty); err != nil {
		return fmt.Errorf("set pwm duty: %w", err)
	}
	return nil
}

// Close powers the channel down and disables it.
func (a *PWMActuator) Close() error {
	if err := a.SetLevel(0); err != nil {
		return err
	}
	if err := writeSysfs(filepath.Join(a.dir, "enable"), 0); err != nil {
		return fmt.Errorf("disable pwm: %w", err)
	}
	return nil
}

func writeSysfs(path string, value int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(value)), 0644)
}
