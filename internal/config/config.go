// Package config holds the node configuration: which optional sensors are
// present, where they are wired, and the timing parameters of the loop.
// The capability set is resolved once at startup from the YAML file; pin
// and channel conflicts are rejected by Validate before the scheduler runs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dhoward/airnode/internal/gascurve"
	"github.com/dhoward/airnode/internal/gpio"
)

// Config represents the node configuration.
type Config struct {
	NodeID    int           `yaml:"node_id"`
	Poll      time.Duration `yaml:"poll"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	Broker    string        `yaml:"broker"`
	Serial    SerialConfig  `yaml:"serial"`
	StorePath string        `yaml:"store_path"`

	Sleep SleepConfig `yaml:"sleep"`
	Alarm AlarmConfig `yaml:"alarm"`
	Pins  PinsConfig  `yaml:"pins"`

	Gas  []GasChannelConfig `yaml:"gas_channels"`
	Duty DutyConfig         `yaml:"duty_cycle"`

	Door   BinarySensorConfig `yaml:"door"`
	Motion BinarySensorConfig `yaml:"motion"`
}

// SerialConfig selects the optional serial gateway transport. When Port is
// set it replaces the MQTT broker.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// SleepConfig times the long low-power suspension.
type SleepConfig struct {
	MinAwake time.Duration `yaml:"min_awake"`
	MaxSleep time.Duration `yaml:"max_sleep"`
}

// AlarmConfig parameterizes the alarm arbiter.
type AlarmConfig struct {
	SuppressWindow time.Duration `yaml:"suppress_window"`
	TestDuration   time.Duration `yaml:"test_duration"`
	ToneInterval   time.Duration `yaml:"tone_interval"`
}

// PinsConfig maps the digital lines (BCM numbering).
type PinsConfig struct {
	Door     int `yaml:"door"`
	Motion   int `yaml:"motion"`
	ToneLow  int `yaml:"tone_low"`
	ToneHigh int `yaml:"tone_high"`
}

// GasChannelConfig describes one continuously-sampled gas channel.
type GasChannelConfig struct {
	Name           string          `yaml:"name"`
	Enabled        bool            `yaml:"enabled"`
	ADCChannel     int             `yaml:"adc_channel"`
	Slot           int             `yaml:"slot"`
	LoadKOhm       float64         `yaml:"load_kohm"`
	CleanAirFactor float64         `yaml:"clean_air_factor"`
	Sensor         gascurve.Sensor `yaml:"sensor"`
	Gas            gascurve.Gas    `yaml:"gas"`
	AlarmThreshold float64         `yaml:"alarm_threshold"`
	UpdateInterval time.Duration   `yaml:"update_interval"`
	MissCap        int             `yaml:"miss_cap"`
	TransportID    int             `yaml:"transport_id"`
}

// DutyConfig describes the phased (heat/settle/sample) sensor.
type DutyConfig struct {
	Enabled         bool            `yaml:"enabled"`
	ADCChannel      int             `yaml:"adc_channel"`
	FeedbackChannel int             `yaml:"feedback_channel"`
	Slot            int             `yaml:"slot"`
	LoadKOhm        float64         `yaml:"load_kohm"`
	CleanAirFactor  float64         `yaml:"clean_air_factor"`
	Sensor          gascurve.Sensor `yaml:"sensor"`
	Gas             gascurve.Gas    `yaml:"gas"`
	HeatDuration    time.Duration   `yaml:"heat_duration"`
	SettleDuration  time.Duration   `yaml:"settle_duration"`
	HeatLevel       int             `yaml:"heat_level"`
	TargetRaw       int             `yaml:"target_raw"`
	AlarmThreshold  float64         `yaml:"alarm_threshold"`
	DeactivateBelow float64         `yaml:"deactivate_below"`
	TransportID     int             `yaml:"transport_id"`
	PWMChip         string          `yaml:"pwm_chip"`
	PWMChannel      int             `yaml:"pwm_channel"`
}

// BinarySensorConfig enables one of the wake-capable binary inputs.
type BinarySensorConfig struct {
	Enabled     bool `yaml:"enabled"`
	TransportID int  `yaml:"transport_id"`
}

// Default returns a default configuration with sensible values: an MQ-2 on
// channel 0 watching smoke, the MQ-7 duty cycle disabled, door and motion
// enabled.
func Default() *Config {
	return &Config{
		NodeID:    1,
		Poll:      100 * time.Millisecond,
		Heartbeat: 15 * time.Minute,
		Broker:    "tcp://192.168.1.200:1883",
		StorePath: "/var/lib/airnode/calib.bin",
		Sleep: SleepConfig{
			MinAwake: 2 * time.Second,
			MaxSleep: 2 * time.Minute,
		},
		Alarm: AlarmConfig{
			SuppressWindow: 30 * time.Second,
			TestDuration:   10 * time.Second,
			ToneInterval:   800 * time.Millisecond,
		},
		Pins: PinsConfig{
			Door:     gpio.DefaultPinDoor,
			Motion:   gpio.DefaultPinMotion,
			ToneLow:  gpio.DefaultPinToneLow,
			ToneHigh: gpio.DefaultPinToneHigh,
		},
		Gas: []GasChannelConfig{
			{
				Name:           "smoke",
				Enabled:        true,
				ADCChannel:     0,
				Slot:           0,
				LoadKOhm:       18,
				CleanAirFactor: 9.8,
				Sensor:         gascurve.SensorMQ2,
				Gas:            gascurve.GasSmoke,
				AlarmThreshold: 10,
				UpdateInterval: 30 * time.Second,
				MissCap:        10,
				TransportID:    1,
			},
		},
		Duty: DutyConfig{
			Enabled:         false,
			ADCChannel:      1,
			FeedbackChannel: 2,
			Slot:            1,
			LoadKOhm:        10,
			CleanAirFactor:  27.5,
			Sensor:          gascurve.SensorMQ7,
			Gas:             gascurve.GasCO,
			HeatDuration:    60 * time.Second,
			SettleDuration:  90 * time.Second,
			HeatLevel:       255,
			TargetRaw:       286, // ~1.4V feedback on the 10-bit scale
			AlarmThreshold:  25,
			DeactivateBelow: 5,
			TransportID:     2,
			PWMChip:         "/sys/class/pwm/pwmchip0",
		},
		Door:   BinarySensorConfig{Enabled: true, TransportID: 3},
		Motion: BinarySensorConfig{Enabled: true, TransportID: 4},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
