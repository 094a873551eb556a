package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhoward/airnode/internal/gascurve"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.NodeID)
	assert.Equal(t, 100*time.Millisecond, cfg.Poll)
	assert.Equal(t, 30*time.Second, cfg.Alarm.SuppressWindow)
	assert.Equal(t, 10*time.Second, cfg.Alarm.TestDuration)
	assert.Equal(t, 800*time.Millisecond, cfg.Alarm.ToneInterval)
	assert.Len(t, cfg.Gas, 1)
	assert.Equal(t, gascurve.SensorMQ2, cfg.Gas[0].Sensor)
	assert.False(t, cfg.Duty.Enabled)
	assert.True(t, cfg.Door.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.NodeID)
}

func TestLoadValidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airnode.yaml")
	yamlContent := `
node_id: 7
poll: 250ms
broker: "tcp://10.0.0.5:1883"

sleep:
  min_awake: 5s
  max_sleep: 10m

duty_cycle:
  enabled: true
  heat_duration: 60s
  settle_duration: 90s
  heat_level: 255
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.NodeID)
	assert.Equal(t, 250*time.Millisecond, cfg.Poll)
	assert.Equal(t, "tcp://10.0.0.5:1883", cfg.Broker)
	assert.Equal(t, 5*time.Second, cfg.Sleep.MinAwake)
	assert.True(t, cfg.Duty.Enabled)
	// Untouched fields keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Alarm.SuppressWindow)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airnode.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node_id: [broken"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateADCConflict(t *testing.T) {
	cfg := Default()
	cfg.Gas = append(cfg.Gas, GasChannelConfig{
		Name:           "lpg",
		Enabled:        true,
		ADCChannel:     cfg.Gas[0].ADCChannel, // conflict
		Slot:           2,
		LoadKOhm:       20,
		CleanAirFactor: 9.6,
		Sensor:         gascurve.SensorMQ6,
		Gas:            gascurve.GasLPG,
		UpdateInterval: time.Minute,
		TransportID:    6,
	})

	err := cfg.Validate()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "adc channel 0")
}

func TestValidateSlotConflict(t *testing.T) {
	cfg := Default()
	cfg.Duty.Enabled = true
	cfg.Duty.Slot = cfg.Gas[0].Slot

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage slot")
}

func TestValidatePinConflict(t *testing.T) {
	cfg := Default()
	cfg.Pins.Motion = cfg.Pins.Door

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pin")
}

func TestValidateUnsupportedCurve(t *testing.T) {
	cfg := Default()
	cfg.Gas[0].Gas = gascurve.GasOzone // MQ2 has no ozone curve

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no curve")
}

func TestValidateNoTransport(t *testing.T) {
	cfg := Default()
	cfg.Broker = ""
	cfg.Serial.Port = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no transport")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Broker = ""
	cfg.Pins.Motion = cfg.Pins.Door
	cfg.Gas[0].LoadKOhm = 0

	err := cfg.Validate()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Problems), 3)
}

func TestDisabledSensorsSkipValidation(t *testing.T) {
	cfg := Default()
	cfg.Gas[0].Enabled = false
	cfg.Gas[0].LoadKOhm = -1 // would be invalid if enabled

	assert.NoError(t, cfg.Validate())
}

func TestCapabilities(t *testing.T) {
	cfg := Default()
	cfg.Duty.Enabled = true
	cfg.Serial.Port = "/dev/ttyUSB0"

	caps := cfg.Capabilities()
	assert.Equal(t, 1, caps.GasChannels)
	assert.True(t, caps.DutyCycle)
	assert.True(t, caps.Door)
	assert.True(t, caps.Motion)
	assert.True(t, caps.SerialGW)
}
