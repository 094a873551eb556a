package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	AlarmMask     uint32        `json:"alarm_mask"`
	SleepMask     uint32        `json:"sleep_mask"`
	Sounding      bool          `json:"sounding"`
	TestRunning   bool          `json:"test_running,omitempty"`
	DutyPhase     string        `json:"duty_phase,omitempty"`
	Channels      []ChannelJSON `json:"channels"`
	Published     int           `json:"published"`
	Dropped       int           `json:"dropped"`
	Wakes         int           `json:"wakes"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	Config        ConfigJSON    `json:"config"`
}

// ChannelJSON is the JSON representation of one channel.
type ChannelJSON struct {
	Name   string  `json:"name"`
	Value  string  `json:"value"`
	Ro     float64 `json:"ro,omitempty"`
	Misses int     `json:"misses"`
}

// ConfigJSON is the JSON representation of node config.
type ConfigJSON struct {
	NodeID     int    `json:"node_id"`
	PollMs     int64  `json:"poll_ms"`
	Broker     string `json:"broker,omitempty"`
	SerialPort string `json:"serial_port,omitempty"`
}

// FormatStatusEvent renders a snapshot as the payload for a lifecycle
// event. Returns nil if marshaling fails (callers fall back to the plain
// event payload).
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := StatusInner{
		Event:         event,
		Reason:        reason,
		AlarmMask:     snap.AlarmMask,
		SleepMask:     snap.SleepMask,
		Sounding:      snap.Sounding,
		TestRunning:   snap.TestRunning,
		DutyPhase:     snap.DutyPhase,
		Published:     snap.Published,
		Dropped:       snap.Dropped,
		Wakes:         snap.Wakes,
		UptimeSeconds: int64(snap.Uptime().Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Config: ConfigJSON{
			NodeID:     snap.Config.NodeID,
			PollMs:     snap.Config.PollMs,
			Broker:     snap.Config.Broker,
			SerialPort: snap.Config.SerialPort,
		},
	}
	for _, ch := range snap.Channels {
		inner.Channels = append(inner.Channels, ChannelJSON(ch))
	}

	payload, err := json.Marshal(StatusJSON{Status: inner})
	if err != nil {
		return nil
	}
	return payload
}
