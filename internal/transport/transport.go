// Package transport provides the node's "publish value" capability and the
// remote command callback, with abstraction for testing. The mesh/radio
// layer itself (delivery, retries on the air, node presentation) lives
// outside the core; publishers here only hand values to a broker or
// gateway.
package transport

import (
	"encoding/json"
	"fmt"
	"time"
)

// Channel IDs presented to the transport layer. Stable: they are the
// node's external sensor addresses.
const (
	ChannelGas     = 0
	ChannelSmoke   = 1
	ChannelCO      = 2
	ChannelDoor    = 3
	ChannelMotion  = 4
	ChannelBattery = 5
)

// Publisher publishes sensor values.
type Publisher interface {
	// Publish sends one value for a channel. Returns error if publishing
	// fails (should not crash the process).
	Publish(channelID int, value string) error

	// Close disconnects from the broker or gateway.
	Close() error
}

// Command is a remote command delivered to the node. SetAlarm is the only
// command the core acts on; it maps to the alarm arbiter's remote reason.
type Command struct {
	Type  CommandType
	Value bool
}

// CommandType enumerates remote commands.
type CommandType int

const (
	// CommandSetAlarm turns the remote alarm reason on or off.
	CommandSetAlarm CommandType = iota
	// CommandCalibrate requests an operator-triggered recalibration.
	CommandCalibrate
	// CommandAlarmTest requests an alarm test run.
	CommandAlarmTest
	// CommandManualReset silences the alarm and opens the suppression
	// window for the reasons active at reset time.
	CommandManualReset
)

// Receiver delivers remote commands to a handler.
type Receiver interface {
	// OnCommand registers the handler called for each received command.
	OnCommand(func(Command))
}

// SystemEvent is a lifecycle message (startup, shutdown, heartbeat)
// published on the system topic alongside plain values.
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g. "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason    string // e.g. "SIGTERM" (shutdown only)
	Payload   []byte // pre-formatted JSON snapshot; optional
}

// SystemPublisher publishes lifecycle events.
type SystemPublisher interface {
	PublishSystem(event SystemEvent) error
}

// systemPayload is the JSON shape for simple system events.
type systemPayload struct {
	System struct {
		Timestamp string `json:"timestamp"`
		Event     string `json:"event"`
		Reason    string `json:"reason,omitempty"`
	} `json:"system"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.Payload is set, it is returned directly (used for full status
// snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.Payload != nil {
		return event.Payload, nil
	}
	var p systemPayload
	p.System.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	p.System.Event = event.Event
	p.System.Reason = event.Reason
	return json.Marshal(p)
}

// ChannelName returns the log-friendly name of a channel ID.
func ChannelName(channelID int) string {
	switch channelID {
	case ChannelGas:
		return "gas"
	case ChannelSmoke:
		return "smoke"
	case ChannelCO:
		return "co"
	case ChannelDoor:
		return "door"
	case ChannelMotion:
		return "motion"
	case ChannelBattery:
		return "battery"
	}
	return fmt.Sprintf("channel-%d", channelID)
}
