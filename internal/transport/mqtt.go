package transport

import (
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher publishes to an actual MQTT broker and receives remote
// commands on the node's command topic.
type MQTTPublisher struct {
	client  paho.Client
	nodeID  int
	handler func(Command)
}

// NewMQTTPublisher creates a publisher connected to the given broker.
func NewMQTTPublisher(broker string, nodeID int) (*MQTTPublisher, error) {
	p := &MQTTPublisher{nodeID: nodeID}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(fmt.Sprintf("airnode-%d", nodeID)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			c.Subscribe(p.commandTopic()+"/#", 1, p.onMessage)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	p.client = client
	return p, nil
}

// Publish sends one value to the channel's topic.
func (p *MQTTPublisher) Publish(channelID int, value string) error {
	topic := fmt.Sprintf("airnode/%d/value/%s", p.nodeID, ChannelName(channelID))

	// QoS 0 (at-most-once), not retained; the changed-or-stale rule
	// re-sends anything a subscriber misses.
	token := p.client.Publish(topic, 0, false, []byte(value))
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a lifecycle event to the system topic.
func (p *MQTTPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	topic := fmt.Sprintf("airnode/%d/system", p.nodeID)
	// QoS 1 (at-least-once) for lifecycle events - we want delivery.
	token := p.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// OnCommand registers the remote command handler.
func (p *MQTTPublisher) OnCommand(handler func(Command)) {
	p.handler = handler
}

func (p *MQTTPublisher) commandTopic() string {
	return fmt.Sprintf("airnode/%d/cmd", p.nodeID)
}

func (p *MQTTPublisher) onMessage(_ paho.Client, msg paho.Message) {
	if p.handler == nil {
		return
	}
	cmd, ok := ParseCommandTopic(strings.TrimPrefix(msg.Topic(), p.commandTopic()+"/"), string(msg.Payload()))
	if !ok {
		return
	}
	p.handler(cmd)
}

// ParseCommandTopic maps a command subtopic and payload onto a Command.
// Unknown subtopics are ignored.
func ParseCommandTopic(subtopic, payload string) (Command, bool) {
	on := payload == "1" || strings.EqualFold(payload, "on") || strings.EqualFold(payload, "true")
	switch subtopic {
	case "alarm":
		return Command{Type: CommandSetAlarm, Value: on}, true
	case "calibrate":
		return Command{Type: CommandCalibrate, Value: true}, true
	case "test":
		return Command{Type: CommandAlarmTest, Value: true}, true
	case "reset":
		return Command{Type: CommandManualReset, Value: true}, true
	}
	return Command{}, false
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
