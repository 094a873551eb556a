package transport

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate matches common sensor-mesh serial gateways.
const DefaultBaudRate = 115200

// Serial gateway protocol constants: lines of
// "nodeID;childID;command;ack;type;payload\n".
const (
	gwCommandSet = 1
	gwAckNone    = 0
	gwTypeStatus = 2
)

// SerialPublisher hands values to a serial-attached gateway using the
// line protocol above. An alternative to MQTT for nodes without IP
// connectivity.
type SerialPublisher struct {
	mu     sync.Mutex
	port   serial.Port
	nodeID int
}

// NewSerialPublisher opens the serial port at the given baud rate
// (0 for the default).
func NewSerialPublisher(portName string, baudRate, nodeID int) (*SerialPublisher, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return &SerialPublisher{port: port, nodeID: nodeID}, nil
}

// Publish writes one protocol line for the channel's value.
func (p *SerialPublisher) Publish(channelID int, value string) error {
	line := FormatGatewayLine(p.nodeID, channelID, value)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("write gateway line: %w", err)
	}
	return nil
}

// FormatGatewayLine renders one protocol line.
func FormatGatewayLine(nodeID, channelID int, value string) string {
	return fmt.Sprintf("%d;%d;%d;%d;%d;%s\n", nodeID, channelID, gwCommandSet, gwAckNone, gwTypeStatus, value)
}

// Close closes the serial port.
func (p *SerialPublisher) Close() error {
	return p.port.Close()
}
