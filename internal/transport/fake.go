package transport

// Published records one value handed to the fake publisher.
type Published struct {
	ChannelID int
	Value     string
}

// FakePublisher records published values for test assertions.
type FakePublisher struct {
	// Values contains everything that was published.
	Values []Published

	// SystemEvents contains all lifecycle events that were published.
	SystemEvents []SystemEvent

	// PublishError, if set, will be returned by Publish.
	// FailCount > 0 limits the failures to the first N calls.
	PublishError error
	FailCount    int

	// Attempts counts Publish calls, including failed ones.
	Attempts int

	// Closed tracks if Close was called.
	Closed bool

	// handler is the registered command handler.
	handler func(Command)
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records the value, or fails if scripted to. With FailCount == 0
// a set PublishError fails every call; with FailCount > 0 only the next
// FailCount calls fail.
func (f *FakePublisher) Publish(channelID int, value string) error {
	f.Attempts++
	if f.PublishError != nil {
		err := f.PublishError
		if f.FailCount > 0 {
			f.FailCount--
			if f.FailCount == 0 {
				f.PublishError = nil
			}
		}
		return err
	}
	f.Values = append(f.Values, Published{ChannelID: channelID, Value: value})
	return nil
}

// PublishSystem records the lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.SystemEvents = append(f.SystemEvents, event)
	return nil
}

// OnCommand registers the command handler.
func (f *FakePublisher) OnCommand(handler func(Command)) {
	f.handler = handler
}

// Deliver invokes the registered handler as if the command arrived from
// the transport layer.
func (f *FakePublisher) Deliver(cmd Command) {
	if f.handler != nil {
		f.handler(cmd)
	}
}

// Last returns the most recent published value for a channel, if any.
func (f *FakePublisher) Last(channelID int) (string, bool) {
	for i := len(f.Values) - 1; i >= 0; i-- {
		if f.Values[i].ChannelID == channelID {
			return f.Values[i].Value, true
		}
	}
	return "", false
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakePublisher) Reset() {
	f.Values = nil
	f.SystemEvents = nil
	f.Closed = false
	f.PublishError = nil
	f.FailCount = 0
	f.Attempts = 0
}
