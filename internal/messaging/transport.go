package messaging

import "sync"

// Transport is the publish/subscribe contract the control loop relies on.
// Command payloads arrive as opaque bytes; the loop owns deserialization so
// malformed messages can be logged and dropped there.
type Transport interface {
	// Commands returns the channel carrying inbound command payloads.
	Commands() <-chan []byte
	// PublishActuation publishes the per-tick actuation record.
	PublishActuation(payload []byte) error
	// PublishHealth publishes the runtime health status.
	PublishHealth(payload []byte) error
	// Close releases the transport.
	Close() error
}

// retainLimit bounds how many published payloads a ChannelTransport keeps.
// A bus-less runtime publishes every tick, so retention must not grow with
// uptime.
const retainLimit = 256

// ChannelTransport is an in-process Transport used by tests and by bus-less
// operation. The most recent published payloads are retained for inspection.
type ChannelTransport struct {
	commands chan []byte

	mu         sync.Mutex
	actuations [][]byte
	healths    [][]byte
	closed     bool
}

// NewChannelTransport creates an in-process transport with the given command
// buffer depth.
func NewChannelTransport(buffer int) *ChannelTransport {
	return &ChannelTransport{commands: make(chan []byte, buffer)}
}

// SendCommand injects a command payload, as a remote publisher would.
func (t *ChannelTransport) SendCommand(payload []byte) {
	t.commands <- payload
}

func (t *ChannelTransport) Commands() <-chan []byte {
	return t.commands
}

func (t *ChannelTransport) PublishActuation(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actuations = retain(t.actuations, payload)
	return nil
}

func (t *ChannelTransport) PublishHealth(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.healths = retain(t.healths, payload)
	return nil
}

func retain(buf [][]byte, payload []byte) [][]byte {
	buf = append(buf, payload)
	if len(buf) > retainLimit {
		buf = buf[len(buf)-retainLimit:]
	}
	return buf
}

// Actuations returns a copy of every actuation payload published so far.
func (t *ChannelTransport) Actuations() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.actuations))
	copy(out, t.actuations)
	return out
}

// Healths returns a copy of every health payload published so far.
func (t *ChannelTransport) Healths() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.healths))
	copy(out, t.healths)
	return out
}

func (t *ChannelTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.commands)
	}
	return nil
}
