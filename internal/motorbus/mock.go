package motorbus

import (
	"bytes"
	"sync"
)

// MockPort implements Porter with scripted responses for testing. Reads
// drain the read buffer; an empty buffer behaves like a serial read timeout
// (zero bytes, no error), matching the real port's timeout semantics.
type MockPort struct {
	mu sync.Mutex

	// ReadBuffer holds bytes to be returned by Read calls.
	ReadBuffer bytes.Buffer

	// WriteBuffer captures everything written to the port.
	WriteBuffer bytes.Buffer

	// ReadError, if set, is returned by every Read call.
	ReadError error

	// WriteError, if set, is returned by every Write call.
	WriteError error

	// CloseError is returned by Close.
	CloseError error

	// Closed records whether Close was called.
	Closed bool

	// ReadCalls and WriteCalls count port operations.
	ReadCalls  int
	WriteCalls int
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls++
	if m.ReadError != nil {
		return 0, m.ReadError
	}
	if m.ReadBuffer.Len() == 0 {
		return 0, nil // timeout
	}
	return m.ReadBuffer.Read(p)
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls++
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	return m.WriteBuffer.Write(p)
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseError
}

// QueueStatus appends a well-formed status packet from the given device to
// the read buffer.
func (m *MockPort) QueueStatus(id byte, status byte, params []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	length := byte(len(params) + 2) // status + checksum
	pkt := make([]byte, 0, 6+len(params))
	pkt = append(pkt, header[0], header[1], id, length, status)
	pkt = append(pkt, params...)
	pkt = append(pkt, Checksum(pkt[2:]))
	m.ReadBuffer.Write(pkt)
}

// QueueBytes appends raw bytes to the read buffer, for corrupt-frame tests.
func (m *MockPort) QueueBytes(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadBuffer.Write(b)
}

// Written returns a copy of everything written to the port so far.
func (m *MockPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, m.WriteBuffer.Len())
	copy(out, m.WriteBuffer.Bytes())
	return out
}

// ResetWritten clears the captured writes.
func (m *MockPort) ResetWritten() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteBuffer.Reset()
}
