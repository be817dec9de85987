package serialmux

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/banshee-data/footfall/internal/monitoring"
)

// MockSerialPort implements SerialPorter for dev mode. Reads come from a
// pipe fed by a fixture replay goroutine; writes are captured in memory and
// logged so responses are visible without hardware.
type MockSerialPort struct {
	io.Reader
	closer io.Closer

	mu      sync.Mutex
	written bytes.Buffer
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	monitoring.Logf("mock serial wrote: %q", string(p))
	return m.written.Write(p)
}

// Written returns everything written to the mock port so far.
func (m *MockSerialPort) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.String()
}

func (m *MockSerialPort) Close() error {
	return m.closer.Close()
}

// NewMockSerialMux creates a SerialMux fed by the given fixture lines,
// replayed one line per interval to simulate an external controller issuing
// commands over the wire.
func NewMockSerialMux(fixture []byte, interval time.Duration) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()

	mockPort := &MockSerialPort{
		Reader: r,
		closer: r,
	}

	go func() {
		defer w.Close()
		lines := bytes.Split(fixture, []byte("\n"))
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		i := 0
		for range ticker.C {
			line := lines[i%len(lines)]
			if _, err := w.Write(append(line, '\n')); err != nil {
				return
			}
			i++
		}
	}()

	return New(mockPort)
}
