package serialmux

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// TestSerialPort implements SerialPorter for exercising the mux without
// hardware.
type TestSerialPort struct {
	mu        sync.Mutex
	readData  []byte
	readIndex int
	written   bytes.Buffer
	writeErr  error
	shortN    int
	closed    bool
}

func NewTestSerialPort(data string) *TestSerialPort {
	return &TestSerialPort{readData: []byte(data)}
}

func (p *TestSerialPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.EOF
	}
	if p.readIndex >= len(p.readData) {
		// Block briefly to simulate waiting for more data.
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		p.mu.Lock()
		if p.closed {
			return 0, io.EOF
		}
		return 0, nil
	}
	n := copy(buf, p.readData[p.readIndex:])
	p.readIndex += n
	return n, nil
}

func (p *TestSerialPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	if p.shortN > 0 {
		return p.written.Write(data[:p.shortN])
	}
	return p.written.Write(data)
}

func (p *TestSerialPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func (p *TestSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestSendLineAppendsNewline(t *testing.T) {
	port := NewTestSerialPort("")
	mux := New[*TestSerialPort](port)

	if err := mux.SendLine("COUNT:7"); err != nil {
		t.Fatalf("SendLine: %v", err)
	}
	if got := port.Written(); got != "COUNT:7\n" {
		t.Errorf("written = %q, want %q", got, "COUNT:7\n")
	}

	if err := mux.SendLine("RST:OK\n"); err != nil {
		t.Fatalf("SendLine: %v", err)
	}
	if got := port.Written(); got != "COUNT:7\nRST:OK\n" {
		t.Errorf("written = %q, newline must not double", got)
	}
}

func TestSendLineWriteError(t *testing.T) {
	port := NewTestSerialPort("")
	port.writeErr = errors.New("port gone")
	mux := New[*TestSerialPort](port)

	if err := mux.SendLine("RST:OK"); err == nil {
		t.Error("SendLine with failing port returned nil error")
	}
}

func TestSendLineShortWrite(t *testing.T) {
	port := NewTestSerialPort("")
	port.shortN = 2
	mux := New[*TestSerialPort](port)

	if err := mux.SendLine("COUNT"); !errors.Is(err, ErrWriteFailed) {
		t.Errorf("SendLine short write err = %v, want ErrWriteFailed", err)
	}
}

func TestMonitorFansOutLines(t *testing.T) {
	port := NewTestSerialPort("RST\nCOUNT\n")
	mux := New[*TestSerialPort](port)

	id, ch := mux.Subscribe()
	defer mux.Unsubscribe(id)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	var lines []string
	for len(lines) < 2 {
		select {
		case line := <-ch:
			lines = append(lines, line)
		case <-ctx.Done():
			t.Fatalf("timed out; got lines %v", lines)
		}
	}
	if lines[0] != "RST" || lines[1] != "COUNT" {
		t.Errorf("lines = %v, want [RST COUNT]", lines)
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Monitor returned %v", err)
	}
}

func TestMonitorStopsOnContextCancel(t *testing.T) {
	port := NewTestSerialPort("")
	mux := New[*TestSerialPort](port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not stop after cancellation")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	mux := New[*TestSerialPort](NewTestSerialPort(""))

	id, ch := mux.Subscribe()
	mux.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}
	// Unsubscribing twice is harmless.
	mux.Unsubscribe(id)
}

func TestCloseClosesSubscribersAndPort(t *testing.T) {
	port := NewTestSerialPort("")
	mux := New[*TestSerialPort](port)

	_, ch := mux.Subscribe()
	if err := mux.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("subscriber channel still open after Close")
	}
	if !port.closed {
		t.Error("port not closed")
	}
}

func TestSlowSubscriberDoesNotBlockFanout(t *testing.T) {
	port := NewTestSerialPort("one\ntwo\nthree\n")
	mux := New[*TestSerialPort](port)

	// This subscriber never reads; the fan-out must skip it.
	blockedID, _ := mux.Subscribe()
	defer mux.Unsubscribe(blockedID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go mux.Monitor(ctx)

	// A live subscriber added afterwards still sees later lines; since
	// delivery is best-effort we only require Monitor to keep running.
	id, ch := mux.Subscribe()
	defer mux.Unsubscribe(id)

	select {
	case <-ch:
		// received a line; fan-out is alive
	case <-time.After(1 * time.Second):
		// all lines may have been consumed before we subscribed; that is
		// also not a stall
	}
}
