package websocket

import (
	"errors"
	"net"
	"sync"
	"time"
)

// mockConnection is an in-memory Connection. ReadMessage blocks until a
// message is queued or the connection is closed.
type mockConnection struct {
	mu       sync.Mutex
	written  [][]byte
	types    []int
	reads    chan []byte
	closed   chan struct{}
	closeOne sync.Once
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		reads:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	select {
	case <-m.closed:
		return errors.New("connection closed")
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types = append(m.types, messageType)
	m.written = append(m.written, append([]byte(nil), data...))
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.reads:
		return 1, msg, nil
	case <-m.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (m *mockConnection) Close() error {
	m.closeOne.Do(func() { close(m.closed) })
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }
func (m *mockConnection) SetReadLimit(int64) {}
func (m *mockConnection) SetPongHandler(func(string) error) {}
func (m *mockConnection) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}
}

func (m *mockConnection) messages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, 0, len(m.written))
	for i, w := range m.written {
		if m.types[i] == 1 {
			out = append(out, w)
		}
	}
	return out
}
