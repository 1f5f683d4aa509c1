// Package session holds the in-memory table of live WebSocket connections:
// client IDs, their authentication state, and the outbound queue each
// connection's writer goroutine drains.
package session

import (
	"sync"
	"sync/atomic"
)

// Session is the transient per-connection record held only while a
// socket is open.
type Session struct {
	ClientID      int64
	DeviceID      string
	DeviceName    string
	Authenticated bool

	// Outbound is the per-connection outbound queue; the connection's
	// writer goroutine drains it into the socket. Closing it signals that
	// goroutine to exit.
	Outbound chan []byte

	mu     sync.Mutex
	closed bool
}

func newSession(clientID int64) *Session {
	return &Session{
		ClientID: clientID,
		Outbound: make(chan []byte, 64),
	}
}

// IsAuthenticated reports whether the session has completed pair or
// reconnect. Safe to call from the connection's own goroutine while
// another goroutine evicts the session via Bind.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Authenticated
}

// Identity returns the bound device_id/device_name, if any.
func (s *Session) Identity() (deviceID, deviceName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DeviceID, s.DeviceName
}

// Enqueue pushes a frame onto the outbound queue. A no-op once the
// session has been evicted or closed. The fallback slow path sends
// outside the lock so the mutex is never held across the suspension
// point; a concurrent close racing the send is caught and dropped
// rather than panicking.
func (s *Session) Enqueue(frame []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	select {
	case s.Outbound <- frame:
		s.mu.Unlock()
		return
	default:
	}
	s.mu.Unlock()

	defer func() { recover() }()
	s.Outbound <- frame
}

// close marks the session closed and closes its outbound queue exactly
// once, so the connection's writer goroutine observes channel closure and
// exits its send loop.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.Outbound)
}

// Table is the thread-safe Session Table: all live connections, indexed
// by client ID, with a secondary index from device_id to client_id used
// to enforce "at most one authenticated session per device_id".
type Table struct {
	mu       sync.Mutex
	byClient map[int64]*Session
	byDevice map[string]int64
	nextID   int64
}

// NewTable creates an empty Session Table.
func NewTable() *Table {
	return &Table{
		byClient: make(map[int64]*Session),
		byDevice: make(map[string]int64),
	}
}

// NewSession allocates a fresh Session with the next monotonic client ID
// and adds it to the table, unauthenticated.
func (t *Table) NewSession() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := atomic.AddInt64(&t.nextID, 1)
	s := newSession(id)
	t.byClient[id] = s
	return s
}

// Bind associates session with deviceID/deviceName, marks it
// authenticated, and evicts any other live session already bound to the
// same device_id — the new socket wins. Returns the evicted session, if
// any, so the caller can log it.
func (t *Table) Bind(s *Session, deviceID, deviceName string) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted *Session
	if oldClientID, ok := t.byDevice[deviceID]; ok && oldClientID != s.ClientID {
		if old, ok := t.byClient[oldClientID]; ok {
			evicted = old
			delete(t.byClient, oldClientID)
		}
	}

	s.mu.Lock()
	s.DeviceID = deviceID
	s.DeviceName = deviceName
	s.Authenticated = true
	s.mu.Unlock()
	t.byDevice[deviceID] = s.ClientID

	if evicted != nil {
		evicted.close()
	}
	return evicted
}

// Remove drops a session from the table on socket close. A no-op if the
// session was already evicted by a duplicate registration.
func (t *Table) Remove(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.byClient[s.ClientID]; !ok || current != s {
		return
	}
	delete(t.byClient, s.ClientID)
	deviceID, _ := s.Identity()
	if deviceID != "" && t.byDevice[deviceID] == s.ClientID {
		delete(t.byDevice, deviceID)
	}
	s.close()
}

// ConnectedDeviceCount returns the number of distinct authenticated
// device_ids currently in the table — not the raw socket count.
func (t *Table) ConnectedDeviceCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byDevice)
}

// ConnectedDevices returns the device_ids of every authenticated session.
func (t *Table) ConnectedDevices() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.byDevice))
	for deviceID := range t.byDevice {
		out = append(out, deviceID)
	}
	return out
}

// Clear evicts every session in the table (called on transport shutdown).
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.byClient {
		s.close()
	}
	t.byClient = make(map[int64]*Session)
	t.byDevice = make(map[string]int64)
}
