package session

import "sync"

// Conn is a routable handle to a live scanner connection.
//
// Implementations must be comparable (pointer types in practice) because the
// registry uses the handle itself as a reverse-lookup key.
type Conn interface {
	Send(data []byte) error
}

// Entry is one paired device as seen during iteration.
type Entry struct {
	DeviceID string
	Conn     Conn
}

// Registry maps device ids to connections.
//
// All methods are safe for concurrent use. Mutations and snapshots are
// serialised by one RWMutex; callbacks passed to ForEach run outside it.
type Registry struct {
	mu       sync.RWMutex
	byDevice map[string]Conn
	byConn   map[Conn]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byDevice: make(map[string]Conn),
		byConn:   make(map[Conn]string),
	}
}

// Register maps deviceID to conn, replacing any previous mapping for either side.
func (r *Registry) Register(deviceID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byDevice[deviceID]; ok && prev != conn {
		delete(r.byConn, prev)
	}
	if prevID, ok := r.byConn[conn]; ok && prevID != deviceID {
		delete(r.byDevice, prevID)
	}

	r.byDevice[deviceID] = conn
	r.byConn[conn] = deviceID
}

// FindByConnection returns the device id registered for conn.
// The boolean is false for connections that never completed a handshake.
func (r *Registry) FindByConnection(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[conn]
	return id, ok
}

// Lookup returns the connection registered for deviceID.
func (r *Registry) Lookup(deviceID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byDevice[deviceID]
	return conn, ok
}

// RemoveByConnection deletes the mapping whose value is conn. No-op if absent.
// It returns the device id that was removed, if any.
func (r *Registry) RemoveByConnection(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byConn[conn]
	if !ok {
		return "", false
	}
	delete(r.byConn, conn)
	if r.byDevice[id] == conn {
		delete(r.byDevice, id)
	}
	return id, true
}

// RemoveAll drops every mapping. Used when the gateway starts or stops.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDevice = make(map[string]Conn)
	r.byConn = make(map[Conn]string)
}

// ForEach calls fn for every registered device.
//
// fn runs on a consistent snapshot taken under the lock, so it never sees a
// half-applied mutation and may itself call back into the registry. Delivery
// is best-effort: fn is invoked for every entry regardless of what earlier
// calls did.
func (r *Registry) ForEach(fn func(deviceID string, conn Conn)) {
	for _, e := range r.Snapshot() {
		fn(e.DeviceID, e.Conn)
	}
}

// Snapshot returns a copy of all entries.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.byDevice))
	for id, conn := range r.byDevice {
		entries = append(entries, Entry{DeviceID: id, Conn: conn})
	}
	return entries
}

// DeviceIDs returns the ids of all paired devices in no particular order.
func (r *Registry) DeviceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byDevice))
	for id := range r.byDevice {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of paired devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byDevice)
}
