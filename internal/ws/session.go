// Package ws implements the realtime channel: websocket sessions, the
// controller command set and state broadcasting to every connected client.
package ws

import (
	"encoding/json"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// transport is the subset of a websocket connection the session layer needs.
// Tests substitute an in-memory implementation.
type transport interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is one connected websocket client.
type Session struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	conn transport

	// writeMu serializes writes; gorilla connections allow only one
	// concurrent writer.
	writeMu sync.Mutex

	mu       sync.Mutex
	lastSeen time.Time
}

func newSession(conn transport, remoteAddr string) *Session {
	now := time.Now()
	return &Session{
		ID:          uuid.NewString(),
		RemoteAddr:  remoteAddr,
		ConnectedAt: now,
		conn:        conn,
		lastSeen:    now,
	}
}

// sendJSON marshals v and writes it as one text frame.
func (s *Session) sendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen reports when the session last sent a message.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Info is a session snapshot for the clients API.
type Info struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Registry tracks active sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Admit registers a new session for the connection.
func (r *Registry) Admit(conn transport, remoteAddr string) *Session {
	s := newSession(conn, remoteAddr)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Evict removes a session and closes its connection. Returns false when the
// session was already gone, so callers can keep disconnect handling
// idempotent.
func (r *Registry) Evict(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		s.conn.Close()
	}
	return ok
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// snapshot returns the current sessions. Sends happen outside the lock so a
// slow client never blocks the registry.
func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// List returns session info for every active session.
func (r *Registry) List() []Info {
	sessions := r.snapshot()
	out := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, Info{
			ID:          s.ID,
			RemoteAddr:  s.RemoteAddr,
			ConnectedAt: s.ConnectedAt,
			LastSeen:    s.LastSeen(),
		})
	}
	return out
}

// UniqueHosts returns the distinct client hosts, sorted. A browser with
// several tabs open counts once; a phone and a laptop count twice.
func (r *Registry) UniqueHosts() []string {
	sessions := r.snapshot()
	seen := make(map[string]struct{}, len(sessions))
	var hosts []string
	for _, s := range sessions {
		host, _, err := net.SplitHostPort(s.RemoteAddr)
		if err != nil {
			host = s.RemoteAddr
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}
