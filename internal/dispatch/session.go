package dispatch

import (
	"encoding/json"
	"sync"

	"github.com/rileyL6122428/FriEnds-backend/internal/broadcast"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
)

// Session is the per-connection state handlers work against
type Session struct {
	id     model.ConnectionID
	fanout *broadcast.Fanout

	mu       sync.RWMutex
	identity *model.Identity
}

func newSession(id model.ConnectionID, fanout *broadcast.Fanout) *Session {
	return &Session{id: id, fanout: fanout}
}

// ID returns the connection ID, which clients know as their client name
func (s *Session) ID() model.ConnectionID {
	return s.id
}

// Identity returns a copy of the bound identity, or nil
func (s *Session) Identity() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	return s.identity.Clone()
}

// Bind attaches an identity to the session
func (s *Session) Bind(identity *model.Identity) {
	s.mu.Lock()
	s.identity = identity.Clone()
	s.mu.Unlock()
}

// Unbind detaches the identity and returns it
func (s *Session) Unbind() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.identity
	s.identity = nil
	return prev
}

// Reply encodes v and queues it for this connection only
func (s *Session) Reply(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.fanout.Send(s.id, data)
	return nil
}

// Registry tracks live sessions by connection ID
type Registry struct {
	mu       sync.RWMutex
	sessions map[model.ConnectionID]*Session
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[model.ConnectionID]*Session)}
}

// Add stores a session
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
}

// Remove deletes a session
func (r *Registry) Remove(id model.ConnectionID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Get returns the live session for a connection, or nil
func (r *Registry) Get(id model.ConnectionID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
