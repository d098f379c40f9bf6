package chi

import (
	"sync"

	"github.com/google/uuid"

	"github.com/palate-labs/palate/internal/domain"
	"github.com/palate-labs/palate/internal/orchestrator"
)

// SessionFactory builds a fully wired conversation session for an id.
type SessionFactory func(id string) *orchestrator.Session

// Registry tracks live conversation sessions by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*orchestrator.Session
	factory  SessionFactory
}

// NewRegistry creates a Registry backed by the given factory.
func NewRegistry(factory SessionFactory) *Registry {
	return &Registry{
		sessions: make(map[string]*orchestrator.Session),
		factory:  factory,
	}
}

// Create starts a new session and returns its id.
func (r *Registry) Create() (string, *orchestrator.Session) {
	id := uuid.NewString()
	sess := r.factory(id)

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	return id, sess
}

// Get returns the session for an id.
func (r *Registry) Get(id string) (*orchestrator.Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown id reports ErrSessionNotFound.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
