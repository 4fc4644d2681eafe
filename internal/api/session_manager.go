package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/thandwin/kmcore/internal/engine"
)

// ErrSessionNotFound is returned when a session ID doesn't exist.
var ErrSessionNotFound = errors.New("session not found")

// Session is one remote client's engine instance plus its bookkeeping.
type Session struct {
	ID        string
	Engine    *engine.Engine
	CreatedAt time.Time

	mu     sync.Mutex
	loaded bool
}

// WithLock runs fn while holding the session's lock, serializing concurrent
// requests against the same Engine (spec.md §5: Engine itself isn't
// internally thread-safe).
func (s *Session) WithLock(fn func(*engine.Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.Engine)
}

// SessionManager owns every live session, keyed by a random ID, mirroring
// the teacher's api/session_manager.go structure with vm.NewVM() swapped
// for engine.New().
type SessionManager struct {
	sessions    map[string]*Session
	broadcaster *Broadcaster
	mu          sync.RWMutex

	composingCap  int
	rematchBudget int
}

// NewSessionManager creates a session manager. composingCap/rematchBudget
// are the defaults applied to sessions that don't override them in their
// create request (0 means "use engine.New's built-in default").
func NewSessionManager(broadcaster *Broadcaster, composingCap, rematchBudget int) *SessionManager {
	return &SessionManager{
		sessions:      make(map[string]*Session),
		broadcaster:   broadcaster,
		composingCap:  composingCap,
		rematchBudget: rematchBudget,
	}
}

// CreateSession creates a new session with a fresh, layout-less Engine.
func (sm *SessionManager) CreateSession(req SessionCreateRequest) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	cap := sm.composingCap
	if req.ComposingCap > 0 {
		cap = req.ComposingCap
	}
	budget := sm.rematchBudget
	if req.RematchBudget > 0 {
		budget = req.RematchBudget
	}

	var opts []engine.Option
	if cap > 0 {
		opts = append(opts, engine.WithComposingCap(cap))
	}
	if budget > 0 {
		opts = append(opts, engine.WithRematchBudget(budget))
	}

	session := &Session{
		ID:        id,
		Engine:    engine.New(opts...),
		CreatedAt: time.Now(),
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[id] = session
	return session, nil
}

// GetSession retrieves a session by ID.
func (sm *SessionManager) GetSession(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DestroySession removes a session by ID.
func (sm *SessionManager) DestroySession(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(sm.sessions, id)
	return nil
}

// ListSessions returns every live session ID.
func (sm *SessionManager) ListSessions() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func generateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
