package chat

import (
	"encoding/hex"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Registry tracks active conversation sessions. It is an injected
// collaborator with explicit construction, not process-global state, and
// is safe for concurrent use.
type Registry struct {
	maxHistoryTurns int
	logger          *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets a custom logger. Default is slog.Default().
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty session registry. Sessions it creates keep
// at most maxHistoryTurns turns; non-positive values fall back to
// DefaultMaxHistoryTurns.
func NewRegistry(maxHistoryTurns int, opts ...RegistryOption) *Registry {
	if maxHistoryTurns <= 0 {
		maxHistoryTurns = DefaultMaxHistoryTurns
	}
	r := &Registry{
		maxHistoryTurns: maxHistoryTurns,
		logger:          slog.Default(),
		sessions:        make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the session with the given id, creating it when
// unknown. An empty id gets a freshly generated one. A cleared id creates
// a brand-new session, never a resurrection of old history.
func (r *Registry) GetOrCreate(sessionID string) *Session {
	if sessionID == "" {
		sessionID = newSessionID()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[sessionID]; ok {
		return session
	}

	session := NewSession(sessionID, r.maxHistoryTurns)
	r.sessions[sessionID] = session
	r.logger.Info("conversation session created", "session_id", sessionID)
	return session
}

// Get returns the session with the given id, if present.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	return session, ok
}

// Clear removes the session and reports whether it existed.
func (r *Registry) Clear(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	r.logger.Info("conversation session cleared", "session_id", sessionID)
	return true
}

// List returns info snapshots for all active sessions.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, session := range r.sessions {
		infos = append(infos, session.Info())
	}
	return infos
}

func newSessionID() string {
	id := uuid.New()
	return "session_" + hex.EncodeToString(id[:])[:12]
}
