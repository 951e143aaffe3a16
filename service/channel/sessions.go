package channel

import "sync"

// Sessions tracks which draft each reviewer session is currently rewriting.
// At most one draft per session key: opening a new session supersedes the
// previous one. Safe for concurrent use by inbound event handlers.
type Sessions struct {
	mu     sync.Mutex
	drafts map[string]string // reviewer session key -> draft id
}

func NewSessions() *Sessions {
	return &Sessions{drafts: make(map[string]string)}
}

// Open starts an edit session for the draft, superseding any previous one
// held by the same session key.
func (s *Sessions) Open(sessionKey, draftID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[sessionKey] = draftID
}

// Active returns the draft id currently being edited by the session, if any.
func (s *Sessions) Active(sessionKey string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.drafts[sessionKey]
	return id, ok
}

// Close destroys the session. Closing an absent session is a no-op.
func (s *Sessions) Close(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionKey)
}
