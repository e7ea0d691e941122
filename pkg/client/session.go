package client

import (
	"errors"
	"sync"

	"github.com/taskhive/backend/domain"
)

var (
	// ErrNotAuthenticated is returned for protected calls with no session.
	ErrNotAuthenticated = errors.New("client: not authenticated")
	// ErrSessionEnded is returned when a response lands after the session it
	// was issued under was replaced or logged out; the result is discarded.
	ErrSessionEnded = errors.New("client: session ended while request was in flight")
)

// sessionState is the single mutable "current user" cell. authMu serializes
// login/logout/resume end to end; mu protects reads of the cell itself. Every
// install or clear bumps gen, which in-flight requests compare against before
// trusting their response.
type sessionState struct {
	authMu sync.Mutex

	mu    sync.RWMutex
	token string
	user  *domain.User
	gen   uint64
}

func (s *sessionState) beginAuth() { s.authMu.Lock() }
func (s *sessionState) endAuth()   { s.authMu.Unlock() }

func (s *sessionState) install(token string, user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	s.gen++
}

func (s *sessionState) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.gen++
}

func (s *sessionState) snapshot() (string, *domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.user, s.user != nil
}

func (s *sessionState) snapshotGen() (string, *domain.User, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.user, s.gen, s.user != nil
}

func (s *sessionState) stillCurrent(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen == gen
}
