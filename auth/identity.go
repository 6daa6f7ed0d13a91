package auth

import (
	"sync"
)

// Session holds the authenticated user of this client instance.
// It satisfies the identity contract: "current user identifier, or
// none".
type Session struct {
	mu     sync.RWMutex
	userID string
}

func NewSession() *Session {
	return &Session{}
}

// Authenticate validates a token and installs its user as the current
// identity.
func (s *Session) Authenticate(tokenString string) error {
	claims, err := ValidateToken(tokenString)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = claims.UserID
	return nil
}

func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
}

func (s *Session) CurrentUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}
