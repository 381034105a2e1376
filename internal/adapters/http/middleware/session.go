package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultSessionTTL is how long a login lasts without an explicit TTL.
const DefaultSessionTTL = 24 * time.Hour

// Session represents an authenticated login.
type Session struct {
	AccountID   string    `json:"account_id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	TherapistID string    `json:"therapist_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionStore keeps sessions keyed by an opaque cookie token.
type SessionStore interface {
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, token string) (Session, bool)
	Delete(ctx context.Context, token string)
}

// MemorySessionStore is the default single-process SessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates a store whose sessions expire after ttl.
// PRE: none; ttl <= 0 selects DefaultSessionTTL
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{sessions: make(map[string]Session), ttl: ttl, now: time.Now}
}

// Create stores s under a fresh token.
// PRE: s.AccountID and s.Role are non-empty
// POST: Get(token) returns s until the TTL passes or Delete is called
func (ms *MemorySessionStore) Create(_ context.Context, s Session) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	s.CreatedAt = ms.now()
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[token] = s
	return token, nil
}

// Get returns the session for token if it exists and has not expired.
func (ms *MemorySessionStore) Get(_ context.Context, token string) (Session, bool) {
	ms.mu.RLock()
	s, ok := ms.sessions[token]
	ms.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if ms.now().Sub(s.CreatedAt) > ms.ttl {
		ms.mu.Lock()
		delete(ms.sessions, token)
		ms.mu.Unlock()
		return Session{}, false
	}
	return s, true
}

// Delete removes a session. Unknown tokens are ignored.
func (ms *MemorySessionStore) Delete(_ context.Context, token string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, token)
}

// Len reports how many sessions are held, expired ones included.
func (ms *MemorySessionStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.sessions)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
