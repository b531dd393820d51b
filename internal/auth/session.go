package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vzahanych/vision-portal/internal/logger"
	"github.com/vzahanych/vision-portal/internal/service"
)

// SessionCookie is the cookie carrying the session token
const SessionCookie = "session_token"

// Session binds an opaque token to a username until it expires
type Session struct {
	Token     string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionManager issues and verifies session tokens. Sessions live in
// memory; restarting the process logs everyone out. Expired sessions are
// swept periodically while the manager runs as a service.
type SessionManager struct {
	*service.ServiceBase
	ttl      time.Duration
	sessions map[string]*Session
	mu       sync.RWMutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSessionManager creates a session manager with the given token lifetime
func NewSessionManager(ttl time.Duration, log *logger.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{
		ServiceBase: service.NewServiceBase("session-manager", log),
		ttl:         ttl,
		sessions:    make(map[string]*Session),
	}
}

// Create issues a new session token for the given username
func (m *SessionManager) Create(username string) *Session {
	now := time.Now()
	sess := &Session{
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[sess.Token] = sess
	m.mu.Unlock()

	return sess
}

// Verify resolves a token to its username. Expired or unknown tokens
// return false.
func (m *SessionManager) Verify(token string) (string, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok {
		return "", false
	}
	if time.Now().After(sess.ExpiresAt) {
		m.Delete(token)
		return "", false
	}
	return sess.Username, true
}

// Delete removes a session token (logout)
func (m *SessionManager) Delete(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// ActiveCount returns the number of live sessions
func (m *SessionManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start begins the background sweep of expired sessions
func (m *SessionManager) Start(ctx context.Context) error {
	m.SetStatus(service.StatusStarting)
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()

	m.SetStatus(service.StatusRunning)
	m.LogInfo("Session manager started", "ttl", m.ttl)
	return nil
}

// Stop stops the background sweep
func (m *SessionManager) Stop(ctx context.Context) error {
	m.SetStatus(service.StatusStopping)
	if m.cancel != nil {
		m.cancel()
	}
	if m.done != nil {
		select {
		case <-m.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.SetStatus(service.StatusStopped)
	m.LogInfo("Session manager stopped")
	return nil
}

// sweep drops all expired sessions
func (m *SessionManager) sweep() {
	now := time.Now()
	m.mu.Lock()
	removed := 0
	for token, sess := range m.sessions {
		if now.After(sess.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		m.LogInfo("Swept expired sessions", "count", removed)
	}
}
