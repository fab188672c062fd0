package service

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

const SessionCookie = "pagemill_session"

// SessionStore keeps admin sessions in memory with a fixed TTL.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]session
}

type session struct {
	subject   string
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration, now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		ttl:      ttl,
		now:      now,
		sessions: make(map[string]session),
	}
}

func (s *SessionStore) Create(subject string) (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.NewString()
	expires := s.now().Add(s.ttl)
	s.sessions[token] = session{subject: subject, expiresAt: expires}
	return token, expires
}

// Lookup returns the session subject, evicting the session if it expired.
func (s *SessionStore) Lookup(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return "", false
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, token)
		return "", false
	}
	return sess.subject, true
}

func (s *SessionStore) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Purge drops every expired session and returns how many were removed.
func (s *SessionStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

type AuthService struct {
	logger     *zap.Logger
	totpSecret string
	allowlist  map[string]struct{}
	sessions   *SessionStore
	now        func() time.Time
}

func NewAuthService(logger *zap.Logger, totpSecret string, allowlist []string, sessions *SessionStore) *AuthService {
	allowed := make(map[string]struct{}, len(allowlist))
	for _, email := range allowlist {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			allowed[email] = struct{}{}
		}
	}
	return &AuthService{
		logger:     logger,
		totpSecret: totpSecret,
		allowlist:  allowed,
		sessions:   sessions,
		now:        time.Now,
	}
}

func (a *AuthService) GenerateSecret() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Pagemill Studio",
		AccountName: "admin",
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return key.Secret(), nil
}

func (a *AuthService) ValidateToken(token string) bool {
	valid, err := totp.ValidateCustom(token, a.totpSecret, a.now().UTC(), totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: 6,
	})
	if err != nil || !valid {
		a.logger.Warn("TOTP token validation failed")
		return false
	}
	a.logger.Info("TOTP token validation successful")
	return true
}

// Allowed reports whether email may log in. An empty allowlist admits everyone.
func (a *AuthService) Allowed(email string) bool {
	if len(a.allowlist) == 0 {
		return true
	}
	_, ok := a.allowlist[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Login checks the TOTP code and allowlist and opens a session.
func (a *AuthService) Login(email, code string) (string, time.Time, error) {
	if !a.Allowed(email) {
		a.logger.Warn("Login rejected by allowlist", zap.String("email", email))
		return "", time.Time{}, fmt.Errorf("%s is not allowed to sign in", email)
	}
	if !a.ValidateToken(code) {
		return "", time.Time{}, fmt.Errorf("invalid code")
	}
	subject := email
	if subject == "" {
		subject = "admin"
	}
	token, expires := a.sessions.Create(subject)
	return token, expires, nil
}

func (a *AuthService) Logout(token string) {
	a.sessions.Invalidate(token)
}

func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/api/v1/auth/login" {
			c.Next()
			return
		}

		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}

		subject, ok := a.sessions.Lookup(token)
		if token == "" || !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		c.Set("subject", subject)
		c.Next()
	}
}
