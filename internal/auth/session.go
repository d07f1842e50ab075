package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thejerf/abtime"

	"quillpad/internal/domain"
	"quillpad/internal/repository"
)

// Authenticator is the slice of the user service the identity providers need.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// SessionConfig configures browser sessions.
type SessionConfig struct {
	Secret      []byte
	TTL         time.Duration
	RememberTTL time.Duration
	CookieName  string
	Secure      bool
	Clock       abtime.AbstractTime
	Logger      *logrus.Logger
}

// SignedSession is a freshly created session together with the cookie
// value that refers to it.
type SignedSession struct {
	domain.Session
	User     *domain.User
	Value    string
	Remember bool
}

// SessionManager moves a browser between anonymous and authenticated.
//
// The cookie holds "<session id>.<hmac>". The id is only a handle to the
// server-side row, which carries the user id and expiry.
type SessionManager struct {
	users Authenticator
	store repository.SessionRepository
	cfg   SessionConfig
}

type expiredPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

func NewSessionManager(users Authenticator, store repository.SessionRepository, cfg SessionConfig) (*SessionManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("session secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.RememberTTL <= 0 {
		cfg.RememberTTL = 30 * 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "quillpad_session"
	}
	if cfg.Clock == nil {
		cfg.Clock = abtime.NewRealTime()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &SessionManager{users: users, store: store, cfg: cfg}, nil
}

func (m *SessionManager) CookieName() string {
	return m.cfg.CookieName
}

// Login verifies the credentials and opens a new session.
func (m *SessionManager) Login(ctx context.Context, email, password string, remember bool) (*SignedSession, error) {
	user, err := m.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	now := m.cfg.Clock.Now()
	ttl := m.cfg.TTL
	if remember {
		ttl = m.cfg.RememberTTL
	}
	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := m.store.Create(ctx, &session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	if purger, ok := m.store.(expiredPurger); ok {
		if n, err := purger.DeleteExpired(ctx, now); err != nil {
			m.cfg.Logger.Warnf("purge expired sessions: %v", err)
		} else if n > 0 {
			m.cfg.Logger.Debugf("purged %d expired sessions", n)
		}
	}

	return &SignedSession{
		Session:  session,
		User:     user,
		Value:    m.sign(session.ID),
		Remember: remember,
	}, nil
}

// Resolve returns the user behind a cookie value. The user is loaded from
// the credential store on every call.
func (m *SessionManager) Resolve(ctx context.Context, value string) (*domain.User, *domain.Session, error) {
	id, ok := m.verify(value)
	if !ok {
		return nil, nil, ErrNoSession
	}

	session, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrNoSession
		}
		return nil, nil, err
	}
	if session.Expired(m.cfg.Clock.Now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			m.cfg.Logger.Warnf("delete expired session: %v", err)
		}
		return nil, nil, ErrSessionExpired
	}

	user, err := m.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrNoSession
		}
		return nil, nil, err
	}
	return user, session, nil
}

// Logout destroys the session behind value. Unknown or unsigned values are
// ignored.
func (m *SessionManager) Logout(ctx context.Context, value string) error {
	id, ok := m.verify(value)
	if !ok {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// Cookie builds the Set-Cookie value for a new session. Without remember-me
// it is a browser-session cookie; the server-side expiry applies either way.
func (m *SessionManager) Cookie(s *SignedSession) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    s.Value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.Remember {
		c.MaxAge = int(s.ExpiresAt.Sub(s.CreatedAt) / time.Second)
		c.Expires = s.ExpiresAt.UTC()
	}
	return c
}

// ClearCookie builds a Set-Cookie that removes the session cookie.
func (m *SessionManager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *SessionManager) sign(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(m.mac(id))
}

func (m *SessionManager) verify(value string) (string, bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" || sig == "" {
		return "", false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(got, m.mac(id)) {
		return "", false
	}
	return id, true
}

func (m *SessionManager) mac(id string) []byte {
	h := hmac.New(sha256.New, m.cfg.Secret)
	h.Write([]byte("session:"))
	h.Write([]byte(id))
	return h.Sum(nil)
}
