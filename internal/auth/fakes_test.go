package auth

import (
	"context"
	"sync"
	"time"

	"quillpad/internal/domain"
)

// stubUsers authenticates against a fixed email/password table.
type stubUsers struct {
	mu        sync.Mutex
	passwords map[string]string
	users     map[int64]*domain.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{passwords: map[string]string{}, users: map[int64]*domain.User{}}
}

func (s *stubUsers) add(id int64, username, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwords[email] = password
	s.users[id] = &domain.User{ID: id, Username: username, Email: email}
}

func (s *stubUsers) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *stubUsers) Authenticate(_ context.Context, email, password string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.passwords[email]
	if !ok || want != password {
		return nil, ErrInvalidCredentials
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (s *stubUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	purged   int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]domain.Session{}}
}

func (m *memSessions) Init(context.Context) error { return nil }

func (m *memSessions) Create(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessions) Get(_ context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	m.purged += int(n)
	return n, nil
}

func (m *memSessions) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
