package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"quillpad/internal/domain"
)

type testStore struct {
	db       *sql.DB
	users    *UserRepository
	posts    *PostRepository
	comments *CommentRepository
	tasks    *TaskRepository
	sessions *SessionRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := &testStore{
		db:       db,
		users:    NewUserRepository(db).(*UserRepository),
		posts:    NewPostRepository(db).(*PostRepository),
		comments: NewCommentRepository(db).(*CommentRepository),
		tasks:    NewTaskRepository(db).(*TaskRepository),
		sessions: NewSessionRepository(db).(*SessionRepository),
	}
	require.NoError(t, InitAll(context.Background(), s.users, s.posts, s.comments, s.tasks, s.sessions))
	return s
}

func (s *testStore) mustUser(t *testing.T, username, email string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: email, PasswordHash: "digest"}
	_, err := s.users.Create(context.Background(), u)
	require.NoError(t, err)
	return u
}

func TestInitAll_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, InitAll(context.Background(), s.users, s.posts, s.comments, s.tasks, s.sessions))
}
