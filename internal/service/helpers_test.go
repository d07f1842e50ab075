package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"quillpad/internal/auth"
	"quillpad/internal/repository"
	"quillpad/internal/repository/sqlite"
	"quillpad/internal/storage"
)

type repos struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	tasks    repository.TaskRepository
}

func newRepos(t *testing.T) repos {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	r := repos{
		users:    sqlite.NewUserRepository(db),
		posts:    sqlite.NewPostRepository(db),
		comments: sqlite.NewCommentRepository(db),
		tasks:    sqlite.NewTaskRepository(db),
	}
	require.NoError(t, sqlite.InitAll(context.Background(), r.users, r.posts, r.comments, r.tasks))
	return r
}

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newUsers(t *testing.T, r repos) UserService {
	t.Helper()
	svc, err := NewUserService(r.users, auth.NewPasswordHasher(bcrypt.MinCost), quietLogger())
	require.NoError(t, err)
	return svc
}

// memStorage is an in-memory storage.Service.
type memStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failNext error
	deleted  []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Upload(_ context.Context, obj storage.Object) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return "", err
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", err
	}
	key := "prefix/" + obj.Key
	m.objects[key] = data
	return key, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", errors.New("no such object")
	}
	return "https://cdn.example.com/" + key + "?sig=x", nil
}
