package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
	"golang.org/x/crypto/bcrypt"

	"quillpad/internal/auth"
	"quillpad/internal/domain"
	"quillpad/internal/metrics"
	"quillpad/internal/repository/sqlite"
	"quillpad/internal/service"
)

type testApp struct {
	router  *gin.Engine
	users   service.UserService
	tasks   service.TaskService
	posts   service.PostService
	clock   *abtime.ManualTime
	metrics *metrics.Metrics
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "http.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	clock := abtime.NewManual()
	withClock := sqlite.WithClock(clock.Now)
	userRepo := sqlite.NewUserRepository(db, withClock)
	postRepo := sqlite.NewPostRepository(db, withClock)
	commentRepo := sqlite.NewCommentRepository(db, withClock)
	taskRepo := sqlite.NewTaskRepository(db, withClock)
	sessionRepo := sqlite.NewSessionRepository(db)
	require.NoError(t, sqlite.InitAll(ctx, userRepo, postRepo, commentRepo, taskRepo, sessionRepo))

	logger, _ := test.NewNullLogger()
	users, err := service.NewUserService(userRepo, auth.NewPasswordHasher(bcrypt.MinCost), logger)
	require.NoError(t, err)
	tasks := service.NewTaskService(taskRepo)
	posts := service.NewPostService(postRepo, commentRepo, service.PostOptions{Logger: logger})

	sessions, err := auth.NewSessionManager(users, sessionRepo, auth.SessionConfig{
		Secret: []byte("http-test-session-secret"),
		Clock:  clock,
		Logger: logger,
	})
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer(users, auth.TokenConfig{
		Secret: []byte("http-test-jwt-secret"),
		Clock:  clock,
	})
	require.NoError(t, err)

	m := metrics.New()
	h := NewHandler(Deps{
		Users:    users,
		Posts:    posts,
		Tasks:    tasks,
		Sessions: sessions,
		Tokens:   tokens,
		Metrics:  m,
		Logger:   logger,
	})
	router := gin.New()
	h.RegisterRoutes(router)

	return &testApp{router: router, users: users, tasks: tasks, posts: posts, clock: clock, metrics: m}
}

func (a *testApp) register(t *testing.T, username, email, password string) *domain.User {
	t.Helper()
	u, err := a.users.Register(context.Background(), username, email, password)
	require.NoError(t, err)
	return u
}

type request struct {
	method  string
	path    string
	body    io.Reader
	form    url.Values
	json    any
	token   string
	cookies []*http.Cookie
}

func (a *testApp) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	body := r.body
	contentType := ""
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.json != nil:
		raw, err := json.Marshal(r.json)
		require.NoError(t, err)
		body = strings.NewReader(string(raw))
		contentType = "application/json"
	}

	req := httptest.NewRequest(r.method, r.path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func flashOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	c := responseCookie(rec, flashCookie)
	if c == nil {
		return ""
	}
	msg, err := url.QueryUnescape(c.Value)
	require.NoError(t, err)
	return msg
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
