package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, "data/quillpad.db", cfg.Database.Path)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RememberTTL)
	assert.Equal(t, "quillpad_session", cfg.Auth.SessionCookie)
	assert.Equal(t, BackendSQLite, cfg.Session.Backend)
	assert.Equal(t, int64(5<<20), cfg.Storage.MaxUploadBytes)
	assert.Empty(t, cfg.Storage.Bucket)

	assert.Error(t, cfg.Validate(), "secrets have no defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QUILLPAD_AUTH_JWT_SECRET", "jwt")
	t.Setenv("QUILLPAD_AUTH_SESSION_SECRET", "sess")
	t.Setenv("QUILLPAD_AUTH_TOKEN_TTL", "5m")
	t.Setenv("QUILLPAD_AUTH_SECURE_COOKIE", "true")
	t.Setenv("QUILLPAD_SESSION_BACKEND", "Redis")
	t.Setenv("QUILLPAD_REDIS_DB", "3")
	t.Setenv("QUILLPAD_STORAGE_KEY_PREFIX", "covers")

	cfg, err := load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "jwt", cfg.Auth.JWTSecret)
	assert.Equal(t, "sess", cfg.Auth.SessionSecret)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.SecureCookie)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "covers", cfg.Storage.KeyPrefix)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
server:
  addr: ":9000"
auth:
  session_ttl: 2h
storage:
  bucket: my-bucket
`), 0o600))

	cfg, err := load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "my-bucket", cfg.Storage.Bucket)
}

func TestLoad_BrokenConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o600))

	_, err := load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Auth.JWTSecret = "a"
		c.Auth.SessionSecret = "b"
		c.Auth.TokenTTL = time.Minute
		c.Auth.SessionTTL = time.Hour
		c.Auth.RememberTTL = time.Hour
		c.Session.Backend = BackendSQLite
		return c
	}
	require.NoError(t, valid().Validate())

	noJWT := valid()
	noJWT.Auth.JWTSecret = "  "
	assert.Error(t, noJWT.Validate())

	noSession := valid()
	noSession.Auth.SessionSecret = ""
	assert.Error(t, noSession.Validate())

	badBackend := valid()
	badBackend.Session.Backend = "memcached"
	assert.Error(t, badBackend.Validate())

	badTTL := valid()
	badTTL.Auth.TokenTTL = 0
	assert.Error(t, badTTL.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# comment
QUILLPAD_DOTENV_PLAIN=plain
export QUILLPAD_DOTENV_QUOTED="quoted value"
QUILLPAD_DOTENV_KEPT=from-file
not a pair
`), 0o600))
	t.Setenv("QUILLPAD_DOTENV_KEPT", "from-env")
	t.Cleanup(func() {
		_ = os.Unsetenv("QUILLPAD_DOTENV_PLAIN")
		_ = os.Unsetenv("QUILLPAD_DOTENV_QUOTED")
	})

	loadDotEnv(path)

	assert.Equal(t, "plain", os.Getenv("QUILLPAD_DOTENV_PLAIN"))
	assert.Equal(t, "quoted value", os.Getenv("QUILLPAD_DOTENV_QUOTED"))
	assert.Equal(t, "from-env", os.Getenv("QUILLPAD_DOTENV_KEPT"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	loadDotEnv(filepath.Join(t.TempDir(), "absent.env"))
}
