package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsWithSecretFromEnv(t *testing.T) {
	t.Setenv("DUEL_AUTH_SECRET", "s3cret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, FanoutLocal, cfg.Fanout.Type)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, ":8080", cfg.Server.Addr())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  cleanup_interval: 30s
storage:
  type: redis
redis:
  url: redis://cache:6379/1
  session_ttl: 2h
fanout:
  type: redis
auth:
  secret: from-file
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.CleanupInterval)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, 2*time.Hour, cfg.Redis.SessionTTL)
	assert.Equal(t, FanoutRedis, cfg.Fanout.Type)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "auth:\n  secret: from-file\nserver:\n  port: 9090\n")
	t.Setenv("DUEL_SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-file", cfg.Auth.Secret)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateReportsEveryViolation(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 0
storage:
  type: postgres
logging:
  level: loud
  format: xml
`)

	_, err := Load(path)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "server.port")
	assert.Contains(t, msg, "storage.type")
	assert.Contains(t, msg, "auth.secret")
	assert.Contains(t, msg, "logging.level")
	assert.Contains(t, msg, "logging.format")
}

func TestPortValidation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.IntRange(-100, 70000).Draw(t, "port")
		cfg := Config{
			Server:  ServerConfig{Port: port, CleanupInterval: time.Minute},
			Storage: StorageConfig{Type: StorageMemory},
			Fanout:  FanoutConfig{Type: FanoutLocal, SubscriberBuffer: 1, HubBuffer: 1},
			Auth:    AuthConfig{Secret: "x", TokenTTL: time.Hour},
			Logging: LoggingConfig{Level: "info", Format: "json"},
		}
		err := cfg.Validate()
		valid := port >= 1 && port <= 65535
		if valid != (err == nil) {
			t.Fatalf("port %d: valid=%v err=%v", port, valid, err)
		}
	})
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", `"msg":"hello"`},
		{"text", "msg=hello"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(LoggingConfig{Level: "warn", Format: tt.format}, &buf)

			logger.Info("ignored")
			logger.Warn("hello")

			assert.Contains(t, buf.String(), tt.want)
			assert.NotContains(t, buf.String(), "ignored")
		})
	}
}

func ExampleServerConfig_Addr() {
	fmt.Println(ServerConfig{Host: "127.0.0.1", Port: 8080}.Addr())
	// Output: 127.0.0.1:8080
}
