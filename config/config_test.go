package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobportal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithEnvKey(t *testing.T) {
	cfg, err := load("", map[string]string{"JOBPORTAL_AUTH_SIGNING_KEY": testKey})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Hour, cfg.GetTokenTTL())
	assert.Equal(t, testKey, cfg.GetSigningKey())
	assert.Equal(t, testKey, cfg.Auth.StateSecret)
	assert.Equal(t, "http://localhost:3000", cfg.Auth.FrontendURL)
	assert.False(t, cfg.OAuth2.Google.Enabled())
	assert.False(t, cfg.OAuth2.GitHub.Enabled())
}

func TestCSRFKeyDerivedFromSigningKey(t *testing.T) {
	cfg, err := load("", map[string]string{
		"JOBPORTAL_AUTH_SIGNING_KEY": testKey,
		"JOBPORTAL_SERVER_CSRF":      "true",
	})
	require.NoError(t, err)

	key := cfg.HTTP().CSRFKey
	assert.Len(t, key, 32)
	assert.NotEqual(t, []byte(testKey), key)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
  login_burst: 3
auth:
  signing_key: "`+testKey+`"
  token_ttl: 30m
  frontend_url: "https://portal.example.com/"
log:
  level: DEBUG
  format: json
oauth2:
  redirect_base_url: "https://api.example.com"
  github:
    client_id: gh-id
    client_secret: gh-secret
`)

	cfg, err := load(path, map[string]string{
		"JOBPORTAL_SERVER_ADDR":          ":7070",
		"JOBPORTAL_OAUTH2_GITHUB_SCOPES": "read:user,user:email",
		"JOBPORTAL_DATABASE_DSN":         "postgres://portal@localhost/portal",
		"JOBPORTAL_SERVER_LOGIN_RATE":    "0.5",
	})
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Server.LoginBurst)
	assert.Equal(t, 0.5, cfg.Server.LoginRate)
	assert.Equal(t, 30*time.Minute, cfg.GetTokenTTL())
	assert.Equal(t, "https://portal.example.com", cfg.Auth.FrontendURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres://portal@localhost/portal", cfg.Database.DSN)

	require.True(t, cfg.OAuth2.GitHub.Enabled())
	client := cfg.ClientConfig("github", cfg.OAuth2.GitHub)
	assert.Equal(t, "gh-id", client.ClientID)
	assert.Equal(t, "https://api.example.com/login/oauth2/code/github", client.RedirectURL)
	assert.Equal(t, []string{"read:user", "user:email"}, client.Scopes)

	httpCfg := cfg.HTTP()
	assert.Empty(t, httpCfg.CSRFKey)
	assert.Equal(t, 3, httpCfg.LoginLimit.Burst)
	assert.Equal(t, 0.5, httpCfg.LoginLimit.RequestsPerSecond)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing signing key", env: map[string]string{}},
		{name: "short signing key", env: map[string]string{"JOBPORTAL_AUTH_SIGNING_KEY": "short"}},
		{
			name: "unknown log format",
			env:  map[string]string{"JOBPORTAL_AUTH_SIGNING_KEY": testKey, "JOBPORTAL_LOG_FORMAT": "xml"},
		},
		{
			name: "provider without secret",
			env:  map[string]string{"JOBPORTAL_AUTH_SIGNING_KEY": testKey, "JOBPORTAL_OAUTH2_GOOGLE_CLIENT_ID": "id"},
		},
		{
			name: "bad duration",
			env:  map[string]string{"JOBPORTAL_AUTH_SIGNING_KEY": testKey, "JOBPORTAL_AUTH_TOKEN_TTL": "forever"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load("", tt.env)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
