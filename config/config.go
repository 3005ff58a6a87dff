// Package config loads the job portal settings. Values come from the
// built in defaults, then an optional YAML file, then JOBPORTAL_*
// environment variables.
package config

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-jobportal/server"
	"github.com/goliatone/go-jobportal/social"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "JOBPORTAL_"

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Auth     AuthConfig     `yaml:"auth" envPrefix:"AUTH_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	OAuth2   OAuth2Config   `yaml:"oauth2" envPrefix:"OAUTH2_"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	BodyLimit       int           `yaml:"body_limit" env:"BODY_LIMIT"`
	// LoginRate is the sustained login attempts per second per client IP.
	LoginRate  float64 `yaml:"login_rate" env:"LOGIN_RATE"`
	LoginBurst int     `yaml:"login_burst" env:"LOGIN_BURST"`
	// CSRF turns on the XSRF-TOKEN cookie check for requests without a
	// bearer header.
	CSRF bool `yaml:"csrf" env:"CSRF"`
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.ShutdownTimeout, validation.Required),
		validation.Field(&s.LoginRate, validation.Required, validation.Min(0.0)),
		validation.Field(&s.LoginBurst, validation.Required, validation.Min(1)),
	)
}

type DatabaseConfig struct {
	// DSN is a postgres:// URL or a SQLite path/URI.
	DSN string `yaml:"dsn" env:"DSN"`
	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.DSN, validation.Required),
	)
}

type AuthConfig struct {
	SigningKey string        `yaml:"signing_key" env:"SIGNING_KEY"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	// StateSecret derives the OAuth2 state encryption keys. Falls back
	// to SigningKey when empty.
	StateSecret string        `yaml:"state_secret" env:"STATE_SECRET"`
	StateTTL    time.Duration `yaml:"state_ttl" env:"STATE_TTL"`
	FrontendURL string        `yaml:"frontend_url" env:"FRONTEND_URL"`
	BcryptCost  int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&a.TokenTTL, validation.Required),
		validation.Field(&a.StateTTL, validation.Required),
		validation.Field(&a.FrontendURL, validation.Required, is.URL),
		validation.Field(&a.BcryptCost, validation.Min(4), validation.Max(31)),
	)
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.Required, validation.In("console", "json")),
	)
}

// OAuth2Config lists the external identity providers. A provider is
// enabled when its client id is set.
type OAuth2Config struct {
	// RedirectBaseURL is the public base of this server; callbacks are
	// <base>/login/oauth2/code/<provider>.
	RedirectBaseURL string         `yaml:"redirect_base_url" env:"REDIRECT_BASE_URL"`
	Google          ProviderConfig `yaml:"google" envPrefix:"GOOGLE_"`
	GitHub          ProviderConfig `yaml:"github" envPrefix:"GITHUB_"`
}

// ProviderConfig holds one provider's client registration. IssuerURL is
// only read for OIDC providers.
type ProviderConfig struct {
	ClientID     string   `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"CLIENT_SECRET"`
	IssuerURL    string   `yaml:"issuer_url" env:"ISSUER_URL"`
	Scopes       []string `yaml:"scopes" env:"SCOPES" envSeparator:","`
}

// Enabled reports whether the provider is configured.
func (p ProviderConfig) Enabled() bool {
	return strings.TrimSpace(p.ClientID) != ""
}

func (p ProviderConfig) Validate() error {
	if !p.Enabled() {
		return nil
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.ClientSecret, validation.Required),
		validation.Field(&p.IssuerURL, is.URL),
	)
}

func (o OAuth2Config) Validate() error {
	base := []validation.Rule{is.URL}
	if o.Google.Enabled() || o.GitHub.Enabled() {
		base = append(base, validation.Required)
	}
	return validation.ValidateStruct(&o,
		validation.Field(&o.RedirectBaseURL, base...),
		validation.Field(&o.Google),
		validation.Field(&o.GitHub),
	)
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       1 << 20,
			LoginRate:       1,
			LoginBurst:      5,
		},
		Database: DatabaseConfig{
			DSN:         "file:jobportal.db?cache=shared",
			AutoMigrate: true,
		},
		Auth: AuthConfig{
			TokenTTL:    time.Hour,
			StateTTL:    social.DefaultStateTTL,
			FrontendURL: "http://localhost:3000",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		OAuth2: OAuth2Config{
			RedirectBaseURL: "http://localhost:8080",
			Google:          ProviderConfig{IssuerURL: "https://accounts.google.com"},
		},
	}
}

// Load reads the configuration. An empty path skips the file; a missing
// file at an explicit path is an error.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

func load(path string, environment map[string]string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Auth.FrontendURL = strings.TrimRight(strings.TrimSpace(c.Auth.FrontendURL), "/")
	c.OAuth2.RedirectBaseURL = strings.TrimRight(strings.TrimSpace(c.OAuth2.RedirectBaseURL), "/")
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Auth.StateSecret == "" {
		c.Auth.StateSecret = c.Auth.SigningKey
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.Auth),
		validation.Field(&c.Log),
		validation.Field(&c.OAuth2),
	)
}

// GetSigningKey implements auth.Config.
func (c *Config) GetSigningKey() string {
	return c.Auth.SigningKey
}

// GetTokenTTL implements auth.Config.
func (c *Config) GetTokenTTL() time.Duration {
	return c.Auth.TokenTTL
}

// HTTP returns the server options.
func (c *Config) HTTP() server.Config {
	var csrfKey []byte
	if c.Server.CSRF {
		sum := sha256.Sum256([]byte("csrf:" + c.Auth.SigningKey))
		csrfKey = sum[:]
	}
	return server.Config{
		AppName:      "jobportal",
		ReadTimeout:  c.Server.ReadTimeout,
		WriteTimeout: c.Server.WriteTimeout,
		BodyLimit:    c.Server.BodyLimit,
		LoginLimit: server.RateLimitConfig{
			RequestsPerSecond: c.Server.LoginRate,
			Burst:             c.Server.LoginBurst,
		},
		CSRFKey: csrfKey,
	}
}

// ClientConfig returns the OAuth2 client registration for provider name.
func (c *Config) ClientConfig(name string, p ProviderConfig) social.ClientConfig {
	return social.ClientConfig{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  c.OAuth2.RedirectBaseURL + "/login/oauth2/code/" + name,
		Scopes:       p.Scopes,
	}
}
