package auth

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix namespaces the environment overrides,
// e.g. USERSVC_AUTH_SECRET.
const DefaultEnvPrefix = "USERSVC_"

// AppConfig is the concrete service configuration. Values load from an
// optional YAML file first, then environment variables override.
type AppConfig struct {
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Database DatabaseConfig `koanf:"database"`
	Kafka    KafkaConfig    `koanf:"kafka"`
}

type ServerConfig struct {
	Address string `koanf:"address"`
}

// AuthConfig leaf keys are single words so the USERSVC_AUTH_SECRET style
// env override maps cleanly onto the dotted path.
type AuthConfig struct {
	SigningKey    string   `koanf:"secret"`
	TTLExpression string   `koanf:"ttl"`
	Issuer        string   `koanf:"issuer"`
	Audience      []string `koanf:"audience"`
	PruneInterval string   `koanf:"prune"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

type KafkaConfig struct {
	Brokers      []string `koanf:"brokers"`
	WelcomeTopic string   `koanf:"topic"`
	WelcomeFrom  string   `koanf:"from"`
}

var _ Config = (*AppConfig)(nil)

func (c *AppConfig) GetSigningKey() string {
	return c.Auth.SigningKey
}

// GetTokenTTL parses the configured lifetime expression, falling back to
// the package default when unset or unparseable.
func (c *AppConfig) GetTokenTTL() time.Duration {
	if c.Auth.TTLExpression == "" {
		return DefaultTokenTTL
	}
	d, err := time.ParseDuration(c.Auth.TTLExpression)
	if err != nil || d <= 0 {
		return DefaultTokenTTL
	}
	return d
}

func (c *AppConfig) GetIssuer() string {
	return c.Auth.Issuer
}

func (c *AppConfig) GetAudience() []string {
	return c.Auth.Audience
}

// GetPruneInterval is how often the revocation ledger drops expired
// entries.
func (c *AppConfig) GetPruneInterval() time.Duration {
	if c.Auth.PruneInterval == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(c.Auth.PruneInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func (c *AppConfig) Validate() error {
	if c.Auth.SigningKey == "" {
		return errors.New("auth.secret is required", errors.CategoryValidation)
	}
	if c.Server.Address == "" {
		return errors.New("server.address is required", errors.CategoryValidation)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required", errors.CategoryValidation)
	}
	return nil
}

// LoadConfig reads configuration with priority Env > File > Default.
// Environment variables map USERSVC_AUTH_SECRET -> auth.secret.
func LoadConfig(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrap(err, errors.CategoryOperation, "failed to load config file")
		}
	}

	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, DefaultEnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}

	if err := k.Load(env.Provider(DefaultEnvPrefix, ".", envTransformer), nil); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to load environment config")
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to unmarshal config")
	}

	return cfg, nil
}

// DefaultConfig returns a config with local development defaults. The
// signing key has no default on purpose; an accidental well-known key
// would silently break token integrity.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Address: ":8080",
		},
		Auth: AuthConfig{
			TTLExpression: "10h",
			Issuer:        "user-service",
			PruneInterval: "1h",
		},
		Database: DatabaseConfig{
			DSN: "file:users.db?cache=shared&mode=rwc",
		},
		Kafka: KafkaConfig{
			WelcomeTopic: DefaultWelcomeTopic,
		},
	}
}
