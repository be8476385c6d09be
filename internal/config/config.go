// Package config loads application configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gearconnect/statuspage/internal/gateway/mobile"
	"github.com/gearconnect/statuspage/internal/gateway/tracker"
	"github.com/gearconnect/statuspage/internal/snapshot"
)

// EnvPrefix prefixes every environment variable read by Load.
// Nested keys are separated by a double underscore, e.g.
// STATUSPAGE_SERVER__PORT or STATUSPAGE_TRACKER__AUTH_TOKEN.
const EnvPrefix = "STATUSPAGE_"

// ConfigFileEnv names the optional YAML config file.
const ConfigFileEnv = "CONFIG_FILE"

// Subscription store kinds.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// legacyEnv maps environment names used by earlier deployments to config keys.
var legacyEnv = map[string]string{
	"SENTRY_ORG":                    "tracker.org",
	"SENTRY_PROJECT":                "tracker.project",
	"SENTRY_AUTH_TOKEN":             "tracker.auth_token",
	"SENTRY_DEBUG":                  "tracker.debug",
	"GEARCONNECT_MOBILE_STATUS_URL": "mobile.status_url",
	"GEARCONNECT_API_URL":           "mobile.api_url",
}

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Log           LogConfig           `koanf:"log"`
	CORS          CORSConfig          `koanf:"cors"`
	Tracker       tracker.Config      `koanf:"tracker"`
	Mobile        mobile.Config       `koanf:"mobile"`
	Snapshot      snapshot.Config     `koanf:"snapshot"`
	Subscriptions SubscriptionsConfig `koanf:"subscriptions"`
	Database      DatabaseConfig      `koanf:"database"`
	JWT           JWTConfig           `koanf:"jwt"`
	Admin         AdminConfig         `koanf:"admin"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Tracing       TracingConfig       `koanf:"tracing"`
}

// ServerConfig configures the HTTP servers.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig configures CORS for the /api/v1 routes. The public status
// route always allows any origin.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// SubscriptionsConfig selects where subscriptions are stored.
type SubscriptionsConfig struct {
	Store    string `koanf:"store"`
	FilePath string `koanf:"file_path"`
}

// DatabaseConfig configures the postgres connection pool.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

// JWTConfig configures admin access tokens.
type JWTConfig struct {
	SecretKey           string        `koanf:"secret_key"`
	AccessTokenDuration time.Duration `koanf:"access_token_duration"`
}

// AdminConfig holds the single admin account.
// PasswordHash is a bcrypt hash; an empty hash disables login.
type AdminConfig struct {
	Username     string `koanf:"username"`
	PasswordHash string `koanf:"password_hash"`
}

// NotificationsConfig configures the incident notifier.
type NotificationsConfig struct {
	Enabled      bool             `koanf:"enabled"`
	PollInterval time.Duration    `koanf:"poll_interval"`
	BaseURL      string           `koanf:"base_url"`
	Email        EmailConfig      `koanf:"email"`
	Mattermost   MattermostConfig `koanf:"mattermost"`
}

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Enabled      bool    `koanf:"enabled"`
	SMTPHost     string  `koanf:"smtp_host"`
	SMTPPort     int     `koanf:"smtp_port"`
	SMTPUser     string  `koanf:"smtp_user"`
	SMTPPassword string  `koanf:"smtp_password"`
	FromAddress  string  `koanf:"from_address"`
	BatchSize    int     `koanf:"batch_size"`
	RateLimit    float64 `koanf:"rate_limit"`
}

// MattermostConfig configures the operator webhook.
type MattermostConfig struct {
	WebhookURL string `koanf:"webhook_url"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			RequestTimeout:    30 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Tracker:  tracker.DefaultConfig(),
		Mobile:   mobile.DefaultConfig(),
		Snapshot: snapshot.DefaultConfig(),
		Subscriptions: SubscriptionsConfig{
			Store:    StoreFile,
			FilePath: "data/subscriptions.json",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			ConnectAttempts: 5,
			ConnectTimeout:  30 * time.Second,
		},
		JWT: JWTConfig{
			AccessTokenDuration: 15 * time.Minute,
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Notifications: NotificationsConfig{
			PollInterval: time.Minute,
			BaseURL:      "http://localhost:8080",
			Email: EmailConfig{
				SMTPPort:  587,
				BatchSize: 50,
				RateLimit: 1,
			},
		},
		Tracing: TracingConfig{
			ServiceName: "statuspage",
			SampleRatio: 1,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if set), then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps an environment variable to a config key. Variables outside
// the prefix and the legacy names are skipped.
func envKey(name, value string) (string, interface{}) {
	if key, ok := legacyEnv[name]; ok {
		return key, value
	}
	if !strings.HasPrefix(name, EnvPrefix) {
		return "", nil
	}

	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	if key == "cors.allowed_origins" {
		return key, splitList(value)
	}
	return key, value
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unsupported value %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format: unsupported value %q", c.Log.Format))
	}

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.Port != "" && c.Server.Port == c.Server.MetricsPort {
		errs = append(errs, errors.New("server.metrics_port must differ from server.port"))
	}

	if _, err := url.ParseRequestURI(c.Tracker.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("tracker.base_url: %w", err))
	}
	if c.Tracker.Timeout <= 0 {
		errs = append(errs, errors.New("tracker.timeout must be positive"))
	}
	if c.Mobile.Timeout <= 0 {
		errs = append(errs, errors.New("mobile.timeout must be positive"))
	}
	if c.Mobile.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("mobile.probe_timeout must be positive"))
	}

	if c.Snapshot.IssueWindow <= 0 || c.Snapshot.EventWindow <= 0 {
		errs = append(errs, errors.New("snapshot windows must be positive"))
	}
	if c.Snapshot.UptimeDays < 0 || c.Snapshot.ResponseTimeHours < 0 || c.Snapshot.EventLimit < 0 {
		errs = append(errs, errors.New("snapshot limits must not be negative"))
	}

	switch c.Subscriptions.Store {
	case StoreFile:
		if c.Subscriptions.FilePath == "" {
			errs = append(errs, errors.New("subscriptions.file_path is required for the file store"))
		}
	case StorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("subscriptions.store: unsupported value %q", c.Subscriptions.Store))
	}

	if c.Admin.PasswordHash != "" && len(c.JWT.SecretKey) < 32 {
		errs = append(errs, errors.New("jwt.secret_key must be at least 32 characters when admin login is enabled"))
	}

	if c.Notifications.Enabled {
		if c.Notifications.PollInterval <= 0 {
			errs = append(errs, errors.New("notifications.poll_interval must be positive"))
		}
		if c.Notifications.Email.Enabled && (c.Notifications.Email.SMTPHost == "" || c.Notifications.Email.FromAddress == "") {
			errs = append(errs, errors.New("notifications.email requires smtp_host and from_address"))
		}
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be within [0, 1]"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
