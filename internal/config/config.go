// Package config loads coordinator settings from an optional YAML file,
// an optional .env file and QRM_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: QRM_REMOTE__KIND sets remote.kind.
const EnvPrefix = "QRM_"

type Config struct {
	DataPath     string        `koanf:"data_path"`     // sqlite file (ignored when database_url is set)
	DatabaseURL  string        `koanf:"database_url"`  // postgres KV backend
	HTTPAddr     string        `koanf:"http_addr"`     // default ":7391"
	GRPCAddr     string        `koanf:"grpc_addr"`     // default ":7392"
	AuthToken    string        `koanf:"auth_token"`    // empty = auth disabled
	NATSURL      string        `koanf:"nats_url"`      // empty = no cross-process bus
	NATSEmbedded bool          `koanf:"nats_embedded"` // run an in-process NATS server
	SyncInterval time.Duration `koanf:"sync_interval"` // default 5m; 0 = no periodic reconcile
	CORSOrigins  []string      `koanf:"cors_origins"`  // empty = any origin

	Remote  RemoteConfig  `koanf:"remote"`
	Overlay OverlayConfig `koanf:"overlay"`
}

// RemoteConfig selects the remote mirror. An empty Kind disables sync.
type RemoteConfig struct {
	Kind       string        `koanf:"kind"` // "", "http" or "s3"
	URL        string        `koanf:"url"`
	Timeout    time.Duration `koanf:"timeout"`
	S3Bucket   string        `koanf:"s3_bucket"`
	S3Region   string        `koanf:"s3_region"`
	S3Endpoint string        `koanf:"s3_endpoint"` // custom endpoint for MinIO
	S3Prefix   string        `koanf:"s3_prefix"`
}

type OverlayConfig struct {
	ReapInterval time.Duration `koanf:"reap_interval"`
	ReapGrace    time.Duration `koanf:"reap_grace"`
}

// DefaultDataPath returns ~/.local/state/quickreply/quickreply.db.
func DefaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "quickreply.db"
	}
	return filepath.Join(home, ".local", "state", "quickreply", "quickreply.db")
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataPath:     DefaultDataPath(),
		HTTPAddr:     ":7391",
		GRPCAddr:     ":7392",
		SyncInterval: 5 * time.Minute,
		Remote: RemoteConfig{
			Timeout:  10 * time.Second,
			S3Region: "us-east-1",
			S3Prefix: "quickreply",
		},
		Overlay: OverlayConfig{
			ReapInterval: 60 * time.Second,
			ReapGrace:    2 * time.Minute,
		},
	}
}

// Load reads the YAML file at path if it exists, then .env from the
// working directory if present, then QRM_* environment overrides. The
// result is validated.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.DataPath == "" && c.DatabaseURL == "" {
		return fmt.Errorf("data_path or database_url is required")
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr is required")
	}
	if c.SyncInterval < 0 {
		return fmt.Errorf("sync_interval must be non-negative")
	}
	if c.NATSEmbedded && c.NATSURL != "" {
		return fmt.Errorf("nats_url and nats_embedded are mutually exclusive")
	}

	switch c.Remote.Kind {
	case "":
	case "http":
		if c.Remote.URL == "" {
			return fmt.Errorf("remote.url is required when remote.kind is http")
		}
	case "s3":
		if c.Remote.S3Bucket == "" {
			return fmt.Errorf("remote.s3_bucket is required when remote.kind is s3")
		}
	default:
		return fmt.Errorf("invalid remote.kind %q: must be http or s3", c.Remote.Kind)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout must be non-negative")
	}

	if c.Overlay.ReapInterval < 0 || c.Overlay.ReapGrace < 0 {
		return fmt.Errorf("overlay reap settings must be non-negative")
	}
	return nil
}
