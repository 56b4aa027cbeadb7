// Package config loads the arbor configuration from a YAML or JSON file,
// overlaid with ARBOR_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crabritto/arbor/internal/logging"
	"github.com/crabritto/arbor/internal/wire"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no explicit path is given. A missing default file is not an error.
const DefaultPath = "arbor.yaml"

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Service ServiceConfig `mapstructure:"service"`
	Wire    WireConfig    `mapstructure:"wire"`
	Display DisplayConfig `mapstructure:"display"`
	Store   StoreConfig   `mapstructure:"store"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// ServiceConfig locates the analysis service.
type ServiceConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Envelope bool          `mapstructure:"envelope"`
}

type WireConfig struct {
	KeyScheme string `mapstructure:"key_scheme"`
}

// DisplayConfig controls how service responses are projected.
type DisplayConfig struct {
	Delimiter     string `mapstructure:"delimiter"`
	StaticBaseURL string `mapstructure:"static_base_url"`
}

type StoreConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`

	// EncryptionKey is a base64 AES-256 key sealing snapshots at rest. Empty stores plain JSON.
	EncryptionKey string   `mapstructure:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{Addr: ":8080"},
		Service: ServiceConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 30 * time.Second,
		},
		Wire: WireConfig{KeyScheme: string(domain.KeyLabel)},
		Display: DisplayConfig{
			Delimiter:     wire.DefaultDelimiter,
			StaticBaseURL: "http://localhost:5000/static",
		},
		Store: StoreConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:    "localhost:6379",
				Prefix:  "arbor:",
				TTL:     time.Hour,
				LockTTL: 30 * time.Second,
			},
		},
	}
}

// envKeys maps environment variables onto configuration paths.
var envKeys = map[string][]string{
	"ARBOR_LOG_LEVEL":               {"log", "level"},
	"ARBOR_SERVER_ADDR":             {"server", "addr"},
	"ARBOR_SERVER_CORS_ORIGIN":      {"server", "cors_origin"},
	"ARBOR_SERVICE_BASE_URL":        {"service", "base_url"},
	"ARBOR_SERVICE_TIMEOUT":         {"service", "timeout"},
	"ARBOR_SERVICE_ENVELOPE":        {"service", "envelope"},
	"ARBOR_WIRE_KEY_SCHEME":         {"wire", "key_scheme"},
	"ARBOR_DISPLAY_DELIMITER":       {"display", "delimiter"},
	"ARBOR_DISPLAY_STATIC_BASE_URL": {"display", "static_base_url"},
	"ARBOR_STORE_BACKEND":           {"store", "backend"},
	"ARBOR_REDIS_ADDR":              {"store", "redis", "addr"},
	"ARBOR_REDIS_PASSWORD":          {"store", "redis", "password"},
	"ARBOR_REDIS_DB":                {"store", "redis", "db"},
	"ARBOR_REDIS_PREFIX":            {"store", "redis", "prefix"},
	"ARBOR_REDIS_TTL":               {"store", "redis", "ttl"},
	"ARBOR_REDIS_LOCK_TTL":          {"store", "redis", "lock_ttl"},
	"ARBOR_REDIS_ENCRYPTION_KEY":    {"store", "redis", "encryption_key"},
}

// Load reads path (or DefaultPath when empty), applies the environment and validates the result.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	raw, err := readFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			raw = map[string]any{}
		} else {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	for env, keyPath := range envKeys {
		if v, ok := lookup(env); ok {
			setPath(raw, keyPath, v)
		}
	}

	cfg := Default()
	if err := decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func setPath(m map[string]any, path []string, value string) {
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[key] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := domain.ParseKeyScheme(c.Wire.KeyScheme); err != nil {
		return err
	}
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown store backend %q: expected memory or redis", c.Store.Backend)
	}
	if c.Service.BaseURL == "" {
		return fmt.Errorf("service.base_url is required")
	}
	return nil
}

// KeyScheme returns the parsed wire key scheme.
func (c Config) KeyScheme() domain.KeyScheme {
	s, _ := domain.ParseKeyScheme(c.Wire.KeyScheme)
	return s
}
