// Package config holds the settings shared by the server, CLI and MCP commands.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/aretw0/flowengine/pkg/domain"
	"gopkg.in/yaml.v3"
)

// EncryptionKeyEnv overrides store.encryption_key so the key can stay out of
// config files.
const EncryptionKeyEnv = "FLOWENGINE_ENCRYPTION_KEY"

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
	Store  StoreConfig  `yaml:"store"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type EngineConfig struct {
	// MaxIterations is used when a run request does not set one.
	MaxIterations int `yaml:"max_iterations"`
	// StepTimeout bounds each handler call; zero disables it.
	StepTimeout time.Duration `yaml:"step_timeout"`
	// Workers sizes the dispatcher pool; zero means one per CPU.
	Workers int `yaml:"workers"`
	// ToolsFile lists external commands registered as handlers.
	ToolsFile string `yaml:"tools_file"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
	// RedactKeys are regular expressions; matching state keys are masked in
	// stored runs.
	RedactKeys []string `yaml:"redact_keys"`
	// EncryptionKey is a base64 AES-256 key sealing stored runs. Empty disables it.
	EncryptionKey string `yaml:"encryption_key"`
	// FallbackKeys decrypt runs sealed with retired keys.
	FallbackKeys []string `yaml:"fallback_keys"`
}

// EncryptionKeys decodes the configured keys. A nil active key means
// encryption is off.
func (s StoreConfig) EncryptionKeys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, nil, errors.New("store.fallback_keys requires store.encryption_key")
		}
		return nil, nil, nil
	}
	if active, err = decodeKey("store.encryption_key", s.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("store.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, value string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{
			MaxIterations: domain.DefaultMaxIterations,
			StepTimeout:   60 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "flowengine:",
				TTL:    24 * time.Hour,
			},
		},
	}
}

// Load reads a YAML file on top of the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if key := os.Getenv(EncryptionKeyEnv); key != "" {
		cfg.Store.EncryptionKey = key
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_iterations must be positive, got %d", c.Engine.MaxIterations))
	}
	if c.Engine.StepTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine.step_timeout must not be negative"))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers must not be negative"))
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if _, _, err := c.Store.EncryptionKeys(); err != nil {
		errs = append(errs, err)
	}
	for _, p := range c.Store.RedactKeys {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("store.redact_keys: invalid pattern %q", p))
		}
	}
	return errors.Join(errs...)
}
