package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "FRONTLOG_"

type Config struct {
	Primary       Primary             `koanf:"primary" validate:"required"`
	Server        ServerConfig        `koanf:"server" validate:"required"`
	Storage       StorageConfig       `koanf:"storage" validate:"required"`
	Observability ObservabilityConfig `koanf:"observability" validate:"required"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required,numeric"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,gt=0"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,gt=0"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,gt=0"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required,min=1"`
	BodyLimit          string   `koanf:"body_limit" validate:"required"`
}

// StorageConfig locates the log directory. Permissions are octal strings ("0755").
type StorageConfig struct {
	LogDir   string `koanf:"log_dir" validate:"required"`
	DirPerm  string `koanf:"dir_perm" validate:"required"`
	FilePerm string `koanf:"file_perm" validate:"required"`
}

type ObservabilityConfig struct {
	ServiceName string         `koanf:"service_name" validate:"required"`
	Environment string         `koanf:"environment"`
	Logging     LoggingConfig  `koanf:"logging" validate:"required"`
	NewRelic    NewRelicConfig `koanf:"new_relic"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"required,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"required,oneof=console json"`
}

// NewRelicConfig is optional; the agent stays off while LicenseKey is empty.
type NewRelicConfig struct {
	LicenseKey              string `koanf:"license_key"`
	AppLogForwardingEnabled bool   `koanf:"app_log_forwarding_enabled"`
}

func defaults() map[string]any {
	return map[string]any{
		"primary.env":                  "development",
		"server.port":                  "8080",
		"server.read_timeout":          30,
		"server.write_timeout":         30,
		"server.idle_timeout":          60,
		"server.cors_allowed_origins":  []string{"*"},
		"server.body_limit":            "1M",
		"storage.log_dir":              "logs",
		"storage.dir_perm":             "0755",
		"storage.file_perm":            "0644",
		"observability.service_name":   "frontlog",
		"observability.logging.level":  "info",
		"observability.logging.format": "console",
	}
}

// LoadConfig builds the configuration from defaults, an optional .env file in
// the working directory and FRONTLOG_* environment variables. Nested keys use a
// double underscore: FRONTLOG_SERVER__PORT sets server.port.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	err := k.Load(env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		if key == "server.cors_allowed_origins" {
			return key, splitList(value)
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Observability.Environment == "" {
		cfg.Observability.Environment = cfg.Primary.Env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and the octal permission strings.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if _, err := c.Storage.DirMode(); err != nil {
		return err
	}
	if _, err := c.Storage.FileMode(); err != nil {
		return err
	}
	return nil
}

func (s StorageConfig) DirMode() (os.FileMode, error) {
	return parseMode("storage.dir_perm", s.DirPerm)
}

func (s StorageConfig) FileMode() (os.FileMode, error) {
	return parseMode("storage.file_perm", s.FilePerm)
}

// IsDevelopment reports whether the primary environment is a local one.
func (c *Config) IsDevelopment() bool {
	return c.Primary.Env == "development" || c.Primary.Env == "local"
}

func parseMode(name, v string) (os.FileMode, error) {
	m, err := strconv.ParseUint(v, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid octal mode %q", name, v)
	}
	return os.FileMode(m) & os.ModePerm, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
