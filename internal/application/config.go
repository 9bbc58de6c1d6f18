package application

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is the shared validator instance for configuration structs.
var validate = validator.New()

// Config is the top-level service configuration, loaded from a YAML
// file and validated before the service starts. Zero values are filled
// from DefaultConfig so a partial file only needs to name what it
// changes.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server" validate:"required"`

	// Fetch configures outbound scoresheet downloads.
	Fetch FetchConfig `yaml:"fetch" validate:"required"`

	// Engines configures the voting engines.
	Engines EnginesConfig `yaml:"engines"`
}

// ServerConfig controls the HTTP server's listener and timeouts.
type ServerConfig struct {
	// Addr is the listen address in host:port form.
	Addr string `yaml:"addr" validate:"required,hostname_port"`

	// ReadTimeoutSeconds bounds how long a request may take to read.
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds" validate:"min=1,max=300"`

	// WriteTimeoutSeconds bounds how long a response may take to write.
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds" validate:"min=1,max=300"`

	// ShutdownTimeoutSeconds bounds graceful shutdown on termination.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" validate:"min=1,max=120"`

	// AllowedOrigins lists CORS origins permitted to call the API.
	// "*" allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins" validate:"min=1,dive,min=1"`
}

// FetchConfig controls outbound scoresheet downloads. The limits exist
// so the analyzer cannot be used to hammer or mirror third-party result
// sites.
type FetchConfig struct {
	// TimeoutSeconds bounds a single download.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"min=1,max=120"`

	// MaxBodyBytes caps the downloaded content size.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"min=1024,max=104857600"`

	// RequestsPerSecond limits outbound request rate across all
	// downloads.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0,max=100"`

	// Burst is the rate limiter's burst allowance.
	Burst int `yaml:"burst" validate:"min=1,max=100"`
}

// EnginesConfig configures individual voting engines.
type EnginesConfig struct {
	// IRV configures the Sequential IRV engine.
	IRV IRVConfig `yaml:"irv"`
}

// IRVConfig holds the Sequential IRV tunables.
type IRVConfig struct {
	// MaxTiebreakDepth caps restricted-recount recursion before the
	// random fallback.
	MaxTiebreakDepth int `yaml:"max_tiebreak_depth" validate:"min=1,max=32"`

	// Seed, when set, seeds the random tiebreak fallback so runs are
	// reproducible. Leave unset in production.
	Seed *int64 `yaml:"seed,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:                   "0.0.0.0:8080",
			ReadTimeoutSeconds:     30,
			WriteTimeoutSeconds:    60,
			ShutdownTimeoutSeconds: 15,
			AllowedOrigins:         []string{"*"},
		},
		Fetch: FetchConfig{
			TimeoutSeconds:    20,
			MaxBodyBytes:      10 << 20,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Engines: EnginesConfig{
			IRV: IRVConfig{MaxTiebreakDepth: 8},
		},
	}
}

// LoadConfig reads a YAML configuration file, overlays it on the
// defaults, and validates the result. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration bytes over the defaults and
// validates the result.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}
