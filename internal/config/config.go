package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/codeforge-edu/codeforge/internal/session"
)

// Config represents the codeforge configuration
type Config struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Server      ServerConfig     `yaml:"server"`
	Store       StoreConfig      `yaml:"store"`
	Auth        *AuthConfig      `yaml:"auth,omitempty"`
	API         *APIConfig       `yaml:"api,omitempty"`
	Features    FeaturesConfig   `yaml:"features"`
	Catalog     CatalogConfig    `yaml:"catalog"`
	Playground  PlaygroundConfig `yaml:"playground"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// StoreConfig selects and configures the snippet persistence backend
type StoreConfig struct {
	Type string `yaml:"type"`           // "sqlite" or "pg"
	Path string `yaml:"path,omitempty"` // For sqlite: database file path (default: ./codeforge.db)
	DSN  string `yaml:"dsn,omitempty"`  // For pg: connection string (env vars expanded, falls back to DATABASE_URL)
}

// GetDSN returns the PostgreSQL connection string with environment variable expansion
func (s StoreConfig) GetDSN() string {
	if s.DSN == "" {
		return ""
	}
	return os.ExpandEnv(s.DSN)
}

// AuthConfig holds the bearer tokens accepted by the API.
// Token values support environment variable expansion (e.g., "${CODEFORGE_TOKEN}")
type AuthConfig struct {
	Tokens []session.Token `yaml:"tokens,omitempty"`
}

// APIConfig holds REST API configuration
type APIConfig struct {
	CORS      *CORSConfig      `yaml:"cors,omitempty"`
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// CORSConfig holds CORS configuration for the API
type CORSConfig struct {
	Origins []string `yaml:"origins,omitempty"` // Allowed origins (e.g., ["http://localhost:3000", "*"])
}

// RateLimitConfig holds rate limiting configuration for the API
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // Rate limit in requests per second (default: 10)
	Burst             int     `yaml:"burst,omitempty"`               // Burst size (default: 20)
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	HotReload bool `yaml:"hot_reload"` // Reload connected browsers when watched content changes
	Catalog   bool `yaml:"catalog"`    // Serve the course/challenge catalog endpoints
}

// CatalogConfig holds catalog content configuration
type CatalogConfig struct {
	ContentDir string `yaml:"content_dir"` // Directory of markdown course descriptions (watched for hot reload)
}

// PlaygroundConfig tunes playground session handling
type PlaygroundConfig struct {
	SessionTTL string `yaml:"session_ttl,omitempty"` // Idle session lifetime (e.g., "1h"). Default: 1h
	RunTTL     string `yaml:"run_ttl,omitempty"`     // Preview document lifetime (e.g., "1h"). Default: 1h
}

// GetSessionTTL returns the parsed idle session lifetime (default: 1h)
func (p PlaygroundConfig) GetSessionTTL() time.Duration {
	return parseDurationOr(p.SessionTTL, time.Hour)
}

// GetRunTTL returns the parsed preview document lifetime (default: 1h)
func (p PlaygroundConfig) GetRunTTL() time.Duration {
	return parseDurationOr(p.RunTTL, time.Hour)
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetCORSOrigins returns the configured CORS origins, or nil if not configured
func (c *APIConfig) GetCORSOrigins() []string {
	if c == nil || c.CORS == nil {
		return nil
	}
	return c.CORS.Origins
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 10)
func (c *APIConfig) GetRateLimitRPS() float64 {
	if c == nil || c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 10
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 20)
func (c *APIConfig) GetRateLimitBurst() int {
	if c == nil || c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 20
	}
	return c.RateLimit.Burst
}

// GetTokens returns the configured auth tokens, or nil when auth is disabled
func (c *Config) GetTokens() []session.Token {
	if c.Auth == nil {
		return nil
	}
	return c.Auth.Tokens
}

// Validate checks cross-field constraints the YAML schema cannot express
func (c *Config) Validate() error {
	switch c.Store.Type {
	case "sqlite", "pg":
	case "":
		return fmt.Errorf("store.type is required (\"sqlite\" or \"pg\")")
	default:
		return fmt.Errorf("unknown store.type %q (want \"sqlite\" or \"pg\")", c.Store.Type)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title:       "CodeForge Playground",
		Description: "Browser code playground with saved snippets",
		Server: ServerConfig{
			Port:  8080,
			Host:  "localhost",
			Debug: false,
		},
		Store: StoreConfig{
			Type: "sqlite",
			Path: "./codeforge.db",
		},
		Features: FeaturesConfig{
			HotReload: true,
			Catalog:   true,
		},
		Catalog: CatalogConfig{
			ContentDir: "./content",
		},
	}
}

// Load loads configuration from a YAML file
// If the file doesn't exist, returns the default configuration
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML over defaults so omitted fields keep their default values
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// LoadFromDir looks for codeforge.yaml or codeforge.yml in the given directory.
// If neither is found, returns the default configuration
func LoadFromDir(dir string) (*Config, error) {
	yamlPath := filepath.Join(dir, "codeforge.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return Load(yamlPath)
	}

	return Load(filepath.Join(dir, "codeforge.yml"))
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
