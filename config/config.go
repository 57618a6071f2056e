// Package config loads engine and provider settings from a YAML file,
// with environment variables filling in credentials that the file omits.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds the credentials and defaults for one provider.
type ProviderConfig struct {
	APIKey string `yaml:"api_key,omitempty"`

	// APIKeyEnv names an environment variable to read the key from when
	// APIKey is empty. Defaults to the provider's conventional variable.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	Model string `yaml:"model,omitempty"`
}

// Duration wraps time.Duration so YAML values like "250ms" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// GenerationConfig holds the engine's default generation knobs. Zero values
// mean "use the engine default".
type GenerationConfig struct {
	Temperature    float64  `yaml:"temperature,omitempty"`
	ContextSize    int      `yaml:"context_size,omitempty"`
	MaxTokens      int      `yaml:"max_tokens,omitempty"`
	Reasoning      bool     `yaml:"reasoning,omitempty"`
	Memory         *bool    `yaml:"memory,omitempty"`
	Prefill        string   `yaml:"prefill,omitempty"`
	CommitInterval Duration `yaml:"commit_interval,omitempty"`
}

// StorageConfig selects the session store backend.
type StorageConfig struct {
	// Driver is "memory" or "sqlite". Defaults to "memory".
	Driver string `yaml:"driver,omitempty"`

	// Path is the SQLite database file. Required when Driver is "sqlite".
	Path string `yaml:"path,omitempty"`
}

// Config is the root of the YAML configuration file.
type Config struct {
	// DefaultProvider selects which provider Send uses when the request
	// does not name one.
	DefaultProvider string `yaml:"default_provider,omitempty"`

	Providers  map[string]ProviderConfig `yaml:"providers,omitempty"`
	Generation GenerationConfig          `yaml:"generation,omitempty"`
	Storage    StorageConfig             `yaml:"storage,omitempty"`
}

// conventional API key variables per provider id
var defaultKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Load reads and validates the configuration file at path. A missing file
// is not an error; it yields the zero Config so everything falls back to
// engine defaults and environment credentials.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.applyDefaults()
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	for id, pc := range c.Providers {
		if pc.APIKeyEnv == "" {
			pc.APIKeyEnv = defaultKeyEnv[id]
			c.Providers[id] = pc
		}
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: sqlite driver requires a path")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}
	if c.DefaultProvider != "" {
		if _, ok := c.Providers[c.DefaultProvider]; !ok {
			return fmt.Errorf("default_provider %q has no providers entry", c.DefaultProvider)
		}
	}
	return nil
}

// Key resolves the API key for a provider: the literal value first, then
// the configured or conventional environment variable.
func (c Config) Key(providerID string) string {
	pc, ok := c.Providers[providerID]
	if !ok {
		return os.Getenv(defaultKeyEnv[providerID])
	}
	if pc.APIKey != "" {
		return pc.APIKey
	}
	env := pc.APIKeyEnv
	if env == "" {
		env = defaultKeyEnv[providerID]
	}
	return os.Getenv(env)
}
