package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pushkit-dev/pushkit/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "pushkit.json"

	// DefaultAuthServerAddr is the default listen address for the
	// local auth server.
	DefaultAuthServerAddr = ":8736"

	// DefaultMinDelay is the default minimum reconnect delay.
	DefaultMinDelay = "1s"

	// DefaultMaxDelay is the default maximum reconnect delay.
	DefaultMaxDelay = "30s"
)

// Config represents the complete pushkit.json configuration.
type Config struct {
	// Key is the application key issued for the app.
	Key string `json:"key,omitempty"`

	// Secret is the application secret. Only the authserver command
	// needs it; tail never does.
	Secret string `json:"secret,omitempty"`

	// Cluster selects a regional endpoint (e.g. "eu", "ap1").
	Cluster string `json:"cluster,omitempty"`

	// Host overrides the server host entirely.
	Host string `json:"host,omitempty"`

	// Port overrides the scheme's default port.
	Port int `json:"port,omitempty"`

	// Insecure connects over ws:// instead of wss://.
	Insecure bool `json:"insecure,omitempty"`

	// Auth configures the channel authorization endpoint.
	Auth AuthConfig `json:"auth,omitempty"`

	// UserAuth configures the user authentication endpoint.
	UserAuth AuthConfig `json:"userAuth,omitempty"`

	// Reconnect contains reconnect backoff tuning.
	Reconnect ReconnectConfig `json:"reconnect,omitempty"`

	// AuthServer contains settings for the local auth server.
	AuthServer AuthServerConfig `json:"authServer,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// AuthConfig points at an HTTP endpoint that signs requests.
type AuthConfig struct {
	// Endpoint is the endpoint URL.
	Endpoint string `json:"endpoint,omitempty"`

	// Headers are added to every request to the endpoint.
	Headers map[string]string `json:"headers,omitempty"`
}

// ReconnectConfig contains reconnect backoff settings.
type ReconnectConfig struct {
	// MinDelay is the first backoff delay, as a duration string.
	MinDelay string `json:"minDelay,omitempty"`

	// MaxDelay caps the backoff delay, as a duration string.
	MaxDelay string `json:"maxDelay,omitempty"`

	// MaxAttempts bounds consecutive failed reconnects. Zero means
	// retry forever.
	MaxAttempts int `json:"maxAttempts,omitempty"`
}

// AuthServerConfig contains settings for `pushkit authserver`.
type AuthServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Reconnect: ReconnectConfig{
			MinDelay: DefaultMinDelay,
			MaxDelay: DefaultMaxDelay,
		},
		AuthServer: AuthServerConfig{
			Addr: DefaultAuthServerAddr,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for pushkit.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E001").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Run 'pushkit init' to create one, or pass settings as flags")
		}
		return nil, errors.New("E002").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E002").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E002").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E002").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Reconnect.MinDelay == "" {
		c.Reconnect.MinDelay = DefaultMinDelay
	}
	if c.Reconnect.MaxDelay == "" {
		c.Reconnect.MaxDelay = DefaultMaxDelay
	}
	if c.AuthServer.Addr == "" {
		c.AuthServer.Addr = DefaultAuthServerAddr
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.Newf(errors.CategoryConfig, "port must be between 0 and 65535, got %d", c.Port)
	}
	if _, err := c.MinDelay(); err != nil {
		return errors.Newf(errors.CategoryConfig, "reconnect.minDelay: %v", err)
	}
	if _, err := c.MaxDelay(); err != nil {
		return errors.Newf(errors.CategoryConfig, "reconnect.maxDelay: %v", err)
	}
	return nil
}

// MinDelay parses the minimum reconnect delay.
func (c *Config) MinDelay() (time.Duration, error) {
	return time.ParseDuration(c.Reconnect.MinDelay)
}

// MaxDelay parses the maximum reconnect delay.
func (c *Config) MaxDelay() (time.Duration, error) {
	return time.ParseDuration(c.Reconnect.MaxDelay)
}
