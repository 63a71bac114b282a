package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. SCREENER_SERVER_URL
const EnvPrefix = "SCREENER"

// Config holds application configuration
type Config struct {
	ServerURL            string `json:"server_url" mapstructure:"server_url"`
	RequestTimeout       string `json:"request_timeout" mapstructure:"request_timeout"`
	IncludeCSV           bool   `json:"include_csv" mapstructure:"include_csv"`
	ListenAddr           string `json:"listen_addr" mapstructure:"listen_addr"`
	LogLevel             string `json:"log_level" mapstructure:"log_level"`
	LogFormat            string `json:"log_format" mapstructure:"log_format"`
	GmailCredentialsPath string `json:"gmail_credentials_path" mapstructure:"gmail_credentials_path"`
	GmailTokenPath       string `json:"gmail_token_path" mapstructure:"gmail_token_path"`
	ExportDir            string `json:"export_dir" mapstructure:"export_dir"`
}

// DefaultConfig returns a new config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:      "http://localhost:8000",
		RequestTimeout: "5m",
		ListenAddr:     "127.0.0.1:8080",
		LogLevel:       "info",
		LogFormat:      "console",
		GmailTokenPath: "token.json",
		ExportDir:      ".",
	}
}

// GetConfigPath returns the path to the configuration file
// On Windows: %APPDATA%/ResumeScreener/config.json
// On Unix: ~/.config/ResumeScreener/config.json
func GetConfigPath() (string, error) {
	var configDir string

	if os.Getenv("APPDATA") != "" {
		configDir = filepath.Join(os.Getenv("APPDATA"), "ResumeScreener")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "ResumeScreener")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load loads configuration from the default config path
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadFrom(configPath)
}

// LoadFrom loads configuration from a specific path. A missing file yields
// the defaults. Values from a local .env file and SCREENER_* environment
// variables override the file.
func LoadFrom(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("server_url", defaults.ServerURL)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("include_csv", defaults.IncludeCSV)
	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("gmail_credentials_path", defaults.GmailCredentialsPath)
	v.SetDefault("gmail_token_path", defaults.GmailTokenPath)
	v.SetDefault("export_dir", defaults.ExportDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// Save saves the configuration to the default config path
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to a specific path
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Timeout parses RequestTimeout
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid request_timeout %q: %w", c.RequestTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("request_timeout must be positive, got %s", d)
	}
	return d, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url must be an http(s) URL, got %q", c.ServerURL)
	}

	if _, err := c.Timeout(); err != nil {
		return err
	}

	if c.GmailCredentialsPath != "" {
		if _, err := os.Stat(c.GmailCredentialsPath); err != nil {
			return fmt.Errorf("gmail credentials file not found: %w", err)
		}
	}

	return nil
}
