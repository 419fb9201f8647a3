package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Version is reported in the User-Agent header of every request.
const Version = "1.0.0"

const (
	DefaultCDNURL = "https://cdn.filestackcontent.com"
	DefaultAPIURL = "https://www.filestackapi.com/api"
)

// Config holds client and CLI configuration
type Config struct {
	APIKey    string
	CDNURL    string
	APIURL    string
	UserAgent string
	// Timeout bounds the wait for response headers, not the transfer
	Timeout   time.Duration
	ProxyURL  string
	RateLimit string

	// Logging configuration
	LogLevel    string
	EnableDebug bool
	QuietMode   bool
	LogFile     string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CDNURL:    DefaultCDNURL,
		APIURL:    DefaultAPIURL,
		UserAgent: DefaultUserAgent(),
		Timeout:   30 * time.Second,

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "", // Empty means stderr
	}
}

// DefaultUserAgent returns the User-Agent sent when none is configured
func DefaultUserAgent() string {
	return fmt.Sprintf("filestack-go-%s", Version)
}

// LoadConfig layers defaults, an optional config file and FILESTACK_*
// environment variables onto v and returns the resulting Config. Flags bound
// to v with BindPFlag take precedence over all of them.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	defaults := DefaultConfig()
	v.SetDefault("cdn_url", defaults.CDNURL)
	v.SetDefault("api_url", defaults.APIURL)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("log_level", defaults.LogLevel)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("filestack")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "filestack"))
		}
	}
	v.SetEnvPrefix("FILESTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	config := &Config{
		APIKey:      v.GetString("api_key"),
		CDNURL:      strings.TrimRight(v.GetString("cdn_url"), "/"),
		APIURL:      strings.TrimRight(v.GetString("api_url"), "/"),
		UserAgent:   v.GetString("user_agent"),
		Timeout:     v.GetDuration("timeout"),
		ProxyURL:    v.GetString("proxy"),
		RateLimit:   v.GetString("limit_rate"),
		LogLevel:    v.GetString("log_level"),
		EnableDebug: v.GetBool("debug"),
		QuietMode:   v.GetBool("quiet"),
		LogFile:     v.GetString("log_file"),
	}
	if config.EnableDebug {
		config.LogLevel = "debug"
	}

	if err := config.ValidateConfig(); err != nil {
		return nil, err
	}
	return config, nil
}

// ValidateConfig validates the configuration values
func (c *Config) ValidateConfig() error {
	if err := validateBaseURL("cdn_url", c.CDNURL); err != nil {
		return err
	}
	if err := validateBaseURL("api_url", c.APIURL); err != nil {
		return err
	}

	if c.Timeout < 0 {
		return NewValidationErrorWithValue("timeout", "must not be negative", c.Timeout)
	}

	if strings.TrimSpace(c.UserAgent) == "" {
		return NewValidationError("user_agent", "user agent cannot be empty")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return NewValidationErrorWithValue("log_level", "unknown log level", c.LogLevel).
			WithSuggestion("Use one of debug, info, warn, error")
	}

	return nil
}

func validateBaseURL(field, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return NewValidationErrorWithValue(field, "must be an absolute http(s) URL", raw)
	}
	return nil
}
