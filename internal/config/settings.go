package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidDataDir     = errors.New("data directory must not be empty")
	ErrInvalidConcurrency = errors.New("max concurrent updates must be positive")
	ErrInvalidTimeout     = errors.New("http timeout must be positive")
	ErrInvalidSize        = errors.New("invalid max download size")
	ErrInvalidFileName    = errors.New("invalid file name")
)

// Default configuration values.
const (
	DefaultMaxConcurrent   = 10
	DefaultProdVersion     = "144.0.7559.59"
	DefaultUserAgent       = "nix-chrome-extensions"
	DefaultMaxDownloadSize = "128MB"
	DefaultUpdateURL       = "https://clients2.google.com/service/update2/crx?acceptformat=crx3&prodversion={prodversion}&response=redirect&x=id%3D{id}%26uc"

	envPrefix = "CHROME_EXTENSIONS"
)

// Settings holds all configuration options.
type Settings struct {
	// Storage layout
	DataDir      string `mapstructure:"data_dir"`
	RegistryFile string `mapstructure:"registry_file"`
	ShardDir     string `mapstructure:"shard_dir"`

	// Update settings
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	KeepGoing       bool          `mapstructure:"keep_going"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	MaxDownloadSize string        `mapstructure:"max_download_size"`

	// Chrome Web Store
	ProdVersion string `mapstructure:"prod_version"`
	UpdateURL   string `mapstructure:"update_url"` // {id} and {prodversion} are substituted

	LogLevel string `mapstructure:"log_level"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		DataDir:      "data",
		RegistryFile: "all.json",
		ShardDir:     "shard",

		MaxConcurrent:   DefaultMaxConcurrent,
		KeepGoing:       false,
		HTTPTimeout:     60 * time.Second,
		UserAgent:       DefaultUserAgent,
		MaxDownloadSize: DefaultMaxDownloadSize,

		ProdVersion: DefaultProdVersion,
		UpdateURL:   DefaultUpdateURL,

		LogLevel: "info",
	}
}

// Load reads settings from an optional config file and the environment.
//
// The file format is picked from the extension (.json, .yaml, .yml, .toml).
// An empty path means defaults plus environment only. Environment variables
// use the CHROME_EXTENSIONS_ prefix, e.g. CHROME_EXTENSIONS_DATA_DIR.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return settings, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultSettings()

	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("registry_file", d.RegistryFile)
	v.SetDefault("shard_dir", d.ShardDir)

	v.SetDefault("max_concurrent", d.MaxConcurrent)
	v.SetDefault("keep_going", d.KeepGoing)
	v.SetDefault("http_timeout", d.HTTPTimeout)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("max_download_size", d.MaxDownloadSize)

	v.SetDefault("prod_version", d.ProdVersion)
	v.SetDefault("update_url", d.UpdateURL)

	v.SetDefault("log_level", d.LogLevel)
}

// Validate checks the settings for values the updater cannot work with.
func (s *Settings) Validate() error {
	if s.DataDir == "" {
		return ErrInvalidDataDir
	}

	if s.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, s.MaxConcurrent)
	}

	if s.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, s.HTTPTimeout)
	}

	if _, err := s.DownloadLimit(); err != nil {
		return err
	}

	for _, name := range []string{s.RegistryFile, s.ShardDir} {
		if name == "" || name != filepath.Base(name) {
			return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
		}
	}

	return nil
}

// DownloadLimit returns MaxDownloadSize in bytes. Zero disables the limit.
func (s *Settings) DownloadLimit() (int64, error) {
	if s.MaxDownloadSize == "" || s.MaxDownloadSize == "0" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(s.MaxDownloadSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSize, err)
	}

	return int64(size), nil
}
