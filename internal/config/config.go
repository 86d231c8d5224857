package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/blacktop/robohashy/internal/photos"
	"github.com/blacktop/robohashy/internal/robohash"
)

// EnvPrefix prefixes every environment override, e.g. ROBOHASHY_SERVICE_BASE_URL.
const EnvPrefix = "ROBOHASHY"

var validProtocols = []string{
	"auto",
	"kitty",
	"iterm2",
	"sixel",
	"halfblocks",
}

// Config holds all application configuration
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Library  LibraryConfig  `mapstructure:"library"`
	Display  DisplayConfig  `mapstructure:"display"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServiceConfig holds the avatar service settings
type ServiceConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// PipelineConfig holds request pipeline settings
type PipelineConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Set      string        `mapstructure:"set"`  // initial style set
	Seed     string        `mapstructure:"seed"` // generated right away when set
}

// LibraryConfig holds photo library settings
type LibraryConfig struct {
	Kind     string `mapstructure:"kind"`     // "dir" or "bolt"
	Folder   string `mapstructure:"folder"`   // dir backend
	Database string `mapstructure:"database"` // bolt backend
}

// DisplayConfig holds preview settings
type DisplayConfig struct {
	Protocol string `mapstructure:"protocol"`
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			BaseURL:   robohash.DefaultBaseURL,
			UserAgent: robohash.DefaultUserAgent,
		},
		Pipeline: PipelineConfig{
			Debounce: 500 * time.Millisecond,
			Set:      robohash.DefaultStyleSet.Name(),
		},
		Library: LibraryConfig{
			Kind:     string(photos.KindDir),
			Folder:   defaultPicturesPath(),
			Database: filepath.Join(defaultDataPath(), "library.db"),
		},
		Display: DisplayConfig{
			Protocol: "auto",
			Width:    40,
			Height:   20,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "robohashy.log"),
			Level: "info",
		},
	}
}

// Location is where the configured library backend stores avatars.
func (c *Config) Location() string {
	if c.Library.Kind == string(photos.KindBolt) {
		return expandHome(c.Library.Database)
	}
	return expandHome(c.Library.Folder)
}

// Validate checks enumerated and structured values
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Service.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("invalid service base URL %q", c.Service.BaseURL))
	}
	if c.Pipeline.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("invalid debounce %s (must be positive)", c.Pipeline.Debounce))
	}
	if _, err := robohash.ParseStyleSet(c.Pipeline.Set); err != nil {
		errs = append(errs, err)
	}
	if !photos.ValidKind(c.Library.Kind) {
		errs = append(errs, fmt.Errorf("invalid library kind %q (must be one of: %s)", c.Library.Kind, strings.Join(photos.Kinds(), ", ")))
	}
	if !slices.Contains(validProtocols, c.Display.Protocol) {
		errs = append(errs, fmt.Errorf("invalid display protocol %q (must be one of: %s)", c.Display.Protocol, strings.Join(validProtocols, ", ")))
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid preview size %dx%d", c.Display.Width, c.Display.Height))
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// Protocols lists the accepted preview protocols.
func Protocols() []string {
	return slices.Clone(validProtocols)
}

// setDefaults registers every key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.base_url", cfg.Service.BaseURL)
	v.SetDefault("service.user_agent", cfg.Service.UserAgent)
	v.SetDefault("pipeline.debounce", cfg.Pipeline.Debounce)
	v.SetDefault("pipeline.set", cfg.Pipeline.Set)
	v.SetDefault("pipeline.seed", cfg.Pipeline.Seed)
	v.SetDefault("library.kind", cfg.Library.Kind)
	v.SetDefault("library.folder", cfg.Library.Folder)
	v.SetDefault("library.database", cfg.Library.Database)
	v.SetDefault("display.protocol", cfg.Display.Protocol)
	v.SetDefault("display.width", cfg.Display.Width)
	v.SetDefault("display.height", cfg.Display.Height)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

// Load reads configuration from file, environment and any flags already
// bound to v. An explicit configFile must exist; otherwise a missing
// config.yaml is fine and defaults apply.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	cfg := Default()
	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "robohashy")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "robohashy")
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "robohashy")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "robohashy")
	}
}

// defaultPicturesPath returns where the dir library saves avatars
func defaultPicturesPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Pictures", "robohashy")
}

// ExpandHome expands a leading ~ in path.
func ExpandHome(path string) string {
	return expandHome(path)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
