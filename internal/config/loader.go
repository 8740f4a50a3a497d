package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigDefaultPath = "CHATRELAY_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
	envPrefix            = "CHATRELAY"
)

// Loader owns the viper instance so the config file can be watched after Load.
type Loader struct {
	v      *viper.Viper
	logger *zerolog.Logger
	path   string
}

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	l := NewLoader(logger, explicitPath)
	cfg, err := l.Load()
	return cfg, l.path, err
}

// NewLoader prepares a loader for the given path. Empty path resolves to
// $CHATRELAY_CONFIG_DEFAULT_PATH/config.yaml or ./config.yaml.
func NewLoader(logger *zerolog.Logger, explicitPath string) *Loader {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := resolveConfigPath(explicitPath)
	v.SetConfigFile(path)

	return &Loader{v: v, logger: logger, path: path}
}

// Path returns the resolved config file path.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the config file, writing one with defaults when it is missing.
func (l *Loader) Load() (Config, error) {
	cfg := Default()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(l.path, cfg); writeErr != nil {
				l.logger.Warn().Err(writeErr).Str("path", l.path).Msg("failed to write default config")
			} else {
				l.logger.Info().Str("path", l.path).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := l.v.ReadInConfig(); readErr != nil {
				l.logger.Warn().Err(readErr).Str("path", l.path).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := l.v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Watch re-reads the config file on change and hands the result to onChange.
// Only settings that are safe to change at runtime should be applied by the callback.
func (l *Loader) Watch(onChange func(Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg := Default()
		if err := l.v.Unmarshal(&cfg); err != nil {
			l.logger.Warn().Err(err).Str("path", e.Name).Msg("config reload failed")
			return
		}
		l.logger.Info().Str("path", e.Name).Str("op", e.Op.String()).Msg("config reloaded")
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log_level", cfg.LogLevel)

	v.SetDefault("relay.host", cfg.Relay.Host)
	v.SetDefault("relay.port", cfg.Relay.Port)
	v.SetDefault("relay.read_buffer", cfg.Relay.ReadBuffer)
	v.SetDefault("relay.subscriber_buffer", cfg.Relay.SubscriberBuffer)
	v.SetDefault("relay.inbox_size", cfg.Relay.InboxSize)
	v.SetDefault("relay.framing", cfg.Relay.Framing)
	v.SetDefault("relay.idle_timeout", cfg.Relay.IdleTimeout)
	v.SetDefault("relay.write_timeout", cfg.Relay.WriteTimeout)
	v.SetDefault("relay.commands_per_minute", cfg.Relay.CommandsPerMinute)

	v.SetDefault("loop.interval", cfg.Loop.Interval)
	v.SetDefault("loop.switch_settle", cfg.Loop.SwitchSettle)
	v.SetDefault("loop.max_failures", cfg.Loop.MaxFailures)

	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.read_header_timeout", cfg.HTTP.ReadHeaderTimeout)
	v.SetDefault("http.shutdown_timeout", cfg.HTTP.ShutdownTimeout)

	v.SetDefault("auth.jwt_secret", cfg.Auth.JWTSecret)
	v.SetDefault("auth.issuer", cfg.Auth.Issuer)
	v.SetDefault("auth.audience", cfg.Auth.Audience)
	v.SetDefault("auth.token_ttl", cfg.Auth.TokenTTL)

	v.SetDefault("journal.path", cfg.Journal.Path)
	v.SetDefault("journal.retention", cfg.Journal.Retention)
	v.SetDefault("journal.prune_schedule", cfg.Journal.PruneSchedule)

	v.SetDefault("diagnostics.dir", cfg.Diagnostics.Dir)
	v.SetDefault("diagnostics.screenshot_schedule", cfg.Diagnostics.ScreenshotSchedule)

	v.SetDefault("browser.control_url", cfg.Browser.ControlURL)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.start_url", cfg.Browser.StartURL)
	v.SetDefault("browser.cookie_path", cfg.Browser.CookiePath)
	v.SetDefault("browser.username", cfg.Browser.Username)
	v.SetDefault("browser.password", cfg.Browser.Password)
	v.SetDefault("browser.timeout", cfg.Browser.Timeout)
	v.SetDefault("browser.key_delay", cfg.Browser.KeyDelay)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
