package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds relay configuration values.
type Config struct {
	LogLevel    string            `mapstructure:"log_level" yaml:"log_level"`
	Relay       RelayConfig       `mapstructure:"relay" yaml:"relay"`
	Loop        LoopConfig        `mapstructure:"loop" yaml:"loop"`
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	Journal     JournalConfig     `mapstructure:"journal" yaml:"journal"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
}

// RelayConfig configures the subscriber stream listener.
type RelayConfig struct {
	Host              string        `mapstructure:"host" yaml:"host"`
	Port              int           `mapstructure:"port" yaml:"port"`
	ReadBuffer        int           `mapstructure:"read_buffer" yaml:"read_buffer"`
	SubscriberBuffer  int           `mapstructure:"subscriber_buffer" yaml:"subscriber_buffer"`
	InboxSize         int           `mapstructure:"inbox_size" yaml:"inbox_size"`
	Framing           string        `mapstructure:"framing" yaml:"framing"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	CommandsPerMinute int           `mapstructure:"commands_per_minute" yaml:"commands_per_minute"`
}

// Addr returns host:port.
func (r RelayConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// LoopConfig configures the scraper event loop.
type LoopConfig struct {
	Interval     time.Duration `mapstructure:"interval" yaml:"interval"`
	SwitchSettle time.Duration `mapstructure:"switch_settle" yaml:"switch_settle"`
	MaxFailures  int           `mapstructure:"max_failures" yaml:"max_failures"`
}

// HTTPConfig configures the admin HTTP surface. Empty Addr disables it.
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// AuthConfig configures operator tokens. Empty JWTSecret disables auth.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer" yaml:"issuer"`
	Audience  string        `mapstructure:"audience" yaml:"audience"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// JournalConfig configures the event journal. Empty Path disables it.
type JournalConfig struct {
	Path          string        `mapstructure:"path" yaml:"path"`
	Retention     time.Duration `mapstructure:"retention" yaml:"retention"`
	PruneSchedule string        `mapstructure:"prune_schedule" yaml:"prune_schedule"`
}

// DiagnosticsConfig configures screenshot and page dumps.
type DiagnosticsConfig struct {
	Dir                string `mapstructure:"dir" yaml:"dir"`
	ScreenshotSchedule string `mapstructure:"screenshot_schedule" yaml:"screenshot_schedule"`
}

// BrowserConfig configures the browser scraper.
type BrowserConfig struct {
	ControlURL string        `mapstructure:"control_url" yaml:"control_url"`
	Bin        string        `mapstructure:"bin" yaml:"bin"`
	Headless   bool          `mapstructure:"headless" yaml:"headless"`
	Stealth    bool          `mapstructure:"stealth" yaml:"stealth"`
	StartURL   string        `mapstructure:"start_url" yaml:"start_url"`
	CookiePath string        `mapstructure:"cookie_path" yaml:"cookie_path"`
	Username   string        `mapstructure:"username" yaml:"username"`
	Password   string        `mapstructure:"password" yaml:"password"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	KeyDelay   time.Duration `mapstructure:"key_delay" yaml:"key_delay"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Relay: RelayConfig{
			Host:             "127.0.0.1",
			Port:             8011,
			ReadBuffer:       4096,
			SubscriberBuffer: 100,
			InboxSize:        100,
			Framing:          "splice",
		},
		Loop: LoopConfig{
			Interval:     time.Second,
			SwitchSettle: 3 * time.Second,
			MaxFailures:  10,
		},
		HTTP: HTTPConfig{
			Addr:              "127.0.0.1:8012",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:   "chatrelay",
			Audience: "chatrelay",
			TokenTTL: 30 * 24 * time.Hour,
		},
		Journal: JournalConfig{
			Path:          "chatrelay.db",
			Retention:     7 * 24 * time.Hour,
			PruneSchedule: "@hourly",
		},
		Diagnostics: DiagnosticsConfig{
			Dir: "logs",
		},
		Browser: BrowserConfig{
			Headless:   true,
			Stealth:    true,
			StartURL:   "https://www.messenger.com",
			CookiePath: "cookies.json",
			Timeout:    15 * time.Second,
			KeyDelay:   15 * time.Millisecond,
		},
	}
}

// Overrides carries command-line values that win over every other source.
type Overrides struct {
	LogLevel  string
	RelayHost string
	RelayPort int
	HTTPAddr  string
	Framing   string
}

// UpdateFrom overwrites non-zero override values into receiver.
func (c *Config) UpdateFrom(o Overrides) {
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.RelayHost != "" {
		c.Relay.Host = o.RelayHost
	}
	if o.RelayPort != 0 {
		c.Relay.Port = o.RelayPort
	}
	if o.HTTPAddr != "" {
		c.HTTP.Addr = o.HTTPAddr
	}
	if o.Framing != "" {
		c.Relay.Framing = o.Framing
	}
}
