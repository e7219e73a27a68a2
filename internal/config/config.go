// Package config loads the bridge configuration from TOML and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Default configuration values used when a field is missing.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":3040"
	DefaultWorkDir         = "~/liteclaw"
	DefaultBackendPort     = 8009
	DefaultBackendPath     = "/whatsapp/incoming"
	DefaultBackendTimeout  = 10 * time.Second
	DefaultQueueSize       = 256
	DefaultWorkers         = 4
	DefaultDedupTTL        = 10 * time.Minute
	DefaultTelegramRate    = 25
	DefaultTelegramPoll    = 10 * time.Second
	DefaultSlackNameTTL    = time.Hour
	DefaultWhatsAppMode    = WhatsAppModeLocal
	DefaultWhatsAppGraph   = "https://graph.facebook.com/v21.0"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	WhatsAppModeLocal      = "local"
	WhatsAppModeCloud      = "cloud_api"
	WhatsAppModeDisabled   = "disabled"
	maskedSecretVisibleLen = 4
)

// Config is the root configuration.
type Config struct {
	WorkDir  string         `toml:"work_dir" env:"WORK_DIR"`
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Backend  BackendConfig  `toml:"backend"`
	Forward  ForwardConfig  `toml:"forward"`
	Telegram TelegramConfig `toml:"telegram"`
	Slack    SlackConfig    `toml:"slack"`
	WhatsApp WhatsAppConfig `toml:"whatsapp"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL"`
	Format string `toml:"format" env:"LOG_FORMAT"`
}

type ServerConfig struct {
	Addr string `toml:"addr" env:"BRIDGE_ADDR"`
}

// BackendConfig locates the application backend that receives inbound envelopes.
// URL wins over Port when both are set.
type BackendConfig struct {
	URL     string        `toml:"url" env:"BACKEND_URL"`
	Port    int           `toml:"port" env:"PYTHON_BACKEND_PORT"`
	Timeout time.Duration `toml:"timeout" env:"BACKEND_TIMEOUT"`
}

type ForwardConfig struct {
	QueueSize int           `toml:"queue_size" env:"FORWARD_QUEUE_SIZE"`
	Workers   int           `toml:"workers" env:"FORWARD_WORKERS"`
	DedupTTL  time.Duration `toml:"dedup_ttl"`
}

type TelegramConfig struct {
	Tokens        []string      `toml:"tokens" env:"TELEGRAM_BOT_TOKEN" envSeparator:","`
	APIEndpoint   string        `toml:"api_endpoint"`
	RatePerSecond float64       `toml:"rate_per_second"`
	PollTimeout   time.Duration `toml:"poll_timeout"`
}

// Enabled reports whether at least one bot token is configured.
func (c TelegramConfig) Enabled() bool {
	for _, token := range c.Tokens {
		if strings.TrimSpace(token) != "" {
			return true
		}
	}
	return false
}

type SlackConfig struct {
	BotToken      string        `toml:"bot_token" env:"SLACK_BOT_TOKEN"`
	AppToken      string        `toml:"app_token" env:"SLACK_APP_TOKEN"`
	SigningSecret string        `toml:"signing_secret" env:"SLACK_SIGNING_SECRET"`
	APIURL        string        `toml:"api_url"`
	NameCacheTTL  time.Duration `toml:"name_cache_ttl"`
}

func (c SlackConfig) Enabled() bool {
	return c.BotToken != ""
}

type WhatsAppConfig struct {
	Mode          string `toml:"mode" env:"WHATSAPP_TYPE"`
	AccessToken   string `toml:"access_token" env:"WHATSAPP_ACCESS_TOKEN"`
	PhoneNumberID string `toml:"phone_number_id" env:"WHATSAPP_PHONE_NUMBER_ID"`
	VerifyToken   string `toml:"verify_token" env:"WHATSAPP_VERIFY_TOKEN"`
	GraphURL      string `toml:"graph_url"`
	Proxy         string `toml:"proxy" env:"WHATSAPP_PROXY"`
	QRLarge       bool   `toml:"qr_large" env:"QR_LARGE"`
}

func (c WhatsAppConfig) Enabled() bool {
	return c.Mode != WhatsAppModeDisabled
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		WorkDir: DefaultWorkDir,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Backend: BackendConfig{
			Port:    DefaultBackendPort,
			Timeout: DefaultBackendTimeout,
		},
		Forward: ForwardConfig{
			QueueSize: DefaultQueueSize,
			Workers:   DefaultWorkers,
			DedupTTL:  DefaultDedupTTL,
		},
		Telegram: TelegramConfig{
			RatePerSecond: DefaultTelegramRate,
			PollTimeout:   DefaultTelegramPoll,
		},
		Slack: SlackConfig{
			NameCacheTTL: DefaultSlackNameTTL,
		},
		WhatsApp: WhatsAppConfig{
			Mode:     DefaultWhatsAppMode,
			GraphURL: DefaultWhatsAppGraph,
		},
	}
}

// Load reads the TOML file at path, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is Load with an explicit environment; nil means the process environment.
func LoadWithEnv(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate normalizes derived values and rejects unusable settings.
func (c *Config) Validate() error {
	mode, err := normalizeWhatsAppMode(c.WhatsApp.Mode)
	if err != nil {
		return err
	}
	c.WhatsApp.Mode = mode

	workDir, err := expandHome(c.WorkDir)
	if err != nil {
		return err
	}
	c.WorkDir = workDir

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultHTTPAddr
	}
	if c.Backend.Port <= 0 {
		c.Backend.Port = DefaultBackendPort
	}
	if strings.TrimSpace(c.Backend.URL) == "" {
		c.Backend.URL = fmt.Sprintf("http://localhost:%d%s", c.Backend.Port, DefaultBackendPath)
	}
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}
	if c.Forward.QueueSize <= 0 {
		c.Forward.QueueSize = DefaultQueueSize
	}
	if c.Forward.Workers <= 0 {
		c.Forward.Workers = DefaultWorkers
	}
	if c.Forward.DedupTTL <= 0 {
		c.Forward.DedupTTL = DefaultDedupTTL
	}
	if c.Telegram.RatePerSecond <= 0 {
		c.Telegram.RatePerSecond = DefaultTelegramRate
	}
	if c.Telegram.PollTimeout <= 0 {
		c.Telegram.PollTimeout = DefaultTelegramPoll
	}
	if c.Slack.NameCacheTTL <= 0 {
		c.Slack.NameCacheTTL = DefaultSlackNameTTL
	}
	tokens := c.Telegram.Tokens[:0]
	for _, token := range c.Telegram.Tokens {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	c.Telegram.Tokens = tokens
	return nil
}

// normalizeWhatsAppMode maps legacy automation names onto the local mode.
func normalizeWhatsAppMode(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "local", "node_bridge", "selenium", "whatsmeow":
		return WhatsAppModeLocal, nil
	case "cloud_api", "cloud":
		return WhatsAppModeCloud, nil
	case "disabled", "none", "off":
		return WhatsAppModeDisabled, nil
	default:
		return "", fmt.Errorf("unsupported whatsapp mode %q", raw)
	}
}

func expandHome(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		p = DefaultWorkDir
	}
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve work dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// Masked returns a copy safe to print, with every credential shortened.
func (c Config) Masked() Config {
	out := c
	out.Telegram.Tokens = make([]string, len(c.Telegram.Tokens))
	for i, token := range c.Telegram.Tokens {
		out.Telegram.Tokens[i] = maskSecret(token)
	}
	out.Slack.BotToken = maskSecret(c.Slack.BotToken)
	out.Slack.AppToken = maskSecret(c.Slack.AppToken)
	out.Slack.SigningSecret = maskSecret(c.Slack.SigningSecret)
	out.WhatsApp.AccessToken = maskSecret(c.WhatsApp.AccessToken)
	out.WhatsApp.VerifyToken = maskSecret(c.WhatsApp.VerifyToken)
	if u, err := url.Parse(c.WhatsApp.Proxy); err == nil && u.User != nil {
		out.WhatsApp.Proxy = u.Redacted()
	}
	return out
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= maskedSecretVisibleLen*2 {
		return "****"
	}
	return "****" + s[len(s)-maskedSecretVisibleLen:]
}
