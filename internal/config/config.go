package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the relay.
type Config struct {
	LogLevel string `yaml:"log_level"`
	Debug    bool   `yaml:"debug"`

	IRC      IRCConfig      `yaml:"irc"`
	Telegram TelegramConfig `yaml:"telegram"`

	// Mappings pairs a Telegram group title with its IRC channel.
	// The pairing is 1:1 in both directions.
	Mappings map[string]string `yaml:"mappings"`

	Media MediaConfig `yaml:"media"`
	Store StoreConfig `yaml:"store"`
}

type IRCConfig struct {
	Server   string `yaml:"server"` // host:port
	TLS      bool   `yaml:"tls"`
	Nick     string `yaml:"nick"`
	Password string `yaml:"password,omitempty"` // SASL PLAIN when set
}

type TelegramConfig struct {
	Token string `yaml:"token"`
}

type MediaConfig struct {
	Relay       bool   `yaml:"relay"`
	BaseURL     string `yaml:"base_url,omitempty"`
	DownloadDir string `yaml:"download_dir,omitempty"`
	Listen      string `yaml:"listen,omitempty"` // optional built-in file server address
}

// Enabled reports whether media relay is effectively on: the flag alone
// is not enough, both the public base URL and the download directory
// must be configured.
func (m MediaConfig) Enabled() bool {
	return m.Relay && m.BaseURL != "" && m.DownloadDir != ""
}

type StoreConfig struct {
	DBPath string `yaml:"db_path"`
}

// DefaultConfigDir returns the default config directory (~/.ircgram).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ircgram"
	}
	return filepath.Join(home, ".ircgram")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		IRC: IRCConfig{
			Server: "irc.libera.chat:6697",
			TLS:    true,
			Nick:   "ircgram",
		},
		Mappings: map[string]string{},
		Media: MediaConfig{
			Relay: false,
		},
		Store: StoreConfig{
			DBPath: "~/.ircgram/chat_ids.db",
		},
	}
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Store.DBPath = ExpandPath(cfg.Store.DBPath)
	cfg.Media.DownloadDir = ExpandPath(cfg.Media.DownloadDir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // keep original if no env var and no default
		}
		return val
	})
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.IRC.Server == "" {
		errs = append(errs, "irc.server is required")
	}
	if cfg.IRC.Nick == "" {
		errs = append(errs, "irc.nick is required")
	}
	if cfg.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required")
	}
	if len(cfg.Mappings) == 0 {
		errs = append(errs, "at least one group/channel mapping is required")
	}

	seen := map[string]string{}
	for group, channel := range cfg.Mappings {
		if !strings.HasPrefix(channel, "#") {
			errs = append(errs, fmt.Sprintf("mappings[%s]: %q is not a channel name", group, channel))
		}
		if prev, ok := seen[channel]; ok {
			errs = append(errs, fmt.Sprintf("channel %s mapped to both %q and %q", channel, prev, group))
		}
		seen[channel] = group
	}

	if cfg.Media.BaseURL != "" {
		u, err := url.Parse(cfg.Media.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("media.base_url: %q is not an absolute URL", cfg.Media.BaseURL))
		}
	}
	if cfg.Store.DBPath == "" {
		errs = append(errs, "store.db_path is required")
	}

	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "log_level must be one of: debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
