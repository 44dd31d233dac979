package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := Defaults()
	cfg.Telegram.Token = "123:abc"
	cfg.Mappings = map[string]string{"FooGroup": "#foo"}
	return cfg
}

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MissingToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing telegram token")
	}
}

func TestValidate_MissingNick(t *testing.T) {
	cfg := validConfig()
	cfg.IRC.Nick = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing irc nick")
	}
}

func TestValidate_NoMappings(t *testing.T) {
	cfg := validConfig()
	cfg.Mappings = nil
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty mappings")
	}
}

func TestValidate_BadChannelName(t *testing.T) {
	cfg := validConfig()
	cfg.Mappings = map[string]string{"FooGroup": "foo"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for channel without # prefix")
	}
}

func TestValidate_DuplicateChannel(t *testing.T) {
	cfg := validConfig()
	cfg.Mappings = map[string]string{"FooGroup": "#foo", "BarGroup": "#foo"}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for two groups mapped to one channel")
	}
	if !strings.Contains(err.Error(), "#foo") {
		t.Errorf("error should name the duplicated channel, got: %v", err)
	}
}

func TestValidate_BadBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Media.BaseURL = "not a url"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for relative base url")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

// --- MediaConfig.Enabled ---

func TestMediaEnabled(t *testing.T) {
	tests := []struct {
		name string
		m    MediaConfig
		want bool
	}{
		{"all set", MediaConfig{Relay: true, BaseURL: "http://x", DownloadDir: "/tmp/m"}, true},
		{"flag off", MediaConfig{Relay: false, BaseURL: "http://x", DownloadDir: "/tmp/m"}, false},
		{"no base url", MediaConfig{Relay: true, DownloadDir: "/tmp/m"}, false},
		{"no download dir", MediaConfig{Relay: true, BaseURL: "http://x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := validConfig()
	original.IRC.Nick = "bridgebot"
	original.Media = MediaConfig{Relay: true, BaseURL: "https://media.example.com", DownloadDir: filepath.Join(dir, "media")}

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.IRC.Nick != "bridgebot" {
		t.Errorf("nick = %q, want bridgebot", loaded.IRC.Nick)
	}
	if loaded.Mappings["FooGroup"] != "#foo" {
		t.Errorf("mappings = %v", loaded.Mappings)
	}
	if !loaded.Media.Enabled() {
		t.Error("media should be enabled after round trip")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	// Parses fine but fails validation: no token, no mappings.
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("IRCGRAM_TEST_TOKEN", "999:secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
irc:
  server: irc.libera.chat:6697
  nick: ircgram
telegram:
  token: ${IRCGRAM_TEST_TOKEN}
mappings:
  FooGroup: "#foo"
store:
  db_path: /tmp/ircgram-test.db
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "999:secret" {
		t.Errorf("token = %q, want expanded env value", cfg.Telegram.Token)
	}
}

func TestExpandEnvVars_Defaults(t *testing.T) {
	os.Unsetenv("IRCGRAM_UNSET_VAR")

	got := ExpandEnvVars("${IRCGRAM_UNSET_VAR:-fallback}")
	if got != "fallback" {
		t.Errorf("got %q, want fallback", got)
	}

	got = ExpandEnvVars("${IRCGRAM_UNSET_VAR}")
	if got != "${IRCGRAM_UNSET_VAR}" {
		t.Errorf("unset var without default should stay literal, got %q", got)
	}
}
