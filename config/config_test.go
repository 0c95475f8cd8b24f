package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CHANNEL_ID", "DISCORD_WEBHOOK_URL", "YOUTUBE_API_KEYS", "YOUTUBE_API_KEY",
		"YT_CLIENT_ID", "YT_CLIENT_SECRET", "YT_REFRESH_TOKEN", "YT_API_BASE_URL",
		"POLL_INTERVAL", "CLIP_PAD", "CLIP_COOLDOWN", "HTTP_ADDR", "DB_DSN", "CONFIG_FILE",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "TRACE_SAMPLE_RATIO", "SERVICE_VERSION",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PollInterval != 15*time.Second {
		t.Errorf("PollInterval = %v, want 15s", cfg.PollInterval)
	}
	if cfg.ClipPad != 30*time.Second {
		t.Errorf("ClipPad = %v, want 30s", cfg.ClipPad)
	}
	if cfg.ClipCooldown != 30*time.Second {
		t.Errorf("ClipCooldown = %v, want 30s", cfg.ClipCooldown)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.OAuth != nil {
		t.Errorf("expected no oauth credential by default")
	}
}

func TestLoadAPIKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOUTUBE_API_KEYS", "k1, k2 k3,k1")
	t.Setenv("YOUTUBE_API_KEY", "k2")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []string{"k1", "k2", "k3"}
	if len(cfg.APIKeys) != len(want) {
		t.Fatalf("APIKeys = %v, want %v", cfg.APIKeys, want)
	}
	for i := range want {
		if cfg.APIKeys[i] != want[i] {
			t.Errorf("APIKeys[%d] = %q, want %q", i, cfg.APIKeys[i], want[i])
		}
	}
}

func TestLoadOAuthCredential(t *testing.T) {
	clearEnv(t)
	t.Setenv("YT_CLIENT_ID", "cid")
	t.Setenv("YT_CLIENT_SECRET", "secret")
	t.Setenv("YT_REFRESH_TOKEN", "rt")
	cfg, _ := Load()
	if cfg.OAuth == nil || cfg.OAuth.RefreshToken != "rt" {
		t.Fatalf("expected oauth credential, got %+v", cfg.OAuth)
	}
	if cfg.CredentialCount() != 1 {
		t.Errorf("CredentialCount() = %d, want 1", cfg.CredentialCount())
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid POLL_INTERVAL")
	}
}

func TestLoadHTTPAddrDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", "off")
	cfg, _ := Load()
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr = %q, want empty", cfg.HTTPAddr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no credentials", Config{ChannelID: "c", WebhookURL: "w"}, ErrNoCredentials},
		{"no channel", Config{APIKeys: []string{"k"}, WebhookURL: "w"}, ErrMissingChannel},
		{"no webhook", Config{APIKeys: []string{"k"}, ChannelID: "c"}, ErrMissingWebhook},
		{"oauth only", Config{OAuth: &OAuthCredential{ClientID: "id", RefreshToken: "rt"}, ChannelID: "c", WebhookURL: "w"}, nil},
		{"ok", Config{APIKeys: []string{"k"}, ChannelID: "c", WebhookURL: "w"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clipbot.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", writeConfigFile(t, `
channel_id: UCfile
discord_webhook_url: https://discord.example/hook
youtube_api_keys: [fk1, fk2]
poll_interval: 5s
clip_cooldown: 1m
http_addr: "off"
`))
	t.Setenv("CHANNEL_ID", "UCenv")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ChannelID != "UCenv" {
		t.Errorf("ChannelID = %q, env should win over file", cfg.ChannelID)
	}
	if cfg.WebhookURL != "https://discord.example/hook" {
		t.Errorf("WebhookURL = %q", cfg.WebhookURL)
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[0] != "fk1" || cfg.APIKeys[1] != "fk2" {
		t.Errorf("APIKeys = %v", cfg.APIKeys)
	}
	if cfg.PollInterval != 5*time.Second || cfg.ClipCooldown != time.Minute {
		t.Errorf("durations = %v / %v", cfg.PollInterval, cfg.ClipCooldown)
	}
	if cfg.ClipPad != DefaultClipPad {
		t.Errorf("ClipPad = %v, want default", cfg.ClipPad)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr = %q, want disabled", cfg.HTTPAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"bad yaml", func(t *testing.T) string { return writeConfigFile(t, "channel_id: [unterminated") }},
		{"bad duration", func(t *testing.T) string { return writeConfigFile(t, "clip_pad: forever") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("CONFIG_FILE", tt.path(t))
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadTracing(t *testing.T) {
	tests := []struct {
		name      string
		ratio     string
		version   string
		wantRatio float64
		wantVer   string
		wantErr   bool
	}{
		{name: "defaults", wantRatio: 1, wantVer: DefaultVersion},
		{name: "custom", ratio: "0.1", version: "1.4.2", wantRatio: 0.1, wantVer: "1.4.2"},
		{name: "not a number", ratio: "most", wantErr: true},
		{name: "above one", ratio: "1.5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
			t.Setenv("TRACE_SAMPLE_RATIO", tt.ratio)
			t.Setenv("SERVICE_VERSION", tt.version)
			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.OTLPEndpoint != "collector:4317" || cfg.TraceSampleRatio != tt.wantRatio || cfg.ServiceVersion != tt.wantVer {
				t.Errorf("tracing config = %q %v %q", cfg.OTLPEndpoint, cfg.TraceSampleRatio, cfg.ServiceVersion)
			}
		})
	}
}
