// Package config loads environment variables (optionally layered over a YAML file
// named by CONFIG_FILE) and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// Required values (channel, webhook, at least one credential) are checked by Validate.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the clip command.
const (
	DefaultPollInterval = 15 * time.Second
	DefaultClipPad      = 30 * time.Second
	DefaultClipCooldown = 30 * time.Second
	DefaultHTTPAddr     = ":8080"
	DefaultVersion      = "dev"
)

var (
	// ErrNoCredentials is returned when no YouTube API key or OAuth credential is configured.
	ErrNoCredentials = errors.New("no youtube credentials configured")
	// ErrMissingChannel is returned when CHANNEL_ID is empty.
	ErrMissingChannel = errors.New("missing CHANNEL_ID")
	// ErrMissingWebhook is returned when DISCORD_WEBHOOK_URL is empty.
	ErrMissingWebhook = errors.New("missing DISCORD_WEBHOOK_URL")
)

// OAuthCredential is a pre-authorized refresh token for a Google OAuth client.
type OAuthCredential struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Config is everything the bot reads at startup. Build it with Load and check it with Validate.
type Config struct {
	// YouTube
	ChannelID  string
	APIKeys    []string
	OAuth      *OAuthCredential
	APIBaseURL string

	// Webhook
	WebhookURL string

	// Polling / clip
	PollInterval time.Duration
	ClipPad      time.Duration
	ClipCooldown time.Duration

	// HTTP status server; empty disables it.
	HTTPAddr string

	// Optional clip ledger
	DBDsn string

	// Tracing; empty endpoint disables it.
	OTLPEndpoint     string
	TraceSampleRatio float64
	ServiceVersion   string
}

// Load reads environment variables and applies defaults. It doesn't fail on missing required values;
// call Validate before starting the bot.
func Load() (*Config, error) {
	file, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	// env wins over the file
	get := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return file[key]
	}
	cfg := &Config{}

	cfg.ChannelID = strings.TrimSpace(get("CHANNEL_ID"))
	cfg.WebhookURL = strings.TrimSpace(get("DISCORD_WEBHOOK_URL"))
	cfg.APIBaseURL = get("YT_API_BASE_URL")

	// allow comma or space separated
	keys := strings.Fields(strings.ReplaceAll(get("YOUTUBE_API_KEYS"), ",", " "))
	if k := strings.TrimSpace(get("YOUTUBE_API_KEY")); k != "" {
		keys = append(keys, k)
	}
	cfg.APIKeys = dedupe(keys)

	if id, secret, rt := get("YT_CLIENT_ID"), get("YT_CLIENT_SECRET"), get("YT_REFRESH_TOKEN"); id != "" && rt != "" {
		cfg.OAuth = &OAuthCredential{ClientID: id, ClientSecret: secret, RefreshToken: rt}
	}

	if cfg.PollInterval, err = durationEnv(get, "POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}
	if cfg.ClipPad, err = durationEnv(get, "CLIP_PAD", DefaultClipPad); err != nil {
		return nil, err
	}
	if cfg.ClipCooldown, err = durationEnv(get, "CLIP_COOLDOWN", DefaultClipCooldown); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = get("HTTP_ADDR")
	switch strings.ToLower(cfg.HTTPAddr) {
	case "":
		cfg.HTTPAddr = DefaultHTTPAddr
	case "off", "0", "disabled":
		cfg.HTTPAddr = ""
	}

	cfg.DBDsn = get("DB_DSN")

	cfg.OTLPEndpoint = get("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.TraceSampleRatio = 1
	if v := get("TRACE_SAMPLE_RATIO"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r < 0 || r > 1 {
			return nil, fmt.Errorf("invalid TRACE_SAMPLE_RATIO %q: want a number in [0,1]", v)
		}
		cfg.TraceSampleRatio = r
	}
	cfg.ServiceVersion = get("SERVICE_VERSION")
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = DefaultVersion
	}

	return cfg, nil
}

// CredentialCount returns how many distinct credentials the rotator will hold.
func (c *Config) CredentialCount() int {
	n := len(c.APIKeys)
	if c.OAuth != nil {
		n++
	}
	return n
}

// Validate checks the values the bot cannot start without.
func (c *Config) Validate() error {
	if c.CredentialCount() == 0 {
		return fmt.Errorf("require YOUTUBE_API_KEYS, YOUTUBE_API_KEY or YT_CLIENT_ID+YT_REFRESH_TOKEN: %w", ErrNoCredentials)
	}
	if c.ChannelID == "" {
		return ErrMissingChannel
	}
	if c.WebhookURL == "" {
		return ErrMissingWebhook
	}
	return nil
}

func durationEnv(get func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := get(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (duration like 15s): %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// fileConfig is the optional YAML layer. Durations use Go syntax ("15s").
type fileConfig struct {
	ChannelID    string   `yaml:"channel_id"`
	WebhookURL   string   `yaml:"discord_webhook_url"`
	APIKeys      []string `yaml:"youtube_api_keys"`
	APIBaseURL   string   `yaml:"api_base_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RefreshToken string   `yaml:"refresh_token"`
	PollInterval string   `yaml:"poll_interval"`
	ClipPad      string   `yaml:"clip_pad"`
	ClipCooldown string   `yaml:"clip_cooldown"`
	HTTPAddr     string   `yaml:"http_addr"`
	DBDsn        string   `yaml:"db_dsn"`
	OTLPEndpoint string   `yaml:"otlp_endpoint"`
	SampleRatio  string   `yaml:"trace_sample_ratio"`
}

// loadFile reads path and returns its values keyed by the matching env var name.
// An empty path yields an empty map.
func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse CONFIG_FILE %s: %w", path, err)
	}
	return map[string]string{
		"CHANNEL_ID":          fc.ChannelID,
		"DISCORD_WEBHOOK_URL": fc.WebhookURL,
		"YOUTUBE_API_KEYS":    strings.Join(fc.APIKeys, ","),
		"YT_API_BASE_URL":     fc.APIBaseURL,
		"YT_CLIENT_ID":        fc.ClientID,
		"YT_CLIENT_SECRET":    fc.ClientSecret,
		"YT_REFRESH_TOKEN":    fc.RefreshToken,
		"POLL_INTERVAL":       fc.PollInterval,
		"CLIP_PAD":            fc.ClipPad,
		"CLIP_COOLDOWN":       fc.ClipCooldown,
		"HTTP_ADDR":           fc.HTTPAddr,
		"DB_DSN":              fc.DBDsn,

		"OTEL_EXPORTER_OTLP_ENDPOINT": fc.OTLPEndpoint,
		"TRACE_SAMPLE_RATIO":          fc.SampleRatio,
	}, nil
}
