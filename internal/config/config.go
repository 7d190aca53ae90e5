package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"teamdir.dev/internal/view"
)

// Config holds all application configuration
type Config struct {
	ServerAddr string
	DataPath   string
	DataURL    string
	BaseURL    *url.URL
	SessionTTL time.Duration
	View       view.Options
	Log        LogConfig
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string
	File  string
}

// Defaults registers every key with its default value
func Defaults(v *viper.Viper) {
	d := view.DefaultOptions()

	v.SetDefault("server_addr", ":8080")
	v.SetDefault("data_dir", "data")
	v.SetDefault("data_url", "data.json")
	v.SetDefault("base_url", "")
	v.SetDefault("session_ttl", 30*time.Minute)
	v.SetDefault("filters", []string{})
	v.SetDefault("anchors", d.Anchors)
	v.SetDefault("stagger_unit", d.StaggerUnit)
	v.SetDefault("reveal_delay", d.RevealDelay)
	v.SetDefault("hide_delay", d.HideDelay)
	v.SetDefault("press_delay", d.PressDelay)
	v.SetDefault("hidden_offset", d.HiddenOffset)
	v.SetDefault("press_scale", d.PressScale)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// New returns a viper instance with defaults, an optional teamdir.yaml and
// TEAMDIR_* environment overrides wired up
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	Defaults(v)

	v.SetEnvPrefix("teamdir")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// SERVER_ADDR is honoured for compatibility with plain deployments
	if err := v.BindEnv("server_addr", "TEAMDIR_SERVER_ADDR", "SERVER_ADDR"); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("teamdir")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v, nil
}

// Load reads the settings out of v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerAddr: v.GetString("server_addr"),
		DataPath:   v.GetString("data_dir"),
		DataURL:    v.GetString("data_url"),
		SessionTTL: v.GetDuration("session_ttl"),
		View: view.Options{
			StaggerUnit:  v.GetDuration("stagger_unit"),
			RevealDelay:  v.GetDuration("reveal_delay"),
			HideDelay:    v.GetDuration("hide_delay"),
			PressDelay:   v.GetDuration("press_delay"),
			HiddenOffset: v.GetInt("hidden_offset"),
			PressScale:   v.GetFloat64("press_scale"),
			Filters:      v.GetStringSlice("filters"),
			Anchors:      v.GetStringSlice("anchors"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}

	base := v.GetString("base_url")
	if base == "" {
		base = defaultBaseURL(cfg.ServerAddr)
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base_url %q: %w", base, err)
	}
	cfg.BaseURL = u

	if cfg.HideDelayTooShort() {
		return nil, fmt.Errorf("hide_delay (%s) must be at least reveal_delay (%s)", cfg.View.HideDelay, cfg.View.RevealDelay)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session_ttl must be positive, got %s", cfg.SessionTTL)
	}

	return cfg, nil
}

// HideDelayTooShort reports whether a hide could finish before a reveal starts
func (c *Config) HideDelayTooShort() bool {
	return c.View.HideDelay < c.View.RevealDelay
}

// defaultBaseURL points relative data URLs back at this server
func defaultBaseURL(addr string) string {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/"
}
