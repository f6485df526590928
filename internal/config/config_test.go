package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.TenantsFile != "config/tenants.json" {
		t.Errorf("TenantsFile = %q", cfg.TenantsFile)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("logging defaults = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.PaidDebounceWindow != 60*time.Second {
		t.Errorf("PaidDebounceWindow = %v", cfg.PaidDebounceWindow)
	}
	if cfg.TransportTimeout != 5*time.Second {
		t.Errorf("TransportTimeout = %v", cfg.TransportTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.BaseURL != "" || cfg.RedisURL != "" {
		t.Errorf("optional endpoints should default empty: %q %q", cfg.BaseURL, cfg.RedisURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("BASE_URL", "https://bots.example.com")
	t.Setenv("PAID_DEBOUNCE_WINDOW", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("OPERATOR_CHAT_ID", "-1001234567890")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.BaseURL != "https://bots.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.PaidDebounceWindow != 2*time.Minute {
		t.Errorf("PaidDebounceWindow = %v", cfg.PaidDebounceWindow)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.OperatorChatID != -1001234567890 {
		t.Errorf("OperatorChatID = %d", cfg.OperatorChatID)
	}
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 9090}
	if got := cfg.ListenAddr(); got != "127.0.0.1:9090" {
		t.Errorf("ListenAddr() = %q", got)
	}
}
