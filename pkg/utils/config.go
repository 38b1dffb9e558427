package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTDuration    time.Duration
	BootstrapToken string // required to register staff once a user exists
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("MANUALHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("MANUALHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "manualhub"
	}

	duration := 24 * time.Hour
	if ttl := os.Getenv("MANUALHUB_JWT_TTL_HOURS"); ttl != "" {
		if hours, err := strconv.Atoi(ttl); err == nil && hours > 0 {
			duration = time.Duration(hours) * time.Hour
		}
	}

	return AuthConfig{
		JWTSecret:      secret,
		JWTIssuer:      issuer,
		JWTDuration:    duration,
		BootstrapToken: os.Getenv("MANUALHUB_BOOTSTRAP_TOKEN"),
	}
}

type ServerConfig struct {
	HTTPAddr string
	FeedAddr string // TCP activity feed
	LogMode  string // "dev" or "prod"
}

func LoadServerConfig() ServerConfig {
	cfg := ServerConfig{
		HTTPAddr: ":8080",
		FeedAddr: ":7070",
		LogMode:  "dev",
	}
	if v := os.Getenv("MANUALHUB_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("MANUALHUB_FEED_ADDR"); v != "" {
		cfg.FeedAddr = v
	}
	if v := os.Getenv("MANUALHUB_LOG_MODE"); v != "" {
		cfg.LogMode = v
	}
	return cfg
}

type ExternalAPIConfig struct {
	Tokens []string
}

// LoadExternalAPIConfig reads the comma-separated bearer tokens that
// integration clients (ERP, factory systems) authenticate with.
func LoadExternalAPIConfig() ExternalAPIConfig {
	raw := os.Getenv("MANUALHUB_API_TOKENS")
	var tokens []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return ExternalAPIConfig{Tokens: tokens}
}

type RateLimitConfig struct {
	IPRPS   float64
	IPBurst int
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{IPRPS: 5, IPBurst: 20}
	if v := os.Getenv("MANUALHUB_RATE_IP_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.IPRPS = f
		}
	}
	if v := os.Getenv("MANUALHUB_RATE_IP_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.IPBurst = n
		}
	}
	return cfg
}
