package web

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultListenAddr        = ":8080"
	defaultAllowedOrigin     = "http://localhost:8080"
	defaultSessionCookieName = "hotelbook_session"
	defaultAdminIssuer       = "tauth"
	defaultAdminCookieName   = "app_session"
	defaultAdminRole         = "admin"
	defaultRequestTimeout    = 10 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
	homeHotelLimit           = 6
)

// Config aggregates runtime settings for the HTTP server.
type Config struct {
	ListenAddr        string
	AllowedOrigins    []string
	SessionCookieName string
	SecureCookies     bool
	AdminSigningKey   string
	AdminIssuer       string
	AdminCookieName   string
	AdminRole         string
	RequestTimeout    time.Duration
}

// Validate fills defaults and rejects missing required values.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	cfg.SessionCookieName = defaultIfEmpty(cfg.SessionCookieName, defaultSessionCookieName)
	cfg.AdminIssuer = defaultIfEmpty(cfg.AdminIssuer, defaultAdminIssuer)
	cfg.AdminCookieName = defaultIfEmpty(cfg.AdminCookieName, defaultAdminCookieName)
	cfg.AdminRole = defaultIfEmpty(cfg.AdminRole, defaultAdminRole)
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if len(cfg.AdminSigningKey) == 0 {
		return fmt.Errorf("admin jwt signing key is required")
	}
	if cfg.SessionCookieName == cfg.AdminCookieName {
		return fmt.Errorf("session cookie and admin cookie must differ")
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
