// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"flagpost/internal/report"
)

// Backend selects the persistence layer.
type Backend string

const (
	BackendBolt   Backend = "bolt"
	BackendSQLite Backend = "sqlite"
)

// Config holds the fully resolved server configuration.
type Config struct {
	Port      string
	PublicURL string

	Backend Backend
	DBPath  string

	AutoMod    report.AutoModerationConfig
	Visibility report.VisibilityConfig

	// ModeratorsPath points at the moderator roles JSON file. Empty
	// disables permission checks entirely.
	ModeratorsPath string

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPFrom   string
	AdminEmail string

	TracingEndpoint string
}

// Error represents a configuration validation error.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in " + e.Field + ": " + e.Message
}

// Load reads configuration from FLAGPOST_* environment variables, applying
// defaults where unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      envOr("FLAGPOST_PORT", "8480"),
		PublicURL: os.Getenv("FLAGPOST_PUBLIC_URL"),
		Backend:   Backend(envOr("FLAGPOST_BACKEND", string(BackendBolt))),
		DBPath:    os.Getenv("FLAGPOST_DB_PATH"),
		AutoMod: report.AutoModerationConfig{
			Enabled:    envOr("FLAGPOST_AUTO_HIDE", "true") == "true",
			MinReports: envInt("FLAGPOST_MIN_REPORTS", 3),
		},
		Visibility: report.VisibilityConfig{
			MakePrivate: os.Getenv("FLAGPOST_MAKE_PRIVATE") == "true",
		},
		ModeratorsPath:  os.Getenv("FLAGPOST_MODERATORS_PATH"),
		SMTPHost:        os.Getenv("FLAGPOST_SMTP_HOST"),
		SMTPPort:        envInt("FLAGPOST_SMTP_PORT", 587),
		SMTPUser:        os.Getenv("FLAGPOST_SMTP_USER"),
		SMTPPass:        os.Getenv("FLAGPOST_SMTP_PASS"),
		SMTPFrom:        os.Getenv("FLAGPOST_SMTP_FROM"),
		AdminEmail:      os.Getenv("FLAGPOST_ADMIN_EMAIL"),
		TracingEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	switch cfg.Backend {
	case BackendBolt, BackendSQLite:
	default:
		return nil, &Error{Field: "FLAGPOST_BACKEND", Message: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}

	if cfg.AutoMod.MinReports < 1 {
		cfg.AutoMod.MinReports = 1
	}

	if cfg.DBPath == "" {
		path, err := defaultDBPath(cfg.Backend)
		if err != nil {
			return nil, err
		}
		cfg.DBPath = path
	}

	return cfg, nil
}

// defaultDBPath resolves the XDG data directory, falling back to the home
// directory. This avoids writes to read-only install locations.
func defaultDBPath(backend Backend) (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	name := "flagpost.db"
	if backend == BackendSQLite {
		name = "flagpost.sqlite"
	}
	return filepath.Join(dataDir, "flagpost", name), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
