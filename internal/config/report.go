package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// ReportConfig controls where end-of-run reports are published. The log
// report is always emitted; the other destinations are optional.
type ReportConfig struct {
	OutputDir string        `mapstructure:"output_dir"` // JSON report directory; empty disables file output
	Webhook   WebhookConfig `mapstructure:"webhook"`
	Archive   ArchiveConfig `mapstructure:"archive"`
}

// WebhookConfig defines an HTTP endpoint that receives the run summary.
type WebhookConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`     // Endpoint URL (can be set directly or via env var)
	URLEnv  string            `mapstructure:"url_env"` // Environment variable name for URL
	Timeout time.Duration     `mapstructure:"timeout"`
	Headers map[string]string `mapstructure:"headers"`
}

// ResolveEnvVars loads URL from URLEnv when URL is not set directly.
func (c *WebhookConfig) ResolveEnvVars() {
	if c.URLEnv != "" && c.URL == "" {
		if val := os.Getenv(c.URLEnv); val != "" {
			c.URL = val
		}
	}
}

// Validate checks an enabled webhook has a usable absolute URL.
// Returns an error describing the first validation failure, or nil if valid.
func (c *WebhookConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("report webhook: url is required (set directly or via %s)", c.URLEnv)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("report webhook: invalid url: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("report webhook: unsupported scheme %q", u.Scheme)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("report webhook: timeout must not be negative")
	}
	return nil
}

// ArchiveConfig enables copying JSON reports to object storage.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// Key returns the object key for a run's report.
func (c *ArchiveConfig) Key(runID string) string {
	prefix := strings.Trim(c.Prefix, "/")
	if prefix == "" {
		return runID + ".json"
	}
	return prefix + "/" + runID + ".json"
}
