package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Batch.ChunkSize != 10 {
		t.Errorf("batch.chunk_size = %d, want 10", cfg.Batch.ChunkSize)
	}
	if cfg.Batch.SkipLimit != 10 {
		t.Errorf("batch.skip_limit = %d, want 10", cfg.Batch.SkipLimit)
	}
	if cfg.Batch.ValidateWorkers != 1 {
		t.Errorf("batch.validate_workers = %d, want 1", cfg.Batch.ValidateWorkers)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("database.driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.ConnMaxLifetime != 30*time.Minute {
		t.Errorf("database.conn_max_lifetime = %v, want 30m", cfg.Database.ConnMaxLifetime)
	}
	if cfg.Sinks.ProcessedOrders.Writer != "gorm" {
		t.Errorf("sinks.processed_orders.writer = %q, want gorm", cfg.Sinks.ProcessedOrders.Writer)
	}
	if cfg.Report.Webhook.Timeout != 10*time.Second {
		t.Errorf("report.webhook.timeout = %v, want 10s", cfg.Report.Webhook.Timeout)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "batch:\n  chunk_size: 25\n  skip_limit: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BATCH_SKIP_LIMIT", "7")
	t.Setenv("REPORT_WEBHOOK_URL", "https://hooks.example.com/runs")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Batch.ChunkSize != 25 {
		t.Errorf("batch.chunk_size = %d, want 25", cfg.Batch.ChunkSize)
	}
	if cfg.Batch.SkipLimit != 7 {
		t.Errorf("batch.skip_limit = %d, want env override 7", cfg.Batch.SkipLimit)
	}
	if cfg.Report.Webhook.URL != "https://hooks.example.com/runs" {
		t.Errorf("webhook url = %q, want resolved from env", cfg.Report.Webhook.URL)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestBatchConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BatchConfig
		wantErr bool
	}{
		{name: "defaults", cfg: BatchConfig{ChunkSize: 10, SkipLimit: 10, ValidateWorkers: 1}},
		{name: "zero skip limit", cfg: BatchConfig{ChunkSize: 1, SkipLimit: 0, ValidateWorkers: 1}},
		{name: "zero chunk size", cfg: BatchConfig{ChunkSize: 0, SkipLimit: 10, ValidateWorkers: 1}, wantErr: true},
		{name: "negative skip limit", cfg: BatchConfig{ChunkSize: 10, SkipLimit: -1, ValidateWorkers: 1}, wantErr: true},
		{name: "no workers", cfg: BatchConfig{ChunkSize: 10, SkipLimit: 10}, wantErr: true},
		{name: "utc timezone", cfg: BatchConfig{ChunkSize: 10, SkipLimit: 10, ValidateWorkers: 1, Timezone: "UTC"}},
		{name: "unknown timezone", cfg: BatchConfig{ChunkSize: 10, SkipLimit: 10, ValidateWorkers: 1, Timezone: "Mars/Olympus"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/orders.db"}
	if got := sqlite.DSN(); got != "./data/orders.db" {
		t.Errorf("sqlite DSN = %q", got)
	}

	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p", DBName: "orders"}
	want := "host=db port=5432 user=u password=p dbname=orders sslmode=disable"
	if got := pg.DSN(); got != want {
		t.Errorf("postgres DSN = %q, want %q", got, want)
	}
	if got := pg.PostgresURL(); got != "postgres://u:p@db:5432/orders?sslmode=disable" {
		t.Errorf("postgres URL = %q", got)
	}
}

func TestWebhookValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     WebhookConfig
		wantErr bool
	}{
		{name: "disabled", cfg: WebhookConfig{}},
		{name: "valid", cfg: WebhookConfig{Enabled: true, URL: "https://example.com/hook"}},
		{name: "missing url", cfg: WebhookConfig{Enabled: true, URLEnv: "REPORT_WEBHOOK_URL"}, wantErr: true},
		{name: "bad scheme", cfg: WebhookConfig{Enabled: true, URL: "ftp://example.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestArchiveKey(t *testing.T) {
	a := ArchiveConfig{Prefix: "/reports/"}
	if got := a.Key("run-1"); got != "reports/run-1.json" {
		t.Errorf("Key = %q", got)
	}
	empty := ArchiveConfig{}
	if got := empty.Key("run-1"); got != "run-1.json" {
		t.Errorf("Key = %q", got)
	}
}
