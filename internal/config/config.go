package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Sinks    SinksConfig    `mapstructure:"sinks"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Report   ReportConfig   `mapstructure:"report"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig describes the relational store that hosts both sinks,
// the run records and the chunk execution log.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`   // sqlite only
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
	}
	return c.Path
}

// PostgresURL returns the URL form of the postgres DSN, as accepted by pgxpool.
func (c *DatabaseConfig) PostgresURL() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, sslMode)
}

type SinksConfig struct {
	ProcessedOrders ProcessedOrdersSinkConfig `mapstructure:"processed_orders"`
}

// ProcessedOrdersSinkConfig selects the writer for the processed_orders sink.
// Writer "gorm" shares the main database handle; "pgx" opens a dedicated
// pgx pool (postgres only) against DSN, or the main database when DSN is empty.
type ProcessedOrdersSinkConfig struct {
	Writer string `mapstructure:"writer"`
	DSN    string `mapstructure:"dsn"`
}

// BatchConfig holds the run parameters.
type BatchConfig struct {
	InputPath       string `mapstructure:"input_path"`
	ChunkSize       int    `mapstructure:"chunk_size"`
	SkipLimit       int    `mapstructure:"skip_limit"`
	ValidateWorkers int    `mapstructure:"validate_workers"`
	SampleIfMissing bool   `mapstructure:"sample_if_missing"`
	Timezone        string `mapstructure:"timezone"` // IANA zone for order_date; empty means local time
}

// Location returns the zone order dates are interpreted in.
func (c *BatchConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("batch: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the run parameters.
func (c *BatchConfig) Validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("batch: chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.SkipLimit < 0 {
		return fmt.Errorf("batch: skip_limit must not be negative, got %d", c.SkipLimit)
	}
	if c.ValidateWorkers < 1 {
		return fmt.Errorf("batch: validate_workers must be positive, got %d", c.ValidateWorkers)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // r2, s3, s3compatible; detected from endpoint when empty
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/orders.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "orders")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("sinks.processed_orders.writer", "gorm")
	v.SetDefault("sinks.processed_orders.dsn", "")
	v.SetDefault("batch.input_path", "./data/orders.csv")
	v.SetDefault("batch.chunk_size", 10)
	v.SetDefault("batch.skip_limit", 10)
	v.SetDefault("batch.validate_workers", 1)
	v.SetDefault("batch.sample_if_missing", false)
	v.SetDefault("batch.timezone", "")
	v.SetDefault("report.output_dir", "./data/reports")
	v.SetDefault("report.webhook.enabled", false)
	v.SetDefault("report.webhook.url", "")
	v.SetDefault("report.webhook.url_env", "REPORT_WEBHOOK_URL")
	v.SetDefault("report.webhook.timeout", "10s")
	v.SetDefault("report.archive.enabled", false)
	v.SetDefault("report.archive.prefix", "reports")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "orderbatch")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("sinks.processed_orders.dsn", "PROCESSED_ORDERS_DSN")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Report.Webhook.ResolveEnvVars()

	return &cfg, nil
}
