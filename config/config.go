package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppName            string `envconfig:"APP_NAME" default:"clover-etl" validate:"required"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	PrettyLogs         bool   `envconfig:"PRETTY_LOGS" default:"false"`
	StartupMaxAttempts int    `envconfig:"STARTUP_MAX_ATTEMPTS" default:"5" validate:"min=1"`

	// Full connection string; takes precedence over the DB_* parts below
	DatabaseURL string `envconfig:"DATABASE_URL"`
	// Database host
	DatabaseHost string `envconfig:"DB_HOST" default:""`
	// Database port
	DatabasePort string `envconfig:"DB_PORT" default:"5432"`
	// Database user
	DatabaseUserName string `envconfig:"DB_USER_NAME" default:""`
	// Database user password
	DatabasePassword string `envconfig:"DB_PASSWORD" default:""`
	// Database name
	DatabaseName string `envconfig:"DB_NAME" default:"clover"`
	// Database SSL mode
	DatabaseSSLMode string `envconfig:"DB_SSL_MODE" default:"disable"`
	// Max Open Conns
	DatabaseMaxOpenConns int `envconfig:"DB_MAX_OPEN_CONNS" default:"5"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	// Apply migrations before loading
	DatabaseMigrateOnStart bool `envconfig:"DB_MIGRATE_ON_START" default:"true"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `envconfig:"DB_MIGRATION_FOLDER_PATH" default:"db/pg"`
	// Database Migration Version
	DatabaseMigrationVersion uint `envconfig:"DB_MIGRATION_VERSION" default:"0"`
	// Database Migration Force
	DatabaseMigrationForce int `envconfig:"DB_MIGRATION_FORCE" default:"0"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `envconfig:"DB_MIGRATION_AUTO_ROLLBACK" default:"true"`

	// Partner/channel label passed to the plans endpoint
	Group string `envconfig:"GROUP" default:"default" validate:"required"`
	// Metro -> ZIP membership file
	MetrosPath string `envconfig:"METROS_PATH" default:"metros.json" validate:"required"`

	ZipLookupURL     string        `envconfig:"ZIP_LOOKUP_URL" default:"https://comparepower.com/wp-admin/admin-ajax.php" validate:"required,url"`
	PlansURL         string        `envconfig:"PLANS_URL" default:"https://pricing.api.comparepower.com/api/plans/current" validate:"required,url"`
	UserAgent        string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (compatible; ComparePowerETL/1.0)"`
	ZipLookupTimeout time.Duration `envconfig:"ZIP_LOOKUP_TIMEOUT" default:"30s" validate:"gt=0"`
	PlansTimeout     time.Duration `envconfig:"PLANS_TIMEOUT" default:"60s" validate:"gt=0"`
	ZipLookupDelay   time.Duration `envconfig:"ZIP_LOOKUP_DELAY" default:"150ms" validate:"gte=0"`
	PlansDelay       time.Duration `envconfig:"PLANS_DELAY" default:"250ms" validate:"gte=0"`
	// Region code for utilities first seen through plan data
	DefaultState string `envconfig:"DEFAULT_STATE" default:"TX" validate:"required"`

	// Redis run lock
	RedisEnabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	RunLockTTL    time.Duration `envconfig:"RUN_LOCK_TTL" default:"30m" validate:"gt=0"`

	// Kafka run events
	KafkaEnabled  bool   `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers  string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaRunTopic string `envconfig:"KAFKA_RUN_TOPIC" default:"plan-sync-runs"`

	// Prometheus Pushgateway; metrics are not pushed when empty
	MetricsPushgatewayURL string `envconfig:"METRICS_PUSHGATEWAY_URL" default:"" validate:"omitempty,url"`
	MetricsJobName        string `envconfig:"METRICS_JOB_NAME" default:"clover_etl"`

	// Enable OTLP tracing export
	OTLPEnabled bool `envconfig:"OTLP_ENABLED" default:"false"`
	// OTLP collector endpoint
	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT" default:"localhost:4317"`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `envconfig:"OTLP_PROTOCOL" default:"grpc" validate:"oneof=grpc http"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `envconfig:"OTLP_INSECURE" default:"true"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.DSN() == "" {
		return fmt.Errorf("invalid configuration: DATABASE_URL or DB_HOST is required")
	}
	return nil
}

// DSN returns the database connection string.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DatabaseHost == "" {
		return ""
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%s", c.DatabaseHost, c.DatabasePort),
		Path:     "/" + c.DatabaseName,
		RawQuery: url.Values{"sslmode": []string{c.DatabaseSSLMode}}.Encode(),
	}
	if c.DatabaseUserName != "" {
		u.User = url.UserPassword(c.DatabaseUserName, c.DatabasePassword)
	}
	return u.String()
}

// DatabaseNameFromDSN returns the database name the migrations should target.
func (c *Config) DatabaseNameFromDSN() string {
	if c.DatabaseURL == "" {
		return c.DatabaseName
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil || len(u.Path) <= 1 {
		return c.DatabaseName
	}
	return u.Path[1:]
}
