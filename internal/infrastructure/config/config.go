package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Event       EventConfig
	Kafka       KafkaConfig
	HTTP        HTTPConfig
	Scheduler   SchedulerConfig
	Supplier    SupplierConfig
	Pricing     PricingConfig
	Procurement ProcurementConfig
	Sync        SyncConfig
	Storage     StorageConfig
	Connectors  ConnectorsConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        string
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings. With Redis disabled, run
// locks and idempotency keys live in process memory.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// EventConfig holds outbox processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxAttempts      int
	Lease            time.Duration
	BaseBackoff      time.Duration
	MaxBackoff       time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// KafkaConfig holds the outbox relay settings
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	ClientID     string
	WriteTimeout time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
	// MaxBodyBytes caps request bodies
	MaxBodyBytes int64
	// TenantRateLimit is requests per second per tenant, 0 disables it
	TenantRateLimit float64
	TenantBurst     int
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled       bool
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// SyncCron schedules catalog sync of every active supplier
	SyncCron string
	// ProcurementTickCron is how often channel schedules are evaluated
	ProcurementTickCron string
	// StatusPollCron schedules supplier order status polling; "-" disables it
	StatusPollCron string
}

// SupplierConfig holds outbound supplier API settings
type SupplierConfig struct {
	RequestTimeout time.Duration
	RetryAttempts  int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	RateLimit      float64 // requests per second per supplier
	Burst          int
}

// PricingConfig holds the reference currency and the static rate table.
// Rates are units of the reference currency per unit of the keyed currency.
type PricingConfig struct {
	ReferenceCurrency string
	Rates             map[string]string
}

// ProcurementConfig holds orchestration settings
type ProcurementConfig struct {
	AllowPartialReservation bool
	RunLockTTL              time.Duration
}

// SyncConfig holds catalog import settings
type SyncConfig struct {
	PageSize   int
	MaxPages   int
	RunLockTTL time.Duration
	// Locale is the BCP 47 tag used to read supplier numbers, e.g. "ru"
	Locale string
}

// StorageConfig holds the S3 snapshot archive settings
type StorageConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Prefix          string
}

// ConnectorsConfig lists the connector type codes the deployment expects.
// Every code must be known to the connector registry at startup.
type ConnectorsConfig struct {
	Enabled []string
}

// TelemetryConfig holds the OpenTelemetry export settings. Nothing is
// exported unless Enabled is set.
type TelemetryConfig struct {
	Enabled           bool
	ServiceName       string
	CollectorEndpoint string
	Insecure          bool
	// SamplingRatio is the share of root traces kept, 0.0 to 1.0
	SamplingRatio   float64
	MetricsInterval time.Duration
	// DBTracing adds a span per gorm statement
	DBTracing          bool
	SlowQueryThreshold time.Duration
	// ExportLogs mirrors zap records to the collector
	ExportLogs bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CM_ prefix (e.g., CM_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/commerce")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return FromViper(v)
}

// LoadFile loads configuration from an explicit file. An empty path falls
// back to Load.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return FromViper(v)
}

// FromViper builds the configuration from an already populated viper
// instance, layering CM_ environment variables on top.
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("CM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxAttempts:      v.GetInt("event.max_attempts"),
			Lease:            v.GetDuration("event.lease"),
			BaseBackoff:      v.GetDuration("event.base_backoff"),
			MaxBackoff:       v.GetDuration("event.max_backoff"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
			CleanupInterval:  v.GetDuration("event.cleanup_interval"),
		},
		Kafka: KafkaConfig{
			Enabled:      v.GetBool("kafka.enabled"),
			Brokers:      v.GetStringSlice("kafka.brokers"),
			Topic:        v.GetString("kafka.topic"),
			ClientID:     v.GetString("kafka.client_id"),
			WriteTimeout: v.GetDuration("kafka.write_timeout"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxBodyBytes:    v.GetInt64("http.max_body_bytes"),
			TenantRateLimit: v.GetFloat64("http.tenant_rate_limit"),
			TenantBurst:     v.GetInt("http.tenant_burst"),
		},
		Scheduler: SchedulerConfig{
			Enabled:             v.GetBool("scheduler.enabled"),
			Workers:             v.GetInt("scheduler.workers"),
			QueueSize:           v.GetInt("scheduler.queue_size"),
			JobTimeout:          v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:       v.GetInt("scheduler.retry_attempts"),
			RetryDelay:          v.GetDuration("scheduler.retry_delay"),
			SyncCron:            v.GetString("scheduler.sync_cron"),
			ProcurementTickCron: v.GetString("scheduler.procurement_tick_cron"),
			StatusPollCron:      v.GetString("scheduler.status_poll_cron"),
		},
		Supplier: SupplierConfig{
			RequestTimeout: v.GetDuration("supplier.request_timeout"),
			RetryAttempts:  v.GetInt("supplier.retry_attempts"),
			BaseBackoff:    v.GetDuration("supplier.base_backoff"),
			MaxBackoff:     v.GetDuration("supplier.max_backoff"),
			RateLimit:      v.GetFloat64("supplier.rate_limit"),
			Burst:          v.GetInt("supplier.burst"),
		},
		Pricing: PricingConfig{
			ReferenceCurrency: v.GetString("pricing.reference_currency"),
			Rates:             v.GetStringMapString("pricing.rates"),
		},
		Procurement: ProcurementConfig{
			AllowPartialReservation: v.GetBool("procurement.allow_partial_reservation"),
			RunLockTTL:              v.GetDuration("procurement.run_lock_ttl"),
		},
		Sync: SyncConfig{
			PageSize:   v.GetInt("sync.page_size"),
			MaxPages:   v.GetInt("sync.max_pages"),
			RunLockTTL: v.GetDuration("sync.run_lock_ttl"),
			Locale:     v.GetString("sync.locale"),
		},
		Storage: StorageConfig{
			Enabled:         v.GetBool("storage.enabled"),
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			Prefix:          v.GetString("storage.prefix"),
		},
		Connectors: ConnectorsConfig{
			Enabled: v.GetStringSlice("connectors.enabled"),
		},
		Telemetry: TelemetryConfig{
			Enabled:            v.GetBool("telemetry.enabled"),
			ServiceName:        v.GetString("telemetry.service_name"),
			CollectorEndpoint:  v.GetString("telemetry.collector_endpoint"),
			Insecure:           v.GetBool("telemetry.insecure"),
			SamplingRatio:      v.GetFloat64("telemetry.sampling_ratio"),
			MetricsInterval:    v.GetDuration("telemetry.metrics_interval"),
			DBTracing:          v.GetBool("telemetry.db_tracing"),
			SlowQueryThreshold: v.GetDuration("telemetry.slow_query_threshold"),
			ExportLogs:         v.GetBool("telemetry.export_logs"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "commerce-middleware"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "commerce"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "commerce.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 5 * time.Second
	}
	if cfg.Event.MaxAttempts == 0 {
		cfg.Event.MaxAttempts = 8
	}
	if cfg.Event.Lease == 0 {
		cfg.Event.Lease = time.Minute
	}
	if cfg.Event.BaseBackoff == 0 {
		cfg.Event.BaseBackoff = 2 * time.Second
	}
	if cfg.Event.MaxBackoff == 0 {
		cfg.Event.MaxBackoff = 15 * time.Minute
	}
	if cfg.Event.CleanupInterval == 0 {
		cfg.Event.CleanupInterval = time.Hour
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 7 * 24 * time.Hour
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "commerce.domain-events"
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = cfg.App.Name
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 4 << 20
	}
	if cfg.HTTP.TenantBurst == 0 {
		cfg.HTTP.TenantBurst = 20
	}

	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 4
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 100
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = time.Minute
	}
	if cfg.Scheduler.SyncCron == "" {
		cfg.Scheduler.SyncCron = "0 */4 * * *"
	}
	if cfg.Scheduler.ProcurementTickCron == "" {
		cfg.Scheduler.ProcurementTickCron = "* * * * *"
	}
	if cfg.Scheduler.StatusPollCron == "" {
		cfg.Scheduler.StatusPollCron = "*/15 * * * *"
	}

	if cfg.Supplier.RequestTimeout == 0 {
		cfg.Supplier.RequestTimeout = 30 * time.Second
	}
	if cfg.Supplier.RetryAttempts == 0 {
		cfg.Supplier.RetryAttempts = 3
	}
	if cfg.Supplier.BaseBackoff == 0 {
		cfg.Supplier.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.Supplier.MaxBackoff == 0 {
		cfg.Supplier.MaxBackoff = 10 * time.Second
	}
	if cfg.Supplier.RateLimit == 0 {
		cfg.Supplier.RateLimit = 5
	}
	if cfg.Supplier.Burst == 0 {
		cfg.Supplier.Burst = 10
	}

	if cfg.Pricing.ReferenceCurrency == "" {
		cfg.Pricing.ReferenceCurrency = "RUB"
	}
	cfg.Pricing.ReferenceCurrency = strings.ToUpper(cfg.Pricing.ReferenceCurrency)

	if cfg.Procurement.RunLockTTL == 0 {
		cfg.Procurement.RunLockTTL = 15 * time.Minute
	}

	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 500
	}
	if cfg.Sync.MaxPages == 0 {
		cfg.Sync.MaxPages = 10000
	}
	if cfg.Sync.RunLockTTL == 0 {
		cfg.Sync.RunLockTTL = time.Hour
	}
	if cfg.Sync.Locale == "" {
		cfg.Sync.Locale = "ru"
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "supplier-snapshots"
	}

	if len(cfg.Connectors.Enabled) == 0 {
		cfg.Connectors.Enabled = []string{"http_json", "csv_feed"}
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	// zero keeps every trace; there is no "sample nothing" setting
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.SlowQueryThreshold == 0 {
		cfg.Telemetry.SlowQueryThreshold = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %v", c.Telemetry.SamplingRatio)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Scheduler.SyncCron); err != nil {
		return fmt.Errorf("scheduler.sync_cron: %w", err)
	}
	if _, err := parser.Parse(c.Scheduler.ProcurementTickCron); err != nil {
		return fmt.Errorf("scheduler.procurement_tick_cron: %w", err)
	}
	if c.Scheduler.StatusPollCron != "-" {
		if _, err := parser.Parse(c.Scheduler.StatusPollCron); err != nil {
			return fmt.Errorf("scheduler.status_poll_cron: %w", err)
		}
	}

	if c.Supplier.MaxBackoff < c.Supplier.BaseBackoff {
		return fmt.Errorf("supplier.max_backoff cannot be lower than supplier.base_backoff")
	}
	if c.Supplier.RetryAttempts < 1 {
		return fmt.Errorf("supplier.retry_attempts must be at least 1")
	}

	if c.Sync.PageSize <= 0 || c.Sync.PageSize > 1000 {
		return fmt.Errorf("sync.page_size must be between 1 and 1000")
	}
	if _, err := language.Parse(c.Sync.Locale); err != nil {
		return fmt.Errorf("sync.locale: %w", err)
	}

	if len(c.Pricing.ReferenceCurrency) != 3 {
		return fmt.Errorf("pricing.reference_currency must be a 3-letter code")
	}
	for code, rate := range c.Pricing.Rates {
		d, err := decimal.NewFromString(rate)
		if err != nil || !d.IsPositive() {
			return fmt.Errorf("pricing.rates.%s must be a positive number, got %q", code, rate)
		}
	}

	if c.App.Env == "production" {
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("database.driver must be postgres in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if !c.Redis.Enabled {
			return fmt.Errorf("redis must be enabled in production so run locks span instances")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// RateTable parses the configured rates, keyed by upper-cased currency code
func (p *PricingConfig) RateTable() (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(p.Rates))
	for code, raw := range p.Rates {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("rate %s: %w", code, err)
		}
		rates[strings.ToUpper(code)] = d
	}
	return rates, nil
}
