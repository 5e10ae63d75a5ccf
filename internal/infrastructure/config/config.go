package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sink names accepted in report.sinks
const (
	SinkCSV      = "csv"
	SinkPostgres = "postgres"
	SinkS3       = "s3"
)

// EnvFiles are loaded, in order, before the environment is read. Variables
// that are already set are never overridden, so .env.local wins over .env.
var EnvFiles = []string{".env.local", ".env"}

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Magento   MagentoConfig
	Report    ReportConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string `validate:"required"`
	Env      string `validate:"oneof=development testing staging production"`
	Timezone string `validate:"required"`
}

// MagentoConfig holds the Magento REST API connection settings. The base
// URL and credentials are checked when a run starts, not at load time, so
// the HTTP surface can come up without them.
type MagentoConfig struct {
	BaseURL           string `validate:"omitempty,url"`
	StoreCode         string
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
	BasicUser         string
	BasicPassword     string
	AllowBasicAuth    bool
	Timeout           time.Duration `validate:"gt=0"`
	MaxAttempts       int           `validate:"min=1,max=20"`
	InitialBackoff    time.Duration `validate:"gte=0"`
	MaxBackoff        time.Duration `validate:"gte=0"`
	RequestsPerSecond float64       `validate:"gte=0"`
}

// ReportConfig holds report pipeline settings
type ReportConfig struct {
	Directory string   `validate:"required"`
	Delimiter string   `validate:"required"`
	PageSize  int      `validate:"min=1,max=500"`
	MaxPages  int      `validate:"min=1"`
	Sinks     []string `validate:"min=1,dive,oneof=csv postgres s3"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int    // in minutes
	ConnMaxIdleTime int    // in minutes
	LogLevel        string `validate:"oneof=silent error warn info debug"`
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string `validate:"omitempty,url"`
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	UsePathStyle    bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
	Output string // stdout, stderr, or file path
	File   string // optional second destination, always at debug level
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr           string `validate:"required"`
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 `validate:"gte=0,lte=1"`
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
	DBTraceEnabled    bool
	DBLogFullSQL      bool
}

// magentoEnv maps config keys to the variable names used by existing
// deployments of the report script.
var magentoEnv = map[string]string{
	"magento.base_url":            "MAGENTO_BASE_URL",
	"magento.store_code":          "MAGENTO_STORE_CODE",
	"magento.consumer_key":        "MAGENTO_CONSUMER_KEY",
	"magento.consumer_secret":     "MAGENTO_CONSUMER_SECRET",
	"magento.access_token":        "MAGENTO_ACCESS_TOKEN",
	"magento.access_token_secret": "MAGENTO_ACCESS_TOKEN_SECRET",
	"magento.basic_user":          "MAGENTO_BASIC_USER",
	"magento.basic_password":      "MAGENTO_BASIC_PASS",
}

// Load loads configuration from .env files, an optional TOML file and
// environment variables.
// Priority (highest to lowest):
// 1. Environment variables with SALESREPORT_ prefix (e.g., SALESREPORT_REPORT_PAGE_SIZE)
// 2. MAGENTO_* variables for the Magento connection
// 3. .env.local, then .env
// 4. salesreport.toml
// 5. Built-in defaults
func Load() (*Config, error) {
	if err := loadEnvFiles(EnvFiles...); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("salesreport")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/salesreport")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SALESREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range magentoEnv {
		envKey := "SALESREPORT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Timezone: v.GetString("app.timezone"),
		},
		Magento: MagentoConfig{
			BaseURL:           v.GetString("magento.base_url"),
			StoreCode:         v.GetString("magento.store_code"),
			ConsumerKey:       v.GetString("magento.consumer_key"),
			ConsumerSecret:    v.GetString("magento.consumer_secret"),
			AccessToken:       v.GetString("magento.access_token"),
			AccessTokenSecret: v.GetString("magento.access_token_secret"),
			BasicUser:         v.GetString("magento.basic_user"),
			BasicPassword:     v.GetString("magento.basic_password"),
			AllowBasicAuth:    v.GetBool("magento.allow_basic_auth"),
			Timeout:           v.GetDuration("magento.timeout"),
			MaxAttempts:       v.GetInt("magento.max_attempts"),
			InitialBackoff:    v.GetDuration("magento.initial_backoff"),
			MaxBackoff:        v.GetDuration("magento.max_backoff"),
			RequestsPerSecond: v.GetFloat64("magento.requests_per_second"),
		},
		Report: ReportConfig{
			Directory: v.GetString("report.directory"),
			Delimiter: v.GetString("report.delimiter"),
			PageSize:  v.GetInt("report.page_size"),
			MaxPages:  v.GetInt("report.max_pages"),
			Sinks:     splitList(v.GetStringSlice("report.sinks")),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Storage: StorageConfig{
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			Prefix:          v.GetString("storage.prefix"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
			File:   v.GetString("log.file"),
		},
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFiles loads each file that exists, without overriding variables
// already present in the environment.
func loadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// splitList accepts both TOML arrays and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, strings.ToLower(part))
			}
		}
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "salesreport"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "America/Sao_Paulo"
	}
	if cfg.Magento.StoreCode == "" {
		cfg.Magento.StoreCode = "default"
	}
	if cfg.Magento.Timeout == 0 {
		cfg.Magento.Timeout = 60 * time.Second
	}
	if cfg.Magento.MaxAttempts == 0 {
		cfg.Magento.MaxAttempts = 5
	}
	if cfg.Magento.InitialBackoff == 0 {
		cfg.Magento.InitialBackoff = time.Second
	}
	if cfg.Magento.MaxBackoff == 0 {
		cfg.Magento.MaxBackoff = 30 * time.Second
	}
	if cfg.Report.Directory == "" {
		cfg.Report.Directory = "reports"
	}
	if cfg.Report.Delimiter == "" {
		cfg.Report.Delimiter = ","
	}
	if cfg.Report.PageSize == 0 {
		cfg.Report.PageSize = 100
	}
	if cfg.Report.MaxPages == 0 {
		cfg.Report.MaxPages = 1000
	}
	if len(cfg.Report.Sinks) == 0 {
		cfg.Report.Sinks = []string{SinkCSV}
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
		cfg.Database.DBName = "salesreport"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "reports"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "logs/relatorio_vendas.log"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// a full-month report can take minutes
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.HasSink(SinkS3) && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when report.sinks contains %q", SinkS3)
	}

	if c.IsProduction() {
		if c.Magento.AllowBasicAuth {
			return fmt.Errorf("magento.allow_basic_auth must be false in production")
		}
		if c.HasSink(SinkPostgres) && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	return nil
}

// IsProduction reports whether app.env is production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Location resolves the report time zone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.App.Timezone)
}

// HasSink reports whether name is among the configured sinks
func (c *Config) HasSink(name string) bool {
	return slices.Contains(c.Report.Sinks, name)
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
