package config

import (
	"strings"
	"time"
)

// Config is the root configuration of the grocery service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Datastore DatastoreConfig `yaml:"datastore"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Backup    BackupConfig    `yaml:"backup"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"GROCERY_HOST"             env-default:""`
	Port            int           `yaml:"port"             env:"GROCERY_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"GROCERY_READ_TIMEOUT"     env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"GROCERY_WRITE_TIMEOUT"    env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"GROCERY_IDLE_TIMEOUT"     env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"GROCERY_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// Datastore drivers.
const (
	DriverSQLite    = "sqlite"
	DriverPostgres  = "postgres"
	DriverPostgREST = "postgrest"
)

// DefaultTable is the table the migrations create.
const DefaultTable = "grocery_items"

// DatastoreConfig selects and configures the backend holding grocery items.
//
// EndpointURL and Credential are interpreted by the driver: for postgres the
// endpoint is a DSN and the credential overrides its password; for postgrest
// the endpoint is the project URL and the credential is the API key.
//
// Table only applies to postgrest. The sqlite and postgres drivers use the
// table created by their migrations, DefaultTable.
type DatastoreConfig struct {
	Driver          string        `yaml:"driver"             env:"GROCERY_DATASTORE_DRIVER"       env-default:"sqlite"`
	EndpointURL     string        `yaml:"endpoint_url"       env:"GROCERY_DATASTORE_URL"`
	Credential      string        `yaml:"credential"         env:"GROCERY_DATASTORE_CREDENTIAL"`
	Path            string        `yaml:"path"               env:"GROCERY_DB_PATH"                env-default:"grocery.db"`
	Table           string        `yaml:"table"              env:"GROCERY_DATASTORE_TABLE"        env-default:"grocery_items"`
	MaxConns        int32         `yaml:"max_conns"          env:"GROCERY_DATASTORE_MAX_CONNS"    env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"GROCERY_DATASTORE_MIN_CONNS"    env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"GROCERY_DATASTORE_CONN_LIFETIME" env-default:"1h"`
	RequestTimeout  time.Duration `yaml:"request_timeout"    env:"GROCERY_DATASTORE_TIMEOUT"      env-default:"10s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"GROCERY_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"GROCERY_LOG_FORMAT" env-default:"text"`
}

// CORSConfig holds CORS settings. The defaults open the API to every origin.
type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"GROCERY_CORS_ORIGINS" env-default:"*"`
	AllowedMethods string `yaml:"allowed_methods" env:"GROCERY_CORS_METHODS" env-default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders string `yaml:"allowed_headers" env:"GROCERY_CORS_HEADERS" env-default:"Content-Type,Authorization"`
	MaxAge         int    `yaml:"max_age"         env:"GROCERY_CORS_MAX_AGE" env-default:"86400"`
}

// Origins returns the allowed origins. The websocket feed accepts the same
// list as origin patterns.
func (c CORSConfig) Origins() []string { return splitList(c.AllowedOrigins) }

func (c CORSConfig) Methods() []string { return splitList(c.AllowedMethods) }

func (c CORSConfig) Headers() []string { return splitList(c.AllowedHeaders) }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// RealtimeConfig controls the websocket change feed.
type RealtimeConfig struct {
	Enabled bool `yaml:"enabled" env:"GROCERY_REALTIME_ENABLED" env-default:"true"`
}

// RateLimitConfig limits mutating requests per client IP. Zero disables it.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" env:"GROCERY_RATE_LIMIT" env-default:"0"`
}

// BackupConfig holds encrypted snapshot settings. Backups are off unless a
// bucket is set.
type BackupConfig struct {
	Endpoint   string        `yaml:"endpoint"   env:"GROCERY_BACKUP_S3_ENDPOINT"`
	Bucket     string        `yaml:"bucket"     env:"GROCERY_BACKUP_S3_BUCKET"`
	Region     string        `yaml:"region"     env:"GROCERY_BACKUP_S3_REGION"     env-default:"us-east-1"`
	AccessKey  string        `yaml:"access_key" env:"GROCERY_BACKUP_S3_ACCESS_KEY"`
	SecretKey  string        `yaml:"secret_key" env:"GROCERY_BACKUP_S3_SECRET_KEY"`
	Prefix     string        `yaml:"prefix"     env:"GROCERY_BACKUP_PREFIX"        env-default:"grocery"`
	Passphrase string        `yaml:"passphrase" env:"GROCERY_BACKUP_PASSPHRASE"`
	Interval   time.Duration `yaml:"interval"   env:"GROCERY_BACKUP_INTERVAL"      env-default:"24h"`
	Retention  time.Duration `yaml:"retention"  env:"GROCERY_BACKUP_RETENTION"     env-default:"720h"`
}

// Enabled reports whether a bucket is configured.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}
