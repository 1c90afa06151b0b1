package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Datastore.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Datastore.Path) == "" {
			errs = append(errs, errors.New("datastore.path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Datastore.EndpointURL == "" {
			errs = append(errs, errors.New("datastore.endpoint_url is required for the postgres driver"))
		}
		if c.Datastore.MinConns > c.Datastore.MaxConns {
			errs = append(errs, fmt.Errorf("datastore.min_conns (%d) exceeds max_conns (%d)", c.Datastore.MinConns, c.Datastore.MaxConns))
		}
	case DriverPostgREST:
		if c.Datastore.EndpointURL == "" {
			errs = append(errs, errors.New("datastore.endpoint_url is required for the postgrest driver"))
		}
		if c.Datastore.Credential == "" {
			errs = append(errs, errors.New("datastore.credential is required for the postgrest driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("datastore.driver %q is not one of sqlite, postgres, postgrest", c.Datastore.Driver))
	}

	if c.Datastore.Driver != DriverPostgREST && c.Datastore.Table != "" && c.Datastore.Table != DefaultTable {
		errs = append(errs, fmt.Errorf("datastore.table can only be changed for the postgrest driver; %s uses %q", c.Datastore.Driver, DefaultTable))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_minute must not be negative"))
	}

	if c.Backup.Enabled() {
		if c.Backup.AccessKey == "" || c.Backup.SecretKey == "" {
			errs = append(errs, errors.New("backup.access_key and backup.secret_key are required when backup.bucket is set"))
		}
		if len(c.Backup.Passphrase) < 8 {
			errs = append(errs, errors.New("backup.passphrase must be at least 8 characters when backup.bucket is set"))
		}
		if c.Backup.Interval < 0 || c.Backup.Retention < 0 {
			errs = append(errs, errors.New("backup.interval and backup.retention must not be negative"))
		}
	}

	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
