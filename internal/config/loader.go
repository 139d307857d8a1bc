// Package config loads service configuration from an optional YAML file and
// the process environment. Environment variables always win over file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DriverSQLite and DriverMemory are the supported storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config captures the runtime configuration of the staffing service.
type Config struct {
	HTTPPort         int
	StorageDriver    string
	SQLiteDSN        string
	ConflictCacheTTL time.Duration
	ShutdownTimeout  time.Duration
}

// fileConfig mirrors Config for the YAML layer. Zero values mean "not set".
type fileConfig struct {
	HTTPPort         int    `yaml:"httpPort"`
	StorageDriver    string `yaml:"storageDriver"`
	SQLiteDSN        string `yaml:"sqliteDsn"`
	ConflictCacheTTL string `yaml:"conflictCacheTtl"`
	ShutdownTimeout  string `yaml:"shutdownTimeout"`
}

// Load resolves configuration in three layers: built-in defaults, then the
// YAML file named by STAFFING_CONFIG_FILE (if any), then STAFFING_* variables.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		StorageDriver:    DriverSQLite,
		SQLiteDSN:        "file:staffing.db",
		ConflictCacheTTL: 30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}

	if path := strings.TrimSpace(os.Getenv("STAFFING_CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("STAFFING_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "STAFFING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if driver := strings.TrimSpace(os.Getenv("STAFFING_STORAGE_DRIVER")); driver != "" {
		cfg.StorageDriver = strings.ToLower(driver)
	}

	if dsn := strings.TrimSpace(os.Getenv("STAFFING_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("STAFFING_CONFLICT_CACHE_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "STAFFING_CONFLICT_CACHE_TTL")
		} else {
			cfg.ConflictCacheTTL = ttl
		}
	}

	if timeoutValue := strings.TrimSpace(os.Getenv("STAFFING_SHUTDOWN_TIMEOUT")); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "STAFFING_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if cfg.StorageDriver != DriverSQLite && cfg.StorageDriver != DriverMemory {
		invalid = append(invalid, "STAFFING_STORAGE_DRIVER")
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("config: invalid values for: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if file.HTTPPort != 0 {
		cfg.HTTPPort = file.HTTPPort
	}
	if file.StorageDriver != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(file.StorageDriver))
	}
	if file.SQLiteDSN != "" {
		cfg.SQLiteDSN = file.SQLiteDSN
	}
	if file.ConflictCacheTTL != "" {
		ttl, err := time.ParseDuration(file.ConflictCacheTTL)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("config: invalid conflictCacheTtl in %s", path)
		}
		cfg.ConflictCacheTTL = ttl
	}
	if file.ShutdownTimeout != "" {
		timeout, err := time.ParseDuration(file.ShutdownTimeout)
		if err != nil || timeout <= 0 {
			return fmt.Errorf("config: invalid shutdownTimeout in %s", path)
		}
		cfg.ShutdownTimeout = timeout
	}

	return nil
}
