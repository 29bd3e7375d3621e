package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aydarnuman/procheff-v3-sub001/pkg/db"
	"github.com/aydarnuman/procheff-v3-sub001/pkg/eventlog"
)

// Config represents the main configuration structure
type Config struct {
	Database   DatabaseConfig  `yaml:"database"`
	Migrations MigrationConfig `yaml:"migrations,omitempty"`
	DataPool   DataPoolConfig  `yaml:"data_pool,omitempty"`
	Audit      AuditConfig     `yaml:"audit,omitempty"`
	Redis      RedisConfig     `yaml:"redis,omitempty"`
}

// DatabaseConfig contains backend mode and per-engine settings
type DatabaseConfig struct {
	Mode string `yaml:"mode"` // embedded, server, dual

	// Embedded engine (SQLite file path)
	Path string `yaml:"path,omitempty"`

	// Server engine (PostgreSQL)
	Host           string `yaml:"host,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Database       string `yaml:"database,omitempty"`
	User           string `yaml:"user,omitempty"`
	Password       string `yaml:"password,omitempty"`
	SSLMode        string `yaml:"sslmode,omitempty"`
	RequireTLS     bool   `yaml:"require_tls,omitempty"`
	MaxConns       int    `yaml:"max_conns,omitempty"`
	MinConns       int    `yaml:"min_conns,omitempty"`
	IdleTimeoutSec int    `yaml:"idle_timeout_sec,omitempty"`
	AcquireMS      int    `yaml:"acquire_timeout_ms,omitempty"`
}

// MigrationConfig contains migration runner settings
type MigrationConfig struct {
	Dir       string `yaml:"dir,omitempty"`        // SQL script directory
	BackupDir string `yaml:"backup_dir,omitempty"` // embedded file backups
}

// DataPoolConfig contains cache settings
type DataPoolConfig struct {
	TTLHours int `yaml:"ttl_hours,omitempty"` // default entry lifetime
}

// AuditConfig for audit logging settings
type AuditConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Level    string `yaml:"level"` // minimal, standard, full
	File     string `yaml:"file,omitempty"`
	MaxSize  int64  `yaml:"max_size_mb,omitempty"`
	Console  bool   `yaml:"console,omitempty"`
	Database bool   `yaml:"database,omitempty"` // persist to audit_log table
}

// RedisConfig for analysis event publishing
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	TTL      int    `yaml:"ttl,omitempty"`
}

// LoadConfig loads configuration from YAML file and applies
// environment overrides
func LoadConfig(filename string) (*Config, error) {
	config := &Config{}

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(config)

	if config.Database.Mode == "" {
		config.Database.Mode = "embedded"
	}
	if config.Database.Path == "" {
		config.Database.Path = "./data/procheff.db"
	}
	if config.Migrations.Dir == "" {
		config.Migrations.Dir = "./migrations"
	}
	if config.Migrations.BackupDir == "" {
		config.Migrations.BackupDir = "./data/backups"
	}
	if config.DataPool.TTLHours <= 0 {
		config.DataPool.TTLHours = 24
	}

	return config, nil
}

// applyEnvOverrides lets environment variables win over file values
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PROCHEFF_DB_MODE"); v != "" {
		config.Database.Mode = v
	}
	if v := os.Getenv("PROCHEFF_DB_PATH"); v != "" {
		config.Database.Path = v
	}
	if v := os.Getenv("PROCHEFF_PG_HOST"); v != "" {
		config.Database.Host = v
	}
	if v := os.Getenv("PROCHEFF_PG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Database.Port = port
		}
	}
	if v := os.Getenv("PROCHEFF_PG_DATABASE"); v != "" {
		config.Database.Database = v
	}
	if v := os.Getenv("PROCHEFF_PG_USER"); v != "" {
		config.Database.User = v
	}
	if v := os.Getenv("PROCHEFF_PG_PASSWORD"); v != "" {
		config.Database.Password = v
	}
	if v := os.Getenv("PROCHEFF_REDIS_ADDRESS"); v != "" {
		config.Redis.Enabled = true
		config.Redis.Address = v
	}
}

// BuildServerDSN assembles a PostgreSQL connection string
func (c *DatabaseConfig) BuildServerDSN() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, host, port, c.Database, sslMode)
}

// BuildUniversalConfig maps file/env configuration onto the adapter
// configuration
func (c *Config) BuildUniversalConfig() db.UniversalConfig {
	idleTimeout := time.Duration(c.Database.IdleTimeoutSec) * time.Second
	acquireTimeout := time.Duration(c.Database.AcquireMS) * time.Millisecond

	return db.UniversalConfig{
		Mode: db.Mode(c.Database.Mode),
		Embedded: db.Config{
			Type: "sqlite",
			DSN:  c.Database.Path,
		},
		Server: db.Config{
			Type:           "postgres",
			DSN:            c.Database.BuildServerDSN(),
			MaxConns:       c.Database.MaxConns,
			MinConns:       c.Database.MinConns,
			IdleTimeout:    idleTimeout,
			AcquireTimeout: acquireTimeout,
			RequireTLS:     c.Database.RequireTLS,
		},
	}
}

// BuildRedisConfig maps Redis settings onto the publisher configuration
func (c *Config) BuildRedisConfig() eventlog.Config {
	return eventlog.Config{
		Address:  c.Redis.Address,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TTL:      c.Redis.TTL,
	}
}

// SaveConfig saves configuration to YAML file
func SaveConfig(filename string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateSampleConfig creates a sample configuration for the given mode
func CreateSampleConfig(mode string) *Config {
	config := &Config{
		Database: DatabaseConfig{
			Mode: mode,
			Path: "./data/procheff.db",
		},
		Migrations: MigrationConfig{
			Dir:       "./migrations",
			BackupDir: "./data/backups",
		},
		DataPool: DataPoolConfig{TTLHours: 24},
		Audit: AuditConfig{
			Enabled: true,
			Level:   "standard",
			Console: true,
		},
	}

	if mode == "server" || mode == "dual" {
		config.Database.Host = "localhost"
		config.Database.Port = 5432
		config.Database.Database = "procheff"
		config.Database.User = "procheff"
		config.Database.Password = "secret"
		config.Database.MaxConns = 20
		config.Database.MinConns = 2
		config.Database.IdleTimeoutSec = 30
		config.Database.AcquireMS = 2000
	}

	return config
}
