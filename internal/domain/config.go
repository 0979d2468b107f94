package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the complete Harrier configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	CaseDB   CaseDBConfig   `yaml:"caseDb"`
	LedgerDB LedgerDBConfig `yaml:"ledgerDb"`
	Cache    CacheConfig    `yaml:"cache"`
	EventBus EventBusConfig `yaml:"eventBus"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`

	// Findings are optional CEL expressions evaluated over the final
	// activity summary; matches become report highlights.
	Findings []FindingConfig `yaml:"findings"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`  // seconds
	WriteTimeout int    `yaml:"writeTimeout"` // seconds
}

// CaseDBConfig holds case store (PostgreSQL) settings. The session is
// always opened read-only; there is no toggle for that.
type CaseDBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode"`

	MaxOpenConns    int `yaml:"maxOpenConns"`
	MaxIdleConns    int `yaml:"maxIdleConns"`
	ConnMaxLifetime int `yaml:"connMaxLifetime"` // seconds
	QueryTimeout    int `yaml:"queryTimeout"`    // seconds, per query
}

// LedgerDBConfig holds ledger archive (SQLite) settings.
type LedgerDBConfig struct {
	Path         string `yaml:"path"`
	QueryTimeout int    `yaml:"queryTimeout"` // seconds, per query
	BatchSize    int    `yaml:"batchSize"`    // rows per fetch page
}

// PipelineConfig holds the investigation business-rule knobs.
type PipelineConfig struct {
	CounterpartyLimit   int `yaml:"counterpartyLimit"`
	CounterpartyWorkers int `yaml:"counterpartyWorkers"`
	DuplicateLimit      int `yaml:"duplicateLimit"`

	DefaultLookbackDays  int `yaml:"defaultLookbackDays"`
	ExtendedLookbackDays int `yaml:"extendedLookbackDays"`
	// ExtendedLookbackRules is the high-risk rule-id allow-list that
	// widens the ledger lookback to the extended window.
	ExtendedLookbackRules []string `yaml:"extendedLookbackRules"`

	// Internal-wallet address heuristic: a crypto transfer is internal iff
	// both addresses match prefix AND suffix. Kept as the historical
	// constants so report output stays stable.
	InternalAddrPrefix string `yaml:"internalAddrPrefix"`
	InternalAddrSuffix string `yaml:"internalAddrSuffix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

// FindingConfig is one configurable report finding.
type FindingConfig struct {
	ID         string `yaml:"id"`
	Severity   string `yaml:"severity"`
	Expression string `yaml:"expression"`
	Message    string `yaml:"message"`
}

// DefaultConfig returns the development defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 60,
		},
		CaseDB: CaseDBConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "amlcase",
			SSLMode:      "disable",
			MaxOpenConns: 8,
			MaxIdleConns: 2,
			QueryTimeout: 30,
		},
		LedgerDB: LedgerDBConfig{
			Path:         "./ledger.db",
			QueryTimeout: 60,
			BatchSize:    5000,
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 256,
			TTLSeconds:   1800,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Pipeline: PipelineConfig{
			CounterpartyLimit:    20,
			CounterpartyWorkers:  5,
			DuplicateLimit:       50,
			DefaultLookbackDays:  90,
			ExtendedLookbackDays: 365,
			InternalAddrPrefix:   "EXW",
			InternalAddrSuffix:   "-INT",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}

// LoadConfig reads a YAML file over the defaults. A missing path returns
// the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
