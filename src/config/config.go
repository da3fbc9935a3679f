package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"quote-broadcaster/src/helpers"
	"quote-broadcaster/src/models"
	"quote-broadcaster/src/quotes"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the YAML file and any .env file.
const (
	EnvPort         = "QB_PORT"
	EnvLogLevel     = "QB_LOG_LEVEL"
	EnvDBType       = "QB_DB_TYPE"
	EnvDBConnection = "QB_DB_CONNECTION_STRING"
	EnvNATSURL      = "QB_NATS_URL"
	EnvRedisAddr    = "QB_REDIS_ADDR"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig loads the YAML file, then .env and QB_* overrides, fills
// defaults and validates.
func NewConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, helpers.NewConfigurationError(fmt.Sprintf("failed to read config file '%s'", configPath), err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, helpers.NewConfigurationError("failed to parse config from YAML", err)
	}

	config := &Config{MConfig: &modelConfig}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, helpers.NewConfigurationError("failed to load .env", err)
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return helpers.NewConfigurationError("invalid "+EnvPort, err)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToUpper(v)
	}
	if v := os.Getenv(EnvDBType); v != "" {
		c.Storage.DBType = v
	}
	if v := os.Getenv(EnvDBConnection); v != "" {
		c.Storage.DBConnectionString = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.Publisher.NATS.URL = v
		c.Publisher.NATS.Enabled = true
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Publisher.Redis.Addr = v
		c.Publisher.Redis.Enabled = true
	}
	return nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "quote-broadcaster"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcHost == "" {
		c.GrpcHost = "127.0.0.1"
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = 50051
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if len(c.Catalog) == 0 {
		c.Catalog = models.DefaultCatalog()
	}

	s := &c.Scheduler
	if s.TickIntervalMs == 0 {
		s.TickIntervalMs = 1000
	}
	if s.ErrorBackoffSeconds == 0 {
		s.ErrorBackoffSeconds = 5
	}
	if s.RetryDelaySeconds == 0 {
		s.RetryDelaySeconds = 30
	}
	if s.IdleTTLMinutes == 0 {
		s.IdleTTLMinutes = 10
	}
	if s.FetchWorkers == 0 {
		s.FetchWorkers = 4
	}
	if s.FetchTimeoutSeconds == 0 {
		s.FetchTimeoutSeconds = 15
	}
	if s.DefaultCadence == "" {
		s.DefaultCadence = string(quotes.Cadence1d)
	}
	if s.SendBufferSize == 0 {
		s.SendBufferSize = 16
	}

	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		c.Storage.DBPath = "stocks.db"
	}

	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Network.MaxRetries == 0 {
		c.Network.MaxRetries = 3
	}

	if len(c.Indices.Symbols) == 0 {
		c.Indices.Symbols = map[string]string{"nifty": "^NSEI", "sensex": "^BSESN"}
	}
	if c.Indices.CacheMinutes == 0 {
		c.Indices.CacheMinutes = 30
	}

	if c.Publisher.QueueSize == 0 {
		c.Publisher.QueueSize = 256
	}
	if c.Publisher.NATS.SubjectPrefix == "" {
		c.Publisher.NATS.SubjectPrefix = "quotes"
	}
	if c.Publisher.NATS.ClientID == "" {
		c.Publisher.NATS.ClientID = c.Name
	}
	if c.Publisher.Redis.ChannelPrefix == "" {
		c.Publisher.Redis.ChannelPrefix = "quotes"
	}

	if c.Jobs.PriceSnapshotMinutes == 0 {
		c.Jobs.PriceSnapshotMinutes = 5
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return helpers.NewConfigurationError("application name cannot be empty", nil)
	}
	if c.Host == "" {
		return helpers.NewConfigurationError("server host cannot be empty", nil)
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return helpers.NewConfigurationError(fmt.Sprintf("invalid server port number: %d (must be between 1025 and 65535)", c.Port), nil)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return helpers.NewConfigurationError(fmt.Sprintf("invalid grpc port number: %d", c.GrpcPort), nil)
	}

	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return helpers.NewConfigurationError("database path cannot be empty for sqlite", nil)
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return helpers.NewConfigurationError("connection string cannot be empty for postgres", nil)
		}
	default:
		return helpers.NewConfigurationError(fmt.Sprintf("unsupported database type %q", c.Storage.DBType), nil)
	}

	if c.Network.RequestTimeout <= 0 {
		return helpers.NewConfigurationError("request timeout must be greater than 0", nil)
	}
	if c.Network.MaxRetries < 0 {
		return helpers.NewConfigurationError("max retries cannot be negative", nil)
	}

	s := c.Scheduler
	if s.TickIntervalMs <= 0 || s.ErrorBackoffSeconds <= 0 || s.FetchWorkers <= 0 || s.FetchTimeoutSeconds <= 0 {
		return helpers.NewConfigurationError("scheduler intervals and worker count must be positive", nil)
	}
	if !quotes.Cadence(s.DefaultCadence).Valid() {
		return helpers.NewConfigurationError(fmt.Sprintf("unknown default cadence %q", s.DefaultCadence), nil)
	}

	seen := make(map[string]bool, len(c.Catalog))
	for i, in := range c.Catalog {
		if strings.TrimSpace(in.Symbol) == "" {
			return helpers.NewConfigurationError(fmt.Sprintf("catalog entry %d must have a symbol", i), nil)
		}
		if seen[in.Symbol] {
			return helpers.NewConfigurationError(fmt.Sprintf("duplicate catalog symbol %q", in.Symbol), nil)
		}
		seen[in.Symbol] = true
	}

	if c.Publisher.NATS.Enabled && c.Publisher.NATS.URL == "" {
		return helpers.NewConfigurationError("nats publisher enabled without url", nil)
	}
	if c.Publisher.Redis.Enabled && c.Publisher.Redis.Addr == "" {
		return helpers.NewConfigurationError("redis publisher enabled without addr", nil)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}
	return nil
}
