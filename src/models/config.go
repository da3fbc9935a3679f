package models

// MConfig Structure
type MConfig struct {
	Name           string           `yaml:"name"`
	Host           string           `yaml:"host"`
	Port           int              `yaml:"port"`
	LogLevel       string           `yaml:"log_level"`
	GrpcHost       string           `yaml:"grpc_host"`
	GrpcPort       int              `yaml:"grpc_port"`
	AllowedOrigins []string         `yaml:"allowed_origins"`
	Scheduler      MSchedulerConfig `yaml:"scheduler"`
	Storage        MStorageConfig   `yaml:"storage"`
	Network        MNetworkConfig   `yaml:"network"`
	Catalog        []MInstrument    `yaml:"catalog"`
	Indices        MIndicesConfig   `yaml:"indices"`
	Publisher      MPublisherConfig `yaml:"publisher"`
	Jobs           MJobsConfig      `yaml:"jobs"`
}

type MSchedulerConfig struct {
	TickIntervalMs      int    `yaml:"tick_interval_ms"`
	ErrorBackoffSeconds int    `yaml:"error_backoff_seconds"`
	RetryDelaySeconds   int    `yaml:"retry_delay_seconds"`
	IdleTTLMinutes      int    `yaml:"idle_ttl_minutes"`
	FetchWorkers        int    `yaml:"fetch_workers"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	DefaultCadence      string `yaml:"default_cadence"`
	SendBufferSize      int    `yaml:"send_buffer_size"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"`
	MaxRetries     int      `yaml:"retries"`
	UserAgent      string   `yaml:"user_agent"`
}

type MIndicesConfig struct {
	Symbols      map[string]string `yaml:"symbols"` // display key -> provider symbol
	CacheMinutes int               `yaml:"cache_minutes"`
}

type MPublisherConfig struct {
	QueueSize int                   `yaml:"queue_size"`
	NATS      MNATSPublisherConfig  `yaml:"nats"`
	Redis     MRedisPublisherConfig `yaml:"redis"`
}

type MNATSPublisherConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	ClientID      string `yaml:"client_id"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type MRedisPublisherConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

type MJobsConfig struct {
	PriceSnapshotMinutes int `yaml:"price_snapshot_minutes"`
}
