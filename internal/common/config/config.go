// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Server   ServerConfig            `mapstructure:"server"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	APIs     APIsConfig              `mapstructure:"apis"`
	Pipeline PipelineConfig          `mapstructure:"pipeline"`
	Audit    AuditConfig             `mapstructure:"audit"`
	Notify   NotificationsConfig     `mapstructure:"notifications"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Tracing  TracingConfig           `mapstructure:"tracing"`
	Registry RegistryConfig          `mapstructure:"registry"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig controls the inbound ask API.
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	APIKey       string `mapstructure:"api_key"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// WorkerConfig holds the core settings applicable to every Zeebe job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// APIsConfig holds settings for the three external capabilities.
type APIsConfig struct {
	GenAI   GenAIConfig   `mapstructure:"genai"`
	SerpAPI SerpAPIConfig `mapstructure:"serpapi"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
}

type GenAIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type SerpAPIConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Engine       string `mapstructure:"engine"`
	Location     string `mapstructure:"location"`
	GoogleDomain string `mapstructure:"google_domain"`
	Country      string `mapstructure:"gl"`
	Language     string `mapstructure:"hl"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
}

type CrawlConfig struct {
	// Backend is "firecrawl" or "local".
	Backend     string `mapstructure:"backend"`
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
	Concurrency int    `mapstructure:"concurrency"`
}

// PipelineConfig tunes the query-processing stages.
type PipelineConfig struct {
	MaxSubQueries      int      `mapstructure:"max_sub_queries"`
	DecomposeAttempts  int      `mapstructure:"decompose_attempts"`
	SearchLimit        int      `mapstructure:"search_limit"`
	ResultsPerQuery    int      `mapstructure:"results_per_query"`
	SearchConcurrency  int      `mapstructure:"search_concurrency"`
	CrawlFormats       []string `mapstructure:"crawl_formats"`
	PollInterval       int      `mapstructure:"poll_interval"` // milliseconds
	MaxPollAttempts    int      `mapstructure:"max_poll_attempts"`
	MaxPollErrors      int      `mapstructure:"max_poll_errors"`
	Timeout            int      `mapstructure:"timeout"` // milliseconds
	ShortCircuitOnFail bool     `mapstructure:"short_circuit_on_decompose_failure"`
}

// AuditConfig controls where pipeline artifacts are persisted.
type AuditConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	RootDir       string `mapstructure:"root_dir"`
	Postgres      bool   `mapstructure:"postgres"`
	Elasticsearch bool   `mapstructure:"elasticsearch"`
}

// NotificationsConfig publishes a run-completed event per query to SNS.
type NotificationsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn"`
	// Endpoint overrides the SNS endpoint (localstack).
	Endpoint string `mapstructure:"endpoint"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig enables the OpenTelemetry tracer. An empty JaegerEndpoint
// keeps spans in-process.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// RegistryConfig points at an optional activity registry override.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}
