// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml
// on top, expands ${VAR} placeholders and fills the remaining gaps from
// well-known environment variables.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setViperDefaults(v)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile looks for a .env in the working directory, its parents and
// the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// setViperDefaults registers defaults that cannot be told apart from an
// explicit zero value after unmarshalling (booleans, slices).
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("audit.enabled", true)
	v.SetDefault("pipeline.short_circuit_on_decompose_failure", true)
	v.SetDefault("pipeline.crawl_formats", []string{"markdown"})
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// overrideEmptyConfig fills secrets from the environment variable names the
// deployment scripts already export.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.APIs.GenAI.APIKey, "GOOGLE_API_KEY", "GENAI_API_KEY")
	setIfEmpty(&cfg.APIs.SerpAPI.APIKey, "SERPAPI_API_KEY", "SERPAI_API_KEY")
	setIfEmpty(&cfg.APIs.Crawl.APIKey, "FIRECRAWL_API_KEY")
	setIfEmpty(&cfg.Server.APIKey, "AGENT_API_KEY")

	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Redis.Address, "REDIS_ADDRESS")
	setIfEmpty(&cfg.Camunda.BrokerAddress, "ZEEBE_ADDRESS")
	setIfEmpty(&cfg.Database.Elasticsearch.Password, "ELASTICSEARCH_PASSWORD")
	setIfEmpty(&cfg.Notify.TopicARN, "SNS_TOPIC_ARN")
}

func setIfEmpty(target *string, envKeys ...string) {
	if *target != "" {
		return
	}
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			*target = val
			return
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "research-workers"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 600000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.CacheTTL == 0 {
		cfg.Database.Redis.CacheTTL = 3600000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	genai := &cfg.APIs.GenAI
	if genai.Model == "" {
		genai.Model = "gemini-2.0-flash"
	}
	if genai.Timeout == 0 {
		genai.Timeout = 60000
	}

	serp := &cfg.APIs.SerpAPI
	if serp.BaseURL == "" {
		serp.BaseURL = "https://serpapi.com"
	}
	if serp.Engine == "" {
		serp.Engine = "google"
	}
	if serp.Location == "" {
		serp.Location = "Delhi, India"
	}
	if serp.GoogleDomain == "" {
		serp.GoogleDomain = "google.co.in"
	}
	if serp.Country == "" {
		serp.Country = "in"
	}
	if serp.Language == "" {
		serp.Language = "en"
	}
	if serp.Timeout == 0 {
		serp.Timeout = 10000
	}

	crawl := &cfg.APIs.Crawl
	if crawl.Backend == "" {
		crawl.Backend = "firecrawl"
	}
	if crawl.BaseURL == "" && crawl.Backend == "firecrawl" {
		crawl.BaseURL = "https://api.firecrawl.dev"
	}
	if crawl.Timeout == 0 {
		crawl.Timeout = 30000
	}
	if crawl.Concurrency == 0 {
		crawl.Concurrency = 4
	}

	p := &cfg.Pipeline
	if p.MaxSubQueries == 0 {
		p.MaxSubQueries = 3
	}
	if p.DecomposeAttempts == 0 {
		p.DecomposeAttempts = 2
	}
	if p.SearchLimit == 0 {
		p.SearchLimit = 5
	}
	if p.ResultsPerQuery == 0 {
		p.ResultsPerQuery = 2
	}
	if p.SearchConcurrency == 0 {
		p.SearchConcurrency = 1
	}
	if len(p.CrawlFormats) == 0 {
		p.CrawlFormats = []string{"markdown"}
	}
	if p.PollInterval == 0 {
		p.PollInterval = 2000
	}
	if p.MaxPollAttempts == 0 {
		p.MaxPollAttempts = 150
	}
	if p.MaxPollErrors == 0 {
		p.MaxPollErrors = 3
	}
	if p.Timeout == 0 {
		p.Timeout = 600000
	}

	if cfg.Audit.RootDir == "" {
		cfg.Audit.RootDir = "."
	}

	es := &cfg.Database.Elasticsearch
	if len(es.Addresses) == 0 {
		es.Addresses = []string{"http://localhost:9200"}
	}
	if es.Index == "" {
		es.Index = "research-audit"
	}

	if cfg.Notify.Region == "" {
		cfg.Notify.Region = "us-east-1"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.APIs.GenAI.APIKey == "" {
		return fmt.Errorf("apis.genai.api_key is required (or GOOGLE_API_KEY)")
	}
	if cfg.APIs.SerpAPI.APIKey == "" {
		return fmt.Errorf("apis.serpapi.api_key is required (or SERPAPI_API_KEY)")
	}

	switch cfg.APIs.Crawl.Backend {
	case "firecrawl":
		if cfg.APIs.Crawl.APIKey == "" {
			return fmt.Errorf("apis.crawl.api_key is required for the firecrawl backend (or FIRECRAWL_API_KEY)")
		}
	case "local":
	default:
		return fmt.Errorf("apis.crawl.backend must be firecrawl or local, got %q", cfg.APIs.Crawl.Backend)
	}

	if cfg.Pipeline.ResultsPerQuery > cfg.Pipeline.SearchLimit {
		return fmt.Errorf("pipeline.results_per_query (%d) cannot exceed pipeline.search_limit (%d)",
			cfg.Pipeline.ResultsPerQuery, cfg.Pipeline.SearchLimit)
	}
	if cfg.Pipeline.MaxSubQueries < 3 {
		return fmt.Errorf("pipeline.max_sub_queries must be at least 3, got %d", cfg.Pipeline.MaxSubQueries)
	}
	if cfg.Pipeline.SearchConcurrency < 1 {
		return fmt.Errorf("pipeline.search_concurrency must be positive")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}
	if cfg.Audit.Postgres && !cfg.Database.Postgres.Enabled {
		return fmt.Errorf("audit.postgres requires database.postgres.enabled")
	}
	if cfg.Audit.Elasticsearch && !cfg.Database.Elasticsearch.Enabled {
		return fmt.Errorf("audit.elasticsearch requires database.elasticsearch.enabled")
	}
	if cfg.Notify.Enabled && cfg.Notify.TopicARN == "" {
		return fmt.Errorf("notifications.topic_arn is required when notifications are enabled")
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
