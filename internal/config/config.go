// Package config loads the search service configuration from the
// environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/utafrali/catalog-search/internal/catalog"
	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/suggest"
	pkgconfig "github.com/utafrali/catalog-search/pkg/config"
	"github.com/utafrali/catalog-search/pkg/validator"
)

// Engine, synonym and reindex source choices.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"

	SynonymsFile  = "file"
	SynonymsRedis = "redis"
	SynonymsNone  = "none"

	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int           `env:"SEARCH_HTTP_PORT" envDefault:"8010"`
	AdminToken         string        `env:"ADMIN_TOKEN"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	SuggestCacheMaxAge time.Duration `env:"SUGGEST_CACHE_MAX_AGE" envDefault:"30s"`
	PprofEnabled       bool          `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAllowedCIDRs  []string      `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`

	// Search engine selection (elasticsearch or memory)
	SearchEngine         string        `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ESHost               string        `env:"ES_HOST" envDefault:"127.0.0.1"`
	ESPort               int           `env:"ES_PORT" envDefault:"9200"`
	ESScheme             string        `env:"ES_SCHEME" envDefault:"http"`
	ESUsername           string        `env:"ES_USERNAME"`
	ESPassword           string        `env:"ES_PASSWORD"`
	EngineRequestTimeout time.Duration `env:"ENGINE_REQUEST_TIMEOUT" envDefault:"10s"`

	// Index description
	IndexNamePrefix  string   `env:"INDEX_NAME_PREFIX" envDefault:"products"`
	IndexDataType    string   `env:"INDEX_DATA_TYPE" envDefault:"product"`
	IndexShards      int      `env:"INDEX_SHARDS" envDefault:"1"`
	IndexReplicas    int      `env:"INDEX_REPLICAS" envDefault:"1"`
	MinScore         float64  `env:"SEARCH_MIN_SCORE" envDefault:"0.6"`
	MaxResults       int      `env:"SEARCH_MAX_RESULTS" envDefault:"100"`
	MandatoryFields  []string `env:"INDEX_MANDATORY_FIELDS" envDefault:"id" envSeparator:","`
	IndexMappingFile string   `env:"INDEX_MAPPING_FILE"`

	// Query side
	Languages            []string `env:"SEARCH_LANGUAGES" envDefault:"de,en,fr" envSeparator:","`
	SuggestFailurePolicy string   `env:"SUGGEST_FAILURE_POLICY" envDefault:"abort"`

	// Analysis inputs
	SynonymsSource   string `env:"SYNONYMS_SOURCE" envDefault:"file"`
	SynonymsFile     string `env:"SYNONYMS_FILE" envDefault:"config/synonyms.txt"`
	SynonymsRedisKey string `env:"SYNONYMS_REDIS_KEY" envDefault:"search:synonyms"`
	RedisAddr        string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`

	// SlowQueryThreshold logs Postgres and Redis calls slower than this.
	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`
	WordListDir      string `env:"WORD_LIST_DIR" envDefault:"analysis"`

	// Reindex
	ReindexSource      string `env:"REINDEX_SOURCE" envDefault:"http"`
	ProductServiceURL  string `env:"PRODUCT_SERVICE_URL" envDefault:"http://localhost:8001"`
	DatabaseURL        string `env:"DATABASE_URL"`
	ReindexPageSize    int    `env:"REINDEX_PAGE_SIZE" envDefault:"100"`
	ReindexConcurrency int    `env:"REINDEX_CONCURRENCY" envDefault:"4"`
	ReindexOnStart     bool   `env:"REINDEX_ON_START" envDefault:"false"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"search-service"`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ElasticsearchURL is the engine address built from ES_SCHEME, ES_HOST and
// ES_PORT.
func (c *Config) ElasticsearchURL() string {
	u := url.URL{Scheme: c.ESScheme, Host: net.JoinHostPort(c.ESHost, strconv.Itoa(c.ESPort))}
	return u.String()
}

// SuggestPolicy returns the parsed SUGGEST_FAILURE_POLICY.
func (c *Config) SuggestPolicy() suggest.Policy {
	p, _ := suggest.ParsePolicy(c.SuggestFailurePolicy)
	return p
}

// IndexConfig builds the index description: the catalog defaults, then the
// environment, then INDEX_MAPPING_FILE when set. Every call returns a new
// value.
func (c *Config) IndexConfig() (*domain.IndexConfig, error) {
	ic := catalog.Default()
	ic.Host = c.ESHost
	ic.Port = c.ESPort
	ic.IndexNamePrefix = c.IndexNamePrefix
	ic.DataTypeName = c.IndexDataType
	ic.ShardCount = c.IndexShards
	ic.ReplicaCount = c.IndexReplicas
	ic.MinScore = c.MinScore
	ic.MaxResults = c.MaxResults
	ic.MandatoryFields = append([]string(nil), c.MandatoryFields...)

	if c.IndexMappingFile != "" {
		if err := pkgconfig.LoadYAML(c.IndexMappingFile, ic); err != nil {
			return nil, err
		}
	}
	if err := ic.Validate(); err != nil {
		return nil, err
	}
	return ic, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.ESPort < 1 || c.ESPort > 65535 {
		return fmt.Errorf("invalid ES_PORT: %d", c.ESPort)
	}
	switch c.SearchEngine {
	case EngineElasticsearch, EngineMemory:
	default:
		return fmt.Errorf("invalid SEARCH_ENGINE %q: must be %s or %s", c.SearchEngine, EngineElasticsearch, EngineMemory)
	}
	switch c.ESScheme {
	case "http", "https":
	default:
		return fmt.Errorf("invalid ES_SCHEME %q", c.ESScheme)
	}
	if c.EngineRequestTimeout <= 0 {
		return fmt.Errorf("ENGINE_REQUEST_TIMEOUT must be positive")
	}
	if err := validator.Var("SEARCH_LANGUAGES", c.Languages, "min=1,dive,alpha,len=2"); err != nil {
		return fmt.Errorf("invalid SEARCH_LANGUAGES: %w", err)
	}
	if _, err := suggest.ParsePolicy(c.SuggestFailurePolicy); err != nil {
		return err
	}
	switch c.SynonymsSource {
	case SynonymsFile, SynonymsRedis, SynonymsNone:
	default:
		return fmt.Errorf("invalid SYNONYMS_SOURCE %q", c.SynonymsSource)
	}
	switch c.ReindexSource {
	case SourceHTTP:
		if _, err := url.ParseRequestURI(c.ProductServiceURL); err != nil {
			return fmt.Errorf("invalid PRODUCT_SERVICE_URL: %w", err)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when REINDEX_SOURCE=%s", SourcePostgres)
		}
	default:
		return fmt.Errorf("invalid REINDEX_SOURCE %q", c.ReindexSource)
	}
	if c.ReindexPageSize < 1 {
		return fmt.Errorf("REINDEX_PAGE_SIZE must be positive")
	}
	if c.ReindexConcurrency < 1 {
		return fmt.Errorf("REINDEX_CONCURRENCY must be positive")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must not be empty when KAFKA_ENABLED is set")
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0 and 1")
	}
	if c.IsProduction() && c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required in production")
	}
	return nil
}
