// Package config loads the pipeline's environment-variable configuration,
// mirroring the corpus's database.Config.LoadFromEnv style: typed defaults,
// parsed directly from os.Getenv, invalid values silently retained.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Tier is the pipeline cost/quality tier (spec.md Glossary).
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

func (t Tier) Valid() bool {
	switch t {
	case TierA, TierB, TierC:
		return true
	default:
		return false
	}
}

// Config holds the env vars enumerated in spec.md §6. The yaml tags let an
// operator seed these same fields from a config file (LoadFromFile) ahead
// of the environment-variable overlay.
type Config struct {
	DatabaseURL string `yaml:"database_url" validate:"required"`

	PipelineTier Tier `yaml:"pipeline_tier" validate:"required"`

	MaxConcurrentFetches int     `yaml:"max_concurrent_fetches" validate:"gt=0"`
	PerDomainConcurrency int     `yaml:"per_domain_concurrency" validate:"gt=0"`
	FetchTimeoutSeconds  int     `yaml:"fetch_timeout_seconds" validate:"gt=0"`
	RequestDelaySeconds  float64 `yaml:"request_delay_seconds" validate:"gte=0"`

	MinContentLength int `yaml:"min_content_length" validate:"gt=0"`

	MinHashNumPerm      int     `yaml:"minhash_num_perm" validate:"gt=0"`
	MinHashThreshold    float64 `yaml:"minhash_threshold" validate:"gt=0,lte=1"`
	ClusterKNNK         int     `yaml:"cluster_knn_k" validate:"gt=0"`
	ClusterCosThreshold float64 `yaml:"cluster_cosine_threshold" validate:"gt=0,lte=1"`

	EmbeddingModel     string `yaml:"embedding_model" validate:"required"`
	EmbeddingDimension int    `yaml:"embedding_dimension" validate:"gt=0"`

	LLMRPMLimit        int    `yaml:"llm_rpm_limit" validate:"gt=0"`
	LLMSummarizeBatch  int    `yaml:"llm_summarize_batch_size" validate:"gt=0"`
	LLMProvider        string `yaml:"llm_provider" validate:"required,oneof=anthropic bedrock"`
	LLMModel           string `yaml:"llm_model" validate:"required"`
	LLMMaxPromptChars  int    `yaml:"llm_max_prompt_chars" validate:"gt=0"`
	AnthropicAPIKey    string `yaml:"anthropic_api_key"`
	AWSRegion          string `yaml:"aws_region"`
	PipelineAPIKey     string `yaml:"pipeline_api_key"`
	RailwayEnvironment string `yaml:"railway_environment"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns spec-mandated (or, where spec.md is silent,
// masx-geosignal-sourced; see SPEC_FULL.md §C) default values.
func DefaultConfig() *Config {
	return &Config{
		PipelineTier: TierA,

		MaxConcurrentFetches: 50,
		PerDomainConcurrency: 3,
		FetchTimeoutSeconds:  30,
		RequestDelaySeconds:  0.25,

		MinContentLength: 200,

		MinHashNumPerm:      128,
		MinHashThreshold:    0.8,
		ClusterKNNK:         10,
		ClusterCosThreshold: 0.65,

		EmbeddingModel:     "all-MiniLM-L6-v2",
		EmbeddingDimension: 384,

		LLMRPMLimit:       60,
		LLMSummarizeBatch: 64,
		LLMProvider:       "anthropic",
		LLMModel:          "claude-3-5-haiku-20241022",
		LLMMaxPromptChars: 6000,
		AWSRegion:         "us-east-1",

		RailwayEnvironment: "development",

		LogLevel:  "info",
		LogFormat: "json",
	}
}

// LoadFromEnv overlays recognized environment variables onto c. An
// unparsable numeric value keeps the existing (default) field value rather
// than erroring, matching the corpus's LoadFromEnv behavior.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := Tier(strings.ToUpper(os.Getenv("PIPELINE_TIER"))); v.Valid() {
		c.PipelineTier = v
	}
	if v, ok := getInt("MAX_CONCURRENT_FETCHES"); ok {
		c.MaxConcurrentFetches = v
	}
	if v, ok := getInt("PER_DOMAIN_CONCURRENCY"); ok {
		c.PerDomainConcurrency = v
	}
	if v, ok := getInt("FETCH_TIMEOUT_SECONDS"); ok {
		c.FetchTimeoutSeconds = v
	}
	if v, ok := getFloat("REQUEST_DELAY_SECONDS"); ok {
		c.RequestDelaySeconds = v
	}
	if v, ok := getInt("MIN_CONTENT_LENGTH"); ok {
		c.MinContentLength = v
	}
	if v, ok := getInt("MINHASH_NUM_PERM"); ok {
		c.MinHashNumPerm = v
	}
	if v, ok := getFloat("MINHASH_THRESHOLD"); ok {
		c.MinHashThreshold = v
	}
	if v, ok := getInt("CLUSTER_KNN_K"); ok {
		c.ClusterKNNK = v
	}
	if v, ok := getFloat("CLUSTER_COSINE_THRESHOLD"); ok {
		c.ClusterCosThreshold = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
	if v, ok := getInt("EMBEDDING_DIMENSION"); ok {
		c.EmbeddingDimension = v
	}
	if v, ok := getInt("LLM_RPM_LIMIT"); ok {
		c.LLMRPMLimit = v
	}
	if v, ok := getInt("LLM_SUMMARIZE_BATCH_SIZE"); ok {
		c.LLMSummarizeBatch = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLMProvider = strings.ToLower(v)
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLMModel = v
	}
	if v, ok := getInt("LLM_MAX_PROMPT_CHARS"); ok {
		c.LLMMaxPromptChars = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AnthropicAPIKey = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.AWSRegion = v
	}
	if v := os.Getenv("PIPELINE_API_KEY"); v != "" {
		c.PipelineAPIKey = v
	}
	if v := os.Getenv("RAILWAY_ENVIRONMENT"); v != "" {
		c.RailwayEnvironment = v
	}
}

// LoadFromFile overlays a YAML config file onto c. It is meant to run
// before LoadFromEnv so environment variables still take precedence,
// matching Railway/Docker deployments where a mounted config file supplies
// the baseline and env vars override it per-environment.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func getInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getFloat(name string) (float64, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsProduction reports whether this process is running in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.RailwayEnvironment, "production")
}

// Validate checks struct-level constraints and the production API-key rule
// (spec.md §9: "Missing API key in production is a fatal startup error").
func (c *Config) Validate() error {
	if c.IsProduction() && c.PipelineAPIKey == "" {
		return fmt.Errorf("config: PIPELINE_API_KEY is required when RAILWAY_ENVIRONMENT=production")
	}
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load builds a Config from defaults overlaid with the environment, then
// validates it.
func Load() (*Config, error) {
	c := DefaultConfig()
	if path := os.Getenv("PIPELINE_CONFIG_FILE"); path != "" {
		if err := c.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	c.LoadFromEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FetchTimeout returns the fetch timeout as a time.Duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// RequestDelay returns the polite per-host delay as a time.Duration.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds * float64(time.Second))
}
