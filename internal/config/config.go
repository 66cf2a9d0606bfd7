package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the docqa API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Upload    UploadConfig    `yaml:"upload"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"` // must outlive analysis streams
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// LLMConfig holds the OpenAI-compatible chat provider settings.
type LLMConfig struct {
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url"`
	Model            string  `yaml:"model"`
	Temperature      float32 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	StreamMaxTokens  int     `yaml:"stream_max_tokens"`
	TimeoutSec       int     `yaml:"timeout_sec"`
	StreamTimeoutSec int     `yaml:"stream_timeout_sec"`
	RatePerSecond    float64 `yaml:"rate_per_second"` // 0 = unlimited
	Burst            int     `yaml:"burst"`
}

// RetrievalConfig holds segmentation, vectorisation and search settings.
type RetrievalConfig struct {
	ChunkSize        int     `yaml:"chunk_size"`
	MinChunkLength   int     `yaml:"min_chunk_length"`
	VectorDimension  int     `yaml:"vector_dimension"`
	TopK             int     `yaml:"top_k"`
	MaxContextLength int     `yaml:"max_context_length"`
	ScoreThreshold   float64 `yaml:"score_threshold"`
}

// AnalysisConfig holds analysis engine settings.
type AnalysisConfig struct {
	MaxContextLength int `yaml:"max_context_length"`
	PacingMs         int `yaml:"pacing_ms"`
}

// UploadConfig holds upload limits.
type UploadConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
}

// CacheConfig holds the optional Valkey/Redis analysis cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Timeout returns the non-streaming LLM timeout.
func (c LLMConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSec) * time.Second }

// StreamTimeout returns the streaming LLM timeout.
func (c LLMConfig) StreamTimeout() time.Duration {
	return time.Duration(c.StreamTimeoutSec) * time.Second
}

// Pacing returns the delay between locally generated report sections.
func (c AnalysisConfig) Pacing() time.Duration { return time.Duration(c.PacingMs) * time.Millisecond }

// MaxFileSize returns the upload limit in bytes.
func (c UploadConfig) MaxFileSize() int64 { return int64(c.MaxFileSizeMB) << 20 }

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSec) * time.Second }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references and applying defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.deepseek.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "deepseek-chat"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 2000
	}
	if c.LLM.StreamMaxTokens <= 0 {
		c.LLM.StreamMaxTokens = 4000
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 60
	}
	if c.LLM.StreamTimeoutSec <= 0 {
		c.LLM.StreamTimeoutSec = 120
	}

	if c.Retrieval.ChunkSize <= 0 {
		c.Retrieval.ChunkSize = 1000
	}
	if c.Retrieval.MinChunkLength <= 0 {
		c.Retrieval.MinChunkLength = 20
	}
	if c.Retrieval.VectorDimension <= 0 {
		c.Retrieval.VectorDimension = 384
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.MaxContextLength <= 0 {
		c.Retrieval.MaxContextLength = 2000
	}
	if c.Retrieval.ScoreThreshold == 0 {
		c.Retrieval.ScoreThreshold = 0.2
	}

	if c.Analysis.MaxContextLength <= 0 {
		c.Analysis.MaxContextLength = 5000
	}
	if c.Analysis.PacingMs < 0 {
		c.Analysis.PacingMs = 0
	}

	if c.Upload.MaxFileSizeMB <= 0 {
		c.Upload.MaxFileSizeMB = 20
	}

	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 86400
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Retrieval.MinChunkLength >= c.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval.min_chunk_length (%d) must be less than retrieval.chunk_size (%d)",
			c.Retrieval.MinChunkLength, c.Retrieval.ChunkSize)
	}
	if c.Retrieval.ScoreThreshold < 0 || c.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf("retrieval.score_threshold must be within [0, 1], got %g", c.Retrieval.ScoreThreshold)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2], got %g", c.LLM.Temperature)
	}
	if c.LLM.RatePerSecond < 0 {
		return fmt.Errorf("llm.rate_per_second must not be negative, got %g", c.LLM.RatePerSecond)
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache.enabled is true")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
