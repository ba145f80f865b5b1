package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	// LLM configuration. Provider must be "openai" or "anthropic".
	LLMProvider      string `json:"llm_provider"`
	DeepThinkLLM     string `json:"deep_think_llm"`
	QuickThinkLLM    string `json:"quick_think_llm"`
	BackendURL       string `json:"backend_url"`
	AnthropicBaseURL string `json:"anthropic_base_url"`

	MaxDebateRounds      int `json:"max_debate_rounds"`
	MaxRiskDiscussRounds int `json:"max_risk_discuss_rounds"`

	// ResearchDepth scales the pipeline: 1 fast, 2 standard, 3 deep.
	ResearchDepth int `json:"research_depth"`
	// ParallelAnalysts runs the selected analysts concurrently.
	ParallelAnalysts bool `json:"parallel_analysts"`

	OnlineTools   bool `json:"online_tools"`
	MemoryEnabled bool `json:"memory_enabled"`
	Debug         bool `json:"debug"`

	// API keys
	OpenAIAPIKey    string `json:"openai_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key"`
	FinnhubAPIKey   string `json:"finnhub_api_key"`

	EmbeddingModel string `json:"embedding_model"`

	Redis RedisConfig `json:"redis"`
	Mongo MongoConfig `json:"mongo"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type MongoConfig struct {
	Enabled    bool   `json:"enabled"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	AuthSource string `json:"auth_source"`
	Database   string `json:"database"`
}

func (m MongoConfig) URI() string {
	if m.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d/?authSource=%s",
			m.Username, m.Password, m.Host, m.Port, m.AuthSource)
	}
	return fmt.Sprintf("mongodb://%s:%d", m.Host, m.Port)
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		ResultsDir:   filepath.Join(currentDir, "results"),
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "dataflows", "data_cache"),

		LLMProvider:   "openai",
		DeepThinkLLM:  "o4-mini",
		QuickThinkLLM: "gpt-4o-mini",
		BackendURL:    "",

		MaxDebateRounds:      1,
		MaxRiskDiscussRounds: 1,
		ResearchDepth:        2,
		ParallelAnalysts:     true,

		OnlineTools:   true,
		MemoryEnabled: true,
		Debug:         false,

		EmbeddingModel: "text-embedding-3-small",

		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Mongo: MongoConfig{
			Host:       "localhost",
			Port:       27017,
			AuthSource: "admin",
			Database:   "trademind",
		},
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
		c.ResultsDir = filepath.Join(val, "results")
		c.DataDir = filepath.Join(val, "data")
		c.DataCacheDir = filepath.Join(val, "dataflows", "data_cache")
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
	}
	if val := os.Getenv("DEEP_THINK_LLM"); val != "" {
		c.DeepThinkLLM = val
	}
	if val := os.Getenv("QUICK_THINK_LLM"); val != "" {
		c.QuickThinkLLM = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("ANTHROPIC_BASE_URL"); val != "" {
		c.AnthropicBaseURL = val
	}

	if val := os.Getenv("MAX_DEBATE_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v >= 1 {
			c.MaxDebateRounds = v
		}
	}
	if val := os.Getenv("MAX_RISK_DISCUSS_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v >= 1 {
			c.MaxRiskDiscussRounds = v
		}
	}

	if val := os.Getenv("RESEARCH_DEPTH"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v >= 1 && v <= 3 {
			c.ResearchDepth = v
		}
	}
	if val := os.Getenv("PARALLEL_ANALYSTS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.ParallelAnalysts = enabled
		}
	}
	if val := os.Getenv("ONLINE_TOOLS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.OnlineTools = enabled
		}
	}
	if val := os.Getenv("MEMORY_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.MemoryEnabled = enabled
		}
	}
	if val := os.Getenv("TRADEMIND_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("ANTHROPIC_API_KEY"); val != "" {
		c.AnthropicAPIKey = val
	}
	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
	if val := os.Getenv("EMBEDDING_MODEL"); val != "" {
		c.EmbeddingModel = val
	}

	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Redis.Enabled = enabled
		}
	}
	if val := os.Getenv("REDIS_HOST"); val != "" {
		c.Redis.Host = val
	}
	if val := os.Getenv("REDIS_PORT"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.Redis.Port = v
		}
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.Redis.DB = v
		}
	}

	if val := os.Getenv("MONGODB_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Mongo.Enabled = enabled
		}
	}
	if val := os.Getenv("MONGODB_HOST"); val != "" {
		c.Mongo.Host = val
	}
	if val := os.Getenv("MONGODB_PORT"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.Mongo.Port = v
		}
	}
	if val := os.Getenv("MONGODB_USERNAME"); val != "" {
		c.Mongo.Username = val
	}
	if val := os.Getenv("MONGODB_PASSWORD"); val != "" {
		c.Mongo.Password = val
	}
	if val := os.Getenv("MONGODB_AUTH_SOURCE"); val != "" {
		c.Mongo.AuthSource = val
	}
	if val := os.Getenv("MONGODB_DATABASE"); val != "" {
		c.Mongo.Database = val
	}
}

// Validate checks provider and round settings before any network work starts.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported llm_provider %q, expected openai or anthropic", c.LLMProvider)
	}
	if c.MaxDebateRounds < 1 {
		return fmt.Errorf("max_debate_rounds must be >= 1, got %d", c.MaxDebateRounds)
	}
	if c.MaxRiskDiscussRounds < 1 {
		return fmt.Errorf("max_risk_discuss_rounds must be >= 1, got %d", c.MaxRiskDiscussRounds)
	}
	if c.ResearchDepth < 1 || c.ResearchDepth > 3 {
		return fmt.Errorf("research_depth must be 1, 2 or 3, got %d", c.ResearchDepth)
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ResultsDir, c.DataDir, c.DataCacheDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
