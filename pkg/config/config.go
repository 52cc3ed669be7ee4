package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type OpenAIConfig struct {
	APIKey           string  `yaml:"-"`
	BaseURL          string  `yaml:"base_url"`
	SummaryModel     string  `yaml:"summary_model"`
	EmbeddingModel   string  `yaml:"embedding_model"`
	SummaryMaxTokens int     `yaml:"summary_max_tokens"`
	ContextMaxTokens int     `yaml:"context_max_tokens"`
	Temperature      float64 `yaml:"temperature"`
	TimeoutSecs      int     `yaml:"timeout_secs"`
}

func (c OpenAIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

type IndexConfig struct {
	Addresses   []string `yaml:"addresses"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	Name        string   `yaml:"name"`
	VectorDim   int      `yaml:"vector_dim"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

func (c IndexConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

type ChunkerConfig struct {
	Strategy   string `yaml:"strategy"`
	WindowSize int    `yaml:"window_size"`
	Overlap    int    `yaml:"overlap"`
}

type IngestConfig struct {
	DocsDir          string `yaml:"docs_dir"`
	Workers          int    `yaml:"workers"`
	EmbedConcurrency int    `yaml:"embed_concurrency"`
}

type WebSearchConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	APIKey      string  `yaml:"-"`
	RateLimit   float64 `yaml:"rate_limit"`
	ResultLimit int     `yaml:"result_limit"`
}

type PapersConfig struct {
	DBPath string `yaml:"db_path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // empty means stdio transport
}

// Config is built once at process start and passed by reference into each
// component; components never read the environment themselves.
type Config struct {
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Index     IndexConfig     `yaml:"index"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Ingest    IngestConfig    `yaml:"ingest"`
	WebSearch WebSearchConfig `yaml:"websearch"`
	Papers    PapersConfig    `yaml:"papers"`
	Server    ServerConfig    `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/quarry/config.yaml"),
			"/etc/quarry/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() *Config {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.OpenAI.SummaryModel == "" {
		config.OpenAI.SummaryModel = "gpt-4o-mini"
	}
	if config.OpenAI.EmbeddingModel == "" {
		config.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if config.OpenAI.SummaryMaxTokens == 0 {
		config.OpenAI.SummaryMaxTokens = 300
	}
	if config.OpenAI.ContextMaxTokens == 0 {
		config.OpenAI.ContextMaxTokens = 2048
	}
	if config.OpenAI.Temperature == 0 {
		config.OpenAI.Temperature = 0.5
	}
	if config.OpenAI.TimeoutSecs == 0 {
		config.OpenAI.TimeoutSecs = 60
	}

	if len(config.Index.Addresses) == 0 {
		config.Index.Addresses = []string{"http://localhost:9200"}
	}
	if config.Index.Name == "" {
		config.Index.Name = "documents"
	}
	if config.Index.VectorDim == 0 {
		config.Index.VectorDim = 1536 // text-embedding-ada-002
	}
	if config.Index.TimeoutSecs == 0 {
		config.Index.TimeoutSecs = 30
	}

	if config.Chunker.Strategy == "" {
		config.Chunker.Strategy = "paragraph"
	}
	if config.Chunker.WindowSize == 0 {
		config.Chunker.WindowSize = 1000
	}
	if config.Chunker.Overlap == 0 {
		config.Chunker.Overlap = 200
	}

	if config.Ingest.DocsDir == "" {
		config.Ingest.DocsDir = "./docs"
	}
	if config.Ingest.Workers == 0 {
		config.Ingest.Workers = 4
	}
	if config.Ingest.EmbedConcurrency == 0 {
		config.Ingest.EmbedConcurrency = 4
	}

	if config.WebSearch.Endpoint == "" {
		config.WebSearch.Endpoint = "https://api.search.brave.com/res/v1/web/search"
	}
	if config.WebSearch.RateLimit == 0 {
		config.WebSearch.RateLimit = 1.0
	}
	if config.WebSearch.ResultLimit == 0 {
		config.WebSearch.ResultLimit = 3
	}

	if config.Papers.DBPath == "" {
		config.Papers.DBPath = "papers.db"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.OpenAI.BaseURL = baseURL
	}
	if url := os.Getenv("OPENSEARCH_URL"); url != "" {
		config.Index.Addresses = strings.Split(url, ",")
	}
	if user := os.Getenv("OPENSEARCH_USER"); user != "" {
		config.Index.Username = user
	}
	if pass := os.Getenv("OPENSEARCH_PASSWORD"); pass != "" {
		config.Index.Password = pass
	}
	if name := os.Getenv("OPENSEARCH_INDEX"); name != "" {
		config.Index.Name = name
	}
	if mode := os.Getenv("CHUNK_MODE"); mode != "" {
		config.Chunker.Strategy = mode
	}
	if dir := os.Getenv("DOCS_DIR"); dir != "" {
		config.Ingest.DocsDir = dir
	}
	if key := os.Getenv("BRAVE_API_KEY"); key != "" {
		config.WebSearch.APIKey = key
	}
}
