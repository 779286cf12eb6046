// Package config loads bacopilot settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/usecases"
)

// EnvPrefix prefixes environment overrides, e.g. BACOPILOT_SERVER_ADDR.
const EnvPrefix = "BACOPILOT"

type Config struct {
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" yaml:"knowledge"`
	Limits    usecases.Limits `mapstructure:"limits" yaml:"limits"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

type LLMConfig struct {
	DefaultModel string         `mapstructure:"default_model" yaml:"default_model"`
	Timeout      string         `mapstructure:"timeout" yaml:"timeout"`
	DemoDelay    string         `mapstructure:"demo_delay" yaml:"demo_delay"`
	OpenAI       ProviderConfig `mapstructure:"openai" yaml:"openai"`
	Anthropic    ProviderConfig `mapstructure:"anthropic" yaml:"anthropic"`
	Ollama       ProviderConfig `mapstructure:"ollama" yaml:"ollama"`
}

type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model    string `mapstructure:"model" yaml:"model"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// Configured reports whether the provider has credentials.
func (p ProviderConfig) Configured() bool { return strings.TrimSpace(p.APIKey) != "" }

type KnowledgeConfig struct {
	DataDir        string `mapstructure:"data_dir" yaml:"data_dir"`
	IndexEnabled   bool   `mapstructure:"index_enabled" yaml:"index_enabled"`
	Index          string `mapstructure:"index" yaml:"index"` // sqlite | memory
	RetrievalMode  string `mapstructure:"retrieval_mode" yaml:"retrieval_mode"`
	QueryModel     string `mapstructure:"query_model" yaml:"query_model"`
	TopK           int    `mapstructure:"top_k" yaml:"top_k"`
	ChunkSize      int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap   int    `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
	Embedder       string `mapstructure:"embedder" yaml:"embedder"` // hash | ollama
	EmbedderModel  string `mapstructure:"embedder_model" yaml:"embedder_model"`
	EmbedDims      int    `mapstructure:"embed_dims" yaml:"embed_dims"`
	RebuildWorkers int    `mapstructure:"rebuild_workers" yaml:"rebuild_workers"`
	InboxDir       string `mapstructure:"inbox_dir" yaml:"inbox_dir"`
}

type StorageConfig struct {
	SessionsDB string `mapstructure:"sessions_db" yaml:"sessions_db"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			DefaultModel: "demo",
			Timeout:      "2m",
			DemoDelay:    "1s",
			OpenAI:       ProviderConfig{Model: "gpt-4o", Endpoint: "https://api.openai.com/v1"},
			Anthropic:    ProviderConfig{Model: "claude-3-5-sonnet-20241022", Endpoint: "https://api.anthropic.com/v1"},
			Ollama:       ProviderConfig{Model: "llama3.2"},
		},
		Knowledge: KnowledgeConfig{
			DataDir:        "./data",
			IndexEnabled:   true,
			Index:          "sqlite",
			RetrievalMode:  "hybrid",
			QueryModel:     "demo",
			TopK:           5,
			ChunkSize:      512,
			ChunkOverlap:   50,
			Embedder:       "hash",
			EmbedderModel:  "nomic-embed-text",
			RebuildWorkers: 4,
		},
		Limits:  usecases.DefaultLimits(),
		Storage: StorageConfig{SessionsDB: "./data/sessions.db"},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("llm.default_model", d.LLM.DefaultModel)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.demo_delay", d.LLM.DemoDelay)
	for name, p := range map[string]ProviderConfig{"openai": d.LLM.OpenAI, "anthropic": d.LLM.Anthropic, "ollama": d.LLM.Ollama} {
		v.SetDefault("llm."+name+".api_key", p.APIKey)
		v.SetDefault("llm."+name+".model", p.Model)
		v.SetDefault("llm."+name+".endpoint", p.Endpoint)
	}

	v.SetDefault("knowledge.data_dir", d.Knowledge.DataDir)
	v.SetDefault("knowledge.index_enabled", d.Knowledge.IndexEnabled)
	v.SetDefault("knowledge.index", d.Knowledge.Index)
	v.SetDefault("knowledge.retrieval_mode", d.Knowledge.RetrievalMode)
	v.SetDefault("knowledge.query_model", d.Knowledge.QueryModel)
	v.SetDefault("knowledge.top_k", d.Knowledge.TopK)
	v.SetDefault("knowledge.chunk_size", d.Knowledge.ChunkSize)
	v.SetDefault("knowledge.chunk_overlap", d.Knowledge.ChunkOverlap)
	v.SetDefault("knowledge.embedder", d.Knowledge.Embedder)
	v.SetDefault("knowledge.embedder_model", d.Knowledge.EmbedderModel)
	v.SetDefault("knowledge.embed_dims", d.Knowledge.EmbedDims)
	v.SetDefault("knowledge.rebuild_workers", d.Knowledge.RebuildWorkers)
	v.SetDefault("knowledge.inbox_dir", d.Knowledge.InboxDir)

	v.SetDefault("limits.max_suggestions", d.Limits.MaxSuggestions)
	v.SetDefault("limits.max_questions", d.Limits.MaxQuestions)
	v.SetDefault("limits.max_best_practices", d.Limits.MaxBestPractices)
	v.SetDefault("limits.max_risks", d.Limits.MaxRisks)

	v.SetDefault("storage.sessions_db", d.Storage.SessionsDB)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.json", d.Logging.JSON)
}

// Load reads configPath (or ./bacopilot.yaml and ~/.config/bacopilot when
// empty) and applies environment overrides. A missing file is fine.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The variable names the original .env files used.
	v.BindEnv("llm.openai.api_key", EnvPrefix+"_LLM_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.anthropic.api_key", EnvPrefix+"_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.default_model", EnvPrefix+"_LLM_DEFAULT_MODEL", "DEFAULT_MODEL")
	v.BindEnv("llm.ollama.endpoint", EnvPrefix+"_LLM_OLLAMA_ENDPOINT", "OLLAMA_HOST")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("bacopilot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/bacopilot")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configPath != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := c.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// YAML encodes the configuration in the file format Load reads.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// Validate checks enumerations and durations.
func (c *Config) Validate() error {
	if _, err := c.LLM.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.LLM.DemoDelayDuration(); err != nil {
		return err
	}
	if _, err := usecases.ParseRetrievalMode(c.Knowledge.RetrievalMode); err != nil {
		return fmt.Errorf("knowledge.retrieval_mode: %w", err)
	}
	switch c.Knowledge.Index {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("invalid knowledge.index: %s (must be sqlite or memory)", c.Knowledge.Index)
	}
	switch c.Knowledge.Embedder {
	case "hash", "ollama":
	default:
		return fmt.Errorf("invalid knowledge.embedder: %s (must be hash or ollama)", c.Knowledge.Embedder)
	}
	if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("knowledge.chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Knowledge.ChunkOverlap, c.Knowledge.ChunkSize)
	}
	return nil
}

// TimeoutDuration parses llm.timeout; empty means no limit.
func (l LLMConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration("llm.timeout", l.Timeout)
}

// DemoDelayDuration parses llm.demo_delay.
func (l LLMConfig) DemoDelayDuration() (time.Duration, error) {
	return parseDuration("llm.demo_delay", l.DemoDelay)
}

func parseDuration(key, s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

// Model describes one entry of the model catalog.
type Model struct {
	Name        string
	Description string
}

// AvailableModels lists the selectable backends: keyed vendors, a
// configured Ollama endpoint, and the demo backend which is always present.
func (c *Config) AvailableModels() []Model {
	var out []Model
	if c.LLM.OpenAI.Configured() {
		out = append(out, Model{Name: "openai", Description: "OpenAI " + c.LLM.OpenAI.Model})
	}
	if c.LLM.Anthropic.Configured() {
		out = append(out, Model{Name: "anthropic", Description: "Anthropic " + c.LLM.Anthropic.Model})
	}
	if c.LLM.Ollama.Endpoint != "" {
		out = append(out, Model{Name: "ollama", Description: "Ollama " + c.LLM.Ollama.Model})
	}
	return append(out, Model{Name: "demo", Description: "Demo Mode (No API Key Required)"})
}

// Paths derived from the data directory.
func (k KnowledgeConfig) MetadataDB() string { return filepath.Join(k.DataDir, "knowledge.db") }
func (k KnowledgeConfig) BlobDir() string    { return filepath.Join(k.DataDir, "documents") }
func (k KnowledgeConfig) IndexDir() string   { return filepath.Join(k.DataDir, "index") }
