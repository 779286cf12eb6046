package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "DEFAULT_MODEL", "OLLAMA_HOST"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.LLM.DefaultModel)
	assert.Equal(t, 5, cfg.Limits.MaxSuggestions)
	assert.Equal(t, 6, cfg.Limits.MaxQuestions)
	assert.Equal(t, 5, cfg.Limits.MaxBestPractices)
	assert.Equal(t, 4, cfg.Limits.MaxRisks)
	assert.Equal(t, "hybrid", cfg.Knowledge.RetrievalMode)
	assert.True(t, cfg.Knowledge.IndexEnabled)

	timeout, err := cfg.LLM.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, timeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bacopilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  default_model: openai
  openai:
    model: gpt-test
limits:
  max_questions: 3
server:
  addr: ":9000"
`), 0o644))
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("BACOPILOT_SERVER_ADDR", ":9100")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.DefaultModel)
	assert.Equal(t, "gpt-test", cfg.LLM.OpenAI.Model)
	assert.Equal(t, "sk-env", cfg.LLM.OpenAI.APIKey)
	assert.Equal(t, 3, cfg.Limits.MaxQuestions)
	assert.Equal(t, 5, cfg.Limits.MaxSuggestions, "unset keys keep defaults")
	assert.Equal(t, ":9100", cfg.Server.Addr, "environment wins over the file")
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"mode":    "knowledge:\n  retrieval_mode: naive\n",
		"index":   "knowledge:\n  index: lance\n",
		"timeout": "llm:\n  timeout: soon\n",
		"overlap": "knowledge:\n  chunk_size: 10\n  chunk_overlap: 10\n",
		"yaml":    "llm: [unclosed\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "bacopilot.yaml")
	cfg := Default()
	cfg.LLM.Anthropic.APIKey = "ak"
	cfg.Knowledge.TopK = 9

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestAvailableModels(t *testing.T) {
	cfg := Default()
	models := cfg.AvailableModels()
	require.Len(t, models, 1)
	assert.Equal(t, "demo", models[0].Name)

	cfg.LLM.OpenAI.APIKey = "sk"
	cfg.LLM.Ollama.Endpoint = "http://localhost:11434"
	var names []string
	for _, m := range cfg.AvailableModels() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"openai", "ollama", "demo"}, names)
}
