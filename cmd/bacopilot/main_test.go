package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/bacopilot-go/internal/config"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/usecases"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()

	for _, name := range []string{"serve", "watch", "session", "enhance", "clarify", "review", "back", "improvements", "highlighted", "kb", "models", "config"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestTerminalHighlights_RemovesMarkup(t *testing.T) {
	text := "The system shall respond quickly."
	marked := usecases.HighlightIssues(text, []entities.Issue{
		{Type: entities.IssueWarning, Text: "system response time is vague", Suggestion: "state a latency"},
	})
	require.NotEqual(t, text, marked)

	out := terminalHighlights(marked)
	assert.NotContains(t, out, "<mark")
	assert.Contains(t, out, "system")
}

func TestNewRouter_RegistersCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.OpenAI.APIKey = "sk-test"

	router, err := newRouter(cfg)
	require.NoError(t, err)

	var names []string
	for _, m := range router.Models() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"openai", "demo"}, names)
}

func TestCommands_SessionFlow(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.LLM.DemoDelay = "0s"
	cfg.Knowledge.DataDir = filepath.Join(dir, "data")
	cfg.Storage.SessionsDB = filepath.Join(dir, "data", "sessions.db")
	cfg.Logging.Level = "error"
	cfgFile := filepath.Join(dir, "bacopilot.yaml")
	require.NoError(t, cfg.Save(cfgFile))

	run := func(args ...string) string {
		t.Helper()
		root := rootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs(append([]string{"--config", cfgFile}, args...))
		require.NoError(t, root.Execute(), strings.Join(args, " "))
		return out.String()
	}

	run("session", "new", "--title", "shop")
	list := run("session", "list")
	require.Contains(t, list, "shop")
	id := strings.Fields(list)[0]

	run("enhance", id, "an online shop with a shopping cart")
	out := run("review", id)
	assert.Contains(t, out, "Review")

	out = run("kb", "summary")
	assert.Contains(t, out, "documents")
}

func TestApp_StaleIndexSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Knowledge.DataDir = filepath.Join(dir, "data")
	cfg.Storage.SessionsDB = filepath.Join(dir, "data", "sessions.db")
	require.Equal(t, "sqlite", cfg.Knowledge.Index)

	open := func() *app {
		t.Helper()
		a, err := newApp(ctx, cfg)
		require.NoError(t, err)
		require.True(t, a.knowledge.IsInitialized())
		return a
	}

	a := open()
	added := a.knowledge.AddDocument(ctx, "payments.md", "Refunds are issued within 30 days.")
	require.True(t, added.Success, added.Error)
	require.True(t, a.knowledge.RemoveDocument(ctx, "payments.md").Success)
	require.True(t, a.knowledge.IsIndexStale())
	require.NoError(t, a.Close())

	a = open()
	assert.True(t, a.knowledge.IsIndexStale(), "removed content is still in the persistent index")
	require.NoError(t, a.knowledge.Rebuild(ctx))
	require.NoError(t, a.Close())

	a = open()
	defer a.Close()
	assert.False(t, a.knowledge.IsIndexStale())
}
