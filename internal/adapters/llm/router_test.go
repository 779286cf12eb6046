package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
	"github.com/0xcro3dile/bacopilot-go/internal/domain/usecases"
)

type funcProvider func(ctx context.Context, prompt, model, system string) (string, error)

func (f funcProvider) Complete(ctx context.Context, prompt, model, system string) (string, error) {
	return f(ctx, prompt, model, system)
}

func TestRouter_DispatchesByName(t *testing.T) {
	r := NewRouter("", 0)
	r.Register(ModelDemo, "Demo", funcProvider(func(context.Context, string, string, string) (string, error) {
		return "from demo", nil
	}))
	r.Register(ModelOpenAI, "OpenAI", funcProvider(func(_ context.Context, _, model, _ string) (string, error) {
		return "from " + model, nil
	}))

	out, err := r.Complete(context.Background(), "p", "", "s")
	require.NoError(t, err)
	assert.Equal(t, "from demo", out, "empty model uses the default")

	out, err = r.Complete(context.Background(), "p", " OpenAI ", "s")
	require.NoError(t, err)
	assert.Equal(t, "from openai", out)
}

func TestRouter_UnknownModel(t *testing.T) {
	r := NewRouter(ModelDemo, 0)
	r.Register(ModelDemo, "Demo", NewDemoAdapter(0))

	_, err := r.Complete(context.Background(), "p", "anthropic", "s")

	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "anthropic")
}

func TestRouter_WrapsCallFailures(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewRouter(ModelOpenAI, 0)
	r.Register(ModelOpenAI, "OpenAI", funcProvider(func(context.Context, string, string, string) (string, error) {
		return "", boom
	}))

	_, err := r.Complete(context.Background(), "p", "", "")

	assert.ErrorIs(t, err, entities.ErrProviderCallFailed)
	assert.ErrorIs(t, err, boom)
}

func TestRouter_Timeout(t *testing.T) {
	r := NewRouter(ModelDemo, 20*time.Millisecond)
	r.Register(ModelDemo, "Slow demo", NewDemoAdapter(time.Minute))

	start := time.Now()
	_, err := r.Complete(context.Background(), "p", "", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRouter_ModelsInRegistrationOrder(t *testing.T) {
	r := NewRouter("", 0)
	r.Register(ModelOpenAI, "OpenAI GPT-4", NewDemoAdapter(0))
	r.Register(ModelDemo, "Demo Mode", NewDemoAdapter(0))
	r.Register(ModelOpenAI, "OpenAI GPT-4o", NewDemoAdapter(0))

	models := r.Models()

	require.Len(t, models, 2)
	assert.Equal(t, ModelInfo{Name: ModelOpenAI, Description: "OpenAI GPT-4o"}, models[0])
	assert.Equal(t, ModelDemo, models[1].Name)
}

func TestDemoResponse_Selection(t *testing.T) {
	assert.True(t, strings.HasPrefix(DemoResponse("my requirement", "please ENHANCE it"), "## Enhanced Requirements Document"))
	assert.Equal(t, demoGeneric, DemoResponse("no keyword here", "enhance"))
	assert.Equal(t, demoReview, DemoResponse("anything", "senior requirements review expert"))
	assert.Equal(t, demoGeneric, DemoResponse("requirement", "analyst"))
}

func TestDemoResponse_ReviewParses(t *testing.T) {
	rec, structured := usecases.ParseReview(DemoResponse("", "review"))

	require.True(t, structured)
	assert.Equal(t, 7, rec.Score)
	require.Len(t, rec.Issues, 2)
	assert.Equal(t, entities.IssueWarning, rec.Issues[0].Type)
	assert.Equal(t, entities.IssueSuggestion, rec.Issues[1].Type)
}

func TestDemoAdapter_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDemoAdapter(time.Minute).Complete(ctx, "p", "", "")

	assert.ErrorIs(t, err, context.Canceled)
}
