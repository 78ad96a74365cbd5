package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel records the prompt and options it was called with.
type fakeModel struct {
	reply   string
	err     error
	gotText string
	calls   int
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	if len(messages) > 0 && len(messages[0].Parts) > 0 {
		if tc, ok := messages[0].Parts[0].(llms.TextContent); ok {
			f.gotText = tc.Text
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestDefaultParams(t *testing.T) {
	t.Parallel()

	p := DefaultParams("gpt-4o-mini")
	assert.Equal(t, "gpt-4o-mini", p.Model)
	assert.Equal(t, 0.2, p.Temperature)
	assert.Equal(t, 700, p.MaxTokens)
	assert.Equal(t, 1.0, p.TopP)
	assert.Zero(t, p.FrequencyPenalty)
	assert.Zero(t, p.PresencePenalty)
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Options{Provider: "watson"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported oracle provider")
}

func TestNewClientBuildsKnownProviders(t *testing.T) {
	t.Parallel()

	for _, provider := range []Provider{ProviderOpenAI, ProviderAnthropic, ProviderOllama} {
		opts := Options{
			Provider: provider,
			APIKey:   "test-key",
			Params:   DefaultParams("some-model"),
		}
		c, err := NewClient(opts, zerolog.Nop())
		require.NoError(t, err, "provider %s", provider)
		require.NotNil(t, c)
	}
}

func TestCompleteReturnsModelReply(t *testing.T) {
	t.Parallel()

	fake := &fakeModel{reply: `{"reviews": [], "summary": ""}`}
	c := &Client{llm: fake, params: DefaultParams("m"), log: zerolog.Nop()}

	got, err := c.Complete(context.Background(), "review this hunk")
	require.NoError(t, err)
	assert.Equal(t, `{"reviews": [], "summary": ""}`, got)
	assert.Equal(t, "review this hunk", fake.gotText)
	assert.Equal(t, 1, fake.calls)
}

func TestCompleteWrapsTransportError(t *testing.T) {
	t.Parallel()

	fake := &fakeModel{err: context.DeadlineExceeded}
	c := &Client{llm: fake, params: DefaultParams("m"), log: zerolog.Nop()}

	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating completion")
	// One attempt only, no retry loop.
	assert.Equal(t, 1, fake.calls)
}

func TestCompleteHonorsTimeout(t *testing.T) {
	t.Parallel()

	fake := &fakeModel{reply: "ok"}
	c := &Client{llm: fake, params: DefaultParams("m"), timeout: 50 * time.Millisecond, log: zerolog.Nop()}

	_, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
}
