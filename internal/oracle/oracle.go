// Package oracle wraps the external text-generation service behind a single
// Complete call.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Provider identifies a supported generation backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// Oracle produces a completion for a prompt. Implementations must be safe
// for concurrent use.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Params are the generation knobs sent with every call. Review output wants
// low variance, so the defaults keep temperature down and cap length.
type Params struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// DefaultParams returns the stock tuning for a model.
func DefaultParams(model string) Params {
	return Params{
		Model:       model,
		Temperature: 0.2,
		MaxTokens:   700,
		TopP:        1,
	}
}

// Options configures a Client.
type Options struct {
	Provider Provider
	APIKey   string
	BaseURL  string
	Params   Params

	// Timeout bounds each completion call; zero leaves only the caller's
	// context deadline in effect.
	Timeout time.Duration
	// RequestsPerMinute paces outbound calls; zero disables pacing.
	RequestsPerMinute int
}

// Client is the production Oracle over the langchaingo model backends.
type Client struct {
	llm      llms.Model
	provider Provider
	params   Params
	timeout  time.Duration
	limiter  *rate.Limiter
	log      zerolog.Logger
}

// NewClient builds the backend named by opts.Provider. An empty provider
// defaults to OpenAI.
func NewClient(opts Options, log zerolog.Logger) (*Client, error) {
	provider := opts.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	log.Debug().
		Str("provider", string(provider)).
		Str("model", opts.Params.Model).
		Float64("temperature", opts.Params.Temperature).
		Msg("creating oracle client")

	var (
		model llms.Model
		err   error
	)
	switch provider {
	case ProviderOpenAI:
		model, err = newOpenAIModel(opts)
	case ProviderAnthropic:
		model, err = anthropic.New(
			anthropic.WithToken(opts.APIKey),
			anthropic.WithModel(opts.Params.Model),
		)
	case ProviderOllama:
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		model, err = ollama.New(
			ollama.WithServerURL(baseURL),
			ollama.WithModel(opts.Params.Model),
		)
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s model: %w", provider, err)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &Client{
		llm:      model,
		provider: provider,
		params:   opts.Params,
		timeout:  opts.Timeout,
		limiter:  limiter,
		log:      log,
	}, nil
}

func newOpenAIModel(opts Options) (llms.Model, error) {
	oaiOpts := []openai.Option{
		openai.WithModel(opts.Params.Model),
		openai.WithToken(opts.APIKey),
	}
	if opts.BaseURL != "" {
		oaiOpts = append(oaiOpts, openai.WithBaseURL(opts.BaseURL))
	}
	return openai.New(oaiOpts...)
}

// Complete sends one prompt and returns the raw completion text. There is
// exactly one attempt per call: a failed hunk is the caller's concern, not a
// retry loop's.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for oracle rate limit: %w", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, c.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("generating completion: %w", err)
	}

	c.log.Debug().
		Dur("elapsed", time.Since(start)).
		Int("prompt_chars", len(prompt)).
		Int("reply_chars", len(out)).
		Msg("oracle completion received")
	return out, nil
}

func (c *Client) callOptions() []llms.CallOption {
	callOpts := []llms.CallOption{
		llms.WithTemperature(c.params.Temperature),
	}
	if c.params.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.params.MaxTokens))
	}
	if c.params.TopP > 0 {
		callOpts = append(callOpts, llms.WithTopP(c.params.TopP))
	}
	if c.params.FrequencyPenalty != 0 {
		callOpts = append(callOpts, llms.WithFrequencyPenalty(c.params.FrequencyPenalty))
	}
	if c.params.PresencePenalty != 0 {
		callOpts = append(callOpts, llms.WithPresencePenalty(c.params.PresencePenalty))
	}
	if c.provider == ProviderOpenAI {
		// The OpenAI backend can be pinned to structured output.
		callOpts = append(callOpts, llms.WithJSONMode())
	}
	return callOpts
}
