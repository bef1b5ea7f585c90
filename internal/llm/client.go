// Package llm wraps streaming chat completions against an OpenAI-compatible
// proxy (LiteLLM) and reclassifies transport failures into a small error
// taxonomy the handlers can map to user-visible states.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

const (
	defaultBaseURL = "https://litellm.sbp.ai/"
	defaultTimeout = 60 * time.Second

	defaultTemperature = 0.7

	envAPIKey  = "LITELLM_API_KEY"
	envBaseURL = "LITELLM_API_BASE"
)

// Config controls client construction. Zero values fall back to the
// LITELLM_* environment variables and fixed defaults.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client is a thin wrapper over the OpenAI SDK pointed at the proxy.
// Retries are disabled: failures surface immediately to the handler layer.
type Client struct {
	api     openai.Client
	http    *http.Client
	baseURL string
}

// NewClient fails eagerly with ErrConfiguration when no API key can be
// resolved from the config or the environment.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(envAPIKey))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s must be provided or set as environment variable", ErrConfiguration, envAPIKey)
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv(envBaseURL))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	api := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
	return &Client{
		api:     api,
		http:    httpClient,
		baseURL: baseURL,
	}, nil
}

// Stream yields text fragments from one streaming completion. Single
// consumer, finite, not restartable.
type Stream struct {
	inner *ssestream.Stream[openai.ChatCompletionChunk]
	model string
	cur   string
	err   error
	done  bool
}

// StreamCompletion starts a streaming chat completion. Errors from request
// setup are reported through the returned stream's Err.
func (c *Client) StreamCompletion(ctx context.Context, req Request) *Stream {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    buildMessageParams(req),
		Temperature: openai.Float(temperatureOrDefault(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	return &Stream{
		inner: c.api.Chat.Completions.NewStreaming(ctx, params),
		model: req.Model,
	}
}

// Next advances to the next non-empty content delta. Empty deltas and
// choiceless keepalive chunks are dropped silently.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for s.inner.Next() {
		chunk := s.inner.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		s.cur = delta
		return true
	}
	s.done = true
	s.err = classifyError(s.inner.Err(), s.model)
	return false
}

// Current returns the fragment selected by the last successful Next.
func (s *Stream) Current() string {
	return s.cur
}

// Err reports the reclassified stream error, nil on clean end of stream.
func (s *Stream) Err() error {
	return s.err
}

func (s *Stream) Close() error {
	s.done = true
	return s.inner.Close()
}

// GetCompletion drains a streaming completion and concatenates the
// fragments. Same error taxonomy as StreamCompletion.
func (c *Client) GetCompletion(ctx context.Context, req Request) (string, error) {
	stream := c.StreamCompletion(ctx, req)
	defer func() { _ = stream.Close() }()

	var sb strings.Builder
	for stream.Next() {
		sb.WriteString(stream.Current())
	}
	if err := stream.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Close releases the underlying HTTP connections. The client is unusable
// afterwards.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func buildMessageParams(req Request) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		out = append(out, openai.SystemMessage(req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func temperatureOrDefault(t float64) float64 {
	if t <= 0 {
		return defaultTemperature
	}
	return t
}

func classifyError(err error, model string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return fmt.Errorf("%w: request timeout for model %s: %w", ErrTimeout, model, err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: quota or rate limit exceeded for model %s: %w", ErrQuotaExceeded, model, err)
		}
		return fmt.Errorf("%w: request failed for model %s: %w", ErrAPI, model, err)
	}
	return fmt.Errorf("%w: connection error for model %s: %w", ErrAPI, model, err)
}
