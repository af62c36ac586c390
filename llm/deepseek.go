package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultBaseURL = "https://api.deepseek.com/v1"

// DeepSeek talks to the DeepSeek chat API through its OpenAI-compatible
// surface.
type DeepSeek struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

type DeepSeekOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

func NewDeepSeek(opts DeepSeekOptions) (*DeepSeek, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	clientOpts := []openai.Option{
		openai.WithToken(opts.APIKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(opts.Model),
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, openai.WithHTTPClient(opts.HTTPClient))
	}

	model, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create deepseek client: %w", err)
	}

	return &DeepSeek{
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

// CompleteText drains the streaming call into a single string. The sentinel
// extraction step needs the whole answer before it can run.
func (d *DeepSeek) CompleteText(ctx context.Context, messages []Message) (string, error) {
	var sb strings.Builder
	opts := append(d.callOptions(), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		sb.Write(chunk)
		return nil
	}))

	resp, err := d.model.GenerateContent(ctx, toContent(messages), opts...)
	if err != nil {
		return "", fmt.Errorf("llm call failed: %w", err)
	}
	if sb.Len() > 0 {
		return sb.String(), nil
	}
	if resp != nil && len(resp.Choices) > 0 && resp.Choices[0].Content != "" {
		return resp.Choices[0].Content, nil
	}
	return "", fmt.Errorf("llm returned an empty response")
}

func (d *DeepSeek) StreamText(ctx context.Context, messages []Message, fn StreamFunc) error {
	opts := append(d.callOptions(), llms.WithStreamingFunc(fn))
	if _, err := d.model.GenerateContent(ctx, toContent(messages), opts...); err != nil {
		return fmt.Errorf("llm stream failed: %w", err)
	}
	return nil
}

func (d *DeepSeek) callOptions() []llms.CallOption {
	return []llms.CallOption{
		llms.WithTemperature(d.temperature),
		llms.WithMaxTokens(d.maxTokens),
	}
}

func toContent(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, llms.TextParts(roleType(m.Role), m.Content))
	}
	return out
}

func roleType(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
