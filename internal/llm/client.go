// Package llm wraps the completion capability. All provider failures come
// back wrapped in domain.ErrUpstream so the boundary can tell them apart
// from validation errors.
package llm

import (
	"context"
	"fmt"

	"github.com/tdiprima/langchain-flask-api/internal/domain"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"
)

// Options configures the chat-completion client.
type Options struct {
	APIKey      string
	Endpoint    string // Azure resource endpoint; empty means api.openai.com
	APIVersion  string // Azure api-version, e.g. 2024-06-01
	Deployment  string // Azure deployment name, or plain model name
	Temperature float64
	MaxTokens   int
}

// Client calls the hosted model through the OpenAI chat completions API,
// optionally against an Azure endpoint.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewClient(opts Options) *Client {
	var reqOpts []option.RequestOption
	if opts.Endpoint != "" {
		reqOpts = append(reqOpts,
			azure.WithEndpoint(opts.Endpoint, opts.APIVersion),
			azure.WithAPIKey(opts.APIKey),
		)
	} else if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}

	model := opts.Deployment
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}
	return &Client{
		client:      openai.NewClient(reqOpts...),
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", domain.ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}
