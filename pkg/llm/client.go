package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/zeromicro/go-zero/core/logx"
)

// Chatter is the completion surface used by higher-level helpers.
type Chatter interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	ChatStructured(ctx context.Context, req *ChatRequest, target any) (*ChatResponse, error)
}

// Client talks to an OpenAI-compatible chat endpoint (Groq by default).
type Client struct {
	config       *Config
	openaiClient *openai.Client
	retryHandler *RetryHandler
}

// ClientOption configures optional client behaviour.
type ClientOption func(*clientOptions)

type clientOptions struct {
	retry      *RetryHandler
	httpClient *http.Client
}

// WithRetryHandler injects a custom retry handler.
func WithRetryHandler(handler *RetryHandler) ClientOption {
	return func(opts *clientOptions) { opts.retry = handler }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *clientOptions) { opts.httpClient = client }
}

// NewClient constructs a client. The SDK's own retries are disabled so that
// RetryHandler is the single retry policy.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clientCfg := *cfg

	var state clientOptions
	for _, opt := range opts {
		opt(&state)
	}
	retry := state.retry
	if retry == nil {
		retry = NewRetryHandler(RetryConfig{MaxRetries: clientCfg.MaxRetries})
	}

	oaOpts := []option.RequestOption{
		option.WithAPIKey(clientCfg.APIKey),
		option.WithBaseURL(clientCfg.BaseURL),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(clientCfg.Timeout),
	}
	if state.httpClient != nil {
		oaOpts = append(oaOpts, option.WithHTTPClient(state.httpClient))
	}
	oa := openai.NewClient(oaOpts...)

	return &Client{
		config:       &clientCfg,
		openaiClient: &oa,
		retryHandler: retry,
	}, nil
}

// Model returns the default model identifier.
func (c *Client) Model() string { return c.config.DefaultModel }

// Chat performs a single synchronous completion request.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, errors.New("llm: request cannot be nil")
	}
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}
	logger := logx.WithContext(ctx)
	start := time.Now()

	var completion *openai.ChatCompletion
	err = c.retryHandler.Do(ctx, func() error {
		resp, callErr := c.openaiClient.Chat.Completions.New(ctx, params)
		if callErr != nil {
			logger.Errorf("llm: chat completion model=%s failed: %v", params.Model, callErr)
			return callErr
		}
		completion = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("llm: completion has no choices")
	}

	choice := completion.Choices[0]
	result := &ChatResponse{
		ID:           completion.ID,
		Model:        completion.Model,
		Content:      strings.TrimSpace(choice.Message.Content),
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	logger.Infof("llm: chat model=%s duration_ms=%d prompt_tokens=%d completion_tokens=%d",
		result.Model, time.Since(start).Milliseconds(), result.Usage.PromptTokens, result.Usage.CompletionTokens)
	return result, nil
}

// ChatStructured asks for a JSON object shaped like target, then decodes the
// first JSON object found in the reply into target.
func (c *Client) ChatStructured(ctx context.Context, req *ChatRequest, target any) (*ChatResponse, error) {
	if req == nil {
		return nil, errors.New("llm: request cannot be nil")
	}
	value := reflect.ValueOf(target)
	if !value.IsValid() || value.Kind() != reflect.Pointer || value.IsNil() {
		return nil, errors.New("llm: structured target must be a non-nil pointer")
	}
	schema, err := SchemaJSON(target)
	if err != nil {
		return nil, err
	}

	structured := *req
	structured.JSONMode = true
	structured.Messages = append([]Message{
		SystemMessage("Respond with a single JSON object matching this JSON schema, without prose:\n" + schema),
	}, req.Messages...)

	resp, err := c.Chat(ctx, &structured)
	if err != nil {
		return nil, err
	}
	if err := ParseStructured(resp.Content, target); err != nil {
		logx.WithContext(ctx).Errorf("llm: parse structured response model=%s: %v", resp.Model, err)
		return resp, err
	}
	return resp, nil
}

func (c *Client) buildParams(req *ChatRequest) (openai.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return openai.ChatCompletionNewParams{}, errors.New("llm: request requires at least one message")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.config.DefaultModel
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		case "user", "":
			messages = append(messages, openai.UserMessage(m.Content))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("llm: unsupported message role %q", m.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	temperature := c.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	params.Temperature = openai.Float(temperature)

	maxTokens := c.config.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	if req.JSONMode {
		format := shared.NewResponseFormatJSONObjectParam()
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONObject: &format}
	}
	return params, nil
}
