package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// LangchainClient talks to an OpenAI-compatible endpoint through langchaingo.
type LangchainClient struct {
	llm         *openai.LLM
	temperature float64
	maxTokens   int
}

// NewLangchainClient creates a langchaingo OpenAI model bound to cfg.BaseURL.
func NewLangchainClient(cfg Config) (*LangchainClient, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain openai model: %w", err)
	}
	return &LangchainClient{llm: model, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}, nil
}

func (c *LangchainClient) Complete(ctx context.Context, req Request) (string, error) {
	msgs := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeSystem, req.System))
	}
	msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeHuman, req.Prompt))

	callOptions := []llms.CallOption{llms.WithModel(req.Model)}
	if c.temperature > 0 {
		callOptions = append(callOptions, llms.WithTemperature(c.temperature))
	}
	if c.maxTokens > 0 {
		callOptions = append(callOptions, llms.WithMaxTokens(c.maxTokens))
	}
	if req.JSON {
		callOptions = append(callOptions, llms.WithJSONMode())
	}

	log.Debug().Str("backend", BackendLangchain).Str("model", req.Model).Int("prompt_len", len(req.Prompt)).
		Bool("json", req.JSON).Msg("Sending chat completion")

	resp, err := c.llm.GenerateContent(ctx, msgs, callOptions...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", err
		}
		if ue, ok := upstreamFromMessage(err); ok {
			return "", ue
		}
		if strings.Contains(err.Error(), "no response") {
			return "", ErrEmptyResponse
		}
		return "", fmt.Errorf("langchain completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrEmptyResponse
	}
	content := resp.Choices[0].Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
