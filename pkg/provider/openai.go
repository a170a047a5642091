package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompleter implements Completer for OpenAI-compatible APIs
// (OpenAI, DeepSeek, Kimi, Qwen, ...) via a base-URL override.
type OpenAICompleter struct {
	client openai.Client
	model  string
	name   string
}

func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAICompleter{
		client: openai.NewClient(opts...),
		model:  model,
		name:   "openai",
	}
}

func (p *OpenAICompleter) Name() string { return p.name }

func (p *OpenAICompleter) Complete(ctx context.Context, req *Request) (*Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: p.buildMessages(req),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai completion: empty choices")
	}

	reply, proposed := parseCompletion(resp.Choices[0].Message.Content)
	return &Completion{
		Text:            reply,
		ProposedContent: proposed,
		TokensUsed:      resp.Usage.TotalTokens,
	}, nil
}

func (p *OpenAICompleter) buildMessages(req *Request) []openai.ChatCompletionMessageParamUnion {
	params := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}
	for _, t := range req.History {
		switch t.Role {
		case RoleUser:
			params = append(params, openai.UserMessage(t.Text))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(t.Text))
		}
	}
	params = append(params, openai.UserMessage(userPrompt(req)))
	return params
}
