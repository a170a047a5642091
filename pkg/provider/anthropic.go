package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicCompleter implements Completer using the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicCompleter(apiKey, model string, maxTokens int64) *AnthropicCompleter {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &AnthropicCompleter{
		client:    anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *AnthropicCompleter) Name() string { return "anthropic" }

func (p *AnthropicCompleter) Complete(ctx context.Context, req *Request) (*Completion, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		Messages:  p.buildMessages(req),
		MaxTokens: p.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	var raw string
	for _, block := range msg.Content {
		if block.Type == "text" {
			raw += block.Text
		}
	}
	reply, proposed := parseCompletion(raw)
	return &Completion{
		Text:            reply,
		ProposedContent: proposed,
		TokensUsed:      msg.Usage.InputTokens + msg.Usage.OutputTokens,
	}, nil
}

// buildMessages converts the session history plus the new instruction into
// Anthropic message params. History precedes the document+instruction turn
// so the model sees the conversation in real order.
func (p *AnthropicCompleter) buildMessages(req *Request) []anthropic.MessageParam {
	var params []anthropic.MessageParam
	for _, t := range req.History {
		switch t.Role {
		case RoleUser:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
		case RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Text)))
		}
	}
	params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))))
	return params
}
