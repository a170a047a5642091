// Package provider defines the completion interface the session machine
// depends on, plus adapters for the Anthropic and OpenAI-compatible APIs.
// Adapters normalize vendor responses into a single Completion shape and
// report provider-metered token usage.
package provider

import (
	"context"
	"encoding/json"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior exchange handed to the provider as context.
type Turn struct {
	Role Role
	Text string
}

// Request carries everything the provider needs for one completion call:
// the document as currently accepted, the conversation so far, and the
// user's new instruction.
type Request struct {
	CurrentContent string
	History        []Turn
	Instruction    string
}

// Completion is the provider's reply. ProposedContent is nil when the
// assistant answered conversationally without proposing a rewrite.
type Completion struct {
	Text            string
	ProposedContent *string
	TokensUsed      int64
}

// Completer is the unified interface for all completion providers.
// Implementations must honor ctx cancellation/deadline; the caller treats
// a deadline exceeded exactly like any other provider failure.
type Completer interface {
	Complete(ctx context.Context, req *Request) (*Completion, error)
	Name() string
}

// systemPrompt instructs the model to answer as a document-editing
// assistant and to emit a machine-readable envelope so adapters can
// separate the conversational reply from an optional full-document
// proposal.
const systemPrompt = `You are a document completion assistant. The user is editing a document and asks you questions or requests changes.

Respond with a single JSON object and nothing else:
{"reply": "<your conversational answer>", "proposed_content": "<the complete rewritten document>" }

If the request does not call for changing the document, set "proposed_content" to null. When you do propose changes, "proposed_content" must contain the entire document text, not a fragment or diff.`

// userPrompt renders the document and instruction into the final user turn.
func userPrompt(req *Request) string {
	var b strings.Builder
	b.WriteString("Current document:\n---\n")
	b.WriteString(req.CurrentContent)
	b.WriteString("\n---\n\nInstruction: ")
	b.WriteString(req.Instruction)
	return b.String()
}

type envelope struct {
	Reply           string  `json:"reply"`
	ProposedContent *string `json:"proposed_content"`
}

// parseCompletion extracts the reply and optional proposal from raw model
// output. Models occasionally wrap JSON in code fences or ignore the
// envelope entirely; a non-envelope reply is treated as conversational.
func parseCompletion(raw string) (string, *string) {
	text := strings.TrimSpace(raw)
	if fenced := strings.TrimPrefix(text, "```json"); fenced != text {
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(fenced), "```"))
	} else if fenced := strings.TrimPrefix(text, "```"); fenced != text {
		text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(fenced), "```"))
	}
	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err == nil && env.Reply != "" {
		if env.ProposedContent != nil && strings.TrimSpace(*env.ProposedContent) == "" {
			env.ProposedContent = nil
		}
		return env.Reply, env.ProposedContent
	}
	return strings.TrimSpace(raw), nil
}
