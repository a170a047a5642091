package models

// Message roles. Only the user and the assistant speak in a session;
// system prompting is a provider concern and never stored.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
	// ProposedContent is set only on assistant messages that carry a
	// full-document rewrite proposal; nil when the assistant only replied
	// conversationally.
	ProposedContent *string `json:"proposed_content,omitempty"`
	// TS is the append timestamp (ns)
	TS int64 `json:"ts"`
}
