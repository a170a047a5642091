package models

// Version is a full-text snapshot of the document, not a diff. Index 0 is
// always the original upload; the history only ever grows.
type Version struct {
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	// MessageCount is the length of the conversation when this version was
	// captured, so a revert also tells you what the assistant had seen.
	MessageCount int `json:"message_count"`
	// TS is the capture timestamp (ns)
	TS int64 `json:"ts"`
}
