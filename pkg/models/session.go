package models

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether the status admits no further mutation.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

type Session struct {
	ID string `json:"id"`
	// Owner is an opaque identity id; every operation is scoped to it
	Owner  string `json:"owner"`
	Status Status `json:"status"`
	// OriginalContent is immutable after creation
	OriginalContent string `json:"original_content"`
	// CurrentContent always equals Versions[len-1].Content
	CurrentContent string    `json:"current_content"`
	Conversation   []Message `json:"conversation"`
	Versions       []Version `json:"versions"`
	// TokensUsed is monotone; provider-reported usage only
	TokensUsed int64 `json:"tokens_used"`
	// Created/Updated timestamps (ns); CompletedTS is zero until terminal
	CreatedTS   int64 `json:"created_ts"`
	UpdatedTS   int64 `json:"updated_ts"`
	CompletedTS int64 `json:"completed_ts,omitempty"`
}

// SessionSummary is the list-view projection of a session.
type SessionSummary struct {
	ID         string `json:"id"`
	Owner      string `json:"owner"`
	Status     Status `json:"status"`
	Versions   int    `json:"versions"`
	Messages   int    `json:"messages"`
	TokensUsed int64  `json:"tokens_used"`
	CreatedTS  int64  `json:"created_ts"`
	UpdatedTS  int64  `json:"updated_ts"`
}

func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:         s.ID,
		Owner:      s.Owner,
		Status:     s.Status,
		Versions:   len(s.Versions),
		Messages:   len(s.Conversation),
		TokensUsed: s.TokensUsed,
		CreatedTS:  s.CreatedTS,
		UpdatedTS:  s.UpdatedTS,
	}
}

// CompletionSummary is returned once when a session completes.
type CompletionSummary struct {
	SessionID     string `json:"session_id"`
	FinalContent  string `json:"final_content"`
	TotalVersions int    `json:"total_versions"`
	TotalMessages int    `json:"total_messages"`
	TokensUsed    int64  `json:"tokens_used"`
}
