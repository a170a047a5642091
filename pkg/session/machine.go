// Package session holds the editing-session state machine and the
// owner-scoped store of live machines. A session is a single-writer
// resource: every mutating operation serializes behind the machine mutex,
// including the provider round-trip, so a concurrent apply can never
// interleave with a send's read-modify-write.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"fillsession/pkg/logger"
	"fillsession/pkg/models"
	"fillsession/pkg/provider"
	"fillsession/pkg/quota"
	"fillsession/pkg/telemetry"
	"fillsession/pkg/validation"
)

// historyWindow caps how many prior turns are replayed to the provider.
const historyWindow = 32

// PersistFunc durably records a session snapshot after a mutation.
type PersistFunc func(*models.Session) error

// Machine owns one session's state and its transitions. Collaborators are
// injected; the machine holds no globals beyond metrics and logging.
type Machine struct {
	mu         sync.Mutex
	sess       *models.Session
	completer  provider.Completer
	accountant *quota.Accountant
	persist    PersistFunc
	timeout    time.Duration
}

// SendResult is what the caller gets back from one SendMessage round-trip.
type SendResult struct {
	AssistantText   string          `json:"assistant_text"`
	ProposedContent *string         `json:"proposed_content,omitempty"`
	TokensUsed      int64           `json:"tokens_used"`
	Applied         *models.Version `json:"applied,omitempty"`
}

// NewMachine wraps an existing session record. The caller guarantees at
// most one machine per session id (the store's job).
func NewMachine(sess *models.Session, completer provider.Completer, accountant *quota.Accountant, persist PersistFunc, providerTimeout time.Duration) *Machine {
	if providerTimeout <= 0 {
		providerTimeout = 60 * time.Second
	}
	return &Machine{
		sess:       sess,
		completer:  completer,
		accountant: accountant,
		persist:    persist,
		timeout:    providerTimeout,
	}
}

// Start creates a fresh active session seeded with the original content as
// version 0.
func Start(ownerID, id, originalContent string) (*models.Session, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	if err := validation.CheckDocument(originalContent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	now := time.Now().UTC().UnixNano()
	s := &models.Session{
		ID:              id,
		Owner:           ownerID,
		Status:          models.StatusActive,
		OriginalContent: originalContent,
		CurrentContent:  originalContent,
		Versions: []models.Version{{
			Content:      originalContent,
			Description:  "Original upload",
			MessageCount: 0,
			TS:           now,
		}},
		CreatedTS: now,
		UpdatedTS: now,
	}
	telemetry.SessionsCreated.Inc()
	return s, nil
}

// Snapshot returns a copy of the session safe to serialize without holding
// the machine lock.
func (m *Machine) Snapshot() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.sess
	cp.Conversation = append([]models.Message(nil), m.sess.Conversation...)
	cp.Versions = append([]models.Version(nil), m.sess.Versions...)
	return cp
}

// SendMessage runs the full round-trip: quota gate, append the user
// message, call the provider, append the assistant message, optionally
// auto-apply the proposal. The quota gate runs before any mutation; the
// user message is appended before the provider call so the transcript
// reflects real request order even when the call fails. Cancellation or
// timeout of the provider call leaves the user message in place and
// nothing else changed.
func (m *Machine) SendMessage(ctx context.Context, userText string, autoApply bool) (*SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess.Status.Terminal() {
		return nil, fmt.Errorf("%w: session %s is %s", ErrInvalidState, m.sess.ID, m.sess.Status)
	}
	if err := validation.CheckMessage(userText); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	dec, err := m.accountant.CheckQuota(ctx, m.sess.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntitlements, err)
	}
	if !dec.Allowed {
		telemetry.QuotaRejections.Inc()
		return nil, fmt.Errorf("%w: %d tokens remaining this month", ErrQuotaExceeded, dec.Remaining)
	}

	now := time.Now().UTC().UnixNano()
	m.sess.Conversation = append(m.sess.Conversation, models.Message{
		Role: models.RoleUser,
		Text: userText,
		TS:   now,
	})
	m.sess.UpdatedTS = now
	telemetry.Messages.WithLabelValues(models.RoleUser).Inc()
	if err := m.persist(m.sess); err != nil {
		logger.Warn("persist_user_message_failed", "session", m.sess.ID, "error", err)
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	comp, err := m.completer.Complete(cctx, &provider.Request{
		CurrentContent: m.sess.CurrentContent,
		History:        m.history(),
		Instruction:    userText,
	})
	if err != nil {
		telemetry.ProviderErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	// A proposal that would be unusable must be caught before the
	// assistant message is appended, so apply never fails afterwards and
	// no tokens are recorded for a broken reply.
	if comp.ProposedContent != nil {
		if verr := validation.CheckDocument(*comp.ProposedContent); verr != nil {
			telemetry.ProviderErrors.Inc()
			return nil, fmt.Errorf("%w: unusable proposed content: %v", ErrProvider, verr)
		}
	}

	now = time.Now().UTC().UnixNano()
	m.sess.Conversation = append(m.sess.Conversation, models.Message{
		Role:            models.RoleAssistant,
		Text:            comp.Text,
		ProposedContent: comp.ProposedContent,
		TS:              now,
	})
	m.sess.UpdatedTS = now
	m.accountant.Record(m.sess, comp.TokensUsed)
	telemetry.Messages.WithLabelValues(models.RoleAssistant).Inc()
	if comp.TokensUsed > 0 {
		telemetry.TokensConsumed.Add(float64(comp.TokensUsed))
	}

	res := &SendResult{
		AssistantText:   comp.Text,
		ProposedContent: comp.ProposedContent,
		TokensUsed:      comp.TokensUsed,
	}
	if autoApply && comp.ProposedContent != nil {
		v := m.applyLocked(*comp.ProposedContent, "Applied: "+describe(userText))
		res.Applied = &v
	}

	if err := m.persist(m.sess); err != nil {
		logger.Warn("persist_session_failed", "session", m.sess.ID, "error", err)
	}
	logger.Info("message_round_trip", "session", m.sess.ID, "tokens", comp.TokensUsed,
		"proposed", comp.ProposedContent != nil, "auto_applied", res.Applied != nil)
	return res, nil
}

// ApplyChanges appends a new version and makes it current. This is the
// only path that mutates CurrentContent.
func (m *Machine) ApplyChanges(newContent, description string) (models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.Status.Terminal() {
		return models.Version{}, fmt.Errorf("%w: session %s is %s", ErrInvalidState, m.sess.ID, m.sess.Status)
	}
	if err := validation.CheckDocument(newContent); err != nil {
		return models.Version{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	v := m.applyLocked(newContent, description)
	if err := m.persist(m.sess); err != nil {
		logger.Warn("persist_session_failed", "session", m.sess.ID, "error", err)
	}
	return v, nil
}

// Revert appends a new version carrying the content of version k. History
// only grows; reverting to the already-current version is legal and still
// appends, preserving the audit trail of user intent.
func (m *Machine) Revert(versionIndex int) (models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.Status.Terminal() {
		return models.Version{}, fmt.Errorf("%w: session %s is %s", ErrInvalidState, m.sess.ID, m.sess.Status)
	}
	if versionIndex < 0 || versionIndex >= len(m.sess.Versions) {
		return models.Version{}, fmt.Errorf("%w: %d not in [0,%d]", ErrOutOfRange, versionIndex, len(m.sess.Versions)-1)
	}
	v := m.applyLocked(m.sess.Versions[versionIndex].Content, fmt.Sprintf("Reverted to version %d", versionIndex))
	if err := m.persist(m.sess); err != nil {
		logger.Warn("persist_session_failed", "session", m.sess.ID, "error", err)
	}
	return v, nil
}

// Complete is the success terminal transition. Exactly once; the summary
// snapshot is returned to the caller. The save callback runs under the
// lock before the status flips, so the handed-off content cannot be stale
// and a failed save leaves the session active for a retry.
func (m *Machine) Complete(save func(finalContent string) error) (models.CompletionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.Status.Terminal() {
		return models.CompletionSummary{}, fmt.Errorf("%w: session %s is %s", ErrInvalidState, m.sess.ID, m.sess.Status)
	}
	if save != nil {
		if err := save(m.sess.CurrentContent); err != nil {
			return models.CompletionSummary{}, fmt.Errorf("%w: %v", ErrDocStore, err)
		}
	}
	now := time.Now().UTC().UnixNano()
	m.sess.Status = models.StatusCompleted
	m.sess.CompletedTS = now
	m.sess.UpdatedTS = now
	if err := m.persist(m.sess); err != nil {
		logger.Warn("persist_session_failed", "session", m.sess.ID, "error", err)
	}
	telemetry.SessionsCompleted.Inc()
	logger.Info("session_completed", "session", m.sess.ID,
		"versions", len(m.sess.Versions), "messages", len(m.sess.Conversation), "tokens", m.sess.TokensUsed)
	return models.CompletionSummary{
		SessionID:     m.sess.ID,
		FinalContent:  m.sess.CurrentContent,
		TotalVersions: len(m.sess.Versions),
		TotalMessages: len(m.sess.Conversation),
		TokensUsed:    m.sess.TokensUsed,
	}, nil
}

// Abandon is the failure terminal transition, typically driven by the
// idle reaper. Data is retained for audit; nothing is discarded.
func (m *Machine) Abandon() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.Status.Terminal() {
		return fmt.Errorf("%w: session %s is %s", ErrInvalidState, m.sess.ID, m.sess.Status)
	}
	now := time.Now().UTC().UnixNano()
	m.sess.Status = models.StatusAbandoned
	m.sess.CompletedTS = now
	m.sess.UpdatedTS = now
	if err := m.persist(m.sess); err != nil {
		logger.Warn("persist_session_failed", "session", m.sess.ID, "error", err)
	}
	telemetry.SessionsAbandoned.Inc()
	logger.Info("session_abandoned", "session", m.sess.ID)
	return nil
}

// applyLocked appends the version and advances CurrentContent. Callers
// hold the lock and have validated the content.
func (m *Machine) applyLocked(newContent, description string) models.Version {
	now := time.Now().UTC().UnixNano()
	v := models.Version{
		Content:      newContent,
		Description:  description,
		MessageCount: len(m.sess.Conversation),
		TS:           now,
	}
	m.sess.Versions = append(m.sess.Versions, v)
	m.sess.CurrentContent = newContent
	m.sess.UpdatedTS = now
	telemetry.VersionsApplied.Inc()
	return v
}

func (m *Machine) history() []provider.Turn {
	conv := m.sess.Conversation
	// exclude the user message just appended; it travels as Instruction
	if n := len(conv); n > 0 && conv[n-1].Role == models.RoleUser {
		conv = conv[:n-1]
	}
	if len(conv) > historyWindow {
		conv = conv[len(conv)-historyWindow:]
	}
	turns := make([]provider.Turn, 0, len(conv))
	for _, msg := range conv {
		role := provider.RoleUser
		if msg.Role == models.RoleAssistant {
			role = provider.RoleAssistant
		}
		turns = append(turns, provider.Turn{Role: role, Text: msg.Text})
	}
	return turns
}

func describe(userText string) string {
	const max = 80
	t := strings.TrimSpace(userText)
	if r := []rune(t); len(r) > max {
		t = string(r[:max]) + "..."
	}
	return t
}
