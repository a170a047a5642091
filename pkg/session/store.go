package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fillsession/pkg/docstore"
	"fillsession/pkg/logger"
	"fillsession/pkg/models"
	"fillsession/pkg/provider"
	"fillsession/pkg/quota"
	"fillsession/pkg/store"
	"fillsession/pkg/utils"
)

// Store keeps at most one live Machine per session id, scopes every
// lookup to the owner, and bridges machines to durable storage and the
// document store. Operations on different sessions run in parallel; the
// registry lock covers only map access, never a provider call.
type Store struct {
	mu         sync.Mutex
	live       map[string]*Machine
	completer  provider.Completer
	accountant *quota.Accountant
	docs       docstore.Store
	timeout    time.Duration
}

func NewStore(completer provider.Completer, accountant *quota.Accountant, docs docstore.Store, providerTimeout time.Duration) *Store {
	return &Store{
		live:       make(map[string]*Machine),
		completer:  completer,
		accountant: accountant,
		docs:       docs,
		timeout:    providerTimeout,
	}
}

func persistSnapshot(s *models.Session) error {
	return store.SaveSession(s)
}

// Create starts a session for ownerID. When seedMessage is non-empty the
// SendMessage flow runs immediately; a provider failure on the seed does
// not undo creation (the user message stays recorded), so the session and
// the seed error are both returned.
func (st *Store) Create(ctx context.Context, ownerID, originalContent, seedMessage string, autoApply bool) (models.Session, *SendResult, error) {
	sess, err := Start(ownerID, utils.GenSessionID(), originalContent)
	if err != nil {
		return models.Session{}, nil, err
	}
	if err := store.SaveSession(sess); err != nil {
		return models.Session{}, nil, fmt.Errorf("persist new session: %w", err)
	}
	m := st.register(sess.ID, NewMachine(sess, st.completer, st.accountant, persistSnapshot, st.timeout))
	logger.Info("session_created", "session", sess.ID, "owner", ownerID, "bytes", len(originalContent))

	var res *SendResult
	var seedErr error
	if seedMessage != "" {
		res, seedErr = st.SendMessage(ctx, sess.ID, ownerID, seedMessage, autoApply)
	}
	return m.Snapshot(), res, seedErr
}

// register records the machine for a session id unless one is already
// live; the existing machine wins so a session never has two writers.
func (st *Store) register(sessionID string, m *Machine) *Machine {
	st.mu.Lock()
	defer st.mu.Unlock()
	if existing, ok := st.live[sessionID]; ok {
		return existing
	}
	st.live[sessionID] = m
	return m
}

// acquire returns the live machine for a session id, reviving it from
// durable storage if needed, with the owner check applied.
func (st *Store) acquire(sessionID, requesterID string) (*Machine, error) {
	st.mu.Lock()
	m, ok := st.live[sessionID]
	st.mu.Unlock()
	if !ok {
		sess, err := store.GetSession(sessionID)
		if errors.Is(err, store.ErrNoSession) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		if err != nil {
			return nil, err
		}
		// another request may have revived it meanwhile
		m = st.register(sessionID, NewMachine(sess, st.completer, st.accountant, persistSnapshot, st.timeout))
	}
	snap := m.Snapshot()
	if requesterID != "" && snap.Owner != requesterID {
		return nil, fmt.Errorf("%w: session %s", ErrForbidden, sessionID)
	}
	return m, nil
}

// Get returns a read snapshot of the session, owner-scoped.
func (st *Store) Get(sessionID, requesterID string) (models.Session, error) {
	m, err := st.acquire(sessionID, requesterID)
	if err != nil {
		return models.Session{}, err
	}
	return m.Snapshot(), nil
}

// List returns summaries of every session the owner has.
func (st *Store) List(ownerID string) ([]models.SessionSummary, error) {
	sessions, err := store.ListOwnerSessions(ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]models.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	return out, nil
}

// SendMessage runs the machine round-trip and, on success, feeds the
// owner's monthly usage ledger the entitlement check reads from.
func (st *Store) SendMessage(ctx context.Context, sessionID, requesterID, text string, autoApply bool) (*SendResult, error) {
	m, err := st.acquire(sessionID, requesterID)
	if err != nil {
		return nil, err
	}
	res, err := m.SendMessage(ctx, text, autoApply)
	if err != nil {
		return nil, err
	}
	if res.TokensUsed > 0 {
		month := time.Now().UTC().Format("2006-01")
		if uerr := store.AddUsage(requesterID, month, res.TokensUsed); uerr != nil {
			logger.Warn("usage_ledger_update_failed", "owner", requesterID, "error", uerr)
		}
	}
	return res, nil
}

func (st *Store) ApplyChanges(sessionID, requesterID, newContent, description string) (models.Version, error) {
	m, err := st.acquire(sessionID, requesterID)
	if err != nil {
		return models.Version{}, err
	}
	return m.ApplyChanges(newContent, description)
}

func (st *Store) Revert(sessionID, requesterID string, versionIndex int) (models.Version, error) {
	m, err := st.acquire(sessionID, requesterID)
	if err != nil {
		return models.Version{}, err
	}
	return m.Revert(versionIndex)
}

// Complete hands the final content to the document store and finishes
// the session. The handoff runs before the terminal transition: a
// docstore failure fails Complete with ErrDocStore and the session stays
// active, so the caller can retry.
func (st *Store) Complete(ctx context.Context, sessionID, requesterID string) (models.CompletionSummary, error) {
	m, err := st.acquire(sessionID, requesterID)
	if err != nil {
		return models.CompletionSummary{}, err
	}
	summary, err := m.Complete(func(finalContent string) error {
		if st.docs == nil {
			return nil
		}
		return st.docs.SaveFinal(ctx, sessionID, finalContent)
	})
	if err != nil {
		return models.CompletionSummary{}, err
	}
	st.evict(sessionID)
	return summary, nil
}

func (st *Store) Abandon(sessionID, requesterID string) error {
	m, err := st.acquire(sessionID, requesterID)
	if err != nil {
		return err
	}
	if err := m.Abandon(); err != nil {
		return err
	}
	st.evict(sessionID)
	return nil
}

// evict drops a terminal session's machine; the durable record remains
// readable until the reaper purges it.
func (st *Store) evict(sessionID string) {
	st.mu.Lock()
	delete(st.live, sessionID)
	st.mu.Unlock()
}

// ReapIdle abandons active sessions whose last activity predates the
// cutoff. Called by the scheduled reaper, never by user traffic.
func (st *Store) ReapIdle(idleTimeout time.Duration) (int, error) {
	sessions, err := store.ListSessions()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-idleTimeout).UnixNano()
	var n int
	for _, s := range sessions {
		if s.Status != models.StatusActive || s.UpdatedTS >= cutoff {
			continue
		}
		if err := st.Abandon(s.ID, s.Owner); err != nil {
			// raced with a user operation; skip
			logger.Warn("reap_abandon_failed", "session", s.ID, "error", err)
			continue
		}
		n++
	}
	return n, nil
}

// PurgeTerminal deletes terminal sessions whose completion predates the
// retention window.
func (st *Store) PurgeTerminal(retention time.Duration) (int, error) {
	sessions, err := store.ListSessions()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-retention).UnixNano()
	var n int
	for _, s := range sessions {
		if !s.Status.Terminal() || s.CompletedTS == 0 || s.CompletedTS >= cutoff {
			continue
		}
		if err := store.DeleteSession(s.ID, s.Owner); err != nil {
			logger.Warn("purge_delete_failed", "session", s.ID, "error", err)
			continue
		}
		st.evict(s.ID)
		n++
	}
	return n, nil
}
