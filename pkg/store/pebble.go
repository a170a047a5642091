package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"fillsession/pkg/logger"
	"fillsession/pkg/models"
)

// ErrNoSession is returned when a session id has no record.
var ErrNoSession = errors.New("no such session")

var (
	db     *pebble.DB
	dbPath string

	// usageMu serializes the read-modify-write on usage ledger keys.
	// Session records themselves are guarded by per-session machines.
	usageMu sync.Mutex
)

// Key layout:
//   session:<id>                 -> JSON session snapshot
//   owner:<ownerID>:session:<id> -> session id (listing index)
//   usage:<ownerID>:<YYYY-MM>    -> decimal token total for the month

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Log.Info("opening_pebble_db", zap.String("path", path))
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Log.Error("pebble_open_failed", zap.String("path", path), zap.Error(err))
		return err
	}
	dbPath = path
	logger.Log.Info("pebble_opened", zap.String("path", path))
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Log.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func sessionKey(id string) []byte {
	return []byte("session:" + id)
}

func ownerIdxKey(owner, id string) []byte {
	return []byte("owner:" + owner + ":session:" + id)
}

func usageKey(owner, month string) []byte {
	return []byte("usage:" + owner + ":" + month)
}

// SaveSession writes the full session snapshot and its owner index entry.
// Callers persist after every successful mutation, so the durable record
// always reflects a valid state.
func SaveSession(s *models.Session) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := db.Set(sessionKey(s.ID), data, pebble.Sync); err != nil {
		logger.Log.Error("save_session_failed", zap.String("session", s.ID), zap.Error(err))
		return err
	}
	if err := db.Set(ownerIdxKey(s.Owner, s.ID), []byte(s.ID), pebble.Sync); err != nil {
		logger.Log.Error("save_session_index_failed", zap.String("session", s.ID), zap.Error(err))
		return err
	}
	sessionWrites.Inc()
	return nil
}

// GetSession loads one session snapshot. Returns ErrNoSession when absent.
func GetSession(id string) (*models.Session, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(sessionKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	var s models.Session
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, fmt.Errorf("invalid session record %s: %w", id, err)
	}
	return &s, nil
}

// DeleteSession removes a session snapshot and its owner index entry.
func DeleteSession(id, owner string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.Delete(sessionKey(id), pebble.Sync); err != nil {
		return err
	}
	return db.Delete(ownerIdxKey(owner, id), pebble.Sync)
}

// ListOwnerSessions returns all sessions recorded for an owner, in id order.
func ListOwnerSessions(owner string) ([]*models.Session, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("owner:" + owner + ":session:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []*models.Session
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		id := string(iter.Value())
		s, err := GetSession(id)
		if errors.Is(err, ErrNoSession) {
			// stale index entry; skip
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ListSessions returns every stored session. Used by the reaper scan.
func ListSessions() ([]*models.Session, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("session:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []*models.Session
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var s models.Session
		if err := json.Unmarshal(iter.Value(), &s); err != nil {
			logger.Log.Error("invalid_session_record", zap.ByteString("key", iter.Key()), zap.Error(err))
			continue
		}
		out = append(out, &s)
	}
	return out, nil
}

// AddUsage adds provider-reported tokens to the owner's monthly ledger.
func AddUsage(owner, month string, tokens int64) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if tokens <= 0 {
		return nil
	}
	usageMu.Lock()
	defer usageMu.Unlock()
	cur, err := MonthlyUsage(owner, month)
	if err != nil {
		return err
	}
	next := strconv.FormatInt(cur+tokens, 10)
	return db.Set(usageKey(owner, month), []byte(next), pebble.Sync)
}

// MonthlyUsage returns the owner's recorded token total for a month.
// Months with no ledger entry read as zero.
func MonthlyUsage(owner, month string) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(usageKey(owner, month))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer closer.Close()
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt usage ledger for %s/%s: %w", owner, month, err)
	}
	return n, nil
}
