package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"fillsession/pkg/models"
)

func openTestDB(t *testing.T) {
	t.Helper()
	if err := Open(filepath.Join(t.TempDir(), "db")); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestSaveGetDeleteSession(t *testing.T) {
	openTestDB(t)
	s := &models.Session{ID: "ses_a", Owner: "o1", Status: models.StatusActive, CurrentContent: "body"}
	if err := SaveSession(s); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	got, err := GetSession("ses_a")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Owner != "o1" || got.CurrentContent != "body" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if err := DeleteSession("ses_a", "o1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := GetSession("ses_a"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after delete, got %v", err)
	}
}

func TestGetSession_Missing(t *testing.T) {
	openTestDB(t)
	if _, err := GetSession("ses_nope"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestListOwnerSessions_PrefixIsolation(t *testing.T) {
	openTestDB(t)
	for _, pair := range [][2]string{{"ses_1", "alice"}, {"ses_2", "alice"}, {"ses_3", "alicia"}} {
		if err := SaveSession(&models.Session{ID: pair[0], Owner: pair[1], Status: models.StatusActive}); err != nil {
			t.Fatalf("save %s: %v", pair[0], err)
		}
	}
	got, err := ListOwnerSessions("alice")
	if err != nil {
		t.Fatalf("ListOwnerSessions failed: %v", err)
	}
	// "alicia" shares the byte prefix but must not leak into "alice"
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions for alice, got %d", len(got))
	}
	all, err := ListSessions()
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions total, got %d", len(all))
	}
}

func TestUsageLedger(t *testing.T) {
	openTestDB(t)
	if n, err := MonthlyUsage("o1", "2026-08"); err != nil || n != 0 {
		t.Fatalf("empty month should read zero, got n=%d err=%v", n, err)
	}
	if err := AddUsage("o1", "2026-08", 100); err != nil {
		t.Fatalf("AddUsage failed: %v", err)
	}
	if err := AddUsage("o1", "2026-08", 50); err != nil {
		t.Fatalf("AddUsage failed: %v", err)
	}
	if err := AddUsage("o1", "2026-08", -10); err != nil {
		t.Fatalf("AddUsage with negative tokens errored: %v", err)
	}
	n, err := MonthlyUsage("o1", "2026-08")
	if err != nil {
		t.Fatalf("MonthlyUsage failed: %v", err)
	}
	if n != 150 {
		t.Fatalf("expected 150, got %d", n)
	}
	// months are independent
	if n, _ := MonthlyUsage("o1", "2026-09"); n != 0 {
		t.Fatalf("next month should be zero, got %d", n)
	}
}

func TestAddUsage_Concurrent(t *testing.T) {
	openTestDB(t)
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := AddUsage("o1", "2026-08", 5); err != nil {
				t.Errorf("AddUsage failed: %v", err)
			}
		}()
	}
	wg.Wait()
	got, err := MonthlyUsage("o1", "2026-08")
	if err != nil {
		t.Fatalf("MonthlyUsage failed: %v", err)
	}
	if got != n*5 {
		t.Fatalf("lost updates: expected %d, got %d", n*5, got)
	}
}
