package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestFS(t *testing.T) *FSStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFSStore(filepath.Join(dir, "uploads"), filepath.Join(dir, "finals"))
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	return s
}

func TestLoadOriginal(t *testing.T) {
	s := newTestFS(t)
	if err := os.WriteFile(filepath.Join(s.uploads, "draft.txt"), []byte("draft body"), 0o640); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	got, err := s.LoadOriginal(context.Background(), "draft.txt")
	if err != nil {
		t.Fatalf("LoadOriginal failed: %v", err)
	}
	if got != "draft body" {
		t.Fatalf("unexpected content %q", got)
	}
	if _, err := s.LoadOriginal(context.Background(), "missing.txt"); err == nil {
		t.Fatalf("missing upload accepted")
	}
}

func TestLoadOriginal_RejectsTraversal(t *testing.T) {
	s := newTestFS(t)
	for _, ref := range []string{"", "../etc/passwd", "a/b.txt", ".hidden", "..", "/abs.txt"} {
		if _, err := s.LoadOriginal(context.Background(), ref); err == nil {
			t.Fatalf("reference %q accepted", ref)
		}
	}
}

func TestSaveFinal(t *testing.T) {
	s := newTestFS(t)
	if err := s.SaveFinal(context.Background(), "ses_1", "final text"); err != nil {
		t.Fatalf("SaveFinal failed: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(s.finals, "ses_1.txt"))
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	if string(b) != "final text" {
		t.Fatalf("unexpected final content %q", b)
	}
}
