package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"fillsession/pkg/logger"
)

// FSStore keeps originals and finals under two rooted directories.
// File references are single path components; anything that could walk
// out of the uploads root is rejected.
type FSStore struct {
	uploads string
	finals  string
}

func NewFSStore(uploadsDir, finalsDir string) (*FSStore, error) {
	for _, dir := range []string{uploadsDir, finalsDir} {
		if dir == "" {
			return nil, fmt.Errorf("docstore directory not configured")
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create docstore dir %s: %w", dir, err)
		}
	}
	return &FSStore{uploads: uploadsDir, finals: finalsDir}, nil
}

func (s *FSStore) LoadOriginal(ctx context.Context, fileRef string) (string, error) {
	ref := strings.TrimSpace(fileRef)
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", fmt.Errorf("invalid file reference %q", fileRef)
	}
	b, err := os.ReadFile(filepath.Join(s.uploads, ref))
	if err != nil {
		return "", fmt.Errorf("load original %s: %w", ref, err)
	}
	return string(b), nil
}

func (s *FSStore) SaveFinal(ctx context.Context, sessionID, content string) error {
	path := filepath.Join(s.finals, sessionID+".txt")
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		return fmt.Errorf("save final for %s: %w", sessionID, err)
	}
	logger.Log.Info("final_saved", zap.String("session", sessionID), zap.String("path", path))
	return nil
}
