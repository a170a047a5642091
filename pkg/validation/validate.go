package validation

import (
	"fmt"
	"strings"
	"sync"
)

// Limits caps the payload sizes the service accepts. Zero values mean
// unlimited; the config layer populates real values at startup.
type Limits struct {
	MaxDocumentBytes int64
	MaxMessageBytes  int64
}

var (
	mu     sync.RWMutex
	limits Limits
)

// SetLimits installs the effective limits. Called once at startup.
func SetLimits(l Limits) {
	mu.Lock()
	defer mu.Unlock()
	limits = l
}

func current() Limits {
	mu.RLock()
	defer mu.RUnlock()
	return limits
}

// CheckDocument validates document content for session creation and apply.
func CheckDocument(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("document content is empty")
	}
	if l := current(); l.MaxDocumentBytes > 0 && int64(len(content)) > l.MaxDocumentBytes {
		return fmt.Errorf("document content exceeds %d bytes", l.MaxDocumentBytes)
	}
	return nil
}

// CheckMessage validates a user instruction before it enters a session.
func CheckMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text is empty")
	}
	if l := current(); l.MaxMessageBytes > 0 && int64(len(text)) > l.MaxMessageBytes {
		return fmt.Errorf("message text exceeds %d bytes", l.MaxMessageBytes)
	}
	return nil
}
