package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenSessionID returns a new opaque session identifier.
func GenSessionID() string {
	return "ses_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
