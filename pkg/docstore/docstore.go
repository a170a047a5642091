// Package docstore is the document storage collaborator: it resolves
// uploaded file references into original content and records the final
// document when a session completes.
package docstore

import "context"

type Store interface {
	// LoadOriginal reads the content behind an uploaded file reference.
	LoadOriginal(ctx context.Context, fileRef string) (string, error)
	// SaveFinal persists the accepted final content for a session.
	SaveFinal(ctx context.Context, sessionID, content string) error
}
