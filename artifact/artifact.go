// Package artifact stores session-scoped binary blobs: executor attachments
// (images, documents) on the way in and generated media on the way out.
// Stores implement core.ArtifactStore; this package adds the typed Attachment
// wrapper and an in-memory implementation.
package artifact

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentforge/core"
)

// ErrNotFound is returned when a session or artifact id is unknown.
var ErrNotFound = errors.New("artifact not found")

// Attachment is a typed binary blob handed to an executor: raw bytes plus
// enough metadata for an agent to interpret them.
type Attachment struct {
	ID       string
	Name     string
	MimeType string
	Data     []byte
}

// SaveAttachment persists the attachment under its session, generating an id
// when the attachment has none, and returns the id.
func SaveAttachment(store core.ArtifactStore, sessionID string, att Attachment) (string, error) {
	id := att.ID
	if id == "" {
		id = core.NewID()
	}
	if err := store.Save(sessionID, id, att.Data); err != nil {
		return "", fmt.Errorf("failed to save attachment %q: %w", att.Name, err)
	}
	return id, nil
}
