// Package storage provides file storage for uploaded receipt documents.
// Metadata lives in Postgres; this layer only handles the bytes.
package storage

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Storage defines the interface for receipt file storage.
type Storage interface {
	// Save stores a file under the user's namespace and returns its storage path.
	Save(ctx context.Context, userID, fileID uuid.UUID, filename string, r io.Reader) (string, error)

	// Open returns a reader for a previously stored file.
	Open(ctx context.Context, userID uuid.UUID, path string) (io.ReadCloser, error)

	// Delete removes a stored file. Deleting a missing file is not an error.
	Delete(ctx context.Context, userID uuid.UUID, path string) error
}
