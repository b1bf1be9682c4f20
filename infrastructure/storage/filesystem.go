// Package storage holds the image blob store implementations.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"songarchive-backend/application/ports"

	"go.uber.org/zap"
)

// FilesystemStore writes image blobs under a base directory, one file per
// entity id. The returned ref is the path relative to the base directory.
type FilesystemStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewFilesystemStore creates the store, creating the base directory if
// needed.
func NewFilesystemStore(baseDir string, logger *zap.Logger) (*FilesystemStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", baseDir, err)
	}
	return &FilesystemStore{baseDir: baseDir, logger: logger}, nil
}

var _ ports.ObjectStore = (*FilesystemStore)(nil)

// Put stores the blob, replacing any previous image for the entity.
func (s *FilesystemStore) Put(ctx context.Context, entityID, ext string, body io.Reader) (string, error) {
	name, err := objectName(entityID, ext)
	if err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(s.baseDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create object %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", name, err)
	}

	s.logger.Debug("Object stored", zap.String("ref", name))
	return name, nil
}

// Delete removes the blob. A missing object is not an error; the record may
// never have had an image.
func (s *FilesystemStore) Delete(ctx context.Context, entityID, ext string) error {
	name, err := objectName(entityID, ext)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.baseDir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object %s: %w", name, err)
	}
	return nil
}

// objectName rejects ids that would escape the base directory.
func objectName(entityID, ext string) (string, error) {
	if entityID == "" || strings.ContainsAny(entityID, "/\\") || strings.Contains(entityID, "..") {
		return "", fmt.Errorf("invalid entity id %q", entityID)
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return "", fmt.Errorf("missing file extension")
	}
	return entityID + "." + ext, nil
}
