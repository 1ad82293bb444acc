// Package storage defines the journal file-system abstraction.
package storage

import "github.com/starford/reverie/internal/models"

// Provider is the interface for journal file operations. All paths are
// relative to the journal root.
type Provider interface {
	// List returns metadata for every file under dir whose name ends in
	// ext. An empty ext matches every file.
	List(dir, ext string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Abs resolves path to an absolute file-system path inside the root.
	Abs(path string) (string, error)
}
