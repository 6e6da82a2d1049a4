// Package storage defines the workspace file-system abstraction.
package storage

import "time"

// File describes one SVG document in the workspace.
type File struct {
	// Path is relative to the workspace root, slash separated.
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for workspace file operations. Paths may be
// relative to the workspace root or absolute; absolute paths must lie
// inside it.
type Provider interface {
	// Root returns the absolute workspace directory.
	Root() string
	// Resolve returns the absolute form of path, rejecting paths that
	// escape the workspace.
	Resolve(path string) (string, error)
	// List returns every .svg file under dir.
	List(dir string) ([]File, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
