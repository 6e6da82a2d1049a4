// Package resource identifies source documents by normalized filesystem path.
package resource

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Resource is an opaque handle to a source document. The zero value
// identifies nothing.
type Resource struct {
	path string
}

// FromPath returns the resource for a filesystem path. Relative paths are
// made absolute against the process working directory.
func FromPath(p string) Resource {
	if p == "" {
		return Resource{}
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return Resource{path: filepath.Clean(p)}
}

// Parse accepts a file URI (query and fragment are ignored) or a plain path.
func Parse(s string) (Resource, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Resource{}, fmt.Errorf("resource: empty identifier")
	}
	if !strings.Contains(s, "://") {
		return FromPath(s), nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return Resource{}, fmt.Errorf("resource: parse %q: %w", s, err)
	}
	if u.Scheme != "file" {
		return Resource{}, fmt.Errorf("resource: unsupported scheme %q", u.Scheme)
	}
	p := u.Path
	if p == "" {
		return Resource{}, fmt.Errorf("resource: %q has no path", s)
	}
	// file:///C:/x.svg
	if len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return FromPath(filepath.FromSlash(p)), nil
}

// Path returns the normalized filesystem path.
func (r Resource) Path() string { return r.path }

// IsZero reports whether r identifies nothing.
func (r Resource) IsZero() bool { return r.path == "" }

// Equal compares by normalized path.
func (r Resource) Equal(o Resource) bool { return r.path == o.path }

// Base returns the file name.
func (r Resource) Base() string {
	if r.path == "" {
		return ""
	}
	return filepath.Base(r.path)
}

// WithExt returns the sibling path with the extension replaced.
func (r Resource) WithExt(ext string) string {
	return strings.TrimSuffix(r.path, filepath.Ext(r.path)) + ext
}

// String returns the canonical file URI.
func (r Resource) String() string {
	if r.path == "" {
		return ""
	}
	p := filepath.ToSlash(r.path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// MarshalText implements encoding.TextMarshaler.
func (r Resource) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Resource) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
