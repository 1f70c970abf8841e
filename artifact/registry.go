// Package artifact maps artifact kinds to files in the output directory.
//
// The registry holds no state besides the directory: existence is always
// re-checked against the filesystem.
package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/maxmartens/k2-creek/iox"
	"github.com/maxmartens/k2-creek/types"
)

// FileMode is the permission of written artifacts.
const FileMode os.FileMode = 0o644

// Registry resolves and manipulates artifacts under one output directory.
type Registry struct {
	dir string
}

// New creates a registry rooted at dir.
func New(dir string) *Registry {
	return &Registry{dir: dir}
}

// Dir returns the output directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Filename returns the canonical filename of kind.
func (r *Registry) Filename(kind types.ArtifactKind) (string, error) {
	return types.Filename(kind)
}

// Path returns the output directory joined with the filename of kind.
func (r *Registry) Path(kind types.ArtifactKind) (string, error) {
	name, err := types.Filename(kind)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.dir, name), nil
}

// Exists reports whether the artifact file is present.
func (r *Registry) Exists(kind types.ArtifactKind) (bool, error) {
	path, err := r.Path(kind)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &Error{Op: "stat", Path: path, Err: err}
	}
}

// Delete removes the artifact file if present and reports whether a file
// was removed. A missing file is not an error.
func (r *Registry) Delete(kind types.ArtifactKind) (bool, error) {
	exists, err := r.Exists(kind)
	if err != nil || !exists {
		return false, err
	}
	path, _ := r.Path(kind)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &Error{Op: "delete", Path: path, Err: err}
	}
	return true, nil
}

// Write replaces the artifact file with data.
func (r *Registry) Write(kind types.ArtifactKind, data []byte) error {
	path, err := r.Path(kind)
	if err != nil {
		return err
	}
	if err := iox.WriteFileAtomic(path, data, FileMode); err != nil {
		return &Error{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Read returns the content of the artifact file.
func (r *Registry) Read(kind types.ArtifactKind) ([]byte, error) {
	path, err := r.Path(kind)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Op: "read", Path: path, Err: err}
	}
	return data, nil
}
