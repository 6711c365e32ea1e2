// Package docstore persists a single JSON document per file with atomic
// replace-on-write, so a failed save never leaves a half-written document.
package docstore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Store reads and writes one JSON document of type T.
type Store[T any] struct {
	path string
}

// New creates a document store at path, ensuring the parent directory
// exists.
func New[T any](path string) (*Store[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s", path)
	}
	return &Store[T]{path: path}, nil
}

// Load reads the document. A missing or empty file yields the zero value
// of T and no error.
func (s *Store[T]) Load() (T, error) {
	var doc T

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, errors.Wrapf(err, "read %s", s.path)
	}
	if len(payload) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(payload, &doc); err != nil {
		return doc, errors.Wrapf(err, "decode %s", s.path)
	}
	return doc, nil
}

// Save writes the document atomically via a temp file and rename.
func (s *Store[T]) Save(doc T) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", s.path)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrapf(err, "write temp file for %s", s.path)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, "persist %s", s.path)
	}
	return nil
}
