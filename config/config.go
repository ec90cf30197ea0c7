// Package config handles persistence of the scene document and the runtime
// options of the application.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.aimuz.me/keysound/internal/types"
	"golang.org/x/text/language"
)

const (
	appName        = "keysound"
	configFileName = "config.json"
)

// ErrStoreCorrupt is matched by errors returned when the persisted document
// exists but cannot be parsed.
var ErrStoreCorrupt = errors.New("store corrupt")

// CorruptError describes an unreadable persisted document.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("store corrupt: %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Is reports ErrStoreCorrupt as a match.
func (e *CorruptError) Is(target error) bool { return target == ErrStoreCorrupt }

// Store reads and writes the scene document.
type Store struct {
	// Path is the document location.
	Path string
	// LegacyPath, when set, is where earlier releases kept the document.
	// It is copied to Path on Load if Path does not exist yet.
	LegacyPath string
	// Locale selects the name of the default scene.
	Locale language.Tag
}

// NewStore creates a store for the document at path.
func NewStore(path string, locale language.Tag) *Store {
	return &Store{Path: path, Locale: locale}
}

// DefaultPath returns the document location under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// Load loads the document.
// Returns a default document if the file doesn't exist.
func (s *Store) Load() (*types.Document, error) {
	if err := s.adoptLegacy(); err != nil {
		return nil, fmt.Errorf("adopt legacy config: %w", err)
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDocument(DefaultSceneName(s.Locale)), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	doc, err := DecodeDocument(data, DefaultSceneName(s.Locale))
	if err != nil {
		return nil, &CorruptError{Path: s.Path, Err: err}
	}
	return doc, nil
}

// Save persists the document. The file is replaced atomically: the data is
// written to a temporary file in the same directory and renamed over Path.
func (s *Store) Save(doc *types.Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return writeFileAtomic(s.Path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close config: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// adoptLegacy copies the document from LegacyPath to Path when only the
// legacy file exists.
func (s *Store) adoptLegacy() error {
	if s.LegacyPath == "" || s.LegacyPath == s.Path {
		return nil
	}

	if _, err := os.Stat(s.Path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config: %w", err)
	}

	src, err := os.Open(s.LegacyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open legacy config: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read legacy config: %w", err)
	}
	return writeFileAtomic(s.Path, data)
}
