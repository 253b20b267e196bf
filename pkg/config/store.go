package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Document is the whole persisted settings document: one object per tool id
// plus the registry-wide preference keys.
type Document map[string]any

// Store provides persistence for the settings document.
type Store interface {
	// Load reads the whole document. A missing document loads as empty.
	Load(ctx context.Context) (Document, error)

	// Save replaces the whole document.
	Save(ctx context.Context, doc Document) error

	// UpdateSection re-reads the document, replaces one top level key and
	// writes it back. Every other key is left untouched.
	UpdateSection(ctx context.Context, key string, value any) error

	// UpdateField re-reads the document, replaces a single field inside
	// one top level object and writes it back.
	UpdateField(ctx context.Context, key, field string, value any) error

	// UpdateSections re-reads the document, replaces every key of sections
	// and writes the result back once.
	UpdateSections(ctx context.Context, sections Document) error
}

// FileStore implements Store using a JSON file.
// Writes go through one mutex so read-merge-write cycles never interleave.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a new file-based store.
// If path is empty, defaults to ~/.toolbox/data.json
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".toolbox", "data.json")
	}

	return &FileStore{path: path}, nil
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the document from disk.
func (s *FileStore) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := s.readRaw()
	if err != nil {
		return nil, err
	}

	doc := make(Document)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode settings file: %w", err)
	}
	if doc == nil {
		doc = make(Document)
	}
	return doc, nil
}

// Save writes the whole document to disk.
func (s *FileStore) Save(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc == nil {
		doc = make(Document)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return s.writeAtomic(data)
}

// UpdateSection replaces one top level key, preserving the rest of the file.
func (s *FileStore) UpdateSection(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readRaw()
	if err != nil {
		return err
	}

	patched, err := sjson.SetBytes(raw, escapePath(key), value)
	if err != nil {
		return fmt.Errorf("failed to update section %s: %w", key, err)
	}
	return s.writeAtomic(patched)
}

// UpdateField replaces key.field, creating the section when missing.
func (s *FileStore) UpdateField(ctx context.Context, key, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readRaw()
	if err != nil {
		return err
	}

	section := gjson.GetBytes(raw, escapePath(key))
	if section.Exists() && !section.IsObject() {
		return fmt.Errorf("section %s is not an object", key)
	}

	patched, err := sjson.SetBytes(raw, escapePath(key)+"."+escapePath(field), value)
	if err != nil {
		return fmt.Errorf("failed to update %s.%s: %w", key, field, err)
	}
	return s.writeAtomic(patched)
}

// UpdateSections replaces several top level keys in one write, preserving
// the rest of the file.
func (s *FileStore) UpdateSections(ctx context.Context, sections Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readRaw()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(sections))
	for key := range sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw, err = sjson.SetBytes(raw, escapePath(key), sections[key])
		if err != nil {
			return fmt.Errorf("failed to update section %s: %w", key, err)
		}
	}
	return s.writeAtomic(raw)
}

// Section returns the object stored under key, if any.
func (s *FileStore) Section(ctx context.Context, key string) (map[string]any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	raw, err := s.readRaw()
	if err != nil {
		return nil, false, err
	}

	result := gjson.GetBytes(raw, escapePath(key))
	if !result.IsObject() {
		return nil, false, nil
	}
	section, ok := result.Value().(map[string]any)
	return section, ok, nil
}

func (s *FileStore) readRaw() ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("failed to decode settings file %s: invalid JSON", s.path)
	}
	if gjson.ParseBytes(raw).Type == gjson.Null {
		return []byte("{}"), nil
	}
	return raw, nil
}

func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp settings file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// escapePath quotes gjson/sjson path metacharacters in a single key.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
