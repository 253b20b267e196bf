package config

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore implements Store in memory. Used by tests and dry runs.
type MemoryStore struct {
	mu  sync.Mutex
	doc Document
}

// NewMemoryStore creates a store seeded with a copy of doc.
func NewMemoryStore(doc Document) *MemoryStore {
	return &MemoryStore{doc: Document(Clone(doc))}
}

// Load returns a deep copy of the stored document.
func (m *MemoryStore) Load(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return make(Document), nil
	}
	return Document(Clone(m.doc)), nil
}

// Save replaces the stored document.
func (m *MemoryStore) Save(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = Document(Clone(doc))
	return nil
}

// UpdateSection replaces one top level key.
func (m *MemoryStore) UpdateSection(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		m.doc = make(Document)
	}
	m.doc[key] = cloneValue(normalizeMaps(value))
	return nil
}

// UpdateField replaces key.field.
func (m *MemoryStore) UpdateField(ctx context.Context, key, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		m.doc = make(Document)
	}

	section, ok := m.doc[key].(map[string]any)
	if !ok {
		if _, exists := m.doc[key]; exists {
			return fmt.Errorf("section %s is not an object", key)
		}
		section = make(map[string]any)
		m.doc[key] = section
	}
	section[field] = cloneValue(value)
	return nil
}

// UpdateSections replaces several top level keys at once.
func (m *MemoryStore) UpdateSections(ctx context.Context, sections Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		m.doc = make(Document)
	}
	for key, value := range sections {
		m.doc[key] = cloneValue(normalizeMaps(value))
	}
	return nil
}

// normalizeMaps converts named map types to map[string]any so stored
// sections look the same as decoded JSON.
func normalizeMaps(value any) any {
	if m, ok := AsMap(value); ok {
		return m
	}
	return value
}
