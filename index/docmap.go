package index

import (
	"errors"
	"sync"

	"github.com/hupe1980/sigdex/core"
)

// ErrDuplicateDocument is returned when a DocId is added to the map twice.
var ErrDuplicateDocument = errors.New("index: document id already present")

// DocumentMap is a synchronised mapping from external DocId to the handle
// locating the document inside the index.
type DocumentMap struct {
	mu      sync.RWMutex
	entries map[core.DocId]DocumentHandle
}

// NewDocumentMap returns an empty map.
func NewDocumentMap() *DocumentMap {
	return &DocumentMap{
		entries: make(map[core.DocId]DocumentHandle),
	}
}

// Add inserts the handle under its DocId. Inserting a duplicate id fails
// without mutating the map.
func (m *DocumentMap) Add(handle DocumentHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[handle.DocId()]; ok {
		return ErrDuplicateDocument
	}
	m.entries[handle.DocId()] = handle
	return nil
}

// Find returns the handle for id, if present.
func (m *DocumentMap) Find(id core.DocId) (DocumentHandle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	handle, ok := m.entries[id]
	return handle, ok
}

// Delete removes id and reports whether it was present.
func (m *DocumentMap) Delete(id core.DocId) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return false
	}
	delete(m.entries, id)
	return true
}

// Len returns the number of live documents.
func (m *DocumentMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
