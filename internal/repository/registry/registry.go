// Package registry keeps the set of ingested documents.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/document"
)

// Registry is an in-memory document registry keyed by source id.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]document.Document
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{docs: make(map[string]document.Document)}
}

// Add registers doc, replacing any document with the same source id.
func (r *Registry) Add(doc document.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.SourceID()] = doc
}

// Get returns the document registered under sourceID.
func (r *Registry) Get(sourceID string) (document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[sourceID]
	if !ok {
		return document.Document{}, fmt.Errorf("document %s: %w", sourceID, domain.ErrNotFound)
	}
	return doc, nil
}

// List returns every document ordered by creation time, then source id.
func (r *Registry) List() []document.Document {
	r.mu.RLock()
	out := make([]document.Document, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].CreatedAt(), out[j].CreatedAt()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return out[i].SourceID() < out[j].SourceID()
	})
	return out
}

// Delete removes sourceID and reports whether it was registered.
func (r *Registry) Delete(sourceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[sourceID]; !ok {
		return false
	}
	delete(r.docs, sourceID)
	return true
}

// Clear removes every document.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[string]document.Document)
}

// Len returns the number of registered documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
