// Package registry keeps the in-memory catalog of discovered documents and
// notifies watchers when the corpus changes.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/pavanpakhare/javanotes/internal/types"
)

// DocumentRegistry manages all discovered documents, keyed by their
// content-root-relative path.
type DocumentRegistry struct {
	documents map[string]*types.DocumentInfo
	mutex     sync.RWMutex
	watchers  []chan types.DocumentEvent
}

// NewDocumentRegistry creates a new document registry
func NewDocumentRegistry() *DocumentRegistry {
	return &DocumentRegistry{
		documents: make(map[string]*types.DocumentInfo),
		watchers:  make([]chan types.DocumentEvent, 0),
	}
}

// Register adds or updates a document in the registry
func (r *DocumentRegistry) Register(doc *types.DocumentInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	eventType := types.EventTypeAdded
	if _, exists := r.documents[doc.RelPath]; exists {
		eventType = types.EventTypeUpdated
	}

	r.documents[doc.RelPath] = doc

	r.notify(types.DocumentEvent{
		Type:      eventType,
		Document:  doc,
		Timestamp: time.Now(),
	})
}

// Get retrieves a document by its relative path
func (r *DocumentRegistry) Get(relPath string) (*types.DocumentInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	doc, exists := r.documents[relPath]
	return doc, exists
}

// GetAll returns all registered documents
func (r *DocumentRegistry) GetAll() map[string]*types.DocumentInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[string]*types.DocumentInfo, len(r.documents))
	for relPath, doc := range r.documents {
		result[relPath] = doc
	}
	return result
}

// Paths returns the sorted relative paths of all registered documents
func (r *DocumentRegistry) Paths() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	paths := make([]string, 0, len(r.documents))
	for relPath := range r.documents {
		paths = append(paths, relPath)
	}
	sort.Strings(paths)
	return paths
}

// ByTag returns all documents carrying the given front-matter tag, sorted
// by relative path
func (r *DocumentRegistry) ByTag(tag string) []*types.DocumentInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var docs []*types.DocumentInfo
	for _, doc := range r.documents {
		for _, t := range doc.Tags {
			if t == tag {
				docs = append(docs, doc)
				break
			}
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].RelPath < docs[j].RelPath })
	return docs
}

// Anchors returns the heading anchors defined by a document
func (r *DocumentRegistry) Anchors(relPath string) (map[string]struct{}, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	doc, exists := r.documents[relPath]
	if !exists {
		return nil, false
	}
	return doc.Anchors(), true
}

// Remove removes a document from the registry
func (r *DocumentRegistry) Remove(relPath string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	doc, exists := r.documents[relPath]
	if !exists {
		return
	}

	delete(r.documents, relPath)

	r.notify(types.DocumentEvent{
		Type:      types.EventTypeRemoved,
		Document:  doc,
		Timestamp: time.Now(),
	})
}

// Watch returns a channel that receives document events
func (r *DocumentRegistry) Watch() <-chan types.DocumentEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan types.DocumentEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *DocumentRegistry) UnWatch(ch <-chan types.DocumentEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered documents
func (r *DocumentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.documents)
}

// notify delivers an event to every watcher without blocking. Callers must
// hold the write lock.
func (r *DocumentRegistry) notify(event types.DocumentEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}
